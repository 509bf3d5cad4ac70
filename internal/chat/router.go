package chat

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftdrop-backend/internal/catalog"
	"github.com/angelmondragon/giftdrop-backend/internal/orders"
	"github.com/angelmondragon/giftdrop-backend/internal/users"
	"github.com/angelmondragon/giftdrop-backend/pkg/config"
	"github.com/angelmondragon/giftdrop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/giftdrop-backend/pkg/errors"
	"github.com/angelmondragon/giftdrop-backend/pkg/logger"
	"github.com/angelmondragon/giftdrop-backend/pkg/telegram"
)

const manualPaymentInstructions = "No payment link is available right now. " +
	"Pay by transfer using your order number as the reference, then send a receipt screenshot here."

// RouterParams configure the chat router.
type RouterParams struct {
	Logger    *logger.Logger
	Transport Transport
	Users     users.Repository
	Catalog   catalog.Service
	Orders    orders.Service
	OrderRepo orders.Repository
	Sessions  *SessionStore
	Notifier  *Notifier
	Operators config.OperatorsConfig
}

// Router dispatches inbound chat updates to the commerce flow. Handler
// errors are reported to the sender; they never bubble to the webhook
// response, which always acknowledges receipt.
type Router struct {
	logg      *logger.Logger
	transport Transport
	users     users.Repository
	catalog   catalog.Service
	orders    orders.Service
	orderRepo orders.Repository
	sessions  *SessionStore
	notifier  *Notifier
	operators config.OperatorsConfig
}

// NewRouter builds a chat router.
func NewRouter(params RouterParams) (*Router, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Transport == nil {
		return nil, fmt.Errorf("transport required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.OrderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	return &Router{
		logg:      params.Logger,
		transport: params.Transport,
		users:     params.Users,
		catalog:   params.Catalog,
		orders:    params.Orders,
		orderRepo: params.OrderRepo,
		sessions:  params.Sessions,
		notifier:  params.Notifier,
		operators: params.Operators,
	}, nil
}

// HandleUpdate routes a single webhook update.
func (r *Router) HandleUpdate(ctx context.Context, update *telegram.Update) {
	if update == nil {
		return
	}
	switch {
	case update.Callback != nil:
		r.handleCallback(ctx, update.Callback)
	case update.Message != nil:
		r.handleMessage(ctx, update.Message)
	}
}

func (r *Router) handleMessage(ctx context.Context, msg *telegram.Message) {
	if msg.From == nil {
		return
	}
	chatID := msg.Chat.ID
	logCtx := r.logg.WithChatID(ctx, chatID)

	if msg.Document != nil || len(msg.Photo) > 0 {
		r.notifier.ProofReceived(logCtx, chatID)
		r.reply(logCtx, chatID, "Thanks, your receipt was forwarded to an operator.")
		return
	}

	text := strings.TrimSpace(msg.Text)
	command, args, _ := strings.Cut(text, " ")

	switch command {
	case "/start":
		r.handleStart(logCtx, msg)
	case "/orders":
		r.handleMyOrders(logCtx, chatID)
	case "/additem":
		r.handleAddItem(logCtx, chatID, args)
	case "/listorders":
		r.handleListOrders(logCtx, chatID)
	case "/broadcast":
		r.handleBroadcastPrompt(logCtx, chatID)
	default:
		r.handleFreeText(logCtx, chatID, text)
	}
}

func (r *Router) handleStart(ctx context.Context, msg *telegram.Message) {
	user := &models.User{
		ChatID:    msg.Chat.ID,
		FirstName: msg.From.FirstName,
		LastName:  msg.From.LastName,
		Username:  msg.From.Username,
	}
	if err := r.users.Upsert(ctx, user); err != nil {
		r.logg.Error(ctx, "user upsert failed", err)
	}

	items, err := r.catalog.Items(ctx)
	if err != nil {
		r.logg.Error(ctx, "loading catalog failed", err)
		r.reply(ctx, msg.Chat.ID, "The shop is unavailable right now, try again later.")
		return
	}
	if len(items) == 0 {
		r.reply(ctx, msg.Chat.ID, "Welcome! The shop is empty at the moment, check back soon.")
		return
	}

	buttons := make([]telegram.InlineButton, 0, len(items))
	for i := range items {
		buttons = append(buttons, telegram.InlineButton{
			Text:         fmt.Sprintf("%s · %d", items[i].Name, items[i].Price),
			CallbackData: "buy:" + items[i].ID.String(),
		})
	}
	r.replyWithButtons(ctx, msg.Chat.ID, "Welcome! Pick a gift:", buttons)
}

func (r *Router) handleMyOrders(ctx context.Context, chatID int64) {
	list, err := r.orderRepo.ListByBuyer(ctx, chatID)
	if err != nil {
		r.logg.Error(ctx, "listing buyer orders failed", err)
		r.reply(ctx, chatID, "Could not load your orders, try again later.")
		return
	}
	if len(list) == 0 {
		r.reply(ctx, chatID, "You have no orders yet. Use /start to browse the shop.")
		return
	}
	var b strings.Builder
	b.WriteString("Your orders:\n")
	for i := range list {
		fmt.Fprintf(&b, "#%d — %s (%d)\n", list[i].OrderNumber, list[i].Status, list[i].Amount)
	}
	r.reply(ctx, chatID, b.String())
}

// handleAddItem parses "name;price;description[;imageURL]" from an
// operator and adds the item to the catalog.
func (r *Router) handleAddItem(ctx context.Context, chatID int64, args string) {
	if !r.operators.IsOperator(chatID) {
		r.reply(ctx, chatID, "This command is for operators.")
		return
	}
	parts := strings.Split(args, ";")
	if len(parts) < 2 {
		r.reply(ctx, chatID, "Usage: /additem name;price[;description][;imageURL]")
		return
	}
	price, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		r.reply(ctx, chatID, "Price must be a whole number.")
		return
	}
	input := catalog.AddItemInput{Name: strings.TrimSpace(parts[0]), Price: price}
	if len(parts) > 2 {
		input.Description = strings.TrimSpace(parts[2])
	}
	if len(parts) > 3 {
		url := strings.TrimSpace(parts[3])
		input.ImageURL = &url
	}
	item, err := r.catalog.AddItem(ctx, input)
	if err != nil {
		r.logg.Error(ctx, "add item failed", err)
		r.reply(ctx, chatID, "Could not add the item: "+pkgerrors.PublicMessage(err))
		return
	}
	r.reply(ctx, chatID, fmt.Sprintf("Added %s (%d).", item.Name, item.Price))
}

func (r *Router) handleListOrders(ctx context.Context, chatID int64) {
	if !r.operators.IsOperator(chatID) {
		r.reply(ctx, chatID, "This command is for operators.")
		return
	}
	list, err := r.orderRepo.ListRecent(ctx, 20)
	if err != nil {
		r.logg.Error(ctx, "listing recent orders failed", err)
		r.reply(ctx, chatID, "Could not load orders.")
		return
	}
	if len(list) == 0 {
		r.reply(ctx, chatID, "No orders yet.")
		return
	}
	var b strings.Builder
	b.WriteString("Recent orders:\n")
	for i := range list {
		fmt.Fprintf(&b, "#%d — %s — chat %d — %d\n",
			list[i].OrderNumber, list[i].Status, list[i].BuyerChatID, list[i].Amount)
	}
	r.reply(ctx, chatID, b.String())
}

func (r *Router) handleBroadcastPrompt(ctx context.Context, chatID int64) {
	if !r.operators.IsOperator(chatID) {
		r.reply(ctx, chatID, "This command is for operators.")
		return
	}
	if err := r.sessions.Set(ctx, chatID, SessionAwaitingBroadcast); err != nil {
		r.logg.Error(ctx, "setting broadcast session failed", err)
		r.reply(ctx, chatID, "Could not start a broadcast, try again.")
		return
	}
	r.reply(ctx, chatID, "Send the broadcast text as your next message.")
}

func (r *Router) handleFreeText(ctx context.Context, chatID int64, text string) {
	state, err := r.sessions.Get(ctx, chatID)
	if err != nil {
		r.logg.Error(ctx, "reading session failed", err)
		return
	}
	if state == SessionAwaitingBroadcast && r.operators.IsOperator(chatID) {
		if err := r.sessions.Clear(ctx, chatID); err != nil {
			r.logg.Error(ctx, "clearing session failed", err)
		}
		r.broadcast(ctx, chatID, text)
		return
	}
	r.reply(ctx, chatID, "Use /start to browse the shop or /orders to see your orders.")
}

func (r *Router) broadcast(ctx context.Context, operatorChatID int64, text string) {
	if strings.TrimSpace(text) == "" {
		r.reply(ctx, operatorChatID, "Broadcast cancelled: the message was empty.")
		return
	}
	chatIDs, err := r.users.ListChatIDs(ctx)
	if err != nil {
		r.logg.Error(ctx, "listing chat ids failed", err)
		r.reply(ctx, operatorChatID, "Could not load recipients.")
		return
	}
	sent := 0
	for _, chatID := range chatIDs {
		if err := r.transport.SendMessage(ctx, chatID, text, nil); err != nil {
			r.logg.Error(r.logg.WithChatID(ctx, chatID), "broadcast send failed", err)
			continue
		}
		sent++
	}
	r.reply(ctx, operatorChatID, fmt.Sprintf("Broadcast sent to %d of %d chats.", sent, len(chatIDs)))
}

func (r *Router) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	if cb.From == nil {
		return
	}
	chatID := cb.From.ID
	logCtx := r.logg.WithChatID(ctx, chatID)

	action, payload, _ := strings.Cut(cb.Data, ":")
	switch action {
	case "buy":
		r.handleBuy(logCtx, cb, chatID, payload)
	case "confirm":
		r.handleReview(logCtx, cb, chatID, payload, true)
	case "decline":
		r.handleReview(logCtx, cb, chatID, payload, false)
	default:
		r.answer(logCtx, cb.ID, "Unknown action.")
	}
}

func (r *Router) handleBuy(ctx context.Context, cb *telegram.CallbackQuery, chatID int64, payload string) {
	itemID, err := uuid.Parse(payload)
	if err != nil {
		r.answer(ctx, cb.ID, "This item is no longer available.")
		return
	}
	result, err := r.orders.Checkout(ctx, chatID, itemID)
	if err != nil {
		r.logg.Error(ctx, "checkout failed", err)
		r.answer(ctx, cb.ID, pkgerrors.PublicMessage(err))
		return
	}
	r.answer(ctx, cb.ID, fmt.Sprintf("Order #%d created.", result.Order.OrderNumber))
	if result.ManualPath {
		r.reply(ctx, chatID, fmt.Sprintf("Order #%d created. %s", result.Order.OrderNumber, manualPaymentInstructions))
		return
	}
	r.reply(ctx, chatID, fmt.Sprintf(
		"Order #%d created. Complete the payment here:\n%s",
		result.Order.OrderNumber, result.RedirectURL,
	))
}

// handleReview applies an operator verdict from an inline button. The
// order service authorizes the actor; pressing a stale button answers
// with the current outcome instead of an error.
func (r *Router) handleReview(ctx context.Context, cb *telegram.CallbackQuery, chatID int64, payload string, approve bool) {
	orderID, err := uuid.Parse(payload)
	if err != nil {
		r.answer(ctx, cb.ID, "Unknown order.")
		return
	}
	if approve {
		err = r.orders.Confirm(ctx, orderID, chatID)
	} else {
		err = r.orders.Decline(ctx, orderID, chatID)
	}
	switch {
	case err == nil:
		if approve {
			r.answer(ctx, cb.ID, "Order confirmed.")
		} else {
			r.answer(ctx, cb.ID, "Order declined.")
		}
	case pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized):
		r.answer(ctx, cb.ID, "You are not allowed to review orders.")
	case pkgerrors.HasCode(err, pkgerrors.CodeStateConflict):
		r.answer(ctx, cb.ID, "This order was already handled.")
	default:
		r.logg.Error(ctx, "order review failed", err)
		r.answer(ctx, cb.ID, "Something went wrong, try again.")
	}
}

func (r *Router) reply(ctx context.Context, chatID int64, text string) {
	r.replyWithButtons(ctx, chatID, text, nil)
}

func (r *Router) replyWithButtons(ctx context.Context, chatID int64, text string, buttons []telegram.InlineButton) {
	if err := r.transport.SendMessage(ctx, chatID, text, buttons); err != nil {
		r.logg.Error(ctx, "chat reply failed", err)
	}
}

func (r *Router) answer(ctx context.Context, callbackID, text string) {
	if err := r.transport.AnswerCallback(ctx, callbackID, text); err != nil {
		r.logg.Error(ctx, "callback answer failed", err)
	}
}
