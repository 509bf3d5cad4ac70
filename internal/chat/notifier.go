package chat

import (
	"context"
	"fmt"

	"github.com/angelmondragon/giftdrop-backend/pkg/config"
	"github.com/angelmondragon/giftdrop-backend/pkg/db/models"
	"github.com/angelmondragon/giftdrop-backend/pkg/logger"
	"github.com/angelmondragon/giftdrop-backend/pkg/telegram"
)

// Notifier pushes transition side effects into the chat. Sends are fire
// and forget; a failed send is logged, never retried, and never rolls a
// status back.
type Notifier struct {
	logg      *logger.Logger
	transport Transport
	operators config.OperatorsConfig
}

// NewNotifier builds a chat notifier.
func NewNotifier(logg *logger.Logger, transport Transport, operators config.OperatorsConfig) (*Notifier, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if transport == nil {
		return nil, fmt.Errorf("transport required")
	}
	return &Notifier{logg: logg, transport: transport, operators: operators}, nil
}

// PaymentReceived tells the buyer their payment landed and asks the
// operators to review it.
func (n *Notifier) PaymentReceived(ctx context.Context, order *models.Order) {
	n.toBuyer(ctx, order, fmt.Sprintf(
		"Payment received for order #%d. An operator will review it shortly; you can send a receipt screenshot here to speed things up.",
		order.OrderNumber,
	), nil)

	buttons := []telegram.InlineButton{
		{Text: "Confirm", CallbackData: "confirm:" + order.ID.String()},
		{Text: "Decline", CallbackData: "decline:" + order.ID.String()},
	}
	n.toOperators(ctx, fmt.Sprintf(
		"Order #%d (%d) awaits review from chat %d.",
		order.OrderNumber, order.Amount, order.BuyerChatID,
	), buttons)
}

// OrderDeclined tells the buyer their payment was rejected.
func (n *Notifier) OrderDeclined(ctx context.Context, order *models.Order) {
	n.toBuyer(ctx, order, fmt.Sprintf(
		"Order #%d was declined. If you believe this is a mistake, contact support.",
		order.OrderNumber,
	), nil)
}

// OrderFailed tells the buyer their order hit an unrecoverable problem.
func (n *Notifier) OrderFailed(ctx context.Context, order *models.Order) {
	n.toBuyer(ctx, order, fmt.Sprintf(
		"Something went wrong with order #%d. Support has been notified.",
		order.OrderNumber,
	), nil)
	n.toOperators(ctx, fmt.Sprintf("Order #%d moved to error and needs a look.", order.OrderNumber), nil)
}

// SendFulfilment hands the gift to the buyer.
func (n *Notifier) SendFulfilment(ctx context.Context, order *models.Order, item *models.CatalogItem) {
	text := fmt.Sprintf("🎁 Your gift is here: %s! Order #%d is complete.", item.Name, order.OrderNumber)
	if item.ImageURL != nil && *item.ImageURL != "" {
		text += "\n" + *item.ImageURL
	}
	n.toBuyer(ctx, order, text, nil)
}

// SendFailure tells the buyer the gift could not be handed out.
func (n *Notifier) SendFailure(ctx context.Context, order *models.Order) {
	n.toBuyer(ctx, order, fmt.Sprintf(
		"We could not deliver order #%d. Support has been notified and will follow up.",
		order.OrderNumber,
	), nil)
	n.toOperators(ctx, fmt.Sprintf("Delivery failed for order #%d; the item is missing.", order.OrderNumber), nil)
}

// ProofReceived forwards a buyer's payment proof note to the operators.
func (n *Notifier) ProofReceived(ctx context.Context, chatID int64) {
	n.toOperators(ctx, fmt.Sprintf("Chat %d sent a payment proof; check their open orders.", chatID), nil)
}

func (n *Notifier) toBuyer(ctx context.Context, order *models.Order, text string, buttons []telegram.InlineButton) {
	logCtx := n.logg.WithChatID(ctx, order.BuyerChatID)
	if err := n.transport.SendMessage(logCtx, order.BuyerChatID, text, buttons); err != nil {
		n.logg.Error(logCtx, "buyer notification failed", err)
	}
}

func (n *Notifier) toOperators(ctx context.Context, text string, buttons []telegram.InlineButton) {
	for _, chatID := range n.operators.ChatIDs {
		logCtx := n.logg.WithChatID(ctx, chatID)
		if err := n.transport.SendMessage(logCtx, chatID, text, buttons); err != nil {
			n.logg.Error(logCtx, "operator notification failed", err)
		}
	}
}
