package chat

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftdrop-backend/internal/catalog"
	"github.com/angelmondragon/giftdrop-backend/internal/orders"
	"github.com/angelmondragon/giftdrop-backend/pkg/config"
	"github.com/angelmondragon/giftdrop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/giftdrop-backend/pkg/errors"
	"github.com/angelmondragon/giftdrop-backend/pkg/enums"
	"github.com/angelmondragon/giftdrop-backend/pkg/logger"
	"github.com/angelmondragon/giftdrop-backend/pkg/telegram"
)

const operatorChatID int64 = 900

type sentMessage struct {
	chatID  int64
	text    string
	buttons []telegram.InlineButton
}

type recorderTransport struct {
	mu       sync.Mutex
	messages []sentMessage
	answers  []string
}

func (r *recorderTransport) SendMessage(_ context.Context, chatID int64, text string, buttons []telegram.InlineButton) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, sentMessage{chatID: chatID, text: text, buttons: buttons})
	return nil
}

func (r *recorderTransport) AnswerCallback(_ context.Context, _ string, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers = append(r.answers, text)
	return nil
}

func (r *recorderTransport) messagesTo(chatID int64) []sentMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sentMessage
	for _, msg := range r.messages {
		if msg.chatID == chatID {
			out = append(out, msg)
		}
	}
	return out
}

type fakeUsers struct {
	upserts []models.User
	chatIDs []int64
}

func (f *fakeUsers) Upsert(_ context.Context, user *models.User) error {
	f.upserts = append(f.upserts, *user)
	return nil
}

func (f *fakeUsers) Find(context.Context, int64) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) ListChatIDs(context.Context) ([]int64, error) {
	return f.chatIDs, nil
}

type fakeCatalogRepo struct {
	items []models.CatalogItem
}

func (f *fakeCatalogRepo) Create(_ context.Context, item *models.CatalogItem) (*models.CatalogItem, error) {
	f.items = append(f.items, *item)
	return item, nil
}

func (f *fakeCatalogRepo) FindByID(_ context.Context, id uuid.UUID) (*models.CatalogItem, error) {
	for i := range f.items {
		if f.items[i].ID == id {
			return &f.items[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCatalogRepo) List(context.Context) ([]models.CatalogItem, error) {
	return f.items, nil
}

type fakeOrders struct {
	checkoutResult *orders.CheckoutResult
	checkoutErr    error
	confirmed      []uuid.UUID
	declined       []uuid.UUID
	operators      config.OperatorsConfig
}

func (f *fakeOrders) Checkout(context.Context, int64, uuid.UUID) (*orders.CheckoutResult, error) {
	if f.checkoutErr != nil {
		return nil, f.checkoutErr
	}
	return f.checkoutResult, nil
}

func (f *fakeOrders) MarkPaidUnconfirmed(context.Context, uuid.UUID) (bool, error) { return false, nil }
func (f *fakeOrders) AutoConfirm(context.Context, uuid.UUID) (bool, error)         { return false, nil }

func (f *fakeOrders) Confirm(_ context.Context, orderID uuid.UUID, actor int64) error {
	if !f.operators.IsOperator(actor) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "operator identity required")
	}
	f.confirmed = append(f.confirmed, orderID)
	return nil
}

func (f *fakeOrders) Decline(_ context.Context, orderID uuid.UUID, actor int64) error {
	if !f.operators.IsOperator(actor) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "operator identity required")
	}
	f.declined = append(f.declined, orderID)
	return nil
}

func (f *fakeOrders) ConfirmReviewed(context.Context, uuid.UUID) error { return nil }
func (f *fakeOrders) DeclineReviewed(context.Context, uuid.UUID) error { return nil }
func (f *fakeOrders) MarkProviderDeclined(context.Context, uuid.UUID) (bool, error) {
	return false, nil
}
func (f *fakeOrders) MarkError(context.Context, uuid.UUID) error { return nil }

type fakeOrderRepo struct {
	orders []models.Order
}

func (f *fakeOrderRepo) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	return order, nil
}
func (f *fakeOrderRepo) FindByID(context.Context, uuid.UUID) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeOrderRepo) FindByReference(context.Context, string) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeOrderRepo) ListUnresolved(context.Context, int) ([]models.Order, error) {
	return nil, nil
}
func (f *fakeOrderRepo) ListByBuyer(_ context.Context, buyer int64) ([]models.Order, error) {
	var out []models.Order
	for _, order := range f.orders {
		if order.BuyerChatID == buyer {
			out = append(out, order)
		}
	}
	return out, nil
}
func (f *fakeOrderRepo) ListRecent(context.Context, int) ([]models.Order, error) {
	return f.orders, nil
}
func (f *fakeOrderRepo) SetProviderPaymentID(context.Context, uuid.UUID, string) (bool, error) {
	return false, nil
}
func (f *fakeOrderRepo) TransitionStatus(context.Context, uuid.UUID, enums.OrderStatus, enums.OrderStatus) (bool, error) {
	return false, nil
}
func (f *fakeOrderRepo) WithTx(*gorm.DB) orders.Repository { return f }

type memSessionRedis struct {
	mu   sync.Mutex
	vals map[string]string
}

func newMemSessionRedis() *memSessionRedis {
	return &memSessionRedis{vals: map[string]string{}}
}

func (m *memSessionRedis) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[key] = value.(string)
	return nil
}

func (m *memSessionRedis) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.vals[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (m *memSessionRedis) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.vals, key)
	}
	return nil
}

func (m *memSessionRedis) SessionKey(chatID string) string { return "gd:session:" + chatID }

type routerFixture struct {
	router    *Router
	transport *recorderTransport
	users     *fakeUsers
	orders    *fakeOrders
	orderRepo *fakeOrderRepo
	catalog   *fakeCatalogRepo
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "chat-test"})
	operators := config.OperatorsConfig{ChatIDs: []int64{operatorChatID}}

	transport := &recorderTransport{}
	usersRepo := &fakeUsers{chatIDs: []int64{1, 2, 3}}
	catalogRepo := &fakeCatalogRepo{}
	catalogSvc, err := catalog.NewService(catalogRepo)
	require.NoError(t, err)

	ordersSvc := &fakeOrders{operators: operators}
	orderRepo := &fakeOrderRepo{}

	sessions, err := NewSessionStore(newMemSessionRedis(), 0)
	require.NoError(t, err)

	notifier, err := NewNotifier(logg, transport, operators)
	require.NoError(t, err)

	router, err := NewRouter(RouterParams{
		Logger:    logg,
		Transport: transport,
		Users:     usersRepo,
		Catalog:   catalogSvc,
		Orders:    ordersSvc,
		OrderRepo: orderRepo,
		Sessions:  sessions,
		Notifier:  notifier,
		Operators: operators,
	})
	require.NoError(t, err)

	return &routerFixture{
		router:    router,
		transport: transport,
		users:     usersRepo,
		orders:    ordersSvc,
		orderRepo: orderRepo,
		catalog:   catalogRepo,
	}
}

func messageUpdate(chatID int64, text string) *telegram.Update {
	return &telegram.Update{Message: &telegram.Message{
		From: &telegram.ChatUser{ID: chatID, FirstName: "Test"},
		Chat: telegram.Chat{ID: chatID},
		Text: text,
	}}
}

func callbackUpdate(chatID int64, data string) *telegram.Update {
	return &telegram.Update{Callback: &telegram.CallbackQuery{
		ID:   "cb-1",
		From: &telegram.ChatUser{ID: chatID},
		Data: data,
	}}
}

func TestStartUpsertsUserAndShowsCatalog(t *testing.T) {
	f := newRouterFixture(t)
	f.catalog.items = []models.CatalogItem{
		{ID: uuid.New(), Name: "NFT Kitten", Price: 500},
		{ID: uuid.New(), Name: "NFT Car", Price: 1200},
	}

	f.router.HandleUpdate(context.Background(), messageUpdate(42, "/start"))

	require.Len(t, f.users.upserts, 1)
	assert.Equal(t, int64(42), f.users.upserts[0].ChatID)

	sent := f.transport.messagesTo(42)
	require.Len(t, sent, 1)
	require.Len(t, sent[0].buttons, 2)
	assert.True(t, strings.HasPrefix(sent[0].buttons[0].CallbackData, "buy:"))
}

func TestBuyCallbackSendsPaymentLink(t *testing.T) {
	f := newRouterFixture(t)
	itemID := uuid.New()
	f.orders.checkoutResult = &orders.CheckoutResult{
		Order:       &models.Order{ID: uuid.New(), OrderNumber: 7, BuyerChatID: 42},
		RedirectURL: "https://pay.example/7",
	}

	f.router.HandleUpdate(context.Background(), callbackUpdate(42, "buy:"+itemID.String()))

	sent := f.transport.messagesTo(42)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].text, "https://pay.example/7")
	assert.Contains(t, sent[0].text, "#7")
}

func TestBuyCallbackManualPath(t *testing.T) {
	f := newRouterFixture(t)
	itemID := uuid.New()
	f.orders.checkoutResult = &orders.CheckoutResult{
		Order:      &models.Order{ID: uuid.New(), OrderNumber: 8, BuyerChatID: 42},
		ManualPath: true,
	}

	f.router.HandleUpdate(context.Background(), callbackUpdate(42, "buy:"+itemID.String()))

	sent := f.transport.messagesTo(42)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].text, "No payment link is available")
}

func TestConfirmCallbackOperatorOnly(t *testing.T) {
	f := newRouterFixture(t)
	orderID := uuid.New()

	f.router.HandleUpdate(context.Background(), callbackUpdate(42, "confirm:"+orderID.String()))
	assert.Empty(t, f.orders.confirmed)
	require.Len(t, f.transport.answers, 1)
	assert.Contains(t, f.transport.answers[0], "not allowed")

	f.router.HandleUpdate(context.Background(), callbackUpdate(operatorChatID, "confirm:"+orderID.String()))
	require.Len(t, f.orders.confirmed, 1)
	assert.Equal(t, orderID, f.orders.confirmed[0])
}

func TestAddItemRequiresOperator(t *testing.T) {
	f := newRouterFixture(t)

	f.router.HandleUpdate(context.Background(), messageUpdate(42, "/additem Rose;300"))
	assert.Empty(t, f.catalog.items)

	f.router.HandleUpdate(context.Background(), messageUpdate(operatorChatID, "/additem Rose;300;A red rose"))
	require.Len(t, f.catalog.items, 1)
	assert.Equal(t, "Rose", f.catalog.items[0].Name)
	assert.Equal(t, int64(300), f.catalog.items[0].Price)
}

func TestBroadcastFlow(t *testing.T) {
	f := newRouterFixture(t)

	f.router.HandleUpdate(context.Background(), messageUpdate(operatorChatID, "/broadcast"))
	f.router.HandleUpdate(context.Background(), messageUpdate(operatorChatID, "big sale today"))

	for _, chatID := range []int64{1, 2, 3} {
		sent := f.transport.messagesTo(chatID)
		require.Lenf(t, sent, 1, "chat %d", chatID)
		assert.Equal(t, "big sale today", sent[0].text)
	}
}

func TestBroadcastIgnoredForNonOperators(t *testing.T) {
	f := newRouterFixture(t)

	f.router.HandleUpdate(context.Background(), messageUpdate(42, "/broadcast"))
	f.router.HandleUpdate(context.Background(), messageUpdate(42, "spam"))

	assert.Empty(t, f.transport.messagesTo(1))
}

func TestPaymentProofForwardedToOperators(t *testing.T) {
	f := newRouterFixture(t)

	f.router.HandleUpdate(context.Background(), &telegram.Update{Message: &telegram.Message{
		From:  &telegram.ChatUser{ID: 42},
		Chat:  telegram.Chat{ID: 42},
		Photo: []telegram.Photo{{FileID: "photo-1"}},
	}})

	operatorMsgs := f.transport.messagesTo(operatorChatID)
	require.Len(t, operatorMsgs, 1)
	assert.Contains(t, operatorMsgs[0].text, "payment proof")

	buyerMsgs := f.transport.messagesTo(42)
	require.Len(t, buyerMsgs, 1)
	assert.Contains(t, buyerMsgs[0].text, "forwarded")
}

func TestMyOrdersListsOnlyOwn(t *testing.T) {
	f := newRouterFixture(t)
	f.orderRepo.orders = []models.Order{
		{OrderNumber: 1, BuyerChatID: 42, Status: enums.OrderStatusDelivered, Amount: 500},
		{OrderNumber: 2, BuyerChatID: 43, Status: enums.OrderStatusPending, Amount: 700},
	}

	f.router.HandleUpdate(context.Background(), messageUpdate(42, "/orders"))

	sent := f.transport.messagesTo(42)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].text, "#1")
	assert.NotContains(t, sent[0].text, "#2")
}
