package delivery

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftdrop-backend/internal/orders"
	"github.com/angelmondragon/giftdrop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/giftdrop-backend/pkg/errors"
	"github.com/angelmondragon/giftdrop-backend/pkg/enums"
	"github.com/angelmondragon/giftdrop-backend/pkg/logger"
)

type memRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*models.Order
}

func newMemRepo(seed ...*models.Order) *memRepo {
	repo := &memRepo{orders: map[uuid.UUID]*models.Order{}}
	for _, order := range seed {
		repo.orders[order.ID] = order
	}
	return repo
}

func (m *memRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *order
	return &clone, nil
}

func (m *memRepo) TransitionStatus(_ context.Context, id uuid.UUID, from, to enums.OrderStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok || order.Status != from {
		return false, nil
	}
	order.Status = to
	return true, nil
}

func (m *memRepo) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order
	return order, nil
}

func (m *memRepo) FindByReference(context.Context, string) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (m *memRepo) ListUnresolved(context.Context, int) ([]models.Order, error) { return nil, nil }
func (m *memRepo) ListByBuyer(context.Context, int64) ([]models.Order, error)  { return nil, nil }
func (m *memRepo) ListRecent(context.Context, int) ([]models.Order, error)     { return nil, nil }
func (m *memRepo) SetProviderPaymentID(context.Context, uuid.UUID, string) (bool, error) {
	return false, nil
}
func (m *memRepo) WithTx(*gorm.DB) orders.Repository { return m }

type memCatalog struct {
	items map[uuid.UUID]*models.CatalogItem
}

func newMemCatalog(items ...*models.CatalogItem) *memCatalog {
	c := &memCatalog{items: map[uuid.UUID]*models.CatalogItem{}}
	for _, item := range items {
		c.items[item.ID] = item
	}
	return c
}

func (c *memCatalog) Create(_ context.Context, item *models.CatalogItem) (*models.CatalogItem, error) {
	c.items[item.ID] = item
	return item, nil
}

func (c *memCatalog) FindByID(_ context.Context, id uuid.UUID) (*models.CatalogItem, error) {
	item, ok := c.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return item, nil
}

func (c *memCatalog) List(context.Context) ([]models.CatalogItem, error) { return nil, nil }

type countingSender struct {
	mu          sync.Mutex
	fulfilments int
	failures    int
}

func (s *countingSender) SendFulfilment(context.Context, *models.Order, *models.CatalogItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fulfilments++
}

func (s *countingSender) SendFailure(context.Context, *models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures++
}

func newTestExecutor(t *testing.T, repo *memRepo, cat *memCatalog, sender *countingSender) *Executor {
	t.Helper()
	exec, err := NewExecutor(ExecutorParams{
		Logger:  logger.New(logger.Options{ServiceName: "delivery-test"}),
		Repo:    repo,
		Catalog: cat,
		Sender:  sender,
	})
	require.NoError(t, err)
	return exec
}

func confirmedOrder(itemID uuid.UUID) *models.Order {
	return &models.Order{
		ID:          uuid.New(),
		OrderNumber: 1,
		BuyerChatID: 42,
		ItemID:      itemID,
		Amount:      500,
		Status:      enums.OrderStatusConfirmed,
	}
}

func TestDeliverFulfillsExactlyOnceUnderConcurrency(t *testing.T) {
	item := &models.CatalogItem{ID: uuid.New(), Name: "NFT Kitten", Price: 500}
	order := confirmedOrder(item.ID)
	repo := newMemRepo(order)
	sender := &countingSender{}
	exec := newTestExecutor(t, repo, newMemCatalog(item), sender)

	const attempts = 10
	var wg sync.WaitGroup
	wins := make(chan bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := exec.Deliver(context.Background(), order.ID)
			assert.NoError(t, err)
			wins <- won
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for won := range wins {
		if won {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, 1, sender.fulfilments)

	stored, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, stored.Status)
}

func TestDeliverSkipsNonConfirmedOrders(t *testing.T) {
	item := &models.CatalogItem{ID: uuid.New(), Name: "NFT Kitten", Price: 500}
	for _, status := range []enums.OrderStatus{
		enums.OrderStatusPending,
		enums.OrderStatusPaymentCreated,
		enums.OrderStatusPaidUnconfirmed,
		enums.OrderStatusDelivered,
		enums.OrderStatusDeclined,
	} {
		order := confirmedOrder(item.ID)
		order.Status = status
		repo := newMemRepo(order)
		sender := &countingSender{}
		exec := newTestExecutor(t, repo, newMemCatalog(item), sender)

		won, err := exec.Deliver(context.Background(), order.ID)
		require.NoError(t, err)
		assert.Falsef(t, won, "status %s", status)
		assert.Zero(t, sender.fulfilments)

		stored, err := repo.FindByID(context.Background(), order.ID)
		require.NoError(t, err)
		assert.Equal(t, status, stored.Status)
	}
}

func TestDeliverUnknownOrder(t *testing.T) {
	exec := newTestExecutor(t, newMemRepo(), newMemCatalog(), &countingSender{})

	_, err := exec.Deliver(context.Background(), uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestDeliverMissingItemParksOrderInError(t *testing.T) {
	order := confirmedOrder(uuid.New())
	repo := newMemRepo(order)
	sender := &countingSender{}
	exec := newTestExecutor(t, repo, newMemCatalog(), sender)

	won, err := exec.Deliver(context.Background(), order.ID)
	require.NoError(t, err)
	assert.False(t, won)
	assert.Zero(t, sender.fulfilments)
	assert.Equal(t, 1, sender.failures)

	stored, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusError, stored.Status)
}
