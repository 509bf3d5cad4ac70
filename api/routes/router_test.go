package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftdrop-backend/api/controllers"
	"github.com/angelmondragon/giftdrop-backend/internal/catalog"
	"github.com/angelmondragon/giftdrop-backend/internal/orders"
	"github.com/angelmondragon/giftdrop-backend/pkg/config"
	"github.com/angelmondragon/giftdrop-backend/pkg/db/models"
	"github.com/angelmondragon/giftdrop-backend/pkg/enums"
	"github.com/angelmondragon/giftdrop-backend/pkg/logger"
)

const testAPIToken = "test-token"

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubOrderRepo struct{ orders []models.Order }

func (s stubOrderRepo) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	return order, nil
}
func (s stubOrderRepo) FindByID(context.Context, uuid.UUID) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}
func (s stubOrderRepo) FindByReference(context.Context, string) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}
func (s stubOrderRepo) ListUnresolved(context.Context, int) ([]models.Order, error) {
	return nil, nil
}
func (s stubOrderRepo) ListByBuyer(context.Context, int64) ([]models.Order, error) {
	return s.orders, nil
}
func (s stubOrderRepo) ListRecent(context.Context, int) ([]models.Order, error) {
	return s.orders, nil
}
func (s stubOrderRepo) SetProviderPaymentID(context.Context, uuid.UUID, string) (bool, error) {
	return false, nil
}
func (s stubOrderRepo) TransitionStatus(context.Context, uuid.UUID, enums.OrderStatus, enums.OrderStatus) (bool, error) {
	return false, nil
}
func (s stubOrderRepo) WithTx(*gorm.DB) orders.Repository { return s }

type stubCatalog struct{ items []models.CatalogItem }

func (s stubCatalog) AddItem(context.Context, catalog.AddItemInput) (*models.CatalogItem, error) {
	return nil, fmt.Errorf("not implemented")
}
func (s stubCatalog) Item(context.Context, uuid.UUID) (*models.CatalogItem, error) {
	return nil, gorm.ErrRecordNotFound
}
func (s stubCatalog) Items(context.Context) ([]models.CatalogItem, error) {
	return s.items, nil
}

type stubDeliverer struct{}

func (stubDeliverer) Deliver(context.Context, uuid.UUID) (bool, error) { return false, nil }

func newTestRouter(t *testing.T, dbPing error) http.Handler {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.Operators.APIToken = testAPIToken
	cfg.Telegram.WebhookSecret = "hook-secret"

	return NewRouter(RouterParams{
		Config:     cfg,
		Logger:     logger.New(logger.Options{ServiceName: "router-test"}),
		Pingers:    map[string]controllers.Pinger{"db": stubPinger{err: dbPing}},
		ChatRouter: nil,
		Catalog:    stubCatalog{items: []models.CatalogItem{{ID: uuid.New(), Name: "Rose", Price: 300}}},
		OrdersRepo: stubOrderRepo{orders: []models.Order{{ID: uuid.New(), OrderNumber: 1, Status: enums.OrderStatusPending}}},
		Orders:     nil,
		Deliverer:  stubDeliverer{},
	})
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := resp.Header().Get("X-GiftDrop-Env"); got != "test" {
		t.Fatalf("expected env header test, got %q", got)
	}
}

func TestHealthReadyDegradedWhenDependencyDown(t *testing.T) {
	router := newTestRouter(t, fmt.Errorf("db unreachable"))

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestOperatorRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/orders", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+testAPIToken)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var body struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode order list: %v", err)
	}
	if len(body.Data) != 1 {
		t.Fatalf("expected one order in listing, got %d", len(body.Data))
	}
}

func TestListItemsWithToken(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/items", nil)
	req.Header.Set("Authorization", "Bearer "+testAPIToken)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestChatWebhookHidesBehindToken(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/chat/wrong-token", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
