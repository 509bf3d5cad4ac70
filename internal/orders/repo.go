package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftdrop-backend/pkg/db/models"
	"github.com/angelmondragon/giftdrop-backend/pkg/enums"
)

// Repository persists orders. Every status mutation goes through a
// conditional update keyed on the expected prior status; there is no
// unconditional write path.
type Repository interface {
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByReference(ctx context.Context, localReference string) (*models.Order, error)
	ListUnresolved(ctx context.Context, limit int) ([]models.Order, error)
	ListByBuyer(ctx context.Context, buyerChatID int64) ([]models.Order, error)
	ListRecent(ctx context.Context, limit int) ([]models.Order, error)
	SetProviderPaymentID(ctx context.Context, id uuid.UUID, providerPaymentID string) (bool, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) (bool, error)
	WithTx(tx *gorm.DB) Repository
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// NewLocalReference generates the idempotency token correlating an order
// with its provider-side payment. The nanosecond clock plus a random
// suffix keeps it collision-free under concurrent creation.
func NewLocalReference() string {
	return fmt.Sprintf("order-%d-%s", time.Now().UnixNano(), uuid.NewString()[:8])
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.LocalReference == "" {
		order.LocalReference = NewLocalReference()
	}
	if order.Status == "" {
		order.Status = enums.OrderStatusPending
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByReference(ctx context.Context, localReference string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("local_reference = ?", localReference).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListUnresolved returns the reconciliation working set: every order that
// still needs a poll, a manual decision, or delivery.
func (r *repository) ListUnresolved(ctx context.Context, limit int) ([]models.Order, error) {
	var orders []models.Order
	query := r.db.WithContext(ctx).
		Where("status IN ?", enums.UnresolvedOrderStatuses()).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerChatID int64) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("buyer_chat_id = ?", buyerChatID).
		Order("order_number DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ListRecent(ctx context.Context, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Order("order_number DESC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// SetProviderPaymentID records the provider-side payment id and advances a
// pending order to payment_created in the same conditional write. Returns
// false when the order already moved past pending.
func (r *repository) SetProviderPaymentID(ctx context.Context, id uuid.UUID, providerPaymentID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusPending).
		Updates(map[string]any{
			"provider_payment_id": providerPaymentID,
			"status":              enums.OrderStatusPaymentCreated,
			"updated_at":          time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// TransitionStatus applies a compare-and-set status change. A false return
// means the order was not in the expected status: another actor already
// handled it and the caller must skip its side effects.
func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) (bool, error) {
	now := time.Now().UTC()
	updates := map[string]any{
		"status":     to,
		"updated_at": now,
	}
	switch to {
	case enums.OrderStatusDelivered:
		updates["delivered_at"] = now
	case enums.OrderStatusDeclined:
		updates["declined_at"] = now
	}

	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
