package delivery

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftdrop-backend/internal/catalog"
	"github.com/angelmondragon/giftdrop-backend/internal/orders"
	"github.com/angelmondragon/giftdrop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/giftdrop-backend/pkg/errors"
	"github.com/angelmondragon/giftdrop-backend/pkg/enums"
	"github.com/angelmondragon/giftdrop-backend/pkg/logger"
)

// Sender pushes fulfilment messages to the buyer. Sends happen after the
// status flip, so a crashed send loses the message rather than repeating
// the gift.
type Sender interface {
	SendFulfilment(ctx context.Context, order *models.Order, item *models.CatalogItem)
	SendFailure(ctx context.Context, order *models.Order)
}

// Executor hands out exactly one gift per confirmed order. Any number of
// callers may race on the same order; the conditional update picks the
// single winner and everyone else walks away without side effects.
type Executor struct {
	logg    *logger.Logger
	repo    orders.Repository
	catalog catalog.Repository
	sender  Sender
}

// ExecutorParams configure the delivery executor.
type ExecutorParams struct {
	Logger  *logger.Logger
	Repo    orders.Repository
	Catalog catalog.Repository
	Sender  Sender
}

// NewExecutor builds a delivery executor.
func NewExecutor(params ExecutorParams) (*Executor, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Sender == nil {
		return nil, fmt.Errorf("sender required")
	}
	return &Executor{
		logg:    params.Logger,
		repo:    params.Repo,
		catalog: params.Catalog,
		sender:  params.Sender,
	}, nil
}

// Deliver fulfills a confirmed order at most once. The returned flag
// reports whether this call won the transition; a lost race or an order
// in any other status is a no-op, not an error.
func (e *Executor) Deliver(ctx context.Context, orderID uuid.UUID) (bool, error) {
	logCtx := e.logg.WithOrderID(ctx, orderID.String())

	order, err := e.repo.FindByID(logCtx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status != enums.OrderStatusConfirmed {
		return false, nil
	}

	item, err := e.catalog.FindByID(logCtx, order.ItemID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, e.failDelivery(logCtx, order)
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog item")
	}

	won, err := e.repo.TransitionStatus(logCtx, order.ID, enums.OrderStatusConfirmed, enums.OrderStatusDelivered)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition order to delivered")
	}
	if !won {
		return false, nil
	}

	order.Status = enums.OrderStatusDelivered
	e.sender.SendFulfilment(logCtx, order, item)
	e.logg.Info(logCtx, "order delivered")
	return true, nil
}

// failDelivery parks an undeliverable order in the error status. Only the
// winning transition tells the buyer.
func (e *Executor) failDelivery(ctx context.Context, order *models.Order) error {
	won, err := e.repo.TransitionStatus(ctx, order.ID, enums.OrderStatusConfirmed, enums.OrderStatusError)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition order to error")
	}
	if won {
		order.Status = enums.OrderStatusError
		e.sender.SendFailure(ctx, order)
		e.logg.Warn(ctx, "order item missing; delivery failed")
	}
	return nil
}
