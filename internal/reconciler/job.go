package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/giftdrop-backend/internal/gateway"
	"github.com/angelmondragon/giftdrop-backend/internal/orders"
	"github.com/angelmondragon/giftdrop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/giftdrop-backend/pkg/errors"
	"github.com/angelmondragon/giftdrop-backend/pkg/enums"
	"github.com/angelmondragon/giftdrop-backend/pkg/logger"
	"github.com/angelmondragon/giftdrop-backend/pkg/metrics"
)

const (
	defaultBatchLimit   = 250
	defaultOrderTimeout = 10 * time.Second
)

// deliverer hands out gifts for confirmed orders.
type deliverer interface {
	Deliver(ctx context.Context, orderID uuid.UUID) (bool, error)
}

// OrdersPassJobParams configure the order reconciliation job.
type OrdersPassJobParams struct {
	Logger       *logger.Logger
	Repo         orders.Repository
	Orders       orders.Service
	Gateway      gateway.Gateway // nil on manual-only deployments
	Deliverer    deliverer
	Metrics      *metrics.ReconcilerMetrics
	BatchLimit   int
	OrderTimeout time.Duration
	AutoConfirm  bool
}

// NewOrdersPassJob builds the job that walks every unresolved order and
// nudges it toward a terminal status.
func NewOrdersPassJob(params OrdersPassJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.Deliverer == nil {
		return nil, fmt.Errorf("deliverer required")
	}
	limit := params.BatchLimit
	if limit <= 0 {
		limit = defaultBatchLimit
	}
	timeout := params.OrderTimeout
	if timeout <= 0 {
		timeout = defaultOrderTimeout
	}
	return &ordersPassJob{
		logg:         params.Logger,
		repo:         params.Repo,
		orders:       params.Orders,
		gateway:      params.Gateway,
		deliverer:    params.Deliverer,
		metrics:      params.Metrics,
		limit:        limit,
		orderTimeout: timeout,
		autoConfirm:  params.AutoConfirm,
	}, nil
}

type ordersPassJob struct {
	logg         *logger.Logger
	repo         orders.Repository
	orders       orders.Service
	gateway      gateway.Gateway
	deliverer    deliverer
	metrics      *metrics.ReconcilerMetrics
	limit        int
	orderTimeout time.Duration
	autoConfirm  bool
}

func (j *ordersPassJob) Name() string { return "orders-pass" }

// Run processes each unresolved order independently. One misbehaving
// order never blocks the rest of the batch; its error is collected and
// the pass keeps going.
func (j *ordersPassJob) Run(ctx context.Context) error {
	snapshot, err := j.repo.ListUnresolved(ctx, j.limit)
	if err != nil {
		return fmt.Errorf("list unresolved orders: %w", err)
	}
	var errs error
	scanned := len(snapshot)
	advanced := 0
	for i := range snapshot {
		moved, err := j.reconcileOrder(ctx, &snapshot[i])
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", snapshot[i].ID, err))
			j.incOrderError()
			continue
		}
		if moved {
			advanced++
		}
	}
	reportCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": scanned,
		"advanced":   advanced,
	})
	j.logg.Info(reportCtx, "order reconcile pass complete")
	return errs
}

func (j *ordersPassJob) reconcileOrder(ctx context.Context, order *models.Order) (bool, error) {
	orderCtx, cancel := context.WithTimeout(ctx, j.orderTimeout)
	defer cancel()
	logCtx := j.logg.WithOrderID(orderCtx, order.ID.String())

	switch order.Status {
	case enums.OrderStatusPending:
		return j.retryPaymentCreation(logCtx, order)
	case enums.OrderStatusPaymentCreated:
		return j.pollPayment(logCtx, order)
	case enums.OrderStatusPaidUnconfirmed:
		// Parked until an operator confirms or declines.
		return false, nil
	case enums.OrderStatusConfirmed:
		won, err := j.deliverer.Deliver(logCtx, order.ID)
		if err != nil {
			return false, err
		}
		if won {
			j.incDelivery()
			j.incTransition(enums.OrderStatusDelivered)
		}
		return won, nil
	default:
		return false, nil
	}
}

// retryPaymentCreation re-attempts the provider call for orders that never
// got a payment id. The local reference makes the retry idempotent on the
// provider side.
func (j *ordersPassJob) retryPaymentCreation(ctx context.Context, order *models.Order) (bool, error) {
	if j.gateway == nil {
		return false, nil
	}
	created, err := j.gateway.CreatePayment(ctx, order.LocalReference, order.Amount, fmt.Sprintf("order #%d", order.OrderNumber))
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotConfigured) {
			return false, nil
		}
		return false, err
	}
	won, err := j.repo.SetProviderPaymentID(ctx, order.ID, created.ProviderPaymentID)
	if err != nil {
		return false, err
	}
	if won {
		j.incTransition(enums.OrderStatusPaymentCreated)
		j.logg.Info(ctx, "payment creation recovered on reconcile")
	}
	return won, nil
}

func (j *ordersPassJob) pollPayment(ctx context.Context, order *models.Order) (bool, error) {
	if j.gateway == nil || order.ProviderPaymentID == nil {
		return false, nil
	}
	state, err := j.gateway.PaymentStatus(ctx, *order.ProviderPaymentID)
	if err != nil {
		return false, err
	}
	switch state {
	case enums.PaymentStateSucceeded:
		if j.autoConfirm {
			won, err := j.orders.AutoConfirm(ctx, order.ID)
			if won {
				j.incTransition(enums.OrderStatusConfirmed)
			}
			return won, err
		}
		won, err := j.orders.MarkPaidUnconfirmed(ctx, order.ID)
		if won {
			j.incTransition(enums.OrderStatusPaidUnconfirmed)
		}
		return won, err
	case enums.PaymentStateDeclined:
		won, err := j.orders.MarkProviderDeclined(ctx, order.ID)
		if won {
			j.incTransition(enums.OrderStatusDeclined)
		}
		return won, err
	default:
		// Still pending on the provider side; check again next pass.
		return false, nil
	}
}

func (j *ordersPassJob) incTransition(to enums.OrderStatus) {
	if j.metrics == nil {
		return
	}
	j.metrics.IncTransition(string(to))
}

func (j *ordersPassJob) incDelivery() {
	if j.metrics == nil {
		return
	}
	j.metrics.IncDelivery()
}

func (j *ordersPassJob) incOrderError() {
	if j.metrics == nil {
		return
	}
	j.metrics.IncOrderError()
}
