package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftdrop-backend/internal/catalog"
	"github.com/angelmondragon/giftdrop-backend/internal/gateway"
	"github.com/angelmondragon/giftdrop-backend/pkg/config"
	"github.com/angelmondragon/giftdrop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/giftdrop-backend/pkg/errors"
	"github.com/angelmondragon/giftdrop-backend/pkg/enums"
	"github.com/angelmondragon/giftdrop-backend/pkg/logger"
)

// Notifier delivers the chat side effects of state transitions. Sends are
// advisory: the conditional status update, not the message, is what
// prevents duplicate handling, so a failed send is logged and dropped.
type Notifier interface {
	PaymentReceived(ctx context.Context, order *models.Order)
	OrderDeclined(ctx context.Context, order *models.Order)
	OrderFailed(ctx context.Context, order *models.Order)
}

// Service owns order status transitions and their side effects.
type Service interface {
	Checkout(ctx context.Context, buyerChatID int64, itemID uuid.UUID) (*CheckoutResult, error)
	MarkPaidUnconfirmed(ctx context.Context, orderID uuid.UUID) (bool, error)
	AutoConfirm(ctx context.Context, orderID uuid.UUID) (bool, error)
	Confirm(ctx context.Context, orderID uuid.UUID, actorChatID int64) error
	Decline(ctx context.Context, orderID uuid.UUID, actorChatID int64) error
	ConfirmReviewed(ctx context.Context, orderID uuid.UUID) error
	DeclineReviewed(ctx context.Context, orderID uuid.UUID) error
	MarkProviderDeclined(ctx context.Context, orderID uuid.UUID) (bool, error)
	MarkError(ctx context.Context, orderID uuid.UUID) error
}

// CheckoutResult is handed back to the chat flow after a buy action.
type CheckoutResult struct {
	Order       *models.Order
	RedirectURL string
	// ManualPath is set when no provider (not even the simulator) is
	// wired: the buyer gets fallback payment instructions instead of a
	// redirect link.
	ManualPath bool
}

// ServiceParams configure the order service.
type ServiceParams struct {
	Logger    *logger.Logger
	Repo      Repository
	Catalog   catalog.Repository
	Gateway   gateway.Gateway // nil means manual-only deployment
	Notifier  Notifier
	Operators config.OperatorsConfig
}

type service struct {
	logg      *logger.Logger
	repo      Repository
	catalog   catalog.Repository
	gateway   gateway.Gateway
	notifier  Notifier
	operators config.OperatorsConfig
}

// NewService builds the order service.
func NewService(params ServiceParams) (Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	return &service{
		logg:      params.Logger,
		repo:      params.Repo,
		catalog:   params.Catalog,
		gateway:   params.Gateway,
		notifier:  params.Notifier,
		operators: params.Operators,
	}, nil
}

// Checkout opens a pending order for the item, copying its current price,
// and initiates a provider payment keyed on the order's local reference.
// Gateway failures leave the order pending; the reconciler retries payment
// creation on its next pass using the same reference.
func (s *service) Checkout(ctx context.Context, buyerChatID int64, itemID uuid.UUID) (*CheckoutResult, error) {
	if buyerChatID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer chat id required")
	}

	item, err := s.catalog.FindByID(ctx, itemID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog item")
	}

	order, err := s.repo.Create(ctx, &models.Order{
		BuyerChatID: buyerChatID,
		ItemID:      item.ID,
		Amount:      item.Price,
		Status:      enums.OrderStatusPending,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())

	if s.gateway == nil {
		s.logg.Info(logCtx, "no payment gateway wired; order stays on the manual path")
		return &CheckoutResult{Order: order, ManualPath: true}, nil
	}

	created, err := s.gateway.CreatePayment(logCtx, order.LocalReference, order.Amount, item.Name)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotConfigured) {
			s.logg.Info(logCtx, "payment provider not configured; order stays on the manual path")
			return &CheckoutResult{Order: order, ManualPath: true}, nil
		}
		// Transient: the order is pending and carries the idempotency
		// key, so a later retry cannot double-charge.
		s.logg.Error(logCtx, "payment creation failed; will retry on reconcile", err)
		return &CheckoutResult{Order: order, ManualPath: true}, nil
	}

	advanced, err := s.repo.SetProviderPaymentID(logCtx, order.ID, created.ProviderPaymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record provider payment id")
	}
	if advanced {
		order.Status = enums.OrderStatusPaymentCreated
		pid := created.ProviderPaymentID
		order.ProviderPaymentID = &pid
	}

	return &CheckoutResult{Order: order, RedirectURL: created.RedirectURL}, nil
}

// MarkPaidUnconfirmed records an automated succeeded signal. Only the
// compare-and-set winner notifies the buyer and operators.
func (s *service) MarkPaidUnconfirmed(ctx context.Context, orderID uuid.UUID) (bool, error) {
	won, err := s.transition(ctx, orderID, enums.OrderStatusPaymentCreated, enums.OrderStatusPaidUnconfirmed)
	if err != nil || !won {
		return won, err
	}
	if order, loadErr := s.repo.FindByID(ctx, orderID); loadErr == nil {
		s.notifier.PaymentReceived(ctx, order)
	} else {
		s.logg.Error(ctx, "loading order after paid transition", loadErr)
	}
	return true, nil
}

// AutoConfirm applies the opt-in policy shortcut: a trusted automated
// succeeded signal moves the order straight to confirmed.
func (s *service) AutoConfirm(ctx context.Context, orderID uuid.UUID) (bool, error) {
	return s.transition(ctx, orderID, enums.OrderStatusPaymentCreated, enums.OrderStatusConfirmed)
}

// Confirm applies an operator's approval of a reviewed payment.
func (s *service) Confirm(ctx context.Context, orderID uuid.UUID, actorChatID int64) error {
	if err := s.authorize(actorChatID); err != nil {
		return err
	}
	return s.ConfirmReviewed(ctx, orderID)
}

// ConfirmReviewed approves a reviewed payment. Callers are responsible
// for authenticating the actor first; the chat path goes through Confirm,
// the REST path through the operator token middleware.
func (s *service) ConfirmReviewed(ctx context.Context, orderID uuid.UUID) error {
	won, err := s.transition(ctx, orderID, enums.OrderStatusPaidUnconfirmed, enums.OrderStatusConfirmed)
	if err != nil {
		return err
	}
	if !won {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting confirmation")
	}
	return nil
}

// Decline applies an operator's rejection. The buyer is notified only by
// the winning actor.
func (s *service) Decline(ctx context.Context, orderID uuid.UUID, actorChatID int64) error {
	if err := s.authorize(actorChatID); err != nil {
		return err
	}
	return s.DeclineReviewed(ctx, orderID)
}

// DeclineReviewed rejects a reviewed payment on behalf of an already
// authenticated operator.
func (s *service) DeclineReviewed(ctx context.Context, orderID uuid.UUID) error {
	won, err := s.transition(ctx, orderID, enums.OrderStatusPaidUnconfirmed, enums.OrderStatusDeclined)
	if err != nil {
		return err
	}
	if !won {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting confirmation")
	}
	if order, loadErr := s.repo.FindByID(ctx, orderID); loadErr == nil {
		s.notifier.OrderDeclined(ctx, order)
	} else {
		s.logg.Error(ctx, "loading order after decline", loadErr)
	}
	return nil
}

// MarkProviderDeclined records a definitive declined signal from the
// provider for a payment that was never confirmed.
func (s *service) MarkProviderDeclined(ctx context.Context, orderID uuid.UUID) (bool, error) {
	won, err := s.transition(ctx, orderID, enums.OrderStatusPaymentCreated, enums.OrderStatusDeclined)
	if err != nil || !won {
		return won, err
	}
	if order, loadErr := s.repo.FindByID(ctx, orderID); loadErr == nil {
		s.notifier.OrderDeclined(ctx, order)
	} else {
		s.logg.Error(ctx, "loading order after provider decline", loadErr)
	}
	return true, nil
}

// MarkError moves an order into the terminal error status from whatever
// non-terminal status it is in, and tells the buyer.
func (s *service) MarkError(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status.IsTerminal() {
		return nil
	}
	won, err := s.repo.TransitionStatus(ctx, order.ID, order.Status, enums.OrderStatusError)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition order to error")
	}
	if won {
		order.Status = enums.OrderStatusError
		s.notifier.OrderFailed(ctx, order)
	}
	return nil
}

func (s *service) authorize(actorChatID int64) error {
	if !s.operators.IsOperator(actorChatID) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "operator identity required")
	}
	return nil
}

func (s *service) transition(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (bool, error) {
	if !CanTransition(from, to) {
		return false, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("transition %s -> %s disallowed", from, to))
	}
	won, err := s.repo.TransitionStatus(ctx, orderID, from, to)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition order status")
	}
	return won, nil
}
