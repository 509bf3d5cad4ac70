package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/giftdrop-backend/api/responses"
	"github.com/angelmondragon/giftdrop-backend/internal/orders"
	"github.com/angelmondragon/giftdrop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/giftdrop-backend/pkg/errors"
	"github.com/angelmondragon/giftdrop-backend/pkg/logger"
)

const recentOrdersLimit = 100

// Deliverer mirrors the delivery executor's entry point.
type Deliverer interface {
	Deliver(ctx context.Context, orderID uuid.UUID) (bool, error)
}

// OrderView is the REST shape of an order.
type OrderView struct {
	ID                string     `json:"id"`
	OrderNumber       int64      `json:"order_number"`
	BuyerChatID       int64      `json:"buyer_chat_id"`
	ItemID            string     `json:"item_id"`
	Amount            int64      `json:"amount"`
	LocalReference    string     `json:"local_reference"`
	ProviderPaymentID *string    `json:"provider_payment_id,omitempty"`
	Status            string     `json:"status"`
	DeliveredAt       *time.Time `json:"delivered_at,omitempty"`
	DeclinedAt        *time.Time `json:"declined_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func orderView(order *models.Order) OrderView {
	return OrderView{
		ID:                order.ID.String(),
		OrderNumber:       order.OrderNumber,
		BuyerChatID:       order.BuyerChatID,
		ItemID:            order.ItemID.String(),
		Amount:            order.Amount,
		LocalReference:    order.LocalReference,
		ProviderPaymentID: order.ProviderPaymentID,
		Status:            string(order.Status),
		DeliveredAt:       order.DeliveredAt,
		DeclinedAt:        order.DeclinedAt,
		CreatedAt:         order.CreatedAt,
	}
}

// ListOrders returns the most recent orders for operator review.
func ListOrders(repo orders.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := repo.ListRecent(r.Context(), recentOrdersLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders"))
			return
		}
		views := make([]OrderView, 0, len(list))
		for i := range list {
			views = append(views, orderView(&list[i]))
		}
		responses.WriteSuccess(w, views)
	}
}

// ConfirmOrder approves a reviewed payment via the REST surface.
func ConfirmOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.ConfirmReviewed(r.Context(), orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "confirmed"})
	}
}

// DeclineOrder rejects a reviewed payment via the REST surface.
func DeclineOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeclineReviewed(r.Context(), orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "declined"})
	}
}

// DeliverOrder forces a delivery attempt for a confirmed order without
// waiting for the next reconcile pass.
func DeliverOrder(exec Deliverer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		delivered, err := exec.Deliver(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := "unchanged"
		if delivered {
			status = "delivered"
		}
		responses.WriteSuccess(w, map[string]string{"status": status})
	}
}

func orderIDParam(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id must be a uuid")
	}
	return orderID, nil
}
