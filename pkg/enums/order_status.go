package enums

import "fmt"

// OrderStatus tracks the lifecycle of an order from checkout to fulfilment.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusPaymentCreated  OrderStatus = "payment_created"
	OrderStatusPaidUnconfirmed OrderStatus = "paid_unconfirmed"
	OrderStatusConfirmed       OrderStatus = "confirmed"
	OrderStatusDelivered       OrderStatus = "delivered"
	OrderStatusDeclined        OrderStatus = "declined"
	OrderStatusError           OrderStatus = "error"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaymentCreated,
	OrderStatusPaidUnconfirmed,
	OrderStatusConfirmed,
	OrderStatusDelivered,
	OrderStatusDeclined,
	OrderStatusError,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition can leave this status.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusDeclined, OrderStatusError:
		return true
	default:
		return false
	}
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// UnresolvedOrderStatuses is the working set of the reconciliation loop:
// everything that still needs polling, a manual decision, or delivery.
func UnresolvedOrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPending,
		OrderStatusPaymentCreated,
		OrderStatusPaidUnconfirmed,
		OrderStatusConfirmed,
	}
}
