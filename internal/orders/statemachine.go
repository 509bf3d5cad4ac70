package orders

import "github.com/angelmondragon/giftdrop-backend/pkg/enums"

// allowedTransitions is the authoritative transition graph. Terminal
// statuses have no outgoing edges; an order never resurrects.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending: {
		enums.OrderStatusPaymentCreated,
		enums.OrderStatusDeclined,
		enums.OrderStatusError,
	},
	enums.OrderStatusPaymentCreated: {
		enums.OrderStatusPaidUnconfirmed,
		enums.OrderStatusConfirmed, // auto-confirm policy shortcut
		enums.OrderStatusDeclined,
		enums.OrderStatusError,
	},
	enums.OrderStatusPaidUnconfirmed: {
		enums.OrderStatusConfirmed,
		enums.OrderStatusDeclined,
		enums.OrderStatusError,
	},
	enums.OrderStatusConfirmed: {
		enums.OrderStatusDelivered,
		enums.OrderStatusError,
	},
}

// CanTransition reports whether the transition graph permits from -> to.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
