package gateway

import (
	"context"

	"github.com/angelmondragon/giftdrop-backend/pkg/enums"
)

// CreateResult is what a provider hands back for a newly created payment.
type CreateResult struct {
	ProviderPaymentID string
	RedirectURL       string
}

// Gateway abstracts the configured payment provider behind two operations.
// CreatePayment must be idempotent with respect to localReference; a
// PaymentStatus failure is transient and never means "declined".
type Gateway interface {
	CreatePayment(ctx context.Context, localReference string, amount int64, description string) (*CreateResult, error)
	PaymentStatus(ctx context.Context, providerPaymentID string) (enums.PaymentState, error)
}
