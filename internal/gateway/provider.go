package gateway

import (
	"context"
	"strings"

	"github.com/angelmondragon/giftdrop-backend/pkg/cloudpayments"
	"github.com/angelmondragon/giftdrop-backend/pkg/config"
	"github.com/angelmondragon/giftdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftdrop-backend/pkg/errors"
	"github.com/angelmondragon/giftdrop-backend/pkg/logger"
)

// statusByProviderVocab maps the provider's payment vocabulary onto the
// normalized set. Anything absent from this table stays pending: never
// assume success on uncertain input.
var statusByProviderVocab = map[string]enums.PaymentState{
	"completed":  enums.PaymentStateSucceeded,
	"authorized": enums.PaymentStateSucceeded,
	"declined":   enums.PaymentStateDeclined,
	"cancelled":  enums.PaymentStateDeclined,
}

type providerGateway struct {
	client   *cloudpayments.Client
	currency string
	logg     *logger.Logger
}

// NewProviderGateway builds the adapter over the configured provider.
// Missing credentials yield NOT_CONFIGURED so the caller can fall back to
// the demo/manual path instead of failing startup.
func NewProviderGateway(cfg config.PaymentsConfig, logg *logger.Logger) (Gateway, error) {
	if !cfg.Configured() {
		return nil, pkgerrors.New(pkgerrors.CodeNotConfigured, "payment provider credentials absent")
	}
	client, err := cloudpayments.NewClient(cfg.APIKey,
		cloudpayments.WithBaseURL(cfg.BaseURL),
		cloudpayments.WithTimeout(cfg.RequestTimeout),
	)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build provider client")
	}
	return &providerGateway{
		client:   client,
		currency: cfg.Currency,
		logg:     logg,
	}, nil
}

// CreatePayment registers an invoice keyed on localReference. The provider
// deduplicates on the invoice id, so repeated calls with the same reference
// return the same payment instead of charging twice.
func (g *providerGateway) CreatePayment(ctx context.Context, localReference string, amount int64, description string) (*CreateResult, error) {
	invoice, err := g.client.CreateOrder(ctx, cloudpayments.CreateOrderRequest{
		Amount:      amount,
		Currency:    g.currency,
		Description: description,
		InvoiceID:   localReference,
	})
	if err != nil {
		return nil, err
	}
	return &CreateResult{
		ProviderPaymentID: invoice.ID,
		RedirectURL:       invoice.URL,
	}, nil
}

func (g *providerGateway) PaymentStatus(ctx context.Context, providerPaymentID string) (enums.PaymentState, error) {
	payment, err := g.client.FindPayment(ctx, providerPaymentID)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			// The provider has not seen the payment yet; keep polling.
			return enums.PaymentStatePending, nil
		}
		return "", err
	}
	return NormalizeProviderStatus(ctx, payment.Status, g.logg), nil
}

// NormalizeProviderStatus collapses a raw provider status string into the
// closed normalized set.
func NormalizeProviderStatus(ctx context.Context, raw string, logg *logger.Logger) enums.PaymentState {
	state, ok := statusByProviderVocab[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		if logg != nil && strings.TrimSpace(raw) != "" {
			logg.Warn(logg.WithField(ctx, "provider_status", raw), "unrecognized provider status; treating as pending")
		}
		return enums.PaymentStatePending
	}
	return state
}
