package gateway

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/giftdrop-backend/pkg/enums"
)

// ClockBasedSimulator stands in for a real provider when none is
// configured. It implements the same Gateway contract, so nothing else in
// the system special-cases demo mode: a created "payment" reports
// succeeded once it is older than the configured delay. The creation
// instant rides inside the local reference (its nanosecond segment), the
// same token a real provider would receive as the idempotency key.
type ClockBasedSimulator struct {
	delay time.Duration
	now   func() time.Time
}

// NewClockBasedSimulator builds the demo gateway. A nil now defaults to
// the wall clock; tests inject their own.
func NewClockBasedSimulator(delay time.Duration, now func() time.Time) *ClockBasedSimulator {
	if now == nil {
		now = time.Now
	}
	return &ClockBasedSimulator{delay: delay, now: now}
}

// CreatePayment accepts any reference and returns a placeholder payment
// page. Idempotent by construction: the reference is the payment id.
func (s *ClockBasedSimulator) CreatePayment(_ context.Context, localReference string, _ int64, _ string) (*CreateResult, error) {
	return &CreateResult{
		ProviderPaymentID: localReference,
		RedirectURL:       fmt.Sprintf("https://example.com/pay?invoice=%s", localReference),
	}, nil
}

// PaymentStatus reports succeeded once the payment's embedded creation
// instant is older than the simulated settlement delay.
func (s *ClockBasedSimulator) PaymentStatus(_ context.Context, providerPaymentID string) (enums.PaymentState, error) {
	createdAt, ok := referenceCreatedAt(providerPaymentID)
	if !ok {
		return enums.PaymentStatePending, nil
	}
	if s.now().Sub(createdAt) >= s.delay {
		return enums.PaymentStateSucceeded, nil
	}
	return enums.PaymentStatePending, nil
}

func referenceCreatedAt(reference string) (time.Time, bool) {
	parts := strings.Split(reference, "-")
	if len(parts) < 2 {
		return time.Time{}, false
	}
	nanos, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || nanos <= 0 {
		return time.Time{}, false
	}
	return time.Unix(0, nanos), true
}
