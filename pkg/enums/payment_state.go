package enums

// PaymentState is the normalized view of a provider-side payment. Provider
// vocabularies are mapped onto this set at the gateway boundary; the rest of
// the system never sees raw provider statuses.
type PaymentState string

const (
	PaymentStatePending   PaymentState = "pending"
	PaymentStateSucceeded PaymentState = "succeeded"
	PaymentStateDeclined  PaymentState = "declined"
)

// String implements fmt.Stringer.
func (p PaymentState) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentState.
func (p PaymentState) IsValid() bool {
	switch p {
	case PaymentStatePending, PaymentStateSucceeded, PaymentStateDeclined:
		return true
	default:
		return false
	}
}
