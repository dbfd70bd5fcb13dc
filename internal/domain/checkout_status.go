package domain

type CheckoutStatus string

const (
	CheckoutStatusPaymentPending CheckoutStatus = "PAYMENT_PENDING"
	CheckoutStatusCompleted      CheckoutStatus = "COMPLETED"
	CheckoutStatusFailed         CheckoutStatus = "FAILED"
)

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusCompleted || s == CheckoutStatusFailed
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether a payment request in status from may move to status to.
// A pending request ends exactly once.
func CanTransitionTo(from, to CheckoutStatus) bool {
	return from == CheckoutStatusPaymentPending && to.IsTerminal()
}
