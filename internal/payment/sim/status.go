package sim

import "math/rand"

// Refusal is why the simulated form declined a payment.
type Refusal string

const (
	RefusalNone              Refusal = ""
	RefusalInsufficientFunds Refusal = "insufficient_funds"
	RefusalCardExpired       Refusal = "card_expired"
	RefusalFraudSuspected    Refusal = "fraud_suspected"
	RefusalLimitExceeded     Refusal = "limit_exceeded"
	RefusalUnknown           Refusal = "unknown"
)

var knownRefusals = []Refusal{
	RefusalInsufficientFunds,
	RefusalCardExpired,
	RefusalFraudSuspected,
	RefusalLimitExceeded,
}

// StatusSource decides the outcome of a payment attempt.
type StatusSource interface {
	Outcome() (approved bool, refusal Refusal)
}

// RandomStatus approves 95% of payments.
type RandomStatus struct{}

func (RandomStatus) Outcome() (bool, Refusal) {
	return calcOutcome(rand.Intn(101)) // 101 because Intn is exclusive of the upper bound
}

func calcOutcome(roll int) (bool, Refusal) {
	if roll < 95 {
		return true, RefusalNone
	}
	other := roll - 95
	if other == 0 || other > len(knownRefusals) {
		return false, RefusalUnknown
	}
	return false, knownRefusals[other-1]
}

// FixedStatus always returns the same outcome.
type FixedStatus struct {
	Approved bool
	Refusal  Refusal
}

func (f FixedStatus) Outcome() (bool, Refusal) {
	return f.Approved, f.Refusal
}
