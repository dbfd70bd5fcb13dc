package checkout

import "errors"

var (
	ErrRequestNotFound   = errors.New("payment request not found")
	ErrAlreadyObserved   = errors.New("payment request already completed")
	ErrInvalidSignal     = errors.New("completion signal needs request id and token")
	ErrNegativeTotal     = errors.New("checkout total cannot be negative")
	ErrConfirmationMatch = errors.New("payment confirmation does not match request")
	ErrDuplicateRequest  = errors.New("payment request with this idempotency key already exists")
	ErrRequestClosed     = errors.New("payment request with this idempotency key already finished")
)
