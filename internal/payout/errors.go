package payout

import (
	"errors"
	"fmt"

	"github.com/mmynk/showpayouts/internal/lock"
)

// Reason says why a payout could not be calculated. A UI renders a message
// per reason.
type Reason string

const (
	ReasonNoShow           Reason = "no_show"
	ReasonNoRules          Reason = "no_rules"
	ReasonNoFinancialData  Reason = "no_financial_data"
	ReasonNoPerformers     Reason = "no_performers"
	ReasonAlreadyApproved  Reason = "already_approved"
	ReasonInvalidRules     Reason = "invalid_rules"
	ReasonConcurrentUpdate Reason = "concurrent_update"
)

// CalculationError is an expected, recoverable calculation failure.
type CalculationError struct {
	Reason Reason
	Err    error
}

func (e *CalculationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("payout calculation failed: %s", e.Reason)
	}
	return fmt.Sprintf("payout calculation failed: %s: %v", e.Reason, e.Err)
}

func (e *CalculationError) Unwrap() error { return e.Err }

func fail(reason Reason, err error) error {
	return &CalculationError{Reason: reason, Err: err}
}

func failf(reason Reason, format string, args ...any) error {
	return &CalculationError{Reason: reason, Err: fmt.Errorf(format, args...)}
}

// lockError reports a lock that another caller holds as concurrent_update.
// Any other failure, such as an unreachable Redis, is returned as is.
func lockError(err error) error {
	if errors.Is(err, lock.ErrNotAcquired) {
		return fail(ReasonConcurrentUpdate, err)
	}
	return fmt.Errorf("failed to lock show payout: %w", err)
}

// ReasonOf returns the reason of a CalculationError in err's chain, or "".
func ReasonOf(err error) Reason {
	var cerr *CalculationError
	if errors.As(err, &cerr) {
		return cerr.Reason
	}
	return ""
}

var (
	// ErrNotApproved is returned when paying a line item of a payout that
	// is not approved.
	ErrNotApproved = errors.New("payout is not approved")

	// ErrReasonRequired is returned when unwinding a paid payout without a reason.
	ErrReasonRequired = errors.New("a reason is required")

	// ErrAdvanceClosed is returned when writing off an advance that is
	// already settled or written off.
	ErrAdvanceClosed = errors.New("advance is not outstanding")
)
