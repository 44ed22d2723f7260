package market

import (
	"errors"
	"fmt"
)

// TransientError wraps a recoverable gateway failure (network outage, rate
// limit). The current cycle is aborted and retried after a backoff.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient fetch error during %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps err as a recoverable fetch failure.
func NewTransientError(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// MalformedDataError reports an undecodable exchange payload for one symbol.
// The symbol is excluded for the cycle; the cycle itself continues.
type MalformedDataError struct {
	Symbol string
	Reason string
}

func (e *MalformedDataError) Error() string {
	return fmt.Sprintf("malformed market data for %s: %s", e.Symbol, e.Reason)
}

// IsMalformed reports whether err is (or wraps) a MalformedDataError.
func IsMalformed(err error) bool {
	var me *MalformedDataError
	return errors.As(err, &me)
}

// OrderRejectedError reports a declined order. The ledger must stay
// untouched and the order must not be retried within the same cycle.
type OrderRejectedError struct {
	Symbol string
	Side   OrderSide
	Reason string
}

func (e *OrderRejectedError) Error() string {
	return fmt.Sprintf("order rejected: %s %s: %s", e.Side, e.Symbol, e.Reason)
}
