// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrInvalidCandidate     = errors.New("invalid candidate")
	ErrFeedUnavailable      = errors.New("market feed unavailable")
	ErrSubmissionRejected   = errors.New("order submission rejected")
	ErrTransportUnavailable = errors.New("order transport unavailable")
	ErrAssignmentRisk       = errors.New("partial fill requires manual review")
	ErrAlreadyTerminal      = errors.New("order already terminal")
	ErrMarketClosed         = errors.New("market is closed")
	ErrOrderNotFound        = errors.New("order not found")
	ErrSymbolNotFound       = errors.New("symbol not found")
	ErrConfigInvalid        = errors.New("invalid configuration")
	ErrDatabaseError        = errors.New("database error")
)

// BrokerError represents an error from the brokerage API.
type BrokerError struct {
	Code    string
	Message string
	Err     error
}

func (e *BrokerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("broker error [%s]: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("broker error [%s]: %s", e.Code, e.Message)
}

func (e *BrokerError) Unwrap() error {
	return e.Err
}

// NewBrokerError creates a new BrokerError.
func NewBrokerError(code, message string, err error) *BrokerError {
	return &BrokerError{Code: code, Message: message, Err: err}
}

// OrderError represents an error related to order operations.
type OrderError struct {
	OrderID string
	Symbol  string
	Action  string
	Reason  string
	Err     error
}

func (e *OrderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("order error [%s] %s %s: %s: %v", e.OrderID, e.Action, e.Symbol, e.Reason, e.Err)
	}
	return fmt.Sprintf("order error [%s] %s %s: %s", e.OrderID, e.Action, e.Symbol, e.Reason)
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

// NewOrderError creates a new OrderError.
func NewOrderError(orderID, symbol, action, reason string, err error) *OrderError {
	return &OrderError{OrderID: orderID, Symbol: symbol, Action: action, Reason: reason, Err: err}
}

// CandidateError marks a candidate that failed margin or scoring math.
// The candidate is dropped and the scan continues.
type CandidateError struct {
	Strategy string
	Field    string
	Value    float64
}

func (e *CandidateError) Error() string {
	return fmt.Sprintf("invalid %s candidate: %s = %v", e.Strategy, e.Field, e.Value)
}

func (e *CandidateError) Unwrap() error {
	return ErrInvalidCandidate
}

// NewCandidateError creates a new CandidateError.
func NewCandidateError(strategy, field string, value float64) *CandidateError {
	return &CandidateError{Strategy: strategy, Field: field, Value: value}
}

// Transient reports whether an error is a transient transport failure
// worth retrying with backoff.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSubmissionRejected) || errors.Is(err, ErrAlreadyTerminal) {
		return false
	}
	var be *BrokerError
	if errors.As(err, &be) {
		return be.Code == "TIMEOUT" || be.Code == "NETWORK" || be.Code == "RATE_LIMIT"
	}
	return false
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
