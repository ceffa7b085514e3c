package domain

import (
	"errors"
	"fmt"
)

// ErrIllegalTransition is returned by an enforcing policy for a disallowed move.
var ErrIllegalTransition = errors.New("status transition is not allowed")

// TransitionPolicy decides whether a status or payment change may be applied.
type TransitionPolicy interface {
	Name() string
	// Enforces reports whether the policy needs the current value to decide.
	Enforces() bool
	CheckStatus(from, to Status) error
	CheckPayment(from, to PaymentStatus) error
}

// PermissiveTransitions accepts any valid value after any other.
type PermissiveTransitions struct{}

func (PermissiveTransitions) Name() string   { return "permissive" }
func (PermissiveTransitions) Enforces() bool { return false }

func (PermissiveTransitions) CheckStatus(_, to Status) error {
	if !to.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

func (PermissiveTransitions) CheckPayment(_, to PaymentStatus) error {
	if !to.Valid() {
		return ErrInvalidPaymentStatus
	}
	return nil
}

// StrictTransitions walks an explicit table. Re-applying the current value is allowed.
type StrictTransitions struct{}

var statusTable = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
}

var paymentTable = map[PaymentStatus][]PaymentStatus{
	PaymentPending: {PaymentPaid, PaymentFailed},
	PaymentFailed:  {PaymentPending, PaymentPaid},
}

func (StrictTransitions) Name() string   { return "strict" }
func (StrictTransitions) Enforces() bool { return true }

func (StrictTransitions) CheckStatus(from, to Status) error {
	if !to.Valid() {
		return ErrInvalidStatus
	}
	if from == to || contains(statusTable[from], to) {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}

func (StrictTransitions) CheckPayment(from, to PaymentStatus) error {
	if !to.Valid() {
		return ErrInvalidPaymentStatus
	}
	if from == to || contains(paymentTable[from], to) {
		return nil
	}
	return fmt.Errorf("%w: payment %s -> %s", ErrIllegalTransition, from, to)
}

// PolicyByName resolves "permissive" (or empty) and "strict".
func PolicyByName(name string) (TransitionPolicy, error) {
	switch name {
	case "", "permissive":
		return PermissiveTransitions{}, nil
	case "strict":
		return StrictTransitions{}, nil
	default:
		return nil, fmt.Errorf("unknown transition policy %q", name)
	}
}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
