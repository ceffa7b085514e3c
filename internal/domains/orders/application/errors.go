package application

import (
	"errors"
	"fmt"

	"github.com/Apurer/go-gin-orders-server/internal/domains/orders/domain"
)

var (
	// ErrPersistence signals the document store rejected a read, write or live query.
	ErrPersistence = errors.New("order persistence failed")
	// ErrValidation signals the request violated a field constraint or transition rule.
	ErrValidation = errors.New("invalid order input")
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrInvalidStatus) ||
		errors.Is(err, domain.ErrInvalidPaymentStatus) ||
		errors.Is(err, domain.ErrInvalidPaymentMethod) ||
		errors.Is(err, domain.ErrInvalidDeliveryMethod) ||
		errors.Is(err, domain.ErrMissingDeliveryAddress) ||
		errors.Is(err, domain.ErrMissingOwner) ||
		errors.Is(err, domain.ErrNoItems) ||
		errors.Is(err, domain.ErrInvalidQuantity) ||
		errors.Is(err, domain.ErrInvalidPrice) ||
		errors.Is(err, domain.ErrInvalidTotal) ||
		errors.Is(err, domain.ErrIllegalTransition) {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return err
}

func persistenceError(err error) error {
	if err == nil || errors.Is(err, ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}
