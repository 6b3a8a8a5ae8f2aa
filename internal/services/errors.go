// internal/services/errors.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/bierstube/storefront/internal/models"
	"github.com/bierstube/storefront/internal/repository"
)

var (
	ErrUnauthenticated   = errors.New("authentication required")
	ErrUnauthorized      = errors.New("insufficient privileges")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrValidationFailed  = errors.New("validation failed")
	ErrTransactionFailed = errors.New("transaction failed")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrInvalidTransition = errors.New("invalid status transition")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
)

// InsufficientStockError names the line that could not be filled.
type InsufficientStockError struct {
	ProductID   uuid.UUID
	ProductName string
	VariantID   string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	if e.VariantID != "" {
		return fmt.Sprintf("insufficient stock for %s (%s): %d available, %d requested",
			e.ProductName, e.VariantID, e.Available, e.Requested)
	}
	return fmt.Sprintf("insufficient stock for %s: %d available, %d requested",
		e.ProductName, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// TransitionError reports a rejected order status change.
type TransitionError struct {
	From models.OrderStatus
	To   models.OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("order cannot move from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidationFailed, fmt.Sprintf(format, args...))
}

func invalidErr(err error) error {
	return fmt.Errorf("%w: %v", ErrValidationFailed, err)
}

func notFound(what string, id interface{}) error {
	return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
}

// storeErr maps a repository error onto the service taxonomy. Errors that
// already belong to it pass through.
func storeErr(err error, what string, id interface{}) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return notFound(what, id)
	case isTaxonomy(err):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

func isTaxonomy(err error) bool {
	for _, kind := range []error{
		ErrUnauthenticated, ErrUnauthorized, ErrNotFound, ErrInsufficientStock,
		ErrValidationFailed, ErrTransactionFailed, ErrStoreUnavailable, ErrInvalidTransition,
		ErrInvalidCredentials, ErrEmailTaken,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// atomically runs fn in one store transaction. Domain failures raised by fn
// surface unchanged; anything else aborting the commit is a TransactionFailed.
func atomically(ctx context.Context, store repository.Store, fn func(tx repository.Store) error) error {
	err := store.Transaction(ctx, fn)
	switch {
	case err == nil:
		return nil
	case isTaxonomy(err):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}
}

func requireAuthenticated(caller models.Caller) error {
	if !caller.Authenticated() {
		return ErrUnauthenticated
	}
	return nil
}

func requireAdmin(caller models.Caller) error {
	if !caller.Authenticated() {
		return ErrUnauthenticated
	}
	if !caller.Privileged() {
		return ErrUnauthorized
	}
	return nil
}

// requireOwnerOrAdmin allows the owner of uid, an admin, or a system caller.
func requireOwnerOrAdmin(caller models.Caller, uid uuid.UUID) error {
	if !caller.Authenticated() {
		return ErrUnauthenticated
	}
	if !caller.ActsFor(uid) && !caller.Privileged() {
		return ErrUnauthorized
	}
	return nil
}

// requireSelf allows only the owner of uid or a system caller.
func requireSelf(caller models.Caller, uid uuid.UUID) error {
	if !caller.Authenticated() {
		return ErrUnauthenticated
	}
	if !caller.ActsFor(uid) {
		return ErrUnauthorized
	}
	return nil
}
