package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrMissingUser = errors.New("missing user id")
	ErrEmptyCart   = errors.New("cart is empty")
)

// ProductResolutionError reports a cart line whose product could not be
// looked up. Nothing was persisted and the cart is unchanged.
type ProductResolutionError struct {
	ProductID string
	Err       error
}

func (e *ProductResolutionError) Error() string {
	return fmt.Sprintf("resolve product %s: %v", e.ProductID, e.Err)
}

func (e *ProductResolutionError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a failed order write. The cart is unchanged.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return "persist order: " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
