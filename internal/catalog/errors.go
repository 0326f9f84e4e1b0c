package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidProduct = errors.New("all product fields are required")
	ErrDuplicateCode  = errors.New("product code already exists")
	ErrNotFound       = errors.New("product not found")

	// ErrAmountRange is returned when decoding a numeric price or stock
	// that is too large or too precise to store.
	ErrAmountRange = errors.New("amount out of range")
)

// ValidationError lists the required fields that were missing or falsy.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return ErrInvalidProduct.Error() + ": missing " + strings.Join(e.Missing, ", ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidProduct }

// SaveError is returned when the collection could not be written back to
// its backing file. The in-memory state is left as it was before the call.
type SaveError struct {
	Path string
	Err  error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save products to %s: %v", e.Path, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }
