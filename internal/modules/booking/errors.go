package booking

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("booking not found")
)

// ValidationError carries a message fit for the customer.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

var fieldLabels = map[string]string{
	"name":       "customer name",
	"email":      "customer email",
	"tourId":     "tour",
	"date":       "tour date",
	"adults":     "number of adults",
	"children":   "number of children",
	"totalPax":   "total passengers",
	"totalPrice": "total price",
}

func newValidationError(fields map[string]string) *ValidationError {
	names := make([]string, 0, len(fields))
	for f := range fields {
		names = append(names, f)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, f := range names {
		label := fieldLabels[f]
		if label == "" {
			label = f
		}
		if fields[f] == "required" {
			parts = append(parts, label+" is required")
		} else {
			parts = append(parts, label+" is invalid")
		}
	}
	return &ValidationError{Message: strings.Join(parts, "; ")}
}
