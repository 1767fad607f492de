package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Annany2002/nebula-workspace/internal/domain"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrValidation         = errors.New("validation failed")
	ErrUnsupportedOp      = errors.New("unsupported operator")
	ErrInvalidFilterValue = errors.New("invalid value provided for filter")
	ErrInvalidQuery       = errors.New("invalid query")
	ErrLastView           = errors.New("cannot delete the last view of a database")
)

// NotFoundError reports an unknown database, view, record or property reference.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NewNotFound builds a NotFoundError.
func NewNotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// FieldError is one field-level validation failure.
type FieldError struct {
	PropertyID   string `json:"propertyId"`
	PropertyName string `json:"propertyName"`
	Value        any    `json:"value,omitempty"`
	Message      string `json:"message"`
}

// ValidationError carries every field failure of a write so callers can render them together.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.PropertyName, fe.Message))
	}
	return fmt.Sprintf("%v: %s", ErrValidation, strings.Join(msgs, "; "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// UnsupportedOperatorError reports a filter operator the property's type does not allow.
type UnsupportedOperatorError struct {
	PropertyID string
	Type       domain.PropertyType
	Operator   string
}

func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("operator '%s' is not supported for property '%s' of type %s", e.Operator, e.PropertyID, e.Type)
}

func (e *UnsupportedOperatorError) Is(target error) bool { return target == ErrUnsupportedOp }

// CoercionError reports a raw value that cannot be read as the given type.
type CoercionError struct {
	Type   domain.PropertyType
	Value  any
	Reason string
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("cannot read %v as %s: %s", e.Value, e.Type, e.Reason)
}
