package dictify

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupported is returned by Dictify for values that have no tree form.
var ErrUnsupported = errors.New("unsupported value")

// TypeMismatchError reports a tree value whose kind disagrees with the
// declared type.
type TypeMismatchError struct {
	Expected string
	Actual   string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("expected %s, got %s", e.Expected, e.Actual)
}

func mismatch(expected string, v Value) error {
	return &TypeMismatchError{Expected: expected, Actual: Kind(v)}
}

// ArityMismatchError reports a list whose length disagrees with a fixed-arity
// tuple.
type ArityMismatchError struct {
	Expected int
	Actual   int
}

func (e *ArityMismatchError) Error() string {
	return fmt.Sprintf("expected tuple of length %d, got tuple of length %d", e.Expected, e.Actual)
}

// UnknownVariantError reports a tagged union whose discriminator is missing
// or names no known variant.
type UnknownVariantError struct {
	Key     string
	Value   Value
	Missing bool
}

func (e *UnknownVariantError) Error() string {
	if e.Missing {
		return fmt.Sprintf("union missing '%s'", e.Key)
	}
	return fmt.Sprintf("unknown '%s' %v", e.Key, e.Value)
}

// AggregateError carries one error per union alternative, in declared order.
type AggregateError struct {
	Errs []error
}

func (e *AggregateError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("no alternative matched: [%s]", strings.Join(msgs, "; "))
}

func (e *AggregateError) Unwrap() []error {
	return e.Errs
}

// FieldError adds the location of a failure inside a map, list or struct.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("in '%s': %s", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func inField(field string, err error) error {
	return &FieldError{Field: field, Err: err}
}
