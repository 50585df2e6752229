package schema

import (
	"errors"

	"github.com/leapstack-labs/sqltyper/pkg/token"
)

// Sentinel errors for schema construction. errors.Is matches an *Error
// against its Kind.
var (
	ErrUnknownIdentifier = errors.New("unknown identifier")
	ErrNotImplemented    = errors.New("not implemented yet")
	ErrDuplicateObject   = errors.New("duplicate object")
)

// Error is a schema construction failure at a source location.
type Error struct {
	Kind    error
	Message string
	Span    token.Span
}

func (e *Error) Error() string { return e.Message }

// Unwrap returns the error's kind.
func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, span token.Span, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Span: span}
}
