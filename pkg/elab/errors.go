package elab

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqltyper/pkg/schema"
	"github.com/leapstack-labs/sqltyper/pkg/token"
	"github.com/leapstack-labs/sqltyper/pkg/types"
)

// ErrorKind classifies elaboration failures.
type ErrorKind int

// Error kinds.
const (
	UnknownIdentifier ErrorKind = iota
	AmbiguousIdentifier
	UnknownField
	KindMismatch
	TypeMismatch
	NotImplemented
	UnusedArgument
	CompareWithNull
	UndeterminedParameter
	NestingTooDeep
)

var kindNames = [...]string{
	UnknownIdentifier:     "unknown identifier",
	AmbiguousIdentifier:   "ambiguous identifier",
	UnknownField:          "unknown field",
	KindMismatch:          "kind mismatch",
	TypeMismatch:          "type mismatch",
	NotImplemented:        "not implemented yet",
	UnusedArgument:        "unused argument",
	CompareWithNull:       "comparison with NULL",
	UndeterminedParameter: "undetermined parameter",
	NestingTooDeep:        "nesting too deep",
}

func (k ErrorKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Sentinel errors, one per kind. errors.Is(err, ErrTypeMismatch) matches any
// *Error of that kind. The identifier and not-implemented sentinels are
// shared with package schema.
var (
	ErrUnknownIdentifier     = schema.ErrUnknownIdentifier
	ErrAmbiguousIdentifier   = errors.New("ambiguous identifier")
	ErrUnknownField          = errors.New("unknown field")
	ErrKindMismatch          = errors.New("kind mismatch")
	ErrTypeMismatch          = errors.New("type mismatch")
	ErrNotImplemented        = schema.ErrNotImplemented
	ErrUnusedArgument        = errors.New("unused argument")
	ErrCompareWithNull       = errors.New("comparison with NULL")
	ErrUndeterminedParameter = errors.New("undetermined parameter")
	ErrNestingTooDeep        = errors.New("nesting too deep")
)

var sentinels = [...]error{
	UnknownIdentifier:     ErrUnknownIdentifier,
	AmbiguousIdentifier:   ErrAmbiguousIdentifier,
	UnknownField:          ErrUnknownField,
	KindMismatch:          ErrKindMismatch,
	TypeMismatch:          ErrTypeMismatch,
	NotImplemented:        ErrNotImplemented,
	UnusedArgument:        ErrUnusedArgument,
	CompareWithNull:       ErrCompareWithNull,
	UndeterminedParameter: ErrUndeterminedParameter,
	NestingTooDeep:        ErrNestingTooDeep,
}

// Error is an elaboration failure. It aborts the statement being
// elaborated.
type Error struct {
	Kind    ErrorKind
	Message string
	Span    token.Span
	// Operands holds the types involved in a TypeMismatch.
	Operands []types.Type
	// Candidates names the relations of an AmbiguousIdentifier.
	Candidates []string
}

func (e *Error) Error() string {
	if e.Span.IsValid() {
		return fmt.Sprintf("%d:%d: %s", e.Span.Start.Line, e.Span.Start.Column, e.Message)
	}
	return e.Message
}

// Is reports whether target is the sentinel of e's kind.
func (e *Error) Is(target error) bool {
	return int(e.Kind) < len(sentinels) && sentinels[e.Kind] == target
}

func errorf(kind ErrorKind, span token.Span, format string, args ...any) *Error {
	return &Error{Kind: kind, Span: span, Message: fmt.Sprintf(format, args...)}
}

func mismatch(span token.Span, a, b types.Type, format string, args ...any) *Error {
	e := errorf(TypeMismatch, span, format, args...)
	e.Operands = []types.Type{a, b}
	return e
}

// fromSchemaError converts a schema failure to an *Error of the same kind.
func fromSchemaError(err error) error {
	var serr *schema.Error
	if !errors.As(err, &serr) {
		return err
	}
	kind := NotImplemented
	if errors.Is(serr, schema.ErrUnknownIdentifier) {
		kind = UnknownIdentifier
	}
	return &Error{Kind: kind, Message: serr.Message, Span: serr.Span}
}

// Excerpt renders the source line containing span with a caret run under
// the spanned text. It returns "" when span lies outside src.
func Excerpt(src string, span token.Span) string {
	start := span.Start.Offset
	if start < 0 || start > len(src) {
		return ""
	}
	lineStart := strings.LastIndexByte(src[:start], '\n') + 1
	lineEnd := strings.IndexByte(src[start:], '\n')
	if lineEnd < 0 {
		lineEnd = len(src)
	} else {
		lineEnd += start
	}
	line := strings.TrimRight(src[lineStart:lineEnd], "\r")

	end := span.End.Offset
	if end > lineStart+len(line) {
		end = lineStart + len(line)
	}
	width := max(end-start, 1)

	var pad strings.Builder
	for _, c := range src[lineStart:start] {
		if c == '\t' {
			pad.WriteByte('\t')
		} else {
			pad.WriteByte(' ')
		}
	}
	return line + "\n" + pad.String() + strings.Repeat("^", width)
}
