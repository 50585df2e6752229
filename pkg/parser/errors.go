package parser

import (
	"fmt"

	"github.com/leapstack-labs/sqltyper/pkg/token"
)

// ParseError represents a parsing error with position information.
type ParseError struct {
	Pos     token.Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Common error messages
const (
	ErrUnexpectedToken    = "unexpected token %s, expected %s"
	ErrUnterminatedString = "unterminated string literal"
	ErrUnterminatedIdent  = "unterminated quoted identifier"
	ErrInvalidNumber      = "invalid number literal"
	ErrInvalidParam       = "invalid parameter reference $%s"
	ErrExpectedExpr       = "expected expression, got %s"
	ErrExpectedStatement  = "expected statement, got %s"
	ErrFunctionBody       = "function body must be a dollar-quoted or string literal"
)
