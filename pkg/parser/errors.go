package parser

import "fmt"

// ParseError represents a parsing error with position information.
type ParseError struct {
	Pos     Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s: %s", e.Pos, e.Message)
}

// LexError represents a lexical analysis error.
type LexError struct {
	Pos     Position
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lexer error at %s: %s", e.Pos, e.Message)
}

// Common error messages
const (
	ErrUnexpectedToken        = "unexpected token %s, expected %s"
	ErrUnterminatedString     = "unterminated string literal"
	ErrUnterminatedIdentifier = "unterminated quoted identifier"
	ErrIllegalCharacter       = "illegal character %q"
	ErrInvalidTableName       = "invalid table name %q"
	ErrTrailingInput          = "unexpected %s after end of query"
)
