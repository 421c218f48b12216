package token

import "fmt"

// Position is a location in query text.
type Position struct {
	Line   int // 1-based
	Column int // 1-based, in bytes
	Offset int // 0-based byte offset
}

// IsValid reports whether the position was set by the lexer.
func (p Position) IsValid() bool {
	return p.Line > 0
}

// String formats the position as it appears in error messages.
func (p Position) String() string {
	if !p.IsValid() {
		return "unknown position"
	}
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}
