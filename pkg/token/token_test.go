package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupIdent(t *testing.T) {
	tests := []struct {
		ident string
		want  TokenType
	}{
		{"select", SELECT},
		{"div", DIV},
		{"has", HAS},
		{"outer", OUTER},
		{"foo", IDENT},
		{"syn123", IDENT},
		{"current_user", IDENT},
	}

	for _, tt := range tests {
		t.Run(tt.ident, func(t *testing.T) {
			assert.Equal(t, tt.want, LookupIdent(tt.ident))
		})
	}
}

func TestTokenTypeString(t *testing.T) {
	assert.Equal(t, "SELECT", SELECT.String())
	assert.Equal(t, ">=", GE.String())
	assert.Equal(t, "TOKEN(9999)", TokenType(9999).String())
}

func TestClassification(t *testing.T) {
	assert.True(t, IsKeyword(WHERE))
	assert.False(t, IsKeyword(IDENT))
	assert.True(t, IsOperator(LPAREN))
	assert.True(t, IsComparison(NE))
	assert.False(t, IsComparison(PLUS))
}

func TestPositionString(t *testing.T) {
	assert.Equal(t, "line 2, column 7", Position{Line: 2, Column: 7, Offset: 12}.String())
	assert.Equal(t, "unknown position", Position{}.String())
	assert.False(t, Position{}.IsValid())
}
