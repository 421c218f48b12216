package parser

import (
	"fmt"
	"strings"
	"unicode"
)

// Lexer tokenizes query input.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)

	// Errors collected while lexing. The parser reports the first one.
	Errors []*LexError
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// currentPos returns the current position.
func (l *Lexer) currentPos() Position {
	return Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	pos := l.currentPos()

	var tok Token
	tok.Pos = pos

	switch l.ch {
	case 0:
		if l.pos < len(l.input) {
			// NUL inside the input
			l.addError(pos, fmt.Sprintf(ErrIllegalCharacter, l.ch))
			tok = l.newToken(TOKEN_ILLEGAL, string(l.ch))
			break
		}
		tok.Type = TOKEN_EOF
		tok.Literal = ""
		return tok
	case '+':
		tok = l.newToken(TOKEN_PLUS, "+")
	case '-':
		tok = l.newToken(TOKEN_MINUS, "-")
	case '*':
		tok = l.newToken(TOKEN_STAR, "*")
	case '/':
		tok = l.newToken(TOKEN_SLASH, "/")
	case '%':
		tok = l.newToken(TOKEN_PERCENT, "%")
	case '=':
		tok = l.newToken(TOKEN_EQ, "=")
	case '<':
		switch l.peekChar() {
		case '=':
			l.readChar()
			tok = Token{Type: TOKEN_LE, Literal: "<=", Pos: pos}
		case '>':
			l.readChar()
			tok = Token{Type: TOKEN_NE, Literal: "<>", Pos: pos}
		default:
			tok = l.newToken(TOKEN_LT, "<")
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TOKEN_GE, Literal: ">=", Pos: pos}
		} else {
			tok = l.newToken(TOKEN_GT, ">")
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TOKEN_NE, Literal: "!=", Pos: pos}
		} else {
			l.addError(pos, fmt.Sprintf(ErrIllegalCharacter, l.ch))
			tok = l.newToken(TOKEN_ILLEGAL, string(l.ch))
		}
	case '.':
		tok = l.newToken(TOKEN_DOT, ".")
	case ',':
		tok = l.newToken(TOKEN_COMMA, ",")
	case '(':
		tok = l.newToken(TOKEN_LPAREN, "(")
	case ')':
		tok = l.newToken(TOKEN_RPAREN, ")")
	case '\'':
		literal, ok := l.readDelimited('\'')
		if !ok {
			l.addError(pos, ErrUnterminatedString)
			return Token{Type: TOKEN_ILLEGAL, Literal: literal, Pos: pos}
		}
		return Token{Type: TOKEN_STRING, Literal: literal, Pos: pos}
	case '"', '`':
		literal, ok := l.readDelimited(l.ch)
		if !ok {
			l.addError(pos, ErrUnterminatedIdentifier)
			return Token{Type: TOKEN_ILLEGAL, Literal: literal, Pos: pos}
		}
		return Token{Type: TOKEN_QIDENT, Literal: literal, Pos: pos}
	default:
		switch {
		case isLetter(l.ch) || l.ch == '_':
			tok.Literal = l.readIdentifier()
			tok.Type = LookupIdent(strings.ToLower(tok.Literal))
			return tok
		case isDigit(l.ch):
			tok.Type = TOKEN_NUMBER
			tok.Literal = l.readNumber()
			return tok
		default:
			l.addError(pos, fmt.Sprintf(ErrIllegalCharacter, l.ch))
			tok = l.newToken(TOKEN_ILLEGAL, string(l.ch))
		}
	}

	l.readChar()
	return tok
}

func (l *Lexer) addError(pos Position, msg string) {
	l.Errors = append(l.Errors, &LexError{Pos: pos, Message: msg})
}

// newToken creates a new token.
func (l *Lexer) newToken(tokenType TokenType, literal string) Token {
	return Token{Type: tokenType, Literal: literal, Pos: l.currentPos()}
}

// skipWhitespaceAndComments skips whitespace, line comments and block comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}

		// -- line comment
		if l.ch == '-' && l.peekChar() == '-' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}

		// /* block comment */
		if l.ch == '/' && l.peekChar() == '*' {
			l.readChar() // skip '/'
			l.readChar() // skip '*'
			for l.ch != 0 {
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar() // skip '*'
					l.readChar() // skip '/'
					break
				}
				l.readChar()
			}
			continue
		}

		break
	}
}

// readDelimited reads a string or quoted identifier closed by quote.
// A doubled quote is an escaped quote: 'it''s' -> it's, "a""b" -> a"b.
// The second return value is false when input ends before the closing quote.
func (l *Lexer) readDelimited(quote byte) (string, bool) {
	l.readChar() // skip opening quote

	var result strings.Builder
	for l.ch != 0 || l.pos < len(l.input) {
		if l.ch == quote {
			if l.peekChar() == quote {
				result.WriteByte(quote)
				l.readChar() // skip first quote
				l.readChar() // skip second quote
				continue
			}
			l.readChar() // skip closing quote
			return result.String(), true
		}
		result.WriteByte(l.ch)
		l.readChar()
	}
	return result.String(), false
}

// readIdentifier reads an unquoted identifier.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
func (l *Lexer) readNumber() string {
	start := l.pos

	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // skip '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	// Exponent part (e.g., 1e10, 1E-5)
	if (l.ch == 'e' || l.ch == 'E') && (isDigit(l.peekChar()) || l.peekChar() == '+' || l.peekChar() == '-') {
		l.readChar() // skip 'e' or 'E'
		if l.ch == '+' || l.ch == '-' {
			l.readChar() // skip sign
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return l.input[start:l.pos]
}

// isLetter returns true if ch is a letter.
func isLetter(ch byte) bool {
	return unicode.IsLetter(rune(ch))
}

// isDigit returns true if ch is a digit.
func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// Tokenize returns all tokens from the input.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TOKEN_EOF {
			break
		}
	}
	return tokens
}
