package config

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenType represents the type of a lexer token.
type TokenType int

const (
	TokenLBrace    TokenType = iota // {
	TokenRBrace                     // }
	TokenSemicolon                  // ;
	TokenWord                       // unquoted word
	TokenString                     // "quoted string"
	TokenEOF
	TokenError
)

func (t TokenType) String() string {
	switch t {
	case TokenLBrace:
		return "'{'"
	case TokenRBrace:
		return "'}'"
	case TokenSemicolon:
		return "';'"
	case TokenWord:
		return "word"
	case TokenString:
		return "string"
	case TokenEOF:
		return "EOF"
	case TokenError:
		return "error"
	default:
		return "unknown"
	}
}

// Token is a single lexer token.
type Token struct {
	Type   TokenType
	Value  string
	Line   int
	Column int
}

func (t Token) String() string {
	if t.Type == TokenWord || t.Type == TokenString {
		return fmt.Sprintf("%s(%q)", t.Type, t.Value)
	}
	return t.Type.String()
}

// Lexer tokenizes hierarchical configuration text as produced by Format.
type Lexer struct {
	input  string
	pos    int
	line   int
	column int
}

// NewLexer creates a new Lexer for the given input string.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, line: 1, column: 1}
}

// Next returns the next token, advancing the position.
func (l *Lexer) Next() Token {
	l.skipSpaceAndComments()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Line: l.line, Column: l.column}
	}

	line, col := l.line, l.column
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	switch r {
	case '{':
		l.advance()
		return Token{Type: TokenLBrace, Value: "{", Line: line, Column: col}
	case '}':
		l.advance()
		return Token{Type: TokenRBrace, Value: "}", Line: line, Column: col}
	case ';':
		l.advance()
		return Token{Type: TokenSemicolon, Value: ";", Line: line, Column: col}
	case '"':
		return l.readString(line, col)
	}
	if isWordRune(r) {
		return l.readWord(line, col)
	}
	l.advance()
	return Token{Type: TokenError, Value: fmt.Sprintf("unexpected character %q", r), Line: line, Column: col}
}

// Peek returns the next token without advancing.
func (l *Lexer) Peek() Token {
	pos, line, col := l.pos, l.line, l.column
	tok := l.Next()
	l.pos, l.line, l.column = pos, line, col
	return tok
}

func (l *Lexer) advance() {
	if l.pos >= len(l.input) {
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	if r == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos += size
}

func (l *Lexer) skipSpaceAndComments() {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			l.advance()
		case ch == '#' || ch == '!':
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.advance()
			}
		case strings.HasPrefix(l.input[l.pos:], "/*"):
			end := strings.Index(l.input[l.pos+2:], "*/")
			stop := len(l.input)
			if end >= 0 {
				stop = l.pos + 2 + end + 2
			}
			for l.pos < stop {
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *Lexer) readString(line, col int) Token {
	l.advance() // opening quote
	var b strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '\\' && l.pos+1 < len(l.input) {
			l.advance()
			switch esc := l.input[l.pos]; esc {
			case 'n':
				b.WriteByte('\n')
			case '"', '\\':
				b.WriteByte(esc)
			default:
				b.WriteByte('\\')
				b.WriteByte(esc)
			}
			l.advance()
			continue
		}
		if ch == '"' {
			l.advance()
			return Token{Type: TokenString, Value: b.String(), Line: line, Column: col}
		}
		r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
		b.WriteRune(r)
		l.advance()
	}
	return Token{Type: TokenError, Value: "unterminated string", Line: line, Column: col}
}

func (l *Lexer) readWord(line, col int) Token {
	start := l.pos
	for l.pos < len(l.input) {
		r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
		if !isWordRune(r) {
			break
		}
		l.advance()
	}
	return Token{Type: TokenWord, Value: l.input[start:l.pos], Line: line, Column: col}
}

// isWordRune reports whether r may appear in an unquoted word. Anything
// else (space, braces, semicolon, quotes, comment markers) needs quoting.
func isWordRune(r rune) bool {
	switch r {
	case '{', '}', ';', '"', '\\', '#', '!', '|':
		return false
	}
	return unicode.IsPrint(r) && !unicode.IsSpace(r)
}
