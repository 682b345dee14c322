// Package lexer turns quad source text into a stream of tokens.
//
// The lexer makes a single left-to-right pass with at most one byte of
// lookahead. Whitespace and `;` line comments separate tokens and are
// otherwise discarded. Any character that cannot begin a token is reported as
// an error rather than skipped.
package lexer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/quadlang/quad/errors"
	"github.com/quadlang/quad/internal/token"
)

// wordPunct lists the non-alphanumeric characters allowed in words. This is
// what lets operator-like names such as `+`, `!=` and `&?&` lex as words.
const wordPunct = "(){}[]<>|\\/!@#$%^&*-=+_?.,"

// Error is a lexical error with the range of the offending input.
type Error struct {
	Code          errors.ErrorCode
	Message       string
	StartPosition token.Position
	EndPosition   token.Position
}

func (e *Error) Error() string {
	return e.Message
}

// Lexer holds our object-state.
type Lexer struct {
	// The current character position
	position int

	// The next character position
	readPosition int

	// The current character
	ch byte

	// The input string
	input string

	// Current line number (0-indexed)
	line int

	// Byte offset of the start of the current line
	lineStart int

	// The name of the file being lexed
	file string
}

// New creates a Lexer instance from the given string.
func New(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// SetFilename sets the filename attached to every token position.
func (l *Lexer) SetFilename(file string) {
	l.file = file
}

// Filename returns the name of the file being lexed.
func (l *Lexer) Filename() string {
	return l.file
}

// Tokenize lexes the whole input and returns every token except the final EOF.
func Tokenize(input, filename string) ([]token.Token, error) {
	l := New(input)
	l.SetFilename(filename)
	var tokens []token.Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		if tok.Type == token.EOF {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}

// Next returns the next token from the input.
func (l *Lexer) Next() (token.Token, error) {
	l.skipWhitespaceAndComments()
	start := l.pos()
	switch {
	case l.ch == 0 && l.position >= len(l.input):
		return token.Token{Type: token.EOF, StartPosition: start, EndPosition: start}, nil
	case isDigit(l.ch):
		return l.readNumber(start), nil
	case l.ch == '\'':
		return l.readCharLit(start)
	case l.ch == '"':
		return l.readString(start)
	case l.ch == '-' && l.peekChar() == '>':
		return l.readFixed(start, token.FIELD_ACCESS, 2), nil
	case l.ch == '&' && l.peekChar() == '>':
		return l.readFixed(start, token.PTR, 2), nil
	case l.ch == ':':
		return l.readFixed(start, token.SIGSEP, 1), nil
	case isWordStart(l.ch):
		return l.readWord(start), nil
	}
	bad, size := l.currentRune()
	l.advance(size)
	return token.Token{}, &Error{
		Code:          errors.E1011,
		Message:       fmt.Sprintf("invalid character %q", bad),
		StartPosition: start,
		EndPosition:   l.pos(),
	}
}

// GetLineText returns the full source line containing the token.
func (l *Lexer) GetLineText(tok token.Token) string {
	start := tok.StartPosition.LineStart
	if start < 0 || start > len(l.input) {
		return ""
	}
	end := strings.IndexByte(l.input[start:], '\n')
	if end < 0 {
		return strings.TrimRight(l.input[start:], "\r")
	}
	return strings.TrimRight(l.input[start:start+end], "\r")
}

func (l *Lexer) pos() token.Position {
	return token.Position{
		Char:      l.position,
		LineStart: l.lineStart,
		Line:      l.line,
		Column:    l.position - l.lineStart,
		File:      l.file,
	}
}

// readChar reads forward one byte.
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
}

func (l *Lexer) advance(n int) {
	for i := 0; i < n; i++ {
		if l.ch == '\n' {
			l.line++
			l.lineStart = l.readPosition
		}
		l.readChar()
	}
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) currentRune() (rune, int) {
	if l.position >= len(l.input) {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(l.input[l.position:])
}

func (l *Lexer) skipWhitespaceAndComments() {
	for l.position < len(l.input) {
		switch {
		case isWhitespace(l.ch):
			l.advance(1)
		case l.ch == ';':
			for l.position < len(l.input) && l.ch != '\n' {
				l.advance(1)
			}
		default:
			return
		}
	}
}

func (l *Lexer) readFixed(start token.Position, typ token.Type, n int) token.Token {
	lit := l.input[l.position : l.position+n]
	l.advance(n)
	return token.Token{Type: typ, Literal: lit, StartPosition: start, EndPosition: l.pos()}
}

func (l *Lexer) readNumber(start token.Position) token.Token {
	from := l.position
	for isDigit(l.ch) && l.position < len(l.input) {
		l.advance(1)
	}
	return token.Token{
		Type:          token.NUM,
		Literal:       l.input[from:l.position],
		StartPosition: start,
		EndPosition:   l.pos(),
	}
}

func (l *Lexer) readWord(start token.Position) token.Token {
	from := l.position
	l.advance(1)
	for l.position < len(l.input) && isWordChar(l.ch) {
		l.advance(1)
	}
	word := l.input[from:l.position]
	return token.Token{
		Type:          token.LookupWord(word),
		Literal:       word,
		StartPosition: start,
		EndPosition:   l.pos(),
	}
}

// readEscape decodes the byte following a backslash.
func (l *Lexer) readEscape() (byte, error) {
	escStart := l.pos()
	l.advance(1) // backslash
	if l.position >= len(l.input) {
		return 0, &Error{
			Code:          errors.E1002,
			Message:       "unterminated escape sequence",
			StartPosition: escStart,
			EndPosition:   l.pos(),
		}
	}
	var out byte
	switch l.ch {
	case 'n':
		out = '\n'
	case 'r':
		out = '\r'
	case 't':
		out = '\t'
	case '\\':
		out = '\\'
	default:
		bad, size := l.currentRune()
		l.advance(size)
		return 0, &Error{
			Code:          errors.E1010,
			Message:       fmt.Sprintf("invalid escape sequence \\%c", bad),
			StartPosition: escStart,
			EndPosition:   l.pos(),
		}
	}
	l.advance(1)
	return out, nil
}

func (l *Lexer) readString(start token.Position) (token.Token, error) {
	l.advance(1) // opening quote
	var sb strings.Builder
	for {
		if l.position >= len(l.input) {
			return token.Token{}, &Error{
				Code:          errors.E1002,
				Message:       "unterminated string literal",
				StartPosition: start,
				EndPosition:   l.pos(),
			}
		}
		switch l.ch {
		case '"':
			l.advance(1)
			return token.Token{
				Type:          token.STRING,
				Literal:       sb.String(),
				StartPosition: start,
				EndPosition:   l.pos(),
			}, nil
		case '\\':
			b, err := l.readEscape()
			if err != nil {
				return token.Token{}, err
			}
			sb.WriteByte(b)
		default:
			sb.WriteByte(l.ch)
			l.advance(1)
		}
	}
}

// readCharLit reads a character literal such as 'a' or '\n'.
func (l *Lexer) readCharLit(start token.Position) (token.Token, error) {
	l.advance(1) // opening quote
	if l.position >= len(l.input) {
		return token.Token{}, l.unterminatedChar(start)
	}
	var lit string
	if l.ch == '\\' {
		b, err := l.readEscape()
		if err != nil {
			return token.Token{}, err
		}
		lit = string([]byte{b})
	} else {
		// Raw bytes, so a byte that is not valid UTF-8 keeps its value.
		_, size := l.currentRune()
		lit = l.input[l.position : l.position+size]
		l.advance(size)
	}
	if l.ch != '\'' || l.position >= len(l.input) {
		return token.Token{}, l.unterminatedChar(start)
	}
	l.advance(1)
	return token.Token{
		Type:          token.CHAR,
		Literal:       lit,
		StartPosition: start,
		EndPosition:   l.pos(),
	}, nil
}

func (l *Lexer) unterminatedChar(start token.Position) error {
	return &Error{
		Code:          errors.E1012,
		Message:       "unterminated character literal",
		StartPosition: start,
		EndPosition:   l.pos(),
	}
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isLetter(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

func isWordStart(ch byte) bool {
	return isLetter(ch) || (ch != 0 && strings.IndexByte(wordPunct, ch) >= 0)
}

func isWordChar(ch byte) bool {
	return isWordStart(ch) || isDigit(ch)
}

func isWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == '\v'
}
