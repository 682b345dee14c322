// Package token defines language keywords and tokens used when lexing source code.
package token

import "fmt"

// Type describes the type of a token as a string.
type Type string

// Position points to a particular location in an input string.
type Position struct {
	Char      int    // byte offset within the file
	LineStart int    // byte offset of the start of the current line
	Line      int    // 0-indexed line number
	Column    int    // 0-indexed column number
	File      string // filename
}

// LineNumber returns the 1-indexed line number for this position in the input.
func (p Position) LineNumber() int {
	return p.Line + 1
}

// ColumnNumber returns the 1-indexed column number for this position in the input.
func (p Position) ColumnNumber() int {
	return p.Column + 1
}

// Advance returns a new Position advanced by n bytes.
// Note: This assumes the advance does not cross line boundaries.
func (p Position) Advance(n int) Position {
	return Position{
		Char:      p.Char + n,
		LineStart: p.LineStart,
		Line:      p.Line,
		Column:    p.Column + n,
		File:      p.File,
	}
}

func (p Position) String() string {
	if p.File != "" {
		return fmt.Sprintf("%s:%d:%d", p.File, p.LineNumber(), p.ColumnNumber())
	}
	return fmt.Sprintf("%d:%d", p.LineNumber(), p.ColumnNumber())
}

// IsValid returns true if this position has been set.
func (p Position) IsValid() bool {
	return p.File != "" || p.Line > 0 || p.Column > 0 || p.Char > 0
}

// NoPos is the zero value Position, representing an invalid/unset position.
var NoPos = Position{}

// Range is a half-open span of bytes [Start, End) within a named source.
// Ranges are only used for diagnostics.
type Range struct {
	File  string
	Start int
	End   int
}

// Union returns the smallest range covering both r and other.
func (r Range) Union(other Range) Range {
	out := r
	if other.Start < out.Start {
		out.Start = other.Start
	}
	if other.End > out.End {
		out.End = other.End
	}
	return out
}

// Len returns the number of bytes spanned by the range.
func (r Range) Len() int {
	return r.End - r.Start
}

func (r Range) String() string {
	return fmt.Sprintf("%s[%d:%d]", r.File, r.Start, r.End)
}

// Token represents one token lexed from the input source code.
type Token struct {
	Type          Type
	Literal       string
	StartPosition Position
	EndPosition   Position
}

// Range returns the byte range spanned by the token in its source.
func (t Token) Range() Range {
	return Range{
		File:  t.StartPosition.File,
		Start: t.StartPosition.Char,
		End:   t.EndPosition.Char,
	}
}

// Token types
const (
	BOOL         Type = "BOOL"
	CHAR         Type = "CHAR"
	EOF          Type = "EOF"
	FIELD_ACCESS Type = "->"
	IGNORE       Type = "_"
	NUM          Type = "NUM"
	PTR          Type = "&>"
	SIGSEP       Type = ":"
	STRING       Type = "STRING"
	WORD         Type = "WORD"

	// Keywords
	BIND    Type = "bind"
	CAST    Type = "cast"
	COND    Type = "cond"
	CONST   Type = "const"
	DO      Type = "do"
	ELSE    Type = "else"
	END     Type = "end"
	IF      Type = "if"
	INCLUDE Type = "include"
	MEM     Type = "mem"
	PROC    Type = "proc"
	RETURN  Type = "return"
	STRUCT  Type = "struct"
	VAR     Type = "var"
	WHILE   Type = "while"
)

// Reserved keywords
var keywords = map[string]Type{
	"bind":    BIND,
	"cast":    CAST,
	"cond":    COND,
	"const":   CONST,
	"do":      DO,
	"else":    ELSE,
	"end":     END,
	"if":      IF,
	"include": INCLUDE,
	"mem":     MEM,
	"proc":    PROC,
	"return":  RETURN,
	"struct":  STRUCT,
	"var":     VAR,
	"while":   WHILE,
}

// LookupWord classifies a lexed word as a boolean literal, the ignore marker,
// a keyword, or a plain word.
func LookupWord(word string) Type {
	switch word {
	case "true", "false":
		return BOOL
	case "_":
		return IGNORE
	}
	if tok, ok := keywords[word]; ok {
		return tok
	}
	return WORD
}

// IsKeyword returns true if the token type is one of the reserved keywords.
func IsKeyword(t Type) bool {
	_, ok := keywords[string(t)]
	return ok
}
