// Package parser builds the tree representation of a quad program.
//
// A parser is created by calling New() with a lexer as input. The parser should
// then be used only once, by calling parser.Parse() to produce the AST.
package parser

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"unicode/utf8"

	"github.com/quadlang/quad/ast"
	"github.com/quadlang/quad/errors"
	"github.com/quadlang/quad/internal/lexer"
	"github.com/quadlang/quad/internal/token"
	"github.com/quadlang/quad/value"
)

// itemStarters are the tokens that can begin a top-level item. Error
// recovery resumes parsing at the next one of these.
var itemStarters = map[token.Type]bool{
	token.PROC:  true,
	token.CONST: true,
	token.MEM:   true,
}

// unsupported keywords are reserved by the lexer but have no grammar.
var unsupported = map[token.Type]bool{
	token.INCLUDE: true,
	token.COND:    true,
	token.VAR:     true,
	token.STRUCT:  true,
	token.CAST:    true,
}

var blockStart = []string{"literal", "word", "if", "while", "bind", "return"}

// Parse the provided input as quad source code and return the AST. This is
// shorthand way to create a Lexer and Parser and then call Parse on that.
func Parse(ctx context.Context, input string, options ...Option) (*ast.Program, error) {
	// Extract filename from options before creating the parser, so that lexer
	// errors in the first tokens have proper location context.
	var filename string
	for _, opt := range options {
		var probe Parser
		opt(&probe)
		if probe.filename != "" {
			filename = probe.filename
		}
	}

	l := lexer.New(input)
	if filename != "" {
		l.SetFilename(filename)
	}

	p := New(l, options...)
	return p.Parse(ctx)
}

// Option is a configuration function for a Parser.
type Option func(*Parser)

// WithFilename sets the file name reported in positions and errors.
func WithFilename(filename string) Option {
	return func(p *Parser) {
		p.filename = filename
	}
}

// WithMaxDepth sets the maximum nesting depth for the parser.
// This prevents stack overflow on deeply nested input.
// The default is 500.
func WithMaxDepth(depth int) Option {
	return func(p *Parser) {
		p.maxDepth = depth
	}
}

// DefaultMaxDepth is the default maximum nesting depth for parsing.
const DefaultMaxDepth = 500

// MaxErrors is the maximum number of errors to collect before stopping.
const MaxErrors = 10

// Parser object
type Parser struct {
	// the Context supplied in the Parse() call
	ctx context.Context

	// l is our lexer
	l *lexer.Lexer

	// curToken holds the current token from the lexer.
	curToken token.Token

	// peekToken holds the next token from the lexer.
	peekToken token.Token

	// parsing errors collected during parsing
	errors []ParserError

	// itemErrorCount tracks the error count at the start of the current item.
	itemErrorCount int

	// itemStart is the position of the keyword that began the current item.
	itemStart token.Position

	// lexFailed is set once the lexer reports an error. Lexical errors are
	// fatal, so nothing after them is parsed.
	lexFailed bool

	// The filename of the input
	filename string

	// Current nesting depth
	depth int

	// Maximum allowed nesting depth
	maxDepth int
}

// New returns a Parser for the program provided by the given Lexer.
func New(l *lexer.Lexer, options ...Option) *Parser {
	p := &Parser{l: l, maxDepth: DefaultMaxDepth}
	for _, opt := range options {
		opt(p)
	}
	if p.filename != "" && l.Filename() == "" {
		l.SetFilename(p.filename)
	}

	// Prime the token pump
	p.nextToken() // makes curToken=<empty>, peekToken=token[0]
	p.nextToken() // makes curToken=token[0], peekToken=token[1]
	return p
}

// nextToken moves to the next token from the lexer.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	if p.lexFailed {
		return
	}
	var err error
	p.peekToken, err = p.l.Next()
	if err == nil {
		return
	}
	// The lexer reports the failing range itself. From here on the parser
	// sees end of file.
	opts := ErrorOpts{Cause: err, File: p.l.Filename()}
	if lexErr, ok := err.(*lexer.Error); ok {
		opts.Code = lexErr.Code
		opts.StartPosition = lexErr.StartPosition
		opts.EndPosition = lexErr.EndPosition
		opts.SourceCode = p.l.GetLineText(token.Token{StartPosition: lexErr.StartPosition})
	}
	p.addError(NewSyntaxError(opts))
	p.lexFailed = true
	p.peekToken = token.Token{
		Type:          token.EOF,
		StartPosition: opts.StartPosition,
		EndPosition:   opts.StartPosition,
	}
}

// Parse the program that is provided via the lexer. On error the returned
// program holds the items that parsed cleanly.
func (p *Parser) Parse(ctx context.Context) (*ast.Program, error) {
	p.ctx = ctx
	prog := ast.NewProgram()
	for !p.curTokenIs(token.EOF) && !p.lexFailed {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if p.tooManyErrors() {
			break
		}
		p.itemErrorCount = len(p.errors)
		p.itemStart = p.curToken.StartPosition
		nameTok := p.peekToken
		item := p.parseItem()
		if item == nil || p.hadNewError() {
			p.synchronize()
			continue
		}
		if !prog.Add(item) {
			prev := prog.Item(item.ItemName())
			p.setTokenError(nameTok, errors.E1014, "duplicate definition of %q (first defined at %s)",
				item.ItemName(), prev.Pos())
		}
		p.nextToken()
	}
	if len(p.errors) > 0 {
		return prog, NewErrors(p.errors)
	}
	return prog, nil
}

// addError appends an error to the errors slice. Errors caused by the end
// of input that a lexical error forced are dropped.
func (p *Parser) addError(err ParserError) {
	if p.lexFailed {
		return
	}
	p.errors = append(p.errors, err)
}

// tooManyErrors returns true if error limit has been reached.
func (p *Parser) tooManyErrors() bool {
	return len(p.errors) >= MaxErrors
}

// hadNewError returns true if an error was added during the current item.
func (p *Parser) hadNewError() bool {
	return len(p.errors) > p.itemErrorCount
}

// synchronize skips tokens until the start of another item.
func (p *Parser) synchronize() {
	for !p.curTokenIs(token.EOF) && !p.lexFailed {
		if itemStarters[p.curToken.Type] && p.curToken.StartPosition != p.itemStart {
			return
		}
		p.nextToken()
	}
}

func (p *Parser) setTokenError(t token.Token, code errors.ErrorCode, msg string, args ...any) {
	p.addError(NewParserError(ErrorOpts{
		ErrType:       "parse error",
		Code:          code,
		Message:       fmt.Sprintf(msg, args...),
		File:          p.l.Filename(),
		StartPosition: t.StartPosition,
		EndPosition:   t.EndPosition,
		SourceCode:    p.l.GetLineText(t),
	}))
}

// unexpected records that got was found where one of expected should be.
func (p *Parser) unexpected(context string, got token.Token, expected ...string) {
	code := errors.E1001
	if got.Type == token.EOF {
		code = errors.E1007
	}
	p.addError(NewParserError(ErrorOpts{
		ErrType: "parse error",
		Code:    code,
		Message: fmt.Sprintf("unexpected %s while parsing %s (expected %s)",
			tokenDescription(got), context, expectedDescription(expected)),
		File:          p.l.Filename(),
		StartPosition: got.StartPosition,
		EndPosition:   got.EndPosition,
		SourceCode:    p.l.GetLineText(got),
		Expected:      expected,
	}))
}

// curTokenIs returns true if the current token has the given type.
func (p *Parser) curTokenIs(t token.Type) bool {
	return p.curToken.Type == t
}

// peekTokenIs returns true if the next token has the given type.
func (p *Parser) peekTokenIs(t token.Type) bool {
	return p.peekToken.Type == t
}

// expectPeek validates if the next token is of the given type, and advances if
// it is. If it's a different type, then an error is stored.
func (p *Parser) expectPeek(context string, t token.Type) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.unexpected(context, p.peekToken, fmt.Sprintf("%q", string(t)))
	return false
}

func (p *Parser) parseItem() ast.Item {
	switch p.curToken.Type {
	case token.PROC:
		return p.parseProc()
	case token.CONST:
		return p.parseConst()
	case token.MEM:
		return p.parseMem()
	}
	if unsupported[p.curToken.Type] {
		p.setTokenError(p.curToken, errors.E1015, "%q is reserved but not supported", p.curToken.Literal)
		return nil
	}
	p.unexpected("program", p.curToken, `"proc"`, `"const"`, `"mem"`)
	return nil
}

// parseName reads the item or binding name in the peek position.
func (p *Parser) parseName(context string) (token.Token, bool) {
	if !p.peekTokenIs(token.WORD) {
		if token.IsKeyword(p.peekToken.Type) || p.peekTokenIs(token.BOOL) || p.peekTokenIs(token.IGNORE) {
			p.setTokenError(p.peekToken, errors.E1006, "expected a name in %s, found reserved word %q",
				context, p.peekToken.Literal)
			return token.Token{}, false
		}
		p.unexpected(context, p.peekToken, "name")
		return token.Token{}, false
	}
	p.nextToken()
	if ast.IsIntrinsic(p.curToken.Literal) {
		p.setTokenError(p.curToken, errors.E1006, "intrinsic %q cannot be used as a name",
			p.curToken.Literal)
		return token.Token{}, false
	}
	return p.curToken, true
}

// parseType reads the type name in the current position.
func (p *Parser) parseType() (value.Type, bool) {
	tok := p.curToken
	if tok.Type != token.WORD {
		p.unexpected("type", tok, value.TypeNames()...)
		return value.TypeInvalid, false
	}
	t, ok := value.LookupType(tok.Literal)
	if !ok {
		p.addError(NewParserError(ErrorOpts{
			ErrType:       "parse error",
			Code:          errors.E1013,
			Message:       fmt.Sprintf("unknown type %q", tok.Literal),
			File:          p.l.Filename(),
			StartPosition: tok.StartPosition,
			EndPosition:   tok.EndPosition,
			SourceCode:    p.l.GetLineText(tok),
			Expected:      value.TypeNames(),
			Hint:          errors.FormatSuggestions(errors.SuggestSimilar(tok.Literal, value.TypeNames())),
		}))
		return value.TypeInvalid, false
	}
	return t, true
}

// parseProc parses `proc NAME IN* (: OUT+)? do BLOCK end`.
func (p *Parser) parseProc() ast.Item {
	proc := &ast.Proc{Proc: p.curToken.StartPosition}
	name, ok := p.parseName("proc")
	if !ok {
		return nil
	}
	proc.Name, proc.NamePos = name.Literal, name.StartPosition
	for p.peekTokenIs(token.WORD) {
		p.nextToken()
		t, ok := p.parseType()
		if !ok {
			return nil
		}
		proc.Ins = append(proc.Ins, t)
	}
	if p.peekTokenIs(token.SIGSEP) {
		p.nextToken()
		if !p.peekTokenIs(token.WORD) {
			p.unexpected("proc signature", p.peekToken, "output type")
			return nil
		}
		for p.peekTokenIs(token.WORD) {
			p.nextToken()
			t, ok := p.parseType()
			if !ok {
				return nil
			}
			proc.Outs = append(proc.Outs, t)
		}
	}
	if !p.expectPeek("proc signature", token.DO) {
		return nil
	}
	body, ok := p.parseBlock("proc body", token.END)
	if !ok {
		return nil
	}
	proc.Body = body
	proc.EndPos = p.curToken.EndPosition
	return proc
}

// parseConst parses `const NAME : TYPE do BLOCK end`.
func (p *Parser) parseConst() ast.Item {
	c := &ast.Const{Const: p.curToken.StartPosition}
	name, ok := p.parseName("const")
	if !ok {
		return nil
	}
	c.Name, c.NamePos = name.Literal, name.StartPosition
	if !p.expectPeek("const", token.SIGSEP) {
		return nil
	}
	p.nextToken()
	if c.Type, ok = p.parseType(); !ok {
		return nil
	}
	if !p.expectPeek("const", token.DO) {
		return nil
	}
	if c.Body, ok = p.parseBlock("const body", token.END); !ok {
		return nil
	}
	c.EndPos = p.curToken.EndPosition
	return c
}

// parseMem parses `mem NAME do BLOCK end`.
func (p *Parser) parseMem() ast.Item {
	m := &ast.Mem{Mem: p.curToken.StartPosition}
	name, ok := p.parseName("mem")
	if !ok {
		return nil
	}
	m.Name, m.NamePos = name.Literal, name.StartPosition
	if !p.expectPeek("mem", token.DO) {
		return nil
	}
	if m.Size, ok = p.parseBlock("mem size", token.END); !ok {
		return nil
	}
	m.EndPos = p.curToken.EndPosition
	return m
}

// parseBlock parses ops until one of the terminators, leaving the
// terminator as the current token.
func (p *Parser) parseBlock(context string, terminators ...token.Type) (ast.Block, bool) {
	block := ast.Block{}
	for {
		p.nextToken()
		if p.lexFailed && p.curTokenIs(token.EOF) {
			return nil, false
		}
		if slices.Contains(terminators, p.curToken.Type) {
			return block, true
		}
		if p.curTokenIs(token.EOF) || itemStarters[p.curToken.Type] {
			expected := make([]string, len(terminators))
			for i, t := range terminators {
				expected[i] = fmt.Sprintf("%q", string(t))
			}
			p.unexpected(context, p.curToken, expected...)
			return nil, false
		}
		op := p.parseOp(context)
		if op == nil {
			return nil, false
		}
		block = append(block, op)
	}
}

func (p *Parser) parseOp(context string) ast.Op {
	tok := p.curToken
	switch tok.Type {
	case token.NUM:
		n, err := strconv.ParseUint(tok.Literal, 10, 64)
		if err != nil {
			p.setTokenError(tok, errors.E1008, "number %s does not fit in 64 bits", tok.Literal)
			return nil
		}
		return &ast.Literal{
			ValuePos: tok.StartPosition,
			EndPos:   tok.EndPosition,
			Literal:  tok.Literal,
			Value:    value.NewU64(n),
		}
	case token.BOOL:
		return &ast.Literal{
			ValuePos: tok.StartPosition,
			EndPos:   tok.EndPosition,
			Literal:  tok.Literal,
			Value:    value.NewBool(tok.Literal == "true"),
		}
	case token.CHAR:
		r, size := utf8.DecodeRuneInString(tok.Literal)
		code, lit := uint64(r), strconv.QuoteRune(r)
		if r == utf8.RuneError && size == 1 {
			code, lit = uint64(tok.Literal[0]), fmt.Sprintf(`'\x%02x'`, tok.Literal[0])
		}
		return &ast.Literal{
			ValuePos: tok.StartPosition,
			EndPos:   tok.EndPosition,
			Literal:  lit,
			Value:    value.NewU64(code),
		}
	case token.STRING:
		return &ast.String{ValuePos: tok.StartPosition, EndPos: tok.EndPosition, Value: tok.Literal}
	case token.WORD:
		if kind, ok := ast.LookupIntrinsic(tok.Literal); ok {
			return &ast.Intrinsic{NamePos: tok.StartPosition, Kind: kind}
		}
		return &ast.Word{NamePos: tok.StartPosition, Name: tok.Literal}
	case token.RETURN:
		return &ast.Return{Return: tok.StartPosition}
	case token.IF:
		return p.nested(p.parseIf)
	case token.WHILE:
		return p.nested(p.parseWhile)
	case token.BIND:
		return p.nested(p.parseBind)
	}
	if unsupported[tok.Type] {
		p.setTokenError(tok, errors.E1015, "%q is reserved but not supported", tok.Literal)
		return nil
	}
	p.unexpected(context, tok, blockStart...)
	return nil
}

// nested runs fn one level deeper, enforcing the depth limit.
func (p *Parser) nested(fn func() ast.Op) ast.Op {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > p.maxDepth {
		p.setTokenError(p.curToken, errors.E1009, "maximum nesting depth exceeded")
		return nil
	}
	select {
	case <-p.ctx.Done():
		p.setTokenError(p.curToken, errors.E1003, "parsing cancelled: %v", p.ctx.Err())
		return nil
	default:
	}
	return fn()
}

// parseIf parses `if BLOCK (else BLOCK)? end`.
func (p *Parser) parseIf() ast.Op {
	node := &ast.If{If: p.curToken.StartPosition}
	then, ok := p.parseBlock("if", token.ELSE, token.END)
	if !ok {
		return nil
	}
	node.Then = then
	if p.curTokenIs(token.ELSE) {
		if node.Else, ok = p.parseBlock("else", token.END); !ok {
			return nil
		}
	}
	node.EndPos = p.curToken.EndPosition
	return node
}

// parseWhile parses `while BLOCK do BLOCK end`.
func (p *Parser) parseWhile() ast.Op {
	node := &ast.While{While: p.curToken.StartPosition}
	var ok bool
	if node.Cond, ok = p.parseBlock("while condition", token.DO); !ok {
		return nil
	}
	if node.Body, ok = p.parseBlock("while body", token.END); !ok {
		return nil
	}
	node.EndPos = p.curToken.EndPosition
	return node
}

// parseBind parses `bind (NAME : TYPE | _)+ do BLOCK end`.
func (p *Parser) parseBind() ast.Op {
	node := &ast.Bind{Bind: p.curToken.StartPosition}
	for !p.peekTokenIs(token.DO) {
		if p.peekTokenIs(token.IGNORE) {
			p.nextToken()
			node.Bindings = append(node.Bindings, ast.Binding{NamePos: p.curToken.StartPosition, Ignore: true})
			continue
		}
		if !p.peekTokenIs(token.WORD) {
			p.unexpected("bind", p.peekToken, "name", `"_"`, `"do"`)
			return nil
		}
		name, ok := p.parseName("bind")
		if !ok {
			return nil
		}
		if !p.expectPeek("binding", token.SIGSEP) {
			return nil
		}
		p.nextToken()
		t, ok := p.parseType()
		if !ok {
			return nil
		}
		node.Bindings = append(node.Bindings, ast.Binding{
			NamePos: name.StartPosition,
			Name:    name.Literal,
			Type:    t,
		})
	}
	if len(node.Bindings) == 0 {
		p.unexpected("bind", p.peekToken, "name", `"_"`)
		return nil
	}
	p.nextToken() // do
	body, ok := p.parseBlock("bind body", token.END)
	if !ok {
		return nil
	}
	node.Body = body
	node.EndPos = p.curToken.EndPosition
	return node
}
