package parser

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/quadlang/quad/ast"
	"github.com/quadlang/quad/errors"
	"github.com/quadlang/quad/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, input string) *ast.Program {
	t.Helper()
	prog, err := Parse(context.Background(), input)
	require.NoError(t, err)
	return prog
}

func parseErr(t *testing.T, input string, opts ...Option) *Errors {
	t.Helper()
	_, err := Parse(context.Background(), input, opts...)
	require.Error(t, err)
	var errs *Errors
	require.True(t, stderrors.As(err, &errs), "expected *Errors, got %T", err)
	return errs
}

func TestProc(t *testing.T) {
	prog := parse(t, "proc main do 1 2 + print end")
	require.Equal(t, []string{"main"}, prog.Order)
	proc := prog.Item("main").(*ast.Proc)
	assert.Empty(t, proc.Ins)
	assert.Empty(t, proc.Outs)
	require.Len(t, proc.Body, 4)
	assert.Equal(t, value.NewU64(1), proc.Body[0].(*ast.Literal).Value)
	assert.Equal(t, value.NewU64(2), proc.Body[1].(*ast.Literal).Value)
	assert.Equal(t, ast.Add, proc.Body[2].(*ast.Intrinsic).Kind)
	assert.Equal(t, ast.Print, proc.Body[3].(*ast.Intrinsic).Kind)
}

func TestSignature(t *testing.T) {
	tests := []struct {
		input string
		ins   []value.Type
		outs  []value.Type
	}{
		{"proc f do end", nil, nil},
		{"proc f int do end", []value.Type{value.TypeInt}, nil},
		{"proc f : bool do end", nil, []value.Type{value.TypeBool}},
		{"proc f int uint : ptr bool do end",
			[]value.Type{value.TypeInt, value.TypeUint},
			[]value.Type{value.TypePtr, value.TypeBool}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			proc := parse(t, tt.input).Item("f").(*ast.Proc)
			assert.Equal(t, tt.ins, proc.Ins)
			assert.Equal(t, tt.outs, proc.Outs)
		})
	}
}

func TestConstAndMem(t *testing.T) {
	prog := parse(t, "const N : uint do 2 3 + end\nmem buf do N 8 * end")
	assert.Equal(t, []string{"N", "buf"}, prog.Order)
	c := prog.Item("N").(*ast.Const)
	assert.Equal(t, value.TypeUint, c.Type)
	assert.Len(t, c.Body, 3)
	m := prog.Item("buf").(*ast.Mem)
	require.Len(t, m.Size, 3)
	assert.Equal(t, "N", m.Size[0].(*ast.Word).Name)
}

func TestIfElse(t *testing.T) {
	prog := parse(t, "proc main do true if 1 else 2 end drop end")
	body := prog.Item("main").(*ast.Proc).Body
	require.Len(t, body, 3)
	cond := body[1].(*ast.If)
	assert.True(t, cond.HasElse())
	assert.Len(t, cond.Then, 1)
	assert.Len(t, cond.Else, 1)

	prog = parse(t, "proc main do true if 1 end end")
	cond = prog.Item("main").(*ast.Proc).Body[1].(*ast.If)
	assert.False(t, cond.HasElse())

	prog = parse(t, "proc main do true if else end end")
	cond = prog.Item("main").(*ast.Proc).Body[1].(*ast.If)
	assert.True(t, cond.HasElse())
	assert.Empty(t, cond.Then)
	assert.Empty(t, cond.Else)
}

func TestWhile(t *testing.T) {
	prog := parse(t, "proc main do 10 while dup 0 > do 1 - end drop end")
	loop := prog.Item("main").(*ast.Proc).Body[1].(*ast.While)
	assert.Equal(t, "dup 0 >", loop.Cond.String())
	assert.Equal(t, "1 -", loop.Body.String())
}

func TestBind(t *testing.T) {
	prog := parse(t, "proc f int int : int do bind a : int _ do a return end end")
	bind := prog.Item("f").(*ast.Proc).Body[0].(*ast.Bind)
	require.Len(t, bind.Bindings, 2)
	assert.Equal(t, "a", bind.Bindings[0].Name)
	assert.Equal(t, value.TypeInt, bind.Bindings[0].Type)
	assert.True(t, bind.Bindings[1].Ignore)
	assert.Equal(t, []string{"a"}, bind.Names())
	assert.IsType(t, &ast.Return{}, bind.Body[1])
}

func TestStringAndCharLiterals(t *testing.T) {
	prog := parse(t, `proc main do "hi\n" 'a' '\n' end`)
	body := prog.Item("main").(*ast.Proc).Body
	require.Len(t, body, 3)
	assert.Equal(t, "hi\n", body[0].(*ast.String).Value)
	assert.Equal(t, value.NewU64('a'), body[1].(*ast.Literal).Value)
	assert.Equal(t, value.NewU64('\n'), body[2].(*ast.Literal).Value)
}

func TestCharLiteralRawByte(t *testing.T) {
	prog := parse(t, "proc main do '\xff' 'é' end")
	body := prog.Item("main").(*ast.Proc).Body
	require.Len(t, body, 2)
	raw := body[0].(*ast.Literal)
	assert.Equal(t, value.NewU64(0xff), raw.Value)
	assert.Equal(t, `'\xff'`, raw.Literal)
	assert.Equal(t, value.NewU64('é'), body[1].(*ast.Literal).Value)
}

func TestIntrinsicsAreNeverWords(t *testing.T) {
	prog := parse(t, "proc main do drop dup swap over &?& &? print + - * divmod = != < <= > >= end")
	for _, op := range prog.Item("main").(*ast.Proc).Body {
		assert.IsType(t, &ast.Intrinsic{}, op, op.String())
	}

	errs := parseErr(t, "proc dup do end")
	assert.Equal(t, errors.E1006, errs.First().Code())
	assert.Contains(t, errs.First().Message(), `intrinsic "dup"`)
}

func TestTokenPositions(t *testing.T) {
	prog := parse(t, "\nproc main do\n  1 print\nend\n")
	proc := prog.Item("main").(*ast.Proc)
	assert.Equal(t, 2, proc.Pos().LineNumber())
	assert.Equal(t, 1, proc.Pos().ColumnNumber())
	assert.Equal(t, 4, proc.End().LineNumber())
	assert.Equal(t, 4, proc.End().ColumnNumber())
	lit := proc.Body[0].(*ast.Literal)
	assert.Equal(t, 3, lit.Pos().LineNumber())
	assert.Equal(t, 3, lit.Pos().ColumnNumber())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		code    errors.ErrorCode
		message string
	}{
		{"missing end", "proc main do 1", errors.E1007, `unexpected end of file while parsing proc body (expected "end")`},
		{"missing do", "proc main 1 end", errors.E1001, `unexpected number 1 while parsing proc signature (expected "do")`},
		{"top level word", "dup", errors.E1001, `unexpected word "dup" while parsing program (expected "proc", "const" or "mem")`},
		{"keyword name", "proc if do end", errors.E1006, `expected a name in proc, found reserved word "if"`},
		{"const without type", "const N do 1 end", errors.E1001, `unexpected "do" while parsing const (expected ":")`},
		{"empty outputs", "proc f : do end", errors.E1001, `unexpected "do" while parsing proc signature (expected output type)`},
		{"overflow", "proc main do 18446744073709551616 end", errors.E1008, "number 18446744073709551616 does not fit in 64 bits"},
		{"empty bind", "proc main do bind do end end", errors.E1001, `unexpected "do" while parsing bind (expected name or "_")`},
		{"bind missing type", "proc main do bind a do end end", errors.E1001, `unexpected "do" while parsing binding (expected ":")`},
		{"stray sigsep", "proc main do : end", errors.E1001, `unexpected ":" while parsing proc body (expected literal, word, if, while, bind or return)`},
		{"unsupported keyword", "proc main do cast end", errors.E1015, `"cast" is reserved but not supported`},
		{"include", "include", errors.E1015, `"include" is reserved but not supported`},
		{"item inside block", "proc main do proc end", errors.E1001, `unexpected "proc" while parsing proc body (expected "end")`},
		{"duplicate", "proc main do end\nconst main : int do 1 end", errors.E1014, `duplicate definition of "main" (first defined at 1:1)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseErr(t, tt.input)
			first := errs.First()
			assert.Equal(t, tt.code, first.Code())
			assert.Equal(t, tt.message, first.Message())
		})
	}
}

func TestUnknownTypeHint(t *testing.T) {
	errs := parseErr(t, "const N : unit do 1 end", WithFilename("n.quad"))
	first := errs.First()
	assert.Equal(t, errors.E1013, first.Code())
	assert.Equal(t, `unknown type "unit"`, first.Message())
	assert.Equal(t, "n.quad", first.File())
	formatted := first.ToFormatted()
	assert.Equal(t, "did you mean one of: 'int', 'uint'?", formatted.Hint)
	assert.Equal(t, []string{"int", "uint", "bool", "ptr"}, first.Expected())
}

func TestLexErrorsAreFatal(t *testing.T) {
	errs := parseErr(t, "proc main do 1 ` 2 end\nproc other do end", WithFilename("bad.quad"))
	require.Equal(t, 1, errs.Count())
	first := errs.First()
	assert.Equal(t, "syntax error", first.Type())
	assert.Equal(t, errors.E1011, first.Code())
	assert.Equal(t, "bad.quad", first.File())
	assert.Equal(t, "proc main do 1 ` 2 end", first.SourceCode())
	assert.Equal(t, 16, first.StartPosition().ColumnNumber())

	errs = parseErr(t, `proc main do "\q" end`)
	assert.Equal(t, errors.E1010, errs.First().Code())
}

func TestMultiErrorReporting(t *testing.T) {
	input := "proc a do 1\nproc b do end\nconst c do end\nproc d do 2 end"
	prog, err := Parse(context.Background(), input)
	require.Error(t, err)
	errs := err.(*Errors)
	assert.Equal(t, 2, errs.Count())
	// Items after a broken one still parse.
	assert.Equal(t, []string{"b", "d"}, prog.Order)
	assert.Len(t, errs.Unwrap(), 2)
	assert.Contains(t, errs.Error(), "(and 1 more errors)")

	msg := errs.FriendlyErrorMessage()
	assert.Contains(t, msg, "parse error[E1001]")
	assert.Contains(t, msg, "found 2 errors")
}

func TestMaxErrors(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < MaxErrors+5; i++ {
		sb.WriteString("dup\nproc x do end\n")
	}
	errs := parseErr(t, sb.String())
	assert.Equal(t, MaxErrors, errs.Count())
}

func TestMaxDepth(t *testing.T) {
	nested := func(n int) string {
		var sb strings.Builder
		sb.WriteString("proc main do ")
		for i := 0; i < n; i++ {
			sb.WriteString("true if ")
		}
		for i := 0; i < n; i++ {
			sb.WriteString("end ")
		}
		sb.WriteString("end")
		return sb.String()
	}
	errs := parseErr(t, nested(DefaultMaxDepth+1))
	assert.Equal(t, errors.E1009, errs.First().Code())
	assert.Contains(t, errs.Error(), "maximum nesting depth")

	_, err := Parse(context.Background(), nested(DefaultMaxDepth))
	assert.NoError(t, err)

	errs = parseErr(t, nested(6), WithMaxDepth(5))
	assert.Equal(t, errors.E1009, errs.First().Code())
}

func TestContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Parse(ctx, "proc main do end")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, context.Canceled))
}

func TestErrorString(t *testing.T) {
	errs := parseErr(t, "proc main do 1", WithFilename("m.quad"))
	assert.Equal(t,
		`parse error: unexpected end of file while parsing proc body (expected "end") (m.quad:1:15)`,
		errs.Error())
}

func TestEmptyProgram(t *testing.T) {
	prog := parse(t, "  ; nothing here\n")
	assert.Empty(t, prog.Order)
	assert.Empty(t, prog.Items)
}
