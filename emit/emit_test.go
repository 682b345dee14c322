package emit

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quadlang/quad/lir"
	"github.com/quadlang/quad/op"
	"github.com/quadlang/quad/value"
)

func emit(t *testing.T, unit *lir.Unit, opts ...Option) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Emit(&buf, unit, opts...))
	return buf.String()
}

// section returns the text between the given section directive and the
// next one.
func section(asm, name string) string {
	start := strings.Index(asm, "section "+name+"\n")
	if start < 0 {
		return ""
	}
	rest := asm[start+len("section "+name+"\n"):]
	if end := strings.Index(rest, "section "); end >= 0 {
		return rest[:end]
	}
	return rest
}

func mainUnit(ops ...lir.Op) *lir.Unit {
	all := []lir.Op{lir.Call("main"), lir.Simple(op.Exit), lir.Proc("main")}
	all = append(all, ops...)
	return &lir.Unit{Ops: append(all, lir.Simple(op.Return))}
}

func TestEmitSimpleProgram(t *testing.T) {
	unit := mainUnit(
		lir.Push(value.NewU64(1)),
		lir.Push(value.NewU64(2)),
		lir.Simple(op.Add),
		lir.Simple(op.Print),
	)
	asm := emit(t, unit, WithComments(false))
	text := section(asm, ".text")
	assert.True(t, strings.HasPrefix(asm, "BITS 64\nsection .text\nglobal _start\n"))
	assert.Contains(t, text, `    push 0
    call $main
    pop rdi
    mov rax, 60
    syscall

$main:
    pop rdi
    sub QWORD [ret_stack_rsp], 8
    mov rax, [ret_stack_rsp]
    mov [rax], rdi
    mov rax, 1
    push rax
    mov rax, 2
    push rax
    pop rax
    pop rbx
    add rbx, rax
    push rbx
    pop rdi
    call __print
    mov rax, [ret_stack_rsp]
    mov rdi, [rax]
    add QWORD [ret_stack_rsp], 8
    push rdi
    ret
`)
	assert.Contains(t, text, "__print:")
}

func TestEmitComments(t *testing.T) {
	asm := emit(t, mainUnit(lir.Push(value.NewU64(7)), lir.Simple(op.Dump)))
	assert.Contains(t, asm, "; push U64(7)\n    mov rax, 7\n")
	assert.Contains(t, asm, "; dump\n")
	assert.Contains(t, asm, "; save return address\n")

	asm = emit(t, mainUnit(lir.Push(value.NewU64(7))), WithComments(false))
	assert.NotContains(t, asm, "; push")
}

func TestEmitImmediates(t *testing.T) {
	asm := emit(t, mainUnit(
		lir.Push(value.NewBool(true)),
		lir.Push(value.NewI64(-4)),
		lir.Push(value.NewPtr("buf")),
		lir.Push(value.NewStr(0)),
	), WithComments(false))
	assert.Contains(t, asm, "    mov rax, 1\n    push rax\n")
	assert.Contains(t, asm, "    mov rax, -4\n    push rax\n")
	assert.Contains(t, asm, "    mov rax, mem_buf\n    push rax\n")
	assert.Contains(t, asm, "    mov rax, str_0\n    push rax\n")
}

func TestEmitStringsAndMemory(t *testing.T) {
	unit := mainUnit(lir.PushStr(0), lir.PushStr(1), lir.PushMem("buf"))
	unit.Strings = []string{"hi\n", ""}
	unit.Memory = map[string]uint64{"buf": 64, "a_b": 8}
	asm := emit(t, unit, WithComments(false))

	assert.Contains(t, section(asm, ".text"),
		"    mov rax, 3\n    push rax\n    mov rax, str_0\n    push rax\n")
	assert.Contains(t, section(asm, ".text"),
		"    mov rax, 0\n    push rax\n    mov rax, str_1\n    push rax\n")
	assert.Contains(t, section(asm, ".text"), "    mov rax, mem_buf\n    push rax\n")

	assert.Equal(t, "str_0:\n    db 104,105,10,0\nstr_1:\n    db 0\n", section(asm, ".data"))

	bss := section(asm, ".bss")
	assert.Contains(t, bss, "    ret_stack: resb 65536\n    ret_stack_end:\n")
	assert.Contains(t, bss, "    mem_a__b: resb 8\n    mem_buf: resb 64\n")
}

func TestEmitStackSizes(t *testing.T) {
	asm := emit(t, mainUnit(), WithReturnStack(128), WithLocalsStack(256), WithEscapingStack(512))
	bss := section(asm, ".bss")
	assert.Contains(t, bss, "ret_stack: resb 128\n")
	assert.Contains(t, bss, "locals_stack: resb 256\n")
	assert.Contains(t, bss, "escaping_stack: resb 512\n")
}

func TestEmitControlFlow(t *testing.T) {
	asm := emit(t, mainUnit(
		lir.Label(".main0"),
		lir.Push(value.NewBool(true)),
		lir.JumpF(".main1"),
		lir.Jump(".main0"),
		lir.Label(".main1"),
	), WithComments(false))
	assert.Contains(t, asm, `.main0:
    mov rax, 1
    push rax
    pop rax
    test rax, rax
    jz .main1
    jmp .main0
.main1:
`)
}

func TestEmitBindings(t *testing.T) {
	asm := emit(t, mainUnit(
		lir.Simple(op.Bind),
		lir.UseBinding(2),
		lir.Simple(op.Unbind),
	), WithComments(false))
	assert.Contains(t, asm, `    pop rbx
    sub QWORD [ret_stack_rsp], 8
    mov rax, [ret_stack_rsp]
    mov [rax], rbx
    mov rax, [ret_stack_rsp]
    push QWORD [rax+16]
    add QWORD [ret_stack_rsp], 8
`)
}

func TestEmitSyscalls(t *testing.T) {
	tests := []struct {
		arity int
		want  string
	}{
		{0, "    pop rax\n    syscall\n    push rax\n"},
		{3, "    pop rax\n    pop rdi\n    pop rsi\n    pop rdx\n    syscall\n    push rax\n"},
		{6, "    pop rax\n    pop rdi\n    pop rsi\n    pop rdx\n    pop r10\n    pop r8\n    pop r9\n    syscall\n    push rax\n"},
	}
	for _, tt := range tests {
		asm := emit(t, mainUnit(lir.Simple(op.Syscall(tt.arity))), WithComments(false))
		assert.Contains(t, asm, tt.want)
	}
}

func TestEmitComparisons(t *testing.T) {
	for code, cmov := range map[op.Code]string{
		op.Eq: "cmove", op.Ne: "cmovne", op.Lt: "cmovl",
		op.Le: "cmovle", op.Gt: "cmovg", op.Ge: "cmovge",
	} {
		asm := emit(t, mainUnit(lir.Simple(code)), WithComments(false))
		assert.Contains(t, asm, "    cmp rax, rbx\n    "+cmov+" rcx, rdx\n    push rcx\n", code.String())
	}
}

func TestEmitLocalsAndEscaping(t *testing.T) {
	asm := emit(t, mainUnit(
		lir.WithArg(op.ReserveLocals, 16),
		lir.WithArg(op.LocalAddr, 8),
		lir.WithArg(op.FreeLocals, 16),
		lir.WithArg(op.ReserveEscaping, 24),
		lir.WithArg(op.EscapingAddr, 0),
	), WithComments(false))
	assert.Contains(t, asm, "    mov rax, 16\n    sub [locals_rsp], rax\n")
	assert.Contains(t, asm, "    mov rax, [locals_rsp]\n    add rax, 8\n    push rax\n")
	assert.Contains(t, asm, "    mov rax, 16\n    add [locals_rsp], rax\n")
	assert.Contains(t, asm, "    mov rax, 24\n    sub [escaping_rsp], rax\n")
	assert.Contains(t, asm, "    mov rax, [escaping_rsp]\n    add rax, 0\n    push rax\n")
}

func TestEmitArgs(t *testing.T) {
	asm := emit(t, mainUnit(lir.Simple(op.Argc), lir.Simple(op.Argv)), WithComments(false))
	assert.Contains(t, asm, "    push QWORD [args_count]\n    push QWORD [args_vector]\n")
	assert.Contains(t, asm, "    mov rax, [rsp]\n    mov [args_count], rax\n    lea rax, [rsp+8]\n    mov [args_vector], rax\n")
}

func TestEveryOpcodeHasAnExpansion(t *testing.T) {
	for code := op.Code(1); code < 255; code++ {
		if op.GetInfo(code).Name == "" {
			continue
		}
		asm := emit(t, mainUnit(lir.Op{Code: code, Name: "x", Value: value.NewU64(1)}))
		assert.NotContains(t, asm, "unsupported op", code.String())
	}
}

func TestSymbols(t *testing.T) {
	assert.Equal(t, "$main", ProcSymbol("main"))
	assert.Equal(t, "$rax", ProcSymbol("rax"))
	assert.Equal(t, "$_2b_2b", ProcSymbol("++"))
	assert.Equal(t, "$a__b", ProcSymbol("a_b"))
	assert.Equal(t, "$printf2", ProcSymbol("printf2"), "letters and digits link unchanged")
	assert.Equal(t, "$foo__bar", ProcSymbol("foo_bar"), "underscore is escaped")
	assert.NotEqual(t, ProcSymbol("a_2b"), ProcSymbol("a+"))
	assert.Equal(t, ".main0", LabelSymbol(".main0"))
	assert.Equal(t, "._3c_3d0", LabelSymbol(".<=0"))
	assert.Equal(t, "mem_buf", MemorySymbol("buf"))
	assert.Equal(t, "str_3", StringSymbol(3))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestEmitWriteError(t *testing.T) {
	err := Emit(failingWriter{}, mainUnit())
	assert.EqualError(t, err, "disk full")
}
