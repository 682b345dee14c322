package emit

import (
	"strings"

	"github.com/quadlang/quad/lir"
	"github.com/quadlang/quad/op"
	"github.com/quadlang/quad/value"
)

// prologue sets up the stack cursors, saves argc and argv from the initial
// stack and pushes the default exit status. The lowered ops that follow
// start with the call to main.
const prologue = `BITS 64
section .text
global _start

_start:
    mov rax, ret_stack_end
    mov [ret_stack_rsp], rax
    mov rax, locals_stack_end
    mov [locals_rsp], rax
    mov rax, escaping_stack_end
    mov [escaping_rsp], rax
    mov rax, [rsp]
    mov [args_count], rax
    lea rax, [rsp+8]
    mov [args_vector], rax
    push 0
`

// runtime holds helper routines called by op expansions.
const runtime = `
; print rdi in decimal followed by a newline
__print:
    mov rax, rdi
    mov rcx, 10
    lea rsi, [io_buf+31]
    mov byte [rsi], 10
    mov r8, 1
.digit:
    xor rdx, rdx
    div rcx
    add dl, '0'
    dec rsi
    mov [rsi], dl
    inc r8
    test rax, rax
    jnz .digit
    mov rax, 1
    mov rdi, 1
    mov rdx, r8
    syscall
    ret

`

// fixed maps operand-free ops to their expansion.
var fixed = map[op.Code]string{
	op.Return: `    mov rax, [ret_stack_rsp]
    mov rdi, [rax]
    add QWORD [ret_stack_rsp], 8
    push rdi
    ret
`,
	op.Exit: `    pop rdi
    mov rax, 60
    syscall
`,
	op.Dump: "",
	op.Drop: `    pop rax
`,
	op.Dup: `    pop rax
    push rax
    push rax
`,
	op.Swap: `    pop rax
    pop rbx
    push rax
    push rbx
`,
	op.Over: `    pop rax
    pop rbx
    push rbx
    push rax
    push rbx
`,
	op.ReadU8: `    pop rax
    xor rbx, rbx
    mov bl, [rax]
    push rbx
`,
	op.WriteU8: `    pop rax
    pop rbx
    mov [rax], bl
`,
	op.ReadU64: `    pop rax
    push QWORD [rax]
`,
	op.WriteU64: `    pop rax
    pop rbx
    mov [rax], rbx
`,
	op.Print: `    pop rdi
    call __print
`,
	op.PutC: `    pop rax
    mov [io_buf], al
    mov rax, 1
    mov rdi, 1
    mov rsi, io_buf
    mov rdx, 1
    syscall
`,
	op.Argc: `    push QWORD [args_count]
`,
	op.Argv: `    push QWORD [args_vector]
`,
	op.Add: `    pop rax
    pop rbx
    add rbx, rax
    push rbx
`,
	op.Sub: `    pop rax
    pop rbx
    sub rbx, rax
    push rbx
`,
	op.Mul: `    pop rax
    pop rbx
    mul rbx
    push rax
`,
	op.Divmod: `    xor rdx, rdx
    pop rbx
    pop rax
    div rbx
    push rax
    push rdx
`,
	op.Eq: comparison("cmove"),
	op.Ne: comparison("cmovne"),
	op.Lt: comparison("cmovl"),
	op.Le: comparison("cmovle"),
	op.Gt: comparison("cmovg"),
	op.Ge: comparison("cmovge"),
	op.Bind: `    pop rbx
    sub QWORD [ret_stack_rsp], 8
    mov rax, [ret_stack_rsp]
    mov [rax], rbx
`,
	op.Unbind: `    add QWORD [ret_stack_rsp], 8
`,
}

func comparison(cmov string) string {
	return `    mov rcx, 0
    mov rdx, 1
    pop rbx
    pop rax
    cmp rax, rbx
    ` + cmov + ` rcx, rdx
    push rcx
`
}

// syscallRegisters lists the argument registers in syscall order.
var syscallRegisters = []string{"rdi", "rsi", "rdx", "r10", "r8", "r9"}

func (e *Emitter) op(out *writer, unit *lir.Unit, o lir.Op) {
	switch o.Code {
	case op.Proc:
		out.printf("\n%s:\n", ProcSymbol(o.Name))
		if e.comments {
			out.line("; save return address")
		}
		out.text(`    pop rdi
    sub QWORD [ret_stack_rsp], 8
    mov rax, [ret_stack_rsp]
    mov [rax], rdi
`)
		return
	case op.Label:
		out.printf("%s:\n", LabelSymbol(o.Name))
		return
	}

	if e.comments {
		out.printf("; %s\n", o)
	}
	if text, ok := fixed[o.Code]; ok {
		out.text(text)
		return
	}
	switch o.Code {
	case op.Call:
		out.printf("    call %s\n", ProcSymbol(o.Name))
	case op.Jump:
		out.printf("    jmp %s\n", LabelSymbol(o.Name))
	case op.JumpF:
		out.printf("    pop rax\n    test rax, rax\n    jz %s\n", LabelSymbol(o.Name))
	case op.Push:
		out.printf("    mov rax, %s\n    push rax\n", immediate(o.Value))
	case op.PushStr:
		size := 0
		if o.Arg < uint64(len(unit.Strings)) {
			size = len(unit.Strings[o.Arg])
		}
		out.printf("    mov rax, %d\n    push rax\n    mov rax, %s\n    push rax\n",
			size, StringSymbol(int(o.Arg)))
	case op.PushMem:
		out.printf("    mov rax, %s\n    push rax\n", MemorySymbol(o.Name))
	case op.Syscall0, op.Syscall1, op.Syscall2, op.Syscall3, op.Syscall4, op.Syscall5, op.Syscall6:
		var b strings.Builder
		b.WriteString("    pop rax\n")
		for _, reg := range syscallRegisters[:o.Code.SyscallArity()] {
			b.WriteString("    pop " + reg + "\n")
		}
		b.WriteString("    syscall\n    push rax\n")
		out.text(b.String())
	case op.UseBinding:
		out.printf("    mov rax, [ret_stack_rsp]\n    push QWORD [rax+%d]\n", 8*o.Arg)
	case op.ReserveLocals:
		out.printf("    mov rax, %d\n    sub [locals_rsp], rax\n", o.Arg)
	case op.FreeLocals:
		out.printf("    mov rax, %d\n    add [locals_rsp], rax\n", o.Arg)
	case op.LocalAddr:
		out.printf("    mov rax, [locals_rsp]\n    add rax, %d\n    push rax\n", o.Arg)
	case op.ReserveEscaping:
		out.printf("    mov rax, %d\n    sub [escaping_rsp], rax\n", o.Arg)
	case op.EscapingAddr:
		out.printf("    mov rax, [escaping_rsp]\n    add rax, %d\n    push rax\n", o.Arg)
	default:
		out.printf("    ; unsupported op %s\n", o.Code)
	}
}

// immediate renders the operand of a push.
func immediate(v value.Value) string {
	switch v.Kind {
	case value.Str:
		return StringSymbol(v.Index())
	case value.Ptr:
		return MemorySymbol(v.Ref)
	}
	return v.Literal()
}
