// Package emit generates x86-64 NASM assembly from lowered quad code.
//
// The generated program keeps the operand stack on the CPU stack and three
// more stacks in .bss: the return stack, which holds return addresses and
// bind slots, the locals stack and the escaping stack. Each of these grows
// downward from the high end of its buffer and has a cursor variable.
package emit

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/quadlang/quad/lir"
)

// DefaultStackSize is the default size in bytes of the return, locals and
// escaping stacks.
const DefaultStackSize = 64 * 1024

// Option configures an Emitter.
type Option func(*Emitter)

// WithReturnStack sets the return stack size in bytes.
func WithReturnStack(size uint64) Option {
	return func(e *Emitter) { e.returnStack = size }
}

// WithLocalsStack sets the locals stack size in bytes.
func WithLocalsStack(size uint64) Option {
	return func(e *Emitter) { e.localsStack = size }
}

// WithEscapingStack sets the escaping stack size in bytes.
func WithEscapingStack(size uint64) Option {
	return func(e *Emitter) { e.escapingStack = size }
}

// WithComments controls whether each expansion is preceded by a comment
// naming the op.
func WithComments(on bool) Option {
	return func(e *Emitter) { e.comments = on }
}

// Emitter writes assembly for lowered units.
type Emitter struct {
	returnStack   uint64
	localsStack   uint64
	escapingStack uint64
	comments      bool
}

// New returns an Emitter configured with the given options.
func New(opts ...Option) *Emitter {
	e := &Emitter{
		returnStack:   DefaultStackSize,
		localsStack:   DefaultStackSize,
		escapingStack: DefaultStackSize,
		comments:      true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Emit writes the assembly for unit to w with an emitter built from opts.
func Emit(w io.Writer, unit *lir.Unit, opts ...Option) error {
	return New(opts...).Emit(w, unit)
}

// Emit writes one assembly unit: code, then string data, then reserved
// storage. Only errors from w are reported.
func (e *Emitter) Emit(w io.Writer, unit *lir.Unit) error {
	out := &writer{w: bufio.NewWriter(w)}
	out.text(prologue)
	for _, o := range unit.Ops {
		e.op(out, unit, o)
	}
	out.text(runtime)

	out.line("section .data")
	for i, s := range unit.Strings {
		out.printf("str_%d:\n", i)
		out.printf("    db %s\n", byteList(s))
	}

	out.line("section .bss")
	out.line("    ret_stack_rsp: resq 1")
	out.line("    locals_rsp: resq 1")
	out.line("    escaping_rsp: resq 1")
	out.line("    args_count: resq 1")
	out.line("    args_vector: resq 1")
	out.line("    io_buf: resb 32")
	out.printf("    ret_stack: resb %d\n", e.returnStack)
	out.line("    ret_stack_end:")
	out.printf("    locals_stack: resb %d\n", e.localsStack)
	out.line("    locals_stack_end:")
	out.printf("    escaping_stack: resb %d\n", e.escapingStack)
	out.line("    escaping_stack_end:")
	for _, name := range unit.MemoryNames() {
		out.printf("    %s: resb %d\n", MemorySymbol(name), unit.Memory[name])
	}
	return out.flush()
}

// byteList renders s as a NUL terminated db operand list.
func byteList(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		b.WriteString(strconv.Itoa(int(s[i])))
		b.WriteString(",")
	}
	b.WriteString("0")
	return b.String()
}

// writer keeps the first write error and drops everything after it.
type writer struct {
	w   *bufio.Writer
	err error
}

func (w *writer) printf(format string, args ...any) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.w, format, args...)
}

func (w *writer) line(s string) {
	w.text(s + "\n")
}

func (w *writer) text(s string) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.WriteString(s)
}

func (w *writer) flush() error {
	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}
