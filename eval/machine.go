// Package eval interprets lowered quad code. It runs whole programs for
// `quadc run` and evaluates constant bodies while compiling.
package eval

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/quadlang/quad/errors"
	"github.com/quadlang/quad/lir"
	"github.com/quadlang/quad/op"
	"github.com/quadlang/quad/value"
)

const (
	// DefaultStackSize is the default size in bytes of the return, locals
	// and escaping stacks.
	DefaultStackSize = 64 * 1024

	// DefaultMaxStackDepth is the default operand stack bound, in values.
	DefaultMaxStackDepth = 1 << 20

	// DefaultContextCheckInterval is the number of instructions between
	// checks of ctx.Done().
	DefaultContextCheckInterval = 1000
)

type frame struct {
	name     string
	callSite int
}

// Machine executes one lowered unit.
type Machine struct {
	stdout               io.Writer
	stderr               io.Writer
	stdin                io.Reader
	args                 []string
	stepLimit            int
	contextCheckInterval int
	maxStackDepth        int
	returnStackSize      uint64
	localsStackSize      uint64
	escapingStackSize    uint64
	observer             Observer
	logger               zerolog.Logger

	unit    *lir.Unit
	procs   map[string]int
	labels  map[string]map[string]int // labels by owning procedure
	owner   []string                  // owning procedure of each op
	mem     []byte
	strs    []uint64 // string pool addresses
	regions map[string]uint64
	argv    uint64
	locals  stackRegion

	escaping stackRegion

	pc     int
	steps  int
	stack  []uint64
	ret    []uint64
	frames []frame
}

// New loads a unit into a fresh machine.
func New(unit *lir.Unit, options ...Option) (*Machine, error) {
	m := &Machine{
		stdout:               io.Discard,
		stderr:               io.Discard,
		stdin:                strings.NewReader(""),
		contextCheckInterval: DefaultContextCheckInterval,
		maxStackDepth:        DefaultMaxStackDepth,
		returnStackSize:      DefaultStackSize,
		localsStackSize:      DefaultStackSize,
		escapingStackSize:    DefaultStackSize,
		logger:               zerolog.Nop(),
		unit:                 unit,
	}
	for _, opt := range options {
		opt(m)
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

// Evaluate runs a unit from its first instruction until EXIT and returns
// the exit value.
func Evaluate(ctx context.Context, unit *lir.Unit, options ...Option) (uint64, error) {
	m, err := New(unit, options...)
	if err != nil {
		return 0, err
	}
	return m.Run(ctx)
}

// Folder evaluates constant bodies for the compiler.
type Folder struct {
	Options []Option
}

// NewFolder returns a Folder that runs units with the given options.
func NewFolder(options ...Option) *Folder {
	return &Folder{Options: options}
}

// Evaluate implements lir.Evaluator.
func (f *Folder) Evaluate(ctx context.Context, unit *lir.Unit) (uint64, error) {
	return Evaluate(ctx, unit, f.Options...)
}

var _ lir.Evaluator = (*Folder)(nil)

func (m *Machine) load() error {
	ops := m.unit.Ops
	m.procs = map[string]int{}
	m.labels = map[string]map[string]int{"": {}}
	m.owner = make([]string, len(ops))
	current := ""
	for i, o := range ops {
		switch o.Code {
		case op.Proc:
			if _, dup := m.procs[o.Name]; dup {
				return &errors.RuntimeError{
					Code:    errors.E3007,
					Message: fmt.Sprintf("procedure %q is defined twice", o.Name),
				}
			}
			current = o.Name
			m.procs[current] = i
			m.labels[current] = map[string]int{}
		case op.Label:
			m.labels[current][o.Name] = i
		}
		m.owner[i] = current
	}

	for _, s := range m.unit.Strings {
		addr, err := m.cstring(s)
		if err != nil {
			return err
		}
		m.strs = append(m.strs, addr)
	}
	m.regions = map[string]uint64{}
	for _, name := range m.unit.MemoryNames() {
		addr, err := m.alloc(m.unit.Memory[name])
		if err != nil {
			return err
		}
		m.regions[name] = addr
	}
	argv, err := m.alloc(8 * uint64(len(m.args)+1))
	if err != nil {
		return err
	}
	m.argv = argv
	for i, arg := range m.args {
		addr, err := m.cstring(arg)
		if err != nil {
			return err
		}
		if err := m.writeU64(argv+8*uint64(i), addr); err != nil {
			return err
		}
	}
	if m.locals, err = m.newStackRegion("locals", m.localsStackSize); err != nil {
		return err
	}
	if m.escaping, err = m.newStackRegion("escaping", m.escapingStackSize); err != nil {
		return err
	}
	return nil
}

// Run executes until EXIT, an exit syscall, or an error.
func (m *Machine) Run(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	ops := m.unit.Ops
	doneChan := ctx.Done()
	var count int
	for {
		if m.pc < 0 || m.pc >= len(ops) {
			return 0, m.fail(errors.E3007, "execution ran past the end of the program")
		}
		if m.contextCheckInterval > 0 && doneChan != nil {
			count++
			if count >= m.contextCheckInterval {
				count = 0
				select {
				case <-doneChan:
					return 0, ctx.Err()
				default:
				}
			}
		}
		m.steps++
		if m.stepLimit > 0 && m.steps > m.stepLimit {
			return 0, m.fail(errors.E3013, "step limit of %d exceeded", m.stepLimit)
		}
		o := ops[m.pc]
		if m.observer != nil {
			event := StepEvent{
				Offset:      m.pc,
				Opcode:      o.Code,
				StackDepth:  len(m.stack),
				ReturnDepth: len(m.ret),
				FrameDepth:  len(m.frames),
			}
			if !m.observer.OnStep(event) {
				return 0, fmt.Errorf("execution halted by observer")
			}
		}

		// Advance before executing, so jumps and calls overwrite pc.
		m.pc++
		exit, done, err := m.step(o)
		if err != nil {
			return 0, err
		}
		if done {
			m.logger.Debug().Int("steps", m.steps).Uint64("exit", exit).Msg("evaluation finished")
			return exit, nil
		}
	}
}

// Stack returns a copy of the operand stack, bottom first.
func (m *Machine) Stack() []uint64 {
	return append([]uint64(nil), m.stack...)
}

// Steps returns the number of instructions executed so far.
func (m *Machine) Steps() int {
	return m.steps
}

// MemoryAddress returns the address of a static memory region.
func (m *Machine) MemoryAddress(name string) (uint64, bool) {
	addr, ok := m.regions[name]
	return addr, ok
}

// Read returns a copy of n bytes of memory at addr.
func (m *Machine) Read(addr, n uint64) ([]byte, error) {
	b, err := m.bytes(addr, n)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b...), nil
}

func (m *Machine) step(o lir.Op) (uint64, bool, error) {
	info := op.GetInfo(o.Code)
	if len(m.stack) < info.Pops {
		return 0, false, m.fail(errors.E3011, "stack underflow: %s needs %d values, have %d",
			info.Name, info.Pops, len(m.stack))
	}
	if len(m.stack)-info.Pops+info.Pushes > m.maxStackDepth {
		return 0, false, m.fail(errors.E3006, "stack overflow")
	}

	switch o.Code {
	case op.Proc, op.Label, op.Dump:
	case op.Call:
		target, ok := m.procs[o.Name]
		if !ok {
			return 0, false, &lir.BlockedError{Name: o.Name}
		}
		if err := m.pushRet(uint64(m.pc)); err != nil {
			return 0, false, err
		}
		m.frames = append(m.frames, frame{name: o.Name, callSite: m.pc - 1})
		m.pc = target
		if m.observer != nil && !m.observer.OnCall(CallEvent{Name: o.Name, Offset: m.pc - 1, FrameDepth: len(m.frames)}) {
			return 0, false, fmt.Errorf("execution halted by observer")
		}
	case op.Return:
		addr, err := m.popRet()
		if err != nil {
			return 0, false, err
		}
		name := ""
		if n := len(m.frames); n > 0 {
			name = m.frames[n-1].name
			m.frames = m.frames[:n-1]
		}
		m.pc = int(addr)
		if m.observer != nil && !m.observer.OnReturn(ReturnEvent{Name: name, FrameDepth: len(m.frames)}) {
			return 0, false, fmt.Errorf("execution halted by observer")
		}
	case op.Exit:
		return m.pop(), true, nil
	case op.Jump:
		target, err := m.label(o.Name)
		if err != nil {
			return 0, false, err
		}
		m.pc = target
	case op.JumpF:
		target, err := m.label(o.Name)
		if err != nil {
			return 0, false, err
		}
		if m.pop() == 0 {
			m.pc = target
		}

	case op.Push:
		w, err := m.word(o.Value)
		if err != nil {
			return 0, false, err
		}
		m.push(w)
	case op.PushStr:
		if o.Arg >= uint64(len(m.strs)) {
			return 0, false, m.fail(errors.E3007, "string %d is not in the pool", o.Arg)
		}
		m.push(uint64(len(m.unit.Strings[o.Arg])))
		m.push(m.strs[o.Arg])
	case op.PushMem:
		addr, ok := m.regions[o.Name]
		if !ok {
			return 0, false, m.fail(errors.E3007, "unknown memory region %q", o.Name)
		}
		m.push(addr)

	case op.Drop:
		m.pop()
	case op.Dup:
		m.push(m.peek(0))
	case op.Swap:
		b, a := m.pop(), m.pop()
		m.push(b)
		m.push(a)
	case op.Over:
		m.push(m.peek(1))

	case op.ReadU8, op.ReadU64:
		addr := m.pop()
		read := m.readU8
		if o.Code == op.ReadU64 {
			read = m.readU64
		}
		v, err := read(addr)
		if err != nil {
			return 0, false, err
		}
		m.push(v)
	case op.WriteU8, op.WriteU64:
		addr, v := m.pop(), m.pop()
		write := m.writeU8
		if o.Code == op.WriteU64 {
			write = m.writeU64
		}
		if err := write(addr, v); err != nil {
			return 0, false, err
		}

	case op.Print:
		if _, err := fmt.Fprintf(m.stdout, "%d\n", m.pop()); err != nil {
			return 0, false, m.fail(errors.E3007, "print: %s", err).WithCause(err)
		}
	case op.PutC:
		if _, err := m.stdout.Write([]byte{byte(m.pop())}); err != nil {
			return 0, false, m.fail(errors.E3007, "putc: %s", err).WithCause(err)
		}
	case op.Syscall0, op.Syscall1, op.Syscall2, op.Syscall3, op.Syscall4, op.Syscall5, op.Syscall6:
		return m.syscall(o.Code.SyscallArity())
	case op.Argc:
		m.push(uint64(len(m.args)))
	case op.Argv:
		m.push(m.argv)

	case op.Add:
		b, a := m.pop(), m.pop()
		m.push(a + b)
	case op.Sub:
		b, a := m.pop(), m.pop()
		m.push(a - b)
	case op.Mul:
		b, a := m.pop(), m.pop()
		m.push(a * b)
	case op.Divmod:
		b, a := m.pop(), m.pop()
		if b == 0 {
			return 0, false, m.fail(errors.E3002, "division by zero")
		}
		m.push(a / b)
		m.push(a % b)
	case op.Eq, op.Ne, op.Lt, op.Le, op.Gt, op.Ge:
		b, a := int64(m.pop()), int64(m.pop())
		m.push(boolWord(compare(o.Code, a, b)))

	case op.Bind:
		if err := m.pushRet(m.pop()); err != nil {
			return 0, false, err
		}
	case op.UseBinding:
		if o.Arg >= uint64(len(m.ret)) {
			return 0, false, m.fail(errors.E3011, "binding %d is not on the return stack", o.Arg)
		}
		m.push(m.ret[uint64(len(m.ret))-1-o.Arg])
	case op.Unbind:
		if _, err := m.popRet(); err != nil {
			return 0, false, err
		}

	case op.ReserveLocals:
		return 0, false, m.reserve(&m.locals, o.Arg)
	case op.FreeLocals:
		return 0, false, m.free(&m.locals, o.Arg)
	case op.LocalAddr:
		m.push(m.locals.cursor + o.Arg)
	case op.ReserveEscaping:
		return 0, false, m.reserve(&m.escaping, o.Arg)
	case op.EscapingAddr:
		m.push(m.escaping.cursor + o.Arg)

	default:
		return 0, false, m.fail(errors.E3007, "invalid opcode %d", o.Code)
	}
	return 0, false, nil
}

// word converts an immediate to the machine word it pushes.
func (m *Machine) word(v value.Value) (uint64, error) {
	switch v.Kind {
	case value.Str:
		if v.Index() >= len(m.strs) {
			return 0, m.fail(errors.E3007, "string %d is not in the pool", v.Index())
		}
		return m.strs[v.Index()], nil
	case value.Ptr:
		addr, ok := m.regions[v.Ref]
		if !ok {
			return 0, m.fail(errors.E3007, "unknown memory region %q", v.Ref)
		}
		return addr, nil
	case value.Bool, value.U64, value.I64:
		return v.Word(), nil
	}
	return 0, m.fail(errors.E3007, "invalid immediate %s", v)
}

func (m *Machine) label(name string) (int, error) {
	owner := ""
	if m.pc > 0 {
		owner = m.owner[m.pc-1]
	}
	target, ok := m.labels[owner][name]
	if !ok {
		return 0, m.fail(errors.E3007, "unknown label %q", name)
	}
	return target, nil
}

func (m *Machine) push(v uint64) {
	m.stack = append(m.stack, v)
}

func (m *Machine) pop() uint64 {
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v
}

func (m *Machine) peek(depth int) uint64 {
	return m.stack[len(m.stack)-1-depth]
}

func (m *Machine) pushRet(v uint64) error {
	if uint64(len(m.ret)+1)*8 > m.returnStackSize {
		return m.fail(errors.E3006, "return stack overflow")
	}
	m.ret = append(m.ret, v)
	return nil
}

func (m *Machine) popRet() (uint64, error) {
	if len(m.ret) == 0 {
		return 0, m.fail(errors.E3011, "return stack underflow")
	}
	v := m.ret[len(m.ret)-1]
	m.ret = m.ret[:len(m.ret)-1]
	return v, nil
}

// captureStack lists the active procedures, innermost first, ending with
// the entry code.
func (m *Machine) captureStack() []errors.StackFrame {
	offset := m.pc - 1
	if offset < 0 {
		offset = 0
	}
	frames := make([]errors.StackFrame, 0, len(m.frames)+1)
	for i := len(m.frames) - 1; i >= 0; i-- {
		frames = append(frames, errors.StackFrame{Function: m.frames[i].name, Offset: offset})
		offset = m.frames[i].callSite
	}
	return append(frames, errors.StackFrame{Offset: offset})
}

func (m *Machine) fail(code errors.ErrorCode, format string, args ...any) *errors.RuntimeError {
	offset := m.pc - 1
	name := ""
	if offset >= 0 && offset < len(m.unit.Ops) {
		name = m.unit.Ops[offset].Code.String()
	} else if offset < 0 {
		offset = 0
	}
	return errors.NewRuntimeError(code, offset, name, m.captureStack(), format, args...)
}

func compare(code op.Code, a, b int64) bool {
	switch code {
	case op.Eq:
		return a == b
	case op.Ne:
		return a != b
	case op.Lt:
		return a < b
	case op.Le:
		return a <= b
	case op.Gt:
		return a > b
	}
	return a >= b
}

func boolWord(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
