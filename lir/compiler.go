package lir

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/quadlang/quad/ast"
	"github.com/quadlang/quad/errors"
	"github.com/quadlang/quad/internal/token"
	"github.com/quadlang/quad/op"
	"github.com/quadlang/quad/reach"
	"github.com/quadlang/quad/value"
)

// Evaluator runs a lowered unit to completion and returns the value left
// for EXIT. The compiler uses it to fold constant and memory size bodies.
type Evaluator interface {
	Evaluate(ctx context.Context, unit *Unit) (uint64, error)
}

// EvaluatorFunc adapts a function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, unit *Unit) (uint64, error)

// Evaluate calls f(ctx, unit).
func (f EvaluatorFunc) Evaluate(ctx context.Context, unit *Unit) (uint64, error) {
	return f(ctx, unit)
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithEvaluator sets the evaluator used for constant folding.
func WithEvaluator(e Evaluator) Option {
	return func(c *Compiler) { c.eval = e }
}

// WithLogger sets the logger used for folding and lowering traces.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

// WithSource attaches the program text so errors can quote the offending line.
func WithSource(source string) Option {
	return func(c *Compiler) { c.source = source }
}

// shared is the state common to a compiler and the sub-compilers it starts
// for folding.
type shared struct {
	prog    *ast.Program
	eval    Evaluator
	logger  zerolog.Logger
	source  string
	pending map[string]ast.Item // reachable consts and mems
	folded  map[string]value.Value
	folding map[string]bool
	failed  map[string]error
	strings []string
	memory  map[string]uint64
}

// Compiler lowers a program into a Unit.
type Compiler struct {
	*shared
	ctx     context.Context
	current string // procedure or constant being lowered
	label   int
	ops     []Op
	scope   []string // bind names, innermost last
}

// New returns a Compiler configured with the given options.
func New(opts ...Option) *Compiler {
	c := &Compiler{shared: &shared{logger: zerolog.Nop()}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile lowers a program with a compiler built from opts. When reachable
// is nil it is computed from the program.
func Compile(ctx context.Context, prog *ast.Program, reachable map[string]bool, opts ...Option) (*Unit, error) {
	return New(opts...).Compile(ctx, prog, reachable)
}

// Compile folds every reachable constant and memory size, then lowers every
// reachable procedure in source order behind a call to main.
func (c *Compiler) Compile(ctx context.Context, prog *ast.Program, reachable map[string]bool) (*Unit, error) {
	if reachable == nil {
		reachable = reach.Analyze(prog)
	}
	c.reset(ctx, prog)
	for _, name := range prog.Order {
		if !reachable[name] {
			continue
		}
		switch item := prog.Item(name).(type) {
		case *ast.Const, *ast.Mem:
			c.pending[name] = item
		}
	}
	if err := c.foldAll(); err != nil {
		return nil, err
	}

	c.ops = append(c.ops, Call(reach.Entry), Simple(op.Exit))
	for _, name := range prog.Order {
		proc, ok := prog.Item(name).(*ast.Proc)
		if !ok || !reachable[name] {
			continue
		}
		if err := c.compileProc(proc); err != nil {
			return nil, err
		}
	}
	return &Unit{Ops: c.ops, Strings: c.strings, Memory: c.memory}, nil
}

// Folded returns the folded value of a constant or the size of a memory
// region, if it has been folded.
func (c *Compiler) Folded(name string) (value.Value, bool) {
	v, ok := c.folded[name]
	return v, ok
}

// CompileConst folds the named constant or memory size on demand. Results
// are memoized, so a name is evaluated at most once.
func (c *Compiler) CompileConst(name string) (value.Value, error) {
	if v, ok := c.folded[name]; ok {
		return v, nil
	}
	if err, ok := c.failed[name]; ok {
		return value.Value{}, err
	}
	item, ok := c.pending[name]
	if !ok {
		return value.Value{}, &errors.CompileError{
			Code:    errors.E2014,
			Message: fmt.Sprintf("%q is not a reachable constant", name),
		}
	}
	if c.folding[name] {
		return value.Value{}, c.itemError(item, errors.E2011, nil,
			"constant %q depends on itself", name)
	}
	c.folding[name] = true
	defer delete(c.folding, name)

	v, err := c.foldRetry(name, item)
	if err != nil {
		c.failed[name] = err
		return value.Value{}, err
	}
	c.folded[name] = v
	if _, ok := item.(*ast.Mem); ok {
		c.memory[name] = v.Word()
	}
	c.logger.Debug().Str("name", name).Stringer("value", v).Msg("folded")
	return v, nil
}

// foldRetry folds item, folding a blocking dependency first and retrying
// once if evaluation reaches a constant that is not folded yet.
func (c *Compiler) foldRetry(name string, item ast.Item) (value.Value, error) {
	v, err := c.fold(item)
	if blocked, ok := asBlocked(err); ok {
		if _, isConst := c.pending[blocked.Name]; !isConst || blocked.Name == name {
			return value.Value{}, c.itemError(item, errors.E2012, err,
				"%q calls %q, which cannot run at compile time", name, blocked.Name)
		}
		c.logger.Debug().Str("name", name).Str("dependency", blocked.Name).
			Msg("folding dependency before retry")
		if _, err := c.CompileConst(blocked.Name); err != nil {
			return value.Value{}, err
		}
		v, err = c.fold(item)
		if blocked, ok := asBlocked(err); ok {
			return value.Value{}, c.itemError(item, errors.E2013, err,
				"folding %q is still blocked on %q after its dependency was folded", name, blocked.Name)
		}
	}
	if err != nil {
		var compileErr *errors.CompileError
		if errors.As(err, &compileErr) {
			return value.Value{}, err
		}
		return value.Value{}, c.itemError(item, errors.E2012, err,
			"cannot evaluate %q at compile time: %s", name, err)
	}
	return v, nil
}

func (c *Compiler) reset(ctx context.Context, prog *ast.Program) {
	c.ctx = ctx
	c.prog = prog
	c.pending = map[string]ast.Item{}
	c.folded = map[string]value.Value{}
	c.folding = map[string]bool{}
	c.failed = map[string]error{}
	c.strings = nil
	c.memory = map[string]uint64{}
	c.ops = nil
	c.scope = nil
	c.label = 0
}

// foldAll folds the pending items in dependency order.
func (c *Compiler) foldAll() error {
	graph := digraph{}
	for name, item := range c.pending {
		graph.add(name, reach.References(item))
	}
	order, cycle := graph.ordering()
	if len(cycle) > 0 {
		return c.itemError(c.pending[cycle[0]], errors.E2011, nil,
			"constant dependency cycle: %s", strings.Join(cycle, " -> "))
	}
	var result *multierror.Error
	reported := map[error]bool{}
	for _, name := range order {
		if _, err := c.CompileConst(name); err != nil && !reported[err] {
			reported[err] = true
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// fold lowers a constant or memory size body in a sub-compiler and
// evaluates it.
func (c *Compiler) fold(item ast.Item) (value.Value, error) {
	if c.eval == nil {
		return value.Value{}, fmt.Errorf("no evaluator configured")
	}
	sub := &Compiler{shared: c.shared, ctx: c.ctx, current: item.ItemName()}
	var body ast.Block
	typ := value.TypeUint
	switch it := item.(type) {
	case *ast.Const:
		body, typ = it.Body, it.Type
	case *ast.Mem:
		body = it.Size
	}
	if err := sub.compileBody(body); err != nil {
		return value.Value{}, err
	}
	sub.emit(Simple(op.Exit))
	unit := &Unit{Ops: sub.ops, Strings: c.strings, Memory: c.usedMemory(sub.ops)}
	c.logger.Trace().Str("name", item.ItemName()).Stringer("unit", unit).Msg("evaluating")
	bits, err := c.eval.Evaluate(c.ctx, unit)
	if err != nil {
		return value.Value{}, err
	}
	return value.FromBits(typ, bits)
}

// usedMemory returns the folded regions that ops push, so a fold only
// allocates the memory its body can reach.
func (c *Compiler) usedMemory(ops []Op) map[string]uint64 {
	used := map[string]uint64{}
	for _, o := range ops {
		if o.Code != op.PushMem {
			continue
		}
		if size, ok := c.memory[o.Name]; ok {
			used[o.Name] = size
		}
	}
	return used
}

func (c *Compiler) compileProc(proc *ast.Proc) error {
	c.current = proc.Name
	c.label = 0
	c.scope = nil
	c.emit(Proc(proc.Name))
	if err := c.compileBody(proc.Body); err != nil {
		return err
	}
	c.emit(Simple(op.Return))
	c.logger.Debug().Str("proc", proc.Name).Int("ops", len(c.ops)).Msg("lowered")
	return nil
}

func (c *Compiler) compileBody(block ast.Block) error {
	for _, node := range block {
		switch n := node.(type) {
		case *ast.Literal:
			c.emit(Push(n.Value))
		case *ast.String:
			c.emit(PushStr(len(c.strings)))
			c.strings = append(c.strings, n.Value)
		case *ast.Word:
			if err := c.compileWord(n.Name); err != nil {
				return err
			}
		case *ast.Intrinsic:
			if n.Kind == ast.CompStop {
				return nil
			}
			c.emit(Simple(intrinsicCode(n.Kind)))
		case *ast.If:
			if err := c.compileIf(n); err != nil {
				return err
			}
		case *ast.While:
			if err := c.compileWhile(n); err != nil {
				return err
			}
		case *ast.Bind:
			if err := c.compileBind(n); err != nil {
				return err
			}
		case *ast.Return:
			for range c.scope {
				c.emit(Simple(op.Unbind))
			}
			c.emit(Simple(op.Return))
		default:
			return fmt.Errorf("unexpected node %T", node)
		}
	}
	return nil
}

// compileWord resolves a word against the bind scope, then constants, then
// memory regions, and otherwise calls it as a procedure.
func (c *Compiler) compileWord(name string) error {
	if depth, ok := c.lookupBinding(name); ok {
		c.emit(UseBinding(depth))
		return nil
	}
	switch c.pending[name].(type) {
	case *ast.Const:
		v, err := c.CompileConst(name)
		if err != nil {
			return err
		}
		c.emit(Push(v))
		return nil
	case *ast.Mem:
		c.emit(PushMem(name))
		return nil
	}
	c.emit(Call(name))
	return nil
}

func (c *Compiler) compileIf(n *ast.If) error {
	skip := c.newLabel()
	c.emit(JumpF(skip))
	if err := c.compileBody(n.Then); err != nil {
		return err
	}
	if !n.HasElse() {
		c.emit(Label(skip))
		return nil
	}
	end := c.newLabel()
	c.emit(Jump(end))
	c.emit(Label(skip))
	if err := c.compileBody(n.Else); err != nil {
		return err
	}
	c.emit(Label(end))
	return nil
}

func (c *Compiler) compileWhile(n *ast.While) error {
	top := c.newLabel()
	exit := c.newLabel()
	c.emit(Label(top))
	if err := c.compileBody(n.Cond); err != nil {
		return err
	}
	c.emit(JumpF(exit))
	if err := c.compileBody(n.Body); err != nil {
		return err
	}
	c.emit(Jump(top))
	c.emit(Label(exit))
	return nil
}

// compileBind moves the bound values onto the return stack. The last
// binding takes the top of the operand stack, so bindings are processed
// from right to left.
func (c *Compiler) compileBind(n *ast.Bind) error {
	mark := len(c.scope)
	named := 0
	for i := len(n.Bindings) - 1; i >= 0; i-- {
		b := n.Bindings[i]
		if b.Ignore {
			c.emit(Simple(op.Drop))
			continue
		}
		c.emit(Simple(op.Bind))
		c.scope = append(c.scope, b.Name)
		named++
	}
	err := c.compileBody(n.Body)
	for i := 0; i < named; i++ {
		c.emit(Simple(op.Unbind))
	}
	c.scope = c.scope[:mark]
	return err
}

// lookupBinding returns how many slots below the top of the return stack
// the innermost binding of name lives.
func (c *Compiler) lookupBinding(name string) (int, bool) {
	for i := len(c.scope) - 1; i >= 0; i-- {
		if c.scope[i] == name {
			return len(c.scope) - 1 - i, true
		}
	}
	return 0, false
}

func (c *Compiler) newLabel() string {
	label := fmt.Sprintf(".%s%d", c.current, c.label)
	c.label++
	return label
}

func (c *Compiler) emit(o Op) {
	c.ops = append(c.ops, o)
}

func (c *Compiler) itemError(item ast.Item, code errors.ErrorCode, cause error, format string, args ...any) *errors.CompileError {
	e := &errors.CompileError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     cause,
	}
	if item == nil {
		return e
	}
	pos := item.Pos()
	e.Filename = pos.File
	e.Line = pos.LineNumber()
	e.Column = pos.ColumnNumber()
	e.SourceLine = c.sourceLine(pos)
	return e
}

func (c *Compiler) sourceLine(pos token.Position) string {
	if c.source == "" || pos.LineStart < 0 || pos.LineStart > len(c.source) {
		return ""
	}
	line := c.source[pos.LineStart:]
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimRight(line, "\r")
}

func asBlocked(err error) (*BlockedError, bool) {
	var blocked *BlockedError
	if err != nil && errors.As(err, &blocked) {
		return blocked, true
	}
	return nil, false
}

var intrinsicCodes = map[ast.IntrinsicKind]op.Code{
	ast.Drop:     op.Drop,
	ast.Dup:      op.Dup,
	ast.Swap:     op.Swap,
	ast.Over:     op.Over,
	ast.Dump:     op.Dump,
	ast.Print:    op.Print,
	ast.PutC:     op.PutC,
	ast.Add:      op.Add,
	ast.Sub:      op.Sub,
	ast.Mul:      op.Mul,
	ast.Divmod:   op.Divmod,
	ast.Eq:       op.Eq,
	ast.Ne:       op.Ne,
	ast.Lt:       op.Lt,
	ast.Le:       op.Le,
	ast.Gt:       op.Gt,
	ast.Ge:       op.Ge,
	ast.ReadU8:   op.ReadU8,
	ast.WriteU8:  op.WriteU8,
	ast.ReadU64:  op.ReadU64,
	ast.WriteU64: op.WriteU64,
	ast.PtrAdd:   op.Add,
	ast.PtrSub:   op.Sub,
	ast.Argc:     op.Argc,
	ast.Argv:     op.Argv,
}

func intrinsicCode(kind ast.IntrinsicKind) op.Code {
	if arity := kind.SyscallArity(); arity >= 0 {
		return op.Syscall(arity)
	}
	return intrinsicCodes[kind]
}
