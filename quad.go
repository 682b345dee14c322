// Package quad compiles quad programs into NASM x86-64 assembly.
//
// The pipeline is parse, reachability, lowering into LIR with constant
// folding, then code generation. Run executes the lowered program with the
// LIR evaluator instead of assembling it.
package quad

import (
	"context"
	"io"

	"github.com/quadlang/quad/ast"
	"github.com/quadlang/quad/emit"
	"github.com/quadlang/quad/eval"
	"github.com/quadlang/quad/lir"
	"github.com/quadlang/quad/parser"
	"github.com/quadlang/quad/reach"
)

// Parse parses source code into a program.
func Parse(ctx context.Context, source string, opts ...Option) (*ast.Program, error) {
	o := collectOptions(opts...)
	return parser.Parse(ctx, source, o.parserOpts()...)
}

// Compile parses source code and lowers every item reachable from main.
// Constants and memory sizes are folded with the LIR evaluator.
func Compile(ctx context.Context, source string, opts ...Option) (*lir.Unit, error) {
	o := collectOptions(opts...)
	return compile(ctx, source, o)
}

func compile(ctx context.Context, source string, o *options) (*lir.Unit, error) {
	prog, err := parser.Parse(ctx, source, o.parserOpts()...)
	if err != nil {
		return nil, err
	}
	reachable := reach.Analyze(prog)
	o.logger.Debug().
		Str("file", o.filename).
		Int("items", len(prog.Order)).
		Int("reachable", len(reachable)).
		Msg("parsed program")
	unit, err := lir.Compile(ctx, prog, reachable, o.compilerOpts(source)...)
	if err != nil {
		return nil, err
	}
	o.logger.Debug().
		Int("ops", len(unit.Ops)).
		Int("strings", len(unit.Strings)).
		Int("memory", len(unit.Memory)).
		Msg("lowered program")
	return unit, nil
}

// Build compiles source code and writes the NASM assembly to w. Nothing is
// written when compilation fails.
func Build(ctx context.Context, source string, w io.Writer, opts ...Option) error {
	o := collectOptions(opts...)
	unit, err := compile(ctx, source, o)
	if err != nil {
		return err
	}
	return emit.Emit(w, unit, o.emitOpts()...)
}

// Run compiles source code and executes it with the LIR evaluator. It
// returns the value main leaves on the operand stack, which is the process
// exit status of the assembled program.
func Run(ctx context.Context, source string, opts ...Option) (uint64, error) {
	o := collectOptions(opts...)
	unit, err := compile(ctx, source, o)
	if err != nil {
		return 0, err
	}
	return eval.Evaluate(ctx, unit, o.evalOpts()...)
}
