package lir_test

import (
	"context"
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quadlang/quad/ast"
	"github.com/quadlang/quad/errors"
	"github.com/quadlang/quad/eval"
	"github.com/quadlang/quad/lir"
	"github.com/quadlang/quad/op"
	"github.com/quadlang/quad/parser"
	"github.com/quadlang/quad/value"
)

func parse(t *testing.T, source string) *ast.Program {
	t.Helper()
	prog, err := parser.Parse(context.Background(), source)
	require.NoError(t, err)
	return prog
}

func compile(t *testing.T, source string) *lir.Unit {
	t.Helper()
	unit, err := lir.Compile(context.Background(), parse(t, source), nil, lir.WithEvaluator(eval.NewFolder()))
	require.NoError(t, err)
	return unit
}

func compileErr(t *testing.T, source string) *errors.CompileError {
	t.Helper()
	_, err := lir.Compile(context.Background(), parse(t, source), nil,
		lir.WithEvaluator(eval.NewFolder()), lir.WithSource(source))
	require.Error(t, err)
	var cerr *errors.CompileError
	require.True(t, errors.As(err, &cerr), "expected *errors.CompileError, got %T", err)
	return cerr
}

// procOps returns the ops between "proc name" and the next proc marker.
func procOps(unit *lir.Unit, name string) []string {
	var out []string
	inside := false
	for _, o := range unit.Ops {
		if o.Code == op.Proc {
			inside = o.Name == name
		}
		if inside {
			out = append(out, o.String())
		}
	}
	return out
}

func TestLowerSimpleProgram(t *testing.T) {
	unit := compile(t, "proc main do 1 2 + print end")
	assert.Equal(t, "[call main, exit, proc main, push U64(1), push U64(2), add, print, return]", unit.String())
	assert.Empty(t, unit.Strings)
	assert.Empty(t, unit.Memory)
}

func TestConstFolding(t *testing.T) {
	unit := compile(t, "const N : uint do 2 3 + end\nproc main do N print end")
	assert.Equal(t, []string{"proc main", "push U64(5)", "print", "return"}, procOps(unit, "main"))
}

func TestConstTypes(t *testing.T) {
	unit := compile(t, `
const B : bool do 7 end
const I : int do 0 1 - end
const U : uint do 2 3 < end
proc main do B I U end`)
	assert.Equal(t,
		[]string{"proc main", "push Bool(true)", "push I64(-1)", "push U64(1)", "return"},
		procOps(unit, "main"))
}

func TestConstDependsOnConst(t *testing.T) {
	unit := compile(t, `
proc main do C print end
const C : uint do B 2 * end
const B : uint do A A + end
const A : uint do 5 end`)
	assert.Equal(t, []string{"proc main", "push U64(20)", "print", "return"}, procOps(unit, "main"))
}

func TestConstUsingControlFlowAndBind(t *testing.T) {
	unit := compile(t, `
const F : uint do 1 5 while dup 0 > do bind acc n do acc n * n 1 - end end drop end
proc main do F print end`)
	assert.Equal(t, []string{"proc main", "push U64(120)", "print", "return"}, procOps(unit, "main"))
}

func TestMemSizes(t *testing.T) {
	unit := compile(t, `
const N : uint do 4 end
mem buf do N 8 * end
mem unused do 1 end
proc main do buf drop end`)
	assert.Equal(t, map[string]uint64{"buf": 32}, unit.Memory)
	assert.Equal(t, []string{"buf"}, unit.MemoryNames())
	assert.Equal(t, []string{"proc main", "push_mem buf", "drop", "return"}, procOps(unit, "main"))
}

func TestLargeMemDoesNotBlockLaterFolds(t *testing.T) {
	unit := compile(t, `
mem buf do 1073741824 end
const Z : uint do 7 end
proc main do buf drop Z print end`)
	assert.Equal(t, map[string]uint64{"buf": 1 << 30}, unit.Memory)
	assert.Equal(t, []string{"proc main", "push_mem buf", "drop", "push U64(7)", "print", "return"},
		procOps(unit, "main"))
}

func TestFoldSeesOnlyReferencedMemory(t *testing.T) {
	seen := map[string][]string{}
	folder := eval.NewFolder()
	var evaluator lir.EvaluatorFunc = func(ctx context.Context, unit *lir.Unit) (uint64, error) {
		var key string
		for _, o := range unit.Ops {
			if o.Code == op.Push {
				key = o.String()
				break
			}
		}
		seen[key] = unit.MemoryNames()
		return folder.Evaluate(ctx, unit)
	}
	_, err := lir.Compile(context.Background(), parse(t, `
mem a do 16 end
mem b do 32 end
const P : uint do 3 a drop end
const Q : uint do 4 end
proc main do a b P Q end`), nil, lir.WithEvaluator(evaluator))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, seen["push U64(3)"])
	assert.Empty(t, seen["push U64(4)"])
}

func TestUnreachableItemsAreSkipped(t *testing.T) {
	unit := compile(t, `
proc helper do 1 0 divmod end
const Bad : uint do 1 0 divmod drop end
proc main do end`)
	assert.Equal(t, "[call main, exit, proc main, return]", unit.String())
}

func TestProceduresInSourceOrder(t *testing.T) {
	unit := compile(t, "proc b do end proc main do a b end proc a do end")
	var procs []string
	for _, o := range unit.Ops {
		if o.Code == op.Proc {
			procs = append(procs, o.Name)
		}
	}
	assert.Equal(t, []string{"b", "main", "a"}, procs)
}

func TestIfLowering(t *testing.T) {
	unit := compile(t, "proc main do true if 1 end end")
	assert.Equal(t, []string{
		"proc main", "push Bool(true)", "jump_f .main0", "push U64(1)", "label .main0", "return",
	}, procOps(unit, "main"))

	unit = compile(t, "proc main do true if 1 else 2 end end")
	assert.Equal(t, []string{
		"proc main", "push Bool(true)",
		"jump_f .main0", "push U64(1)", "jump .main1",
		"label .main0", "push U64(2)", "label .main1",
		"return",
	}, procOps(unit, "main"))
}

func TestWhileLowering(t *testing.T) {
	unit := compile(t, "proc main do while true do 1 drop end end")
	assert.Equal(t, []string{
		"proc main",
		"label .main0", "push Bool(true)", "jump_f .main1",
		"push U64(1)", "drop", "jump .main0",
		"label .main1",
		"return",
	}, procOps(unit, "main"))
}

func TestLabelsAreDistinctWithinProcedure(t *testing.T) {
	unit := compile(t, `
proc other do true if end end
proc main do
  true if 1 else 2 end
  while false do true if end end
  other
end`)
	seen := map[string]map[string]bool{}
	current := ""
	for _, o := range unit.Ops {
		switch o.Code {
		case op.Proc:
			current = o.Name
			seen[current] = map[string]bool{}
		case op.Label:
			assert.False(t, seen[current][o.Name], "label %s declared twice in %s", o.Name, current)
			seen[current][o.Name] = true
			assert.True(t, strings.HasPrefix(o.Name, "."+current))
		}
	}
	assert.Len(t, seen["main"], 5)
	assert.Equal(t, map[string]bool{".other0": true}, seen["other"])
}

func TestBindLowering(t *testing.T) {
	unit := compile(t, "proc main do 1 2 3 bind a _ c do a c end end")
	assert.Equal(t, []string{
		"proc main", "push U64(1)", "push U64(2)", "push U64(3)",
		"bind", "drop", "bind",
		"use_binding 0", "use_binding 1",
		"unbind", "unbind",
		"return",
	}, procOps(unit, "main"))
}

func TestBindShadowing(t *testing.T) {
	unit := compile(t, "proc main do 1 2 bind a b do 3 bind a do a b end a end end")
	assert.Equal(t, []string{
		"proc main", "push U64(1)", "push U64(2)",
		"bind", "bind",
		"push U64(3)", "bind",
		"use_binding 0", "use_binding 2",
		"unbind",
		"use_binding 0",
		"unbind", "unbind",
		"return",
	}, procOps(unit, "main"))
}

func TestBindingShadowsConstAndProc(t *testing.T) {
	unit := compile(t, "const N : uint do 9 end proc f do end proc main do 1 2 bind N f do N f end N f end")
	assert.Equal(t, []string{
		"proc main", "push U64(1)", "push U64(2)",
		"bind", "bind",
		"use_binding 0", "use_binding 1",
		"unbind", "unbind",
		"push U64(9)", "call f",
		"return",
	}, procOps(unit, "main"))
}

func TestReturnUnbindsScope(t *testing.T) {
	unit := compile(t, "proc main do 1 2 bind a b do 3 bind c do return end end end")
	assert.Equal(t, []string{
		"proc main", "push U64(1)", "push U64(2)",
		"bind", "bind",
		"push U64(3)", "bind",
		"unbind", "unbind", "unbind", "return",
		"unbind",
		"unbind", "unbind",
		"return",
	}, procOps(unit, "main"))
}

func TestStringPool(t *testing.T) {
	unit := compile(t, `proc main do "a" "b" "a" end`)
	assert.Equal(t, []string{"a", "b", "a"}, unit.Strings)
	assert.Equal(t, []string{"proc main", "push_str 0", "push_str 1", "push_str 2", "return"}, procOps(unit, "main"))
}

func TestCompStopAbandonsBlock(t *testing.T) {
	unit := compile(t, "proc main do 1 true if 2 &?& 3 end 4 &?& 5 end")
	assert.Equal(t, []string{
		"proc main", "push U64(1)", "push Bool(true)",
		"jump_f .main0", "push U64(2)", "label .main0",
		"push U64(4)",
		"return",
	}, procOps(unit, "main"))
}

func TestIntrinsicMapping(t *testing.T) {
	unit := compile(t, "proc main do &? ptr+ ptr- syscall3 argc argv putc @u64 !u64 end")
	assert.Equal(t, []string{
		"proc main", "dump", "add", "sub", "syscall3", "argc", "argv", "putc",
		"read_u64", "write_u64", "return",
	}, procOps(unit, "main"))
}

func TestUnknownWordIsCall(t *testing.T) {
	unit := compile(t, "proc main do external end")
	assert.Equal(t, []string{"proc main", "call external", "return"}, procOps(unit, "main"))
}

func TestMissingMainStillCallsMain(t *testing.T) {
	unit := compile(t, "proc helper do end")
	assert.Equal(t, "[call main, exit]", unit.String())
}

func TestStraightLineStackDepth(t *testing.T) {
	unit := compile(t, "proc main do 1 2 over + swap drop dup * 10 divmod + print end")
	depth := 0
	for _, o := range procBody(unit, "main") {
		info := op.GetInfo(o.Code)
		depth -= info.Pops
		require.GreaterOrEqual(t, depth, 0, "stack underflow at %s", o)
		depth += info.Pushes
	}
	assert.Equal(t, 0, depth)
}

// procBody returns the ops of a procedure without its markers.
func procBody(unit *lir.Unit, name string) []lir.Op {
	var out []lir.Op
	inside := false
	for _, o := range unit.Ops {
		if o.Code == op.Proc {
			inside = o.Name == name
			continue
		}
		if inside && o.Code != op.Return {
			out = append(out, o)
		}
	}
	return out
}

func TestConstCycle(t *testing.T) {
	cerr := compileErr(t, `
const A : uint do B end
const B : uint do C end
const C : uint do A end
proc main do A end`)
	assert.Equal(t, errors.E2011, cerr.Code)
	assert.Equal(t, "constant dependency cycle: A -> B -> C -> A", cerr.Message)
	assert.Equal(t, 2, cerr.Line)
	assert.Equal(t, "const A : uint do B end", cerr.SourceLine)
}

func TestConstSelfReference(t *testing.T) {
	cerr := compileErr(t, "const A : uint do A 1 + end proc main do A end")
	assert.Equal(t, errors.E2011, cerr.Code)
	assert.Contains(t, cerr.Message, "A -> A")
}

func TestConstCallingProcedure(t *testing.T) {
	cerr := compileErr(t, "proc five do 5 end const N : uint do five end proc main do N end")
	assert.Equal(t, errors.E2012, cerr.Code)
	assert.Contains(t, cerr.Message, `"N" calls "five"`)
	var blocked *lir.BlockedError
	assert.True(t, errors.As(cerr, &blocked))
}

func TestConstEvaluationFailure(t *testing.T) {
	cerr := compileErr(t, "const N : uint do 1 0 divmod drop end proc main do N end")
	assert.Equal(t, errors.E2012, cerr.Code)
	var rerr *errors.RuntimeError
	require.True(t, errors.As(cerr, &rerr))
	assert.Equal(t, errors.E3002, rerr.Code)
}

func TestPtrConstIsRejected(t *testing.T) {
	cerr := compileErr(t, "const P : ptr do 1 end proc main do P end")
	assert.Equal(t, errors.E2012, cerr.Code)
}

func TestFoldErrorsAreCollected(t *testing.T) {
	source := `
const A : uint do 1 0 divmod end
const B : uint do + end
const C : uint do A 1 + end
proc main do A B C end`
	_, err := lir.Compile(context.Background(), parse(t, source), nil, lir.WithEvaluator(eval.NewFolder()))
	require.Error(t, err)
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	// C fails because A failed, which is reported once.
	assert.Len(t, merr.Errors, 2)
}

func TestNoEvaluator(t *testing.T) {
	_, err := lir.Compile(context.Background(), parse(t, "const N : uint do 1 end proc main do N end"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no evaluator configured")
}

type countingEvaluator struct {
	inner lir.Evaluator
	calls int
}

func (c *countingEvaluator) Evaluate(ctx context.Context, unit *lir.Unit) (uint64, error) {
	c.calls++
	return c.inner.Evaluate(ctx, unit)
}

func TestFoldingIsMemoized(t *testing.T) {
	counter := &countingEvaluator{inner: eval.NewFolder()}
	c := lir.New(lir.WithEvaluator(counter))
	_, err := c.Compile(context.Background(), parse(t, `
const A : uint do 21 end
const B : uint do A A + end
proc main do A B A B end`), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, counter.calls)

	v, err := c.CompileConst("B")
	require.NoError(t, err)
	assert.Equal(t, value.NewU64(42), v)
	assert.Equal(t, 2, counter.calls)

	folded, ok := c.Folded("A")
	assert.True(t, ok)
	assert.Equal(t, value.NewU64(21), folded)

	_, err = c.CompileConst("missing")
	var cerr *errors.CompileError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, errors.E2014, cerr.Code)
}

func TestRetryAfterBlockedDependency(t *testing.T) {
	// An evaluator that reports a block on B the first time it sees A's body.
	blockedOnce := false
	var evaluator lir.EvaluatorFunc = func(ctx context.Context, unit *lir.Unit) (uint64, error) {
		if len(unit.Ops) == 2 && unit.Ops[0].Value == value.NewU64(1) && !blockedOnce {
			blockedOnce = true
			return 0, &lir.BlockedError{Name: "B"}
		}
		return eval.Evaluate(ctx, unit)
	}
	c := lir.New(lir.WithEvaluator(evaluator))
	_, err := c.Compile(context.Background(), parse(t, `
const A : uint do 1 end
const B : uint do 2 end
proc main do A B end`), nil)
	require.NoError(t, err)
	assert.True(t, blockedOnce)
	v, _ := c.Folded("A")
	assert.Equal(t, value.NewU64(1), v)
}

func TestBlockedTwiceIsInvariantViolation(t *testing.T) {
	var evaluator lir.EvaluatorFunc = func(ctx context.Context, unit *lir.Unit) (uint64, error) {
		if unit.Ops[0].Value == value.NewU64(1) {
			return 0, &lir.BlockedError{Name: "B"}
		}
		return eval.Evaluate(ctx, unit)
	}
	source := "const A : uint do 1 end const B : uint do 2 end proc main do A B end"
	_, err := lir.Compile(context.Background(), parse(t, source), nil, lir.WithEvaluator(evaluator))
	var cerr *errors.CompileError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, errors.E2013, cerr.Code)
}

func TestOpString(t *testing.T) {
	tests := []struct {
		op   lir.Op
		want string
	}{
		{lir.Push(value.NewI64(-3)), "push I64(-3)"},
		{lir.PushStr(2), "push_str 2"},
		{lir.PushMem("buf"), "push_mem buf"},
		{lir.JumpF(".main3"), "jump_f .main3"},
		{lir.UseBinding(1), "use_binding 1"},
		{lir.WithArg(op.ReserveLocals, 16), "reserve_locals 16"},
		{lir.Simple(op.Divmod), "divmod"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.op.String())
		})
	}
	assert.Equal(t, `evaluation blocked on "x"`, (&lir.BlockedError{Name: "x"}).Error())
	assert.Equal(t, "[]", (&lir.Unit{}).String())
}
