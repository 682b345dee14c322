package quad

import (
	"io"

	"github.com/quadlang/quad/emit"
	"github.com/quadlang/quad/eval"
	"github.com/quadlang/quad/lir"
	"github.com/quadlang/quad/parser"
	"github.com/rs/zerolog"
)

// Option configures a quad compilation, build or run.
type Option func(*options)

type options struct {
	filename      string
	logger        zerolog.Logger
	returnStack   uint64
	localsStack   uint64
	escapingStack uint64
	comments      bool
	args          []string
	stdout        io.Writer
	stderr        io.Writer
	stdin         io.Reader
	stepLimit     int
	observer      eval.Observer
}

func collectOptions(opts ...Option) *options {
	o := &options{
		logger:        zerolog.Nop(),
		returnStack:   emit.DefaultStackSize,
		localsStack:   emit.DefaultStackSize,
		escapingStack: emit.DefaultStackSize,
		comments:      true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

func (o *options) parserOpts() []parser.Option {
	var opts []parser.Option
	if o.filename != "" {
		opts = append(opts, parser.WithFilename(o.filename))
	}
	return opts
}

// stackOpts configures the evaluator memory the same way the emitted
// program lays out its .bss stacks.
func (o *options) stackOpts() []eval.Option {
	return []eval.Option{
		eval.WithReturnStack(o.returnStack),
		eval.WithLocalsStack(o.localsStack),
		eval.WithEscapingStack(o.escapingStack),
		eval.WithLogger(o.logger),
	}
}

func (o *options) compilerOpts(source string) []lir.Option {
	return []lir.Option{
		lir.WithEvaluator(eval.NewFolder(o.stackOpts()...)),
		lir.WithLogger(o.logger),
		lir.WithSource(source),
	}
}

func (o *options) emitOpts() []emit.Option {
	return []emit.Option{
		emit.WithReturnStack(o.returnStack),
		emit.WithLocalsStack(o.localsStack),
		emit.WithEscapingStack(o.escapingStack),
		emit.WithComments(o.comments),
	}
}

func (o *options) evalOpts() []eval.Option {
	opts := o.stackOpts()
	opts = append(opts, eval.WithInitialStack(0))
	if o.stdout != nil {
		opts = append(opts, eval.WithOutput(o.stdout))
	}
	if o.stderr != nil {
		opts = append(opts, eval.WithErrOutput(o.stderr))
	}
	if o.stdin != nil {
		opts = append(opts, eval.WithInput(o.stdin))
	}
	if len(o.args) > 0 {
		opts = append(opts, eval.WithArgs(o.args))
	}
	if o.stepLimit > 0 {
		opts = append(opts, eval.WithStepLimit(o.stepLimit))
	}
	if o.observer != nil {
		opts = append(opts, eval.WithObserver(o.observer))
	}
	return opts
}

// WithFilename sets the filename for the source code being compiled.
// This is used for error messages.
func WithFilename(filename string) Option {
	return func(o *options) {
		o.filename = filename
	}
}

// WithLogger sets the logger used by the compiler and evaluator.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithReturnStack sets the size in bytes of the return stack.
func WithReturnStack(size uint64) Option {
	return func(o *options) {
		o.returnStack = size
	}
}

// WithLocalsStack sets the size in bytes of the locals stack.
func WithLocalsStack(size uint64) Option {
	return func(o *options) {
		o.localsStack = size
	}
}

// WithEscapingStack sets the size in bytes of the escaping stack.
func WithEscapingStack(size uint64) Option {
	return func(o *options) {
		o.escapingStack = size
	}
}

// WithComments controls whether Build annotates each instruction with its
// LIR op. Enabled by default.
func WithComments(on bool) Option {
	return func(o *options) {
		o.comments = on
	}
}

// WithArgs sets the argument vector seen by Run. The first element is the
// program name.
func WithArgs(args []string) Option {
	return func(o *options) {
		o.args = args
	}
}

// WithStdio sets the streams used by Run. A nil stream keeps the default,
// which discards output and reads nothing.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(o *options) {
		o.stdin = stdin
		o.stdout = stdout
		o.stderr = stderr
	}
}

// WithStepLimit bounds the number of instructions Run may execute.
func WithStepLimit(limit int) Option {
	return func(o *options) {
		o.stepLimit = limit
	}
}

// WithObserver sets an observer for execution events during Run.
func WithObserver(observer eval.Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}
