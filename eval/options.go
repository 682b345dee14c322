package eval

import (
	"io"

	"github.com/rs/zerolog"
)

// Option is a configuration function for a Machine.
type Option func(*Machine)

// WithOutput sets where file descriptor 1, print and putc write.
func WithOutput(w io.Writer) Option {
	return func(m *Machine) {
		m.stdout = w
	}
}

// WithErrOutput sets where file descriptor 2 writes.
func WithErrOutput(w io.Writer) Option {
	return func(m *Machine) {
		m.stderr = w
	}
}

// WithInput sets what file descriptor 0 reads from.
func WithInput(r io.Reader) Option {
	return func(m *Machine) {
		m.stdin = r
	}
}

// WithArgs sets the command line seen through argc and argv. By convention
// the first argument is the program name.
func WithArgs(args []string) Option {
	return func(m *Machine) {
		m.args = args
	}
}

// WithStepLimit bounds the number of instructions executed. Zero means no
// limit.
func WithStepLimit(limit int) Option {
	return func(m *Machine) {
		m.stepLimit = limit
	}
}

// WithContextCheckInterval sets how often, in instructions, the machine
// checks ctx.Done(). Zero disables the check.
func WithContextCheckInterval(interval int) Option {
	return func(m *Machine) {
		m.contextCheckInterval = interval
	}
}

// WithMaxStackDepth bounds the operand stack, in values.
func WithMaxStackDepth(depth int) Option {
	return func(m *Machine) {
		m.maxStackDepth = depth
	}
}

// WithReturnStack sets the return stack size in bytes.
func WithReturnStack(size uint64) Option {
	return func(m *Machine) {
		m.returnStackSize = size
	}
}

// WithLocalsStack sets the locals stack size in bytes.
func WithLocalsStack(size uint64) Option {
	return func(m *Machine) {
		m.localsStackSize = size
	}
}

// WithEscapingStack sets the escaping stack size in bytes.
func WithEscapingStack(size uint64) Option {
	return func(m *Machine) {
		m.escapingStackSize = size
	}
}

// WithObserver sets an observer for execution events.
func WithObserver(observer Observer) Option {
	return func(m *Machine) {
		m.observer = observer
	}
}

// WithLogger sets the logger for execution traces.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Machine) {
		m.logger = l
	}
}

// WithInitialStack sets the operand stack contents at entry, bottom first.
// Whole programs start with a single 0, so a main that leaves nothing exits
// with status 0.
func WithInitialStack(values ...uint64) Option {
	return func(m *Machine) {
		m.stack = append([]uint64(nil), values...)
	}
}
