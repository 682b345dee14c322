package eval

import (
	"io"

	"github.com/quadlang/quad/errors"
)

// Linux x86-64 system call numbers understood by the machine.
const (
	sysRead      = 0
	sysWrite     = 1
	sysExit      = 60
	sysExitGroup = 231
)

// Negated errno values returned to the program.
const (
	errEIO   uint64 = 1<<64 - 5
	errEBADF uint64 = 1<<64 - 9
)

// syscall pops the call number and then the arguments in register order
// (rdi, rsi, rdx, r10, r8, r9) and pushes the result.
func (m *Machine) syscall(arity int) (uint64, bool, error) {
	num := m.pop()
	args := make([]uint64, arity)
	for i := range args {
		args[i] = m.pop()
	}
	need := func(n int) error {
		if arity < n {
			return m.fail(errors.E3014, "system call %d needs %d arguments, got %d", num, n, arity)
		}
		return nil
	}

	var result uint64
	switch num {
	case sysRead:
		if err := need(3); err != nil {
			return 0, false, err
		}
		buf, err := m.bytes(args[1], args[2])
		if err != nil {
			return 0, false, err
		}
		if args[0] != 0 {
			result = errEBADF
			break
		}
		n, err := m.stdin.Read(buf)
		if err != nil && err != io.EOF {
			result = errEIO
			break
		}
		result = uint64(n)
	case sysWrite:
		if err := need(3); err != nil {
			return 0, false, err
		}
		buf, err := m.bytes(args[1], args[2])
		if err != nil {
			return 0, false, err
		}
		var w io.Writer
		switch args[0] {
		case 1:
			w = m.stdout
		case 2:
			w = m.stderr
		default:
			result = errEBADF
		}
		if w == nil {
			break
		}
		n, err := w.Write(buf)
		if err != nil {
			result = errEIO
			break
		}
		result = uint64(n)
	case sysExit, sysExitGroup:
		if err := need(1); err != nil {
			return 0, false, err
		}
		return args[0], true, nil
	default:
		return 0, false, m.fail(errors.E3014, "unsupported system call %d", num)
	}
	m.push(result)
	return 0, false, nil
}
