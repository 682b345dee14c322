package ast

import "fmt"

// IntrinsicKind identifies a built-in operation.
type IntrinsicKind uint8

const (
	Drop IntrinsicKind = iota + 1
	Dup
	Swap
	Over

	CompStop // &?& cuts the rest of the block at compile time
	Dump     // &? is a debug marker with no effect
	Print
	PutC

	Add
	Sub
	Mul
	Divmod

	Eq
	Ne
	Lt
	Le
	Gt
	Ge

	ReadU8
	WriteU8
	ReadU64
	WriteU64
	PtrAdd
	PtrSub

	Syscall0
	Syscall1
	Syscall2
	Syscall3
	Syscall4
	Syscall5
	Syscall6

	Argc
	Argv
)

var intrinsicSpellings = [...]string{
	Drop:     "drop",
	Dup:      "dup",
	Swap:     "swap",
	Over:     "over",
	CompStop: "&?&",
	Dump:     "&?",
	Print:    "print",
	PutC:     "putc",
	Add:      "+",
	Sub:      "-",
	Mul:      "*",
	Divmod:   "divmod",
	Eq:       "=",
	Ne:       "!=",
	Lt:       "<",
	Le:       "<=",
	Gt:       ">",
	Ge:       ">=",
	ReadU8:   "@u8",
	WriteU8:  "!u8",
	ReadU64:  "@u64",
	WriteU64: "!u64",
	PtrAdd:   "ptr+",
	PtrSub:   "ptr-",
	Syscall0: "syscall0",
	Syscall1: "syscall1",
	Syscall2: "syscall2",
	Syscall3: "syscall3",
	Syscall4: "syscall4",
	Syscall5: "syscall5",
	Syscall6: "syscall6",
	Argc:     "argc",
	Argv:     "argv",
}

var intrinsicsBySpelling = func() map[string]IntrinsicKind {
	m := make(map[string]IntrinsicKind, len(intrinsicSpellings))
	for kind, spelling := range intrinsicSpellings {
		if spelling != "" {
			m[spelling] = IntrinsicKind(kind)
		}
	}
	return m
}()

func (k IntrinsicKind) String() string {
	if int(k) < len(intrinsicSpellings) && intrinsicSpellings[k] != "" {
		return intrinsicSpellings[k]
	}
	return fmt.Sprintf("intrinsic(%d)", uint8(k))
}

// LookupIntrinsic returns the intrinsic spelled word, if any.
func LookupIntrinsic(word string) (IntrinsicKind, bool) {
	kind, ok := intrinsicsBySpelling[word]
	return kind, ok
}

// IsIntrinsic reports whether word is reserved for an intrinsic.
func IsIntrinsic(word string) bool {
	_, ok := intrinsicsBySpelling[word]
	return ok
}

// SyscallArity returns the number of arguments taken by a syscall
// intrinsic, or -1 if k is not one.
func (k IntrinsicKind) SyscallArity() int {
	if k >= Syscall0 && k <= Syscall6 {
		return int(k - Syscall0)
	}
	return -1
}
