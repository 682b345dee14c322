// Package op defines the opcodes of the quad low-level instruction set.
package op

// Code is an integer opcode that indicates an operation to execute.
type Code uint8

const (
	Invalid Code = 0

	// Control
	Proc   Code = 1
	Return Code = 2
	Call   Code = 3
	Exit   Code = 4
	Label  Code = 5
	Jump   Code = 6
	JumpF  Code = 7 // Pop; jump when false
	Dump   Code = 8 // Debug marker with no effect

	// Push
	Push    Code = 10
	PushStr Code = 11 // Push length then address of a pooled string
	PushMem Code = 12 // Push the address of a static memory region

	// Stack
	Drop Code = 20
	Dup  Code = 21
	Swap Code = 22
	Over Code = 23

	// Memory
	ReadU8   Code = 30
	WriteU8  Code = 31
	ReadU64  Code = 32
	WriteU64 Code = 33

	// System
	Print    Code = 40
	PutC     Code = 41
	Syscall0 Code = 42
	Syscall1 Code = 43
	Syscall2 Code = 44
	Syscall3 Code = 45
	Syscall4 Code = 46
	Syscall5 Code = 47
	Syscall6 Code = 48
	Argc     Code = 49
	Argv     Code = 50

	// Arithmetic
	Add    Code = 60
	Sub    Code = 61
	Mul    Code = 62
	Divmod Code = 63

	// Comparison
	Eq Code = 70
	Ne Code = 71
	Lt Code = 72
	Le Code = 73
	Gt Code = 74
	Ge Code = 75

	// Return stack bindings
	Bind       Code = 80
	UseBinding Code = 81
	Unbind     Code = 82

	// Locals and escaping stacks
	ReserveLocals   Code = 90
	FreeLocals      Code = 91
	LocalAddr       Code = 92
	ReserveEscaping Code = 93
	EscapingAddr    Code = 94
)

// Operand describes what kind of operand an opcode carries.
type Operand uint8

const (
	NoOperand    Operand = iota
	ValueOperand         // an immediate value
	NameOperand          // a procedure, label or memory name
	ArgOperand           // an unsigned count, index or byte offset
)

// Info contains information about an opcode.
type Info struct {
	Code    Code
	Name    string
	Operand Operand
	Pops    int // operand stack values consumed
	Pushes  int // operand stack values produced
}

var infos = make([]Info, 256)

func init() {
	type opInfo struct {
		op      Code
		name    string
		operand Operand
		pops    int
		pushes  int
	}
	ops := []opInfo{
		{Proc, "PROC", NameOperand, 0, 0},
		{Return, "RETURN", NoOperand, 0, 0},
		{Call, "CALL", NameOperand, 0, 0},
		{Exit, "EXIT", NoOperand, 1, 0},
		{Label, "LABEL", NameOperand, 0, 0},
		{Jump, "JUMP", NameOperand, 0, 0},
		{JumpF, "JUMP_F", NameOperand, 1, 0},
		{Dump, "DUMP", NoOperand, 0, 0},
		{Push, "PUSH", ValueOperand, 0, 1},
		{PushStr, "PUSH_STR", ArgOperand, 0, 2},
		{PushMem, "PUSH_MEM", NameOperand, 0, 1},
		{Drop, "DROP", NoOperand, 1, 0},
		{Dup, "DUP", NoOperand, 1, 2},
		{Swap, "SWAP", NoOperand, 2, 2},
		{Over, "OVER", NoOperand, 2, 3},
		{ReadU8, "READ_U8", NoOperand, 1, 1},
		{WriteU8, "WRITE_U8", NoOperand, 2, 0},
		{ReadU64, "READ_U64", NoOperand, 1, 1},
		{WriteU64, "WRITE_U64", NoOperand, 2, 0},
		{Print, "PRINT", NoOperand, 1, 0},
		{PutC, "PUTC", NoOperand, 1, 0},
		{Syscall0, "SYSCALL0", NoOperand, 1, 1},
		{Syscall1, "SYSCALL1", NoOperand, 2, 1},
		{Syscall2, "SYSCALL2", NoOperand, 3, 1},
		{Syscall3, "SYSCALL3", NoOperand, 4, 1},
		{Syscall4, "SYSCALL4", NoOperand, 5, 1},
		{Syscall5, "SYSCALL5", NoOperand, 6, 1},
		{Syscall6, "SYSCALL6", NoOperand, 7, 1},
		{Argc, "ARGC", NoOperand, 0, 1},
		{Argv, "ARGV", NoOperand, 0, 1},
		{Add, "ADD", NoOperand, 2, 1},
		{Sub, "SUB", NoOperand, 2, 1},
		{Mul, "MUL", NoOperand, 2, 1},
		{Divmod, "DIVMOD", NoOperand, 2, 2},
		{Eq, "EQ", NoOperand, 2, 1},
		{Ne, "NE", NoOperand, 2, 1},
		{Lt, "LT", NoOperand, 2, 1},
		{Le, "LE", NoOperand, 2, 1},
		{Gt, "GT", NoOperand, 2, 1},
		{Ge, "GE", NoOperand, 2, 1},
		{Bind, "BIND", NoOperand, 1, 0},
		{UseBinding, "USE_BINDING", ArgOperand, 0, 1},
		{Unbind, "UNBIND", NoOperand, 0, 0},
		{ReserveLocals, "RESERVE_LOCALS", ArgOperand, 0, 0},
		{FreeLocals, "FREE_LOCALS", ArgOperand, 0, 0},
		{LocalAddr, "LOCAL_ADDR", ArgOperand, 0, 1},
		{ReserveEscaping, "RESERVE_ESCAPING", ArgOperand, 0, 0},
		{EscapingAddr, "ESCAPING_ADDR", ArgOperand, 0, 1},
	}
	for _, o := range ops {
		infos[o.op] = Info{
			Code:    o.op,
			Name:    o.name,
			Operand: o.operand,
			Pops:    o.pops,
			Pushes:  o.pushes,
		}
	}
}

// GetInfo returns information about the given opcode.
func GetInfo(op Code) Info {
	return infos[op]
}

// String returns the opcode name, such as "PUSH".
func (c Code) String() string {
	if name := infos[c].Name; name != "" {
		return name
	}
	return "INVALID"
}

// SyscallArity returns the number of arguments of a syscall opcode, or -1.
func (c Code) SyscallArity() int {
	if c >= Syscall0 && c <= Syscall6 {
		return int(c - Syscall0)
	}
	return -1
}

// Syscall returns the syscall opcode for the given arity.
func Syscall(arity int) Code {
	return Syscall0 + Code(arity)
}
