package op

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo(UseBinding)
	assert.Equal(t, "USE_BINDING", info.Name)
	assert.Equal(t, ArgOperand, info.Operand)
	assert.Equal(t, UseBinding, info.Code)
}

func TestGetInfoAllOpcodes(t *testing.T) {
	tests := []struct {
		code    Code
		name    string
		operand Operand
		pops    int
		pushes  int
	}{
		{Proc, "PROC", NameOperand, 0, 0},
		{Call, "CALL", NameOperand, 0, 0},
		{Exit, "EXIT", NoOperand, 1, 0},
		{JumpF, "JUMP_F", NameOperand, 1, 0},
		{Push, "PUSH", ValueOperand, 0, 1},
		{PushStr, "PUSH_STR", ArgOperand, 0, 2},
		{PushMem, "PUSH_MEM", NameOperand, 0, 1},
		{Over, "OVER", NoOperand, 2, 3},
		{Divmod, "DIVMOD", NoOperand, 2, 2},
		{Syscall3, "SYSCALL3", NoOperand, 4, 1},
		{Syscall6, "SYSCALL6", NoOperand, 7, 1},
		{Ge, "GE", NoOperand, 2, 1},
		{EscapingAddr, "ESCAPING_ADDR", ArgOperand, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := GetInfo(tt.code)
			assert.Equal(t, tt.name, info.Name)
			assert.Equal(t, tt.operand, info.Operand)
			assert.Equal(t, tt.pops, info.Pops)
			assert.Equal(t, tt.pushes, info.Pushes)
			assert.Equal(t, tt.name, tt.code.String())
		})
	}
}

func TestInvalid(t *testing.T) {
	assert.Equal(t, "INVALID", Invalid.String())
	assert.Equal(t, "INVALID", Code(255).String())
}

func TestSyscall(t *testing.T) {
	for arity := 0; arity <= 6; arity++ {
		c := Syscall(arity)
		assert.Equal(t, arity, c.SyscallArity())
		assert.Equal(t, arity+1, GetInfo(c).Pops)
	}
	assert.Equal(t, -1, Add.SyscallArity())
}
