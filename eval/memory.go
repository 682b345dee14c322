package eval

import (
	"encoding/binary"

	"github.com/quadlang/quad/errors"
)

// Base is the address of the first byte of machine memory, so that zero
// is never a valid address.
const Base uint64 = 0x10000

// MaxMemory bounds the total size of machine memory in bytes.
const MaxMemory = 256 << 20

// alloc reserves n zeroed bytes aligned to 8 and returns their address.
func (m *Machine) alloc(n uint64) (uint64, error) {
	off := (uint64(len(m.mem)) + 7) &^ 7
	if n > MaxMemory || off+n > MaxMemory {
		return 0, &errors.RuntimeError{
			Code:    errors.E3012,
			Message: "machine memory exhausted",
		}
	}
	m.mem = append(m.mem, make([]byte, off+n-uint64(len(m.mem)))...)
	return Base + off, nil
}

// bytes returns the n bytes of memory starting at addr.
func (m *Machine) bytes(addr, n uint64) ([]byte, error) {
	if addr < Base || addr-Base > uint64(len(m.mem)) || n > uint64(len(m.mem))-(addr-Base) {
		return nil, m.fail(errors.E3012, "access of %d bytes at 0x%x is out of bounds", n, addr)
	}
	off := addr - Base
	return m.mem[off : off+n], nil
}

func (m *Machine) readU8(addr uint64) (uint64, error) {
	b, err := m.bytes(addr, 1)
	if err != nil {
		return 0, err
	}
	return uint64(b[0]), nil
}

func (m *Machine) writeU8(addr, v uint64) error {
	b, err := m.bytes(addr, 1)
	if err != nil {
		return err
	}
	b[0] = byte(v)
	return nil
}

func (m *Machine) readU64(addr uint64) (uint64, error) {
	b, err := m.bytes(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (m *Machine) writeU64(addr, v uint64) error {
	b, err := m.bytes(addr, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, v)
	return nil
}

// cstring copies s into fresh memory with a trailing NUL.
func (m *Machine) cstring(s string) (uint64, error) {
	addr, err := m.alloc(uint64(len(s)) + 1)
	if err != nil {
		return 0, err
	}
	copy(m.mem[addr-Base:], s)
	return addr, nil
}

// stackRegion is a downward growing stack inside machine memory.
type stackRegion struct {
	name   string
	base   uint64
	top    uint64
	cursor uint64
}

func (m *Machine) newStackRegion(name string, size uint64) (stackRegion, error) {
	base, err := m.alloc(size)
	if err != nil {
		return stackRegion{}, err
	}
	return stackRegion{name: name, base: base, top: base + size, cursor: base + size}, nil
}

func (m *Machine) reserve(s *stackRegion, n uint64) error {
	if n > s.cursor-s.base {
		return m.fail(errors.E3006, "%s stack overflow", s.name)
	}
	s.cursor -= n
	return nil
}

func (m *Machine) free(s *stackRegion, n uint64) error {
	if n > s.top-s.cursor {
		return m.fail(errors.E3011, "%s stack underflow", s.name)
	}
	s.cursor += n
	return nil
}
