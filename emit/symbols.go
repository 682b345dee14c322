package emit

import (
	"fmt"
	"strings"
)

// ProcSymbol returns the assembly symbol of a procedure. The leading $
// keeps names like rax or mov from being read as registers or mnemonics.
// A name made only of letters and digits keeps its spelling, so calls to
// procedures defined outside the unit link against it. Any other byte,
// including _, is escaped, so external symbols must avoid them.
func ProcSymbol(name string) string {
	return "$" + mangle(name)
}

// LabelSymbol returns the assembly spelling of a lowered label. Labels
// start with a dot, which makes them local to the enclosing procedure.
func LabelSymbol(label string) string {
	return "." + mangle(strings.TrimPrefix(label, "."))
}

// MemorySymbol returns the symbol of a static memory region.
func MemorySymbol(name string) string {
	return "mem_" + mangle(name)
}

// StringSymbol returns the symbol of a string pool entry.
func StringSymbol(index int) string {
	return fmt.Sprintf("str_%d", index)
}

// mangle keeps ASCII letters and digits, doubles underscores and writes
// every other byte as _xx in hex, so distinct names stay distinct.
func mangle(name string) string {
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '_':
			b.WriteString("__")
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "_%02x", c)
		}
	}
	return b.String()
}
