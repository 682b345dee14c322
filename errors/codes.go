package errors

// ErrorCode represents a unique identifier for error types.
// Codes are organized by category:
//   - E1xxx: Lex and parse errors
//   - E2xxx: Compile and constant folding errors
//   - E3xxx: Evaluation errors
type ErrorCode string

const (
	// Lex and parse errors (E1xxx)
	E1001 ErrorCode = "E1001" // Unexpected token
	E1002 ErrorCode = "E1002" // Unterminated string literal
	E1003 ErrorCode = "E1003" // Invalid syntax
	E1006 ErrorCode = "E1006" // Expected identifier
	E1007 ErrorCode = "E1007" // Unclosed block
	E1008 ErrorCode = "E1008" // Invalid number literal
	E1009 ErrorCode = "E1009" // Maximum nesting depth exceeded
	E1010 ErrorCode = "E1010" // Invalid escape sequence
	E1011 ErrorCode = "E1011" // Invalid character
	E1012 ErrorCode = "E1012" // Unterminated character literal
	E1013 ErrorCode = "E1013" // Unknown type name
	E1014 ErrorCode = "E1014" // Duplicate definition
	E1015 ErrorCode = "E1015" // Unsupported keyword

	// Compile errors (E2xxx)
	E2011 ErrorCode = "E2011" // Constant dependency cycle
	E2012 ErrorCode = "E2012" // Constant evaluation failed
	E2013 ErrorCode = "E2013" // Constant folding invariant violated
	E2014 ErrorCode = "E2014" // Unknown constant

	// Evaluation errors (E3xxx)
	E3002 ErrorCode = "E3002" // Division by zero
	E3006 ErrorCode = "E3006" // Stack overflow
	E3007 ErrorCode = "E3007" // Invalid operation
	E3011 ErrorCode = "E3011" // Stack underflow
	E3012 ErrorCode = "E3012" // Memory access out of bounds
	E3013 ErrorCode = "E3013" // Step limit exceeded
	E3014 ErrorCode = "E3014" // Unsupported system call
)

// codeDescriptions maps error codes to their short descriptions.
var codeDescriptions = map[ErrorCode]string{
	E1001: "unexpected token",
	E1002: "unterminated string literal",
	E1003: "invalid syntax",
	E1006: "expected identifier",
	E1007: "unclosed block",
	E1008: "invalid number literal",
	E1009: "maximum nesting depth exceeded",
	E1010: "invalid escape sequence",
	E1011: "invalid character",
	E1012: "unterminated character literal",
	E1013: "unknown type name",
	E1014: "duplicate definition",
	E1015: "unsupported keyword",

	E2011: "constant dependency cycle",
	E2012: "constant evaluation failed",
	E2013: "constant folding invariant violated",
	E2014: "unknown constant",

	E3002: "division by zero",
	E3006: "stack overflow",
	E3007: "invalid operation",
	E3011: "stack underflow",
	E3012: "memory access out of bounds",
	E3013: "step limit exceeded",
	E3014: "unsupported system call",
}

// Description returns the short description for an error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}

// String returns the error code as a string.
func (c ErrorCode) String() string {
	return string(c)
}

// Category returns the error category based on the code prefix.
func (c ErrorCode) Category() string {
	if len(c) < 2 {
		return "unknown"
	}
	switch c[1] {
	case '1':
		return "parse"
	case '2':
		return "compile"
	case '3':
		return "runtime"
	default:
		return "unknown"
	}
}
