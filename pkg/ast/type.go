package ast

import "fmt"

// Type is one of the closed set of PP07 type kinds. Values of the same kind
// are equal, so Type can be compared with == and used as a map key.
type Type int

const (
	// Untyped is the zero value and marks "no type recorded".
	Untyped Type = iota
	INT
	BOOL
	VOID
	CHAR
	ENUM
	ARRAY
	// Unknown is assigned to expressions whose type could not be inferred
	// because of an earlier error. It never triggers further diagnostics.
	Unknown
)

const (
	intSize  = 4
	boolSize = 1
	charSize = 1
)

// TypeError reports a size query that cannot be answered for a type
type TypeError struct {
	Type Type
	Msg  string
}

func (e *TypeError) Error() string { return e.Msg }

func (t Type) String() string {
	switch t {
	case INT: return "int"
	case BOOL: return "bool"
	case VOID: return "void"
	case CHAR: return "char"
	case ENUM: return "enum"
	case ARRAY: return "array"
	case Unknown: return "unknown"
	case Untyped: return "untyped"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Size returns the storage size of a variable of type t.
func (t Type) Size() (int, error) {
	switch t {
	case INT: return intSize, nil
	case BOOL: return boolSize, nil
	case CHAR: return charSize, nil
	case VOID: return 0, &TypeError{Type: t, Msg: "Cannot add 'void' as a variable"}
	case ENUM: return 0, &TypeError{Type: t, Msg: "Size of 'enum' requires its member count"}
	case ARRAY: return 0, &TypeError{Type: t, Msg: "Size of 'array' requires its length and element type"}
	}
	return 0, &TypeError{Type: t, Msg: fmt.Sprintf("Type '%s' has no storage size", t)}
}

// SizeOf is the length overload, valid for ENUM only.
func (t Type) SizeOf(length int) (int, error) {
	if t != ENUM {
		return 0, &TypeError{Type: t, Msg: fmt.Sprintf("Type '%s' does not take a length", t)}
	}
	return intSize * length, nil
}

// SizeOfArray is the length and element overload, valid for ARRAY only.
func (t Type) SizeOfArray(length int, elem Type) (int, error) {
	if t != ARRAY {
		return 0, &TypeError{Type: t, Msg: fmt.Sprintf("Type '%s' does not take an element type", t)}
	}
	elemSize, err := elem.Size()
	if err != nil {
		return 0, err
	}
	return elemSize * length, nil
}

// IsValid reports whether t is a real type rather than a recovery marker.
func (t Type) IsValid() bool { return t != Untyped && t != Unknown }
