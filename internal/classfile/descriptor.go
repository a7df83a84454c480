package classfile

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBadDescriptor indicates a malformed field or method descriptor.
var ErrBadDescriptor = errors.New("invalid descriptor")

var primitives = map[byte]string{
	'B': "byte",
	'C': "char",
	'D': "double",
	'F': "float",
	'I': "int",
	'J': "long",
	'S': "short",
	'Z': "boolean",
	'V': "void",
}

// MethodType is a parsed method descriptor using Java source type names
// ("int", "java.lang.String", "a.b.Outer$Inner[]").
type MethodType struct {
	Params []string
	Return string
}

// ParseMethodDescriptor parses a descriptor such as "(I[Ljava/lang/String;)V".
func ParseMethodDescriptor(desc string) (MethodType, error) {
	if !strings.HasPrefix(desc, "(") {
		return MethodType{}, fmt.Errorf("%w: %q", ErrBadDescriptor, desc)
	}
	var mt MethodType
	i := 1
	for i < len(desc) && desc[i] != ')' {
		name, next, err := parseFieldType(desc, i)
		if err != nil {
			return MethodType{}, err
		}
		if name == "void" {
			return MethodType{}, fmt.Errorf("%w: void parameter in %q", ErrBadDescriptor, desc)
		}
		mt.Params = append(mt.Params, name)
		i = next
	}
	if i >= len(desc) {
		return MethodType{}, fmt.Errorf("%w: unterminated parameters in %q", ErrBadDescriptor, desc)
	}
	ret, next, err := parseFieldType(desc, i+1)
	if err != nil {
		return MethodType{}, err
	}
	if next != len(desc) {
		return MethodType{}, fmt.Errorf("%w: trailing data in %q", ErrBadDescriptor, desc)
	}
	mt.Return = ret
	return mt, nil
}

// ParseFieldDescriptor parses a single type descriptor such as "[J".
func ParseFieldDescriptor(desc string) (string, error) {
	name, next, err := parseFieldType(desc, 0)
	if err != nil {
		return "", err
	}
	if next != len(desc) {
		return "", fmt.Errorf("%w: trailing data in %q", ErrBadDescriptor, desc)
	}
	return name, nil
}

func parseFieldType(desc string, i int) (string, int, error) {
	dims := 0
	for i < len(desc) && desc[i] == '[' {
		dims++
		i++
	}
	if i >= len(desc) {
		return "", i, fmt.Errorf("%w: %q", ErrBadDescriptor, desc)
	}

	var name string
	switch c := desc[i]; c {
	case 'L':
		end := strings.IndexByte(desc[i:], ';')
		if end < 0 {
			return "", i, fmt.Errorf("%w: unterminated class name in %q", ErrBadDescriptor, desc)
		}
		name = BinaryName(desc[i+1 : i+end])
		i += end + 1
	default:
		prim, ok := primitives[c]
		if !ok {
			return "", i, fmt.Errorf("%w: unknown type %q in %q", ErrBadDescriptor, c, desc)
		}
		if prim == "void" && dims > 0 {
			return "", i, fmt.Errorf("%w: array of void in %q", ErrBadDescriptor, desc)
		}
		name = prim
		i++
	}
	return name + strings.Repeat("[]", dims), i, nil
}

// ArrayClassName renders an array class constant ("[Ljava.lang.String;") as a type name.
// Non-array names are returned unchanged.
func ArrayClassName(name string) string {
	if !strings.HasPrefix(name, "[") {
		return name
	}
	if t, err := ParseFieldDescriptor(strings.ReplaceAll(name, ".", "/")); err == nil {
		return t
	}
	return name
}
