package classfile

import (
	"errors"
	"strings"
)

// Access flags shared by classes and methods.
const (
	AccPublic       uint16 = 0x0001
	AccPrivate      uint16 = 0x0002
	AccProtected    uint16 = 0x0004
	AccStatic       uint16 = 0x0008
	AccFinal        uint16 = 0x0010
	AccSuper        uint16 = 0x0020 // classes only
	AccSynchronized uint16 = 0x0020 // methods only
	AccBridge       uint16 = 0x0040
	AccVarargs      uint16 = 0x0080
	AccNative       uint16 = 0x0100
	AccInterface    uint16 = 0x0200
	AccAbstract     uint16 = 0x0400
	AccStrict       uint16 = 0x0800
	AccSynthetic    uint16 = 0x1000
	AccAnnotation   uint16 = 0x2000
	AccEnum         uint16 = 0x4000
)

var (
	// ErrBadMagic indicates the input does not start with 0xCAFEBABE.
	ErrBadMagic = errors.New("not a class file")

	// ErrTruncated indicates the input ended before the structure was complete.
	ErrTruncated = errors.New("truncated class file")

	// ErrBadConstant indicates a constant pool index of the wrong kind or out of range.
	ErrBadConstant = errors.New("invalid constant pool reference")

	// ErrBadBytecode indicates an undecodable instruction stream.
	ErrBadBytecode = errors.New("invalid bytecode")
)

// ClassFile is the decoded form of one .class file.
// Names use the dotted binary form (e.g. "a.b.Outer$Inner").
type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16
	AccessFlags  uint16
	Name         string
	SuperName    string // empty for java.lang.Object and module-info
	Interfaces   []string
	Fields       []Member
	Methods      []Member
	SourceFile   string

	Pool ConstantPool
}

// Member is a field or method declaration.
type Member struct {
	AccessFlags uint16
	Name        string
	Descriptor  string
	Code        *Code // nil for fields, abstract and native methods
}

// Code is the Code attribute of a method.
type Code struct {
	MaxStack       uint16
	MaxLocals      uint16
	Bytecode       []byte
	ExceptionTable []ExceptionHandler
}

// ExceptionHandler is one exception table entry.
type ExceptionHandler struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType string // empty for finally blocks
}

// IsInterface reports whether the class is an interface.
func (c *ClassFile) IsInterface() bool {
	return c.AccessFlags&AccInterface != 0
}

// IsAbstract reports whether the class is abstract (interfaces included).
func (c *ClassFile) IsAbstract() bool {
	return c.AccessFlags&(AccAbstract|AccInterface) != 0
}

// HasBody reports whether the method carries bytecode.
func (m *Member) HasBody() bool {
	return m.Code != nil && m.AccessFlags&(AccAbstract|AccNative) == 0
}

// ClassModifiers renders class access flags as Java modifier keywords.
func ClassModifiers(flags uint16) []string {
	var mods []string
	if flags&AccPublic != 0 {
		mods = append(mods, "public")
	}
	if flags&AccProtected != 0 {
		mods = append(mods, "protected")
	}
	if flags&AccPrivate != 0 {
		mods = append(mods, "private")
	}
	if flags&AccAbstract != 0 && flags&AccInterface == 0 {
		mods = append(mods, "abstract")
	}
	if flags&AccStatic != 0 {
		mods = append(mods, "static")
	}
	if flags&AccFinal != 0 {
		mods = append(mods, "final")
	}
	if flags&AccInterface != 0 {
		mods = append(mods, "interface")
	}
	if flags&AccEnum != 0 {
		mods = append(mods, "enum")
	}
	return mods
}

// MethodModifiers renders method access flags as Java modifier keywords,
// in the canonical Java modifier order.
func MethodModifiers(flags uint16) []string {
	var mods []string
	if flags&AccPublic != 0 {
		mods = append(mods, "public")
	}
	if flags&AccProtected != 0 {
		mods = append(mods, "protected")
	}
	if flags&AccPrivate != 0 {
		mods = append(mods, "private")
	}
	if flags&AccAbstract != 0 {
		mods = append(mods, "abstract")
	}
	if flags&AccStatic != 0 {
		mods = append(mods, "static")
	}
	if flags&AccFinal != 0 {
		mods = append(mods, "final")
	}
	if flags&AccSynchronized != 0 {
		mods = append(mods, "synchronized")
	}
	if flags&AccNative != 0 {
		mods = append(mods, "native")
	}
	if flags&AccStrict != 0 {
		mods = append(mods, "strictfp")
	}
	if flags&AccSynthetic != 0 {
		mods = append(mods, "synthetic")
	}
	return mods
}

// BinaryName converts an internal name ("a/b/C$D") to dotted form ("a.b.C$D").
func BinaryName(internal string) string {
	return strings.ReplaceAll(internal, "/", ".")
}
