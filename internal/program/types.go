package program

import (
	"strings"

	"github.com/mvp-joe/javacorpus/internal/classfile"
)

// Class is a resolved class of the compiled view.
type Class struct {
	Name        string // dotted binary name, e.g. "a.b.Outer$Inner"
	SuperName   string
	Interfaces  []string
	AccessFlags uint16
	Methods     []*Method // class file order

	file  *classfile.ClassFile
	byKey map[string]*Method
}

// Method is a resolved method: owner, name, resolved parameter types and modifiers.
type Method struct {
	Class        *Class
	Name         string
	Descriptor   string
	Params       []string
	Return       string
	AccessFlags  uint16
	Signature    string // "<owner: ret name(p1,p2)>"
	SubSignature string // "ret name(p1,p2)"

	code *classfile.Code
}

func newClass(cf *classfile.ClassFile) (*Class, error) {
	c := &Class{
		Name:        cf.Name,
		SuperName:   cf.SuperName,
		Interfaces:  cf.Interfaces,
		AccessFlags: cf.AccessFlags,
		file:        cf,
		byKey:       make(map[string]*Method, len(cf.Methods)),
	}
	for i := range cf.Methods {
		member := &cf.Methods[i]
		mt, err := classfile.ParseMethodDescriptor(member.Descriptor)
		if err != nil {
			return nil, err
		}
		m := &Method{
			Class:        c,
			Name:         member.Name,
			Descriptor:   member.Descriptor,
			Params:       mt.Params,
			Return:       mt.Return,
			AccessFlags:  member.AccessFlags,
			Signature:    classfile.Signature(cf.Name, member.Name, mt),
			SubSignature: classfile.SubSignature(member.Name, mt),
			code:         member.Code,
		}
		c.Methods = append(c.Methods, m)
		c.byKey[m.Key()] = m
	}
	return c, nil
}

// Method returns the method declared by this class with the given name and descriptor.
func (c *Class) Method(name, desc string) (*Method, bool) {
	m, ok := c.byKey[name+desc] // Method.Key
	return m, ok
}

// IsInterface reports whether the class is an interface.
func (c *Class) IsInterface() bool {
	return c.AccessFlags&classfile.AccInterface != 0
}

// IsConcrete reports whether the class can be instantiated.
func (c *Class) IsConcrete() bool {
	return c.AccessFlags&(classfile.AccInterface|classfile.AccAbstract) == 0
}

// Modifiers returns the class access flags as Java keywords.
func (c *Class) Modifiers() []string {
	return classfile.ClassModifiers(c.AccessFlags)
}

// TopLevelName returns the name of the outermost enclosing class:
// everything from the first '$' onward is dropped.
func (c *Class) TopLevelName() string {
	return TopLevelName(c.Name)
}

// SimpleName returns the class name without package or enclosing classes.
func (c *Class) SimpleName() string {
	name := c.Name
	if i := strings.LastIndexAny(name, ".$"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// TopLevelName strips the nested-class suffix from a binary class name.
func TopLevelName(name string) string {
	if i := strings.IndexByte(name, '$'); i >= 0 {
		return name[:i]
	}
	return name
}

// Owner returns the declaring class name.
func (m *Method) Owner() string {
	return m.Class.Name
}

// Key identifies the method within its class (name + descriptor).
func (m *Method) Key() string {
	return m.Name + m.Descriptor
}

// IsConstructor reports whether the method is an instance initializer.
func (m *Method) IsConstructor() bool {
	return m.Name == "<init>"
}

// IsStaticInitializer reports whether the method is "<clinit>".
func (m *Method) IsStaticInitializer() bool {
	return m.Name == "<clinit>"
}

// IsStatic reports whether the method is static.
func (m *Method) IsStatic() bool {
	return m.AccessFlags&classfile.AccStatic != 0
}

// IsAbstract reports whether the method is abstract.
func (m *Method) IsAbstract() bool {
	return m.AccessFlags&classfile.AccAbstract != 0
}

// IsNative reports whether the method is implemented natively.
func (m *Method) IsNative() bool {
	return m.AccessFlags&classfile.AccNative != 0
}

// HasBody reports whether the method carries bytecode.
func (m *Method) HasBody() bool {
	return m.code != nil && m.AccessFlags&(classfile.AccAbstract|classfile.AccNative) == 0
}

// Modifiers returns the method access flags as Java keywords.
func (m *Method) Modifiers() []string {
	return classfile.MethodModifiers(m.AccessFlags)
}

// Instructions decodes the method body. Methods without a body yield nil.
func (m *Method) Instructions() ([]classfile.Instruction, error) {
	if !m.HasBody() {
		return nil, nil
	}
	return classfile.Decode(m.code.Bytecode)
}

// Body renders the method's intermediate representation. Methods without a body yield "".
func (m *Method) Body() (string, error) {
	if !m.HasBody() {
		return "", nil
	}
	return classfile.Disassemble(m.Class.file.Pool, m.code)
}

// Pool returns the constant pool the method's instructions index into.
func (m *Method) Pool() classfile.ConstantPool {
	return m.Class.file.Pool
}
