// Package classfiletest assembles minimal class files for tests.
package classfiletest

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/mvp-joe/javacorpus/internal/classfile"
)

type pool struct {
	entries [][]byte
	index   map[string]uint16
	next    uint16
}

func newPool() *pool {
	return &pool{index: make(map[string]uint16), next: 1}
}

func (p *pool) add(key string, data []byte) uint16 {
	if i, ok := p.index[key]; ok {
		return i
	}
	i := p.next
	p.index[key] = i
	p.entries = append(p.entries, data)
	p.next++
	return i
}

func u2(v uint16) []byte {
	return []byte{byte(v >> 8), byte(v)}
}

func (p *pool) utf8(s string) uint16 {
	data := append([]byte{classfile.TagUtf8}, u2(uint16(len(s)))...)
	return p.add("U"+s, append(data, s...))
}

func (p *pool) class(name string) uint16 {
	n := p.utf8(name)
	return p.add("C"+name, append([]byte{classfile.TagClass}, u2(n)...))
}

func (p *pool) str(s string) uint16 {
	n := p.utf8(s)
	return p.add("S"+s, append([]byte{classfile.TagString}, u2(n)...))
}

func (p *pool) integer(v int32) uint16 {
	data := []byte{classfile.TagInteger, 0, 0, 0, 0}
	binary.BigEndian.PutUint32(data[1:], uint32(v))
	return p.add("I"+strconv.Itoa(int(v)), data)
}

func (p *pool) nameAndType(name, desc string) uint16 {
	n, d := p.utf8(name), p.utf8(desc)
	data := append([]byte{classfile.TagNameAndType}, u2(n)...)
	return p.add("N"+name+":"+desc, append(data, u2(d)...))
}

func (p *pool) ref(tag uint8, owner, name, desc string) uint16 {
	c, nt := p.class(owner), p.nameAndType(name, desc)
	data := append([]byte{tag}, u2(c)...)
	return p.add("R"+strconv.Itoa(int(tag))+owner+"."+name+desc, append(data, u2(nt)...))
}

// Class is a class file under construction. Names use the internal form "a/b/C".
type Class struct {
	name       string
	super      string
	access     uint16
	interfaces []string
	fields     []member
	methods    []*Method
	sourceFile string
	pool       *pool
}

type member struct {
	access     uint16
	name, desc string
}

// NewClass starts a public class extending java/lang/Object.
func NewClass(name string) *Class {
	return &Class{
		name:   name,
		super:  "java/lang/Object",
		access: classfile.AccPublic | classfile.AccSuper,
		pool:   newPool(),
	}
}

// Access replaces the class access flags.
func (c *Class) Access(flags uint16) *Class {
	c.access = flags
	return c
}

// Super sets the super class; an empty name omits it.
func (c *Class) Super(name string) *Class {
	c.super = name
	return c
}

// Implements appends implemented interfaces.
func (c *Class) Implements(names ...string) *Class {
	c.interfaces = append(c.interfaces, names...)
	return c
}

// SourceFile records a SourceFile attribute.
func (c *Class) SourceFile(name string) *Class {
	c.sourceFile = name
	return c
}

// Field declares a field.
func (c *Class) Field(access uint16, name, desc string) *Class {
	c.fields = append(c.fields, member{access: access, name: name, desc: desc})
	return c
}

// Method declares a method with a Code attribute.
func (c *Class) Method(access uint16, name, desc string) *Method {
	m := &Method{class: c, access: access, name: name, desc: desc, hasCode: true}
	c.methods = append(c.methods, m)
	return m
}

// AbstractMethod declares a method without a Code attribute.
func (c *Class) AbstractMethod(access uint16, name, desc string) *Class {
	c.methods = append(c.methods, &Method{class: c, access: access | classfile.AccAbstract, name: name, desc: desc})
	return c
}

// NativeMethod declares a native method without a Code attribute.
func (c *Class) NativeMethod(access uint16, name, desc string) *Class {
	c.methods = append(c.methods, &Method{class: c, access: access | classfile.AccNative, name: name, desc: desc})
	return c
}

// DefaultConstructor adds "<init>()V" calling the super constructor.
func (c *Class) DefaultConstructor() *Class {
	c.Method(classfile.AccPublic, "<init>", "()V").
		Op(0x2a).
		Invoke(classfile.OpInvokespecial, c.super, "<init>", "()V").
		Return()
	return c
}

// Bytes serializes the class file.
func (c *Class) Bytes() []byte {
	p := c.pool
	this := p.class(c.name)
	var super uint16
	if c.super != "" {
		super = p.class(c.super)
	}
	ifaces := make([]uint16, len(c.interfaces))
	for i, name := range c.interfaces {
		ifaces[i] = p.class(name)
	}
	codeName := p.utf8("Code")
	var sourceName, sourceValue uint16
	if c.sourceFile != "" {
		sourceName = p.utf8("SourceFile")
		sourceValue = p.utf8(c.sourceFile)
	}
	type encoded struct {
		access, name, desc uint16
		m                  *Method
	}
	fields := make([]encoded, len(c.fields))
	for i, f := range c.fields {
		fields[i] = encoded{f.access, p.utf8(f.name), p.utf8(f.desc), nil}
	}
	methods := make([]encoded, len(c.methods))
	for i, m := range c.methods {
		methods[i] = encoded{m.access, p.utf8(m.name), p.utf8(m.desc), m}
	}

	var buf bytes.Buffer
	w := func(b ...byte) { buf.Write(b) }
	w(0xCA, 0xFE, 0xBA, 0xBE, 0, 0, 0, 52)
	w(u2(p.next)...)
	for _, e := range p.entries {
		w(e...)
	}
	w(u2(c.access)...)
	w(u2(this)...)
	w(u2(super)...)
	w(u2(uint16(len(ifaces)))...)
	for _, i := range ifaces {
		w(u2(i)...)
	}

	w(u2(uint16(len(fields)))...)
	for _, f := range fields {
		w(u2(f.access)...)
		w(u2(f.name)...)
		w(u2(f.desc)...)
		w(0, 0)
	}

	w(u2(uint16(len(methods)))...)
	for _, e := range methods {
		w(u2(e.access)...)
		w(u2(e.name)...)
		w(u2(e.desc)...)
		if !e.m.hasCode {
			w(0, 0)
			continue
		}
		w(0, 1)
		w(u2(codeName)...)
		body := e.m.codeAttribute()
		length := make([]byte, 4)
		binary.BigEndian.PutUint32(length, uint32(len(body)))
		w(length...)
		w(body...)
	}

	if c.sourceFile != "" {
		w(0, 1)
		w(u2(sourceName)...)
		w(0, 0, 0, 2)
		w(u2(sourceValue)...)
	} else {
		w(0, 0)
	}
	return buf.Bytes()
}

// Write stores the class under dir using its package path and returns the file path.
func (c *Class) Write(t testing.TB, dir string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(c.name)+".class")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, c.Bytes(), 0644); err != nil {
		t.Fatalf("write class: %v", err)
	}
	return path
}

// Method is a method body under construction.
type Method struct {
	class    *Class
	access   uint16
	name     string
	desc     string
	hasCode  bool
	code     []byte
	handlers [][]byte
}

// Op appends raw opcodes or operand bytes.
func (m *Method) Op(b ...byte) *Method {
	m.code = append(m.code, b...)
	return m
}

// Invoke appends an invoke instruction. invokeinterface uses an
// InterfaceMethodref and its count operand.
func (m *Method) Invoke(op byte, owner, name, desc string) *Method {
	tag := classfile.TagMethodref
	if op == classfile.OpInvokeinterface {
		tag = classfile.TagInterfaceMethodref
	}
	i := m.class.pool.ref(tag, owner, name, desc)
	m.code = append(m.code, op)
	m.code = append(m.code, u2(i)...)
	if op == classfile.OpInvokeinterface {
		m.code = append(m.code, 1, 0)
	}
	return m
}

// Field appends a get/put field or static instruction.
func (m *Method) Field(op byte, owner, name, desc string) *Method {
	i := m.class.pool.ref(classfile.TagFieldref, owner, name, desc)
	m.code = append(m.code, op)
	m.code = append(m.code, u2(i)...)
	return m
}

// New appends "new class; dup".
func (m *Method) New(class string) *Method {
	i := m.class.pool.class(class)
	m.code = append(m.code, classfile.OpNew)
	m.code = append(m.code, u2(i)...)
	m.code = append(m.code, 0x59)
	return m
}

// Ldc appends an ldc of a string constant.
func (m *Method) Ldc(s string) *Method {
	i := m.class.pool.str(s)
	if i > 0xff {
		m.code = append(m.code, classfile.OpLdcW)
		m.code = append(m.code, u2(i)...)
		return m
	}
	m.code = append(m.code, classfile.OpLdc, byte(i))
	return m
}

// LdcInt appends an ldc of an int constant.
func (m *Method) LdcInt(v int32) *Method {
	i := m.class.pool.integer(v)
	m.code = append(m.code, classfile.OpLdc, byte(i))
	return m
}

// Catch adds an exception table entry; an empty class catches everything.
func (m *Method) Catch(start, end, handler uint16, class string) *Method {
	var ci uint16
	if class != "" {
		ci = m.class.pool.class(class)
	}
	var entry []byte
	for _, v := range []uint16{start, end, handler, ci} {
		entry = append(entry, u2(v)...)
	}
	m.handlers = append(m.handlers, entry)
	return m
}

// Return appends a void return.
func (m *Method) Return() *Method {
	return m.Op(classfile.OpReturn)
}

// End returns the owning class for further chaining.
func (m *Method) End() *Class {
	return m.class
}

func (m *Method) codeAttribute() []byte {
	var buf bytes.Buffer
	buf.Write(u2(8))  // max_stack
	buf.Write(u2(16)) // max_locals
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(m.code)))
	buf.Write(length)
	buf.Write(m.code)
	buf.Write(u2(uint16(len(m.handlers))))
	for _, h := range m.handlers {
		buf.Write(h)
	}
	buf.Write(u2(0))
	return buf.Bytes()
}
