package classfile

import (
	"fmt"
	"math"
	"strconv"
)

// Constant pool tags.
const (
	TagUtf8               uint8 = 1
	TagInteger            uint8 = 3
	TagFloat              uint8 = 4
	TagLong               uint8 = 5
	TagDouble             uint8 = 6
	TagClass              uint8 = 7
	TagString             uint8 = 8
	TagFieldref           uint8 = 9
	TagMethodref          uint8 = 10
	TagInterfaceMethodref uint8 = 11
	TagNameAndType        uint8 = 12
	TagMethodHandle       uint8 = 15
	TagMethodType         uint8 = 16
	TagDynamic            uint8 = 17
	TagInvokeDynamic      uint8 = 18
	TagModule             uint8 = 19
	TagPackage            uint8 = 20
)

// Constant is one constant pool slot. Only the fields relevant to Tag are set.
// Slot 0 and the second slot of long/double entries have Tag 0.
type Constant struct {
	Tag    uint8
	Text   string // Utf8
	Int    int64  // Integer, Long
	Float  float64
	Index1 uint16 // Class/String/MethodType name, ref class, NameAndType name, handle ref, bootstrap index
	Index2 uint16 // ref NameAndType, NameAndType descriptor
	Kind   uint8  // MethodHandle reference kind
}

// ConstantPool is indexed exactly as in the class file (slot 0 unused).
type ConstantPool []Constant

// Ref is a resolved field or method reference.
type Ref struct {
	Tag        uint8
	Owner      string // dotted binary name
	Name       string
	Descriptor string
}

func (p ConstantPool) entry(index uint16, tags ...uint8) (*Constant, error) {
	if int(index) <= 0 || int(index) >= len(p) {
		return nil, fmt.Errorf("%w: index %d out of range", ErrBadConstant, index)
	}
	c := &p[index]
	for _, tag := range tags {
		if c.Tag == tag {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: index %d has tag %d", ErrBadConstant, index, c.Tag)
}

// Utf8 returns the string stored at index.
func (p ConstantPool) Utf8(index uint16) (string, error) {
	c, err := p.entry(index, TagUtf8)
	if err != nil {
		return "", err
	}
	return c.Text, nil
}

// ClassName returns the dotted name of the Class constant at index.
// Array classes keep their descriptor form (e.g. "[Ljava.lang.String;").
func (p ConstantPool) ClassName(index uint16) (string, error) {
	c, err := p.entry(index, TagClass)
	if err != nil {
		return "", err
	}
	name, err := p.Utf8(c.Index1)
	if err != nil {
		return "", err
	}
	return BinaryName(name), nil
}

// NameAndType returns the name and descriptor of a NameAndType constant.
func (p ConstantPool) NameAndType(index uint16) (string, string, error) {
	c, err := p.entry(index, TagNameAndType)
	if err != nil {
		return "", "", err
	}
	name, err := p.Utf8(c.Index1)
	if err != nil {
		return "", "", err
	}
	desc, err := p.Utf8(c.Index2)
	if err != nil {
		return "", "", err
	}
	return name, desc, nil
}

// MemberRef resolves a Fieldref, Methodref or InterfaceMethodref constant.
func (p ConstantPool) MemberRef(index uint16) (Ref, error) {
	c, err := p.entry(index, TagFieldref, TagMethodref, TagInterfaceMethodref)
	if err != nil {
		return Ref{}, err
	}
	owner, err := p.ClassName(c.Index1)
	if err != nil {
		return Ref{}, err
	}
	name, desc, err := p.NameAndType(c.Index2)
	if err != nil {
		return Ref{}, err
	}
	return Ref{Tag: c.Tag, Owner: owner, Name: name, Descriptor: desc}, nil
}

// InvokeDynamic resolves the name and descriptor of an InvokeDynamic constant.
func (p ConstantPool) InvokeDynamic(index uint16) (string, string, error) {
	c, err := p.entry(index, TagInvokeDynamic, TagDynamic)
	if err != nil {
		return "", "", err
	}
	return p.NameAndType(c.Index2)
}

// Literal renders a loadable constant (ldc operand) as source-like text.
func (p ConstantPool) Literal(index uint16) (string, error) {
	c, err := p.entry(index, TagInteger, TagFloat, TagLong, TagDouble, TagString, TagClass, TagMethodType, TagMethodHandle, TagDynamic)
	if err != nil {
		return "", err
	}
	switch c.Tag {
	case TagInteger:
		return strconv.FormatInt(c.Int, 10), nil
	case TagLong:
		return strconv.FormatInt(c.Int, 10) + "L", nil
	case TagFloat:
		return formatFloat(c.Float, 32) + "F", nil
	case TagDouble:
		return formatFloat(c.Float, 64), nil
	case TagString:
		s, err := p.Utf8(c.Index1)
		if err != nil {
			return "", err
		}
		return strconv.Quote(s), nil
	case TagClass:
		name, err := p.ClassName(index)
		if err != nil {
			return "", err
		}
		return "class " + name, nil
	case TagMethodType:
		desc, err := p.Utf8(c.Index1)
		if err != nil {
			return "", err
		}
		return "methodtype " + desc, nil
	case TagMethodHandle:
		ref, err := p.MemberRef(c.Index1)
		if err != nil {
			return "", err
		}
		return "handle " + ref.Owner + "." + ref.Name, nil
	default:
		name, _, err := p.InvokeDynamic(index)
		if err != nil {
			return "", err
		}
		return "dynamic " + name, nil
	}
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'g', -1, bits)
}
