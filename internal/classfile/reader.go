package classfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"unicode/utf16"
)

const magic uint32 = 0xCAFEBABE

// cursor reads big-endian values and remembers the first failure.
type cursor struct {
	buf []byte
	pos int
	err error
}

func (c *cursor) take(n int) []byte {
	if c.err != nil {
		return nil
	}
	if n < 0 || c.pos+n > len(c.buf) {
		c.err = fmt.Errorf("%w: need %d bytes at offset %d", ErrTruncated, n, c.pos)
		return nil
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b
}

func (c *cursor) u1() uint8 {
	b := c.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (c *cursor) u2() uint16 {
	b := c.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (c *cursor) u4() uint32 {
	b := c.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

// ParseFile reads and parses the class file at path.
func ParseFile(path string) (*ClassFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cf, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cf, nil
}

// Read parses a class file from r.
func Read(r io.Reader) (*ClassFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a class file. Attributes other than Code and SourceFile are skipped.
func Parse(data []byte) (*ClassFile, error) {
	c := &cursor{buf: data}
	if c.u4() != magic {
		if c.err != nil {
			return nil, c.err
		}
		return nil, ErrBadMagic
	}

	cf := &ClassFile{}
	cf.MinorVersion = c.u2()
	cf.MajorVersion = c.u2()

	pool, err := readPool(c)
	if err != nil {
		return nil, err
	}
	cf.Pool = pool

	cf.AccessFlags = c.u2()
	thisIndex := c.u2()
	superIndex := c.u2()
	if c.err != nil {
		return nil, c.err
	}

	if cf.Name, err = pool.ClassName(thisIndex); err != nil {
		return nil, fmt.Errorf("this_class: %w", err)
	}
	if superIndex != 0 {
		if cf.SuperName, err = pool.ClassName(superIndex); err != nil {
			return nil, fmt.Errorf("super_class: %w", err)
		}
	}

	count := int(c.u2())
	for i := 0; i < count && c.err == nil; i++ {
		name, err := pool.ClassName(c.u2())
		if err != nil {
			return nil, fmt.Errorf("interfaces[%d]: %w", i, err)
		}
		cf.Interfaces = append(cf.Interfaces, name)
	}

	if cf.Fields, err = readMembers(c, pool); err != nil {
		return nil, fmt.Errorf("fields: %w", err)
	}
	if cf.Methods, err = readMembers(c, pool); err != nil {
		return nil, fmt.Errorf("methods: %w", err)
	}

	count = int(c.u2())
	for i := 0; i < count && c.err == nil; i++ {
		name, body, err := readAttribute(c, pool)
		if err != nil {
			return nil, err
		}
		if name == "SourceFile" && len(body) == 2 {
			if sf, err := pool.Utf8(binary.BigEndian.Uint16(body)); err == nil {
				cf.SourceFile = sf
			}
		}
	}
	if c.err != nil {
		return nil, c.err
	}
	return cf, nil
}

func readPool(c *cursor) (ConstantPool, error) {
	count := int(c.u2())
	if c.err != nil {
		return nil, c.err
	}
	pool := make(ConstantPool, count)
	for i := 1; i < count; i++ {
		entry := Constant{Tag: c.u1()}
		switch entry.Tag {
		case TagUtf8:
			n := int(c.u2())
			entry.Text = decodeModifiedUTF8(c.take(n))
		case TagInteger:
			entry.Int = int64(int32(c.u4()))
		case TagFloat:
			entry.Float = float64(math.Float32frombits(c.u4()))
		case TagLong:
			hi, lo := c.u4(), c.u4()
			entry.Int = int64(uint64(hi)<<32 | uint64(lo))
		case TagDouble:
			hi, lo := c.u4(), c.u4()
			entry.Float = math.Float64frombits(uint64(hi)<<32 | uint64(lo))
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			entry.Index1 = c.u2()
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagDynamic, TagInvokeDynamic:
			entry.Index1 = c.u2()
			entry.Index2 = c.u2()
		case TagMethodHandle:
			entry.Kind = c.u1()
			entry.Index1 = c.u2()
		default:
			if c.err != nil {
				return nil, c.err
			}
			return nil, fmt.Errorf("%w: unknown tag %d at slot %d", ErrBadConstant, entry.Tag, i)
		}
		if c.err != nil {
			return nil, c.err
		}
		pool[i] = entry
		// long and double occupy two slots
		if entry.Tag == TagLong || entry.Tag == TagDouble {
			i++
		}
	}
	return pool, nil
}

func readMembers(c *cursor, pool ConstantPool) ([]Member, error) {
	count := int(c.u2())
	members := make([]Member, 0, count)
	for i := 0; i < count; i++ {
		m := Member{AccessFlags: c.u2()}
		nameIndex, descIndex := c.u2(), c.u2()
		if c.err != nil {
			return nil, c.err
		}
		var err error
		if m.Name, err = pool.Utf8(nameIndex); err != nil {
			return nil, err
		}
		if m.Descriptor, err = pool.Utf8(descIndex); err != nil {
			return nil, err
		}

		attrs := int(c.u2())
		for j := 0; j < attrs; j++ {
			name, body, err := readAttribute(c, pool)
			if err != nil {
				return nil, err
			}
			if name == "Code" {
				if m.Code, err = parseCode(body, pool); err != nil {
					return nil, fmt.Errorf("%s%s: %w", m.Name, m.Descriptor, err)
				}
			}
		}
		members = append(members, m)
	}
	return members, c.err
}

func readAttribute(c *cursor, pool ConstantPool) (string, []byte, error) {
	nameIndex := c.u2()
	length := c.u4()
	if c.err != nil {
		return "", nil, c.err
	}
	if uint64(length) > uint64(len(c.buf)-c.pos) {
		return "", nil, fmt.Errorf("%w: attribute length %d", ErrTruncated, length)
	}
	body := c.take(int(length))
	name, err := pool.Utf8(nameIndex)
	if err != nil {
		return "", nil, err
	}
	return name, body, c.err
}

func parseCode(body []byte, pool ConstantPool) (*Code, error) {
	c := &cursor{buf: body}
	code := &Code{
		MaxStack:  c.u2(),
		MaxLocals: c.u2(),
	}
	length := c.u4()
	if c.err != nil {
		return nil, c.err
	}
	if uint64(length) > uint64(len(body)-c.pos) {
		return nil, fmt.Errorf("%w: code length %d", ErrTruncated, length)
	}
	code.Bytecode = c.take(int(length))

	handlers := int(c.u2())
	for i := 0; i < handlers; i++ {
		h := ExceptionHandler{
			StartPC:   c.u2(),
			EndPC:     c.u2(),
			HandlerPC: c.u2(),
		}
		catchIndex := c.u2()
		if c.err != nil {
			return nil, c.err
		}
		if catchIndex != 0 {
			name, err := pool.ClassName(catchIndex)
			if err != nil {
				return nil, err
			}
			h.CatchType = name
		}
		code.ExceptionTable = append(code.ExceptionTable, h)
	}
	// nested attributes (LineNumberTable, StackMapTable, ...) are not needed
	return code, c.err
}

// decodeModifiedUTF8 decodes the JVM's modified UTF-8 encoding, where NUL is
// two bytes and supplementary characters are encoded as surrogate pairs.
func decodeModifiedUTF8(b []byte) string {
	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		x := b[i]
		switch {
		case x < 0x80:
			units = append(units, uint16(x))
			i++
		case x&0xE0 == 0xC0 && i+1 < len(b):
			units = append(units, uint16(x&0x1F)<<6|uint16(b[i+1]&0x3F))
			i += 2
		case x&0xF0 == 0xE0 && i+2 < len(b):
			units = append(units, uint16(x&0x0F)<<12|uint16(b[i+1]&0x3F)<<6|uint16(b[i+2]&0x3F))
			i += 3
		default:
			units = append(units, 0xFFFD)
			i++
		}
	}
	return string(utf16.Decode(units))
}
