package classfile

import (
	"encoding/binary"
	"fmt"
)

// Instruction is one decoded bytecode instruction.
type Instruction struct {
	Offset int
	Opcode byte
	Wide   bool

	Index  int // local variable or constant pool index
	Value  int // immediate, iinc delta, newarray type, dimensions or interface arg count
	Target int // absolute branch target

	// tableswitch / lookupswitch
	Default int
	Keys    []int32
	Targets []int
}

// Mnemonic returns the opcode name, prefixed with "wide " when widened.
func (in Instruction) Mnemonic() string {
	if in.Wide {
		return "wide " + OpcodeName(in.Opcode)
	}
	return OpcodeName(in.Opcode)
}

// IsInvoke reports whether the instruction is one of the invoke opcodes.
func (in Instruction) IsInvoke() bool {
	return in.Opcode >= OpInvokevirtual && in.Opcode <= OpInvokedynamic
}

// Decode splits a method's bytecode into instructions.
func Decode(code []byte) ([]Instruction, error) {
	var out []Instruction
	pc := 0
	for pc < len(code) {
		in, next, err := decodeAt(code, pc)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
		pc = next
	}
	return out, nil
}

func decodeAt(code []byte, pc int) (Instruction, int, error) {
	op := code[pc]
	info := opcodeTable[op]
	if info.name == "" {
		return Instruction{}, 0, fmt.Errorf("%w: unknown opcode 0x%02x at %d", ErrBadBytecode, op, pc)
	}

	in := Instruction{Offset: pc, Opcode: op}
	need := func(n int) error {
		if pc+1+n > len(code) {
			return fmt.Errorf("%w: %s at %d needs %d operand bytes", ErrBadBytecode, info.name, pc, n)
		}
		return nil
	}
	u1 := func(at int) int { return int(code[at]) }
	u2 := func(at int) int { return int(binary.BigEndian.Uint16(code[at:])) }
	s2 := func(at int) int { return int(int16(binary.BigEndian.Uint16(code[at:]))) }
	s4 := func(at int) int { return int(int32(binary.BigEndian.Uint32(code[at:]))) }

	switch info.operand {
	case operandNone:
		return in, pc + 1, nil
	case operandLocal, operandPool1, operandArrayType:
		if err := need(1); err != nil {
			return in, 0, err
		}
		if info.operand == operandArrayType {
			in.Value = u1(pc + 1)
		} else {
			in.Index = u1(pc + 1)
		}
		return in, pc + 2, nil
	case operandByte:
		if err := need(1); err != nil {
			return in, 0, err
		}
		in.Value = int(int8(code[pc+1]))
		return in, pc + 2, nil
	case operandShort:
		if err := need(2); err != nil {
			return in, 0, err
		}
		in.Value = s2(pc + 1)
		return in, pc + 3, nil
	case operandPool2:
		if err := need(2); err != nil {
			return in, 0, err
		}
		in.Index = u2(pc + 1)
		return in, pc + 3, nil
	case operandBranch2:
		if err := need(2); err != nil {
			return in, 0, err
		}
		in.Target = pc + s2(pc+1)
		return in, pc + 3, nil
	case operandBranch4:
		if err := need(4); err != nil {
			return in, 0, err
		}
		in.Target = pc + s4(pc+1)
		return in, pc + 5, nil
	case operandIinc:
		if err := need(2); err != nil {
			return in, 0, err
		}
		in.Index = u1(pc + 1)
		in.Value = int(int8(code[pc+2]))
		return in, pc + 3, nil
	case operandInterface:
		if err := need(4); err != nil {
			return in, 0, err
		}
		in.Index = u2(pc + 1)
		in.Value = u1(pc + 3)
		return in, pc + 5, nil
	case operandDynamic:
		if err := need(4); err != nil {
			return in, 0, err
		}
		in.Index = u2(pc + 1)
		return in, pc + 5, nil
	case operandMultiArray:
		if err := need(3); err != nil {
			return in, 0, err
		}
		in.Index = u2(pc + 1)
		in.Value = u1(pc + 3)
		return in, pc + 4, nil
	case operandWide:
		if err := need(3); err != nil {
			return in, 0, err
		}
		in.Wide = true
		in.Opcode = code[pc+1]
		in.Index = u2(pc + 2)
		switch opcodeTable[in.Opcode].operand {
		case operandIinc:
			if err := need(5); err != nil {
				return in, 0, err
			}
			in.Value = s2(pc + 4)
			return in, pc + 6, nil
		case operandLocal:
			return in, pc + 4, nil
		default:
			return in, 0, fmt.Errorf("%w: wide applied to 0x%02x at %d", ErrBadBytecode, in.Opcode, pc)
		}
	case operandTableSwitch, operandLookupSwitch:
		return decodeSwitch(code, in)
	}
	return in, 0, fmt.Errorf("%w: unhandled operand kind for 0x%02x", ErrBadBytecode, op)
}

func decodeSwitch(code []byte, in Instruction) (Instruction, int, error) {
	pc := in.Offset
	// operands start at the next 4-byte boundary relative to the code start
	at := (pc + 4) &^ 3
	read := func() (int, error) {
		if at+4 > len(code) {
			return 0, fmt.Errorf("%w: truncated switch at %d", ErrBadBytecode, pc)
		}
		v := int(int32(binary.BigEndian.Uint32(code[at:])))
		at += 4
		return v, nil
	}

	def, err := read()
	if err != nil {
		return in, 0, err
	}
	in.Default = pc + def

	if in.Opcode == OpTableswitch {
		low, err := read()
		if err != nil {
			return in, 0, err
		}
		high, err := read()
		if err != nil {
			return in, 0, err
		}
		if high < low || high-low >= len(code) {
			return in, 0, fmt.Errorf("%w: tableswitch bounds %d..%d at %d", ErrBadBytecode, low, high, pc)
		}
		for k := low; k <= high; k++ {
			off, err := read()
			if err != nil {
				return in, 0, err
			}
			in.Keys = append(in.Keys, int32(k))
			in.Targets = append(in.Targets, pc+off)
		}
		return in, at, nil
	}

	pairs, err := read()
	if err != nil {
		return in, 0, err
	}
	if pairs < 0 || pairs > len(code)/8 {
		return in, 0, fmt.Errorf("%w: lookupswitch with %d pairs at %d", ErrBadBytecode, pairs, pc)
	}
	for i := 0; i < pairs; i++ {
		key, err := read()
		if err != nil {
			return in, 0, err
		}
		off, err := read()
		if err != nil {
			return in, 0, err
		}
		in.Keys = append(in.Keys, int32(key))
		in.Targets = append(in.Targets, pc+off)
	}
	return in, at, nil
}
