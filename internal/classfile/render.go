package classfile

import (
	"fmt"
	"strconv"
	"strings"
)

// SubSignature renders "ret name(p1,p2)".
func SubSignature(name string, mt MethodType) string {
	return mt.Return + " " + name + "(" + strings.Join(mt.Params, ",") + ")"
}

// Signature renders the full method signature "<owner: ret name(p1,p2)>".
func Signature(owner, name string, mt MethodType) string {
	return "<" + owner + ": " + SubSignature(name, mt) + ">"
}

// FieldSignature renders "<owner: type name>".
func FieldSignature(owner, name, desc string) string {
	t, err := ParseFieldDescriptor(desc)
	if err != nil {
		t = desc
	}
	return "<" + owner + ": " + t + " " + name + ">"
}

// Disassemble renders a method body as an indented, brace-delimited listing,
// one instruction per line with symbolic operands, followed by the exception table.
func Disassemble(pool ConstantPool, code *Code) (string, error) {
	if code == nil {
		return "", nil
	}
	insns, err := Decode(code.Bytecode)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("{\n")
	for _, in := range insns {
		operand, err := formatOperand(pool, in)
		if err != nil {
			return "", fmt.Errorf("at %d: %w", in.Offset, err)
		}
		sb.WriteString("    ")
		sb.WriteString(strconv.Itoa(in.Offset))
		sb.WriteString(": ")
		sb.WriteString(in.Mnemonic())
		if operand != "" {
			sb.WriteString(" ")
			sb.WriteString(operand)
		}
		sb.WriteString("\n")
	}
	for _, h := range code.ExceptionTable {
		catch := h.CatchType
		if catch == "" {
			catch = "any"
		}
		fmt.Fprintf(&sb, "    catch %s from %d to %d with %d\n", catch, h.StartPC, h.EndPC, h.HandlerPC)
	}
	sb.WriteString("}")
	return sb.String(), nil
}

func formatOperand(pool ConstantPool, in Instruction) (string, error) {
	info := opcodeTable[in.Opcode]
	switch info.operand {
	case operandNone:
		return "", nil
	case operandLocal:
		return "l" + strconv.Itoa(in.Index), nil
	case operandByte, operandShort:
		return strconv.Itoa(in.Value), nil
	case operandBranch2, operandBranch4:
		return "label" + strconv.Itoa(in.Target), nil
	case operandIinc:
		return fmt.Sprintf("l%d %d", in.Index, in.Value), nil
	case operandArrayType:
		if t, ok := arrayTypes[in.Value]; ok {
			return t, nil
		}
		return "", fmt.Errorf("%w: newarray type %d", ErrBadBytecode, in.Value)
	case operandPool1:
		return pool.Literal(uint16(in.Index))
	case operandPool2, operandInterface, operandMultiArray:
		return formatPoolOperand(pool, in)
	case operandDynamic:
		name, desc, err := pool.InvokeDynamic(uint16(in.Index))
		if err != nil {
			return "", err
		}
		return name + desc, nil
	case operandTableSwitch, operandLookupSwitch:
		parts := make([]string, 0, len(in.Keys)+1)
		for i, k := range in.Keys {
			parts = append(parts, fmt.Sprintf("case %d: label%d", k, in.Targets[i]))
		}
		parts = append(parts, fmt.Sprintf("default: label%d", in.Default))
		return "{ " + strings.Join(parts, "; ") + " }", nil
	}
	return "", nil
}

func formatPoolOperand(pool ConstantPool, in Instruction) (string, error) {
	index := uint16(in.Index)
	switch in.Opcode {
	case OpLdcW, OpLdc2W:
		return pool.Literal(index)
	case OpGetstatic, OpPutstatic, OpGetfield, OpPutfield:
		ref, err := pool.MemberRef(index)
		if err != nil {
			return "", err
		}
		return FieldSignature(ref.Owner, ref.Name, ref.Descriptor), nil
	case OpInvokevirtual, OpInvokespecial, OpInvokestatic, OpInvokeinterface:
		ref, err := pool.MemberRef(index)
		if err != nil {
			return "", err
		}
		mt, err := ParseMethodDescriptor(ref.Descriptor)
		if err != nil {
			return "", err
		}
		return Signature(ref.Owner, ref.Name, mt), nil
	case OpMultianewarray:
		name, err := pool.ClassName(index)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %d", ArrayClassName(name), in.Value), nil
	default:
		// new, anewarray, checkcast, instanceof
		name, err := pool.ClassName(index)
		if err != nil {
			return "", err
		}
		return ArrayClassName(name), nil
	}
}
