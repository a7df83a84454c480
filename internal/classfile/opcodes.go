package classfile

// Opcodes referenced by name elsewhere in the module.
const (
	OpBipush          byte = 0x10
	OpSipush          byte = 0x11
	OpLdc             byte = 0x12
	OpLdcW            byte = 0x13
	OpLdc2W           byte = 0x14
	OpIload           byte = 0x15
	OpAload           byte = 0x19
	OpIstore          byte = 0x36
	OpAstore          byte = 0x3a
	OpIinc            byte = 0x84
	OpIfeq            byte = 0x99
	OpGoto            byte = 0xa7
	OpJsr             byte = 0xa8
	OpRet             byte = 0xa9
	OpTableswitch     byte = 0xaa
	OpLookupswitch    byte = 0xab
	OpIreturn         byte = 0xac
	OpReturn          byte = 0xb1
	OpGetstatic       byte = 0xb2
	OpPutstatic       byte = 0xb3
	OpGetfield        byte = 0xb4
	OpPutfield        byte = 0xb5
	OpInvokevirtual   byte = 0xb6
	OpInvokespecial   byte = 0xb7
	OpInvokestatic    byte = 0xb8
	OpInvokeinterface byte = 0xb9
	OpInvokedynamic   byte = 0xba
	OpNew             byte = 0xbb
	OpNewarray        byte = 0xbc
	OpAnewarray       byte = 0xbd
	OpAthrow          byte = 0xbf
	OpCheckcast       byte = 0xc0
	OpInstanceof      byte = 0xc1
	OpWide            byte = 0xc4
	OpMultianewarray  byte = 0xc5
	OpIfnull          byte = 0xc6
	OpIfnonnull       byte = 0xc7
	OpGotoW           byte = 0xc8
	OpJsrW            byte = 0xc9
)

type operandKind uint8

const (
	operandNone       operandKind = iota
	operandLocal                  // u1 local variable index (u2 under wide)
	operandByte                   // s1 immediate
	operandShort                  // s2 immediate
	operandPool1                  // u1 constant pool index
	operandPool2                  // u2 constant pool index
	operandBranch2                // s2 branch offset
	operandBranch4                // s4 branch offset
	operandIinc                   // local index + s1 (u2 + s2 under wide)
	operandInterface              // u2 pool index, u1 count, u1 zero
	operandDynamic                // u2 pool index, u2 zero
	operandArrayType              // u1 primitive array type
	operandMultiArray             // u2 pool index, u1 dimensions
	operandTableSwitch
	operandLookupSwitch
	operandWide
)

type opcodeInfo struct {
	name    string
	operand operandKind
}

var opcodeTable = [256]opcodeInfo{
	0x00: {"nop", operandNone},
	0x01: {"aconst_null", operandNone},
	0x02: {"iconst_m1", operandNone},
	0x03: {"iconst_0", operandNone},
	0x04: {"iconst_1", operandNone},
	0x05: {"iconst_2", operandNone},
	0x06: {"iconst_3", operandNone},
	0x07: {"iconst_4", operandNone},
	0x08: {"iconst_5", operandNone},
	0x09: {"lconst_0", operandNone},
	0x0a: {"lconst_1", operandNone},
	0x0b: {"fconst_0", operandNone},
	0x0c: {"fconst_1", operandNone},
	0x0d: {"fconst_2", operandNone},
	0x0e: {"dconst_0", operandNone},
	0x0f: {"dconst_1", operandNone},
	0x10: {"bipush", operandByte},
	0x11: {"sipush", operandShort},
	0x12: {"ldc", operandPool1},
	0x13: {"ldc_w", operandPool2},
	0x14: {"ldc2_w", operandPool2},
	0x15: {"iload", operandLocal},
	0x16: {"lload", operandLocal},
	0x17: {"fload", operandLocal},
	0x18: {"dload", operandLocal},
	0x19: {"aload", operandLocal},
	0x1a: {"iload_0", operandNone},
	0x1b: {"iload_1", operandNone},
	0x1c: {"iload_2", operandNone},
	0x1d: {"iload_3", operandNone},
	0x1e: {"lload_0", operandNone},
	0x1f: {"lload_1", operandNone},
	0x20: {"lload_2", operandNone},
	0x21: {"lload_3", operandNone},
	0x22: {"fload_0", operandNone},
	0x23: {"fload_1", operandNone},
	0x24: {"fload_2", operandNone},
	0x25: {"fload_3", operandNone},
	0x26: {"dload_0", operandNone},
	0x27: {"dload_1", operandNone},
	0x28: {"dload_2", operandNone},
	0x29: {"dload_3", operandNone},
	0x2a: {"aload_0", operandNone},
	0x2b: {"aload_1", operandNone},
	0x2c: {"aload_2", operandNone},
	0x2d: {"aload_3", operandNone},
	0x2e: {"iaload", operandNone},
	0x2f: {"laload", operandNone},
	0x30: {"faload", operandNone},
	0x31: {"daload", operandNone},
	0x32: {"aaload", operandNone},
	0x33: {"baload", operandNone},
	0x34: {"caload", operandNone},
	0x35: {"saload", operandNone},
	0x36: {"istore", operandLocal},
	0x37: {"lstore", operandLocal},
	0x38: {"fstore", operandLocal},
	0x39: {"dstore", operandLocal},
	0x3a: {"astore", operandLocal},
	0x3b: {"istore_0", operandNone},
	0x3c: {"istore_1", operandNone},
	0x3d: {"istore_2", operandNone},
	0x3e: {"istore_3", operandNone},
	0x3f: {"lstore_0", operandNone},
	0x40: {"lstore_1", operandNone},
	0x41: {"lstore_2", operandNone},
	0x42: {"lstore_3", operandNone},
	0x43: {"fstore_0", operandNone},
	0x44: {"fstore_1", operandNone},
	0x45: {"fstore_2", operandNone},
	0x46: {"fstore_3", operandNone},
	0x47: {"dstore_0", operandNone},
	0x48: {"dstore_1", operandNone},
	0x49: {"dstore_2", operandNone},
	0x4a: {"dstore_3", operandNone},
	0x4b: {"astore_0", operandNone},
	0x4c: {"astore_1", operandNone},
	0x4d: {"astore_2", operandNone},
	0x4e: {"astore_3", operandNone},
	0x4f: {"iastore", operandNone},
	0x50: {"lastore", operandNone},
	0x51: {"fastore", operandNone},
	0x52: {"dastore", operandNone},
	0x53: {"aastore", operandNone},
	0x54: {"bastore", operandNone},
	0x55: {"castore", operandNone},
	0x56: {"sastore", operandNone},
	0x57: {"pop", operandNone},
	0x58: {"pop2", operandNone},
	0x59: {"dup", operandNone},
	0x5a: {"dup_x1", operandNone},
	0x5b: {"dup_x2", operandNone},
	0x5c: {"dup2", operandNone},
	0x5d: {"dup2_x1", operandNone},
	0x5e: {"dup2_x2", operandNone},
	0x5f: {"swap", operandNone},
	0x60: {"iadd", operandNone},
	0x61: {"ladd", operandNone},
	0x62: {"fadd", operandNone},
	0x63: {"dadd", operandNone},
	0x64: {"isub", operandNone},
	0x65: {"lsub", operandNone},
	0x66: {"fsub", operandNone},
	0x67: {"dsub", operandNone},
	0x68: {"imul", operandNone},
	0x69: {"lmul", operandNone},
	0x6a: {"fmul", operandNone},
	0x6b: {"dmul", operandNone},
	0x6c: {"idiv", operandNone},
	0x6d: {"ldiv", operandNone},
	0x6e: {"fdiv", operandNone},
	0x6f: {"ddiv", operandNone},
	0x70: {"irem", operandNone},
	0x71: {"lrem", operandNone},
	0x72: {"frem", operandNone},
	0x73: {"drem", operandNone},
	0x74: {"ineg", operandNone},
	0x75: {"lneg", operandNone},
	0x76: {"fneg", operandNone},
	0x77: {"dneg", operandNone},
	0x78: {"ishl", operandNone},
	0x79: {"lshl", operandNone},
	0x7a: {"ishr", operandNone},
	0x7b: {"lshr", operandNone},
	0x7c: {"iushr", operandNone},
	0x7d: {"lushr", operandNone},
	0x7e: {"iand", operandNone},
	0x7f: {"land", operandNone},
	0x80: {"ior", operandNone},
	0x81: {"lor", operandNone},
	0x82: {"ixor", operandNone},
	0x83: {"lxor", operandNone},
	0x84: {"iinc", operandIinc},
	0x85: {"i2l", operandNone},
	0x86: {"i2f", operandNone},
	0x87: {"i2d", operandNone},
	0x88: {"l2i", operandNone},
	0x89: {"l2f", operandNone},
	0x8a: {"l2d", operandNone},
	0x8b: {"f2i", operandNone},
	0x8c: {"f2l", operandNone},
	0x8d: {"f2d", operandNone},
	0x8e: {"d2i", operandNone},
	0x8f: {"d2l", operandNone},
	0x90: {"d2f", operandNone},
	0x91: {"i2b", operandNone},
	0x92: {"i2c", operandNone},
	0x93: {"i2s", operandNone},
	0x94: {"lcmp", operandNone},
	0x95: {"fcmpl", operandNone},
	0x96: {"fcmpg", operandNone},
	0x97: {"dcmpl", operandNone},
	0x98: {"dcmpg", operandNone},
	0x99: {"ifeq", operandBranch2},
	0x9a: {"ifne", operandBranch2},
	0x9b: {"iflt", operandBranch2},
	0x9c: {"ifge", operandBranch2},
	0x9d: {"ifgt", operandBranch2},
	0x9e: {"ifle", operandBranch2},
	0x9f: {"if_icmpeq", operandBranch2},
	0xa0: {"if_icmpne", operandBranch2},
	0xa1: {"if_icmplt", operandBranch2},
	0xa2: {"if_icmpge", operandBranch2},
	0xa3: {"if_icmpgt", operandBranch2},
	0xa4: {"if_icmple", operandBranch2},
	0xa5: {"if_acmpeq", operandBranch2},
	0xa6: {"if_acmpne", operandBranch2},
	0xa7: {"goto", operandBranch2},
	0xa8: {"jsr", operandBranch2},
	0xa9: {"ret", operandLocal},
	0xaa: {"tableswitch", operandTableSwitch},
	0xab: {"lookupswitch", operandLookupSwitch},
	0xac: {"ireturn", operandNone},
	0xad: {"lreturn", operandNone},
	0xae: {"freturn", operandNone},
	0xaf: {"dreturn", operandNone},
	0xb0: {"areturn", operandNone},
	0xb1: {"return", operandNone},
	0xb2: {"getstatic", operandPool2},
	0xb3: {"putstatic", operandPool2},
	0xb4: {"getfield", operandPool2},
	0xb5: {"putfield", operandPool2},
	0xb6: {"invokevirtual", operandPool2},
	0xb7: {"invokespecial", operandPool2},
	0xb8: {"invokestatic", operandPool2},
	0xb9: {"invokeinterface", operandInterface},
	0xba: {"invokedynamic", operandDynamic},
	0xbb: {"new", operandPool2},
	0xbc: {"newarray", operandArrayType},
	0xbd: {"anewarray", operandPool2},
	0xbe: {"arraylength", operandNone},
	0xbf: {"athrow", operandNone},
	0xc0: {"checkcast", operandPool2},
	0xc1: {"instanceof", operandPool2},
	0xc2: {"monitorenter", operandNone},
	0xc3: {"monitorexit", operandNone},
	0xc4: {"wide", operandWide},
	0xc5: {"multianewarray", operandMultiArray},
	0xc6: {"ifnull", operandBranch2},
	0xc7: {"ifnonnull", operandBranch2},
	0xc8: {"goto_w", operandBranch4},
	0xc9: {"jsr_w", operandBranch4},
}

var arrayTypes = map[int]string{
	4:  "boolean",
	5:  "char",
	6:  "float",
	7:  "double",
	8:  "byte",
	9:  "short",
	10: "int",
	11: "long",
}

// OpcodeName returns the mnemonic for op, or "" for unassigned opcodes.
func OpcodeName(op byte) string {
	return opcodeTable[op].name
}
