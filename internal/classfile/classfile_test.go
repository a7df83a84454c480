package classfile_test

import (
	"testing"

	"github.com/mvp-joe/javacorpus/internal/classfile"
	"github.com/mvp-joe/javacorpus/internal/classfile/classfiletest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for class file reading:
// - Parse decodes names, hierarchy, members and Code attributes of an assembled class
// - Parse rejects inputs without the magic number and truncated inputs
// - Abstract methods carry no body
// - Method descriptors map to Java source type names (primitives, classes, arrays, nested)
// - Malformed descriptors are rejected
// - Decode handles wide, switch padding and branch targets
// - Disassemble renders symbolic operands and the exception table

func sampleClass() *classfiletest.Class {
	c := classfiletest.NewClass("com/acme/Greeter").
		Implements("java/lang/Runnable").
		SourceFile("Greeter.java").
		Field(classfile.AccPrivate, "name", "Ljava/lang/String;").
		DefaultConstructor()
	c.Method(classfile.AccPublic, "run", "()V").
		Op(0x2a).
		Invoke(classfile.OpInvokevirtual, "com/acme/Greeter", "greet", "(Ljava/lang/String;I)V").
		Return()
	c.Method(classfile.AccPublic, "greet", "(Ljava/lang/String;I)V").
		Field(classfile.OpGetstatic, "java/lang/System", "out", "Ljava/io/PrintStream;").
		Ldc("hello").
		Invoke(classfile.OpInvokevirtual, "java/io/PrintStream", "println", "(Ljava/lang/String;)V").
		Return()
	c.AbstractMethod(classfile.AccPublic, "shape", "()[[I")
	return c
}

func TestParse_AssembledClass(t *testing.T) {
	t.Parallel()

	cf, err := classfile.Parse(sampleClass().Bytes())
	require.NoError(t, err)

	assert.Equal(t, "com.acme.Greeter", cf.Name)
	assert.Equal(t, "java.lang.Object", cf.SuperName)
	assert.Equal(t, []string{"java.lang.Runnable"}, cf.Interfaces)
	assert.Equal(t, "Greeter.java", cf.SourceFile)
	assert.Equal(t, uint16(52), cf.MajorVersion)
	assert.False(t, cf.IsInterface())

	require.Len(t, cf.Fields, 1)
	assert.Equal(t, "name", cf.Fields[0].Name)

	require.Len(t, cf.Methods, 4)
	names := make([]string, 0, len(cf.Methods))
	for _, m := range cf.Methods {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"<init>", "run", "greet", "shape"}, names)

	assert.True(t, cf.Methods[1].HasBody())
	assert.Equal(t, []byte{0x2a, classfile.OpInvokevirtual}, cf.Methods[1].Code.Bytecode[:2])
	assert.False(t, cf.Methods[3].HasBody())
	assert.Nil(t, cf.Methods[3].Code)
}

func TestParse_RejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := classfile.Parse([]byte{0xde, 0xad, 0xbe, 0xef, 0, 0, 0, 0})
	assert.ErrorIs(t, err, classfile.ErrBadMagic)

	_, err = classfile.Parse([]byte{0xCA, 0xFE})
	assert.ErrorIs(t, err, classfile.ErrTruncated)

	full := sampleClass().Bytes()
	_, err = classfile.Parse(full[:len(full)/2])
	assert.Error(t, err)
}

func TestParseMethodDescriptor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		desc   string
		params []string
		ret    string
	}{
		{"()V", nil, "void"},
		{"(I)I", []string{"int"}, "int"},
		{"(Ljava/lang/String;[I)Z", []string{"java.lang.String", "int[]"}, "boolean"},
		{"([[JLa/b/Outer$Inner;)[Ljava/lang/Object;", []string{"long[][]", "a.b.Outer$Inner"}, "java.lang.Object[]"},
		{"(BCDFSZ)C", []string{"byte", "char", "double", "float", "short", "boolean"}, "char"},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			mt, err := classfile.ParseMethodDescriptor(tt.desc)
			require.NoError(t, err)
			assert.Equal(t, tt.params, mt.Params)
			assert.Equal(t, tt.ret, mt.Return)
		})
	}
}

func TestParseMethodDescriptor_Malformed(t *testing.T) {
	t.Parallel()

	for _, desc := range []string{"", "V", "(I", "(Ljava/lang/String)V", "(V)V", "(I)VX", "([V)V", "(Q)V"} {
		_, err := classfile.ParseMethodDescriptor(desc)
		assert.ErrorIs(t, err, classfile.ErrBadDescriptor, desc)
	}
}

func TestSignatureFormatting(t *testing.T) {
	t.Parallel()

	mt := classfile.MethodType{Params: []string{"java.lang.String", "int"}, Return: "void"}
	assert.Equal(t, "void greet(java.lang.String,int)", classfile.SubSignature("greet", mt))
	assert.Equal(t, "<com.acme.Greeter: void greet(java.lang.String,int)>", classfile.Signature("com.acme.Greeter", "greet", mt))
	assert.Equal(t, "java.lang.String[]", classfile.ArrayClassName("[Ljava.lang.String;"))
	assert.Equal(t, "com.acme.A", classfile.ArrayClassName("com.acme.A"))
}

func TestDecode_SwitchWideAndBranches(t *testing.T) {
	t.Parallel()

	code := []byte{
		0x1a,                    // 0: iload_0
		classfile.OpTableswitch, // 1: tableswitch
		0, 0,                    // 2-3: padding
		0, 0, 0, 27, // default -> 28
		0, 0, 0, 1, // low
		0, 0, 0, 2, // high
		0, 0, 0, 27, // 1 -> 28
		0, 0, 0, 27, // 2 -> 28
		classfile.OpWide, classfile.OpIinc, 0x01, 0x00, 0xff, 0xff, // 24: wide iinc 256 -1
		classfile.OpGoto, 0xff, 0xfa, // 30: goto 24
		classfile.OpReturn, // 33
	}
	insns, err := classfile.Decode(code)
	require.NoError(t, err)
	require.Len(t, insns, 5)

	sw := insns[1]
	assert.Equal(t, "tableswitch", sw.Mnemonic())
	assert.Equal(t, []int32{1, 2}, sw.Keys)
	assert.Equal(t, 28, sw.Default)

	wide := insns[2]
	assert.Equal(t, 24, wide.Offset)
	assert.True(t, wide.Wide)
	assert.Equal(t, "wide iinc", wide.Mnemonic())
	assert.Equal(t, 256, wide.Index)
	assert.Equal(t, -1, wide.Value)

	assert.Equal(t, 30, insns[3].Offset)
	assert.Equal(t, 24, insns[3].Target)
	assert.Equal(t, 33, insns[4].Offset)
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	_, err := classfile.Decode([]byte{0xfe})
	assert.ErrorIs(t, err, classfile.ErrBadBytecode)

	_, err = classfile.Decode([]byte{classfile.OpSipush, 0x01})
	assert.ErrorIs(t, err, classfile.ErrBadBytecode)

	_, err = classfile.Decode([]byte{classfile.OpWide, 0x00, 0x00, 0x01})
	assert.ErrorIs(t, err, classfile.ErrBadBytecode)
}

func TestDisassemble(t *testing.T) {
	t.Parallel()

	c := classfiletest.NewClass("com/acme/Sample")
	c.Method(classfile.AccPublic|classfile.AccStatic, "main", "([Ljava/lang/String;)V").
		Field(classfile.OpGetstatic, "java/lang/System", "out", "Ljava/io/PrintStream;").
		Ldc("hi").
		Invoke(classfile.OpInvokevirtual, "java/io/PrintStream", "println", "(Ljava/lang/String;)V").
		Return().
		Catch(0, 8, 8, "java/lang/RuntimeException")

	cf, err := classfile.Parse(c.Bytes())
	require.NoError(t, err)
	require.Len(t, cf.Methods, 1)

	text, err := classfile.Disassemble(cf.Pool, cf.Methods[0].Code)
	require.NoError(t, err)

	expected := "{\n" +
		"    0: getstatic <java.lang.System: java.io.PrintStream out>\n" +
		"    3: ldc \"hi\"\n" +
		"    5: invokevirtual <java.io.PrintStream: void println(java.lang.String)>\n" +
		"    8: return\n" +
		"    catch java.lang.RuntimeException from 0 to 8 with 8\n" +
		"}"
	assert.Equal(t, expected, text)

	empty, err := classfile.Disassemble(cf.Pool, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestModifiers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"public", "static", "final"},
		classfile.MethodModifiers(classfile.AccPublic|classfile.AccStatic|classfile.AccFinal))
	assert.Equal(t, []string{"protected", "abstract"},
		classfile.MethodModifiers(classfile.AccProtected|classfile.AccAbstract))
	assert.Equal(t, []string{"public", "interface"},
		classfile.ClassModifiers(classfile.AccPublic|classfile.AccInterface|classfile.AccAbstract))
}
