package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Java source parsing:
// - Package and import declarations are collected in file order
// - Methods and constructors are listed in document order, nested and anonymous classes included
// - Parameter types keep their written form, C-style array dimensions and varargs are normalized
// - Modifiers exclude annotations
// - Javadoc is attached only from a directly preceding /** comment and is cleaned
// - Each declaration points at its nearest named enclosing type
// - Class contexts render fields, a blank line, then constructors
// - Files with syntax errors and missing files are rejected
// - RelativePath strips nested class suffixes

func parseFixture(t *testing.T, name string) *Unit {
	t.Helper()
	unit, err := NewParser().ParseFile(context.Background(), filepath.Join("testdata", "com", "acme", name))
	require.NoError(t, err)
	return unit
}

func TestParse_Header(t *testing.T) {
	t.Parallel()

	unit := parseFixture(t, "Greeter.java")
	assert.Equal(t, "com.acme", unit.Package)
	assert.Equal(t, []string{"import java.util.List;", "import java.util.Map;"}, unit.Imports)
	assert.Equal(t, filepath.Join("testdata", "com", "acme", "Greeter.java"), unit.Path)
}

func TestParse_DeclarationsInDocumentOrder(t *testing.T) {
	t.Parallel()

	unit := parseFixture(t, "Greeter.java")

	type decl struct {
		name   string
		params []string
		class  string
	}
	var got []decl
	for _, d := range unit.Declarations {
		got = append(got, decl{d.Name, d.ParamTypes, d.Class.Name})
	}

	expected := []decl{
		{"Greeter", []string{"String"}, "Greeter"},
		{"Greeter", nil, "Greeter"},
		{"greet", []string{"String", "int"}, "Greeter"},
		{"greet", []string{"Object"}, "Greeter"},
		{"copy", []string{"List<T>", "Map<String, T>[]", "String..."}, "Greeter"},
		{"legacy", []string{"int[]"}, "Greeter"},
		{"run", nil, "Greeter"},
		{"run", nil, "Greeter"},
		{"walk", nil, "Deep"},
		{"help", nil, "Helper"},
		{"Mode", nil, "Mode"},
		{"weight", nil, "Mode"},
	}
	assert.Equal(t, expected, got)

	assert.True(t, unit.Declarations[0].Constructor)
	assert.False(t, unit.Declarations[2].Constructor)
	assert.Equal(t, 3, unit.Declarations[4].Arity())
}

func TestParse_ModifiersJavadocAndBody(t *testing.T) {
	t.Parallel()

	unit := parseFixture(t, "Greeter.java")

	ctor := unit.Declarations[0]
	assert.Equal(t, []string{"public"}, ctor.Modifiers)
	assert.Equal(t, "Creates a greeter.", ctor.Javadoc)
	assert.Equal(t, "{\n        this.name = name;\n    }", ctor.Body)

	greet := unit.Declarations[2]
	assert.Equal(t, []string{"public"}, greet.Modifiers)
	assert.Equal(t, "Greets someone.\n@param who the person\n@param times how often", greet.Javadoc)
	assert.Equal(t, "{\n        System.out.println(\"hi, \" + who);\n    }", greet.Body)

	copyDecl := unit.Declarations[4]
	assert.Equal(t, []string{"public", "static"}, copyDecl.Modifiers)
	assert.Empty(t, copyDecl.Javadoc)

	walk := unit.Declarations[8]
	assert.Equal(t, []string{"abstract"}, walk.Modifiers)
	assert.Empty(t, walk.Body)

	assert.Nil(t, unit.Declarations[1].Modifiers)
}

func TestParse_ClassContexts(t *testing.T) {
	t.Parallel()

	unit := parseFixture(t, "Greeter.java")
	require.Len(t, unit.Classes, 4)

	greeter := unit.Classes[0]
	assert.Equal(t, "Greeter", greeter.Name)
	assert.Equal(t, "class", greeter.Kind)
	assert.Equal(t, []string{"public", "final"}, greeter.Modifiers)
	assert.Equal(t, "Greets people.\n\n@since 1.0", greeter.Javadoc)
	assert.Equal(t, unit.Imports, greeter.Imports)
	assert.Equal(t,
		"private final String name;\n"+
			"static int count = 0;\n"+
			"\n"+
			"public Greeter(String name) {\n        this.name = name;\n    }\n"+
			"Greeter() {\n        this(\"world\");\n    }\n",
		greeter.FieldsAndConstructors)

	helper := unit.Classes[1]
	assert.Equal(t, "Helper", helper.Name)
	assert.Equal(t, []string{"protected", "static"}, helper.Modifiers)
	assert.Equal(t, "Nested helper.", helper.Javadoc)
	assert.Equal(t, "private int depth;\n\n", helper.FieldsAndConstructors)

	deep := unit.Classes[2]
	assert.Equal(t, "Deep", deep.Name)
	assert.Empty(t, deep.FieldsAndConstructors)

	mode := unit.Classes[3]
	assert.Equal(t, "enum", mode.Kind)
	assert.Equal(t, "private final int weight = 1;\n\nMode() {\n        }\n", mode.FieldsAndConstructors)
}

func TestParse_Rejects(t *testing.T) {
	t.Parallel()

	p := NewParser()
	_, err := p.ParseFile(context.Background(), filepath.Join("testdata", "com", "acme", "Broken.java"))
	assert.ErrorIs(t, err, ErrSyntax)

	_, err = p.ParseFile(context.Background(), filepath.Join("testdata", "com", "acme", "Missing.java"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Parse(ctx, []byte("class A {}"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTree_PathFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a/b/Outer.java", RelativePath("a.b.Outer$Inner$Deeper", ".java"))
	assert.Equal(t, "Top.java", RelativePath("Top", ".java"))
	assert.Equal(t, "a/b/C.jav", RelativePath("a.b.C", ".jav"))

	tree := NewTree("testdata", "")
	assert.Equal(t, filepath.Join("testdata", "com", "acme", "Greeter.java"), tree.PathFor("com.acme.Greeter$Helper"))

	unit, err := tree.Load(context.Background(), "com.acme.Greeter$Mode")
	require.NoError(t, err)
	assert.Len(t, unit.Classes, 4)

	_, err = tree.Load(context.Background(), "com.acme.Nope")
	assert.Error(t, err)
}

func TestCleanJavadoc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"single line", "/** Returns x. */", "Returns x."},
		{"multi line", "/**\n   * First.\n   *\n   * @return y\n   */", "First.\n\n@return y"},
		{"no asterisks", "/**\n  Plain text\n*/", "Plain text"},
		{"crlf", "/**\r\n * Windows.\r\n */", "Windows."},
		{"not javadoc", "/* block */", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJavadoc(tt.raw))
		})
	}
}
