package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	java "github.com/tree-sitter/tree-sitter-java/bindings/go"
)

// ErrSyntax indicates a source file tree-sitter could not parse cleanly.
var ErrSyntax = errors.New("syntax error")

var typeDeclarationKinds = map[string]string{
	"class_declaration":           "class",
	"interface_declaration":       "interface",
	"enum_declaration":            "enum",
	"record_declaration":          "record",
	"annotation_type_declaration": "annotation",
}

// Parser parses Java files. It is safe for concurrent use; every parse uses its own tree-sitter parser.
type Parser struct {
	language *sitter.Language
}

// NewParser creates a new Java parser.
func NewParser() *Parser {
	return &Parser{language: sitter.NewLanguage(java.Language())}
}

// ParseFile parses a Java source file.
func (p *Parser) ParseFile(ctx context.Context, filePath string) (*Unit, error) {
	src, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	unit, err := p.Parse(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	unit.Path = filePath
	return unit, nil
}

// Parse parses Java source text into a Unit.
func (p *Parser) Parse(ctx context.Context, src []byte) (*Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(p.language); err != nil {
		return nil, err
	}

	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, ErrSyntax
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, ErrSyntax
	}

	w := &walker{src: src, unit: &Unit{}}
	w.collectHeader(root)
	w.walk(root, nil)
	return w.unit, nil
}

type walker struct {
	src  []byte
	unit *Unit
}

func (w *walker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(w.src[n.StartByte():n.EndByte()])
}

func (w *walker) collectHeader(root *sitter.Node) {
	for i := uint(0); i < root.ChildCount(); i++ {
		child := root.Child(i)
		switch child.Kind() {
		case "package_declaration":
			name := findChildByType(child, "scoped_identifier")
			if name == nil {
				name = findChildByType(child, "identifier")
			}
			w.unit.Package = w.text(name)
		case "import_declaration":
			w.unit.Imports = append(w.unit.Imports, w.text(child))
		}
	}
}

// walk visits nodes in document order, tracking the nearest enclosing named type.
func (w *walker) walk(n *sitter.Node, enclosing *ClassContext) {
	if n == nil {
		return
	}

	switch kind := n.Kind(); kind {
	case "method_declaration", "constructor_declaration":
		w.unit.Declarations = append(w.unit.Declarations, w.declaration(n, enclosing))
	default:
		if typeKind, ok := typeDeclarationKinds[kind]; ok {
			enclosing = w.classContext(n, typeKind)
			w.unit.Classes = append(w.unit.Classes, enclosing)
		}
	}

	for i := uint(0); i < n.ChildCount(); i++ {
		w.walk(n.Child(i), enclosing)
	}
}

func (w *walker) declaration(n *sitter.Node, enclosing *ClassContext) *Declaration {
	d := &Declaration{
		Name:        w.text(n.ChildByFieldName("name")),
		Constructor: n.Kind() == "constructor_declaration",
		ParamTypes:  w.paramTypes(n.ChildByFieldName("parameters")),
		Modifiers:   w.modifiers(n),
		Javadoc:     w.javadoc(n),
		Class:       enclosing,
	}
	if body := n.ChildByFieldName("body"); body != nil {
		d.Body = w.text(body)
	}
	return d
}

func (w *walker) paramTypes(params *sitter.Node) []string {
	if params == nil {
		return nil
	}
	var out []string
	for i := uint(0); i < params.NamedChildCount(); i++ {
		param := params.NamedChild(i)
		switch param.Kind() {
		case "formal_parameter":
			t := w.text(param.ChildByFieldName("type"))
			if dims := param.ChildByFieldName("dimensions"); dims != nil {
				t += strings.Join(strings.Fields(w.text(dims)), "")
			}
			out = append(out, t)
		case "spread_parameter":
			for j := uint(0); j < param.NamedChildCount(); j++ {
				child := param.NamedChild(j)
				if child.Kind() != "modifiers" {
					out = append(out, w.text(child)+"...")
					break
				}
			}
		}
	}
	return out
}

// modifiers returns modifier keywords of a declaration; annotations are not modifiers.
func (w *walker) modifiers(n *sitter.Node) []string {
	mods := findChildByType(n, "modifiers")
	if mods == nil {
		return nil
	}
	var out []string
	for i := uint(0); i < mods.ChildCount(); i++ {
		child := mods.Child(i)
		if child.IsNamed() {
			continue
		}
		out = append(out, w.text(child))
	}
	return out
}

// javadoc returns the cleaned documentation comment directly preceding n.
func (w *walker) javadoc(n *sitter.Node) string {
	prev := n.PrevSibling()
	if prev == nil || prev.Kind() != "block_comment" {
		return ""
	}
	raw := w.text(prev)
	if !strings.HasPrefix(raw, "/**") {
		return ""
	}
	return CleanJavadoc(raw)
}

func (w *walker) classContext(n *sitter.Node, kind string) *ClassContext {
	c := &ClassContext{
		Name:      w.text(n.ChildByFieldName("name")),
		Kind:      kind,
		Modifiers: w.modifiers(n),
		Javadoc:   w.javadoc(n),
		Imports:   w.unit.Imports,
	}

	var fields, ctors []string
	var collect func(body *sitter.Node)
	collect = func(body *sitter.Node) {
		for i := uint(0); i < body.NamedChildCount(); i++ {
			member := body.NamedChild(i)
			switch member.Kind() {
			case "field_declaration", "constant_declaration":
				fields = append(fields, w.text(member))
			case "constructor_declaration", "compact_constructor_declaration":
				ctors = append(ctors, w.text(member))
			case "enum_body_declarations":
				collect(member)
			}
		}
	}
	if body := n.ChildByFieldName("body"); body != nil {
		collect(body)
	}
	c.FieldsAndConstructors = fieldsAndConstructors(fields, ctors)
	return c
}

// fieldsAndConstructors renders each field then each constructor on its own
// line, with a blank line between the groups when fields exist.
func fieldsAndConstructors(fields, ctors []string) string {
	var sb strings.Builder
	for _, f := range fields {
		sb.WriteString(f)
		sb.WriteString("\n")
	}
	if sb.Len() > 0 {
		sb.WriteString("\n")
	}
	for _, c := range ctors {
		sb.WriteString(c)
		sb.WriteString("\n")
	}
	return sb.String()
}

// findChildByType finds the first child node with the given type.
func findChildByType(node *sitter.Node, nodeType string) *sitter.Node {
	if node == nil {
		return nil
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == nodeType {
			return child
		}
	}
	return nil
}
