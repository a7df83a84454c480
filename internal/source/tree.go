package source

import (
	"context"
	"path/filepath"
	"strings"
)

// DefaultExtension is appended to mapped source paths when none is configured.
const DefaultExtension = ".java"

// Tree maps compiled class names onto a source root.
type Tree struct {
	root      string
	extension string
	parser    *Parser
}

// NewTree creates a source tree rooted at root.
func NewTree(root, extension string) *Tree {
	if extension == "" {
		extension = DefaultExtension
	}
	return &Tree{root: root, extension: extension, parser: NewParser()}
}

// RelativePath maps a binary class name to the path of the file declaring its
// top-level class: "a.b.Outer$Inner" becomes "a/b/Outer.java".
func RelativePath(fqn, extension string) string {
	if i := strings.IndexByte(fqn, '$'); i >= 0 {
		fqn = fqn[:i]
	}
	return strings.ReplaceAll(fqn, ".", "/") + extension
}

// PathFor returns the source file path for a binary class name.
func (t *Tree) PathFor(fqn string) string {
	return filepath.Join(t.root, filepath.FromSlash(RelativePath(fqn, t.extension)))
}

// Load parses the source file of a class. Missing and unparseable files return an error;
// callers treat both as an absent unit.
func (t *Tree) Load(ctx context.Context, fqn string) (*Unit, error) {
	return t.parser.ParseFile(ctx, t.PathFor(fqn))
}
