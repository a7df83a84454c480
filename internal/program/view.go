package program

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"sort"

	"github.com/mvp-joe/javacorpus/internal/classfile"
)

var (
	// ErrClassNotFound indicates a class name absent from the view.
	ErrClassNotFound = errors.New("class not found")

	// ErrMethodNotFound indicates a method signature absent from the view.
	ErrMethodNotFound = errors.New("method not found")
)

// View is the compiled-program view: every class loaded from a class directory,
// indexed by name, with hierarchy queries. A View is read-only after construction
// and safe for concurrent use.
type View struct {
	classes  map[string]*Class
	names    []string            // sorted
	subtypes map[string][]string // type -> sorted names of all subtypes, itself included
	bySig    map[string]*Method
}

// Load reads every .class file below dir. A malformed class file aborts the load.
func Load(ctx context.Context, dir string) (*View, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".class" {
			return nil
		}
		if d.Name() == "module-info.class" {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan class directory: %w", err)
	}
	sort.Strings(paths)

	files := make([]*classfile.ClassFile, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cf, err := classfile.ParseFile(path)
		if err != nil {
			return nil, err
		}
		files = append(files, cf)
	}
	return NewView(files)
}

// NewView indexes already parsed class files. Duplicate class names keep the first occurrence.
func NewView(files []*classfile.ClassFile) (*View, error) {
	v := &View{
		classes:  make(map[string]*Class, len(files)),
		subtypes: make(map[string][]string),
		bySig:    make(map[string]*Method),
	}
	for _, cf := range files {
		if _, dup := v.classes[cf.Name]; dup {
			log.Printf("Warning: duplicate class %s ignored\n", cf.Name)
			continue
		}
		c, err := newClass(cf)
		if err != nil {
			return nil, fmt.Errorf("class %s: %w", cf.Name, err)
		}
		v.classes[c.Name] = c
		v.names = append(v.names, c.Name)
		for _, m := range c.Methods {
			v.bySig[m.Signature] = m
		}
	}
	sort.Strings(v.names)

	for _, name := range v.names {
		for super := range v.supertypes(name) {
			v.subtypes[super] = append(v.subtypes[super], name)
		}
	}
	for super := range v.subtypes {
		sort.Strings(v.subtypes[super])
	}
	return v, nil
}

// Len returns the number of loaded classes.
func (v *View) Len() int {
	return len(v.names)
}

// Classes returns all classes sorted by name.
func (v *View) Classes() []*Class {
	out := make([]*Class, 0, len(v.names))
	for _, name := range v.names {
		out = append(out, v.classes[name])
	}
	return out
}

// Class looks up a class by dotted binary name.
func (v *View) Class(name string) (*Class, bool) {
	c, ok := v.classes[name]
	return c, ok
}

// MethodBySignature looks up a method by its "<owner: ret name(params)>" signature.
func (v *View) MethodBySignature(sig string) (*Method, error) {
	m, ok := v.bySig[sig]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMethodNotFound, sig)
	}
	return m, nil
}

// FindMethods returns methods of class whose name matches; an empty name matches all.
func (v *View) FindMethods(class, name string) ([]*Method, error) {
	c, ok := v.classes[class]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClassNotFound, class)
	}
	var out []*Method
	for _, m := range c.Methods {
		if name == "" || m.Name == name {
			out = append(out, m)
		}
	}
	return out, nil
}

// supertypes returns the set of all loaded supertypes of name, itself included.
func (v *View) supertypes(name string) map[string]struct{} {
	seen := make(map[string]struct{})
	var visit func(string)
	visit = func(n string) {
		if _, ok := seen[n]; ok {
			return
		}
		c, ok := v.classes[n]
		if !ok {
			return
		}
		seen[n] = struct{}{}
		if c.SuperName != "" {
			visit(c.SuperName)
		}
		for _, i := range c.Interfaces {
			visit(i)
		}
	}
	visit(name)
	return seen
}

// Subtypes returns the names of all loaded subtypes of name, itself included, sorted.
func (v *View) Subtypes(name string) []string {
	return v.subtypes[name]
}

// IsSubtype reports whether sub is name or inherits from it within the view.
func (v *View) IsSubtype(sub, name string) bool {
	_, ok := v.supertypes(sub)[name]
	return ok
}

// ResolveMethod performs JVM method resolution for a reference owner.name(desc):
// the owner and its super classes first, then its superinterfaces.
func (v *View) ResolveMethod(owner, name, desc string) (*Method, bool) {
	for cur := owner; cur != ""; {
		c, ok := v.classes[cur]
		if !ok {
			break
		}
		if m, ok := c.Method(name, desc); ok {
			return m, true
		}
		cur = c.SuperName
	}
	return v.interfaceMethod(owner, name, desc, false)
}

// Dispatch selects the implementation invoked on a receiver of runtime type
// for name(desc): the nearest concrete or native declaration in the super class
// chain, else a default method from an implemented interface.
func (v *View) Dispatch(runtime, name, desc string) (*Method, bool) {
	for cur := runtime; cur != ""; {
		c, ok := v.classes[cur]
		if !ok {
			break
		}
		if m, ok := c.Method(name, desc); ok && !m.IsStatic() {
			if m.HasBody() || m.IsNative() {
				return m, true
			}
			if m.IsAbstract() {
				break
			}
		}
		cur = c.SuperName
	}
	return v.interfaceMethod(runtime, name, desc, true)
}

// interfaceMethod searches the superinterfaces of start in breadth-first, name-sorted order.
func (v *View) interfaceMethod(start, name, desc string, concreteOnly bool) (*Method, bool) {
	var queue []string
	for cur := start; cur != ""; {
		c, ok := v.classes[cur]
		if !ok {
			break
		}
		if c.IsInterface() && cur == start {
			queue = append(queue, cur)
		} else {
			queue = append(queue, sortedCopy(c.Interfaces)...)
		}
		cur = c.SuperName
	}

	seen := make(map[string]bool)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		c, ok := v.classes[cur]
		if !ok {
			continue
		}
		if m, ok := c.Method(name, desc); ok && !m.IsStatic() {
			if !concreteOnly || m.HasBody() {
				return m, true
			}
		}
		queue = append(queue, sortedCopy(c.Interfaces)...)
	}
	return nil, false
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
