package program

import (
	"fmt"

	"github.com/gobwas/glob"
)

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// ClassFilter selects classes by binary name using include and exclude globs.
// Patterns use '.' as separator: "com.acme.*" matches direct members of the
// package, "com.acme.**" matches everything below it.
type ClassFilter struct {
	include []compiledPattern
	exclude []compiledPattern
}

// NewClassFilter compiles include and exclude patterns. An empty include list selects every class.
func NewClassFilter(include, exclude []string) (*ClassFilter, error) {
	f := &ClassFilter{}

	for _, pattern := range include {
		g, err := glob.Compile(pattern, '.')
		if err != nil {
			return nil, fmt.Errorf("invalid include pattern %q: %w", pattern, err)
		}
		f.include = append(f.include, compiledPattern{pattern: pattern, glob: g})
	}

	for _, pattern := range exclude {
		g, err := glob.Compile(pattern, '.')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		f.exclude = append(f.exclude, compiledPattern{pattern: pattern, glob: g})
	}

	return f, nil
}

// Match reports whether the class name is selected. A nil filter selects everything.
func (f *ClassFilter) Match(name string) bool {
	if f == nil {
		return true
	}
	if matchesAnyPattern(name, f.exclude) {
		return false
	}
	if len(f.include) == 0 {
		return true
	}
	return matchesAnyPattern(name, f.include)
}

// Select returns the classes of the view accepted by the filter, in enumeration order.
func (f *ClassFilter) Select(v *View) []*Class {
	all := v.Classes()
	out := all[:0]
	for _, c := range all {
		if f.Match(c.Name) {
			out = append(out, c)
		}
	}
	return out
}

func matchesAnyPattern(name string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(name) {
			return true
		}
	}
	return false
}
