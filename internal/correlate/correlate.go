// Package correlate pairs compiled methods with their source declarations.
package correlate

import (
	"strings"
	"unicode"

	"github.com/mvp-joe/javacorpus/internal/program"
	"github.com/mvp-joe/javacorpus/internal/source"
)

// Match is a located declaration and the class context it belongs to.
type Match struct {
	Declaration *source.Declaration
	Class       *source.ClassContext
}

// Matches reports whether source parameter tokens denote the resolved parameter types.
//
// The comparison is a containment heuristic: each resolved type is reduced to
// the letters of its last dotted segment, lower-cased, and must occur inside the
// lower-cased source token at the same position. It accepts some pairs that are
// not the same type, e.g. "int" and "java.lang.Integer".
func Matches(sourceParams, resolvedParams []string) bool {
	if len(sourceParams) != len(resolvedParams) {
		return false
	}
	for i := range sourceParams {
		if !strings.Contains(strings.ToLower(sourceParams[i]), typeKey(resolvedParams[i])) {
			return false
		}
	}
	return true
}

// typeKey reduces "java.util.Map$Entry[]" to "mapentry".
func typeKey(resolved string) string {
	if i := strings.LastIndexByte(resolved, '.'); i >= 0 {
		resolved = resolved[i+1:]
	}
	var sb strings.Builder
	for _, r := range resolved {
		if r < unicode.MaxASCII && unicode.IsLetter(r) {
			sb.WriteRune(unicode.ToLower(r))
		}
	}
	return sb.String()
}

// Locate returns the first declaration of unit, in document order, whose name
// and parameters match m. Constructors match constructor declarations named
// after the simple class name; static initializers never match. A nil unit
// yields no match.
func Locate(m *program.Method, unit *source.Unit) (*Match, bool) {
	if unit == nil || m.IsStaticInitializer() {
		return nil, false
	}

	name, ctor := m.Name, m.IsConstructor()
	if ctor {
		name = m.Class.SimpleName()
	}

	for _, d := range unit.Declarations {
		if d.Constructor != ctor || d.Name != name {
			continue
		}
		if Matches(d.ParamTypes, m.Params) {
			return &Match{Declaration: d, Class: d.Class}, true
		}
	}
	return nil, false
}
