// Package dataset assembles output records and writes them to sinks.
package dataset

import (
	"strings"

	"github.com/mvp-joe/javacorpus/internal/callgraph"
	"github.com/mvp-joe/javacorpus/internal/correlate"
	"github.com/mvp-joe/javacorpus/internal/program"
)

// Columns is the fixed output header.
var Columns = []string{
	"FQN",
	"Signature",
	"Jimple",
	"Callees",
	"MethodModifiers",
	"ClassModifiers",
	"JavaDoc",
	"MethodBody",
	"Imports",
	"classJavaDoc",
	"classFnCs",
}

// CalleeSeparator joins callee signatures: a backslash followed by 'n'.
const CalleeSeparator = `\n`

// Record is one output row. All fields are sanitized by Assemble.
type Record struct {
	FQN             string
	Signature       string
	Jimple          string
	Callees         string
	MethodModifiers string
	ClassModifiers  string
	JavaDoc         string
	MethodBody      string
	Imports         string
	ClassJavaDoc    string
	ClassFnCs       string
}

// Fields returns the record values in column order.
func (r Record) Fields() []string {
	return []string{
		r.FQN,
		r.Signature,
		r.Jimple,
		r.Callees,
		r.MethodModifiers,
		r.ClassModifiers,
		r.JavaDoc,
		r.MethodBody,
		r.Imports,
		r.ClassJavaDoc,
		r.ClassFnCs,
	}
}

var sanitizer = strings.NewReplacer("\r", "", "\n", `\n`, ",", ";")

// Sanitize makes a value safe for a single CSV line: carriage returns are
// dropped, newlines become the two characters `\n` and commas become ';'.
func Sanitize(s string) string {
	return sanitizer.Replace(s)
}

// FQN renders "owner.name(p1, p2)".
func FQN(m *program.Method) string {
	return m.Owner() + "." + m.Name + "(" + strings.Join(m.Params, ", ") + ")"
}

// Assemble merges the compiled facts of m, the optional source match and the
// call edges into a sanitized record. It fails only when the method body
// cannot be rendered.
func Assemble(m *program.Method, match *correlate.Match, edges []callgraph.Edge) (Record, error) {
	ir, err := m.Body()
	if err != nil {
		return Record{}, err
	}

	callees := make([]string, len(edges))
	for i, e := range edges {
		callees[i] = e.Callee
	}

	r := Record{
		FQN:       FQN(m),
		Signature: m.SubSignature,
		Jimple:    ir,
		Callees:   strings.Join(callees, CalleeSeparator),
	}

	if match != nil {
		d := match.Declaration
		r.MethodModifiers = strings.Join(d.Modifiers, " ")
		r.JavaDoc = d.Javadoc
		r.MethodBody = d.Body
		if c := match.Class; c != nil {
			r.ClassModifiers = strings.Join(c.Modifiers, " ")
			r.ClassJavaDoc = c.Javadoc
			r.ClassFnCs = c.FieldsAndConstructors
			r.Imports = strings.Join(c.Imports, "\n")
		}
	}

	return r.sanitized(), nil
}

func (r Record) sanitized() Record {
	return Record{
		FQN:             Sanitize(r.FQN),
		Signature:       Sanitize(r.Signature),
		Jimple:          Sanitize(r.Jimple),
		Callees:         Sanitize(r.Callees),
		MethodModifiers: Sanitize(r.MethodModifiers),
		ClassModifiers:  Sanitize(r.ClassModifiers),
		JavaDoc:         Sanitize(r.JavaDoc),
		MethodBody:      Sanitize(r.MethodBody),
		Imports:         Sanitize(r.Imports),
		ClassJavaDoc:    Sanitize(r.ClassJavaDoc),
		ClassFnCs:       Sanitize(r.ClassFnCs),
	}
}
