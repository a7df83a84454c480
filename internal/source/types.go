package source

// Unit is one parsed source file.
type Unit struct {
	Path         string
	Package      string
	Imports      []string       // import declarations as written, file order
	Declarations []*Declaration // methods and constructors, document order
	Classes      []*ClassContext
}

// Declaration is a method or constructor declaration as written in source.
type Declaration struct {
	Name        string
	Constructor bool
	ParamTypes  []string // type tokens as written, e.g. "List<T>", "int[]", "Object..."
	Modifiers   []string // keywords only, annotations excluded
	Javadoc     string
	Body        string // "" for abstract and native declarations
	Class       *ClassContext
}

// ClassContext describes the nearest named type enclosing a declaration.
type ClassContext struct {
	Name                  string
	Kind                  string // class, interface, enum, record, annotation
	Modifiers             []string
	Javadoc               string
	FieldsAndConstructors string
	Imports               []string
}

// Arity returns the number of declared parameters.
func (d *Declaration) Arity() int {
	return len(d.ParamTypes)
}
