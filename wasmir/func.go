package wasmir

// Func is the minimal source function record spec §6 requires as
// input: name, the locals (with the parameter prefix distinguished by
// NumParams), and the body as a recursively defined expression tree.
type Func struct {
	Name string

	// Locals holds the type of every local, parameters first: slots
	// [0, NumParams) are parameters, the rest are plain locals.
	Locals    []ValType
	NumParams int

	Body *Block
}

// LocalType returns the declared type of local i.
func (f *Func) LocalType(i Local) ValType {
	return f.Locals[int(i)]
}

// IsParam reports whether local i is one of the function's parameters.
func (f *Func) IsParam(i Local) bool {
	return int(i) < f.NumParams
}
