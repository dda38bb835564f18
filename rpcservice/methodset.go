package rpcservice

// MethodSet groups methods under a shared unit name, mirroring how related
// procedures are declared together on one handler type. Members registered
// without an explicit name override are exposed as "<unit>.<member>".
type MethodSet struct {
	unit    string
	methods []*Method
}

// NewMethodSet constructs a method set with the given members.
func NewMethodSet(unit string, methods ...*Method) *MethodSet {
	return &MethodSet{unit: unit, methods: methods}
}

// Unit returns the name shared by the set's members.
func (s *MethodSet) Unit() string { return s.unit }

// Add appends methods to the set and returns it for chaining.
func (s *MethodSet) Add(methods ...*Method) *MethodSet {
	s.methods = append(s.methods, methods...)
	return s
}

// Methods returns a copy of the set's members in the order they were added.
func (s *MethodSet) Methods() []*Method {
	out := make([]*Method, len(s.methods))
	copy(out, s.methods)
	return out
}
