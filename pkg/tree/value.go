package tree

import "fmt"

// ValueKind is the type tag of a property Value.
type ValueKind string

const (
	KindString  ValueKind = "string"
	KindBool    ValueKind = "bool"
	KindInt32   ValueKind = "int32"
	KindInt64   ValueKind = "int64"
	KindFloat32 ValueKind = "float32"
	KindFloat64 ValueKind = "float64"
	KindRef     ValueKind = "ref"
)

// Value is a property value. The set of implementations is closed: only the
// types declared in this file satisfy it.
type Value interface {
	Kind() ValueKind
	fmt.Stringer
	isValue()
}

// Properties maps property keys to values. Key order is irrelevant.
type Properties map[string]Value

// Clone returns a shallow copy of the map. Values are immutable so this is a
// full copy in practice.
func (p Properties) Clone() Properties {
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

type (
	String  string
	Bool    bool
	Int32   int32
	Int64   int64
	Float32 float32
	Float64 float64
)

// Ref points at another instance. A Ref whose Target is NoID points at nothing.
type Ref struct {
	Target ID
}

// RefTo returns a Ref targeting id.
func RefTo(id ID) Ref {
	return Ref{Target: id}
}

// NilRef returns a Ref that points at nothing.
func NilRef() Ref {
	return Ref{}
}

func (String) Kind() ValueKind  { return KindString }
func (Bool) Kind() ValueKind    { return KindBool }
func (Int32) Kind() ValueKind   { return KindInt32 }
func (Int64) Kind() ValueKind   { return KindInt64 }
func (Float32) Kind() ValueKind { return KindFloat32 }
func (Float64) Kind() ValueKind { return KindFloat64 }
func (Ref) Kind() ValueKind     { return KindRef }

func (v String) String() string  { return fmt.Sprintf("%q", string(v)) }
func (v Bool) String() string    { return fmt.Sprintf("%t", bool(v)) }
func (v Int32) String() string   { return fmt.Sprintf("%d", int32(v)) }
func (v Int64) String() string   { return fmt.Sprintf("%d", int64(v)) }
func (v Float32) String() string { return fmt.Sprintf("%g", float32(v)) }
func (v Float64) String() string { return fmt.Sprintf("%g", float64(v)) }

func (v Ref) String() string {
	if v.Target.IsNone() {
		return "ref(nil)"
	}
	return "ref(" + v.Target.String() + ")"
}

func (String) isValue()  {}
func (Bool) isValue()    {}
func (Int32) isValue()   {}
func (Int64) isValue()   {}
func (Float32) isValue() {}
func (Float64) isValue() {}
func (Ref) isValue()     {}
