package forward

import (
	"strings"
	"unicode/utf8"
)

// StringFlags modify how a PushStringEx parameter is marshaled.
type StringFlags int

// String parameter flags.
const (
	// StringUTF8 makes copy-back replace invalid UTF-8 sequences.
	StringUTF8 StringFlags = 1 << iota

	// StringCopy snapshots the caller's string at push time instead of
	// reading the binding when the forward executes.
	StringCopy

	// StringBinary keeps embedded NUL bytes; otherwise the string ends at
	// the first NUL.
	StringBinary

	// StringCopyBack writes the targets' final string to the binding.
	StringCopyBack
)

// Value is the callee-visible form of one parameter. Targets receive a
// private slice of Values and may edit by-reference entries in place.
type Value struct {
	Type  ParamType
	Cell  int32
	Float float32
	Str   string
	Array []int32
}

func (v Value) clone() Value {
	if v.Array != nil {
		v.Array = append([]int32(nil), v.Array...)
	}
	return v
}

// Param is one pushed argument. The set of implementations is closed.
type Param interface {
	// Type returns the kind of the parameter.
	Type() ParamType

	// Size returns the byte length of array and string kinds, and the cell
	// size for scalars.
	Size() int

	// CopyBack reports whether the final value is written to the caller.
	CopyBack() bool

	load() Value
	store(Value)

	// bound reports whether the param can be loaded without a nil
	// dereference.
	bound() bool
}

const cellSize = 4

// CellParam is a plain integer.
type CellParam struct{ V int32 }

// Type implements Param.
func (p *CellParam) Type() ParamType { return ParamCell }

// Size implements Param.
func (p *CellParam) Size() int { return cellSize }

// CopyBack implements Param.
func (p *CellParam) CopyBack() bool { return false }

func (p *CellParam) load() Value { return Value{Type: ParamCell, Cell: p.V} }
func (p *CellParam) store(Value) {}
func (p *CellParam) bound() bool { return p != nil }

// FloatParam is a plain float.
type FloatParam struct{ V float32 }

// Type implements Param.
func (p *FloatParam) Type() ParamType { return ParamFloat }

// Size implements Param.
func (p *FloatParam) Size() int { return cellSize }

// CopyBack implements Param.
func (p *FloatParam) CopyBack() bool { return false }

func (p *FloatParam) load() Value { return Value{Type: ParamFloat, Float: p.V} }
func (p *FloatParam) store(Value) {}
func (p *FloatParam) bound() bool { return p != nil }

// CellRefParam is an integer passed by reference.
type CellRefParam struct {
	Dst  *int32
	Back bool
}

// Type implements Param.
func (p *CellRefParam) Type() ParamType { return ParamCellByRef }

// Size implements Param.
func (p *CellRefParam) Size() int { return cellSize }

// CopyBack implements Param.
func (p *CellRefParam) CopyBack() bool { return p.Back }

func (p *CellRefParam) load() Value { return Value{Type: ParamCellByRef, Cell: *p.Dst} }
func (p *CellRefParam) store(v Value) {
	*p.Dst = v.Cell
}

func (p *CellRefParam) bound() bool { return p != nil && p.Dst != nil }

// FloatRefParam is a float passed by reference.
type FloatRefParam struct {
	Dst  *float32
	Back bool
}

// Type implements Param.
func (p *FloatRefParam) Type() ParamType { return ParamFloatByRef }

// Size implements Param.
func (p *FloatRefParam) Size() int { return cellSize }

// CopyBack implements Param.
func (p *FloatRefParam) CopyBack() bool { return p.Back }

func (p *FloatRefParam) load() Value { return Value{Type: ParamFloatByRef, Float: *p.Dst} }
func (p *FloatRefParam) store(v Value) {
	*p.Dst = v.Float
}

func (p *FloatRefParam) bound() bool { return p != nil && p.Dst != nil }

// ArrayParam is a fixed-length cell array. Copy-back writes at most
// len(Dst) cells.
type ArrayParam struct {
	Dst  []int32
	Back bool
}

// Type implements Param.
func (p *ArrayParam) Type() ParamType { return ParamArray }

// Size implements Param.
func (p *ArrayParam) Size() int { return len(p.Dst) * cellSize }

// CopyBack implements Param.
func (p *ArrayParam) CopyBack() bool { return p.Back }

func (p *ArrayParam) load() Value {
	return Value{Type: ParamArray, Array: append(make([]int32, 0, len(p.Dst)), p.Dst...)}
}

func (p *ArrayParam) store(v Value) {
	copy(p.Dst, v.Array)
}

func (p *ArrayParam) bound() bool { return p != nil }

// StringParam is an immutable string.
type StringParam struct{ V string }

// Type implements Param.
func (p *StringParam) Type() ParamType { return ParamString }

// Size implements Param.
func (p *StringParam) Size() int { return len(p.V) }

// CopyBack implements Param.
func (p *StringParam) CopyBack() bool { return false }

func (p *StringParam) load() Value { return Value{Type: ParamString, Str: p.V} }
func (p *StringParam) store(Value) {}
func (p *StringParam) bound() bool { return p != nil }

// StringExParam is a string bound to caller storage with marshaling flags.
type StringExParam struct {
	Dst   *string
	Flags StringFlags

	snapshot string
}

// Type implements Param.
func (p *StringExParam) Type() ParamType { return ParamStringEx }

// Size implements Param.
func (p *StringExParam) Size() int { return len(p.current()) }

// CopyBack implements Param.
func (p *StringExParam) CopyBack() bool { return p.Flags&StringCopyBack != 0 }

func (p *StringExParam) current() string {
	if p.Flags&StringCopy != 0 {
		return p.snapshot
	}
	return p.filter(*p.Dst)
}

func (p *StringExParam) load() Value { return Value{Type: ParamStringEx, Str: p.current()} }

func (p *StringExParam) store(v Value) {
	*p.Dst = p.filter(v.Str)
}

func (p *StringExParam) bound() bool { return p != nil && p.Dst != nil }

func (p *StringExParam) filter(s string) string {
	if p.Flags&StringBinary == 0 {
		if i := strings.IndexByte(s, 0); i >= 0 {
			s = s[:i]
		}
	}
	if p.Flags&StringUTF8 != 0 && !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}
	return s
}
