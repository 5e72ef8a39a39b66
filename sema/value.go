package sema

import (
	"math/big"
)

// Specialness is the discriminant §3.2 calls `specialness`: whether a Value
// carries a known compile-time payload, is a placeholder for a runtime
// instruction result, or is explicitly undefined.
type Specialness uint8

const (
	Static Specialness = iota
	Runtime
	Undef
)

// PtrMut is the mutability class carried alongside a pointer payload.
// Copying a ComptimeConst pointer is by reference; copying a ComptimeVar
// pointer requires a deep copy (§3.2 invariant).
type PtrMut uint8

const (
	ComptimeConst PtrMut = iota
	ComptimeVar
	RuntimeVar
)

// PtrForm is the pointer payload's own discriminant.
type PtrForm uint8

const (
	PtrInvalid PtrForm = iota
	PtrRef
	PtrBaseArray
	PtrBaseStruct
	PtrHardCoded
	PtrFunction
	PtrDiscard
)

// PtrPayload is the pointer-specific portion of a Value's payload.
type PtrPayload struct {
	Form PtrForm
	Mut  PtrMut

	Ref *Value // PtrRef: the pointee value itself (comptime aliasing)

	BaseArray   *Value // PtrBaseArray
	ElemIndex   int64
	CStr        bool

	BaseStruct  *Value // PtrBaseStruct
	FieldIndex  int

	HardCoded uint64  // PtrHardCoded
	Fn        *FnRef  // PtrFunction
}

// FnRef is a function reference value, comptime or runtime.
type FnRef struct {
	Name string
	Type *Type
	Decl any // opaque external-collaborator declaration handle
}

// Value is the discriminated record of §3.2.
type Value struct {
	Type        *Type
	Specialness Specialness

	// Scalars.
	Int   *big.Int
	Float *big.Float
	Bool  bool

	// Pointer payload (Type.Kind == Pointer).
	Ptr *PtrPayload

	// Array: either Elems is populated or IsUndefArray is set (lazily
	// expanded on first pointee() access per §4.1).
	Elems        []Value
	IsUndefArray bool

	// Struct / Union.
	Fields  []Value
	UnionTag int64 // meaningful only when Type.Kind == Union

	// Enum.
	EnumTag *big.Int

	// ErrorSet: which symbolic error this value denotes.
	Err *ErrorSym

	// ErrorUnion: either IsError is true and UnionErr is populated, or the
	// UnionPayload value holds the success value.
	IsError     bool
	UnionErr    *ErrorSym
	UnionPayload *Value

	// Optional: IsNull or Some holds the payload.
	IsNull bool
	Some   *Value

	// Auxiliary comptime-only contents (namespace/block/bound-fn/arg-tuple).
	Aux any
}

// make_const builds a Static value of the given type with the supplied
// payload already populated by the caller on the returned Value.
func MakeConst(t *Type) *Value {
	return &Value{Type: t, Specialness: Static}
}

// MakeRuntime builds a placeholder value standing for an instruction whose
// result is only known at runtime.
func MakeRuntime(t *Type) *Value {
	return &Value{Type: t, Specialness: Runtime}
}

// MakeUndef builds the `undefined` marker for a type.
func MakeUndef(t *Type) *Value {
	v := &Value{Type: t, Specialness: Undef}
	if t != nil && t.Kind == Array {
		v.IsUndefArray = true
	}
	return v
}

// IsComptime reports whether v carries a known value usable for folding.
func IsComptime(v *Value) bool {
	return v != nil && v.Specialness == Static
}

// IsUnreachableValue reports whether v's static type is `unreachable`,
// meaning control never falls through to read it.
func IsUnreachableValue(v *Value) bool {
	return v != nil && v.Type != nil && v.Type.Kind == Unreachable
}

// Copy implements §4.1's copy contract. deep=false shares interned
// subobjects (arrays, struct fields) and is legal only when the source is
// ComptimeConst or the destination is never mutated; deep=true performs a
// full structural copy, required whenever the source pointer payload is
// ComptimeVar (a var's storage must not alias another var's storage).
func Copy(v *Value, deep bool) *Value {
	if v == nil {
		return nil
	}
	if !deep {
		cp := *v
		return &cp
	}
	cp := *v
	if v.Int != nil {
		cp.Int = new(big.Int).Set(v.Int)
	}
	if v.Float != nil {
		cp.Float = new(big.Float).Set(v.Float)
	}
	if v.EnumTag != nil {
		cp.EnumTag = new(big.Int).Set(v.EnumTag)
	}
	if v.Elems != nil {
		cp.Elems = make([]Value, len(v.Elems))
		for i := range v.Elems {
			cp.Elems[i] = *Copy(&v.Elems[i], true)
		}
	}
	if v.Fields != nil {
		cp.Fields = make([]Value, len(v.Fields))
		for i := range v.Fields {
			cp.Fields[i] = *Copy(&v.Fields[i], true)
		}
	}
	if v.Some != nil {
		cp.Some = Copy(v.Some, true)
	}
	if v.UnionPayload != nil {
		cp.UnionPayload = Copy(v.UnionPayload, true)
	}
	if v.Ptr != nil {
		p := *v.Ptr
		cp.Ptr = &p
	}
	return &cp
}

// Pointee dereferences a pointer-valued v as described in §4.1. It is a
// logic error (and this function panics, matching the teacher's
// interpreter-internal-error convention of failing fast on a host bug
// rather than returning an `error`) to call Pointee on a HardCodedAddr,
// Function or Discard pointer: none of those denote an addressable
// in-memory value this core's model tracks.
func Pointee(v *Value) *Value {
	if v == nil || v.Ptr == nil {
		panic("sema: Pointee of non-pointer value")
	}
	switch v.Ptr.Form {
	case PtrRef:
		return v.Ptr.Ref
	case PtrBaseArray:
		base := v.Ptr.BaseArray
		if base.IsUndefArray {
			expandUndefArray(base)
		}
		idx := int(v.Ptr.ElemIndex)
		if idx < 0 || idx >= len(base.Elems) {
			panic("sema: Pointee index out of range")
		}
		return &base.Elems[idx]
	case PtrBaseStruct:
		base := v.Ptr.BaseStruct
		return &base.Fields[v.Ptr.FieldIndex]
	case PtrHardCoded, PtrFunction, PtrDiscard:
		panic("sema: Pointee of HardCodedAddr/Function/Discard pointer is a logic error")
	default:
		panic("sema: Pointee of invalid pointer")
	}
}

// expandUndefArray materializes an `undef`-tagged array into a per-element
// undef vector the first time one of its elements is addressed, per §4.1.
func expandUndefArray(arr *Value) {
	if !arr.IsUndefArray {
		return
	}
	n := int64(0)
	if arr.Type != nil {
		n = arr.Type.Len
	}
	arr.Elems = make([]Value, n)
	elemType := (*Type)(nil)
	if arr.Type != nil {
		elemType = arr.Type.Elem
	}
	for i := range arr.Elems {
		arr.Elems[i] = *MakeUndef(elemType)
	}
	arr.IsUndefArray = false
}

// Equals is structural equality respecting the pointer-identity rules of
// §3.1/§3.2: types compare by identity, comptime_int/comptime_float compare
// by arbitrary-precision value regardless of bit-width (they have none).
func Equals(a, b *Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	if !Identical(a.Type, b.Type) {
		// comptime_int vs comptime_int of different interned identity never
		// happens (there is exactly one comptime_int type), but a typed int
		// vs its comptime_int literal form is not equal unless coerced first.
		return false
	}
	switch a.Type.Kind {
	case Int, ComptimeInt:
		return bigIntEq(a.Int, b.Int)
	case Float, ComptimeFloat:
		return bigFloatEq(a.Float, b.Float)
	case Bool:
		return a.Bool == b.Bool
	case Enum:
		return bigIntEq(a.EnumTag, b.EnumTag)
	case ErrorSet:
		return a.Err != nil && b.Err != nil && a.Err.ID == b.Err.ID
	case Pointer:
		return ptrEquals(a.Ptr, b.Ptr)
	case Optional:
		if a.IsNull != b.IsNull {
			return false
		}
		if a.IsNull {
			return true
		}
		return Equals(a.Some, b.Some)
	case ErrorUnion:
		if a.IsError != b.IsError {
			return false
		}
		if a.IsError {
			return a.UnionErr != nil && b.UnionErr != nil && a.UnionErr.ID == b.UnionErr.ID
		}
		return Equals(a.UnionPayload, b.UnionPayload)
	case Array:
		if a.IsUndefArray || b.IsUndefArray {
			return a.IsUndefArray == b.IsUndefArray
		}
		if len(a.Elems) != len(b.Elems) {
			return false
		}
		for i := range a.Elems {
			if !Equals(&a.Elems[i], &b.Elems[i]) {
				return false
			}
		}
		return true
	case Struct:
		if len(a.Fields) != len(b.Fields) {
			return false
		}
		for i := range a.Fields {
			if !Equals(&a.Fields[i], &b.Fields[i]) {
				return false
			}
		}
		return true
	case Union:
		return a.UnionTag == b.UnionTag && Equals(&a.Fields[a.UnionTag], &b.Fields[b.UnionTag])
	default:
		return a == b
	}
}

func bigIntEq(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
}

func bigFloatEq(a, b *big.Float) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
}

func ptrEquals(a, b *PtrPayload) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Form != b.Form {
		return false
	}
	switch a.Form {
	case PtrRef:
		return a.Ref == b.Ref
	case PtrBaseArray:
		return a.BaseArray == b.BaseArray && a.ElemIndex == b.ElemIndex
	case PtrBaseStruct:
		return a.BaseStruct == b.BaseStruct && a.FieldIndex == b.FieldIndex
	case PtrHardCoded:
		return a.HardCoded == b.HardCoded
	case PtrFunction:
		return a.Fn == b.Fn
	case PtrDiscard:
		return true
	default:
		return false
	}
}
