package sema

import (
	"math/big"
	"testing"
)

// newGenericCtx builds a minimal Context sufficient to exercise
// InstantiateGeneric: the generic table only ever keys on *Type identity
// and canonicalized Values, neither of which needs a real type interner.
func newGenericCtx() *Context {
	return NewContext(nil, nil, NewCollectingSink(), Config{})
}

func TestInstantiateGenericMemoizesSameBinding(t *testing.T) {
	ctx := newGenericCtx()
	u8 := &Type{Kind: Int, Bits: 8, Signed: false, Name: "u8"}

	calls := 0
	build := func() *GenericInstance {
		calls++
		return &GenericInstance{FnType: &Type{Kind: Fn, Name: "List"}}
	}

	first := InstantiateGeneric(ctx, "List", []*Type{u8}, nil, build)
	second := InstantiateGeneric(ctx, "List", []*Type{u8}, nil, build)

	if calls != 1 {
		t.Fatalf("build called %d times, want 1 (§8 scenario 5: List(u8) twice produces one instantiation)", calls)
	}
	if first != second {
		t.Fatalf("expected the same *GenericInstance pointer from both calls")
	}
}

func TestInstantiateGenericDistinctTypeBindings(t *testing.T) {
	ctx := newGenericCtx()
	u8 := &Type{Kind: Int, Bits: 8, Signed: false, Name: "u8"}
	u16 := &Type{Kind: Int, Bits: 16, Signed: false, Name: "u16"}

	build := func() *GenericInstance { return &GenericInstance{FnType: &Type{Kind: Fn, Name: "List"}} }

	a := InstantiateGeneric(ctx, "List", []*Type{u8}, nil, build)
	b := InstantiateGeneric(ctx, "List", []*Type{u16}, nil, build)

	if a == b {
		t.Fatalf("List(u8) and List(u16) must instantiate distinct entries")
	}
}

func TestInstantiateGenericDistinctFnNames(t *testing.T) {
	ctx := newGenericCtx()
	u8 := &Type{Kind: Int, Bits: 8, Signed: false}

	build := func() *GenericInstance { return &GenericInstance{} }

	a := InstantiateGeneric(ctx, "List", []*Type{u8}, nil, build)
	b := InstantiateGeneric(ctx, "Box", []*Type{u8}, nil, build)

	if a == b {
		t.Fatalf("different generic function names must never share a table entry")
	}
}

func TestCanonicalizeValueIntStableAcrossInstances(t *testing.T) {
	v1 := &Value{Type: &Type{Kind: ComptimeInt}, Int: big.NewInt(42)}
	v2 := &Value{Type: &Type{Kind: ComptimeInt}, Int: big.NewInt(42)}

	if CanonicalizeValue(v1) != CanonicalizeValue(v2) {
		t.Fatalf("two distinct comptime_int Values of 42 must canonicalize identically")
	}

	v3 := &Value{Type: &Type{Kind: ComptimeInt}, Int: big.NewInt(7)}
	if CanonicalizeValue(v1) == CanonicalizeValue(v3) {
		t.Fatalf("42 and 7 must not canonicalize to the same form")
	}
}

func TestGenericIDKeyDistinguishesTypeVsValueBound(t *testing.T) {
	u8 := &Type{Kind: Int, Bits: 8}
	typeBound := GenericID{FnName: "f", Bindings: []Binding{{IsType: true, Type: u8}}}
	valueBound := GenericID{FnName: "f", Bindings: []Binding{{IsType: false, Canon: "i:8"}}}

	if typeBound.key() == valueBound.key() {
		t.Fatalf("a type-bound and a value-bound binding must not collide in the memoization key")
	}
}
