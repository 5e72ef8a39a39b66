package sema

import (
	"fmt"
	"math/big"

	"github.com/dolthub/swiss"
)

// GenericID is the memoization key of §4.6.2 mode 4: a tuple of bound
// comptime values (types captured by a type-bound param, or the type of a
// value-bound param). It must hash/equal structurally on the value model,
// not by address (Design Notes: "this demands a canonical form for each
// value kind").
type GenericID struct {
	FnName  string
	Bindings []Binding
}

// Binding is one generic parameter's captured argument: either a *Type
// (type-bound) or a canonicalized comptime Value (value-bound).
type Binding struct {
	IsType bool
	Type   *Type
	Canon  string // canonical textual form of a value-bound binding
}

// key renders a GenericID to the string swiss.Map hashes on. Using the
// interned *Type pointer's identity (its address, formatted with %p) rather
// than any structural walk of the Type payload matches §3.1's "compared by
// identity" rule.
func (g GenericID) key() string {
	s := g.FnName
	for _, b := range g.Bindings {
		if b.IsType {
			s += fmt.Sprintf("|T:%p", b.Type)
		} else {
			s += "|V:" + b.Canon
		}
	}
	return s
}

// CanonicalizeValue produces the Binding.Canon form for a value-bound
// generic parameter, per the Design Notes' "canonical form for each value
// kind" requirement: bigint normalization, type-id for types, enum-tag
// canonicalization.
func CanonicalizeValue(v *Value) string {
	switch v.Type.Kind {
	case ComptimeInt, Int:
		if v.Int != nil {
			return "i:" + v.Int.Text(10)
		}
	case ComptimeFloat, Float:
		if v.Float != nil {
			return "f:" + v.Float.Text('g', -1)
		}
	case Bool:
		return fmt.Sprintf("b:%v", v.Bool)
	case Enum:
		if v.EnumTag != nil {
			return "e:" + v.EnumTag.Text(10)
		}
	case TypeType:
		if t, ok := v.Aux.(*Type); ok {
			return fmt.Sprintf("t:%p", t)
		}
	}
	return fmt.Sprintf("?:%p", v)
}

// genericTable is the instantiation cache: one entry per unique GenericID,
// memoized so instantiating the same generic function with the same
// bindings twice reuses one compiled Executable/Type (§8 scenario 5).
type genericTable struct {
	m *swiss.Map[string, *GenericInstance]
}

// GenericInstance is the result of instantiating a generic function: either
// a fresh monomorphized function entity (a *Type of Kind Fn) or, for
// generic *type* functions (`fn List(comptime T: type) type`), the produced
// *Type itself.
type GenericInstance struct {
	ID       GenericID
	FnType   *Type
	Exec     *Executable
	ResultTy *Type // populated when the generic function's return type is `type`
}

func newGenericTable() *genericTable {
	return &genericTable{m: swiss.NewMap[string, *GenericInstance](8)}
}

// Instantiate returns the memoized instance for id, calling build to
// produce one on first request. build is only invoked once per distinct
// id.key(), matching §8 scenario 5 ("Calling List(u8) twice produces one
// instantiated type and one generic-table entry").
func (t *genericTable) Instantiate(id GenericID, build func() *GenericInstance) *GenericInstance {
	k := id.key()
	if inst, ok := t.m.Get(k); ok {
		return inst
	}
	inst := build()
	t.m.Put(k, inst)
	return inst
}

// InstantiateGeneric is the Context-level entry point C6 mode 4 calls.
// typeBound captures the arguments bound as `comptime T: type` parameters;
// valueBoundTypes captures the types of ordinary parameters whose type
// depends on a type-bound parameter (so only their *type* need be part of
// the key, per §4.6.2: "its type is captured").
func InstantiateGeneric(ctx *Context, fnName string, typeBound []*Type, valueBoundTypes []*Type, build func() *GenericInstance) *GenericInstance {
	var bindings []Binding
	for _, t := range typeBound {
		bindings = append(bindings, Binding{IsType: true, Type: t})
	}
	for _, t := range valueBoundTypes {
		bindings = append(bindings, Binding{IsType: true, Type: t})
	}
	id := GenericID{FnName: fnName, Bindings: bindings}
	return ctx.generics.Instantiate(id, build)
}

// canonBigIntHash gives a stable textual hash (base 16) for a bigint-keyed
// binding. Nothing in the package, tests included, calls it; it sits beside
// CanonicalizeValue as part of the canonicalization contract.
func canonBigIntHash(v *big.Int) string {
	if v == nil {
		return "nil"
	}
	return v.Text(16)
}
