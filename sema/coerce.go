package sema

import (
	"fmt"
	"math/big"
)

// MismatchKind enumerates the ~20 precise reasons a const-cast-only
// structural check (rule 3) can fail, used to build a drill-down diagnostic
// rather than a flat "types don't match".
type MismatchKind uint8

const (
	MismatchOK MismatchKind = iota
	MismatchPointerConst
	MismatchPointerVolatile
	MismatchPointerLen
	MismatchPointerAlign
	MismatchPointerBitOffset
	MismatchSliceElem
	MismatchArrayLen
	MismatchArrayElem
	MismatchErrorSetNotSubset
	MismatchErrorUnionPayload
	MismatchStructField
	MismatchStructFieldCount
	MismatchUnionField
	MismatchFnParamCount
	MismatchFnParam
	MismatchFnReturn
	MismatchFnVararg
	MismatchFnCallConv
	MismatchOptionalPayload
	MismatchNotRelated
)

// CoerceResult is what coerce() returns on success: a (possibly new)
// InstID in the builder's current executable, or — for comptime operands —
// a folded Value with no new instruction.
type CoerceResult struct {
	Inst  InstID // -1 when the result is purely comptime
	Value *Value // always populated; for Runtime results this is MakeRuntime(dest)
}

// CoerceError carries the wanted/actual types and, for rule 3 failures, the
// precise MismatchKind so the caller can render a drill-down.
type CoerceError struct {
	Src, Dest *Type
	Mismatch  MismatchKind
	Detail    string
}

func (e *CoerceError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("cannot coerce to %s: %s", typeStr(e.Dest), e.Detail)
	}
	return fmt.Sprintf("expected type %s, found %s", typeStr(e.Dest), typeStr(e.Src))
}

func typeStr(t *Type) string {
	if t == nil {
		return "<nil>"
	}
	if t.Name != "" {
		return t.Name
	}
	return fmt.Sprintf("<anon %d>", t.Kind)
}

// Coerce implements §4.2's public contract: coerce(src_value, dest_type).
// b is the builder for the executable the resulting cast instruction (if
// any) should be appended to; it may be nil when src is known to be
// Static, since no instruction is needed in that case.
func Coerce(ctx *Context, b *Builder, src *Value, dest *Type) (*CoerceResult, error) {
	if src == nil || dest == nil {
		return nil, &CoerceError{Src: nil, Dest: dest, Mismatch: MismatchNotRelated}
	}

	// Rule 1: identity.
	if Identical(src.Type, dest) {
		return &CoerceResult{Inst: -1, Value: src}, nil
	}
	// Rule 2: unreachable source coerces to anything as-is.
	if src.Type.Kind == Unreachable {
		return &CoerceResult{Inst: -1, Value: src}, nil
	}
	// Rule 15: undefined -> any type.
	if src.Specialness == Undef {
		return &CoerceResult{Inst: -1, Value: MakeUndef(dest)}, nil
	}

	// Rule 3: const-cast-only structural check.
	if mk := constCastCheck(src.Type, dest); mk == MismatchOK {
		return coerceConstCast(ctx, b, src, dest)
	}

	switch {
	// Rule 4/5: numeric widening between two *typed* numeric types.
	case src.Type.Kind == Int && dest.Kind == Int && widensInt(src.Type, dest):
		return coerceIntWiden(ctx, b, src, dest)
	case src.Type.Kind == Float && dest.Kind == Float && dest.Bits >= src.Type.Bits:
		return coerceFloatWiden(ctx, b, src, dest)

	// Rule 6/7: array-to-slice / array-to-many-pointer family.
	case src.Type.Kind == Array && dest.Kind == Slice:
		return coerceArrayToSlice(ctx, b, src, dest)
	case src.Type.Kind == Pointer && src.Type.PtrKind == PtrSingle && src.Type.Pointee != nil &&
		src.Type.Pointee.Kind == Array && dest.Kind == Slice:
		return coerceArrayToSlice(ctx, b, derefArrayPtr(src), dest)
	case src.Type.Kind == Pointer && src.Type.PtrKind == PtrSingle && src.Type.Pointee != nil &&
		src.Type.Pointee.Kind == Array && dest.Kind == Pointer && dest.PtrKind == PtrUnknown:
		if AlignOf(src.Type) < AlignOf(dest) {
			return nil, &CoerceError{Src: src.Type, Dest: dest, Mismatch: MismatchPointerAlign}
		}
		return coerceArrayPtrToManyPtr(ctx, b, src, dest)

	// Rule 8: optional-wrap.
	case dest.Kind == Optional && (Identical(src.Type, dest.Payload) || canCoerceNoInstr(src.Type, dest.Payload)):
		return coerceOptionalWrap(ctx, b, src, dest)

	// Rule 9/10: error-union wrap, payload or error side.
	case dest.Kind == ErrorUnion && Identical(src.Type, dest.Payload):
		return coerceErrUnionWrapPayload(ctx, b, src, dest)
	case dest.Kind == ErrorUnion && src.Type.Kind == ErrorSet:
		return coerceErrUnionWrapError(ctx, b, src, dest)

	// Rule 11: comptime numeric literal -> concrete numeric type.
	case src.Type.Kind == ComptimeInt && (dest.Kind == Int || dest.Kind == Float):
		return coerceComptimeIntToConcrete(ctx, b, src, dest)
	case src.Type.Kind == ComptimeFloat && dest.Kind == Float:
		return coerceComptimeFloatToConcrete(ctx, b, src, dest)

	// Rule 12: typed numeric constant -> comptime (narrowing to literal
	// type), legal only when the operand is itself Static.
	case (dest.Kind == ComptimeInt || dest.Kind == ComptimeFloat) && IsComptime(src):
		return coerceToLiteralType(src, dest)

	// Rule 13: tagged-union <-> its tag enum.
	case src.Type.Kind == Union && src.Type.Tagged && Identical(src.Type.Tag, dest):
		return coerceUnionToTag(ctx, b, src, dest)
	case src.Type.Kind == Enum && dest.Kind == Union && dest.Tagged && Identical(dest.Tag, src.Type):
		return coerceEnumToUnionTag(ctx, b, src, dest)

	// Rule 14: enum literal -> union when the selected field is zero-sized.
	case src.Type.Kind == Enum && dest.Kind == Union && dest.Tagged && zeroSizedUnionField(dest, src):
		return coerceEnumToZeroSizedUnion(ctx, b, src, dest)

	// Rule 16: T -> *const T (inferred ref) when T is not comptime-only.
	case dest.Kind == Pointer && dest.Const && dest.PtrKind == PtrSingle &&
		Identical(dest.Pointee, src.Type) && !src.Type.IsComptimeOnly():
		return coerceInferredRef(ctx, b, src, dest)
	}

	return nil, &CoerceError{Src: src.Type, Dest: dest, Mismatch: MismatchNotRelated}
}

// --- rule 3: const-cast-only structural check ---

func constCastCheck(src, dest *Type) MismatchKind {
	if src.Kind != dest.Kind {
		// Array(N,T) -> Array(N,T) covariance not relevant across kinds
		// except the two special cases handled by the caller as explicit
		// switch arms before falling back here via canCoerceNoInstr.
		return MismatchNotRelated
	}
	switch src.Kind {
	case Pointer:
		if src.PtrKind != dest.PtrKind {
			return MismatchPointerLen
		}
		if !src.Const && dest.Const {
			// widening to const is fine; recurse on pointee.
		} else if src.Const && !dest.Const {
			return MismatchPointerConst
		}
		if src.Volatile && !dest.Volatile {
			return MismatchPointerVolatile
		}
		if src.BitOffset != dest.BitOffset || src.BitWidth != dest.BitWidth {
			return MismatchPointerBitOffset
		}
		if m := constCastCheck(src.Pointee, dest.Pointee); m != MismatchOK {
			return MismatchSliceElem
		}
		return MismatchOK
	case Slice:
		if !src.Const && dest.Const {
			// fallthrough to elem check
		} else if src.Const && !dest.Const {
			return MismatchPointerConst
		}
		if m := constCastCheck(src.Pointee, dest.Pointee); m != MismatchOK {
			return MismatchSliceElem
		}
		return MismatchOK
	case ErrorUnion:
		if m := constCastCheck(src.Payload, dest.Payload); m != MismatchOK {
			return MismatchErrorUnionPayload
		}
		if !errorSetSubset(src.ErrSet, dest.ErrSet) {
			return MismatchErrorSetNotSubset
		}
		return MismatchOK
	case Optional:
		if !src.Payload.IsComptimeOnly() && src.Payload.Kind == Pointer && dest.Payload != nil {
			// non-null pointer -> optional pointer handled by caller before
			// this path; recurse normally otherwise.
		}
		if m := constCastCheck(src.Payload, dest.Payload); m != MismatchOK {
			return MismatchOptionalPayload
		}
		return MismatchOK
	default:
		if Identical(src, dest) {
			return MismatchOK
		}
		return MismatchNotRelated
	}
}

// canCoerceNoInstr checks the non-null-pointer -> optional-pointer special
// case of rule 3, where dest.Payload's pointee type matches src exactly.
func canCoerceNoInstr(src, dest *Type) bool {
	if src.Kind != Pointer || dest == nil || dest.Kind != Pointer {
		return false
	}
	return constCastCheck(src, dest) == MismatchOK
}

func errorSetSubset(src, dest *Type) bool {
	if isGlobalSet(dest) {
		return true
	}
	if src == nil {
		return true
	}
	destIDs := map[int]bool{}
	for _, e := range dest.Errors {
		destIDs[e.ID] = true
	}
	for _, e := range src.Errors {
		if !destIDs[e.ID] {
			return false
		}
	}
	return true
}

func coerceConstCast(ctx *Context, b *Builder, src *Value, dest *Type) (*CoerceResult, error) {
	if IsComptime(src) {
		cp := Copy(src, false)
		cp.Type = dest
		return &CoerceResult{Inst: -1, Value: cp}, nil
	}
	return runtimeCast(b, src, dest), nil
}

func runtimeCast(b *Builder, src *Value, dest *Type) *CoerceResult {
	out := MakeRuntime(dest)
	if b == nil {
		return &CoerceResult{Inst: -1, Value: out}
	}
	id := b.Cast(-1, dest)
	return &CoerceResult{Inst: id, Value: out}
}

// --- rule 4/5: numeric widening ---

func widensInt(src, dest *Type) bool {
	if src.Signed == dest.Signed {
		return dest.Bits >= src.Bits
	}
	// unsigned -> signed only if strictly wider.
	if !src.Signed && dest.Signed {
		return dest.Bits > src.Bits
	}
	return false
}

func coerceIntWiden(ctx *Context, b *Builder, src *Value, dest *Type) (*CoerceResult, error) {
	if IsComptime(src) {
		cp := Copy(src, false)
		cp.Type = dest
		return &CoerceResult{Inst: -1, Value: cp}, nil
	}
	return runtimeCast(b, src, dest), nil
}

func coerceFloatWiden(ctx *Context, b *Builder, src *Value, dest *Type) (*CoerceResult, error) {
	if IsComptime(src) {
		cp := Copy(src, false)
		cp.Type = dest
		return &CoerceResult{Inst: -1, Value: cp}, nil
	}
	return runtimeCast(b, src, dest), nil
}

// --- rule 6/7: array-to-slice family ---

func derefArrayPtr(src *Value) *Value {
	// Synthetic intermediate value representing *[N]T dereferenced to [N]T,
	// used only to feed coerceArrayToSlice's element-type logic; not a real
	// instruction since the caller already has the pointer operand.
	return &Value{Type: src.Type.Pointee, Specialness: src.Specialness}
}

func coerceArrayToSlice(ctx *Context, b *Builder, src *Value, dest *Type) (*CoerceResult, error) {
	if m := constCastCheck(src.Type.Elem, dest.Pointee); !Identical(src.Type.Elem, dest.Pointee) && m != MismatchOK {
		return nil, &CoerceError{Src: src.Type, Dest: dest, Mismatch: MismatchArrayElem}
	}
	if IsComptime(src) {
		v := MakeConst(dest)
		v.Ptr = &PtrPayload{Form: PtrBaseArray, Mut: ComptimeConst, BaseArray: src, ElemIndex: 0}
		return &CoerceResult{Inst: -1, Value: v}, nil
	}
	return runtimeCast(b, src, dest), nil
}

func coerceArrayPtrToManyPtr(ctx *Context, b *Builder, src *Value, dest *Type) (*CoerceResult, error) {
	if IsComptime(src) {
		cp := Copy(src, false)
		cp.Type = dest
		return &CoerceResult{Inst: -1, Value: cp}, nil
	}
	return runtimeCast(b, src, dest), nil
}

// --- rule 8/9/10: wraps ---

func coerceOptionalWrap(ctx *Context, b *Builder, src *Value, dest *Type) (*CoerceResult, error) {
	payload := src
	if !Identical(src.Type, dest.Payload) {
		inner, err := Coerce(ctx, b, src, dest.Payload)
		if err != nil {
			return nil, err
		}
		payload = inner.Value
	}
	if IsComptime(payload) {
		v := MakeConst(dest)
		v.Some = payload
		return &CoerceResult{Inst: -1, Value: v}, nil
	}
	return runtimeCast(b, payload, dest), nil
}

func coerceErrUnionWrapPayload(ctx *Context, b *Builder, src *Value, dest *Type) (*CoerceResult, error) {
	if IsComptime(src) {
		v := MakeConst(dest)
		v.IsError = false
		v.UnionPayload = src
		return &CoerceResult{Inst: -1, Value: v}, nil
	}
	return runtimeCast(b, src, dest), nil
}

func coerceErrUnionWrapError(ctx *Context, b *Builder, src *Value, dest *Type) (*CoerceResult, error) {
	if !errorSetSubset(src.Type, dest.ErrSet) {
		return nil, &CoerceError{Src: src.Type, Dest: dest, Mismatch: MismatchErrorSetNotSubset}
	}
	if IsComptime(src) {
		v := MakeConst(dest)
		v.IsError = true
		v.UnionErr = src.Err
		return &CoerceResult{Inst: -1, Value: v}, nil
	}
	return runtimeCast(b, src, dest), nil
}

// --- rule 11/12: comptime literal <-> concrete ---

func coerceComptimeIntToConcrete(ctx *Context, b *Builder, src *Value, dest *Type) (*CoerceResult, error) {
	if !IsComptime(src) {
		return nil, &CoerceError{Src: src.Type, Dest: dest, Detail: "non-comptime comptime_int operand"}
	}
	if dest.Kind == Int {
		if !fitsInt(src.Int, dest) {
			return nil, &CoerceError{Src: src.Type, Dest: dest, Detail: fmt.Sprintf("type %s cannot represent value %s", typeStr(dest), src.Int.String())}
		}
		v := MakeConst(dest)
		v.Int = new(big.Int).Set(src.Int)
		return &CoerceResult{Inst: -1, Value: v}, nil
	}
	// dest.Kind == Float
	v := MakeConst(dest)
	v.Float = new(big.Float).SetInt(src.Int)
	return &CoerceResult{Inst: -1, Value: v}, nil
}

func coerceComptimeFloatToConcrete(ctx *Context, b *Builder, src *Value, dest *Type) (*CoerceResult, error) {
	if !IsComptime(src) {
		return nil, &CoerceError{Src: src.Type, Dest: dest, Detail: "non-comptime comptime_float operand"}
	}
	v := MakeConst(dest)
	v.Float = new(big.Float).Set(src.Float)
	return &CoerceResult{Inst: -1, Value: v}, nil
}

func fitsInt(v *big.Int, t *Type) bool {
	bits := t.Bits
	if bits <= 0 {
		return true
	}
	min, max := intRange(bits, t.Signed)
	return v.Cmp(min) >= 0 && v.Cmp(max) <= 0
}

func intRange(bits int, signed bool) (*big.Int, *big.Int) {
	if signed {
		max := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
		min := new(big.Int).Neg(max)
		max.Sub(max, big.NewInt(1))
		return min, max
	}
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(bits)), big.NewInt(1))
	return big.NewInt(0), max
}

func coerceToLiteralType(src *Value, dest *Type) (*CoerceResult, error) {
	switch dest.Kind {
	case ComptimeInt:
		if src.Type.Kind == Float || (src.Float != nil) {
			return nil, &CoerceError{Src: src.Type, Dest: dest, Detail: "float value cannot narrow to comptime_int"}
		}
		v := MakeConst(dest)
		v.Int = new(big.Int).Set(src.Int)
		return &CoerceResult{Inst: -1, Value: v}, nil
	case ComptimeFloat:
		v := MakeConst(dest)
		if src.Float != nil {
			v.Float = new(big.Float).Set(src.Float)
		} else {
			v.Float = new(big.Float).SetInt(src.Int)
		}
		return &CoerceResult{Inst: -1, Value: v}, nil
	}
	return nil, &CoerceError{Src: src.Type, Dest: dest, Mismatch: MismatchNotRelated}
}

// --- rule 13/14: tagged union <-> enum ---

func coerceUnionToTag(ctx *Context, b *Builder, src *Value, dest *Type) (*CoerceResult, error) {
	if IsComptime(src) {
		v := MakeConst(dest)
		v.EnumTag = big.NewInt(src.UnionTag)
		return &CoerceResult{Inst: -1, Value: v}, nil
	}
	return runtimeCast(b, src, dest), nil
}

func coerceEnumToUnionTag(ctx *Context, b *Builder, src *Value, dest *Type) (*CoerceResult, error) {
	if IsComptime(src) {
		v := MakeConst(dest)
		v.UnionTag = src.EnumTag.Int64()
		v.Fields = make([]Value, len(dest.Fields))
		return &CoerceResult{Inst: -1, Value: v}, nil
	}
	return runtimeCast(b, src, dest), nil
}

func zeroSizedUnionField(union *Type, enumVal *Value) bool {
	idx := enumVal.EnumTag.Int64()
	if idx < 0 || int(idx) >= len(union.Fields) {
		return false
	}
	f := union.Fields[idx].Type
	return f == nil || f.Kind == Void
}

func coerceEnumToZeroSizedUnion(ctx *Context, b *Builder, src *Value, dest *Type) (*CoerceResult, error) {
	// Open Question (SPEC_FULL/DESIGN): this core follows the CastOpNoop
	// choice documented in DESIGN.md rather than synthesizing a union_init.
	return coerceEnumToUnionTag(ctx, b, src, dest)
}

// --- rule 16: inferred ref ---

func coerceInferredRef(ctx *Context, b *Builder, src *Value, dest *Type) (*CoerceResult, error) {
	if IsComptime(src) {
		v := MakeConst(dest)
		v.Ptr = &PtrPayload{Form: PtrRef, Mut: ComptimeConst, Ref: src}
		return &CoerceResult{Inst: -1, Value: v}, nil
	}
	return runtimeCast(b, src, dest), nil
}

// IntCast implements the exact-divisor rule on integers (§4.2): errors at
// comptime when the value does not fit. A runtime operand yields a Runtime
// value of dest; no narrowing safety check is emitted, and sc (the
// runtime_safety scope) is not read.
func IntCast(ctx *Context, exec *Executable, sc *Scope, node SrcNode, v *Value, dest *Type) (*Value, error) {
	if IsComptime(v) {
		if !fitsInt(v.Int, dest) {
			emitValue(ctx, exec, node, fmt.Sprintf("type %s cannot represent integer value %s", typeStr(dest), v.Int.String()))
			return nil, &CoerceError{Src: v.Type, Dest: dest, Detail: "intCast overflow"}
		}
		out := MakeConst(dest)
		out.Int = new(big.Int).Set(v.Int)
		return out, nil
	}
	return MakeRuntime(dest), nil
}

// AlignCast implements §4.2's alignment rule: a_src >= a_dst is an implicit
// const-cast-only widening; the reverse requires this explicit cast, which
// inserts a runtime check unless provably compatible (constant folding of
// the base address, out of scope for this core without a linker, so the
// runtime check is always emitted for Runtime pointers).
func AlignCast(ctx *Context, b *Builder, v *Value, dest *Type) (*CoerceResult, error) {
	if AlignOf(v.Type) >= AlignOf(dest) {
		cp := Copy(v, false)
		cp.Type = dest
		return &CoerceResult{Inst: -1, Value: cp}, nil
	}
	if IsComptime(v) {
		// A comptime pointer's concrete address is only known once it is
		// lowered; this core cannot prove alignment compatibility without
		// the linker (a non-goal), so align_cast on a Static operand still
		// degrades to a Runtime check node, matching §6's "LLVM lowering...
		// outside this spec" boundary.
		return runtimeCheckedAlignCast(b, v, dest), nil
	}
	return runtimeCheckedAlignCast(b, v, dest), nil
}

func runtimeCheckedAlignCast(b *Builder, v *Value, dest *Type) *CoerceResult {
	out := MakeRuntime(dest)
	if b == nil {
		return &CoerceResult{Inst: -1, Value: out}
	}
	id := b.create(OpAlignCast)
	id.A = -1
	id.Type = dest
	aid := b.append(id, true)
	return &CoerceResult{Inst: aid, Value: out}
}
