package sema

import (
	"fmt"

	"golang.org/x/tools/container/intsets"
)

// PeerResult is peer_resolve's output: the chosen common type, plus whether
// an array-to-slice promotion was demanded by any pair (§4.3
// "Post-processing").
type PeerResult struct {
	Type         *Type
	ToSlice      bool
	ContributedSet *intsets.Sparse // set of error ids for diagnostics; PeerResolve leaves it nil
}

// PeerError carries both contributing values so the diagnostic can point at
// each.
type PeerError struct {
	A, B *Value
	Msg  string
}

func (e *PeerError) Error() string { return e.Msg }

// PeerResolve implements C3: given N analyzed values plus an optional
// expected type, picks the common type or returns an error with a
// diagnostic anchor on both contributing values.
func PeerResolve(ctx *Context, values []*Value, expected *Type) (*PeerResult, error) {
	if len(values) == 0 {
		if expected != nil {
			return &PeerResult{Type: expected}, nil
		}
		return nil, &PeerError{Msg: "no values to resolve a peer type from"}
	}
	// P5: peer_resolve([a]) = a.type.
	result := &PeerResult{Type: values[0].Type}
	prev := values[0]
	for _, cur := range values[1:] {
		merged, toSlice, err := merge(ctx, prev, result.Type, cur)
		if err != nil {
			return nil, err
		}
		result.Type = merged
		result.ToSlice = result.ToSlice || toSlice
		prev = cur
	}
	if result.ToSlice && result.Type.Kind == Array {
		result.Type = sliceOfElem(ctx, result.Type.Elem, result.Type.Const)
	}
	if expected != nil && !Identical(result.Type, expected) {
		if _, err := Coerce(ctx, nil, &Value{Type: result.Type, Specialness: Static}, expected); err == nil {
			result.Type = expected
		}
	}
	return result, nil
}

// merge implements the asymmetric merge(prev, cur) of §4.3, considered in
// the documented order.
func merge(ctx *Context, prevVal *Value, prevType *Type, cur *Value) (*Type, bool, error) {
	curType := cur.Type

	// unreachable absorbs.
	if prevType.Kind == Unreachable {
		return curType, false, nil
	}
	if curType.Kind == Unreachable {
		return prevType, false, nil
	}

	// error-set union.
	if prevType.Kind == ErrorSet && curType.Kind == ErrorSet {
		return UnionErrorSets(ctx, prevType, curType), false, nil
	}

	// error-union payload compatibility: an error-union peer with a bare
	// error-set, or with its own payload type, unions the error sets and
	// keeps (or checks) the payload.
	if prevType.Kind == ErrorUnion || curType.Kind == ErrorUnion {
		return mergeErrorUnion(ctx, prevVal, prevType, cur, curType)
	}

	// null + optional.
	if prevType.Kind == NullType && curType.Kind == Optional {
		return curType, false, nil
	}
	if curType.Kind == NullType && prevType.Kind == Optional {
		return prevType, false, nil
	}
	if prevType.Kind == NullType && curType.Kind != Optional && curType.Kind != NullType {
		return nil, false, &PeerError{A: prevVal, B: cur, Msg: fmt.Sprintf("expected optional type, found %s", typeStr(curType))}
	}

	// literal + typed (comptime_int/comptime_float adopt the typed peer).
	if prevType.Kind == ComptimeInt && (curType.Kind == Int || curType.Kind == Float) {
		return curType, false, nil
	}
	if curType.Kind == ComptimeInt && (prevType.Kind == Int || prevType.Kind == Float) {
		return prevType, false, nil
	}
	if prevType.Kind == ComptimeFloat && curType.Kind == Float {
		return curType, false, nil
	}
	if curType.Kind == ComptimeFloat && prevType.Kind == Float {
		return prevType, false, nil
	}
	// comptime-int vs comptime-float: float wins (matches the coercion
	// lattice's int->float widening direction).
	if prevType.Kind == ComptimeInt && curType.Kind == ComptimeFloat {
		return curType, false, nil
	}
	if prevType.Kind == ComptimeFloat && curType.Kind == ComptimeInt {
		return prevType, false, nil
	}

	// array-to-slice promotion (direction-sensitive: remembered via the
	// bool return, applied once after all pairs are folded).
	if prevType.Kind == Array && curType.Kind == Slice {
		return curType, true, nil
	}
	if prevType.Kind == Slice && curType.Kind == Array {
		return prevType, true, nil
	}
	if prevType.Kind == Array && curType.Kind == Array && Identical(prevType.Elem, curType.Elem) && prevType.Len != curType.Len {
		// two differently-sized arrays of the same element: promote both to
		// a slice of that element.
		return prevType, true, nil
	}

	// enum/tagged-union bidirection.
	if prevType.Kind == Union && prevType.Tagged && Identical(prevType.Tag, curType) {
		return prevType, false, nil
	}
	if curType.Kind == Union && curType.Tagged && Identical(curType.Tag, prevType) {
		return curType, false, nil
	}

	// pointer-const broadening: *T and *const T peer to *const T.
	if prevType.Kind == Pointer && curType.Kind == Pointer && prevType.PtrKind == curType.PtrKind &&
		Identical(prevType.Pointee, curType.Pointee) {
		if prevType.Const == curType.Const {
			return prevType, false, nil
		}
		broadened := *prevType
		broadened.Const = true
		return &broadened, false, nil
	}

	if Identical(prevType, curType) {
		return prevType, false, nil
	}

	return nil, false, &PeerError{A: prevVal, B: cur, Msg: fmt.Sprintf("incompatible types: %s and %s", typeStr(prevType), typeStr(curType))}
}

func mergeErrorUnion(ctx *Context, prevVal *Value, prevType *Type, cur *Value, curType *Type) (*Type, bool, error) {
	var payload *Type
	var errSet *Type

	switch {
	case prevType.Kind == ErrorUnion && curType.Kind == ErrorUnion:
		if !Identical(prevType.Payload, curType.Payload) {
			return nil, false, &PeerError{A: prevVal, B: cur, Msg: fmt.Sprintf("error-union payload mismatch: %s vs %s", typeStr(prevType.Payload), typeStr(curType.Payload))}
		}
		payload = prevType.Payload
		errSet = UnionErrorSets(ctx, prevType.ErrSet, curType.ErrSet)
	case prevType.Kind == ErrorUnion && curType.Kind == ErrorSet:
		payload = prevType.Payload
		errSet = UnionErrorSets(ctx, prevType.ErrSet, curType)
	case curType.Kind == ErrorUnion && prevType.Kind == ErrorSet:
		payload = curType.Payload
		errSet = UnionErrorSets(ctx, curType.ErrSet, prevType)
	case prevType.Kind == ErrorUnion:
		payload = prevType.Payload
		errSet = prevType.ErrSet
		if !Identical(curType, payload) {
			return nil, false, &PeerError{A: prevVal, B: cur, Msg: fmt.Sprintf("expected %s, found %s", typeStr(payload), typeStr(curType))}
		}
	default:
		payload = curType.Payload
		errSet = curType.ErrSet
		if !Identical(prevType, payload) {
			return nil, false, &PeerError{A: prevVal, B: cur, Msg: fmt.Sprintf("expected %s, found %s", typeStr(payload), typeStr(curType))}
		}
	}

	return ctx.Types.Intern(errorUnionKey{errSet: errSet, payload: payload}), false, nil
}

func sliceOfElem(ctx *Context, elem *Type, isConst bool) *Type {
	return ctx.Types.Intern(sliceKey{elem: elem, constElem: isConst})
}

type errorUnionKey struct {
	errSet  *Type
	payload *Type
}

type sliceKey struct {
	elem      *Type
	constElem bool
}

// ErrorIDSet builds a sparse set of error ids for diagnostics (e.g. listing
// both contributing sets when an error-set `==` comparison's intersection
// is empty, §4.6.1).
func ErrorIDSet(t *Type) *intsets.Sparse {
	s := &intsets.Sparse{}
	for _, e := range t.Errors {
		s.Insert(e.ID)
	}
	return s
}
