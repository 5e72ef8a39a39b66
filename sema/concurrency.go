package sema

import "fmt"

// This file covers the atomic family (cmpxchg, fence, atomic_rmw,
// atomic_load) and the coroutine-frame instructions gen.go's async prelude
// emits. Both groups are modeled only to the depth §4.6/§4.5 specify —
// ordering validation and promise-frame bookkeeping — since lowering to an
// actual memory model or a real stack-switching ABI is LLVM's job (§6, out
// of scope).

var memoryOrders = map[string]int{
	"unordered": 0,
	"monotonic": 1,
	"acquire":   2,
	"release":   2,
	"acq_rel":   3,
	"seq_cst":   4,
}

func validOrderPair(success, failure string) bool {
	sr, sok := memoryOrders[success]
	fr, fok := memoryOrders[failure]
	if !sok || !fok {
		return false
	}
	// failure order may never be stronger than success, and may never be
	// release/acq_rel (a failed cmpxchg does not write).
	if failure == "release" || failure == "acq_rel" {
		return false
	}
	return fr <= sr
}

func (a *Analyzer) analyzeCmpxchg(src *Inst) {
	if !validOrderPair(src.SuccessOrder, src.FailureOrder) {
		emitCtx(a.ctx, src, fmt.Sprintf("invalid cmpxchg ordering pair (%s, %s)", src.SuccessOrder, src.FailureOrder))
		return
	}
	ptrID, expID, newID := a.remap(src.A), a.remap(src.B), a.remap(src.C)
	dst := a.b.create(OpCmpxchg)
	dst.A, dst.B, dst.C = ptrID, expID, newID
	dst.SuccessOrder, dst.FailureOrder = src.SuccessOrder, src.FailureOrder
	optT := a.ctx.Types.Intern(optionalKey{payload: a.dst.Inst(newID).Value.Type})
	dst.Value = MakeRuntime(optT)
	id := a.b.append(dst, src.IsGen, ptrID, expID, newID)
	a.record(src, id)
}

type optionalKey struct{ payload *Type }

func (a *Analyzer) analyzeAtomic(src *Inst) {
	order := src.SuccessOrder
	if _, ok := memoryOrders[order]; !ok {
		emitCtx(a.ctx, src, fmt.Sprintf("invalid atomic ordering %q", order))
		return
	}
	switch src.Op {
	case OpFence:
		dst := a.b.create(OpFence)
		dst.SuccessOrder = order
		dst.Value = &Value{Type: voidType}
		id := a.b.append(dst, src.IsGen)
		a.record(src, id)
	case OpAtomicRMW:
		ptrID := a.remap(src.A)
		operandID := a.remap(src.B)
		elemT := a.ctx.Types.Intern(ptrKey{})
		if p := a.dst.Inst(ptrID).Value; p.Type != nil && p.Type.Kind == Pointer {
			elemT = p.Type.Pointee
		}
		dst := a.b.create(OpAtomicRMW)
		dst.A, dst.B = ptrID, operandID
		dst.RMWOp = src.RMWOp
		dst.SuccessOrder = order
		dst.Value = MakeRuntime(elemT)
		id := a.b.append(dst, src.IsGen, ptrID, operandID)
		a.record(src, id)
	case OpAtomicLoad:
		ptrID := a.remap(src.A)
		elemT := a.ctx.Types.Intern(ptrKey{})
		if p := a.dst.Inst(ptrID).Value; p.Type != nil && p.Type.Kind == Pointer {
			elemT = p.Type.Pointee
		}
		dst := a.b.create(OpAtomicLoad)
		dst.A = ptrID
		dst.SuccessOrder = order
		dst.Value = MakeRuntime(elemT)
		id := a.b.append(dst, src.IsGen, ptrID)
		a.record(src, id)
	}
}

// analyzeCoro handles the four coroutine-frame instructions the gen pass's
// async prelude and await/suspend lowering emit (§4.5's coroutine prelude,
// §3.4's promise-frame fields on Executable). Each is a thin bookkeeping
// step; the interesting state (AwaiterSlot/ResultSlot/PromiseType) already
// lives on the Executable itself.
func (a *Analyzer) analyzeCoro(src *Inst) {
	switch src.Op {
	case OpCoroAlloc:
		if a.dst.PromiseType == nil {
			emitCtx(a.ctx, src, "coroutine frame allocated without a promise type")
			return
		}
		ptrT := a.ctx.Types.Intern(ptrKey{pointee: a.dst.PromiseType, ptrKind: PtrSingle})
		dst := a.b.create(OpCoroAlloc)
		dst.Type = ptrT
		dst.Value = MakeRuntime(ptrT)
		id := a.b.append(dst, true)
		a.record(src, id)
	case OpCoroPromiseStore:
		valID := a.remap(src.A)
		dst := a.b.create(OpCoroPromiseStore)
		dst.A = valID
		dst.Value = &Value{Type: voidType}
		id := a.b.append(dst, true, valID)
		a.record(src, id)
	case OpCoroAwaiterXchg:
		// Atomic exchange of the awaiter slot: returns the previous awaiter
		// (null if the async call hadn't completed yet when the awaiter
		// attached, a sentinel value if it raced and already completed).
		newID := a.remap(src.A)
		ptrT := a.ctx.Types.Intern(ptrKey{pointee: voidType, ptrKind: PtrUnknown})
		dst := a.b.create(OpCoroAwaiterXchg)
		dst.A = newID
		dst.Value = MakeRuntime(ptrT)
		id := a.b.append(dst, true, newID)
		a.record(src, id)
	case OpCoroSuspend:
		u8T, _ := a.ctx.Types.Primitive("u8")
		dst := a.b.create(OpCoroSuspend)
		dst.Value = MakeRuntime(u8T)
		id := a.b.append(dst, true)
		a.record(src, id)
	}
}
