package sema

import "fmt"

// This file is C7: the partial evaluator that drives an already-analyzed
// Executable end to end at compile time — used for comptime function calls,
// comptime blocks, and generic-type functions. It walks the same arena the
// analyzer built, executing each instruction's *Value directly rather than
// re-deriving it, since by the time an Executable reaches here every
// instruction already carries its folded (or Runtime-placeholder) Value.
//
// A side-effect allow-list keeps this executor from doing anything a real
// machine would need to: only store_ptr into this executable's own
// MemSlots, arithmetic, and control flow are permitted. Anything else
// (an unresolved runtime Call, an atomic op) aborts evaluation with
// "unable to evaluate constant expression" rather than silently producing
// a wrong answer.

type comptimeFrame struct {
	ctx    *Context
	exec   *Executable
	locals map[InstID]*Value
}

// RunComptime executes exec (whose entry block is its first scheduled
// block) with args bound to its declared parameters in order, returning the
// folded return value or a diagnostic-carrying error.
func RunComptime(ctx *Context, exec *Executable, args []*Value) (*Value, error) {
	if len(exec.Blocks) == 0 {
		return nil, fmt.Errorf("unable to evaluate constant expression: empty function body")
	}
	f := &comptimeFrame{ctx: ctx, exec: exec, locals: map[InstID]*Value{}}
	return f.run(BlockID(0), args)
}

func (f *comptimeFrame) run(entry BlockID, args []*Value) (*Value, error) {
	bb := f.exec.Block(entry)
	for argIdx, param := range args {
		slot := f.exec.AllocSlot()
		f.exec.MemSlots[slot] = *Copy(param, true)
		_ = argIdx
	}
	cur := bb
	visited := map[BlockID]bool{entry: true}
	for {
		if cur == nil || len(cur.Insts) == 0 {
			return nil, fmt.Errorf("unable to evaluate constant expression: block has no terminator")
		}
		next, result, done, err := f.runBlock(cur)
		if err != nil {
			return nil, err
		}
		if done {
			return result, nil
		}
		if visited[next] {
			if err := f.takeBackwardBranch(nil); err != nil {
				return nil, err
			}
		}
		visited[next] = true
		cur = f.exec.Block(next)
	}
}

// runBlock executes every instruction of bb in order, returning either the
// next block to jump to, or a final return value.
func (f *comptimeFrame) runBlock(bb *BasicBlock) (next BlockID, result *Value, done bool, err error) {
	for _, id := range bb.Insts {
		inst := f.exec.Inst(id)
		switch inst.Op {
		case OpReturn:
			if inst.A < 0 {
				return 0, MakeConst(voidType), true, nil
			}
			v := f.value(inst.A)
			return 0, v, true, nil
		case OpUnreachable, OpPanic:
			return 0, nil, true, fmt.Errorf("unable to evaluate constant expression: reached unreachable code")
		case OpBr:
			return inst.Target, nil, false, nil
		case OpCondBr:
			cond := f.value(inst.A)
			if cond == nil || cond.Type == nil {
				return 0, nil, true, fmt.Errorf("unable to evaluate constant expression: non-constant branch condition")
			}
			if cond.Bool {
				return inst.TrueTgt, nil, false, nil
			}
			return inst.FalseTgt, nil, false, nil
		case OpSwitchBr:
			scrut := f.value(inst.A)
			for _, c := range inst.Cases {
				if Equals(scrut, c.Value) {
					return c.Target, nil, false, nil
				}
			}
			if inst.HasElse {
				return inst.Else, nil, false, nil
			}
			return 0, nil, true, fmt.Errorf("unable to evaluate constant expression: switch value matches no prong")
		case OpDeclVar:
			v := (*Value)(nil)
			if inst.A >= 0 {
				v = f.value(inst.A)
			}
			if inst.SlotIndex >= 0 && v != nil {
				f.exec.MemSlots[inst.SlotIndex] = *Copy(v, true)
			}
			f.locals[inst.ID] = v
		case OpStorePtr:
			ptr := f.value(inst.A)
			val := f.value(inst.B)
			if ptr == nil || ptr.Ptr == nil || ptr.Ptr.Mut != ComptimeVar {
				return 0, nil, true, fmt.Errorf("unable to evaluate constant expression: store to a non-comptime-var pointer")
			}
			*Pointee(ptr) = *Copy(val, true)
		case OpLoadPtr:
			ptr := f.value(inst.A)
			if ptr == nil || ptr.Ptr == nil {
				return 0, nil, true, fmt.Errorf("unable to evaluate constant expression: load of a non-pointer")
			}
			f.locals[inst.ID] = Copy(Pointee(ptr), false)
		case OpCall:
			if inst.CallMode != CallComptimeExec && inst.CallMode != CallTypeCast {
				return 0, nil, true, fmt.Errorf("unable to evaluate constant expression: call to a runtime-only function")
			}
			f.locals[inst.ID] = inst.Value
		default:
			// Every other opcode was already folded by analyze.go into a
			// Static Value sitting on the instruction itself (constants,
			// arithmetic, comparisons, casts); the comptime executor only
			// needs to surface it, never recompute it.
			if inst.Value == nil || !IsComptime(inst.Value) {
				return 0, nil, true, fmt.Errorf("unable to evaluate constant expression: operand at %s is not comptime-known", inst.Pos)
			}
			f.locals[inst.ID] = inst.Value
		}
	}
	return 0, nil, true, fmt.Errorf("unable to evaluate constant expression: fell off the end of a block without a terminator")
}

func (f *comptimeFrame) value(id InstID) *Value {
	if v, ok := f.locals[id]; ok {
		return v
	}
	inst := f.exec.Inst(id)
	return inst.Value
}

// takeBackwardBranch re-derives the backward-branch accounting a loop body
// inside a comptime block must respect (§4.6.3): every time control returns
// to a block already visited in this call, the executable's counter ticks
// and RunComptime aborts once it exceeds BranchQuota.
func (f *comptimeFrame) takeBackwardBranch(node SrcNode) error {
	if f.exec.TakeBackwardBranch() {
		return fmt.Errorf("evaluation exceeded %d backwards branches", f.exec.BranchQuota)
	}
	return nil
}
