package sema

// Builder is C4: it owns the "current basic block" cursor and appends new
// instructions to it, ref-counting operands and referenced blocks as it
// goes. Both gen.go (building the unanalyzed IR) and analyze.go (building
// the analyzed IR, repositioning the cursor freely) share this type.
type Builder struct {
	Exec *Executable
	cur  *BasicBlock
}

func NewBuilder(exec *Executable) *Builder {
	return &Builder{Exec: exec}
}

// SetBlock repositions the cursor. Analysis does this often (e.g. to splice
// a coercion before a predecessor's terminator for a phi argument).
func (b *Builder) SetBlock(bb *BasicBlock) { b.cur = bb }

func (b *Builder) Current() *BasicBlock { return b.cur }

// OpenBlock allocates and schedules a new block, then makes it current.
func (b *Builder) OpenBlock() *BasicBlock {
	bb := b.Exec.NewBlock()
	b.Exec.Schedule(bb)
	b.cur = bb
	return bb
}

// create builds an instruction without appending it anywhere — used for
// constants staged into another point in the code (the `create_*` family of
// §4.4).
func (b *Builder) create(op Opcode) *Inst {
	inst := &Inst{
		ID:    InstID(len(b.Exec.Insts)),
		Op:    op,
		Other: -1,
	}
	b.Exec.Insts = append(b.Exec.Insts, inst)
	return inst
}

// append appends inst to the current block, ref-counting its operands and
// any referenced blocks, and returns its id. Gen-origin instructions (built
// while the unanalyzed IR is under construction) are marked IsGen so they
// are exempt from "unused value" diagnostics; analyze.go's rebuilds are not
// gen-origin unless explicitly flagged, matching the teacher's
// exec/gen split (exec is the user-visible action, gen covers synthesized
// scaffolding).
func (b *Builder) append(inst *Inst, isGen bool, refs ...InstID) InstID {
	inst.Block = b.cur.ID
	inst.IsGen = isGen
	for _, r := range refs {
		if r >= 0 {
			b.Exec.Inst(r).RefCount++
		}
	}
	b.cur.Insts = append(b.cur.Insts, inst.ID)
	return inst.ID
}

func (b *Builder) refBlock(id BlockID) {
	if bb := b.Exec.Block(id); bb != nil {
		bb.RefCnt++
	}
}

// --- per-opcode constructors (representative set; see instr.go for the
// full operand-field catalogue analyze.go/gen.go populate directly on the
// Inst returned by create when a constructor below is too narrow) ---

func (b *Builder) Const(v *Value, isGen bool) InstID {
	i := b.create(OpConst)
	i.Value = v
	i.Type = v.Type
	return b.append(i, isGen)
}

func (b *Builder) BinOp(op string, lhs, rhs InstID, isGen bool) InstID {
	i := b.create(OpBinOp)
	i.BinOp = op
	i.A, i.B = lhs, rhs
	return b.append(i, isGen, lhs, rhs)
}

func (b *Builder) UnOp(op string, operand InstID, isGen bool) InstID {
	i := b.create(OpUnOp)
	i.BinOp = op
	i.A = operand
	return b.append(i, isGen, operand)
}

func (b *Builder) Br(target BlockID) InstID {
	i := b.create(OpBr)
	i.Target = target
	b.refBlock(target)
	return b.append(i, true)
}

func (b *Builder) CondBr(cond InstID, t, f BlockID) InstID {
	i := b.create(OpCondBr)
	i.A = cond
	i.TrueTgt, i.FalseTgt = t, f
	b.refBlock(t)
	b.refBlock(f)
	return b.append(i, true, cond)
}

func (b *Builder) SwitchBr(scrut InstID, cases []SwitchCase, elseTgt BlockID, hasElse bool) InstID {
	i := b.create(OpSwitchBr)
	i.A = scrut
	i.Cases = cases
	i.Else = elseTgt
	i.HasElse = hasElse
	for _, c := range cases {
		b.refBlock(c.Target)
	}
	if hasElse {
		b.refBlock(elseTgt)
	}
	return b.append(i, true, scrut)
}

func (b *Builder) Phi(incoming []PhiEdge, t *Type) InstID {
	i := b.create(OpPhi)
	i.Incoming = incoming
	i.Type = t
	refs := make([]InstID, len(incoming))
	for k, e := range incoming {
		refs[k] = e.Value
	}
	return b.append(i, true, refs...)
}

func (b *Builder) DeclVar(name string, declType *Type, init InstID, isConst bool) InstID {
	i := b.create(OpDeclVar)
	i.VarName = name
	i.Type = declType
	i.IsConst = isConst
	i.A = init
	return b.append(i, false, init)
}

func (b *Builder) StorePtr(ptr, val InstID) InstID {
	i := b.create(OpStorePtr)
	i.A, i.B = ptr, val
	return b.append(i, false, ptr, val)
}

func (b *Builder) LoadPtr(ptr InstID, isGen bool) InstID {
	i := b.create(OpLoadPtr)
	i.A = ptr
	return b.append(i, isGen, ptr)
}

func (b *Builder) ElemPtr(base InstID, index int64, isGen bool) InstID {
	i := b.create(OpElemPtr)
	i.A = base
	i.Index = index
	i.IndexOp = -1
	return b.append(i, isGen, base)
}

// ElemPtrAt is ElemPtr with a runtime-valued index (e.g. a loop counter),
// used when the offset is not comptime-known at gen time.
func (b *Builder) ElemPtrAt(base, indexOp InstID, isGen bool) InstID {
	i := b.create(OpElemPtr)
	i.A = base
	i.IndexOp = indexOp
	return b.append(i, isGen, base, indexOp)
}

func (b *Builder) FieldPtr(base InstID, field string, isGen bool) InstID {
	i := b.create(OpFieldPtr)
	i.A = base
	i.FieldName = field
	return b.append(i, isGen, base)
}

func (b *Builder) Slice(base, lo, hi InstID) InstID {
	i := b.create(OpSlice)
	i.A, i.Lo, i.Hi = base, lo, hi
	refs := []InstID{base}
	if lo >= 0 {
		refs = append(refs, lo)
	}
	if hi >= 0 {
		refs = append(refs, hi)
	}
	return b.append(i, false, refs...)
}

func (b *Builder) Return(val InstID) InstID {
	i := b.create(OpReturn)
	i.A = val
	i.Type = unreachableType
	if val >= 0 {
		return b.append(i, false, val)
	}
	return b.append(i, false)
}

func (b *Builder) Unreachable() InstID {
	i := b.create(OpUnreachable)
	i.Type = unreachableType
	return b.append(i, true)
}

func (b *Builder) Call(mode CallMode, callee *FnRef, args []InstID, isGen bool) InstID {
	i := b.create(OpCall)
	i.CallMode = mode
	i.Callee = callee
	i.Args = args
	return b.append(i, isGen, args...)
}

func (b *Builder) Cast(src InstID, dst *Type) InstID {
	i := b.create(OpCast)
	i.A = src
	i.Type = dst
	return b.append(i, true, src)
}

func (b *Builder) TestErr(ptr InstID) InstID {
	i := b.create(OpTestErr)
	i.A = ptr
	return b.append(i, true, ptr)
}

// unreachableType is a package-level sentinel the builder stamps onto
// terminator instructions (Return, Unreachable) without consulting the
// interner; neither gen.go nor analyze.go replaces it with
// ctx.Types.Primitive("unreachable"). Kept non-nil so Inst.Type is never
// read as a Go nil pointer on a terminator.
var unreachableType = &Type{Kind: Unreachable, Name: "unreachable"}
