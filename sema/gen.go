package sema

import (
	"fmt"
	"math/big"
)

// This file is C5: lowers a read-only AST (Node) into unanalyzed IR inside
// an Executable, using Builder (C4) to append instructions and open blocks.
// Nothing here folds constants or resolves types — that is analyze.go's
// job, run afterward over the Executable this file produces. Gen's only
// concerns are control-flow shape (how many basic blocks a construct needs
// and how they connect) and the bookkeeping constructs that only make sense
// before types are known: defer stacks, break-to-phi collection, and the
// coroutine prelude.

// LVal is the discipline an expression's lvalue-ness carries through
// lowering: whether it denotes an addressable location at all, and if so
// whether that location forbids assignment or tearing.
type LVal struct {
	IsPtr     bool
	IsConst   bool
	IsVolatile bool
}

// deferEntry is one pending deferred statement on the current function's
// defer stack, pushed by `defer`/`errdefer` and popped (LIFO) at every exit
// path: a normal return, a break out of the function via error propagation,
// or falling off the end of a block.
type deferEntry struct {
	body    Node
	errOnly bool
	scope   *Scope
}

// Gen holds the state threaded through one function body's lowering: the
// builder appending to the Executable under construction, the scope tree,
// and the defer stack (one per currently-open block/fn nesting level).
type Gen struct {
	ctx   *Context
	b     *Builder
	exec  *Executable
	sc    *Scope
	defers []deferEntry

	// breakTargets maps a block-expression's exit block to the phi incoming
	// edges collected from every `break :label value` inside it.
	breakTargets map[BlockID]*[]PhiEdge

	// asyncEarlyEdges collects, from every completion point in an async
	// function body, the awaiter-xchg's prior-value result: the phi merging
	// these at the top of exec.EarlyFinal is the frame pointer early-final
	// resumes.
	asyncEarlyEdges []PhiEdge
}

// NewGen creates a Gen over a fresh Executable named name, with quota as its
// initial comptime branch allowance.
func NewGen(ctx *Context, name string, quota uint64, parent *Executable) *Gen {
	exec := NewExecutable(name, quota, parent)
	g := &Gen{ctx: ctx, exec: exec, b: NewBuilder(exec)}
	g.sc = NewScope(ScopeFnDef, nil)
	exec.RootScope = g.sc
	return g
}

// LowerFunction builds the Executable for a non-async function body: opens
// the entry block, lowers body's statements, and — if control can fall off
// the end — synthesizes an implicit `return void` (only legal when the
// declared return type is void; analyze.go catches the mismatch otherwise
// since gen.go does not have types to check against yet).
func (g *Gen) LowerFunction(body Node, paramNames []string, paramTypes []*Type) *Executable {
	g.b.OpenBlock()
	g.declareParams(paramNames, paramTypes)
	g.lowerStmtList(body.Children())
	if g.b.Current() == nil || len(g.b.Current().Insts) == 0 || !IsTerminator(g.lastOp()) {
		g.runDefers(false)
		g.b.Return(-1)
	}
	return g.exec
}

// LowerAsyncFunction additionally emits the coroutine prelude of §4.5
// before lowering body: allocate the promise frame and record the
// awaiter/result slot indices on the Executable so later `await`/
// early-return lowering can reach them.
func (g *Gen) LowerAsyncFunction(body Node, paramNames []string, paramTypes []*Type, promiseType *Type) *Executable {
	g.exec.Async = true
	g.exec.PromiseType = promiseType
	g.b.OpenBlock()
	g.declareParams(paramNames, paramTypes)
	frame := g.b.create(OpCoroAlloc)
	frame.Type = g.ctx.Types.Intern(ptrKey{pointee: promiseType, ptrKind: PtrSingle})
	frameID := g.b.append(frame, true)
	g.exec.AwaiterSlot = g.exec.AllocSlot()
	g.exec.ResultSlot = g.exec.AllocSlot()
	_ = frameID

	// Reserve the prelude's two fixed completion blocks up front: every
	// return path inside the body (lowered next) branches into one of them
	// via emitAsyncCompletion, but neither is scheduled/populated until the
	// whole body has been lowered, mirroring how lowerIf/lowerSwitch
	// pre-create a join block and fill it in last.
	earlyFinalBB := g.exec.NewBlock()
	normalFinalBB := g.exec.NewBlock()
	g.exec.EarlyFinal = earlyFinalBB.ID
	g.exec.NormalFinal = normalFinalBB.ID

	g.lowerStmtList(body.Children())
	if g.b.Current() == nil || len(g.b.Current().Insts) == 0 || !IsTerminator(g.lastOp()) {
		g.runDefers(false)
		g.emitAsyncCompletion(-1)
	}

	// normal-final: nobody had attached an awaiter when this completion ran
	// (the common case for a body that never suspends — §8 scenario 6 — since
	// without a suspend point control never returns to a caller that could
	// race an await in before this point). Just return; a later `await`
	// discovers the completed sentinel itself.
	g.exec.Schedule(normalFinalBB)
	g.b.SetBlock(normalFinalBB)
	g.b.Return(-1)

	// early-final: an awaiter frame was already attached, so this completion
	// arrived "early" relative to that awaiter's own suspend — wake it
	// directly rather than leaving it parked on a resume that will never
	// otherwise come.
	g.exec.Schedule(earlyFinalBB)
	g.b.SetBlock(earlyFinalBB)
	if len(g.asyncEarlyEdges) > 0 {
		awaiter := g.b.Phi(g.asyncEarlyEdges, nil)
		wake := g.b.create(OpCoroAwaiterXchg)
		wake.A = awaiter
		g.b.append(wake, true, awaiter)
	}
	g.b.Return(-1)

	return g.exec
}

// declareParams gives every parameter a DeclVar slot of its own (this core
// models parameters as ordinary local variables, per the teacher's
// interpreter convention of binding call arguments into the callee's own
// scope rather than keeping a separate argument array) so later identifier
// references have a GenPtr to load/store through like any other variable.
func (g *Gen) declareParams(names []string, types []*Type) {
	for i, name := range names {
		var pt *Type
		if i < len(types) {
			pt = types[i]
		}
		ptrID := g.b.DeclVar(name, pt, -1, false)
		g.sc.Declare(&Symbol{Name: name, Kind: SymVar, GenPtr: ptrID})
	}
}

func (g *Gen) lastOp() Opcode {
	bb := g.b.Current()
	if bb == nil || len(bb.Insts) == 0 {
		return OpUnreachable
	}
	return g.exec.Inst(bb.Insts[len(bb.Insts)-1]).Op
}

// lowerStmtList lowers a sequence of statements in a fresh child scope,
// stopping early (without lowering dead statements after it) once a
// terminator has been emitted.
func (g *Gen) lowerStmtList(stmts []Node) {
	for _, s := range stmts {
		if g.lastOp() != OpUnreachable && IsTerminator(g.lastOp()) {
			return
		}
		g.lowerStmt(s)
	}
}

func (g *Gen) lowerStmt(n Node) {
	switch n.NodeKind() {
	case NVarDecl:
		g.lowerVarDecl(n)
	case NAssign:
		g.lowerAssign(n)
	case NReturn:
		g.lowerReturn(n)
	case NDefer:
		g.defers = append(g.defers, deferEntry{body: firstChild(n), scope: g.sc})
	case NErrDefer:
		g.defers = append(g.defers, deferEntry{body: firstChild(n), errOnly: true, scope: g.sc})
	case NIf:
		g.lowerIf(n)
	case NWhile:
		g.lowerWhile(n)
	case NFor:
		g.lowerFor(n)
	case NSwitch:
		g.lowerSwitch(n)
	case NBreak:
		g.lowerBreak(n)
	case NContinue:
		g.lowerContinue(n)
	case NBlock, NLabeledBlock:
		g.lowerBlockStmt(n)
	case NSuspend:
		g.lowerSuspend(n)
	case NResume:
		g.lowerResume(n)
	default:
		// A bare expression statement: lower for effect and mark the result
		// checked for unused-value diagnostics.
		id := g.lowerExpr(n)
		chk := g.b.create(OpCheckStmtIsVoid)
		chk.A = id
		g.b.append(chk, true, id)
	}
}

func firstChild(n Node) Node {
	kids := n.Children()
	if len(kids) == 0 {
		return nil
	}
	return kids[0]
}

// --- declarations & assignment ---

func (g *Gen) lowerVarDecl(n Node) {
	nk := n.(*NodeKit)
	var initID InstID = -1
	if len(nk.Kids) > 0 {
		initID = g.lowerExpr(nk.Kids[0])
	}
	ptrID := g.b.DeclVar(nk.Ident, nk.DeclType, initID, nk.IsConst)
	g.sc.Declare(&Symbol{Name: nk.Ident, Kind: symKindFor(nk.IsConst), SlotIndex: -1, GenPtr: ptrID})
}

func symKindFor(isConst bool) SymbolKind {
	if isConst {
		return SymConst
	}
	return SymVar
}

func (g *Gen) lowerAssign(n Node) {
	kids := n.Children()
	if len(kids) != 2 {
		return
	}
	ptr := g.lowerLValue(kids[0])
	val := g.lowerExpr(kids[1])
	g.b.StorePtr(ptr, val)
}

// lowerLValue lowers an expression in addressable position, returning the
// InstID of a pointer to its storage. Only Ident (a declared variable),
// NIndex, and NField are valid lvalues; anything else is a gen-time
// diagnostic rather than deferring to analyze.go, since "not an lvalue" is
// purely syntactic.
func (g *Gen) lowerLValue(n Node) InstID {
	switch n.NodeKind() {
	case NIdent:
		nk := n.(*NodeKit)
		sym, _ := FindVariable(g.sc, nk.Ident)
		if sym == nil {
			emitDecl(g.ctx, n, fmt.Sprintf("use of undeclared identifier %q", nk.Ident))
			return g.b.Unreachable()
		}
		return sym.GenPtr
	case NIndex:
		kids := n.Children()
		base := g.lowerLValueOrExpr(kids[0])
		idx := g.lowerExpr(kids[1])
		return g.b.ElemPtrAt(base, idx, false)
	case NField:
		nk := n.(*NodeKit)
		kids := n.Children()
		base := g.lowerLValueOrExpr(kids[0])
		return g.b.FieldPtr(base, nk.Ident, false)
	default:
		emitDecl(g.ctx, n, "expression is not an lvalue")
		return g.b.Unreachable()
	}
}

func (g *Gen) lowerLValueOrExpr(n Node) InstID {
	switch n.NodeKind() {
	case NIdent, NIndex, NField:
		return g.lowerLValue(n)
	default:
		return g.lowerExpr(n)
	}
}

// --- return & defer unwinding ---

// lowerReturn runs every pending deferred statement LIFO (normal defers
// always; errdefers only when the returned value is an error-union in the
// error state — a two-pass concern, since whether this particular return
// is erroring is only knowable once the payload expression's type is
// analyzed; gen.go conservatively emits both the errdefer-guarded and
// unconditional paths and lets analyze.go fold the guard away once the
// static/runtime-ness of the error union is known) before emitting the
// function's real terminator.
func (g *Gen) lowerReturn(n Node) {
	var valID InstID = -1
	if kids := n.Children(); len(kids) > 0 {
		valID = g.lowerExpr(kids[0])
	}
	var isErrPath InstID = -1
	if valID >= 0 {
		isErrPath = g.b.TestErr(valID)
	}
	g.runDefersGuarded(isErrPath)
	if g.exec.Async {
		g.emitAsyncCompletion(valID)
		return
	}
	g.b.Return(valID)
}

// runDefers executes every entry on the defer stack, innermost first,
// unconditionally (used at the implicit fall-off-the-end return, which by
// construction never carries an error payload).
func (g *Gen) runDefers(errPath bool) {
	for i := len(g.defers) - 1; i >= 0; i-- {
		d := g.defers[i]
		if d.errOnly && !errPath {
			continue
		}
		if d.body != nil {
			g.lowerStmt(d.body)
		}
	}
}

// runDefersGuarded mirrors runDefers but, for an errdefer entry, guards its
// lowering behind a runtime branch on isErrPath so analyze.go can fold the
// branch away once it knows whether this particular return path is
// erroring. isErrPath < 0 means a bare `return;` with no value, so no
// errdefer on the stack can ever fire; any returned value gets a test_err
// guard, whatever its type.
func (g *Gen) runDefersGuarded(isErrPath InstID) {
	for i := len(g.defers) - 1; i >= 0; i-- {
		d := g.defers[i]
		if !d.errOnly {
			if d.body != nil {
				g.lowerStmt(d.body)
			}
			continue
		}
		if isErrPath < 0 {
			continue
		}
		runBB := g.exec.NewBlock()
		skipBB := g.exec.NewBlock()
		g.b.CondBr(isErrPath, runBB.ID, skipBB.ID)

		g.exec.Schedule(runBB)
		g.b.SetBlock(runBB)
		if d.body != nil {
			g.lowerStmt(d.body)
		}
		if !IsTerminator(g.lastOp()) {
			g.b.Br(skipBB.ID)
		}

		g.exec.Schedule(skipBB)
		g.b.SetBlock(skipBB)
	}
}

// emitAsyncCompletion stores the result into the promise frame's result
// slot, then performs the awaiter-slot atomic exchange of §4.5: the prior
// slot value tells this completion which final block to take. Null means
// nobody has attached an awaiter yet (normal-final: just return, a later
// `await` will see the completed sentinel itself); a real frame pointer
// means an awaiter was already parked here (early-final: wake it).
func (g *Gen) emitAsyncCompletion(valID InstID) {
	st := g.b.create(OpCoroPromiseStore)
	st.A = valID
	if valID >= 0 {
		g.b.append(st, true, valID)
	} else {
		g.b.append(st, true)
	}

	ptrT := g.ctx.Types.Intern(ptrKey{pointee: voidType, ptrKind: PtrUnknown})
	completed := g.b.Const(&Value{Type: ptrT, Specialness: Static, Ptr: &PtrPayload{Form: PtrHardCoded, HardCoded: 1}}, true)
	xchg := g.b.create(OpCoroAwaiterXchg)
	xchg.A = completed
	priorID := g.b.append(xchg, true, completed)

	nullConst := g.b.Const(&Value{Type: ptrT, Specialness: Static, Ptr: &PtrPayload{Form: PtrHardCoded, HardCoded: 0}}, true)
	hadAwaiter := g.b.BinOp("!=", priorID, nullConst, true)
	g.asyncEarlyEdges = append(g.asyncEarlyEdges, PhiEdge{Pred: g.b.Current().ID, Value: priorID})
	g.b.CondBr(hadAwaiter, g.exec.EarlyFinal, g.exec.NormalFinal)
}

// --- try / error-union unwrap ---

// lowerTry lowers `try expr`: evaluate expr, test whether it is in the
// error state, and on the error branch run this function's defer stack
// (error-only included) and propagate by returning the error immediately;
// otherwise continue with the unwrapped payload.
func (g *Gen) lowerTry(n Node) InstID {
	kids := n.Children()
	exprID := g.lowerExpr(kids[0])
	isErr := g.b.TestErr(exprID)

	errBB := g.exec.NewBlock()
	contBB := g.exec.NewBlock()
	g.b.CondBr(isErr, errBB.ID, contBB.ID)

	g.exec.Schedule(errBB)
	g.b.SetBlock(errBB)
	g.runDefersGuarded(isErr)
	if g.exec.Async {
		g.emitAsyncCompletion(exprID)
	} else {
		g.b.Return(exprID)
	}

	g.exec.Schedule(contBB)
	g.b.SetBlock(contBB)
	return exprID
}

// --- if / while / for ---

func (g *Gen) lowerIf(n Node) {
	nk := n.(*NodeKit)
	kids := n.Children()
	condID := g.lowerExpr(kids[0])

	thenBB := g.exec.NewBlock()
	endBB := g.exec.NewBlock()
	elseBB := endBB
	hasElse := len(kids) > 2
	if hasElse {
		elseBB = g.exec.NewBlock()
	}
	g.b.CondBr(condID, thenBB.ID, elseBB.ID)

	g.exec.Schedule(thenBB)
	g.b.SetBlock(thenBB)
	g.lowerStmt(kids[1])
	if !IsTerminator(g.lastOp()) {
		g.b.Br(endBB.ID)
	}

	if hasElse {
		g.exec.Schedule(elseBB)
		g.b.SetBlock(elseBB)
		g.lowerStmt(kids[2])
		if !IsTerminator(g.lastOp()) {
			g.b.Br(endBB.ID)
		}
	}

	g.exec.Schedule(endBB)
	g.b.SetBlock(endBB)
	_ = nk
}

// lowerWhile lowers `while (cond) : (continue_expr) body` from its children
// cond, body and an optional continue expression into 4 blocks: cond, body,
// continue, end. The false edge of cond goes straight to end; an else body
// and payload captures are not lowered.
func (g *Gen) lowerWhile(n Node) {
	nk := n.(*NodeKit)
	kids := n.Children()

	condBB := g.exec.NewBlock()
	bodyBB := g.exec.NewBlock()
	contBB := g.exec.NewBlock()
	endBB := g.exec.NewBlock()

	g.b.Br(condBB.ID)

	g.exec.Schedule(condBB)
	g.b.SetBlock(condBB)
	condID := g.lowerExpr(kids[0])
	g.b.CondBr(condID, bodyBB.ID, endBB.ID)

	outerLoop := g.sc
	g.sc = NewScope(ScopeLoop, outerLoop)
	g.sc.Label = nk.Label
	bID, cID, eID := bodyBB.ID, contBB.ID, endBB.ID
	g.sc.BreakTarget = &eID
	g.sc.ContinueTarget = &cID
	_ = bID

	g.exec.Schedule(bodyBB)
	g.b.SetBlock(bodyBB)
	g.lowerStmt(kids[1])
	if !IsTerminator(g.lastOp()) {
		g.b.Br(contBB.ID)
	}

	g.exec.Schedule(contBB)
	g.b.SetBlock(contBB)
	if len(kids) > 2 && kids[2] != nil {
		g.lowerExpr(kids[2])
	}
	if g.exec.TakeBackwardBranch() {
		emitQuota(g.ctx, g.exec, n, g.exec.BranchQuota)
	}
	g.b.Br(condBB.ID)

	g.sc = outerLoop
	g.exec.Schedule(endBB)
	g.b.SetBlock(endBB)
}

// lowerFor lowers `for (seq) |elem, index| body` over a slice/array: it
// desugars to a counted while loop — elem_ptr at the counter, load, bind,
// run body, increment — matching §4.5's "4-5 basic blocks" shape shared
// with while.
func (g *Gen) lowerFor(n Node) {
	nk := n.(*NodeKit)
	kids := n.Children()
	seqID := g.lowerExpr(kids[0])

	condBB := g.exec.NewBlock()
	bodyBB := g.exec.NewBlock()
	contBB := g.exec.NewBlock()
	endBB := g.exec.NewBlock()

	usizeT, _ := g.ctx.Types.Primitive("usize")
	zero := g.b.Const(&Value{Type: g.comptimeInt(), Specialness: Static, Int: big.NewInt(0)}, true)
	ctrDecl := g.b.create(OpDeclVar)
	ctrDecl.VarName = "__for_index"
	ctrDecl.Type = usizeT
	ctrDecl.A = zero
	ctrID := g.b.append(ctrDecl, true, zero)

	g.b.Br(condBB.ID)

	g.exec.Schedule(condBB)
	g.b.SetBlock(condBB)
	lenRef := g.b.FieldPtr(seqID, "len", true)
	lenLoad := g.b.LoadPtr(lenRef, true)
	ctrLoad := g.b.LoadPtr(ctrID, true)
	cmp := g.b.BinOp("<", ctrLoad, lenLoad, true)
	g.b.CondBr(cmp, bodyBB.ID, endBB.ID)

	outerLoop := g.sc
	g.sc = NewScope(ScopeLoop, outerLoop)
	g.sc.Label = nk.Label
	cID, eID := contBB.ID, endBB.ID
	g.sc.ContinueTarget = &cID
	g.sc.BreakTarget = &eID

	g.exec.Schedule(bodyBB)
	g.b.SetBlock(bodyBB)
	if nk.IndexName != "" {
		g.sc.Declare(&Symbol{Name: nk.IndexName, Kind: SymVar, GenPtr: ctrID})
	}
	if nk.ElemName != "" {
		idxLoad := g.b.LoadPtr(ctrID, true)
		elemPtr := g.b.ElemPtrAt(seqID, idxLoad, true)
		g.sc.Declare(&Symbol{Name: nk.ElemName, Kind: SymVar, GenPtr: elemPtr})
	}
	g.lowerStmt(kids[1])
	if !IsTerminator(g.lastOp()) {
		g.b.Br(contBB.ID)
	}

	g.exec.Schedule(contBB)
	g.b.SetBlock(contBB)
	ctrLoad3 := g.b.LoadPtr(ctrID, true)
	one := g.b.Const(&Value{Type: g.comptimeInt(), Specialness: Static, Int: big.NewInt(1)}, true)
	next := g.b.BinOp("+", ctrLoad3, one, true)
	g.b.StorePtr(ctrID, next)
	if g.exec.TakeBackwardBranch() {
		emitQuota(g.ctx, g.exec, n, g.exec.BranchQuota)
	}
	g.b.Br(condBB.ID)

	g.sc = outerLoop
	g.exec.Schedule(endBB)
	g.b.SetBlock(endBB)
}

func (g *Gen) comptimeInt() *Type {
	if t, ok := g.ctx.Types.Primitive("comptime_int"); ok {
		return t
	}
	return &Type{Kind: ComptimeInt, Name: "comptime_int"}
}

// --- break / continue ---

// enclosingBreakable resolves the target of a break statement: an unlabeled
// break always targets the nearest loop (Zig-like block expressions require
// a label), while a labeled break may target either a labeled loop or a
// labeled block expression.
func (g *Gen) enclosingBreakable(label string) *Scope {
	for s := g.sc; s != nil; s = s.Anc {
		if s.BreakTarget == nil {
			continue
		}
		if label == "" {
			if s.Kind == ScopeLoop {
				return s
			}
			continue
		}
		if s.Label == label && (s.Kind == ScopeLoop || s.Kind == ScopeBlock) {
			return s
		}
	}
	return nil
}

func (g *Gen) lowerBreak(n Node) {
	nk := n.(*NodeKit)
	target := g.enclosingBreakable(nk.Label)
	if target == nil {
		emitCtx(g.ctx, n, "break outside of loop or labeled block")
		return
	}
	if len(n.Children()) > 0 && g.breakTargets != nil {
		val := g.lowerExpr(n.Children()[0])
		if edges, ok := g.breakTargets[*target.BreakTarget]; ok {
			*edges = append(*edges, PhiEdge{Pred: g.b.Current().ID, Value: val})
		}
	}
	g.b.Br(*target.BreakTarget)
}

func (g *Gen) lowerContinue(n Node) {
	nk := n.(*NodeKit)
	loop := g.sc.EnclosingLoop(nk.Label)
	if loop == nil {
		emitCtx(g.ctx, n, "continue outside of loop")
		return
	}
	g.b.Br(*loop.ContinueTarget)
}

// --- switch (3-phase lowering) ---

// lowerSwitch implements the three-phase scheme of §4.5: first a pre-chain
// of range-prong comparisons (since switch_br itself is scalar-only),
// falling through to a scalar switch_br for the remaining exact-value
// prongs, finished with an exhaustiveness check instruction analyze.go
// resolves once the scrutinee's type is known.
func (g *Gen) lowerSwitch(n Node) {
	nk := n.(*NodeKit)
	kids := n.Children()
	scrutID := g.lowerExpr(kids[0])
	entryBB := g.b.Current()
	endBB := g.exec.NewBlock()

	rest := kids[1:]
	var scalarCases []SwitchCase
	var rangeProngs []Node
	var enumTags []int64
	var errIDs []int

	for i := 0; i+1 < len(rest); i += 2 {
		caseExpr, body := rest[i], rest[i+1]
		ck := caseExpr.(*NodeKit)
		if len(ck.RangeLo) > 0 {
			rangeProngs = append(rangeProngs, caseExpr, body)
			continue
		}
		bb := g.exec.NewBlock()
		g.lowerSwitchProng(bb, body, endBB)
		if ck.LitValue != nil {
			scalarCases = append(scalarCases, SwitchCase{Value: ck.LitValue, Target: bb.ID})
			if ck.LitValue.EnumTag != nil {
				enumTags = append(enumTags, ck.LitValue.EnumTag.Int64())
			}
			if ck.LitValue.Err != nil {
				errIDs = append(errIDs, ck.LitValue.Err.ID)
			}
		}
	}

	elseBB := endBB
	hasElse := nk.HasElse
	if hasElse {
		elseBB = g.exec.NewBlock()
		g.lowerSwitchProng(elseBB, rest[len(rest)-1], endBB)
	}

	// Phase 2: the scalar dispatch lives in its own block, since the range
	// pre-chain (phase 1, built below) needs somewhere to fall through to
	// when a value matches no range.
	scalarBB := g.exec.NewBlock()
	g.exec.Schedule(scalarBB)
	g.b.SetBlock(scalarBB)
	check := g.b.create(OpCheckSwitchProngs)
	check.A = scrutID
	check.ProngHasElse = hasElse
	check.EnumTags = enumTags
	check.ErrIDs = errIDs
	for i := 0; i+1 < len(rangeProngs); i += 2 {
		ck := rangeProngs[i].(*NodeKit)
		check.RangeLo = append(check.RangeLo, ck.RangeLo...)
		check.RangeHi = append(check.RangeHi, ck.RangeHi...)
	}
	g.b.append(check, true, scrutID)
	g.b.SwitchBr(scrutID, scalarCases, elseBB.ID, true)

	// Phase 1: range pre-chain, tested before the scalar dispatch so an
	// in-range value never reaches switch_br. Built in reverse so each
	// cascading test's false edge targets the test (or the scalar
	// dispatch, for the last one) that should run next.
	boolT, _ := g.ctx.Types.Primitive("bool")
	cursor := scalarBB.ID
	for i := len(rangeProngs) - 2; i >= 0; i -= 2 {
		ck := rangeProngs[i].(*NodeKit)
		body := rangeProngs[i+1]
		bb := g.exec.NewBlock()
		g.lowerSwitchProng(bb, body, endBB)

		nextTest := g.exec.NewBlock()
		g.exec.Schedule(nextTest)
		g.b.SetBlock(nextTest)
		var inRange InstID = -1
		for k := range ck.RangeLo {
			lo := g.b.Const(ck.RangeLo[k], true)
			hi := g.b.Const(ck.RangeHi[k], true)
			geLo := g.b.BinOp(">=", scrutID, lo, true)
			leHi := g.b.BinOp("<=", scrutID, hi, true)
			both := g.b.BinOp("and", geLo, leHi, true)
			if inRange < 0 {
				inRange = both
			} else {
				inRange = g.b.BinOp("or", inRange, both, true)
			}
		}
		if inRange < 0 {
			inRange = g.b.Const(&Value{Type: boolT, Specialness: Static, Bool: false}, true)
		}
		g.b.CondBr(inRange, bb.ID, cursor)
		cursor = nextTest.ID
	}

	g.b.SetBlock(entryBB)
	g.b.Br(cursor)

	g.exec.Schedule(endBB)
	g.b.SetBlock(endBB)
}

func (g *Gen) lowerSwitchProng(bb *BasicBlock, body Node, endBB *BasicBlock) {
	g.exec.Schedule(bb)
	g.b.SetBlock(bb)
	g.lowerStmt(body)
	if !IsTerminator(g.lastOp()) {
		g.b.Br(endBB.ID)
	}
}

// --- block expressions ---

func (g *Gen) lowerBlockStmt(n Node) {
	outer := g.sc
	g.sc = NewScope(ScopeBlock, outer)
	nk := n.(*NodeKit)
	g.sc.Label = nk.Label
	g.lowerStmtList(n.Children())
	g.sc = outer
}

// --- expressions ---

func (g *Gen) lowerExpr(n Node) InstID {
	if n == nil {
		return -1
	}
	switch n.NodeKind() {
	case NLit:
		nk := n.(*NodeKit)
		return g.b.Const(nk.LitValue, false)
	case NIdent:
		return g.lowerIdentLoad(n)
	case NBinOp:
		return g.lowerBinOpExpr(n)
	case NUnOp:
		return g.lowerUnOpExpr(n)
	case NCall:
		return g.lowerCallExpr(n)
	case NIndex:
		ptr := g.lowerLValue(n)
		return g.b.LoadPtr(ptr, false)
	case NField:
		ptr := g.lowerLValue(n)
		return g.b.LoadPtr(ptr, false)
	case NTry:
		return g.lowerTry(n)
	case NAwait:
		return g.lowerAwait(n)
	case NBlock, NLabeledBlock:
		return g.lowerBlockExpr(n)
	case NCompositeLit:
		return g.lowerCompositeLit(n)
	case NCImport:
		return g.lowerCImport(n)
	default:
		emitCtx(g.ctx, n, "expression kind not supported in this position")
		return g.b.Unreachable()
	}
}

func (g *Gen) lowerIdentLoad(n Node) InstID {
	nk := n.(*NodeKit)
	sym, _ := FindDecl(g.sc, nk.Ident)
	if sym == nil {
		emitDecl(g.ctx, n, fmt.Sprintf("use of undeclared identifier %q", nk.Ident))
		return g.b.Unreachable()
	}
	if sym.Kind != SymVar && sym.Kind != SymConst {
		// A bare reference to a function/type/package name: this core leaves
		// first-class function values to the external collaborator (§6); at
		// the call site (lowerCallExpr) the callee is resolved separately and
		// never routed through here.
		return -1
	}
	return g.b.LoadPtr(sym.GenPtr, false)
}

func (g *Gen) lowerBinOpExpr(n Node) InstID {
	nk := n.(*NodeKit)
	kids := n.Children()
	lhs := g.lowerExpr(kids[0])
	rhs := g.lowerExpr(kids[1])
	return g.b.BinOp(nk.Op, lhs, rhs, false)
}

func (g *Gen) lowerUnOpExpr(n Node) InstID {
	nk := n.(*NodeKit)
	kids := n.Children()
	oper := g.lowerExpr(kids[0])
	return g.b.UnOp(nk.Op, oper, false)
}

// lowerCallExpr resolves the callee to a FnRef by name before building the
// call instruction: analyze.go's five-way call-mode dispatch (§4.6.2) reads
// src.Callee directly rather than re-resolving it, so gen.go must settle the
// symbol lookup now, while the scope tree is still in scope.
func (g *Gen) lowerCallExpr(n Node) InstID {
	nk := n.(*NodeKit)
	kids := n.Children()
	var args []InstID
	for _, a := range kids[1:] {
		args = append(args, g.lowerExpr(a))
	}

	var callee *FnRef
	mode := CallRuntime
	if ck, ok := kids[0].(*NodeKit); ok && ck.Kind == NIdent {
		sym, _ := FindDecl(g.sc, ck.Ident)
		if sym == nil {
			emitDecl(g.ctx, kids[0], fmt.Sprintf("use of undeclared identifier %q", ck.Ident))
		} else {
			callee = &FnRef{Name: sym.Name, Type: sym.Type, Decl: sym.Decl}
			switch {
			case sym.Kind == SymType:
				mode = CallTypeCast
			case sym.Type != nil && sym.Type.Kind == Fn && sym.Type.Generic:
				mode = CallGenericInstantiate
			}
		}
	} else {
		// A computed callee (e.g. a function value read out of a struct
		// field): lower it for any side effects. This core resolves calls
		// through the static Name/Type binding on FnRef, so the loaded
		// value itself is not threaded into the call instruction.
		g.lowerExpr(kids[0])
	}
	if nk.CallAsync {
		mode = CallAsync
	}

	id := g.b.Call(mode, callee, args, false)
	g.exec.Inst(id).Inline = nk.Inline
	g.exec.Inst(id).NewStack = nk.NewStack
	return id
}

// lowerCompositeLit lowers `T{ a, b, c }` by materializing an undefined
// local of the literal's type and storing each element through elem_ptr,
// rather than trying to fold a Value directly here: elements may themselves
// be runtime expressions, and only analyze.go's constant folding can decide
// whether the whole literal collapses to a Static Value.
func (g *Gen) lowerCompositeLit(n Node) InstID {
	nk := n.(*NodeKit)
	kids := n.Children()

	undef := g.b.create(OpUndef)
	undef.Type = nk.DeclType
	undefID := g.b.append(undef, true)
	storage := g.b.DeclVar("", nk.DeclType, undefID, false)

	for i, k := range kids {
		val := g.lowerExpr(k)
		elemPtr := g.b.ElemPtr(storage, int64(i), true)
		g.b.StorePtr(elemPtr, val)
	}
	return g.b.LoadPtr(storage, false)
}

func (g *Gen) lowerCImport(n Node) InstID {
	buf := &CImportBuffer{Defines: map[string]string{}}
	cimp := g.b.create(OpCImport)
	cimp.CBuf = buf
	return g.b.append(cimp, false)
}

// lowerBlockExpr lowers a labeled block used in expression position:
// `break :label value` targets become phi incoming edges collected into
// the block's exit.
func (g *Gen) lowerBlockExpr(n Node) InstID {
	nk := n.(*NodeKit)
	exitBB := g.exec.NewBlock()
	var edges []PhiEdge
	if g.breakTargets == nil {
		g.breakTargets = map[BlockID]*[]PhiEdge{}
	}
	g.breakTargets[exitBB.ID] = &edges

	outer := g.sc
	g.sc = NewScope(ScopeBlock, outer)
	g.sc.Label = nk.Label
	eID := exitBB.ID
	g.sc.BreakTarget = &eID

	g.lowerStmtList(n.Children())
	if !IsTerminator(g.lastOp()) {
		g.b.Br(exitBB.ID)
	}
	g.sc = outer

	g.exec.Schedule(exitBB)
	g.b.SetBlock(exitBB)
	if len(edges) == 0 {
		return -1
	}
	return g.b.Phi(edges, nil)
}

// --- suspend / resume / await ---

func (g *Gen) lowerSuspend(n Node) {
	if g.sc.DeclaringFn() == nil || !g.exec.Async {
		emitCtx(g.ctx, n, "suspend outside of an async function")
		return
	}
	susp := g.b.create(OpCoroSuspend)
	g.b.append(susp, true)
	if kids := n.Children(); len(kids) > 0 {
		g.lowerStmt(kids[0])
	}
}

func (g *Gen) lowerResume(n Node) {
	kids := n.Children()
	if len(kids) == 0 {
		return
	}
	frame := g.lowerExpr(kids[0])
	xchg := g.b.create(OpCoroAwaiterXchg)
	xchg.A = frame
	g.b.append(xchg, false, frame)
}

func (g *Gen) lowerAwait(n Node) InstID {
	kids := n.Children()
	promiseID := g.lowerExpr(kids[0])
	xchg := g.b.create(OpCoroAwaiterXchg)
	xchg.A = promiseID
	id := g.b.append(xchg, false, promiseID)
	return id
}
