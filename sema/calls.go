package sema

import "fmt"

// This file is §4.6.2: the five call modes a `call` instruction can resolve
// to. gen.go picks the mode from the callee's symbol (a type symbol is a
// type cast, a generic fn type is an instantiation, anything else a runtime
// call) and from the `async` keyword; it never selects CallComptimeExec.
// analyzeRuntimeCall sends an `inline` call whose arguments are all comptime
// down the comptime-execution path.

func (a *Analyzer) analyzeCall(src *Inst) {
	args := make([]InstID, len(src.Args))
	argVals := make([]*Value, len(src.Args))
	allComptime := true
	for i, arg := range src.Args {
		args[i] = a.remap(arg)
		argVals[i] = a.dst.Inst(args[i]).Value
		if !IsComptime(argVals[i]) {
			allComptime = false
		}
	}

	switch src.CallMode {
	case CallTypeCast:
		a.analyzeTypeCastCall(src, args, argVals)
	case CallComptimeExec:
		a.analyzeComptimeCall(src, args, argVals)
	case CallGenericInstantiate:
		a.analyzeGenericCall(src, args, argVals)
	case CallAsync:
		a.analyzeAsyncCall(src, args, argVals)
	default:
		a.analyzeRuntimeCall(src, args, argVals, allComptime)
	}
}

// analyzeTypeCastCall handles calls whose callee is a builtin or primitive
// type acting as a conversion, e.g. `u32(x)` or `@intCast(T, x)`.
func (a *Analyzer) analyzeTypeCastCall(src *Inst, args []InstID, argVals []*Value) {
	if src.Callee == nil || src.Callee.Type == nil {
		a.poison(src, src, "call target is not a type")
		return
	}
	if len(argVals) != 1 {
		a.poison(src, src, fmt.Sprintf("type cast expects exactly one argument, got %d", len(argVals)))
		return
	}
	res, err := Coerce(a.ctx, a.b, argVals[0], src.Callee.Type)
	if err != nil {
		res2, err2 := tryExplicitCast(a.ctx, a.dst, a.b, argVals[0], src.Callee.Type, src)
		if err2 != nil {
			a.poison(src, src, err.Error())
			return
		}
		res = res2
	}
	if res.Inst >= 0 {
		a.instMap[src.ID] = res.Inst
		return
	}
	id := a.b.Const(res.Value, src.IsGen)
	a.record(src, id)
}

// tryExplicitCast covers the explicit-intrinsic casts (@intCast/@floatCast/
// @as) that fall outside the implicit coercion lattice.
func tryExplicitCast(ctx *Context, exec *Executable, b *Builder, v *Value, dest *Type, node SrcNode) (*CoerceResult, error) {
	if v.Type.Kind == Int && dest.Kind == Int {
		nv, err := IntCast(ctx, exec, nil, node, v, dest)
		if err != nil {
			return nil, err
		}
		if IsComptime(nv) {
			return &CoerceResult{Inst: -1, Value: nv}, nil
		}
		return runtimeCast(b, v, dest), nil
	}
	if v.Type.Kind == Float && dest.Kind == Float {
		return coerceFloatWiden(ctx, b, v, dest)
	}
	return nil, &CoerceError{Src: v.Type, Dest: dest, Mismatch: MismatchNotRelated}
}

// analyzeComptimeCall executes a function body through the comptime
// executor (C7) when every argument is Static and the callee carries no
// runtime side effects the executor's allow-list forbids.
func (a *Analyzer) analyzeComptimeCall(src *Inst, args []InstID, argVals []*Value) {
	if src.Callee == nil {
		a.poison(src, src, "call target is not a function")
		return
	}
	exec := &Executable{Name: src.Callee.Name, BranchQuota: a.ctx.Cfg.EvalBranchQuota, Parent: a.dst, CallSite: src}
	result, err := RunComptime(a.ctx, exec, argVals)
	if err != nil {
		walkParentNotes(a.ctx, emitValue(a.ctx, a.dst, src, err.Error()), exec)
		return
	}
	id := a.b.Const(result, src.IsGen)
	a.record(src, id)
}

// analyzeGenericCall instantiates (or reuses a memoized instantiation of) a
// generic function, per §8 scenario 5.
func (a *Analyzer) analyzeGenericCall(src *Inst, args []InstID, argVals []*Value) {
	if src.Callee == nil {
		a.poison(src, src, "call target is not a generic function")
		return
	}
	var typeBound []*Type
	for _, v := range argVals {
		if v.Type.Kind == TypeType {
			if t, ok := v.Aux.(*Type); ok {
				typeBound = append(typeBound, t)
			}
		}
	}
	inst := InstantiateGeneric(a.ctx, src.Callee.Name, typeBound, nil, func() *GenericInstance {
		return &GenericInstance{FnType: src.Callee.Type}
	})
	if inst.ResultTy != nil {
		out := MakeConst(typeTypeOf(a.ctx))
		out.Aux = inst.ResultTy
		id := a.b.Const(out, src.IsGen)
		a.record(src, id)
		return
	}
	dst := a.b.create(OpCall)
	dst.CallMode = CallRuntime
	dst.Callee = &FnRef{Name: src.Callee.Name, Type: inst.FnType}
	dst.Args = args
	dst.Value = MakeRuntime(returnTypeOf(inst.FnType))
	id := a.b.append(dst, src.IsGen, args...)
	a.record(src, id)
}

func typeTypeOf(ctx *Context) *Type {
	if t, ok := ctx.Types.Primitive("type"); ok {
		return t
	}
	return &Type{Kind: TypeType, Name: "type"}
}

func returnTypeOf(fn *Type) *Type {
	if fn != nil && fn.Return != nil {
		return fn.Return
	}
	return voidType
}

// analyzeAsyncCall lowers `async f(...)` into a runtime call flagged async;
// the coroutine prelude itself (promise-frame allocation, awaiter slot
// setup) is gen.go's job at construction time, so by the time analyze.go
// sees this call the frame-allocating argument is already present in args.
func (a *Analyzer) analyzeAsyncCall(src *Inst, args []InstID, argVals []*Value) {
	if src.Callee == nil {
		a.poison(src, src, "async call target is not a function")
		return
	}
	dst := a.b.create(OpCall)
	dst.CallMode = CallAsync
	dst.Callee = src.Callee
	dst.Args = args
	dst.IsAsync = true
	resT := src.Callee.Type
	promiseT := resT
	if resT != nil && resT.Kind == Fn {
		promiseT = &Type{Kind: Promise, Result: resT.Return}
	}
	dst.Value = MakeRuntime(promiseT)
	id := a.b.append(dst, src.IsGen, args...)
	a.record(src, id)
}

func (a *Analyzer) analyzeRuntimeCall(src *Inst, args []InstID, argVals []*Value, allComptime bool) {
	if src.Callee == nil {
		a.poison(src, src, "call target is not callable")
		return
	}
	if src.Inline && allComptime {
		a.analyzeComptimeCall(src, args, argVals)
		return
	}
	dst := a.b.create(OpCall)
	dst.CallMode = CallRuntime
	dst.Callee = src.Callee
	dst.Args = args
	dst.Inline = src.Inline
	dst.NewStack = src.NewStack
	dst.Value = MakeRuntime(returnTypeOf(src.Callee.Type))
	id := a.b.append(dst, src.IsGen, args...)
	a.record(src, id)
}

// analyzeCImport buffers the raw C source text attached to a `@cImport`
// block (gathered by gen.go from every `@cInclude`/`@cDefine` inside it) and
// hands it to the external C importer collaborator of §6. The translator
// itself is out of scope; this core only models the buffering contract and
// the resulting namespace value.
func (a *Analyzer) analyzeCImport(src *Inst) {
	if src.CBuf == nil {
		a.poison(src, src, "empty @cImport block")
		return
	}
	nsT := &Type{Kind: Namespace, Name: "c_import"}
	out := MakeConst(nsT)
	out.Aux = src.CBuf
	id := a.b.Const(out, src.IsGen)
	a.record(src, id)
}
