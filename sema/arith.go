package sema

import (
	"fmt"
	"math/big"
)

// This file is §4.6.1: arithmetic and comparison rules. Overflow detection,
// the three division families, rem/mod sign rules, shift rules and
// error-set equality all live here, grounded on the same "fold when both
// operands are comptime, otherwise emit a runtime instruction" shape every
// other analyze*.go rule follows.

func (a *Analyzer) analyzeBinOp(src *Inst) {
	lhsID, rhsID := a.remap(src.A), a.remap(src.B)
	lhs := a.dst.Inst(lhsID).Value
	rhs := a.dst.Inst(rhsID).Value

	peer, err := PeerResolve(a.ctx, []*Value{lhs, rhs}, nil)
	if err != nil {
		a.poison(src, src, err.Error())
		return
	}
	lhs, lhsID = a.coerceOperand(src, lhs, lhsID, peer.Type)
	rhs, rhsID = a.coerceOperand(src, rhs, rhsID, peer.Type)
	if lhs == nil || rhs == nil {
		return
	}

	switch src.BinOp {
	case "==", "!=":
		a.analyzeComparison(src, lhs, rhs, lhsID, rhsID)
	case "/":
		a.analyzeDiv(src, lhs, rhs, lhsID, rhsID)
	case "%":
		a.analyzeRem(src, lhs, rhs, lhsID, rhsID)
	case "<<":
		a.analyzeShift(src, lhs, rhs, lhsID, rhsID)
	default:
		a.analyzeArith(src, lhs, rhs, lhsID, rhsID, peer.Type)
	}
}

func (a *Analyzer) coerceOperand(src *Inst, v *Value, id InstID, dest *Type) (*Value, InstID) {
	if Identical(v.Type, dest) {
		return v, id
	}
	res, err := Coerce(a.ctx, a.b, v, dest)
	if err != nil {
		a.poison(src, src, err.Error())
		return nil, -1
	}
	if res.Inst >= 0 {
		return res.Value, res.Inst
	}
	return res.Value, id
}

func (a *Analyzer) analyzeComparison(src *Inst, lhs, rhs *Value, lhsID, rhsID InstID) {
	boolT, _ := a.ctx.Types.Primitive("bool")
	if lhs.Type.Kind == ErrorSet && rhs.Type.Kind == ErrorSet {
		common := IntersectErrorSets(lhs.Type, rhs.Type)
		if len(common) == 0 && !isGlobalSet(lhs.Type) && !isGlobalSet(rhs.Type) {
			emitCtx(a.ctx, src, fmt.Sprintf("error sets %s and %s share no member: comparison is always %v", typeStr(lhs.Type), typeStr(rhs.Type), src.BinOp == "!="))
		}
	}
	if IsComptime(lhs) && IsComptime(rhs) {
		eq := Equals(lhs, rhs)
		out := MakeConst(boolT)
		out.Bool = eq
		if src.BinOp == "!=" {
			out.Bool = !eq
		}
		id := a.b.Const(out, src.IsGen)
		a.record(src, id)
		return
	}
	dst := a.b.create(OpBinOp)
	dst.BinOp = src.BinOp
	dst.A, dst.B = lhsID, rhsID
	dst.Value = MakeRuntime(boolT)
	id := a.b.append(dst, src.IsGen, lhsID, rhsID)
	a.record(src, id)
}

// analyzeDiv implements the three division intrinsics' shared entry: a `/`
// on signed integers with an empty src.DivKind is rejected here, since the
// surface `/` operator on signed integers is ill-formed without an explicit
// divTrunc/divFloor/divExact. gen.go's binary-operator lowering leaves
// DivKind empty; an empty DivKind on unsigned operands folds as truncating
// division.
func (a *Analyzer) analyzeDiv(src *Inst, lhs, rhs *Value, lhsID, rhsID InstID) {
	if lhs.Type.Kind == Int && lhs.Type.Signed && src.DivKind == "" {
		emitType(a.ctx, a.dst, src, "division of signed integers is ambiguous: use @divTrunc, @divFloor, or @divExact")
		return
	}
	if IsComptime(rhs) && isZero(rhs) {
		emitValue(a.ctx, a.dst, src, "division by zero")
		return
	}
	if IsComptime(lhs) && IsComptime(rhs) {
		out := divFold(lhs, rhs, src.DivKind)
		if out == nil {
			emitValue(a.ctx, a.dst, src, "division is not exact")
			return
		}
		id := a.b.Const(out, src.IsGen)
		a.record(src, id)
		return
	}
	dst := a.b.create(OpBinOp)
	dst.BinOp = "/"
	dst.DivKind = src.DivKind
	dst.A, dst.B = lhsID, rhsID
	dst.Value = MakeRuntime(lhs.Type)
	id := a.b.append(dst, src.IsGen, lhsID, rhsID)
	a.record(src, id)
}

func isZero(v *Value) bool {
	if v.Int != nil {
		return v.Int.Sign() == 0
	}
	if v.Float != nil {
		return v.Float.Sign() == 0
	}
	return false
}

func divFold(lhs, rhs *Value, kind string) *Value {
	if lhs.Type.Kind == Float || lhs.Float != nil {
		out := MakeConst(lhs.Type)
		out.Float = new(big.Float).Quo(lhs.Float, rhs.Float)
		return out
	}
	q, m := new(big.Int), new(big.Int)
	q.QuoRem(lhs.Int, rhs.Int, m)
	switch kind {
	case "trunc", "":
		out := MakeConst(lhs.Type)
		out.Int = q
		return out
	case "floor":
		if m.Sign() != 0 && (m.Sign() < 0) != (rhs.Int.Sign() < 0) {
			q.Sub(q, big.NewInt(1))
		}
		out := MakeConst(lhs.Type)
		out.Int = q
		return out
	case "exact":
		if m.Sign() != 0 {
			return nil
		}
		out := MakeConst(lhs.Type)
		out.Int = q
		return out
	}
	return nil
}

// analyzeRem implements `%`'s two intrinsic forms (rem truncates toward the
// dividend's sign like Go's own `%`; mod follows the divisor's sign).
func (a *Analyzer) analyzeRem(src *Inst, lhs, rhs *Value, lhsID, rhsID InstID) {
	if IsComptime(rhs) && isZero(rhs) {
		emitValue(a.ctx, a.dst, src, "division by zero")
		return
	}
	if IsComptime(lhs) && IsComptime(rhs) {
		m := new(big.Int)
		new(big.Int).QuoRem(lhs.Int, rhs.Int, m)
		if src.RemKind == "mod" && m.Sign() != 0 && (m.Sign() < 0) != (rhs.Int.Sign() < 0) {
			m.Add(m, rhs.Int)
		}
		out := MakeConst(lhs.Type)
		out.Int = m
		id := a.b.Const(out, src.IsGen)
		a.record(src, id)
		return
	}
	dst := a.b.create(OpBinOp)
	dst.BinOp = "%"
	dst.RemKind = src.RemKind
	dst.A, dst.B = lhsID, rhsID
	dst.Value = MakeRuntime(lhs.Type)
	id := a.b.append(dst, src.IsGen, lhsID, rhsID)
	a.record(src, id)
}

// analyzeShift implements `<<`, including the @shlExact variant which
// errors if any set bit is shifted out rather than wrapping or discarding.
func (a *Analyzer) analyzeShift(src *Inst, lhs, rhs *Value, lhsID, rhsID InstID) {
	if IsComptime(lhs) && IsComptime(rhs) {
		shift := uint(rhs.Int.Int64())
		out := MakeConst(lhs.Type)
		out.Int = new(big.Int).Lsh(lhs.Int, shift)
		if src.OverflowOp == "shlExact" && lhs.Type.Bits > 0 {
			if !fitsInt(out.Int, lhs.Type) {
				emitValue(a.ctx, a.dst, src, "operation caused overflow")
				return
			}
		} else if lhs.Type.Bits > 0 {
			out.Int = wrapToBits(out.Int, lhs.Type)
		}
		id := a.b.Const(out, src.IsGen)
		a.record(src, id)
		return
	}
	dst := a.b.create(OpBinOp)
	dst.BinOp = "<<"
	dst.A, dst.B = lhsID, rhsID
	dst.Value = MakeRuntime(lhs.Type)
	id := a.b.append(dst, src.IsGen, lhsID, rhsID)
	a.record(src, id)
}

func wrapToBits(v *big.Int, t *Type) *big.Int {
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(t.Bits)), big.NewInt(1))
	out := new(big.Int).And(v, mask)
	if t.Signed {
		half := new(big.Int).Lsh(big.NewInt(1), uint(t.Bits-1))
		if out.Cmp(half) >= 0 {
			out.Sub(out, new(big.Int).Lsh(big.NewInt(1), uint(t.Bits)))
		}
	}
	return out
}

// analyzeArith is the default +, -, *, &, |, ^ rule: fold if both comptime,
// checking for overflow against the destination type's representable range
// when it is not comptime_int (a fixed-width integer type makes `+`/`-`/`*`
// a Comptime-fatal overflow check per §4.8, not silent wraparound).
func (a *Analyzer) analyzeArith(src *Inst, lhs, rhs *Value, lhsID, rhsID InstID, resultType *Type) {
	if IsComptime(lhs) && IsComptime(rhs) {
		out, overflowed := arithFold(lhs, rhs, src.BinOp, resultType)
		if overflowed {
			emitValue(a.ctx, a.dst, src, fmt.Sprintf("overflow of type %s", typeStr(resultType)))
			return
		}
		id := a.b.Const(out, src.IsGen)
		a.record(src, id)
		return
	}
	dst := a.b.create(OpBinOp)
	dst.BinOp = src.BinOp
	dst.A, dst.B = lhsID, rhsID
	dst.Value = MakeRuntime(resultType)
	id := a.b.append(dst, src.IsGen, lhsID, rhsID)
	a.record(src, id)
}

func arithFold(lhs, rhs *Value, op string, resultType *Type) (*Value, bool) {
	if resultType.Kind == Float || lhs.Float != nil {
		out := MakeConst(resultType)
		out.Float = new(big.Float)
		switch op {
		case "+":
			out.Float.Add(lhs.Float, rhs.Float)
		case "-":
			out.Float.Sub(lhs.Float, rhs.Float)
		case "*":
			out.Float.Mul(lhs.Float, rhs.Float)
		}
		return out, false
	}
	res := new(big.Int)
	switch op {
	case "+":
		res.Add(lhs.Int, rhs.Int)
	case "-":
		res.Sub(lhs.Int, rhs.Int)
	case "*":
		res.Mul(lhs.Int, rhs.Int)
	case "&":
		res.And(lhs.Int, rhs.Int)
	case "|":
		res.Or(lhs.Int, rhs.Int)
	case "^":
		res.Xor(lhs.Int, rhs.Int)
	case "<<":
		res.Lsh(lhs.Int, uint(rhs.Int.Int64()))
	}
	if resultType.Kind == Int && resultType.Bits > 0 && !fitsInt(res, resultType) {
		return nil, true
	}
	out := MakeConst(resultType)
	out.Int = res
	return out, false
}

func (a *Analyzer) analyzeUnOp(src *Inst) {
	operID := a.remap(src.A)
	oper := a.dst.Inst(operID).Value
	if IsComptime(oper) {
		out := MakeConst(oper.Type)
		switch src.BinOp {
		case "-":
			if oper.Float != nil {
				out.Float = new(big.Float).Neg(oper.Float)
			} else {
				out.Int = new(big.Int).Neg(oper.Int)
				if oper.Type.Kind == Int && oper.Type.Bits > 0 && !fitsInt(out.Int, oper.Type) {
					emitValue(a.ctx, a.dst, src, fmt.Sprintf("negation caused overflow of type %s", typeStr(oper.Type)))
					return
				}
			}
		case "!":
			out.Bool = !oper.Bool
		case "~":
			out.Int = new(big.Int).Not(oper.Int)
			if oper.Type.Bits > 0 {
				out.Int = wrapToBits(out.Int, oper.Type)
			}
		}
		id := a.b.Const(out, src.IsGen)
		a.record(src, id)
		return
	}
	dst := a.b.create(OpUnOp)
	dst.BinOp = src.BinOp
	dst.A = operID
	dst.Value = MakeRuntime(oper.Type)
	id := a.b.append(dst, src.IsGen, operID)
	a.record(src, id)
}

// analyzeOverflowOp implements the @addWithOverflow-family builtins: they
// return a bool (overflow occurred) and write the wrapped result through
// ResultPtr, never a Comptime-fatal diagnostic, since the caller has
// explicitly opted into checking rather than trapping.
func (a *Analyzer) analyzeOverflowOp(src *Inst) {
	lhsID, rhsID := a.remap(src.A), a.remap(src.B)
	lhs := a.dst.Inst(lhsID).Value
	rhs := a.dst.Inst(rhsID).Value
	resultPtrID := a.remap(src.ResultPtr)
	boolT, _ := a.ctx.Types.Primitive("bool")

	if IsComptime(lhs) && IsComptime(rhs) {
		wrapped, overflowed := arithFold(lhs, rhs, overflowOpSymbol(src.OverflowOp), lhs.Type)
		if wrapped == nil {
			wrapped = MakeConst(lhs.Type)
			wrapped.Int = wrapToBits(computeRawArith(lhs, rhs, src.OverflowOp), lhs.Type)
			overflowed = true
		}
		resPtr := a.dst.Inst(resultPtrID).Value
		if resPtr.Ptr != nil && (resPtr.Ptr.Mut == ComptimeVar || resPtr.Ptr.Mut == ComptimeConst) {
			*Pointee(resPtr) = *wrapped
		}
		out := MakeConst(boolT)
		out.Bool = overflowed
		id := a.b.Const(out, src.IsGen)
		a.record(src, id)
		return
	}
	dst := a.b.create(OpOverflowOp)
	dst.OverflowOp = src.OverflowOp
	dst.A, dst.B, dst.ResultPtr = lhsID, rhsID, resultPtrID
	dst.Value = MakeRuntime(boolT)
	id := a.b.append(dst, src.IsGen, lhsID, rhsID, resultPtrID)
	a.record(src, id)
}

func overflowOpSymbol(op string) string {
	switch op {
	case "add":
		return "+"
	case "sub":
		return "-"
	case "mul":
		return "*"
	case "shl":
		return "<<"
	}
	return op
}

func computeRawArith(lhs, rhs *Value, op string) *big.Int {
	res := new(big.Int)
	switch op {
	case "add":
		res.Add(lhs.Int, rhs.Int)
	case "sub":
		res.Sub(lhs.Int, rhs.Int)
	case "mul":
		res.Mul(lhs.Int, rhs.Int)
	case "shl":
		res.Lsh(lhs.Int, uint(rhs.Int.Int64()))
	}
	return res
}
