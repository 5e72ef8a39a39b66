package sema

// Opcode tags every instruction. The Design Notes call for expressing the
// per-opcode-group tagged union as exhaustive pattern matching in
// analyze.go's dispatcher; Inst itself stays one struct (the arena element),
// with operand fields grouped by the opcode family that uses them — the
// same shape the teacher's single `node` struct uses for both AST and CFG
// duty, minus the double duty (we keep AST Node and IR Inst separate, per
// the Design Notes' "heterogeneous IR node hierarchy" guidance).
type Opcode uint8

const (
	OpConst Opcode = iota
	OpBinOp
	OpUnOp
	OpCall
	OpBr
	OpCondBr
	OpSwitchBr
	OpPhi
	OpDeclVar
	OpStorePtr
	OpLoadPtr
	OpElemPtr
	OpFieldPtr
	OpSlice
	OpCheckSwitchProngs
	OpCheckStmtIsVoid
	OpOverflowOp
	OpCmpxchg
	OpFence
	OpAtomicRMW
	OpAtomicLoad
	OpCImport
	OpCoroSuspend
	OpCoroAlloc
	OpCoroPromiseStore
	OpCoroAwaiterXchg
	OpReturn
	OpUnreachable
	OpPanic
	OpTestErr
	OpCast
	OpAlignCast
	OpUndef
)

// InstID indexes into an Executable's instruction arena (§9 Design Notes:
// "arena of instructions ... fields storing integer indices rather than raw
// pointers").
type InstID int

// BlockID indexes into an Executable's block arena.
type BlockID int

// Inst is one IR instruction: unanalyzed when it lives in a Gen-produced
// Executable, analyzed once Analyze has rewritten it into the output
// Executable. Op-specific fields are grouped below by the §4.6 table.
type Inst struct {
	ID    InstID
	Op    Opcode
	Block BlockID
	Pos   Pos
	Scope *Scope

	Value *Value // possibly Runtime; nil until analyze.go fills it in

	RefCount int
	IsGen    bool   // synthetic, exempt from unused-value diagnostics
	Other    InstID // cross-link: unanalyzed <-> analyzed pairing; -1 if none

	// Operands: most opcodes take 0-3; CondBr/SwitchBr/Phi/Call need lists.
	A, B, C InstID

	// OpBinOp / OpUnOp
	BinOp     string
	Wrapping  bool // wrap-variant allowed on unsigned negation etc.
	DivKind   string // "", "trunc", "floor", "exact" for OpBinOp "/"
	RemKind   string // "rem" or "mod"

	// OpCall
	CallMode  CallMode
	Args      []InstID
	Callee    *FnRef
	IsAsync   bool
	Inline    bool
	NewStack  bool
	StackMem  InstID // extra operand for @newStackCall

	// OpBr / OpCondBr / OpSwitchBr
	Target    BlockID
	TrueTgt   BlockID
	FalseTgt  BlockID
	Cases     []SwitchCase
	Else      BlockID
	HasElse   bool

	// OpPhi
	Incoming []PhiEdge

	// OpDeclVar
	VarName   string
	IsConst   bool
	SlotIndex int

	// OpElemPtr / OpFieldPtr
	Index     int64
	IndexOp   InstID // OpElemPtr: runtime index operand; -1 when Index is comptime-known
	FieldName string

	// OpSlice
	Lo, Hi InstID

	// OpCheckSwitchProngs
	RangeLo, RangeHi []*Value
	ProngHasElse     bool
	EnumTags         []int64
	ErrIDs           []int

	// OpOverflowOp
	OverflowOp string // "add", "sub", "mul", "shl"
	ResultPtr  InstID

	// OpCmpxchg / OpFence / OpAtomicRMW / OpAtomicLoad
	SuccessOrder string
	FailureOrder string
	RMWOp        string

	// OpCImport
	CBuf *CImportBuffer

	// OpCoroSuspend etc: no extra fields beyond Value (u8 discriminant).

	Type *Type // destination type for Cast/AlignCast/DeclVar/etc.
}

func (i *Inst) SourcePos() Pos { return i.Pos }

// CallMode enumerates the five call modes of §4.6.2.
type CallMode uint8

const (
	CallTypeCast CallMode = iota
	CallComptimeExec
	CallRuntime
	CallGenericInstantiate
	CallAsync
)

// SwitchCase is one scalar prong of a switch_br (§4.5 phase 2).
type SwitchCase struct {
	Value  *Value
	Target BlockID
}

// PhiEdge is one incoming value of a phi, keyed by predecessor block.
type PhiEdge struct {
	Pred  BlockID
	Value InstID
}
