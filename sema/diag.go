package sema

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// SrcNode is the read-only AST/IR source-location handle diagnostics anchor
// to. Both ast.Node and *Inst satisfy it.
type SrcNode interface {
	SourcePos() Pos
}

// Pos is an opaque source position, borrowed from the external AST
// collaborator (§6) and otherwise uninterpreted by this core.
type Pos struct {
	File string
	Line int
	Col  int
}

func (p Pos) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Col)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

// DiagKind classifies a diagnostic into one of the §7 error kinds.
type DiagKind uint8

const (
	KindType DiagKind = iota
	KindValue
	KindDeclaration
	KindContextual
	KindQuota
	KindInfrastructure
)

// Diagnostic is the concrete error value every one of the §7 kinds renders
// through, following the teacher's pattern of typed struct errors
// (Panic, _error) rather than sentinel strings.
type Diagnostic struct {
	Kind  DiagKind
	Node  SrcNode
	Msg   string
	Notes []Note
	Wrap  error // set for InfrastructureError forwarding a collaborator error
}

// Note is a "called from here"-style secondary annotation (§4.8: walks up
// the parent_exec chain for synthetic instructions, up to a fixed depth).
type Note struct {
	Node SrcNode
	Text string
}

func (d *Diagnostic) Error() string {
	if d.Node != nil {
		return fmt.Sprintf("%s: %s", d.Node.SourcePos(), d.Msg)
	}
	return d.Msg
}

func (d *Diagnostic) Unwrap() error { return d.Wrap }

const maxNoteDepth = 16

// DiagnosticSink is the external collaborator of §6: emit_error / add_note /
// invalidate.
type DiagnosticSink interface {
	EmitError(d *Diagnostic) MsgHandle
	AddNote(h MsgHandle, node SrcNode, text string)
	Invalidate(exec *Executable)
}

// MsgHandle identifies one emitted diagnostic for later AddNote calls.
type MsgHandle int

// CollectingSink is a minimal DiagnosticSink implementation: it appends every
// diagnostic to a slice, matching the teacher's pattern of gathering as many
// diagnostics as possible in one pass (§7 "a single compilation produces as
// many diagnostics as possible").
type CollectingSink struct {
	Diags []*Diagnostic
}

func NewCollectingSink() *CollectingSink { return &CollectingSink{} }

func (s *CollectingSink) EmitError(d *Diagnostic) MsgHandle {
	s.Diags = append(s.Diags, d)
	return MsgHandle(len(s.Diags) - 1)
}

func (s *CollectingSink) AddNote(h MsgHandle, node SrcNode, text string) {
	if int(h) < 0 || int(h) >= len(s.Diags) {
		return
	}
	s.Diags[h].Notes = append(s.Diags[h].Notes, Note{Node: node, Text: text})
}

func (s *CollectingSink) Invalidate(exec *Executable) {
	if exec != nil {
		exec.Invalid = true
	}
}

// emitType/emitValue/emitDecl/emitCtx/emitQuota/emitInfra are thin
// constructors used throughout analyze.go/gen.go/comptime.go so every call
// site reads as "what kind of failure", matching §7's taxonomy.

func emitType(ctx *Context, exec *Executable, node SrcNode, msg string) MsgHandle {
	h := ctx.Sink.EmitError(&Diagnostic{Kind: KindType, Node: node, Msg: msg})
	ctx.Sink.Invalidate(exec)
	return h
}

func emitValue(ctx *Context, exec *Executable, node SrcNode, msg string) MsgHandle {
	h := ctx.Sink.EmitError(&Diagnostic{Kind: KindValue, Node: node, Msg: msg})
	ctx.Sink.Invalidate(exec)
	return h
}

func emitDecl(ctx *Context, node SrcNode, msg string) MsgHandle {
	return ctx.Sink.EmitError(&Diagnostic{Kind: KindDeclaration, Node: node, Msg: msg})
}

func emitCtx(ctx *Context, node SrcNode, msg string) MsgHandle {
	return ctx.Sink.EmitError(&Diagnostic{Kind: KindContextual, Node: node, Msg: msg})
}

func emitQuota(ctx *Context, exec *Executable, node SrcNode, quota uint64) MsgHandle {
	msg := fmt.Sprintf("evaluation exceeded %s backwards branches", humanize.Comma(int64(quota)))
	h := ctx.Sink.EmitError(&Diagnostic{Kind: KindQuota, Node: node, Msg: msg})
	ctx.Sink.Invalidate(exec)
	return h
}

func emitInfra(ctx *Context, node SrcNode, msg string, wrap error) MsgHandle {
	return ctx.Sink.EmitError(&Diagnostic{Kind: KindInfrastructure, Node: node, Msg: msg, Wrap: wrap})
}

// walkParentNotes appends "called from here" notes up the Executable.Parent
// chain for a synthetic (inlined-comptime-frame) instruction, capped at
// maxNoteDepth per §4.8.
func walkParentNotes(ctx *Context, h MsgHandle, exec *Executable) {
	depth := 0
	e := exec
	for e != nil && e.Parent != nil && depth < maxNoteDepth {
		ctx.Sink.AddNote(h, e.CallSite, "called from here")
		e = e.Parent
		depth++
	}
}

// ---- §4.8 safety-check categories ----

// SafetyCategory classifies how a check is enforced.
type SafetyCategory uint8

const (
	ComptimeFatal SafetyCategory = iota
	RuntimeOptional
	AlwaysOn
	Advisory
)

// RuntimeSafetyState is the per-scope set_runtime_safety flag (§4.8).
// Scopes inherit their parent's value; `set_runtime_safety` overrides it for
// the remainder of the enclosing block/fn/decls scope. A duplicate toggle
// within the *same* scope (not inherited) is itself a diagnostic.
type RuntimeSafetyState struct {
	Value     bool
	SetInThis bool
}

func setRuntimeSafety(ctx *Context, sc *Scope, node SrcNode, v bool) {
	if sc.SafetySetHere {
		emitCtx(ctx, node, "redundant set_runtime_safety in this scope")
		return
	}
	sc.RuntimeSafety = v
	sc.SafetySetHere = true
}
