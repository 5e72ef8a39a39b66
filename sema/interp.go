package sema

import "fmt"

// This file is §5's top-level declaration-resolution driver, tying gen
// (C5) and analyze (C6) together across a whole compilation. Analysis
// itself is single-threaded and cooperative: the only "concurrency" is
// recursive re-entry when analyzing one instruction needs a declaration
// that hasn't been resolved yet, which re-enters resolution for a
// different executable. That re-entry is guarded by an explicit
// Unresolved -> Resolving -> {Ok, Invalid} state machine on each
// declaration, plus a stack of in-progress names for cycle detection,
// rather than real call-stack recursion — a pathological reference chain
// could exceed it (§9 Design Notes).
//
// Grounded on the teacher's own multi-pass Interpreter.Eval, which stages
// global type analysis, then cfg construction, then execution behind one
// entry point, re-entering itself as imports are discovered: Program and
// Resolve play the same "one driver, staged passes, re-entrant on demand"
// role here, with Declaration standing in for a yaegi symbol and DeclState
// standing in for the cycle guard yaegi's own gta pass lacked.

// DeclState is a declaration's place in the §5 resolution state machine.
type DeclState uint8

const (
	DeclUnresolved DeclState = iota
	DeclResolving
	DeclOk
	DeclInvalid
)

func (s DeclState) String() string {
	switch s {
	case DeclUnresolved:
		return "unresolved"
	case DeclResolving:
		return "resolving"
	case DeclOk:
		return "ok"
	case DeclInvalid:
		return "invalid"
	default:
		return "?"
	}
}

// Declaration is one top-level binding (fn, const, var, or type) the driver
// resolves on demand: gen.go lowers Body into an unanalyzed Executable,
// analyze.go then walks it into Analyzed. A const/type declaration instead
// settles to a single Value once its (trivial, single-block) Executable
// folds — RunComptime's job, not this driver's.
type Declaration struct {
	Name  string
	State DeclState
	Pos   Pos

	Body        Node
	ParamNames  []string
	ParamTypes  []*Type
	IsAsync     bool
	PromiseType *Type

	Gen      *Executable
	Analyzed *Executable
	Value    *Value
}

func (d *Declaration) SourcePos() Pos { return d.Pos }

// Program is one compilation's full set of top-level declarations plus the
// resolution driver's call stack.
type Program struct {
	ctx   *Context
	decls map[string]*Declaration

	// stack holds the names currently mid-Resolve, innermost last; a name
	// already on it means Resolve has been re-entered for it — a cycle.
	stack []string
}

func NewProgram(ctx *Context) *Program {
	return &Program{ctx: ctx, decls: map[string]*Declaration{}}
}

// Declare registers a top-level declaration, unresolved, before any
// Resolve call can reference it by name.
func (p *Program) Declare(d *Declaration) {
	if d.Name != "" {
		p.decls[d.Name] = d
	}
}

// Lookup returns a previously declared binding without resolving it.
func (p *Program) Lookup(name string) (*Declaration, bool) {
	d, ok := p.decls[name]
	return d, ok
}

// InProgress reports whether name is currently being resolved further up
// the call stack, which tells a cycle apart from a plain "hasn't started
// yet" case. The Analyzer holds no Program, so no analysis rule calls
// InProgress or Resolve; re-entry happens only through a caller of Resolve.
func (p *Program) InProgress(name string) bool {
	for _, s := range p.stack {
		if s == name {
			return true
		}
	}
	return false
}

// Resolve drives name through gen -> analyze, memoizing the result on its
// Declaration. Re-entering Resolve for a Resolving declaration (a
// reference cycle) is a diagnostic, not a panic: the declaration is marked
// Invalid so every caller on the cycle gets one consistent answer instead
// of looping forever.
func (p *Program) Resolve(name string) (*Declaration, error) {
	d, ok := p.decls[name]
	if !ok {
		return nil, fmt.Errorf("sema: no such declaration %q", name)
	}
	switch d.State {
	case DeclOk, DeclInvalid:
		return d, nil
	case DeclResolving:
		d.State = DeclInvalid
		emitDecl(p.ctx, d, fmt.Sprintf("reference cycle detected resolving %q", name))
		return d, fmt.Errorf("sema: cycle resolving %q", name)
	}

	d.State = DeclResolving
	p.stack = append(p.stack, name)
	ok = p.runPasses(d)
	p.stack = p.stack[:len(p.stack)-1]

	if !ok {
		d.State = DeclInvalid
		return d, fmt.Errorf("sema: %q failed to resolve", name)
	}
	d.State = DeclOk
	return d, nil
}

// runPasses lowers d's body (C5) and analyzes the result (C6), leaving Gen
// and Analyzed populated on success.
func (p *Program) runPasses(d *Declaration) bool {
	quota := p.ctx.Cfg.EvalBranchQuota
	g := NewGen(p.ctx, d.Name, quota, nil)

	var exec *Executable
	if d.IsAsync {
		exec = g.LowerAsyncFunction(d.Body, d.ParamNames, d.ParamTypes, d.PromiseType)
	} else {
		exec = g.LowerFunction(d.Body, d.ParamNames, d.ParamTypes)
	}
	d.Gen = exec
	if len(exec.Blocks) == 0 || exec.Blocks[0] == nil {
		emitDecl(p.ctx, d, fmt.Sprintf("%q lowered to no reachable code", d.Name))
		return false
	}

	a := NewAnalyzer(p.ctx, exec)
	d.Analyzed = a.Analyze(0)
	return !d.Analyzed.Invalid
}

// ResolveAll resolves every declared name. Callers that need a
// deterministic traversal order (e.g. reachability from one entry
// declaration) should call Resolve themselves in that order instead.
func (p *Program) ResolveAll() []error {
	var errs []error
	for name := range p.decls {
		if _, err := p.Resolve(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
