package sema

import "sync"

// ErrorTable is the process-global, monotonically-growing table of
// symbolic errors (§3.6). It is the one piece of shared mutable state every
// Context carries, documented here as append-only: entries are never
// removed or renumbered once handed out.
type ErrorTable struct {
	mu      sync.Mutex
	byName  map[string]*ErrorSym
	entries []*ErrorSym
}

func NewErrorTable() *ErrorTable {
	return &ErrorTable{byName: map[string]*ErrorSym{}}
}

// Intern returns the ErrorSym for name, creating it on first use.
func (t *ErrorTable) Intern(name string) *ErrorSym {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.byName[name]; ok {
		return s
	}
	s := &ErrorSym{ID: len(t.entries), Name: name}
	t.entries = append(t.entries, s)
	t.byName[name] = s
	return s
}

// isGlobalSet reports whether an ErrorSet type denotes the global error set.
func isGlobalSet(t *Type) bool {
	return t != nil && t.Kind == ErrorSet && t.Global
}

// UnionErrorSets computes the deduplicated-by-id union of two error-set
// types, short-circuiting to the global set if either side is global
// (§4.3 "Error-set handling").
func UnionErrorSets(ctx *Context, a, b *Type) *Type {
	if isGlobalSet(a) || isGlobalSet(b) {
		return ctx.Types.Intern(errorSetKey{global: true})
	}
	seen := map[int]bool{}
	var out []ErrorSym
	for _, e := range a.Errors {
		if !seen[e.ID] {
			seen[e.ID] = true
			out = append(out, e)
		}
	}
	for _, e := range b.Errors {
		if !seen[e.ID] {
			seen[e.ID] = true
			out = append(out, e)
		}
	}
	return ctx.Types.Intern(errorSetKey{errs: out})
}

// IntersectErrorSets returns the intersection (by id) of two error sets,
// possibly empty, used by the error-set `==`/`!=` rule (§4.6.1) to detect
// sets that share no member.
func IntersectErrorSets(a, b *Type) []ErrorSym {
	if isGlobalSet(a) {
		return b.Errors
	}
	if isGlobalSet(b) {
		return a.Errors
	}
	bSet := map[int]bool{}
	for _, e := range b.Errors {
		bSet[e.ID] = true
	}
	var out []ErrorSym
	for _, e := range a.Errors {
		if bSet[e.ID] {
			out = append(out, e)
		}
	}
	return out
}

// errorSetKey is a TypeKey shape this core hands to Context.Types.Intern for
// error-set construction; the concrete interner decides canonicalization.
type errorSetKey struct {
	global bool
	errs   []ErrorSym
}
