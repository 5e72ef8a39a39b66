package sema

import "io"

// Context bundles the external collaborators §6 describes (type interner,
// symbol/scope table hooks, builtin table, C importer, diagnostic sink,
// package graph) plus process-global-but-append-only state (the error
// table). It is passed explicitly through gen/analyze/comptime rather than
// reached for as a package-level global, per the Design Notes on globally
// allocated types/errors.
type Context struct {
	Types  TypeInterner
	Errors *ErrorTable
	Sink   DiagnosticSink
	Pkgs   PackageGraph
	Cfg    Config

	builtins map[string]BuiltinInfo
	generics *genericTable
}

// Config is the public options struct, following the teacher's
// Options/opt split: a small, documented set of knobs with sane zero-value
// defaults, versus the fully-populated internal state derived from it.
type Config struct {
	// EvalBranchQuota is the default ceiling on comptime backward branches
	// (§4.6.3) before raising it with setEvalBranchQuota. Zero means use
	// DefaultEvalBranchQuota.
	EvalBranchQuota uint64

	// RuntimeSafetyDefault is the initial value of the runtime_safety scope
	// flag at the root of every executable (§4.8, Runtime-optional checks).
	RuntimeSafetyDefault bool

	// Debug is an optional writer for IR/value dumps, the counterpart of the
	// teacher's astDot/cfgDot dump to opt.stdout. No function in this
	// package writes to it.
	Debug io.Writer
}

// DefaultEvalBranchQuota mirrors the conventional default backward-branch
// ceiling used by comptime execution before a program raises it explicitly.
const DefaultEvalBranchQuota = 1000

func NewContext(types TypeInterner, pkgs PackageGraph, sink DiagnosticSink, cfg Config) *Context {
	if cfg.EvalBranchQuota == 0 {
		cfg.EvalBranchQuota = DefaultEvalBranchQuota
	}
	return &Context{
		Types:    types,
		Errors:   NewErrorTable(),
		Sink:     sink,
		Pkgs:     pkgs,
		Cfg:      cfg,
		builtins: defaultBuiltins(),
		generics: newGenericTable(),
	}
}

// TypeInterner is the external type interner (§6): `intern(type_key) ->
// type_id`, idempotent, canonicalizing structural type keys to one pointer.
type TypeInterner interface {
	Intern(key TypeKey) *Type
	Primitive(name string) (*Type, bool)
}

// TypeKey is whatever structural description the interner accepts; this
// core treats it opaquely and only ever receives back a *Type.
type TypeKey any

// PackageGraph is resolve_import from §6.
type PackageGraph interface {
	ResolveImport(fromPkg, name string) (Namespace, bool)
}

// Namespace is an opaque handle to a resolved package/module.
type Namespace any

// BuiltinInfo is one entry of the builtin function table (§6): a name maps
// to a dispatch id plus its declared arity (or variadic).
type BuiltinInfo struct {
	ID       string
	Arity    int
	Variadic bool
}

func (c *Context) Builtin(name string) (BuiltinInfo, bool) {
	b, ok := c.builtins[name]
	return b, ok
}

func defaultBuiltins() map[string]BuiltinInfo {
	return map[string]BuiltinInfo{
		"@sizeOf":             {ID: "sizeOf", Arity: 1},
		"@alignOf":            {ID: "alignOf", Arity: 1},
		"@typeOf":             {ID: "typeOf", Arity: 1},
		"@intCast":            {ID: "intCast", Arity: 2},
		"@floatCast":          {ID: "floatCast", Arity: 2},
		"@as":                 {ID: "as", Arity: 2},
		"@inlineCall":         {ID: "inlineCall", Variadic: true},
		"@newStackCall":       {ID: "newStackCall", Variadic: true},
		"@setEvalBranchQuota": {ID: "setEvalBranchQuota", Arity: 1},
		"@divTrunc":           {ID: "divTrunc", Arity: 2},
		"@divFloor":           {ID: "divFloor", Arity: 2},
		"@divExact":           {ID: "divExact", Arity: 2},
		"@rem":                {ID: "rem", Arity: 2},
		"@mod":                {ID: "mod", Arity: 2},
		"@shlExact":           {ID: "shlExact", Arity: 2},
	}
}
