// Package lang is the language registry (spec.md §4.C): a process-wide,
// lazily initialized catalog of language definitions keyed by file
// extension, each able to construct a parser and a behavior. It is the
// only process-wide global state in codanna (spec.md §9).
package lang

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/codanna/codanna/internal/graph"
	"github.com/codanna/codanna/internal/ids"
	"github.com/codanna/codanna/internal/symbol"
)

// ParseGap is a non-fatal note a parser emits when it hits an AST
// construct it cannot yet handle (spec.md §4.D failure model). Gaps are
// counted, never fatal, and never block the rest of the symbol list.
type ParseGap struct {
	Range   ids.Range
	NodeType string
	Note    string
}

// ParseResult is everything one call to Parser.Parse produces for a
// single file: symbols, the three kinds of unresolved edges the resolver
// will close later, and any gaps hit along the way.
type ParseResult struct {
	Symbols    []*symbol.Symbol
	Calls      []graph.PendingEdge
	Implements []graph.PendingEdge
	Imports    []graph.Import
	Gaps       []ParseGap
}

// Parser is what each language plugs into the registry. Implementations
// MUST NOT look at any file other than the one they receive — cross-file
// work belongs to the resolver (spec.md §4.D rule 1).
type Parser interface {
	Parse(source []byte, fileID ids.FileID, gen *ids.IDGenerator) (ParseResult, error)
}

// Behavior answers the per-language questions spec.md §4.E lists:
// module path, visibility, resolvability, and the resolution machinery.
// It structurally satisfies graph.BehaviorProvider so the resolver can
// use it without lang importing graph's resolver internals.
type Behavior interface {
	ModulePathFor(fileID ids.FileID, s *symbol.Symbol) string
	VisibilityOf(s *symbol.Symbol, rawModifiers []string) symbol.Visibility
	IsResolvable(s *symbol.Symbol) bool
	BuildResolutionScope(fileID ids.FileID, imports []graph.Import, lookup graph.SymbolLookup) (*graph.ScopeStack, error)
	ResolveImport(imp graph.Import, lookup graph.SymbolLookup) (ids.SymbolID, graph.ImportResolution)
}

// Settings configures parser construction (e.g. per-language config file
// paths); it is intentionally a thin map since most settings are
// consumed by Behavior.BuildResolutionScope, not by parsing itself.
type Settings struct {
	// ConfigFiles lists language-specific config paths to consult (e.g.
	// TypeScript tsconfig.json paths, read by the TypeScript behavior).
	ConfigFiles []string
	// IncludeDirs lists C/C++ include search directories.
	IncludeDirs []string
}

// Definition is one entry in the registry: everything needed to answer
// "which language handles this file, and how".
type Definition struct {
	ID         ids.LanguageID
	Name       string
	Extensions []string

	NewParser   func(settings Settings) (Parser, error)
	NewBehavior func() (Behavior, error)

	EnabledByDefault bool
}

// Registry is the process-wide catalog. Registration order is
// irrelevant; a language is chosen for a file by extension only. There
// is no explicit per-file or configured override.
type Registry struct {
	mu          sync.RWMutex
	definitions map[ids.LanguageID]*Definition
	byExt       map[string]ids.LanguageID
}

var (
	globalOnce     sync.Once
	globalRegistry *Registry
)

// Global returns the process-wide registry, initializing it exactly
// once on first use.
func Global() *Registry {
	globalOnce.Do(func() {
		globalRegistry = newRegistry()
		registerBuiltins(globalRegistry)
	})
	return globalRegistry
}

func newRegistry() *Registry {
	return &Registry{
		definitions: make(map[ids.LanguageID]*Definition),
		byExt:       make(map[string]ids.LanguageID),
	}
}

// Register adds a language definition to the registry. It is safe to
// call concurrently; a later registration for the same id replaces the
// earlier one.
func (r *Registry) Register(def *Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.definitions[def.ID] = def
	for _, ext := range def.Extensions {
		r.byExt[strings.ToLower(ext)] = def.ID
	}
}

// LanguageForPath reports which language, if any, will handle path,
// chosen by extension. ok is false for unknown extensions, which callers
// must treat as "skip with a structured warning" per spec.md §4.C.
func (r *Registry) LanguageForPath(path string) (ids.LanguageID, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byExt[ext]
	return id, ok
}

// Get returns the definition for id.
func (r *Registry) Get(id ids.LanguageID) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.definitions[id]
	return def, ok
}

// NewParserFor constructs a parser for id using the registered factory.
func (r *Registry) NewParserFor(id ids.LanguageID, settings Settings) (Parser, error) {
	def, ok := r.Get(id)
	if !ok {
		return nil, &UnknownLanguageError{ID: id}
	}
	return def.NewParser(settings)
}

// NewBehaviorFor constructs a behavior for id using the registered factory.
func (r *Registry) NewBehaviorFor(id ids.LanguageID) (Behavior, error) {
	def, ok := r.Get(id)
	if !ok {
		return nil, &UnknownLanguageError{ID: id}
	}
	return def.NewBehavior()
}

// UnknownLanguageError is returned when a caller asks the registry for a
// language id it never registered.
type UnknownLanguageError struct {
	ID ids.LanguageID
}

func (e *UnknownLanguageError) Error() string {
	return "lang: unknown language " + string(e.ID)
}
