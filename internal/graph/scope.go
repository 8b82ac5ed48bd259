package graph

import (
	"sort"

	"github.com/codanna/codanna/internal/ids"
	"github.com/codanna/codanna/internal/symbol"
)

// SymbolRef is the read-only view of a stored symbol the resolver needs.
// It is deliberately a flat struct rather than *symbol.Symbol so a
// resolver never mutates storage state directly.
type SymbolRef struct {
	ID         ids.SymbolID
	Name       string
	ModulePath string
	Language   ids.LanguageID
	Visibility symbol.Visibility
	FileID     ids.FileID
	Scope      symbol.Scope
	Kind       symbol.Kind
}

// SymbolLookup is the read surface the resolver and each language's
// behavior use to find candidate symbols. The workspace's committed
// snapshot (document index + symbol cache) implements it.
type SymbolLookup interface {
	ByName(name string) []SymbolRef
	ByModulePath(path string) []SymbolRef
	Get(id ids.SymbolID) (SymbolRef, bool)
}

// ScopeLayer is one level of a resolution scope stack: a named set of
// bindings visible at that level (module scope, import scope, type-member
// scope, function-local scope, parameter scope).
type ScopeLayer struct {
	Name     string
	Bindings map[string]ids.SymbolID
}

// ScopeStack is the ordered stack §3/§4.F describes: module → imports →
// type members → function locals → parameters, innermost last. Lookup
// walks from the innermost layer outward, matching normal lexical shadowing.
type ScopeStack struct {
	Layers []ScopeLayer
}

// NewScopeStack returns an empty stack ready to have layers pushed.
func NewScopeStack() *ScopeStack {
	return &ScopeStack{}
}

// Push adds a new innermost layer.
func (s *ScopeStack) Push(name string) *ScopeLayer {
	s.Layers = append(s.Layers, ScopeLayer{Name: name, Bindings: map[string]ids.SymbolID{}})
	return &s.Layers[len(s.Layers)-1]
}

// Bind records a name in the current innermost layer.
func (s *ScopeStack) Bind(name string, id ids.SymbolID) {
	if len(s.Layers) == 0 {
		s.Push("default")
	}
	s.Layers[len(s.Layers)-1].Bindings[name] = id
}

// Lookup searches from innermost to outermost layer and returns the
// first binding found.
func (s *ScopeStack) Lookup(name string) (ids.SymbolID, bool) {
	for i := len(s.Layers) - 1; i >= 0; i-- {
		if id, ok := s.Layers[i].Bindings[name]; ok {
			return id, true
		}
	}
	return ids.NoSymbol, false
}

// BehaviorProvider is the subset of a language behavior the resolver
// depends on. lang.Behavior satisfies it structurally; graph never
// imports lang, avoiding an import cycle between the two packages.
type BehaviorProvider interface {
	BuildResolutionScope(fileID ids.FileID, imports []Import, lookup SymbolLookup) (*ScopeStack, error)
	ResolveImport(imp Import, lookup SymbolLookup) (ids.SymbolID, ImportResolution)
}

// ImportResolution classifies why an import did or did not resolve.
type ImportResolution uint8

const (
	ImportResolved ImportResolution = iota
	ImportExternal
	ImportNotYetIndexed
	ImportAmbiguous
)

// rankCandidates applies the tie-break rule §4.F specifies for
// implements/extends and (as a fallback) calls: prefer same-module, then
// public, then deterministic path ordering, then smaller SymbolID.
func rankCandidates(candidates []SymbolRef, fromModule string) []SymbolRef {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		aSame, bSame := a.ModulePath == fromModule, b.ModulePath == fromModule
		if aSame != bSame {
			return aSame
		}
		aPub, bPub := a.Visibility == symbol.VisibilityPublic, b.Visibility == symbol.VisibilityPublic
		if aPub != bPub {
			return aPub
		}
		if a.ModulePath != b.ModulePath {
			return a.ModulePath < b.ModulePath
		}
		return a.ID < b.ID
	})
	return candidates
}
