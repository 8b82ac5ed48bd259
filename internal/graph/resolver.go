package graph

import "github.com/codanna/codanna/internal/ids"

// BatchInput is everything the resolver needs for one file's worth of
// newly parsed, still-unresolved edges (spec §4.F "inputs per batch").
type BatchInput struct {
	FileID      ids.FileID
	ModulePath  string // the file's own module path, for same-module tie-breaking
	Imports     []Import
	Implements  []PendingEdge // Kind == KindImplements or KindExtends
	Calls       []PendingEdge // Kind == KindCalls
}

// Resolver runs the three-phase algorithm spec.md §4.F describes:
// imports first, then implements/extends, then calls. Re-running it on
// unchanged inputs is a no-op because resolution depends only on the
// file's AST and the imports view at batch commit, never on wall-clock
// state.
type Resolver struct {
	behavior BehaviorProvider
	lookup   SymbolLookup
}

// NewResolver builds a resolver bound to one language's behavior and one
// read snapshot. A fresh Resolver is constructed per batch by the
// pipeline, mirroring the teacher's per-batch Builder lifecycle.
func NewResolver(behavior BehaviorProvider, lookup SymbolLookup) *Resolver {
	return &Resolver{behavior: behavior, lookup: lookup}
}

// Resolve runs all three phases and returns the closed relationship set
// for this batch. Every edge is either resolved to a live SymbolID or
// explicitly marked External with the original text preserved — no edge
// is ever silently dropped.
func (r *Resolver) Resolve(in BatchInput) ([]Relationship, error) {
	scope, err := r.behavior.BuildResolutionScope(in.FileID, in.Imports, r.lookup)
	if err != nil {
		return nil, err
	}

	var out []Relationship

	// Phase 1: imports. Seed the local scope with imported names so later
	// phases can resolve calls/implements that reference them.
	for _, imp := range in.Imports {
		target, status := r.behavior.ResolveImport(imp, r.lookup)
		rel := Relationship{
			Kind:       KindImports,
			Unresolved: imp.Path,
			Range:      imp.Range,
		}
		if status == ImportResolved && target.Valid() {
			rel.To = target
			if imp.Alias != "" {
				scope.Bind(imp.Alias, target)
			} else {
				scope.Bind(imp.Path, target)
			}
		} else {
			rel.External = true
			if status == ImportAmbiguous {
				rel.Ambiguous = true
			}
		}
		out = append(out, rel)
	}

	// Phase 2: implements/extends. Tie-break ambiguous names by
	// same-module, then public, then deterministic path ordering.
	for _, edge := range in.Implements {
		out = append(out, r.resolveEdge(edge, in.ModulePath, scope))
	}

	// Phase 3: calls. Use receiver context to restrict lookup to the
	// receiver type's ClassMember scope when available.
	for _, edge := range in.Calls {
		out = append(out, r.resolveCall(edge, in.ModulePath, scope))
	}

	return out, nil
}

func (r *Resolver) resolveEdge(edge PendingEdge, fromModule string, scope *ScopeStack) Relationship {
	rel := Relationship{
		From:       edge.From,
		Kind:       edge.Kind,
		Unresolved: edge.Name,
		Range:      edge.Range,
	}

	if id, ok := scope.Lookup(edge.Name); ok {
		rel.To = id
		return rel
	}

	candidates := rankCandidates(r.lookup.ByName(edge.Name), fromModule)
	if len(candidates) == 0 {
		rel.External = true
		return rel
	}
	if len(candidates) > 1 {
		rel.Ambiguous = true
	}
	rel.To = candidates[0].ID
	return rel
}

func (r *Resolver) resolveCall(edge PendingEdge, fromModule string, scope *ScopeStack) Relationship {
	rel := Relationship{
		From:       edge.From,
		Kind:       KindCalls,
		Unresolved: edge.Name,
		Range:      edge.Range,
	}

	if edge.ReceiverHint != "" {
		if receiverID, ok := scope.Lookup(edge.ReceiverHint); ok {
			if receiver, found := r.lookup.Get(receiverID); found {
				candidates := methodsOf(r.lookup, receiver.ID, edge.Name)
				candidates = rankCandidates(candidates, fromModule)
				if len(candidates) > 0 {
					if len(candidates) > 1 {
						rel.Ambiguous = true
					}
					rel.To = candidates[0].ID
					return rel
				}
			}
		}
	}

	if id, ok := scope.Lookup(edge.Name); ok {
		rel.To = id
		return rel
	}

	candidates := rankCandidates(r.lookup.ByName(edge.Name), fromModule)
	if len(candidates) == 0 {
		rel.External = true
		return rel
	}
	if len(candidates) > 1 {
		rel.Ambiguous = true
	}
	rel.To = candidates[0].ID
	return rel
}

// methodsOf restricts a name search to symbols whose ClassMember owner is
// owner, implementing the "restrict to ClassMember scopes of the receiver
// type" rule.
func methodsOf(lookup SymbolLookup, owner ids.SymbolID, name string) []SymbolRef {
	var out []SymbolRef
	for _, ref := range lookup.ByName(name) {
		if ref.Scope.Owner == owner {
			out = append(out, ref)
		}
	}
	return out
}
