// Package symtable holds the in-process, authoritative symbol and
// relationship graph the resolver and query engine read against within
// one process lifetime: spec.md §4.F's SymbolLookup and §4.K's impact
// BFS both need a live, in-memory view keyed by name/module-path/id, the
// same role the teacher's buildSymbolIndex/SymbolIndex map played for
// processFilesReferences, generalized here into a standing structure
// rather than a rebuild-per-batch map.
package symtable

import (
	"sort"
	"sync"

	"github.com/codanna/codanna/internal/graph"
	"github.com/codanna/codanna/internal/ids"
	"github.com/codanna/codanna/internal/symbol"
)

// Table is a concurrency-safe symbol+relationship store satisfying
// graph.SymbolLookup and graph.EdgeProvider. It starts empty in each
// process (workspace.Open does not reload it from the document index or
// symbol cache) and is kept current by the pipeline's per-batch
// inserts/tombstones/resolver output during a running process.
type Table struct {
	mu sync.RWMutex

	byID         map[ids.SymbolID]*symbol.Symbol
	byName       map[string][]ids.SymbolID
	byModulePath map[string][]ids.SymbolID

	outgoing map[ids.SymbolID][]graph.Relationship
	incoming map[ids.SymbolID][]graph.Relationship
}

// New returns an empty table.
func New() *Table {
	return &Table{
		byID:         make(map[ids.SymbolID]*symbol.Symbol),
		byName:       make(map[string][]ids.SymbolID),
		byModulePath: make(map[string][]ids.SymbolID),
		outgoing:     make(map[ids.SymbolID][]graph.Relationship),
		incoming:     make(map[ids.SymbolID][]graph.Relationship),
	}
}

// Upsert inserts or replaces a symbol.
func (t *Table) Upsert(s *symbol.Symbol) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeLocked(s.ID)
	t.byID[s.ID] = s
	t.byName[s.Name] = append(t.byName[s.Name], s.ID)
	if s.ModulePath != "" {
		t.byModulePath[s.ModulePath] = append(t.byModulePath[s.ModulePath], s.ID)
	}
}

// Remove deletes a symbol and every relationship edge touching it,
// realizing spec.md §8's Eviction property for the in-memory graph.
func (t *Table) Remove(id ids.SymbolID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeLocked(id)
}

func (t *Table) removeLocked(id ids.SymbolID) {
	sym, ok := t.byID[id]
	if !ok {
		return
	}
	delete(t.byID, id)
	t.byName[sym.Name] = removeID(t.byName[sym.Name], id)
	if sym.ModulePath != "" {
		t.byModulePath[sym.ModulePath] = removeID(t.byModulePath[sym.ModulePath], id)
	}
	delete(t.outgoing, id)
	delete(t.incoming, id)
}

func removeID(list []ids.SymbolID, id ids.SymbolID) []ids.SymbolID {
	out := list[:0]
	for _, x := range list {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

// RemoveByFile deletes every symbol belonging to fileID, used by the
// pipeline's tombstone step.
func (t *Table) RemoveByFile(fileID ids.FileID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var victims []ids.SymbolID
	for id, s := range t.byID {
		if s.FileID == fileID {
			victims = append(victims, id)
		}
	}
	for _, id := range victims {
		t.removeLocked(id)
	}
}

// PutRelationships replaces the outgoing edges (and their incoming
// mirrors) of every source symbol that appears in rels with the edges in
// rels, called once per resolver.Resolve result.
func (t *Table) PutRelationships(rels []graph.Relationship) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sources := make(map[ids.SymbolID]bool)
	for _, rel := range rels {
		sources[rel.From] = true
	}
	for from := range sources {
		for _, old := range t.outgoing[from] {
			if old.IsResolved() {
				kept := t.incoming[old.To][:0]
				for _, in := range t.incoming[old.To] {
					if in.From != from {
						kept = append(kept, in)
					}
				}
				t.incoming[old.To] = kept
			}
		}
		delete(t.outgoing, from)
	}
	for _, rel := range rels {
		t.outgoing[rel.From] = append(t.outgoing[rel.From], rel)
		if rel.IsResolved() {
			t.incoming[rel.To] = append(t.incoming[rel.To], rel)
		}
	}
}

// --- graph.SymbolLookup ---

func (t *Table) toRef(s *symbol.Symbol) graph.SymbolRef {
	return graph.SymbolRef{
		ID: s.ID, Name: s.Name, ModulePath: s.ModulePath, Language: s.Language,
		Visibility: s.Visibility, FileID: s.FileID, Scope: s.Scope, Kind: s.Kind,
	}
}

func (t *Table) ByName(name string) []graph.SymbolRef {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []graph.SymbolRef
	for _, id := range t.byName[name] {
		if s, ok := t.byID[id]; ok {
			out = append(out, t.toRef(s))
		}
	}
	return out
}

func (t *Table) ByModulePath(path string) []graph.SymbolRef {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []graph.SymbolRef
	for _, id := range t.byModulePath[path] {
		if s, ok := t.byID[id]; ok {
			out = append(out, t.toRef(s))
		}
	}
	return out
}

func (t *Table) Get(id ids.SymbolID) (graph.SymbolRef, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.byID[id]
	if !ok {
		return graph.SymbolRef{}, false
	}
	return t.toRef(s), true
}

// GetSymbol returns the full symbol.Symbol (richer than SymbolRef),
// used by the query engine to report signatures/doc strings.
func (t *Table) GetSymbol(id ids.SymbolID) (*symbol.Symbol, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.byID[id]
	return s, ok
}

// --- graph.EdgeProvider ---

func (t *Table) OutgoingImpactEdges(id ids.SymbolID) []graph.Relationship {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]graph.Relationship(nil), t.outgoing[id]...)
}

// Callers returns every resolved Calls edge targeting id.
func (t *Table) Callers(id ids.SymbolID) []graph.Relationship {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []graph.Relationship
	for _, rel := range t.incoming[id] {
		if rel.Kind == graph.KindCalls {
			out = append(out, rel)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].From < out[j].From })
	return out
}

// Callees returns every Calls edge (resolved or external) originating
// from id.
func (t *Table) Callees(id ids.SymbolID) []graph.Relationship {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []graph.Relationship
	for _, rel := range t.outgoing[id] {
		if rel.Kind == graph.KindCalls {
			out = append(out, rel)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].To < out[j].To })
	return out
}

// ResolveMeta adapts the table into the (language, modulePath, ok)
// callback graph.AnalyzeImpact expects.
func (t *Table) ResolveMeta(id ids.SymbolID) (ids.LanguageID, string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.byID[id]
	if !ok {
		return "", "", false
	}
	return s.Language, s.ModulePath, true
}

// AllIDs returns every live SymbolId, ascending, the id universe
// semantic search's language filter is built from.
func (t *Table) AllIDs() []ids.SymbolID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]ids.SymbolID, 0, len(t.byID))
	for id := range t.byID {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Count returns how many live symbols the table holds, used by
// get_index_info.
func (t *Table) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byID)
}

// CountByLanguageAndKind reports per-(language,kind) counts for
// get_index_info's breakdown.
func (t *Table) CountByLanguageAndKind() map[ids.LanguageID]map[symbol.Kind]int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[ids.LanguageID]map[symbol.Kind]int)
	for _, s := range t.byID {
		if out[s.Language] == nil {
			out[s.Language] = make(map[symbol.Kind]int)
		}
		out[s.Language][s.Kind]++
	}
	return out
}
