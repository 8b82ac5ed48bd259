package graph

import "github.com/codanna/codanna/internal/ids"

// EdgeProvider exposes the outgoing edges used for impact analysis. The
// workspace's relationship store implements it.
type EdgeProvider interface {
	// OutgoingImpactEdges returns every Calls/Implements/Uses edge whose
	// From is id, already resolved.
	OutgoingImpactEdges(id ids.SymbolID) []Relationship
}

// ImpactHit is one node discovered during an impact BFS, carrying enough
// to order results deterministically (by depth, then language, then
// module path, then SymbolID).
type ImpactHit struct {
	ID         ids.SymbolID
	Depth      int
	Language   ids.LanguageID
	ModulePath string
}

var impactKinds = map[Kind]bool{
	KindCalls:      true,
	KindImplements: true,
	KindUses:       true,
}

// AnalyzeImpact runs a deduplicated BFS over {Calls, Implements, Uses}
// edges starting at root, up to maxDepth hops. hits is returned sorted
// per §4.K's deterministic tiebreakers. truncated is true if deadline
// fired before the BFS frontier was exhausted; resolveMeta supplies the
// language/module path of a discovered id for ordering (the symbol
// table's ResolveMeta, in practice).
func AnalyzeImpact(root ids.SymbolID, maxDepth int, edges EdgeProvider,
	resolveMeta func(ids.SymbolID) (lang ids.LanguageID, modulePath string, ok bool),
	deadline func() bool) (hits []ImpactHit, truncated bool) {

	visited := map[ids.SymbolID]bool{root: true}
	frontier := []ids.SymbolID{root}

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		if deadline != nil && deadline() {
			truncated = true
			break
		}
		var next []ids.SymbolID
		for _, id := range frontier {
			for _, rel := range edges.OutgoingImpactEdges(id) {
				if !impactKinds[rel.Kind] || !rel.IsResolved() {
					continue
				}
				if visited[rel.To] {
					continue
				}
				visited[rel.To] = true
				var lang ids.LanguageID
				var modulePath string
				if resolveMeta != nil {
					lang, modulePath, _ = resolveMeta(rel.To)
				}
				hits = append(hits, ImpactHit{ID: rel.To, Depth: depth, Language: lang, ModulePath: modulePath})
				next = append(next, rel.To)
			}
		}
		frontier = next
	}

	sortImpactHits(hits)
	return hits, truncated
}

func sortImpactHits(hits []ImpactHit) {
	// insertion sort is fine: result sets are small (single-file impact
	// radii), and stability matters more than asymptotic speed here.
	for i := 1; i < len(hits); i++ {
		j := i
		for j > 0 && lessImpact(hits[j], hits[j-1]) {
			hits[j], hits[j-1] = hits[j-1], hits[j]
			j--
		}
	}
}

func lessImpact(a, b ImpactHit) bool {
	if a.Depth != b.Depth {
		return a.Depth < b.Depth
	}
	if a.Language != b.Language {
		return a.Language < b.Language
	}
	if a.ModulePath != b.ModulePath {
		return a.ModulePath < b.ModulePath
	}
	return a.ID < b.ID
}
