// Package query implements spec.md §4.K: the tool surface's eight core
// operations plus the additive RawSearch SPEC_FULL.md supplements,
// every response wrapped in the transport-agnostic envelope §6 defines
// and carrying a non-empty guidance string per §8's Guidance-presence
// property. Grounded on the teacher's search/engine.go Engine/Searcher
// dispatch shape (one entry point, mode-selected behavior) generalized
// from "one search mode" to "eight named operations."
package query

import (
	"context"
	"fmt"

	"github.com/codanna/codanna/internal/embed"
	"github.com/codanna/codanna/internal/graph"
	"github.com/codanna/codanna/internal/ids"
	"github.com/codanna/codanna/internal/store/docindex"
	"github.com/codanna/codanna/internal/store/symcache"
	"github.com/codanna/codanna/internal/store/vectorstore"
	"github.com/codanna/codanna/internal/symbol"
	"github.com/codanna/codanna/internal/symtable"
)

// Status is the envelope's status field, spec.md §6.
type Status string

const (
	StatusOK       Status = "ok"
	StatusNotFound Status = "not_found"
	StatusError    Status = "error"
)

// ExitCode maps an envelope Status to the CLI exit code spec.md §6 fixes:
// 0 ok, 1 error, 3 not_found.
func (s Status) ExitCode() int {
	switch s {
	case StatusOK:
		return 0
	case StatusNotFound:
		return 3
	default:
		return 1
	}
}

// Envelope is every tool response's shape, spec.md §6: "Every response
// has the shape { status, data?, error?, guidance: string }."
type Envelope struct {
	Status   Status `json:"status"`
	Data     any    `json:"data,omitempty"`
	Error    string `json:"error,omitempty"`
	Guidance string `json:"guidance"`
}

// DefaultGuidanceThreshold is the "> threshold" result count spec.md §4.K's
// guidance rules use, default 20, overridable via settings.
const DefaultGuidanceThreshold = 20

// Engine answers every §4.K operation against one workspace's live
// stores. It holds no writer-side state; the pipeline owns all mutation.
type Engine struct {
	Docs      *docindex.Index
	Cache     *symcache.Cache
	Vectors   *vectorstore.Segment
	Table     *symtable.Table
	Embedder  embed.Embedder
	Threshold int
}

func (e *Engine) threshold() int {
	if e.Threshold > 0 {
		return e.Threshold
	}
	return DefaultGuidanceThreshold
}

func guidanceForCount(n, threshold int, zeroHint, oneHint, manyHint string) string {
	switch {
	case n == 0:
		return zeroHint
	case n == 1:
		return oneHint
	case n > threshold:
		return manyHint
	default:
		return "multiple results returned; refine with field filters if needed"
	}
}

// IndexInfo is get_index_info's data payload.
type IndexInfo struct {
	SymbolCount    int
	ByLanguage     map[ids.LanguageID]map[symbol.Kind]int
	ModelID        string
	Dimension      int
	VectorCount    int
	ClusterCount   int
}

// GetIndexInfo implements spec.md §4.K's get_index_info.
func (e *Engine) GetIndexInfo(ctx context.Context) Envelope {
	info := IndexInfo{
		SymbolCount: e.Table.Count(),
		ByLanguage:  e.Table.CountByLanguageAndKind(),
	}
	if e.Vectors != nil {
		info.ModelID = e.Vectors.ModelID()
		info.Dimension = e.Vectors.Dimension()
		info.VectorCount = e.Vectors.Count()
		info.ClusterCount = e.Vectors.ClusterCount()
	}
	return Envelope{Status: StatusOK, Data: info, Guidance: "index summary returned; use find_symbol or search_symbols to explore specific symbols"}
}

// FindSymbol implements find_symbol(name): fast path hits the symbol
// cache, falling back to the document index on a cache miss, per
// spec.md §4.K and §4.H.
func (e *Engine) FindSymbol(ctx context.Context, name string) Envelope {
	var matches []symbol.Symbol

	if e.Cache != nil {
		for _, entry := range e.Cache.FindByName(name) {
			if sym, ok := e.Table.GetSymbol(entry.ID); ok {
				matches = append(matches, *sym)
			}
		}
	}
	if len(matches) == 0 && e.Docs != nil {
		hits, err := e.Docs.FindExact(name)
		if err != nil {
			return Envelope{Status: StatusError, Error: err.Error(), Guidance: "document index lookup failed; retry or check index health with get_index_info"}
		}
		for _, h := range hits {
			if sym, ok := e.Table.GetSymbol(h.SymbolID); ok {
				matches = append(matches, *sym)
			}
		}
	}

	n := len(matches)
	guidance := guidanceForCount(n, e.threshold(),
		fmt.Sprintf("no symbol named %q found; check spelling or try search_symbols for a fuzzy match", name),
		"exactly one match; use get_calls or analyze_impact to explore its relationships",
		"many matches; narrow with a language or module filter via search_symbols")
	if n == 0 {
		return Envelope{Status: StatusNotFound, Guidance: guidance}
	}
	return Envelope{Status: StatusOK, Data: matches, Guidance: guidance}
}

// SearchOptions configures search_symbols.
type SearchOptions struct {
	Limit    int
	Kind     string
	Language string
	Module   string
}

// SearchSymbols implements search_symbols(query, limit?, kind?, language?, module?).
func (e *Engine) SearchSymbols(ctx context.Context, query string, opts SearchOptions) Envelope {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	var hits []docindex.Hit
	var err error
	if opts.Kind != "" || opts.Language != "" || opts.Module != "" {
		var filters []docindex.FieldFilter
		if opts.Kind != "" {
			filters = append(filters, docindex.FieldFilter{Field: "kind", Value: opts.Kind})
		}
		if opts.Language != "" {
			filters = append(filters, docindex.FieldFilter{Field: "language", Value: opts.Language})
		}
		if opts.Module != "" {
			filters = append(filters, docindex.FieldFilter{Field: "module_path", Value: opts.Module})
		}
		hits, err = e.Docs.FindFiltered(filters, limit)
	} else {
		hits, err = e.Docs.FindFuzzy(query, limit)
	}
	if err != nil {
		return Envelope{Status: StatusError, Error: err.Error(), Guidance: "search failed; check field filter names and retry"}
	}

	symbols := e.resolveHits(hits)
	n := len(symbols)
	guidance := guidanceForCount(n, e.threshold(),
		"no matches; try a shorter query or drop a filter",
		"one match; use find_symbol for the exact record or get_calls to see its relationships",
		"many matches; add a kind/language/module filter or raise specificity of the query")
	status := StatusOK
	if n == 0 {
		status = StatusNotFound
	}
	return Envelope{Status: status, Data: symbols, Guidance: guidance}
}

func (e *Engine) resolveHits(hits []docindex.Hit) []symbol.Symbol {
	out := make([]symbol.Symbol, 0, len(hits))
	for _, h := range hits {
		if sym, ok := e.Table.GetSymbol(h.SymbolID); ok {
			out = append(out, *sym)
		}
	}
	return out
}

// SemanticOptions configures semantic_search_docs / _with_context.
type SemanticOptions struct {
	Limit     int
	Threshold float32
	Language  string
}

// SemanticSearchDocs implements semantic_search_docs(query, limit?,
// threshold?, language?): the language filter is applied BEFORE the
// similarity scan (spec.md §4.K), by passing the allowed id set into the
// scan rather than filtering scored results after the fact; the slot map
// is always built from every stored id — this is what the §8 Language
// filter neutrality property
// requires (a symbol's own similarity score never changes because of an
// unrelated filter).
func (e *Engine) SemanticSearchDocs(ctx context.Context, queryText string, opts SemanticOptions) Envelope {
	if e.Embedder == nil || e.Vectors == nil {
		return Envelope{Status: StatusError, Error: "semantic search unavailable: no embedder or vector store configured", Guidance: "configure semantic.model in settings.toml and re-index to enable semantic search"}
	}
	vec, err := embed.EmbedOne(ctx, e.Embedder, queryText)
	if err != nil {
		return Envelope{Status: StatusError, Error: err.Error(), Guidance: "embedding the query failed; retry"}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	nprobe := vectorstore.Nprobe(e.Vectors.ClusterCount())

	storedIDs := e.Vectors.StoredIDs()
	slotOf := e.Vectors.SlotMap(storedIDs)

	var allowed map[ids.SymbolID]bool
	if opts.Language != "" {
		candidateIDs := e.languageFilteredIDs(opts.Language)
		allowed = make(map[ids.SymbolID]bool, len(candidateIDs))
		for _, id := range candidateIDs {
			allowed[id] = true
		}
	}

	hits := e.Vectors.Search(vec, limit, nprobe, slotOf, allowed)

	var results []SemanticHit
	for _, h := range hits {
		if opts.Threshold > 0 && h.Similarity < opts.Threshold {
			continue
		}
		if sym, ok := e.Table.GetSymbol(h.ID); ok {
			results = append(results, SemanticHit{Symbol: *sym, Similarity: h.Similarity})
		}
	}

	n := len(results)
	guidance := guidanceForCount(n, e.threshold(),
		"no semantically similar symbols found; try a broader query or verify the target symbol has a doc comment",
		"one match above threshold; use semantic_search_with_context for its immediate callers/callees",
		"many matches; raise the threshold or add a language filter")
	status := StatusOK
	if n == 0 {
		status = StatusNotFound
	}
	return Envelope{Status: status, Data: results, Guidance: guidance}
}

// languageFilteredIDs returns every live SymbolId, ascending, optionally
// restricted to one language, for use as semantic search's allowed id set.
func (e *Engine) languageFilteredIDs(language string) []ids.SymbolID {
	all := e.Table.AllIDs()
	if language == "" {
		return all
	}
	out := make([]ids.SymbolID, 0, len(all))
	for _, id := range all {
		if sym, ok := e.Table.GetSymbol(id); ok && string(sym.Language) == language {
			out = append(out, id)
		}
	}
	return out
}

// SemanticHit is one semantic_search_docs result.
type SemanticHit struct {
	Symbol     symbol.Symbol
	Similarity float32
}

// ContextHit adds one-hop callers/callees to a semantic hit, per
// semantic_search_with_context.
type ContextHit struct {
	Symbol     symbol.Symbol
	Similarity float32
	Callers    []symbol.Symbol
	Callees    []symbol.Symbol
}

// SemanticSearchWithContext implements semantic_search_with_context:
// semantic_search_docs plus, per hit, callers and callees up to one hop.
func (e *Engine) SemanticSearchWithContext(ctx context.Context, queryText string, opts SemanticOptions) Envelope {
	base := e.SemanticSearchDocs(ctx, queryText, opts)
	if base.Status != StatusOK {
		return base
	}
	hits, _ := base.Data.([]SemanticHit)

	out := make([]ContextHit, 0, len(hits))
	for _, h := range hits {
		ch := ContextHit{Symbol: h.Symbol, Similarity: h.Similarity}
		for _, rel := range e.Table.Callers(h.Symbol.ID) {
			if sym, ok := e.Table.GetSymbol(rel.From); ok {
				ch.Callers = append(ch.Callers, *sym)
			}
		}
		for _, rel := range e.Table.Callees(h.Symbol.ID) {
			if rel.IsResolved() {
				if sym, ok := e.Table.GetSymbol(rel.To); ok {
					ch.Callees = append(ch.Callees, *sym)
				}
			}
		}
		out = append(out, ch)
	}
	base.Data = out
	return base
}

// GetCalls implements get_calls(function_name | symbol_id).
func (e *Engine) GetCalls(ctx context.Context, id ids.SymbolID) Envelope {
	rels := e.Table.Callees(id)
	n := len(rels)
	guidance := guidanceForCount(n, e.threshold(),
		"no outgoing calls recorded; the symbol may be a leaf or declaration-only",
		"one outgoing call; use find_symbol on its target for full detail",
		"many outgoing calls; use analyze_impact to see the full downstream closure")
	status := StatusOK
	if n == 0 {
		status = StatusNotFound
	}
	return Envelope{Status: status, Data: rels, Guidance: guidance}
}

// FindCallers implements find_callers(function_name | symbol_id).
func (e *Engine) FindCallers(ctx context.Context, id ids.SymbolID) Envelope {
	rels := e.Table.Callers(id)
	n := len(rels)
	guidance := guidanceForCount(n, e.threshold(),
		"no callers found; this may be an entry point (main, test, or exported API)",
		"one caller; use find_symbol on it to see its own callers",
		"many callers; use analyze_impact to bound the blast radius of a change")
	status := StatusOK
	if n == 0 {
		status = StatusNotFound
	}
	return Envelope{Status: status, Data: rels, Guidance: guidance}
}

// AnalyzeImpact implements analyze_impact(symbol_name | symbol_id, max_depth).
func (e *Engine) AnalyzeImpact(ctx context.Context, root ids.SymbolID, maxDepth int) Envelope {
	hits, truncated := graph.AnalyzeImpact(root, maxDepth, e.Table, e.Table.ResolveMeta, func() bool {
		select {
		case <-ctx.Done():
			return true
		default:
			return false
		}
	})
	n := len(hits)
	guidance := guidanceForCount(n, e.threshold(),
		"no dependents found within max_depth; the symbol may be unused or depth is too shallow",
		"one dependent; inspect it directly with find_symbol",
		"many dependents; consider this a high-blast-radius change and review callers individually")
	if truncated {
		guidance = "query deadline reached before the full closure could be computed; results are a partial prefix by (depth, language, module_path, id) — " + guidance
	}
	status := StatusOK
	if n == 0 {
		status = StatusNotFound
	}
	return Envelope{Status: status, Data: hits, Guidance: guidance}
}

// RawSearch is SPEC_FULL.md's supplemented operation, adapting the
// teacher's RegexSearcher as an additive sibling to the eight core
// operations: a tokenized text match over indexed doc comments, for
// callers who want plain text matching without leaving the tool surface.
// Signatures are not searched, and the pattern is not treated as a
// regular expression.
func (e *Engine) RawSearch(ctx context.Context, pattern string, limit int) Envelope {
	hits, err := e.Docs.FindByDocText(pattern, limit)
	if err != nil {
		return Envelope{Status: StatusError, Error: err.Error(), Guidance: "raw search failed; verify the pattern is valid"}
	}
	symbols := e.resolveHits(hits)
	n := len(symbols)
	guidance := guidanceForCount(n, e.threshold(),
		"no raw text matches; try search_symbols or semantic_search_docs instead",
		"one match; use find_symbol for full detail",
		"many matches; narrow the pattern or switch to search_symbols with filters")
	status := StatusOK
	if n == 0 {
		status = StatusNotFound
	}
	return Envelope{Status: status, Data: symbols, Guidance: guidance}
}
