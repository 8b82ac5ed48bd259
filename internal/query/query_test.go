package query

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/codanna/codanna/internal/embed"
	"github.com/codanna/codanna/internal/graph"
	"github.com/codanna/codanna/internal/ids"
	"github.com/codanna/codanna/internal/store/docindex"
	"github.com/codanna/codanna/internal/store/symcache"
	"github.com/codanna/codanna/internal/store/vectorstore"
	"github.com/codanna/codanna/internal/symbol"
	"github.com/codanna/codanna/internal/symtable"
)

// testFixture wires a full Engine from scratch: two symbols ("Reader" in
// go, "Writer" in python), a Calls edge Reader->Writer, each with a doc
// comment so semantic search has something to embed.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	docs, err := docindex.OpenInMemory()
	if err != nil {
		t.Fatalf("docindex.OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { docs.Close() })

	table := symtable.New()
	reader := &symbol.Symbol{ID: 1, FileID: 1, Name: "Reader", Language: "go", Kind: symbol.KindFunction, DocString: "reads input from a stream"}
	writer := &symbol.Symbol{ID: 2, FileID: 2, Name: "Writer", Language: "python", Kind: symbol.KindFunction, DocString: "writes output to a stream"}
	table.Upsert(reader)
	table.Upsert(writer)
	table.PutRelationships([]graph.Relationship{{From: 1, To: 2, Kind: graph.KindCalls}})

	b := docs.NewBatch()
	if err := b.Index(reader); err != nil {
		t.Fatalf("Index(reader) error = %v", err)
	}
	if err := b.Index(writer); err != nil {
		t.Fatalf("Index(writer) error = %v", err)
	}
	if err := b.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	cachePath := filepath.Join(t.TempDir(), "symbols.cache")
	if err := symcache.Build(cachePath, []symcache.Entry{
		{ID: 1, FileID: 1, Name: "Reader"},
		{ID: 2, FileID: 2, Name: "Writer"},
	}); err != nil {
		t.Fatalf("symcache.Build() error = %v", err)
	}
	cache, err := symcache.Open(cachePath)
	if err != nil {
		t.Fatalf("symcache.Open() error = %v", err)
	}
	t.Cleanup(func() { cache.Close() })

	embedder := embed.NewDeterministic("test-model", 8)
	readerVec, _ := embed.EmbedOne(context.Background(), embedder, reader.DocString)
	writerVec, _ := embed.EmbedOne(context.Background(), embedder, writer.DocString)
	vectorstore.Normalize(readerVec)
	vectorstore.Normalize(writerVec)

	vecPath := filepath.Join(t.TempDir(), "segment_0.vec")
	if err := vectorstore.Build(vecPath, "test-model", 8, []vectorstore.Vector{
		{ID: 1, Data: readerVec},
		{ID: 2, Data: writerVec},
	}); err != nil {
		t.Fatalf("vectorstore.Build() error = %v", err)
	}
	vectors, err := vectorstore.Open(vecPath, "test-model")
	if err != nil {
		t.Fatalf("vectorstore.Open() error = %v", err)
	}
	t.Cleanup(func() { vectors.Close() })

	return &Engine{Docs: docs, Cache: cache, Vectors: vectors, Table: table, Embedder: embedder}
}

func TestFindSymbol_HitsCacheFastPath(t *testing.T) {
	e := newTestEngine(t)
	env := e.FindSymbol(context.Background(), "Reader")
	if env.Status != StatusOK {
		t.Fatalf("FindSymbol(Reader) status = %v, want ok", env.Status)
	}
	matches, ok := env.Data.([]symbol.Symbol)
	if !ok || len(matches) != 1 || matches[0].ID != ids.SymbolID(1) {
		t.Fatalf("FindSymbol(Reader) data = %+v, want one match with ID 1", env.Data)
	}
	if env.Guidance == "" {
		t.Errorf("Guidance is empty, want non-empty per the guidance-presence requirement")
	}
}

func TestFindSymbol_NotFound(t *testing.T) {
	e := newTestEngine(t)
	env := e.FindSymbol(context.Background(), "NoSuchSymbol")
	if env.Status != StatusNotFound {
		t.Errorf("FindSymbol(NoSuchSymbol) status = %v, want not_found", env.Status)
	}
	if env.Guidance == "" {
		t.Errorf("Guidance is empty, want non-empty even on not_found")
	}
}

func TestGetCalls_ReturnsOutgoingCallEdge(t *testing.T) {
	e := newTestEngine(t)
	env := e.GetCalls(context.Background(), ids.SymbolID(1))
	if env.Status != StatusOK {
		t.Fatalf("GetCalls(1) status = %v, want ok", env.Status)
	}
	rels, ok := env.Data.([]graph.Relationship)
	if !ok || len(rels) != 1 || rels[0].To != ids.SymbolID(2) {
		t.Fatalf("GetCalls(1) data = %+v, want one edge to 2", env.Data)
	}
}

func TestFindCallers_ReturnsIncomingCallEdge(t *testing.T) {
	e := newTestEngine(t)
	env := e.FindCallers(context.Background(), ids.SymbolID(2))
	if env.Status != StatusOK {
		t.Fatalf("FindCallers(2) status = %v, want ok", env.Status)
	}
	rels, ok := env.Data.([]graph.Relationship)
	if !ok || len(rels) != 1 || rels[0].From != ids.SymbolID(1) {
		t.Fatalf("FindCallers(2) data = %+v, want one edge from 1", env.Data)
	}
}

func TestFindCallers_NotFoundWhenNoIncomingEdges(t *testing.T) {
	e := newTestEngine(t)
	env := e.FindCallers(context.Background(), ids.SymbolID(1))
	if env.Status != StatusNotFound {
		t.Errorf("FindCallers(1) status = %v, want not_found (Reader has no callers)", env.Status)
	}
}

func TestAnalyzeImpact_FindsDownstreamDependent(t *testing.T) {
	e := newTestEngine(t)
	env := e.AnalyzeImpact(context.Background(), ids.SymbolID(1), 3)
	if env.Status != StatusOK {
		t.Fatalf("AnalyzeImpact(1) status = %v, want ok", env.Status)
	}
	hits, ok := env.Data.([]graph.ImpactHit)
	if !ok || len(hits) != 1 || hits[0].ID != ids.SymbolID(2) {
		t.Fatalf("AnalyzeImpact(1) data = %+v, want one hit on 2", env.Data)
	}
}

func TestSemanticSearchDocs_FindsExactDocMatch(t *testing.T) {
	e := newTestEngine(t)
	env := e.SemanticSearchDocs(context.Background(), "reads input from a stream", SemanticOptions{})
	if env.Status != StatusOK {
		t.Fatalf("SemanticSearchDocs() status = %v, want ok; guidance=%q", env.Status, env.Guidance)
	}
	hits, ok := env.Data.([]SemanticHit)
	if !ok || len(hits) == 0 {
		t.Fatalf("SemanticSearchDocs() data = %+v, want at least one hit", env.Data)
	}
	if hits[0].Symbol.ID != ids.SymbolID(1) {
		t.Errorf("top hit = %+v, want Reader (ID 1)", hits[0])
	}
}

func TestSemanticSearchDocs_LanguageFilterExcludesOtherLanguages(t *testing.T) {
	e := newTestEngine(t)
	env := e.SemanticSearchDocs(context.Background(), "writes output to a stream", SemanticOptions{Language: "go"})
	if env.Status != StatusOK && env.Status != StatusNotFound {
		t.Fatalf("SemanticSearchDocs() status = %v, want ok or not_found", env.Status)
	}
	hits, _ := env.Data.([]SemanticHit)
	for _, h := range hits {
		if h.Symbol.Language != "go" {
			t.Errorf("SemanticSearchDocs(language=go) returned %+v, want only go symbols", h)
		}
	}
}

func TestSemanticSearchDocs_ErrorsWithoutEmbedder(t *testing.T) {
	e := newTestEngine(t)
	e.Embedder = nil
	env := e.SemanticSearchDocs(context.Background(), "anything", SemanticOptions{})
	if env.Status != StatusError {
		t.Errorf("SemanticSearchDocs() without embedder status = %v, want error", env.Status)
	}
}

func TestSemanticSearchWithContext_AttachesCallersAndCallees(t *testing.T) {
	e := newTestEngine(t)
	env := e.SemanticSearchWithContext(context.Background(), "writes output to a stream", SemanticOptions{})
	if env.Status != StatusOK {
		t.Fatalf("SemanticSearchWithContext() status = %v, want ok", env.Status)
	}
	hits, ok := env.Data.([]ContextHit)
	if !ok || len(hits) == 0 {
		t.Fatalf("SemanticSearchWithContext() data = %+v, want at least one hit", env.Data)
	}
	var writerHit *ContextHit
	for i := range hits {
		if hits[i].Symbol.ID == ids.SymbolID(2) {
			writerHit = &hits[i]
		}
	}
	if writerHit == nil {
		t.Fatalf("SemanticSearchWithContext() did not surface Writer; hits=%+v", hits)
	}
	if len(writerHit.Callers) != 1 || writerHit.Callers[0].ID != ids.SymbolID(1) {
		t.Errorf("Writer's Callers = %+v, want [Reader]", writerHit.Callers)
	}
}

func TestSearchSymbols_FiltersByLanguage(t *testing.T) {
	e := newTestEngine(t)
	env := e.SearchSymbols(context.Background(), "", SearchOptions{Language: "python"})
	if env.Status != StatusOK {
		t.Fatalf("SearchSymbols(language=python) status = %v, want ok", env.Status)
	}
	syms, ok := env.Data.([]symbol.Symbol)
	if !ok || len(syms) != 1 || syms[0].Name != "Writer" {
		t.Fatalf("SearchSymbols(language=python) = %+v, want [Writer]", env.Data)
	}
}

func TestRawSearch_MatchesDocText(t *testing.T) {
	e := newTestEngine(t)
	env := e.RawSearch(context.Background(), "stream", 10)
	if env.Status != StatusOK {
		t.Fatalf("RawSearch(stream) status = %v, want ok", env.Status)
	}
	syms, ok := env.Data.([]symbol.Symbol)
	if !ok || len(syms) != 2 {
		t.Fatalf("RawSearch(stream) = %+v, want both symbols (both mention stream)", env.Data)
	}
}

func TestGetIndexInfo_ReportsCountsAndVectorMetadata(t *testing.T) {
	e := newTestEngine(t)
	env := e.GetIndexInfo(context.Background())
	if env.Status != StatusOK {
		t.Fatalf("GetIndexInfo() status = %v, want ok", env.Status)
	}
	info, ok := env.Data.(IndexInfo)
	if !ok {
		t.Fatalf("GetIndexInfo() data type = %T, want IndexInfo", env.Data)
	}
	if info.SymbolCount != 2 {
		t.Errorf("SymbolCount = %d, want 2", info.SymbolCount)
	}
	if info.ModelID != "test-model" {
		t.Errorf("ModelID = %q, want %q", info.ModelID, "test-model")
	}
	if info.VectorCount != 2 {
		t.Errorf("VectorCount = %d, want 2", info.VectorCount)
	}
}

// TestSemanticSearchDocs_SkipsUndocumentedSymbolInterleavedByID proves
// SlotMap is built from the vector segment's own stored id set, not from
// every live symbol: Middle (ID 2) has no doc comment and therefore no
// embedding, sitting between Reader (ID 1) and Writer (ID 3) which both
// do. Numbering slots from Table.AllIDs() would assign Writer slot 2
// when its vector actually lives at slot 1, scoring it against the
// wrong row (or panicking once the live id count exceeds the vector
// count).
func TestSemanticSearchDocs_SkipsUndocumentedSymbolInterleavedByID(t *testing.T) {
	docs, err := docindex.OpenInMemory()
	if err != nil {
		t.Fatalf("docindex.OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { docs.Close() })

	table := symtable.New()
	reader := &symbol.Symbol{ID: 1, FileID: 1, Name: "Reader", Language: "go", Kind: symbol.KindFunction, DocString: "reads input from a stream"}
	middle := &symbol.Symbol{ID: 2, FileID: 1, Name: "Middle", Language: "go", Kind: symbol.KindFunction}
	writer := &symbol.Symbol{ID: 3, FileID: 2, Name: "Writer", Language: "python", Kind: symbol.KindFunction, DocString: "writes output to a stream"}
	table.Upsert(reader)
	table.Upsert(middle)
	table.Upsert(writer)

	b := docs.NewBatch()
	for _, sym := range []*symbol.Symbol{reader, middle, writer} {
		if err := b.Index(sym); err != nil {
			t.Fatalf("Index(%s) error = %v", sym.Name, err)
		}
	}
	if err := b.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	embedder := embed.NewDeterministic("test-model", 8)
	readerVec, _ := embed.EmbedOne(context.Background(), embedder, reader.DocString)
	writerVec, _ := embed.EmbedOne(context.Background(), embedder, writer.DocString)
	vectorstore.Normalize(readerVec)
	vectorstore.Normalize(writerVec)

	vecPath := filepath.Join(t.TempDir(), "segment_0.vec")
	if err := vectorstore.Build(vecPath, "test-model", 8, []vectorstore.Vector{
		{ID: 1, Data: readerVec},
		{ID: 3, Data: writerVec},
	}); err != nil {
		t.Fatalf("vectorstore.Build() error = %v", err)
	}
	vectors, err := vectorstore.Open(vecPath, "test-model")
	if err != nil {
		t.Fatalf("vectorstore.Open() error = %v", err)
	}
	t.Cleanup(func() { vectors.Close() })

	e := &Engine{Docs: docs, Vectors: vectors, Table: table, Embedder: embedder}

	env := e.SemanticSearchDocs(context.Background(), "writes output to a stream", SemanticOptions{})
	if env.Status != StatusOK {
		t.Fatalf("SemanticSearchDocs() status = %v, want ok; guidance=%q", env.Status, env.Guidance)
	}
	hits, ok := env.Data.([]SemanticHit)
	if !ok || len(hits) == 0 {
		t.Fatalf("SemanticSearchDocs() data = %+v, want at least one hit", env.Data)
	}
	if hits[0].Symbol.ID != ids.SymbolID(3) {
		t.Fatalf("top hit = %+v, want Writer (ID 3)", hits[0])
	}
	if hits[0].Similarity < 0.99 {
		t.Errorf("Writer's self-similarity = %v, want >= 0.99 (exact doc-text match)", hits[0].Similarity)
	}
}

func TestStatus_ExitCode(t *testing.T) {
	tests := []struct {
		status Status
		want   int
	}{
		{StatusOK, 0},
		{StatusError, 1},
		{StatusNotFound, 3},
	}
	for _, tt := range tests {
		if got := tt.status.ExitCode(); got != tt.want {
			t.Errorf("Status(%q).ExitCode() = %d, want %d", tt.status, got, tt.want)
		}
	}
}
