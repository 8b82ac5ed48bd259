package docindex

import (
	"testing"

	"github.com/codanna/codanna/internal/ids"
	"github.com/codanna/codanna/internal/symbol"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { ix.Close() })
	return ix
}

func indexSymbols(t *testing.T, ix *Index, syms ...*symbol.Symbol) {
	t.Helper()
	b := ix.NewBatch()
	for _, s := range syms {
		if err := b.Index(s); err != nil {
			t.Fatalf("Batch.Index() error = %v", err)
		}
	}
	if err := b.Commit(); err != nil {
		t.Fatalf("Batch.Commit() error = %v", err)
	}
}

func TestFindExact_MatchesWholeNameOnly(t *testing.T) {
	ix := openTestIndex(t)
	indexSymbols(t, ix,
		&symbol.Symbol{ID: 1, Name: "Parse", Language: "go"},
		&symbol.Symbol{ID: 2, Name: "ParseFile", Language: "go"},
	)

	hits, err := ix.FindExact("Parse")
	if err != nil {
		t.Fatalf("FindExact() error = %v", err)
	}
	if len(hits) != 1 || hits[0].SymbolID != ids.SymbolID(1) {
		t.Fatalf("FindExact(Parse) = %+v, want exactly symbol 1", hits)
	}
}

func TestFindFuzzy_MatchesPrefixAndTypos(t *testing.T) {
	ix := openTestIndex(t)
	indexSymbols(t, ix,
		&symbol.Symbol{ID: 1, Name: "Resolver", Language: "go"},
		&symbol.Symbol{ID: 2, Name: "Unrelated", Language: "go"},
	)

	hits, err := ix.FindFuzzy("Resolv", 10)
	if err != nil {
		t.Fatalf("FindFuzzy() error = %v", err)
	}
	found := false
	for _, h := range hits {
		if h.SymbolID == ids.SymbolID(1) {
			found = true
		}
	}
	if !found {
		t.Errorf("FindFuzzy(Resolv) = %+v, want to find symbol 1 (Resolver)", hits)
	}
}

func TestFindFiltered_RequiresAllFilters(t *testing.T) {
	ix := openTestIndex(t)
	indexSymbols(t, ix,
		&symbol.Symbol{ID: 1, Name: "Handler", Language: "go", Kind: symbol.KindFunction},
		&symbol.Symbol{ID: 2, Name: "Handler", Language: "python", Kind: symbol.KindFunction},
	)

	hits, err := ix.FindFiltered([]FieldFilter{
		{Field: "language", Value: "go"},
		{Field: "kind", Value: symbol.KindFunction.String()},
	}, 10)
	if err != nil {
		t.Fatalf("FindFiltered() error = %v", err)
	}
	if len(hits) != 1 || hits[0].SymbolID != ids.SymbolID(1) {
		t.Fatalf("FindFiltered(language=go,kind=function) = %+v, want exactly symbol 1", hits)
	}
}

func TestFindFiltered_RequiresAtLeastOneFilter(t *testing.T) {
	ix := openTestIndex(t)
	if _, err := ix.FindFiltered(nil, 10); err == nil {
		t.Errorf("FindFiltered(nil) error = nil, want an error")
	}
}

func TestFindByDocText_MatchesTokenizedDocComment(t *testing.T) {
	ix := openTestIndex(t)
	indexSymbols(t, ix,
		&symbol.Symbol{ID: 1, Name: "Load", Language: "go", DocString: "loads configuration from disk"},
		&symbol.Symbol{ID: 2, Name: "Save", Language: "go", DocString: "writes a checkpoint to storage"},
	)

	hits, err := ix.FindByDocText("configuration", 10)
	if err != nil {
		t.Fatalf("FindByDocText() error = %v", err)
	}
	if len(hits) != 1 || hits[0].SymbolID != ids.SymbolID(1) {
		t.Fatalf("FindByDocText(configuration) = %+v, want exactly symbol 1", hits)
	}
}

func TestBatch_DeleteRemovesDocument(t *testing.T) {
	ix := openTestIndex(t)
	indexSymbols(t, ix, &symbol.Symbol{ID: 1, Name: "Temp", Language: "go"})

	count, err := ix.DocCount()
	if err != nil || count != 1 {
		t.Fatalf("DocCount() = (%d, %v), want (1, nil)", count, err)
	}

	b := ix.NewBatch()
	b.Delete(ids.SymbolID(1))
	if err := b.Commit(); err != nil {
		t.Fatalf("Batch.Commit() error = %v", err)
	}

	count, err = ix.DocCount()
	if err != nil || count != 0 {
		t.Fatalf("DocCount() after delete = (%d, %v), want (0, nil)", count, err)
	}
}

func TestToDocument_LowercasesNameForFuzzyField(t *testing.T) {
	doc := ToDocument(&symbol.Symbol{ID: 1, Name: "MixedCase"})
	if doc.NameLower != "mixedcase" {
		t.Errorf("ToDocument().NameLower = %q, want %q", doc.NameLower, "mixedcase")
	}
}
