package symtable

import (
	"testing"

	"github.com/codanna/codanna/internal/graph"
	"github.com/codanna/codanna/internal/ids"
	"github.com/codanna/codanna/internal/symbol"
)

func sym(id ids.SymbolID, fileID ids.FileID, name string) *symbol.Symbol {
	return &symbol.Symbol{ID: id, FileID: fileID, Name: name, Language: ids.LangGo}
}

func TestUpsertAndGet(t *testing.T) {
	tbl := New()
	tbl.Upsert(sym(1, 1, "Parse"))

	got, ok := tbl.Get(1)
	if !ok {
		t.Fatalf("Get(1) ok = false, want true")
	}
	if got.Name != "Parse" {
		t.Errorf("Get(1).Name = %q, want %q", got.Name, "Parse")
	}

	if _, ok := tbl.Get(99); ok {
		t.Errorf("Get(99) ok = true, want false")
	}
}

func TestUpsert_ReplacesExistingEntryByID(t *testing.T) {
	tbl := New()
	tbl.Upsert(sym(1, 1, "Old"))
	tbl.Upsert(sym(1, 1, "New"))

	byOld := tbl.ByName("Old")
	if len(byOld) != 0 {
		t.Errorf("ByName(Old) = %v, want empty after replace", byOld)
	}
	byNew := tbl.ByName("New")
	if len(byNew) != 1 {
		t.Errorf("ByName(New) = %v, want 1 match", byNew)
	}
}

func TestByName_ReturnsAllMatches(t *testing.T) {
	tbl := New()
	tbl.Upsert(sym(1, 1, "Parse"))
	tbl.Upsert(sym(2, 2, "Parse"))
	tbl.Upsert(sym(3, 1, "Build"))

	matches := tbl.ByName("Parse")
	if len(matches) != 2 {
		t.Fatalf("ByName(Parse) returned %d matches, want 2", len(matches))
	}
}

func TestRemoveByFile(t *testing.T) {
	tbl := New()
	tbl.Upsert(sym(1, 1, "A"))
	tbl.Upsert(sym(2, 1, "B"))
	tbl.Upsert(sym(3, 2, "C"))

	tbl.RemoveByFile(1)

	if _, ok := tbl.Get(1); ok {
		t.Errorf("Get(1) ok = true after RemoveByFile(1), want false")
	}
	if _, ok := tbl.Get(2); ok {
		t.Errorf("Get(2) ok = true after RemoveByFile(1), want false")
	}
	if _, ok := tbl.Get(3); !ok {
		t.Errorf("Get(3) ok = false after RemoveByFile(1), want true (different file)")
	}
}

func TestPutRelationships_IndexesOutgoingAndIncoming(t *testing.T) {
	tbl := New()
	tbl.Upsert(sym(1, 1, "caller"))
	tbl.Upsert(sym(2, 1, "callee"))

	tbl.PutRelationships([]graph.Relationship{
		{From: 1, To: 2, Kind: graph.KindCalls},
		{From: 1, Unresolved: "external.fn", Kind: graph.KindCalls, External: true},
	})

	callees := tbl.Callees(1)
	if len(callees) != 2 {
		t.Fatalf("Callees(1) = %d edges, want 2", len(callees))
	}

	callers := tbl.Callers(2)
	if len(callers) != 1 || callers[0].From != 1 {
		t.Fatalf("Callers(2) = %+v, want one edge from 1", callers)
	}

	// The unresolved/external edge must not appear as anyone's caller.
	if callers := tbl.Callers(0); len(callers) != 0 {
		t.Errorf("Callers(0) = %v, want empty (unresolved edges have no incoming entry)", callers)
	}
}

func TestAllIDs_ReturnsEveryLiveIDAscending(t *testing.T) {
	tbl := New()
	tbl.Upsert(sym(3, 1, "C"))
	tbl.Upsert(sym(1, 1, "A"))
	tbl.Upsert(sym(2, 1, "B"))

	got := tbl.AllIDs()
	want := []ids.SymbolID{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("AllIDs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("AllIDs()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCount(t *testing.T) {
	tbl := New()
	if got := tbl.Count(); got != 0 {
		t.Errorf("Count() = %d, want 0", got)
	}
	tbl.Upsert(sym(1, 1, "A"))
	tbl.Upsert(sym(2, 1, "B"))
	if got := tbl.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
}

func TestResolveMeta(t *testing.T) {
	tbl := New()
	s := sym(1, 1, "A")
	s.ModulePath = "pkg/foo"
	tbl.Upsert(s)

	lang, modulePath, ok := tbl.ResolveMeta(1)
	if !ok {
		t.Fatalf("ResolveMeta(1) ok = false, want true")
	}
	if lang != ids.LangGo || modulePath != "pkg/foo" {
		t.Errorf("ResolveMeta(1) = (%v, %v), want (go, pkg/foo)", lang, modulePath)
	}

	if _, _, ok := tbl.ResolveMeta(99); ok {
		t.Errorf("ResolveMeta(99) ok = true, want false")
	}
}
