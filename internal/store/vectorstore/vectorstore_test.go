package vectorstore

import (
	"path/filepath"
	"testing"

	"github.com/codanna/codanna/internal/ids"
)

func TestClusterCount(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, MinClusters},
		{4, MinClusters},
		{100, MinClusters},
		{10000, 100},
	}
	for _, tt := range tests {
		if got := ClusterCount(tt.n); got != tt.want {
			t.Errorf("ClusterCount(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestNprobe(t *testing.T) {
	tests := []struct {
		k    int
		want int
	}{
		{16, 4},
		{100, 10},
		{17, 5},
	}
	for _, tt := range tests {
		if got := Nprobe(tt.k); got != tt.want {
			t.Errorf("Nprobe(%d) = %d, want %d", tt.k, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	Normalize(v)
	if v[0] < 0.599 || v[0] > 0.601 {
		t.Errorf("v[0] = %v, want ~0.6", v[0])
	}
	if v[1] < 0.799 || v[1] > 0.801 {
		t.Errorf("v[1] = %v, want ~0.8", v[1])
	}

	zero := []float32{0, 0}
	Normalize(zero)
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("Normalize(zero vector) = %v, want unchanged zero", zero)
	}
}

func unitVector(dim, hot int) []float32 {
	v := make([]float32, dim)
	v[hot] = 1
	return v
}

func TestBuildAndOpen_RoundTrips(t *testing.T) {
	const dim = 4
	vectors := []Vector{
		{ID: 3, Data: unitVector(dim, 0)},
		{ID: 1, Data: unitVector(dim, 1)},
		{ID: 2, Data: unitVector(dim, 2)},
	}
	path := filepath.Join(t.TempDir(), "segment_0.vec")

	if err := Build(path, "test-model", dim, vectors); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	seg, err := Open(path, "test-model")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer seg.Close()

	if got := seg.ModelID(); got != "test-model" {
		t.Errorf("ModelID() = %q, want %q", got, "test-model")
	}
	if got := seg.Dimension(); got != dim {
		t.Errorf("Dimension() = %d, want %d", got, dim)
	}
	if got := seg.Count(); got != len(vectors) {
		t.Errorf("Count() = %d, want %d", got, len(vectors))
	}
}

func TestOpen_RefusesModelMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "segment_0.vec")
	if err := Build(path, "model-a", 4, []Vector{{ID: 1, Data: unitVector(4, 0)}}); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	_, err := Open(path, "model-b")
	if err != ErrModelMismatch {
		t.Errorf("Open() error = %v, want ErrModelMismatch", err)
	}

	// An empty expected model id skips the check.
	seg, err := Open(path, "")
	if err != nil {
		t.Fatalf("Open(\"\") error = %v", err)
	}
	seg.Close()
}

func TestSearch_FindsExactMatchAndHonorsAllowedSet(t *testing.T) {
	const dim = 4
	vectors := []Vector{
		{ID: 1, Data: unitVector(dim, 0)},
		{ID: 2, Data: unitVector(dim, 1)},
		{ID: 3, Data: unitVector(dim, 2)},
	}
	path := filepath.Join(t.TempDir(), "segment_0.vec")
	if err := Build(path, "m", dim, vectors); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	seg, err := Open(path, "m")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer seg.Close()

	allIDs := []ids.SymbolID{1, 2, 3}
	slotOf := seg.SlotMap(allIDs)

	hits := seg.Search(unitVector(dim, 1), 3, seg.ClusterCount(), slotOf, nil)
	if len(hits) == 0 || hits[0].ID != ids.SymbolID(2) {
		t.Fatalf("Search() top hit = %+v, want ID 2", hits)
	}
	if hits[0].Similarity < 0.99 {
		t.Errorf("top hit similarity = %v, want ~1.0", hits[0].Similarity)
	}

	allowed := map[ids.SymbolID]bool{ids.SymbolID(1): true, ids.SymbolID(3): true}
	filtered := seg.Search(unitVector(dim, 1), 3, seg.ClusterCount(), slotOf, allowed)
	for _, h := range filtered {
		if h.ID == ids.SymbolID(2) {
			t.Errorf("Search() with allowed set returned excluded id 2: %+v", filtered)
		}
	}
}

func TestSlotMap_MustUseFullIDUniverse(t *testing.T) {
	const dim = 4
	vectors := []Vector{
		{ID: 1, Data: unitVector(dim, 0)},
		{ID: 2, Data: unitVector(dim, 1)},
	}
	path := filepath.Join(t.TempDir(), "segment_0.vec")
	if err := Build(path, "m", dim, vectors); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	seg, err := Open(path, "m")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer seg.Close()

	slotOf := seg.SlotMap([]ids.SymbolID{1, 2})
	if slotOf[ids.SymbolID(1)] != 0 || slotOf[ids.SymbolID(2)] != 1 {
		t.Errorf("SlotMap() = %v, want {1:0, 2:1}", slotOf)
	}
}

func TestStoredIDs_ReturnsOnlyVectorStoreIDsAscendingNotLiveSymbolSet(t *testing.T) {
	const dim = 4
	vectors := []Vector{
		{ID: 3, Data: unitVector(dim, 0)},
		{ID: 1, Data: unitVector(dim, 1)},
	}
	path := filepath.Join(t.TempDir(), "segment_0.vec")
	if err := Build(path, "m", dim, vectors); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	seg, err := Open(path, "m")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer seg.Close()

	got := seg.StoredIDs()
	want := []ids.SymbolID{1, 3}
	if len(got) != len(want) {
		t.Fatalf("StoredIDs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("StoredIDs()[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	slotOf := seg.SlotMap(got)
	if slotOf[ids.SymbolID(1)] != 0 || slotOf[ids.SymbolID(3)] != 1 {
		t.Errorf("SlotMap(StoredIDs()) = %v, want {1:0, 3:1}", slotOf)
	}
}

func TestDefaultPath(t *testing.T) {
	got := DefaultPath("/workspace")
	want := filepath.Join("/workspace", "index", "vectors", "segment_0.vec")
	if got != want {
		t.Errorf("DefaultPath() = %q, want %q", got, want)
	}
}
