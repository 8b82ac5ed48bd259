// Package vectorstore implements spec.md §4.I / §6: a memory-mapped,
// L2-normalized f32 vector segment with IVFFlat clustering for semantic
// search. Layout is bit-exact per §6: magic, version, length-prefixed
// model id, dimension, vector count, cluster count, centroid block,
// posting block, vector block (SymbolId-ascending), all little-endian.
// Replacement is atomic, the same write-tmp/fsync/rename discipline as
// symcache and the teacher's BadgerStorage rebuild path.
package vectorstore

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sort"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/codanna/codanna/internal/ids"
)

const magic = 0x43444e56 // "VNDC" read little-endian as "CDNV"... kept as a fixed 4-byte token, see Open.

// Vector is one symbol's embedding prior to segment assembly.
type Vector struct {
	ID   ids.SymbolID
	Data []float32
}

// MinClusters is the floor spec.md §4.I sets on K regardless of N.
const MinClusters = 16

// ClusterCount returns K ≈ √N with the spec's minimum-16 floor.
func ClusterCount(n int) int {
	k := int(math.Sqrt(float64(n)))
	if k < MinClusters {
		return MinClusters
	}
	return k
}

// Nprobe returns the default probe count, ceil(sqrt(K)).
func Nprobe(k int) int {
	return int(math.Ceil(math.Sqrt(float64(k))))
}

// Normalize L2-normalizes v in place, matching the "L2-normalized f32"
// invariant spec.md §3/§4.I require of every stored embedding.
func Normalize(v []float32) {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// kmeansAssign runs a small, deterministic fixed-iteration k-means:
// centroids are seeded by taking every len(vectors)/k-th vector
// (SymbolId-ascending input), so the same input always yields the same
// clustering without relying on random seeding, per spec.md §8's
// Determinism property.
func kmeansAssign(vectors []Vector, k, dimension int) (centroids [][]float32, assignment []int) {
	n := len(vectors)
	centroids = make([][]float32, k)
	stride := n / k
	if stride == 0 {
		stride = 1
	}
	for c := 0; c < k; c++ {
		idx := c * stride
		if idx >= n {
			idx = n - 1
		}
		centroids[c] = append([]float32(nil), vectors[idx].Data...)
	}

	assignment = make([]int, n)
	const iterations = 8
	for iter := 0; iter < iterations; iter++ {
		for i, v := range vectors {
			best, bestSim := 0, float32(-2)
			for c, centroid := range centroids {
				sim := dot(v.Data, centroid)
				if sim > bestSim || (sim == bestSim && c < best) {
					best, bestSim = c, sim
				}
			}
			assignment[i] = best
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dimension)
		}
		for i, v := range vectors {
			c := assignment[i]
			counts[c]++
			for d := 0; d < dimension; d++ {
				sums[c][d] += float64(v.Data[d])
			}
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				continue
			}
			next := make([]float32, dimension)
			for d := 0; d < dimension; d++ {
				next[d] = float32(sums[c][d] / float64(counts[c]))
			}
			Normalize(next)
			centroids[c] = next
		}
	}
	return centroids, assignment
}

// Build assembles a full segment file from scratch: clusters vectors
// deterministically, then writes the bit-exact §6 layout atomically.
// Vectors must already be L2-normalized (see Normalize) and are written
// out in SymbolId-ascending order regardless of input order.
func Build(path, modelID string, dimension int, vectors []Vector) error {
	sorted := append([]Vector(nil), vectors...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	n := len(sorted)
	k := ClusterCount(n)
	if n < k {
		k = n
		if k == 0 {
			k = 1
		}
	}

	var centroids [][]float32
	var assignment []int
	if n > 0 {
		centroids, assignment = kmeansAssign(sorted, k, dimension)
	} else {
		centroids = make([][]float32, k)
		for c := range centroids {
			centroids[c] = make([]float32, dimension)
		}
		assignment = nil
	}

	postings := make([][]uint32, k)
	for i, v := range sorted {
		c := assignment[i]
		postings[c] = append(postings[c], uint32(v.ID))
	}

	var buf []byte
	hdr := make([]byte, 4+2)
	binary.LittleEndian.PutUint32(hdr[0:4], magic)
	binary.LittleEndian.PutUint16(hdr[4:6], 1)
	buf = append(buf, hdr...)

	modelBytes := []byte(modelID)
	modelLen := make([]byte, 4)
	binary.LittleEndian.PutUint32(modelLen, uint32(len(modelBytes)))
	buf = append(buf, modelLen...)
	buf = append(buf, modelBytes...)

	rest := make([]byte, 2+8+4)
	binary.LittleEndian.PutUint16(rest[0:2], uint16(dimension))
	binary.LittleEndian.PutUint64(rest[2:10], uint64(n))
	binary.LittleEndian.PutUint32(rest[10:14], uint32(k))
	buf = append(buf, rest...)

	for _, centroid := range centroids {
		for _, f := range centroid {
			fb := make([]byte, 4)
			binary.LittleEndian.PutUint32(fb, math.Float32bits(f))
			buf = append(buf, fb...)
		}
	}

	for _, list := range postings {
		lb := make([]byte, 4)
		binary.LittleEndian.PutUint32(lb, uint32(len(list)))
		buf = append(buf, lb...)
		for _, id := range list {
			ib := make([]byte, 4)
			binary.LittleEndian.PutUint32(ib, id)
			buf = append(buf, ib...)
		}
	}

	for _, v := range sorted {
		for _, f := range v.Data {
			fb := make([]byte, 4)
			binary.LittleEndian.PutUint32(fb, math.Float32bits(f))
			buf = append(buf, fb...)
		}
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := f.Write(buf); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ErrModelMismatch is returned by Open when the segment's stored model id
// does not match the caller's expected model id. Per spec.md's Open
// Question on model-id mismatch policy: this implementation REFUSES to
// open rather than silently rebuilding, so a model change always
// requires an explicit re-index rather than risking mixed-dimension
// comparisons. See DESIGN.md for the full rationale.
var ErrModelMismatch = errors.New("vectorstore: model id mismatch, refusing to open stale segment")

// Segment is a read-only, memory-mapped view of a built vector segment.
type Segment struct {
	file      *os.File
	mapping   mmap.MMap
	modelID   string
	dimension int
	count     int
	clusters  int
	centroidOff int
	postingOff  int
	vectorOff   int
	postingStarts []int // byte offset of each cluster's posting block
	postingLens   []int
}

// Open memory-maps path and validates it against expectedModelID. Pass
// "" to skip the model check (used by maintenance tools that need to
// inspect a segment regardless of model).
func Open(path, expectedModelID string) (*Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	if len(m) < 10 {
		m.Unmap()
		f.Close()
		return nil, errors.New("vectorstore: file shorter than fixed header")
	}
	if binary.LittleEndian.Uint32(m[0:4]) != magic {
		m.Unmap()
		f.Close()
		return nil, errors.New("vectorstore: bad magic")
	}
	off := 6
	modelLen := int(binary.LittleEndian.Uint32(m[off : off+4]))
	off += 4
	modelID := string(m[off : off+modelLen])
	off += modelLen

	if expectedModelID != "" && modelID != expectedModelID {
		m.Unmap()
		f.Close()
		return nil, ErrModelMismatch
	}

	dimension := int(binary.LittleEndian.Uint16(m[off : off+2]))
	off += 2
	count := int(binary.LittleEndian.Uint64(m[off : off+8]))
	off += 8
	clusters := int(binary.LittleEndian.Uint32(m[off : off+4]))
	off += 4

	centroidOff := off
	centroidBytes := clusters * dimension * 4
	postingOff := centroidOff + centroidBytes

	postingStarts := make([]int, clusters)
	postingLens := make([]int, clusters)
	cursor := postingOff
	for c := 0; c < clusters; c++ {
		postingStarts[c] = cursor
		length := int(binary.LittleEndian.Uint32(m[cursor : cursor+4]))
		postingLens[c] = length
		cursor += 4 + length*4
	}
	vectorOff := cursor

	return &Segment{
		file: f, mapping: m, modelID: modelID, dimension: dimension,
		count: count, clusters: clusters,
		centroidOff: centroidOff, postingOff: postingOff, vectorOff: vectorOff,
		postingStarts: postingStarts, postingLens: postingLens,
	}, nil
}

func (s *Segment) Close() error {
	if err := s.mapping.Unmap(); err != nil {
		return err
	}
	return s.file.Close()
}

func (s *Segment) ModelID() string  { return s.modelID }
func (s *Segment) Dimension() int   { return s.dimension }
func (s *Segment) Count() int       { return s.count }
func (s *Segment) ClusterCount() int { return s.clusters }

func (s *Segment) centroid(c int) []float32 {
	base := s.centroidOff + c*s.dimension*4
	out := make([]float32, s.dimension)
	for d := 0; d < s.dimension; d++ {
		out[d] = math.Float32frombits(binary.LittleEndian.Uint32(s.mapping[base+d*4 : base+d*4+4]))
	}
	return out
}

func (s *Segment) posting(c int) []uint32 {
	base := s.postingStarts[c] + 4
	n := s.postingLens[c]
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		out[i] = binary.LittleEndian.Uint32(s.mapping[base+i*4 : base+i*4+4])
	}
	return out
}

func (s *Segment) vectorAt(i int) []float32 {
	base := s.vectorOff + i*s.dimension*4
	out := make([]float32, s.dimension)
	for d := 0; d < s.dimension; d++ {
		out[d] = math.Float32frombits(binary.LittleEndian.Uint32(s.mapping[base+d*4 : base+d*4+4]))
	}
	return out
}

// Hit is one nearest-neighbor search result.
type Hit struct {
	ID         ids.SymbolID
	Similarity float32
}

// Search returns the top-k nearest neighbors to a pre-normalized query
// vector, probing the nprobe nearest centroids and scanning their
// posting lists (spec.md §4.I's IVFFlat query algorithm). slotOf must map
// every SymbolId stored in the segment to its stored slot index (i.e. be
// built from the FULL ascending id set via SlotMap, never a filtered
// subset — the slot is an id's rank in the segment's own vector block,
// which a filtered list would misnumber). allowed, if non-nil, restricts
// which ids are eligible hits at all: an id not in allowed is skipped
// before its similarity is ever computed, which is what lets a language
// filter change the candidate set without changing any surviving
// symbol's reported similarity score (spec.md §8's Language filter
// neutrality property).
func (s *Segment) Search(query []float32, k, nprobe int, slotOf map[ids.SymbolID]int, allowed map[ids.SymbolID]bool) []Hit {
	if nprobe <= 0 || nprobe > s.clusters {
		nprobe = s.clusters
	}

	type centroidSim struct {
		cluster int
		sim     float32
	}
	sims := make([]centroidSim, s.clusters)
	for c := 0; c < s.clusters; c++ {
		sims[c] = centroidSim{c, dot(query, s.centroid(c))}
	}
	sort.Slice(sims, func(i, j int) bool { return sims[i].sim > sims[j].sim })

	var hits []Hit
	seen := map[ids.SymbolID]bool{}
	for p := 0; p < nprobe; p++ {
		cluster := sims[p].cluster
		for _, rawID := range s.posting(cluster) {
			id := ids.SymbolID(rawID)
			if seen[id] {
				continue
			}
			seen[id] = true
			if allowed != nil && !allowed[id] {
				continue
			}
			slot, ok := slotOf[id]
			if !ok {
				continue
			}
			hits = append(hits, Hit{ID: id, Similarity: dot(query, s.vectorAt(slot))})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// StoredIDs returns every SymbolId actually stored in this segment's
// vector block, ascending — the union of every cluster's posting list,
// which by construction (Build assigns every sorted vector to exactly
// one cluster) is the same id set in the same order the vector block
// was written in. Not every live symbol has an embedding (only ones
// with a doc comment do, per spec.md §4.I), so this is the id universe
// SlotMap must be built from, never a caller's broader live-symbol set.
func (s *Segment) StoredIDs() []ids.SymbolID {
	out := make([]ids.SymbolID, 0, s.count)
	for c := 0; c < s.clusters; c++ {
		for _, raw := range s.posting(c) {
			out = append(out, ids.SymbolID(raw))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SlotMap returns the SymbolId -> slot index map Search needs. idsAscending
// must be every id stored in the segment, sorted ascending (see
// StoredIDs) — since vectors are written SymbolId-ascending, an id's
// slot is its rank in that full list. Passing a filtered subset, or a
// broader set such as every live symbol, would misnumber every slot;
// filter candidates via Search's allowed parameter instead. Build this
// once per segment open and reuse it across queries.
func (s *Segment) SlotMap(idsAscending []ids.SymbolID) map[ids.SymbolID]int {
	out := make(map[ids.SymbolID]int, len(idsAscending))
	for i, id := range idsAscending {
		out[id] = i
	}
	return out
}

// DefaultPath returns the conventional segment location under a
// workspace root (spec.md §6's persisted layout).
func DefaultPath(root string) string {
	return filepath.Join(root, "index", "vectors", "segment_0.vec")
}
