// Package symcache implements spec.md §4.H: a memory-mapped, append-only
// file storing compact symbol headers plus an out-of-band string arena,
// indexed by an FNV-1a hash table over name bytes for O(1) best-candidate
// `find_symbol` lookup. The cache is advisory and never authoritative —
// it can always be rebuilt from the document index — and replacement is
// atomic: write to a ".tmp" sibling, fsync, then rename over the target,
// the same pattern the teacher's BadgerStorage and Builder use for
// rebuild-in-place operations.
package symcache

import (
	"encoding/binary"
	"hash/fnv"
	"os"
	"path/filepath"

	mmap "github.com/edsrzf/mmap-go"

	"github.com/codanna/codanna/internal/ids"
)

const (
	magic   = 0x53594d43 // "SYMC"
	version = uint16(1)

	headerSize = 4 + 2 + 4 + 4 // magic, version, count, bucketCount
	entrySize  = 4 + 4 + 1 + 1 + 4 + 4 + 4 + 4 + 4 + 4 + 4
	// fields: ID, FileID, Kind, Flags, NameHash, NameOffset, NameLen(pad to 4), StartLine, StartCol, EndLine, EndCol
)

// Entry is one symbol header stored in the cache. It is the minimal data
// `find_symbol`'s fast path needs to report a hit without touching the
// document index.
type Entry struct {
	ID        ids.SymbolID
	FileID    ids.FileID
	Kind      uint8
	Flags     uint8
	Name      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

func fnv1a(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

// Build writes a fresh cache file at path atomically (path.tmp, fsync,
// rename) from the given entries. bucketCount is chosen as the next
// power of two at least as large as len(entries), with a floor of 16, so
// the chain length stays short without needing resize-on-insert (the
// cache is rebuilt wholesale, never incrementally resized).
func Build(path string, entries []Entry) error {
	bucketCount := nextPow2(max(len(entries), 16))

	var arena []byte
	nameOffsets := make([]uint32, len(entries))
	nameLens := make([]uint16, len(entries))
	nameHashes := make([]uint32, len(entries))
	for i, e := range entries {
		nameOffsets[i] = uint32(len(arena))
		nameLens[i] = uint16(len(e.Name))
		nameHashes[i] = fnv1a(e.Name)
		arena = append(arena, []byte(e.Name)...)
	}

	buckets := make([]int32, bucketCount)
	for i := range buckets {
		buckets[i] = -1
	}
	next := make([]int32, len(entries))
	for i, h := range nameHashes {
		b := int(h) % bucketCount
		next[i] = buckets[b]
		buckets[b] = int32(i)
	}

	buf := make([]byte, 0, headerSize+len(arena)+len(entries)*entrySize+bucketCount*4+len(entries)*4)
	hdr := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(hdr[0:4], magic)
	binary.LittleEndian.PutUint16(hdr[4:6], version)
	binary.LittleEndian.PutUint32(hdr[6:10], uint32(len(entries)))
	binary.LittleEndian.PutUint32(hdr[10:14], uint32(bucketCount))
	buf = append(buf, hdr...)

	arenaLenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(arenaLenBuf, uint32(len(arena)))
	buf = append(buf, arenaLenBuf...)
	buf = append(buf, arena...)

	for i, e := range entries {
		rec := make([]byte, entrySize)
		binary.LittleEndian.PutUint32(rec[0:4], uint32(e.ID))
		binary.LittleEndian.PutUint32(rec[4:8], uint32(e.FileID))
		rec[8] = e.Kind
		rec[9] = e.Flags
		binary.LittleEndian.PutUint32(rec[10:14], nameHashes[i])
		binary.LittleEndian.PutUint32(rec[14:18], nameOffsets[i])
		binary.LittleEndian.PutUint32(rec[18:22], uint32(nameLens[i]))
		binary.LittleEndian.PutUint32(rec[22:26], uint32(e.StartLine))
		binary.LittleEndian.PutUint32(rec[26:30], uint32(e.StartCol))
		binary.LittleEndian.PutUint32(rec[30:34], uint32(e.EndLine))
		binary.LittleEndian.PutUint32(rec[34:38], uint32(e.EndCol))
		buf = append(buf, rec...)
	}

	for _, b := range buckets {
		bb := make([]byte, 4)
		binary.LittleEndian.PutUint32(bb, uint32(b))
		buf = append(buf, bb...)
	}
	for _, n := range next {
		nb := make([]byte, 4)
		binary.LittleEndian.PutUint32(nb, uint32(n))
		buf = append(buf, nb...)
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

func nextPow2(n int) int {
	p := 16
	for p < n {
		p *= 2
	}
	return p
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Cache is a read-only, memory-mapped view of a built cache file.
type Cache struct {
	file        *os.File
	mapping     mmap.MMap
	count       int
	bucketCount int
	arenaOff    int
	arenaLen    int
	entriesOff  int
	bucketsOff  int
	nextOff     int
}

// Open memory-maps path read-only. Readers never write to the mapping;
// rebuilds go through Build + atomic rename, so an open Cache always
// observes a consistent snapshot even while a new one is being written.
func Open(path string) (*Cache, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	if len(m) < headerSize+4 {
		m.Unmap()
		f.Close()
		return nil, &CorruptError{Path: path, Reason: "file shorter than header"}
	}
	if binary.LittleEndian.Uint32(m[0:4]) != magic {
		m.Unmap()
		f.Close()
		return nil, &CorruptError{Path: path, Reason: "bad magic"}
	}
	count := int(binary.LittleEndian.Uint32(m[6:10]))
	bucketCount := int(binary.LittleEndian.Uint32(m[10:14]))
	arenaLen := int(binary.LittleEndian.Uint32(m[14:18]))
	arenaOff := 18
	entriesOff := arenaOff + arenaLen
	bucketsOff := entriesOff + count*entrySize
	nextOff := bucketsOff + bucketCount*4

	return &Cache{
		file: f, mapping: m, count: count, bucketCount: bucketCount,
		arenaOff: arenaOff, arenaLen: arenaLen,
		entriesOff: entriesOff, bucketsOff: bucketsOff, nextOff: nextOff,
	}, nil
}

// Close unmaps and closes the underlying file.
func (c *Cache) Close() error {
	if err := c.mapping.Unmap(); err != nil {
		return err
	}
	return c.file.Close()
}

func (c *Cache) entryAt(i int) Entry {
	base := c.entriesOff + i*entrySize
	rec := c.mapping[base : base+entrySize]
	nameOffset := binary.LittleEndian.Uint32(rec[14:18])
	nameLen := binary.LittleEndian.Uint32(rec[18:22])
	name := string(c.mapping[c.arenaOff+int(nameOffset) : c.arenaOff+int(nameOffset)+int(nameLen)])
	return Entry{
		ID:        ids.SymbolID(binary.LittleEndian.Uint32(rec[0:4])),
		FileID:    ids.FileID(binary.LittleEndian.Uint32(rec[4:8])),
		Kind:      rec[8],
		Flags:     rec[9],
		Name:      name,
		StartLine: int(binary.LittleEndian.Uint32(rec[22:26])),
		StartCol:  int(binary.LittleEndian.Uint32(rec[26:30])),
		EndLine:   int(binary.LittleEndian.Uint32(rec[30:34])),
		EndCol:    int(binary.LittleEndian.Uint32(rec[34:38])),
	}
}

// FindByName returns every entry whose name matches exactly, walking the
// FNV-1a bucket chain and comparing full name bytes to rule out hash
// collisions (the hash table is a best-candidate index, not a perfect one).
func (c *Cache) FindByName(name string) []Entry {
	if c.bucketCount == 0 {
		return nil
	}
	h := fnv1a(name)
	b := int(h) % c.bucketCount
	bucketBase := c.bucketsOff + b*4
	head := int32(binary.LittleEndian.Uint32(c.mapping[bucketBase : bucketBase+4]))

	var out []Entry
	for idx := head; idx != -1; {
		e := c.entryAt(int(idx))
		if e.Name == name {
			out = append(out, e)
		}
		nextBase := c.nextOff + int(idx)*4
		idx = int32(binary.LittleEndian.Uint32(c.mapping[nextBase : nextBase+4]))
	}
	return out
}

// Count returns the number of symbols stored in the cache.
func (c *Cache) Count() int { return c.count }

// All returns every entry, used by cache-rebuild verification and tests.
func (c *Cache) All() []Entry {
	out := make([]Entry, c.count)
	for i := 0; i < c.count; i++ {
		out[i] = c.entryAt(i)
	}
	return out
}

// CorruptError is returned by Open when the mapped file fails the
// IntegrityFailure checks spec.md §7 requires before trusting a cache.
type CorruptError struct {
	Path   string
	Reason string
}

func (e *CorruptError) Error() string {
	return "symcache: " + e.Path + " corrupt: " + e.Reason
}

// DefaultPath returns the conventional location under a workspace root
// (spec.md §6's persisted layout).
func DefaultPath(root string) string {
	return filepath.Join(root, "index", "symbol_cache.bin")
}
