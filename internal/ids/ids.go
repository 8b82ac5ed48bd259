// Package ids defines the compact numeric identifiers and source ranges
// shared by every other package in codanna. Ids are dense, non-zero,
// 32-bit values; zero is reserved to mean "no id" so a zero-valued struct
// never aliases a real symbol or file.
package ids

import (
	"fmt"
	"sync/atomic"
)

// FileID identifies one indexed source file. It is assigned monotonically
// by the workspace and is stable for the lifetime of an unchanged file.
type FileID uint32

// NoFile is the zero value, meaning "not associated with a file".
const NoFile FileID = 0

func (id FileID) String() string {
	return fmt.Sprintf("file#%d", uint32(id))
}

// Valid reports whether id refers to a real file.
func (id FileID) Valid() bool { return id != NoFile }

// SymbolID identifies one symbol. Assignment is monotonic within a single
// indexing transaction; re-indexing a changed file mints fresh ids rather
// than reusing old ones.
type SymbolID uint32

// NoSymbol is the zero value, meaning "not associated with a symbol".
const NoSymbol SymbolID = 0

func (id SymbolID) String() string {
	return fmt.Sprintf("sym#%d", uint32(id))
}

// Valid reports whether id refers to a real symbol.
func (id SymbolID) Valid() bool { return id != NoSymbol }

// LanguageID is an interned short string naming one of the closed set of
// languages codanna understands. It is a distinct type, not a bare
// string, so a stray file extension can never be mistaken for one.
type LanguageID string

// The closed set of supported languages.
const (
	LangRust       LanguageID = "rust"
	LangPython     LanguageID = "python"
	LangTypeScript LanguageID = "typescript"
	LangGo         LanguageID = "go"
	LangPHP        LanguageID = "php"
	LangC          LanguageID = "c"
	LangCPP        LanguageID = "cpp"
	LangCSharp     LanguageID = "csharp"
)

// AllLanguages lists every language codanna can register a parser for.
var AllLanguages = []LanguageID{
	LangRust, LangPython, LangTypeScript, LangGo, LangPHP, LangC, LangCPP, LangCSharp,
}

func (l LanguageID) Valid() bool {
	for _, known := range AllLanguages {
		if known == l {
			return true
		}
	}
	return false
}

// Range is a source span, 1-based and inclusive-exclusive on the column
// axis: a symbol occupying columns 5..10 covers columns 5 through 9.
type Range struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Contains reports whether r fully encloses other.
func (r Range) Contains(other Range) bool {
	if other.StartLine < r.StartLine || (other.StartLine == r.StartLine && other.StartCol < r.StartCol) {
		return false
	}
	if other.EndLine > r.EndLine || (other.EndLine == r.EndLine && other.EndCol > r.EndCol) {
		return false
	}
	return true
}

// IDGenerator mints dense, monotonically increasing, non-zero ids for a
// single indexing transaction. It is safe for concurrent use: the
// pipeline's parse workers share one generator, so each counter is
// advanced atomically. Symbols and files are minted from
// separate counters so neither namespace's density is disturbed by the
// other.
type IDGenerator struct {
	nextSymbol uint32
	nextFile   uint32
}

// NewIDGenerator returns a generator that resumes from the given
// high-water marks (zero for a fresh workspace).
func NewIDGenerator(symbolHighWater, fileHighWater uint32) *IDGenerator {
	return &IDGenerator{nextSymbol: symbolHighWater, nextFile: fileHighWater}
}

// NextSymbolID mints the next dense SymbolID.
func (g *IDGenerator) NextSymbolID() SymbolID {
	return SymbolID(atomic.AddUint32(&g.nextSymbol, 1))
}

// NextFileID mints the next dense FileID.
func (g *IDGenerator) NextFileID() FileID {
	return FileID(atomic.AddUint32(&g.nextFile, 1))
}

// HighWaterMarks returns the last ids minted, so they can be persisted
// and resumed across process restarts.
func (g *IDGenerator) HighWaterMarks() (symbol, file uint32) {
	return atomic.LoadUint32(&g.nextSymbol), atomic.LoadUint32(&g.nextFile)
}
