// Package docindex implements spec.md §4.G: the full-text and metadata
// index supporting exact, fuzzy, and field-filtered symbol queries. It
// is backed by bleve/v2, the document-index library named in the pack's
// manifests (mesdx-cli, Aman-CERP-amanmcp, vvoland-cagent) as the
// ecosystem's standard embedded search engine — there is no teacher code
// to adapt here (the teacher used BadgerDB's own secondary indices for
// this concern), so this package is grounded on bleve's own documented
// API shape rather than a pack source file.
package docindex

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/codanna/codanna/internal/ids"
	"github.com/codanna/codanna/internal/symbol"
)

// Document is the bleve document shape for one symbol, covering every
// field spec.md §4.G requires field-filtered and doc-text queries over.
type Document struct {
	SymbolID     uint32 `json:"symbol_id"`
	FileID       uint32 `json:"file_id"`
	Name         string `json:"name"`
	NameLower    string `json:"name_lower"`
	Kind         string `json:"kind"`
	Language     string `json:"language"`
	FilePath     string `json:"file_path"`
	ModulePath   string `json:"module_path"`
	DocComment   string `json:"doc_comment"`
	Signature    string `json:"signature"`
	Visibility   string `json:"visibility"`
	ScopeContext string `json:"scope_context"`
}

// Hit is one search result: the matched symbol id plus the score bleve
// assigned, so callers can order multi-field results consistently.
type Hit struct {
	SymbolID ids.SymbolID
	Score    float64
}

// Index wraps a bleve index scoped to one workspace's symbol documents.
type Index struct {
	bleveIndex bleve.Index
}

func buildMapping() mapping.IndexMapping {
	exact := bleve.NewDocumentMapping()

	keywordField := bleve.NewTextFieldMapping()
	keywordField.Analyzer = keyword.Name

	textField := bleve.NewTextFieldMapping()

	exact.AddFieldMappingsAt("name", keywordField)
	exact.AddFieldMappingsAt("name_lower", textField)
	exact.AddFieldMappingsAt("kind", keywordField)
	exact.AddFieldMappingsAt("language", keywordField)
	exact.AddFieldMappingsAt("file_path", keywordField)
	exact.AddFieldMappingsAt("module_path", keywordField)
	exact.AddFieldMappingsAt("doc_comment", textField)
	exact.AddFieldMappingsAt("signature", textField)
	exact.AddFieldMappingsAt("visibility", keywordField)
	exact.AddFieldMappingsAt("scope_context", keywordField)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = exact
	return im
}

// Open opens or creates the bleve index rooted at path.
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if err == nil {
		return &Index{bleveIndex: idx}, nil
	}
	idx, err = bleve.New(path, buildMapping())
	if err != nil {
		return nil, err
	}
	return &Index{bleveIndex: idx}, nil
}

// OpenInMemory opens an in-memory index, used by tests.
func OpenInMemory() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, err
	}
	return &Index{bleveIndex: idx}, nil
}

func (ix *Index) Close() error { return ix.bleveIndex.Close() }

func docID(id ids.SymbolID) string { return fmt.Sprintf("sym:%d", uint32(id)) }

// ToDocument adapts a symbol.Symbol into the bleve Document shape.
func ToDocument(s *symbol.Symbol) Document {
	return Document{
		SymbolID:     uint32(s.ID),
		FileID:       uint32(s.FileID),
		Name:         s.Name,
		NameLower:    strings.ToLower(s.Name),
		Kind:         s.Kind.String(),
		Language:     string(s.Language),
		ModulePath:   s.ModulePath,
		DocComment:   s.DocString,
		Signature:    s.Signature,
		Visibility:   s.Visibility.String(),
		ScopeContext: s.Scope.Kind.String(),
	}
}

// Batch accumulates index/tombstone operations for atomic application,
// mirroring spec.md §4.J step 3's "open a batch" / step 8's
// "commit batch; on failure, abort and revert tombstones."
type Batch struct {
	inner *bleve.Batch
	index *Index
}

// NewBatch opens a fresh batch against this index.
func (ix *Index) NewBatch() *Batch {
	return &Batch{inner: ix.bleveIndex.NewBatch(), index: ix}
}

// Index stages an insert/update of sym's document into the batch.
func (b *Batch) Index(sym *symbol.Symbol) error {
	return b.inner.Index(docID(sym.ID), ToDocument(sym))
}

// Delete stages a tombstone of id's document into the batch.
func (b *Batch) Delete(id ids.SymbolID) {
	b.inner.Delete(docID(id))
}

// Commit applies every staged operation atomically from bleve's own
// point of view (a single Batch call).
func (b *Batch) Commit() error {
	return b.index.bleveIndex.Batch(b.inner)
}

// FindExact returns symbols whose name matches query exactly.
func (ix *Index) FindExact(name string) ([]Hit, error) {
	q := bleve.NewTermQuery(name)
	q.SetField("name")
	return ix.runQuery(q, 50)
}

// FindFuzzy returns symbols whose name fuzzy/prefix-matches query,
// spec.md §4.G's fuzzy search mode.
func (ix *Index) FindFuzzy(query string, limit int) ([]Hit, error) {
	fuzzy := bleve.NewFuzzyQuery(strings.ToLower(query))
	fuzzy.SetField("name_lower")
	fuzzy.Fuzziness = 2

	prefix := bleve.NewPrefixQuery(strings.ToLower(query))
	prefix.SetField("name_lower")

	disjunction := bleve.NewDisjunctionQuery(fuzzy, prefix)
	return ix.runQuery(disjunction, limit)
}

// FieldFilter is one field=value constraint for FindFiltered.
type FieldFilter struct {
	Field string
	Value string
}

// FindFiltered restricts the corpus to symbols matching every filter
// (e.g. kind=Function, language=go), spec.md §4.G's field-filtered mode.
func (ix *Index) FindFiltered(filters []FieldFilter, limit int) ([]Hit, error) {
	var queries []bleve.Query
	for _, f := range filters {
		tq := bleve.NewTermQuery(f.Value)
		tq.SetField(f.Field)
		queries = append(queries, tq)
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("docindex: FindFiltered requires at least one filter")
	}
	return ix.runQuery(bleve.NewConjunctionQuery(queries...), limit)
}

// FindByDocText runs a tokenized match query over doc comments, spec.md
// §4.G's "doc-text tokenized match" mode, used by the query engine's
// RawSearch.
func (ix *Index) FindByDocText(text string, limit int) ([]Hit, error) {
	mq := bleve.NewMatchQuery(text)
	mq.SetField("doc_comment")
	return ix.runQuery(mq, limit)
}

func (ix *Index) runQuery(q bleve.Query, limit int) ([]Hit, error) {
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	res, err := ix.bleveIndex.Search(req)
	if err != nil {
		return nil, err
	}
	out := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		var symID uint32
		if _, err := fmt.Sscanf(h.ID, "sym:%d", &symID); err != nil {
			continue
		}
		out = append(out, Hit{SymbolID: ids.SymbolID(symID), Score: h.Score})
	}
	return out, nil
}

// DocCount reports how many documents are currently indexed, used by
// get_index_info.
func (ix *Index) DocCount() (uint64, error) {
	return ix.bleveIndex.DocCount()
}
