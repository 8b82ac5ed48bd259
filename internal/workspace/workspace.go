// Package workspace is the top-level orchestrator spec.md §6's persisted
// layout describes: it owns the on-disk directory structure, opens every
// storage collaborator (FileRecord store, document index, symbol cache,
// vector segment), and wires the pipeline and query engine over them.
// This is the "root object" a CLI or server entry point constructs once
// per process, generalizing the teacher's cmd/codegrep wiring (which
// constructed a Store+Builder pair directly in main) into a reusable type.
package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/codanna/codanna/internal/config"
	"github.com/codanna/codanna/internal/embed"
	"github.com/codanna/codanna/internal/ids"
	"github.com/codanna/codanna/internal/lang"
	"github.com/codanna/codanna/internal/pipeline"
	"github.com/codanna/codanna/internal/query"
	"github.com/codanna/codanna/internal/store/docindex"
	"github.com/codanna/codanna/internal/store/filerecord"
	"github.com/codanna/codanna/internal/store/symcache"
	"github.com/codanna/codanna/internal/store/vectorstore"
	"github.com/codanna/codanna/internal/symtable"
)

// Layout resolves the fixed directory structure spec.md §6 specifies
// under one workspace root.
type Layout struct {
	Root string
}

func (l Layout) SettingsPath() string    { return filepath.Join(l.Root, "settings.toml") }
func (l Layout) DocIndexPath() string    { return filepath.Join(l.Root, "index", "tantivy") }
func (l Layout) VectorsDir() string      { return filepath.Join(l.Root, "index", "vectors") }
func (l Layout) VectorSegmentPath() string {
	return filepath.Join(l.VectorsDir(), "segment_0.vec")
}
func (l Layout) ResolversDir() string    { return filepath.Join(l.Root, "index", "resolvers") }
func (l Layout) SymbolCachePath() string { return symcache.DefaultPath(l.Root) }
func (l Layout) FileRecordsDir() string  { return filepath.Join(l.Root, "files") }

// Workspace bundles every open collaborator for one root directory.
type Workspace struct {
	Layout   Layout
	Settings config.Settings

	Files     *filerecord.Store
	Docs      *docindex.Index
	Cache     *symcache.Cache
	Vectors   *vectorstore.Segment
	Table     *symtable.Table
	Gen       *ids.IDGenerator
	Embedder  embed.Embedder
	Pipeline  *pipeline.Pipeline
	Query     *query.Engine
}

// Open initializes (creating directories as needed) and opens every
// storage collaborator for root, the single entry point both the CLI
// and a future server process use.
func Open(ctx context.Context, root string) (*Workspace, error) {
	layout := Layout{Root: root}

	for _, dir := range []string{layout.VectorsDir(), layout.ResolversDir(), layout.FileRecordsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("workspace: creating %s: %w", dir, err)
		}
	}

	settings, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	files, err := filerecord.Open(layout.FileRecordsDir())
	if err != nil {
		return nil, fmt.Errorf("workspace: opening file records: %w", err)
	}

	docs, err := docindex.Open(layout.DocIndexPath())
	if err != nil {
		files.Close()
		return nil, fmt.Errorf("workspace: opening document index: %w", err)
	}

	dimension := dimensionForModel(settings.Semantic.Model)
	embedder := embed.NewDeterministic(settings.Semantic.Model, dimension)

	table := symtable.New()
	gen := ids.NewIDGenerator(0, 0)

	ws := &Workspace{
		Layout: layout, Settings: settings,
		Files: files, Docs: docs, Table: table, Gen: gen, Embedder: embedder,
	}

	pcfg := pipeline.DefaultConfig()
	pcfg.MaxFileBytes = int64(settings.Indexing.MaxFileSizeMB) << 20
	ws.Pipeline = pipeline.New(pcfg, pipeline.Stores{Files: files, Docs: docs, Table: table, Embedder: embedder, Gen: gen})

	if cache, err := symcache.Open(layout.SymbolCachePath()); err == nil {
		ws.Cache = cache
	}
	if seg, err := vectorstore.Open(layout.VectorSegmentPath(), embedder.ModelID()); err == nil {
		ws.Vectors = seg
	}

	threshold := settings.Guidance.Threshold
	ws.Query = &query.Engine{
		Docs: docs, Cache: ws.Cache, Vectors: ws.Vectors, Table: table,
		Embedder: embedder, Threshold: threshold,
	}

	return ws, nil
}

// Close releases every open collaborator. Safe to call once.
func (w *Workspace) Close() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if w.Vectors != nil {
		record(w.Vectors.Close())
	}
	if w.Cache != nil {
		record(w.Cache.Close())
	}
	record(w.Docs.Close())
	record(w.Files.Close())
	return firstErr
}

// IndexPaths runs the pipeline over paths, then flushes the symbol cache
// and vector segment and refreshes the in-memory symbol table + query
// engine so subsequent queries see the new state.
func (w *Workspace) IndexPaths(ctx context.Context, paths []string) (*pipeline.Stats, error) {
	stats, err := w.Pipeline.IndexAll(ctx, paths)
	if err != nil {
		return stats, err
	}

	records, err := w.Files.All(ctx)
	if err != nil {
		return stats, err
	}
	languageByFile := make(map[ids.FileID]ids.LanguageID, len(records))
	for _, rec := range records {
		languageByFile[rec.ID] = rec.Language
	}

	rels, err := w.Pipeline.ResolveAll(
		func(language ids.LanguageID) (lang.Behavior, error) { return lang.Global().NewBehaviorFor(language) },
		w.Table,
		func(fileID ids.FileID) ids.LanguageID { return languageByFile[fileID] },
	)
	if err != nil {
		return stats, err
	}
	w.Table.PutRelationships(rels)

	if err := w.Pipeline.Flush(w.Layout.SymbolCachePath(), w.Layout.VectorSegmentPath(), w.Embedder.ModelID(), w.Embedder.Dimension()); err != nil {
		return stats, err
	}

	if cache, err := symcache.Open(w.Layout.SymbolCachePath()); err == nil {
		if w.Cache != nil {
			w.Cache.Close()
		}
		w.Cache = cache
		w.Query.Cache = cache
	}
	if seg, err := vectorstore.Open(w.Layout.VectorSegmentPath(), w.Embedder.ModelID()); err == nil {
		if w.Vectors != nil {
			w.Vectors.Close()
		}
		w.Vectors = seg
		w.Query.Vectors = seg
	}

	return stats, nil
}

// dimensionForModel maps a configured model name to its native
// dimension, one of {384, 768, 1024} per spec.md §3. Unknown model names
// default to 384 (the smallest supported width) rather than failing
// open, since the embedder factory itself is a pluggable external
// collaborator spec.md §1 does not specify beyond its interface.
func dimensionForModel(model string) int {
	switch model {
	case "minilm-l6-v2", "":
		return 384
	case "bge-base", "mpnet-base":
		return 768
	case "bge-large":
		return 1024
	default:
		return 384
	}
}
