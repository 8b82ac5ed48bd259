package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/codanna/codanna/internal/walker"
	"github.com/codanna/codanna/internal/watch"
	"github.com/codanna/codanna/internal/workspace"
)

var (
	indexWatch bool
)

var indexCmd = &cobra.Command{
	Use:   "index [paths...]",
	Short: "Parse, embed, and index the given paths (or the current directory)",
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexWatch, "watch", false, "keep watching the indexed paths for changes after the initial index")
}

func runIndex(cmd *cobra.Command, args []string) error {
	paths := args
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for i, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		paths[i] = abs
	}

	ctx := cmd.Context()
	ws, err := workspace.Open(ctx, flags.WorkspaceRoot)
	if err != nil {
		return fmt.Errorf("opening workspace: %w", err)
	}
	defer ws.Close()

	files, err := collectFiles(paths)
	if err != nil {
		return err
	}

	stats, err := ws.IndexPaths(ctx, files)
	if err != nil {
		return fmt.Errorf("indexing: %w", err)
	}
	fmt.Printf("indexed %d files (%d skipped, %d errored), %d symbols, %d vectors\n",
		stats.FilesProcessed, stats.FilesSkipped, stats.FilesErrored, stats.SymbolsIndexed, stats.VectorsAdded)

	if !indexWatch {
		return nil
	}

	w, err := watch.New(watch.Config{
		DebounceDuration: watch.DefaultConfig().DebounceDuration,
		WatchDirs:        paths,
		OnBatch: func(ctx context.Context, changed []string) {
			if _, err := ws.IndexPaths(ctx, changed); err != nil {
				fmt.Fprintf(os.Stderr, "re-index failed: %v\n", err)
			}
		},
		OnError: func(err error) { fmt.Fprintf(os.Stderr, "watch error: %v\n", err) },
	})
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return w.Stop()
}

// collectFiles expands directories in paths into a flat source-file
// list, honoring .gitignore and the source-code extension filter the
// way the teacher's codegrep walked a tree before searching it.
func collectFiles(paths []string) ([]string, error) {
	w, err := walker.New(&walker.Config{Filters: walker.CreateCodannaSourceFilter()})
	if err != nil {
		return nil, err
	}

	var out []string
	for _, p := range paths {
		results, err := w.Walk(p)
		if err != nil {
			return nil, err
		}
		for r := range results {
			if r.Error != nil {
				continue
			}
			out = append(out, r.Path)
		}
	}
	return out, nil
}
