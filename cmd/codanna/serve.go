package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codanna/codanna/internal/watch"
	"github.com/codanna/codanna/internal/workspace"
)

var serveWatchDirs []string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Open the workspace and keep re-indexing on file changes until interrupted",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringSliceVar(&serveWatchDirs, "watch-dir", []string{"."}, "directories to watch for changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ws, err := workspace.Open(ctx, flags.WorkspaceRoot)
	if err != nil {
		return fmt.Errorf("opening workspace: %w", err)
	}
	defer ws.Close()

	w, err := watch.New(watch.Config{
		DebounceDuration: watch.DefaultConfig().DebounceDuration,
		WatchDirs:        serveWatchDirs,
		OnBatch: func(ctx context.Context, changed []string) {
			stats, err := ws.IndexPaths(ctx, changed)
			if err != nil {
				fmt.Fprintf(os.Stderr, "re-index failed: %v\n", err)
				return
			}
			fmt.Printf("re-indexed %d files\n", stats.FilesProcessed)
		},
		OnError: func(err error) { fmt.Fprintf(os.Stderr, "watch error: %v\n", err) },
	})
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}

	fmt.Printf("watching %v for changes (ctrl-c to stop)\n", serveWatchDirs)
	<-ctx.Done()
	return w.Stop()
}
