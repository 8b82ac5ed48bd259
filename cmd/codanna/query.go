package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/codanna/codanna/internal/ids"
	goquery "github.com/codanna/codanna/internal/query"
	"github.com/codanna/codanna/internal/symbol"
	"github.com/codanna/codanna/internal/workspace"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run one of the eight tool-surface operations against an indexed workspace",
}

var (
	searchLimit    int
	searchKind     string
	searchLanguage string
	searchModule   string

	semanticThreshold float64
	maxDepth          int
)

func init() {
	queryCmd.AddCommand(infoCmd, findCmd, searchCmd, semanticCmd, semanticContextCmd, callsCmd, callersCmd, impactCmd, rawCmd)

	searchCmd.Flags().IntVar(&searchLimit, "limit", 50, "maximum results")
	searchCmd.Flags().StringVar(&searchKind, "kind", "", "filter by symbol kind")
	searchCmd.Flags().StringVar(&searchLanguage, "language", "", "filter by language")
	searchCmd.Flags().StringVar(&searchModule, "module", "", "filter by module path")

	for _, c := range []*cobra.Command{semanticCmd, semanticContextCmd} {
		c.Flags().IntVar(&searchLimit, "limit", 10, "maximum results")
		c.Flags().Float64Var(&semanticThreshold, "threshold", 0, "minimum similarity score")
		c.Flags().StringVar(&searchLanguage, "language", "", "filter by language")
	}

	impactCmd.Flags().IntVar(&maxDepth, "max-depth", 5, "maximum BFS depth")

	rawCmd.Flags().IntVar(&searchLimit, "limit", 50, "maximum results")
}

func openWorkspaceForQuery(cmd *cobra.Command) (*workspace.Workspace, error) {
	return workspace.Open(cmd.Context(), flags.WorkspaceRoot)
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "get_index_info",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspaceForQuery(cmd)
		if err != nil {
			return err
		}
		defer ws.Close()
		exitFor(ws.Query.GetIndexInfo(cmd.Context()))
		return nil
	},
}

var findCmd = &cobra.Command{
	Use:   "find NAME",
	Short: "find_symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspaceForQuery(cmd)
		if err != nil {
			return err
		}
		defer ws.Close()
		exitFor(ws.Query.FindSymbol(cmd.Context(), args[0]))
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "search_symbols",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspaceForQuery(cmd)
		if err != nil {
			return err
		}
		defer ws.Close()
		opts := goquery.SearchOptions{Limit: searchLimit, Kind: searchKind, Language: searchLanguage, Module: searchModule}
		exitFor(ws.Query.SearchSymbols(cmd.Context(), args[0], opts))
		return nil
	},
}

var semanticCmd = &cobra.Command{
	Use:   "semantic QUERY",
	Short: "semantic_search_docs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspaceForQuery(cmd)
		if err != nil {
			return err
		}
		defer ws.Close()
		opts := goquery.SemanticOptions{Limit: searchLimit, Threshold: float32(semanticThreshold), Language: searchLanguage}
		exitFor(ws.Query.SemanticSearchDocs(cmd.Context(), args[0], opts))
		return nil
	},
}

var semanticContextCmd = &cobra.Command{
	Use:   "semantic-context QUERY",
	Short: "semantic_search_with_context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspaceForQuery(cmd)
		if err != nil {
			return err
		}
		defer ws.Close()
		opts := goquery.SemanticOptions{Limit: searchLimit, Threshold: float32(semanticThreshold), Language: searchLanguage}
		exitFor(ws.Query.SemanticSearchWithContext(cmd.Context(), args[0], opts))
		return nil
	},
}

var callsCmd = &cobra.Command{
	Use:   "calls NAME_OR_ID",
	Short: "get_calls",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspaceForQuery(cmd)
		if err != nil {
			return err
		}
		defer ws.Close()
		id, err := resolveSymbolID(cmd, ws, args[0])
		if err != nil {
			return err
		}
		exitFor(ws.Query.GetCalls(cmd.Context(), id))
		return nil
	},
}

var callersCmd = &cobra.Command{
	Use:   "callers NAME_OR_ID",
	Short: "find_callers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspaceForQuery(cmd)
		if err != nil {
			return err
		}
		defer ws.Close()
		id, err := resolveSymbolID(cmd, ws, args[0])
		if err != nil {
			return err
		}
		exitFor(ws.Query.FindCallers(cmd.Context(), id))
		return nil
	},
}

var impactCmd = &cobra.Command{
	Use:   "impact NAME_OR_ID",
	Short: "analyze_impact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspaceForQuery(cmd)
		if err != nil {
			return err
		}
		defer ws.Close()
		id, err := resolveSymbolID(cmd, ws, args[0])
		if err != nil {
			return err
		}
		exitFor(ws.Query.AnalyzeImpact(cmd.Context(), id, maxDepth))
		return nil
	},
}

var rawCmd = &cobra.Command{
	Use:   "raw PATTERN",
	Short: "raw_search (supplemented operation over doc comments)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspaceForQuery(cmd)
		if err != nil {
			return err
		}
		defer ws.Close()
		exitFor(ws.Query.RawSearch(cmd.Context(), args[0], searchLimit))
		return nil
	},
}

// resolveSymbolID accepts either a numeric SymbolId or a symbol name,
// resolving the latter via find_symbol and taking its first match —
// the same "name or id" ergonomics spec.md §4.K's get_calls/find_callers
// /analyze_impact operations describe.
func resolveSymbolID(cmd *cobra.Command, ws *workspace.Workspace, arg string) (ids.SymbolID, error) {
	if n, err := strconv.ParseUint(arg, 10, 32); err == nil {
		return ids.SymbolID(n), nil
	}
	env := ws.Query.FindSymbol(cmd.Context(), arg)
	if env.Status != goquery.StatusOK {
		return 0, fmt.Errorf("no symbol named %q found", arg)
	}
	matches, ok := env.Data.([]symbol.Symbol)
	if !ok || len(matches) == 0 {
		return 0, fmt.Errorf("no symbol named %q found", arg)
	}
	return matches[0].ID, nil
}
