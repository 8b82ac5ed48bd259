package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "unknown"
)

// rootFlags holds the options every subcommand shares, following the
// teacher's single-Config-struct-bound-to-flags pattern.
type rootFlags struct {
	WorkspaceRoot string
	JSON          bool
}

var flags rootFlags

var rootCmd = &cobra.Command{
	Use:     "codanna",
	Short:   "Codanna is a code-intelligence engine for symbol search, call graphs, and semantic queries",
	Version: fmt.Sprintf("%s (%s)", version, commit),
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&flags.WorkspaceRoot, "root", ".codanna", "workspace root directory")
	rootCmd.PersistentFlags().BoolVar(&flags.JSON, "json", false, "emit the tool-surface envelope as JSON")

	viper.BindPFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(serveCmd)
}

func initConfig() {
	viper.SetEnvPrefix("CODANNA")
	viper.AutomaticEnv()
	if root := os.Getenv("CODANNA_ROOT"); root != "" {
		flags.WorkspaceRoot = root
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
