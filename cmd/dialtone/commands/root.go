package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	statePath  string
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dialtone",
		Short: "Dialtone - Contact-Center Composition Engine",
		Long: `Dialtone composes declarative contact-center resources and conversational
bots into validated provisioning plans and applies them.

Features:
  - Declarative YAML/CUE resource configuration
  - Reference resolution and dependency-ordered plans
  - Policy enforcement via OPA/rego
  - Conversational bot compilation, simulation, and versioning
  - Local SQLite state for runs, identities, and bot versions`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "declarations file or directory")
	rootCmd.PersistentFlags().StringVar(&statePath, "state", "dialtone.db", "state database path")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newPlanCommand())
	rootCmd.AddCommand(newApplyCommand())
	rootCmd.AddCommand(newBotCommand())

	return rootCmd
}
