package commands

import (
	"github.com/spf13/cobra"

	"github.com/dre-dev/dre/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "dre",
		Short:   "DRE (income statement) reports from account configuration and ledger entries",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newInitCommand(),
		newReportCommand(),
		newValueCommand(),
		newCheckCommand(),
		newMigrateCommand(),
		newImportCommand(),
	)

	return rootCmd
}
