package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dre-dev/dre/internal/dre"
)

func newCheckCommand() *cobra.Command {
	var repoDir string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the account configuration for broken references and cycles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), repoDir)
		},
	}
	cmd.Flags().StringVar(&repoDir, "repo", ".", "project directory")

	return cmd
}

func runCheck(ctx context.Context, stdout, stderr io.Writer, repo string) error {
	p, err := openProject(ctx, repo, stderr)
	if err != nil {
		return err
	}
	defer p.Close()

	problems, err := dre.Check(ctx, p.store)
	if err != nil {
		return fmt.Errorf("checking configuration: %w", err)
	}
	if len(problems) > 0 {
		for _, v := range problems {
			fmt.Fprintln(stdout, v.Error())
		}
		return fmt.Errorf("%d configuration problem(s) found", len(problems))
	}

	accounts, err := p.store.Accounts(ctx)
	if err != nil {
		return fmt.Errorf("listing accounts: %w", err)
	}
	fmt.Fprintf(stdout, "Configuration OK (%d accounts)\n", len(accounts))
	return nil
}
