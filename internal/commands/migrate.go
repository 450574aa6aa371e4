package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dre-dev/dre/internal/store/filestore"
	"github.com/dre-dev/dre/internal/store/sqlstore"
)

func newMigrateCommand() *cobra.Command {
	var repoDir string
	var seed bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations to the configured SQL store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), repoDir, seed)
		},
	}
	cmd.Flags().StringVar(&repoDir, "repo", ".", "project directory")
	cmd.Flags().BoolVar(&seed, "seed", false, "load the project's CSV chart of accounts after migrating")

	return cmd
}

func runMigrate(ctx context.Context, stdout, stderr io.Writer, repo string, seed bool) error {
	p, err := openProject(ctx, repo, stderr)
	if err != nil {
		return err
	}
	defer p.Close()

	db, ok := p.store.(*sqlstore.Store)
	if !ok {
		return fmt.Errorf("migrate needs a sql store driver, project uses %s", p.cfg.Store.Driver)
	}
	if err := db.Migrate(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Migrated %s store\n", p.cfg.Store.Driver)

	if !seed {
		return nil
	}
	chart, err := filestore.ReadChart(p.root)
	if err != nil {
		return err
	}
	if err := db.Seed(ctx, chart); err != nil {
		return fmt.Errorf("seeding chart: %w", err)
	}
	fmt.Fprintf(stdout, "Seeded %d accounts\n", len(chart.Accounts))
	return nil
}
