package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dre-dev/dre/internal/config"
	"github.com/dre-dev/dre/internal/gitops"
	"github.com/dre-dev/dre/internal/log"
	"github.com/dre-dev/dre/internal/store"
	"github.com/dre-dev/dre/internal/store/filestore"
	"github.com/dre-dev/dre/internal/store/sqlstore"
)

type initOptions struct {
	companyID   string
	companyName string
	driver      string
	dsn         string
}

func newInitCommand() *cobra.Command {
	var opts initOptions

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new DRE project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), absDir, opts)
		},
	}

	cmd.Flags().StringVar(&opts.companyID, "company-id", "", "default company id (required)")
	_ = cmd.MarkFlagRequired("company-id")
	cmd.Flags().StringVar(&opts.companyName, "company-name", "", "company name shown on reports")
	cmd.Flags().StringVar(&opts.driver, "driver", config.DriverCSV, "store driver: csv, sqlite or postgres")
	cmd.Flags().StringVar(&opts.dsn, "dsn", "", "store DSN (sqlite default: dre.db)")

	return cmd
}

func runInit(ctx context.Context, stdout, stderr io.Writer, dir string, opts initOptions) error {
	cfg := config.Default(opts.companyID, opts.companyName)
	cfg.Store.Driver = opts.driver
	cfg.Store.DSN = opts.dsn
	if cfg.Store.Driver == config.DriverSQLite && cfg.Store.DSN == "" {
		cfg.Store.DSN = "dre.db"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	dirs := []string{
		"logs",
		"import",
		filepath.Join("import", "processed"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if err := config.Save(filepath.Join(dir, config.FileName), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// The CSV chart is written for every driver; SQL stores are seeded
	// from it.
	chart := store.DefaultChart()
	if err := filestore.WriteChart(dir, chart); err != nil {
		return fmt.Errorf("writing chart of accounts: %w", err)
	}

	if cfg.Store.Driver != config.DriverCSV {
		logger, err := newLogger(cfg.Log, stderr)
		if err != nil {
			return err
		}
		if err := seedDatabase(ctx, dir, cfg, chart, logger); err != nil {
			return err
		}
	}

	gitignore := "*.db\n.env\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "import", ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	if !cfg.Git.AutoCommit {
		fmt.Fprintf(stdout, "Initialized DRE project at %s\n", dir)
		return nil
	}

	if err := gitops.Init(ctx, dir); err != nil {
		return err
	}
	author := gitops.Author{Name: cfg.Git.AuthorName, Email: cfg.Git.AuthorEmail}
	title := opts.companyName
	if title == "" {
		title = opts.companyID
	}
	hash, err := gitops.CommitAll(ctx, dir, "init: Initialize "+title, author)
	if err != nil {
		return fmt.Errorf("initial commit: %w", err)
	}

	fmt.Fprintf(stdout, "Initialized DRE project at %s (%s)\n", dir, hash)
	return nil
}

// seedDatabase migrates the configured SQL store and loads chart into it.
func seedDatabase(ctx context.Context, root string, cfg *config.Config, chart store.Chart, logger *log.Logger) error {
	db, err := sqlstore.Open(ctx, cfg.Store.Driver, cfg.Store.ResolveDSN(root), logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return err
	}
	if err := db.Seed(ctx, chart); err != nil {
		return fmt.Errorf("seeding chart: %w", err)
	}
	return nil
}
