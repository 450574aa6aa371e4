package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dre-dev/dre/internal/config"
	"github.com/dre-dev/dre/internal/log"
	"github.com/dre-dev/dre/internal/store"
	"github.com/dre-dev/dre/internal/store/filestore"
	"github.com/dre-dev/dre/internal/store/sqlstore"
)

// project is an opened DRE project: its configuration and store.
type project struct {
	root   string
	cfg    *config.Config
	logger *log.Logger
	store  store.Store
	close  func() error
}

func (p *project) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}

// openProject loads <repo>/dre.yaml, applies .env and environment
// overrides, and opens the configured store.
func openProject(ctx context.Context, repo string, stderr io.Writer) (*project, error) {
	root, err := filepath.Abs(repo)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg, err := config.Load(filepath.Join(root, config.FileName))
	if err != nil {
		return nil, err
	}
	if err := config.LoadDotEnv(root); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return nil, err
	}

	p := &project{root: root, cfg: cfg, logger: logger}
	switch cfg.Store.Driver {
	case config.DriverCSV:
		fs, err := filestore.Open(root)
		if err != nil {
			return nil, err
		}
		p.store = fs
	default:
		db, err := sqlstore.Open(ctx, cfg.Store.Driver, cfg.Store.ResolveDSN(root), logger)
		if err != nil {
			return nil, err
		}
		p.store = db
		p.close = db.Close
	}
	logger.DebugContext(ctx, "project opened", log.FieldPath, root, log.FieldDriver, cfg.Store.Driver)
	return p, nil
}

func newLogger(c config.LogConfig, w io.Writer) (*log.Logger, error) {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	return log.New(log.Config{
		Level:     level,
		Format:    c.Format,
		Component: log.ComponentCommand,
		Writer:    w,
	}), nil
}

// periodFlags are the --company/--month/--year flags shared by the
// valuation commands. Unset values fall back to the configured company and
// the current month.
type periodFlags struct {
	repo    string
	company string
	month   int
	year    int
}

func (f *periodFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.repo, "repo", ".", "project directory")
	cmd.Flags().StringVar(&f.company, "company", "", "company id (default: company.id from dre.yaml)")
	cmd.Flags().IntVar(&f.month, "month", 0, "report month 1-12 (default: current month)")
	cmd.Flags().IntVar(&f.year, "year", 0, "report year (default: current year)")
}

func (f *periodFlags) resolve(cfg *config.Config, now time.Time) (company string, month, year int) {
	company = f.company
	if company == "" {
		company = cfg.Company.ID
	}
	month, year = f.month, f.year
	if month == 0 {
		month = int(now.Month())
	}
	if year == 0 {
		year = now.Year()
	}
	return company, month, year
}
