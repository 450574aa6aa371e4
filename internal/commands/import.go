package commands

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dre-dev/dre/internal/gitops"
	"github.com/dre-dev/dre/internal/importer"
	"github.com/dre-dev/dre/internal/store/filestore"
)

type importOptions struct {
	repo    string
	company string
	format  string
}

func newImportCommand() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import ledger entries from CSV files in import/",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.repo, "repo", ".", "project directory")
	cmd.Flags().StringVar(&opts.company, "company", "", "company id for rows without one (default: company.id from dre.yaml)")
	cmd.Flags().StringVar(&opts.format, "format", "lancamentos", "input format")

	return cmd
}

func runImport(ctx context.Context, stdout, stderr io.Writer, opts importOptions) error {
	registry := importer.DefaultRegistry()
	parser := registry.Get(opts.format)
	if parser == nil {
		formats := registry.Formats()
		sort.Strings(formats)
		return fmt.Errorf("unknown import format %q: must be one of %s", opts.format, strings.Join(formats, ", "))
	}

	p, err := openProject(ctx, opts.repo, stderr)
	if err != nil {
		return err
	}
	defer p.Close()

	writer, ok := p.store.(importer.Writer)
	if !ok {
		return fmt.Errorf("store %s does not accept ledger entries", p.cfg.Store.Driver)
	}

	company := opts.company
	if company == "" {
		company = p.cfg.Company.ID
	}
	im := &importer.Importer{Parser: parser, Writer: writer, CompanyID: company, Logger: p.logger}
	results, err := im.Run(ctx, p.root)
	// Files imported before a failure are already written and moved.
	total := 0
	for _, r := range results {
		fmt.Fprintf(stdout, "Imported %d entries from %s\n", r.Entries, r.File)
		total += r.Entries
	}
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(stdout, "Nothing to import")
		return nil
	}

	if !p.cfg.Git.AutoCommit || !gitops.IsRepo(p.root) {
		return nil
	}
	paths := []string{"import"}
	if _, ok := p.store.(*filestore.Store); ok {
		paths = append(paths, filestore.LedgerDir)
	}
	author := gitops.Author{Name: p.cfg.Git.AuthorName, Email: p.cfg.Git.AuthorEmail}
	hash, err := gitops.CommitPaths(ctx, p.root, fmt.Sprintf("import: %d entries from %d file(s)", total, len(results)), author, paths...)
	if err != nil {
		return fmt.Errorf("committing import: %w", err)
	}
	fmt.Fprintf(stdout, "Committed %s\n", hash)
	return nil
}
