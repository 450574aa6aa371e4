package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dre-dev/dre/internal/log"
	"github.com/dre-dev/dre/internal/model"
)

// Parser converts an exported CSV file into ledger entries. companyID is
// used for rows that do not name a company.
type Parser interface {
	Parse(r io.Reader, companyID string) ([]model.LedgerEntry, error)
	Format() string
}

// Writer records parsed entries and returns them as written, with ids
// assigned.
type Writer interface {
	InsertEntries(ctx context.Context, entries []model.LedgerEntry) ([]model.LedgerEntry, error)
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes a CSV file in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// Result summarizes one imported file.
type Result struct {
	File    string
	Entries int
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// Formats lists the registered formats.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.parsers))
	for k := range r.parsers {
		out = append(out, k)
	}
	return out
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&LancamentosParser{})
	r.Register(&LedgerParser{})
	return r
}

const (
	importDir    = "import"
	processedDir = "import/processed"
)

// Scan returns CSV files in <root>/import/, sorted by name.
func Scan(root string) ([]FileInfo, error) {
	dir := filepath.Join(root, importDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(root, fileName string) error {
	dstDir := filepath.Join(root, processedDir)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}
	src := filepath.Join(root, importDir, fileName)
	if err := os.Rename(src, filepath.Join(dstDir, fileName)); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}

// Importer reads pending files with one parser and hands their entries to a
// Writer.
type Importer struct {
	Parser    Parser
	Writer    Writer
	CompanyID string
	Logger    *log.Logger
}

// Run imports every pending file under root. A file is moved to
// import/processed/ only after its entries were written; the first failure
// stops the run and leaves that file in place.
func (im *Importer) Run(ctx context.Context, root string) ([]Result, error) {
	logger := im.Logger
	if logger == nil {
		logger = log.Nop()
	}
	logger = logger.WithComponent(log.ComponentImporter)

	files, err := Scan(root)
	if err != nil {
		return nil, err
	}

	var results []Result
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		start := time.Now()
		n, err := im.importFile(ctx, f)
		if err != nil {
			return results, fmt.Errorf("importing %s: %w", f.Name, err)
		}
		if err := MarkProcessed(root, f.Name); err != nil {
			return results, err
		}
		logger.InfoContext(ctx, "file imported",
			log.FieldOperation, im.Parser.Format(),
			log.FieldFile, f.Name,
			log.FieldEntries, n,
			log.FieldDuration, time.Since(start).Milliseconds())
		results = append(results, Result{File: f.Name, Entries: n})
	}
	return results, nil
}

func (im *Importer) importFile(ctx context.Context, f FileInfo) (int, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return 0, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	entries, err := im.Parser.Parse(file, im.CompanyID)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}
	written, err := im.Writer.InsertEntries(ctx, entries)
	if err != nil {
		return 0, fmt.Errorf("writing entries: %w", err)
	}
	return len(written), nil
}
