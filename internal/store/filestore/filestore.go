// Package filestore reads DRE configuration and ledger entries from a
// project directory of CSV files.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dre-dev/dre/internal/model"
	"github.com/dre-dev/dre/internal/period"
	"github.com/dre-dev/dre/internal/store"
	"github.com/dre-dev/dre/internal/store/memory"
)

// Project layout, relative to the project root.
const (
	AccountsFile   = "accounts/dre-accounts.csv"
	ComponentsFile = "accounts/components.csv"
	FormulasFile   = "accounts/formulas.csv"
	LinksFile      = "accounts/company-accounts.csv"
	IndicatorsFile = "indicators/indicators.csv"
	PartsFile      = "indicators/parts.csv"
	LedgerDir      = "ledger"
	ledgerFile     = "ledger.csv"
)

// Store serves a project directory. The chart is read once at Open; ledger
// files are read on every LedgerEntries call.
type Store struct {
	root  string
	chart *memory.Store
}

var (
	_ store.Store           = (*Store)(nil)
	_ store.IndicatorLister = (*Store)(nil)
)

// Open reads the chart of a project. The accounts file is required; the
// other tables may be absent.
func Open(root string) (*Store, error) {
	c, err := ReadChart(root)
	if err != nil {
		return nil, err
	}
	return &Store{root: root, chart: memory.FromChart(c)}, nil
}

// Root returns the project directory.
func (s *Store) Root() string {
	return s.root
}

// ReadChart reads every configuration table of a project.
func ReadChart(root string) (store.Chart, error) {
	var c store.Chart
	var err error

	if c.Accounts, err = readFile(root, AccountsFile, AccountsHeader, UnmarshalAccount, true); err != nil {
		return store.Chart{}, err
	}
	if c.Components, err = readFile(root, ComponentsFile, ComponentsHeader, UnmarshalComponent, false); err != nil {
		return store.Chart{}, err
	}
	if c.Formulas, err = readFile(root, FormulasFile, FormulasHeader, UnmarshalFormula, false); err != nil {
		return store.Chart{}, err
	}
	if c.Links, err = readFile(root, LinksFile, LinksHeader, UnmarshalLink, false); err != nil {
		return store.Chart{}, err
	}
	if c.Indicators, err = readFile(root, IndicatorsFile, IndicatorsHeader, UnmarshalIndicator, false); err != nil {
		return store.Chart{}, err
	}
	if c.Parts, err = readFile(root, PartsFile, PartsHeader, UnmarshalPart, false); err != nil {
		return store.Chart{}, err
	}
	return c, nil
}

// WriteChart writes every configuration table of a project, creating the
// directories and an empty ledger directory.
func WriteChart(root string, c store.Chart) error {
	if err := writeFile(root, AccountsFile, AccountsHeader, c.Accounts, MarshalAccount); err != nil {
		return err
	}
	if err := writeFile(root, ComponentsFile, ComponentsHeader, c.Components, MarshalComponent); err != nil {
		return err
	}
	if err := writeFile(root, FormulasFile, FormulasHeader, c.Formulas, MarshalFormula); err != nil {
		return err
	}
	if err := writeFile(root, LinksFile, LinksHeader, c.Links, MarshalLink); err != nil {
		return err
	}
	if err := writeFile(root, IndicatorsFile, IndicatorsHeader, c.Indicators, MarshalIndicator); err != nil {
		return err
	}
	if err := writeFile(root, PartsFile, PartsHeader, c.Parts, MarshalPart); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(root, LedgerDir), 0o755); err != nil {
		return fmt.Errorf("creating ledger dir: %w", err)
	}
	return nil
}

func readFile[T any](root, name string, header []string, unmarshal func([]string) (T, error), required bool) ([]T, error) {
	f, err := os.Open(filepath.Join(root, name))
	if errors.Is(err, fs.ErrNotExist) && !required {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	defer f.Close()

	rows, err := readTable(f, header, unmarshal)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return rows, nil
}

func writeFile[T any](root, name string, header []string, rows []T, marshal func(T) []string) error {
	path := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s dir: %w", filepath.Dir(name), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	defer f.Close()

	if err := writeTable(f, header, rows, marshal); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// LedgerPath returns the ledger file of a month.
func LedgerPath(root string, p period.Period) string {
	return filepath.Join(root, LedgerDir, fmt.Sprintf("%04d", p.Year), fmt.Sprintf("%02d", p.Month), ledgerFile)
}

// ReadMonth reads every entry of a month, for all companies. A missing file
// is an empty month.
func ReadMonth(root string, p period.Period) ([]model.LedgerEntry, error) {
	path := LedgerPath(root, p)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ledger %s: %w", path, err)
	}
	defer f.Close()

	entries, err := ReadEntries(f)
	if err != nil {
		return nil, fmt.Errorf("reading ledger %s: %w", path, err)
	}
	for i, e := range entries {
		if e.Period != p {
			return nil, fmt.Errorf("ledger %s: row %d dated %s", path, i+2, e.Period.Key())
		}
	}
	return entries, nil
}

// AppendEntries appends entries to their months' ledger files, creating
// files with a header as needed. Entries without an ID get the next
// YYYY-MM-NNN id of their month. It returns the entries as written.
func AppendEntries(root string, entries []model.LedgerEntry) ([]model.LedgerEntry, error) {
	byPeriod := make(map[period.Period][]model.LedgerEntry)
	var order []period.Period
	for _, e := range entries {
		if err := e.Period.Validate(); err != nil {
			return nil, fmt.Errorf("entry %q: %w", e.ID, err)
		}
		if _, ok := byPeriod[e.Period]; !ok {
			order = append(order, e.Period)
		}
		byPeriod[e.Period] = append(byPeriod[e.Period], e)
	}
	sort.Slice(order, func(i, j int) bool { return order[i].Before(order[j]) })

	var written []model.LedgerEntry
	for _, p := range order {
		rows, err := appendMonth(root, p, byPeriod[p])
		if err != nil {
			return nil, err
		}
		written = append(written, rows...)
	}
	return written, nil
}

func appendMonth(root string, p period.Period, entries []model.LedgerEntry) ([]model.LedgerEntry, error) {
	existing, err := ReadMonth(root, p)
	if err != nil {
		return nil, err
	}

	seq := nextSeq(existing, p)
	rows := make([]model.LedgerEntry, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			e.ID = FormatEntryID(p, seq)
			seq++
		}
		rows[i] = e
	}

	path := LedgerPath(root, p)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger dir: %w", err)
	}

	isNew := false
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		isNew = true
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	defer f.Close()

	var header []string
	if isNew {
		header = LedgerHeader
	}
	if err := writeTable(f, header, rows, MarshalEntry); err != nil {
		return nil, fmt.Errorf("appending entries: %w", err)
	}
	return rows, nil
}

// FormatEntryID returns the id of the seq-th entry of a month, e.g.
// "2024-03-007".
func FormatEntryID(p period.Period, seq int) string {
	return fmt.Sprintf("%04d-%02d-%03d", p.Year, p.Month, seq)
}

func nextSeq(existing []model.LedgerEntry, p period.Period) int {
	prefix := fmt.Sprintf("%04d-%02d-", p.Year, p.Month)
	maxSeq := 0
	for _, e := range existing {
		rest, ok := strings.CutPrefix(e.ID, prefix)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil {
			continue
		}
		if n > maxSeq {
			maxSeq = n
		}
	}
	return maxSeq + 1
}

// Account implements store.Store.
func (s *Store) Account(ctx context.Context, id string) (model.Account, error) {
	return s.chart.Account(ctx, id)
}

// ChildAccounts implements store.Store.
func (s *Store) ChildAccounts(ctx context.Context, parentID string) ([]model.Account, error) {
	return s.chart.ChildAccounts(ctx, parentID)
}

// RootAccounts implements store.Store.
func (s *Store) RootAccounts(ctx context.Context, companyID string) ([]model.Account, error) {
	return s.chart.RootAccounts(ctx, companyID)
}

// Accounts implements store.Store.
func (s *Store) Accounts(ctx context.Context) ([]model.Account, error) {
	return s.chart.Accounts(ctx)
}

// Components implements store.Store.
func (s *Store) Components(ctx context.Context, accountID string) ([]model.Component, error) {
	return s.chart.Components(ctx, accountID)
}

// Formula implements store.Store.
func (s *Store) Formula(ctx context.Context, accountID string) (model.Formula, error) {
	return s.chart.Formula(ctx, accountID)
}

// IndicatorParts implements store.Store.
func (s *Store) IndicatorParts(ctx context.Context, indicatorID string) ([]model.IndicatorPart, error) {
	return s.chart.IndicatorParts(ctx, indicatorID)
}

// Indicators implements store.IndicatorLister.
func (s *Store) Indicators(ctx context.Context) ([]model.Indicator, error) {
	return s.chart.Indicators(ctx)
}

// LedgerEntries implements store.Store.
func (s *Store) LedgerEntries(ctx context.Context, companyID string, p period.Period) ([]model.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all, err := ReadMonth(s.root, p)
	if err != nil {
		return nil, err
	}
	var result []model.LedgerEntry
	for _, e := range all {
		if e.CompanyID == companyID {
			result = append(result, e)
		}
	}
	return result, nil
}

// InsertEntries appends entries to the store's ledger files.
func (s *Store) InsertEntries(ctx context.Context, entries []model.LedgerEntry) ([]model.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return AppendEntries(s.root, entries)
}
