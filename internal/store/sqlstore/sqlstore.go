// Package sqlstore reads DRE configuration and ledger entries from SQLite or
// PostgreSQL, using the same schema as the hosted application.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/dre-dev/dre/internal/log"
	"github.com/dre-dev/dre/internal/model"
	"github.com/dre-dev/dre/internal/period"
	"github.com/dre-dev/dre/internal/store"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store is a database-backed store.Store.
type Store struct {
	db     *sql.DB
	driver string
	dsn    string
	logger *log.Logger
}

var (
	_ store.Store           = (*Store)(nil)
	_ store.IndicatorLister = (*Store)(nil)
)

// Open connects to the database. For SQLite the dsn is a file path whose
// directory is created if needed. The schema is not migrated; call Migrate.
func Open(ctx context.Context, driver, dsn string, logger *log.Logger) (*Store, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	if dsn == "" {
		return nil, fmt.Errorf("empty %s dsn", driver)
	}
	if logger == nil {
		logger = log.Nop()
	}

	if driver == DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{
		db:     db,
		driver: driver,
		dsn:    dsn,
		logger: logger.WithComponent(log.ComponentStore).With(log.FieldDriver, driver),
	}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// rebind turns ? placeholders into $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(q), args...)
}

const accountColumns = "id, nome, ordem, simbolo, COALESCE(conta_pai_id, ''), ativo, visivel"

func scanAccount(sc interface{ Scan(...any) error }) (model.Account, error) {
	var a model.Account
	var sign string
	if err := sc.Scan(&a.ID, &a.Name, &a.Order, &sign, &a.ParentID, &a.Active, &a.Visible); err != nil {
		return model.Account{}, err
	}
	a.Sign = model.Sign(sign)
	return a, nil
}

func (s *Store) accounts(ctx context.Context, where string, args ...any) ([]model.Account, error) {
	rows, err := s.query(ctx, "SELECT "+accountColumns+" FROM dre_configuracao "+where+" ORDER BY ordem, id", args...)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var result []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// Account implements store.Store.
func (s *Store) Account(ctx context.Context, id string) (model.Account, error) {
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT "+accountColumns+" FROM dre_configuracao WHERE id = ?"), id)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, fmt.Errorf("account %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("get account %s: %w", id, err)
	}
	return a, nil
}

// ChildAccounts implements store.Store.
func (s *Store) ChildAccounts(ctx context.Context, parentID string) ([]model.Account, error) {
	return s.accounts(ctx, "WHERE conta_pai_id = ? AND ativo = ?", parentID, true)
}

// Accounts implements store.Store.
func (s *Store) Accounts(ctx context.Context) ([]model.Account, error) {
	return s.accounts(ctx, "")
}

// RootAccounts implements store.Store.
func (s *Store) RootAccounts(ctx context.Context, companyID string) ([]model.Account, error) {
	roots, err := s.accounts(ctx, "WHERE (conta_pai_id IS NULL OR conta_pai_id = '')")
	if err != nil {
		return nil, err
	}

	rows, err := s.query(ctx, "SELECT empresa_id, conta_id, ativo FROM dre_contas_empresa WHERE empresa_id = ?", companyID)
	if err != nil {
		return nil, fmt.Errorf("query company accounts: %w", err)
	}
	defer rows.Close()

	var links []model.CompanyAccount
	for rows.Next() {
		var l model.CompanyAccount
		if err := rows.Scan(&l.CompanyID, &l.AccountID, &l.Active); err != nil {
			return nil, fmt.Errorf("scan company account: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return store.ApplicableRoots(roots, links, companyID), nil
}

// Components implements store.Store. The referenced column decides the
// source kind: category, then indicator, then account.
func (s *Store) Components(ctx context.Context, accountID string) ([]model.Component, error) {
	rows, err := s.query(ctx, `SELECT id, conta_id, COALESCE(categoria_id, ''), COALESCE(indicador_id, ''),
		COALESCE(conta_componente_id, ''), simbolo FROM dre_conta_componentes WHERE conta_id = ? ORDER BY id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query components: %w", err)
	}
	defer rows.Close()

	var result []model.Component
	for rows.Next() {
		var c model.Component
		var categoryID, indicatorID, refID, sign string
		if err := rows.Scan(&c.ID, &c.AccountID, &categoryID, &indicatorID, &refID, &sign); err != nil {
			return nil, fmt.Errorf("scan component: %w", err)
		}
		c.Source = sourceOf(categoryID, indicatorID, refID)
		c.Sign = model.Sign(sign)
		result = append(result, c)
	}
	return result, rows.Err()
}

func sourceOf(categoryID, indicatorID, accountID string) model.Source {
	switch {
	case categoryID != "":
		return model.Source{Kind: model.SourceCategory, ID: categoryID}
	case indicatorID != "":
		return model.Source{Kind: model.SourceIndicator, ID: indicatorID}
	case accountID != "":
		return model.Source{Kind: model.SourceAccount, ID: accountID}
	}
	return model.Source{}
}

// Formula implements store.Store.
func (s *Store) Formula(ctx context.Context, accountID string) (model.Formula, error) {
	var f model.Formula
	var leftKind, op, rightKind string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT id, conta_id, operando_1_id, operando_1_tipo, operador,
		operando_2_id, operando_2_tipo FROM dre_conta_formulas WHERE conta_id = ?`), accountID).
		Scan(&f.ID, &f.AccountID, &f.Left.ID, &leftKind, &op, &f.Right.ID, &rightKind)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Formula{}, fmt.Errorf("formula of %s: %w", accountID, store.ErrNotFound)
	}
	if err != nil {
		return model.Formula{}, fmt.Errorf("get formula of %s: %w", accountID, err)
	}
	f.Left.Kind = model.SourceKind(leftKind)
	f.Operator = model.Operator(op)
	f.Right.Kind = model.SourceKind(rightKind)
	return f, nil
}

// IndicatorParts implements store.Store.
func (s *Store) IndicatorParts(ctx context.Context, indicatorID string) ([]model.IndicatorPart, error) {
	rows, err := s.query(ctx, `SELECT indicador_id, COALESCE(categoria_id, ''), COALESCE(componente_indicador_id, ''), simbolo
		FROM indicador_composicao WHERE indicador_id = ? ORDER BY id`, indicatorID)
	if err != nil {
		return nil, fmt.Errorf("query indicator parts: %w", err)
	}
	defer rows.Close()

	var result []model.IndicatorPart
	for rows.Next() {
		var p model.IndicatorPart
		var categoryID, childID, sign string
		if err := rows.Scan(&p.IndicatorID, &categoryID, &childID, &sign); err != nil {
			return nil, fmt.Errorf("scan indicator part: %w", err)
		}
		p.Source = sourceOf(categoryID, childID, "")
		p.Sign = model.Sign(sign)
		result = append(result, p)
	}
	return result, rows.Err()
}

// Indicators implements store.IndicatorLister.
func (s *Store) Indicators(ctx context.Context) ([]model.Indicator, error) {
	rows, err := s.query(ctx, "SELECT id, nome, tipo, tipo_dado, ativo FROM indicadores ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query indicators: %w", err)
	}
	defer rows.Close()

	var result []model.Indicator
	for rows.Next() {
		var ind model.Indicator
		var kind, dataType string
		if err := rows.Scan(&ind.ID, &ind.Name, &kind, &dataType, &ind.Active); err != nil {
			return nil, fmt.Errorf("scan indicator: %w", err)
		}
		ind.Kind = model.IndicatorKind(kind)
		ind.DataType = model.DataType(dataType)
		result = append(result, ind)
	}
	return result, rows.Err()
}

// LedgerEntries implements store.Store.
func (s *Store) LedgerEntries(ctx context.Context, companyID string, p period.Period) ([]model.LedgerEntry, error) {
	rows, err := s.query(ctx, `SELECT id, empresa_id, mes, ano, tipo, valor, COALESCE(categoria_id, ''),
		COALESCE(indicador_id, ''), descricao FROM lancamentos WHERE empresa_id = ? AND mes = ? AND ano = ? ORDER BY id`,
		companyID, p.Month, p.Year)
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	var result []model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		var kind, amount string
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.Period.Month, &e.Period.Year, &kind, &amount,
			&e.CategoryID, &e.IndicatorID, &e.Description); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.Kind = model.EntryKind(kind)
		e.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("ledger entry %s: parsing valor %q: %w", e.ID, amount, err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
