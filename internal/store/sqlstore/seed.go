package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dre-dev/dre/internal/log"
	"github.com/dre-dev/dre/internal/model"
	"github.com/dre-dev/dre/internal/store"
)

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// columnsOf splits a source into the category, indicator and account
// reference columns.
func columnsOf(src model.Source) (category, indicator, account sql.NullString, err error) {
	switch src.Kind {
	case model.SourceCategory:
		category = nullable(src.ID)
	case model.SourceIndicator:
		indicator = nullable(src.ID)
	case model.SourceAccount:
		account = nullable(src.ID)
	default:
		err = fmt.Errorf("unknown source kind %q", src.Kind)
	}
	return category, indicator, account, err
}

// Seed inserts a chart in one transaction.
func (s *Store) Seed(ctx context.Context, c store.Chart) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	exec := func(q string, args ...any) error {
		_, err := tx.ExecContext(ctx, s.rebind(q), args...)
		return err
	}

	for _, a := range c.Accounts {
		if err := exec(`INSERT INTO dre_configuracao (id, nome, ordem, simbolo, conta_pai_id, ativo, visivel)
			VALUES (?, ?, ?, ?, ?, ?, ?)`, a.ID, a.Name, a.Order, string(a.Sign), nullable(a.ParentID), a.Active, a.Visible); err != nil {
			return fmt.Errorf("insert account %s: %w", a.ID, err)
		}
	}

	for i, comp := range c.Components {
		category, indicator, account, err := columnsOf(comp.Source)
		if err != nil {
			return fmt.Errorf("component %d of %s: %w", i, comp.AccountID, err)
		}
		id := comp.ID
		if id == "" {
			id = fmt.Sprintf("c-%s-%d", comp.AccountID, i+1)
		}
		if err := exec(`INSERT INTO dre_conta_componentes (id, conta_id, categoria_id, indicador_id, conta_componente_id, simbolo)
			VALUES (?, ?, ?, ?, ?, ?)`, id, comp.AccountID, category, indicator, account, string(comp.Sign)); err != nil {
			return fmt.Errorf("insert component %s: %w", id, err)
		}
	}

	for _, f := range c.Formulas {
		id := f.ID
		if id == "" {
			id = "f-" + f.AccountID
		}
		if err := exec(`INSERT INTO dre_conta_formulas (id, conta_id, operando_1_id, operando_1_tipo, operador, operando_2_id, operando_2_tipo)
			VALUES (?, ?, ?, ?, ?, ?, ?)`, id, f.AccountID, f.Left.ID, string(f.Left.Kind), string(f.Operator),
			f.Right.ID, string(f.Right.Kind)); err != nil {
			return fmt.Errorf("insert formula %s: %w", id, err)
		}
	}

	for _, l := range c.Links {
		if err := exec(`INSERT INTO dre_contas_empresa (empresa_id, conta_id, ativo) VALUES (?, ?, ?)`,
			l.CompanyID, l.AccountID, l.Active); err != nil {
			return fmt.Errorf("insert company account %s/%s: %w", l.CompanyID, l.AccountID, err)
		}
	}

	for _, ind := range c.Indicators {
		if err := exec(`INSERT INTO indicadores (id, nome, tipo, tipo_dado, ativo) VALUES (?, ?, ?, ?, ?)`,
			ind.ID, ind.Name, string(ind.Kind), string(ind.DataType), ind.Active); err != nil {
			return fmt.Errorf("insert indicator %s: %w", ind.ID, err)
		}
	}

	for _, p := range c.Parts {
		category, indicator, _, err := columnsOf(p.Source)
		if err == nil && p.Source.Kind == model.SourceAccount {
			err = fmt.Errorf("indicator parts cannot reference accounts")
		}
		if err != nil {
			return fmt.Errorf("part of %s: %w", p.IndicatorID, err)
		}
		if err := exec(`INSERT INTO indicador_composicao (indicador_id, categoria_id, componente_indicador_id, simbolo)
			VALUES (?, ?, ?, ?)`, p.IndicatorID, category, indicator, string(p.Sign)); err != nil {
			return fmt.Errorf("insert part of %s: %w", p.IndicatorID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	s.logger.InfoContext(ctx, "chart seeded", log.FieldAccounts, len(c.Accounts))
	return nil
}

// InsertEntries records ledger entries in one transaction. Entries without
// an ID get "<company>-YYYY-MM-NNN", numbered after the month's existing
// entries.
func (s *Store) InsertEntries(ctx context.Context, entries []model.LedgerEntry) ([]model.LedgerEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	written := make([]model.LedgerEntry, 0, len(entries))
	next := make(map[string]int)
	for _, e := range entries {
		if err := e.Period.Validate(); err != nil {
			return nil, fmt.Errorf("entry %q: %w", e.ID, err)
		}
		if e.ID == "" {
			prefix := fmt.Sprintf("%s-%04d-%02d-", e.CompanyID, e.Period.Year, e.Period.Month)
			n, ok := next[prefix]
			if !ok {
				if err := tx.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM lancamentos
					WHERE empresa_id = ? AND mes = ? AND ano = ?`), e.CompanyID, e.Period.Month, e.Period.Year).Scan(&n); err != nil {
					return nil, fmt.Errorf("count entries: %w", err)
				}
			}
			n++
			next[prefix] = n
			e.ID = fmt.Sprintf("%s%03d", prefix, n)
		}

		if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO lancamentos
			(id, empresa_id, mes, ano, tipo, valor, categoria_id, indicador_id, descricao)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			e.ID, e.CompanyID, e.Period.Month, e.Period.Year, string(e.Kind), e.Amount.StringFixed(2),
			nullable(e.CategoryID), nullable(e.IndicatorID), e.Description); err != nil {
			return nil, fmt.Errorf("insert entry %s: %w", e.ID, err)
		}
		written = append(written, e)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit entries: %w", err)
	}
	return written, nil
}
