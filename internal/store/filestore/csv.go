package filestore

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/dre-dev/dre/internal/model"
	"github.com/dre-dev/dre/internal/period"
)

// Headers of each table, in column order.
var (
	AccountsHeader   = []string{"account_id", "name", "order", "sign", "parent_id", "active", "visible"}
	ComponentsHeader = []string{"component_id", "account_id", "source_kind", "source_id", "sign"}
	FormulasHeader   = []string{"formula_id", "account_id", "left_kind", "left_id", "operator", "right_kind", "right_id"}
	LinksHeader      = []string{"company_id", "account_id", "active"}
	IndicatorsHeader = []string{"indicator_id", "name", "kind", "data_type", "active"}
	PartsHeader      = []string{"indicator_id", "source_kind", "source_id", "sign"}
	LedgerHeader     = []string{"entry_id", "company_id", "month", "year", "kind", "amount", "category_id", "indicator_id", "description"}
)

const (
	colAcctID      = 0
	colAcctName    = 1
	colAcctOrder   = 2
	colAcctSign    = 3
	colAcctParent  = 4
	colAcctActive  = 5
	colAcctVisible = 6
)

const (
	colCompID   = 0
	colCompAcct = 1
	colCompKind = 2
	colCompSrc  = 3
	colCompSign = 4
)

const (
	colFormID        = 0
	colFormAcct      = 1
	colFormLeftKind  = 2
	colFormLeftID    = 3
	colFormOp        = 4
	colFormRightKind = 5
	colFormRightID   = 6
)

const (
	colLinkCompany = 0
	colLinkAcct    = 1
	colLinkActive  = 2
)

const (
	colIndID       = 0
	colIndName     = 1
	colIndKind     = 2
	colIndDataType = 3
	colIndActive   = 4
)

const (
	colPartInd  = 0
	colPartKind = 1
	colPartSrc  = 2
	colPartSign = 3
)

const (
	colEntryID    = 0
	colEntryComp  = 1
	colEntryMonth = 2
	colEntryYear  = 3
	colEntryKind  = 4
	colEntryAmt   = 5
	colEntryCat   = 6
	colEntryInd   = 7
	colEntryDesc  = 8
)

// readTable reads a CSV table with a header row.
func readTable[T any](r io.Reader, header []string, unmarshal func([]string) (T, error)) ([]T, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var rows []T
	for i, rec := range records[1:] {
		row, err := unmarshal(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// writeTable writes a header row followed by rows. With header nil only the
// rows are written, for appending to an existing file.
func writeTable[T any](w io.Writer, header []string, rows []T, marshal func(T) []string) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if header != nil {
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, row := range rows {
		if err := cw.Write(marshal(row)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func parseBool(field, s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("parsing %s %q: %w", field, s, err)
	}
	return b, nil
}

// MarshalAccount converts an Account to a CSV row.
func MarshalAccount(a model.Account) []string {
	row := make([]string, len(AccountsHeader))
	row[colAcctID] = a.ID
	row[colAcctName] = a.Name
	row[colAcctOrder] = strconv.Itoa(a.Order)
	row[colAcctSign] = string(a.Sign)
	row[colAcctParent] = a.ParentID
	row[colAcctActive] = strconv.FormatBool(a.Active)
	row[colAcctVisible] = strconv.FormatBool(a.Visible)
	return row
}

// UnmarshalAccount converts a CSV row to an Account.
func UnmarshalAccount(rec []string) (model.Account, error) {
	if rec[colAcctID] == "" {
		return model.Account{}, fmt.Errorf("empty account_id")
	}
	order, err := strconv.Atoi(rec[colAcctOrder])
	if err != nil {
		return model.Account{}, fmt.Errorf("parsing order %q: %w", rec[colAcctOrder], err)
	}
	sign := model.Sign(rec[colAcctSign])
	if !sign.Valid() {
		return model.Account{}, fmt.Errorf("invalid sign %q", rec[colAcctSign])
	}
	active, err := parseBool("active", rec[colAcctActive])
	if err != nil {
		return model.Account{}, err
	}
	visible, err := parseBool("visible", rec[colAcctVisible])
	if err != nil {
		return model.Account{}, err
	}
	return model.Account{
		ID:       rec[colAcctID],
		Name:     rec[colAcctName],
		Order:    order,
		Sign:     sign,
		ParentID: rec[colAcctParent],
		Active:   active,
		Visible:  visible,
	}, nil
}

// MarshalComponent converts a Component to a CSV row.
func MarshalComponent(c model.Component) []string {
	row := make([]string, len(ComponentsHeader))
	row[colCompID] = c.ID
	row[colCompAcct] = c.AccountID
	row[colCompKind] = string(c.Source.Kind)
	row[colCompSrc] = c.Source.ID
	row[colCompSign] = string(c.Sign)
	return row
}

// UnmarshalComponent converts a CSV row to a Component. Source kinds are
// kept as written; unknown kinds surface as warnings at evaluation.
func UnmarshalComponent(rec []string) (model.Component, error) {
	if rec[colCompAcct] == "" {
		return model.Component{}, fmt.Errorf("empty account_id")
	}
	return model.Component{
		ID:        rec[colCompID],
		AccountID: rec[colCompAcct],
		Source:    model.Source{Kind: model.SourceKind(rec[colCompKind]), ID: rec[colCompSrc]},
		Sign:      model.Sign(rec[colCompSign]),
	}, nil
}

// MarshalFormula converts a Formula to a CSV row.
func MarshalFormula(f model.Formula) []string {
	row := make([]string, len(FormulasHeader))
	row[colFormID] = f.ID
	row[colFormAcct] = f.AccountID
	row[colFormLeftKind] = string(f.Left.Kind)
	row[colFormLeftID] = f.Left.ID
	row[colFormOp] = string(f.Operator)
	row[colFormRightKind] = string(f.Right.Kind)
	row[colFormRightID] = f.Right.ID
	return row
}

// UnmarshalFormula converts a CSV row to a Formula.
func UnmarshalFormula(rec []string) (model.Formula, error) {
	if rec[colFormAcct] == "" {
		return model.Formula{}, fmt.Errorf("empty account_id")
	}
	return model.Formula{
		ID:        rec[colFormID],
		AccountID: rec[colFormAcct],
		Left:      model.Source{Kind: model.SourceKind(rec[colFormLeftKind]), ID: rec[colFormLeftID]},
		Operator:  model.Operator(rec[colFormOp]),
		Right:     model.Source{Kind: model.SourceKind(rec[colFormRightKind]), ID: rec[colFormRightID]},
	}, nil
}

// MarshalLink converts a CompanyAccount to a CSV row.
func MarshalLink(l model.CompanyAccount) []string {
	row := make([]string, len(LinksHeader))
	row[colLinkCompany] = l.CompanyID
	row[colLinkAcct] = l.AccountID
	row[colLinkActive] = strconv.FormatBool(l.Active)
	return row
}

// UnmarshalLink converts a CSV row to a CompanyAccount.
func UnmarshalLink(rec []string) (model.CompanyAccount, error) {
	active, err := parseBool("active", rec[colLinkActive])
	if err != nil {
		return model.CompanyAccount{}, err
	}
	return model.CompanyAccount{CompanyID: rec[colLinkCompany], AccountID: rec[colLinkAcct], Active: active}, nil
}

// MarshalIndicator converts an Indicator to a CSV row.
func MarshalIndicator(ind model.Indicator) []string {
	row := make([]string, len(IndicatorsHeader))
	row[colIndID] = ind.ID
	row[colIndName] = ind.Name
	row[colIndKind] = string(ind.Kind)
	row[colIndDataType] = string(ind.DataType)
	row[colIndActive] = strconv.FormatBool(ind.Active)
	return row
}

// UnmarshalIndicator converts a CSV row to an Indicator.
func UnmarshalIndicator(rec []string) (model.Indicator, error) {
	active, err := parseBool("active", rec[colIndActive])
	if err != nil {
		return model.Indicator{}, err
	}
	return model.Indicator{
		ID:       rec[colIndID],
		Name:     rec[colIndName],
		Kind:     model.IndicatorKind(rec[colIndKind]),
		DataType: model.DataType(rec[colIndDataType]),
		Active:   active,
	}, nil
}

// MarshalPart converts an IndicatorPart to a CSV row.
func MarshalPart(p model.IndicatorPart) []string {
	row := make([]string, len(PartsHeader))
	row[colPartInd] = p.IndicatorID
	row[colPartKind] = string(p.Source.Kind)
	row[colPartSrc] = p.Source.ID
	row[colPartSign] = string(p.Sign)
	return row
}

// UnmarshalPart converts a CSV row to an IndicatorPart.
func UnmarshalPart(rec []string) (model.IndicatorPart, error) {
	return model.IndicatorPart{
		IndicatorID: rec[colPartInd],
		Source:      model.Source{Kind: model.SourceKind(rec[colPartKind]), ID: rec[colPartSrc]},
		Sign:        model.Sign(rec[colPartSign]),
	}, nil
}

// MarshalEntry converts a LedgerEntry to a CSV row.
func MarshalEntry(e model.LedgerEntry) []string {
	row := make([]string, len(LedgerHeader))
	row[colEntryID] = e.ID
	row[colEntryComp] = e.CompanyID
	row[colEntryMonth] = strconv.Itoa(e.Period.Month)
	row[colEntryYear] = strconv.Itoa(e.Period.Year)
	row[colEntryKind] = string(e.Kind)
	row[colEntryAmt] = e.Amount.StringFixed(2)
	row[colEntryCat] = e.CategoryID
	row[colEntryInd] = e.IndicatorID
	row[colEntryDesc] = e.Description
	return row
}

// UnmarshalEntry converts a CSV row to a LedgerEntry.
func UnmarshalEntry(rec []string) (model.LedgerEntry, error) {
	month, err := strconv.Atoi(rec[colEntryMonth])
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("parsing month %q: %w", rec[colEntryMonth], err)
	}
	year, err := strconv.Atoi(rec[colEntryYear])
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("parsing year %q: %w", rec[colEntryYear], err)
	}
	p := period.New(month, year)
	if err := p.Validate(); err != nil {
		return model.LedgerEntry{}, err
	}

	kind := model.EntryKind(rec[colEntryKind])
	if !kind.Valid() {
		return model.LedgerEntry{}, fmt.Errorf("invalid kind %q", rec[colEntryKind])
	}
	amount, err := decimal.NewFromString(rec[colEntryAmt])
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("parsing amount %q: %w", rec[colEntryAmt], err)
	}

	return model.LedgerEntry{
		ID:          rec[colEntryID],
		CompanyID:   rec[colEntryComp],
		Period:      p,
		Kind:        kind,
		Amount:      amount,
		CategoryID:  rec[colEntryCat],
		IndicatorID: rec[colEntryInd],
		Description: rec[colEntryDesc],
	}, nil
}

// ReadEntries reads a ledger.csv table.
func ReadEntries(r io.Reader) ([]model.LedgerEntry, error) {
	return readTable(r, LedgerHeader, UnmarshalEntry)
}

// WriteEntries writes a ledger.csv table including its header.
func WriteEntries(w io.Writer, entries []model.LedgerEntry) error {
	return writeTable(w, LedgerHeader, entries, MarshalEntry)
}
