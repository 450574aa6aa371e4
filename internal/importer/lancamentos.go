package importer

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dre-dev/dre/internal/model"
	"github.com/dre-dev/dre/internal/period"
	"github.com/dre-dev/dre/internal/store/filestore"
)

// LancamentosParser parses lançamentos table exports. Columns are found by
// header name; the delimiter is ";" when the header contains one and ","
// otherwise. Amounts may use Brazilian formatting ("1.234,56").
type LancamentosParser struct{}

const (
	lancCompany     = "empresa_id"
	lancMonth       = "mes"
	lancYear        = "ano"
	lancKind        = "tipo"
	lancAmount      = "valor"
	lancCategory    = "categoria_id"
	lancIndicator   = "indicador_id"
	lancDescription = "descricao"
)

var lancRequired = []string{lancMonth, lancYear, lancKind, lancAmount}

// Format returns the parser name.
func (p *LancamentosParser) Format() string { return "lancamentos" }

// Parse reads a lançamentos export.
func (p *LancamentosParser) Parse(r io.Reader, companyID string) ([]model.LedgerEntry, error) {
	br := bufio.NewReader(r)
	first, err := br.Peek(br.Size())
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading lancamentos CSV: %w", err)
	}

	cr := csv.NewReader(br)
	if line, _, _ := strings.Cut(string(first), "\n"); strings.Contains(line, ";") {
		cr.Comma = ';'
	}
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading lancamentos CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	cols := make(map[string]int)
	for i, h := range records[0] {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, name := range lancRequired {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var entries []model.LedgerEntry
	for i, rec := range records[1:] {
		e, err := parseLancamento(rec, cols, companyID)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func parseLancamento(rec []string, cols map[string]int, companyID string) (model.LedgerEntry, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	month, err := strconv.Atoi(field(lancMonth))
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("parsing month %q: %w", field(lancMonth), err)
	}
	year, err := strconv.Atoi(field(lancYear))
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("parsing year %q: %w", field(lancYear), err)
	}
	p := period.New(month, year)
	if err := p.Validate(); err != nil {
		return model.LedgerEntry{}, err
	}

	kind := model.EntryKind(strings.ToLower(field(lancKind)))
	if !kind.Valid() {
		return model.LedgerEntry{}, fmt.Errorf("unknown kind %q", field(lancKind))
	}

	amount, err := ParseAmount(field(lancAmount))
	if err != nil {
		return model.LedgerEntry{}, err
	}

	e := model.LedgerEntry{
		CompanyID:   field(lancCompany),
		Period:      p,
		Kind:        kind,
		Amount:      amount,
		CategoryID:  field(lancCategory),
		IndicatorID: field(lancIndicator),
		Description: field(lancDescription),
	}
	if e.CompanyID == "" {
		e.CompanyID = companyID
	}
	if e.CompanyID == "" {
		return model.LedgerEntry{}, fmt.Errorf("no company")
	}
	if e.CategoryID != "" && e.IndicatorID != "" {
		return model.LedgerEntry{}, fmt.Errorf("both categoria_id and indicador_id set")
	}
	return e, nil
}

var (
	// Digits with "." grouping thousands, e.g. "12.345.678".
	groupedInt = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)
	plainInt   = regexp.MustCompile(`^\d+$`)
	// A lone "." followed by exactly three digits, e.g. "1.234".
	ambiguousDot = regexp.MustCompile(`^\d{1,3}\.\d{3}$`)
)

// ParseAmount parses amounts in "1234.56", "1234,56", "1.234,56" or
// "12.345.678" form, optionally prefixed by "R$". "," is only accepted as
// the decimal separator; a single "." followed by three digits ("1.234") is
// ambiguous and rejected. At most two decimal places are allowed and
// negative amounts are rejected; direction comes from the entry kind.
func ParseAmount(s string) (decimal.Decimal, error) {
	v := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "R$"))

	if intPart, frac, ok := strings.Cut(v, ","); ok {
		if strings.ContainsAny(frac, ".,") {
			return decimal.Decimal{}, fmt.Errorf("invalid amount %q: \",\" must be the last separator", s)
		}
		if !plainInt.MatchString(intPart) && !groupedInt.MatchString(intPart) {
			return decimal.Decimal{}, fmt.Errorf("invalid amount %q: bad thousands grouping", s)
		}
		v = strings.ReplaceAll(intPart, ".", "") + "." + frac
	} else if ambiguousDot.MatchString(v) {
		return decimal.Decimal{}, fmt.Errorf("ambiguous amount %q: write 1234 or 1.234,00", s)
	} else if groupedInt.MatchString(v) {
		v = strings.ReplaceAll(v, ".", "")
	}

	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("negative amount %q", s)
	}
	if d.Exponent() < -2 {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q: more than two decimal places", s)
	}
	return d, nil
}

// LedgerParser reads files already in the ledger layout, as written by
// the file store.
type LedgerParser struct{}

// Format returns the parser name.
func (p *LedgerParser) Format() string { return "ledger" }

// Parse reads ledger rows. Ids are dropped so the destination numbers them.
func (p *LedgerParser) Parse(r io.Reader, companyID string) ([]model.LedgerEntry, error) {
	entries, err := filestore.ReadEntries(r)
	if err != nil {
		return nil, fmt.Errorf("reading ledger CSV: %w", err)
	}
	for i := range entries {
		entries[i].ID = ""
		if entries[i].CompanyID == "" {
			entries[i].CompanyID = companyID
		}
	}
	return entries, nil
}
