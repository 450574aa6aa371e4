package model

import (
	"github.com/shopspring/decimal"

	"github.com/dre-dev/dre/internal/period"
)

// EntryKind is the direction of a ledger entry.
type EntryKind string

const (
	EntryInflow  EntryKind = "receita"
	EntryOutflow EntryKind = "despesa"
)

// Valid reports whether k is a known entry kind.
func (k EntryKind) Valid() bool {
	return k == EntryInflow || k == EntryOutflow
}

// LedgerEntry is one recorded transaction (lançamento) of a company.
type LedgerEntry struct {
	ID          string
	CompanyID   string
	Period      period.Period
	Kind        EntryKind
	Amount      decimal.Decimal
	CategoryID  string // at most one of CategoryID / IndicatorID is set
	IndicatorID string
	Description string
}

// Signed returns the entry's contribution to an aggregate: +Amount for
// inflows, -Amount for anything else.
func (e LedgerEntry) Signed() decimal.Decimal {
	if e.Kind == EntryInflow {
		return e.Amount
	}
	return e.Amount.Neg()
}

// Matches reports whether the entry is tagged with the given reference.
func (e LedgerEntry) Matches(kind SourceKind, id string) bool {
	switch kind {
	case SourceCategory:
		return e.CategoryID != "" && e.CategoryID == id
	case SourceIndicator:
		return e.IndicatorID != "" && e.IndicatorID == id
	}
	return false
}
