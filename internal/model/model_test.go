package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLedgerEntrySigned(t *testing.T) {
	amount := decimal.RequireFromString("150.25")

	in := LedgerEntry{Kind: EntryInflow, Amount: amount}
	out := LedgerEntry{Kind: EntryOutflow, Amount: amount}

	assert.True(t, in.Signed().Equal(amount))
	assert.True(t, out.Signed().Equal(amount.Neg()))

	unknown := LedgerEntry{Kind: EntryKind("transferencia"), Amount: amount}
	assert.True(t, unknown.Signed().Equal(amount.Neg()), "only inflows add")
}

func TestLedgerEntryMatches(t *testing.T) {
	e := LedgerEntry{CategoryID: "c1"}
	assert.True(t, e.Matches(SourceCategory, "c1"))
	assert.False(t, e.Matches(SourceCategory, "c2"))
	assert.False(t, e.Matches(SourceIndicator, "c1"))
	assert.False(t, e.Matches(SourceAccount, "c1"))

	empty := LedgerEntry{}
	assert.False(t, empty.Matches(SourceCategory, ""), "untagged entries never match")
}

func TestValidators(t *testing.T) {
	assert.True(t, SignResult.Valid())
	assert.False(t, Sign("*").Valid())

	assert.True(t, OpDiv.Valid())
	assert.False(t, Operator("%").Valid())

	assert.True(t, SourceAccount.Valid())
	assert.False(t, SourceKind("empresa").Valid())

	assert.True(t, EntryOutflow.Valid())
	assert.False(t, EntryKind("transferencia").Valid())
}

func TestAccountIsRoot(t *testing.T) {
	assert.True(t, Account{ID: "a"}.IsRoot())
	assert.False(t, Account{ID: "b", ParentID: "a"}.IsRoot())
}
