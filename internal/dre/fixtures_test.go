package dre

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/dre-dev/dre/internal/model"
	"github.com/dre-dev/dre/internal/period"
	"github.com/dre-dev/dre/internal/store/memory"
)

const company = "emp-1"

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

func acct(id, parent string, order int) model.Account {
	return model.Account{
		ID:       id,
		Name:     "Conta " + id,
		Order:    order,
		Sign:     model.SignPlus,
		ParentID: parent,
		Active:   true,
		Visible:  true,
	}
}

func category(id string) model.Source  { return model.Source{Kind: model.SourceCategory, ID: id} }
func indicator(id string) model.Source { return model.Source{Kind: model.SourceIndicator, ID: id} }
func account(id string) model.Source   { return model.Source{Kind: model.SourceAccount, ID: id} }

func component(accountID string, src model.Source, sign model.Sign) model.Component {
	return model.Component{ID: accountID + "-" + src.ID, AccountID: accountID, Source: src, Sign: sign}
}

func entry(kind model.EntryKind, amount string, categoryID string, month, year int) model.LedgerEntry {
	return model.LedgerEntry{
		CompanyID:  company,
		Period:     period.New(month, year),
		Kind:       kind,
		Amount:     dec(amount),
		CategoryID: categoryID,
	}
}

// resultStore is P = A + Q, where A is 1000.00 of sales and Q is 200.00 of
// rent, all in 03-2024.
func resultStore() *memory.Store {
	return memory.New().
		AddAccount(acct("P", "", 1)).
		AddAccount(acct("A", "P", 1)).
		AddAccount(acct("Q", "P", 2)).
		AddComponent(component("A", category("vendas"), model.SignPlus)).
		AddComponent(component("Q", category("aluguel"), model.SignPlus)).
		AddEntry(entry(model.EntryInflow, "1000.00", "vendas", 3, 2024)).
		AddEntry(entry(model.EntryOutflow, "200.00", "aluguel", 3, 2024))
}
