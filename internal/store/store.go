// Package store defines the read-only data-access contract of the DRE engine.
package store

import (
	"context"
	"errors"
	"sort"

	"github.com/dre-dev/dre/internal/model"
	"github.com/dre-dev/dre/internal/period"
)

// ErrNotFound is returned when a requested account or formula does not exist.
var ErrNotFound = errors.New("not found")

// Store is everything the engine reads. Implementations must be safe for
// concurrent use.
type Store interface {
	// Account returns the account with id, or ErrNotFound.
	Account(ctx context.Context, id string) (model.Account, error)
	// ChildAccounts returns the active direct children of parentID.
	ChildAccounts(ctx context.Context, parentID string) ([]model.Account, error)
	// RootAccounts returns the active root accounts a company reports on.
	RootAccounts(ctx context.Context, companyID string) ([]model.Account, error)
	// Accounts returns every configured account, active or not.
	Accounts(ctx context.Context) ([]model.Account, error)
	// Components returns the components of an account.
	Components(ctx context.Context, accountID string) ([]model.Component, error)
	// Formula returns the formula of an account, or ErrNotFound.
	Formula(ctx context.Context, accountID string) (model.Formula, error)
	// IndicatorParts returns the parts of a composite indicator (empty for
	// plain indicators).
	IndicatorParts(ctx context.Context, indicatorID string) ([]model.IndicatorPart, error)
	// LedgerEntries returns all entries of a company in one period.
	LedgerEntries(ctx context.Context, companyID string, p period.Period) ([]model.LedgerEntry, error)
}

// SortAccounts orders accounts by display order, then ID.
func SortAccounts(accounts []model.Account) {
	sort.SliceStable(accounts, func(i, j int) bool {
		if accounts[i].Order != accounts[j].Order {
			return accounts[i].Order < accounts[j].Order
		}
		return accounts[i].ID < accounts[j].ID
	})
}

// ApplicableRoots filters roots by a company's account links. A company
// without any links reports on every active root.
func ApplicableRoots(roots []model.Account, links []model.CompanyAccount, companyID string) []model.Account {
	linked := make(map[string]bool)
	hasLinks := false
	for _, l := range links {
		if l.CompanyID != companyID {
			continue
		}
		hasLinks = true
		if l.Active {
			linked[l.AccountID] = true
		}
	}

	var result []model.Account
	for _, a := range roots {
		if !a.Active || !a.IsRoot() {
			continue
		}
		if hasLinks && !linked[a.ID] {
			continue
		}
		result = append(result, a)
	}
	SortAccounts(result)
	return result
}
