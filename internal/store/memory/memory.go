// Package memory is an in-memory Store, used for fixtures and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dre-dev/dre/internal/model"
	"github.com/dre-dev/dre/internal/period"
	"github.com/dre-dev/dre/internal/store"
)

// Store holds DRE configuration and ledger entries in maps.
type Store struct {
	mu         sync.RWMutex
	accounts   []model.Account
	byID       map[string]model.Account
	components map[string][]model.Component
	formulas   map[string]model.Formula
	parts      map[string][]model.IndicatorPart
	links      []model.CompanyAccount
	indicators []model.Indicator
	entries    map[entryKey][]model.LedgerEntry

	// Fail, when set, is returned by every read. Tests use it to simulate an
	// unreachable database.
	Fail error
	// Calls counts LedgerEntries reads.
	Calls int
}

type entryKey struct {
	company string
	period  period.Period
}

var _ store.Store = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{
		byID:       make(map[string]model.Account),
		components: make(map[string][]model.Component),
		formulas:   make(map[string]model.Formula),
		parts:      make(map[string][]model.IndicatorPart),
		entries:    make(map[entryKey][]model.LedgerEntry),
	}
}

// AddAccount adds or replaces an account.
func (s *Store) AddAccount(a model.Account) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[a.ID]; ok {
		for i := range s.accounts {
			if s.accounts[i].ID == a.ID {
				s.accounts[i] = a
			}
		}
	} else {
		s.accounts = append(s.accounts, a)
	}
	s.byID[a.ID] = a
	return s
}

// AddComponent appends a component to its account.
func (s *Store) AddComponent(c model.Component) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.components[c.AccountID] = append(s.components[c.AccountID], c)
	return s
}

// SetFormula sets the formula of an account.
func (s *Store) SetFormula(f model.Formula) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.formulas[f.AccountID] = f
	return s
}

// AddIndicatorPart appends a part to a composite indicator.
func (s *Store) AddIndicatorPart(p model.IndicatorPart) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parts[p.IndicatorID] = append(s.parts[p.IndicatorID], p)
	return s
}

// LinkCompany links a root account to a company.
func (s *Store) LinkCompany(l model.CompanyAccount) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links = append(s.links, l)
	return s
}

// AddEntry records a ledger entry.
func (s *Store) AddEntry(e model.LedgerEntry) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := entryKey{company: e.CompanyID, period: e.Period}
	s.entries[k] = append(s.entries[k], e)
	return s
}

// Account implements store.Store.
func (s *Store) Account(_ context.Context, id string) (model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Fail != nil {
		return model.Account{}, s.Fail
	}
	a, ok := s.byID[id]
	if !ok {
		return model.Account{}, fmt.Errorf("account %s: %w", id, store.ErrNotFound)
	}
	return a, nil
}

// ChildAccounts implements store.Store.
func (s *Store) ChildAccounts(_ context.Context, parentID string) ([]model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Fail != nil {
		return nil, s.Fail
	}
	var result []model.Account
	for _, a := range s.accounts {
		if a.ParentID == parentID && a.Active && parentID != "" {
			result = append(result, a)
		}
	}
	store.SortAccounts(result)
	return result, nil
}

// RootAccounts implements store.Store.
func (s *Store) RootAccounts(_ context.Context, companyID string) ([]model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Fail != nil {
		return nil, s.Fail
	}
	return store.ApplicableRoots(s.accounts, s.links, companyID), nil
}

// Accounts implements store.Store.
func (s *Store) Accounts(_ context.Context) ([]model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Fail != nil {
		return nil, s.Fail
	}
	result := make([]model.Account, len(s.accounts))
	copy(result, s.accounts)
	store.SortAccounts(result)
	return result, nil
}

// Components implements store.Store.
func (s *Store) Components(_ context.Context, accountID string) ([]model.Component, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Fail != nil {
		return nil, s.Fail
	}
	return append([]model.Component(nil), s.components[accountID]...), nil
}

// Formula implements store.Store.
func (s *Store) Formula(_ context.Context, accountID string) (model.Formula, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Fail != nil {
		return model.Formula{}, s.Fail
	}
	f, ok := s.formulas[accountID]
	if !ok {
		return model.Formula{}, fmt.Errorf("formula of %s: %w", accountID, store.ErrNotFound)
	}
	return f, nil
}

// IndicatorParts implements store.Store.
func (s *Store) IndicatorParts(_ context.Context, indicatorID string) ([]model.IndicatorPart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Fail != nil {
		return nil, s.Fail
	}
	return append([]model.IndicatorPart(nil), s.parts[indicatorID]...), nil
}

// LedgerEntries implements store.Store.
func (s *Store) LedgerEntries(_ context.Context, companyID string, p period.Period) ([]model.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++
	if s.Fail != nil {
		return nil, s.Fail
	}
	return append([]model.LedgerEntry(nil), s.entries[entryKey{company: companyID, period: p}]...), nil
}
