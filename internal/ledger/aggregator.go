// Package ledger sums signed ledger entries per category or indicator.
package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/dre-dev/dre/internal/model"
	"github.com/dre-dev/dre/internal/period"
)

// EntryReader loads the ledger entries of one company in one period.
type EntryReader interface {
	LedgerEntries(ctx context.Context, companyID string, p period.Period) ([]model.LedgerEntry, error)
}

// Key scopes a set of ledger entries.
type Key struct {
	CompanyID string
	Period    period.Period
}

func (k Key) String() string {
	return k.CompanyID + "/" + k.Period.Key()
}

// Aggregator caches the entry set of every key it has seen, so repeated
// lookups in the same period cost one fetch. An Aggregator belongs to a
// single report computation; it never expires entries.
type Aggregator struct {
	reader EntryReader
	group  singleflight.Group

	mu      sync.RWMutex
	entries map[Key][]model.LedgerEntry
	fetches int
}

// NewAggregator returns an Aggregator reading through r.
func NewAggregator(r EntryReader) *Aggregator {
	return &Aggregator{
		reader:  r,
		entries: make(map[Key][]model.LedgerEntry),
	}
}

// Entries returns the cached entry set for key, fetching it on first use.
// Concurrent callers for the same key share one fetch. Failed fetches are
// not cached.
func (a *Aggregator) Entries(ctx context.Context, key Key) ([]model.LedgerEntry, error) {
	a.mu.RLock()
	cached, ok := a.entries[key]
	a.mu.RUnlock()
	if ok {
		return cached, nil
	}

	ch := a.group.DoChan(key.String(), func() (any, error) {
		a.mu.RLock()
		cached, ok := a.entries[key]
		a.mu.RUnlock()
		if ok {
			return cached, nil
		}

		entries, err := a.reader.LedgerEntries(ctx, key.CompanyID, key.Period)
		if err != nil {
			return nil, fmt.Errorf("fetching ledger entries for %s: %w", key, err)
		}
		if entries == nil {
			entries = []model.LedgerEntry{}
		}

		a.mu.Lock()
		a.entries[key] = entries
		a.fetches++
		a.mu.Unlock()
		return entries, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]model.LedgerEntry), nil
	}
}

// SumEntries returns the signed sum of the entries of key tagged with the
// given category or indicator.
func (a *Aggregator) SumEntries(ctx context.Context, refID string, kind model.SourceKind, key Key) (decimal.Decimal, error) {
	entries, err := a.Entries(ctx, key)
	if err != nil {
		return decimal.Zero, err
	}
	return Sum(entries, kind, refID), nil
}

// Fetches returns how many entry sets were loaded from the reader.
func (a *Aggregator) Fetches() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.fetches
}

// Sum reduces entries matching kind/id with the signed-sum rule.
func Sum(entries []model.LedgerEntry, kind model.SourceKind, id string) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.Matches(kind, id) {
			total = total.Add(e.Signed())
		}
	}
	return total
}
