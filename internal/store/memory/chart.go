package memory

import (
	"context"

	"github.com/dre-dev/dre/internal/model"
	"github.com/dre-dev/dre/internal/store"
)

var _ store.IndicatorLister = (*Store)(nil)

// FromChart returns a Store holding the configuration in c.
func FromChart(c store.Chart) *Store {
	s := New()
	for _, a := range c.Accounts {
		s.AddAccount(a)
	}
	for _, comp := range c.Components {
		s.AddComponent(comp)
	}
	for _, f := range c.Formulas {
		s.SetFormula(f)
	}
	for _, l := range c.Links {
		s.LinkCompany(l)
	}
	for _, ind := range c.Indicators {
		s.AddIndicator(ind)
	}
	for _, p := range c.Parts {
		s.AddIndicatorPart(p)
	}
	return s
}

// AddIndicator adds an indicator to the catalog.
func (s *Store) AddIndicator(ind model.Indicator) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indicators = append(s.indicators, ind)
	return s
}

// Indicators implements store.IndicatorLister.
func (s *Store) Indicators(_ context.Context) ([]model.Indicator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Fail != nil {
		return nil, s.Fail
	}
	return append([]model.Indicator(nil), s.indicators...), nil
}
