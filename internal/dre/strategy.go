package dre

import (
	"context"
	"errors"

	"github.com/dre-dev/dre/internal/model"
	"github.com/dre-dev/dre/internal/store"
)

type strategyKind int

const (
	strategyZero strategyKind = iota
	strategyRollup
	strategyComponents
	strategyFormula
)

func (k strategyKind) String() string {
	switch k {
	case strategyRollup:
		return "rollup"
	case strategyComponents:
		return "components"
	case strategyFormula:
		return "formula"
	}
	return "zero"
}

// strategy is how one account is valued. Exactly one of the payload fields
// is set, according to kind.
type strategy struct {
	kind       strategyKind
	account    model.Account
	children   []model.Account
	components []model.Component
	formula    model.Formula
}

// loadStrategy reads an account's configuration and picks its valuation by
// precedence: children, then components, then formula. Missing or inactive
// accounts value as zero.
func loadStrategy(ctx context.Context, s store.Store, id string) (*strategy, error) {
	acct, err := s.Account(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return &strategy{kind: strategyZero}, nil
	}
	if err != nil {
		return nil, dataErr("account", id, err)
	}
	if !acct.Active {
		return &strategy{kind: strategyZero, account: acct}, nil
	}

	children, err := s.ChildAccounts(ctx, id)
	if err != nil {
		return nil, dataErr("child accounts", id, err)
	}
	if len(children) > 0 {
		return &strategy{kind: strategyRollup, account: acct, children: children}, nil
	}

	components, err := s.Components(ctx, id)
	if err != nil {
		return nil, dataErr("components", id, err)
	}
	if len(components) > 0 {
		return &strategy{kind: strategyComponents, account: acct, components: components}, nil
	}

	f, err := s.Formula(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return &strategy{kind: strategyZero, account: acct}, nil
	}
	if err != nil {
		return nil, dataErr("formula", id, err)
	}
	return &strategy{kind: strategyFormula, account: acct, formula: f}, nil
}
