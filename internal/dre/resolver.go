package dre

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/dre-dev/dre/internal/ledger"
	"github.com/dre-dev/dre/internal/log"
	"github.com/dre-dev/dre/internal/model"
	"github.com/dre-dev/dre/internal/store"
)

// Resolver values accounts and indicators. It memoizes every value and
// account configuration it reads, so one Resolver must serve exactly one
// report computation: create a new one when the underlying data may have
// changed.
type Resolver struct {
	store  store.Store
	ledger *ledger.Aggregator
	fanOut bool
	logger *log.Logger

	mu         sync.Mutex
	values     map[nodeKey]decimal.Decimal
	strategies map[string]*strategy
	parts      map[string][]model.IndicatorPart
	warnings   map[string]Warning
}

// NewResolver returns a Resolver over s. With fanOut set, sibling accounts,
// components and formula operands are evaluated concurrently.
func NewResolver(s store.Store, fanOut bool, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.Nop()
	}
	return &Resolver{
		store:      s,
		ledger:     ledger.NewAggregator(s),
		fanOut:     fanOut,
		logger:     logger.WithComponent(log.ComponentEngine),
		values:     make(map[nodeKey]decimal.Decimal),
		strategies: make(map[string]*strategy),
		parts:      make(map[string][]model.IndicatorPart),
		warnings:   make(map[string]Warning),
	}
}

// ResolveAccountValue returns the value of an account in c.
func (r *Resolver) ResolveAccountValue(ctx context.Context, accountID string, c Context) (decimal.Decimal, error) {
	return r.resolveAccount(ctx, accountID, c, nil)
}

// Warnings returns the configuration warnings collected so far, ordered by
// period and node.
func (r *Resolver) Warnings() []Warning {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Warning, 0, len(r.warnings))
	for _, w := range r.warnings {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Period != out[j].Period {
			return out[i].Period < out[j].Period
		}
		if out[i].Node != out[j].Node {
			return out[i].Node < out[j].Node
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// LedgerFetches returns how many ledger entry sets were read from the store.
func (r *Resolver) LedgerFetches() int {
	return r.ledger.Fetches()
}

func (r *Resolver) resolveAccount(ctx context.Context, id string, c Context, p *path) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}

	node := accountNode(id)
	if p.contains(node) {
		r.warnCycle(ctx, node, c, p)
		return decimal.Zero, nil
	}

	key := nodeKey{node: node, company: c.CompanyID, period: c.Period}
	if v, ok := r.cached(key); ok {
		return v, nil
	}

	st, err := r.strategy(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}

	p = p.push(node)
	var v decimal.Decimal
	switch st.kind {
	case strategyRollup:
		v, err = r.sum(ctx, len(st.children), func(ctx context.Context, i int) (decimal.Decimal, error) {
			return r.resolveAccount(ctx, st.children[i].ID, c, p)
		})
	case strategyComponents:
		v, err = r.sum(ctx, len(st.components), func(ctx context.Context, i int) (decimal.Decimal, error) {
			comp := st.components[i]
			cv, err := r.sourceValue(ctx, comp.Source, c, p)
			if err != nil {
				return decimal.Zero, err
			}
			return applySign(comp.Sign, cv), nil
		})
	case strategyFormula:
		v, err = r.evaluateFormula(ctx, st.formula, c, p)
	default:
		v = decimal.Zero
	}
	if err != nil {
		return decimal.Zero, err
	}

	r.remember(key, v)
	return v, nil
}

// sourceValue dispatches a typed reference.
func (r *Resolver) sourceValue(ctx context.Context, src model.Source, c Context, p *path) (decimal.Decimal, error) {
	switch src.Kind {
	case model.SourceAccount:
		return r.resolveAccount(ctx, src.ID, c, p)
	case model.SourceIndicator:
		return r.resolveIndicator(ctx, src.ID, c, p)
	case model.SourceCategory:
		v, err := r.ledger.SumEntries(ctx, src.ID, model.SourceCategory, c.ledgerKey())
		if err != nil {
			return decimal.Zero, dataErr("ledger entries", c.ledgerKey().String(), err)
		}
		return v, nil
	}
	r.warn(ctx, Warning{
		Kind:    WarningSource,
		Node:    src.String(),
		Period:  c.Period.Key(),
		Message: "unknown source kind, valued as zero",
	})
	return decimal.Zero, nil
}

// sum evaluates n terms and adds them.
func (r *Resolver) sum(ctx context.Context, n int, term func(context.Context, int) (decimal.Decimal, error)) (decimal.Decimal, error) {
	results := make([]decimal.Decimal, n)
	err := r.each(ctx, n, func(ctx context.Context, i int) error {
		v, err := term(ctx, i)
		if err != nil {
			return err
		}
		results[i] = v
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, v := range results {
		total = total.Add(v)
	}
	return total, nil
}

// each runs fn for 0..n-1, concurrently when fan-out is on, and returns the
// first error.
func (r *Resolver) each(ctx context.Context, n int, fn func(context.Context, int) error) error {
	if !r.fanOut || n < 2 {
		for i := 0; i < n; i++ {
			if err := fn(ctx, i); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			return fn(gctx, i)
		})
	}
	return g.Wait()
}

func (r *Resolver) strategy(ctx context.Context, id string) (*strategy, error) {
	r.mu.Lock()
	st, ok := r.strategies[id]
	r.mu.Unlock()
	if ok {
		return st, nil
	}

	st, err := loadStrategy(ctx, r.store, id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if prev, ok := r.strategies[id]; ok {
		st = prev
	} else {
		r.strategies[id] = st
	}
	r.mu.Unlock()
	return st, nil
}

func (r *Resolver) cached(key nodeKey) (decimal.Decimal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.values[key]
	return v, ok
}

func (r *Resolver) remember(key nodeKey, v decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = v
}

func (r *Resolver) warnCycle(ctx context.Context, node string, c Context, p *path) {
	r.warn(ctx, Warning{
		Kind:    WarningCycle,
		Node:    node,
		Period:  c.Period.Key(),
		Path:    append(p.nodes(), node),
		Message: "reference cycle, revisited node valued as zero",
	})
}

func (r *Resolver) warn(ctx context.Context, w Warning) {
	k := string(w.Kind) + "|" + w.Node + "|" + w.Period
	r.mu.Lock()
	_, seen := r.warnings[k]
	if !seen {
		r.warnings[k] = w
	}
	r.mu.Unlock()
	if !seen {
		r.logger.WarnContext(ctx, "configuration warning",
			"kind", string(w.Kind),
			"node", w.Node,
			log.FieldPeriod, w.Period,
			log.FieldPath, w.Path)
	}
}

// applySign adds a term with sign "+" and subtracts it otherwise.
func applySign(sign model.Sign, v decimal.Decimal) decimal.Decimal {
	if sign == model.SignPlus {
		return v
	}
	return v.Neg()
}
