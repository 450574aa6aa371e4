package dre

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dre-dev/dre/internal/model"
)

// resolveIndicator values an indicator directly from the ledger, or through
// its parts when it is a configured composite.
func (r *Resolver) resolveIndicator(ctx context.Context, id string, c Context, p *path) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}

	node := indicatorNode(id)
	if p.contains(node) {
		r.warnCycle(ctx, node, c, p)
		return decimal.Zero, nil
	}

	key := nodeKey{node: node, company: c.CompanyID, period: c.Period}
	if v, ok := r.cached(key); ok {
		return v, nil
	}

	parts, err := r.indicatorParts(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}

	var v decimal.Decimal
	if len(parts) == 0 {
		v, err = r.ledger.SumEntries(ctx, id, model.SourceIndicator, c.ledgerKey())
		if err != nil {
			return decimal.Zero, dataErr("ledger entries", c.ledgerKey().String(), err)
		}
	} else {
		p = p.push(node)
		v, err = r.sum(ctx, len(parts), func(ctx context.Context, i int) (decimal.Decimal, error) {
			pv, err := r.sourceValue(ctx, parts[i].Source, c, p)
			if err != nil {
				return decimal.Zero, err
			}
			return applySign(parts[i].Sign, pv), nil
		})
		if err != nil {
			return decimal.Zero, err
		}
	}

	r.remember(key, v)
	return v, nil
}

func (r *Resolver) indicatorParts(ctx context.Context, id string) ([]model.IndicatorPart, error) {
	r.mu.Lock()
	parts, ok := r.parts[id]
	r.mu.Unlock()
	if ok {
		return parts, nil
	}

	parts, err := r.store.IndicatorParts(ctx, id)
	if err != nil {
		return nil, dataErr("indicator parts", id, err)
	}
	if parts == nil {
		parts = []model.IndicatorPart{}
	}

	r.mu.Lock()
	r.parts[id] = parts
	r.mu.Unlock()
	return parts, nil
}
