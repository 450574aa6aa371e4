package dre

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dre-dev/dre/internal/model"
)

// evaluateFormula resolves both operands and applies the operator.
func (r *Resolver) evaluateFormula(ctx context.Context, f model.Formula, c Context, p *path) (decimal.Decimal, error) {
	if !f.Operator.Valid() {
		r.warn(ctx, Warning{
			Kind:    WarningOperator,
			Node:    accountNode(f.AccountID),
			Period:  c.Period.Key(),
			Message: "unknown formula operator " + string(f.Operator) + ", valued as zero",
		})
		return decimal.Zero, nil
	}

	operands := [2]model.Source{f.Left, f.Right}
	var values [2]decimal.Decimal
	err := r.each(ctx, len(operands), func(ctx context.Context, i int) error {
		v, err := r.sourceValue(ctx, operands[i], c, p)
		if err != nil {
			return err
		}
		values[i] = v
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	return Apply(f.Operator, values[0], values[1]), nil
}

// Apply computes left <op> right. Division by zero yields zero, as does an
// unknown operator.
func Apply(op model.Operator, left, right decimal.Decimal) decimal.Decimal {
	switch op {
	case model.OpAdd:
		return left.Add(right)
	case model.OpSub:
		return left.Sub(right)
	case model.OpMul:
		return left.Mul(right)
	case model.OpDiv:
		if right.IsZero() {
			return decimal.Zero
		}
		return left.Div(right)
	}
	return decimal.Zero
}
