package dre

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/dre-dev/dre/internal/log"
	"github.com/dre-dev/dre/internal/model"
	"github.com/dre-dev/dre/internal/period"
	"github.com/dre-dev/dre/internal/store"
)

// ErrNoCompany is returned when a report is requested without a company.
var ErrNoCompany = errors.New("company id is required")

var hundred = decimal.NewFromInt(100)

// Options tune report computation.
type Options struct {
	// Window is the number of months per report, ending at the report month.
	Window int
	// Concurrency bounds how many periods are computed at once. Above 1 the
	// resolver also fans out across siblings and formula operands.
	Concurrency int
	Logger      *log.Logger
}

// DefaultOptions returns a 13-month window computed sequentially.
func DefaultOptions() Options {
	return Options{Window: period.DefaultWindow, Concurrency: 1}
}

// Engine computes DRE reports from a store.
type Engine struct {
	store  store.Store
	opts   Options
	logger *log.Logger
}

// NewEngine creates an Engine. Zero option fields take their defaults.
func NewEngine(s store.Store, opts Options) *Engine {
	def := DefaultOptions()
	if opts.Window <= 0 {
		opts.Window = def.Window
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = def.Concurrency
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{store: s, opts: opts, logger: logger.WithComponent(log.ComponentEngine)}
}

// NewResolver returns a fresh Resolver with the engine's settings.
func (e *Engine) NewResolver() *Resolver {
	return NewResolver(e.store, e.opts.Concurrency > 1, e.logger)
}

// Line is one computed account of the report tree.
type Line struct {
	AccountID  string                     `json:"account_id"`
	Name       string                     `json:"name"`
	Order      int                        `json:"order"`
	Sign       model.Sign                 `json:"sign"`
	Values     map[string]decimal.Decimal `json:"values"`
	Trailing12 decimal.Decimal            `json:"trailing_12"`
	Variation  decimal.Decimal            `json:"variation_pct"`
	Children   []*Line                    `json:"children,omitempty"`

	visible bool
}

// Value returns the line's value in p.
func (l *Line) Value(p period.Period) decimal.Decimal {
	return l.Values[p.Key()]
}

// Report is the DRE of one company over a window of months.
type Report struct {
	CompanyID string          `json:"company_id"`
	Period    period.Period   `json:"period"`
	Periods   []period.Period `json:"periods"`
	Lines     []*Line         `json:"lines"`
	Warnings  []Warning       `json:"warnings,omitempty"`
}

// Find returns the line of an account, searching the whole tree.
func (r *Report) Find(accountID string) *Line {
	var walk func(lines []*Line) *Line
	walk = func(lines []*Line) *Line {
		for _, l := range lines {
			if l.AccountID == accountID {
				return l
			}
			if found := walk(l.Children); found != nil {
				return found
			}
		}
		return nil
	}
	return walk(r.Lines)
}

// Count returns the number of lines in the tree.
func (r *Report) Count() int {
	var count func(lines []*Line) int
	count = func(lines []*Line) int {
		n := len(lines)
		for _, l := range lines {
			n += count(l.Children)
		}
		return n
	}
	return count(r.Lines)
}

// ComputeReport values every account applicable to the company over the
// window ending at month/year. Accounts hidden from display are still
// computed and feed their parents, but are left out of the returned tree.
// Any store failure aborts the report; no partial report is returned.
func (e *Engine) ComputeReport(ctx context.Context, companyID string, month, year int) (*Report, error) {
	if companyID == "" {
		return nil, ErrNoCompany
	}
	end := period.New(month, year)
	if err := end.Validate(); err != nil {
		return nil, fmt.Errorf("report period: %w", err)
	}

	start := time.Now()
	periods := period.Window(month, year, e.opts.Window)
	res := e.NewResolver()

	roots, err := e.store.RootAccounts(ctx, companyID)
	if err != nil {
		return nil, dataErr("root accounts", companyID, err)
	}

	lines, flat, err := e.buildTree(ctx, res, roots, companyID, end)
	if err != nil {
		return nil, err
	}

	// values[i][j] is flat[j] in periods[i]; each goroutine owns one row.
	values := make([][]decimal.Decimal, len(periods))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for i, p := range periods {
		g.Go(func() error {
			row := make([]decimal.Decimal, len(flat))
			c := Context{CompanyID: companyID, Period: p}
			for j, l := range flat {
				v, err := res.ResolveAccountValue(gctx, l.AccountID, c)
				if err != nil {
					return err
				}
				row[j] = v
			}
			values[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	trailing := period.Trailing(periods)
	for j, l := range flat {
		l.Values = make(map[string]decimal.Decimal, len(periods))
		for i, p := range periods {
			l.Values[p.Key()] = values[i][j]
		}
		l.Trailing12 = decimal.Zero
		for _, p := range trailing {
			l.Trailing12 = l.Trailing12.Add(l.Values[p.Key()])
		}
		if n := len(periods); n >= 2 {
			l.Variation = Variation(values[n-2][j], values[n-1][j])
		}
	}

	report := &Report{
		CompanyID: companyID,
		Period:    end,
		Periods:   periods,
		Lines:     pruneHidden(lines),
		Warnings:  res.Warnings(),
	}

	e.logger.DebugContext(ctx, "report computed",
		log.FieldCompanyID, companyID,
		log.FieldPeriod, end.Key(),
		log.FieldAccounts, len(flat),
		log.FieldWarnings, len(report.Warnings),
		log.FieldFetches, res.LedgerFetches(),
		log.FieldDuration, time.Since(start).Milliseconds())
	return report, nil
}

// buildTree loads the account hierarchy below roots. It returns the tree
// and every line in it, hidden ones included. A parent cycle is cut where it
// closes and reported as a warning.
func (e *Engine) buildTree(ctx context.Context, res *Resolver, roots []model.Account, companyID string, end period.Period) ([]*Line, []*Line, error) {
	var flat []*Line

	var build func(acct model.Account, p *path) (*Line, error)
	build = func(acct model.Account, p *path) (*Line, error) {
		line := &Line{
			AccountID: acct.ID,
			Name:      acct.Name,
			Order:     acct.Order,
			Sign:      acct.Sign,
			visible:   acct.Visible,
		}
		flat = append(flat, line)

		st, err := res.strategy(ctx, acct.ID)
		if err != nil {
			return nil, err
		}
		p = p.push(accountNode(acct.ID))
		for _, child := range st.children {
			if p.contains(accountNode(child.ID)) {
				res.warnCycle(ctx, accountNode(child.ID), Context{CompanyID: companyID, Period: end}, p)
				continue
			}
			cl, err := build(child, p)
			if err != nil {
				return nil, err
			}
			line.Children = append(line.Children, cl)
		}
		return line, nil
	}

	var lines []*Line
	for _, root := range roots {
		l, err := build(root, nil)
		if err != nil {
			return nil, nil, err
		}
		lines = append(lines, l)
	}
	return lines, flat, nil
}

// pruneHidden drops invisible lines together with their subtrees.
func pruneHidden(lines []*Line) []*Line {
	var out []*Line
	for _, l := range lines {
		if !l.visible {
			continue
		}
		l.Children = pruneHidden(l.Children)
		out = append(out, l)
	}
	return out
}

// Variation returns the percent change from prev to cur, rounded to two
// places. It is zero when prev is zero.
func Variation(prev, cur decimal.Decimal) decimal.Decimal {
	if prev.IsZero() {
		return decimal.Zero
	}
	return cur.Sub(prev).Div(prev.Abs()).Mul(hundred).Round(2)
}

// ResolveAccountValue values one account with a fresh resolver and returns
// the warnings raised on the way.
func (e *Engine) ResolveAccountValue(ctx context.Context, accountID string, c Context) (decimal.Decimal, []Warning, error) {
	if err := c.Period.Validate(); err != nil {
		return decimal.Zero, nil, fmt.Errorf("calculation period: %w", err)
	}
	res := e.NewResolver()
	v, err := res.ResolveAccountValue(ctx, accountID, c)
	if err != nil {
		return decimal.Zero, nil, err
	}
	return v, res.Warnings(), nil
}
