package dre

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dre-dev/dre/internal/model"
	"github.com/dre-dev/dre/internal/store"
)

// ValidationError describes a single configuration invariant violation.
type ValidationError struct {
	Invariant   int
	Node        string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invariant %d [%s]: %s", e.Invariant, e.Node, e.Description)
}

// Check enforces 6 invariants on the DRE configuration:
//
//  1. parent references name existing accounts
//  2. the parent relation has no cycles
//  3. component, formula and indicator-part sources are well formed, and
//     account references (and indicator references, when the store keeps
//     a catalog) exist
//  4. each account has a single valuation (children, components or formula)
//  5. formula operators are supported
//  6. account and indicator references have no cycles
//
// Violations are returned, not raised; the error is reserved for store
// failures.
func Check(ctx context.Context, s store.Store) ([]ValidationError, error) {
	accounts, err := s.Accounts(ctx)
	if err != nil {
		return nil, dataErr("accounts", "", err)
	}

	c := &checker{
		store:    s,
		byID:     make(map[string]model.Account, len(accounts)),
		edges:    make(map[string][]string),
		expanded: make(map[string]bool),
	}
	for _, a := range accounts {
		c.byID[a.ID] = a
	}
	if lister, ok := s.(store.IndicatorLister); ok {
		catalog, err := lister.Indicators(ctx)
		if err != nil {
			return nil, dataErr("indicators", "", err)
		}
		for _, ind := range catalog {
			if c.indicators == nil {
				c.indicators = make(map[string]bool, len(catalog))
			}
			c.indicators[ind.ID] = true
		}
	}

	for _, a := range accounts {
		node := accountNode(a.ID)

		// Invariant 1: parent exists.
		if a.ParentID != "" {
			if _, ok := c.byID[a.ParentID]; !ok {
				c.add(1, node, fmt.Sprintf("unknown parent account %s", a.ParentID))
			}
		}

		if err := c.expandAccount(ctx, a); err != nil {
			return nil, err
		}
	}

	// Invariant 2: no parent cycles.
	reported := make(map[string]bool)
	for _, a := range accounts {
		seen := map[string]bool{a.ID: true}
		for cur := a.ParentID; cur != ""; {
			if seen[cur] {
				if first := c.parentCycleStart(cur); !reported[first] {
					reported[first] = true
					c.add(2, accountNode(first), "parent chain loops back to this account")
				}
				break
			}
			seen[cur] = true
			parent, ok := c.byID[cur]
			if !ok {
				break
			}
			cur = parent.ParentID
		}
	}

	// Invariant 6: no reference cycles.
	if err := c.findCycles(ctx); err != nil {
		return nil, err
	}

	sort.SliceStable(c.errs, func(i, j int) bool {
		if c.errs[i].Invariant != c.errs[j].Invariant {
			return c.errs[i].Invariant < c.errs[j].Invariant
		}
		return c.errs[i].Node < c.errs[j].Node
	})
	return c.errs, nil
}

type checker struct {
	store    store.Store
	byID     map[string]model.Account
	edges    map[string][]string
	expanded map[string]bool
	errs     []ValidationError

	// indicators is the known catalog; nil when the store keeps none.
	indicators map[string]bool
}

func (c *checker) add(invariant int, node, desc string) {
	c.errs = append(c.errs, ValidationError{Invariant: invariant, Node: node, Description: desc})
}

// parentCycleStart returns the smallest account id on the parent cycle
// through id, so each cycle is reported once.
func (c *checker) parentCycleStart(id string) string {
	first := id
	for cur := c.byID[id].ParentID; cur != id; cur = c.byID[cur].ParentID {
		if cur < first {
			first = cur
		}
	}
	return first
}

func (c *checker) expandAccount(ctx context.Context, a model.Account) error {
	node := accountNode(a.ID)
	c.expanded[node] = true

	var children []string
	for _, other := range c.byID {
		if other.ParentID == a.ID && other.Active {
			children = append(children, accountNode(other.ID))
		}
	}
	sort.Strings(children)
	c.edges[node] = append(c.edges[node], children...)

	components, err := c.store.Components(ctx, a.ID)
	if err != nil {
		return dataErr("components", a.ID, err)
	}
	for _, comp := range components {
		if comp.Sign != model.SignPlus && comp.Sign != model.SignMinus {
			c.add(3, node, fmt.Sprintf("component %s has invalid sign %q", comp.ID, comp.Sign))
		}
		c.checkSource(node, "component "+comp.ID, comp.Source)
	}

	formula, err := c.store.Formula(ctx, a.ID)
	hasFormula := err == nil
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return dataErr("formula", a.ID, err)
	}
	if hasFormula {
		// Invariant 5: valid operator.
		if !formula.Operator.Valid() {
			c.add(5, node, fmt.Sprintf("unsupported formula operator %q", formula.Operator))
		}
		c.checkSource(node, "formula left operand", formula.Left)
		c.checkSource(node, "formula right operand", formula.Right)
	}

	// Invariant 4: single valuation.
	switch {
	case len(children) > 0 && (len(components) > 0 || hasFormula):
		c.add(4, node, "account has children and its own components or formula; children take precedence")
	case len(components) > 0 && hasFormula:
		c.add(4, node, "account has both components and a formula; components take precedence")
	}
	return nil
}

// checkSource validates a reference and records it as a graph edge.
func (c *checker) checkSource(node, what string, src model.Source) {
	switch src.Kind {
	case model.SourceAccount:
		if _, ok := c.byID[src.ID]; !ok {
			c.add(3, node, fmt.Sprintf("%s references unknown account %s", what, src.ID))
			return
		}
		c.edges[node] = append(c.edges[node], accountNode(src.ID))
	case model.SourceIndicator:
		if c.indicators != nil && !c.indicators[src.ID] {
			c.add(3, node, fmt.Sprintf("%s references unknown indicator %s", what, src.ID))
		}
		c.edges[node] = append(c.edges[node], indicatorNode(src.ID))
	case model.SourceCategory:
	default:
		c.add(3, node, fmt.Sprintf("%s has unknown source kind %q", what, src.Kind))
		return
	}
	if src.ID == "" {
		c.add(3, node, what+" has an empty reference")
	}
}

func (c *checker) expandIndicator(ctx context.Context, node, id string) error {
	c.expanded[node] = true
	parts, err := c.store.IndicatorParts(ctx, id)
	if err != nil {
		return dataErr("indicator parts", id, err)
	}
	for _, part := range parts {
		c.checkSource(node, "indicator part", part.Source)
	}
	return nil
}

// findCycles runs a depth-first search over every account and indicator
// reached from the accounts, reporting each back edge once.
func (c *checker) findCycles(ctx context.Context) error {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int)

	var visit func(node string) error
	visit = func(node string) error {
		color[node] = grey
		if !c.expanded[node] {
			if id, ok := strings.CutPrefix(node, indicatorNode("")); ok {
				if err := c.expandIndicator(ctx, node, id); err != nil {
					return err
				}
			}
		}
		for _, next := range c.edges[node] {
			switch color[next] {
			case grey:
				c.add(6, next, "reference cycle through "+node)
			case white:
				if err := visit(next); err != nil {
					return err
				}
			}
		}
		color[node] = black
		return nil
	}

	ids := make([]string, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if color[accountNode(id)] == white {
			if err := visit(accountNode(id)); err != nil {
				return err
			}
		}
	}
	return nil
}
