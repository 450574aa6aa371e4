package dre

import (
	"github.com/dre-dev/dre/internal/ledger"
	"github.com/dre-dev/dre/internal/period"
)

// Context scopes a valuation to one company and one month.
type Context struct {
	CompanyID string
	Period    period.Period
}

// NewContext returns the calculation context for company/month/year.
func NewContext(companyID string, month, year int) Context {
	return Context{CompanyID: companyID, Period: period.New(month, year)}
}

func (c Context) ledgerKey() ledger.Key {
	return ledger.Key{CompanyID: c.CompanyID, Period: c.Period}
}

// nodeKey identifies one memoized value.
type nodeKey struct {
	node    string
	company string
	period  period.Period
}

// path is the chain of nodes being resolved on the current call stack. It
// is immutable, so concurrent branches can share their common prefix.
type path struct {
	node   string
	parent *path
}

func (p *path) push(node string) *path {
	return &path{node: node, parent: p}
}

func (p *path) contains(node string) bool {
	for q := p; q != nil; q = q.parent {
		if q.node == node {
			return true
		}
	}
	return false
}

// nodes returns the path from the outermost node to the innermost.
func (p *path) nodes() []string {
	var out []string
	for q := p; q != nil; q = q.parent {
		out = append(out, q.node)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func accountNode(id string) string   { return "conta:" + id }
func indicatorNode(id string) string { return "indicador:" + id }
