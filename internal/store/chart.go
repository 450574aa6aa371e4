package store

import (
	"context"

	"github.com/dre-dev/dre/internal/model"
)

// Chart is the complete DRE configuration of a project: everything except
// the ledger.
type Chart struct {
	Accounts   []model.Account
	Components []model.Component
	Formulas   []model.Formula
	Links      []model.CompanyAccount
	Indicators []model.Indicator
	Parts      []model.IndicatorPart
}

// IndicatorLister is implemented by stores that keep an indicator catalog.
type IndicatorLister interface {
	Indicators(ctx context.Context) ([]model.Indicator, error)
}

// DefaultChart returns a starter DRE: gross revenue less deductions and
// costs down to the operating result. Accounts read from the ledger
// categories receita-bruta, deducoes, custos and despesas-operacionais.
func DefaultChart() Chart {
	acct := func(id, name string, order int, sign model.Sign, parent string) model.Account {
		return model.Account{ID: id, Name: name, Order: order, Sign: sign, ParentID: parent, Active: true, Visible: true}
	}
	cat := func(id string) model.Source { return model.Source{Kind: model.SourceCategory, ID: id} }
	ref := func(id string) model.Source { return model.Source{Kind: model.SourceAccount, ID: id} }

	return Chart{
		Accounts: []model.Account{
			acct("receita-bruta", "Receita Bruta", 10, model.SignPlus, ""),
			acct("deducoes", "Deduções da Receita", 20, model.SignMinus, ""),
			acct("receita-liquida", "Receita Líquida", 30, model.SignResult, ""),
			acct("custos", "Custos", 40, model.SignMinus, ""),
			acct("lucro-bruto", "Lucro Bruto", 50, model.SignResult, ""),
			acct("despesas-operacionais", "Despesas Operacionais", 60, model.SignMinus, ""),
			acct("resultado-operacional", "Resultado Operacional", 70, model.SignResult, ""),
		},
		Components: []model.Component{
			{ID: "c-receita-bruta", AccountID: "receita-bruta", Source: cat("receita-bruta"), Sign: model.SignPlus},
			{ID: "c-deducoes", AccountID: "deducoes", Source: cat("deducoes"), Sign: model.SignPlus},
			{ID: "c-custos", AccountID: "custos", Source: cat("custos"), Sign: model.SignPlus},
			{ID: "c-despesas", AccountID: "despesas-operacionais", Source: cat("despesas-operacionais"), Sign: model.SignPlus},
		},
		Formulas: []model.Formula{
			{ID: "f-receita-liquida", AccountID: "receita-liquida", Left: ref("receita-bruta"), Operator: model.OpAdd, Right: ref("deducoes")},
			{ID: "f-lucro-bruto", AccountID: "lucro-bruto", Left: ref("receita-liquida"), Operator: model.OpAdd, Right: ref("custos")},
			{ID: "f-resultado", AccountID: "resultado-operacional", Left: ref("lucro-bruto"), Operator: model.OpAdd, Right: ref("despesas-operacionais")},
		},
	}
}
