package render

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dre-dev/dre/internal/dre"
	"github.com/dre-dev/dre/internal/model"
	"github.com/dre-dev/dre/internal/period"
	"github.com/dre-dev/dre/internal/store/memory"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func sampleReport(t *testing.T) *dre.Report {
	t.Helper()
	s := memory.New().
		AddAccount(model.Account{ID: "P", Name: "Resultado", Order: 1, Sign: model.SignResult, Active: true, Visible: true}).
		AddAccount(model.Account{ID: "A", Name: "Vendas | Loja", Order: 1, Sign: model.SignPlus, ParentID: "P", Active: true, Visible: true}).
		AddAccount(model.Account{ID: "Q", Name: "Aluguel", Order: 2, Sign: model.SignMinus, ParentID: "P", Active: true, Visible: true}).
		AddComponent(model.Component{ID: "c1", AccountID: "A", Source: model.Source{Kind: model.SourceCategory, ID: "vendas"}, Sign: model.SignPlus}).
		AddComponent(model.Component{ID: "c2", AccountID: "Q", Source: model.Source{Kind: model.SourceCategory, ID: "aluguel"}, Sign: model.SignPlus}).
		AddEntry(model.LedgerEntry{CompanyID: "emp-1", Period: period.New(3, 2024), Kind: model.EntryInflow, Amount: dec("1000.00"), CategoryID: "vendas"}).
		AddEntry(model.LedgerEntry{CompanyID: "emp-1", Period: period.New(2, 2024), Kind: model.EntryInflow, Amount: dec("800.00"), CategoryID: "vendas"}).
		AddEntry(model.LedgerEntry{CompanyID: "emp-1", Period: period.New(3, 2024), Kind: model.EntryOutflow, Amount: dec("200.00"), CategoryID: "aluguel"})

	r, err := dre.NewEngine(s, dre.Options{Window: 3}).ComputeReport(context.Background(), "emp-1", 3, 2024)
	require.NoError(t, err)
	return r
}

func TestMoney(t *testing.T) {
	assert.Contains(t, Money(dec("1000"), "BRL"), "1.000,00")
	assert.Contains(t, Money(dec("-200.5"), "BRL"), "200,50")
	assert.Contains(t, Money(dec("1234.567"), "USD"), "1,234.57")
	assert.Equal(t, "10.00 ZZZ", Money(dec("10"), "ZZZ"))
	assert.Equal(t, "10.00", Money(dec("10"), ""))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "25.00%", Percent(dec("25")))
	assert.Equal(t, "-3.33%", Percent(dec("-3.333")))
}

func TestMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Markdown(&buf, sampleReport(t), Options{Currency: "BRL", CompanyName: "Padaria"}))
	out := buf.String()

	assert.Contains(t, out, "# DRE Padaria 03/2024")
	assert.Contains(t, out, "| Conta | 01/2024 | 02/2024 | 03/2024 | 12 meses | Var. % |")
	assert.Contains(t, out, "**Resultado**")
	assert.Contains(t, out, `· Vendas \| Loja`)
	assert.Contains(t, out, "· Aluguel")
	assert.Contains(t, out, "25.00%")
	assert.NotContains(t, out, "Avisos")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 2+2+3)
}

func TestMarkdown_Warnings(t *testing.T) {
	r := sampleReport(t)
	r.Warnings = []dre.Warning{{Kind: dre.WarningCycle, Node: "conta:X", Period: "03-2024", Message: "reference cycle"}}

	var buf bytes.Buffer
	require.NoError(t, Markdown(&buf, r, Options{Currency: "BRL"}))
	assert.Contains(t, buf.String(), "## Avisos")
	assert.Contains(t, buf.String(), "conta:X")
	assert.Contains(t, buf.String(), "# DRE emp-1 03/2024")
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, sampleReport(t)))

	var decoded struct {
		CompanyID string   `json:"company_id"`
		Period    string   `json:"period"`
		Periods   []string `json:"periods"`
		Lines     []struct {
			AccountID  string            `json:"account_id"`
			Values     map[string]string `json:"values"`
			Trailing12 string            `json:"trailing_12"`
			Children   []json.RawMessage `json:"children"`
		} `json:"lines"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "emp-1", decoded.CompanyID)
	assert.Equal(t, "03-2024", decoded.Period)
	assert.Equal(t, []string{"01-2024", "02-2024", "03-2024"}, decoded.Periods)
	require.Len(t, decoded.Lines, 1)
	assert.Equal(t, "P", decoded.Lines[0].AccountID)
	assert.Equal(t, "800", decoded.Lines[0].Values["03-2024"])
	assert.Equal(t, "1600", decoded.Lines[0].Trailing12)
	assert.Len(t, decoded.Lines[0].Children, 2)
}

func TestTerminal(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Terminal(&buf, sampleReport(t), Options{Currency: "BRL", Style: "notty", Width: 160}))
	assert.Contains(t, buf.String(), "Resultado")
	assert.Contains(t, buf.String(), "Aluguel")
}

func TestWrite_Formats(t *testing.T) {
	r := sampleReport(t)
	for _, f := range []string{FormatMarkdown, FormatJSON, FormatTerminal} {
		var buf bytes.Buffer
		opts := Options{Currency: "BRL", Style: "notty"}
		require.NoError(t, Write(&buf, f, r, opts), f)
		assert.NotEmpty(t, buf.String(), f)
	}

	err := Write(&bytes.Buffer{}, "pdf", r, Options{})
	assert.Error(t, err)
}
