// Package render writes computed reports as markdown tables, JSON, or styled
// terminal output.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"

	"github.com/dre-dev/dre/internal/dre"
	"github.com/dre-dev/dre/internal/model"
)

// Output formats.
const (
	FormatTerminal = "terminal"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Options control report rendering.
type Options struct {
	Currency    string // ISO 4217 code, e.g. "BRL"
	CompanyName string
	// Style is a glamour style name ("dark", "light", "notty"...); empty
	// picks one from the terminal.
	Style string
	Width int
}

// Money formats an amount in the currency's display format. Unknown
// currencies fall back to the plain amount followed by the code.
func Money(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return strings.TrimSpace(amount.StringFixed(2) + " " + currency)
	}
	minor := amount.Round(int32(cur.Fraction)).Shift(int32(cur.Fraction))
	return cur.Formatter().Format(minor.IntPart())
}

// Percent formats a percentage with two decimals.
func Percent(v decimal.Decimal) string {
	return v.StringFixed(2) + "%"
}

// Write renders r in the given format.
func Write(w io.Writer, format string, r *dre.Report, opts Options) error {
	switch format {
	case FormatMarkdown:
		return Markdown(w, r, opts)
	case FormatJSON:
		return JSON(w, r)
	case FormatTerminal, "":
		return Terminal(w, r, opts)
	}
	return fmt.Errorf("unknown format %q: must be terminal, markdown or json", format)
}

// JSON writes the report as indented JSON.
func JSON(w io.Writer, r *dre.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}

// Markdown writes the report as a markdown table: one row per account,
// one column per period, then the trailing-12 total and the variation
// against the previous month.
func Markdown(w io.Writer, r *dre.Report, opts Options) error {
	var b strings.Builder

	title := r.CompanyID
	if opts.CompanyName != "" {
		title = opts.CompanyName
	}
	fmt.Fprintf(&b, "# DRE %s %02d/%04d\n\n", title, r.Period.Month, r.Period.Year)

	b.WriteString("| Conta |")
	for _, p := range r.Periods {
		fmt.Fprintf(&b, " %02d/%04d |", p.Month, p.Year)
	}
	b.WriteString(" 12 meses | Var. % |\n")

	b.WriteString("|---|")
	for range r.Periods {
		b.WriteString("---:|")
	}
	b.WriteString("---:|---:|\n")

	var rows func(lines []*dre.Line, depth int)
	rows = func(lines []*dre.Line, depth int) {
		for _, l := range lines {
			b.WriteString("| " + label(l, depth) + " |")
			for _, p := range r.Periods {
				b.WriteString(" " + Money(l.Value(p), opts.Currency) + " |")
			}
			b.WriteString(" " + Money(l.Trailing12, opts.Currency) + " | " + Percent(l.Variation) + " |\n")
			rows(l.Children, depth+1)
		}
	}
	rows(r.Lines, 0)

	if len(r.Warnings) > 0 {
		b.WriteString("\n## Avisos\n\n")
		for _, warn := range r.Warnings {
			fmt.Fprintf(&b, "- %s\n", escape(warn.String()))
		}
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("writing markdown: %w", err)
	}
	return nil
}

// label indents an account name by depth; result accounts are bold.
func label(l *dre.Line, depth int) string {
	name := escape(l.Name)
	if l.Sign == model.SignResult {
		name = "**" + name + "**"
	}
	return strings.Repeat("· ", depth) + name
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// Terminal renders the markdown report with glamour.
func Terminal(w io.Writer, r *dre.Report, opts Options) error {
	var md bytes.Buffer
	if err := Markdown(&md, r, opts); err != nil {
		return err
	}

	style := glamour.WithAutoStyle()
	if opts.Style != "" {
		style = glamour.WithStandardStyle(opts.Style)
	}
	width := opts.Width
	if width <= 0 {
		width = 200
	}

	tr, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return fmt.Errorf("creating terminal renderer: %w", err)
	}
	out, err := tr.Render(md.String())
	if err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}
	if _, err := io.WriteString(w, out); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
