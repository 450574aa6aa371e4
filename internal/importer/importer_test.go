package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dre-dev/dre/internal/model"
	"github.com/dre-dev/dre/internal/period"
	"github.com/dre-dev/dre/internal/store"
	"github.com/dre-dev/dre/internal/store/filestore"
)

const lancamentosCSV = `empresa_id;mes;ano;tipo;valor;categoria_id;indicador_id;descricao
emp-1;3;2024;receita;1.000,00;vendas;;Venda balcão
;3;2024;despesa;200,50;aluguel;;Aluguel março
emp-1;4;2024;receita;350.25;;clientes;
`

type recordingWriter struct {
	entries []model.LedgerEntry
	err     error
}

func (w *recordingWriter) InsertEntries(_ context.Context, entries []model.LedgerEntry) ([]model.LedgerEntry, error) {
	if w.err != nil {
		return nil, w.err
	}
	w.entries = append(w.entries, entries...)
	return entries, nil
}

func writeImport(t *testing.T, dir, name, data string) {
	t.Helper()
	importDir := filepath.Join(dir, "import")
	require.NoError(t, os.MkdirAll(importDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(importDir, name), []byte(data), 0o644))
}

func TestLancamentosParser_Parse(t *testing.T) {
	p := &LancamentosParser{}
	entries, err := p.Parse(strings.NewReader(lancamentosCSV), "emp-default")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "emp-1", entries[0].CompanyID)
	assert.Equal(t, period.New(3, 2024), entries[0].Period)
	assert.Equal(t, model.EntryInflow, entries[0].Kind)
	assert.Equal(t, "1000.00", entries[0].Amount.StringFixed(2))
	assert.Equal(t, "vendas", entries[0].CategoryID)
	assert.Equal(t, "Venda balcão", entries[0].Description)

	// Company falls back to the default.
	assert.Equal(t, "emp-default", entries[1].CompanyID)
	assert.Equal(t, model.EntryOutflow, entries[1].Kind)
	assert.Equal(t, "200.50", entries[1].Amount.StringFixed(2))

	assert.Equal(t, "clientes", entries[2].IndicatorID)
	assert.Empty(t, entries[2].CategoryID)
	assert.Equal(t, "350.25", entries[2].Amount.StringFixed(2))
}

func TestLancamentosParser_CommaDelimitedAnyOrder(t *testing.T) {
	data := "valor,tipo,ano,mes,categoria_id\n42.10,DESPESA,2023,12,impostos\n"
	entries, err := (&LancamentosParser{}).Parse(strings.NewReader(data), "emp-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.EntryOutflow, entries[0].Kind)
	assert.Equal(t, period.New(12, 2023), entries[0].Period)
	assert.Equal(t, "impostos", entries[0].CategoryID)
}

func TestLancamentosParser_HeaderOnly(t *testing.T) {
	entries, err := (&LancamentosParser{}).Parse(strings.NewReader("mes;ano;tipo;valor\n"), "emp-1")
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestLancamentosParser_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"missing column", "mes;ano;tipo\n3;2024;receita\n", `missing column "valor"`},
		{"bad month", "mes;ano;tipo;valor\nmarço;2024;receita;1\n", "parsing month"},
		{"month out of range", "mes;ano;tipo;valor\n13;2024;receita;1\n", "row 2"},
		{"bad kind", "mes;ano;tipo;valor\n3;2024;transferencia;1\n", "unknown kind"},
		{"bad amount", "mes;ano;tipo;valor\n3;2024;receita;abc\n", "parsing amount"},
		{"negative amount", "mes;ano;tipo;valor\n3;2024;receita;-5\n", "negative amount"},
		{"both refs", "mes;ano;tipo;valor;categoria_id;indicador_id\n3;2024;receita;1;a;b\n", "both"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&LancamentosParser{}).Parse(strings.NewReader(tt.data), "emp-1")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLancamentosParser_NoCompany(t *testing.T) {
	_, err := (&LancamentosParser{}).Parse(strings.NewReader("mes;ano;tipo;valor\n3;2024;receita;1\n"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no company")
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1234.56", "1234.56"},
		{"1234,56", "1234.56"},
		{"1.234,56", "1234.56"},
		{"R$ 12.345.678,90", "12345678.90"},
		{"0", "0.00"},
		{"1.234.567", "1234567.00"},
		{"0,5", "0.50"},
		{"12.5", "12.50"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := ParseAmount(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.StringFixed(2))
		})
	}
}

func TestParseAmount_Rejects(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1,234.56", "must be the last separator"},
		{"1,234,56", "must be the last separator"},
		{"1.234", "ambiguous amount"},
		{"12.345,678", "more than two decimal places"},
		{"1234.567", "more than two decimal places"},
		{"12.34,56", "bad thousands grouping"},
		{",50", "bad thousands grouping"},
		{"-5", "negative amount"},
		{"abc", "parsing amount"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := ParseAmount(tt.in)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLedgerParser_DropsIDs(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, filestore.WriteEntries(&sb, []model.LedgerEntry{
		{ID: "2024-03-001", CompanyID: "", Period: period.New(3, 2024), Kind: model.EntryInflow, Amount: decimal.RequireFromString("10"), CategoryID: "vendas"},
	}))

	entries, err := (&LedgerParser{}).Parse(strings.NewReader(sb.String()), "emp-9")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].ID)
	assert.Equal(t, "emp-9", entries[0].CompanyID)
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()
	assert.Nil(t, r.Get("nonexistent"))
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&LancamentosParser{})
	p := r.Get("lancamentos")
	require.NotNil(t, p)
	assert.Equal(t, "lancamentos", p.Format())
}

func TestRegistry_CaseInsensitive(t *testing.T) {
	r := NewRegistry()
	r.Register(&LancamentosParser{})
	assert.NotNil(t, r.Get("Lancamentos"))
	assert.NotNil(t, r.Get("LANCAMENTOS"))
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register(&LedgerParser{})
	assert.Panics(t, func() { r.Register(&LedgerParser{}) })
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	formats := r.Formats()
	sort.Strings(formats)
	assert.Equal(t, []string{"lancamentos", "ledger"}, formats)
}

func TestScan_FindsCSVs(t *testing.T) {
	dir := t.TempDir()
	writeImport(t, dir, "b.csv", "data")
	writeImport(t, dir, "a.CSV", "data")
	writeImport(t, dir, "other.txt", "data")

	files, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.CSV", files[0].Name)
	assert.Equal(t, "b.csv", files[1].Name)
	assert.Equal(t, int64(4), files[1].Size)
}

func TestScan_IgnoresProcessedDir(t *testing.T) {
	dir := t.TempDir()
	writeImport(t, dir, "new.csv", "data")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "import", "processed"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "import", "processed", "old.csv"), []byte("data"), 0o644))

	files, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "new.csv", files[0].Name)
}

func TestScan_EmptyDir(t *testing.T) {
	files, err := Scan(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, files)
}

func TestMarkProcessed(t *testing.T) {
	dir := t.TempDir()
	writeImport(t, dir, "bank.csv", "data")

	require.NoError(t, MarkProcessed(dir, "bank.csv"))

	_, err := os.Stat(filepath.Join(dir, "import", "bank.csv"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "import", "processed", "bank.csv"))
	assert.NoError(t, err)
}

func TestImporterRun(t *testing.T) {
	dir := t.TempDir()
	writeImport(t, dir, "marco.csv", lancamentosCSV)

	w := &recordingWriter{}
	im := &Importer{Parser: &LancamentosParser{}, Writer: w, CompanyID: "emp-1"}
	results, err := im.Run(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []Result{{File: "marco.csv", Entries: 3}}, results)
	assert.Len(t, w.entries, 3)

	_, err = os.Stat(filepath.Join(dir, "import", "processed", "marco.csv"))
	assert.NoError(t, err)

	// Nothing left to import.
	results, err = im.Run(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestImporterRun_WriteFailureKeepsFile(t *testing.T) {
	dir := t.TempDir()
	writeImport(t, dir, "marco.csv", lancamentosCSV)

	im := &Importer{Parser: &LancamentosParser{}, Writer: &recordingWriter{err: errors.New("disk full")}, CompanyID: "emp-1"}
	_, err := im.Run(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "importing marco.csv")
	assert.Contains(t, err.Error(), "disk full")

	_, err = os.Stat(filepath.Join(dir, "import", "marco.csv"))
	assert.NoError(t, err)
}

func TestImporterRun_ParseFailure(t *testing.T) {
	dir := t.TempDir()
	writeImport(t, dir, "bad.csv", "mes;ano\n1;2024\n")

	im := &Importer{Parser: &LancamentosParser{}, Writer: &recordingWriter{}, CompanyID: "emp-1"}
	_, err := im.Run(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column")
}

func TestImporterRun_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeImport(t, dir, "marco.csv", lancamentosCSV)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	im := &Importer{Parser: &LancamentosParser{}, Writer: &recordingWriter{}}
	_, err := im.Run(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImporterRun_IntoFileStore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, filestore.WriteChart(dir, store.DefaultChart()))
	fs, err := filestore.Open(dir)
	require.NoError(t, err)

	writeImport(t, dir, "marco.csv", lancamentosCSV)
	im := &Importer{Parser: &LancamentosParser{}, Writer: fs, CompanyID: "emp-1"}
	_, err = im.Run(context.Background(), dir)
	require.NoError(t, err)

	march, err := fs.LedgerEntries(context.Background(), "emp-1", period.New(3, 2024))
	require.NoError(t, err)
	require.Len(t, march, 2)
	assert.Equal(t, "2024-03-001", march[0].ID)
	assert.Equal(t, "2024-03-002", march[1].ID)

	april, err := fs.LedgerEntries(context.Background(), "emp-1", period.New(4, 2024))
	require.NoError(t, err)
	require.Len(t, april, 1)
	assert.Equal(t, "clientes", april[0].IndicatorID)
}
