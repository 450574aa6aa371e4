package commands_test

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const marchImport = `empresa_id;mes;ano;tipo;valor;categoria_id;indicador_id;descricao
emp-1;2;2024;receita;8.000,00;receita-bruta;;Vendas fevereiro
emp-1;3;2024;receita;10.000,00;receita-bruta;;Vendas março
emp-1;3;2024;despesa;1.000,00;deducoes;;Impostos
emp-1;3;2024;despesa;4.000,00;custos;;Insumos
emp-1;3;2024;despesa;2.000,00;despesas-operacionais;;Aluguel
emp-2;3;2024;receita;999,00;receita-bruta;;Outra empresa
`

type jsonLine struct {
	AccountID  string            `json:"account_id"`
	Values     map[string]string `json:"values"`
	Trailing12 string            `json:"trailing_12"`
	Variation  string            `json:"variation_pct"`
}

type jsonReport struct {
	CompanyID string     `json:"company_id"`
	Lines     []jsonLine `json:"lines"`
}

func (r jsonReport) line(t *testing.T, id string) jsonLine {
	t.Helper()
	for _, l := range r.Lines {
		if l.AccountID == id {
			return l
		}
	}
	t.Fatalf("line %s not in report", id)
	return jsonLine{}
}

// importedProject initializes a project and imports the March ledger.
func importedProject(t *testing.T, initArgs ...string) string {
	t.Helper()
	dir := initProject(t, initArgs...)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "import", "marco.csv"), []byte(marchImport), 0o644))
	out, err := runDRE(t, "import", "--repo", dir)
	require.NoError(t, err, "import failed: %s", out)
	return dir
}

func reportJSON(t *testing.T, dir string) jsonReport {
	t.Helper()
	cmd := exec.Command(binaryPath, "report", "--repo", dir, "--month", "3", "--year", "2024", "--format", "json")
	out, err := cmd.Output()
	require.NoError(t, err)

	var r jsonReport
	require.NoError(t, json.Unmarshal(out, &r))
	return r
}

func TestImport_MovesFileAndCommits(t *testing.T) {
	dir := importedProject(t)

	_, err := os.Stat(filepath.Join(dir, "import", "processed", "marco.csv"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "ledger", "2024", "03", "ledger.csv"))
	require.NoError(t, err)

	log := exec.Command("git", "log", "--format=%s", "-1")
	log.Dir = dir
	out, err := log.Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "import: 6 entries from 1 file(s)")
}

func TestImport_NothingToImport(t *testing.T) {
	dir := initProject(t)
	out, err := runDRE(t, "import", "--repo", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Nothing to import")
}

func TestImport_UnknownFormat(t *testing.T) {
	dir := initProject(t)
	out, err := runDRE(t, "import", "--repo", dir, "--format", "ofx")
	require.Error(t, err)
	assert.Contains(t, out, "unknown import format")
}

func TestReport_JSON(t *testing.T) {
	dir := importedProject(t)
	r := reportJSON(t, dir)

	assert.Equal(t, "emp-1", r.CompanyID)
	require.Len(t, r.Lines, 7)

	resultado := r.line(t, "resultado-operacional")
	assert.Equal(t, "3000", resultado.Values["03-2024"])
	assert.Equal(t, "8000", resultado.Values["02-2024"])
	assert.Equal(t, "11000", resultado.Trailing12)
	assert.Equal(t, "-62.5", resultado.Variation)

	bruta := r.line(t, "receita-bruta")
	assert.Equal(t, "10000", bruta.Values["03-2024"])
	assert.Equal(t, "25", bruta.Variation)

	assert.Equal(t, "9000", r.line(t, "receita-liquida").Values["03-2024"])
	assert.Equal(t, "5000", r.line(t, "lucro-bruto").Values["03-2024"])
}

func TestReport_Markdown(t *testing.T) {
	dir := importedProject(t)
	out, err := runDRE(t, "report", "--repo", dir, "--month", "3", "--year", "2024", "--format", "markdown")
	require.NoError(t, err, out)

	assert.Contains(t, out, "# DRE Padaria Central 03/2024")
	assert.Contains(t, out, "| 12 meses | Var. % |")
	assert.Contains(t, out, "**Resultado Operacional**")
	assert.Contains(t, out, "3.000,00")
}

func TestReport_Terminal(t *testing.T) {
	dir := importedProject(t)
	out, err := runDRE(t, "report", "--repo", dir, "--month", "3", "--year", "2024", "--style", "notty")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Resultado Operacional")
}

func TestReport_WritesRunLog(t *testing.T) {
	dir := importedProject(t)
	_ = reportJSON(t, dir)

	data, err := os.ReadFile(filepath.Join(dir, "logs", "report-log.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2, "header + one run")
	assert.Contains(t, lines[1], "emp-1,03-2024,7,0,")
}

func TestReport_InvalidMonth(t *testing.T) {
	dir := initProject(t)
	out, err := runDRE(t, "report", "--repo", dir, "--month", "13", "--year", "2024")
	require.Error(t, err)
	assert.Contains(t, out, "could not compute report")
}

func TestReport_MissingProject(t *testing.T) {
	out, err := runDRE(t, "report", "--repo", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, out, "reading config")
}

func TestReport_PublishNeedsURL(t *testing.T) {
	dir := initProject(t)
	out, err := runDRE(t, "report", "--repo", dir, "--month", "3", "--year", "2024", "--publish")
	require.Error(t, err)
	assert.Contains(t, out, "--publish requires")
}

func TestReport_SQLite(t *testing.T) {
	dir := importedProject(t, "--driver", "sqlite")
	r := reportJSON(t, dir)

	resultado := r.line(t, "resultado-operacional")
	assert.Equal(t, "3000", resultado.Values["03-2024"])
	assert.Equal(t, "11000", resultado.Trailing12)
}

func TestReport_EnvOverride(t *testing.T) {
	dir := initProject(t)
	cmd := exec.Command(binaryPath, "report", "--repo", dir, "--month", "3", "--year", "2024")
	cmd.Env = append(os.Environ(), "DRE_STORE_DRIVER=postgres")
	out, err := cmd.CombinedOutput()
	require.Error(t, err)
	assert.Contains(t, string(out), "store dsn is required for driver postgres")
}

func TestValue(t *testing.T) {
	dir := importedProject(t)
	out, err := runDRE(t, "value", "lucro-bruto", "--repo", dir, "--month", "3", "--year", "2024")
	require.NoError(t, err, out)
	assert.Contains(t, out, "lucro-bruto 03/2024")
	assert.Contains(t, out, "5.000,00")
}

func TestValue_OtherCompany(t *testing.T) {
	dir := importedProject(t)
	out, err := runDRE(t, "value", "receita-bruta", "--repo", dir, "--company", "emp-2", "--month", "3", "--year", "2024")
	require.NoError(t, err, out)
	assert.Contains(t, out, "999,00")
}

func TestCheck_OK(t *testing.T) {
	dir := initProject(t)
	out, err := runDRE(t, "check", "--repo", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Configuration OK (7 accounts)")
}

func TestCheck_MissingParent(t *testing.T) {
	dir := initProject(t)
	f, err := os.OpenFile(filepath.Join(dir, "accounts", "dre-accounts.csv"), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("orfa,Órfã,80,+,inexistente,true,true\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	out, err := runDRE(t, "check", "--repo", dir)
	require.Error(t, err)
	assert.Contains(t, out, "invariant 1 [orfa]")
	assert.Contains(t, out, "1 configuration problem(s) found")
}

func TestMigrate_CSVProject(t *testing.T) {
	dir := initProject(t)
	out, err := runDRE(t, "migrate", "--repo", dir)
	require.Error(t, err)
	assert.Contains(t, out, "migrate needs a sql store driver")
}

func TestMigrate_SQLite(t *testing.T) {
	dir := initProject(t, "--driver", "sqlite")
	out, err := runDRE(t, "migrate", "--repo", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Migrated sqlite store")
}
