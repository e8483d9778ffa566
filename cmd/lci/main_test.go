package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-lci/pkg/health"
	"github.com/dd0wney/cluso-lci/pkg/inventory"
	"github.com/dd0wney/cluso-lci/pkg/logging"
	"github.com/dd0wney/cluso-lci/pkg/metrics"
	"github.com/dd0wney/cluso-lci/pkg/storage"
)

const inventoryYAML = `
database: bike_example
processes:
  - {name: Bike, type: product, unit: unit}
  - name: Bike production
    type: process
    unit: unit
    exchanges:
      - {type: production, name: Bike, unit: p, amount: 1}
      - {type: biosphere, name: "Carbon dioxide, fossil", unit: kg, amount: 26.6, categories: [Air]}
      - {type: technosphere, name: "Electricity, medium voltage {NO}| market for electricity, medium voltage | Cut-off, U", unit: kWh, amount: 0.3}
      - {type: technosphere, name: Aluminium frame, unit: kg, amount: 2}
`

// writeWorkflow writes an inventory, a cutoff snapshot and a workflow
// linking against it, and returns the workflow path
func writeWorkflow(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	inv := filepath.Join(dir, "bike.yaml")
	require.NoError(t, os.WriteFile(inv, []byte(inventoryYAML), 0o644))

	snapshot := filepath.Join(dir, "cutoff.lcis")
	markets := []*inventory.Process{{Flow: inventory.Flow{
		Key:              inventory.Key{Database: "ecoinvent-3.11-cutoff", Code: "market-elec-mv-NO"},
		Name:             "market for electricity, medium voltage",
		ReferenceProduct: "electricity, medium voltage",
		Unit:             "kilowatt hour",
		Location:         "NO",
		Type:             inventory.NodeProcess,
	}}}
	require.NoError(t, storage.NewDatabase("ecoinvent-3.11-cutoff", markets).SaveSnapshot(snapshot))

	wf := filepath.Join(dir, "workflow.yaml")
	doc := fmt.Sprintf(`
database: bike_example
inventory: bike.yaml
references:
  - name: ecoinvent-3.11-cutoff
    snapshot: cutoff.lcis
strategies: [strip_whitespace, normalize_units, normalize_biosphere_categories, split_simapro_ecoinvent_names]
passes:
  - pool: self
    kinds: [production, technosphere]
  - pool: ecoinvent-3.11-cutoff
    fields: [name, unit, location, reference_product]
    kinds: [technosphere]
export:
  url: %s
allow_unlinked: true
`, filepath.Join(dir, "out"))
	require.NoError(t, os.WriteFile(wf, []byte(doc), 0o644))
	return wf, snapshot
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := &app{logger: logging.NewNopLogger(), metrics: metrics.NewRegistry()}
	cmd := newRootCmd(a)

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	wf, _ := writeWorkflow(t)

	out, err := execute(t, "run", "-f", wf)
	require.NoError(t, err)
	assert.Contains(t, out, "pass 2 against ecoinvent-3.11-cutoff: 1 linked")
	assert.Contains(t, out, "exported 2 unlinked exchanges")
	assert.Contains(t, out, "wrote database bike_example")

	_, err = os.Stat(filepath.Join(filepath.Dir(wf), "out", "bike_example-unlinked.csv"))
	assert.NoError(t, err)
}

func TestRunCommand_DryRun(t *testing.T) {
	wf, _ := writeWorkflow(t)

	out, err := execute(t, "run", "--dry-run", "-f", wf)
	require.NoError(t, err)
	assert.Contains(t, out, "database not written")
}

func TestRunCommand_MissingWorkflow(t *testing.T) {
	_, err := execute(t, "run", "-f", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestStatsCommand(t *testing.T) {
	wf, _ := writeWorkflow(t)

	out, err := execute(t, "stats", "-f", wf)
	require.NoError(t, err)
	assert.Contains(t, out, "pass 1 (self)")
	assert.Contains(t, out, "4 graph edges")
	assert.Contains(t, out, "ecoinvent-3.11-cutoff")
}

func TestUnlinkedCommand(t *testing.T) {
	wf, _ := writeWorkflow(t)

	out, err := execute(t, "unlinked", "-f", wf)
	require.NoError(t, err)
	assert.Contains(t, out, "Aluminium frame")
	assert.Contains(t, out, "Carbon dioxide, fossil")
	assert.Contains(t, out, "2 unlinked")

	out, err = execute(t, "unlinked", "-f", wf, "--type", "biosphere", "--csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "Bike production,biosphere,"))

	out, err = execute(t, "unlinked", "-f", wf, "--unique", "--csv")
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], ","), "unique listings carry no process")
}

func TestSearchCommand(t *testing.T) {
	_, snapshot := writeWorkflow(t)

	out, err := execute(t, "search", "--snapshot", snapshot, "--term", "electricity medium")
	require.NoError(t, err)
	assert.Contains(t, out, "market-elec-mv-NO")

	_, err = execute(t, "search", "--term", "electricity")
	assert.Error(t, err, "snapshot is required")
}

func TestQueryCommand(t *testing.T) {
	wf, _ := writeWorkflow(t)

	out, err := execute(t, "query", "-f", wf, "--q", `{ statistics { unlinked } databases { name } }`)
	require.NoError(t, err)
	assert.Contains(t, out, `"unlinked": 2`)
	assert.Contains(t, out, `"name": "ecoinvent-3.11-cutoff"`)

	_, err = execute(t, "query", "-f", wf, "--q", `{ nope }`)
	assert.Error(t, err)
}

func TestBrowseModel(t *testing.T) {
	wf, _ := writeWorkflow(t)
	a := &app{logger: logging.NewNopLogger(), metrics: metrics.NewRegistry()}
	cmd := newRootCmd(a)
	require.NoError(t, a.init())
	cmd.SetContext(context.Background())

	report, _, err := a.inspect(cmd, wf)
	require.NoError(t, err)

	m := newBrowseModel(report)
	assert.Len(t, m.visible, 2)

	next := tea.KeyMsg{Type: tea.KeyTab}
	var model tea.Model = m
	model, _ = model.Update(next) // production
	model, _ = model.Update(next) // technosphere
	bm := model.(browseModel)
	assert.Equal(t, inventory.TypeTechnosphere, bm.filters[bm.filter])
	require.Len(t, bm.visible, 1)
	assert.Equal(t, "Aluminium frame", bm.visible[0].exchange.Name)

	model, _ = model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	view := model.View()
	assert.Contains(t, view, "Unlinked exchanges: bike_example")
	assert.Contains(t, view, "technosphere (1)")

	_, cmdQuit := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmdQuit)
	assert.IsType(t, tea.QuitMsg{}, cmdQuit())
}

func TestServeHealth(t *testing.T) {
	wf, _ := writeWorkflow(t)
	a := &app{logger: logging.NewNopLogger(), metrics: metrics.NewRegistry()}
	cmd := newRootCmd(a)
	require.NoError(t, a.init())
	cmd.SetContext(context.Background())

	report, r, err := a.inspect(cmd, wf)
	require.NoError(t, err)

	hc, closeStore, err := a.healthChecker(cmd.Context(), report, r)
	require.NoError(t, err)
	defer closeStore()

	resp := hc.Check(context.Background())
	assert.Equal(t, health.StatusDegraded, resp.Status)
	assert.Equal(t, health.StatusDegraded, resp.Checks["linking"].Status)
	assert.Equal(t, health.StatusHealthy, resp.Checks["catalog"].Status)

	rec := httptest.NewRecorder()
	hc.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
