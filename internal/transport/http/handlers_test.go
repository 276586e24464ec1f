package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chinaecon/internal/config"
	"chinaecon/internal/dataset"
	"chinaecon/internal/forecast"
	"chinaecon/internal/pipeline"
	"chinaecon/pkg/contracts/domain"
)

func completedRun(t *testing.T) *pipeline.RunState {
	t.Helper()

	table, err := dataset.New([]int{2020, 2021, 2022})
	require.NoError(t, err)
	require.NoError(t, table.SetColumn(domain.ColGDP, []float64{14688, 17820, dataset.Missing()}))
	require.NoError(t, table.SetColumn(domain.ColTFP, []float64{5.1, 5.3, 5.4}))

	state := pipeline.NewRunState(&config.Config{})
	state.Start()
	state.SetTable(table)
	state.AddRecords(forecast.Record{
		Variable:  domain.ColGDP,
		Preferred: forecast.MethodARIMA,
		Used:      forecast.MethodAverageGrowthRate,
	})
	state.SetArtifact(pipeline.ArtifactDatasetCSV, "/tmp/dataset.csv")

	step := pipeline.NewStepState(pipeline.StepIDFetch, "Download sources")
	step.Start()
	step.Complete()
	state.SetStep(step)
	state.Complete()
	return state
}

func serveTestRouter(t *testing.T, store *RunStore) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(store, t.TempDir(), nil))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestGetDatasetReturnsNullForMissing(t *testing.T) {
	store := NewRunStore()
	store.Set(completedRun(t))
	srv := serveTestRouter(t, store)

	var resp struct {
		Years  []int `json:"years"`
		Series []struct {
			Name   string     `json:"name"`
			Values []*float64 `json:"values"`
		} `json:"series"`
	}
	code := getJSON(t, srv.URL+"/api/dataset", &resp)
	require.Equal(t, http.StatusOK, code)

	assert.Equal(t, []int{2020, 2021, 2022}, resp.Years)
	require.Len(t, resp.Series, 2)
	assert.Equal(t, domain.ColGDP, resp.Series[0].Name)
	require.NotNil(t, resp.Series[0].Values[0])
	assert.Equal(t, 14688.0, *resp.Series[0].Values[0])
	assert.Nil(t, resp.Series[0].Values[2], "missing cell serializes as null")
}

func TestGetSeries(t *testing.T) {
	store := NewRunStore()
	store.Set(completedRun(t))
	srv := serveTestRouter(t, store)

	var resp struct {
		Series []struct {
			Name string `json:"name"`
		} `json:"series"`
	}
	code := getJSON(t, srv.URL+"/api/dataset/series/tfp", &resp)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, resp.Series, 1)
	assert.Equal(t, domain.ColTFP, resp.Series[0].Name)

	var apiErr map[string]any
	code = getJSON(t, srv.URL+"/api/dataset/series/unknown", &apiErr)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", apiErr["error_code"])
}

func TestGetRecords(t *testing.T) {
	store := NewRunStore()
	store.Set(completedRun(t))
	srv := serveTestRouter(t, store)

	var records []forecast.Record
	code := getJSON(t, srv.URL+"/api/records", &records)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, records, 1)
	assert.Equal(t, forecast.MethodAverageGrowthRate, records[0].Used)
}

func TestGetRunSummary(t *testing.T) {
	store := NewRunStore()
	store.Set(completedRun(t))
	srv := serveTestRouter(t, store)

	var summary struct {
		Status    string            `json:"status"`
		Steps     []map[string]any  `json:"steps"`
		Artifacts map[string]string `json:"artifacts"`
	}
	code := getJSON(t, srv.URL+"/api/run", &summary)
	require.Equal(t, http.StatusOK, code)

	assert.Equal(t, string(pipeline.RunStatusCompleted), summary.Status)
	require.Len(t, summary.Steps, 1)
	assert.Equal(t, string(pipeline.StepStatusCompleted), summary.Steps[0]["status"])
	assert.Equal(t, "/tmp/dataset.csv", summary.Artifacts[pipeline.ArtifactDatasetCSV])
}

func TestAPIBeforeAnyRun(t *testing.T) {
	srv := serveTestRouter(t, NewRunStore())

	for _, path := range []string{"/api/dataset", "/api/records", "/api/run"} {
		var apiErr map[string]any
		code := getJSON(t, srv.URL+path, &apiErr)
		assert.Equal(t, http.StatusNotFound, code, path)
		assert.Equal(t, "NO_RUN", apiErr["error_code"], path)
	}
}

func TestHealthz(t *testing.T) {
	srv := serveTestRouter(t, NewRunStore())

	var body map[string]string
	code := getJSON(t, srv.URL+"/healthz", &body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestReportsFileServer(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.md"), []byte("# Report\n"), 0o644))

	srv := httptest.NewServer(NewRouter(NewRunStore(), dir, nil))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/reports/report.md")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
