package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"chinaecon/internal/dataset"
	apierrors "chinaecon/internal/errors"
	"chinaecon/internal/forecast"
	"chinaecon/internal/pipeline"
)

// Handler serves the report API over the latest run.
type Handler struct {
	store  *RunStore
	logger *slog.Logger
}

// NewHandler creates the API handler.
func NewHandler(store *RunStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:  store,
		logger: logger.With(slog.String("component", "api_handler")),
	}
}

// Routes returns the API routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/dataset", h.GetDataset)
	r.Get("/dataset/series/{name}", h.GetSeries)
	r.Get("/records", h.GetRecords)
	r.Get("/run", h.GetRun)
	return r
}

// seriesResponse is one column of the dataset; missing cells are null.
type seriesResponse struct {
	Name   string     `json:"name"`
	Values []*float64 `json:"values"`
}

// datasetResponse is the full table in column order.
type datasetResponse struct {
	Years  []int            `json:"years"`
	Series []seriesResponse `json:"series"`
}

// GetDataset handles GET /api/dataset
func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	state, ok := h.latest(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, tableResponse(state.Table()))
}

// GetSeries handles GET /api/dataset/series/{name}
func (h *Handler) GetSeries(w http.ResponseWriter, r *http.Request) {
	state, ok := h.latest(w, r)
	if !ok {
		return
	}

	name := chi.URLParam(r, "name")
	table := state.Table()
	if !table.HasColumn(name) {
		h.renderError(w, r, apierrors.NotFoundError("series "+name))
		return
	}

	render.JSON(w, r, datasetResponse{
		Years:  table.Years(),
		Series: []seriesResponse{columnResponse(table, name)},
	})
}

// GetRecords handles GET /api/records
func (h *Handler) GetRecords(w http.ResponseWriter, r *http.Request) {
	state, ok := h.latest(w, r)
	if !ok {
		return
	}
	records := state.Records()
	if records == nil {
		records = []forecast.Record{}
	}
	render.JSON(w, r, records)
}

type stepSummary struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Status     pipeline.StepStatus `json:"status"`
	DurationMS int64               `json:"duration_ms"`
}

type runSummary struct {
	ID         string             `json:"id"`
	Status     pipeline.RunStatus `json:"status"`
	StartTime  time.Time          `json:"start_time"`
	DurationMS int64              `json:"duration_ms"`
	Steps      []stepSummary      `json:"steps"`
	Artifacts  map[string]string  `json:"artifacts"`
}

// GetRun handles GET /api/run
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	state, ok := h.latest(w, r)
	if !ok {
		return
	}

	summary := runSummary{
		ID:         state.ID,
		Status:     state.Status,
		StartTime:  state.StartTime,
		DurationMS: state.Duration().Milliseconds(),
		Artifacts:  state.Artifacts(),
	}
	for _, id := range state.StepOrder {
		step := state.GetStep(id)
		summary.Steps = append(summary.Steps, stepSummary{
			ID:         step.ID,
			Name:       step.Name,
			Status:     step.CurrentStatus(),
			DurationMS: step.Duration().Milliseconds(),
		})
	}
	render.JSON(w, r, summary)
}

// Healthz handles GET /healthz
func Healthz(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func (h *Handler) latest(w http.ResponseWriter, r *http.Request) (*pipeline.RunState, bool) {
	state, ok := h.store.Latest()
	if !ok || state.Table() == nil {
		h.renderError(w, r, apierrors.ErrNoRun)
		return nil, false
	}
	return state, true
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, apiErr *apierrors.APIError) {
	h.logger.InfoContext(r.Context(), "request rejected",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("path", r.URL.Path),
		slog.String("error_code", apiErr.ErrorCode))
	if err := render.Render(w, r, apiErr); err != nil {
		http.Error(w, apiErr.Message, apiErr.StatusCode)
	}
}

// tableResponse converts the table to its JSON shape. NaN has no JSON
// encoding, so missing cells become nulls via nil pointers.
func tableResponse(t *dataset.Table) datasetResponse {
	resp := datasetResponse{Years: t.Years()}
	for _, name := range t.Columns() {
		resp.Series = append(resp.Series, columnResponse(t, name))
	}
	return resp
}

func columnResponse(t *dataset.Table, name string) seriesResponse {
	years := t.Years()
	values := make([]*float64, len(years))
	for i, year := range years {
		v := t.Value(name, year)
		if dataset.IsMissing(v) {
			continue
		}
		values[i] = &v
	}
	return seriesResponse{Name: name, Values: values}
}
