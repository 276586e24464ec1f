package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chinaecon/internal/capital"
	"chinaecon/internal/exporter"
	"chinaecon/internal/forecast"
	"chinaecon/internal/indicators"
	"chinaecon/internal/normalize"
	"chinaecon/internal/sources"
	"chinaecon/pkg/contracts/domain"
)

// Step IDs in execution order.
const (
	StepIDFetch             = "fetch"
	StepIDLoad              = "load"
	StepIDNormalize         = "normalize"
	StepIDCapitalBaseline   = "capital_baseline"
	StepIDHumanCapital      = "human_capital"
	StepIDExtrapolate       = "extrapolate"
	StepIDCapitalProjection = "capital_projection"
	StepIDIndicators        = "indicators"
	StepIDExport            = "export"
)

// Artifact names recorded by the export step.
const (
	ArtifactDatasetCSV = "dataset_csv"
	ArtifactReportMD   = "report_md"
	ArtifactChartsHTML = "charts_html"
)

// DefaultVariableSpecs lists every series that gets extended to the end year
// and the preferred method per series. GDP components are trended series
// where the differenced ARIMA fits well; demographics move too smoothly for
// it and take the average growth rate directly; the tax ratio is bounded and
// near-linear. Human capital is handled by its own step before this pass.
func DefaultVariableSpecs() []forecast.VariableSpec {
	return []forecast.VariableSpec{
		{Name: domain.ColGDP, Method: forecast.MethodARIMA},
		{Name: domain.ColConsumption, Method: forecast.MethodARIMA},
		{Name: domain.ColGovernment, Method: forecast.MethodARIMA},
		{Name: domain.ColInvestment, Method: forecast.MethodARIMA},
		{Name: domain.ColExports, Method: forecast.MethodARIMA},
		{Name: domain.ColImports, Method: forecast.MethodARIMA},
		{Name: domain.ColPopulation, Method: forecast.MethodAverageGrowthRate},
		{Name: domain.ColLaborForce, Method: forecast.MethodAverageGrowthRate},
		{Name: domain.ColRKNA, Method: forecast.MethodARIMA},
		{Name: domain.ColPriceGDP, Method: forecast.MethodARIMA},
		{Name: domain.ColTaxRate, Method: forecast.MethodLinearRegression},
	}
}

func (r *RunState) thresholds() forecast.Thresholds {
	th := forecast.DefaultThresholds()
	cfg := r.Config()
	if cfg.Pipeline.MinObsARIMA > 0 {
		th.ARIMA = cfg.Pipeline.MinObsARIMA
	}
	if cfg.Pipeline.MinObsLinear > 0 {
		th.Linear = cfg.Pipeline.MinObsLinear
	}
	return th
}

// FetchStep downloads and merges all configured sources into the run table.
type FetchStep struct {
	BaseStep
	loaders []sources.Loader
	logger  *slog.Logger
}

// NewFetchStep creates the fetch step over the given loaders.
func NewFetchStep(loaders []sources.Loader, logger *slog.Logger) *FetchStep {
	return &FetchStep{
		BaseStep: NewBaseStep(StepIDFetch, "Download sources"),
		loaders:  loaders,
		logger:   logger,
	}
}

func (s *FetchStep) Validate(state *RunState) error {
	if len(s.loaders) == 0 {
		return fmt.Errorf("no source loaders configured")
	}
	return nil
}

func (s *FetchStep) Execute(ctx context.Context, state *RunState) error {
	table, err := sources.FetchAll(ctx, s.loaders, s.logger)
	if err != nil {
		return fmt.Errorf("failed to fetch sources: %w", err)
	}
	state.SetTable(table)
	return nil
}

// LoadStep reads a previously exported dataset from a CSV file instead of
// hitting the sources. It replaces FetchStep for offline runs.
type LoadStep struct {
	BaseStep
	path   string
	logger *slog.Logger
}

// NewLoadStep creates the offline load step for the given CSV path.
func NewLoadStep(path string, logger *slog.Logger) *LoadStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoadStep{
		BaseStep: NewBaseStep(StepIDLoad, "Load dataset from file"),
		path:     path,
		logger:   logger,
	}
}

func (s *LoadStep) Validate(state *RunState) error {
	if s.path == "" {
		return fmt.Errorf("no input file configured")
	}
	return nil
}

func (s *LoadStep) Execute(ctx context.Context, state *RunState) error {
	table, err := sources.LoadCSV(s.path)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	s.logger.InfoContext(ctx, "dataset loaded from file",
		slog.String("path", s.path),
		slog.Int("rows", table.Len()),
		slog.Int("columns", len(table.Columns())))
	state.SetTable(table)
	return nil
}

// NormalizeStep converts raw units to billions of USD and millions of people.
type NormalizeStep struct {
	BaseStep
	logger *slog.Logger
}

// NewNormalizeStep creates the unit normalization step.
func NewNormalizeStep(logger *slog.Logger) *NormalizeStep {
	return &NormalizeStep{
		BaseStep: NewBaseStep(StepIDNormalize, "Normalize units"),
		logger:   logger,
	}
}

func (s *NormalizeStep) Validate(state *RunState) error {
	return requireTable(state)
}

func (s *NormalizeStep) Execute(ctx context.Context, state *RunState) error {
	normalize.Apply(state.Table(), normalize.DefaultRules(), s.logger)
	return nil
}

// CapitalBaselineStep anchors the capital stock and fills it for every year
// with observed index data. A table without a usable baseline is not an
// error: the capital column stays absent and TFP degrades to missing.
type CapitalBaselineStep struct {
	BaseStep
	logger *slog.Logger
}

// NewCapitalBaselineStep creates the capital baseline step.
func NewCapitalBaselineStep(logger *slog.Logger) *CapitalBaselineStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &CapitalBaselineStep{
		BaseStep: NewBaseStep(StepIDCapitalBaseline, "Estimate capital stock"),
		logger:   logger,
	}
}

func (s *CapitalBaselineStep) Validate(state *RunState) error {
	return requireTable(state)
}

func (s *CapitalBaselineStep) Execute(ctx context.Context, state *RunState) error {
	cfg := state.Config()
	params := capital.Params{
		CapitalOutputRatio: cfg.Pipeline.CapitalOutputRatio,
		BaselineYear:       cfg.Pipeline.BaselineYear,
	}
	if base, ok := capital.Estimate(state.Table(), params, s.logger); ok {
		state.SetBaseline(base)
	}
	return nil
}

// HumanCapitalStep projects the human capital index ahead of the general
// extrapolation pass. The index moves near-linearly, so it gets a linear
// trend regardless of what the other series use, and TFP later picks up the
// projected values.
type HumanCapitalStep struct {
	BaseStep
	logger *slog.Logger
}

// NewHumanCapitalStep creates the human capital projection step.
func NewHumanCapitalStep(logger *slog.Logger) *HumanCapitalStep {
	return &HumanCapitalStep{
		BaseStep: NewBaseStep(StepIDHumanCapital, "Project human capital"),
		logger:   logger,
	}
}

func (s *HumanCapitalStep) Validate(state *RunState) error {
	return requireTable(state)
}

func (s *HumanCapitalStep) Execute(ctx context.Context, state *RunState) error {
	d := forecast.NewDispatcher(state.Config().Pipeline.EndYear, state.thresholds(), s.logger)
	rec := d.Extend(state.Table(), forecast.VariableSpec{
		Name:   domain.ColHumanCapital,
		Method: forecast.MethodLinearRegression,
	})
	state.AddRecords(rec)
	return nil
}

// ExtrapolateStep extends every remaining series to the configured end year.
type ExtrapolateStep struct {
	BaseStep
	specs  []forecast.VariableSpec
	logger *slog.Logger
}

// NewExtrapolateStep creates the extrapolation step. A nil specs slice means
// the default variable list.
func NewExtrapolateStep(specs []forecast.VariableSpec, logger *slog.Logger) *ExtrapolateStep {
	if specs == nil {
		specs = DefaultVariableSpecs()
	}
	return &ExtrapolateStep{
		BaseStep: NewBaseStep(StepIDExtrapolate, "Extrapolate series"),
		specs:    specs,
		logger:   logger,
	}
}

func (s *ExtrapolateStep) Validate(state *RunState) error {
	return requireTable(state)
}

func (s *ExtrapolateStep) Execute(ctx context.Context, state *RunState) error {
	d := forecast.NewDispatcher(state.Config().Pipeline.EndYear, state.thresholds(), s.logger)
	recs, err := d.ExtendAll(ctx, state.Table(), s.specs)
	if err != nil {
		return err
	}
	state.AddRecords(recs...)
	return nil
}

// CapitalProjectionStep re-runs the capital formula after extrapolation so
// projected index values yield projected capital under the same baseline.
type CapitalProjectionStep struct {
	BaseStep
	logger *slog.Logger
}

// NewCapitalProjectionStep creates the capital re-projection step.
func NewCapitalProjectionStep(logger *slog.Logger) *CapitalProjectionStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &CapitalProjectionStep{
		BaseStep: NewBaseStep(StepIDCapitalProjection, "Project capital stock"),
		logger:   logger,
	}
}

func (s *CapitalProjectionStep) Validate(state *RunState) error {
	return requireTable(state)
}

func (s *CapitalProjectionStep) Execute(ctx context.Context, state *RunState) error {
	base, ok := state.Baseline()
	if !ok {
		s.logger.InfoContext(ctx, "no capital baseline, skipping capital projection")
		return nil
	}
	cfg := state.Config()
	params := capital.Params{
		CapitalOutputRatio: cfg.Pipeline.CapitalOutputRatio,
		BaselineYear:       cfg.Pipeline.BaselineYear,
	}
	capital.Compute(state.Table(), params, base, s.logger)
	return nil
}

// IndicatorsStep derives TFP, trade, fiscal and savings indicators from the
// completed series.
type IndicatorsStep struct {
	BaseStep
	logger *slog.Logger
}

// NewIndicatorsStep creates the indicator derivation step.
func NewIndicatorsStep(logger *slog.Logger) *IndicatorsStep {
	return &IndicatorsStep{
		BaseStep: NewBaseStep(StepIDIndicators, "Derive indicators"),
		logger:   logger,
	}
}

func (s *IndicatorsStep) Validate(state *RunState) error {
	return requireTable(state)
}

func (s *IndicatorsStep) Execute(ctx context.Context, state *RunState) error {
	indicators.Compute(state.Table(), indicators.Params{Alpha: state.Config().Pipeline.Alpha}, s.logger)
	return nil
}

// ExportStep writes the dataset CSV, the Markdown report and the chart page.
// A chart failure does not fail the run; the CSV and report are the primary
// outputs and partial output beats none.
type ExportStep struct {
	BaseStep
	csv    *exporter.CSVWriter
	md     *exporter.MarkdownWriter
	charts *exporter.ChartWriter
	logger *slog.Logger
}

// NewExportStep creates the export step writing into dir.
func NewExportStep(dir string, logger *slog.Logger) *ExportStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportStep{
		BaseStep: NewBaseStep(StepIDExport, "Export results"),
		csv:      exporter.NewCSVWriter(dir, logger),
		md:       exporter.NewMarkdownWriter(dir, logger),
		charts:   exporter.NewChartWriter(dir, logger),
		logger:   logger,
	}
}

func (s *ExportStep) Validate(state *RunState) error {
	return requireTable(state)
}

func (s *ExportStep) Execute(ctx context.Context, state *RunState) error {
	table := state.Table()
	cfg := state.Config()

	path, err := s.csv.WriteTable("dataset.csv", table)
	if err != nil {
		return err
	}
	state.SetArtifact(ArtifactDatasetCSV, path)

	base, _ := state.Baseline()
	meta := exporter.ReportMeta{
		Alpha:               cfg.Pipeline.Alpha,
		CapitalOutputRatio:  cfg.Pipeline.CapitalOutputRatio,
		BaselineYear:        base.Year,
		BaselineSubstituted: base.Substituted,
		EndYear:             cfg.Pipeline.EndYear,
		Records:             state.Records(),
		GeneratedAt:         time.Now(),
	}
	path, err = s.md.WriteReport("report.md", table, meta)
	if err != nil {
		return err
	}
	state.SetArtifact(ArtifactReportMD, path)

	path, err = s.charts.WriteCharts("charts.html", table)
	if err != nil {
		s.logger.WarnContext(ctx, "chart export failed", slog.Any("error", err))
		return nil
	}
	state.SetArtifact(ArtifactChartsHTML, path)
	return nil
}

func requireTable(state *RunState) error {
	if state.Table() == nil {
		return fmt.Errorf("no dataset loaded")
	}
	return nil
}

// Options selects how a run is assembled. Exactly one of Loaders or
// InputFile provides the dataset.
type Options struct {
	Loaders   []sources.Loader
	InputFile string
	OutputDir string
	Logger    *slog.Logger
}

// Assemble builds the registry with the fixed step order: fetch (or load),
// normalize, capital baseline, human capital projection, extrapolation,
// capital re-projection, indicators, export.
func Assemble(opts Options) (*Registry, error) {
	if opts.InputFile != "" && len(opts.Loaders) > 0 {
		return nil, fmt.Errorf("input file and source loaders are mutually exclusive")
	}

	registry := NewRegistry()

	var first Step
	if opts.InputFile != "" {
		first = NewLoadStep(opts.InputFile, opts.Logger)
	} else {
		first = NewFetchStep(opts.Loaders, opts.Logger)
	}

	steps := []Step{
		first,
		NewNormalizeStep(opts.Logger),
		NewCapitalBaselineStep(opts.Logger),
		NewHumanCapitalStep(opts.Logger),
		NewExtrapolateStep(nil, opts.Logger),
		NewCapitalProjectionStep(opts.Logger),
		NewIndicatorsStep(opts.Logger),
		NewExportStep(opts.OutputDir, opts.Logger),
	}
	for _, step := range steps {
		if err := registry.Register(step); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
