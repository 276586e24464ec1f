package pipeline

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chinaecon/internal/config"
	"chinaecon/internal/infrastructure"
)

const tracerName = "chinaecon.pipeline"

// Manager drives a pipeline run: it walks the registry in registration
// order, validating and executing each step against the shared run state,
// and fails the run on the first step error.
type Manager struct {
	registry *Registry
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewManager creates a manager over the given registry.
func NewManager(registry *Registry, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		registry: registry,
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
	}
}

// Run executes every registered step in order and returns the final state.
// The returned state is also populated on failure so callers can report
// which step broke and what had completed by then.
func (m *Manager) Run(ctx context.Context, cfg *config.Config) (*RunState, error) {
	state := NewRunState(cfg)

	ctx = infrastructure.EnsureTraceID(ctx)
	logger := m.logger.With(slog.String("run_id", state.ID))

	ctx, span := m.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", state.ID),
			attribute.Int("run.end_year", cfg.Pipeline.EndYear),
			attribute.Int("run.steps", m.registry.Count()),
		),
	)
	defer span.End()

	state.Start()
	logger.InfoContext(ctx, "pipeline run started",
		slog.Any("steps", m.registry.ListIDs()))

	for _, step := range m.registry.List() {
		stepState := NewStepState(step.ID(), step.Name())
		state.SetStep(stepState)

		if err := ctx.Err(); err != nil {
			wrapped := NewStepError(step.ID(), "run cancelled", err)
			stepState.Fail(wrapped)
			state.Fail(wrapped)
			span.SetStatus(codes.Error, "run cancelled")
			return state, wrapped
		}

		if err := step.Validate(state); err != nil {
			wrapped := NewStepError(step.ID(), "precondition failed", err)
			stepState.Fail(wrapped)
			state.Fail(wrapped)
			logger.ErrorContext(ctx, "step precondition failed",
				slog.String("step", step.ID()),
				slog.Any("error", err))
			span.SetStatus(codes.Error, wrapped.Error())
			return state, wrapped
		}

		stepCtx, stepSpan := m.tracer.Start(ctx, "pipeline.step."+step.ID(),
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(
				attribute.String("run.id", state.ID),
				attribute.String("step.id", step.ID()),
			),
		)

		stepState.Start()
		logger.InfoContext(stepCtx, "step started", slog.String("step", step.ID()))

		if err := step.Execute(stepCtx, state); err != nil {
			wrapped := NewStepError(step.ID(), "execution failed", err)
			stepState.Fail(wrapped)
			state.Fail(wrapped)
			stepSpan.RecordError(err)
			stepSpan.SetStatus(codes.Error, wrapped.Error())
			stepSpan.End()
			logger.ErrorContext(stepCtx, "step failed",
				slog.String("step", step.ID()),
				slog.Duration("duration", stepState.Duration()),
				slog.Any("error", err))
			span.SetStatus(codes.Error, wrapped.Error())
			return state, wrapped
		}

		stepState.Complete()
		stepSpan.SetStatus(codes.Ok, "step completed")
		stepSpan.End()
		logger.InfoContext(stepCtx, "step completed",
			slog.String("step", step.ID()),
			slog.Duration("duration", stepState.Duration()))
	}

	state.Complete()
	span.SetStatus(codes.Ok, "run completed")
	logger.InfoContext(ctx, "pipeline run completed",
		slog.Duration("duration", state.Duration()))
	return state, nil
}
