package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"sompo-quote-agent/internal/config"
	"sompo-quote-agent/internal/entity"
	"sompo-quote-agent/internal/locator"
	"sompo-quote-agent/internal/ports"
	"sompo-quote-agent/pkg/apperr"
	"sompo-quote-agent/pkg/logg"
	"sompo-quote-agent/pkg/tracing"
)

const (
	executorName   = "StepExecutor"
	executorTracer = "usecase.executor"
)

type StepAction string

const (
	StepClick        StepAction = "click"
	StepFill         StepAction = "fill"
	StepFillReactive StepAction = "fill_reactive"
	StepRead         StepAction = "read"
)

// StepExecutor wraps every fallible page interaction in one uniform
// retry envelope: resolve the intent, perform the action, wait a
// settle interval and retry on absence or failure, and capture a
// diagnostic snapshot when attempts are exhausted. Higher stages rely
// on a wrapped action either eventually succeeding or cleanly failing.
type StepExecutor struct {
	config   *config.Config
	logger   *zap.Logger
	tracer   trace.Tracer
	driver   ports.BrowserDriver
	resolver *locator.Resolver
}

type StepExecutorParams struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
	Driver ports.BrowserDriver
}

func NewStepExecutor(params StepExecutorParams) *StepExecutor {
	return &StepExecutor{
		config:   params.Config,
		logger:   params.Logger.With(zap.String(logg.Layer, executorName)),
		tracer:   otel.Tracer(executorTracer),
		driver:   params.Driver,
		resolver: locator.NewResolver(),
	}
}

// Execute resolves the intent and performs the action, retrying with a
// settle delay between attempts. The returned element is the one acted
// on; for StepRead its Value field carries the text read back.
func (e *StepExecutor) Execute(ctx context.Context, action StepAction, intent locator.Intent, value string) (el entity.Element, err error) {
	const op = "Execute"
	logger := e.logger.With(
		zap.String(logg.Operation, op),
		zap.String("step_action", string(action)),
		zap.String(logg.Intent, string(intent)),
	)

	ctx, step := tracing.StartSpan(ctx, e.tracer, logger, op,
		attribute.String("step_action", string(action)),
		attribute.String("intent", string(intent)))
	defer func() {
		step.End(err)
	}()

	retries := e.config.PipelineConfig.StepRetries
	settle := e.config.PipelineConfig.SettleDelay

	var lastErr error

	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			logger.Debug("Retrying step", zap.Int(logg.Attempt, attempt))

			select {
			case <-ctx.Done():
				return entity.Element{}, apperr.Wrap(op, apperr.CodeTimeout, ctx.Err(), map[string]any{
					apperr.MetaReason: "context_cancelled",
					apperr.MetaIntent: string(intent),
				})
			case <-time.After(settle):
			}
		}

		elements, queryErr := e.driver.QueryVisible(ctx)
		if queryErr != nil {
			lastErr = queryErr
			continue
		}

		target, found := e.resolver.Resolve(intent, elements)
		if !found {
			lastErr = fmt.Errorf("no element resolved for intent %s", intent)
			continue
		}

		actErr := e.perform(ctx, action, &target, value)
		if actErr == nil {
			step.AddEvent("step completed")

			return target, nil
		}

		lastErr = actErr
		logger.Warn("Step attempt failed", zap.Int(logg.Attempt, attempt), zap.Error(actErr))
	}

	snapshot := e.Snapshot(ctx, string(intent))

	return entity.Element{}, apperr.Wrap(op, apperr.CodeNotFound, lastErr, map[string]any{
		apperr.MetaReason: "element_not_found",
		apperr.MetaIntent: string(intent),
		"snapshot":        snapshot,
	})
}

// Try is Execute for steps whose absence is acceptable: it reports
// success via the bool and never errors.
func (e *StepExecutor) Try(ctx context.Context, action StepAction, intent locator.Intent, value string) (entity.Element, bool) {
	el, err := e.Execute(ctx, action, intent, value)

	return el, err == nil
}

// ResolveAllVisible returns every current match for the intent,
// resolved against the page once, with no retries.
func (e *StepExecutor) ResolveAllVisible(ctx context.Context, intent locator.Intent) []entity.Element {
	elements, err := e.driver.QueryVisible(ctx)
	if err != nil {
		return nil
	}

	return e.resolver.ResolveAll(intent, elements)
}

func (e *StepExecutor) perform(ctx context.Context, action StepAction, target *entity.Element, value string) error {
	switch action {
	case StepClick:
		return e.driver.Click(ctx, target.Selector)
	case StepFill:
		return e.driver.Fill(ctx, target.Selector, value)
	case StepFillReactive:
		return e.driver.FillReactive(ctx, target.Selector, value)
	case StepRead:
		read, err := e.driver.ReadValue(ctx, target.Selector)
		if err != nil {
			return err
		}
		target.Value = read

		return nil
	default:
		return fmt.Errorf("unknown step action: %s", action)
	}
}

// Snapshot writes a uniquely named diagnostic screenshot and returns
// "path (url)" for the failure trail. Best effort: snapshot failures
// only log.
func (e *StepExecutor) Snapshot(ctx context.Context, label string) string {
	dir := e.config.PipelineConfig.ScreenshotDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		e.logger.Warn("Failed to create screenshot dir", zap.Error(err))

		return ""
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%d.jpg", label, time.Now().UnixMilli()))

	if err := e.driver.Screenshot(ctx, path); err != nil {
		e.logger.Warn("Failed to capture screenshot", zap.Error(err))

		return ""
	}

	url, _ := e.driver.CurrentURL(ctx)

	return fmt.Sprintf("%s (%s)", path, url)
}
