package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"sompo-quote-agent/internal/config"
	"sompo-quote-agent/internal/entity"
	"sompo-quote-agent/internal/ports"
	"sompo-quote-agent/pkg/apperr"
	"sompo-quote-agent/pkg/logg"
	"sompo-quote-agent/pkg/tracing"
)

const (
	pipelineName   = "QuotePipeline"
	pipelineTracer = "usecase.pipeline"
)

// PipelineService sequences the four stages of a quote run over one
// browser session: authentication, product navigation, form
// submission, price extraction. The first fatal stage error
// short-circuits the rest; the session is released on every exit path.
type PipelineService struct {
	config *config.Config
	logger *zap.Logger
	tracer trace.Tracer
	driver ports.BrowserDriver
	codes  ports.CodeGenerator
	exec   *StepExecutor
}

type PipelineParams struct {
	fx.In

	Config   *config.Config
	Logger   *zap.Logger
	Driver   ports.BrowserDriver
	Codes    ports.CodeGenerator
	Executor *StepExecutor
}

func NewPipeline(params PipelineParams) *PipelineService {
	return &PipelineService{
		config: params.Config,
		logger: params.Logger.With(zap.String(logg.Layer, pipelineName)),
		tracer: otel.Tracer(pipelineTracer),
		driver: params.Driver,
		codes:  params.Codes,
		exec:   params.Executor,
	}
}

func (s *PipelineService) Run(ctx context.Context, request *entity.QuoteRequest) (resp *entity.QuoteResponse, err error) {
	const op = "Run"

	if request.RequestID == "" {
		request.RequestID = uuid.NewString()
	}

	logger := s.logger.With(
		zap.String(logg.Operation, op),
		zap.String(logg.RequestID, request.RequestID),
		zap.String(logg.Product, string(request.ProductType)),
	)

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String("request_id", request.RequestID),
		attribute.String("product_type", string(request.ProductType)))
	defer func() {
		step.End(err)
	}()

	if !request.ProductType.Valid() {
		return nil, apperr.InvalidReqError(op, "product_type", errors.New("unsupported product type"))
	}

	if !s.driver.IsReady() {
		return nil, apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, s.config.PipelineConfig.Deadline)
	defer cancel()

	// The session must never outlive the run, success or failure.
	defer func() {
		if closeErr := s.driver.Close(context.WithoutCancel(ctx)); closeErr != nil {
			logger.Warn("Failed to release browser session", zap.Error(closeErr))
		}
	}()

	runTrace := &entity.RunTrace{}

	creds := &entity.Credentials{
		Username:   s.config.PortalConfig.Username,
		Password:   s.config.PortalConfig.Password,
		TOTPSecret: s.config.PortalConfig.TOTPSecret,
	}

	stages := []struct {
		name string
		fn   func(context.Context, *entity.RunTrace) error
	}{
		{"authenticate", func(ctx context.Context, t *entity.RunTrace) error {
			return s.authenticate(ctx, creds, t)
		}},
		{"select_product", func(ctx context.Context, t *entity.RunTrace) error {
			return s.selectProduct(ctx, request.ProductType, t)
		}},
		{"fill_and_submit", func(ctx context.Context, t *entity.RunTrace) error {
			return s.fillAndSubmit(ctx, request, t)
		}},
	}

	for _, stage := range stages {
		step.AddEvent("stage: " + stage.name)
		logger.Info("Running stage", zap.String(logg.Stage, stage.name))

		if err := s.runStage(ctx, stage.fn, runTrace); err != nil {
			logger.Error("Stage failed",
				zap.String(logg.Stage, stage.name),
				zap.Strings("diagnostics", runTrace.Diagnostics),
				zap.Error(err))

			return nil, err
		}
	}

	step.AddEvent("stage: extract_price")
	logger.Info("Running stage", zap.String(logg.Stage, "extract_price"))

	resp, err = s.extractQuote(ctx, request, runTrace, start)
	if err != nil {
		if deadlineErr := s.deadlineError(ctx, err); deadlineErr != nil {
			return nil, deadlineErr
		}

		logger.Error("Stage failed",
			zap.String(logg.Stage, "extract_price"),
			zap.Strings("diagnostics", runTrace.Diagnostics),
			zap.Error(err))

		return nil, err
	}

	logger.Info("Quote acquired",
		zap.String("gross", resp.Premium.Gross.String()),
		zap.Int64("scrape_ms", resp.Timings.ScrapeMs))

	return resp, nil
}

func (s *PipelineService) runStage(ctx context.Context, fn func(context.Context, *entity.RunTrace) error, runTrace *entity.RunTrace) error {
	err := fn(ctx, runTrace)
	if err == nil {
		return nil
	}

	if deadlineErr := s.deadlineError(ctx, err); deadlineErr != nil {
		return deadlineErr
	}

	return err
}

// deadlineError maps a stage failure caused by the run deadline to the
// timeout taxonomy so the caller sees one clean timeout failure rather
// than whichever step happened to be in flight.
func (s *PipelineService) deadlineError(ctx context.Context, err error) error {
	if ctx.Err() == nil {
		return nil
	}

	return apperr.Wrap("Run", apperr.CodeTimeout, err, map[string]any{
		apperr.MetaReason: "pipeline_deadline_exceeded",
	})
}
