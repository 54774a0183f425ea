package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"sompo-quote-agent/internal/entity"
	"sompo-quote-agent/internal/ports"
	"sompo-quote-agent/pkg/apperr"
	"sompo-quote-agent/pkg/logg"
)

const runnerName = "Runner"

// Runner executes one quote request and exits. The request arrives as
// JSON in the first argument or on stdin, and exactly one JSON
// document is written to stdout whatever happens: the quote on
// success, an error envelope otherwise. Logs go to stderr so stdout
// stays machine-readable.
type Runner struct {
	logger     *zap.Logger
	pipeline   ports.QuotePipeline
	shutdowner fx.Shutdowner

	args  []string
	in    io.Reader
	out   io.Writer
	close chan struct{}
}

type Params struct {
	fx.In

	Logger     *zap.Logger
	Pipeline   ports.QuotePipeline
	Shutdowner fx.Shutdowner
}

func New(params Params) *Runner {
	return &Runner{
		logger:     params.Logger.With(zap.String(logg.Layer, runnerName)),
		pipeline:   params.Pipeline,
		shutdowner: params.Shutdowner,
		args:       os.Args[1:],
		in:         os.Stdin,
		out:        os.Stdout,
		close:      make(chan struct{}),
	}
}

// Start runs the request to completion and asks the app to shut down
// with the matching exit code. It blocks and is meant to run in its
// own goroutine from a lifecycle hook.
func (r *Runner) Start(ctx context.Context) {
	code := r.run(ctx)

	if err := r.shutdowner.Shutdown(fx.ExitCode(code)); err != nil {
		r.logger.Error("Shutdown request failed", zap.Error(err))
	}

	close(r.close)
}

// Stop waits for an in-flight run to finish writing its output.
func (r *Runner) Stop(ctx context.Context) error {
	select {
	case <-r.close:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) run(ctx context.Context) int {
	request, err := r.readRequest()
	if err != nil {
		r.logger.Error("Invalid request", zap.Error(err))
		r.emit(&entity.ErrorResponse{Success: false, Error: apperr.CodeInvalidArgument})

		return 1
	}

	r.logger.Info("Starting quote run",
		zap.String(logg.Product, string(request.ProductType)),
		zap.String(logg.RequestID, request.RequestID))

	response, err := r.pipeline.Run(ctx, request)
	if err != nil {
		r.logger.Error("Quote run failed", zap.Error(err))
		r.emit(&entity.ErrorResponse{Success: false, Error: apperr.CodeOf(err)})

		return 1
	}

	r.emit(response)

	return 0
}

func (r *Runner) readRequest() (*entity.QuoteRequest, error) {
	var raw []byte

	if len(r.args) > 0 && strings.TrimSpace(r.args[0]) != "" {
		raw = []byte(r.args[0])
	} else {
		data, err := io.ReadAll(r.in)
		if err != nil {
			return nil, fmt.Errorf("read request from stdin: %w", err)
		}
		raw = data
	}

	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, errors.New("no request supplied in arguments or stdin")
	}

	var request entity.QuoteRequest
	if err := json.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}

	if !request.ProductType.Valid() {
		return nil, fmt.Errorf("unsupported product type %q", request.ProductType)
	}

	return &request, nil
}

// emit writes the single stdout document. A failed marshal still
// produces valid JSON so callers never parse garbage.
func (r *Runner) emit(payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		r.logger.Error("Failed to encode output", zap.Error(err))
		data = []byte(`{"success":false,"error":"internal"}`)
	}

	fmt.Fprintln(r.out, string(data))
}
