package bootstrap

import (
	"context"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"sompo-quote-agent/internal/ports"
	"sompo-quote-agent/internal/runner"
)

// The trace provider is a dependency so fx constructs it; without an
// invoke target depending on it, spans would hit the no-op global.
func runWorker(lc fx.Lifecycle, worker *runner.Runner, browser ports.BrowserDriver, _ *sdktrace.TracerProvider, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Launching browser...")

			if err := browser.Launch(ctx); err != nil {
				logger.Error("Failed to launch browser", zap.Error(err))

				return err
			}

			logger.Info("Browser launched successfully")

			// The run outlives the start hook, so it gets its own
			// context and ends by asking the app to shut down.
			go worker.Start(context.Background())

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down quote worker...")

			if err := worker.Stop(ctx); err != nil {
				logger.Error("Failed to stop worker", zap.Error(err))
			}

			if browser.IsReady() {
				if err := browser.Close(ctx); err != nil {
					logger.Error("Failed to close browser", zap.Error(err))
				}
			}

			return nil
		},
	})
}
