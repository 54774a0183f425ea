package bootstrap

import (
	"time"

	"go.uber.org/fx"

	"sompo-quote-agent/internal/browser"
	"sompo-quote-agent/internal/config"
	"sompo-quote-agent/internal/otp"
	"sompo-quote-agent/internal/ports"
	"sompo-quote-agent/internal/runner"
	"sompo-quote-agent/internal/usecase"
)

func NewApp() *fx.App {
	return fx.New(
		fx.Provide(
			config.GetConfig,
			newLogger,
			newTraceProvider,

			fx.Annotate(browser.NewManager, fx.As(new(ports.BrowserDriver))),
			fx.Annotate(otp.NewGenerator, fx.As(new(ports.CodeGenerator))),

			usecase.NewStepExecutor,
			fx.Annotate(usecase.NewPipeline, fx.As(new(ports.QuotePipeline))),

			runner.New,
		),

		fx.Invoke(
			runWorker,
		),

		fx.StartTimeout(30*time.Second),
	)
}
