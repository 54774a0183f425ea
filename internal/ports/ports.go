package ports

import (
	"context"
	"time"

	"sompo-quote-agent/internal/entity"
)

// BrowserDriver is the narrow browser-control capability the pipeline
// is written against. The pipeline never touches playwright directly.
type BrowserDriver interface {
	Launch(ctx context.Context) error
	Close(ctx context.Context) error
	IsReady() bool

	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	CurrentURL(ctx context.Context) (string, error)

	// QueryVisible enumerates the page's visible interactive elements
	// with the metadata the locator heuristics need.
	QueryVisible(ctx context.Context) ([]entity.Element, error)

	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, value string) error
	// FillReactive sets the value via script and dispatches
	// input/change/blur so framework-bound forms commit it.
	FillReactive(ctx context.Context, selector, value string) error
	ReadValue(ctx context.Context, selector string) (string, error)
	Press(ctx context.Context, selector, key string) error

	Evaluate(ctx context.Context, script string) (any, error)
	WaitForURL(ctx context.Context, predicate func(url string) bool, timeout time.Duration) error
	WaitForNetworkIdle(ctx context.Context, timeout time.Duration) error
	Screenshot(ctx context.Context, path string) error
}

// CodeGenerator produces the current time-based one-time-password for
// a base32 seed.
type CodeGenerator interface {
	CurrentCode(seed string) (string, error)
}

// QuotePipeline runs the full login-to-extraction sequence once.
type QuotePipeline interface {
	Run(ctx context.Context, request *entity.QuoteRequest) (*entity.QuoteResponse, error)
}
