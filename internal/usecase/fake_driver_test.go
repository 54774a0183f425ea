package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"sompo-quote-agent/internal/config"
	"sompo-quote-agent/internal/entity"
)

// fakeDriver is a scripted page: hooks on clicks and key presses
// mutate the url and the visible element set the way a real portal
// transition would.
type fakeDriver struct {
	ready    bool
	closed   bool
	url      string
	elements []entity.Element

	fills   map[string]string
	clicked []string
	pressed []string

	clickHooks map[string]func(d *fakeDriver)
	pressHooks map[string]func(d *fakeDriver)
	reloadHook func(d *fakeDriver)
	queryHook  func(call int) ([]entity.Element, error)
	queryCalls int

	// tickHook fires on every WaitForURL poll with the cumulative poll
	// count, letting a scenario land on a URL mid-wait.
	tickHook func(d *fakeDriver, tick int)
	ticks    int

	// page script results
	prices       []any
	messages     []any
	spinnerShown bool
	cardClick    func(d *fakeDriver) bool
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		ready:      true,
		fills:      make(map[string]string),
		clickHooks: make(map[string]func(d *fakeDriver)),
		pressHooks: make(map[string]func(d *fakeDriver)),
	}
}

func (d *fakeDriver) Launch(ctx context.Context) error { d.ready = true; return nil }

func (d *fakeDriver) Close(ctx context.Context) error {
	d.closed = true
	d.ready = false
	return nil
}

func (d *fakeDriver) IsReady() bool { return d.ready }

func (d *fakeDriver) Navigate(ctx context.Context, url string) error {
	d.url = url
	return nil
}

func (d *fakeDriver) Reload(ctx context.Context) error {
	if d.reloadHook != nil {
		d.reloadHook(d)
	}
	return nil
}

func (d *fakeDriver) CurrentURL(ctx context.Context) (string, error) { return d.url, nil }

func (d *fakeDriver) QueryVisible(ctx context.Context) ([]entity.Element, error) {
	d.queryCalls++
	if d.queryHook != nil {
		return d.queryHook(d.queryCalls)
	}
	return d.elements, nil
}

func (d *fakeDriver) Click(ctx context.Context, selector string) error {
	d.clicked = append(d.clicked, selector)
	if hook := d.clickHooks[selector]; hook != nil {
		hook(d)
	}
	return nil
}

func (d *fakeDriver) Fill(ctx context.Context, selector, value string) error {
	d.fills[selector] = value
	return nil
}

func (d *fakeDriver) FillReactive(ctx context.Context, selector, value string) error {
	d.fills[selector] = value
	return nil
}

func (d *fakeDriver) ReadValue(ctx context.Context, selector string) (string, error) {
	return d.fills[selector], nil
}

func (d *fakeDriver) Press(ctx context.Context, selector, key string) error {
	d.pressed = append(d.pressed, selector+":"+key)
	if hook := d.pressHooks[selector]; hook != nil {
		hook(d)
	}
	return nil
}

func (d *fakeDriver) Evaluate(ctx context.Context, script string) (any, error) {
	switch {
	case strings.Contains(script, "spinner"):
		return d.spinnerShown, nil
	case strings.Contains(script, "teklif al"):
		if d.cardClick != nil {
			return d.cardClick(d), nil
		}
		return false, nil
	case strings.Contains(script, `input[type="checkbox"]`):
		return float64(0), nil
	case strings.Contains(script, "TL|₺"):
		if d.prices == nil {
			return []any{}, nil
		}
		return d.prices, nil
	case strings.Contains(script, `[class*="error"]`):
		if d.messages == nil {
			return []any{}, nil
		}
		return d.messages, nil
	}
	return nil, errors.New("unknown script")
}

func (d *fakeDriver) WaitForURL(ctx context.Context, predicate func(url string) bool, timeout time.Duration) error {
	for i := 0; i < 20; i++ {
		if predicate(d.url) {
			return nil
		}
		d.ticks++
		if d.tickHook != nil {
			d.tickHook(d, d.ticks)
		}
		time.Sleep(time.Millisecond)
	}
	return errors.New("url wait timed out")
}

func (d *fakeDriver) WaitForNetworkIdle(ctx context.Context, timeout time.Duration) error {
	return nil
}

func (d *fakeDriver) Screenshot(ctx context.Context, path string) error { return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		AppConfig:     &config.AppConfig{LogLevel: "error"},
		BrowserConfig: &config.BrowserConfig{Headless: true},
		PortalConfig: &config.PortalConfig{
			BaseURL:   "https://ejento.somposigorta.com.tr",
			LoginPath: "/dashboard/login",
			Username:  "agent42",
			Password:  "hunter2hunter2",
		},
		PipelineConfig: &config.PipelineConfig{
			Deadline:      5 * time.Second,
			SettleDelay:   time.Millisecond,
			StepRetries:   1,
			ExtractWindow: 50 * time.Millisecond,
			PriceMin:      100,
			PriceMax:      100000,
			TaxRate:       0.18,
			ScreenshotDir: t.TempDir(),
		},
	}
}

func testPipeline(t *testing.T, driver *fakeDriver) *PipelineService {
	t.Helper()

	conf := testConfig(t)
	logger := zap.NewNop()
	exec := NewStepExecutor(StepExecutorParams{Config: conf, Logger: logger, Driver: driver})

	return NewPipeline(PipelineParams{
		Config:   conf,
		Logger:   logger,
		Driver:   driver,
		Codes:    &staticCodes{code: "123456"},
		Executor: exec,
	})
}

type staticCodes struct {
	code string
	err  error
}

func (c *staticCodes) CurrentCode(seed string) (string, error) {
	if seed == "" {
		return "", errors.New("no seed")
	}
	return c.code, c.err
}

func loginElements() []entity.Element {
	return []entity.Element{
		{Tag: "input", Type: "text", Name: "username", Selector: "#user", Visible: true, Enabled: true},
		{Tag: "input", Type: "password", Name: "password", Selector: "#pass", Visible: true, Enabled: true},
		{Tag: "button", Text: "GİRİŞ YAP", Selector: "#login-btn", Visible: true, Enabled: true},
	}
}

func dashboardElements() []entity.Element {
	return []entity.Element{
		{Tag: "a", Text: "Trafik Sigortası", Selector: "#trafik-link", Visible: true, Enabled: true},
		{Tag: "a", Text: "Kasko Sigortası", Selector: "#kasko-link", Visible: true, Enabled: true},
		{Tag: "button", Text: "YENİ İŞ TEKLİFİ", Selector: "#new-quote", Visible: true, Enabled: true},
	}
}

func quoteFormElements() []entity.Element {
	return []entity.Element{
		{Tag: "input", Type: "text", Name: "plaka", Selector: "#plate", Visible: true, Enabled: true},
		{Tag: "input", Type: "text", Name: "tckn", Selector: "#tckn", Visible: true, Enabled: true},
		{Tag: "button", Text: "TEKLİF OLUŞTUR", Selector: "#submit-btn", Visible: true, Enabled: true},
	}
}

// scriptHappyPortal wires the fake as a portal that logs in on Enter,
// offers a direct product link and yields one quote page.
func scriptHappyPortal(d *fakeDriver, prices []any) {
	d.elements = loginElements()

	d.pressHooks["#pass"] = func(d *fakeDriver) {
		d.url = "https://ejento.somposigorta.com.tr/dashboard/home"
		d.elements = dashboardElements()
	}

	d.clickHooks["#trafik-link"] = func(d *fakeDriver) {
		d.url = "https://cosmos.somposigorta.com.tr/quote/trafik"
		d.elements = quoteFormElements()
	}

	d.clickHooks["#kasko-link"] = func(d *fakeDriver) {
		d.url = "https://cosmos.somposigorta.com.tr/quote/kasko"
		d.elements = quoteFormElements()
	}

	d.clickHooks["#submit-btn"] = func(d *fakeDriver) {
		d.prices = prices
	}
}
