package browser

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"sompo-quote-agent/internal/config"
	"sompo-quote-agent/internal/entity"
	"sompo-quote-agent/pkg/apperr"
	"sompo-quote-agent/pkg/logg"
	"sompo-quote-agent/pkg/tracing"
)

const (
	browserManagerName = "BrowserManager"
	browserTracer      = "browser.manager"
	maxRetries         = 3
	retryDelay         = 800 * time.Millisecond
	clickTimeout       = 15000
	fillTimeout        = 5000
	urlPollInterval    = 250 * time.Millisecond
)

// Manager drives the single Chromium page the pipeline operates on.
// It owns exactly one browser context and one active page per run.
type Manager struct {
	config         *config.Config
	logger         *zap.Logger
	tracer         trace.Tracer
	playwright     *playwright.Playwright
	browser        playwright.Browser
	browserContext playwright.BrowserContext
	page           playwright.Page
	ready          bool
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewManager(params Params) *Manager {
	return &Manager{
		config: params.Config,
		logger: params.Logger.With(zap.String(logg.Layer, browserManagerName)),
		tracer: otel.Tracer(browserTracer),
		ready:  false,
	}
}

func (m *Manager) Launch(ctx context.Context) (err error) {
	const op = "Launch"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Launching browser...")
	step.AddEvent("installing playwright")

	err = playwright.Install()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_install_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	step.AddEvent("starting playwright")

	pw, err := playwright.Run()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_start_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.playwright = pw

	if m.config.BrowserConfig.UserDataDir != "" {
		return m.launchPersistent(ctx)
	}

	return m.launchNew(ctx)
}

// launchArgs are the anti-automation flags the portal's bot defenses
// expect a plain browser not to miss.
func launchArgs() []string {
	return []string{
		"--disable-blink-features=AutomationControlled",
		"--disable-dev-shm-usage",
		"--no-sandbox",
		"--window-size=1920,1080",
		"--disable-infobars",
		"--disable-features=IsolateOrigins,site-per-process",
		"--disable-site-isolation-trials",
	}
}

func (m *Manager) launchPersistent(ctx context.Context) (err error) {
	const op = "launchPersistent"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Launching persistent browser context")

	userDataDir := m.config.BrowserConfig.UserDataDir

	if err := os.MkdirAll(userDataDir, 0755); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "mkdir_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	options := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless:          playwright.Bool(m.config.BrowserConfig.Headless),
		SlowMo:            playwright.Float(float64(m.config.BrowserConfig.SlowMo)),
		Viewport:          &playwright.Size{Width: 1920, Height: 1080},
		UserAgent:         playwright.String("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"),
		AcceptDownloads:   playwright.Bool(true),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            playwright.String("tr-TR"),
		TimezoneId:        playwright.String("Europe/Istanbul"),
		Args:              launchArgs(),
		IgnoreHttpsErrors: playwright.Bool(true),
	}

	browserContext, err := m.playwright.Chromium.LaunchPersistentContext(userDataDir, options)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "launch_persistent_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	m.browserContext = browserContext

	if err := m.maskAutomation(); err != nil {
		logger.Warn("Failed to add init script", zap.Error(err))
	}

	pages := browserContext.Pages()

	if len(pages) > 0 {
		m.page = pages[0]
		logger.Info("Using existing page")
	} else {
		page, err := browserContext.NewPage()
		if err != nil {
			return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
				apperr.MetaReason: "new_page_failed",
				apperr.MetaStage:  apperr.StageBrowser,
			})
		}
		m.page = page
		logger.Info("Created new page")
	}

	m.ready = true
	logger.Info("Browser launched successfully")

	return nil
}

func (m *Manager) launchNew(ctx context.Context) (err error) {
	const op = "launchNew"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Launching new browser")

	browserOptions := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(m.config.BrowserConfig.Headless),
		SlowMo:   playwright.Float(float64(m.config.BrowserConfig.SlowMo)),
		Args:     launchArgs(),
	}

	browser, err := m.playwright.Chromium.Launch(browserOptions)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "browser_launch_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.browser = browser

	contextOptions := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  1920,
			Height: 1080,
		},
		UserAgent:         playwright.String("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"),
		AcceptDownloads:   playwright.Bool(true),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            playwright.String("tr-TR"),
		TimezoneId:        playwright.String("Europe/Istanbul"),
		ExtraHttpHeaders: map[string]string{
			"Accept-Language": "tr-TR,tr;q=0.9,en-US;q=0.8,en;q=0.7",
		},
	}

	browserContext, err := browser.NewContext(contextOptions)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "context_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	m.browserContext = browserContext

	if err := m.maskAutomation(); err != nil {
		logger.Warn("Failed to add init script", zap.Error(err))
	}

	page, err := browserContext.NewPage()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "page_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}
	m.page = page

	m.ready = true
	logger.Info("Browser launched successfully")

	return nil
}

// maskAutomation hides navigator.webdriver and related automation
// tells before any portal script runs.
func (m *Manager) maskAutomation() error {
	script := `
		Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
		window.navigator.chrome = { runtime: {} };
		Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
		Object.defineProperty(navigator, 'languages', { get: () => ['tr-TR', 'tr', 'en-US', 'en'] });
	`

	return m.browserContext.AddInitScript(playwright.Script{Content: playwright.String(script)})
}

func (m *Manager) Close(ctx context.Context) (err error) {
	const op = "Close"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Closing connection to browser...")

	if m.config.BrowserConfig.UserDataDir != "" {
		logger.Info("Persistent browser - keeping it open")
		m.ready = false

		return nil
	}

	if m.browserContext != nil {
		if err := m.browserContext.Close(); err != nil {
			logger.Warn("Failed to close context", zap.Error(err))
		}
	}

	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			logger.Warn("Failed to close browser", zap.Error(err))
		}
	}

	if m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
				apperr.MetaReason: "playwright_stop_failed",
			})
		}
	}

	m.ready = false
	logger.Info("Browser closed")

	return nil
}

func (m *Manager) IsReady() bool {
	return m.ready
}

func (m *Manager) ensurePageActive(ctx context.Context) error {
	if m.browserContext == nil {
		return fmt.Errorf("browser context is nil")
	}

	if m.page != nil && !m.page.IsClosed() {
		return nil
	}

	m.logger.Info("Page closed, reconnecting to active page...")

	for _, p := range m.browserContext.Pages() {
		if !p.IsClosed() {
			m.page = p
			m.logger.Info("Reconnected to existing page")

			return nil
		}
	}

	m.logger.Info("No active pages found, creating new page...")

	page, err := m.browserContext.NewPage()
	if err != nil {
		return fmt.Errorf("failed to create new page: %w", err)
	}

	m.page = page

	return nil
}

func (m *Manager) Navigate(ctx context.Context, url string) (err error) {
	const op = "Navigate"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, url))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("url", url))
	defer func() {
		step.End(err)
	}()

	if !m.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(ctx); err != nil {
		return apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	step.AddEvent("navigating to URL")

	_, err = m.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(m.config.BrowserConfig.Timeout)),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})

	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "goto_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    url,
		})
	}

	time.Sleep(500 * time.Millisecond)
	step.AddEvent("navigation completed")

	return nil
}

func (m *Manager) Reload(ctx context.Context) (err error) {
	const op = "Reload"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if !m.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(ctx); err != nil {
		return apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	_, err = m.page.Reload(playwright.PageReloadOptions{
		Timeout:   playwright.Float(float64(m.config.BrowserConfig.Timeout)),
		WaitUntil: playwright.WaitUntilStateNetworkidle,
	})

	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "reload_failed",
			apperr.MetaStage:  apperr.StageNavigation,
		})
	}

	return nil
}

func (m *Manager) CurrentURL(ctx context.Context) (string, error) {
	const op = "CurrentURL"

	if !m.ready {
		return "", apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(ctx); err != nil {
		return "", apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	return m.page.URL(), nil
}

func (m *Manager) Click(ctx context.Context, selector string) (err error) {
	const op = "Click"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	if !m.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(ctx); err != nil {
		return apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	var lastErr error
	strategies := []struct {
		name string
		fn   func() error
	}{
		{
			name: "wait_and_click",
			fn: func() error {
				result, err := m.page.Evaluate(fmt.Sprintf(`
					(() => {
						const el = document.querySelector('%s');
						if (!el) return {success: false, error: 'element not found'};

						const rect = el.getBoundingClientRect();
						const style = window.getComputedStyle(el);

						const isVisible = (
							rect.width > 0 &&
							rect.height > 0 &&
							style.display !== 'none' &&
							style.visibility !== 'hidden' &&
							parseFloat(style.opacity) > 0
						);

						if (!isVisible) return {success: false, error: 'element not visible'};

						el.scrollIntoView({behavior: 'instant', block: 'center'});

						return {success: true};
					})()
				`, escapeSelector(selector)))

				if err != nil {
					return fmt.Errorf("visibility check failed: %w", err)
				}

				if resultMap, ok := result.(map[string]interface{}); ok {
					if success, ok := resultMap["success"].(bool); ok && !success {
						if errMsg, ok := resultMap["error"].(string); ok {
							return fmt.Errorf("element check failed: %s", errMsg)
						}
					}
				}

				time.Sleep(300 * time.Millisecond)

				err = m.page.Click(selector, playwright.PageClickOptions{
					Timeout: playwright.Float(clickTimeout),
				})
				if err != nil {
					return fmt.Errorf("click failed: %w", err)
				}

				return nil
			},
		},
		{
			name: "force_click",
			fn: func() error {
				_, err := m.page.Evaluate(fmt.Sprintf(`
					(() => {
						const el = document.querySelector('%s');
						if (el) {
							el.scrollIntoView({behavior: 'instant', block: 'center'});
						}
					})()
				`, escapeSelector(selector)))

				if err == nil {
					time.Sleep(300 * time.Millisecond)
				}

				err = m.page.Click(selector, playwright.PageClickOptions{
					Timeout: playwright.Float(clickTimeout),
					Force:   playwright.Bool(true),
				})
				if err != nil {
					return fmt.Errorf("force click failed: %w", err)
				}

				return nil
			},
		},
		{
			name: "js_direct_click",
			fn: func() error {
				result, err := m.page.Evaluate(fmt.Sprintf(`
					(() => {
						const el = document.querySelector('%s');
						if (!el) return {success: false, error: 'element not found'};

						el.scrollIntoView({behavior: 'instant', block: 'center'});

						const rect = el.getBoundingClientRect();
						const x = rect.left + rect.width / 2;
						const y = rect.top + rect.height / 2;

						['mousedown', 'mouseup', 'click'].forEach(eventType => {
							el.dispatchEvent(new MouseEvent(eventType, {
								view: window,
								bubbles: true,
								cancelable: true,
								clientX: x,
								clientY: y
							}));
						});

						return {success: true};
					})()
				`, escapeSelector(selector)))

				if err != nil {
					return fmt.Errorf("js evaluation failed: %w", err)
				}

				if resultMap, ok := result.(map[string]interface{}); ok {
					if success, ok := resultMap["success"].(bool); ok && !success {
						if errMsg, ok := resultMap["error"].(string); ok {
							return fmt.Errorf("js click failed: %s", errMsg)
						}
					}
				}

				time.Sleep(300 * time.Millisecond)

				return nil
			},
		},
	}

	for attemptNum := 0; attemptNum <= maxRetries; attemptNum++ {
		if attemptNum > 0 {
			logger.Info("Retrying click with different strategy", zap.Int(logg.Attempt, attemptNum))
			time.Sleep(retryDelay)
		}

		strategyIndex := attemptNum
		if strategyIndex >= len(strategies) {
			strategyIndex = len(strategies) - 1
		}

		strategy := strategies[strategyIndex]
		step.AddEvent(fmt.Sprintf("trying strategy: %s (attempt %d)", strategy.name, attemptNum+1))

		err = strategy.fn()
		if err == nil {
			time.Sleep(300 * time.Millisecond)
			step.AddEvent("click completed")

			return nil
		}

		lastErr = err
		logger.Warn("Strategy failed", zap.String("strategy", strategy.name), zap.Error(err))
	}

	return apperr.Wrap(op, apperr.CodeActionFailed, lastErr, map[string]any{
		apperr.MetaReason:   "click_failed_all_strategies",
		apperr.MetaSelector: selector,
	})
}

func escapeSelector(selector string) string {
	return strings.ReplaceAll(selector, "'", "\\'")
}

func (m *Manager) Fill(ctx context.Context, selector, value string) (err error) {
	const op = "Fill"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	if !m.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(ctx); err != nil {
		return apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			logger.Info("Retrying fill", zap.Int(logg.Attempt, attempt))
			time.Sleep(retryDelay)
		}

		step.AddEvent(fmt.Sprintf("waiting for element (attempt %d)", attempt+1))

		_, err = m.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
			Timeout: playwright.Float(fillTimeout),
			State:   playwright.WaitForSelectorStateVisible,
		})

		if err != nil {
			lastErr = err
			continue
		}

		step.AddEvent(fmt.Sprintf("filling field (attempt %d)", attempt+1))

		if attempt > 0 {
			m.page.Fill(selector, "", playwright.PageFillOptions{
				Timeout: playwright.Float(fillTimeout),
			})
			time.Sleep(200 * time.Millisecond)
		}

		err = m.page.Fill(selector, value, playwright.PageFillOptions{
			Timeout: playwright.Float(fillTimeout),
			Force:   playwright.Bool(attempt > 0),
		})

		if err == nil {
			time.Sleep(300 * time.Millisecond)
			step.AddEvent("fill completed")

			return nil
		}

		lastErr = err
	}

	return apperr.Wrap(op, apperr.CodeActionFailed, lastErr, map[string]any{
		apperr.MetaReason:   "fill_failed_after_retries",
		apperr.MetaSelector: selector,
	})
}

// FillReactive sets the value in-page and dispatches input/change/blur
// events. Framework-bound forms ignore silent DOM mutation, so the
// event dispatch is part of the contract, not decoration.
func (m *Manager) FillReactive(ctx context.Context, selector, value string) (err error) {
	const op = "FillReactive"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	if !m.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(ctx); err != nil {
		return apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	result, err := m.page.Evaluate(fmt.Sprintf(`
		(() => {
			const el = document.querySelector('%s');
			if (!el) return {success: false, error: 'element not found'};
			if (el.offsetParent === null || el.disabled) return {success: false, error: 'element not interactable'};

			el.scrollIntoView({block: 'center'});
			el.focus();
			el.value = '%s';
			el.dispatchEvent(new Event('input', {bubbles: true}));
			el.dispatchEvent(new Event('change', {bubbles: true}));
			el.dispatchEvent(new Event('blur', {bubbles: true}));

			return {success: true};
		})()
	`, escapeSelector(selector), escapeJSString(value)))

	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason:   "reactive_fill_evaluate_failed",
			apperr.MetaSelector: selector,
		})
	}

	if resultMap, ok := result.(map[string]interface{}); ok {
		if success, ok := resultMap["success"].(bool); ok && !success {
			reason, _ := resultMap["error"].(string)

			return apperr.Wrap(op, apperr.CodeNotFound, fmt.Errorf("%s", reason), map[string]any{
				apperr.MetaReason:   "reactive_fill_failed",
				apperr.MetaSelector: selector,
			})
		}
	}

	return nil
}

func escapeJSString(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, "'", `\'`)
}

func (m *Manager) ReadValue(ctx context.Context, selector string) (value string, err error) {
	const op = "ReadValue"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	if !m.ready {
		return "", apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(ctx); err != nil {
		return "", apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	value, err = m.page.InputValue(selector, playwright.PageInputValueOptions{
		Timeout: playwright.Float(fillTimeout),
	})

	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeNotFound, err, map[string]any{
			apperr.MetaReason:   "input_value_failed",
			apperr.MetaSelector: selector,
		})
	}

	return value, nil
}

func (m *Manager) Press(ctx context.Context, selector, key string) (err error) {
	const op = "Press"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op,
		attribute.String("selector", selector),
		attribute.String("key", key))
	defer func() {
		step.End(err)
	}()

	if !m.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(ctx); err != nil {
		return apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	step.AddEvent("pressing key")

	err = m.page.Press(selector, key, playwright.PagePressOptions{
		Timeout: playwright.Float(fillTimeout),
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason:   "press_failed",
			apperr.MetaSelector: selector,
		})
	}

	if key == "Enter" {
		time.Sleep(1 * time.Second)
	} else {
		time.Sleep(300 * time.Millisecond)
	}

	return nil
}

func (m *Manager) Evaluate(ctx context.Context, script string) (result any, err error) {
	const op = "Evaluate"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if !m.ready {
		return nil, apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(ctx); err != nil {
		return nil, apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	result, err = m.page.Evaluate(script)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "evaluate_failed",
		})
	}

	return result, nil
}

// WaitForURL polls the page URL until the predicate holds or the
// timeout elapses. The SPA rewrites location without full loads, so
// polling is the only reliable signal.
func (m *Manager) WaitForURL(ctx context.Context, predicate func(url string) bool, timeout time.Duration) (err error) {
	const op = "WaitForURL"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if !m.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	deadline := time.Now().Add(timeout)

	for {
		if err := m.ensurePageActive(ctx); err != nil {
			return apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
				apperr.MetaReason: "page_not_active",
			})
		}

		url := m.page.URL()
		if predicate(url) {
			step.AddEvent("url predicate satisfied")

			return nil
		}

		if time.Now().After(deadline) {
			return apperr.Wrap(op, apperr.CodeTimeout, fmt.Errorf("url predicate not satisfied: %s", url), map[string]any{
				apperr.MetaReason: "wait_url_timeout",
				apperr.MetaURL:    url,
			})
		}

		select {
		case <-ctx.Done():
			return apperr.Wrap(op, apperr.CodeTimeout, ctx.Err(), map[string]any{
				apperr.MetaReason: "context_cancelled",
			})
		case <-time.After(urlPollInterval):
		}
	}
}

func (m *Manager) WaitForNetworkIdle(ctx context.Context, timeout time.Duration) (err error) {
	const op = "WaitForNetworkIdle"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if !m.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(ctx); err != nil {
		return apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	err = m.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})

	if err != nil {
		// Network idle is advisory. Pages with long-polling never
		// settle, so callers proceed after the bounded wait.
		logger.Warn("Network idle timeout", zap.Error(err))

		return nil
	}

	return nil
}

func (m *Manager) Screenshot(ctx context.Context, path string) (err error) {
	const op = "Screenshot"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if !m.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(ctx); err != nil {
		return apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	_, err = m.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
		Type:     playwright.ScreenshotTypeJpeg,
		Quality:  playwright.Int(60),
	})

	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "screenshot_failed",
			apperr.MetaStage:  apperr.StageScreenshot,
		})
	}

	return nil
}

func (m *Manager) QueryVisible(ctx context.Context) (elements []entity.Element, err error) {
	const op = "QueryVisible"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if !m.ready {
		return nil, apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(ctx); err != nil {
		return nil, apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	m.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateDomcontentloaded,
		Timeout: playwright.Float(5000),
	})

	result, err := m.page.Evaluate(interactiveElementsScript())
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "evaluate_failed",
		})
	}

	elementsList, ok := result.([]interface{})
	if !ok {
		return nil, apperr.WrapErrorWithReason(op, apperr.CodeInternal, "unexpected_result_type")
	}

	elements = make([]entity.Element, 0, len(elementsList))

	for _, item := range elementsList {
		elemMap, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		elements = append(elements, entity.Element{
			Tag:         getString(elemMap, "tag"),
			Text:        strings.TrimSpace(getString(elemMap, "text")),
			Selector:    getString(elemMap, "selector"),
			Type:        getString(elemMap, "type"),
			Name:        getString(elemMap, "name"),
			ID:          getString(elemMap, "id"),
			Placeholder: getString(elemMap, "placeholder"),
			Label:       strings.TrimSpace(getString(elemMap, "label")),
			Value:       getString(elemMap, "value"),
			Checked:     getBool(elemMap, "checked"),
			Visible:     getBool(elemMap, "visible"),
			Enabled:     getBool(elemMap, "enabled"),
			BoundingBox: entity.BoundingBox{
				X:      getFloat(elemMap, "x"),
				Y:      getFloat(elemMap, "y"),
				Width:  getFloat(elemMap, "width"),
				Height: getFloat(elemMap, "height"),
			},
		})
	}

	return elements, nil
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}

	return ""
}

func getBool(m map[string]interface{}, key string) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}

	return false
}

func getFloat(m map[string]interface{}, key string) float64 {
	if v, ok := m[key].(float64); ok {
		return v
	}

	if v, ok := m[key].(int); ok {
		return float64(v)
	}

	return 0
}
