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

	"locator-crawler/internal/config"
	"locator-crawler/internal/entity"
	"locator-crawler/pkg/apperr"
	"locator-crawler/pkg/logg"
	"locator-crawler/pkg/tracing"
)

const (
	browserManagerName = "BrowserManager"
	browserTracer      = "browser.manager"
	maxClickRetries    = 2
	retryDelay         = 500 * time.Millisecond
	clickTimeout       = 5000
	fillTimeout        = 5000
)

// Manager owns one Playwright page for the lifetime of a crawl session and
// implements ports.BrowserDriver on top of it.
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
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--window-size=1920,1080",
		},
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
		Args: []string{
			"--disable-blink-features=AutomationControlled",
		},
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
			Width:  1280,
			Height: 720,
		},
		JavaScriptEnabled: playwright.Bool(true),
	}

	browserContext, err := browser.NewContext(contextOptions)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "context_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	m.browserContext = browserContext

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

func (m *Manager) Close(ctx context.Context) (err error) {
	const op = "Close"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	logger.Info("Closing connection to browser...")

	if m.config.BrowserConfig.UserDataDir != "" {
		m.ready = false
		logger.Info("Persistent browser - keeping it open")

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

	page, err := m.browserContext.NewPage()
	if err != nil {
		return fmt.Errorf("failed to create new page: %w", err)
	}

	m.page = page
	m.logger.Info("Created new page")

	return nil
}

func (m *Manager) guard(ctx context.Context, op string) error {
	if !m.ready {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.ensurePageActive(ctx); err != nil {
		return apperr.Wrap(op, apperr.CodeBrowserNotReady, err, map[string]any{
			apperr.MetaReason: "page_not_active",
		})
	}

	return nil
}

func (m *Manager) Navigate(ctx context.Context, url string) (err error) {
	const op = "Navigate"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, url))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("url", url))
	defer func() {
		step.End(err)
	}()

	if err = m.guard(ctx, op); err != nil {
		return err
	}

	step.AddEvent("navigating to URL")

	_, err = m.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(m.config.BrowserConfig.Timeout)),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})

	if err != nil {
		return apperr.Wrap(op, apperr.CodeNavigationFailed, err, map[string]any{
			apperr.MetaReason: "goto_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    url,
		})
	}

	time.Sleep(300 * time.Millisecond)
	step.AddEvent("navigation completed")

	return nil
}

func (m *Manager) CurrentURL(ctx context.Context) (string, error) {
	const op = "CurrentURL"

	if err := m.guard(ctx, op); err != nil {
		return "", err
	}

	return m.page.URL(), nil
}

func (m *Manager) Title(ctx context.Context) (string, error) {
	const op = "Title"

	if err := m.guard(ctx, op); err != nil {
		return "", err
	}

	title, err := m.page.Title()
	if err != nil {
		return "", apperr.WrapWithReason(op, apperr.CodeInternal, err, "title_failed")
	}

	return title, nil
}

func (m *Manager) Click(ctx context.Context, selector string) (err error) {
	const op = "Click"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	if err = m.guard(ctx, op); err != nil {
		return err
	}

	strategies := []struct {
		name string
		fn   func() error
	}{
		{
			name: "scroll_and_click",
			fn: func() error {
				_, _ = m.page.Evaluate(fmt.Sprintf(`(() => {
					const el = document.querySelector('%s');
					if (el) el.scrollIntoView({behavior: 'instant', block: 'center'});
				})()`, escapeSelector(selector)))

				return m.page.Click(selector, playwright.PageClickOptions{
					Timeout: playwright.Float(clickTimeout),
				})
			},
		},
		{
			name: "force_click",
			fn: func() error {
				return m.page.Click(selector, playwright.PageClickOptions{
					Timeout: playwright.Float(clickTimeout),
					Force:   playwright.Bool(true),
				})
			},
		},
		{
			name: "js_direct_click",
			fn: func() error {
				result, evalErr := m.page.Evaluate(fmt.Sprintf(`(() => {
					const el = document.querySelector('%s');
					if (!el) return false;
					el.scrollIntoView({behavior: 'instant', block: 'center'});
					el.click();
					return true;
				})()`, escapeSelector(selector)))
				if evalErr != nil {
					return evalErr
				}

				if ok, _ := result.(bool); !ok {
					return fmt.Errorf("element not found: %s", selector)
				}

				return nil
			},
		},
	}

	var lastErr error

	for attempt := 0; attempt <= maxClickRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(retryDelay)
		}

		strategy := strategies[attempt]
		step.AddEvent(fmt.Sprintf("trying strategy: %s", strategy.name))

		if err = strategy.fn(); err == nil {
			time.Sleep(200 * time.Millisecond)
			step.AddEvent("click completed")

			return nil
		}

		lastErr = err
		logger.Debug("Click strategy failed", zap.String("strategy", strategy.name), zap.Error(err))
	}

	return apperr.Wrap(op, apperr.CodeActionFailed, lastErr, map[string]any{
		apperr.MetaReason:   "click_failed_all_strategies",
		apperr.MetaStage:    apperr.StageInteraction,
		apperr.MetaSelector: selector,
	})
}

func (m *Manager) Fill(ctx context.Context, selector, value string) (err error) {
	const op = "Fill"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	if err = m.guard(ctx, op); err != nil {
		return err
	}

	_, err = m.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(fillTimeout),
		State:   playwright.WaitForSelectorStateVisible,
	})
	if err == nil {
		err = m.page.Fill(selector, value, playwright.PageFillOptions{
			Timeout: playwright.Float(fillTimeout),
		})
	}

	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason:   "fill_failed",
			apperr.MetaStage:    apperr.StageInteraction,
			apperr.MetaSelector: selector,
		})
	}

	time.Sleep(200 * time.Millisecond)
	step.AddEvent("fill completed")

	return nil
}

func (m *Manager) Check(ctx context.Context, selector string) (err error) {
	const op = "Check"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	if err = m.guard(ctx, op); err != nil {
		return err
	}

	err = m.page.Check(selector, playwright.PageCheckOptions{
		Timeout: playwright.Float(clickTimeout),
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason:   "check_failed",
			apperr.MetaStage:    apperr.StageInteraction,
			apperr.MetaSelector: selector,
		})
	}

	return nil
}

// SelectOption picks an option by index through the Playwright locator API,
// so the engine's selectors (including :has-text) resolve and dependent UI
// sees a real change event.
func (m *Manager) SelectOption(ctx context.Context, selector string, index int) (err error) {
	const op = "SelectOption"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op,
		attribute.String("selector", selector),
		attribute.Int("index", index))
	defer func() {
		step.End(err)
	}()

	if err = m.guard(ctx, op); err != nil {
		return err
	}

	indexes := []int{index}

	_, err = m.page.Locator(selector).SelectOption(playwright.SelectOptionValues{
		Indexes: &indexes,
	}, playwright.LocatorSelectOptionOptions{
		Timeout: playwright.Float(clickTimeout),
	})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason:   "select_failed",
			apperr.MetaStage:    apperr.StageInteraction,
			apperr.MetaSelector: selector,
		})
	}

	time.Sleep(200 * time.Millisecond)

	return nil
}

func (m *Manager) Press(ctx context.Context, key string) (err error) {
	const op = "Press"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("key", key))
	defer func() {
		step.End(err)
	}()

	if err = m.guard(ctx, op); err != nil {
		return err
	}

	err = m.page.Keyboard().Press(key)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "press_failed",
			apperr.MetaStage:  apperr.StageInteraction,
		})
	}

	if key == "Enter" {
		time.Sleep(1 * time.Second)
	} else {
		time.Sleep(200 * time.Millisecond)
	}

	return nil
}

func (m *Manager) Evaluate(ctx context.Context, script string) (result interface{}, err error) {
	const op = "Evaluate"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err = m.guard(ctx, op); err != nil {
		return nil, err
	}

	result, err = m.page.Evaluate(script)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "evaluate_failed",
		})
	}

	return result, nil
}

// HarvestDescriptors runs the extraction script and returns a descriptor for
// every visible element in the page's interactive and text-bearing
// categories.
func (m *Manager) HarvestDescriptors(ctx context.Context) (descriptors []entity.Descriptor, err error) {
	const op = "HarvestDescriptors"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err = m.guard(ctx, op); err != nil {
		return nil, err
	}

	m.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateDomcontentloaded,
		Timeout: playwright.Float(5000),
	})

	result, err := m.page.Evaluate(harvestScript())
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "evaluate_failed",
			apperr.MetaStage:  apperr.StageExtraction,
		})
	}

	descriptors, err = decodeDescriptors(op, result)
	if err != nil {
		return nil, err
	}

	step.SetCount("descriptors", len(descriptors))

	return descriptors, nil
}

// Describe returns descriptors for the visible elements matching a selector.
func (m *Manager) Describe(ctx context.Context, selector string) (descriptors []entity.Descriptor, err error) {
	const op = "Describe"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	if err = m.guard(ctx, op); err != nil {
		return nil, err
	}

	result, err := m.page.Evaluate(describeScript(escapeSelector(selector)))
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason:   "evaluate_failed",
			apperr.MetaSelector: selector,
		})
	}

	return decodeDescriptors(op, result)
}

// Texts returns the trimmed inner text of up to limit elements matching a
// selector, visible or not; used to harvest select options, which never
// render a box of their own.
func (m *Manager) Texts(ctx context.Context, selector string, limit int) ([]string, error) {
	return m.collectTexts(ctx, "Texts", selector, limit, false)
}

// VisibleTexts is Texts restricted to elements that currently render; used
// for autocomplete dropdown detection, where pre-rendered hidden listbox
// entries must not count.
func (m *Manager) VisibleTexts(ctx context.Context, selector string, limit int) ([]string, error) {
	return m.collectTexts(ctx, "VisibleTexts", selector, limit, true)
}

func (m *Manager) collectTexts(ctx context.Context, op, selector string, limit int, visibleOnly bool) (texts []string, err error) {
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	if err = m.guard(ctx, op); err != nil {
		return nil, err
	}

	locators, err := m.page.Locator(selector).All()
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason:   "locator_enumeration_failed",
			apperr.MetaSelector: selector,
		})
	}

	texts = make([]string, 0, limit)

	for _, loc := range locators {
		if len(texts) >= limit {
			break
		}

		if visibleOnly {
			visible, visErr := loc.IsVisible()
			if visErr != nil || !visible {
				continue
			}
		}

		text, textErr := loc.InnerText(playwright.LocatorInnerTextOptions{
			Timeout: playwright.Float(1000),
		})
		if textErr != nil {
			continue
		}

		if text = strings.TrimSpace(text); text != "" {
			texts = append(texts, text)
		}
	}

	step.SetCount("texts", len(texts))

	return texts, nil
}

// CountVisible counts elements matching a selector that currently render.
func (m *Manager) CountVisible(ctx context.Context, selector string) (count int, err error) {
	const op = "CountVisible"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, selector))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("selector", selector))
	defer func() {
		step.End(err)
	}()

	if err = m.guard(ctx, op); err != nil {
		return 0, err
	}

	result, err := m.page.Evaluate(fmt.Sprintf(`(() => {
		let n = 0;
		document.querySelectorAll('%s').forEach(el => {
			const rect = el.getBoundingClientRect();
			const style = window.getComputedStyle(el);
			if (rect.width > 0 && rect.height > 0 && style.display !== 'none' && style.visibility !== 'hidden') n++;
		});
		return n;
	})()`, escapeSelector(selector)))
	if err != nil {
		return 0, apperr.WrapWithReason(op, apperr.CodeInternal, err, "evaluate_failed")
	}

	switch v := result.(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	}

	return 0, apperr.WrapErrorWithReason(op, apperr.CodeInternal, "unexpected_result_type")
}

func (m *Manager) WaitForTimeout(ctx context.Context, ms int) {
	if m.page == nil {
		time.Sleep(time.Duration(ms) * time.Millisecond)

		return
	}

	m.page.WaitForTimeout(float64(ms))
}

func (m *Manager) WaitForIdle(ctx context.Context, timeoutMs int) error {
	const op = "WaitForIdle"

	if err := m.guard(ctx, op); err != nil {
		return err
	}

	err := m.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(float64(timeoutMs)),
	})
	if err != nil {
		return apperr.WrapWithReason(op, apperr.CodeTimeout, err, "network_idle_timeout")
	}

	return nil
}

// ArmChangeFlag installs a MutationObserver that marks the page dirty on any
// DOM change; used by the manual-interaction monitor.
func (m *Manager) ArmChangeFlag(ctx context.Context) error {
	const op = "ArmChangeFlag"

	if err := m.guard(ctx, op); err != nil {
		return err
	}

	if _, err := m.page.Evaluate(mutationFlagScript()); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "evaluate_failed",
			apperr.MetaStage:  apperr.StageMonitor,
		})
	}

	return nil
}

// ConsumeChangeFlag reads and clears the dirty flag in one step.
func (m *Manager) ConsumeChangeFlag(ctx context.Context) (bool, error) {
	const op = "ConsumeChangeFlag"

	if err := m.guard(ctx, op); err != nil {
		return false, err
	}

	result, err := m.page.Evaluate(consumeMutationFlagScript())
	if err != nil {
		return false, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "evaluate_failed",
			apperr.MetaStage:  apperr.StageMonitor,
		})
	}

	dirty, _ := result.(bool)

	return dirty, nil
}

func (m *Manager) IsReady() bool {
	return m.ready
}

// escapeSelector prepares a selector for interpolation into a single-quoted
// JS string literal. Backslashes first, so CSS-escaped identifiers like
// `#tab\:first` survive the round trip.
func escapeSelector(selector string) string {
	selector = strings.ReplaceAll(selector, `\`, `\\`)

	return strings.ReplaceAll(selector, "'", `\'`)
}

func decodeDescriptors(op string, result interface{}) ([]entity.Descriptor, error) {
	items, ok := result.([]interface{})
	if !ok {
		return nil, apperr.WrapErrorWithReason(op, apperr.CodeInternal, "unexpected_result_type")
	}

	descriptors := make([]entity.Descriptor, 0, len(items))

	for _, item := range items {
		elem, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		descriptors = append(descriptors, entity.Descriptor{
			Tag:         getString(elem, "tag"),
			ID:          getString(elem, "id"),
			Name:        getString(elem, "name"),
			Type:        getString(elem, "type"),
			Text:        strings.TrimSpace(getString(elem, "text")),
			AriaLabel:   getString(elem, "ariaLabel"),
			TestID:      getString(elem, "testId"),
			Placeholder: getString(elem, "placeholder"),
			Role:        getString(elem, "role"),
			Href:        getString(elem, "href"),
			Alt:         getString(elem, "alt"),
			Label:       getString(elem, "label"),
			Disabled:    getBool(elem, "disabled"),
			X:           getFloat(elem, "x"),
			Y:           getFloat(elem, "y"),
		})
	}

	return descriptors, nil
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
