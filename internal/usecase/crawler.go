package usecase

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"locator-crawler/internal/auth"
	"locator-crawler/internal/config"
	"locator-crawler/internal/entity"
	"locator-crawler/internal/extract"
	"locator-crawler/internal/locator"
	"locator-crawler/internal/ports"
	"locator-crawler/internal/screen"
	"locator-crawler/internal/store"
	"locator-crawler/pkg/apperr"
	"locator-crawler/pkg/logg"
	"locator-crawler/pkg/tracing"
)

const (
	crawlerServiceName = "CrawlerService"
	crawlerTracer      = "usecase.crawler"

	settleTimeoutMs    = 10000
	postNavDelayMs     = 1000
	postClickDelayMs   = 800
	dropdownWaitMs     = 1500
	interactionDelayMs = 500

	maxSelectOptions   = 50
	maxDropdownOptions = 10

	// Candidate surface the engine interacts with; the extractor's harvest
	// casts a wider net (static text, cursor heuristics) but is read-only.
	candidateSelector = `input:not([type="hidden"]), select, textarea, button, a, ` +
		`[role="button"], [role="link"], [role="tab"], [role="menuitem"]`

	modalSelector = `[role="dialog"], .modal, [class*="modal"], [class*="Modal"], [class*="drawer"]`

	modalChildSelector = `[role="dialog"] button, [role="dialog"] a, [role="dialog"] input, ` +
		`[role="dialog"] select, [class*="modal"] button, [class*="modal"] a`

	dropdownOptionSelector = `[role="option"], .ant-select-item`
)

// Ordered close-control heuristics tried before falling back to Escape.
var modalCloseSelectors = []string{
	`button[aria-label*="close" i]`,
	`[aria-label*="close" i]`,
	`.ant-modal-close`,
	`[class*="close"] button`,
	`button[class*="close" i]`,
}

type CrawlerService struct {
	config   *config.Config
	logger   *zap.Logger
	tracer   trace.Tracer
	browser  ports.BrowserDriver
	store    ports.LocatorStore
	prober   *auth.Prober
	stopChan chan struct{}
	running  bool
}

type CrawlerServiceParams struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Browser ports.BrowserDriver
	Store   ports.LocatorStore
	Prober  *auth.Prober
}

func NewCrawlerService(params CrawlerServiceParams) *CrawlerService {
	return &CrawlerService{
		config:   params.Config,
		logger:   params.Logger.With(zap.String(logg.Layer, crawlerServiceName)),
		tracer:   otel.Tracer(crawlerTracer),
		browser:  params.Browser,
		store:    params.Store,
		prober:   params.Prober,
		stopChan: make(chan struct{}),
	}
}

// crawlState is the session-scoped context object: every set in here is
// owned by exactly one Crawl invocation and reset on the next.
type crawlState struct {
	visited    map[string]bool
	clicked    map[string]map[string]bool
	skip       []string
	maxDepth   int
	clickCount int
}

func newCrawlState(cfg *config.CrawlerConfig) *crawlState {
	skip := make([]string, 0, len(cfg.SkipPatterns))
	for _, p := range cfg.SkipPatterns {
		if p = strings.TrimSpace(strings.ToLower(p)); p != "" {
			skip = append(skip, p)
		}
	}

	return &crawlState{
		visited:  make(map[string]bool),
		clicked:  make(map[string]map[string]bool),
		skip:     skip,
		maxDepth: cfg.MaxDepth,
	}
}

func (st *crawlState) shouldSkip(text string) bool {
	lower := strings.ToLower(text)

	for _, pattern := range st.skip {
		if strings.Contains(lower, pattern) {
			return true
		}
	}

	return false
}

func (st *crawlState) alreadyClicked(screenURL, sig string) bool {
	return st.clicked[screenURL][sig]
}

func (st *crawlState) markClicked(screenURL, sig string) {
	if st.clicked[screenURL] == nil {
		st.clicked[screenURL] = make(map[string]bool)
	}

	st.clicked[screenURL][sig] = true
}

// Interaction strategy dispatch, keyed by tag, input type, and role.
var strategyByTag = map[string]entity.Interaction{
	"select":   entity.InteractSelectOption,
	"textarea": entity.InteractFillText,
	"button":   entity.InteractClickObserve,
	"a":        entity.InteractClickObserve,
}

var strategyByInputType = map[string]entity.Interaction{
	"":         entity.InteractFillText,
	"text":     entity.InteractFillText,
	"email":    entity.InteractFillText,
	"search":   entity.InteractFillText,
	"tel":      entity.InteractFillText,
	"url":      entity.InteractFillText,
	"number":   entity.InteractFillText,
	"checkbox": entity.InteractToggleCheckbox,
	"radio":    entity.InteractClickObserve,
	"button":   entity.InteractClickObserve,
	"submit":   entity.InteractClickObserve,
}

var strategyByRole = map[string]entity.Interaction{
	"button":   entity.InteractClickObserve,
	"link":     entity.InteractClickObserve,
	"tab":      entity.InteractClickObserve,
	"menuitem": entity.InteractClickObserve,
}

func strategyFor(d entity.Descriptor) entity.Interaction {
	if d.Tag == "input" {
		if s, ok := strategyByInputType[d.Type]; ok {
			return s
		}

		return entity.InteractNone
	}

	if s, ok := strategyByTag[d.Tag]; ok {
		return s
	}

	if s, ok := strategyByRole[d.Role]; ok {
		return s
	}

	return entity.InteractNone
}

// interactionClass orders candidates so inputs and dropdowns are engaged
// before generic buttons and links.
func interactionClass(d entity.Descriptor) int {
	switch strategyFor(d) {
	case entity.InteractSelectOption, entity.InteractFillText, entity.InteractToggleCheckbox:
		return 0
	}

	return 1
}

func sortCandidates(candidates []entity.Descriptor) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]

		if ca, cb := interactionClass(a), interactionClass(b); ca != cb {
			return ca < cb
		}

		if a.Y != b.Y {
			return a.Y < b.Y
		}

		return a.X < b.X
	})
}

// Crawl explores the target application and returns a success summary. The
// error return is reserved for initial navigation failure and authentication
// failure (including a second-factor checkpoint); every other failure is
// absorbed and shows up only as lower counts.
func (s *CrawlerService) Crawl(ctx context.Context) (result *entity.CrawlResult, err error) {
	const op = "Crawl"
	cfg := s.config.CrawlerConfig

	sessionID := entity.NewSessionID(time.Now())
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Session, sessionID))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String("target", cfg.TargetURL),
		attribute.String("session", sessionID))
	defer func() {
		step.End(err)
	}()

	if !s.browser.IsReady() {
		return nil, apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	s.running = true
	s.stopChan = make(chan struct{})

	defer func() {
		s.running = false
	}()

	fallback := store.NewFallback(s.store, s.logger, s.config.APIConfig.FallbackDir, sessionID)
	registry := screen.NewRegistry(fallback, s.logger, sessionID, cfg.TargetURL)
	extractor := extract.New(s.browser, fallback, registry, s.logger)

	result = &entity.CrawlResult{
		RunID:     uuid.New(),
		SessionID: sessionID,
		StartedAt: time.Now(),
	}

	logger.Info("Starting crawl", zap.String(logg.URL, cfg.TargetURL))
	step.AddEvent("initial navigation")

	if err = s.browser.Navigate(ctx, cfg.TargetURL); err != nil {
		return nil, apperr.Wrap(op, apperr.CodeNavigationFailed, err, map[string]any{
			apperr.MetaReason: "initial_navigation_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    cfg.TargetURL,
		})
	}

	if idleErr := s.browser.WaitForIdle(ctx, settleTimeoutMs); idleErr != nil {
		logger.Debug("Initial settle wait timed out", zap.Error(idleErr))
	}

	if !cfg.SkipLogin && s.prober.IsLoginPage(ctx) {
		step.AddEvent("login screen detected")

		if err = s.prober.Login(ctx, func(hctx context.Context) {
			extractor.Extract(hctx)
		}); err != nil {
			logger.Error("Authentication failed", zap.Error(err))

			return nil, err
		}
	}

	st := newCrawlState(cfg)

	step.AddEvent("exploration started")
	s.explore(ctx, st, extractor, 0)

	fallbackFile, flushErr := fallback.Flush(ctx)
	if flushErr != nil {
		logger.Warn("Fallback flush failed", zap.Error(flushErr))
	}

	result.ScreensDiscovered = registry.Count()
	result.ElementsExtracted = extractor.Total()
	result.ElementsClicked = st.clickCount
	result.FallbackFile = fallbackFile
	result.FinishedAt = time.Now()

	step.SetCount("screens", result.ScreensDiscovered)
	step.SetCount("elements", result.ElementsExtracted)

	logger.Info("Crawl complete",
		zap.Int("screens", result.ScreensDiscovered),
		zap.Int("elements", result.ElementsExtracted),
		zap.Int("clicked", result.ElementsClicked))

	return result, nil
}

func (s *CrawlerService) Stop() {
	if !s.running {
		return
	}

	s.running = false
	s.logger.Info("Stopping crawler...")
	close(s.stopChan)
}

func (s *CrawlerService) stopped(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-s.stopChan:
		return true
	default:
		return false
	}
}

// explore runs the per-screen state machine: register and extract, then
// interact with each candidate in priority and reading order, recursing on
// navigation and backtracking afterwards. The visited set is the primary
// cycle guard; the depth bound is only a backstop.
func (s *CrawlerService) explore(ctx context.Context, st *crawlState, extractor *extract.Extractor, depth int) {
	if depth > st.maxDepth {
		return
	}

	url, err := s.browser.CurrentURL(ctx)
	if err != nil {
		return
	}

	canonical := screen.Canonicalize(url)
	if st.visited[canonical] {
		return
	}

	st.visited[canonical] = true

	logger := s.logger.With(zap.String(logg.URL, canonical), zap.Int(logg.Depth, depth))
	logger.Info("Exploring screen")

	if idleErr := s.browser.WaitForIdle(ctx, settleTimeoutMs); idleErr != nil {
		logger.Debug("Settle wait timed out", zap.Error(idleErr))
	}

	s.browser.WaitForTimeout(ctx, postNavDelayMs)

	extractor.Extract(ctx)

	candidates, err := s.browser.Describe(ctx, candidateSelector)
	if err != nil {
		logger.Warn("Candidate enumeration failed", zap.Error(err))

		return
	}

	sortCandidates(candidates)
	logger.Debug("Candidates enumerated", zap.Int(logg.Count, len(candidates)))

	for _, cand := range candidates {
		if s.stopped(ctx) {
			return
		}

		if cand.Disabled || st.shouldSkip(cand.Text) {
			continue
		}

		sig := locator.Signature(cand, canonical)
		if st.alreadyClicked(canonical, sig) {
			continue
		}

		st.markClicked(canonical, sig)

		s.interact(ctx, st, extractor, cand, depth, url)
	}
}

// interact applies one candidate's strategy. Any failure here is local:
// the candidate is skipped and exploration continues.
func (s *CrawlerService) interact(ctx context.Context, st *crawlState, extractor *extract.Extractor, cand entity.Descriptor, depth int, pageURL string) {
	logger := s.logger.With(
		zap.String(logg.Element, cand.Tag),
		zap.String(logg.URL, pageURL),
		zap.Int(logg.Depth, depth))

	switch strategyFor(cand) {
	case entity.InteractSelectOption:
		s.interactSelect(ctx, st, extractor, cand, pageURL, logger)
	case entity.InteractFillText:
		s.interactFill(ctx, st, extractor, cand, logger)
	case entity.InteractToggleCheckbox:
		s.interactToggle(ctx, st, extractor, cand, logger)
	case entity.InteractClickObserve:
		s.interactClick(ctx, st, extractor, cand, depth, logger)
	}
}

// interactSelect records every option as a locator, then picks the second
// option to trigger dependent UI before re-extracting.
func (s *CrawlerService) interactSelect(ctx context.Context, st *crawlState, extractor *extract.Extractor, cand entity.Descriptor, pageURL string, logger *zap.Logger) {
	selector := locator.Synthesize(cand).Selector

	options, err := s.browser.Texts(ctx, selector+" option", maxSelectOptions)
	if err != nil {
		logger.Debug("Option harvest failed", zap.Error(err))

		return
	}

	for _, text := range options {
		extractor.SaveOption(ctx, text, pageURL)
	}

	if len(options) > 1 {
		if err := s.browser.SelectOption(ctx, selector, 1); err != nil {
			logger.Debug("Option select failed", zap.Error(err))
		} else {
			s.browser.WaitForTimeout(ctx, interactionDelayMs)
		}
	}

	st.clickCount++
	extractor.Extract(ctx)
}

// interactFill focuses the field and waits for an options dropdown; if one
// appears its entries are recorded and the first is chosen, otherwise the
// field gets a probe value. Only rendered dropdown entries count; many UI
// kits keep their listbox in the DOM while it is closed.
func (s *CrawlerService) interactFill(ctx context.Context, st *crawlState, extractor *extract.Extractor, cand entity.Descriptor, logger *zap.Logger) {
	selector := locator.Synthesize(cand).Selector

	if err := s.browser.Click(ctx, selector); err != nil {
		logger.Debug("Field focus failed", zap.String(logg.Selector, selector), zap.Error(err))

		return
	}

	s.browser.WaitForTimeout(ctx, dropdownWaitMs)

	pageURL, urlErr := s.browser.CurrentURL(ctx)
	if urlErr != nil {
		return
	}

	options, err := s.browser.VisibleTexts(ctx, dropdownOptionSelector, maxDropdownOptions)
	if err == nil && len(options) > 0 {
		for _, text := range options {
			extractor.SaveOption(ctx, text, pageURL)
		}

		if err := s.browser.Click(ctx, dropdownOptionSelector); err == nil {
			s.browser.WaitForTimeout(ctx, interactionDelayMs)
		}
	} else {
		if err := s.browser.Fill(ctx, selector, s.config.CrawlerConfig.ProbeValue); err != nil {
			logger.Debug("Probe fill failed", zap.String(logg.Selector, selector), zap.Error(err))
		}
	}

	st.clickCount++
	extractor.Extract(ctx)
}

func (s *CrawlerService) interactToggle(ctx context.Context, st *crawlState, extractor *extract.Extractor, cand entity.Descriptor, logger *zap.Logger) {
	selector := locator.Synthesize(cand).Selector

	if err := s.browser.Check(ctx, selector); err != nil {
		logger.Debug("Checkbox toggle failed", zap.String(logg.Selector, selector), zap.Error(err))

		return
	}

	st.clickCount++
	extractor.Extract(ctx)
}

// interactClick clicks and observes the outcome: a navigation recurses into
// the new screen and backtracks, a modal gets its own bounded interaction
// pass, and anything else is treated as an in-place update.
func (s *CrawlerService) interactClick(ctx context.Context, st *crawlState, extractor *extract.Extractor, cand entity.Descriptor, depth int, logger *zap.Logger) {
	selector := locator.Synthesize(cand).Selector

	savedURL, err := s.browser.CurrentURL(ctx)
	if err != nil {
		return
	}

	if err := s.browser.Click(ctx, selector); err != nil {
		logger.Debug("Click failed", zap.String(logg.Selector, selector), zap.Error(err))

		return
	}

	st.clickCount++
	s.browser.WaitForTimeout(ctx, postClickDelayMs)

	currentURL, err := s.browser.CurrentURL(ctx)
	if err != nil {
		return
	}

	if screen.Canonicalize(currentURL) != screen.Canonicalize(savedURL) {
		logger.Info("Navigation detected", zap.String(logg.URL, currentURL))

		s.explore(ctx, st, extractor, depth+1)

		if err := s.browser.Navigate(ctx, savedURL); err != nil {
			logger.Warn("Backtrack failed, abandoning branch",
				zap.String(logg.URL, savedURL), zap.Error(err))

			return
		}

		if idleErr := s.browser.WaitForIdle(ctx, settleTimeoutMs); idleErr != nil {
			logger.Debug("Backtrack settle timed out", zap.Error(idleErr))
		}

		return
	}

	if count, err := s.browser.CountVisible(ctx, modalSelector); err == nil && count > 0 {
		logger.Info("Modal detected")
		s.handleModal(ctx, st, extractor, logger)

		return
	}

	// In-place dynamic update.
	extractor.Extract(ctx)
}

// handleModal extracts inside the overlay, interacts with a bounded number
// of its children, then closes it.
func (s *CrawlerService) handleModal(ctx context.Context, st *crawlState, extractor *extract.Extractor, logger *zap.Logger) {
	s.browser.WaitForTimeout(ctx, interactionDelayMs)
	extractor.Extract(ctx)

	children, err := s.browser.Describe(ctx, modalChildSelector)
	if err != nil {
		logger.Debug("Modal children enumeration failed", zap.Error(err))
		s.closeModal(ctx, logger)

		return
	}

	interacted := 0

	for _, child := range children {
		if s.stopped(ctx) {
			break
		}

		if interacted >= s.config.CrawlerConfig.ModalLimit {
			break
		}

		if child.Disabled || st.shouldSkip(child.Text) {
			continue
		}

		selector := locator.Synthesize(child).Selector

		if err := s.browser.Click(ctx, selector); err != nil {
			continue
		}

		st.clickCount++
		interacted++

		s.browser.WaitForTimeout(ctx, interactionDelayMs)
		extractor.Extract(ctx)
	}

	s.closeModal(ctx, logger)
	extractor.Extract(ctx)
}

func (s *CrawlerService) closeModal(ctx context.Context, logger *zap.Logger) {
	for _, selector := range modalCloseSelectors {
		count, err := s.browser.CountVisible(ctx, selector)
		if err != nil || count == 0 {
			continue
		}

		if err := s.browser.Click(ctx, selector); err == nil {
			s.browser.WaitForTimeout(ctx, interactionDelayMs)
			logger.Debug("Modal closed", zap.String(logg.Selector, selector))

			return
		}
	}

	if err := s.browser.Press(ctx, "Escape"); err == nil {
		s.browser.WaitForTimeout(ctx, interactionDelayMs)
		logger.Debug("Modal closed with Escape")
	}
}
