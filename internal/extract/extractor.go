// Package extract scans a live page for locator-worthy elements, deduplicates
// them against the session's seen set, and persists new records.
package extract

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"locator-crawler/internal/entity"
	"locator-crawler/internal/locator"
	"locator-crawler/internal/ports"
	"locator-crawler/internal/screen"
	"locator-crawler/pkg/logg"
	"locator-crawler/pkg/tracing"
)

const (
	extractorName   = "ElementExtractor"
	extractorTracer = "extract.extractor"

	textContentLimit = 500
	optionTextLimit  = 30
)

// Extractor is session-scoped: the seen set makes Extract idempotent under a
// stable DOM for the lifetime of one crawl run.
type Extractor struct {
	logger   *zap.Logger
	tracer   trace.Tracer
	browser  ports.BrowserDriver
	store    ports.LocatorStore
	registry *screen.Registry

	seen      map[string]struct{}
	persisted int
}

func New(browser ports.BrowserDriver, store ports.LocatorStore, registry *screen.Registry, logger *zap.Logger) *Extractor {
	return &Extractor{
		logger:   logger.With(zap.String(logg.Layer, extractorName)),
		tracer:   otel.Tracer(extractorTracer),
		browser:  browser,
		store:    store,
		registry: registry,
		seen:     make(map[string]struct{}),
	}
}

// Extract harvests the current page and persists every visible element not
// yet seen this session. Returns how many new records were persisted.
// Failures are absorbed: a broken extraction pass or an unresolvable screen
// yields zero, never an error.
func (e *Extractor) Extract(ctx context.Context) int {
	const op = "Extract"
	logger := e.logger.With(zap.String(logg.Operation, op))

	var err error

	ctx, step := tracing.StartSpan(ctx, e.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	url, err := e.browser.CurrentURL(ctx)
	if err != nil {
		logger.Warn("Extraction skipped, no current URL", zap.Error(err))

		return 0
	}

	logger = logger.With(zap.String(logg.URL, url))
	canonical := screen.Canonicalize(url)

	title, _ := e.browser.Title(ctx)

	screenID, ok := e.registry.Resolve(ctx, url, title)
	if !ok {
		return 0
	}

	descriptors, err := e.browser.HarvestDescriptors(ctx)
	if err != nil {
		logger.Warn("Extraction pass skipped", zap.Error(err))

		return 0
	}

	count := 0

	for _, d := range descriptors {
		sig := locator.Signature(d, canonical)
		if _, dup := e.seen[sig]; dup {
			continue
		}

		if e.persist(ctx, screenID, d) {
			e.seen[sig] = struct{}{}
			count++
		}
	}

	e.persisted += count
	step.SetCount("new_records", count)
	logger.Debug("Extraction pass complete", zap.Int(logg.Count, count))

	return count
}

func (e *Extractor) persist(ctx context.Context, screenID int, d entity.Descriptor) bool {
	loc := locator.Synthesize(d)

	record := &entity.ElementRecord{
		ScreenID:       screenID,
		Name:           locator.RecordName(d),
		Type:           elementType(d),
		Selector:       loc.Selector,
		XPath:          loc.XPath,
		TextContent:    truncate(d.Text, textContentLimit),
		StabilityScore: locator.Score(d),
		Verified:       true,
		Priority:       loc.Priority,
		TestID:         d.TestID,
		ElementID:      d.ID,
		NameAttr:       d.Name,
		AriaLabel:      d.AriaLabel,
		Role:           d.Role,
		Placeholder:    d.Placeholder,
	}

	if err := e.store.SaveElement(ctx, record); err != nil {
		e.logger.Warn("Element save failed",
			zap.String(logg.Selector, record.Selector), zap.Error(err))

		return false
	}

	return true
}

// SaveOption records one harvested dropdown option as a locator of its own.
// Options are keyed by text; they carry no identifying attributes.
func (e *Extractor) SaveOption(ctx context.Context, text, pageURL string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	canonical := screen.Canonicalize(pageURL)

	sig := locator.OptionSignature(text, canonical)
	if _, dup := e.seen[sig]; dup {
		return false
	}

	screenID, ok := e.registry.Resolve(ctx, pageURL, "")
	if !ok {
		return false
	}

	record := &entity.ElementRecord{
		ScreenID:       screenID,
		Name:           locator.RecordName(entity.Descriptor{Tag: "option", Text: text}),
		Type:           "option",
		Selector:       "option",
		XPath:          fmt.Sprintf("//option[contains(text(), '%s')]", strings.ReplaceAll(truncate(text, optionTextLimit), "'", `\'`)),
		TextContent:    text,
		StabilityScore: locator.ScoreText,
		Verified:       true,
		Priority:       locator.PriorityText,
		Role:           "option",
	}

	if err := e.store.SaveElement(ctx, record); err != nil {
		e.logger.Warn("Option save failed", zap.String("text", text), zap.Error(err))

		return false
	}

	e.seen[sig] = struct{}{}
	e.persisted++

	return true
}

// Total reports how many records this session has persisted so far.
func (e *Extractor) Total() int {
	return e.persisted
}

func elementType(d entity.Descriptor) string {
	if d.Tag != "" {
		return d.Tag
	}

	return d.Role
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	return s[:max]
}
