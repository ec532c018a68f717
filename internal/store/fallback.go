package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"locator-crawler/internal/entity"
	"locator-crawler/internal/ports"
	"locator-crawler/pkg/apperr"
	"locator-crawler/pkg/logg"
	"locator-crawler/pkg/tracing"
)

const (
	fallbackName   = "FallbackStore"
	fallbackTracer = "store.fallback"
)

// fallbackFile is the on-disk shape of a buffered session, replayable
// against a live API later.
type fallbackFile struct {
	Screens  map[string]screenPayload `json:"screens"`
	Elements []elementPayload         `json:"elements"`
}

// Fallback decorates a LocatorStore so persistence failures never abort a
// crawl: screens that cannot be created get session-local synthetic ids
// (negative, so they can never collide with service ids), and elements that
// cannot be saved are buffered together with their screen's url and name.
// Session-scoped, single-threaded, owned by one engine invocation.
type Fallback struct {
	primary   ports.LocatorStore
	logger    *zap.Logger
	tracer    trace.Tracer
	dir       string
	sessionID string

	buffered fallbackFile
	meta     map[int]screenPayload
	nextID   int
}

func NewFallback(primary ports.LocatorStore, logger *zap.Logger, dir, sessionID string) *Fallback {
	return &Fallback{
		primary:   primary,
		logger:    logger.With(zap.String(logg.Layer, fallbackName), zap.String(logg.Session, sessionID)),
		tracer:    otel.Tracer(fallbackTracer),
		dir:       dir,
		sessionID: sessionID,
		buffered: fallbackFile{
			Screens: make(map[string]screenPayload),
		},
		meta: make(map[int]screenPayload),
	}
}

func (f *Fallback) Ping(ctx context.Context) error {
	return f.primary.Ping(ctx)
}

func (f *Fallback) CreateScreen(ctx context.Context, s *entity.Screen) (int, error) {
	id, err := f.primary.CreateScreen(ctx, s)
	if err == nil {
		f.meta[id] = toScreenPayload(s)

		return id, nil
	}

	f.logger.Warn("Screen create failed, buffering locally", zap.String(logg.URL, s.URL), zap.Error(err))

	f.nextID--
	id = f.nextID

	f.buffered.Screens[s.URL] = toScreenPayload(s)
	f.meta[id] = toScreenPayload(s)

	return id, nil
}

func (f *Fallback) SaveElement(ctx context.Context, rec *entity.ElementRecord) error {
	if rec.ScreenID >= 0 {
		err := f.primary.SaveElement(ctx, rec)
		if err == nil {
			return nil
		}

		f.logger.Warn("Element save failed, buffering locally",
			zap.String(logg.Selector, rec.Selector), zap.Error(err))
	}

	payload := toElementPayload(rec)
	payload.ScreenID = 0

	if m, ok := f.meta[rec.ScreenID]; ok {
		payload.ScreenURL = m.URL
		payload.ScreenName = m.Name

		// The screen itself may have been created while the API was still
		// up; Replay resolves elements by screen URL, so the screen must be
		// in the buffer too.
		if _, buffered := f.buffered.Screens[m.URL]; !buffered {
			f.buffered.Screens[m.URL] = m
		}
	}

	f.buffered.Elements = append(f.buffered.Elements, payload)

	return nil
}

// Buffered reports how many screens and elements are waiting in the buffer.
func (f *Fallback) Buffered() (screens, elements int) {
	return len(f.buffered.Screens), len(f.buffered.Elements)
}

// Flush writes the buffer to <dir>/<session>_fallback.json and returns the
// path. An empty buffer writes nothing and returns "".
func (f *Fallback) Flush(ctx context.Context) (path string, err error) {
	const op = "Flush"
	logger := f.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, f.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if len(f.buffered.Screens) == 0 && len(f.buffered.Elements) == 0 {
		return "", nil
	}

	data, err := json.MarshalIndent(f.buffered, "", "  ")
	if err != nil {
		return "", apperr.WrapWithReason(op, apperr.CodeInternal, err, "marshal_failed")
	}

	path = filepath.Join(f.dir, fmt.Sprintf("%s_fallback.json", f.sessionID))

	if err = os.WriteFile(path, data, 0644); err != nil {
		return "", apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "write_failed",
			"path":            path,
		})
	}

	logger.Info("Fallback buffer written",
		zap.String(logg.File, path),
		zap.Int("screens", len(f.buffered.Screens)),
		zap.Int("elements", len(f.buffered.Elements)))

	return path, nil
}

// Replay imports a previously flushed fallback file into the store,
// re-creating screens first and remapping element screen ids.
func Replay(ctx context.Context, target ports.LocatorStore, logger *zap.Logger, path string) (screens, elements int, err error) {
	const op = "Replay"
	logger = logger.With(zap.String(logg.Layer, fallbackName), zap.String(logg.Operation, op), zap.String(logg.File, path))

	ctx, step := tracing.StartSpan(ctx, otel.Tracer(fallbackTracer), logger, op, attribute.String("file", path))
	defer func() {
		step.End(err)
	}()

	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, apperr.NotFoundError(op, err)
	}

	var file fallbackFile
	if err = json.Unmarshal(raw, &file); err != nil {
		return 0, 0, apperr.WrapWithReason(op, apperr.CodeInvalidArgument, err, "malformed_fallback_file")
	}

	idByURL := make(map[string]int, len(file.Screens))

	for url, s := range file.Screens {
		id, createErr := target.CreateScreen(ctx, &entity.Screen{
			URL:       s.URL,
			Name:      s.Name,
			Title:     s.Title,
			SessionID: s.SessionID,
		})
		if createErr != nil {
			logger.Warn("Screen replay failed", zap.String(logg.URL, url), zap.Error(createErr))

			continue
		}

		idByURL[url] = id
		screens++
	}

	for _, e := range file.Elements {
		id, ok := idByURL[e.ScreenURL]
		if !ok {
			continue
		}

		rec := &entity.ElementRecord{
			ScreenID:       id,
			Name:           e.ElementName,
			Type:           e.ElementType,
			Selector:       e.CSSSelector,
			XPath:          e.XPath,
			TextContent:    e.TextContent,
			StabilityScore: e.StabilityScore,
			Verified:       e.Verified,
			Priority:       e.Priority,
			ElementID:      e.ElementID,
			NameAttr:       e.NameAttr,
			TestID:         e.TestID,
			AriaLabel:      e.AriaLabel,
			Role:           e.Role,
		}

		if saveErr := target.SaveElement(ctx, rec); saveErr != nil {
			logger.Warn("Element replay failed", zap.String(logg.Selector, e.CSSSelector), zap.Error(saveErr))

			continue
		}

		elements++
	}

	logger.Info("Replay complete", zap.Int("screens", screens), zap.Int("elements", elements))

	return screens, elements, nil
}
