// Package screen canonicalizes URLs and resolves them to persisted screen
// records, caching ids for the lifetime of one crawl session.
package screen

import (
	"context"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"locator-crawler/internal/entity"
	"locator-crawler/internal/ports"
	"locator-crawler/pkg/logg"
	"locator-crawler/pkg/tracing"
)

const (
	registryName   = "ScreenRegistry"
	registryTracer = "screen.registry"
)

// Canonicalize strips the query string and fragment from a URL. The result
// is the screen identity key within a session.
func Canonicalize(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		raw = strings.SplitN(raw, "?", 2)[0]

		return strings.SplitN(raw, "#", 2)[0]
	}

	u.RawQuery = ""
	u.Fragment = ""
	u.RawFragment = ""

	return u.String()
}

// Name derives a human-readable screen name from the last path segment,
// defaulting to "home" for the application root.
func Name(canonicalURL, baseURL string) string {
	path := strings.Trim(strings.TrimPrefix(canonicalURL, strings.TrimSuffix(baseURL, "/")), "/")
	if path == "" {
		return "home"
	}

	segments := strings.Split(path, "/")

	name := segments[len(segments)-1]
	if name == "" {
		return "home"
	}

	return name
}

// Registry is session-scoped: one instance per crawl run, owned by the
// exploration engine. The cache is the only client-side duplicate guard;
// the store itself is idempotent on (url, session).
type Registry struct {
	store     ports.LocatorStore
	logger    *zap.Logger
	tracer    trace.Tracer
	sessionID string
	baseURL   string
	cache     map[string]int
}

func NewRegistry(store ports.LocatorStore, logger *zap.Logger, sessionID, baseURL string) *Registry {
	return &Registry{
		store:     store,
		logger:    logger.With(zap.String(logg.Layer, registryName), zap.String(logg.Session, sessionID)),
		tracer:    otel.Tracer(registryTracer),
		sessionID: sessionID,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		cache:     make(map[string]int),
	}
}

// Resolve canonicalizes the URL and returns the screen id, creating the
// screen record on first encounter. A false return means persistence failed
// and the caller should skip extraction for this page; it is never fatal.
func (r *Registry) Resolve(ctx context.Context, rawURL, title string) (int, bool) {
	const op = "Resolve"
	logger := r.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, rawURL))

	ctx, step := tracing.StartSpan(ctx, r.tracer, logger, op, attribute.String("url", rawURL))

	var err error
	defer func() {
		step.End(err)
	}()

	canonical := Canonicalize(rawURL)

	if id, ok := r.cache[canonical]; ok {
		step.AddEvent("cache hit")

		return id, true
	}

	name := Name(canonical, r.baseURL)
	if title == "" {
		title = name
	}

	id, err := r.store.CreateScreen(ctx, &entity.Screen{
		URL:       canonical,
		Name:      name,
		Title:     title,
		SessionID: r.sessionID,
	})
	if err != nil {
		logger.Warn("Screen create failed, skipping page", zap.Error(err))

		return 0, false
	}

	r.cache[canonical] = id
	logger.Debug("Screen registered", zap.Int(logg.ScreenID, id), zap.String("name", name))

	return id, true
}

// Count reports how many distinct screens this session has registered.
func (r *Registry) Count() int {
	return len(r.cache)
}
