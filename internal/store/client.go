// Package store talks to the locator persistence API and provides a local
// replayable fallback buffer for when that API is unreachable.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

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
	clientName   = "LocatorAPIClient"
	clientTracer = "store.client"
)

type Client struct {
	config     *config.Config
	logger     *zap.Logger
	tracer     trace.Tracer
	httpClient *http.Client
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewClient(params Params) *Client {
	return &Client{
		config: params.Config,
		logger: params.Logger.With(zap.String(logg.Layer, clientName)),
		tracer: otel.Tracer(clientTracer),
		httpClient: &http.Client{
			Timeout: time.Duration(params.Config.APIConfig.Timeout) * time.Millisecond,
		},
	}
}

type screenPayload struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	SessionID string `json:"session_id"`
}

type screenResponse struct {
	ID int `json:"id"`
}

type elementPayload struct {
	ScreenID       int    `json:"screen_id"`
	ElementName    string `json:"element_name"`
	ElementType    string `json:"element_type"`
	CSSSelector    string `json:"css_selector"`
	XPath          string `json:"xpath"`
	TextContent    string `json:"text_content,omitempty"`
	StabilityScore int    `json:"stability_score"`
	Verified       bool   `json:"verified"`
	Priority       int    `json:"selector_priority,omitempty"`

	ElementID string `json:"element_id,omitempty"`
	NameAttr  string `json:"element_name_attr,omitempty"`
	TestID    string `json:"data_testid,omitempty"`
	AriaLabel string `json:"aria_label,omitempty"`
	Role      string `json:"role,omitempty"`

	ScreenURL  string `json:"screen_url,omitempty"`
	ScreenName string `json:"screen_name,omitempty"`
}

func toScreenPayload(s *entity.Screen) screenPayload {
	return screenPayload{
		Name:      s.Name,
		URL:       s.URL,
		Title:     s.Title,
		SessionID: s.SessionID,
	}
}

func toElementPayload(rec *entity.ElementRecord) elementPayload {
	return elementPayload{
		ScreenID:       rec.ScreenID,
		ElementName:    rec.Name,
		ElementType:    rec.Type,
		CSSSelector:    rec.Selector,
		XPath:          rec.XPath,
		TextContent:    rec.TextContent,
		StabilityScore: rec.StabilityScore,
		Verified:       rec.Verified,
		Priority:       rec.Priority,
		ElementID:      rec.ElementID,
		NameAttr:       rec.NameAttr,
		TestID:         rec.TestID,
		AriaLabel:      rec.AriaLabel,
		Role:           rec.Role,
	}
}

// Ping probes the API health endpoint so the runner can report availability
// before a crawl starts.
func (c *Client) Ping(ctx context.Context) (err error) {
	const op = "Ping"
	logger := c.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.APIConfig.BaseURL+"/health", nil)
	if err != nil {
		return apperr.WrapWithReason(op, apperr.CodeInternal, err, "request_build_failed")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Wrap(op, apperr.CodePersistence, err, map[string]any{
			apperr.MetaReason: "api_unreachable",
			apperr.MetaStage:  apperr.StagePersistence,
		})
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperr.Wrap(op, apperr.CodePersistence, fmt.Errorf("health returned %d", resp.StatusCode), map[string]any{
			apperr.MetaReason: "unexpected_status",
			apperr.MetaStatus: resp.StatusCode,
		})
	}

	return nil
}

// CreateScreen is idempotent on (url, session): the service returns the
// existing record rather than creating a duplicate.
func (c *Client) CreateScreen(ctx context.Context, s *entity.Screen) (id int, err error) {
	const op = "CreateScreen"
	logger := c.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, s.URL))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op, attribute.String("url", s.URL))
	defer func() {
		step.End(err)
	}()

	var out screenResponse
	if err = c.post(ctx, op, "/screens", toScreenPayload(s), &out); err != nil {
		return 0, err
	}

	step.SetCount("screen_id", out.ID)

	return out.ID, nil
}

// SaveElement is idempotent on (screen, selector, text): a matching record
// is updated in place on the service side.
func (c *Client) SaveElement(ctx context.Context, rec *entity.ElementRecord) (err error) {
	const op = "SaveElement"
	logger := c.logger.With(zap.String(logg.Operation, op), zap.String(logg.Selector, rec.Selector))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op, attribute.String("selector", rec.Selector))
	defer func() {
		step.End(err)
	}()

	return c.post(ctx, op, "/add-locator", toElementPayload(rec), nil)
}

func (c *Client) post(ctx context.Context, op, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperr.WrapWithReason(op, apperr.CodeInternal, err, "marshal_failed")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.APIConfig.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return apperr.WrapWithReason(op, apperr.CodeInternal, err, "request_build_failed")
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Wrap(op, apperr.CodePersistence, err, map[string]any{
			apperr.MetaReason: "api_unreachable",
			apperr.MetaStage:  apperr.StagePersistence,
		})
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return apperr.Wrap(op, apperr.CodePersistence, fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, raw), map[string]any{
			apperr.MetaReason: "unexpected_status",
			apperr.MetaStatus: resp.StatusCode,
			apperr.MetaStage:  apperr.StagePersistence,
		})
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.WrapWithReason(op, apperr.CodeInternal, err, "decode_failed")
	}

	return nil
}
