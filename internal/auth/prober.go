// Package auth detects login screens and drives credential submission before
// exploration begins.
package auth

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"locator-crawler/internal/config"
	"locator-crawler/internal/ports"
	"locator-crawler/pkg/apperr"
	"locator-crawler/pkg/logg"
	"locator-crawler/pkg/tracing"
)

const (
	proberName   = "AuthProber"
	proberTracer = "auth.prober"

	passwordSelector = `input[type="password"]`
	settleTimeoutMs  = 10000
)

var loginURLTokens = []string{"login", "signin", "sign-in", "auth"}

var twoFactorURLTokens = []string{"2fa", "mfa", "otp", "two-factor", "twofactor", "verify-code", "challenge"}

// Username field guesses, strongest first. The password field needs no
// guessing; type=password is unambiguous.
var usernameSelectors = []string{
	`input[type="email"]`,
	`input[name="email"]`,
	`input[name*="user"]`,
	`input[placeholder*="mail"]`,
	`input[placeholder*="user"]`,
	`input[type="text"]`,
	`input:not([type])`,
}

var submitSelectors = []string{
	`button[type="submit"]`,
	`input[type="submit"]`,
}

type Prober struct {
	config  *config.Config
	logger  *zap.Logger
	tracer  trace.Tracer
	browser ports.BrowserDriver
}

type Params struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Browser ports.BrowserDriver
}

func NewProber(params Params) *Prober {
	return &Prober{
		config:  params.Config,
		logger:  params.Logger.With(zap.String(logg.Layer, proberName)),
		tracer:  otel.Tracer(proberTracer),
		browser: params.Browser,
	}
}

// IsLoginPage reports whether the current page looks like a login screen:
// a login-like URL token, or a password input in the DOM.
func (p *Prober) IsLoginPage(ctx context.Context) bool {
	url, err := p.browser.CurrentURL(ctx)
	if err != nil {
		return false
	}

	lower := strings.ToLower(url)

	for _, token := range loginURLTokens {
		if strings.Contains(lower, token) {
			return true
		}
	}

	count, err := p.browser.CountVisible(ctx, passwordSelector)
	if err != nil {
		return false
	}

	return count > 0
}

// Login fills and submits the detected credential form. When the
// bad-credentials probe is enabled it first submits deliberately invalid
// values and invokes harvest to capture any validation-error elements, then
// signs in for real. A detected second-factor checkpoint is terminal.
func (p *Prober) Login(ctx context.Context, harvest func(context.Context)) (err error) {
	const op = "Login"
	logger := p.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, p.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	creds := p.config.CrawlerConfig

	if creds.Username == "" || creds.Password == "" {
		return apperr.Wrap(op, apperr.CodeAuthFailed, nil, map[string]any{
			apperr.MetaReason: "credentials_missing",
			apperr.MetaStage:  apperr.StageAuth,
		})
	}

	if creds.ProbeBadCreds {
		step.AddEvent("submitting invalid credentials probe")
		p.probeInvalidCredentials(ctx, harvest)
	}

	step.AddEvent("filling credentials")

	if err = p.fillCredentials(ctx, creds.Username, creds.Password); err != nil {
		return err
	}

	step.AddEvent("submitting")

	p.submit(ctx)

	if idleErr := p.browser.WaitForIdle(ctx, settleTimeoutMs); idleErr != nil {
		// Settle timeout is not failure by itself; the URL re-check decides.
		logger.Debug("Settle wait timed out", zap.Error(idleErr))
	}

	return p.verify(ctx, op, logger)
}

// probeInvalidCredentials trades one extra submit for richer error-locator
// coverage; every failure in here is non-fatal.
func (p *Prober) probeInvalidCredentials(ctx context.Context, harvest func(context.Context)) {
	const invalidValue = "invalid@probe.invalid"

	if err := p.fillCredentials(ctx, invalidValue, invalidValue); err != nil {
		p.logger.Debug("Invalid-credentials probe fill failed", zap.Error(err))

		return
	}

	p.submit(ctx)

	if err := p.browser.WaitForIdle(ctx, settleTimeoutMs); err != nil {
		p.browser.WaitForTimeout(ctx, 1500)
	}

	if harvest != nil {
		harvest(ctx)
	}
}

func (p *Prober) fillCredentials(ctx context.Context, username, password string) error {
	const op = "fillCredentials"

	filled := false

	for _, selector := range usernameSelectors {
		count, err := p.browser.CountVisible(ctx, selector)
		if err != nil || count == 0 {
			continue
		}

		if err := p.browser.Fill(ctx, selector, username); err != nil {
			continue
		}

		filled = true

		break
	}

	if !filled {
		return apperr.Wrap(op, apperr.CodeAuthFailed, nil, map[string]any{
			apperr.MetaReason: "username_field_not_found",
			apperr.MetaStage:  apperr.StageAuth,
		})
	}

	if err := p.browser.Fill(ctx, passwordSelector, password); err != nil {
		return apperr.Wrap(op, apperr.CodeAuthFailed, err, map[string]any{
			apperr.MetaReason: "password_field_not_found",
			apperr.MetaStage:  apperr.StageAuth,
		})
	}

	return nil
}

// submit clicks the most specific submit control, falling back to pressing
// Enter in the focused password field.
func (p *Prober) submit(ctx context.Context) {
	for _, selector := range submitSelectors {
		count, err := p.browser.CountVisible(ctx, selector)
		if err != nil || count == 0 {
			continue
		}

		if err := p.browser.Click(ctx, selector); err == nil {
			return
		}
	}

	_ = p.browser.Press(ctx, "Enter")
}

func (p *Prober) verify(ctx context.Context, op string, logger *zap.Logger) error {
	url, err := p.browser.CurrentURL(ctx)
	if err != nil {
		return apperr.WrapWithReason(op, apperr.CodeAuthFailed, err, "url_check_failed")
	}

	lower := strings.ToLower(url)

	for _, token := range twoFactorURLTokens {
		if strings.Contains(lower, token) {
			logger.Warn("Second-factor checkpoint detected", zap.String(logg.URL, url))

			return apperr.Wrap(op, apperr.CodeTwoFactorRequired, nil, map[string]any{
				apperr.MetaReason: "two_factor_checkpoint",
				apperr.MetaStage:  apperr.StageAuth,
				apperr.MetaURL:    url,
			})
		}
	}

	for _, token := range loginURLTokens {
		if strings.Contains(lower, token) {
			return apperr.Wrap(op, apperr.CodeAuthFailed, nil, map[string]any{
				apperr.MetaReason: "still_on_login_page",
				apperr.MetaStage:  apperr.StageAuth,
				apperr.MetaURL:    url,
			})
		}
	}

	logger.Info("Login succeeded", zap.String(logg.URL, url))

	return nil
}
