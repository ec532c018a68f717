package usecase

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"locator-crawler/internal/entity"
	"locator-crawler/internal/extract"
	"locator-crawler/internal/screen"
	"locator-crawler/internal/store"
	"locator-crawler/pkg/apperr"
	"locator-crawler/pkg/logg"
	"locator-crawler/pkg/tracing"
)

// Monitor passively follows the user's manual interactions: it arms a DOM
// mutation flag and polls it, extracting whenever the page navigated or
// mutated since the last poll. It runs until Stop or context cancellation.
func (s *CrawlerService) Monitor(ctx context.Context) (result *entity.MonitorResult, err error) {
	const op = "Monitor"
	cfg := s.config.CrawlerConfig

	sessionID := entity.NewSessionID(time.Now())
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Session, sessionID))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
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

	result = &entity.MonitorResult{SessionID: sessionID}

	if navErr := s.browser.Navigate(ctx, cfg.TargetURL); navErr != nil {
		return nil, apperr.Wrap(op, apperr.CodeNavigationFailed, navErr, map[string]any{
			apperr.MetaReason: "initial_navigation_failed",
			apperr.MetaStage:  apperr.StageMonitor,
			apperr.MetaURL:    cfg.TargetURL,
		})
	}

	if idleErr := s.browser.WaitForIdle(ctx, settleTimeoutMs); idleErr != nil {
		logger.Debug("Initial settle wait timed out", zap.Error(idleErr))
	}

	extractor.Extract(ctx)

	if armErr := s.browser.ArmChangeFlag(ctx); armErr != nil {
		logger.Warn("Mutation observer unavailable, falling back to URL polling", zap.Error(armErr))
	}

	lastURL, _ := s.browser.CurrentURL(ctx)

	logger.Info("Monitoring started, interact with the application manually",
		zap.String(logg.URL, lastURL))
	step.AddEvent("monitoring started")

	for !s.stopped(ctx) {
		s.browser.WaitForTimeout(ctx, cfg.MonitorPollMs)
		result.Polls++

		currentURL, urlErr := s.browser.CurrentURL(ctx)
		if urlErr != nil {
			continue
		}

		if currentURL != lastURL {
			logger.Info("Navigation observed", zap.String(logg.URL, currentURL))
			lastURL = currentURL

			extractor.Extract(ctx)

			// A navigation tore down the observer with the old document.
			if armErr := s.browser.ArmChangeFlag(ctx); armErr != nil {
				logger.Debug("Re-arming mutation observer failed", zap.Error(armErr))
			}

			continue
		}

		dirty, flagErr := s.browser.ConsumeChangeFlag(ctx)
		if flagErr != nil {
			continue
		}

		if dirty {
			logger.Debug("DOM change observed", zap.String(logg.URL, currentURL))
			extractor.Extract(ctx)
		}
	}

	fallbackFile, flushErr := fallback.Flush(ctx)
	if flushErr != nil {
		logger.Warn("Fallback flush failed", zap.Error(flushErr))
	} else if fallbackFile != "" {
		logger.Info("Fallback buffer written", zap.String(logg.File, fallbackFile))
	}

	result.ScreensDiscovered = registry.Count()
	result.ElementsExtracted = extractor.Total()

	step.SetCount("screens", result.ScreensDiscovered)
	step.SetCount("elements", result.ElementsExtracted)
	step.SetCount("polls", result.Polls)

	logger.Info("Monitoring stopped",
		zap.Int("screens", result.ScreensDiscovered),
		zap.Int("elements", result.ElementsExtracted),
		zap.Int("polls", result.Polls))

	return result, nil
}
