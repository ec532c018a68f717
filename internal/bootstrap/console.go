package bootstrap

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"locator-crawler/internal/console"
	"locator-crawler/internal/ports"
)

func runConsole(lc fx.Lifecycle, consoleInterface *console.Interface, browser ports.BrowserDriver, locatorStore ports.LocatorStore, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Starting Locator Crawler Console Interface...")

			logger.Info("Launching browser...")

			if err := browser.Launch(ctx); err != nil {
				logger.Error("Failed to launch browser", zap.Error(err))

				return err
			}

			logger.Info("Browser launched successfully")

			// The API being down is not fatal: records buffer to a
			// fallback file and can be replayed later.
			if err := locatorStore.Ping(ctx); err != nil {
				logger.Warn("Locator API unreachable, fallback buffering will be used", zap.Error(err))
			} else {
				logger.Info("Locator API reachable")
			}

			go func() {
				if err := consoleInterface.Start(); err != nil {
					logger.Error("Console interface error", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down crawler...")

			if err := consoleInterface.Stop(); err != nil {
				logger.Error("Failed to stop console", zap.Error(err))
			}

			if err := browser.Close(ctx); err != nil {
				logger.Error("Failed to close browser", zap.Error(err))
			}

			return nil
		},
	})
}
