package bootstrap

import (
	"time"

	"go.uber.org/fx"

	"locator-crawler/internal/auth"
	"locator-crawler/internal/browser"
	"locator-crawler/internal/config"
	"locator-crawler/internal/console"
	"locator-crawler/internal/ports"
	"locator-crawler/internal/store"
	"locator-crawler/internal/usecase"
)

func NewApp() *fx.App {
	return fx.New(
		fx.Provide(
			config.GetConfig,
			newLogger,
			newTraceProvider,

			fx.Annotate(browser.NewManager, fx.As(new(ports.BrowserDriver))),
			fx.Annotate(store.NewClient, fx.As(new(ports.LocatorStore))),

			auth.NewProber,

			usecase.NewUsecase,

			console.NewInterface,
		),

		fx.Invoke(
			runConsole,
		),

		fx.StartTimeout(10*time.Second),
	)
}
