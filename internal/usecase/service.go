package usecase

import (
	"locator-crawler/internal/auth"
	"locator-crawler/internal/config"
	"locator-crawler/internal/ports"
	"locator-crawler/internal/usecase/adapters"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Service struct {
	Crawler adapters.CrawlerService
	Browser adapters.BrowserService
	Store   adapters.StoreService
}

type Params struct {
	fx.In

	Logger  *zap.Logger
	Config  *config.Config
	Browser ports.BrowserDriver
	Store   ports.LocatorStore
	Prober  *auth.Prober
}

func NewUsecase(params Params) *Service {
	factory := newServiceFactory(params)

	return &Service{
		Crawler: factory.CreateCrawlerService(),
		Browser: factory.CreateBrowserService(),
		Store:   factory.CreateStoreService(),
	}
}
