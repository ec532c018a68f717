package adapters

import (
	"context"

	"locator-crawler/internal/entity"
)

type CrawlerService interface {
	Crawl(ctx context.Context) (*entity.CrawlResult, error)
	Monitor(ctx context.Context) (*entity.MonitorResult, error)
	Stop()
}

type BrowserService interface {
	Launch(ctx context.Context) error
	Close(ctx context.Context) error
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	IsReady() bool
}

type StoreService interface {
	Ping(ctx context.Context) error
	CreateScreen(ctx context.Context, screen *entity.Screen) (int, error)
	SaveElement(ctx context.Context, record *entity.ElementRecord) error
}
