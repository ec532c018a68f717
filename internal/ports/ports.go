package ports

import (
	"context"

	"locator-crawler/internal/entity"
)

// BrowserDriver is the automation surface the engine drives. One driver owns
// exactly one page for the lifetime of a crawl.
type BrowserDriver interface {
	Launch(ctx context.Context) error
	Close(ctx context.Context) error
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector string, value string) error
	Check(ctx context.Context, selector string) error
	SelectOption(ctx context.Context, selector string, index int) error
	Press(ctx context.Context, key string) error
	Evaluate(ctx context.Context, script string) (interface{}, error)
	Describe(ctx context.Context, selector string) ([]entity.Descriptor, error)
	HarvestDescriptors(ctx context.Context) ([]entity.Descriptor, error)
	Texts(ctx context.Context, selector string, limit int) ([]string, error)
	VisibleTexts(ctx context.Context, selector string, limit int) ([]string, error)
	CountVisible(ctx context.Context, selector string) (int, error)
	ArmChangeFlag(ctx context.Context) error
	ConsumeChangeFlag(ctx context.Context) (bool, error)
	WaitForTimeout(ctx context.Context, ms int)
	WaitForIdle(ctx context.Context, timeoutMs int) error
	IsReady() bool
}

// LocatorStore persists screens and element records. Both calls are
// idempotent on the service side: CreateScreen on (url, session), SaveElement
// on (screen, selector, text).
type LocatorStore interface {
	Ping(ctx context.Context) error
	CreateScreen(ctx context.Context, screen *entity.Screen) (int, error)
	SaveElement(ctx context.Context, record *entity.ElementRecord) error
}

// Crawler runs one exploration or monitoring session over the target app.
type Crawler interface {
	Crawl(ctx context.Context) (*entity.CrawlResult, error)
	Monitor(ctx context.Context) (*entity.MonitorResult, error)
	Stop()
}
