package usecase

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"locator-crawler/internal/auth"
	"locator-crawler/internal/config"
	"locator-crawler/internal/entity"
	"locator-crawler/internal/ports"
	"locator-crawler/internal/testutil"
	"locator-crawler/pkg/apperr"
)

const homeURL = "https://app.test/"

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		AppConfig:     &config.AppConfig{},
		BrowserConfig: &config.BrowserConfig{},
		CrawlerConfig: &config.CrawlerConfig{
			TargetURL:     homeURL,
			SkipLogin:     true,
			MaxDepth:      10,
			SkipPatterns:  []string{"logout", "delete"},
			ProbeValue:    "Test Input",
			ModalLimit:    5,
			MonitorPollMs: 10,
		},
		APIConfig: &config.APIConfig{FallbackDir: t.TempDir()},
	}
}

func newTestService(t *testing.T, cfg *config.Config, driver *testutil.FakeDriver, locatorStore ports.LocatorStore) *CrawlerService {
	t.Helper()

	logger := zap.NewNop()

	prober := auth.NewProber(auth.Params{
		Config:  cfg,
		Logger:  logger,
		Browser: driver,
	})

	return NewCrawlerService(CrawlerServiceParams{
		Config:  cfg,
		Logger:  logger,
		Browser: driver,
		Store:   locatorStore,
		Prober:  prober,
	})
}

func anchor(testID, text string) entity.Descriptor {
	return entity.Descriptor{Tag: "a", TestID: testID, Text: text}
}

func TestStrategyFor(t *testing.T) {
	tests := []struct {
		name string
		d    entity.Descriptor
		want entity.Interaction
	}{
		{"text input", entity.Descriptor{Tag: "input", Type: "text"}, entity.InteractFillText},
		{"untyped input", entity.Descriptor{Tag: "input"}, entity.InteractFillText},
		{"checkbox", entity.Descriptor{Tag: "input", Type: "checkbox"}, entity.InteractToggleCheckbox},
		{"radio", entity.Descriptor{Tag: "input", Type: "radio"}, entity.InteractClickObserve},
		{"hidden-ish input type", entity.Descriptor{Tag: "input", Type: "file"}, entity.InteractNone},
		{"select", entity.Descriptor{Tag: "select"}, entity.InteractSelectOption},
		{"textarea", entity.Descriptor{Tag: "textarea"}, entity.InteractFillText},
		{"button", entity.Descriptor{Tag: "button"}, entity.InteractClickObserve},
		{"anchor", entity.Descriptor{Tag: "a"}, entity.InteractClickObserve},
		{"role button div", entity.Descriptor{Tag: "div", Role: "button"}, entity.InteractClickObserve},
		{"role tab", entity.Descriptor{Tag: "div", Role: "tab"}, entity.InteractClickObserve},
		{"plain div", entity.Descriptor{Tag: "div"}, entity.InteractNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, strategyFor(tt.d))
		})
	}
}

func TestSortCandidates(t *testing.T) {
	button := entity.Descriptor{Tag: "button", Text: "Save", X: 10, Y: 5}
	field := entity.Descriptor{Tag: "input", Type: "text", Name: "q", X: 50, Y: 200}
	upperLink := entity.Descriptor{Tag: "a", Text: "Home", X: 5, Y: 10}
	leftLink := entity.Descriptor{Tag: "a", Text: "Left", X: 1, Y: 10}

	candidates := []entity.Descriptor{button, field, upperLink, leftLink}
	sortCandidates(candidates)

	// Inputs first regardless of position, then reading order.
	assert.Equal(t, "input", candidates[0].Tag)
	assert.Equal(t, "Save", candidates[1].Text)
	assert.Equal(t, "Left", candidates[2].Text)
	assert.Equal(t, "Home", candidates[3].Text)
}

func TestCrawlVisitsEachScreenOnce(t *testing.T) {
	usersURL := homeURL + "users"

	pages := map[string]*testutil.FakePage{
		homeURL: {
			Title: "Home",
			Candidates: map[string][]entity.Descriptor{
				candidateSelector: {anchor("nav-users", "Users")},
			},
			Links: map[string]string{`[data-testid='nav-users']`: usersURL},
		},
		usersURL: {
			Title: "Users",
			Candidates: map[string][]entity.Descriptor{
				candidateSelector: {anchor("nav-home", "Home")},
			},
			Links: map[string]string{`[data-testid='nav-home']`: homeURL},
		},
	}

	driver := testutil.NewFakeDriver(homeURL, pages)
	locatorStore := testutil.NewFakeStore()
	svc := newTestService(t, testConfig(t), driver, locatorStore)

	result, err := svc.Crawl(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.ScreensDiscovered)
	assert.Len(t, locatorStore.Screens, 2)

	// The mutual links form a cycle; each screen is explored exactly once.
	visits := map[string]int{}
	for _, url := range driver.NavHistory {
		visits[url]++
	}
	assert.LessOrEqual(t, visits[usersURL], 2) // navigation + possible backtrack
}

func TestCrawlBacktracksAfterNavigation(t *testing.T) {
	usersURL := homeURL + "users"

	pages := map[string]*testutil.FakePage{
		homeURL: {
			Candidates: map[string][]entity.Descriptor{
				candidateSelector: {
					anchor("nav-users", "Users"),
					anchor("nav-about", "About"),
				},
			},
			Links: map[string]string{`[data-testid='nav-users']`: usersURL},
		},
		usersURL: {},
	}

	driver := testutil.NewFakeDriver(homeURL, pages)
	svc := newTestService(t, testConfig(t), driver, testutil.NewFakeStore())

	_, err := svc.Crawl(context.Background())
	require.NoError(t, err)

	// After descending into /users the engine returns to home to finish the
	// remaining candidates there.
	require.GreaterOrEqual(t, len(driver.NavHistory), 3)
	assert.Equal(t, usersURL, driver.NavHistory[1])
	assert.Equal(t, homeURL, driver.NavHistory[2])
	assert.Contains(t, driver.Clicks, `[data-testid='nav-about']`)
}

func TestCrawlDepthBound(t *testing.T) {
	levelOne := homeURL + "one"
	levelTwo := homeURL + "two"

	pages := map[string]*testutil.FakePage{
		homeURL: {
			Candidates: map[string][]entity.Descriptor{
				candidateSelector: {anchor("go-one", "One")},
			},
			Links: map[string]string{`[data-testid='go-one']`: levelOne},
		},
		levelOne: {
			Candidates: map[string][]entity.Descriptor{
				candidateSelector: {anchor("go-two", "Two")},
			},
			Links: map[string]string{`[data-testid='go-two']`: levelTwo},
		},
		levelTwo: {},
	}

	cfg := testConfig(t)
	cfg.CrawlerConfig.MaxDepth = 1

	driver := testutil.NewFakeDriver(homeURL, pages)
	locatorStore := testutil.NewFakeStore()
	svc := newTestService(t, cfg, driver, locatorStore)

	result, err := svc.Crawl(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.ScreensDiscovered)

	for _, scr := range locatorStore.Screens {
		assert.NotEqual(t, levelTwo, scr.URL)
	}
}

func TestCrawlSkipsDenylistedAndDisabled(t *testing.T) {
	pages := map[string]*testutil.FakePage{
		homeURL: {
			Candidates: map[string][]entity.Descriptor{
				candidateSelector: {
					anchor("nav-logout", "Logout"),
					anchor("nav-delete", "Delete account"),
					{Tag: "button", TestID: "save", Text: "Save", Disabled: true},
					anchor("nav-safe", "Reports"),
				},
			},
		},
	}

	driver := testutil.NewFakeDriver(homeURL, pages)
	svc := newTestService(t, testConfig(t), driver, testutil.NewFakeStore())

	_, err := svc.Crawl(context.Background())
	require.NoError(t, err)

	assert.NotContains(t, driver.Clicks, `[data-testid='nav-logout']`)
	assert.NotContains(t, driver.Clicks, `[data-testid='nav-delete']`)
	assert.NotContains(t, driver.Clicks, `[data-testid='save']`)
	assert.Contains(t, driver.Clicks, `[data-testid='nav-safe']`)
}

func TestCrawlGracefulDegradationWithStoreDown(t *testing.T) {
	pages := map[string]*testutil.FakePage{
		homeURL: {
			Title: "Home",
			Harvest: []entity.Descriptor{
				{Tag: "button", TestID: "save", Text: "Save"},
				{Tag: "input", Type: "text", Name: "q"},
			},
		},
	}

	driver := testutil.NewFakeDriver(homeURL, pages)
	locatorStore := testutil.NewFakeStore()
	locatorStore.FailAll = true

	svc := newTestService(t, testConfig(t), driver, locatorStore)

	result, err := svc.Crawl(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.ScreensDiscovered)
	assert.Equal(t, 2, result.ElementsExtracted)

	require.NotEmpty(t, result.FallbackFile)
	_, statErr := os.Stat(result.FallbackFile)
	assert.NoError(t, statErr)
}

func TestCrawlInitialNavigationFailureIsTerminal(t *testing.T) {
	driver := testutil.NewFakeDriver("about:blank", map[string]*testutil.FakePage{})
	driver.FailNavigate = map[string]bool{homeURL: true}

	svc := newTestService(t, testConfig(t), driver, testutil.NewFakeStore())

	result, err := svc.Crawl(context.Background())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, apperr.CodeNavigationFailed, apperr.CodeOf(err))
	assert.True(t, apperr.IsTerminal(err))
}

func TestCrawlSelectRecordsOptions(t *testing.T) {
	selectSelector := `select[name='country']`

	pages := map[string]*testutil.FakePage{
		homeURL: {
			Candidates: map[string][]entity.Descriptor{
				candidateSelector: {{Tag: "select", Name: "country"}},
			},
			TextLists: map[string][]string{
				selectSelector + " option": {"Choose...", "Germany", "Japan"},
			},
		},
	}

	driver := testutil.NewFakeDriver(homeURL, pages)
	locatorStore := testutil.NewFakeStore()
	svc := newTestService(t, testConfig(t), driver, locatorStore)

	result, err := svc.Crawl(context.Background())
	require.NoError(t, err)

	assert.Contains(t, driver.Selected, selectSelector+"@1")

	optionTexts := map[string]bool{}
	for _, rec := range locatorStore.Elements {
		if rec.Type == "option" {
			optionTexts[rec.TextContent] = true
		}
	}
	assert.True(t, optionTexts["Germany"])
	assert.True(t, optionTexts["Japan"])
	assert.GreaterOrEqual(t, result.ElementsExtracted, 3)
}

func TestCrawlSelectByVisibleTextOnly(t *testing.T) {
	// A select with no identifying attributes gets a :has-text selector;
	// the option harvest and index selection must still run through it.
	selectSelector := `select:has-text('Choose country')`

	pages := map[string]*testutil.FakePage{
		homeURL: {
			Candidates: map[string][]entity.Descriptor{
				candidateSelector: {{Tag: "select", Text: "Choose country"}},
			},
			TextLists: map[string][]string{
				selectSelector + " option": {"Choose country", "Norway"},
			},
		},
	}

	driver := testutil.NewFakeDriver(homeURL, pages)
	locatorStore := testutil.NewFakeStore()
	svc := newTestService(t, testConfig(t), driver, locatorStore)

	_, err := svc.Crawl(context.Background())
	require.NoError(t, err)

	assert.Contains(t, driver.Selected, selectSelector+"@1")

	var optionCount int
	for _, rec := range locatorStore.Elements {
		if rec.Type == "option" {
			optionCount++
		}
	}
	assert.Equal(t, 2, optionCount)
}

func TestCrawlFillUsesVisibleDropdown(t *testing.T) {
	pages := map[string]*testutil.FakePage{
		homeURL: {
			Candidates: map[string][]entity.Descriptor{
				candidateSelector: {{Tag: "input", Type: "text", Name: "city"}},
			},
			VisibleTextLists: map[string][]string{
				dropdownOptionSelector: {"Aarhus", "Abuja"},
			},
		},
	}

	driver := testutil.NewFakeDriver(homeURL, pages)
	locatorStore := testutil.NewFakeStore()
	svc := newTestService(t, testConfig(t), driver, locatorStore)

	_, err := svc.Crawl(context.Background())
	require.NoError(t, err)

	// Dropdown entries recorded and the first one chosen; no probe fill.
	assert.Contains(t, driver.Clicks, dropdownOptionSelector)
	assert.NotContains(t, driver.Fills, `input[name='city']`)

	optionTexts := map[string]bool{}
	for _, rec := range locatorStore.Elements {
		if rec.Type == "option" {
			optionTexts[rec.TextContent] = true
		}
	}
	assert.True(t, optionTexts["Aarhus"])
	assert.True(t, optionTexts["Abuja"])
}

func TestCrawlFillIgnoresHiddenDropdownOptions(t *testing.T) {
	// A closed listbox kept in the DOM must not hijack the fill path.
	pages := map[string]*testutil.FakePage{
		homeURL: {
			Candidates: map[string][]entity.Descriptor{
				candidateSelector: {{Tag: "input", Type: "text", Name: "city"}},
			},
			TextLists: map[string][]string{
				dropdownOptionSelector: {"Stale A", "Stale B"},
			},
		},
	}

	driver := testutil.NewFakeDriver(homeURL, pages)
	locatorStore := testutil.NewFakeStore()
	svc := newTestService(t, testConfig(t), driver, locatorStore)

	_, err := svc.Crawl(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Test Input", driver.Fills[`input[name='city']`])
	assert.NotContains(t, driver.Clicks, dropdownOptionSelector)

	for _, rec := range locatorStore.Elements {
		assert.NotEqual(t, "option", rec.Type)
	}
}

func TestCrawlFillsProbeValue(t *testing.T) {
	fieldSelector := `input[name='search']`

	pages := map[string]*testutil.FakePage{
		homeURL: {
			Candidates: map[string][]entity.Descriptor{
				candidateSelector: {{Tag: "input", Type: "text", Name: "search"}},
			},
		},
	}

	driver := testutil.NewFakeDriver(homeURL, pages)
	svc := newTestService(t, testConfig(t), driver, testutil.NewFakeStore())

	_, err := svc.Crawl(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Test Input", driver.Fills[fieldSelector])
}

func TestCrawlTogglesCheckbox(t *testing.T) {
	pages := map[string]*testutil.FakePage{
		homeURL: {
			Candidates: map[string][]entity.Descriptor{
				candidateSelector: {{Tag: "input", Type: "checkbox", Name: "agree"}},
			},
		},
	}

	driver := testutil.NewFakeDriver(homeURL, pages)
	svc := newTestService(t, testConfig(t), driver, testutil.NewFakeStore())

	_, err := svc.Crawl(context.Background())
	require.NoError(t, err)

	assert.Contains(t, driver.Checked, `input[name='agree']`)
}

func TestCrawlHandlesModal(t *testing.T) {
	pages := map[string]*testutil.FakePage{
		homeURL: {
			Candidates: map[string][]entity.Descriptor{
				candidateSelector: {{Tag: "button", TestID: "open-settings", Text: "Settings"}},
				modalChildSelector: {
					{Tag: "button", TestID: "apply", Text: "Apply"},
				},
			},
			Counts: map[string]int{
				modalSelector: 1,
			},
		},
	}

	driver := testutil.NewFakeDriver(homeURL, pages)
	svc := newTestService(t, testConfig(t), driver, testutil.NewFakeStore())

	_, err := svc.Crawl(context.Background())
	require.NoError(t, err)

	assert.Contains(t, driver.Clicks, `[data-testid='open-settings']`)
	assert.Contains(t, driver.Clicks, `[data-testid='apply']`)

	// No close button is scripted, so the engine falls back to Escape.
	assert.Contains(t, driver.Pressed, "Escape")
}

func TestCrawlStopsAtTwoFactorCheckpoint(t *testing.T) {
	twoFactorURL := homeURL + "2fa/verify"

	pages := map[string]*testutil.FakePage{
		homeURL: {
			Title: "Sign in",
			Counts: map[string]int{
				`input[type="email"]`:    1,
				`input[type="password"]`: 1,
				`button[type="submit"]`:  1,
			},
			Links: map[string]string{
				`button[type="submit"]`: twoFactorURL,
			},
			Harvest: []entity.Descriptor{
				{Tag: "button", TestID: "signin", Text: "Sign in"},
			},
			Candidates: map[string][]entity.Descriptor{
				candidateSelector: {{Tag: "button", TestID: "signin", Text: "Sign in"}},
			},
		},
		twoFactorURL: {},
	}

	cfg := testConfig(t)
	cfg.CrawlerConfig.SkipLogin = false
	cfg.CrawlerConfig.Username = "qa@app.test"
	cfg.CrawlerConfig.Password = "hunter2"

	driver := testutil.NewFakeDriver("about:blank", pages)
	locatorStore := testutil.NewFakeStore()
	svc := newTestService(t, cfg, driver, locatorStore)

	result, err := svc.Crawl(context.Background())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, apperr.CodeTwoFactorRequired, apperr.CodeOf(err))
	assert.True(t, apperr.IsTerminal(err))

	// No exploration or extraction happened past the checkpoint: only the
	// target navigation and the submit click touched the browser.
	assert.Equal(t, []string{homeURL, twoFactorURL}, driver.NavHistory)
	assert.Empty(t, locatorStore.Screens)
	assert.Empty(t, locatorStore.Elements)
}

func TestMonitorExtractsOnChanges(t *testing.T) {
	detailsURL := homeURL + "details"

	pages := map[string]*testutil.FakePage{
		homeURL: {
			Title: "Home",
			Harvest: []entity.Descriptor{
				{Tag: "button", TestID: "refresh", Text: "Refresh"},
			},
		},
		detailsURL: {
			Title: "Details",
			Harvest: []entity.Descriptor{
				{Tag: "button", TestID: "back", Text: "Back"},
			},
		},
	}

	driver := testutil.NewFakeDriver(homeURL, pages)
	locatorStore := testutil.NewFakeStore()
	svc := newTestService(t, testConfig(t), driver, locatorStore)

	polls := 0
	driver.WaitHook = func(ms int) {
		polls++

		switch polls {
		case 1:
			driver.URL = detailsURL
		case 2:
			driver.Dirty = true
		case 3:
			svc.Stop()
		}
	}

	result, err := svc.Monitor(context.Background())
	require.NoError(t, err)

	assert.True(t, driver.Armed)
	assert.Equal(t, 3, result.Polls)
	assert.Equal(t, 2, result.ScreensDiscovered)
	assert.Equal(t, 2, result.ElementsExtracted)
}

func TestStopInterruptsCrawl(t *testing.T) {
	pages := map[string]*testutil.FakePage{
		homeURL: {
			Candidates: map[string][]entity.Descriptor{
				candidateSelector: {
					anchor("one", "One"),
					anchor("two", "Two"),
					anchor("three", "Three"),
				},
			},
		},
	}

	driver := testutil.NewFakeDriver(homeURL, pages)
	svc := newTestService(t, testConfig(t), driver, testutil.NewFakeStore())

	driver.WaitHook = func(ms int) {
		if len(driver.Clicks) >= 1 {
			svc.Stop()
		}
	}

	result, err := svc.Crawl(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Less(t, len(driver.Clicks), 3)
}
