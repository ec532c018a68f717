// Package testutil provides in-memory doubles of the browser driver and the
// locator store for engine-level tests. The fake driver models a small site
// as a map of pages with scripted click-to-navigation edges.
package testutil

import (
	"context"
	"errors"
	"fmt"

	"locator-crawler/internal/entity"
)

// FakePage scripts what the driver reports while that page is current.
// TextLists covers all matching elements; VisibleTextLists only the
// rendered ones.
type FakePage struct {
	Title            string
	Harvest          []entity.Descriptor
	Candidates       map[string][]entity.Descriptor
	Links            map[string]string
	Counts           map[string]int
	TextLists        map[string][]string
	VisibleTextLists map[string][]string
	ClickErr         map[string]error
}

type FakeDriver struct {
	Pages map[string]*FakePage
	URL   string

	FailNavigate map[string]bool

	Clicks     []string
	Fills      map[string]string
	Checked    []string
	Selected   []string
	Pressed    []string
	NavHistory []string

	Armed bool
	Dirty bool

	// WaitHook, when set, observes every WaitForTimeout call; monitor tests
	// use it to script URL changes and mutations between polls.
	WaitHook func(ms int)

	ready bool
}

func NewFakeDriver(startURL string, pages map[string]*FakePage) *FakeDriver {
	return &FakeDriver{
		Pages: pages,
		URL:   startURL,
		Fills: make(map[string]string),
		ready: true,
	}
}

func (d *FakeDriver) page() *FakePage {
	if p, ok := d.Pages[d.URL]; ok {
		return p
	}

	return &FakePage{}
}

func (d *FakeDriver) Launch(ctx context.Context) error { d.ready = true; return nil }
func (d *FakeDriver) Close(ctx context.Context) error  { d.ready = false; return nil }
func (d *FakeDriver) IsReady() bool                    { return d.ready }

func (d *FakeDriver) Navigate(ctx context.Context, url string) error {
	if d.FailNavigate[url] {
		return errors.New("net::ERR_CONNECTION_REFUSED")
	}

	d.URL = url
	d.NavHistory = append(d.NavHistory, url)

	return nil
}

func (d *FakeDriver) CurrentURL(ctx context.Context) (string, error) { return d.URL, nil }

func (d *FakeDriver) Title(ctx context.Context) (string, error) { return d.page().Title, nil }

func (d *FakeDriver) Click(ctx context.Context, selector string) error {
	p := d.page()

	if err, ok := p.ClickErr[selector]; ok {
		return err
	}

	d.Clicks = append(d.Clicks, selector)

	if dest, ok := p.Links[selector]; ok {
		d.URL = dest
		d.NavHistory = append(d.NavHistory, dest)
	}

	return nil
}

func (d *FakeDriver) Fill(ctx context.Context, selector, value string) error {
	d.Fills[selector] = value

	return nil
}

func (d *FakeDriver) Check(ctx context.Context, selector string) error {
	d.Checked = append(d.Checked, selector)

	return nil
}

func (d *FakeDriver) SelectOption(ctx context.Context, selector string, index int) error {
	d.Selected = append(d.Selected, fmt.Sprintf("%s@%d", selector, index))

	return nil
}

func (d *FakeDriver) Press(ctx context.Context, key string) error {
	d.Pressed = append(d.Pressed, key)

	return nil
}

func (d *FakeDriver) Evaluate(ctx context.Context, script string) (interface{}, error) {
	return nil, nil
}

func (d *FakeDriver) Describe(ctx context.Context, selector string) ([]entity.Descriptor, error) {
	return d.page().Candidates[selector], nil
}

func (d *FakeDriver) HarvestDescriptors(ctx context.Context) ([]entity.Descriptor, error) {
	return d.page().Harvest, nil
}

func (d *FakeDriver) Texts(ctx context.Context, selector string, limit int) ([]string, error) {
	return capTexts(d.page().TextLists[selector], limit), nil
}

func (d *FakeDriver) VisibleTexts(ctx context.Context, selector string, limit int) ([]string, error) {
	return capTexts(d.page().VisibleTextLists[selector], limit), nil
}

func capTexts(texts []string, limit int) []string {
	if len(texts) > limit {
		return texts[:limit]
	}

	return texts
}

func (d *FakeDriver) CountVisible(ctx context.Context, selector string) (int, error) {
	return d.page().Counts[selector], nil
}

func (d *FakeDriver) WaitForTimeout(ctx context.Context, ms int) {
	if d.WaitHook != nil {
		d.WaitHook(ms)
	}
}

func (d *FakeDriver) WaitForIdle(ctx context.Context, timeoutMs int) error { return nil }

func (d *FakeDriver) ArmChangeFlag(ctx context.Context) error {
	d.Armed = true

	return nil
}

func (d *FakeDriver) ConsumeChangeFlag(ctx context.Context) (bool, error) {
	dirty := d.Dirty
	d.Dirty = false

	return dirty, nil
}

// FakeStore is an in-memory LocatorStore with the same idempotency contract
// as the real service: create-or-fetch on (url, session), upsert on
// (screen, selector, text).
type FakeStore struct {
	FailAll bool

	nextID   int
	screens  map[string]int
	Screens  []*entity.Screen
	Elements []*entity.ElementRecord
}

func NewFakeStore() *FakeStore {
	return &FakeStore{screens: make(map[string]int)}
}

func (s *FakeStore) Ping(ctx context.Context) error {
	if s.FailAll {
		return errors.New("api down")
	}

	return nil
}

func (s *FakeStore) CreateScreen(ctx context.Context, scr *entity.Screen) (int, error) {
	if s.FailAll {
		return 0, errors.New("api down")
	}

	key := scr.URL + "|" + scr.SessionID
	if id, ok := s.screens[key]; ok {
		return id, nil
	}

	s.nextID++
	s.screens[key] = s.nextID
	s.Screens = append(s.Screens, scr)

	return s.nextID, nil
}

func (s *FakeStore) SaveElement(ctx context.Context, rec *entity.ElementRecord) error {
	if s.FailAll {
		return errors.New("api down")
	}

	for i, existing := range s.Elements {
		if existing.ScreenID == rec.ScreenID && existing.Selector == rec.Selector && existing.TextContent == rec.TextContent {
			s.Elements[i] = rec

			return nil
		}
	}

	s.Elements = append(s.Elements, rec)

	return nil
}
