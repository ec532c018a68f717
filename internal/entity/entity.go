package entity

import (
	"time"

	"github.com/google/uuid"
)

// Screen is one navigable page, keyed by canonical URL within a session.
type Screen struct {
	ID        int
	URL       string
	Name      string
	Title     string
	SessionID string
}

// ElementRecord is the persisted locator for one discovered element.
type ElementRecord struct {
	ScreenID       int
	Name           string
	Type           string
	Selector       string
	XPath          string
	TextContent    string
	StabilityScore int
	Verified       bool
	Priority       int

	TestID      string
	ElementID   string
	NameAttr    string
	AriaLabel   string
	Role        string
	Placeholder string
}

// Descriptor is the raw element snapshot pulled out of the page by the
// extraction script, before any selector synthesis.
type Descriptor struct {
	Tag         string
	ID          string
	Name        string
	Type        string
	Text        string
	AriaLabel   string
	TestID      string
	Placeholder string
	Role        string
	Href        string
	Alt         string
	Label       string
	Disabled    bool
	X           float64
	Y           float64
}

// Locator is a synthesized (selector, xpath) pair with its precedence rank.
// Rank 1 is the strongest (test id), 5 the weakest (bare tag).
type Locator struct {
	Selector string
	XPath    string
	Priority int
}

// Interaction is the closed set of strategies the engine applies to a
// candidate, chosen from its tag and role.
type Interaction string

const (
	InteractSelectOption   Interaction = "select_option"
	InteractFillText       Interaction = "fill_text"
	InteractToggleCheckbox Interaction = "toggle_checkbox"
	InteractClickObserve   Interaction = "click_observe"
	InteractNone           Interaction = "none"
)

// CrawlResult is the success summary returned by one crawl run.
type CrawlResult struct {
	RunID             uuid.UUID
	SessionID         string
	ScreensDiscovered int
	ElementsExtracted int
	ElementsClicked   int
	FallbackFile      string
	StartedAt         time.Time
	FinishedAt        time.Time
}

// MonitorResult aggregates what a manual-interaction monitoring session
// harvested before it was stopped.
type MonitorResult struct {
	SessionID         string
	ScreensDiscovered int
	ElementsExtracted int
	Polls             int
}

// NewSessionID derives the run namespace from the wall clock, matching the
// naming scheme the persistence service groups by.
func NewSessionID(now time.Time) string {
	return "session_" + now.Format("20060102_150405")
}
