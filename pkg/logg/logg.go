// Package logg holds the canonical zap field names used across the crawler,
// so log output stays greppable regardless of which layer emitted it.
package logg

const (
	Layer     = "layer"
	Operation = "operation"
	URL       = "url"
	Selector  = "selector"
	Session   = "session_id"
	ScreenID  = "screen_id"
	Depth     = "depth"
	Count     = "count"
	Element   = "element"
	File      = "file"
)
