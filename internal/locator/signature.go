package locator

import (
	"fmt"
	"strings"

	"locator-crawler/internal/entity"
)

const signatureTextLen = 20

// Signature computes the session-local deduplication key for an element on a
// screen. Two elements with the same signature are the same discovered
// locator and must not be persisted twice in one session. The key is never
// persisted; it is only compared within the in-memory seen set of one run.
func Signature(d entity.Descriptor, canonicalURL string) string {
	key := d.ID
	if key == "" {
		key = d.Name
	}

	if key == "" {
		key = d.TestID
	}

	text := truncate(strings.TrimSpace(d.Text), signatureTextLen)

	return fmt.Sprintf("%s::%s::%s::%s", strings.ToLower(d.Tag), key, text, canonicalURL)
}

// OptionSignature keys a harvested dropdown option by its text alone; options
// carry no identifying attributes of their own.
func OptionSignature(text, canonicalURL string) string {
	return fmt.Sprintf("option::%s::%s", strings.TrimSpace(text), canonicalURL)
}
