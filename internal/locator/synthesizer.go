// Package locator implements the pure parts of locator synthesis: turning a
// raw element descriptor into a ranked (selector, xpath) pair, scoring its
// expected stability, and computing the session-local deduplication signature.
package locator

import (
	"fmt"
	"strings"

	"locator-crawler/internal/entity"
)

const (
	PriorityTestID = 1
	PriorityID     = 2
	PriorityAttr   = 3
	PriorityText   = 4
	PriorityTag    = 5

	attrTruncate = 30
	nameTruncate = 100
)

// Synthesize builds the strongest selector pair the descriptor supports.
// First matching rule wins: test id, id, aria-label, name attribute,
// visible text, bare tag.
func Synthesize(d entity.Descriptor) entity.Locator {
	tag := strings.ToLower(d.Tag)

	if d.TestID != "" {
		v := escapeQuoted(d.TestID)

		return entity.Locator{
			Selector: fmt.Sprintf("[data-testid='%s']", v),
			XPath:    fmt.Sprintf("//*[@data-testid='%s']", v),
			Priority: PriorityTestID,
		}
	}

	if d.ID != "" {
		v := escapeQuoted(d.ID)

		return entity.Locator{
			Selector: fmt.Sprintf("#%s", cssEscapeIdent(d.ID)),
			XPath:    fmt.Sprintf("//*[@id='%s']", v),
			Priority: PriorityID,
		}
	}

	if d.AriaLabel != "" {
		v := escapeQuoted(truncate(d.AriaLabel, attrTruncate))

		return entity.Locator{
			Selector: fmt.Sprintf("%s[aria-label='%s']", tag, v),
			XPath:    fmt.Sprintf("//%s[@aria-label='%s']", tag, v),
			Priority: PriorityID,
		}
	}

	if d.Name != "" {
		v := escapeQuoted(d.Name)

		return entity.Locator{
			Selector: fmt.Sprintf("%s[name='%s']", tag, v),
			XPath:    fmt.Sprintf("//%s[@name='%s']", tag, v),
			Priority: PriorityAttr,
		}
	}

	if text := strings.TrimSpace(d.Text); text != "" {
		v := escapeQuoted(truncate(text, attrTruncate))

		return entity.Locator{
			Selector: fmt.Sprintf("%s:has-text('%s')", tag, v),
			XPath:    fmt.Sprintf("//%s[contains(text(), '%s')]", tag, v),
			Priority: PriorityText,
		}
	}

	return entity.Locator{
		Selector: tag,
		XPath:    fmt.Sprintf("//%s", tag),
		Priority: PriorityTag,
	}
}

// RecordName derives the human-readable record name: the recovered form
// label wins, then the most descriptive attribute, then the tag itself.
func RecordName(d entity.Descriptor) string {
	name := strings.TrimSpace(d.Label)

	if name == "" {
		switch {
		case d.AriaLabel != "":
			name = d.AriaLabel
		case d.Placeholder != "":
			name = d.Placeholder
		case d.TestID != "":
			name = d.TestID
		case strings.TrimSpace(d.Text) != "":
			name = strings.TrimSpace(d.Text)
		case d.Name != "":
			name = d.Name
		case d.ID != "":
			name = d.ID
		default:
			name = d.Tag + "_element"
		}
	}

	name = strings.NewReplacer(" ", "_", "\n", "_", "*", "").Replace(name)

	return truncate(strings.ToLower(name), nameTruncate)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	return s[:max]
}

// escapeQuoted escapes values interpolated into single-quoted CSS attribute
// and XPath string literals.
func escapeQuoted(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)

	return strings.ReplaceAll(s, "'", `\'`)
}

// cssEscapeIdent escapes the characters that would break an #id selector.
func cssEscapeIdent(s string) string {
	var b strings.Builder

	for _, r := range s {
		switch r {
		case ':', '.', '[', ']', '#', '(', ')', '>', '+', '~', ' ', '\'', '"', '\\':
			b.WriteRune('\\')
		}

		b.WriteRune(r)
	}

	return b.String()
}
