package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeSelector(t *testing.T) {
	tests := []struct {
		name     string
		selector string
		want     string
	}{
		{"plain", `button.submit`, `button.submit`},
		{"single quotes", `[data-testid='save']`, `[data-testid=\'save\']`},
		{"css-escaped id keeps its backslash", `#tab\:first`, `#tab\\:first`},
		{"backslash before quote", `#it\'s`, `#it\\\'s`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, escapeSelector(tt.selector))
		})
	}
}

func TestDecodeDescriptors(t *testing.T) {
	raw := []interface{}{
		map[string]interface{}{
			"tag":      "button",
			"testId":   "save",
			"text":     "  Save changes  ",
			"disabled": false,
			"x":        12.5,
			"y":        40,
		},
		"not-an-element",
	}

	descriptors, err := decodeDescriptors("test", raw)
	assert.NoError(t, err)
	assert.Len(t, descriptors, 1)

	d := descriptors[0]
	assert.Equal(t, "button", d.Tag)
	assert.Equal(t, "save", d.TestID)
	assert.Equal(t, "Save changes", d.Text)
	assert.Equal(t, 12.5, d.X)
	assert.Equal(t, 40.0, d.Y)
}
