package locator

import (
	"strings"

	"locator-crawler/internal/entity"
)

const (
	ScoreTestID      = 100
	ScoreID          = 90
	ScoreNameOrLabel = 80
	ScorePlaceholder = 75
	ScoreText        = 70
	ScoreAlt         = 65
	ScoreRole        = 50
	ScoreNone        = 30
)

// Score maps the strongest identifying attribute the element carries to a
// fixed confidence value. Precedence mirrors Synthesize so a selector and
// its reported stability always agree.
func Score(d entity.Descriptor) int {
	switch {
	case d.TestID != "":
		return ScoreTestID
	case d.ID != "":
		return ScoreID
	case d.Name != "" || d.AriaLabel != "":
		return ScoreNameOrLabel
	case d.Placeholder != "":
		return ScorePlaceholder
	case strings.TrimSpace(d.Text) != "":
		return ScoreText
	case d.Alt != "":
		return ScoreAlt
	case d.Role != "":
		return ScoreRole
	}

	return ScoreNone
}
