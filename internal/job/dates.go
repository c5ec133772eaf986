package job

import (
	"strings"
	"time"
)

// DateLayout is the canonical calendar date format for deadlines.
const DateLayout = "2006-01-02"

var localDateLayouts = []string{
	DateLayout,
	"01/02/2006",
	"02/01/2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// ParseLocalDate tries the fixed set of deadline layouts and returns the
// ISO form of the first match.
func ParseLocalDate(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	for _, layout := range localDateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.Format(DateLayout), true
		}
	}
	return "", false
}

// IsISODate reports whether s is a valid YYYY-MM-DD calendar date.
func IsISODate(s string) bool {
	_, err := time.Parse(DateLayout, strings.TrimSpace(s))
	return err == nil
}
