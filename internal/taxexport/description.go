package taxexport

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DescriptionSource carries the candidate fields for an income row's
// human-readable description. Fields may be empty; ResolveDescription applies
// the priority order explicitly rather than relying on short-circuit chains.
type DescriptionSource struct {
	Title string
	Venue string
	Notes string
	City  string
}

// ResolveDescription picks the income description with a fixed priority:
// explicit title, then venue, then truncated free-text notes, then a
// city-qualified generic label, then the generic "Income" literal. The first
// non-empty candidate wins.
func ResolveDescription(src DescriptionSource, notesTruncateLen int) string {
	if title := strings.TrimSpace(src.Title); title != "" {
		return title
	}
	if venue := strings.TrimSpace(src.Venue); venue != "" {
		return venue
	}
	if notes := strings.TrimSpace(src.Notes); notes != "" {
		return truncate(notes, notesTruncateLen)
	}
	if city := strings.TrimSpace(src.City); city != "" {
		return fmt.Sprintf("Gig in %s", city)
	}
	return "Income"
}

// truncate shortens s to at most n runes, appending an ellipsis when cut.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "…"
}
