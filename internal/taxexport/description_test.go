package taxexport

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveDescription(t *testing.T) {
	t.Run("title wins over everything", func(t *testing.T) {
		desc := ResolveDescription(DescriptionSource{
			Title: "Wedding reception set",
			Venue: "The Blue Note",
			Notes: "long notes here",
			City:  "Austin",
		}, 60)
		assert.Equal(t, "Wedding reception set", desc)
	})

	t.Run("venue is second", func(t *testing.T) {
		desc := ResolveDescription(DescriptionSource{
			Venue: "The Blue Note",
			Notes: "notes",
			City:  "Austin",
		}, 60)
		assert.Equal(t, "The Blue Note", desc)
	})

	t.Run("notes are truncated", func(t *testing.T) {
		long := strings.Repeat("a", 100)
		desc := ResolveDescription(DescriptionSource{Notes: long}, 60)
		assert.Equal(t, strings.Repeat("a", 60)+"…", desc)
	})

	t.Run("city produces a qualified label", func(t *testing.T) {
		desc := ResolveDescription(DescriptionSource{City: "Austin"}, 60)
		assert.Equal(t, "Gig in Austin", desc)
	})

	t.Run("everything empty yields the generic literal", func(t *testing.T) {
		assert.Equal(t, "Income", ResolveDescription(DescriptionSource{}, 60))
		assert.Equal(t, "Income", ResolveDescription(DescriptionSource{Title: "  ", Venue: "\t"}, 60))
	})
}
