package content

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateKeepsShortInput(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 10))
	assert.Equal(t, "hello", truncate("hello", 5))
}

func TestTruncateStopsOnRuneBoundary(t *testing.T) {
	// "héllo wörld" repeated past any limit; cut points land inside the
	// two-byte runes unless truncate backs up.
	text := strings.Repeat("héllo wörld ", 100)

	for limit := 1; limit < 40; limit++ {
		got := truncate(text, limit)
		assert.True(t, utf8.ValidString(got), "limit %d produced invalid UTF-8: %q", limit, got)
		assert.LessOrEqual(t, len(got), limit)
	}
}
