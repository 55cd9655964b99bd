package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, ExtractJSON(`{"a":1}`))
	assert.Equal(t, `{"a":1}`, ExtractJSON("Here you go:\n```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":{"b":2}}`, ExtractJSON(`prefix {"a":{"b":2}} suffix`))
	assert.Equal(t, "no json here", ExtractJSON("no json here"))
	assert.Equal(t, `{"broken": `, ExtractJSON(`{"broken": `))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "", Truncate("abc", 0))

	// Rune-bounded, not byte-bounded.
	korean := strings.Repeat("가", 70)
	assert.Equal(t, 60, len([]rune(Truncate(korean, 60))))
}

func TestToJSON(t *testing.T) {
	assert.Equal(t, `["a","b"]`, ToJSON([]string{"a", "b"}))
	assert.Equal(t, `null`, ToJSON(nil))
}
