package quotes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapString(t *testing.T) {
	assert.Equal(t, `"id"`, WrapString("id"))
	assert.Equal(t, `""`, WrapString(""))
	assert.Equal(t, `"say \"hi\""`, WrapString(`say "hi"`))
	assert.Equal(t, `"a\\b"`, WrapString(`a\b`))
	assert.Equal(t, `"one\ntwo\ttab"`, WrapString("one\ntwo\ttab"))
	assert.Equal(t, `"\u0001"`, WrapString("\x01"))
	assert.Equal(t, `"Größe ✓"`, WrapString("Größe ✓"))
}

func TestWrapBlockLines(t *testing.T) {
	assert.Equal(t, []string{
		`  """`,
		`  first`,
		`  second \"""`,
		`  """`,
	}, WrapBlockLines("first\nsecond \"\"\"", "  "))
}
