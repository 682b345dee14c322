package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Test looking up values succeeds, then fails
func TestLookup(t *testing.T) {
	for key, val := range keywords {

		// Obviously this will pass.
		if LookupWord(key) != val {
			t.Errorf("Lookup of %s failed", key)
		}

		// Once the keywords are uppercase they'll no longer
		// match - so we find them as words.
		if LookupWord(strings.ToUpper(key)) != WORD {
			t.Errorf("Lookup of %s failed", key)
		}
	}
}

func TestLookupSpecialWords(t *testing.T) {
	assert.Equal(t, BOOL, LookupWord("true"))
	assert.Equal(t, BOOL, LookupWord("false"))
	assert.Equal(t, IGNORE, LookupWord("_"))
	assert.Equal(t, WORD, LookupWord("__"))
	assert.Equal(t, WORD, LookupWord("+"))
	assert.True(t, IsKeyword(PROC))
	assert.False(t, IsKeyword(WORD))
}

func TestPosition(t *testing.T) {
	tok := Token{
		Type:    WORD,
		Literal: "foo",
		StartPosition: Position{
			Line:   2,
			Column: 0,
		},
	}
	// Switches to 1-indexed
	assert.Equal(t, 3, tok.StartPosition.LineNumber())
	assert.Equal(t, 1, tok.StartPosition.ColumnNumber())
}

func TestRange(t *testing.T) {
	tok := Token{
		Type:          WORD,
		Literal:       "dup",
		StartPosition: Position{Char: 4, File: "a.quad"},
		EndPosition:   Position{Char: 7, File: "a.quad"},
	}
	r := tok.Range()
	assert.Equal(t, Range{File: "a.quad", Start: 4, End: 7}, r)
	assert.Equal(t, 3, r.Len())

	u := r.Union(Range{File: "a.quad", Start: 10, End: 12})
	assert.Equal(t, Range{File: "a.quad", Start: 4, End: 12}, u)
	assert.Equal(t, u, Range{File: "a.quad", Start: 10, End: 12}.Union(r))
}

func TestPositionString(t *testing.T) {
	assert.Equal(t, "a.quad:2:5", Position{File: "a.quad", Line: 1, Column: 4}.String())
	assert.Equal(t, "1:1", NoPos.String())
}
