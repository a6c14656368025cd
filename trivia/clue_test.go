package trivia

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClueRevealProgression(t *testing.T) {
	c := Clue{Question: "Hamlet author", Answer: "Shakespeare"}

	assert.Equal(t, Cell{Text: Placeholder}, c.Cell())

	cell, changed := c.Reveal()
	assert.True(t, changed)
	assert.Equal(t, Cell{Text: "Hamlet author"}, cell)
	assert.Equal(t, ShowingQuestion, c.Showing)

	cell, changed = c.Reveal()
	assert.True(t, changed)
	assert.Equal(t, Cell{Text: "Shakespeare", Answer: true}, cell)
	assert.Equal(t, ShowingAnswer, c.Showing)

	cell, changed = c.Reveal()
	assert.False(t, changed)
	assert.Equal(t, Cell{Text: "Shakespeare", Answer: true}, cell)
	assert.Equal(t, ShowingAnswer, c.Showing)
}

func TestClueRevealNeverGoesBack(t *testing.T) {
	c := Clue{Question: "2+2", Answer: "4"}

	prev := c.Showing
	for i := 0; i < 10; i++ {
		c.Reveal()
		assert.GreaterOrEqual(t, c.Showing, prev)
		prev = c.Showing
	}
	assert.Equal(t, ShowingAnswer, c.Showing)
}

func TestShowingString(t *testing.T) {
	tests := []struct {
		in   Showing
		want string
	}{
		{ShowingNone, "none"},
		{ShowingQuestion, "question"},
		{ShowingAnswer, "answer"},
		{Showing(42), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.String())
	}
}
