package practice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayState(t *testing.T) {
	tests := []struct {
		id, current int
		want        LetterState
	}{
		{0, 0, LetterCurrent},
		{0, 1, LetterSolved},
		{1, 0, LetterPending},
		{4, 4, LetterCurrent},
		{3, 5, LetterSolved},
		{2, 0, LetterPending},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DisplayState(tt.id, tt.current), "DisplayState(%d, %d)", tt.id, tt.current)
	}
}

func TestDisplayStateIsExhaustiveAndStable(t *testing.T) {
	for current := 0; current < 8; current++ {
		for id := 0; id < 8; id++ {
			first := DisplayState(id, current)
			assert.Contains(t, []LetterState{LetterCurrent, LetterSolved, LetterPending}, first)
			assert.Equal(t, first, DisplayState(id, current))
		}
	}
}

func TestLetters(t *testing.T) {
	got := Letters([]string{"E", "N", "G"}, 1)
	want := []LetterView{
		{Symbol: "E", State: LetterSolved},
		{Symbol: "N", State: LetterCurrent},
		{Symbol: "G", State: LetterPending},
	}
	assert.Equal(t, want, got)
	assert.Empty(t, Letters(nil, 0))
}

func TestViewCurrentSymbol(t *testing.T) {
	v := View{Letters: Letters([]string{"A", "B"}, 1), CurrentLetterIndex: 1}
	assert.Equal(t, "B", v.CurrentSymbol())
	v.CurrentLetterIndex = 2
	assert.Equal(t, "", v.CurrentSymbol())
}
