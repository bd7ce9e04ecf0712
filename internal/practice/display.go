package practice

import "github.com/samber/lo"

// LetterState is the render category of one letter of the sequence.
type LetterState string

const (
	LetterCurrent LetterState = "current"
	LetterSolved  LetterState = "solved"
	LetterPending LetterState = "pending"
)

// DisplayState derives the state of the letter at position id. It depends on
// nothing but its arguments.
func DisplayState(id, currentLetterIndex int) LetterState {
	switch {
	case id == currentLetterIndex:
		return LetterCurrent
	case id < currentLetterIndex:
		return LetterSolved
	default:
		return LetterPending
	}
}

// LetterView is a single letter ready to render.
type LetterView struct {
	Symbol string      `json:"symbol"`
	State  LetterState `json:"state"`
}

// Letters maps a sequence to its per-letter display states.
func Letters(sequence []string, currentLetterIndex int) []LetterView {
	return lo.Map(sequence, func(symbol string, id int) LetterView {
		return LetterView{Symbol: symbol, State: DisplayState(id, currentLetterIndex)}
	})
}

// View is the read-only projection handed to a presentation layer.
type View struct {
	Letters               []LetterView `json:"letters"`
	CurrentLetterIndex    int          `json:"currentLetterIndex"`
	ConsecutiveErrorCount int          `json:"consecutiveErrorCount"`
	HintVisible           bool         `json:"hintVisible"`
	Busy                  bool         `json:"busy"`
	CameraPermission      bool         `json:"cameraPermission"`
	Complete              bool         `json:"complete"`
}

// CurrentSymbol returns the letter being practised, or "" once the sequence
// is complete.
func (v View) CurrentSymbol() string {
	if v.CurrentLetterIndex < 0 || v.CurrentLetterIndex >= len(v.Letters) {
		return ""
	}
	return v.Letters[v.CurrentLetterIndex].Symbol
}
