package types

import "time"

// PracticeState is the authoritative progress held by the recognition service.
type PracticeState struct {
	CurrentLetterIndex int      `json:"currentLetterIndex"`
	LetterSequence     []string `json:"letterSequence"`
}

// GuessResult is the service's answer to a submitted still.
type GuessResult struct {
	CurrentLetterIndex int `json:"currentLetterIndex"`
}

// Snapshot is the last known progress of a practice session, kept so a
// restart or an unreachable service degrades to it instead of the default.
type Snapshot struct {
	CurrentLetterIndex    int       `json:"currentLetterIndex"`
	LetterSequence        []string  `json:"letterSequence"`
	ConsecutiveErrorCount int       `json:"consecutiveErrorCount"`
	SavedAt               time.Time `json:"savedAt"`
}
