// Package engine runs one check across many targets.
package engine

import "time"

// Report is the top-level output of a batch run.
type Report[T any] struct {
	Tool         string    `json:"tool"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
	DurationSecs float64   `json:"duration_secs"`
	Items        []Item[T] `json:"items"`
	Summary      Summary   `json:"summary"`
}

// Item is the outcome for one target.
type Item[T any] struct {
	Target string `json:"target"`
	Result T      `json:"result"`
	Error  string `json:"error,omitempty"`

	err error
}

// Err returns the error the check returned, if any.
func (i Item[T]) Err() error {
	return i.err
}

// Summary provides aggregate counts for the run.
type Summary struct {
	Targets   int `json:"targets"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}
