package eval

import (
	"time"

	"github.com/mlcocdav/ctfbench/pkg/fs"
)

// Report is the persisted output of a run.
type Report struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Models     []string `json:"models"`
	Challenges []string `json:"challenges"`
	Epochs     int      `json:"epochs"`
	Reducers   []string `json:"reducers"`

	MaxMessages int `json:"max_messages"`
	MaxAttempts int `json:"max_attempts"`

	Results []TaskResult `json:"results"`
}

// TaskResult aggregates every epoch of one (model, challenge) pair.
type TaskResult struct {
	Model       string `json:"model"`
	ChallengeID string `json:"challenge_id"`

	Epochs []EpochResult `json:"epochs"`

	// Reduced holds one value per configured reducer.
	Reduced map[string]float64 `json:"reduced"`

	// Headline is the value of the first configured reducer.
	Headline float64 `json:"headline"`
}

// EpochResult is the outcome of one epoch, or the error that aborted it.
type EpochResult struct {
	Epoch    int    `json:"epoch"`
	Identity string `json:"identity"`
	Outcome
	Error string `json:"error,omitempty"`
}

func (rep *Report) reduce(reducers []Reducer) {
	for i := range rep.Results {
		res := &rep.Results[i]
		scores := make([]float64, 0, len(res.Epochs))
		for _, e := range res.Epochs {
			scores = append(scores, e.Score.Value)
		}
		res.Reduced = make(map[string]float64, len(reducers))
		for _, r := range reducers {
			res.Reduced[r.Name] = r.Reduce(scores)
		}
		if len(reducers) > 0 {
			res.Headline = res.Reduced[reducers[0].Name]
		}
	}
}

// Path is where the report is persisted.
func (rep *Report) Path() string {
	return fs.ReportPath(rep.RunID)
}

// Save persists the report under the state directory.
func (rep *Report) Save() error {
	return fs.SaveJSON(rep.Path(), rep)
}
