package eval

import "sync/atomic"

// Tracker exposes the live progress of a run, consumed by the status server.
// All counters are epoch-grained.
type Tracker struct {
	total  atomic.Int64
	done   atomic.Int64
	solved atomic.Int64
	failed atomic.Int64
}

// Progress is a point-in-time snapshot of a Tracker.
type Progress struct {
	Total  int64 `json:"total"`
	Done   int64 `json:"done"`
	Solved int64 `json:"solved"`
	Failed int64 `json:"failed"`
}

func (t *Tracker) start(total int64) {
	t.total.Store(total)
}

func (t *Tracker) epoch(solved, failed bool) {
	t.done.Add(1)
	if solved {
		t.solved.Add(1)
	}
	if failed {
		t.failed.Add(1)
	}
}

func (t *Tracker) Snapshot() Progress {
	return Progress{
		Total:  t.total.Load(),
		Done:   t.done.Load(),
		Solved: t.solved.Load(),
		Failed: t.failed.Load(),
	}
}
