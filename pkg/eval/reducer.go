package eval

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	errs "github.com/mlcocdav/ctfbench/pkg/errors"
)

// Reducer folds the per-epoch scores of a sample into a single value.
type Reducer struct {
	// Name is the canonical reducer name, e.g. "mean" or "pass_at_2".
	Name string

	fn func(scores []float64) float64
}

// Reduce applies the reducer. Empty input reduces to zero.
func (r Reducer) Reduce(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	return r.fn(scores)
}

// ParseReducers parses a comma-separated reducer list: mean, median, max,
// and pass_at_<k>. The first one is the headline reducer of the report.
func ParseReducers(s string) ([]Reducer, error) {
	if s == "" {
		s = "mean"
	}
	names := strings.Split(s, ",")
	reducers := make([]Reducer, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		r, err := parseReducer(name)
		if err != nil {
			return nil, err
		}
		reducers = append(reducers, r)
	}
	return reducers, nil
}

func parseReducer(name string) (Reducer, error) {
	switch name {
	case "mean":
		return Reducer{Name: name, fn: mean}, nil
	case "median":
		return Reducer{Name: name, fn: median}, nil
	case "max":
		return Reducer{Name: name, fn: maxScore}, nil
	}
	if k, ok := strings.CutPrefix(name, "pass_at_"); ok {
		kv, err := strconv.Atoi(k)
		if err != nil || kv <= 0 {
			return Reducer{}, &errs.ErrValidationFailed{
				Reason: "invalid pass_at_k reducer " + name,
			}
		}
		return Reducer{
			Name: name,
			fn: func(scores []float64) float64 {
				return passAtK(scores, kv)
			},
		}, nil
	}
	return Reducer{}, &errs.ErrValidationFailed{
		Reason: fmt.Sprintf("unknown reducer %q", name),
	}
}

func mean(scores []float64) float64 {
	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

func median(scores []float64) float64 {
	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func maxScore(scores []float64) float64 {
	best := scores[0]
	for _, s := range scores[1:] {
		if s > best {
			best = s
		}
	}
	return best
}

// passAtK is the unbiased pass@k estimator over n epochs with c successes:
// 1 - C(n-c, k) / C(n, k).
// A score counts as a success when it is exactly 1.
// When k exceeds n, the estimator degrades to pass@n.
func passAtK(scores []float64, k int) float64 {
	n := len(scores)
	c := 0
	for _, s := range scores {
		if s >= 1 {
			c++
		}
	}
	if k > n {
		k = n
	}
	if n-c < k {
		return 1
	}

	// Compute 1 - prod_{i=n-c+1}^{n} (1 - k/i), the numerically stable form.
	p := 1.0
	for i := n - c + 1; i <= n; i++ {
		p *= 1 - float64(k)/float64(i)
	}
	return 1 - p
}
