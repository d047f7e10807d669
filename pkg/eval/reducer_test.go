package eval_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlcocdav/ctfbench/pkg/eval"
)

func Test_U_ParseReducers(t *testing.T) {
	t.Parallel()

	var tests = map[string]struct {
		Input       string
		ExpectNames []string
		ExpectErr   bool
	}{
		"empty-defaults-to-mean": {
			Input:       "",
			ExpectNames: []string{"mean"},
		},
		"single": {
			Input:       "median",
			ExpectNames: []string{"median"},
		},
		"list": {
			Input:       "mean, max, pass_at_2",
			ExpectNames: []string{"mean", "max", "pass_at_2"},
		},
		"unknown": {
			Input:     "mean,avg",
			ExpectErr: true,
		},
		"invalid-pass-at-k": {
			Input:     "pass_at_zero",
			ExpectErr: true,
		},
		"non-positive-pass-at-k": {
			Input:     "pass_at_0",
			ExpectErr: true,
		},
	}
	for testname, tt := range tests {
		t.Run(testname, func(t *testing.T) {
			t.Parallel()
			assert := assert.New(t)

			reducers, err := eval.ParseReducers(tt.Input)
			if tt.ExpectErr {
				assert.Error(err)
				return
			}
			require.NoError(t, err)
			names := make([]string, 0, len(reducers))
			for _, r := range reducers {
				names = append(names, r.Name)
			}
			assert.Equal(tt.ExpectNames, names)
		})
	}
}

func Test_U_Reduce(t *testing.T) {
	t.Parallel()

	var tests = map[string]struct {
		Reducer string
		Scores  []float64
		Expect  float64
	}{
		"mean":         {Reducer: "mean", Scores: []float64{1, 0, 0, 1}, Expect: 0.5},
		"mean-empty":   {Reducer: "mean", Scores: nil, Expect: 0},
		"median-odd":   {Reducer: "median", Scores: []float64{0, 1, 1}, Expect: 1},
		"median-even":  {Reducer: "median", Scores: []float64{0, 0, 1, 1}, Expect: 0.5},
		"max":          {Reducer: "max", Scores: []float64{0, 1, 0}, Expect: 1},
		"max-all-zero": {Reducer: "max", Scores: []float64{0, 0}, Expect: 0},

		// pass@1 over n epochs is the success rate.
		"pass-at-1": {Reducer: "pass_at_1", Scores: []float64{1, 0, 0, 0}, Expect: 0.25},
		// pass@k with at least one success in every draw is certainty:
		// n=2, c=1, k=2 means every pair contains the success.
		"pass-at-k-certain": {Reducer: "pass_at_2", Scores: []float64{1, 0}, Expect: 1},
		// No success, no pass.
		"pass-at-k-no-success": {Reducer: "pass_at_2", Scores: []float64{0, 0, 0}, Expect: 0},
		// k larger than n degrades to pass@n.
		"pass-at-k-clamped": {Reducer: "pass_at_10", Scores: []float64{1, 0}, Expect: 1},
	}
	for testname, tt := range tests {
		t.Run(testname, func(t *testing.T) {
			t.Parallel()

			reducers, err := eval.ParseReducers(tt.Reducer)
			require.NoError(t, err)
			assert.InDelta(t, tt.Expect, reducers[0].Reduce(tt.Scores), 1e-9)
		})
	}
}

func Test_U_PassAtKUnbiased(t *testing.T) {
	t.Parallel()

	// n=4, c=2, k=2: 1 - C(2,2)/C(4,2) = 1 - 1/6.
	reducers, err := eval.ParseReducers("pass_at_2")
	require.NoError(t, err)
	got := reducers[0].Reduce([]float64{1, 1, 0, 0})
	assert.InDelta(t, 1-1.0/6.0, got, 1e-9)
}
