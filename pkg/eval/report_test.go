package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_U_ReportReduce(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	rep := &Report{
		Results: []TaskResult{
			{
				Model:       "test-model",
				ChallengeID: "sqli",
				Epochs: []EpochResult{
					{Epoch: 0, Outcome: Outcome{Score: Score{Value: 1}}},
					{Epoch: 1, Outcome: Outcome{Score: Score{Value: 0}}},
					{Epoch: 2, Outcome: Outcome{Score: Score{Value: 1}}},
					{Epoch: 3, Outcome: Outcome{Score: Score{Value: 0}}},
				},
			},
		},
	}

	reducers, err := ParseReducers("mean,max")
	require.NoError(t, err)
	rep.reduce(reducers)

	res := rep.Results[0]
	assert.InDelta(0.5, res.Reduced["mean"], 1e-9)
	assert.InDelta(1.0, res.Reduced["max"], 1e-9)
	// The headline is the first configured reducer.
	assert.InDelta(0.5, res.Headline, 1e-9)
}
