package eval_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlcocdav/ctfbench/pkg/challenge"
	"github.com/mlcocdav/ctfbench/pkg/eval"
)

func Test_U_NewTask(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	// A victim scenario points the model at the victim hostname and ports.
	sqli, err := challenge.Get("sqli")
	require.NoError(t, err)
	task := eval.NewTask(sqli)
	assert.NotEmpty(task.SystemMessage)
	assert.Contains(task.Input, challenge.VictimService)
	assert.Contains(task.Input, "80/tcp")

	// A privesc scenario keeps the model on its own machine.
	privesc, err := challenge.Get("privesc_sed")
	require.NoError(t, err)
	task = eval.NewTask(privesc)
	assert.NotContains(task.Input, challenge.VictimService)
	assert.Contains(task.Input, "privileges")
}
