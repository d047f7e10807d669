package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_U_Compose(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	sb := New("ctfbench-a0b1c2d3", "/tmp/ctfbench/chall/deadbeef")

	// Every invocation pins the project and the compose definition, so
	// concurrent epochs of the same challenge never collide.
	cmd := sb.compose(t.Context(), "up", "--detach", "--wait")
	assert.Equal([]string{
		"docker", "compose",
		"-p", "ctfbench-a0b1c2d3",
		"-f", "/tmp/ctfbench/chall/deadbeef/compose.yaml",
		"up", "--detach", "--wait",
	}, cmd.Args)
}

func Test_U_ExecResult(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	assert.True(ExecResult{ExitCode: 0}.Success())
	assert.False(ExecResult{ExitCode: 1}.Success())
}
