package eval_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlcocdav/ctfbench/pkg/challenge"
	errs "github.com/mlcocdav/ctfbench/pkg/errors"
	"github.com/mlcocdav/ctfbench/pkg/eval"
	"github.com/mlcocdav/ctfbench/pkg/provider"
	"github.com/mlcocdav/ctfbench/pkg/sandbox"
)

// scriptedProvider serves a fixed sequence of assistant turns, whatever the
// conversation looks like. Past the script it keeps replaying the last turn.
func scriptedProvider(t *testing.T, turns []string) *provider.Client {
	t.Helper()

	i := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)

		turn := turns[min(i, len(turns)-1)]
		i++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"choices":[{"message":%s}]}`, turn)
	}))
	t.Cleanup(srv.Close)

	return provider.NewClient(srv.URL, "")
}

func bashTurn(cmd string) string {
	return fmt.Sprintf(`{"role":"assistant","tool_calls":[{"id":"tc","type":"function","function":{"name":"bash","arguments":"{\"cmd\":\"%s\"}"}}]}`, cmd)
}

func submitTurn(flag string) string {
	return fmt.Sprintf(`{"role":"assistant","tool_calls":[{"id":"tc","type":"function","function":{"name":"submit","arguments":"{\"flag\":\"%s\"}"}}]}`, flag)
}

// fakeExecutor records commands and answers with canned output.
type fakeExecutor struct {
	commands []string
	result   sandbox.ExecResult
}

var _ eval.Executor = (*fakeExecutor)(nil)

func (f *fakeExecutor) Exec(_ context.Context, service, command string, _ time.Duration) (sandbox.ExecResult, error) {
	if service != challenge.AttackerService {
		return sandbox.ExecResult{}, fmt.Errorf("unexpected service %q", service)
	}
	f.commands = append(f.commands, command)
	return f.result, nil
}

func Test_U_AgentSubmit(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	chall, err := challenge.Get("privesc_bash")
	require.NoError(t, err)
	exec := &fakeExecutor{result: sandbox.ExecResult{Stdout: "flag{target}"}}

	agent := &eval.Agent{
		Provider: scriptedProvider(t, []string{
			bashTurn("cat /root/flag.txt"),
			submitTurn("flag{target}"),
		}),
		Sandbox: exec,
		Scorer:  eval.Includes{},
		Limits:  eval.Limits{MaxMessages: 10, MaxAttempts: 3},
	}

	out, err := agent.Run(t.Context(), eval.NewTask(chall), "test-model", "flag{target}")
	require.NoError(t, err)
	assert.Equal(1.0, out.Score.Value)
	assert.Equal("submitted", out.Stopped)
	assert.Equal(2, out.Messages)
	assert.Equal(1, out.Attempts)
	assert.Equal([]string{"cat /root/flag.txt"}, exec.commands)
}

func Test_U_AgentMaxAttempts(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	chall, err := challenge.Get("sqli")
	require.NoError(t, err)

	agent := &eval.Agent{
		Provider: scriptedProvider(t, []string{
			submitTurn("flag{wrong}"),
		}),
		Sandbox: &fakeExecutor{},
		Scorer:  eval.Includes{},
		Limits:  eval.Limits{MaxMessages: 10, MaxAttempts: 2},
	}

	out, err := agent.Run(t.Context(), eval.NewTask(chall), "test-model", "flag{target}")
	require.NoError(t, err)
	assert.Equal(0.0, out.Score.Value)
	assert.Equal("max_attempts", out.Stopped)
	assert.Equal(2, out.Attempts)
	assert.Equal(errs.ErrMaxAttempts.Error(), out.Score.Explanation)
}

func Test_U_AgentDeadline(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	chall, err := challenge.Get("sqli")
	require.NoError(t, err)

	agent := &eval.Agent{
		Provider: scriptedProvider(t, []string{submitTurn("flag{target}")}),
		Sandbox:  &fakeExecutor{},
		Scorer:   eval.Includes{},
		Limits:   eval.Limits{MaxMessages: 10, MaxAttempts: 1},
	}

	// An expired deployment deadline aborts the epoch with its cause, not
	// with the bare context error.
	ctx, cancel := context.WithDeadlineCause(t.Context(), time.Now().Add(-time.Second), errs.ErrDeploymentExpired)
	defer cancel()

	_, err = agent.Run(ctx, eval.NewTask(chall), "test-model", "flag{target}")
	assert.ErrorIs(err, errs.ErrDeploymentExpired)
}

func Test_U_AgentMaxMessages(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	chall, err := challenge.Get("sqli")
	require.NoError(t, err)

	// A model that never calls a tool gets nudged until the budget runs out.
	agent := &eval.Agent{
		Provider: scriptedProvider(t, []string{
			`{"role":"assistant","content":"Let me think about this."}`,
		}),
		Sandbox: &fakeExecutor{},
		Scorer:  eval.Includes{},
		Limits:  eval.Limits{MaxMessages: 3, MaxAttempts: 1},
	}

	out, err := agent.Run(t.Context(), eval.NewTask(chall), "test-model", "flag{target}")
	require.NoError(t, err)
	assert.Equal(0.0, out.Score.Value)
	assert.Equal("max_messages", out.Stopped)
	assert.Equal(3, out.Messages)
	assert.Equal(0, out.Attempts)
}

func Test_U_AgentPolicy(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	chall, err := challenge.Get("sqli")
	require.NoError(t, err)
	exec := &fakeExecutor{}

	// Every command misses the allowlist and escalates to a block.
	agent := &eval.Agent{
		Provider: scriptedProvider(t, []string{
			bashTurn("rm -rf /"),
		}),
		Sandbox: exec,
		Policy: eval.Policy{
			Approver: eval.PrefixAllowlist{
				Prefixes: []string{"nmap "},
				OnMiss:   eval.Escalate,
			},
			Fallback: eval.Block,
		},
		Scorer: eval.Includes{},
		Limits: eval.Limits{MaxMessages: 10, MaxAttempts: 1},
	}

	out, err := agent.Run(t.Context(), eval.NewTask(chall), "test-model", "flag{target}")
	require.NoError(t, err)
	assert.Equal("blocked", out.Stopped)
	assert.Empty(exec.commands)
}

func Test_U_AgentInvalidLimits(t *testing.T) {
	t.Parallel()

	chall, err := challenge.Get("sqli")
	require.NoError(t, err)

	agent := &eval.Agent{
		Provider: scriptedProvider(t, []string{submitTurn("flag{target}")}),
		Sandbox:  &fakeExecutor{},
		Scorer:   eval.Includes{},
	}
	_, err = agent.Run(t.Context(), eval.NewTask(chall), "test-model", "flag{target}")
	assert.Error(t, err)
}
