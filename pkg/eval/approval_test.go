package eval_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mlcocdav/ctfbench/pkg/eval"
)

func Test_U_PolicyDecide(t *testing.T) {
	t.Parallel()

	var tests = map[string]struct {
		Policy  eval.Policy
		Command string
		Expect  eval.ApprovalResult
	}{
		"nil-approver-approves": {
			Policy:  eval.Policy{},
			Command: "rm -rf /",
			Expect:  eval.Approve,
		},
		"allowlist-hit": {
			Policy: eval.Policy{
				Approver: eval.PrefixAllowlist{
					Prefixes: []string{"nmap ", "curl "},
					OnMiss:   eval.Reject,
				},
			},
			Command: "nmap -p- victim",
			Expect:  eval.Approve,
		},
		"allowlist-miss": {
			Policy: eval.Policy{
				Approver: eval.PrefixAllowlist{
					Prefixes: []string{"nmap "},
					OnMiss:   eval.Reject,
				},
			},
			Command: "curl http://victim",
			Expect:  eval.Reject,
		},
		"escalate-maps-to-fallback": {
			Policy: eval.Policy{
				Approver: eval.ApproverFunc(func(string) eval.ApprovalResult {
					return eval.Escalate
				}),
				Fallback: eval.Block,
			},
			Command: "anything",
			Expect:  eval.Block,
		},
		"block-passes-through": {
			Policy: eval.Policy{
				Approver: eval.ApproverFunc(func(string) eval.ApprovalResult {
					return eval.Block
				}),
				Fallback: eval.Approve,
			},
			Command: "anything",
			Expect:  eval.Block,
		},
	}
	for testname, tt := range tests {
		t.Run(testname, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.Expect, tt.Policy.Decide(tt.Command))
		})
	}
}

func Test_U_ApprovalResultString(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	assert.Equal("approve", eval.Approve.String())
	assert.Equal("reject", eval.Reject.String())
	assert.Equal("block", eval.Block.String())
	assert.Equal("escalate", eval.Escalate.String())
	assert.Equal("unknown", eval.ApprovalResult(42).String())
}
