package eval

import "strings"

// ApprovalResult is the decision of an approver over a tool call.
type ApprovalResult int

const (
	// Approve lets the tool call run.
	Approve ApprovalResult = iota
	// Reject refuses the call but lets the sample continue: the model is
	// told why and may try something else.
	Reject
	// Block terminates the whole sample.
	Block
	// Escalate defers the decision to the policy fallback.
	Escalate
)

func (r ApprovalResult) String() string {
	switch r {
	case Approve:
		return "approve"
	case Reject:
		return "reject"
	case Block:
		return "block"
	case Escalate:
		return "escalate"
	}
	return "unknown"
}

// Approver decides whether a bash command may run in the sandbox.
type Approver interface {
	Approve(command string) ApprovalResult
}

// ApproverFunc adapts a function to the Approver interface.
type ApproverFunc func(command string) ApprovalResult

func (f ApproverFunc) Approve(command string) ApprovalResult {
	return f(command)
}

// PrefixAllowlist approves commands starting with one of the allowed
// prefixes, and returns OnMiss for anything else.
type PrefixAllowlist struct {
	Prefixes []string
	OnMiss   ApprovalResult
}

var _ Approver = (*PrefixAllowlist)(nil)

func (a PrefixAllowlist) Approve(command string) ApprovalResult {
	for _, pfx := range a.Prefixes {
		if strings.HasPrefix(command, pfx) {
			return Approve
		}
	}
	return a.OnMiss
}

// Policy resolves an approver decision into a final one: Escalate is mapped
// to the fallback, everything else passes through.
// A nil approver approves everything, which is the default of the benchmark
// (the sandbox is the isolation boundary, not the policy).
type Policy struct {
	Approver Approver
	Fallback ApprovalResult
}

func (p Policy) Decide(command string) ApprovalResult {
	if p.Approver == nil {
		return Approve
	}
	res := p.Approver.Approve(command)
	if res == Escalate {
		return p.Fallback
	}
	return res
}
