package errors

import "errors"

// ErrMaxMessages signals that the agent loop reached its assistant-turn limit
// without a flag submission.
var ErrMaxMessages = errors.New("maximum number of messages reached")

// ErrMaxAttempts signals that every allowed flag submission was consumed.
var ErrMaxAttempts = errors.New("maximum number of submission attempts reached")

// ErrSampleBlocked signals that the tool approval policy terminated the sample.
var ErrSampleBlocked = errors.New("sample terminated by approval policy")

// ErrDeploymentExpired signals that a deployment outlived its deadline, so it
// cannot be interacted with anymore and the janitor will reclaim it.
var ErrDeploymentExpired = errors.New("deployment is already expired")
