package errors

import "fmt"

// ErrSandbox wraps a failure of the underlying `docker compose` invocation.
type ErrSandbox struct {
	Op  string
	Sub error
}

func (err ErrSandbox) Error() string {
	if err.Sub == nil {
		return fmt.Sprintf("sandbox %s failed", err.Op)
	}
	return fmt.Sprintf("sandbox %s failed: %v", err.Op, err.Sub)
}

func (err ErrSandbox) Unwrap() error {
	return err.Sub
}
