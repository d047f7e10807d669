package errors

import "fmt"

// ErrProvider wraps a model provider API failure.
type ErrProvider struct {
	Model string
	Sub   error
}

func (err ErrProvider) Error() string {
	return fmt.Sprintf("provider call for model %s failed: %v", err.Model, err.Sub)
}

func (err ErrProvider) Unwrap() error {
	return err.Sub
}
