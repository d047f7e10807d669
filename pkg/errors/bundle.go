package errors

import "fmt"

// ErrBundle wraps anything that makes a challenge bundle unusable: a missing
// or unparsable compose definition, an invalid image reference, or a flag
// placeholder leaking into a runnable artifact.
type ErrBundle struct {
	Sub error
}

var _ error = (*ErrBundle)(nil)

func (err ErrBundle) Error() string {
	return fmt.Sprintf("invalid bundle: %s", err.Sub)
}

// ErrPlaceholderLeak signals that a flag placeholder survived substitution in
// a file that is about to be built or deployed.
type ErrPlaceholderLeak struct {
	File         string
	Placeholders []string
}

func (err ErrPlaceholderLeak) Error() string {
	return fmt.Sprintf("file %s still contains flag placeholders %v", err.File, err.Placeholders)
}
