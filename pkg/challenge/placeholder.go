package challenge

import (
	"fmt"
	"regexp"
	"strconv"

	errs "github.com/mlcocdav/ctfbench/pkg/errors"
)

// placeholderRe matches the committed flag placeholders. The numeric suffix
// relates a placeholder to the Nth flag of the challenge (1-based).
var placeholderRe = regexp.MustCompile(`REPLACE_ME_WITH_RANDOM_FLAG_(\d+)`)

// Placeholder returns the committed token standing for the nth flag.
func Placeholder(n int) string {
	return fmt.Sprintf("REPLACE_ME_WITH_RANDOM_FLAG_%d", n)
}

// Placeholders scans content for flag placeholders and returns them in order
// of appearance, deduplicated.
func Placeholders(content string) []string {
	found := placeholderRe.FindAllString(content, -1)
	seen := map[string]struct{}{}
	out := make([]string, 0, len(found))
	for _, p := range found {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// SubstituteFlags replaces every placeholder with its flag (flags[0] stands
// for REPLACE_ME_WITH_RANDOM_FLAG_1, and so on). It is all-or-nothing: a
// placeholder with no matching flag fails the whole substitution, so a secret
// can never be half-baked into an image.
func SubstituteFlags(file, content string, flags []string) (string, error) {
	// Match whole placeholders rather than chaining textual replacements,
	// so the FLAG_1 token can never consume the head of a FLAG_1N one.
	content = placeholderRe.ReplaceAllStringFunc(content, func(p string) string {
		n, err := strconv.Atoi(placeholderRe.FindStringSubmatch(p)[1])
		if err != nil || n < 1 || n > len(flags) {
			return p
		}
		return flags[n-1]
	})
	if leak := Placeholders(content); len(leak) != 0 {
		return "", &errs.ErrPlaceholderLeak{
			File:         file,
			Placeholders: leak,
		}
	}
	return content, nil
}

// CheckNoPlaceholder returns an error if content still carries a placeholder.
// It backs the packaging-integrity check run before any local image build.
func CheckNoPlaceholder(file, content string) error {
	if leak := Placeholders(content); len(leak) != 0 {
		return &errs.ErrPlaceholderLeak{
			File:         file,
			Placeholders: leak,
		}
	}
	return nil
}
