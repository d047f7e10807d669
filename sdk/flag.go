package sdk

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Flag derives the per-deployment flag from a base value: the inner part is
// variated with the identity as seed, while the enclosing `flag{...}` wrapper
// stays untouched so players (and scorers) still recognize the format.
//
// If the base does not follow the wrapper format, the whole value is variated.
func Flag(identity, base string) string {
	inner, ok := unwrap(base)
	if !ok {
		return Variate(identity, base)
	}
	return fmt.Sprintf("flag{%s}", Variate(identity, inner))
}

// RandomFlag produces a fresh `flag{...}` value with n random bytes of
// hex-encoded entropy. It is what gets baked in victim images in place of
// the committed placeholders.
func RandomFlag(n int) string {
	if n <= 0 {
		n = 16
	}
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return fmt.Sprintf("flag{%s}", hex.EncodeToString(b))
}

func unwrap(flag string) (string, bool) {
	const pfx, sfx = "flag{", "}"
	if len(flag) < len(pfx)+len(sfx) {
		return "", false
	}
	if flag[:len(pfx)] != pfx || flag[len(flag)-1:] != sfx {
		return "", false
	}
	return flag[len(pfx) : len(flag)-1], true
}
