package sdk_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mlcocdav/ctfbench/sdk"
)

func Test_U_Flag(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	const identity = "a0b1c2d3"
	const base = "flag{This is my super example flag}"

	// The wrapper must survive the variation, only the inner part moves.
	variated := sdk.Flag(identity, base)
	assert.NotEqual(base, variated)
	assert.True(strings.HasPrefix(variated, "flag{"))
	assert.True(strings.HasSuffix(variated, "}"))

	// Same identity, same flag: a retried deployment must not invalidate
	// submissions already graded.
	assert.Equal(variated, sdk.Flag(identity, base))

	// Two identities must not share a flag, else one sandbox leaks the
	// answer of another.
	assert.NotEqual(variated, sdk.Flag("d3c2b1a0", base))

	// A base without the wrapper is variated as-is.
	raw := sdk.Flag(identity, "no wrapper here")
	assert.False(strings.HasPrefix(raw, "flag{"))
}

func Test_U_RandomFlag(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	f1 := sdk.RandomFlag(16)
	f2 := sdk.RandomFlag(16)
	assert.True(strings.HasPrefix(f1, "flag{"))
	assert.True(strings.HasSuffix(f1, "}"))
	assert.Len(f1, len("flag{}")+32) // 16 bytes hex-encoded
	assert.NotEqual(f1, f2)

	// Invalid sizes fall back to a sane default rather than panic.
	assert.Len(sdk.RandomFlag(0), len("flag{}")+32)
	assert.Len(sdk.RandomFlag(-4), len("flag{}")+32)
}
