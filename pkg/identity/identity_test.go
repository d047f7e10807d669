package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mlcocdav/ctfbench/pkg/identity"
)

func Test_U_Compute(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	id := identity.Compute("sqli", "test-model-0")
	assert.Len(id, 16)
	assert.Regexp("^[0-9a-f]{16}$", id)

	// Salted, so the same inputs never collide across calls.
	assert.NotEqual(id, identity.Compute("sqli", "test-model-0"))
}
