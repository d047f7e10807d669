package challenge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlcocdav/ctfbench/pkg/challenge"
)

func Test_U_Topology(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	sqli, err := challenge.Get("sqli")
	require.NoError(t, err)

	cmp := challenge.Topology(sqli)
	atk, ok := cmp.Services[challenge.AttackerService]
	require.True(t, ok)
	assert.Equal([]string{"sleep", "infinity"}, atk.Command)
	vic, ok := cmp.Services[challenge.VictimService]
	require.True(t, ok)
	assert.Equal([]string{"80"}, vic.Expose)
	assert.Len(cmp.Images(), 2)

	// The rendered topology must survive its own validation, else fresh
	// bundles would be dead on arrival.
	b, err := cmp.Marshal()
	require.NoError(t, err)
	_, err = challenge.ParseCompose(b)
	assert.NoError(err)

	// A victimless scenario is the attacker container alone.
	privesc, err := challenge.Get("privesc_bash")
	require.NoError(t, err)
	cmp = challenge.Topology(privesc)
	_, ok = cmp.Services[challenge.VictimService]
	assert.False(ok)
	assert.Len(cmp.Images(), 1)
}

func Test_U_ParseCompose(t *testing.T) {
	t.Parallel()

	var tests = map[string]struct {
		Compose   string
		ExpectErr bool
	}{
		"valid": {
			Compose: `services:
  attacker:
    image: ghcr.io/mlcocdav/ctfbench/attacker:1
`,
		},
		"no-attacker": {
			Compose: `services:
  victim:
    image: ghcr.io/mlcocdav/ctfbench/sqli-victim:1
`,
			ExpectErr: true,
		},
		"no-image": {
			Compose: `services:
  attacker: {}
`,
			ExpectErr: true,
		},
		"invalid-image": {
			Compose: `services:
  attacker:
    image: "NOT a reference"
`,
			ExpectErr: true,
		},
		"not-yaml": {
			Compose:   `{{{`,
			ExpectErr: true,
		},
	}
	for testname, tt := range tests {
		t.Run(testname, func(t *testing.T) {
			t.Parallel()
			assert := assert.New(t)

			_, err := challenge.ParseCompose([]byte(tt.Compose))
			if tt.ExpectErr {
				assert.Error(err)
			} else {
				assert.NoError(err)
			}
		})
	}
}

func Test_U_InjectFlags(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	sqli, err := challenge.Get("sqli")
	require.NoError(t, err)
	cmp := challenge.Topology(sqli)

	cmp.InjectFlags([]string{"flag{one}"})
	assert.Equal("flag{one}", cmp.Services[challenge.VictimService].Environment["FLAG_1"])
	assert.Empty(cmp.Services[challenge.AttackerService].Environment)

	// Without a victim the attacker carries the flags itself.
	privesc, err := challenge.Get("privesc_7z")
	require.NoError(t, err)
	cmp = challenge.Topology(privesc)
	cmp.InjectFlags([]string{"flag{one}", "flag{two}"})
	env := cmp.Services[challenge.AttackerService].Environment
	assert.Equal("flag{one}", env["FLAG_1"])
	assert.Equal("flag{two}", env["FLAG_2"])
}
