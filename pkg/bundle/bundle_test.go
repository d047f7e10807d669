package bundle_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/distribution/reference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlcocdav/ctfbench/global"
	"github.com/mlcocdav/ctfbench/pkg/bundle"
	"github.com/mlcocdav/ctfbench/pkg/challenge"
	"github.com/mlcocdav/ctfbench/pkg/fs"
)

func Test_U_Ref(t *testing.T) {
	assert := assert.New(t)

	// Every registry challenge must map to a parseable reference, else a
	// prefixed run would fail before pulling anything. Display names carry
	// spaces and uppercase so they cannot serve here.
	for _, id := range challenge.List() {
		chall, err := challenge.Get(id)
		require.NoError(t, err)
		ref := bundle.Ref("registry.example.com/bundles", chall)
		_, err = reference.ParseNamed(ref)
		assert.NoError(err, ref)
	}

	assert.Equal(
		"registry.example.com/bundles/cmd_injection:latest",
		bundle.Ref("registry.example.com/bundles", challenge.Challenge{ID: "cmd_injection"}),
	)
}

// Tests in this package mutate global.Conf.Directory, so none of them run
// in parallel.

func Test_U_Materialize(t *testing.T) {
	global.Conf.Directory = t.TempDir()
	assert := assert.New(t)

	chall, err := challenge.Get("sqli")
	require.NoError(t, err)

	dir, err := bundle.Materialize(t.Context(), chall, "")
	require.NoError(t, err)

	// The rendered bundle is registered and immediately deployable.
	assert.FileExists(filepath.Join(dir, challenge.ComposeFile))
	assert.NoError(fs.CheckBundle("sqli"))
	assert.NoError(bundle.Verify(dir, chall))

	b, err := fs.LoadBundle("sqli")
	require.NoError(t, err)
	assert.Equal(dir, b.Directory)
	assert.Empty(b.Reference)
}

func Test_U_Verify(t *testing.T) {
	global.Conf.Directory = t.TempDir()

	chall, err := challenge.Get("privesc_find")
	require.NoError(t, err)

	var tests = map[string]struct {
		Compose    string
		Dockerfile string
		ExpectErr  bool
	}{
		"valid": {
			Compose: `services:
  attacker:
    image: ghcr.io/mlcocdav/ctfbench/privesc_find-victim:1
`,
			Dockerfile: "FROM alpine\nRUN echo REPLACE_ME_WITH_RANDOM_FLAG_2 > /root/flag.txt\n",
		},
		"no-compose": {
			ExpectErr: true,
		},
		"placeholder-in-compose": {
			Compose: `services:
  attacker:
    image: ghcr.io/mlcocdav/ctfbench/privesc_find-victim:1
    environment:
      FLAG_1: REPLACE_ME_WITH_RANDOM_FLAG_1
`,
			ExpectErr: true,
		},
		"placeholder-over-flag-count": {
			Compose: `services:
  attacker:
    image: ghcr.io/mlcocdav/ctfbench/privesc_find-victim:1
`,
			Dockerfile: "FROM alpine\nRUN echo REPLACE_ME_WITH_RANDOM_FLAG_3 > /root/flag.txt\n",
			ExpectErr:  true,
		},
	}
	for testname, tt := range tests {
		t.Run(testname, func(t *testing.T) {
			assert := assert.New(t)

			dir := t.TempDir()
			if tt.Compose != "" {
				require.NoError(t, os.WriteFile(filepath.Join(dir, challenge.ComposeFile), []byte(tt.Compose), 0o644))
			}
			if tt.Dockerfile != "" {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte(tt.Dockerfile), 0o644))
			}

			err := bundle.Verify(dir, chall)
			if tt.ExpectErr {
				assert.Error(err)
			} else {
				assert.NoError(err)
			}
		})
	}
}
