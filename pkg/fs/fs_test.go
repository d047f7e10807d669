package fs_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlcocdav/ctfbench/global"
	"github.com/mlcocdav/ctfbench/pkg/fs"
)

// Tests in this package mutate global.Conf.Directory, so none of them run
// in parallel.

func Test_U_Hash(t *testing.T) {
	assert := assert.New(t)

	// Stable, and filesystem-safe whatever the input.
	assert.Equal(fs.Hash("sqli"), fs.Hash("sqli"))
	assert.NotEqual(fs.Hash("sqli"), fs.Hash("idor"))
	assert.NotContains(fs.Hash("../../../etc/passwd"), "/")
	assert.NotContains(fs.Hash("../../../etc/passwd"), ".")
}

func Test_U_Dirs(t *testing.T) {
	global.Conf.Directory = t.TempDir()
	assert := assert.New(t)

	dirs := dirSet(fs.Dirs())

	// The eagerly created directories are the ones the state files land in,
	// so a run never writes outside of them.
	assert.Contains(dirs, filepath.Dir(fs.BundleDirectory("sqli")))
	assert.Contains(dirs, filepath.Dir(fs.DeploymentDirectory("deadbeef")))
	assert.Contains(dirs, filepath.Dir(fs.ReportPath("run-id")))
	assert.Len(dirs, 3)
}

func dirSet(dirs []string) map[string]struct{} {
	out := make(map[string]struct{}, len(dirs))
	for _, d := range dirs {
		out[d] = struct{}{}
	}
	return out
}

func Test_U_Bundle(t *testing.T) {
	global.Conf.Directory = t.TempDir()
	assert := assert.New(t)

	// Nothing registered yet.
	assert.Error(fs.CheckBundle("sqli"))
	_, err := fs.LoadBundle("sqli")
	assert.Error(err)

	b := &fs.Bundle{
		ChallengeID: "sqli",
		Reference:   "registry.lan/sqli:latest",
		Directory:   fs.BundleDirectory("sqli"),
		Hash:        "abcd",
	}
	require.NoError(t, b.Save())

	assert.NoError(fs.CheckBundle("sqli"))
	got, err := fs.LoadBundle("sqli")
	require.NoError(t, err)
	assert.Equal(b, got)

	ids, err := fs.ListBundles()
	require.NoError(t, err)
	assert.Equal([]string{"sqli"}, ids)

	require.NoError(t, b.Delete())
	assert.Error(fs.CheckBundle("sqli"))
}

func Test_U_Deployment(t *testing.T) {
	global.Conf.Directory = t.TempDir()
	assert := assert.New(t)

	assert.Error(fs.CheckDeployment("a0b1c2d3"))

	until := time.Now().Add(time.Hour).UTC()
	d := &fs.Deployment{
		Identity:    "a0b1c2d3",
		ChallengeID: "sqli",
		Model:       "test-model",
		Epoch:       2,
		Project:     "ctfbench-a0b1c2d3",
		Dir:         fs.DeploymentDirectory("a0b1c2d3"),
		Until:       &until,
	}
	require.NoError(t, d.Save())

	got, err := fs.LoadDeployment("a0b1c2d3")
	require.NoError(t, err)
	assert.Equal(d.Identity, got.Identity)
	assert.True(until.Equal(*got.Until))

	assert.False(got.Expired(until.Add(-time.Minute)))
	assert.True(got.Expired(until.Add(time.Minute)))

	identities, err := fs.ListDeployments()
	require.NoError(t, err)
	assert.Equal([]string{"a0b1c2d3"}, identities)

	require.NoError(t, d.Delete())
	assert.Error(fs.CheckDeployment("a0b1c2d3"))
}

func Test_U_ListDeploymentsEmpty(t *testing.T) {
	global.Conf.Directory = t.TempDir()
	assert := assert.New(t)

	// No deployments directory at all is not an error, it is an empty run.
	identities, err := fs.ListDeployments()
	assert.NoError(err)
	assert.Empty(identities)
}
