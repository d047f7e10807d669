package eval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlcocdav/ctfbench/global"
	"github.com/mlcocdav/ctfbench/pkg/fs"
)

type fakeTeardowner struct {
	err   error
	calls int
}

func (f *fakeTeardowner) Down(_ context.Context) error {
	f.calls++
	return f.err
}

// This test mutates global.Conf.Directory, so it does not run in parallel.
func Test_U_Reclaim(t *testing.T) {
	global.Conf.Directory = t.TempDir()

	save := func(t *testing.T) *fs.Deployment {
		dep := &fs.Deployment{
			Identity:    "deadbeef",
			ChallengeID: "sqli",
			Project:     "ctfbench-deadbeef",
		}
		require.NoError(t, dep.Save())
		return dep
	}

	t.Run("teardown-ok", func(t *testing.T) {
		assert := assert.New(t)
		dep := save(t)

		sb := &fakeTeardowner{}
		assert.NoError(reclaim(t.Context(), sb, dep))
		assert.Equal(1, sb.calls)
		assert.Error(fs.CheckDeployment(dep.Identity))
	})

	t.Run("teardown-fails", func(t *testing.T) {
		assert := assert.New(t)
		dep := save(t)

		// A partially started project must stay on record for the janitor,
		// even when `compose up` already failed.
		sb := &fakeTeardowner{err: errors.New("compose down exited 1")}
		assert.Error(reclaim(t.Context(), sb, dep))
		assert.NoError(fs.CheckDeployment(dep.Identity))
	})
}
