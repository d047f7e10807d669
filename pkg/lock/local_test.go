package lock_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlcocdav/ctfbench/pkg/lock"
)

func Test_U_LocalLock(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	ctx := t.Context()

	l1, err := lock.NewLocalRWLock("chall/deadbeef")
	require.NoError(t, err)
	l2, err := lock.NewLocalRWLock("chall/deadbeef")
	require.NoError(t, err)
	assert.Equal(l1.Key(), l2.Key())

	// Two handles on the same key share the mutex: a counter guarded by
	// one is guarded by the other.
	count := 0
	wg := &sync.WaitGroup{}
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(l lock.RWLock) {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				require.NoError(t, l.RWLock(ctx))
				count++
				require.NoError(t, l.RWUnlock(ctx))
			}
		}([]lock.RWLock{l1, l2}[i])
	}
	wg.Wait()
	assert.Equal(2000, count)

	assert.NoError(l1.Close())
}

func Test_U_LocalLockCanceled(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	l, err := lock.NewLocalRWLock("canceled")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	// A canceled context must not acquire anything.
	assert.Error(l.RLock(ctx))
	assert.Error(l.RWLock(ctx))
}
