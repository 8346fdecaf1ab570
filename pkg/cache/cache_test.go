package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyByteExact(t *testing.T) {
	t.Parallel()

	a := Key([]byte("payload"))
	b := Key([]byte("payload"))
	c := Key([]byte("payload "))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c, "near-identical payloads must not share keys")
}

func TestKeyedDoCachesFirstCall(t *testing.T) {
	t.Parallel()

	keyed := NewKeyed(NewMemory())
	var calls int32

	fn := func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return []byte("vector"), nil
	}

	res, err := keyed.Do(context.Background(), []byte("req"), fn)
	require.NoError(t, err)
	assert.False(t, res.Hit)
	assert.Equal(t, []byte("vector"), res.Value)

	res, err = keyed.Do(context.Background(), []byte("req"), fn)
	require.NoError(t, err)
	assert.True(t, res.Hit, "second identical payload must hit")
	assert.Equal(t, []byte("vector"), res.Value)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "external call must happen exactly once")
}

func TestKeyedDoSingleFlight(t *testing.T) {
	t.Parallel()

	keyed := NewKeyed(NewMemory())
	var calls int32
	release := make(chan struct{})

	fn := func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []byte("v"), nil
	}

	const n = 8
	var wg sync.WaitGroup
	results := make([]Result, n)
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = keyed.Do(context.Background(), []byte("same"), fn)
		}(i)
	}

	// Give the goroutines a chance to pile onto the flight, then release.
	close(release)
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, []byte("v"), results[i].Value)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(2),
		"concurrent identical payloads must not each pay external cost")
}

func TestKeyedDoErrorNotCached(t *testing.T) {
	t.Parallel()

	keyed := NewKeyed(NewMemory())
	boom := errors.New("upstream down")
	var calls int32

	_, err := keyed.Do(context.Background(), []byte("req"), func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, keyed.Store().Len(), "failed call must not leave a partial entry")

	// A later call retries the function rather than serving the failure.
	res, err := keyed.Do(context.Background(), []byte("req"), func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return []byte("ok"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), res.Value)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestBadgerStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store, err := NewBadger(BadgerOptions{InMemory: true})
	require.NoError(t, err)
	defer store.Close()

	_, ok, err := store.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set("k", []byte("v")))

	v, ok, err := store.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)
	assert.Equal(t, 1, store.Len())
}
