package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheGetSet(t *testing.T) {
	c := New[string](time.Hour, 10)
	defer c.Stop()

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Set("a", "herkomst")
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "herkomst", v)

	stats := c.GetStats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(1), stats.HitCount)
	assert.Equal(t, int64(1), stats.MissCount)
	assert.Equal(t, 0.5, stats.HitRatio)
	assert.Equal(t, float64(3600), stats.TTLSeconds)
}

func TestCacheZeroSizeStoresNothing(t *testing.T) {
	c := New[int](time.Hour, 0)
	defer c.Stop()

	c.Set("a", 1)
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestCacheEvictsOldest(t *testing.T) {
	c := New[int](time.Hour, 2)
	defer c.Stop()

	var evicted []string
	c.OnEvict(func(k string) { evicted = append(evicted, k) })

	c.Set("first", 1)
	time.Sleep(2 * time.Millisecond)
	c.Set("second", 2)
	time.Sleep(2 * time.Millisecond)
	c.Set("third", 3)

	_, ok := c.Get("first")
	assert.False(t, ok)
	assert.Equal(t, []string{"first"}, evicted)
	assert.Equal(t, 2, c.Len())

	// overwriting an existing key does not evict
	c.Set("third", 33)
	assert.Equal(t, 2, c.Len())
}

func TestCacheExpiry(t *testing.T) {
	c := New[int](20*time.Millisecond, 10)
	defer c.Stop()

	c.Set("a", 1)
	time.Sleep(40 * time.Millisecond)

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.sweep(time.Now())
	assert.Equal(t, 0, c.Len())
}

func TestCacheNoTTL(t *testing.T) {
	c := New[int](0, 10)
	defer c.Stop()

	c.Set("a", 1)
	c.sweep(time.Now().Add(24 * time.Hour))
	_, ok := c.Get("a")
	assert.True(t, ok)
}

func TestCacheInvalidate(t *testing.T) {
	c := New[int](time.Hour, 10)
	defer c.Stop()

	c.Set("a", 1)
	c.Set("b", 2)
	assert.True(t, c.Invalidate("a"))
	assert.False(t, c.Invalidate("a"))

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestGetOrLoadRunsOnce(t *testing.T) {
	c := New[int](time.Hour, 10)
	defer c.Stop()

	var calls int32
	release := make(chan struct{})
	load := func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _, err := c.GetOrLoad(context.Background(), "k", load)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.Equal(t, 42, r)
	}

	v, hit, err := c.GetOrLoad(context.Background(), "k", load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 42, v)
}

func TestGetOrLoadSurvivesFirstCallerCancel(t *testing.T) {
	c := New[int](time.Hour, 10)
	defer c.Stop()

	started := make(chan struct{})
	release := make(chan struct{})
	load := func(ctx context.Context) (int, error) {
		close(started)
		select {
		case <-release:
			return 42, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, _, err := c.GetOrLoad(ctx, "k", load)
		first <- err
	}()
	<-started

	second := make(chan int, 1)
	go func() {
		v, _, err := c.GetOrLoad(context.Background(), "k", load)
		assert.NoError(t, err)
		second <- v
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	select {
	case err := <-first:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	close(release)
	select {
	case v := <-second:
		assert.Equal(t, 42, v)
	case <-time.After(2 * time.Second):
		t.Fatal("second caller never got the value")
	}
	assert.Equal(t, 1, c.Len())
}

func TestGetOrLoadErrorNotCached(t *testing.T) {
	c := New[int](time.Hour, 10)
	defer c.Stop()

	boom := errors.New("boom")
	_, _, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
}

func TestKey(t *testing.T) {
	a := []File{{Name: "2022.csv", Data: []byte("x")}, {Name: "2023.csv", Data: []byte("y")}}
	same := []File{{Name: "2022.csv", Data: []byte("x")}, {Name: "2023.csv", Data: []byte("y")}}
	changed := []File{{Name: "2022.csv", Data: []byte("x")}, {Name: "2023.csv", Data: []byte("z")}}
	renamed := []File{{Name: "2022.csv", Data: []byte("x")}, {Name: "2024.csv", Data: []byte("y")}}

	k := Key("herkomst", a)
	assert.Len(t, k, 32)
	assert.Equal(t, k, Key("herkomst", same))
	assert.NotEqual(t, k, Key("herkomst", changed))
	assert.NotEqual(t, k, Key("herkomst", renamed))
	assert.NotEqual(t, k, Key("arbeidsmarkt", a))

	// field boundaries matter
	assert.NotEqual(t, Key("ab", nil), Key("a", []File{{Name: "b"}}))
}

func TestContentHash(t *testing.T) {
	assert.Len(t, ContentHash([]byte("Jaar;Aantal")), 64)
	assert.NotEqual(t, ContentHash([]byte("a")), ContentHash([]byte("b")))
}
