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

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCache() (*Cache, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	c := New()
	c.SetClock(clock.Now)
	return c, clock
}

func TestExpiry(t *testing.T) {
	c, clock := newTestCache()

	c.Set("a", 1, Options{TTL: 30 * time.Second})
	c.Set("forever", 2, Options{})

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	clock.Add(29 * time.Second)
	_, ok = c.Get("a")
	assert.True(t, ok)

	clock.Add(time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok, "value must expire once the TTL has passed")

	clock.Add(24 * time.Hour)
	_, ok = c.Get("forever")
	assert.True(t, ok)
}

func TestInvalidateTag(t *testing.T) {
	c, _ := newTestCache()

	c.Set("a", 1, Options{Tags: []string{"projects"}})
	c.Set("b", 2, Options{Tags: []string{"projects", "other"}})
	c.Set("c", 3, Options{Tags: []string{"other"}})

	assert.Equal(t, 2, c.InvalidateTag("projects"))
	assert.Equal(t, 0, c.InvalidateTag("projects"))

	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)

	assert.Equal(t, 1, c.InvalidateTag("other"))
	assert.Equal(t, 0, c.Len())
}

func TestMemoize(t *testing.T) {
	c, clock := newTestCache()

	var calls int32
	list := Memoize(c, "list-projects", Options{TTL: 30 * time.Second, Tags: []string{"projects"}},
		func(context.Context) ([]string, error) {
			n := atomic.AddInt32(&calls, 1)
			return []string{"p", string(rune('0' + n))}, nil
		},
	)

	ctx := context.Background()

	v, err := list(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p", "1"}, v)

	v, err = list(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p", "1"}, v, "second call must be cached")

	c.InvalidateTag("projects")

	v, err = list(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p", "2"}, v, "invalidation must force a reload")

	clock.Add(time.Minute)

	v, err = list(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p", "3"}, v, "expiry must force a reload")
}

func TestMemoizeError(t *testing.T) {
	c, _ := newTestCache()

	fail := true
	load := Memoize(c, "k", Options{}, func(context.Context) (int, error) {
		if fail {
			return 0, errors.New("boom")
		}
		return 42, nil
	})

	_, err := load(context.Background())
	assert.EqualError(t, err, "boom")

	fail = false

	v, err := load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v, "errors must not be cached")
}

func TestLoadCollapsesConcurrentMisses(t *testing.T) {
	c, _ := newTestCache()

	var calls int32
	release := make(chan struct{})

	load := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "v", nil
	}

	const n = 10

	var wg sync.WaitGroup
	var started sync.WaitGroup
	wg.Add(n)
	started.Add(n)

	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			started.Done()
			v, err := c.Load(context.Background(), "k", Options{}, load)
			assert.NoError(t, err)
			assert.Equal(t, "v", v)
		}()
	}

	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestInvalidateDuringLoad(t *testing.T) {
	c, _ := newTestCache()

	loading := make(chan struct{})
	release := make(chan struct{})

	go func() {
		<-loading
		c.InvalidateTag("projects")
		close(release)
	}()

	_, err := c.Load(context.Background(), "k", Options{Tags: []string{"projects"}},
		func(context.Context) (interface{}, error) {
			close(loading)
			<-release
			return "stale", nil
		},
	)
	require.NoError(t, err)

	_, ok := c.Get("k")
	assert.False(t, ok, "a load racing an invalidation must not be stored")
}
