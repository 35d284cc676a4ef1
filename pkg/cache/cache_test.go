package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manual clock for expiry tests
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache(t *testing.T) (*InMemoryCache[map[string]interface{}], *clock) {
	t.Helper()
	clk := &clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewInMemoryCache[map[string]interface{}](time.Hour)
	c.now = clk.Now
	t.Cleanup(c.Stop)
	return c, clk
}

func TestInMemoryCache_SetGet(t *testing.T) {
	c, _ := newTestCache(t)

	c.Set("feed", map[string]interface{}{"feedTitle": "News"}, time.Minute)

	v, ok := c.Get("feed")
	require.True(t, ok)
	assert.Equal(t, "News", v["feedTitle"])

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestInMemoryCache_Expiration(t *testing.T) {
	c, clk := newTestCache(t)

	c.Set("feed", map[string]interface{}{}, 5*time.Minute)

	clk.Advance(4 * time.Minute)
	_, ok := c.Get("feed")
	assert.True(t, ok)

	clk.Advance(time.Minute)
	_, ok = c.Get("feed")
	assert.False(t, ok)

	assert.Equal(t, 1, c.Size())
	c.removeExpired()
	assert.Equal(t, 0, c.Size())
}

func TestInMemoryCache_DeleteClear(t *testing.T) {
	c, _ := newTestCache(t)

	c.Set("a", nil, time.Minute)
	c.Set("b", nil, time.Minute)
	c.Delete("a")
	assert.Equal(t, 1, c.Size())

	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestInMemoryCache_GetOrLoad(t *testing.T) {
	c, clk := newTestCache(t)
	var loads int32
	load := func() (map[string]interface{}, error) {
		atomic.AddInt32(&loads, 1)
		return map[string]interface{}{"n": atomic.LoadInt32(&loads)}, nil
	}

	v, err := c.GetOrLoad("feed", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, int32(1), v["n"])

	v, err = c.GetOrLoad("feed", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, int32(1), v["n"])

	clk.Advance(time.Minute)
	v, err = c.GetOrLoad("feed", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, int32(2), v["n"])
}

func TestInMemoryCache_GetOrLoad_ErrorNotCached(t *testing.T) {
	c, _ := newTestCache(t)
	boom := errors.New("feed unavailable")

	_, err := c.GetOrLoad("feed", time.Minute, func() (map[string]interface{}, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Size())

	v, err := c.GetOrLoad("feed", time.Minute, func() (map[string]interface{}, error) {
		return map[string]interface{}{"ok": true}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, true, v["ok"])
}

func TestInMemoryCache_GetOrLoad_SharesConcurrentLoads(t *testing.T) {
	c, _ := newTestCache(t)
	var loads int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetOrLoad("feed", time.Minute, func() (map[string]interface{}, error) {
				atomic.AddInt32(&loads, 1)
				<-release
				return map[string]interface{}{}, nil
			})
			assert.NoError(t, err)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
}

func TestInMemoryCache_LoadDoesNotBlockOtherKeys(t *testing.T) {
	c, _ := newTestCache(t)
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		_, _ = c.GetOrLoad("slow", time.Minute, func() (map[string]interface{}, error) {
			<-release
			return nil, nil
		})
		close(done)
	}()

	c.Set("fast", map[string]interface{}{"x": 1}, time.Minute)
	_, ok := c.Get("fast")
	assert.True(t, ok)

	close(release)
	<-done
}

func TestInMemoryCache_StopIsIdempotent(t *testing.T) {
	c := NewInMemoryCache[string](10 * time.Millisecond)
	c.Set("k", "v", time.Second)

	c.Stop()
	c.Stop()

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}
