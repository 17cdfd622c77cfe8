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

func TestGetOrFetchMissThenHit(t *testing.T) {
	c := New()
	calls := 0

	producer := func(ctx context.Context) (interface{}, error) {
		calls++
		return "value", nil
	}

	v, err := c.GetOrFetch(context.Background(), "k", time.Minute, producer)
	require.NoError(t, err)
	assert.Equal(t, "value", v)
	assert.Equal(t, 1, calls)

	// 第二次命中缓存，producer不再被调用
	v, err = c.GetOrFetch(context.Background(), "k", time.Minute, producer)
	require.NoError(t, err)
	assert.Equal(t, "value", v)
	assert.Equal(t, 1, calls)
}

func TestGetOrFetchExpiry(t *testing.T) {
	c := New()
	now := time.Now()
	c.now = func() time.Time { return now }

	calls := 0
	producer := func(ctx context.Context) (interface{}, error) {
		calls++
		return calls, nil
	}

	v, err := c.GetOrFetch(context.Background(), "k", 30*time.Second, producer)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	// TTL内命中
	now = now.Add(29 * time.Second)
	v, _ = c.GetOrFetch(context.Background(), "k", 30*time.Second, producer)
	assert.Equal(t, 1, v)

	// 过期后重新生产
	now = now.Add(2 * time.Second)
	v, _ = c.GetOrFetch(context.Background(), "k", 30*time.Second, producer)
	assert.Equal(t, 2, v)
}

func TestGetOrFetchErrorNotCached(t *testing.T) {
	c := New()
	calls := 0
	wantErr := errors.New("boom")

	producer := func(ctx context.Context) (interface{}, error) {
		calls++
		if calls == 1 {
			return nil, wantErr
		}
		return "recovered", nil
	}

	_, err := c.GetOrFetch(context.Background(), "k", time.Minute, producer)
	assert.ErrorIs(t, err, wantErr)

	// 错误不落缓存，下一次重新生产
	v, err := c.GetOrFetch(context.Background(), "k", time.Minute, producer)
	require.NoError(t, err)
	assert.Equal(t, "recovered", v)
}

func TestInvalidate(t *testing.T) {
	c := New()
	calls := 0
	producer := func(ctx context.Context) (interface{}, error) {
		calls++
		return calls, nil
	}

	c.GetOrFetch(context.Background(), KeyDashboardSummary, time.Minute, producer)
	c.GetOrFetch(context.Background(), KeyProjectSummaries, time.Minute, producer)
	assert.Equal(t, 2, calls)

	c.Invalidate(KeyDashboardSummary, KeyProjectSummaries)

	c.GetOrFetch(context.Background(), KeyDashboardSummary, time.Minute, producer)
	c.GetOrFetch(context.Background(), KeyProjectSummaries, time.Minute, producer)
	assert.Equal(t, 4, calls)
}

func TestConcurrentMissProducesAtLeastOnce(t *testing.T) {
	c := New()
	var calls int64
	producer := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt64(&calls, 1)
		return "v", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrFetch(context.Background(), "k", time.Minute, producer)
			assert.NoError(t, err)
			assert.Equal(t, "v", v)
		}()
	}
	wg.Wait()

	// 并发未命中允许重复生产，但至少一次且不超过goroutine数
	got := atomic.LoadInt64(&calls)
	assert.GreaterOrEqual(t, got, int64(1))
	assert.LessOrEqual(t, got, int64(16))
}
