// Package cache 进程内聚合查询缓存
package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// Cache 带TTL的内存缓存，过期在读取时惰性判断，无后台清理
// 仅进程内有效，多实例部署时各实例独立，各自承担TTL内的过期窗口
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// New 创建缓存实例
func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Producer 缓存未命中时的数据生产函数
type Producer func(ctx context.Context) (interface{}, error)

// GetOrFetch 命中且未过期直接返回；否则调用producer并以 now+ttl 写入
// 同一key并发未命中时producer会被并发调用（至少一次重算，不做单飞去重）
// producer出错时不写缓存，错误原样返回
func (c *Cache) GetOrFetch(ctx context.Context, key string, ttl time.Duration, producer Producer) (interface{}, error) {
	c.mu.RLock()
	if e, ok := c.entries[key]; ok && c.now().Before(e.expiresAt) {
		c.mu.RUnlock()
		return e.value, nil
	}
	c.mu.RUnlock()

	value, err := producer(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()

	return value, nil
}

// Invalidate 立即移除指定key
func (c *Cache) Invalidate(keys ...string) {
	c.mu.Lock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	c.mu.Unlock()
}

// 聚合查询使用的固定key，项目或检验数据变更时必须同时失效
const (
	KeyDashboardSummary = "dashboard:summary"
	KeyProjectSummaries = "projects:summaries"
)
