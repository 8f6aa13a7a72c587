package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	dom "github.com/areyabhishek/todo1/internal/domain"

	"github.com/redis/go-redis/v9"
)

const keyList = "todo:list"

// TodoCache caches the full todo list in Redis.
type TodoCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTodoCache returns a new TodoCache.
func NewTodoCache(rdb *redis.Client, ttl time.Duration) *TodoCache {
	return &TodoCache{rdb: rdb, ttl: ttl}
}

// GetList returns the cached list, or nil on a miss.
func (c *TodoCache) GetList(ctx context.Context) ([]dom.Todo, error) {
	b, err := c.rdb.Get(ctx, keyList).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	list := make([]dom.Todo, 0)
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// SetList stores the list in cache.
func (c *TodoCache) SetList(ctx context.Context, list []dom.Todo) error {
	b, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, keyList, b, c.ttl).Err()
}

// Invalidate drops the cached list; called on every write.
func (c *TodoCache) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, keyList).Err()
}
