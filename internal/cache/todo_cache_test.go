package cache

import (
	"context"
	"testing"
	"time"

	dom "github.com/areyabhishek/todo1/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*TodoCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewTodoCache(rdb, time.Minute), mr
}

func TestGetListMiss(t *testing.T) {
	c, _ := newTestCache(t)

	list, err := c.GetList(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list != nil {
		t.Errorf("expected nil on miss, got %v", list)
	}
}

func TestSetGetInvalidate(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	deadline := "friday"
	created := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	in := []dom.Todo{
		{ID: 2, Task: "ship it", Deadline: &deadline, CreatedAt: created, UpdatedAt: created},
		{ID: 1, Task: "write it", Completed: true, CreatedAt: created, UpdatedAt: created},
	}
	if err := c.SetList(ctx, in); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ttl := mr.TTL(keyList); ttl != time.Minute {
		t.Errorf("ttl = %v, want 1m", ttl)
	}

	out, err := c.GetList(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(out) != 2 || out[0].Task != "ship it" || !out[1].Completed {
		t.Fatalf("unexpected cached list: %+v", out)
	}
	if out[0].Deadline == nil || *out[0].Deadline != "friday" {
		t.Errorf("deadline lost in cache: %v", out[0].Deadline)
	}
	if !out[0].CreatedAt.Equal(created) {
		t.Errorf("created_at = %v, want %v", out[0].CreatedAt, created)
	}

	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists(keyList) {
		t.Error("expected key to be removed")
	}
}

func TestEmptyListIsAHit(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	if err := c.SetList(ctx, []dom.Todo{}); err != nil {
		t.Fatalf("set: %v", err)
	}
	out, err := c.GetList(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if out == nil || len(out) != 0 {
		t.Errorf("expected empty non-nil list, got %#v", out)
	}
}
