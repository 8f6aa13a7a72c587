package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/areyabhishek/todo1/internal/cache"
	dom "github.com/areyabhishek/todo1/internal/domain"
	"github.com/areyabhishek/todo1/internal/notify"
	"github.com/areyabhishek/todo1/internal/repo"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNotFound  = errors.New("todo not found")
	ErrEmptyTask = errors.New("task cannot be empty")
)

const (
	listFlightKey     = "list"
	listFlightTimeout = 5 * time.Second
)

type TodoService struct {
	repo     repo.TodoRepo
	cache    *cache.TodoCache
	notifier notify.Notifier
	log      zerolog.Logger
	sf       singleflight.Group

	// writeGen is bumped after every successful write. A list read that
	// started under an older generation never stays in the cache.
	writeGen atomic.Uint64
}

// NewTodoService creates a TodoService. If c is nil, caching is disabled;
// if n is nil, no notifications are sent.
func NewTodoService(r repo.TodoRepo, c *cache.TodoCache, n notify.Notifier, log zerolog.Logger) *TodoService {
	if n == nil {
		n = nopNotifier{}
	}
	return &TodoService{
		repo:     r,
		cache:    c,
		notifier: n,
		log:      log.With().Str("component", "todo_service").Logger(),
	}
}

func (s *TodoService) List(ctx context.Context) ([]dom.Todo, error) {
	if s.cache == nil {
		return s.repo.List(ctx)
	}
	v, err, _ := s.sf.Do(listFlightKey, func() (interface{}, error) {
		// Detached from the caller: the result is shared by the whole flight.
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), listFlightTimeout)
		defer cancel()
		return s.loadList(flightCtx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]dom.Todo), nil
}

func (s *TodoService) loadList(ctx context.Context) ([]dom.Todo, error) {
	if list, err := s.cache.GetList(ctx); err == nil && list != nil {
		return list, nil
	} else if err != nil {
		s.log.Warn().Err(err).Msg("list cache read failed")
	}

	gen := s.writeGen.Load()
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.writeGen.Load() != gen {
		return list, nil
	}
	if err := s.cache.SetList(ctx, list); err != nil {
		s.log.Warn().Err(err).Msg("list cache write failed")
		return list, nil
	}
	// A write may have landed between the check and the store.
	if s.writeGen.Load() != gen {
		s.invalidateCache(ctx)
	}
	return list, nil
}

// Create stores a new todo. No notification is sent on creation.
func (s *TodoService) Create(ctx context.Context, task string, deadline *string) (dom.Todo, error) {
	task = strings.TrimSpace(task)
	if task == "" {
		return dom.Todo{}, ErrEmptyTask
	}

	t, err := s.repo.Create(ctx, task, deadline)
	if err != nil {
		return dom.Todo{}, fmt.Errorf("create todo: %w", err)
	}
	s.afterWrite(ctx)

	s.log.Info().
		Int64("todo_id", t.ID).
		Msg("created todo")
	return t, nil
}

func (s *TodoService) GetByID(ctx context.Context, id int64) (dom.Todo, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return dom.Todo{}, ErrNotFound
		}
		return dom.Todo{}, fmt.Errorf("get todo %d: %w", id, err)
	}
	return t, nil
}

// Update applies a single-field patch. The record is read before the write
// to source notification details and re-read after it; a missing record at
// either point is ErrNotFound. A patch of kind PatchNone writes nothing and
// returns the current record.
func (s *TodoService) Update(ctx context.Context, id int64, patch dom.Patch) (dom.Todo, error) {
	if patch.Kind == dom.PatchTask {
		patch.Task = strings.TrimSpace(patch.Task)
		if patch.Task == "" {
			return dom.Todo{}, ErrEmptyTask
		}
	}

	before, err := s.GetByID(ctx, id)
	if err != nil {
		return dom.Todo{}, err
	}
	if patch.Kind == dom.PatchNone {
		return before, nil
	}

	after, err := s.repo.UpdateField(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return dom.Todo{}, ErrNotFound
		}
		return dom.Todo{}, fmt.Errorf("update todo %d: %w", id, err)
	}
	s.afterWrite(ctx)

	s.log.Info().
		Int64("todo_id", id).
		Stringer("field", patch.Kind).
		Msg("updated todo")

	s.notifier.Notify(notificationFor(patch, before, after))
	return after, nil
}

// Delete removes the todo. A missing id is not an error.
func (s *TodoService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete todo %d: %w", id, err)
	}
	s.afterWrite(ctx)

	s.log.Info().
		Int64("todo_id", id).
		Msg("deleted todo")
	return nil
}

// afterWrite retires any list read that started before the write.
func (s *TodoService) afterWrite(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.writeGen.Add(1)
	s.sf.Forget(listFlightKey)
	s.invalidateCache(ctx)
}

func (s *TodoService) invalidateCache(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("list cache invalidation failed")
	}
}

func notificationFor(p dom.Patch, before, after dom.Todo) notify.Notification {
	n := notify.Notification{Task: after.Task}
	switch p.Kind {
	case dom.PatchCompleted:
		n.Action = notify.ActionReopened
		if p.Completed {
			n.Action = notify.ActionCompleted
		}
	case dom.PatchTask:
		n.Action = notify.ActionUpdated
		n.Details = "Previous task: " + before.Task
	case dom.PatchDeadline:
		n.Action = notify.ActionDeadlineUpdated
		n.Details = "New deadline: none"
		if p.Deadline != nil {
			n.Details = "New deadline: " + *p.Deadline
		}
	}
	return n
}

type nopNotifier struct{}

func (nopNotifier) Notify(notify.Notification) {}
