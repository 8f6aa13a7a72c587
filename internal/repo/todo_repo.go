package repo

import (
	"context"
	"errors"
	"fmt"

	dom "github.com/areyabhishek/todo1/internal/domain"
	"github.com/areyabhishek/todo1/internal/migrations"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// ErrNotFound is returned when no todo has the requested id.
var ErrNotFound = errors.New("todo not found")

// TodoRepo is the storage adapter for todos. Every method acquires its own
// connection and releases it before returning.
type TodoRepo interface {
	// Init creates the todos table if it does not exist yet.
	Init(ctx context.Context) error
	List(ctx context.Context) ([]dom.Todo, error)
	// Create inserts a todo and returns the stored row as read back by id.
	Create(ctx context.Context, task string, deadline *string) (dom.Todo, error)
	GetByID(ctx context.Context, id int64) (dom.Todo, error)
	// UpdateField writes the single column named by patch and refreshes
	// updated_at. A missing id surfaces as ErrNotFound from the follow-up read.
	UpdateField(ctx context.Context, id int64, patch dom.Patch) (dom.Todo, error)
	// Delete removes the row; deleting a missing id is not an error.
	Delete(ctx context.Context, id int64) error
}

const todoColumns = `id, task, completed, deadline, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (dom.Todo, error) {
	var t dom.Todo
	err := row.Scan(&t.ID, &t.Task, &t.Completed, &t.Deadline, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// updateColumn returns the column and value written by patch.
func updateColumn(p dom.Patch) (string, any, error) {
	switch p.Kind {
	case dom.PatchCompleted:
		return "completed", p.Completed, nil
	case dom.PatchTask:
		return "task", p.Task, nil
	case dom.PatchDeadline:
		return "deadline", p.Deadline, nil
	default:
		return "", nil, fmt.Errorf("patch kind %s has no column", p.Kind)
	}
}

type PGTodoRepo struct {
	db  *pgxpool.Pool
	dsn string
}

func NewPGTodoRepo(db *pgxpool.Pool, dsn string) *PGTodoRepo {
	return &PGTodoRepo{db: db, dsn: dsn}
}

func (r *PGTodoRepo) Init(ctx context.Context) error {
	db, err := goose.OpenDBWithDriver("pgx", r.dsn)
	if err != nil {
		return fmt.Errorf("goose open db: %w", err)
	}
	defer db.Close()

	return migrations.Up(ctx, db, goose.DialectPostgres)
}

func (r *PGTodoRepo) List(ctx context.Context) ([]dom.Todo, error) {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
		SELECT `+todoColumns+`
		FROM todos ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]dom.Todo, 0)
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (r *PGTodoRepo) Create(ctx context.Context, task string, deadline *string) (dom.Todo, error) {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return dom.Todo{}, fmt.Errorf("acquire: %w", err)
	}
	defer conn.Release()

	var id int64
	err = conn.QueryRow(ctx,
		`INSERT INTO todos (task, deadline) VALUES ($1, $2) RETURNING id`,
		task, deadline,
	).Scan(&id)
	if err != nil {
		return dom.Todo{}, err
	}
	return pgGetByID(ctx, conn, id)
}

func (r *PGTodoRepo) GetByID(ctx context.Context, id int64) (dom.Todo, error) {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return dom.Todo{}, fmt.Errorf("acquire: %w", err)
	}
	defer conn.Release()

	return pgGetByID(ctx, conn, id)
}

func (r *PGTodoRepo) UpdateField(ctx context.Context, id int64, patch dom.Patch) (dom.Todo, error) {
	column, value, err := updateColumn(patch)
	if err != nil {
		return dom.Todo{}, err
	}

	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return dom.Todo{}, fmt.Errorf("acquire: %w", err)
	}
	defer conn.Release()

	// column comes from a closed set above, never from input.
	_, err = conn.Exec(ctx,
		`UPDATE todos SET `+column+` = $2, updated_at = NOW() WHERE id = $1`,
		id, value,
	)
	if err != nil {
		return dom.Todo{}, err
	}
	return pgGetByID(ctx, conn, id)
}

func (r *PGTodoRepo) Delete(ctx context.Context, id int64) error {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `DELETE FROM todos WHERE id = $1`, id)
	return err
}

func pgGetByID(ctx context.Context, conn *pgxpool.Conn, id int64) (dom.Todo, error) {
	t, err := scanTodo(conn.QueryRow(ctx, `
		SELECT `+todoColumns+`
		FROM todos WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return dom.Todo{}, ErrNotFound
	}
	return t, err
}
