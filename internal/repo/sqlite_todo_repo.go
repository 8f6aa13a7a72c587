package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"

	dom "github.com/areyabhishek/todo1/internal/domain"
	"github.com/areyabhishek/todo1/internal/migrations"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

const sqliteNow = `strftime('%Y-%m-%d %H:%M:%f', 'now')`

// SQLiteDSN builds a go-sqlite3 DSN for a database file.
func SQLiteDSN(path string) string {
	q := url.Values{}
	q.Set("_busy_timeout", "5000")
	q.Set("_journal_mode", "WAL")
	return "file:" + path + "?" + q.Encode()
}

// OpenSQLite opens the database file at path. The file is created on first use.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", SQLiteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

type SQLiteTodoRepo struct {
	db   *sql.DB
	path string
}

func NewSQLiteTodoRepo(db *sql.DB, path string) *SQLiteTodoRepo {
	return &SQLiteTodoRepo{db: db, path: path}
}

func (r *SQLiteTodoRepo) Init(ctx context.Context) error {
	db, err := sql.Open("sqlite3", SQLiteDSN(r.path))
	if err != nil {
		return fmt.Errorf("sqlite open: %w", err)
	}
	defer db.Close()

	return migrations.Up(ctx, db, goose.DialectSQLite3)
}

func (r *SQLiteTodoRepo) List(ctx context.Context) ([]dom.Todo, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("conn: %w", err)
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, `
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

func (r *SQLiteTodoRepo) Create(ctx context.Context, task string, deadline *string) (dom.Todo, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return dom.Todo{}, fmt.Errorf("conn: %w", err)
	}
	defer conn.Close()

	res, err := conn.ExecContext(ctx,
		`INSERT INTO todos (task, deadline) VALUES (?, ?)`,
		task, deadline,
	)
	if err != nil {
		return dom.Todo{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return dom.Todo{}, err
	}
	return sqliteGetByID(ctx, conn, id)
}

func (r *SQLiteTodoRepo) GetByID(ctx context.Context, id int64) (dom.Todo, error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return dom.Todo{}, fmt.Errorf("conn: %w", err)
	}
	defer conn.Close()

	return sqliteGetByID(ctx, conn, id)
}

func (r *SQLiteTodoRepo) UpdateField(ctx context.Context, id int64, patch dom.Patch) (dom.Todo, error) {
	column, value, err := updateColumn(patch)
	if err != nil {
		return dom.Todo{}, err
	}

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return dom.Todo{}, fmt.Errorf("conn: %w", err)
	}
	defer conn.Close()

	_, err = conn.ExecContext(ctx,
		`UPDATE todos SET `+column+` = ?, updated_at = `+sqliteNow+` WHERE id = ?`,
		value, id,
	)
	if err != nil {
		return dom.Todo{}, err
	}
	return sqliteGetByID(ctx, conn, id)
}

func (r *SQLiteTodoRepo) Delete(ctx context.Context, id int64) error {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("conn: %w", err)
	}
	defer conn.Close()

	_, err = conn.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	return err
}

func sqliteGetByID(ctx context.Context, conn *sql.Conn, id int64) (dom.Todo, error) {
	t, err := scanTodo(conn.QueryRowContext(ctx, `
		SELECT `+todoColumns+`
		FROM todos WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return dom.Todo{}, ErrNotFound
	}
	return t, err
}
