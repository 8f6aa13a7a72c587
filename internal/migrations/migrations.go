// Package migrations embeds the goose migrations for every supported dialect.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Up applies all pending migrations for dialect on db. Already applied
// versions are skipped, so it is safe to call on every startup.
func Up(ctx context.Context, db *sql.DB, dialect goose.Dialect) error {
	dir, err := dirFor(dialect)
	if err != nil {
		return err
	}
	fsys, err := fs.Sub(files, dir)
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

func dirFor(dialect goose.Dialect) (string, error) {
	switch dialect {
	case goose.DialectPostgres:
		return "postgres", nil
	case goose.DialectSQLite3:
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unsupported dialect %q", dialect)
	}
}
