package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/efreitasn/formrelay/internal/domain"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// SQLStore inserts rows into a Postgres or SQLite database through bun.
type SQLStore struct {
	db *bun.DB
}

// OpenPostgres connects to Postgres with the lib/pq driver.
func OpenPostgres(dsn string) (*SQLStore, error) {
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewSQLStore(bun.NewDB(sqlDB, pgdialect.New())), nil
}

// OpenSQLite opens a SQLite database with the go-sqlite3 driver.
func OpenSQLite(dsn string) (*SQLStore, error) {
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps in-memory databases alive across queries.
	sqlDB.SetMaxOpenConns(1)
	return NewSQLStore(bun.NewDB(sqlDB, sqlitedialect.New())), nil
}

// NewSQLStore wraps an existing bun database.
func NewSQLStore(db *bun.DB) *SQLStore {
	return &SQLStore{db: db}
}

// DB returns the underlying bun database.
func (s *SQLStore) DB() *bun.DB {
	return s.db
}

// Ping verifies the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// EnsureTable creates table with the canonical columns if it does not exist.
func (s *SQLStore) EnsureTable(ctx context.Context, table string) error {
	idColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	createdAt := "created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP"
	if s.db.Dialect().Name() == dialect.PG {
		idColumn = "id BIGSERIAL PRIMARY KEY"
		createdAt = "created_at TIMESTAMPTZ NOT NULL DEFAULT now()"
	}

	defs := []string{idColumn, createdAt}
	args := []any{bun.Ident(table)}
	for _, col := range domain.Columns() {
		defs = append(defs, "? TEXT")
		args = append(args, bun.Ident(col))
	}

	query := "CREATE TABLE IF NOT EXISTS ? (" + strings.Join(defs, ", ") + ")"
	if _, err := s.db.NewRaw(query, args...).Exec(ctx); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

// Insert writes the row as a single INSERT statement. Structured values are
// stored as JSON text.
func (s *SQLStore) Insert(ctx context.Context, table string, row domain.Row, returning bool) ([]map[string]any, error) {
	values := make(map[string]any, len(row))
	for _, c := range row {
		v, err := scalarValue(c.Value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", c.Column, err)
		}
		values[c.Column] = v
	}

	q := s.db.NewInsert().Model(&values).TableExpr("?", bun.Ident(table))
	if !returning {
		if _, err := q.Exec(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}

	var inserted []map[string]any
	if err := q.Returning("*").Scan(ctx, &inserted); err != nil {
		return nil, err
	}
	for _, r := range inserted {
		normalizeScanned(r)
	}
	return inserted, nil
}

// normalizeScanned turns driver byte slices into strings so rows encode as
// readable JSON.
func normalizeScanned(r map[string]any) {
	for k, v := range r {
		if b, ok := v.([]byte); ok {
			r[k] = string(b)
		}
	}
}
