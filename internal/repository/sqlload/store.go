// Package sqlload loads class instances from SQL tables, one table per
// class with an "id" primary key column.
package sqlload

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kailas-cloud/solrq/internal/domain/setup"
)

// Compile-time check: Accessor implements setup.DataAccessor.
var _ setup.DataAccessor = (*Accessor)(nil)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store wraps a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens the SQLite database at dsn.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	// One connection keeps in-memory databases shared.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

// New wraps an open database.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database.
func (s *Store) DB() *sql.DB { return s.db }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Accessor returns the data accessor of className reading table. An empty
// table defaults to the lower-cased class name.
func (s *Store) Accessor(className, table string) (*Accessor, error) {
	if table == "" {
		table = strings.ToLower(className)
	}
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Accessor{db: s.db, class: className, table: table}, nil
}

// Accessor loads the instances of one class from its table.
type Accessor struct {
	db    *sql.DB
	class string
	table string
}

// LoadAll selects the rows of ids in one query. Missing ids are omitted;
// each instance is a *setup.Record holding the other columns.
func (a *Accessor) LoadAll(ctx context.Context, ids []string) ([]any, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	//nolint:gosec // table name is validated against identPattern
	q := fmt.Sprintf("SELECT * FROM %s WHERE id IN (%s)", a.table, placeholders)

	rows, err := a.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", a.class, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("load %s columns: %w", a.class, err)
	}

	var out []any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", a.class, err)
		}
		rec := &setup.Record{Class: a.class, Fields: make(map[string]any, len(cols))}
		for i, col := range cols {
			v := sqlValue(values[i])
			if col == setup.KeyID {
				rec.ID = fmt.Sprint(v)
				continue
			}
			rec.Fields[col] = v
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load %s: %w", a.class, err)
	}
	return out, nil
}

// sqlValue converts driver values to plain Go values.
func sqlValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
