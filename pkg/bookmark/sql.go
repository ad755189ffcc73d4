package bookmark

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/geoportal-dev/hashsync/internal/errors"
)

// SQLDialect represents the SQL dialect for query generation.
type SQLDialect int

const (
	// DialectSQLite uses SQLite syntax (? placeholders).
	DialectSQLite SQLDialect = iota
	// DialectPostgreSQL uses PostgreSQL syntax ($1, $2 placeholders).
	DialectPostgreSQL
	// DialectMySQL uses MySQL syntax (? placeholders).
	DialectMySQL
)

// SQLStore is a SQL-backed bookmark store. It works with any database/sql
// driver; the schema is created by EnsureSchema:
//
//	CREATE TABLE hashsync_bookmarks (
//	    id VARCHAR(32) PRIMARY KEY,
//	    hash TEXT NOT NULL,
//	    title TEXT NOT NULL DEFAULT '',
//	    created_at TIMESTAMP NOT NULL
//	);
type SQLStore struct {
	db        *sql.DB
	tableName string
	dialect   SQLDialect
	closed    atomic.Bool
}

// SQLStoreOption configures SQLStore behavior.
type SQLStoreOption func(*SQLStore)

// WithSQLTableName sets the table name. Default: "hashsync_bookmarks".
func WithSQLTableName(name string) SQLStoreOption {
	return func(s *SQLStore) {
		s.tableName = name
	}
}

// WithSQLDialect sets the SQL dialect. Default: DialectSQLite.
func WithSQLDialect(dialect SQLDialect) SQLStoreOption {
	return func(s *SQLStore) {
		s.dialect = dialect
	}
}

// NewSQLStore creates a store on db. The caller owns db; Close does not
// close it.
func NewSQLStore(db *sql.DB, opts ...SQLStoreOption) *SQLStore {
	s := &SQLStore{db: db, tableName: "hashsync_bookmarks", dialect: DialectSQLite}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenSQLite opens a SQLite database at path and creates the schema. The
// "sqlite3" driver must be registered by the caller, usually with a blank
// import of github.com/mattn/go-sqlite3.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, *sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, nil, errors.New("H081").Wrap(err)
	}
	// SQLite serializes writers; one connection avoids "database is locked".
	db.SetMaxOpenConns(1)

	s := NewSQLStore(db, WithSQLDialect(DialectSQLite))
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return s, db, nil
}

func (s *SQLStore) placeholder(n int) string {
	if s.dialect == DialectPostgreSQL {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// EnsureSchema creates the bookmark table if it does not exist.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(32) PRIMARY KEY,
			hash TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`, s.tableName)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return errors.New("H081").Wrap(err)
	}
	return nil
}

// Save implements Store. Saving an existing id overwrites it.
func (s *SQLStore) Save(ctx context.Context, b *Bookmark) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if err := Prepare(b); err != nil {
		return err
	}

	var query string
	switch s.dialect {
	case DialectPostgreSQL:
		query = fmt.Sprintf(`
			INSERT INTO %s (id, hash, title, created_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET
				hash = EXCLUDED.hash,
				title = EXCLUDED.title,
				created_at = EXCLUDED.created_at
		`, s.tableName)
	case DialectMySQL:
		query = fmt.Sprintf(`
			INSERT INTO %s (id, hash, title, created_at)
			VALUES (?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				hash = VALUES(hash),
				title = VALUES(title),
				created_at = VALUES(created_at)
		`, s.tableName)
	default:
		query = fmt.Sprintf(`
			INSERT OR REPLACE INTO %s (id, hash, title, created_at)
			VALUES (?, ?, ?, ?)
		`, s.tableName)
	}

	if _, err := s.db.ExecContext(ctx, query, b.ID, b.Hash, b.Title, b.CreatedAt.UTC()); err != nil {
		return errors.New("H081").Wrap(err)
	}
	return nil
}

// Get implements Store.
func (s *SQLStore) Get(ctx context.Context, id string) (*Bookmark, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}

	query := fmt.Sprintf(`SELECT id, hash, title, created_at FROM %s WHERE id = %s`,
		s.tableName, s.placeholder(1))

	var b Bookmark
	var created time.Time
	err := s.db.QueryRowContext(ctx, query, id).Scan(&b.ID, &b.Hash, &b.Title, &created)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.New("H081").Wrap(err)
	}
	b.CreatedAt = created.UTC()
	return &b, nil
}

// Delete implements Store.
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = %s`, s.tableName, s.placeholder(1))
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return errors.New("H081").Wrap(err)
	}
	return nil
}

// Close implements Store.
func (s *SQLStore) Close() error {
	s.closed.Store(true)
	return nil
}
