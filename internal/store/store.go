// Package store is the durable record store behind history, collections and
// environments. Every named collection is a SQLite table keyed by a string id
// with one column per declared secondary index and the record itself kept as
// a JSON document.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
)

const (
	// ErrNotFound is returned by Get when no record has the requested id.
	ErrNotFound errors.Error = "record not found"

	// ErrUnavailable is returned by every operation issued before Open or
	// after Close.
	ErrUnavailable errors.Error = "store is not open"

	// ErrUnknownCollection is returned for a collection name outside the schema.
	ErrUnknownCollection errors.Error = "unknown collection"

	// ErrUnknownIndex is returned when querying an index the collection does
	// not declare.
	ErrUnknownIndex errors.Error = "unknown index"
)

// Store is the record store. The zero value is not usable; create one with
// New and open it with Open.
type Store struct {
	logger *slog.Logger

	mu sync.RWMutex
	db *DB
}

// New returns a closed store. All operations fail with ErrUnavailable until
// Open succeeds.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}

	return &Store{logger: logger}
}

// Open opens the database at path and creates the schema if needed. Opening
// an already open store is a no-op.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	s := New(logger)
	if err := s.Open(ctx, path); err != nil {
		return nil, err
	}

	return s, nil
}

// Open opens the database at path and creates the schema if needed.
func (s *Store) Open(ctx context.Context, path string) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	db, err := NewDB(path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}

	if err = RunMigrations(db.Writer); err != nil {
		return errors.WithDeferred(err, db.Close())
	}

	s.db = db
	s.logger.DebugContext(ctx, "store opened", "path", path)

	return nil
}

// Close closes the database. Closing a closed store is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	err := s.db.Close()
	s.db = nil

	return err
}

func (s *Store) conn(name Name) (*DB, error) {
	if _, ok := schema[name]; !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownCollection)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrUnavailable
	}

	return s.db, nil
}

// putRaw upserts a document. keys holds the value of every index declared on
// name. The row keeps its original position when an existing id is replaced.
func (s *Store) putRaw(ctx context.Context, name Name, id string, keys map[Index]any, data []byte) error {
	db, err := s.conn(name)
	if err != nil {
		return err
	}

	cols := []string{"id"}
	args := []any{id}
	for _, idx := range schema[name] {
		cols = append(cols, indexColumns[idx])
		args = append(args, keys[idx])
	}
	cols = append(cols, "data")
	args = append(args, string(data))

	updates := make([]string, 0, len(cols)-1)
	for _, c := range cols[1:] {
		updates = append(updates, c+" = excluded."+c)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		name,
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
		strings.Join(updates, ", "),
	)

	if _, err = db.Writer.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("put %s %s: %w", name, id, err)
	}

	return nil
}

func (s *Store) getRaw(ctx context.Context, name Name, id string) ([]byte, error) {
	db, err := s.conn(name)
	if err != nil {
		return nil, err
	}

	var data string
	query := fmt.Sprintf("SELECT data FROM %s WHERE id = ?", name)
	err = db.Reader.QueryRowContext(ctx, query, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s %s: %w", name, id, ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", name, id, err)
	}

	return []byte(data), nil
}

// scanRaw returns a cursor over the documents of name. Every iteration runs
// its own query, so the sequence can be ranged over more than once.
func (s *Store) scanRaw(ctx context.Context, name Name, where string, args []any, order string) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		db, err := s.conn(name)
		if err != nil {
			yield(nil, err)

			return
		}

		query := fmt.Sprintf("SELECT data FROM %s", name)
		if where != "" {
			query += " WHERE " + where
		}
		query += " ORDER BY " + order

		rows, err := db.Reader.QueryContext(ctx, query, args...)
		if err != nil {
			yield(nil, fmt.Errorf("scan %s: %w", name, err))

			return
		}
		defer rows.Close()

		for rows.Next() {
			var data string
			if err = rows.Scan(&data); err != nil {
				yield(nil, fmt.Errorf("scan %s row: %w", name, err))

				return
			}

			if !yield([]byte(data), nil) {
				return
			}
		}

		if err = rows.Err(); err != nil {
			yield(nil, fmt.Errorf("scan %s: %w", name, err))
		}
	}
}

// Delete removes the record with the given id. Deleting a missing id succeeds.
func (s *Store) Delete(ctx context.Context, name Name, id string) error {
	db, err := s.conn(name)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", name)
	if _, err = db.Writer.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete %s %s: %w", name, id, err)
	}

	return nil
}

// Clear removes every record of name.
func (s *Store) Clear(ctx context.Context, name Name) error {
	db, err := s.conn(name)
	if err != nil {
		return err
	}

	if _, err = db.Writer.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", name)); err != nil {
		return fmt.Errorf("clear %s: %w", name, err)
	}

	return nil
}

// Count returns the number of records of name.
func (s *Store) Count(ctx context.Context, name Name) (int, error) {
	db, err := s.conn(name)
	if err != nil {
		return 0, err
	}

	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", name)
	if err = db.Reader.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", name, err)
	}

	return n, nil
}
