// Package titleindex persists (title, lemmas) pairs in an SQLite FTS5 table
// with trigram tokenization.
package titleindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	sqlm "wikisearch/internal/storage/sqlite"
)

// Record is one indexed title with its space-joined lemma string.
type Record struct {
	Title  string
	Lemmas string
}

// Index is a handle on the on-disk title index. A read-only handle is safe
// for concurrent use; a writable one is meant for a single builder.
type Index struct {
	db       *sql.DB
	path     string
	readOnly bool
}

// Exists reports whether an index file is present at path.
func Exists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

// Remove deletes the index file at path along with any SQLite journal files
// left next to it. A missing file is not an error.
func Remove(path string) error {
	for _, p := range []string{path, path + "-journal", path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Create opens path for writing, creating the file and schema if needed.
func Create(ctx context.Context, path string) (*Index, error) {
	if path == "" {
		return nil, errors.New("index path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := (sqlm.Manager{}).UpToLatest(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Index{db: db, path: path}, nil
}

// OpenReadOnly opens a finished index for querying.
func OpenReadOnly(ctx context.Context, path string) (*Index, error) {
	if !Exists(path) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	db, err := sql.Open("sqlite", "file:"+filepath.ToSlash(path)+"?mode=ro")
	if err != nil {
		return nil, err
	}
	x := &Index{db: db, path: path, readOnly: true}
	ok, err := x.Complete(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	if !ok {
		db.Close()
		return nil, fmt.Errorf("%w: %s", ErrIncomplete, path)
	}
	return x, nil
}

func (x *Index) Close() error { return x.db.Close() }

// WithTx provides a simple transaction wrapper that commits on nil error
// and rolls back on error. The callback must not hold the tx beyond return.
func (x *Index) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	if x.readOnly {
		return ErrReadOnly
	}
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// InsertBatch writes recs in one transaction: either all rows land or none.
func (x *Index) InsertBatch(ctx context.Context, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}
	return x.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO titles_fts(title, lemmas) VALUES(?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, r := range recs {
			if _, err := stmt.ExecContext(ctx, r.Title, r.Lemmas); err != nil {
				return fmt.Errorf("insert %q: %w", r.Title, err)
			}
		}
		return nil
	})
}

// Optimize merges the FTS5 b-tree segments into one.
func (x *Index) Optimize(ctx context.Context) error {
	if x.readOnly {
		return ErrReadOnly
	}
	_, err := x.db.ExecContext(ctx, `INSERT INTO titles_fts(titles_fts) VALUES('optimize')`)
	return err
}

// MarkComplete flags the index as fully built. Readers refuse indexes
// without this flag.
func (x *Index) MarkComplete(ctx context.Context, titles int) error {
	return x.WithTx(ctx, func(tx *sql.Tx) error {
		meta := map[string]string{
			"complete": "1",
			"built_at": time.Now().UTC().Format(time.RFC3339),
			"titles":   strconv.Itoa(titles),
		}
		for k, v := range meta {
			if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO index_meta(key, value) VALUES(?, ?)`, k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Complete reports whether the build finished.
func (x *Index) Complete(ctx context.Context) (bool, error) {
	v, err := (sqlm.Manager{}).Version(ctx, x.db)
	if err != nil {
		return false, err
	}
	if v < sqlm.LatestVersion {
		return false, nil
	}
	var val string
	err = x.db.QueryRowContext(ctx, `SELECT value FROM index_meta WHERE key='complete'`).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return val == "1", nil
}

// Count returns the number of indexed titles.
func (x *Index) Count(ctx context.Context) (int, error) {
	var n int
	err := x.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM titles_fts`).Scan(&n)
	return n, err
}

// Search runs an FTS5 MATCH expression and returns up to limit rows ordered
// by bm25 rank. Rows of equal rank come back in insertion order. A malformed
// expression is reported as an error by the engine.
func (x *Index) Search(ctx context.Context, expr string, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := x.db.QueryContext(ctx, `
            SELECT title, lemmas
            FROM titles_fts
            WHERE titles_fts MATCH ?
            ORDER BY rank, rowid
            LIMIT ?
        `, expr, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Title, &r.Lemmas); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
