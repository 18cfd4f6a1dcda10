package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrator applies the base schema: the trigram full-text table that holds
// one row per indexed title. Caller provides opened *sql.DB.
type Migrator struct{}

func (m Migrator) Up(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		// trigram tokens match substrings regardless of word boundaries, which
		// is what inflected Russian needs
		`CREATE VIRTUAL TABLE IF NOT EXISTS titles_fts USING fts5(
            title, lemmas,
            tokenize = 'trigram'
        );`,
	}
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	return nil
}
