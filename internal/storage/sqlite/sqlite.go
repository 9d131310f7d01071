package sqlite

import (
	_ "embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

// New opens (or creates) a sqlite database at storagePath and applies the
// embedded schema. Used by the local chat cache and by repo tests; the
// statements are idempotent, so reopening an existing file is safe.
func New(storagePath string) (*sqlx.DB, error) {
	const op = "storage.sqlite.New"

	db, err := sqlx.Open("sqlite3", storagePath+"?_loc=auto&_fk=on")
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", op, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: apply schema: %w", op, err)
	}

	return db, nil
}
