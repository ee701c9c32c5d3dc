package sqliteutil

import (
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"
)

// OpenDB opens the sqlite database at `path` and applies `schema` to it.
// An already-applied schema is not an error.
func OpenDB(schema, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	_, err = db.Exec(schema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		db.Close()
		return nil, err
	}
	return db, nil
}
