package archiver

import (
	"context"
	"database/sql"
	"time"
)

// Manifest is a sqlite record of every download outcome of an archive run.
// The filesystem stays the source of truth for idempotence, the manifest
// only exists so flagged files can be found and inspected afterwards.
type Manifest struct {
	db *sql.DB
}

func NewManifest(database *sql.DB) *Manifest {
	return &Manifest{db: database}
}

func (m *Manifest) Record(ctx context.Context, outcome Outcome) error {
	_, err := m.db.ExecContext(
		ctx,
		`INSERT INTO download_outcome
			(local_path, source_url, byte_count, validated, message, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
		outcome.LocalPath,
		outcome.SourceUrl,
		outcome.ByteCount,
		outcome.Validated,
		outcome.Message,
		time.Now().Unix(),
	)
	return err
}

type ManifestEntry struct {
	LocalPath string
	SourceUrl string
	ByteCount int64
	Validated bool
	Message   string
	CreatedAt time.Time
}

func (m *Manifest) All(ctx context.Context) ([]ManifestEntry, error) {
	rows, err := m.db.QueryContext(
		ctx,
		`SELECT local_path, source_url, byte_count, validated, message, created_at
			FROM download_outcome ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ManifestEntry
	for rows.Next() {
		var e ManifestEntry
		var createdAt int64
		err := rows.Scan(&e.LocalPath, &e.SourceUrl, &e.ByteCount, &e.Validated, &e.Message, &createdAt)
		if err != nil {
			return nil, err
		}
		e.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Flagged returns the entries whose downloads failed content validation.
func (m *Manifest) Flagged(ctx context.Context) ([]ManifestEntry, error) {
	entries, err := m.All(ctx)
	if err != nil {
		return nil, err
	}
	var flagged []ManifestEntry
	for _, e := range entries {
		if !e.Validated {
			flagged = append(flagged, e)
		}
	}
	return flagged, nil
}
