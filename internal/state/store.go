// Package state persists the ingestion_history table used for change
// detection (spec §5/§6): one row per document_id recording the content
// hash and timestamp of its last successful ingestion. Grounded on the
// aruntemme-go-rag storage layer's use of database/sql over
// mattn/go-sqlite3, generalized from its single-table chunk store to the
// document-level fingerprint rows this pipeline needs.
package state

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"qdrantloader/internal/apperror"
	"qdrantloader/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS ingestion_history (
	document_id    TEXT PRIMARY KEY,
	project_id     TEXT NOT NULL,
	source_type    TEXT NOT NULL,
	source         TEXT NOT NULL,
	content_hash   TEXT NOT NULL,
	last_ingest_at TEXT NOT NULL,
	last_known_url  TEXT,
	last_known_name TEXT
);
CREATE INDEX IF NOT EXISTS idx_ingestion_history_project ON ingestion_history(project_id, source_type, source);
`

// Store wraps a *sql.DB bound to the ingestion_history table.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if absent) the sqlite database at path and
// applies the schema. maxOpenConns bounds the connection pool (spec §6
// connection_pool_size).
func Open(path string, maxOpenConns int) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, apperror.Wrap(apperror.KindConfiguration, "opening state db", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, apperror.Wrap(apperror.KindConfiguration, "applying state schema", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Get returns the persisted state for documentID, or ok=false if none exists.
func (s *Store) Get(ctx context.Context, documentID string) (model.IngestionState, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT document_id, project_id, source_type, source, content_hash, last_ingest_at, last_known_url, last_known_name
		FROM ingestion_history WHERE document_id = ?`, documentID)

	var st model.IngestionState
	var url, name sql.NullString
	err := row.Scan(&st.DocumentID, &st.ProjectID, &st.SourceType, &st.Source, &st.ContentHash, &st.LastIngestAt, &url, &name)
	if err == sql.ErrNoRows {
		return model.IngestionState{}, false, nil
	}
	if err != nil {
		return model.IngestionState{}, false, apperror.Wrap(apperror.KindIntegrity, "reading ingestion state", err)
	}
	st.LastKnownURL = url.String
	st.LastKnownName = name.String
	return st, true, nil
}

// Upsert inserts or replaces the row for st.DocumentID.
func (s *Store) Upsert(ctx context.Context, st model.IngestionState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingestion_history (document_id, project_id, source_type, source, content_hash, last_ingest_at, last_known_url, last_known_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			project_id = excluded.project_id,
			source_type = excluded.source_type,
			source = excluded.source,
			content_hash = excluded.content_hash,
			last_ingest_at = excluded.last_ingest_at,
			last_known_url = excluded.last_known_url,
			last_known_name = excluded.last_known_name`,
		st.DocumentID, st.ProjectID, st.SourceType, st.Source, st.ContentHash, st.LastIngestAt, st.LastKnownURL, st.LastKnownName)
	if err != nil {
		return apperror.Wrap(apperror.KindIntegrity, "upserting ingestion state", err)
	}
	return nil
}

// Delete removes the row for documentID, used once its vector points have
// been purged for a detected deletion (spec §5 delete handling).
func (s *Store) Delete(ctx context.Context, documentID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM ingestion_history WHERE document_id = ?`, documentID); err != nil {
		return apperror.Wrap(apperror.KindIntegrity, "deleting ingestion state", err)
	}
	return nil
}

// ListBySource returns all known states for a given project/source, used by
// change detection to find documents that disappeared from the source
// (spec §5: deletions are detected by absence, not by an explicit signal).
func (s *Store) ListBySource(ctx context.Context, projectID, sourceType, source string) ([]model.IngestionState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, project_id, source_type, source, content_hash, last_ingest_at, last_known_url, last_known_name
		FROM ingestion_history WHERE project_id = ? AND source_type = ? AND source = ?`,
		projectID, sourceType, source)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindIntegrity, "listing ingestion state", err)
	}
	defer rows.Close()

	var out []model.IngestionState
	for rows.Next() {
		var st model.IngestionState
		var url, name sql.NullString
		if err := rows.Scan(&st.DocumentID, &st.ProjectID, &st.SourceType, &st.Source, &st.ContentHash, &st.LastIngestAt, &url, &name); err != nil {
			return nil, apperror.Wrap(apperror.KindIntegrity, "scanning ingestion state row", err)
		}
		st.LastKnownURL = url.String
		st.LastKnownName = name.String
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Wrap(apperror.KindIntegrity, "iterating ingestion state rows", err)
	}
	return out, nil
}

// Ping verifies connectivity, used by the readiness path of the pipeline
// startup sequence.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return apperror.Wrap(apperror.KindConnection, "pinging state db", err)
	}
	return nil
}
