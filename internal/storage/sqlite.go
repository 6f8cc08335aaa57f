package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/logger"
	"github.com/Epistemic-Technology/esa-assembly-mcp/models"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db  *sql.DB
	log logger.Logger
}

// NewSQLiteStore creates a new SQLite store. dbPath may be ":memory:" for a
// store that lives only as long as the process.
func NewSQLiteStore(dbPath string, log logger.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to :memory: opens a separate database
	if strings.Contains(dbPath, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	store := &SQLiteStore{db: db, log: log}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Debug("Artifact store opened at %s", dbPath)
	return store, nil
}

// initSchema creates the database tables if they don't exist
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS artifacts (
		job_id TEXT NOT NULL,
		name TEXT NOT NULL,
		mime_type TEXT NOT NULL,
		page_count INTEGER NOT NULL,
		size_bytes INTEGER NOT NULL,
		data BLOB NOT NULL,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (job_id, name)
	);

	CREATE INDEX IF NOT EXISTS idx_artifacts_job_id ON artifacts(job_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// StoreArtifact saves an artifact, replacing any artifact of the same job and name
func (s *SQLiteStore) StoreArtifact(ctx context.Context, artifact *Artifact) error {
	return s.CommitArtifacts(ctx, artifact.JobID, []*Artifact{artifact}, nil)
}

// GetArtifact retrieves an artifact by job ID and name
func (s *SQLiteStore) GetArtifact(ctx context.Context, jobID, name string) (*Artifact, error) {
	artifact := Artifact{JobID: jobID, Name: name}
	err := s.db.QueryRowContext(ctx, `
		SELECT mime_type, page_count, data, created_at FROM artifacts
		WHERE job_id = ? AND name = ?
	`, jobID, name).Scan(&artifact.MIMEType, &artifact.PageCount, &artifact.Data, &artifact.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s/%s", ErrArtifactNotFound, jobID, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query artifact: %w", err)
	}

	return &artifact, nil
}

// ListArtifacts returns information about every artifact stored for a job, oldest first
func (s *SQLiteStore) ListArtifacts(ctx context.Context, jobID string) ([]models.ArtifactInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, mime_type, page_count, size_bytes FROM artifacts
		WHERE job_id = ?
		ORDER BY created_at, rowid
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []models.ArtifactInfo
	for rows.Next() {
		var info models.ArtifactInfo
		if err := rows.Scan(&info.Name, &info.MIMEType, &info.PageCount, &info.SizeBytes); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		info.URI = ArtifactURI(jobID, info.Name)
		artifacts = append(artifacts, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating artifacts: %w", err)
	}

	return artifacts, nil
}

// CommitArtifacts saves put and removes the artifacts named in remove in a
// single transaction; missing names are ignored
func (s *SQLiteStore) CommitArtifacts(ctx context.Context, jobID string, put []*Artifact, remove []string) error {
	if len(put) == 0 && len(remove) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, artifact := range put {
		if artifact.JobID != jobID {
			return fmt.Errorf("artifact %s belongs to job %s, not %s", artifact.Name, artifact.JobID, jobID)
		}
		if artifact.CreatedAt.IsZero() {
			artifact.CreatedAt = time.Now().UTC()
		}
		_, err = tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO artifacts (job_id, name, mime_type, page_count, size_bytes, data, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, jobID, artifact.Name, artifact.MIMEType, artifact.PageCount,
			len(artifact.Data), artifact.Data, artifact.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert artifact %s: %w", artifact.Name, err)
		}
	}

	for _, name := range remove {
		if _, err := tx.ExecContext(ctx, `DELETE FROM artifacts WHERE job_id = ? AND name = ?`, jobID, name); err != nil {
			return fmt.Errorf("failed to delete artifact %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.Debug("Committed %d artifacts and removed %d for job %s", len(put), len(remove), jobID)
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ensure SQLiteStore implements Store interface
var _ Store = (*SQLiteStore)(nil)
