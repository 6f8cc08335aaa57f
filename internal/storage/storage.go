package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Epistemic-Technology/esa-assembly-mcp/models"
)

// ErrArtifactNotFound is returned when a job has no artifact with the requested name
var ErrArtifactNotFound = errors.New("artifact not found")

// Artifact is a stored document produced for a job
type Artifact struct {
	JobID     string
	Name      string
	MIMEType  string
	PageCount int
	Data      []byte
	CreatedAt time.Time
}

// Info describes the artifact without its data
func (a *Artifact) Info() models.ArtifactInfo {
	return models.ArtifactInfo{
		Name:      a.Name,
		PageCount: a.PageCount,
		MIMEType:  a.MIMEType,
		SizeBytes: int64(len(a.Data)),
		URI:       ArtifactURI(a.JobID, a.Name),
	}
}

// Store defines the interface for storing and retrieving job artifacts
type Store interface {
	// StoreArtifact saves an artifact, replacing any artifact of the same job and name
	StoreArtifact(ctx context.Context, artifact *Artifact) error

	// GetArtifact retrieves an artifact by job ID and name
	GetArtifact(ctx context.Context, jobID, name string) (*Artifact, error)

	// ListArtifacts returns information about every artifact stored for a job, oldest first
	ListArtifacts(ctx context.Context, jobID string) ([]models.ArtifactInfo, error)

	// CommitArtifacts saves put and removes the artifacts named in remove in a
	// single transaction; missing names are ignored
	CommitArtifacts(ctx context.Context, jobID string, put []*Artifact, remove []string) error

	// Close closes the database connection
	Close() error
}
