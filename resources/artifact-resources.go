package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/jobs"
	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/operations"
	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/storage"
	"github.com/Epistemic-Technology/esa-assembly-mcp/models"
)

// JobsURI lists every job with its stage
const JobsURI = storage.URIScheme + "://jobs"

// ArtifactResourceHandler serves job artifacts as MCP resources
type ArtifactResourceHandler struct {
	svc *operations.Service
}

// NewArtifactResourceHandler creates a new artifact resource handler
func NewArtifactResourceHandler(svc *operations.Service) *ArtifactResourceHandler {
	return &ArtifactResourceHandler{svc: svc}
}

// ReadResource reads an artifact by its esa://{jobId}/{artifact} URI as a blob
func (h *ArtifactResourceHandler) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	jobID, name, err := storage.ParseArtifactURI(uri)
	if err != nil {
		return nil, err
	}

	artifact, err := h.svc.GetArtifact(ctx, jobID, name)
	if jobs.IsKind(err, jobs.KindNotFound) {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: artifact.MIMEType,
				Blob:     artifact.Data,
			},
		},
	}, nil
}

// ReadJobs returns a JSON index of the jobs and their artifacts
func (h *ArtifactResourceHandler) ReadJobs(ctx context.Context) (*mcp.ReadResourceResult, error) {
	type jobEntry struct {
		models.JobInfo
		Artifacts []models.ArtifactInfo `json:"artifacts"`
	}

	entries := []jobEntry{}
	for _, job := range h.svc.ListJobs() {
		artifacts, err := h.svc.ListArtifacts(ctx, job.JobID)
		if err != nil {
			return nil, fmt.Errorf("failed to list artifacts of job %s: %w", job.JobID, err)
		}
		entries = append(entries, jobEntry{JobInfo: job, Artifacts: artifacts})
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal jobs: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      JobsURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		},
	}, nil
}
