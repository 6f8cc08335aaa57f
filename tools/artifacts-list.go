package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/logger"
	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/operations"
	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/storage"
	"github.com/Epistemic-Technology/esa-assembly-mcp/models"
)

type ArtifactsListResponse struct {
	JobID         string                `json:"job_id"`
	Stage         string                `json:"stage"`
	Artifacts     []models.ArtifactInfo `json:"artifacts"`
	ResourcePaths []string              `json:"resource_paths"`
	Count         int                   `json:"count"`
}

func ArtifactsListTool() *mcp.Tool {
	inputschema, err := jsonschema.For[JobQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "artifacts-list",
		Description: "List the artifacts a job has produced so far, with page counts and the resource URIs to download them.",
		InputSchema: inputschema,
	}
}

func ArtifactsListToolHandler(ctx context.Context, req *mcp.CallToolRequest, query JobQuery, svc *operations.Service, log logger.Logger) (*mcp.CallToolResult, *ArtifactsListResponse, error) {
	log.Info("artifacts-list tool called")

	artifacts, err := svc.ListArtifacts(ctx, query.JobID)
	if err != nil {
		log.Error("artifacts-list tool failed: %v", err)
		return nil, nil, err
	}
	info, err := svc.Job(query.JobID)
	if err != nil {
		log.Error("artifacts-list tool failed: %v", err)
		return nil, nil, err
	}

	resourcePaths := storage.CalculateResourcePaths(query.JobID, artifacts)

	var b strings.Builder
	fmt.Fprintf(&b, "Job %s (%s) has %d artifacts", query.JobID, info.Stage, len(artifacts))
	for i, a := range artifacts {
		fmt.Fprintf(&b, "\n- %s: %d pages, %d bytes, %s", a.Name, a.PageCount, a.SizeBytes, resourcePaths[i])
	}

	result := &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: b.String()}},
	}
	return result, &ArtifactsListResponse{
		JobID:         query.JobID,
		Stage:         info.Stage,
		Artifacts:     artifacts,
		ResourcePaths: resourcePaths,
		Count:         len(artifacts),
	}, nil
}
