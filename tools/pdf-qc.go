package tools

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/logger"
	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/operations"
	"github.com/Epistemic-Technology/esa-assembly-mcp/models"
)

type PDFQCResponse struct {
	JobID   string              `json:"job_id"`
	Report  models.QCReport     `json:"report"`
	Summary models.ArtifactInfo `json:"summary"`
}

func PDFQCTool() *mcp.Tool {
	inputschema, err := jsonschema.For[JobQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "pdf-qc",
		Description: "Check the recompiled report against the original: page counts must match, and the leading pages are scanned for blank pages. Requires pdf-merge.",
		InputSchema: inputschema,
	}
}

func PDFQCToolHandler(ctx context.Context, req *mcp.CallToolRequest, query JobQuery, svc *operations.Service, log logger.Logger) (*mcp.CallToolResult, *PDFQCResponse, error) {
	log.Info("pdf-qc tool called")

	outcome, err := svc.RunQC(ctx, query.JobID)
	if err != nil {
		log.Error("pdf-qc tool failed: %v", err)
		return nil, nil, err
	}

	status := "PASSED"
	if !outcome.Report.QCPassed {
		status = "FAILED"
	}
	result := &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("QC %s for job %s: original %d pages, recompiled %d pages, %d potential blank pages. Summary: %s",
					status, query.JobID, outcome.Report.OriginalPages, outcome.Report.RecompiledPages,
					len(outcome.Report.BlankPages), outcome.Summary.URI),
			},
		},
	}
	return result, &PDFQCResponse{JobID: query.JobID, Report: outcome.Report, Summary: outcome.Summary}, nil
}
