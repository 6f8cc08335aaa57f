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

// JobQuery is the input of the tools that only need a job
type JobQuery struct {
	JobID string `json:"job_id" jsonschema:"the job returned by pdf-intake"`
}

type PDFSplitResponse struct {
	JobID         string              `json:"job_id"`
	WrittenReport models.ArtifactInfo `json:"written_report"`
	Appendices    models.ArtifactInfo `json:"appendices"`
	Structure     models.Structure    `json:"structure"`
}

func PDFSplitTool() *mcp.Tool {
	inputschema, err := jsonschema.For[JobQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "pdf-split",
		Description: "Split a job's document into the written report and appendices PDFs using the resolved structure. Requires structure-detect.",
		InputSchema: inputschema,
	}
}

func PDFSplitToolHandler(ctx context.Context, req *mcp.CallToolRequest, query JobQuery, svc *operations.Service, log logger.Logger) (*mcp.CallToolResult, *PDFSplitResponse, error) {
	log.Info("pdf-split tool called")

	outcome, err := svc.Split(ctx, query.JobID)
	if err != nil {
		log.Error("pdf-split tool failed: %v", err)
		return nil, nil, err
	}

	result := &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("Split job %s: written report %d pages (%s), appendices %d pages (%s).",
					query.JobID,
					outcome.WrittenReport.PageCount, outcome.WrittenReport.URI,
					outcome.Appendices.PageCount, outcome.Appendices.URI),
			},
		},
	}
	return result, &PDFSplitResponse{
		JobID:         query.JobID,
		WrittenReport: outcome.WrittenReport,
		Appendices:    outcome.Appendices,
		Structure:     outcome.Structure,
	}, nil
}
