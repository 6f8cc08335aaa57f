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

type PDFMergeResponse struct {
	JobID              string              `json:"job_id"`
	Recompiled         models.ArtifactInfo `json:"recompiled"`
	FrontMatterPages   int                 `json:"front_matter_pages"`
	WrittenReportPages int                 `json:"written_report_pages"`
	AppendicesPages    int                 `json:"appendices_pages"`
}

func PDFMergeTool() *mcp.Tool {
	inputschema, err := jsonschema.For[JobQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "pdf-merge",
		Description: "Recompile the full report from the original front matter, the written report and the appendices. Requires pdf-split.",
		InputSchema: inputschema,
	}
}

func PDFMergeToolHandler(ctx context.Context, req *mcp.CallToolRequest, query JobQuery, svc *operations.Service, log logger.Logger) (*mcp.CallToolResult, *PDFMergeResponse, error) {
	log.Info("pdf-merge tool called")

	outcome, err := svc.Merge(ctx, query.JobID)
	if err != nil {
		log.Error("pdf-merge tool failed: %v", err)
		return nil, nil, err
	}

	result := &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("Recompiled job %s into %d pages (%d front matter + %d written report + %d appendices): %s",
					query.JobID, outcome.Recompiled.PageCount,
					outcome.FrontMatterPages, outcome.WrittenReportPages, outcome.AppendicesPages,
					outcome.Recompiled.URI),
			},
		},
	}
	return result, &PDFMergeResponse{
		JobID:              query.JobID,
		Recompiled:         outcome.Recompiled,
		FrontMatterPages:   outcome.FrontMatterPages,
		WrittenReportPages: outcome.WrittenReportPages,
		AppendicesPages:    outcome.AppendicesPages,
	}, nil
}
