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

type PDFPageReadQuery struct {
	JobID       string `json:"job_id" jsonschema:"the job returned by pdf-intake"`
	PageNumbers []int  `json:"page_numbers" jsonschema:"1-indexed pages to read"`
}

type PDFPageReadResponse struct {
	JobID      string            `json:"job_id"`
	TotalPages int               `json:"total_pages"`
	Pages      []models.PageText `json:"pages"`
}

func PDFPageReadTool() *mcp.Tool {
	inputschema, err := jsonschema.For[PDFPageReadQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "pdf-page-read",
		Description: "Read the extracted text of specific pages of a job's original document. Long pages are truncated and page numbers outside the document are flagged as invalid.",
		InputSchema: inputschema,
	}
}

func PDFPageReadToolHandler(ctx context.Context, req *mcp.CallToolRequest, query PDFPageReadQuery, svc *operations.Service, log logger.Logger) (*mcp.CallToolResult, *PDFPageReadResponse, error) {
	log.Info("pdf-page-read tool called")

	info, err := svc.Job(query.JobID)
	if err != nil {
		log.Error("pdf-page-read tool failed: %v", err)
		return nil, nil, err
	}
	pages, err := svc.ReadPages(query.JobID, query.PageNumbers)
	if err != nil {
		log.Error("pdf-page-read tool failed: %v", err)
		return nil, nil, err
	}

	valid := 0
	for _, p := range pages {
		if p.Valid {
			valid++
		}
	}

	response := &PDFPageReadResponse{
		JobID:      query.JobID,
		TotalPages: info.PageCount,
		Pages:      pages,
	}
	result := &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("Read %d of %d requested pages from job %s (%d pages total).", valid, len(pages), query.JobID, info.PageCount),
			},
		},
	}
	return result, response, nil
}
