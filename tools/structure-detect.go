package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/logger"
	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/operations"
	"github.com/Epistemic-Technology/esa-assembly-mcp/models"
)

type StructureDetectQuery struct {
	JobID             string `json:"job_id" jsonschema:"the job returned by pdf-intake"`
	ExecSummaryPage   int    `json:"exec_summary_page" jsonschema:"1-indexed page where the executive summary begins"`
	AppendixStartPage int    `json:"appendix_start_page" jsonschema:"1-indexed page where the first appendix begins"`
	Reasoning         string `json:"reasoning,omitempty" jsonschema:"why these pages were chosen"`
}

type StructureDetectResponse struct {
	JobID     string            `json:"job_id"`
	Structure *models.Structure `json:"structure"`
}

func StructureDetectTool() *mcp.Tool {
	inputschema, err := jsonschema.For[StructureDetectQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "structure-detect",
		Description: "Record the executive summary and first appendix pages of a job's document, producing front matter, written report and appendices page ranges with a confidence score. Re-running replaces the structure and discards any split, merge or QC results.",
		InputSchema: inputschema,
	}
}

func StructureDetectToolHandler(ctx context.Context, req *mcp.CallToolRequest, query StructureDetectQuery, svc *operations.Service, log logger.Logger) (*mcp.CallToolResult, *StructureDetectResponse, error) {
	log.Info("structure-detect tool called")

	structure, err := svc.ResolveStructure(ctx, query.JobID, operations.Boundaries{
		ExecSummaryPage:   query.ExecSummaryPage,
		AppendixStartPage: query.AppendixStartPage,
		Reasoning:         query.Reasoning,
	})
	if err != nil {
		log.Error("structure-detect tool failed: %v", err)
		return nil, nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Structure resolved for job %s (confidence %.2f).\n", query.JobID, structure.Confidence)
	if structure.FrontMatterRange.IsEmpty() {
		b.WriteString("Front matter: none\n")
	} else {
		fmt.Fprintf(&b, "Front matter: pages %d-%d\n", structure.FrontMatterRange.Start, structure.FrontMatterRange.End)
	}
	fmt.Fprintf(&b, "Written report: pages %d-%d (%d pages)\n",
		structure.WrittenReportRange.Start, structure.WrittenReportRange.End, structure.WrittenReportRange.Len())
	fmt.Fprintf(&b, "Appendices: pages %d-%d (%d pages)", structure.AppendicesRange.Start, structure.AppendicesRange.End, structure.AppendicesRange.Len())
	for _, w := range structure.Warnings {
		fmt.Fprintf(&b, "\nWarning: %s", w)
	}

	result := &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: b.String()}},
	}
	return result, &StructureDetectResponse{JobID: query.JobID, Structure: structure}, nil
}
