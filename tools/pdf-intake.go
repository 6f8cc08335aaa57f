package tools

import (
	"context"
	"fmt"
	"math"
	"reflect"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/logger"
	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/operations"
	"github.com/Epistemic-Technology/esa-assembly-mcp/models"
)

type PDFIntakeQuery struct {
	RawData  []byte `json:"raw_data,omitempty" jsonschema:"the PDF file contents, base64 encoded"`
	URL      string `json:"url,omitempty" jsonschema:"an HTTP(S) URL to download the PDF from"`
	ZoteroID string `json:"zotero_id,omitempty" jsonschema:"a Zotero attachment key"`
	Filename string `json:"filename,omitempty" jsonschema:"name to record for the document"`
}

type PDFIntakeResponse struct {
	JobID     string            `json:"job_id"`
	Filename  string            `json:"filename"`
	PageCount int               `json:"page_count"`
	SizeBytes int64             `json:"size_bytes"`
	SizeMB    float64           `json:"size_mb"`
	Source    models.SourceInfo `json:"source,omitempty"`
	Status    string            `json:"status"`
}

func PDFIntakeTool() *mcp.Tool {
	inputschema, err := jsonschema.For[PDFIntakeQuery](&jsonschema.ForOptions{
		// []byte travels as a base64 string in JSON, not as an array of numbers
		TypeSchemas: map[reflect.Type]*jsonschema.Schema{
			reflect.TypeFor[[]byte](): {Type: "string", ContentEncoding: "base64"},
		},
	})
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "pdf-intake",
		Description: "Load a Phase I ESA report PDF and create an assembly job. Provide exactly one of raw_data, url or zotero_id. Returns the job id and page count used by every other tool.",
		InputSchema: inputschema,
	}
}

func PDFIntakeToolHandler(ctx context.Context, req *mcp.CallToolRequest, query PDFIntakeQuery, svc *operations.Service, log logger.Logger) (*mcp.CallToolResult, *PDFIntakeResponse, error) {
	log.Info("pdf-intake tool called")

	info, err := svc.CreateJob(ctx, operations.IntakeRequest{
		RawData:  query.RawData,
		Source:   models.SourceInfo{URL: query.URL, ZoteroID: query.ZoteroID},
		Filename: query.Filename,
	})
	if err != nil {
		log.Error("pdf-intake tool failed: %v", err)
		return nil, nil, err
	}

	response := &PDFIntakeResponse{
		JobID:     info.JobID,
		Filename:  info.Filename,
		PageCount: info.PageCount,
		SizeBytes: info.SizeBytes,
		SizeMB:    math.Round(float64(info.SizeBytes)/(1024*1024)*100) / 100,
		Source:    info.SourceInfo,
		Status:    "loaded",
	}

	result := &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Text: fmt.Sprintf("Loaded %s (%d pages, %.2f MB) as job %s. Read pages with pdf-page-read to locate the executive summary and first appendix.",
					response.Filename, response.PageCount, response.SizeMB, response.JobID),
			},
		},
	}
	return result, response, nil
}
