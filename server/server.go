package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/config"
	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/documents"
	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/jobs"
	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/logger"
	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/operations"
	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/storage"
	"github.com/Epistemic-Technology/esa-assembly-mcp/resources"
	"github.com/Epistemic-Technology/esa-assembly-mcp/tools"
)

// Name is the implementation name reported to MCP clients
const Name = "esa-assembly-mcp"

func CreateServer(svc *operations.Service, log logger.Logger, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: Name, Version: version}, nil)
	log = log.Named("tools")

	artifactResourceHandler := resources.NewArtifactResourceHandler(svc)

	// Register tools with the pipeline service and logger dependencies
	mcp.AddTool(server, tools.PDFIntakeTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.PDFIntakeQuery) (*mcp.CallToolResult, *tools.PDFIntakeResponse, error) {
		return tools.PDFIntakeToolHandler(ctx, req, query, svc, log)
	})

	mcp.AddTool(server, tools.PDFPageReadTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.PDFPageReadQuery) (*mcp.CallToolResult, *tools.PDFPageReadResponse, error) {
		return tools.PDFPageReadToolHandler(ctx, req, query, svc, log)
	})

	mcp.AddTool(server, tools.StructureDetectTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.StructureDetectQuery) (*mcp.CallToolResult, *tools.StructureDetectResponse, error) {
		return tools.StructureDetectToolHandler(ctx, req, query, svc, log)
	})

	mcp.AddTool(server, tools.PDFSplitTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.JobQuery) (*mcp.CallToolResult, *tools.PDFSplitResponse, error) {
		return tools.PDFSplitToolHandler(ctx, req, query, svc, log)
	})

	mcp.AddTool(server, tools.PDFMergeTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.JobQuery) (*mcp.CallToolResult, *tools.PDFMergeResponse, error) {
		return tools.PDFMergeToolHandler(ctx, req, query, svc, log)
	})

	mcp.AddTool(server, tools.PDFQCTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.JobQuery) (*mcp.CallToolResult, *tools.PDFQCResponse, error) {
		return tools.PDFQCToolHandler(ctx, req, query, svc, log)
	})

	mcp.AddTool(server, tools.ArtifactsListTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.JobQuery) (*mcp.CallToolResult, *tools.ArtifactsListResponse, error) {
		return tools.ArtifactsListToolHandler(ctx, req, query, svc, log)
	})

	// Template for job artifacts
	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: storage.ArtifactURITemplate,
		Name:        "esa-artifact",
		Description: "A document produced by an assembly job: written_report, appendices, recompiled or qc_summary, each a PDF",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return artifactResourceHandler.ReadResource(ctx, req.Params.URI)
	})

	server.AddResource(&mcp.Resource{
		URI:         resources.JobsURI,
		Name:        "esa-jobs",
		Description: "Every assembly job with its stage and artifacts",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return artifactResourceHandler.ReadJobs(ctx)
	})

	return server
}

// PipelineOptions converts configuration into pipeline constants
func PipelineOptions(cfg *config.Config) operations.Options {
	return operations.Options{
		Confidence: operations.ConfidencePolicy{
			Base:               cfg.Structure.BaseConfidence,
			Penalty:            cfg.Structure.Penalty,
			ShortWrittenPages:  cfg.Structure.ShortWrittenPages,
			ShortAppendixPages: cfg.Structure.ShortAppendixPages,
		},
		QC: operations.QCOptions{
			BlankScanLimit: cfg.QC.BlankScanLimit,
			MaxBlankPages:  cfg.QC.MaxBlankPages,
			MinTextChars:   cfg.QC.MinTextChars,
		},
	}
}

// NewService builds the pipeline service and the artifact store it writes
// to. The caller closes the store.
func NewService(cfg *config.Config, log logger.Logger) (*operations.Service, storage.Store, error) {
	store, err := initializeStorage(cfg.Storage.DBPath, log)
	if err != nil {
		return nil, nil, err
	}

	fetcher := documents.NewFetcher(documents.FetchConfig{
		Attempts:        cfg.Fetch.Attempts,
		Timeout:         cfg.Fetch.Timeout,
		MaxBytes:        cfg.Fetch.MaxBytes,
		ZoteroAPIKey:    cfg.Zotero.APIKey,
		ZoteroLibraryID: cfg.Zotero.LibraryID,
	})

	svc := operations.NewService(
		jobs.NewStore(),
		documents.NewPDFCodec(cfg.PDF.RelaxedValidation),
		store,
		fetcher,
		log,
		PipelineOptions(cfg),
	)
	return svc, store, nil
}

// initializeStorage creates and initializes the artifact store
func initializeStorage(dbPath string, log logger.Logger) (storage.Store, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}
	if !strings.Contains(dbPath, ":memory:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	log.Info("Initializing SQLite artifact store at: %s", dbPath)

	store, err := storage.NewSQLiteStore(dbPath, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQLite store: %w", err)
	}
	return store, nil
}
