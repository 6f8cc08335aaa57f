package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

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

func connect(t *testing.T) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	log := logger.NewNoOpLogger()

	store, err := storage.NewSQLiteStore(":memory:", log)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	svc := operations.NewService(jobs.NewStore(), documents.NewMemoryCodec(), store, nil, log, operations.DefaultOptions())

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := CreateServer(svc, log, "test").Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("Failed to connect server: %v", err)
	}
	t.Cleanup(func() { ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("Failed to connect client: %v", err)
	}
	t.Cleanup(func() { cs.Close() })
	return cs
}

func callTool[T any](t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *T {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	if res.IsError {
		t.Fatalf("%s returned a tool error: %s", name, toolText(res))
	}
	data, err := json.Marshal(res.StructuredContent)
	if err != nil {
		t.Fatalf("%s: failed to marshal structured content: %v", name, err)
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("%s: failed to decode structured content: %v", name, err)
	}
	return &out
}

func toolText(res *mcp.CallToolResult) string {
	var parts []string
	for _, c := range res.Content {
		if text, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func testPages(n int) []documents.MemoryPage {
	pages := make([]documents.MemoryPage, n)
	for i := range pages {
		pages[i] = documents.MemoryPage{
			Content: []byte(fmt.Sprintf("page-%d", i+1)),
			Text:    fmt.Sprintf("Phase I Environmental Site Assessment, page %d", i+1),
		}
	}
	return pages
}

func TestServer_ListTools(t *testing.T) {
	cs := connect(t)
	res, err := cs.ListTools(context.Background(), &mcp.ListToolsParams{})
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}

	names := make(map[string]bool)
	for _, tool := range res.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"pdf-intake", "pdf-page-read", "structure-detect", "pdf-split", "pdf-merge", "pdf-qc", "artifacts-list"} {
		if !names[want] {
			t.Errorf("tool %s not registered", want)
		}
	}
}

func TestServer_Pipeline(t *testing.T) {
	ctx := context.Background()
	cs := connect(t)

	pages := testPages(40)
	data, err := documents.SerializeMemoryDocument(pages...)
	if err != nil {
		t.Fatalf("Failed to serialize document: %v", err)
	}

	intake := callTool[tools.PDFIntakeResponse](t, cs, "pdf-intake", map[string]any{
		"raw_data": base64.StdEncoding.EncodeToString(data),
		"filename": "site.pdf",
	})
	if intake.PageCount != 40 {
		t.Fatalf("expected 40 pages, got %d", intake.PageCount)
	}
	job := map[string]any{"job_id": intake.JobID}

	callTool[tools.StructureDetectResponse](t, cs, "structure-detect", map[string]any{
		"job_id":              intake.JobID,
		"exec_summary_page":   3,
		"appendix_start_page": 19,
	})
	split := callTool[tools.PDFSplitResponse](t, cs, "pdf-split", job)
	if split.WrittenReport.PageCount != 16 || split.Appendices.PageCount != 22 {
		t.Errorf("unexpected split %+v", split)
	}
	merge := callTool[tools.PDFMergeResponse](t, cs, "pdf-merge", job)
	qc := callTool[tools.PDFQCResponse](t, cs, "pdf-qc", job)
	if !qc.Report.QCPassed {
		t.Errorf("expected QC to pass, got %+v", qc.Report)
	}

	res, err := cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: merge.Recompiled.URI})
	if err != nil {
		t.Fatalf("ReadResource failed: %v", err)
	}
	if len(res.Contents) != 1 || res.Contents[0].MIMEType != "application/pdf" {
		t.Fatalf("unexpected resource contents %+v", res.Contents)
	}
	recompiled, err := documents.NewMemoryCodec().Open(res.Contents[0].Blob)
	if err != nil {
		t.Fatalf("failed to open recompiled blob: %v", err)
	}
	for i := range pages {
		page, _ := recompiled.Page(i)
		if !bytes.Equal(page.Data(), pages[i].Content) {
			t.Errorf("page %d differs after the round trip", i+1)
		}
	}

	res, err = cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: qc.Summary.URI})
	if err != nil {
		t.Fatalf("ReadResource failed: %v", err)
	}
	if res.Contents[0].MIMEType != "application/pdf" {
		t.Fatalf("unexpected QC summary MIME type %s", res.Contents[0].MIMEType)
	}
	summary, err := documents.NewPDFCodec(false).Open(res.Contents[0].Blob)
	if err != nil {
		t.Fatalf("failed to open QC summary: %v", err)
	}
	if text, _ := summary.PageText(0); !strings.Contains(text, "Status: QC PASSED") {
		t.Errorf("unexpected QC summary:\n%s", text)
	}

	res, err = cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: resources.JobsURI})
	if err != nil {
		t.Fatalf("ReadResource(%s) failed: %v", resources.JobsURI, err)
	}
	if !strings.Contains(res.Contents[0].Text, intake.JobID) || !strings.Contains(res.Contents[0].Text, `"stage": "qced"`) {
		t.Errorf("unexpected jobs index:\n%s", res.Contents[0].Text)
	}
}

func TestServer_ToolErrors(t *testing.T) {
	cs := connect(t)
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "pdf-split",
		Arguments: map[string]any{"job_id": "missing"},
	})
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	if !res.IsError || !strings.Contains(toolText(res), "not_found: job not found") {
		t.Errorf("expected a not found tool error, got %+v", res)
	}
}

func TestServer_MissingArtifact(t *testing.T) {
	cs := connect(t)
	_, err := cs.ReadResource(context.Background(), &mcp.ReadResourceParams{URI: storage.ArtifactURI("missing", "recompiled")})
	if err == nil {
		t.Error("expected an error for a missing artifact")
	}
}

func TestPipelineOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.QC.BlankScanLimit = 75
	cfg.Structure.Penalty = 0.2

	opts := PipelineOptions(cfg)
	if opts.QC.BlankScanLimit != 75 || opts.QC.MaxBlankPages != 20 || opts.QC.MinTextChars != 10 {
		t.Errorf("unexpected QC options %+v", opts.QC)
	}
	if opts.Confidence.Base != 0.85 || opts.Confidence.Penalty != 0.2 {
		t.Errorf("unexpected confidence policy %+v", opts.Confidence)
	}

	defaults := PipelineOptions(config.DefaultConfig())
	if defaults != operations.DefaultOptions() {
		t.Errorf("default configuration should match default options: %+v vs %+v", defaults, operations.DefaultOptions())
	}
}

func TestNewService(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.DBPath = t.TempDir() + "/nested/artifacts.db"

	svc, store, err := NewService(cfg, logger.NewNoOpLogger())
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	defer store.Close()

	if _, err := svc.CreateJob(context.Background(), operations.IntakeRequest{RawData: []byte("not a pdf")}); !jobs.IsKind(err, jobs.KindIO) {
		t.Errorf("expected the PDF codec to reject the data, got %v", err)
	}
}
