package operations

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/documents"
	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/jobs"
	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/logger"
	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/storage"
	"github.com/Epistemic-Technology/esa-assembly-mcp/models"
)

func TestService_PDFReport(t *testing.T) {
	ctx := context.Background()
	log := logger.NewNoOpLogger()
	artifacts, err := storage.NewSQLiteStore(":memory:", log)
	if err != nil {
		t.Fatalf("Failed to create artifact store: %v", err)
	}
	t.Cleanup(func() { artifacts.Close() })

	codec := documents.NewPDFCodec(true)
	svc := NewService(jobs.NewStore(), codec, artifacts, nil, log, DefaultOptions())

	data, err := os.ReadFile(filepath.Join("..", "documents", "testdata", "esa-report-75.pdf"))
	if err != nil {
		t.Fatalf("Failed to read fixture: %v", err)
	}
	job, err := svc.CreateJob(ctx, IntakeRequest{RawData: data, Filename: "esa-report-75.pdf"})
	if err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	if job.PageCount != 75 {
		t.Fatalf("expected 75 pages, got %d", job.PageCount)
	}

	read, err := svc.ReadPages(job.JobID, []int{4, 10})
	if err != nil {
		t.Fatalf("ReadPages failed: %v", err)
	}
	if !strings.Contains(read[0].Text, "Written Report page 4") {
		t.Errorf("unexpected page 4 text %q", read[0].Text)
	}
	if read[1].Text != noTextMarker {
		t.Errorf("expected the no-text marker for page 10, got %q", read[1].Text)
	}

	split, merge, qc := runPipeline(t, svc, job.JobID, 4, 38)

	if split.WrittenReport.PageCount != 34 || split.Appendices.PageCount != 38 {
		t.Errorf("split page counts = %d/%d, want 34/38", split.WrittenReport.PageCount, split.Appendices.PageCount)
	}
	if merge.Recompiled.PageCount != 75 || merge.FrontMatterPages != 3 {
		t.Errorf("merge = %+v, want 75 pages with 3 front matter pages", merge)
	}
	if !qc.Report.QCPassed {
		t.Errorf("expected QC to pass, got %+v", qc.Report)
	}
	if fmt.Sprint(qc.Report.BlankPages) != "[10 40]" {
		t.Errorf("blank pages = %v, want [10 40]", qc.Report.BlankPages)
	}

	original, err := codec.Open(data)
	if err != nil {
		t.Fatalf("failed to open original: %v", err)
	}
	stored, err := svc.GetArtifact(ctx, job.JobID, models.ArtifactRecompiled)
	if err != nil {
		t.Fatalf("GetArtifact failed: %v", err)
	}
	recompiled, err := codec.Open(stored.Data)
	if err != nil {
		t.Fatalf("failed to open recompiled artifact: %v", err)
	}
	if recompiled.PageCount() != 75 {
		t.Fatalf("recompiled artifact has %d pages, want 75", recompiled.PageCount())
	}
	for i := 0; i < original.PageCount(); i++ {
		want, _ := original.PageText(i)
		got, _ := recompiled.PageText(i)
		if strings.Join(strings.Fields(got), " ") != strings.Join(strings.Fields(want), " ") {
			t.Errorf("page %d text changed: %q vs %q", i+1, want, got)
		}
	}

	for _, tt := range []struct {
		name  string
		pages int
		first string
	}{
		{models.ArtifactWrittenReport, 34, "Written Report page 4"},
		{models.ArtifactAppendices, 38, "Appendix page 38"},
	} {
		stored, err := svc.GetArtifact(ctx, job.JobID, tt.name)
		if err != nil {
			t.Fatalf("GetArtifact(%s) failed: %v", tt.name, err)
		}
		doc, err := codec.Open(stored.Data)
		if err != nil {
			t.Fatalf("failed to open %s: %v", tt.name, err)
		}
		if doc.PageCount() != tt.pages {
			t.Errorf("%s has %d pages, want %d", tt.name, doc.PageCount(), tt.pages)
		}
		if text, _ := doc.PageText(0); !strings.Contains(text, tt.first) {
			t.Errorf("%s starts with %q, want %q", tt.name, text, tt.first)
		}
	}

	summary, err := svc.GetArtifact(ctx, job.JobID, models.ArtifactQCSummary)
	if err != nil {
		t.Fatalf("GetArtifact failed: %v", err)
	}
	summaryDoc, err := codec.Open(summary.Data)
	if err != nil {
		t.Fatalf("failed to open QC summary: %v", err)
	}
	text, _ := summaryDoc.PageText(0)
	for _, want := range []string{"Status: QC PASSED", "Blank pages: [10, 40]"} {
		if !strings.Contains(text, want) {
			t.Errorf("QC summary missing %q:\n%s", want, text)
		}
	}
}
