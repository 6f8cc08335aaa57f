package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/documents"
	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/jobs"
	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/logger"
	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/operations"
	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/storage"
)

func newTestService(t *testing.T) *operations.Service {
	t.Helper()
	log := logger.NewNoOpLogger()
	store, err := storage.NewSQLiteStore(":memory:", log)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return operations.NewService(jobs.NewStore(), documents.NewMemoryCodec(), store, nil, log, operations.DefaultOptions())
}

func testDocument(t *testing.T, n int) []byte {
	t.Helper()
	pages := make([]documents.MemoryPage, n)
	for i := range pages {
		pages[i] = documents.MemoryPage{
			Content: []byte(fmt.Sprintf("page-%d", i+1)),
			Text:    fmt.Sprintf("Phase I Environmental Site Assessment, page %d", i+1),
		}
	}
	data, err := documents.SerializeMemoryDocument(pages...)
	if err != nil {
		t.Fatalf("Failed to serialize document: %v", err)
	}
	return data
}

func TestAssemble(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")
	var out bytes.Buffer

	err := assemble(context.Background(), newTestService(t), assembleRequest{
		Intake:     operations.IntakeRequest{RawData: testDocument(t, 60), Filename: "site.pdf"},
		Boundaries: operations.Boundaries{ExecSummaryPage: 3, AppendixStartPage: 30},
		OutDir:     outDir,
	}, &out)
	if err != nil {
		t.Fatalf("assemble failed: %v\n%s", err, out.String())
	}

	for _, name := range []string{"written_report.pdf", "appendices.pdf", "recompiled.pdf", "qc_summary.pdf"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("expected %s to be written: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(outDir, "original.pdf")); err == nil {
		t.Error("the original document should not be written")
	}

	recompiled, err := os.ReadFile(filepath.Join(outDir, "recompiled.pdf"))
	if err != nil {
		t.Fatalf("failed to read recompiled.pdf: %v", err)
	}
	doc, err := documents.NewMemoryCodec().Open(recompiled)
	if err != nil || doc.PageCount() != 60 {
		t.Errorf("recompiled.pdf is not the 60 page document: %v", err)
	}

	for _, want := range []string{"site.pdf, 60 pages", "written report 3-29, appendices 30-60", "QC passed"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestAssemble_InvalidBoundaries(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")
	var out bytes.Buffer

	err := assemble(context.Background(), newTestService(t), assembleRequest{
		Intake:     operations.IntakeRequest{RawData: testDocument(t, 10)},
		Boundaries: operations.Boundaries{ExecSummaryPage: 4, AppendixStartPage: 11},
		OutDir:     outDir,
	}, &out)
	if !jobs.IsKind(err, jobs.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := os.Stat(outDir); err == nil {
		t.Error("no output should be written for invalid boundaries")
	}
}

func TestAssemble_ShortSectionsWarn(t *testing.T) {
	var out bytes.Buffer
	err := assemble(context.Background(), newTestService(t), assembleRequest{
		Intake:     operations.IntakeRequest{RawData: testDocument(t, 12)},
		Boundaries: operations.Boundaries{ExecSummaryPage: 2, AppendixStartPage: 6},
		OutDir:     t.TempDir(),
	}, &out)
	if err != nil && !errors.Is(err, errQCFailed) {
		t.Fatalf("assemble failed: %v", err)
	}
	if strings.Count(out.String(), "Warning: ") != 2 {
		t.Errorf("expected two warnings:\n%s", out.String())
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)
	if !strings.HasPrefix(out.String(), "esa-assembly "+version) {
		t.Errorf("unexpected version output %q", out.String())
	}
}
