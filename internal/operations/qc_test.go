package operations

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/documents"
)

// reportPages builds a document of n pages with enough text to pass the
// blank scan, except for the listed 1-indexed blank pages
func reportPages(n int, blank ...int) []documents.MemoryPage {
	isBlank := make(map[int]bool)
	for _, b := range blank {
		isBlank[b] = true
	}
	pages := make([]documents.MemoryPage, n)
	for i := range pages {
		pages[i].Content = []byte(fmt.Sprintf("page-%d", i+1))
		if isBlank[i+1] {
			pages[i].Text = "  \n "
		} else {
			pages[i].Text = fmt.Sprintf("Phase I ESA report page %d", i+1)
		}
	}
	return pages
}

func TestVerifyRecompiled_Passes(t *testing.T) {
	doc := documents.NewMemoryDocument(reportPages(75)...)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	report := VerifyRecompiled(75, doc, DefaultQCOptions(), now)
	if !report.PageCountMatch || !report.QCPassed {
		t.Errorf("expected QC to pass, got %+v", report)
	}
	if report.PagesScanned != 50 {
		t.Errorf("expected 50 pages scanned, got %d", report.PagesScanned)
	}
	if len(report.BlankPages) != 0 || len(report.Issues) != 0 {
		t.Errorf("expected no findings, got blank=%v issues=%v", report.BlankPages, report.Issues)
	}
	if !report.GeneratedAt.Equal(now) {
		t.Errorf("unexpected timestamp %v", report.GeneratedAt)
	}
}

func TestVerifyRecompiled_PageCountMismatch(t *testing.T) {
	doc := documents.NewMemoryDocument(reportPages(74)...)
	report := VerifyRecompiled(75, doc, DefaultQCOptions(), time.Now())

	if report.PageCountMatch || report.QCPassed {
		t.Errorf("expected QC to fail on page count, got %+v", report)
	}
	if len(report.Issues) != 1 || report.Issues[0] != "Page count mismatch: original=75, recompiled=74" {
		t.Errorf("unexpected issues %v", report.Issues)
	}
}

func TestVerifyRecompiled_BlankPagesAreAdvisory(t *testing.T) {
	doc := documents.NewMemoryDocument(reportPages(30, 2, 17)...)
	report := VerifyRecompiled(30, doc, DefaultQCOptions(), time.Now())

	if !report.QCPassed {
		t.Error("blank pages must not fail QC")
	}
	if fmt.Sprint(report.BlankPages) != "[2 17]" {
		t.Errorf("blank pages = %v, want [2 17]", report.BlankPages)
	}
	if len(report.Issues) != 1 || report.Issues[0] != "Potential blank pages detected: [2, 17]" {
		t.Errorf("unexpected issues %v", report.Issues)
	}
}

func TestVerifyRecompiled_ShortText(t *testing.T) {
	pages := reportPages(3)
	pages[0].Text = "  Page  i  "
	pages[1].Text = "Site map 01"
	pages[2].Text = "Site map 012"
	report := VerifyRecompiled(3, documents.NewMemoryDocument(pages...), DefaultQCOptions(), time.Now())

	if fmt.Sprint(report.BlankPages) != "[1 2]" {
		t.Errorf("blank pages = %v, want [1 2]", report.BlankPages)
	}
}

func TestVerifyRecompiled_ScanLimit(t *testing.T) {
	// Pages past the scan limit are never examined
	doc := documents.NewMemoryDocument(reportPages(80, 10, 60, 70)...)

	report := VerifyRecompiled(80, doc, DefaultQCOptions(), time.Now())
	if fmt.Sprint(report.BlankPages) != "[10]" {
		t.Errorf("blank pages = %v, want [10]", report.BlankPages)
	}

	opts := DefaultQCOptions()
	opts.BlankScanLimit = 100
	report = VerifyRecompiled(80, doc, opts, time.Now())
	if fmt.Sprint(report.BlankPages) != "[10 60 70]" || report.PagesScanned != 80 {
		t.Errorf("blank pages = %v scanned = %d, want [10 60 70] and 80", report.BlankPages, report.PagesScanned)
	}

	opts.BlankScanLimit = 0
	report = VerifyRecompiled(80, doc, opts, time.Now())
	if report.PagesScanned != 0 || len(report.BlankPages) != 0 {
		t.Errorf("expected a disabled scan, got %+v", report)
	}
}

func TestVerifyRecompiled_BlankPageCap(t *testing.T) {
	blank := make([]int, 0, 40)
	for p := 1; p <= 40; p++ {
		blank = append(blank, p)
	}
	doc := documents.NewMemoryDocument(reportPages(45, blank...)...)

	report := VerifyRecompiled(45, doc, DefaultQCOptions(), time.Now())
	if len(report.BlankPages) != 20 {
		t.Fatalf("expected 20 blank pages, got %d", len(report.BlankPages))
	}
	if report.BlankPages[19] != 20 {
		t.Errorf("expected the first 20 blank pages, got %v", report.BlankPages)
	}
	want := "Potential blank pages detected: [1, 2, 3, 4, 5, 6, 7, 8, 9, 10]"
	if len(report.Issues) != 1 || report.Issues[0] != want {
		t.Errorf("unexpected issues %v", report.Issues)
	}
}

type failingTextDocument struct {
	documents.Document
}

func (failingTextDocument) PageText(int) (string, error) {
	return "", fmt.Errorf("unsupported font encoding")
}

func TestVerifyRecompiled_ExtractionFailureIsBlank(t *testing.T) {
	doc := failingTextDocument{documents.NewMemoryDocument(reportPages(2)...)}
	report := VerifyRecompiled(2, doc, DefaultQCOptions(), time.Now())
	if fmt.Sprint(report.BlankPages) != "[1 2]" {
		t.Errorf("blank pages = %v, want [1 2]", report.BlankPages)
	}
}

func TestRenderQCSummary(t *testing.T) {
	doc := documents.NewMemoryDocument(reportPages(10, 3)...)
	report := VerifyRecompiled(11, doc, DefaultQCOptions(), time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC))

	summary := RenderQCSummary("job-42", report)
	for _, want := range []string{
		"QC Summary Report",
		"Job ID: job-42",
		"Generated: 2026-03-01 12:30:00",
		"Status: QC FAILED",
		"Original page count: 11",
		"Recompiled page count: 10",
		"Page count match: No",
		"Blank pages detected: 1",
		"Blank pages: [3]",
		"  - Page count mismatch: original=11, recompiled=10",
	} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
}
