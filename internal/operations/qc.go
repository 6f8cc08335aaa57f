package operations

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/documents"
	"github.com/Epistemic-Technology/esa-assembly-mcp/models"
)

// QCOptions bounds the blank-page scan
type QCOptions struct {
	// BlankScanLimit is the number of leading pages examined; 0 disables the scan
	BlankScanLimit int
	// MaxBlankPages caps the blank pages reported
	MaxBlankPages int
	// MinTextChars is the fewest non-whitespace characters a page needs to count as non-blank
	MinTextChars int
}

func DefaultQCOptions() QCOptions {
	return QCOptions{
		BlankScanLimit: 50,
		MaxBlankPages:  20,
		MinTextChars:   10,
	}
}

const maxIssueBlankPages = 10

// VerifyRecompiled compares the recompiled page count against the original and
// scans the leading pages of the recompiled document for blank pages. Blank
// pages are advisory; only the page count decides QCPassed.
func VerifyRecompiled(originalPages int, recompiled documents.Document, opts QCOptions, now time.Time) *models.QCReport {
	report := &models.QCReport{
		OriginalPages:   originalPages,
		RecompiledPages: recompiled.PageCount(),
		BlankPages:      []int{},
		Issues:          []string{},
		GeneratedAt:     now,
	}
	report.PageCountMatch = report.OriginalPages == report.RecompiledPages

	scan := min(opts.BlankScanLimit, recompiled.PageCount())
	for i := 0; i < scan && len(report.BlankPages) < opts.MaxBlankPages; i++ {
		report.PagesScanned++
		if isBlankPage(recompiled, i, opts.MinTextChars) {
			report.BlankPages = append(report.BlankPages, i+1)
		}
	}

	if !report.PageCountMatch {
		report.Issues = append(report.Issues, fmt.Sprintf("Page count mismatch: original=%d, recompiled=%d", report.OriginalPages, report.RecompiledPages))
	}
	if len(report.BlankPages) > 0 {
		shown := report.BlankPages[:min(len(report.BlankPages), maxIssueBlankPages)]
		report.Issues = append(report.Issues, fmt.Sprintf("Potential blank pages detected: %s", formatPageList(shown)))
	}

	report.QCPassed = report.PageCountMatch
	return report
}

// isBlankPage treats a page whose text cannot be extracted as blank
func isBlankPage(doc documents.Document, index, minChars int) bool {
	text, err := doc.PageText(index)
	if err != nil {
		return true
	}
	count := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			count++
			if count >= minChars {
				return false
			}
		}
	}
	return count < minChars
}

func formatPageList(pages []int) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = strconv.Itoa(p)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// RenderQCSummary formats a QC report as the text of the qc_summary artifact
func RenderQCSummary(jobID string, report *models.QCReport) string {
	var b strings.Builder
	b.WriteString("QC Summary Report\n")
	b.WriteString(strings.Repeat("=", 40) + "\n")
	fmt.Fprintf(&b, "Job ID: %s\n", jobID)
	fmt.Fprintf(&b, "Generated: %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05"))

	if report.QCPassed {
		b.WriteString("Status: QC PASSED\n\n")
	} else {
		b.WriteString("Status: QC FAILED\n\n")
	}

	fmt.Fprintf(&b, "Original page count: %d\n", report.OriginalPages)
	fmt.Fprintf(&b, "Recompiled page count: %d\n", report.RecompiledPages)
	fmt.Fprintf(&b, "Page count match: %s\n", yesNo(report.PageCountMatch))
	fmt.Fprintf(&b, "Pages scanned for blank content: %d\n", report.PagesScanned)
	fmt.Fprintf(&b, "Blank pages detected: %d\n", len(report.BlankPages))
	if len(report.BlankPages) > 0 {
		fmt.Fprintf(&b, "Blank pages: %s\n", formatPageList(report.BlankPages))
	}

	if len(report.Issues) > 0 {
		b.WriteString("\nIssues Found:\n")
		for _, issue := range report.Issues {
			fmt.Fprintf(&b, "  - %s\n", issue)
		}
	}
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
