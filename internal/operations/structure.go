package operations

import (
	"fmt"
	"math"
	"strings"

	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/jobs"
	"github.com/Epistemic-Technology/esa-assembly-mcp/models"
)

const (
	warnShortWrittenReport = "written report section seems short"
	warnShortAppendices    = "appendices section seems short for a typical ESA"
)

// ConfidencePolicy holds the constants of the boundary confidence heuristic
type ConfidencePolicy struct {
	Base               float64
	Penalty            float64
	ShortWrittenPages  int
	ShortAppendixPages int
}

// DefaultConfidencePolicy starts at 0.85 and subtracts 0.10 for a written
// report under 10 pages and again for appendices under 20 pages.
func DefaultConfidencePolicy() ConfidencePolicy {
	return ConfidencePolicy{
		Base:               0.85,
		Penalty:            0.10,
		ShortWrittenPages:  10,
		ShortAppendixPages: 20,
	}
}

// Boundaries are the two caller-supplied section boundaries of a report
type Boundaries struct {
	ExecSummaryPage   int
	AppendixStartPage int
	Reasoning         string
}

// ResolveStructure validates the boundaries against the page count and
// computes the front matter, written report and appendices ranges. The ranges
// partition [1, totalPages]; front matter is (0,0) when the executive summary
// is on page 1.
func ResolveStructure(b Boundaries, totalPages int, policy ConfidencePolicy) (*models.Structure, error) {
	if b.ExecSummaryPage < 1 {
		return nil, jobs.NewValidationError("exec_summary_page must be ≥ 1")
	}
	if b.AppendixStartPage <= b.ExecSummaryPage {
		return nil, jobs.NewValidationError("appendix_start_page must be after exec_summary_page")
	}
	if b.AppendixStartPage > totalPages {
		return nil, jobs.NewValidationError(fmt.Sprintf("appendix_start_page exceeds total pages (%d)", totalPages))
	}

	s := &models.Structure{
		TotalPages:         totalPages,
		ExecSummaryPage:    b.ExecSummaryPage,
		WrittenReportRange: models.PageRange{Start: b.ExecSummaryPage, End: b.AppendixStartPage - 1},
		AppendixStartPage:  b.AppendixStartPage,
		AppendicesRange:    models.PageRange{Start: b.AppendixStartPage, End: totalPages},
		Reasoning:          b.Reasoning,
		ReasoningPoints:    reasoningPoints(b.Reasoning),
		Warnings:           []string{},
	}
	if b.ExecSummaryPage > 1 {
		s.FrontMatterRange = models.PageRange{Start: 1, End: b.ExecSummaryPage - 1}
	}

	confidence := policy.Base
	if s.WrittenReportRange.Len() < policy.ShortWrittenPages {
		confidence -= policy.Penalty
		s.Warnings = append(s.Warnings, warnShortWrittenReport)
	}
	if s.AppendicesRange.Len() < policy.ShortAppendixPages {
		confidence -= policy.Penalty
		s.Warnings = append(s.Warnings, warnShortAppendices)
	}
	s.Confidence = math.Round(math.Max(confidence, 0)*100) / 100

	return s, nil
}

// reasoningPoints splits free-text reasoning into sentences
func reasoningPoints(reasoning string) []string {
	var points []string
	for _, p := range strings.Split(reasoning, ". ") {
		if p = strings.TrimSpace(p); p != "" {
			points = append(points, p)
		}
	}
	return points
}
