package models

import "time"

// Artifact names under which a job's documents are stored
const (
	ArtifactOriginal      = "original"
	ArtifactWrittenReport = "written_report"
	ArtifactAppendices    = "appendices"
	ArtifactRecompiled    = "recompiled"
	ArtifactQCSummary     = "qc_summary"
)

// MIMETypePDF is the media type of every stored artifact
const MIMETypePDF = "application/pdf"

// PageRange is an inclusive, 1-indexed span of pages. The zero value (0,0)
// denotes an empty range.
type PageRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// IsEmpty reports whether the range is the (0,0) sentinel.
func (r PageRange) IsEmpty() bool {
	return r.Start == 0 && r.End == 0
}

// Len returns the number of pages in the range.
func (r PageRange) Len() int {
	if r.IsEmpty() {
		return 0
	}
	return r.End - r.Start + 1
}

// Structure is the resolved section layout of a report
type Structure struct {
	TotalPages         int       `json:"total_pages"`
	FrontMatterRange   PageRange `json:"front_matter_range"`
	ExecSummaryPage    int       `json:"exec_summary_page"`
	WrittenReportRange PageRange `json:"written_report_range"`
	AppendixStartPage  int       `json:"appendix_start_page"`
	AppendicesRange    PageRange `json:"appendices_range"`
	Confidence         float64   `json:"confidence"`
	Reasoning          string    `json:"reasoning,omitempty"`
	ReasoningPoints    []string  `json:"reasoning_points,omitempty"`
	Warnings           []string  `json:"warnings"`
}

// QCReport is the outcome of verifying a recompiled document against its original
type QCReport struct {
	OriginalPages   int       `json:"original_pages"`
	RecompiledPages int       `json:"recompiled_pages"`
	PageCountMatch  bool      `json:"page_count_match"`
	PagesScanned    int       `json:"pages_scanned"`
	BlankPages      []int     `json:"blank_pages"`
	Issues          []string  `json:"issues,omitempty"`
	QCPassed        bool      `json:"qc_passed"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// ArtifactInfo describes a stored artifact and how to retrieve it
type ArtifactInfo struct {
	Name      string `json:"name"`
	PageCount int    `json:"page_count"`
	MIMEType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
	URI       string `json:"uri"`
}

// SourceInfo contains information about where the PDF came from
type SourceInfo struct {
	ZoteroID string `json:"zotero_id,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Kind names the source used for intake.
func (s SourceInfo) Kind() string {
	switch {
	case s.ZoteroID != "":
		return "zotero"
	case s.URL != "":
		return "url"
	default:
		return "raw"
	}
}

// JobInfo contains basic information about a job
type JobInfo struct {
	JobID      string     `json:"job_id"`
	Filename   string     `json:"filename,omitempty"`
	PageCount  int        `json:"page_count"`
	SizeBytes  int64      `json:"size_bytes"`
	Stage      string     `json:"stage"`
	SourceInfo SourceInfo `json:"source_info,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// PageText is the extracted text of a single page
type PageText struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
	Valid      bool   `json:"valid"`
	Truncated  bool   `json:"truncated,omitempty"`
}
