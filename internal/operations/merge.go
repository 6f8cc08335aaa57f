package operations

import (
	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/documents"
	"github.com/Epistemic-Technology/esa-assembly-mcp/models"
)

// MergeResult is the recompiled document and the pages each part contributed
type MergeResult struct {
	Recompiled         *Materialized
	FrontMatterPages   int
	WrittenReportPages int
	AppendicesPages    int
}

// MergeDocuments rebuilds the full report. Front matter is read from the
// original because it is never materialized as an artifact; the written report
// and appendices come from the split documents.
func MergeDocuments(codec documents.Codec, original documents.Document, structure *models.Structure, writtenReport, appendices documents.Document) (*MergeResult, error) {
	recompiled, err := materialize(codec, models.ArtifactRecompiled,
		segment{doc: original, pages: structure.FrontMatterRange},
		wholeDocument(writtenReport),
		wholeDocument(appendices),
	)
	if err != nil {
		return nil, err
	}

	return &MergeResult{
		Recompiled:         recompiled,
		FrontMatterPages:   structure.FrontMatterRange.Len(),
		WrittenReportPages: writtenReport.PageCount(),
		AppendicesPages:    appendices.PageCount(),
	}, nil
}
