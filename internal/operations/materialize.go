package operations

import (
	"fmt"

	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/documents"
	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/jobs"
	"github.com/Epistemic-Technology/esa-assembly-mcp/models"
)

// Materialized is a document built from copied pages, together with its
// serialized form
type Materialized struct {
	Document  documents.Document
	Data      []byte
	PageCount int
}

// segment is an inclusive 1-indexed page span of a source document, or the
// whole of it
type segment struct {
	doc   documents.Document
	pages models.PageRange
	whole bool
}

func wholeDocument(doc documents.Document) segment {
	return segment{doc: doc, whole: true}
}

// materialize copies the segments in order into a new document, serializes
// it and re-opens the bytes. The re-opened page count must equal the sum of
// the segment lengths.
func materialize(codec documents.Codec, name string, segments ...segment) (*Materialized, error) {
	builder := codec.NewBuilder()
	expected := 0
	for _, seg := range segments {
		if seg.whole {
			if err := documents.AppendAll(builder, seg.doc); err != nil {
				return nil, jobs.NewIOError(fmt.Sprintf("failed to copy pages for %s", name), err)
			}
			expected += seg.doc.PageCount()
			continue
		}
		if seg.pages.IsEmpty() {
			continue
		}
		if err := documents.CopyPages(builder, seg.doc, seg.pages.Start, seg.pages.End); err != nil {
			return nil, jobs.NewIOError(fmt.Sprintf("failed to copy pages for %s", name), err)
		}
		expected += seg.pages.Len()
	}

	data, err := builder.Serialize()
	if err != nil {
		return nil, jobs.NewIOError(fmt.Sprintf("failed to write %s", name), err)
	}
	doc, err := codec.Open(data)
	if err != nil {
		return nil, jobs.NewIOError(fmt.Sprintf("failed to reopen %s", name), err)
	}
	if doc.PageCount() != expected {
		return nil, jobs.NewIOError(fmt.Sprintf("%s page count mismatch: expected %d, got %d", name, expected, doc.PageCount()), nil)
	}

	return &Materialized{Document: doc, Data: data, PageCount: expected}, nil
}
