package documents

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrPageOutOfRange is returned when a page index is outside a document
var ErrPageOutOfRange = errors.New("page index out of range")

// Page is an opaque handle to a single page. Data returns the page exactly as
// the codec extracted it; callers must not modify it.
type Page interface {
	Data() []byte
}

// Document is an immutable, ordered sequence of pages. Indexes are 0-based.
type Document interface {
	PageCount() int
	Page(index int) (Page, error)
	PageText(index int) (string, error)
}

// Builder accumulates pages and serializes them into a new document
type Builder interface {
	AppendPage(page Page) error
	PageCount() int
	Serialize() ([]byte, error)
}

// Codec reads and writes documents of one concrete format
type Codec interface {
	Open(data []byte) (Document, error)
	NewBuilder() Builder
}

// CopyPages appends pages [start, end] (1-indexed, inclusive) of doc to b in order.
func CopyPages(b Builder, doc Document, start, end int) error {
	if start < 1 || end > doc.PageCount() || start > end {
		return fmt.Errorf("%w: pages %d-%d of %d", ErrPageOutOfRange, start, end, doc.PageCount())
	}
	for pageNum := start; pageNum <= end; pageNum++ {
		page, err := doc.Page(pageNum - 1)
		if err != nil {
			return fmt.Errorf("failed to read page %d: %w", pageNum, err)
		}
		if err := b.AppendPage(page); err != nil {
			return fmt.Errorf("failed to append page %d: %w", pageNum, err)
		}
	}
	return nil
}

// AppendAll appends every page of doc to b in order.
func AppendAll(b Builder, doc Document) error {
	if doc.PageCount() == 0 {
		return nil
	}
	return CopyPages(b, doc, 1, doc.PageCount())
}

// IsPDF checks the %PDF magic header, ignoring leading whitespace
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("%PDF"))
}

func checkIndex(index, count int) error {
	if index < 0 || index >= count {
		return fmt.Errorf("%w: index %d, document has %d pages", ErrPageOutOfRange, index, count)
	}
	return nil
}
