package documents

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// memoryHeader prefixes serialized memory documents
var memoryHeader = []byte("MEMDOC\n")

// MemoryPage is a page of an in-memory document
type MemoryPage struct {
	Content []byte `json:"content"`
	Text    string `json:"text"`
}

func (p *MemoryPage) Data() []byte {
	return p.Content
}

// MemoryCodec implements Codec without any real file format. It is meant for
// unit tests: pages keep their exact bytes through serialization, which makes
// byte-for-byte round-trip checks possible.
type MemoryCodec struct{}

// NewMemoryCodec creates an in-memory codec
func NewMemoryCodec() *MemoryCodec {
	return &MemoryCodec{}
}

type memoryDocument struct {
	pages []*MemoryPage
}

// NewMemoryDocument builds a document from the given pages
func NewMemoryDocument(pages ...MemoryPage) Document {
	doc := &memoryDocument{pages: make([]*MemoryPage, 0, len(pages))}
	for i := range pages {
		page := pages[i]
		doc.pages = append(doc.pages, &page)
	}
	return doc
}

// SerializeMemoryDocument encodes pages in the format MemoryCodec.Open reads
func SerializeMemoryDocument(pages ...MemoryPage) ([]byte, error) {
	payload, err := json.Marshal(pages)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pages: %w", err)
	}
	return append(append([]byte{}, memoryHeader...), payload...), nil
}

func (d *memoryDocument) PageCount() int {
	return len(d.pages)
}

func (d *memoryDocument) Page(index int) (Page, error) {
	if err := checkIndex(index, len(d.pages)); err != nil {
		return nil, err
	}
	return d.pages[index], nil
}

func (d *memoryDocument) PageText(index int) (string, error) {
	if err := checkIndex(index, len(d.pages)); err != nil {
		return "", err
	}
	return d.pages[index].Text, nil
}

// Open decodes a serialized memory document
func (c *MemoryCodec) Open(data []byte) (Document, error) {
	if !bytes.HasPrefix(data, memoryHeader) {
		return nil, errors.New("data is not a memory document")
	}
	var pages []MemoryPage
	if err := json.Unmarshal(data[len(memoryHeader):], &pages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pages: %w", err)
	}
	return NewMemoryDocument(pages...), nil
}

func (c *MemoryCodec) NewBuilder() Builder {
	return &memoryBuilder{}
}

type memoryBuilder struct {
	pages []MemoryPage
}

func (b *memoryBuilder) AppendPage(page Page) error {
	mp, ok := page.(*MemoryPage)
	if !ok {
		return fmt.Errorf("unsupported page type %T", page)
	}
	b.pages = append(b.pages, *mp)
	return nil
}

func (b *memoryBuilder) PageCount() int {
	return len(b.pages)
}

func (b *memoryBuilder) Serialize() ([]byte, error) {
	if len(b.pages) == 0 {
		return nil, errors.New("cannot serialize a document with no pages")
	}
	return SerializeMemoryDocument(b.pages...)
}

var _ Codec = (*MemoryCodec)(nil)
