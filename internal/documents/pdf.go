package documents

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFCodec implements Codec with pdfcpu. Every page is held as a standalone
// single-page PDF so pages can be copied between documents without touching
// their content streams.
type PDFCodec struct {
	relaxed bool
}

// NewPDFCodec creates a pdfcpu codec. Relaxed validation accepts the slightly
// malformed files that scanners and report generators tend to produce.
func NewPDFCodec(relaxed bool) *PDFCodec {
	return &PDFCodec{relaxed: relaxed}
}

func (c *PDFCodec) configuration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	if c.relaxed {
		conf.ValidationMode = model.ValidationRelaxed
	}
	return conf
}

// Open parses a PDF and splits it into single-page handles
func (c *PDFCodec) Open(data []byte) (Document, error) {
	if len(data) == 0 {
		return nil, errors.New("empty PDF data")
	}
	if !IsPDF(data) {
		return nil, errors.New("data is not a PDF (missing %PDF header)")
	}
	pdfContext, err := api.ReadValidateAndOptimize(bytes.NewReader(data), c.configuration())
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}

	pageCount := pdfContext.PageCount
	pages := make([]*pdfPage, 0, pageCount)
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		pageReader, err := api.ExtractPage(pdfContext, pageNum)
		if err != nil {
			return nil, fmt.Errorf("failed to extract page %d: %w", pageNum, err)
		}
		pageData, err := io.ReadAll(pageReader)
		if err != nil {
			return nil, fmt.Errorf("failed to read page %d: %w", pageNum, err)
		}
		pages = append(pages, &pdfPage{data: pageData})
	}

	return &pdfDocument{codec: c, pages: pages}, nil
}

// NewBuilder returns an empty PDF builder
func (c *PDFCodec) NewBuilder() Builder {
	return &pdfBuilder{codec: c}
}

type pdfPage struct {
	data []byte

	textOnce sync.Once
	text     string
	textErr  error
}

func (p *pdfPage) Data() []byte {
	return p.data
}

type pdfDocument struct {
	codec *PDFCodec
	pages []*pdfPage
}

func (d *pdfDocument) PageCount() int {
	return len(d.pages)
}

func (d *pdfDocument) Page(index int) (Page, error) {
	if err := checkIndex(index, len(d.pages)); err != nil {
		return nil, err
	}
	return d.pages[index], nil
}

// PageText extracts the text shown on a page. The result is cached per page
// since the document is immutable.
func (d *pdfDocument) PageText(index int) (string, error) {
	if err := checkIndex(index, len(d.pages)); err != nil {
		return "", err
	}
	page := d.pages[index]
	page.textOnce.Do(func() {
		page.text, page.textErr = d.codec.extractText(page.data)
	})
	return page.text, page.textErr
}

// extractText decodes the page through its font encodings with
// ledongthuc/pdf. That reader only understands pages whose /Contents is a
// single stream, so anything it rejects goes through the raw content stream
// scanner instead.
func (c *PDFCodec) extractText(pageData []byte) (string, error) {
	if text, err := decodePageText(pageData); err == nil {
		return text, nil
	}
	return c.scanPageText(pageData)
}

func decodePageText(pageData []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(pageData), int64(len(pageData)))
	if err != nil {
		return "", err
	}
	if reader.NumPage() == 0 {
		return "", nil
	}
	page := reader.Page(1)
	if page.V.IsNull() {
		return "", errors.New("page not found")
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (c *PDFCodec) scanPageText(pageData []byte) (string, error) {
	pdfContext, err := api.ReadValidateAndOptimize(bytes.NewReader(pageData), c.configuration())
	if err != nil {
		return "", fmt.Errorf("failed to read page: %w", err)
	}
	if pdfContext.PageCount == 0 {
		return "", nil
	}
	content, err := pdfcpu.ExtractPageContent(pdfContext, 1)
	if err != nil {
		return "", fmt.Errorf("failed to extract page content: %w", err)
	}
	if content == nil {
		return "", nil
	}
	stream, err := io.ReadAll(content)
	if err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return ExtractText(stream), nil
}

type pdfBuilder struct {
	codec *PDFCodec
	pages [][]byte
}

func (b *pdfBuilder) AppendPage(page Page) error {
	if page == nil {
		return errors.New("nil page")
	}
	b.pages = append(b.pages, page.Data())
	return nil
}

func (b *pdfBuilder) PageCount() int {
	return len(b.pages)
}

// Serialize concatenates the collected single-page PDFs
func (b *pdfBuilder) Serialize() ([]byte, error) {
	if len(b.pages) == 0 {
		return nil, errors.New("cannot serialize a document with no pages")
	}
	readers := make([]io.ReadSeeker, 0, len(b.pages))
	for _, data := range b.pages {
		readers = append(readers, bytes.NewReader(data))
	}
	var buf bytes.Buffer
	if err := api.MergeRaw(readers, &buf, false, b.codec.configuration()); err != nil {
		return nil, fmt.Errorf("failed to merge pages: %w", err)
	}
	return buf.Bytes(), nil
}

var _ Codec = (*PDFCodec)(nil)
