package documents

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// LinesPerPage is the number of text lines RenderTextPDF puts on one page
const LinesPerPage = 50

// pdfcpu page layout, see api.Create
type textLayout struct {
	Pages map[string]textPage `json:"pages"`
}

type textPage struct {
	Content textContent `json:"content"`
}

type textContent struct {
	Text []textBox `json:"text"`
}

type textBox struct {
	Value  string     `json:"value"`
	Anchor string     `json:"anchor"`
	Font   textFont   `json:"font"`
	Margin textMargin `json:"margin"`
}

type textFont struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

type textMargin struct {
	Width float64 `json:"width"`
}

// RenderTextPDF lays plain text out on A4 pages in a monospaced core font and
// returns the PDF with its page count.
func RenderTextPDF(text string) ([]byte, int, error) {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) == 1 && strings.TrimSpace(lines[0]) == "" {
		return nil, 0, errors.New("no text to render")
	}

	layout := textLayout{Pages: make(map[string]textPage)}
	pageCount := 0
	for start := 0; start < len(lines); start += LinesPerPage {
		end := min(start+LinesPerPage, len(lines))
		pageCount++
		layout.Pages[strconv.Itoa(pageCount)] = textPage{
			Content: textContent{Text: []textBox{{
				// pdfcpu expands %p, %P, %t and %v in text values
				Value:  strings.ReplaceAll(strings.Join(lines[start:end], "\n"), "%", "%%"),
				Anchor: "topLeft",
				Font:   textFont{Name: "Courier", Size: 10},
				Margin: textMargin{Width: 50},
			}}},
		}
	}

	payload, err := json.Marshal(layout)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode page layout: %w", err)
	}
	var buf bytes.Buffer
	if err := api.Create(nil, bytes.NewReader(payload), &buf, model.NewDefaultConfiguration()); err != nil {
		return nil, 0, fmt.Errorf("failed to render PDF: %w", err)
	}
	return buf.Bytes(), pageCount, nil
}
