package operations

import (
	"fmt"

	"github.com/Epistemic-Technology/esa-assembly-mcp/internal/documents"
	"github.com/Epistemic-Technology/esa-assembly-mcp/models"
)

const (
	maxPageTextRunes = 2000
	truncatedMarker  = "\n[...truncated...]"
	noTextMarker     = "[No text extracted - may be image/scanned]"
)

// ReadPages extracts the text of the requested 1-indexed pages. Page numbers
// outside the document yield an entry marked invalid rather than an error.
func ReadPages(doc documents.Document, pageNumbers []int) []models.PageText {
	total := doc.PageCount()
	results := make([]models.PageText, 0, len(pageNumbers))

	for _, n := range pageNumbers {
		if n < 1 || n > total {
			results = append(results, models.PageText{
				PageNumber: n,
				Text:       fmt.Sprintf("[Invalid page number. Document has %d pages.]", total),
			})
			continue
		}

		page := models.PageText{PageNumber: n, Valid: true}
		text, err := doc.PageText(n - 1)
		switch {
		case err != nil:
			page.Text = fmt.Sprintf("[Text extraction failed: %v]", err)
		case text == "":
			page.Text = noTextMarker
		default:
			page.Text, page.Truncated = truncateRunes(text, maxPageTextRunes)
		}
		results = append(results, page)
	}
	return results
}

func truncateRunes(text string, limit int) (string, bool) {
	runes := []rune(text)
	if len(runes) <= limit {
		return text, false
	}
	return string(runes[:limit]) + truncatedMarker, true
}
