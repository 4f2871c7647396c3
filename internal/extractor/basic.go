package extractor

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/webscraper/internal/htmltext"
)

// PageSummary is the record produced by Basic.
type PageSummary struct {
	URL   string `json:"url"`
	Depth int    `json:"depth"`
	Title string `json:"title"`

	// TextLength is the number of characters of stripped page text.
	TextLength int `json:"text_length"`

	// LinkCount counts <a> elements, with or without href.
	LinkCount int `json:"link_count"`
}

// Basic summarizes each page in one PageSummary.
type Basic struct{}

// NewBasic creates a Basic extractor.
func NewBasic() *Basic {
	return &Basic{}
}

// Extract implements Extractor.
func (b *Basic) Extract(pageURL string, doc *goquery.Document, meta Metadata) ([]PageSummary, error) {
	return []PageSummary{{
		URL:        pageURL,
		Depth:      meta.Depth,
		Title:      htmltext.Title(doc),
		TextLength: htmltext.CharCount(htmltext.StrippedText(doc.Selection)),
		LinkCount:  doc.Find("a").Length(),
	}}, nil
}
