package extractor

import (
	"fmt"
	"strings"

	htmltomd "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/webscraper/internal/htmltext"
)

// MarkdownPage is the main content of a page converted to Markdown.
type MarkdownPage struct {
	URL       string `json:"url"`
	Depth     int    `json:"depth"`
	Title     string `json:"title"`
	Markdown  string `json:"markdown"`
	CharCount int    `json:"char_count"`
}

// Markdown converts the main content of each page (the same region the
// RAG extractor reads) to GitHub flavoured Markdown.
type Markdown struct {
	conv *htmltomd.Converter
}

// NewMarkdown creates a Markdown extractor.
func NewMarkdown() *Markdown {
	conv := htmltomd.NewConverter("", true, nil)
	conv.Use(plugin.GitHubFlavored())
	return &Markdown{conv: conv}
}

// Extract implements Extractor. Pages whose main content converts to
// nothing yield no records.
func (m *Markdown) Extract(pageURL string, doc *goquery.Document, meta Metadata) ([]MarkdownPage, error) {
	main := mainContent(doc).Clone()
	main.Find("head, script, style, nav, footer").Remove()

	contentHTML, err := goquery.OuterHtml(main)
	if err != nil {
		return nil, fmt.Errorf("failed to render main content: %w", err)
	}

	out, err := m.conv.ConvertString(contentHTML)
	if err != nil {
		return nil, fmt.Errorf("failed to convert to markdown: %w", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, nil
	}

	return []MarkdownPage{{
		URL:       pageURL,
		Depth:     meta.Depth,
		Title:     htmltext.Title(doc),
		Markdown:  out,
		CharCount: htmltext.CharCount(out),
	}}, nil
}
