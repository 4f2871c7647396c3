package extractor

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/nao1215/webscraper/internal/htmltext"
)

// ArticleRecord is the readable body of a page as found by go-readability.
type ArticleRecord struct {
	URL        string `json:"url"`
	Depth      int    `json:"depth"`
	Title      string `json:"title"`
	Excerpt    string `json:"excerpt"`
	Text       string `json:"text"`
	TextLength int    `json:"text_length"`
}

// Article keeps the main article of each page and drops navigation,
// sidebars and other boilerplate.
type Article struct {
	// MinTextLength drops articles whose text is shorter. Zero keeps all.
	MinTextLength int
}

// NewArticle creates an Article extractor.
func NewArticle() *Article {
	return &Article{}
}

// Extract implements Extractor. Pages without a readable article yield no
// records and no error.
func (a *Article) Extract(pageURL string, doc *goquery.Document, meta Metadata) ([]ArticleRecord, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page URL: %w", err)
	}

	rawHTML, err := doc.Html()
	if err != nil {
		return nil, fmt.Errorf("failed to render page: %w", err)
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract article: %w", err)
	}

	body, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse article content: %w", err)
	}
	body.Find("script, style, figure, aside").Remove()

	text := htmltext.CleanText(body.Text())
	length := htmltext.CharCount(text)
	if text == "" || length < a.MinTextLength {
		return nil, nil
	}

	title := article.Title
	if title == "" {
		title = htmltext.Title(doc)
	}

	return []ArticleRecord{{
		URL:        pageURL,
		Depth:      meta.Depth,
		Title:      title,
		Excerpt:    article.Excerpt,
		Text:       text,
		TextLength: length,
	}}, nil
}
