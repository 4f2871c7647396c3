package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/webscraper/internal/config"
	"github.com/nao1215/webscraper/internal/htmltext"
)

// Chunk is a section of page text sized for retrieval-augmented generation.
type Chunk struct {
	Text string `json:"text"`

	// Title is "h1 > h2 > h3" built from the non-empty headings, or the
	// page title when there are none.
	Title     string `json:"title"`
	PageTitle string `json:"page_title"`
	H1        string `json:"h1"`
	H2        string `json:"h2"`
	H3        string `json:"h3"`
	URL       string `json:"url"`
	Source    string `json:"source"`
	Depth     int    `json:"depth"`
	CharCount int    `json:"char_count"`

	// ChunkID is "url#h1-h2-h3" over the non-empty headings. Chunks cut
	// out of an oversized block carry a "-split" suffix.
	ChunkID string `json:"chunk_id"`
}

// mainContentSelectors are tried in order; the first match is the main
// content. Without a match the whole document is used.
var mainContentSelectors = []string{"main", "article", ".content", "#content"}

// blockSelector lists the elements walked inside the main content.
const blockSelector = "h2, h3, p, ul, ol, pre"

// RAG splits pages into heading-aware chunks of roughly ChunkSize characters.
//
// Sections start at every h2. An h3 starts a new chunk only when the pending
// text already exceeds the target size. A paragraph, list or code block
// that pushes the pending text over the target flushes it; a block that is
// itself over the target is cut at sentence boundaries, and sentences that
// are still too long are cut between words.
type RAG struct {
	// ChunkSize is the target chunk size in characters.
	ChunkSize int
}

// NewRAG creates a RAG extractor. A non-positive chunkSize selects the
// default.
func NewRAG(chunkSize int) *RAG {
	if chunkSize <= 0 {
		chunkSize = config.DefaultChunkSize
	}
	return &RAG{ChunkSize: chunkSize}
}

// section is the heading context and pending text of the chunk being built.
type section struct {
	h1, h2, h3 string
	content    []string
}

func (s *section) text() string {
	return strings.Join(s.content, " ")
}

// chunkBuilder carries per-page values shared by every chunk of the page.
type chunkBuilder struct {
	url       string
	pageTitle string
	depth     int
}

// Extract implements Extractor.
func (r *RAG) Extract(pageURL string, doc *goquery.Document, meta Metadata) ([]Chunk, error) {
	b := chunkBuilder{
		url:       pageURL,
		pageTitle: htmltext.Title(doc),
		depth:     meta.Depth,
	}

	main := mainContent(doc)

	var chunks []Chunk
	current := section{}
	if h1 := main.Find("h1").First(); h1.Length() > 0 {
		current.h1 = htmltext.StrippedText(h1)
	}

	main.Find(blockSelector).Each(func(_ int, el *goquery.Selection) {
		switch goquery.NodeName(el) {
		case "h2":
			if len(current.content) > 0 {
				chunks = append(chunks, b.chunk(current, current.text(), false))
			}
			current = section{h1: current.h1, h2: htmltext.StrippedText(el)}

		case "h3":
			if htmltext.CharCount(current.text()) > r.ChunkSize {
				chunks = append(chunks, b.chunk(current, current.text(), false))
				current.content = nil
			}
			current.h3 = htmltext.StrippedText(el)

		default:
			text := htmltext.StrippedText(el)
			if text == "" {
				return
			}
			if goquery.NodeName(el) == "pre" {
				text = "[CODE]\n" + text + "\n[/CODE]"
			}
			current.content = append(current.content, text)

			if htmltext.CharCount(current.text()) <= r.ChunkSize {
				return
			}
			if htmltext.CharCount(text) > r.ChunkSize {
				prior := current
				prior.content = current.content[:len(current.content)-1]
				chunks = append(chunks, r.split(b, prior, text)...)
			} else {
				chunks = append(chunks, b.chunk(current, current.text(), false))
			}
			current.content = nil
		}
	})

	if len(current.content) > 0 {
		chunks = append(chunks, b.chunk(current, current.text(), false))
	}

	return chunks, nil
}

// split flushes the content pending before an oversized block, then cuts
// the block into chunks at ". " boundaries. Each sentence ends with
// terminal punctuation; sentences longer than the target are cut between
// words.
func (r *RAG) split(b chunkBuilder, prior section, large string) []Chunk {
	var chunks []Chunk
	if len(prior.content) > 0 {
		chunks = append(chunks, b.chunk(prior, prior.text(), false))
	}

	var pending []string
	pendingLen := 0

	for _, sentence := range strings.Split(large, ". ") {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		if !strings.HasSuffix(sentence, ".") && !strings.HasSuffix(sentence, "!") && !strings.HasSuffix(sentence, "?") {
			sentence += "."
		}
		sentenceLen := htmltext.CharCount(sentence)

		if pendingLen+sentenceLen > r.ChunkSize && len(pending) > 0 {
			chunks = append(chunks, b.chunk(prior, strings.Join(pending, " "), true))
			pending = nil
			pendingLen = 0
		}

		if sentenceLen <= r.ChunkSize {
			pending = append(pending, sentence)
			pendingLen += sentenceLen
			continue
		}

		var words []string
		wordsLen := 0
		for _, word := range strings.Fields(sentence) {
			wordsLen += htmltext.CharCount(word) + 1
			if wordsLen > r.ChunkSize && len(words) > 0 {
				chunks = append(chunks, b.chunk(prior, strings.Join(words, " "), true))
				words = nil
				wordsLen = htmltext.CharCount(word) + 1
			}
			words = append(words, word)
		}
		if len(words) > 0 {
			pending = append(pending, words...)
			pendingLen += wordsLen
		}
	}

	if len(pending) > 0 {
		chunks = append(chunks, b.chunk(prior, strings.Join(pending, " "), true))
	}
	return chunks
}

func (b chunkBuilder) chunk(s section, text string, split bool) Chunk {
	var headings []string
	for _, h := range []string{s.h1, s.h2, s.h3} {
		if h != "" {
			headings = append(headings, h)
		}
	}

	title := b.pageTitle
	if len(headings) > 0 {
		title = strings.Join(headings, " > ")
	}

	id := b.url + "#" + strings.Join(headings, "-")
	if split {
		id += "-split"
	}

	return Chunk{
		Text:      text,
		Title:     title,
		PageTitle: b.pageTitle,
		H1:        s.h1,
		H2:        s.h2,
		H3:        s.h3,
		URL:       b.url,
		Source:    b.url,
		Depth:     b.depth,
		CharCount: htmltext.CharCount(text),
		ChunkID:   id,
	}
}

func mainContent(doc *goquery.Document) *goquery.Selection {
	for _, selector := range mainContentSelectors {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			return sel
		}
	}
	return doc.Selection
}
