package api

import (
	"strings"

	"github.com/nao1215/webscraper/internal/extractor"
)

// Export frameworks.
const (
	FrameworkLangChain  = "langchain"
	FrameworkLlamaIndex = "llamaindex"
)

// LangChainDocument has the shape of a LangChain Document.
type LangChainDocument struct {
	PageContent string            `json:"page_content"`
	Metadata    LangChainMetadata `json:"metadata"`
}

// LangChainMetadata is the metadata of a LangChainDocument.
type LangChainMetadata struct {
	Source    string `json:"source"`
	Title     string `json:"title"`
	H1        string `json:"h1"`
	H2        string `json:"h2"`
	H3        string `json:"h3"`
	ChunkID   string `json:"chunk_id"`
	CharCount int    `json:"char_count"`
}

// LlamaIndexDocument has the shape of a LlamaIndex Document.
type LlamaIndexDocument struct {
	Text     string             `json:"text"`
	Metadata LlamaIndexMetadata `json:"metadata"`
}

// LlamaIndexMetadata is the metadata of a LlamaIndexDocument.
type LlamaIndexMetadata struct {
	URL   string `json:"url"`
	Title string `json:"title"`

	// Headings lists the non-empty h1, h2 and h3 in order.
	Headings []string `json:"headings"`
	ChunkID  string   `json:"chunk_id"`
}

// ExportChunks converts chunks for a retrieval framework. See
// RAGScraper.Export.
func ExportChunks(chunks []extractor.Chunk, framework string) []any {
	out := make([]any, 0, len(chunks))
	switch strings.ToLower(framework) {
	case FrameworkLangChain:
		for _, c := range chunks {
			out = append(out, LangChainDocument{
				PageContent: c.Text,
				Metadata: LangChainMetadata{
					Source:    c.URL,
					Title:     c.Title,
					H1:        c.H1,
					H2:        c.H2,
					H3:        c.H3,
					ChunkID:   c.ChunkID,
					CharCount: c.CharCount,
				},
			})
		}
	case FrameworkLlamaIndex:
		for _, c := range chunks {
			headings := []string{}
			for _, h := range []string{c.H1, c.H2, c.H3} {
				if h != "" {
					headings = append(headings, h)
				}
			}
			out = append(out, LlamaIndexDocument{
				Text: c.Text,
				Metadata: LlamaIndexMetadata{
					URL:      c.URL,
					Title:    c.Title,
					Headings: headings,
					ChunkID:  c.ChunkID,
				},
			})
		}
	default:
		for _, c := range chunks {
			out = append(out, c)
		}
	}
	return out
}
