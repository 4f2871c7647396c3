package extractor

import (
	"errors"
	"fmt"
	"strings"
)

// Kind names a built-in extractor.
type Kind string

const (
	// KindBasic selects Basic.
	KindBasic Kind = "basic"
	// KindRAG selects RAG.
	KindRAG Kind = "rag"
	// KindArticle selects Article.
	KindArticle Kind = "article"
	// KindMarkdown selects Markdown.
	KindMarkdown Kind = "markdown"
)

// ErrUnknownKind is returned by New and ParseKind for unknown extractor names.
var ErrUnknownKind = errors.New("unknown extractor kind: expected basic, rag, article or markdown")

// Kinds lists the built-in extractor kinds.
func Kinds() []Kind {
	return []Kind{KindBasic, KindRAG, KindArticle, KindMarkdown}
}

// ParseKind converts a case-insensitive name to a Kind.
func ParseKind(name string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// New creates a built-in extractor behind the Extractor[any] interface.
// chunkSize is only used by the RAG extractor.
func New(kind Kind, chunkSize int) (Extractor[any], error) {
	switch kind {
	case KindBasic:
		return Any[PageSummary](NewBasic()), nil
	case KindRAG:
		return Any[Chunk](NewRAG(chunkSize)), nil
	case KindArticle:
		return Any[ArticleRecord](NewArticle()), nil
	case KindMarkdown:
		return Any[MarkdownPage](NewMarkdown()), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}
