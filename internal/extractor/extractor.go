package extractor

import (
	"log/slog"

	"github.com/PuerkitoBio/goquery"
)

// Metadata describes where a page was found during a crawl.
type Metadata struct {
	// URL is the page URL as it was dequeued.
	URL string

	// Depth is the number of links followed from the start URL.
	Depth int
}

// Extractor derives records from a parsed page.
type Extractor[T any] interface {
	Extract(pageURL string, doc *goquery.Document, meta Metadata) ([]T, error)
}

// ErrorReporter is implemented by extractors that handle their own
// extraction errors.
type ErrorReporter interface {
	OnExtractionError(pageURL string, err error)
}

// Func adapts a function to the Extractor interface.
type Func[T any] func(pageURL string, doc *goquery.Document, meta Metadata) ([]T, error)

// Extract calls f.
func (f Func[T]) Extract(pageURL string, doc *goquery.Document, meta Metadata) ([]T, error) {
	return f(pageURL, doc, meta)
}

// ReportError passes err to e's OnExtractionError when e implements
// ErrorReporter, and logs it at ERROR otherwise.
func ReportError(e any, pageURL string, err error, logger *slog.Logger) {
	if r, ok := e.(ErrorReporter); ok {
		r.OnExtractionError(pageURL, err)
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("extraction error", "url", pageURL, "error", err)
}

// Any adapts an Extractor[T] to an Extractor[any]. The adapter forwards
// extraction errors to the wrapped extractor's reporter, if it has one.
func Any[T any](e Extractor[T]) Extractor[any] {
	if a, ok := any(e).(Extractor[any]); ok {
		return a
	}
	return &anyExtractor[T]{inner: e}
}

type anyExtractor[T any] struct {
	inner Extractor[T]
}

func (a *anyExtractor[T]) Extract(pageURL string, doc *goquery.Document, meta Metadata) ([]any, error) {
	records, err := a.inner.Extract(pageURL, doc, meta)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(records))
	for i, r := range records {
		out[i] = r
	}
	return out, nil
}

func (a *anyExtractor[T]) OnExtractionError(pageURL string, err error) {
	ReportError(a.inner, pageURL, err, nil)
}
