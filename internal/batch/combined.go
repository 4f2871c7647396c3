package batch

import (
	"fmt"
	"strings"

	"github.com/nao1215/webscraper/internal/output"
)

// Summary counts the outcome of a batch.
type Summary struct {
	TotalSites       int `json:"total_sites"`
	SuccessfulSites  int `json:"successful_sites"`
	FailedSites      int `json:"failed_sites"`
	TotalPages       int `json:"total_pages"`
	TotalDataEntries int `json:"total_data_entries"`
}

// Combined merges the data of every successful task.
type Combined struct {
	Summary Summary `json:"summary"`

	// AllData holds the records of successful tasks ordered by URL.
	AllData []any `json:"all_data"`

	// SiteResults is the map the summary was built from.
	SiteResults any `json:"site_results"`
}

// CombinedResults merges site crawl results.
func CombinedResults(sites map[string]SiteResult) Combined {
	c := Combined{
		Summary:     Summary{TotalSites: len(sites)},
		AllData:     []any{},
		SiteResults: sites,
	}
	for _, key := range sortedKeys(sites) {
		r := sites[key]
		if r.Failed() {
			c.Summary.FailedSites++
			continue
		}
		c.Summary.SuccessfulSites++
		if r.Results != nil {
			c.Summary.TotalPages += r.Results.Stats.VisitedCount
			c.Summary.TotalDataEntries += r.Results.Stats.DataCount
			c.AllData = append(c.AllData, r.Results.Data...)
		}
	}
	return c
}

// CombinedPageResults merges page scrape results. Every successful page
// counts as one page.
func CombinedPageResults(pages map[string]PageResult) Combined {
	c := Combined{
		Summary:     Summary{TotalSites: len(pages)},
		AllData:     []any{},
		SiteResults: pages,
	}
	for _, key := range sortedKeys(pages) {
		r := pages[key]
		if r.Failed() {
			c.Summary.FailedSites++
			continue
		}
		c.Summary.SuccessfulSites++
		c.Summary.TotalPages++
		c.Summary.TotalDataEntries += len(r.Data)
		c.AllData = append(c.AllData, r.Data...)
	}
	return c
}

// SafeFilename turns a URL into a file name component by replacing "://",
// "/" and ":" with underscores.
func SafeFilename(siteURL string) string {
	r := strings.NewReplacer("://", "_", "/", "_", ":", "_")
	return r.Replace(siteURL)
}

// SaveResults writes site results under the configured output directory.
//
// For FormatJSON it writes <prefix>_combined.json with the merged data and
// <prefix>_detailed.json with the full results. For FormatCSV it writes
// <prefix>_combined.csv and one <prefix>_<site>.csv per successful site.
// It returns the paths written.
func (s *Scraper) SaveResults(results map[string]SiteResult, prefix string, format output.Format) ([]string, error) {
	w := output.NewWriter(s.cfg.OutputDir, output.WithWriterLogger(s.logger))
	combined := CombinedResults(results)

	var paths []string
	add := func(path string, err error) error {
		if err != nil {
			return err
		}
		if path != "" {
			paths = append(paths, path)
		}
		return nil
	}

	switch format {
	case output.FormatJSON:
		if err := add(w.SaveJSON(combined.AllData, prefix+"_combined")); err != nil {
			return paths, err
		}
		if err := add(w.SaveJSON(results, prefix+"_detailed")); err != nil {
			return paths, err
		}

	case output.FormatCSV:
		if err := add(w.SaveCSV(combined.AllData, prefix+"_combined")); err != nil {
			return paths, err
		}
		for _, key := range sortedKeys(results) {
			r := results[key]
			if r.Failed() || r.Results == nil {
				continue
			}
			if err := add(w.SaveCSV(r.Results.Data, prefix+"_"+SafeFilename(key))); err != nil {
				return paths, err
			}
		}

	default:
		return nil, fmt.Errorf("%w: %q", output.ErrUnsupportedFormat, format)
	}

	s.logger.Info("batch results saved", "prefix", prefix, "files", len(paths))
	return paths, nil
}
