// Package output saves crawl results to files and renders crawl reports.
//
// Writer saves records under an output directory as JSON or CSV files.
// Report writers render a crawl Report for people and tools:
//   - TextWriter: Plain text for terminal display
//   - JSONWriter: JSON for tool integration
//   - MarkdownWriter: Markdown with tables and a mermaid chart
//
// Design decision: File output and report rendering are separate types.
// Files hold extracted records in the shape callers chose; reports
// describe the crawl that produced them.
package output
