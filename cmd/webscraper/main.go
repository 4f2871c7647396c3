// Package main provides the entry point for the webscraper CLI.
//
// webscraper crawls websites breadth-first and extracts page summaries,
// RAG chunks, readable articles or Markdown documents from every page.
//
// Usage:
//
//	webscraper rag https://docs.example.com
//	webscraper crawl --extractor markdown https://blog.example.com
//	webscraper batch --sites sites.yaml
//
// See --help for all available options.
package main

func main() {
	Execute()
}
