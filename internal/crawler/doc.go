// Package crawler provides a breadth-first crawler that follows links from a
// start URL and runs an extractor on every page it fetches.
//
// # Architecture
//
// The Crawler type owns the crawl state: the frontier of (URL, depth)
// pairs, the visited set, the URLs collected in visit order, and the
// extracted records. Fetching is delegated to a Fetcher (normally
// *scraper.Scraper) so that rate limiting, robots.txt and politeness delays
// stay in one place.
//
// Design decision: The frontier is a plain FIFO slice that may hold
// duplicates. Deduplication happens when a URL is dequeued, which keeps the
// visit order strictly breadth-first and makes QueuedURLs report exactly
// what is waiting.
//
// # Usage
//
//	c := crawler.New[extractor.Chunk](s, extractor.NewRAG(500))
//	result, err := c.Crawl(ctx, "https://docs.example.com", crawler.Options{
//	    MaxPages:         100,
//	    StayWithinDomain: true,
//	})
package crawler
