package extractor

// RAGStats summarizes the chunks produced by a crawl.
type RAGStats struct {
	TotalChunks  int     `json:"total_chunks"`
	AvgChunkSize float64 `json:"avg_chunk_size"`
	MinChunkSize int     `json:"min_chunk_size"`
	MaxChunkSize int     `json:"max_chunk_size"`

	// ChunksPerPage divides the chunk count by the visited page count,
	// or is zero when nothing was visited.
	ChunksPerPage float64 `json:"chunks_per_page"`
}

// ChunkStatistics describes a set of chunks in more detail than RAGStats.
type ChunkStatistics struct {
	TotalChunks    int     `json:"total_chunks"`
	UniquePages    int     `json:"unique_pages"`
	AvgChunkSize   float64 `json:"avg_chunk_size"`
	MinChunkSize   int     `json:"min_chunk_size"`
	MaxChunkSize   int     `json:"max_chunk_size"`
	ChunksWithH1   int     `json:"chunks_with_h1"`
	ChunksWithH2   int     `json:"chunks_with_h2"`
	ChunksWithH3   int     `json:"chunks_with_h3"`
	AvgTitleLength float64 `json:"avg_title_length"`
}

// SummarizeChunks returns the RAGStats of chunks collected from
// visitedPages pages. It returns nil when chunks is empty.
func SummarizeChunks(chunks []Chunk, visitedPages int) *RAGStats {
	if len(chunks) == 0 {
		return nil
	}

	total, lo, hi := sizes(chunks)
	stats := &RAGStats{
		TotalChunks:  len(chunks),
		AvgChunkSize: float64(total) / float64(len(chunks)),
		MinChunkSize: lo,
		MaxChunkSize: hi,
	}
	if visitedPages > 0 {
		stats.ChunksPerPage = float64(len(chunks)) / float64(visitedPages)
	}
	return stats
}

// Statistics returns the ChunkStatistics of chunks. The zero value is
// returned for an empty slice.
func Statistics(chunks []Chunk) ChunkStatistics {
	if len(chunks) == 0 {
		return ChunkStatistics{}
	}

	total, lo, hi := sizes(chunks)
	stats := ChunkStatistics{
		TotalChunks:  len(chunks),
		AvgChunkSize: float64(total) / float64(len(chunks)),
		MinChunkSize: lo,
		MaxChunkSize: hi,
	}

	pages := make(map[string]struct{})
	titleLen := 0
	for _, c := range chunks {
		pages[c.URL] = struct{}{}
		titleLen += len([]rune(c.Title))
		if c.H1 != "" {
			stats.ChunksWithH1++
		}
		if c.H2 != "" {
			stats.ChunksWithH2++
		}
		if c.H3 != "" {
			stats.ChunksWithH3++
		}
	}
	stats.UniquePages = len(pages)
	stats.AvgTitleLength = float64(titleLen) / float64(len(chunks))
	return stats
}

func sizes(chunks []Chunk) (total, lo, hi int) {
	lo = chunks[0].CharCount
	hi = chunks[0].CharCount
	for _, c := range chunks {
		total += c.CharCount
		lo = min(lo, c.CharCount)
		hi = max(hi, c.CharCount)
	}
	return total, lo, hi
}
