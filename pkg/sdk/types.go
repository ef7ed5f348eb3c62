package nexus

import "time"

// Record is one source row to ingest. Field values may be string, float64,
// int, bool, []string or a []any holding only strings; any other shape is
// dropped by normalization as unsupported.
type Record struct {
	ID     string
	Fields map[string]any
}

// Match is a single search hit.
type Match struct {
	ID       string
	Score    float64 // cosine similarity in [0,1], best first
	Text     string  // searchable text the entry was indexed under
	Metadata map[string]string
}

// SearchResult carries the ranked matches and the synthesized answer.
type SearchResult struct {
	Matches         []Match
	Answer          string
	EmbeddingTokens int // tokens spent embedding the query (0 on cache hit)
}

// Report summarizes one ingestion run.
type Report struct {
	RunID     string
	Source    string
	Namespace string
	Fetched   int
	Skipped   int
	Ingested  int
	Batches   int
	Duration  time.Duration
	Stats     Stats
}

// Stats describes index occupancy.
type Stats struct {
	TotalVectors int
	Namespaces   map[string]int
}

// Health is the aggregated component health.
type Health struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component → "ok"/"error"
}
