package db

// KNNQuery is the input for vector similarity search.
// Result scores assume cosine distance: the driver converts each
// reported distance d into a similarity max(0, 1-d).
type KNNQuery struct {
	IndexName    string
	Namespace    string // optional TAG pre-filter; empty searches the whole index
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
