package domain

// Metadata fields every index entry carries alongside source-defined ones.
const (
	MetaSourceID       = "source_id"
	MetaSearchableText = "searchable_text"
	MetaSource         = "source"
)

// Entry is the persisted unit of the vector index: one vector per ID per
// namespace, upsert replaces.
type Entry struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
}

// Match is a single nearest-neighbor hit. Score is cosine similarity
// in [0,1], results are ordered descending by score.
type Match struct {
	ID       string
	Score    float64
	Metadata map[string]string
}

// SearchableText returns the match's indexed text, or ok=false when the
// entry was written without it.
func (m *Match) SearchableText() (string, bool) {
	text, ok := m.Metadata[MetaSearchableText]
	return text, ok
}

// IndexStats describes index occupancy for health and operator reporting.
type IndexStats struct {
	TotalVectorCount int
	Namespaces       map[string]int
}
