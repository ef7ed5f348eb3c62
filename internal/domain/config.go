package domain

// KeyPrefix is the root prefix for every Redis key the service writes.
const KeyPrefix = "nexus:"

// Default index layout shared by the server config and the SDK.
const (
	DefaultIndexName = "nexus"
	DefaultNamespace = "default"
)

// VectorConfig holds internal vectorization settings, not exposed to clients.
type VectorConfig struct {
	Model               string
	Dimensions          int
	DistanceMetric      string
	Algorithm           string
	DocumentInstruction string
	QueryInstruction    string
}

// DefaultVectorConfig returns the default configuration tuned for all-MiniLM-L12-v2.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:          "sentence-transformers/all-MiniLM-L12-v2",
		Dimensions:     384,
		DistanceMetric: "cosine",
		Algorithm:      "flat",
	}
}
