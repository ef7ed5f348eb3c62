package index

import (
	"encoding/binary"
	"math"

	"github.com/cosmos-nexus/nexus/internal/domain"
)

// buildHashFields converts a domain Entry into a flat map[string]string for
// HSET. Metadata keys colliding with reserved fields are dropped.
func buildHashFields(namespace string, e *domain.Entry) map[string]string {
	m := make(map[string]string, 2+len(e.Metadata))
	m[fieldNamespace] = namespace
	m[fieldVector] = vectorToBytes(e.Vector)
	for k, v := range e.Metadata {
		if k == fieldNamespace || k == fieldVector {
			continue
		}
		m[k] = v
	}
	return m
}

// matchMetadata strips the reserved fields off a search hit, leaving the
// entry's own metadata.
func matchMetadata(fields map[string]string) map[string]string {
	meta := make(map[string]string, len(fields))
	for k, v := range fields {
		if k == fieldNamespace || k == fieldVector {
			continue
		}
		meta[k] = v
	}
	return meta
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
