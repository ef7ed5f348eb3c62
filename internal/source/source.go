// Package source holds the shared pieces of the record producers feeding
// the ingestion pipeline.
//
// A producer exposes Name() and Fetch(ctx) ([]record.Record, error).
// Fetch either succeeds, fails outright, or returns a usable subset
// together with a *PartialError describing what was missed; ingestion
// continues with the subset in the partial case.
package source

import "fmt"

// PartialError reports a fetch that produced a usable subset of the source
// data. Fetched counts the records returned alongside the error; Skipped
// counts records known to be dropped (0 when the remainder is unknown,
// e.g. a pagination failure mid-stream).
type PartialError struct {
	Fetched int
	Skipped int
	Err     error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("partial fetch: %d fetched, %d skipped: %v", e.Fetched, e.Skipped, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }
