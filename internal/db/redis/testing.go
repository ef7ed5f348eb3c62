package redis

import "github.com/redis/rueidis"

// NewStoreForTest wraps an existing rueidis client (e.g. a mock) in a Store.
// Test helper; not for production use.
func NewStoreForTest(c rueidis.Client) *Store {
	return &Store{client: c}
}
