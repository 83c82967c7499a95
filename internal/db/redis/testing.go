package redis

import (
	"github.com/redis/rueidis"

	"github.com/kailas-cloud/suntan/internal/db"
)

// NewStoreForTest creates a Store with the provided rueidis client (test-only).
func NewStoreForTest(c rueidis.Client, def *db.IndexDefinition) *Store {
	return newStore(c, def)
}
