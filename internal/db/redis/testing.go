package redis

import (
	"github.com/redis/rueidis"

	"github.com/kailas-cloud/skumatch/internal/db"
)

// NewStoreForTest wires an existing client; used by tests with rueidis/mock.
func NewStoreForTest(client rueidis.Client) *Store {
	return &Store{client: client, keys: db.Keys{Prefix: "skumatch:"}}
}
