package store

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	idEntropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	idEntropyMu sync.Mutex
)

// commitmentID returns the hunt_commitments row id: a ULID stamped with the
// commitment's creation time so ids order like the local records did.
// Unset or pre-epoch times fall back to now.
func commitmentID(created time.Time) string {
	if created.IsZero() || created.Before(time.Unix(0, 0)) {
		created = time.Now()
	}
	idEntropyMu.Lock()
	defer idEntropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(created), idEntropy).String()
}
