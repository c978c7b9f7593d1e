package commitstore

import (
	"context"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
)

// Cache is the commit store used by the flows. Backend failures are logged
// and swallowed: losing a local record must never block a transaction.
type Cache struct {
	backend Backend
	now     func() time.Time
}

func NewCache(backend Backend) *Cache {
	return &Cache{backend: backend, now: time.Now}
}

// WithClock overrides the timestamp source.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

func (c *Cache) Now() time.Time { return c.now() }

// Record inserts a pending commitment. Recording an existing key keeps the
// first record.
func (c *Cache) Record(ctx context.Context, huntID, square uint64, wallet common.Address) {
	key := Key{HuntID: huntID, Square: square, Wallet: wallet}
	err := c.backend.PutCommitment(ctx, Commitment{Key: key, CreatedAt: c.now()})
	if err != nil {
		c.fail("record", key, err)
		return
	}
	metricRecords.Add(1)
}

func (c *Cache) Confirm(ctx context.Context, huntID, square uint64, wallet common.Address, txHash common.Hash) {
	key := Key{HuntID: huntID, Square: square, Wallet: wallet}
	if err := c.backend.ConfirmCommitment(ctx, key, txHash, c.now()); err != nil {
		c.fail("confirm", key, err)
	}
}

// Remove deletes the entry if present.
func (c *Cache) Remove(ctx context.Context, huntID, square uint64, wallet common.Address) {
	key := Key{HuntID: huntID, Square: square, Wallet: wallet}
	if err := c.backend.DeleteCommitment(ctx, key); err != nil {
		c.fail("remove", key, err)
		return
	}
	metricRemovals.Add(1)
}

// ListForWallet returns the committed square indexes, ascending.
func (c *Cache) ListForWallet(ctx context.Context, huntID uint64, wallet common.Address) []uint64 {
	entries := c.Entries(ctx, huntID, wallet)
	out := make([]uint64, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Square)
	}
	return out
}

// Entries returns full records ordered by square; a failing backend yields none.
func (c *Cache) Entries(ctx context.Context, huntID uint64, wallet common.Address) []Commitment {
	entries, err := c.backend.ListCommitments(ctx, huntID, wallet)
	if err != nil {
		c.fail("list", Key{HuntID: huntID, Wallet: wallet}, err)
		return nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Square < entries[j].Square })
	return entries
}

func (c *Cache) fail(op string, key Key, err error) {
	metricBackendFailure.Add(1)
	log.Warn().
		Err(err).
		Str("op", op).
		Uint64("hunt_id", key.HuntID).
		Uint64("square", key.Square).
		Str("wallet", key.Wallet.Hex()).
		Msg("commit store backend failure")
}
