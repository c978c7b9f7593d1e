package commitstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	walletA = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	walletB = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	fb, err := NewFile(filepath.Join(t.TempDir(), "nested", "commits.json"))
	require.NoError(t, err)
	return map[string]Backend{
		"memory": NewMemory(),
		"file":   fb,
	}
}

func TestRecordIsIdempotent(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			first := time.Unix(1_700_000_000, 0).UTC()
			cache := NewCache(b).WithClock(func() time.Time { return first })

			cache.Record(ctx, 1, 7, walletA)
			cache.WithClock(func() time.Time { return first.Add(time.Hour) })
			cache.Record(ctx, 1, 7, walletA)

			entries := cache.Entries(ctx, 1, walletA)
			require.Len(t, entries, 1)
			assert.Equal(t, uint64(7), entries[0].Square)
			assert.True(t, entries[0].CreatedAt.Equal(first), "second record must not overwrite the first")
			assert.False(t, entries[0].Confirmed())
		})
	}
}

func TestListForWalletScopesByHuntAndWallet(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			cache := NewCache(b)
			cache.Record(ctx, 1, 9, walletA)
			cache.Record(ctx, 1, 2, walletA)
			cache.Record(ctx, 1, 3, walletB)
			cache.Record(ctx, 2, 4, walletA)

			assert.Equal(t, []uint64{2, 9}, cache.ListForWallet(ctx, 1, walletA))
			assert.Equal(t, []uint64{3}, cache.ListForWallet(ctx, 1, walletB))
			assert.Equal(t, []uint64{4}, cache.ListForWallet(ctx, 2, walletA))
			assert.Empty(t, cache.ListForWallet(ctx, 3, walletA))
		})
	}
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			cache := NewCache(b)
			cache.Remove(ctx, 1, 1, walletA)
			cache.Record(ctx, 1, 1, walletA)
			cache.Remove(ctx, 1, 1, walletA)
			cache.Remove(ctx, 1, 1, walletA)
			assert.Empty(t, cache.ListForWallet(ctx, 1, walletA))
		})
	}
}

func TestConfirmMarksEntry(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			cache := NewCache(b)
			tx := common.HexToHash("0x01")
			cache.Record(ctx, 5, 11, walletA)
			cache.Confirm(ctx, 5, 11, walletA, tx)
			cache.Confirm(ctx, 5, 12, walletA, tx)

			entries := cache.Entries(ctx, 5, walletA)
			require.Len(t, entries, 1)
			assert.True(t, entries[0].Confirmed())
			assert.Equal(t, tx, entries[0].TxHash)
		})
	}
}

func TestFileBackendSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "commits.json")
	fb, err := NewFile(path)
	require.NoError(t, err)
	NewCache(fb).Record(ctx, 3, 24, walletA)

	reopened, err := NewFile(path)
	require.NoError(t, err)
	assert.Equal(t, []uint64{24}, NewCache(reopened).ListForWallet(ctx, 3, walletA))
}

func TestFileBackendRecoversFromCorruptDocument(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "commits.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	fb, err := NewFile(path)
	require.NoError(t, err)
	cache := NewCache(fb)
	before := metricBackendFailure.Value()

	cache.Record(ctx, 1, 3, walletA)
	cache.Record(ctx, 1, 4, walletA)

	assert.Equal(t, []uint64{3, 4}, cache.ListForWallet(ctx, 1, walletA))
	assert.Equal(t, before, metricBackendFailure.Value())
	aside, err := os.ReadFile(path + ".corrupt")
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(aside))
}

func TestFileBackendSkipsUnreadableEntry(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "commits.json")
	doc := `{"1_5_bogus":{"huntId":1,"squareIndex":5,"wallet":"bogus","timestamp":"2024-01-01T00:00:00Z"}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	fb, err := NewFile(path)
	require.NoError(t, err)
	cache := NewCache(fb)

	cache.Record(ctx, 1, 6, walletA)
	assert.Equal(t, []uint64{6}, cache.ListForWallet(ctx, 1, walletA))
}

func TestKeyString(t *testing.T) {
	k := Key{HuntID: 4, Square: 12, Wallet: walletA}
	assert.Equal(t, "4_12_"+walletA.Hex(), k.String())
}

type brokenBackend struct{}

var errBroken = errors.New("disk gone")

func (brokenBackend) PutCommitment(context.Context, Commitment) error { return errBroken }
func (brokenBackend) DeleteCommitment(context.Context, Key) error      { return errBroken }
func (brokenBackend) ListCommitments(context.Context, uint64, common.Address) ([]Commitment, error) {
	return nil, errBroken
}
func (brokenBackend) ConfirmCommitment(context.Context, Key, common.Hash, time.Time) error {
	return errBroken
}

func TestCacheSwallowsBackendFailures(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(brokenBackend{})
	before := metricBackendFailure.Value()

	assert.NotPanics(t, func() {
		cache.Record(ctx, 1, 1, walletA)
		cache.Confirm(ctx, 1, 1, walletA, common.Hash{})
		cache.Remove(ctx, 1, 1, walletA)
	})
	assert.Empty(t, cache.ListForWallet(ctx, 1, walletA))
	assert.Equal(t, before+4, metricBackendFailure.Value())
}
