package store

import (
	"context"
	"strings"
	"time"

	"treasure-raffle/internal/commitstore"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgtype"
)

var _ commitstore.Backend = (*Store)(nil)

func (s *Store) PutCommitment(ctx context.Context, c commitstore.Commitment) error {
	_, err := s.Pool.Exec(ctx, `
INSERT INTO hunt_commitments (id, hunt_id, square_index, wallet, tx_hash, created_at, confirmed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (hunt_id, square_index, wallet) DO NOTHING`,
		commitmentID(c.CreatedAt),
		int64(c.HuntID),
		int64(c.Square),
		walletParam(c.Wallet),
		hashParam(c.TxHash),
		c.CreatedAt,
		timeParam(c.ConfirmedAt),
	)
	return err
}

func (s *Store) DeleteCommitment(ctx context.Context, key commitstore.Key) error {
	_, err := s.Pool.Exec(ctx,
		`DELETE FROM hunt_commitments WHERE hunt_id = $1 AND square_index = $2 AND wallet = $3`,
		int64(key.HuntID), int64(key.Square), walletParam(key.Wallet))
	return err
}

func (s *Store) ListCommitments(ctx context.Context, huntID uint64, wallet common.Address) ([]commitstore.Commitment, error) {
	rows, err := s.Pool.Query(ctx, `
SELECT square_index, tx_hash, created_at, confirmed_at
FROM hunt_commitments
WHERE hunt_id = $1 AND wallet = $2
ORDER BY square_index`, int64(huntID), walletParam(wallet))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]commitstore.Commitment, 0)
	for rows.Next() {
		var (
			square      int64
			txHash      pgtype.Text
			createdAt   time.Time
			confirmedAt pgtype.Timestamptz
		)
		if err := rows.Scan(&square, &txHash, &createdAt, &confirmedAt); err != nil {
			return nil, err
		}
		c := commitstore.Commitment{
			Key: commitstore.Key{
				HuntID: huntID,
				Square: uint64(square),
				Wallet: wallet,
			},
			CreatedAt:   createdAt,
			ConfirmedAt: timePtrVal(confirmedAt),
		}
		if v := textVal(txHash); v != "" {
			c.TxHash = common.HexToHash(v)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) ConfirmCommitment(ctx context.Context, key commitstore.Key, txHash common.Hash, at time.Time) error {
	_, err := s.Pool.Exec(ctx, `
UPDATE hunt_commitments SET tx_hash = $4, confirmed_at = $5
WHERE hunt_id = $1 AND square_index = $2 AND wallet = $3`,
		int64(key.HuntID), int64(key.Square), walletParam(key.Wallet), hashParam(txHash), at)
	return err
}

// CountCommitments reports how many rows exist for a hunt across wallets.
func (s *Store) CountCommitments(ctx context.Context, huntID uint64) (int64, error) {
	var n int64
	err := s.Pool.QueryRow(ctx, `SELECT count(*) FROM hunt_commitments WHERE hunt_id = $1`, int64(huntID)).Scan(&n)
	return n, mapNotFound(err)
}

// Addresses are stored lowercased so lookups ignore checksum casing.
func walletParam(a common.Address) string {
	return strings.ToLower(a.Hex())
}

func hashParam(h common.Hash) pgtype.Text {
	if h == (common.Hash{}) {
		return pgtype.Text{}
	}
	return textParam(h.Hex())
}
