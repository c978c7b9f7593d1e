package commitstore

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type Memory struct {
	mu      sync.Mutex
	entries map[Key]Commitment
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[Key]Commitment)}
}

func (m *Memory) PutCommitment(_ context.Context, c Commitment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[c.Key]; ok {
		return nil
	}
	m.entries[c.Key] = c
	return nil
}

func (m *Memory) DeleteCommitment(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *Memory) ListCommitments(_ context.Context, huntID uint64, wallet common.Address) ([]Commitment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Commitment, 0)
	for k, c := range m.entries {
		if k.HuntID == huntID && k.Wallet == wallet {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *Memory) ConfirmCommitment(_ context.Context, key Key, txHash common.Hash, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.entries[key]
	if !ok {
		return nil
	}
	c.TxHash = txHash
	t := at
	c.ConfirmedAt = &t
	m.entries[key] = c
	return nil
}
