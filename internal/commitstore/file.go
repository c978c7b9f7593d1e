package commitstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
)

// File keeps commitments in a single JSON document keyed by Key.String().
// Every mutation rewrites the document through a temp file and rename. A
// document that no longer decodes is moved aside to <path>.corrupt and the
// store starts over empty.
type File struct {
	path string
	mu   sync.Mutex
}

type fileEntry struct {
	HuntID      uint64     `json:"huntId"`
	Square      uint64     `json:"squareIndex"`
	Wallet      string     `json:"wallet"`
	TxHash      string     `json:"txHash,omitempty"`
	CreatedAt   time.Time  `json:"timestamp"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
}

func NewFile(path string) (*File, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("commit file path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &File{path: path}, nil
}

func (f *File) Path() string { return f.path }

func (f *File) PutCommitment(_ context.Context, c Commitment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.load()
	if err != nil {
		return err
	}
	id := c.Key.String()
	if _, ok := doc[id]; ok {
		return nil
	}
	doc[id] = toFileEntry(c)
	return f.save(doc)
}

func (f *File) DeleteCommitment(_ context.Context, key Key) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.load()
	if err != nil {
		return err
	}
	id := key.String()
	if _, ok := doc[id]; !ok {
		return nil
	}
	delete(doc, id)
	return f.save(doc)
}

func (f *File) ListCommitments(_ context.Context, huntID uint64, wallet common.Address) ([]Commitment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.load()
	if err != nil {
		return nil, err
	}
	prefix := strconv.FormatUint(huntID, 10) + "_"
	out := make([]Commitment, 0)
	for id, e := range doc {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		c, err := e.commitment()
		if err != nil {
			log.Warn().Err(err).Str("path", f.path).Str("entry", id).Msg("skipping unreadable commitment")
			continue
		}
		if c.HuntID == huntID && c.Wallet == wallet {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *File) ConfirmCommitment(_ context.Context, key Key, txHash common.Hash, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, err := f.load()
	if err != nil {
		return err
	}
	id := key.String()
	e, ok := doc[id]
	if !ok {
		return nil
	}
	e.TxHash = txHash.Hex()
	t := at.UTC()
	e.ConfirmedAt = &t
	doc[id] = e
	return f.save(doc)
}

func (f *File) load() (map[string]fileEntry, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]fileEntry), nil
	}
	if err != nil {
		return nil, err
	}
	doc := make(map[string]fileEntry)
	if len(strings.TrimSpace(string(b))) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		aside := f.path + ".corrupt"
		if rerr := os.Rename(f.path, aside); rerr != nil {
			return nil, fmt.Errorf("move aside %s: %w", f.path, rerr)
		}
		log.Warn().Err(err).Str("path", f.path).Str("moved_to", aside).Msg("commit file unreadable, starting empty")
		return make(map[string]fileEntry), nil
	}
	return doc, nil
}

func (f *File) save(doc map[string]fileEntry) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func toFileEntry(c Commitment) fileEntry {
	e := fileEntry{
		HuntID:    c.HuntID,
		Square:    c.Square,
		Wallet:    c.Wallet.Hex(),
		CreatedAt: c.CreatedAt.UTC(),
	}
	if c.TxHash != (common.Hash{}) {
		e.TxHash = c.TxHash.Hex()
	}
	if c.ConfirmedAt != nil {
		t := c.ConfirmedAt.UTC()
		e.ConfirmedAt = &t
	}
	return e
}

func (e fileEntry) commitment() (Commitment, error) {
	if !common.IsHexAddress(e.Wallet) {
		return Commitment{}, fmt.Errorf("bad wallet %q", e.Wallet)
	}
	c := Commitment{
		Key: Key{
			HuntID: e.HuntID,
			Square: e.Square,
			Wallet: common.HexToAddress(e.Wallet),
		},
		CreatedAt:   e.CreatedAt,
		ConfirmedAt: e.ConfirmedAt,
	}
	if e.TxHash != "" {
		c.TxHash = common.HexToHash(e.TxHash)
	}
	return c, nil
}
