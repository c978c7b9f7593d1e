package store

import (
	"context"

	"treasure-raffle/internal/commitstore"

	"github.com/rs/zerolog/log"
)

// Backend is the commit backend a binary runs with. Ping is nil for the
// file backend.
type Backend struct {
	commitstore.Backend
	Ping  func(ctx context.Context) error
	Close func()
}

// OpenBackend uses Postgres when dsn is set and the JSON commit file
// otherwise.
func OpenBackend(ctx context.Context, dsn, commitFile string) (*Backend, error) {
	if dsn == "" {
		f, err := commitstore.NewFile(commitFile)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", f.Path()).Msg("commit store: file")
		return &Backend{Backend: f, Close: func() {}}, nil
	}
	st, err := New(dsn)
	if err != nil {
		return nil, err
	}
	if err := st.Ping(ctx); err != nil {
		st.Close()
		return nil, err
	}
	log.Info().Msg("commit store: postgres")
	return &Backend{Backend: st, Ping: st.Ping, Close: st.Close}, nil
}
