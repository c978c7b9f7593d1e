// Package txflow runs user-triggered transaction flows one at a time and
// keeps their progress for display.
package txflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"treasure-raffle/internal/chain"
	"treasure-raffle/internal/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog/log"
)

var (
	ErrBusy         = errors.New("flow_in_progress")
	ErrFlowPanicked = errors.New("flow panicked")
)

// FailureMessage is shown for every write-path failure.
const FailureMessage = "Transaction failed, please try again"

type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StateSuccess    State = "success"
	StateError      State = "error"
)

type Status struct {
	Action    string
	State     State
	TxHash    common.Hash
	Error     string
	Kind      string
	UpdatedAt time.Time
}

// Runner allows a single in-flight flow. Failed flows are never retried.
type Runner struct {
	name   string
	wallet wallet.Wallet

	mu       sync.Mutex
	busy     bool
	status   Status
	onChange []func(Status)
	now      func() time.Time
}

func NewRunner(name string, w wallet.Wallet) *Runner {
	r := &Runner{name: name, wallet: w, now: time.Now}
	r.status = Status{State: StateIdle, UpdatedAt: r.now()}
	return r
}

func (r *Runner) Name() string { return r.name }

func (r *Runner) Wallet() wallet.Wallet { return r.wallet }

// OnChange registers a callback invoked after every status change.
func (r *Runner) OnChange(fn func(Status)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = append(r.onChange, fn)
}

func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.busy
}

// Do runs fn as action. It fails with ErrBusy while another flow runs. A
// panicking fn is reported as a failed flow wrapping ErrFlowPanicked.
func (r *Runner) Do(ctx context.Context, action string, fn func(ctx context.Context, f *Flow) error) error {
	r.mu.Lock()
	if r.busy {
		r.mu.Unlock()
		metricBusy.Add(1)
		return ErrBusy
	}
	r.busy = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.busy = false
		r.mu.Unlock()
	}()
	metricStarted.Add(1)
	r.update(func(s *Status) {
		*s = Status{Action: action, State: StateProcessing}
	})

	err := r.run(ctx, action, fn)

	r.update(func(s *Status) {
		if err != nil {
			s.State = StateError
			s.Error = FailureMessage
			s.Kind = Kind(err)
			return
		}
		s.State = StateSuccess
	})

	if err != nil {
		metricFailed.Add(1)
		log.Warn().Err(err).Str("surface", r.name).Str("action", action).Str("kind", Kind(err)).Msg("flow failed")
	} else {
		metricSucceeded.Add(1)
		log.Info().Str("surface", r.name).Str("action", action).Msg("flow succeeded")
	}
	return err
}

func (r *Runner) run(ctx context.Context, action string, fn func(ctx context.Context, f *Flow) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().Str("surface", r.name).Str("action", action).Str("panic", fmt.Sprint(p)).Msg("flow panicked")
			err = fmt.Errorf("%w: %v", ErrFlowPanicked, p)
		}
	}()
	return fn(ctx, &Flow{runner: r, action: action})
}

func (r *Runner) update(fn func(s *Status)) {
	r.mu.Lock()
	fn(&r.status)
	r.status.UpdatedAt = r.now()
	st := r.status
	hooks := append([]func(Status){}, r.onChange...)
	r.mu.Unlock()
	for _, h := range hooks {
		h(st)
	}
}

// Flow is the handle a running flow uses to talk to the wallet.
type Flow struct {
	runner *Runner
	action string
}

func (f *Flow) Wallet() wallet.Wallet { return f.runner.wallet }

// Submit broadcasts call and records its hash without waiting.
func (f *Flow) Submit(ctx context.Context, call wallet.Call) (common.Hash, error) {
	if call.Action == "" {
		call.Action = f.action
	}
	hash, err := f.runner.wallet.SendTransaction(ctx, call)
	if err != nil {
		return common.Hash{}, err
	}
	f.runner.update(func(s *Status) { s.TxHash = hash })
	return hash, nil
}

func (f *Flow) Wait(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return f.runner.wallet.WaitConfirmed(ctx, hash)
}

// Send submits call and waits for its confirmation.
func (f *Flow) Send(ctx context.Context, call wallet.Call) (*types.Receipt, error) {
	hash, err := f.Submit(ctx, call)
	if err != nil {
		return nil, err
	}
	return f.Wait(ctx, hash)
}

// Kind classifies err for status reporting.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, wallet.ErrSigningDeclined):
		return "signing_declined"
	case errors.Is(err, wallet.ErrSubmissionFailed):
		return "submission_failed"
	case errors.Is(err, wallet.ErrTransactionReverted):
		return "transaction_reverted"
	case errors.Is(err, chain.ErrRemoteReadUnavailable):
		return "remote_read_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "failed"
	}
}
