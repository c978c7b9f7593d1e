// Package poller runs per-key refresh tasks on a fixed interval for as long
// as at least one watcher holds the key.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

var ErrNotWatched = errors.New("not_watched")

// Task refreshes one key. Returning false stops polling for that key until
// the next Watch.
type Task func(ctx context.Context) bool

type watch struct {
	job  gocron.Job
	refs int
}

type Poller struct {
	sched    gocron.Scheduler
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc

	mu      sync.Mutex
	watches map[string]*watch
}

func New(interval time.Duration) (*Poller, error) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	sched.Start()
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		sched:    sched,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		watches:  make(map[string]*watch),
	}, nil
}

// Watch starts (or joins) polling for key and returns its release func.
// The first run happens immediately.
func (p *Poller) Watch(key string, task Task) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if w, ok := p.watches[key]; ok {
		w.refs++
		return p.releaser(key, w), nil
	}

	w := &watch{refs: 1}
	job, err := p.sched.NewJob(
		gocron.DurationJob(p.interval),
		gocron.NewTask(func() {
			if p.ctx.Err() != nil {
				return
			}
			if !task(p.ctx) {
				go p.drop(key, w)
			}
		}),
		gocron.WithName(key),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return nil, err
	}
	w.job = job
	p.watches[key] = w
	metricWatches.Add(1)
	log.Debug().Str("key", key).Dur("interval", p.interval).Msg("polling started")
	return p.releaser(key, w), nil
}

func (p *Poller) releaser(key string, w *watch) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if p.watches[key] != w {
				return
			}
			w.refs--
			if w.refs > 0 {
				return
			}
			p.removeLocked(key, w)
		})
	}
}

func (p *Poller) drop(key string, w *watch) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.watches[key] != w {
		return
	}
	p.removeLocked(key, w)
}

func (p *Poller) removeLocked(key string, w *watch) {
	delete(p.watches, key)
	metricWatches.Add(-1)
	if err := p.sched.RemoveJob(w.job.ID()); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("remove poll job")
	}
	log.Debug().Str("key", key).Msg("polling stopped")
}

// Trigger runs key's task now, outside the interval.
func (p *Poller) Trigger(key string) error {
	p.mu.Lock()
	w, ok := p.watches[key]
	p.mu.Unlock()
	if !ok {
		return ErrNotWatched
	}
	return w.job.RunNow()
}

func (p *Poller) Watching(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.watches[key]
	return ok
}

// Stop cancels running tasks and shuts the scheduler down.
func (p *Poller) Stop() error {
	p.cancel()
	p.mu.Lock()
	p.watches = make(map[string]*watch)
	p.mu.Unlock()
	return p.sched.Shutdown()
}
