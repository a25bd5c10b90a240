package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"propertychat/internal/metrics"
	"propertychat/internal/model"
)

// snapshot is the state written after a successful turn
type snapshot struct {
	criteria   model.Criteria
	transcript model.Transcript
}

// persister writes snapshots for one user on a single background goroutine.
// Only the most recent unwritten snapshot is kept, so writes land in commit
// order and a slow backend never queues more than one pending write.
type persister struct {
	userID   string
	profile  model.User
	profiles ProfileStore
	cache    LocalCache
	timeout  time.Duration
	logger   *zap.Logger
	metrics  *metrics.Metrics

	mu      sync.Mutex
	idle    *sync.Cond
	pending *snapshot
	busy    bool
	closed  bool
}

func newPersister(userID string, profile model.User, deps Deps, timeout time.Duration) *persister {
	p := &persister{
		userID:   userID,
		profile:  profile,
		profiles: deps.Profiles,
		cache:    deps.Cache,
		timeout:  timeout,
		logger:   deps.Logger.With(zap.String("user_id", userID)),
		metrics:  deps.Metrics,
	}
	p.idle = sync.NewCond(&p.mu)
	return p
}

// enqueue replaces any pending snapshot and starts the writer if needed.
// Snapshots arriving after close are dropped.
func (p *persister) enqueue(s snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		p.logger.Debug("snapshot dropped after close")
		return
	}
	p.pending = &s
	if !p.busy {
		p.busy = true
		go p.run()
	}
}

// flush blocks until every enqueued snapshot has been written or dropped
func (p *persister) flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.busy {
		p.idle.Wait()
	}
}

// close refuses further snapshots. Anything already pending is still
// written, so callers flush after close.
func (p *persister) close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

func (p *persister) run() {
	for {
		p.mu.Lock()
		s := p.pending
		p.pending = nil
		if s == nil {
			p.busy = false
			p.idle.Broadcast()
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()

		p.write(*s)
	}
}

// write performs the three independent best-effort writes. A failure in one
// never prevents the others and is only logged.
func (p *persister) write(s snapshot) {
	if p.profiles != nil {
		p.attempt("preferences", func(ctx context.Context) error {
			return p.profiles.PatchPreferences(ctx, p.userID, s.criteria)
		})
		p.attempt("messages", func(ctx context.Context) error {
			return p.profiles.PatchMessages(ctx, p.userID, s.transcript)
		})
	}

	if p.cache != nil {
		user := p.profile
		user.ID = p.userID
		criteria := s.criteria
		user.Preferences = &criteria
		user.Messages = s.transcript

		p.attempt("cache", func(ctx context.Context) error {
			return p.cache.Save(ctx, p.userID, &model.CachedUser{User: user, CachedAt: time.Now().UTC()})
		})
	}
}

func (p *persister) attempt(target string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		p.metrics.PersistenceFailed(target)
		p.logger.Warn("persist failed",
			zap.String("target", target),
			zap.Error(fmt.Errorf("%w: %w", ErrPersistence, err)))
	}
}
