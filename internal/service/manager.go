package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionManager owns the live sessions of the process
type SessionManager struct {
	deps Deps
	opts SessionOptions

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionManager creates an empty manager
func NewSessionManager(deps Deps, opts SessionOptions) *SessionManager {
	return &SessionManager{
		deps:     deps.withDefaults(),
		opts:     opts.withDefaults(),
		sessions: make(map[string]*Session),
	}
}

// Start bootstraps and registers a new session for userID ("" for
// anonymous). The session is only visible to Get once bootstrap is done, so
// no turn can race it. warning carries a recoverable hydration failure.
func (m *SessionManager) Start(ctx context.Context, userID string) (s *Session, warning error, err error) {
	id := uuid.NewString()

	s, err = Bootstrap(ctx, id, userID, m.deps, m.opts)
	if err != nil {
		m.deps.Logger.Error("session start failed", zap.String("user_id", userID), zap.Error(err))
		return nil, nil, err
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.deps.Metrics.SessionOpened()
	m.deps.Logger.Info("session started",
		zap.String("session_id", id),
		zap.Bool("authenticated", s.Authenticated()))

	return s, s.HydrationError(), nil
}

// Get returns the live session with id
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Logout discards the session. It is closed to new writes, pending
// persistence drains, then the user's local cache entry is cleared.
func (m *SessionManager) Logout(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	s.close()
	s.Flush()
	m.deps.Metrics.SessionClosed()

	if s.Authenticated() && m.deps.Cache != nil {
		if err := m.deps.Cache.Clear(ctx, s.UserID()); err != nil {
			m.deps.Metrics.PersistenceFailed("cache")
			m.deps.Logger.Warn("local cache clear failed",
				zap.String("session_id", id),
				zap.Error(fmt.Errorf("%w: %w", ErrPersistence, err)))
		}
	}

	m.deps.Logger.Info("session closed", zap.String("session_id", id))
	return nil
}

// Len returns the number of live sessions
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown drains the persistence of every live session
func (m *SessionManager) Shutdown() {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	for _, s := range sessions {
		s.Flush()
	}
}
