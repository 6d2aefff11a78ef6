package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/sumika/internal/session"
	"go.uber.org/zap"
)

const (
	defaultSessionTTL   = 30 * time.Minute
	defaultSweepEvery   = time.Minute
	maxSessionsPerSweep = 1000
)

type managedSession struct {
	controller *session.Controller
	lastAccess time.Time
}

// sessionManager tracks live query sessions by id and expires the ones no
// client has touched within the TTL.
type sessionManager struct {
	mu       sync.Mutex
	sessions map[string]*managedSession
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func newSessionManager(ttl time.Duration, logger *zap.Logger) *sessionManager {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &sessionManager{
		sessions: make(map[string]*managedSession),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

// Create registers a started controller and returns its session id.
func (m *sessionManager) Create(ctl *session.Controller) string {
	id := uuid.NewString()
	m.mu.Lock()
	m.sessions[id] = &managedSession{controller: ctl, lastAccess: m.now()}
	m.mu.Unlock()
	return id
}

// Get returns the controller for id, refreshing its TTL.
func (m *sessionManager) Get(id string) (*session.Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	ms.lastAccess = m.now()
	return ms.controller, true
}

// Delete drops the session for id.
func (m *sessionManager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

// Len returns the number of live sessions.
func (m *sessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// sweep drops sessions idle longer than the TTL.
func (m *sessionManager) sweep() int {
	cutoff := m.now().Add(-m.ttl)
	m.mu.Lock()
	defer m.mu.Unlock()
	dropped := 0
	for id, ms := range m.sessions {
		if ms.lastAccess.Before(cutoff) {
			delete(m.sessions, id)
			dropped++
			if dropped >= maxSessionsPerSweep {
				break
			}
		}
	}
	return dropped
}

// janitor runs sweep periodically until ctx is cancelled.
func (m *sessionManager) janitor(ctx context.Context) {
	ticker := time.NewTicker(defaultSweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if dropped := m.sweep(); dropped > 0 {
				m.logger.Debug("expired idle sessions", zap.Int("count", dropped))
			}
		}
	}
}
