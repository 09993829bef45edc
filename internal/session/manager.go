package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sermon-translate-service/internal/clock"
	"sermon-translate-service/internal/events"
	"sermon-translate-service/internal/observability/logging"
	"sermon-translate-service/internal/observability/metrics"
	"sermon-translate-service/internal/service/translate"
)

// Deps bundles what every session shares.
type Deps struct {
	Clock      clock.Clock
	NewAdapter AdapterFactory
	Provider   translate.Provider
	Publisher  *events.Publisher

	// Template holds the per-session settings; SessionID is assigned
	// by the manager.
	Template Config
}

// Manager owns the registry of live sessions.
type Manager struct {
	deps   Deps
	logger zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates an empty registry.
func NewManager(deps Deps) *Manager {
	if deps.Clock == nil {
		deps.Clock = clock.System()
	}
	return &Manager{
		deps:     deps,
		logger:   logging.WithComponent("session-manager"),
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session and registers it. customize, when
// non-nil, adjusts the template settings before the session starts.
func (m *Manager) Create(ctx context.Context, customize func(*Config)) (*Session, error) {
	cfg := m.deps.Template
	if customize != nil {
		customize(&cfg)
	}
	cfg.SessionID = uuid.NewString()

	s := New(cfg, m.deps.Clock, m.deps.NewAdapter, m.deps.Provider, m.deps.Publisher)
	if err := s.Start(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	metrics.DefaultMetrics.RecordSessionStart()
	m.logger.Info().Str("sessionId", s.ID()).Msg("session created")
	return s, nil
}

// Get looks up a session by id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove closes a session and drops it from the registry. Unknown ids
// are a no-op.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return
	}

	s.Close()
	duration := m.deps.Clock.Now().Sub(s.StartedAt())
	metrics.DefaultMetrics.RecordSessionEnd(s.Err() == nil, duration.Seconds())
	m.logger.Info().
		Str("sessionId", id).
		Dur("duration", duration).
		Msg("session removed")
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// List snapshots all live sessions for the debug endpoints.
func (m *Manager) List() []Stats {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	stats := make([]Stats, 0, len(sessions))
	for _, s := range sessions {
		stats = append(stats, s.Stats())
	}
	return stats
}

// Shutdown closes every session concurrently and returns when all are
// drained.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			s.Close()
			duration := m.deps.Clock.Now().Sub(s.StartedAt())
			metrics.DefaultMetrics.RecordSessionEnd(s.Err() == nil, duration.Seconds())
		}(s)
	}
	wg.Wait()
	m.logger.Info().Int("count", len(sessions)).Msg("all sessions closed")
}
