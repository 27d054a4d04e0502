package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

var ErrNotFound = errors.New("session not found")

// ManagerOptions configures session lifetime.
type ManagerOptions struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
	Registerer    prometheus.Registerer
}

type entry struct {
	ctrl     *Controller
	lastSeen time.Time
}

// Manager keeps one Controller per browser session in memory.
type Manager struct {
	mu       sync.Mutex
	ctx      context.Context
	sessions map[uuid.UUID]*entry
	deps     Deps
	idleTTL  time.Duration
	interval time.Duration
	logger   zerolog.Logger
	active   prometheus.Gauge
	now      func() time.Time
}

// NewManager builds a manager whose sessions live under ctx.
func NewManager(ctx context.Context, deps Deps, opts ManagerOptions, logger zerolog.Logger) *Manager {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 30 * time.Minute
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}
	m := &Manager{
		ctx:      ctx,
		sessions: make(map[uuid.UUID]*entry),
		deps:     deps,
		idleTTL:  opts.IdleTTL,
		interval: opts.SweepInterval,
		logger:   logger.With().Str("component", "session_manager").Logger(),
		now:      time.Now,
	}
	if opts.Registerer != nil {
		m.active = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trivia_active_sessions",
			Help: "Sessions currently held in memory.",
		})
		opts.Registerer.MustRegister(m.active)
	}
	return m
}

// Create registers a new session and starts acquiring its access token in
// the background.
func (m *Manager) Create() (uuid.UUID, *Controller) {
	id := uuid.New()
	ctrl := NewController(m.ctx, m.deps, m.logger.With().Str("session_id", id.String()).Logger())

	m.mu.Lock()
	m.sessions[id] = &entry{ctrl: ctrl, lastSeen: m.now()}
	m.updateGaugeLocked()
	m.mu.Unlock()

	go func() {
		// failures are recorded on the controller and surfaced by its view
		_, _ = ctrl.AcquireToken(ctrl.ctx)
	}()

	m.logger.Debug().Str("session_id", id.String()).Msg("session created")
	return id, ctrl
}

// Get returns the session and marks it as used.
func (m *Manager) Get(id uuid.UUID) (*Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.lastSeen = m.now()
	return e.ctrl, nil
}

// Remove closes and forgets a session.
func (m *Manager) Remove(id uuid.UUID) {
	m.mu.Lock()
	e, ok := m.sessions[id]
	delete(m.sessions, id)
	m.updateGaugeLocked()
	m.mu.Unlock()

	if ok {
		e.ctrl.Close()
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep closes sessions idle for longer than the configured ttl and reports
// how many were removed.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.idleTTL)

	m.mu.Lock()
	var expired []*Controller
	for id, e := range m.sessions {
		if e.lastSeen.Before(cutoff) {
			expired = append(expired, e.ctrl)
			delete(m.sessions, id)
		}
	}
	m.updateGaugeLocked()
	m.mu.Unlock()

	for _, ctrl := range expired {
		ctrl.Close()
	}
	return len(expired)
}

// Run sweeps idle sessions until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Info().Int("expired", n).Int("active", m.Len()).Msg("idle sessions swept")
			}
		}
	}
}

// CloseAll closes every session, used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[uuid.UUID]*entry)
	m.updateGaugeLocked()
	m.mu.Unlock()

	for _, e := range sessions {
		e.ctrl.Close()
	}
}

func (m *Manager) updateGaugeLocked() {
	if m.active != nil {
		m.active.Set(float64(len(m.sessions)))
	}
}
