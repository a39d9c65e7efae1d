package session

import (
	"context"
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/estateloyalty/internal/clock"
	"github.com/smallbiznis/estateloyalty/internal/config"
	"github.com/smallbiznis/estateloyalty/internal/membership/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	ErrNotFound        = errors.New("session_not_found")
	ErrInvalidCustomer = errors.New("invalid_customer")
)

const minSweepInterval = time.Second

// Manager keeps the live sessions of this process. Sessions are not
// persisted: a restart starts every member again at Sapphire.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	clock    clock.Clock
	idle     time.Duration
	log      *zap.Logger
	entropy  *ulid.MonotonicEntropy
	entropyM sync.Mutex
}

type Params struct {
	fx.In

	Cfg   config.Config
	Clock clock.Clock
	Log   *zap.Logger
}

func NewManager(p Params) *Manager {
	return New(p.Clock, p.Cfg.SessionIdleTimeout, p.Log)
}

func New(c clock.Clock, idle time.Duration, log *zap.Logger) *Manager {
	if c == nil {
		c = clock.SystemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		clock:    c,
		idle:     idle,
		log:      log.Named("session.manager"),
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}
}

// Open starts a session for a customer with a fresh Sapphire state.
func (m *Manager) Open(customerID string) (*Session, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, ErrInvalidCustomer
	}

	now := m.clock.Now()
	s := &Session{
		ID:         m.newID(now),
		CustomerID: customerID,
		CreatedAt:  now,
		Membership: domain.NewState(),
		lastSeen:   now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.log.Debug("session opened", zap.String("session_id", s.ID), zap.String("customer_id", customerID))
	return s, nil
}

// Get returns a live session and marks it as used.
func (m *Manager) Get(id string) (*Session, error) {
	id = strings.TrimSpace(id)

	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	now := m.clock.Now()
	if m.expired(s, now) {
		m.remove(id)
		return nil, ErrNotFound
	}
	s.touch(now)
	return s, nil
}

// Close tears the session's membership state down and forgets it.
func (m *Manager) Close(id string) error {
	if !m.remove(strings.TrimSpace(id)) {
		return ErrNotFound
	}
	m.log.Debug("session closed", zap.String("session_id", id))
	return nil
}

// Sweep drops idle sessions and reports how many were removed.
func (m *Manager) Sweep() int {
	now := m.clock.Now()

	m.mu.RLock()
	var stale []string
	for id, s := range m.sessions {
		if m.expired(s, now) {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	removed := 0
	for _, id := range stale {
		if m.remove(id) {
			removed++
		}
	}
	if removed > 0 {
		m.log.Info("expired idle sessions", zap.Int("count", removed))
	}
	return removed
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) expired(s *Session, now time.Time) bool {
	if m.idle <= 0 {
		return false
	}
	return now.Sub(s.idleSince()) > m.idle
}

func (m *Manager) remove(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if ok {
		s.Membership.Teardown()
	}
	return ok
}

func (m *Manager) newID(now time.Time) string {
	m.entropyM.Lock()
	defer m.entropyM.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), m.entropy).String()
}

// RunSweeper expires idle sessions in the background for the lifetime of the app.
func RunSweeper(lc fx.Lifecycle, m *Manager) {
	if m.idle <= 0 {
		return
	}
	interval := m.idle / 4
	if interval < minSweepInterval {
		interval = minSweepInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						m.Sweep()
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}
