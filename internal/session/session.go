package session

import (
	"sync"
	"time"

	"github.com/smallbiznis/estateloyalty/internal/membership/domain"
)

// Session is one authenticated user's app usage, from login to logout.
type Session struct {
	ID         string
	CustomerID string
	CreatedAt  time.Time
	Membership *domain.State

	mu          sync.Mutex
	lastSeen    time.Time
	totalSpent  *float64
	refreshedAt *time.Time
}

// Observation is the outcome of recording a completed spend fetch.
type Observation struct {
	Applied      bool
	PreviousTier domain.Tier
	Tier         domain.Tier
}

// RecordSpend classifies total and applies it under ticket. The spend
// total is kept only when the tier was applied, so the two never disagree.
func (s *Session) RecordSpend(ticket domain.Ticket, total float64, at time.Time) (Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.Membership.Current()
	tier := domain.Classify(total)
	applied, err := s.Membership.Apply(ticket, tier)
	if err != nil {
		return Observation{}, err
	}
	if applied {
		s.totalSpent = &total
		s.refreshedAt = &at
	}
	return Observation{Applied: applied, PreviousTier: previous, Tier: s.Membership.Current()}, nil
}

// View returns the current tier together with the spend behind it, read
// under the same lock RecordSpend holds.
func (s *Session) View() (domain.Tier, *float64, *time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tier := s.Membership.Current()
	if s.totalSpent == nil || s.Membership.Closed() {
		return tier, nil, nil
	}
	total := *s.totalSpent
	at := *s.refreshedAt
	return tier, &total, &at
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}
