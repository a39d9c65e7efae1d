package domain

import "sync"

// Ticket identifies one spend fetch. Tickets are ordered by when the fetch
// was initiated, not by when it completes.
type Ticket struct {
	seq uint64
}

// Seq exposes the ticket ordering for logging.
func (t Ticket) Seq() uint64 {
	return t.seq
}

// State is the session-scoped holder of a member's current tier.
//
// A fetch calls Begin before going to the network and Apply with the
// returned ticket once it has a tier. Apply refuses a ticket older than
// one already applied, so when responses complete out of order the tier
// left in place belongs to the most recently initiated fetch that
// succeeded. A failed fetch never calls Apply and leaves the tier as is.
type State struct {
	mu      sync.RWMutex
	tier    Tier
	issued  uint64
	applied uint64
	closed  bool
}

// NewState returns an initialized state holding Sapphire.
func NewState() *State {
	s := &State{}
	s.Initialize()
	return s
}

// Initialize resets the state to Sapphire for a new session. Tickets
// issued before the reset can no longer be applied.
func (s *State) Initialize() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tier = TierSapphire
	s.applied = s.issued
	s.closed = false
}

// Current returns the latest tier, Sapphire before any update.
func (s *State) Current() Tier {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.tier == "" {
		return TierSapphire
	}
	return s.tier
}

// Update overwrites the tier immediately. It counts as a fetch that was
// both initiated and completed now.
func (s *State) Update(tier Tier) error {
	_, err := s.Apply(s.Begin(), tier)
	return err
}

// Begin issues a ticket for a fetch that is about to start.
func (s *State) Begin() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.issued++
	return Ticket{seq: s.issued}
}

// Apply stores tier if no later-initiated fetch has been applied yet.
// It reports whether the tier was stored.
func (s *State) Apply(t Ticket, tier Tier) (bool, error) {
	if !tier.Valid() {
		return false, ErrInvalidTier
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || t.seq == 0 || t.seq <= s.applied {
		return false, nil
	}
	s.applied = t.seq
	s.tier = tier
	return true, nil
}

// Latest reports whether t is the most recently issued ticket.
func (s *State) Latest(t Ticket) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return t.seq == s.issued
}

// Teardown ends the session lifecycle. Later applies are ignored and
// Current falls back to Sapphire.
func (s *State) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.tier = TierSapphire
}

// Closed reports whether Teardown was called.
func (s *State) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.closed
}
