package domain

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateStartsAtSapphire(t *testing.T) {
	s := NewState()
	assert.Equal(t, TierSapphire, s.Current())

	var zero State
	assert.Equal(t, TierSapphire, zero.Current())
}

func TestStateUpdateLastWriteWins(t *testing.T) {
	s := NewState()

	require.NoError(t, s.Update(TierGold))
	assert.Equal(t, TierGold, s.Current())

	require.NoError(t, s.Update(TierBronze))
	assert.Equal(t, TierBronze, s.Current())
}

func TestStateUpdateRejectsUnknownTier(t *testing.T) {
	s := NewState()
	require.NoError(t, s.Update(TierSilver))

	err := s.Update(Tier("Diamond"))
	assert.ErrorIs(t, err, ErrInvalidTier)
	assert.Equal(t, TierSilver, s.Current())
}

func TestStateInitializeResetsTier(t *testing.T) {
	s := NewState()
	require.NoError(t, s.Update(TierPlatinum))

	s.Initialize()
	assert.Equal(t, TierSapphire, s.Current())
}

func TestStateInitializeDiscardsEarlierTickets(t *testing.T) {
	s := NewState()
	s.Begin()
	s.Begin()
	old := s.Begin()

	s.Initialize()
	fresh := s.Begin()

	applied, err := s.Apply(fresh, TierBronze)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = s.Apply(old, TierPlatinum)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, TierBronze, s.Current())
}

func TestStateInitializeBeforeFreshFetchCompletes(t *testing.T) {
	s := NewState()
	old := s.Begin()
	s.Initialize()
	fresh := s.Begin()

	// the pre-reset fetch lands first and is still refused
	applied, err := s.Apply(old, TierPlatinum)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, TierSapphire, s.Current())

	applied, err = s.Apply(fresh, TierSilver)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, TierSilver, s.Current())
}

// Fetch A starts, then fetch B starts; B completes first, then A.
// The tier must come from B, the most recently initiated fetch.
func TestStateOutOfOrderCompletionKeepsLatestInitiated(t *testing.T) {
	s := NewState()

	a := s.Begin()
	b := s.Begin()

	applied, err := s.Apply(b, Classify(12_000_000))
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = s.Apply(a, Classify(2_000_000))
	require.NoError(t, err)
	assert.False(t, applied, "stale fetch must not overwrite a fresher one")

	assert.Equal(t, TierGold, s.Current())
}

func TestStateInOrderCompletionAppliesBoth(t *testing.T) {
	s := NewState()

	a := s.Begin()
	b := s.Begin()

	applied, _ := s.Apply(a, TierBronze)
	assert.True(t, applied)
	assert.Equal(t, TierBronze, s.Current())

	applied, _ = s.Apply(b, TierSilver)
	assert.True(t, applied)
	assert.Equal(t, TierSilver, s.Current())
}

func TestStateFailedLatestFetchKeepsEarlierResult(t *testing.T) {
	s := NewState()

	a := s.Begin()
	b := s.Begin()
	assert.True(t, s.Latest(b))
	assert.False(t, s.Latest(a))

	// b fails and never applies; a still lands
	applied, _ := s.Apply(a, TierSilver)
	assert.True(t, applied)
	assert.Equal(t, TierSilver, s.Current())
}

func TestStateIgnoresZeroTicket(t *testing.T) {
	s := NewState()
	applied, err := s.Apply(Ticket{}, TierGold)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, TierSapphire, s.Current())
}

func TestStateTeardown(t *testing.T) {
	s := NewState()
	require.NoError(t, s.Update(TierGold))
	pending := s.Begin()

	s.Teardown()
	assert.True(t, s.Closed())
	assert.Equal(t, TierSapphire, s.Current())

	applied, err := s.Apply(pending, TierPlatinum)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, TierSapphire, s.Current())
}

func TestStateConcurrentApplyKeepsHighestTicket(t *testing.T) {
	s := NewState()
	tiers := Tiers()

	tickets := make([]Ticket, 50)
	for i := range tickets {
		tickets[i] = s.Begin()
	}
	last := tickets[len(tickets)-1]

	var wg sync.WaitGroup
	for i := len(tickets) - 1; i >= 0; i-- {
		wg.Add(1)
		go func(tk Ticket, tier Tier) {
			defer wg.Done()
			_, _ = s.Apply(tk, tier)
		}(tickets[i], tiers[i%len(tiers)])
	}
	wg.Wait()

	assert.Equal(t, tiers[(len(tickets)-1)%len(tiers)], s.Current())
	assert.True(t, s.Latest(last))
}
