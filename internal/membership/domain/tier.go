package domain

import (
	"errors"
	"strings"
)

// Tier is a membership level derived from lifetime spend.
type Tier string

const (
	TierPlatinum Tier = "Platinum"
	TierGold     Tier = "Gold"
	TierSilver   Tier = "Silver"
	TierBronze   Tier = "Bronze"
	TierSapphire Tier = "Sapphire"
)

var (
	ErrInvalidTier     = errors.New("invalid_tier")
	ErrInvalidDiscount = errors.New("invalid_discount")
)

// Tiers lists every tier from the lowest rank to the highest.
func Tiers() []Tier {
	return []Tier{TierSapphire, TierBronze, TierSilver, TierGold, TierPlatinum}
}

func (t Tier) String() string {
	return string(t)
}

// Valid reports whether t is one of the five known tiers.
func (t Tier) Valid() bool {
	return t.Rank() >= 0
}

// Rank orders tiers: Sapphire is 0, Platinum is 4, unknown is -1.
func (t Tier) Rank() int {
	switch t {
	case TierSapphire:
		return 0
	case TierBronze:
		return 1
	case TierSilver:
		return 2
	case TierGold:
		return 3
	case TierPlatinum:
		return 4
	default:
		return -1
	}
}

// Next returns the tier directly above t, or false for Platinum.
func (t Tier) Next() (Tier, bool) {
	tiers := Tiers()
	rank := t.Rank()
	if rank < 0 || rank+1 >= len(tiers) {
		return "", false
	}
	return tiers[rank+1], true
}

// ParseTier accepts a tier label in any case.
func ParseTier(raw string) (Tier, error) {
	value := strings.TrimSpace(raw)
	for _, tier := range Tiers() {
		if strings.EqualFold(value, string(tier)) {
			return tier, nil
		}
	}
	return "", ErrInvalidTier
}
