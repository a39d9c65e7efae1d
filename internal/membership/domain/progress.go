package domain

import "math"

// Progress describes how far a member is from the next tier.
type Progress struct {
	Tier            Tier    `json:"tier"`
	NextTier        Tier    `json:"next_tier,omitempty"`
	AmountRemaining float64 `json:"amount_remaining"`
	Percent         float64 `json:"percent"`
}

// ProgressFor measures totalSpent against the band between the current
// tier's threshold and the next one. Platinum is always 100 percent.
func ProgressFor(totalSpent float64) Progress {
	if math.IsNaN(totalSpent) || totalSpent < 0 {
		totalSpent = 0
	}
	tier := Classify(totalSpent)
	next, ok := tier.Next()
	if !ok {
		return Progress{Tier: tier, Percent: 100}
	}

	floor, _ := MinSpendFor(tier)
	ceiling, _ := MinSpendFor(next)
	band := ceiling - floor
	if band <= 0 {
		return Progress{Tier: tier, NextTier: next}
	}

	percent := (totalSpent - floor) / band * 100
	percent = math.Max(0, math.Min(100, percent))

	return Progress{
		Tier:            tier,
		NextTier:        next,
		AmountRemaining: math.Max(0, ceiling-totalSpent),
		Percent:         math.Round(percent*100) / 100,
	}
}
