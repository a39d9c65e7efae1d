package domain

// Threshold is the inclusive minimum spend for a tier.
type Threshold struct {
	MinSpend float64 `json:"min_spend"`
	Tier     Tier    `json:"tier"`
}

// thresholds is ordered highest first; Classify depends on that order.
var thresholds = []Threshold{
	{MinSpend: 20_000_000, Tier: TierPlatinum},
	{MinSpend: 10_000_000, Tier: TierGold},
	{MinSpend: 5_000_000, Tier: TierSilver},
	{MinSpend: 1_000_000, Tier: TierBronze},
	{MinSpend: 0, Tier: TierSapphire},
}

// Thresholds returns a copy of the threshold table, highest first.
func Thresholds() []Threshold {
	out := make([]Threshold, len(thresholds))
	copy(out, thresholds)
	return out
}

// MinSpendFor returns the inclusive lower bound of a tier.
func MinSpendFor(tier Tier) (float64, error) {
	for _, th := range thresholds {
		if th.Tier == tier {
			return th.MinSpend, nil
		}
	}
	return 0, ErrInvalidTier
}

// Classify maps a lifetime spend total to its tier. Anything below the
// Bronze threshold, including negative and NaN totals, is Sapphire.
func Classify(totalSpent float64) Tier {
	for _, th := range thresholds {
		if th.Tier == TierSapphire {
			break
		}
		if totalSpent >= th.MinSpend {
			return th.Tier
		}
	}
	return TierSapphire
}
