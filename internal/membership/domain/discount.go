package domain

var discounts = map[Tier]int{
	TierPlatinum: 10,
	TierGold:     7,
	TierSilver:   5,
	TierBronze:   3,
	TierSapphire: 0,
}

// DiscountFor returns the member discount percentage for a tier.
func DiscountFor(tier Tier) (int, error) {
	percent, ok := discounts[tier]
	if !ok {
		return 0, ErrInvalidTier
	}
	return percent, nil
}

// ValidDiscount reports whether percent is a usable discount value.
func ValidDiscount(percent int) bool {
	return percent >= 0 && percent <= 100
}
