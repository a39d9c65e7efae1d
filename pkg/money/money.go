package money

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

const CurrencyKES = "KES"

// FormatKES renders an amount as "KES 12,000,000.00".
func FormatKES(amount float64) string {
	return Format(CurrencyKES, amount)
}

// Format renders amount with two decimals and comma thousand separators.
// Non-finite amounts render as zero.
func Format(currency string, amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}
	value := decimal.NewFromFloat(amount).Round(2)

	negative := value.IsNegative()
	fixed := value.Abs().StringFixed(2)

	whole, frac, _ := strings.Cut(fixed, ".")
	var b strings.Builder
	if currency = strings.TrimSpace(currency); currency != "" {
		b.WriteString(strings.ToUpper(currency))
		b.WriteByte(' ')
	}
	if negative {
		b.WriteByte('-')
	}
	b.WriteString(groupThousands(whole))
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	var b strings.Builder
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
