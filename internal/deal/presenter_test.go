package deal

import (
	"strconv"
	"strings"
	"testing"

	"github.com/smallbiznis/estateloyalty/internal/config"
	"github.com/smallbiznis/estateloyalty/internal/membership/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPresenter(t *testing.T) *Presenter {
	t.Helper()
	tmpl, err := config.CompileDealCopy(config.DefaultDealCopy())
	require.NoError(t, err)
	return NewPresenter(config.NewStaticDealCopyHolder(tmpl))
}

func TestPresentZeroDiscountIsUpsell(t *testing.T) {
	p := newTestPresenter(t)

	got, err := p.Present(domain.TierSapphire, 0)
	require.NoError(t, err)

	assert.False(t, got.ShowDiscount)
	assert.NotEmpty(t, got.Headline)
	assert.Contains(t, got.Body, "Bronze")
	assert.Equal(t, "sapphire-upgrade", got.CampaignCode)
	assert.False(t, strings.ContainsAny(got.Headline+got.Body, "0123456789"))
}

func TestPresentShowsDiscountForEveryPositivePercent(t *testing.T) {
	p := newTestPresenter(t)

	for n := 1; n <= 100; n++ {
		got, err := p.Present(domain.TierGold, n)
		require.NoError(t, err)
		assert.True(t, got.ShowDiscount, "percent %d", n)
		assert.Contains(t, got.Headline+" "+got.Body, strconv.Itoa(n))
	}
}

func TestPresentGoldSeven(t *testing.T) {
	p := newTestPresenter(t)

	got, err := p.Present(domain.TierGold, 7)
	require.NoError(t, err)

	assert.True(t, got.ShowDiscount)
	assert.Contains(t, got.Headline, "7")
	assert.Contains(t, got.Body, "7")
	assert.Contains(t, got.Body, "Gold")
	assert.Equal(t, "gold-7-off", got.CampaignCode)
}

func TestPresentPlatinumUpsellHasNoNextTier(t *testing.T) {
	p := newTestPresenter(t)

	got, err := p.Present(domain.TierPlatinum, 0)
	require.NoError(t, err)
	assert.False(t, got.ShowDiscount)
	assert.NotContains(t, got.Body, "Reach")
}

func TestPresentRejectsInvalidInput(t *testing.T) {
	p := newTestPresenter(t)

	_, err := p.Present(domain.Tier("Diamond"), 5)
	assert.ErrorIs(t, err, domain.ErrInvalidTier)

	_, err = p.Present(domain.TierGold, 101)
	assert.ErrorIs(t, err, domain.ErrInvalidDiscount)

	_, err = p.Present(domain.TierGold, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidDiscount)
}

func TestPresentUsesCustomCopy(t *testing.T) {
	cfg := config.DefaultDealCopy()
	cfg.Discount = config.CopyTemplate{
		Headline: "Members save {{.Percent}} percent",
		Body:     "Thank you, {{.Tier}} member.",
	}
	tmpl, err := config.CompileDealCopy(cfg)
	require.NoError(t, err)
	p := NewPresenter(config.NewStaticDealCopyHolder(tmpl))

	got, err := p.Present(domain.TierSilver, 5)
	require.NoError(t, err)
	assert.Equal(t, "Members save 5 percent", got.Headline)
	assert.Equal(t, "Thank you, Silver member.", got.Body)
}
