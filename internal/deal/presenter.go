package deal

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/gosimple/slug"
	"github.com/smallbiznis/estateloyalty/internal/config"
	"github.com/smallbiznis/estateloyalty/internal/membership/domain"
)

type copyData struct {
	Percent  int
	Tier     string
	NextTier string
}

// Presenter renders deal copy from templates held by a DealCopyHolder,
// so copy edits in deals.yml take effect without a restart.
type Presenter struct {
	copy *config.DealCopyHolder
}

func NewPresenter(holder *config.DealCopyHolder) *Presenter {
	return &Presenter{copy: holder}
}

// Present builds the copy for a tier and its discount. Discount copy
// always carries the percentage; upsell copy never does.
func (p *Presenter) Present(tier domain.Tier, discountPercent int) (domain.Presentation, error) {
	if !tier.Valid() {
		return domain.Presentation{}, domain.ErrInvalidTier
	}
	if !domain.ValidDiscount(discountPercent) {
		return domain.Presentation{}, domain.ErrInvalidDiscount
	}

	data := copyData{Percent: discountPercent, Tier: tier.String()}
	if next, ok := tier.Next(); ok {
		data.NextTier = next.String()
	}

	tmpl := p.copy.Get()
	if discountPercent > 0 {
		headline, body, err := render(tmpl.DiscountHeadline, tmpl.DiscountBody, data)
		if err != nil {
			return domain.Presentation{}, err
		}
		return domain.Presentation{
			ShowDiscount: true,
			Headline:     headline,
			Body:         body,
			CampaignCode: slug.Make(fmt.Sprintf("%s %d off", tier, discountPercent)),
		}, nil
	}

	headline, body, err := render(tmpl.UpsellHeadline, tmpl.UpsellBody, data)
	if err != nil {
		return domain.Presentation{}, err
	}
	return domain.Presentation{
		ShowDiscount: false,
		Headline:     headline,
		Body:         body,
		CampaignCode: slug.Make(tier.String() + " upgrade"),
	}, nil
}

func render(headlineTmpl, bodyTmpl *template.Template, data copyData) (string, string, error) {
	var headline, body bytes.Buffer
	if err := headlineTmpl.Execute(&headline, data); err != nil {
		return "", "", fmt.Errorf("render deal headline: %w", err)
	}
	if err := bodyTmpl.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("render deal body: %w", err)
	}
	h, b := strings.TrimSpace(headline.String()), strings.TrimSpace(body.String())

	if data.Percent > 0 {
		pct := strconv.Itoa(data.Percent)
		if !strings.Contains(h, pct) && !strings.Contains(b, pct) {
			b = strings.TrimSpace(b + " (" + pct + "% off)")
		}
	}
	return h, b, nil
}
