package deal

import (
	"github.com/smallbiznis/estateloyalty/internal/membership/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("deal.presenter",
	fx.Provide(
		NewPresenter,
		func(p *Presenter) domain.Presenter { return p },
	),
)
