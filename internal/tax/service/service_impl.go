package service

import (
	"context"

	taxdomain "github.com/smallbiznis/paystub/internal/tax/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log    *zap.Logger
	Source taxdomain.TableSource
}

type Service struct {
	log    *zap.Logger
	source taxdomain.TableSource
}

func New(p Params) taxdomain.Service {
	return &Service{
		log:    p.Log.Named("tax.service"),
		source: p.Source,
	}
}

func (s *Service) Lookup(ctx context.Context, region string) (taxdomain.RegionRates, error) {
	_ = ctx
	rates, err := s.source.Table().Lookup(region)
	if err != nil {
		s.log.Debug("region lookup failed", zap.String("region", region), zap.Error(err))
		return taxdomain.RegionRates{}, err
	}
	return rates, nil
}

func (s *Service) List(ctx context.Context) ([]taxdomain.RegionRates, error) {
	table := s.source.Table()
	regions := table.Regions()
	out := make([]taxdomain.RegionRates, 0, len(regions))
	for _, code := range regions {
		rates, err := s.Lookup(ctx, code)
		if err != nil {
			return nil, err
		}
		out = append(out, rates)
	}
	return out, nil
}
