package domain

import "context"

// TableSource exposes the currently active tax table.
type TableSource interface {
	Table() Table
}

type Service interface {
	Lookup(ctx context.Context, region string) (RegionRates, error)
	List(ctx context.Context) ([]RegionRates, error)
}
