package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type CreateClientRequest struct {
	Name        string
	Company     string
	Region      string
	HourlyRate  decimal.Decimal
	YTDRegular  decimal.Decimal
	YTDOvertime decimal.Decimal
}

type Service interface {
	Create(ctx context.Context, req CreateClientRequest) (Client, error)
	List(ctx context.Context) ([]Client, error)
	ListForUser(ctx context.Context, userID snowflake.ID) ([]Client, error)
	GetByID(ctx context.Context, id string) (Client, error)
	Delete(ctx context.Context, id string) error
}

// ChangeNotifier is told whenever the client set of a user changes.
type ChangeNotifier interface {
	ClientsChanged(ctx context.Context, userID snowflake.ID)
}

var (
	ErrInvalidOwner      = errors.New("invalid_owner")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidRegion     = errors.New("invalid_region")
	ErrInvalidHourlyRate = errors.New("invalid_hourly_rate")
	ErrInvalidYTD        = errors.New("invalid_ytd")
	ErrInvalidID         = errors.New("invalid_id")
	ErrNotFound          = errors.New("not_found")
)
