package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	paystubdomain "github.com/smallbiznis/paystub/internal/paystub/domain"
	taxdomain "github.com/smallbiznis/paystub/internal/tax/domain"
)

type CalculateRequest struct {
	HourlyRate    *decimal.Decimal
	RegularHours  decimal.Decimal
	OvertimeHours decimal.Decimal
	Region        string
	// Taxes selects line names. Nil applies every line of the region.
	Taxes []string
}

type CommitRequest struct {
	Date         *time.Time
	PayFrequency string
}

// View is a session plus the tax lines its client can select.
type View struct {
	Session   Session          `json:"session"`
	Available []taxdomain.Line `json:"available_taxes"`
}

type CommitResult struct {
	Session Session                     `json:"session"`
	Advance paystubdomain.AdvanceResult `json:"result"`
}

type Service interface {
	Start(ctx context.Context, clientID string) (View, error)
	Get(ctx context.Context, id string) (View, error)
	Calculate(ctx context.Context, id string, req CalculateRequest) (View, error)
	Commit(ctx context.Context, id string, req CommitRequest) (CommitResult, error)
	Discard(ctx context.Context, id string) error
}

var (
	ErrInvalidSessionID = errors.New("invalid_session_id")
	ErrSessionNotFound  = errors.New("session_not_found")
	ErrNoPendingResult  = errors.New("no_pending_result")
)
