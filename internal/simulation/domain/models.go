package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	clientdomain "github.com/smallbiznis/paystub/internal/client/domain"
	"github.com/smallbiznis/paystub/internal/paystub/calculator"
)

// ClientSnapshot is the client state a session calculates against.
type ClientSnapshot struct {
	ID         snowflake.ID      `json:"id"`
	Name       string            `json:"name"`
	Region     string            `json:"region"`
	HourlyRate decimal.Decimal   `json:"hourly_rate"`
	YTD        calculator.Totals `json:"ytd"`
	Version    int64             `json:"version"`
}

func SnapshotOf(c clientdomain.Client) ClientSnapshot {
	return ClientSnapshot{
		ID:         c.ID,
		Name:       c.Name,
		Region:     c.Region,
		HourlyRate: c.HourlyRate,
		YTD: calculator.Totals{
			Regular:    c.YTDRegular,
			Overtime:   c.YTDOvertime,
			TotalTaxes: c.TotalTaxesYTD,
		},
		Version: c.Version,
	}
}

// Pending is the latest calculation awaiting commit.
type Pending struct {
	Region       string            `json:"region"`
	Taxes        []string          `json:"taxes"`
	Result       calculator.Result `json:"result"`
	CalculatedAt time.Time         `json:"calculated_at"`
}

// Session replaces a global "active client" with an explicit, owner-scoped
// working context.
type Session struct {
	ID        string         `json:"id"`
	OwnerID   snowflake.ID   `json:"owner_id"`
	Client    ClientSnapshot `json:"client"`
	Pending   *Pending       `json:"pending,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}
