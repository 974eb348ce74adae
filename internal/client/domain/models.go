package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Client is a person whose pay periods are simulated and recorded.
type Client struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	UserID        snowflake.ID    `gorm:"column:user_id;not null;index" json:"user_id"`
	Name          string          `gorm:"not null" json:"name"`
	Company       string          `gorm:"column:company;not null;default:''" json:"company"`
	Region        string          `gorm:"column:region;not null" json:"region"`
	HourlyRate    decimal.Decimal `gorm:"column:hourly_rate;type:decimal(24,8);not null" json:"hourly_rate"`
	YTDRegular    decimal.Decimal `gorm:"column:ytd_regular;type:decimal(24,8);not null" json:"ytd_regular"`
	YTDOvertime   decimal.Decimal `gorm:"column:ytd_overtime;type:decimal(24,8);not null" json:"ytd_overtime"`
	TotalTaxesYTD decimal.Decimal `gorm:"column:total_taxes_ytd;type:decimal(24,8);not null" json:"total_taxes_ytd"`
	// Baseline YTD is the earnings the client was created with, before any
	// committed period.
	BaselineYTDRegular  decimal.Decimal `gorm:"column:baseline_ytd_regular;type:decimal(24,8);not null;default:0" json:"baseline_ytd_regular"`
	BaselineYTDOvertime decimal.Decimal `gorm:"column:baseline_ytd_overtime;type:decimal(24,8);not null;default:0" json:"baseline_ytd_overtime"`
	Version       int64           `gorm:"column:version;not null;default:0" json:"version"`
	CreatedAt     time.Time       `gorm:"column:created_at;not null" json:"created_at"`
	LastUpdated   time.Time       `gorm:"column:last_updated;not null" json:"last_updated"`
}

func (Client) TableName() string { return "clients" }

// GrossPayYTD is always derived from the two earnings buckets.
func (c Client) GrossPayYTD() decimal.Decimal {
	return c.YTDRegular.Add(c.YTDOvertime)
}

// YTD is a point-in-time copy of a client's cumulative totals.
type YTD struct {
	Regular    decimal.Decimal `json:"ytd_regular"`
	Overtime   decimal.Decimal `json:"ytd_overtime"`
	TotalTaxes decimal.Decimal `json:"total_taxes_ytd"`
}

func (y YTD) Gross() decimal.Decimal {
	return y.Regular.Add(y.Overtime)
}

func (c Client) YTD() YTD {
	return YTD{
		Regular:    c.YTDRegular,
		Overtime:   c.YTDOvertime,
		TotalTaxes: c.TotalTaxesYTD,
	}
}
