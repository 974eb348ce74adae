package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/paystub/internal/paystub/calculator"
	"gorm.io/datatypes"
)

// Record schema versions. Version 1 records were written before per-line
// YTD snapshots existed.
const (
	SchemaVersionLegacy   = 1
	SchemaVersionSnapshot = 2
)

type PayFrequency string

const (
	PayFrequencyWeekly      PayFrequency = "weekly"
	PayFrequencyBiweekly    PayFrequency = "biweekly"
	PayFrequencySemimonthly PayFrequency = "semimonthly"
	PayFrequencyMonthly     PayFrequency = "monthly"
)

// ParsePayFrequency defaults to weekly when value is blank.
func ParsePayFrequency(value string) (PayFrequency, error) {
	switch PayFrequency(strings.ToLower(strings.TrimSpace(value))) {
	case "":
		return PayFrequencyWeekly, nil
	case PayFrequencyWeekly:
		return PayFrequencyWeekly, nil
	case PayFrequencyBiweekly:
		return PayFrequencyBiweekly, nil
	case PayFrequencySemimonthly:
		return PayFrequencySemimonthly, nil
	case PayFrequencyMonthly:
		return PayFrequencyMonthly, nil
	default:
		return "", ErrInvalidPayFrequency
	}
}

// TaxDetail is one withheld line as it was applied to the period.
type TaxDetail struct {
	Name   string          `json:"name"`
	Rate   decimal.Decimal `json:"rate"`
	Amount decimal.Decimal `json:"amount"`
}

// Paystub is an immutable record of one committed pay period.
type Paystub struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id"`
	ClientID       snowflake.ID      `gorm:"column:client_id;not null;index" json:"client_id"`
	Date           time.Time         `gorm:"column:date;not null" json:"date"`
	PayFrequency   string            `gorm:"column:pay_frequency;not null" json:"pay_frequency"`
	HourlyRate     decimal.Decimal   `gorm:"column:hourly_rate;type:decimal(24,8);not null;default:0" json:"hourly_rate"`
	RegularHours   decimal.Decimal   `gorm:"column:regular_hours;type:decimal(24,8);not null" json:"regular_hours"`
	OvertimeHours  decimal.Decimal   `gorm:"column:overtime_hours;type:decimal(24,8);not null" json:"overtime_hours"`
	GrossPayPeriod decimal.Decimal   `gorm:"column:gross_pay_period;type:decimal(24,8);not null" json:"gross_pay_period"`
	NetPayPeriod   decimal.Decimal   `gorm:"column:net_pay_period;type:decimal(24,8);not null" json:"net_pay_period"`
	TotalTaxPeriod decimal.Decimal   `gorm:"column:total_tax_period;type:decimal(24,8);not null" json:"total_tax_period"`
	TaxDetails     datatypes.JSON    `gorm:"column:tax_details;type:json" json:"-"`
	TaxYTDDetails  datatypes.JSONMap `gorm:"column:tax_ytd_details;type:json" json:"-"`
	YTDRegular     decimal.Decimal   `gorm:"column:ytd_regular;type:decimal(24,8);not null" json:"ytd_regular"`
	YTDOvertime    decimal.Decimal   `gorm:"column:ytd_overtime;type:decimal(24,8);not null" json:"ytd_overtime"`
	TotalTaxesYTD  decimal.Decimal   `gorm:"column:total_taxes_ytd;type:decimal(24,8);not null" json:"total_taxes_ytd"`
	SchemaVersion  int               `gorm:"column:schema_version;not null;default:2" json:"schema_version"`
	CalculatedBy   string            `gorm:"column:calculated_by;not null;default:''" json:"calculated_by"`
	CreatedAt      time.Time         `gorm:"column:created_at;not null" json:"created_at"`
}

func (Paystub) TableName() string { return "paystubs" }

// GrossPayYTD is the cumulative gross recorded in this paystub's snapshot.
func (p Paystub) GrossPayYTD() decimal.Decimal {
	return p.YTDRegular.Add(p.YTDOvertime)
}

// PeriodPay splits the period's gross into regular and overtime pay. Records
// without a stored rate derive it from the gross.
func (p Paystub) PeriodPay() (regular, overtime decimal.Decimal) {
	rate := p.HourlyRate
	if !rate.IsPositive() {
		weighted := p.RegularHours.Add(p.OvertimeHours.Mul(calculator.OvertimeMultiplier))
		if !weighted.IsPositive() {
			return p.GrossPayPeriod, decimal.Zero
		}
		rate = p.GrossPayPeriod.Div(weighted)
	}
	return rate.Mul(p.RegularHours), rate.Mul(calculator.OvertimeMultiplier).Mul(p.OvertimeHours)
}

// Taxes decodes the stored tax detail list. A missing column decodes to an
// empty list.
func (p Paystub) Taxes() ([]TaxDetail, error) {
	if len(p.TaxDetails) == 0 {
		return []TaxDetail{}, nil
	}
	var details []TaxDetail
	if err := json.Unmarshal(p.TaxDetails, &details); err != nil {
		return nil, fmt.Errorf("decode tax details: %w", err)
	}
	if details == nil {
		details = []TaxDetail{}
	}
	return details, nil
}

// TaxYTD decodes the per-line YTD snapshot. ok is false for legacy records.
func (p Paystub) TaxYTD() (map[string]decimal.Decimal, bool, error) {
	if p.SchemaVersion < SchemaVersionSnapshot || p.TaxYTDDetails == nil {
		return nil, false, nil
	}
	out := make(map[string]decimal.Decimal, len(p.TaxYTDDetails))
	for name, raw := range p.TaxYTDDetails {
		value, err := decimalFromJSON(raw)
		if err != nil {
			return nil, false, fmt.Errorf("decode ytd for %q: %w", name, err)
		}
		out[name] = value
	}
	return out, true, nil
}

// EncodeTaxes stores details as the JSON tax_details column.
func EncodeTaxes(details []TaxDetail) (datatypes.JSON, error) {
	if details == nil {
		details = []TaxDetail{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// EncodeTaxYTD stores per-line YTD amounts as decimal strings.
func EncodeTaxYTD(values map[string]decimal.Decimal) datatypes.JSONMap {
	out := make(datatypes.JSONMap, len(values))
	for name, value := range values {
		out[name] = value.String()
	}
	return out
}

func decimalFromJSON(raw any) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case string:
		return decimal.NewFromString(v)
	case float64:
		return decimal.NewFromFloat(v), nil
	case json.Number:
		return decimal.NewFromString(v.String())
	case nil:
		return decimal.Zero, nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported value %T", raw)
	}
}
