// Package calculator turns a pay period's hours, rate and tax selection into
// period and year-to-date figures. It is pure: nothing here reads or writes
// stored state, and no rounding is applied.
package calculator

import (
	"errors"

	"github.com/shopspring/decimal"
	taxdomain "github.com/smallbiznis/paystub/internal/tax/domain"
)

// OvertimeMultiplier is applied to the hourly rate for overtime hours.
var OvertimeMultiplier = decimal.RequireFromString("1.5")

var (
	ErrInvalidHourlyRate    = errors.New("invalid_hourly_rate")
	ErrInvalidRegularHours  = errors.New("invalid_regular_hours")
	ErrInvalidOvertimeHours = errors.New("invalid_overtime_hours")
)

// Totals are cumulative figures for a client at a point in time.
type Totals struct {
	Regular    decimal.Decimal `json:"ytd_regular"`
	Overtime   decimal.Decimal `json:"ytd_overtime"`
	TotalTaxes decimal.Decimal `json:"total_taxes_ytd"`
}

func (t Totals) Gross() decimal.Decimal {
	return t.Regular.Add(t.Overtime)
}

type Input struct {
	HourlyRate    decimal.Decimal
	RegularHours  decimal.Decimal
	OvertimeHours decimal.Decimal
	Lines         []taxdomain.Line
	Prior         Totals
}

// TaxRow is one withheld line. YTDAmount is the line's rate applied to the
// cumulative gross after this period.
type TaxRow struct {
	Name      string          `json:"name"`
	Rate      decimal.Decimal `json:"rate"`
	Amount    decimal.Decimal `json:"amount"`
	YTDAmount decimal.Decimal `json:"ytd_amount"`
}

type Result struct {
	HourlyRate     decimal.Decimal `json:"hourly_rate"`
	RegularHours   decimal.Decimal `json:"regular_hours"`
	OvertimeHours  decimal.Decimal `json:"overtime_hours"`
	RegularPay     decimal.Decimal `json:"regular_pay"`
	OvertimePay    decimal.Decimal `json:"overtime_pay"`
	GrossPayPeriod decimal.Decimal `json:"gross_pay_period"`
	TotalTaxPeriod decimal.Decimal `json:"total_tax_period"`
	NetPayPeriod   decimal.Decimal `json:"net_pay_period"`
	Taxes          []TaxRow        `json:"taxes"`
	YTD            Totals          `json:"ytd"`
	GrossPayYTD    decimal.Decimal `json:"gross_pay_ytd"`
}

// TaxYTD returns the per-line YTD amounts keyed by line name.
func (r Result) TaxYTD() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(r.Taxes))
	for _, row := range r.Taxes {
		out[row.Name] = row.YTDAmount
	}
	return out
}

func Validate(in Input) error {
	if !in.HourlyRate.IsPositive() {
		return ErrInvalidHourlyRate
	}
	if !in.RegularHours.IsPositive() {
		return ErrInvalidRegularHours
	}
	if in.OvertimeHours.IsNegative() {
		return ErrInvalidOvertimeHours
	}
	return nil
}

// Calculate computes one pay period. Tax rows follow the order of in.Lines.
func Calculate(in Input) (Result, error) {
	if err := Validate(in); err != nil {
		return Result{}, err
	}

	regularPay := in.HourlyRate.Mul(in.RegularHours)
	overtimePay := in.HourlyRate.Mul(OvertimeMultiplier).Mul(in.OvertimeHours)
	gross := regularPay.Add(overtimePay)

	ytdRegular := in.Prior.Regular.Add(regularPay)
	ytdOvertime := in.Prior.Overtime.Add(overtimePay)
	grossYTD := ytdRegular.Add(ytdOvertime)

	rows := make([]TaxRow, 0, len(in.Lines))
	totalTax := decimal.Zero
	totalTaxYTD := decimal.Zero
	for _, line := range in.Lines {
		amount := gross.Mul(line.Rate)
		ytdAmount := grossYTD.Mul(line.Rate)
		totalTax = totalTax.Add(amount)
		totalTaxYTD = totalTaxYTD.Add(ytdAmount)
		rows = append(rows, TaxRow{
			Name:      line.Name,
			Rate:      line.Rate,
			Amount:    amount,
			YTDAmount: ytdAmount,
		})
	}

	return Result{
		HourlyRate:     in.HourlyRate,
		RegularHours:   in.RegularHours,
		OvertimeHours:  in.OvertimeHours,
		RegularPay:     regularPay,
		OvertimePay:    overtimePay,
		GrossPayPeriod: gross,
		TotalTaxPeriod: totalTax,
		NetPayPeriod:   gross.Sub(totalTax),
		Taxes:          rows,
		YTD: Totals{
			Regular:    ytdRegular,
			Overtime:   ytdOvertime,
			TotalTaxes: totalTaxYTD,
		},
		GrossPayYTD: grossYTD,
	}, nil
}

// ForRegion resolves the selected line names against the region's table entry
// and calculates. A nil selection applies every line of the region; an empty
// non-nil selection applies none. Unknown regions are rejected before any
// arithmetic happens.
func ForRegion(table taxdomain.Table, region string, names []string, in Input) (Result, error) {
	rates, err := table.Lookup(region)
	if err != nil {
		return Result{}, err
	}

	if names == nil {
		in.Lines = rates.All()
	} else {
		lines, err := rates.Select(names)
		if err != nil {
			return Result{}, err
		}
		in.Lines = lines
	}
	return Calculate(in)
}
