// Package history rebuilds the per-line YTD view of stored paystubs. Every
// figure comes from the record itself, never from the client's live totals.
package history

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	paystubdomain "github.com/smallbiznis/paystub/internal/paystub/domain"
)

// Source tells where a line's YTD figure came from.
type Source string

const (
	SourceStored        Source = "stored"
	SourceReconstructed Source = "reconstructed"
)

// Record is a stored paystub viewed through its schema version.
type Record interface {
	Paystub() paystubdomain.Paystub
	SchemaVersion() int
	lineYTD(name string) (decimal.Decimal, bool)
}

// RecordV1Legacy has tax details but no per-line YTD snapshot.
type RecordV1Legacy struct {
	paystub paystubdomain.Paystub
}

func (r RecordV1Legacy) Paystub() paystubdomain.Paystub { return r.paystub }
func (r RecordV1Legacy) SchemaVersion() int             { return paystubdomain.SchemaVersionLegacy }

func (r RecordV1Legacy) lineYTD(string) (decimal.Decimal, bool) {
	return decimal.Zero, false
}

// RecordV2Snapshot carries the per-line YTD amounts written at commit time.
type RecordV2Snapshot struct {
	paystub paystubdomain.Paystub
	ytd     map[string]decimal.Decimal
}

func (r RecordV2Snapshot) Paystub() paystubdomain.Paystub { return r.paystub }
func (r RecordV2Snapshot) SchemaVersion() int             { return paystubdomain.SchemaVersionSnapshot }

func (r RecordV2Snapshot) lineYTD(name string) (decimal.Decimal, bool) {
	value, ok := r.ytd[name]
	return value, ok
}

// FromPaystub picks the record variant for a stored paystub.
func FromPaystub(p paystubdomain.Paystub) (Record, error) {
	ytd, ok, err := p.TaxYTD()
	if err != nil {
		return nil, err
	}
	if !ok {
		return RecordV1Legacy{paystub: p}, nil
	}
	return RecordV2Snapshot{paystub: p, ytd: ytd}, nil
}

type DetailRow struct {
	Name      string          `json:"name"`
	Rate      decimal.Decimal `json:"rate"`
	Amount    decimal.Decimal `json:"amount"`
	YTDAmount decimal.Decimal `json:"ytd_amount"`
	Source    Source          `json:"source"`
}

type Detail struct {
	Paystub       paystubdomain.Paystub `json:"paystub"`
	SchemaVersion int                   `json:"schema_version"`
	Rows          []DetailRow           `json:"taxes"`
	GrossPayYTD   decimal.Decimal       `json:"gross_pay_ytd"`
	TotalTaxesYTD decimal.Decimal       `json:"total_taxes_ytd"`
}

// Reconstruct builds the detail view. Lines without a stored YTD figure get
// rate times the record's own snapshot gross.
func Reconstruct(r Record) (Detail, error) {
	p := r.Paystub()
	details, err := p.Taxes()
	if err != nil {
		return Detail{}, err
	}

	gross := p.GrossPayYTD()
	rows := make([]DetailRow, 0, len(details))
	for _, d := range details {
		row := DetailRow{Name: d.Name, Rate: d.Rate, Amount: d.Amount}
		if stored, ok := r.lineYTD(d.Name); ok {
			row.YTDAmount = stored
			row.Source = SourceStored
		} else {
			row.YTDAmount = d.Rate.Mul(gross)
			row.Source = SourceReconstructed
		}
		rows = append(rows, row)
	}

	return Detail{
		Paystub:       p,
		SchemaVersion: r.SchemaVersion(),
		Rows:          rows,
		GrossPayYTD:   gross,
		TotalTaxesYTD: p.TotalTaxesYTD,
	}, nil
}

// ReconstructPaystub is FromPaystub followed by Reconstruct.
func ReconstructPaystub(p paystubdomain.Paystub) (Detail, error) {
	record, err := FromPaystub(p)
	if err != nil {
		return Detail{}, err
	}
	return Reconstruct(record)
}

// Summary is the history list entry for one paystub.
type Summary struct {
	ID             snowflake.ID    `json:"id"`
	Date           time.Time       `json:"date"`
	PayFrequency   string          `json:"pay_frequency"`
	GrossPayPeriod decimal.Decimal `json:"gross_pay_period"`
	TotalTaxPeriod decimal.Decimal `json:"total_tax_period"`
	NetPayPeriod   decimal.Decimal `json:"net_pay_period"`
	GrossPayYTD    decimal.Decimal `json:"gross_pay_ytd"`
	TotalTaxesYTD  decimal.Decimal `json:"total_taxes_ytd"`
	CalculatedBy   string          `json:"calculated_by"`
}

func Summarize(p paystubdomain.Paystub) Summary {
	return Summary{
		ID:             p.ID,
		Date:           p.Date,
		PayFrequency:   p.PayFrequency,
		GrossPayPeriod: p.GrossPayPeriod,
		TotalTaxPeriod: p.TotalTaxPeriod,
		NetPayPeriod:   p.NetPayPeriod,
		GrossPayYTD:    p.GrossPayYTD(),
		TotalTaxesYTD:  p.TotalTaxesYTD,
		CalculatedBy:   p.CalculatedBy,
	}
}

func SummarizeAll(items []paystubdomain.Paystub) []Summary {
	out := make([]Summary, 0, len(items))
	for _, item := range items {
		out = append(out, Summarize(item))
	}
	return out
}
