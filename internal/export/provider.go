package export

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/paystub/internal/history"
)

type Provider interface {
	GeneratePaystub(ctx context.Context, data PaystubData) (io.Reader, error)
}

// PaystubData is everything printed on one pay stub.
type PaystubData struct {
	ClientID      string
	ClientName    string
	Company       string
	PaystubID     string
	Date          time.Time
	PayFrequency  string
	HourlyRate    decimal.Decimal
	RegularHours  decimal.Decimal
	OvertimeHours decimal.Decimal

	GrossPay decimal.Decimal
	TotalTax decimal.Decimal
	NetPay   decimal.Decimal

	Taxes         []history.DetailRow
	GrossPayYTD   decimal.Decimal
	TotalTaxesYTD decimal.Decimal
	CalculatedBy  string
}

type PDFProvider struct{}

func NewPDFProvider() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GeneratePaystub(ctx context.Context, data PaystubData) (io.Reader, error) {
	_ = ctx

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, "Pay Stub", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(24,
		col.New(6).Add(
			text.New("Client ID: "+data.ClientID, props.Text{Top: 0}),
			text.New("Client: "+data.ClientName, props.Text{Top: 5}),
			text.New("Company: "+data.Company, props.Text{Top: 10}),
		),
		col.New(6).Add(
			text.New("Paystub ID: "+data.PaystubID, props.Text{Top: 0, Align: align.Right}),
			text.New("Date: "+data.Date.Format("2006-01-02"), props.Text{Top: 5, Align: align.Right}),
			text.New("Pay frequency: "+data.PayFrequency, props.Text{Top: 10, Align: align.Right}),
		),
	)

	m.AddRow(10,
		text.NewCol(4, "Hourly rate", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Regular hours", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(4, "Overtime hours", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(8,
		text.NewCol(4, money(data.HourlyRate), props.Text{Size: 9}),
		text.NewCol(4, data.RegularHours.String(), props.Text{Size: 9, Align: align.Right}),
		text.NewCol(4, data.OvertimeHours.String(), props.Text{Size: 9, Align: align.Right}),
	)

	// Withholding
	m.AddRow(10,
		text.NewCol(6, "Tax", props.Text{Style: fontstyle.Bold, Size: 9, Top: 3}),
		text.NewCol(2, "Rate", props.Text{Style: fontstyle.Bold, Size: 9, Top: 3, Align: align.Right}),
		text.NewCol(2, "Current", props.Text{Style: fontstyle.Bold, Size: 9, Top: 3, Align: align.Right}),
		text.NewCol(2, "YTD", props.Text{Style: fontstyle.Bold, Size: 9, Top: 3, Align: align.Right}),
	)
	for _, row := range data.Taxes {
		m.AddRow(7,
			text.NewCol(6, row.Name, props.Text{Size: 9}),
			text.NewCol(2, rate(row.Rate), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, money(row.Amount), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, money(row.YTDAmount), props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(10,
		col.New(6),
		text.NewCol(2, "Gross", props.Text{Size: 9, Top: 3}),
		text.NewCol(2, money(data.GrossPay), props.Text{Size: 9, Top: 3, Align: align.Right}),
		text.NewCol(2, money(data.GrossPayYTD), props.Text{Size: 9, Top: 3, Align: align.Right}),
	)
	m.AddRow(7,
		col.New(6),
		text.NewCol(2, "Tax", props.Text{Size: 9}),
		text.NewCol(2, money(data.TotalTax), props.Text{Size: 9, Align: align.Right}),
		text.NewCol(2, money(data.TotalTaxesYTD), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(7,
		col.New(6),
		text.NewCol(2, "Net pay", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, money(data.NetPay), props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		col.New(2),
	)

	if data.CalculatedBy != "" {
		m.AddRow(12,
			text.NewCol(12, "Calculated by "+data.CalculatedBy, props.Text{Size: 8, Top: 6}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func rate(d decimal.Decimal) string {
	return d.Mul(decimal.NewFromInt(100)).String() + "%"
}
