package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	clientdomain "github.com/smallbiznis/paystub/internal/client/domain"
	paystubdomain "github.com/smallbiznis/paystub/internal/paystub/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubPaystubs struct {
	paystubdomain.Service
	client clientdomain.Client
	stub   paystubdomain.Paystub
	err    error
}

func (s *stubPaystubs) Get(context.Context, string, string) (clientdomain.Client, paystubdomain.Paystub, error) {
	return s.client, s.stub, s.err
}

type failingProvider struct{}

func (failingProvider) GeneratePaystub(context.Context, PaystubData) (io.Reader, error) {
	return nil, errors.New("render failed")
}

func sampleStub(t *testing.T) paystubdomain.Paystub {
	t.Helper()

	details, err := paystubdomain.EncodeTaxes([]paystubdomain.TaxDetail{
		{Name: "Federal Income Tax", Rate: decimal.RequireFromString("0.09"), Amount: decimal.RequireFromString("85.5")},
		{Name: "Medicare Tax", Rate: decimal.RequireFromString("0.0145"), Amount: decimal.RequireFromString("13.775")},
	})
	require.NoError(t, err)

	return paystubdomain.Paystub{
		ID:             77,
		ClientID:       5,
		Date:           time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC),
		PayFrequency:   string(paystubdomain.PayFrequencyWeekly),
		HourlyRate:     decimal.NewFromInt(20),
		RegularHours:   decimal.NewFromInt(40),
		OvertimeHours:  decimal.NewFromInt(5),
		GrossPayPeriod: decimal.NewFromInt(950),
		TotalTaxPeriod: decimal.RequireFromString("99.275"),
		NetPayPeriod:   decimal.RequireFromString("850.725"),
		TaxDetails:     details,
		YTDRegular:     decimal.NewFromInt(800),
		YTDOvertime:    decimal.NewFromInt(150),
		TotalTaxesYTD:  decimal.RequireFromString("99.275"),
		SchemaVersion:  paystubdomain.SchemaVersionLegacy,
		CalculatedBy:   "payroll@example.com",
	}
}

func TestPDFProviderWritesPDF(t *testing.T) {
	reader, err := NewPDFProvider().GeneratePaystub(context.Background(), PaystubData{
		ClientID:  "5",
		PaystubID: "77",
		Date:      time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC),
		GrossPay:  decimal.NewFromInt(950),
		TotalTax:  decimal.RequireFromString("158.175"),
		NetPay:    decimal.RequireFromString("791.825"),
	})
	require.NoError(t, err)

	body, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))
}

func TestServiceRendersStoredPaystub(t *testing.T) {
	svc := NewService(Params{
		Log: zap.NewNop(),
		Paystubs: &stubPaystubs{
			client: clientdomain.Client{ID: 5, Name: "Grace"},
			stub:   sampleStub(t),
		},
		Provider: NewPDFProvider(),
	})

	doc, err := svc.Paystub(context.Background(), "5", "77")
	require.NoError(t, err)
	assert.Equal(t, "paystub_77.pdf", doc.Filename)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.True(t, bytes.HasPrefix(doc.Body, []byte("%PDF")))
}

func TestServicePropagatesLookupErrors(t *testing.T) {
	svc := NewService(Params{
		Log:      zap.NewNop(),
		Paystubs: &stubPaystubs{err: paystubdomain.ErrNotFound},
		Provider: NewPDFProvider(),
	})

	_, err := svc.Paystub(context.Background(), "5", "404")
	assert.ErrorIs(t, err, paystubdomain.ErrNotFound)
}

func TestServiceWrapsRenderFailure(t *testing.T) {
	svc := NewService(Params{
		Log:      zap.NewNop(),
		Paystubs: &stubPaystubs{client: clientdomain.Client{ID: 5}, stub: sampleStub(t)},
		Provider: failingProvider{},
	})

	_, err := svc.Paystub(context.Background(), "5", "77")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate paystub pdf")
}
