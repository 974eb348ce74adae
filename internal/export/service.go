package export

import (
	"context"
	"fmt"
	"io"

	"github.com/smallbiznis/paystub/internal/history"
	"github.com/smallbiznis/paystub/internal/observability/metrics"
	paystubdomain "github.com/smallbiznis/paystub/internal/paystub/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Document is a rendered export ready to be streamed.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Paystubs paystubdomain.Service
	Provider Provider
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	paystubs paystubdomain.Service
	provider Provider
	metrics  *metrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		log:      p.Log.Named("export.service"),
		paystubs: p.Paystubs,
		provider: p.Provider,
		metrics:  p.Metrics,
	}
}

// Paystub renders one stored paystub of a client owned by the caller.
func (s *Service) Paystub(ctx context.Context, clientID, paystubID string) (Document, error) {
	doc, err := s.render(ctx, clientID, paystubID)
	if err != nil {
		s.metrics.RecordExport(ctx, "failure")
		return Document{}, err
	}
	s.metrics.RecordExport(ctx, "success")
	return doc, nil
}

func (s *Service) render(ctx context.Context, clientID, paystubID string) (Document, error) {
	client, stub, err := s.paystubs.Get(ctx, clientID, paystubID)
	if err != nil {
		return Document{}, err
	}

	detail, err := history.ReconstructPaystub(stub)
	if err != nil {
		return Document{}, fmt.Errorf("reconstruct paystub %s: %w", stub.ID, err)
	}

	reader, err := s.provider.GeneratePaystub(ctx, PaystubData{
		ClientID:      client.ID.String(),
		ClientName:    client.Name,
		Company:       client.Company,
		PaystubID:     stub.ID.String(),
		Date:          stub.Date,
		PayFrequency:  stub.PayFrequency,
		HourlyRate:    stub.HourlyRate,
		RegularHours:  stub.RegularHours,
		OvertimeHours: stub.OvertimeHours,
		GrossPay:      stub.GrossPayPeriod,
		TotalTax:      stub.TotalTaxPeriod,
		NetPay:        stub.NetPayPeriod,
		Taxes:         detail.Rows,
		GrossPayYTD:   detail.GrossPayYTD,
		TotalTaxesYTD: detail.TotalTaxesYTD,
		CalculatedBy:  stub.CalculatedBy,
	})
	if err != nil {
		return Document{}, fmt.Errorf("generate paystub pdf: %w", err)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return Document{}, err
	}

	s.log.Debug("paystub exported",
		zap.String("client_id", client.ID.String()),
		zap.String("paystub_id", stub.ID.String()),
		zap.Int("bytes", len(body)),
	)

	return Document{
		Filename:    fmt.Sprintf("paystub_%s.pdf", stub.ID.String()),
		ContentType: "application/pdf",
		Body:        body,
	}, nil
}
