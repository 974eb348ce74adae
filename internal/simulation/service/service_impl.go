package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	clientdomain "github.com/smallbiznis/paystub/internal/client/domain"
	"github.com/smallbiznis/paystub/internal/clock"
	"github.com/smallbiznis/paystub/internal/config"
	"github.com/smallbiznis/paystub/internal/observability/metrics"
	"github.com/smallbiznis/paystub/internal/ownercontext"
	"github.com/smallbiznis/paystub/internal/paystub/calculator"
	paystubdomain "github.com/smallbiznis/paystub/internal/paystub/domain"
	"github.com/smallbiznis/paystub/internal/simulation/domain"
	taxdomain "github.com/smallbiznis/paystub/internal/tax/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultSessionTTL = 30 * time.Minute

type Params struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	Config   config.Config `optional:"true"`
	Store    domain.Store
	Clients  clientdomain.Service
	Paystubs paystubdomain.Service
	TaxRates taxdomain.TableSource
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	clock    clock.Clock
	ttl      time.Duration
	store    domain.Store
	clients  clientdomain.Service
	paystubs paystubdomain.Service
	taxRates taxdomain.TableSource
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	ttl := p.Config.Simulation.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &Service{
		log:      p.Log.Named("simulation.service"),
		clock:    clk,
		ttl:      ttl,
		store:    p.Store,
		clients:  p.Clients,
		paystubs: p.Paystubs,
		taxRates: p.TaxRates,
		metrics:  p.Metrics,
	}
}

func (s *Service) Start(ctx context.Context, clientID string) (domain.View, error) {
	owner, ok := ownercontext.UserIDFromContext(ctx)
	if !ok {
		return domain.View{}, clientdomain.ErrInvalidOwner
	}

	client, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		return domain.View{}, err
	}

	now := s.clock.Now()
	session := domain.Session{
		ID:        ulid.Make().String(),
		OwnerID:   owner,
		Client:    domain.SnapshotOf(client),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Save(ctx, session, s.ttl); err != nil {
		return domain.View{}, err
	}

	s.log.Debug("simulation started",
		zap.String("session_id", session.ID),
		zap.String("client_id", client.ID.String()),
	)
	return s.view(session)
}

func (s *Service) Get(ctx context.Context, id string) (domain.View, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return domain.View{}, err
	}
	return s.view(*session)
}

// Calculate runs the calculator against the session's client snapshot and
// replaces any pending result. Nothing is persisted besides the session.
func (s *Service) Calculate(ctx context.Context, id string, req domain.CalculateRequest) (domain.View, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return domain.View{}, err
	}

	region := taxdomain.NormalizeRegion(req.Region)
	if region == "" {
		region = session.Client.Region
	}
	rate := session.Client.HourlyRate
	if req.HourlyRate != nil {
		rate = *req.HourlyRate
	}

	result, err := calculator.ForRegion(s.taxRates.Table(), region, req.Taxes, calculator.Input{
		HourlyRate:    rate,
		RegularHours:  req.RegularHours,
		OvertimeHours: req.OvertimeHours,
		Prior:         session.Client.YTD,
	})
	if err != nil {
		s.metrics.RecordCalculation(ctx, region, "rejected")
		return domain.View{}, err
	}
	s.metrics.RecordCalculation(ctx, region, "success")

	now := s.clock.Now()
	var taxes []string
	if req.Taxes != nil {
		taxes = append([]string{}, req.Taxes...)
	}
	session.Pending = &domain.Pending{
		Region:       region,
		Taxes:        taxes,
		Result:       result,
		CalculatedAt: now,
	}
	if err := s.touch(ctx, session, now); err != nil {
		return domain.View{}, err
	}
	return s.view(*session)
}

// Commit persists the pending result, conditional on the client version the
// session captured.
func (s *Service) Commit(ctx context.Context, id string, req domain.CommitRequest) (domain.CommitResult, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return domain.CommitResult{}, err
	}
	if session.Pending == nil {
		return domain.CommitResult{}, domain.ErrNoPendingResult
	}

	expected := session.Client.Version
	advanced, err := s.paystubs.Advance(ctx, paystubdomain.AdvanceRequest{
		ClientID:        session.Client.ID,
		Result:          session.Pending.Result,
		Date:            req.Date,
		PayFrequency:    req.PayFrequency,
		ExpectedVersion: &expected,
	})
	if err != nil {
		if errors.Is(err, paystubdomain.ErrVersionConflict) {
			s.resync(ctx, session)
		}
		return domain.CommitResult{}, err
	}

	now := s.clock.Now()
	session.Client = domain.SnapshotOf(advanced.Client)
	session.Pending = nil
	// The period is persisted at this point. A stale stored session is
	// caught by the version guard on its next commit.
	if err := s.touch(ctx, session, now); err != nil {
		s.log.Warn("refresh simulation after commit failed",
			zap.String("session_id", session.ID),
			zap.String("paystub_id", advanced.Paystub.ID.String()),
			zap.Error(err),
		)
	}

	return domain.CommitResult{Session: *session, Advance: advanced}, nil
}

func (s *Service) Discard(ctx context.Context, id string) error {
	session, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	return s.store.Delete(ctx, session.ID)
}

// resync refreshes the client snapshot after a lost race and drops the stale
// pending result.
func (s *Service) resync(ctx context.Context, session *domain.Session) {
	client, err := s.clients.GetByID(ctx, session.Client.ID.String())
	if err != nil {
		s.log.Warn("resync simulation failed", zap.String("session_id", session.ID), zap.Error(err))
		return
	}
	session.Client = domain.SnapshotOf(client)
	session.Pending = nil
	if err := s.touch(ctx, session, s.clock.Now()); err != nil {
		s.log.Warn("resync simulation failed", zap.String("session_id", session.ID), zap.Error(err))
	}
}

func (s *Service) load(ctx context.Context, id string) (*domain.Session, error) {
	owner, ok := ownercontext.UserIDFromContext(ctx)
	if !ok {
		return nil, clientdomain.ErrInvalidOwner
	}

	parsed, err := ulid.ParseStrict(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidSessionID
	}

	session, err := s.store.Get(ctx, parsed.String())
	if err != nil {
		return nil, err
	}
	if session.OwnerID != owner {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *Service) touch(ctx context.Context, session *domain.Session, now time.Time) error {
	session.UpdatedAt = now
	session.ExpiresAt = now.Add(s.ttl)
	return s.store.Save(ctx, *session, s.ttl)
}

func (s *Service) view(session domain.Session) (domain.View, error) {
	rates, err := s.taxRates.Table().Lookup(session.Client.Region)
	if err != nil {
		return domain.View{}, err
	}
	return domain.View{Session: session, Available: rates.All()}, nil
}
