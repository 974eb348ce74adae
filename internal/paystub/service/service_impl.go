package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	clientdomain "github.com/smallbiznis/paystub/internal/client/domain"
	"github.com/smallbiznis/paystub/internal/clock"
	"github.com/smallbiznis/paystub/internal/config"
	"github.com/smallbiznis/paystub/internal/observability/metrics"
	"github.com/smallbiznis/paystub/internal/ownercontext"
	"github.com/smallbiznis/paystub/internal/paystub/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultCommitLockTTL = 10 * time.Second

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Config     config.Config `optional:"true"`
	Repo       domain.Repository
	ClientRepo clientdomain.Repository
	Locker     domain.CommitLocker         `optional:"true"`
	Notifier   clientdomain.ChangeNotifier `optional:"true"`
	Metrics    *metrics.Metrics            `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	clientRepo clientdomain.Repository
	locker     domain.CommitLocker
	lockTTL    time.Duration
	notifier   clientdomain.ChangeNotifier
	metrics    *metrics.Metrics
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	lockTTL := p.Config.Simulation.CommitLockTTL
	if lockTTL <= 0 {
		lockTTL = defaultCommitLockTTL
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("paystub.service"),
		genID:      p.GenID,
		clock:      clk,
		repo:       p.Repo,
		clientRepo: p.ClientRepo,
		locker:     p.Locker,
		lockTTL:    lockTTL,
		notifier:   p.Notifier,
		metrics:    p.Metrics,
	}
}

// Advance persists one calculated period. The client's YTD update and the
// paystub insert share a transaction; any failure leaves both untouched.
func (s *Service) Advance(ctx context.Context, req domain.AdvanceRequest) (domain.AdvanceResult, error) {
	owner, ok := ownercontext.FromContext(ctx)
	if !ok {
		return domain.AdvanceResult{}, clientdomain.ErrInvalidOwner
	}
	if req.ClientID == 0 {
		return domain.AdvanceResult{}, domain.ErrInvalidID
	}
	frequency, err := domain.ParsePayFrequency(req.PayFrequency)
	if err != nil {
		return domain.AdvanceResult{}, err
	}
	if !req.Result.GrossPayPeriod.IsPositive() || req.Result.YTD.Regular.IsNegative() || req.Result.YTD.Overtime.IsNegative() {
		return domain.AdvanceResult{}, domain.ErrInvalidResult
	}

	release, err := s.acquire(ctx, req.ClientID)
	if err != nil {
		s.metrics.RecordCommit(ctx, "locked")
		return domain.AdvanceResult{}, err
	}
	defer release()

	now := s.clock.Now()
	date := now
	if req.Date != nil && !req.Date.IsZero() {
		date = req.Date.UTC()
	}

	details := make([]domain.TaxDetail, 0, len(req.Result.Taxes))
	for _, row := range req.Result.Taxes {
		details = append(details, domain.TaxDetail{Name: row.Name, Rate: row.Rate, Amount: row.Amount})
	}
	encoded, err := domain.EncodeTaxes(details)
	if err != nil {
		return domain.AdvanceResult{}, err
	}

	paystub := domain.Paystub{
		ID:             s.genID.Generate(),
		ClientID:       req.ClientID,
		Date:           date,
		PayFrequency:   string(frequency),
		HourlyRate:     req.Result.HourlyRate,
		RegularHours:   req.Result.RegularHours,
		OvertimeHours:  req.Result.OvertimeHours,
		GrossPayPeriod: req.Result.GrossPayPeriod,
		NetPayPeriod:   req.Result.NetPayPeriod,
		TotalTaxPeriod: req.Result.TotalTaxPeriod,
		TaxDetails:     encoded,
		TaxYTDDetails:  domain.EncodeTaxYTD(req.Result.TaxYTD()),
		YTDRegular:     req.Result.YTD.Regular,
		YTDOvertime:    req.Result.YTD.Overtime,
		TotalTaxesYTD:  req.Result.YTD.TotalTaxes,
		SchemaVersion:  domain.SchemaVersionSnapshot,
		CalculatedBy:   owner.Email,
		CreatedAt:      now,
	}

	var updated clientdomain.Client
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		client, err := s.clientRepo.FindByID(ctx, tx, owner.UserID, req.ClientID)
		if err != nil {
			return err
		}
		if client == nil {
			return clientdomain.ErrNotFound
		}
		if req.ExpectedVersion != nil && client.Version != *req.ExpectedVersion {
			return domain.ErrVersionConflict
		}

		ytd := clientdomain.YTD{
			Regular:    req.Result.YTD.Regular,
			Overtime:   req.Result.YTD.Overtime,
			TotalTaxes: req.Result.YTD.TotalTaxes,
		}
		affected, err := s.clientRepo.UpdateYTD(ctx, tx, clientdomain.YTDUpdate{
			ClientID:        client.ID,
			YTD:             ytd,
			ExpectedVersion: req.ExpectedVersion,
			UpdatedAt:       now,
		})
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrVersionConflict
		}

		if err := s.repo.Insert(ctx, tx, &paystub); err != nil {
			return fmt.Errorf("insert paystub: %w", err)
		}

		client.YTDRegular = ytd.Regular
		client.YTDOvertime = ytd.Overtime
		client.TotalTaxesYTD = ytd.TotalTaxes
		client.Version++
		client.LastUpdated = now
		updated = *client
		return nil
	})
	if err != nil {
		s.metrics.RecordCommit(ctx, commitOutcome(err))
		return domain.AdvanceResult{}, err
	}

	s.metrics.RecordCommit(ctx, "success")
	s.log.Info("pay period committed",
		zap.String("client_id", updated.ID.String()),
		zap.String("paystub_id", paystub.ID.String()),
		zap.Int64("version", updated.Version),
	)
	s.notify(ctx, owner.UserID)

	return domain.AdvanceResult{Client: updated, Paystub: paystub}, nil
}

func (s *Service) List(ctx context.Context, clientID string) ([]domain.Paystub, error) {
	client, err := s.ownedClient(ctx, s.db, clientID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListByClient(ctx, s.db, client.ID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Paystub, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, clientID, paystubID string) (clientdomain.Client, domain.Paystub, error) {
	client, err := s.ownedClient(ctx, s.db, clientID)
	if err != nil {
		return clientdomain.Client{}, domain.Paystub{}, err
	}
	id, err := parseID(paystubID)
	if err != nil {
		return clientdomain.Client{}, domain.Paystub{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, client.ID, id)
	if err != nil {
		return clientdomain.Client{}, domain.Paystub{}, err
	}
	if item == nil {
		return clientdomain.Client{}, domain.Paystub{}, domain.ErrNotFound
	}
	return *client, *item, nil
}

// Delete removes a paystub. The client's YTD totals are left as they are;
// RecomputeClientYTD realigns them on request.
func (s *Service) Delete(ctx context.Context, clientID, paystubID string) error {
	client, err := s.ownedClient(ctx, s.db, clientID)
	if err != nil {
		return err
	}
	id, err := parseID(paystubID)
	if err != nil {
		return err
	}

	affected, err := s.repo.Delete(ctx, s.db, client.ID, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	s.log.Info("paystub deleted",
		zap.String("client_id", client.ID.String()),
		zap.String("paystub_id", id.String()),
	)
	return nil
}

// RecomputeClientYTD rebuilds the client's totals from its creation baseline
// plus the pay of every remaining paystub. Taxes follow the flat-rate model:
// the lines of the last committed paystub applied to the rebuilt gross.
func (s *Service) RecomputeClientYTD(ctx context.Context, clientID string) (clientdomain.Client, error) {
	owner, ok := ownercontext.FromContext(ctx)
	if !ok {
		return clientdomain.Client{}, clientdomain.ErrInvalidOwner
	}
	id, err := parseID(clientID)
	if err != nil {
		return clientdomain.Client{}, err
	}

	release, err := s.acquire(ctx, id)
	if err != nil {
		return clientdomain.Client{}, err
	}
	defer release()

	now := s.clock.Now()
	var updated clientdomain.Client
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		client, err := s.clientRepo.FindByID(ctx, tx, owner.UserID, id)
		if err != nil {
			return err
		}
		if client == nil {
			return clientdomain.ErrNotFound
		}

		ytd, err := s.rebuildYTD(ctx, tx, client)
		if err != nil {
			return err
		}
		if _, err := s.clientRepo.UpdateYTD(ctx, tx, clientdomain.YTDUpdate{
			ClientID:  client.ID,
			YTD:       ytd,
			UpdatedAt: now,
		}); err != nil {
			return err
		}

		client.YTDRegular = ytd.Regular
		client.YTDOvertime = ytd.Overtime
		client.TotalTaxesYTD = ytd.TotalTaxes
		client.Version++
		client.LastUpdated = now
		updated = *client
		return nil
	})
	if err != nil {
		return clientdomain.Client{}, err
	}

	s.log.Info("client ytd recomputed", zap.String("client_id", updated.ID.String()))
	s.notify(ctx, owner.UserID)
	return updated, nil
}

func (s *Service) rebuildYTD(ctx context.Context, tx *gorm.DB, client *clientdomain.Client) (clientdomain.YTD, error) {
	items, err := s.repo.ListByClient(ctx, tx, client.ID)
	if err != nil {
		return clientdomain.YTD{}, err
	}

	ytd := clientdomain.YTD{
		Regular:    client.BaselineYTDRegular,
		Overtime:   client.BaselineYTDOvertime,
		TotalTaxes: decimal.Zero,
	}
	for _, item := range items {
		if item == nil {
			continue
		}
		regular, overtime := item.PeriodPay()
		ytd.Regular = ytd.Regular.Add(regular)
		ytd.Overtime = ytd.Overtime.Add(overtime)
	}
	if len(items) == 0 {
		return ytd, nil
	}

	latest, err := s.repo.Latest(ctx, tx, client.ID)
	if err != nil {
		return clientdomain.YTD{}, err
	}
	if latest == nil {
		return ytd, nil
	}
	lines, err := latest.Taxes()
	if err != nil {
		return clientdomain.YTD{}, err
	}
	gross := ytd.Gross()
	for _, line := range lines {
		ytd.TotalTaxes = ytd.TotalTaxes.Add(line.Rate.Mul(gross))
	}
	return ytd, nil
}

func (s *Service) ownedClient(ctx context.Context, db *gorm.DB, clientID string) (*clientdomain.Client, error) {
	userID, ok := ownercontext.UserIDFromContext(ctx)
	if !ok {
		return nil, clientdomain.ErrInvalidOwner
	}
	id, err := parseID(clientID)
	if err != nil {
		return nil, err
	}

	client, err := s.clientRepo.FindByID(ctx, db, userID, id)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, clientdomain.ErrNotFound
	}
	return client, nil
}

func (s *Service) acquire(ctx context.Context, clientID snowflake.ID) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}

	key := "paystub:commit:" + clientID.String()
	token, ok, err := s.locker.TryLock(ctx, key, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire commit lock: %w", err)
	}
	if !ok {
		return nil, domain.ErrCommitInProgress
	}

	return func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			s.log.Warn("release commit lock failed", zap.String("client_id", clientID.String()), zap.Error(err))
		}
	}, nil
}

func (s *Service) notify(ctx context.Context, userID snowflake.ID) {
	if s.notifier == nil {
		return
	}
	s.notifier.ClientsChanged(ctx, userID)
}

func commitOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrVersionConflict):
		return "conflict"
	case errors.Is(err, clientdomain.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func parseID(value string) (snowflake.ID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, domain.ErrInvalidID
	}
	parsed, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || parsed <= 0 {
		return 0, domain.ErrInvalidID
	}
	return snowflake.ID(parsed), nil
}
