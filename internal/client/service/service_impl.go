package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/paystub/internal/client/domain"
	"github.com/smallbiznis/paystub/internal/clock"
	"github.com/smallbiznis/paystub/internal/ownercontext"
	taxdomain "github.com/smallbiznis/paystub/internal/tax/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	TaxRates taxdomain.Service
	Notifier domain.ChangeNotifier `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	taxRates taxdomain.Service
	notifier domain.ChangeNotifier
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("client.service"),
		genID:    p.GenID,
		clock:    clk,
		repo:     p.Repo,
		taxRates: p.TaxRates,
		notifier: p.Notifier,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateClientRequest) (domain.Client, error) {
	userID, ok := ownercontext.UserIDFromContext(ctx)
	if !ok {
		return domain.Client{}, domain.ErrInvalidOwner
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Client{}, domain.ErrInvalidName
	}

	region := taxdomain.NormalizeRegion(req.Region)
	if region == "" {
		region = taxdomain.DefaultRegion
	}
	if _, err := s.taxRates.Lookup(ctx, region); err != nil {
		if errors.Is(err, taxdomain.ErrInvalidRegion) {
			return domain.Client{}, domain.ErrInvalidRegion
		}
		return domain.Client{}, err
	}

	if !req.HourlyRate.IsPositive() {
		return domain.Client{}, domain.ErrInvalidHourlyRate
	}
	if req.YTDRegular.IsNegative() || req.YTDOvertime.IsNegative() {
		return domain.Client{}, domain.ErrInvalidYTD
	}

	now := s.clock.Now()
	client := domain.Client{
		ID:                  s.genID.Generate(),
		UserID:              userID,
		Name:                name,
		Company:             strings.TrimSpace(req.Company),
		Region:              region,
		HourlyRate:          req.HourlyRate,
		YTDRegular:          req.YTDRegular,
		YTDOvertime:         req.YTDOvertime,
		TotalTaxesYTD:       decimal.Zero,
		BaselineYTDRegular:  req.YTDRegular,
		BaselineYTDOvertime: req.YTDOvertime,
		CreatedAt:           now,
		LastUpdated:         now,
	}

	if err := s.repo.Insert(ctx, s.db, &client); err != nil {
		return domain.Client{}, err
	}

	s.log.Info("client created",
		zap.String("client_id", client.ID.String()),
		zap.String("region", client.Region),
	)
	s.notify(ctx, userID)
	return client, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Client, error) {
	userID, ok := ownercontext.UserIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOwner
	}
	return s.ListForUser(ctx, userID)
}

// ListForUser returns the clients of userID ordered by name. It backs the
// client feed, which runs outside a request context.
func (s *Service) ListForUser(ctx context.Context, userID snowflake.ID) ([]domain.Client, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidOwner
	}

	items, err := s.repo.ListByUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	clients := make([]domain.Client, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		clients = append(clients, *item)
	}
	return clients, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Client, error) {
	userID, ok := ownercontext.UserIDFromContext(ctx)
	if !ok {
		return domain.Client{}, domain.ErrInvalidOwner
	}

	clientID, err := ParseID(id)
	if err != nil {
		return domain.Client{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, userID, clientID)
	if err != nil {
		return domain.Client{}, err
	}
	if item == nil {
		return domain.Client{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	userID, ok := ownercontext.UserIDFromContext(ctx)
	if !ok {
		return domain.ErrInvalidOwner
	}

	clientID, err := ParseID(id)
	if err != nil {
		return err
	}

	var affected int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := s.repo.Delete(ctx, tx, userID, clientID)
		if err != nil {
			return err
		}
		affected = n
		return nil
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	s.log.Info("client deleted", zap.String("client_id", clientID.String()))
	s.notify(ctx, userID)
	return nil
}

func (s *Service) notify(ctx context.Context, userID snowflake.ID) {
	if s.notifier == nil {
		return
	}
	s.notifier.ClientsChanged(ctx, userID)
}

// ParseID parses a client id from its decimal string form.
func ParseID(value string) (snowflake.ID, error) {
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
