package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	clientdomain "github.com/smallbiznis/paystub/internal/client/domain"
	clientrepository "github.com/smallbiznis/paystub/internal/client/repository"
	"github.com/smallbiznis/paystub/internal/clock"
	"github.com/smallbiznis/paystub/internal/migration"
	"github.com/smallbiznis/paystub/internal/ownercontext"
	"github.com/smallbiznis/paystub/internal/paystub/calculator"
	"github.com/smallbiznis/paystub/internal/paystub/domain"
	"github.com/smallbiznis/paystub/internal/paystub/repository"
	"github.com/smallbiznis/paystub/internal/paystub/service"
	taxdomain "github.com/smallbiznis/paystub/internal/tax/domain"
	"github.com/smallbiznis/paystub/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errInjected = errors.New("injected failure")

type failingRepo struct {
	domain.Repository
	fail bool
}

func (r *failingRepo) Insert(ctx context.Context, conn *gorm.DB, p *domain.Paystub) error {
	if r.fail {
		return errInjected
	}
	return r.Repository.Insert(ctx, conn, p)
}

type stubLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *stubLocker) TryLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return "", false, nil
	}
	l.held[key] = true
	return "token", true, nil
}

func (l *stubLocker) Release(_ context.Context, key, _ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

type fixture struct {
	conn   *gorm.DB
	svc    domain.Service
	repo   *failingRepo
	locker *stubLocker
	clock  *clock.FakeClock
	client clientdomain.Client
	ctx    context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.NewTest(t.Name())
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(conn))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC))
	repo := &failingRepo{Repository: repository.Provide()}
	locker := &stubLocker{held: map[string]bool{}}
	clientRepo := clientrepository.Provide()

	client := clientdomain.Client{
		ID:            node.Generate(),
		UserID:        snowflake.ID(42),
		Name:          "Grace",
		Region:        "TX",
		HourlyRate:    decimal.NewFromInt(20),
		YTDRegular:    decimal.NewFromInt(1000),
		YTDOvertime:   decimal.Zero,
		TotalTaxesYTD: decimal.Zero,
		CreatedAt:     fake.Now(),
		LastUpdated:   fake.Now(),

		BaselineYTDRegular:  decimal.NewFromInt(1000),
		BaselineYTDOvertime: decimal.Zero,
	}
	require.NoError(t, clientRepo.Insert(context.Background(), conn, &client))

	svc := service.New(service.Params{
		DB:         conn,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      fake,
		Repo:       repo,
		ClientRepo: clientRepo,
		Locker:     locker,
	})

	ctx := ownercontext.WithOwner(context.Background(), ownercontext.Owner{UserID: 42, Email: "payroll@example.com"})
	return &fixture{conn: conn, svc: svc, repo: repo, locker: locker, clock: fake, client: client, ctx: ctx}
}

func (f *fixture) calculate(t *testing.T, prior calculator.Totals, overtime int64) calculator.Result {
	t.Helper()
	res, err := calculator.ForRegion(taxdomain.DefaultTable(), "TX", nil, calculator.Input{
		HourlyRate:    decimal.NewFromInt(20),
		RegularHours:  decimal.NewFromInt(40),
		OvertimeHours: decimal.NewFromInt(overtime),
		Prior:         prior,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) storedClient(t *testing.T) clientdomain.Client {
	t.Helper()
	client, err := clientrepository.Provide().FindByID(context.Background(), f.conn, 42, f.client.ID)
	require.NoError(t, err)
	require.NotNil(t, client)
	return *client
}

func totalsOf(c clientdomain.Client) calculator.Totals {
	return calculator.Totals{Regular: c.YTDRegular, Overtime: c.YTDOvertime, TotalTaxes: c.TotalTaxesYTD}
}

func TestAdvancePersistsClientAndPaystub(t *testing.T) {
	f := newFixture(t)
	res := f.calculate(t, totalsOf(f.client), 5)

	out, err := f.svc.Advance(f.ctx, domain.AdvanceRequest{
		ClientID:     f.client.ID,
		Result:       res,
		PayFrequency: "biweekly",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), out.Client.Version)
	assert.True(t, out.Client.YTDRegular.Equal(decimal.NewFromInt(1800)))
	assert.True(t, out.Client.YTDOvertime.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, "payroll@example.com", out.Paystub.CalculatedBy)
	assert.Equal(t, "biweekly", out.Paystub.PayFrequency)
	assert.Equal(t, f.clock.Now(), out.Paystub.Date)

	stored := f.storedClient(t)
	assert.Equal(t, int64(1), stored.Version)
	assert.True(t, stored.YTDRegular.Equal(decimal.NewFromInt(1800)))
	assert.True(t, stored.TotalTaxesYTD.Equal(res.YTD.TotalTaxes))

	_, paystub, err := f.svc.Get(f.ctx, f.client.ID.String(), out.Paystub.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.SchemaVersionSnapshot, paystub.SchemaVersion)
	assert.True(t, paystub.GrossPayPeriod.Equal(decimal.NewFromInt(950)))

	taxes, err := paystub.Taxes()
	require.NoError(t, err)
	require.Len(t, taxes, 3)
	assert.Equal(t, taxdomain.FederalIncomeTax, taxes[0].Name)

	ytd, ok, err := paystub.TaxYTD()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, ytd[taxdomain.MedicareTax].Equal(decimal.NewFromInt(1950).Mul(decimal.RequireFromString("0.0145"))))
}

func TestAdvanceRollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	f.repo.fail = true

	_, err := f.svc.Advance(f.ctx, domain.AdvanceRequest{
		ClientID: f.client.ID,
		Result:   f.calculate(t, totalsOf(f.client), 5),
	})
	require.ErrorIs(t, err, errInjected)

	stored := f.storedClient(t)
	assert.Equal(t, int64(0), stored.Version)
	assert.True(t, stored.YTDRegular.Equal(decimal.NewFromInt(1000)))
	assert.True(t, stored.YTDOvertime.IsZero())
	assert.True(t, stored.TotalTaxesYTD.IsZero())

	items, err := f.svc.List(f.ctx, f.client.ID.String())
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, f.locker.held)
}

func TestAdvanceMonotonicAcrossPeriods(t *testing.T) {
	f := newFixture(t)
	wantRegular := f.client.YTDRegular
	wantOvertime := f.client.YTDOvertime

	for i := int64(0); i < 4; i++ {
		before := f.storedClient(t)
		f.clock.Advance(7 * 24 * time.Hour)

		res := f.calculate(t, totalsOf(before), i)
		_, err := f.svc.Advance(f.ctx, domain.AdvanceRequest{
			ClientID: f.client.ID,
			Result:   res,
		})
		require.NoError(t, err)
		wantRegular = wantRegular.Add(res.RegularPay)
		wantOvertime = wantOvertime.Add(res.OvertimePay)

		after := f.storedClient(t)
		assert.Truef(t, after.YTDRegular.Equal(wantRegular), "period %d: regular %s, want %s", i, after.YTDRegular, wantRegular)
		assert.Truef(t, after.YTDOvertime.Equal(wantOvertime), "period %d: overtime %s, want %s", i, after.YTDOvertime, wantOvertime)
		assert.True(t, after.YTDRegular.GreaterThanOrEqual(before.YTDRegular))
		assert.True(t, after.YTDOvertime.GreaterThanOrEqual(before.YTDOvertime))
		assert.True(t, after.TotalTaxesYTD.GreaterThanOrEqual(before.TotalTaxesYTD))
		assert.Equal(t, before.Version+1, after.Version)
	}

	// 1000 baseline + 4 * 800 regular, 20*1.5*(0+1+2+3) overtime.
	assert.True(t, wantRegular.Equal(decimal.NewFromInt(4200)))
	assert.True(t, wantOvertime.Equal(decimal.NewFromInt(180)))

	items, err := f.svc.List(f.ctx, f.client.ID.String())
	require.NoError(t, err)
	require.Len(t, items, 4)
	for i := 1; i < len(items); i++ {
		assert.True(t, items[i-1].Date.After(items[i].Date))
	}
}

func TestAdvanceVersionConflict(t *testing.T) {
	f := newFixture(t)
	stale := int64(3)

	_, err := f.svc.Advance(f.ctx, domain.AdvanceRequest{
		ClientID:        f.client.ID,
		Result:          f.calculate(t, totalsOf(f.client), 0),
		ExpectedVersion: &stale,
	})
	require.ErrorIs(t, err, domain.ErrVersionConflict)
	assert.Equal(t, int64(0), f.storedClient(t).Version)

	current := int64(0)
	_, err = f.svc.Advance(f.ctx, domain.AdvanceRequest{
		ClientID:        f.client.ID,
		Result:          f.calculate(t, totalsOf(f.client), 0),
		ExpectedVersion: &current,
	})
	require.NoError(t, err)
}

func TestAdvanceRejectsHeldLockAndForeignOwner(t *testing.T) {
	f := newFixture(t)
	f.locker.held["paystub:commit:"+f.client.ID.String()] = true

	_, err := f.svc.Advance(f.ctx, domain.AdvanceRequest{
		ClientID: f.client.ID,
		Result:   f.calculate(t, totalsOf(f.client), 0),
	})
	require.ErrorIs(t, err, domain.ErrCommitInProgress)

	delete(f.locker.held, "paystub:commit:"+f.client.ID.String())
	other := ownercontext.WithOwner(context.Background(), ownercontext.Owner{UserID: 7, Email: "x@example.com"})
	_, err = f.svc.Advance(other, domain.AdvanceRequest{
		ClientID: f.client.ID,
		Result:   f.calculate(t, totalsOf(f.client), 0),
	})
	require.ErrorIs(t, err, clientdomain.ErrNotFound)

	_, err = f.svc.Advance(f.ctx, domain.AdvanceRequest{
		ClientID:     f.client.ID,
		Result:       f.calculate(t, totalsOf(f.client), 0),
		PayFrequency: "fortnightly-ish",
	})
	require.ErrorIs(t, err, domain.ErrInvalidPayFrequency)
}

func TestDeleteLeavesClientYTDAndRecomputeRealigns(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Advance(f.ctx, domain.AdvanceRequest{
		ClientID: f.client.ID,
		Result:   f.calculate(t, totalsOf(f.client), 0),
	})
	require.NoError(t, err)

	f.clock.Advance(7 * 24 * time.Hour)
	second, err := f.svc.Advance(f.ctx, domain.AdvanceRequest{
		ClientID: f.client.ID,
		Result:   f.calculate(t, totalsOf(first.Client), 2),
	})
	require.NoError(t, err)

	before := f.storedClient(t)
	require.NoError(t, f.svc.Delete(f.ctx, f.client.ID.String(), second.Paystub.ID.String()))

	after := f.storedClient(t)
	assert.True(t, after.YTDRegular.Equal(before.YTDRegular))
	assert.True(t, after.YTDOvertime.Equal(before.YTDOvertime))
	assert.True(t, after.TotalTaxesYTD.Equal(before.TotalTaxesYTD))
	assert.Equal(t, before.Version, after.Version)

	assert.ErrorIs(t, f.svc.Delete(f.ctx, f.client.ID.String(), second.Paystub.ID.String()), domain.ErrNotFound)

	recomputed, err := f.svc.RecomputeClientYTD(f.ctx, f.client.ID.String())
	require.NoError(t, err)
	assert.True(t, recomputed.YTDRegular.Equal(first.Paystub.YTDRegular))
	assert.True(t, recomputed.YTDOvertime.Equal(first.Paystub.YTDOvertime))
	assert.True(t, recomputed.TotalTaxesYTD.Equal(first.Paystub.TotalTaxesYTD))

	require.NoError(t, f.svc.Delete(f.ctx, f.client.ID.String(), first.Paystub.ID.String()))
	baseline, err := f.svc.RecomputeClientYTD(f.ctx, f.client.ID.String())
	require.NoError(t, err)
	assert.True(t, baseline.YTDRegular.Equal(decimal.NewFromInt(1000)))
	assert.True(t, baseline.YTDOvertime.IsZero())
	assert.True(t, baseline.TotalTaxesYTD.IsZero())
}

func TestRecomputeAfterDeletingEarlierPaystub(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Advance(f.ctx, domain.AdvanceRequest{
		ClientID: f.client.ID,
		Result:   f.calculate(t, totalsOf(f.client), 0),
	})
	require.NoError(t, err)

	f.clock.Advance(7 * 24 * time.Hour)
	second, err := f.svc.Advance(f.ctx, domain.AdvanceRequest{
		ClientID: f.client.ID,
		Result:   f.calculate(t, totalsOf(first.Client), 0),
	})
	require.NoError(t, err)
	require.True(t, second.Client.YTDRegular.Equal(decimal.NewFromInt(2600)))

	require.NoError(t, f.svc.Delete(f.ctx, f.client.ID.String(), first.Paystub.ID.String()))

	recomputed, err := f.svc.RecomputeClientYTD(f.ctx, f.client.ID.String())
	require.NoError(t, err)
	assert.True(t, recomputed.YTDRegular.Equal(decimal.NewFromInt(1800)), recomputed.YTDRegular.String())
	assert.True(t, recomputed.YTDOvertime.IsZero())
	// TX federal lines sum to 0.1665 of the rebuilt 1800 gross.
	assert.True(t, recomputed.TotalTaxesYTD.Equal(decimal.RequireFromString("299.7")), recomputed.TotalTaxesYTD.String())
	assert.Equal(t, second.Client.Version+1, recomputed.Version)

	stored := f.storedClient(t)
	assert.True(t, stored.YTDRegular.Equal(decimal.NewFromInt(1800)))
	assert.True(t, stored.TotalTaxesYTD.Equal(recomputed.TotalTaxesYTD))
}

func TestRecomputeWithBackdatedPaystubKeepsTotals(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Advance(f.ctx, domain.AdvanceRequest{
		ClientID: f.client.ID,
		Result:   f.calculate(t, totalsOf(f.client), 0),
	})
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	backdated := f.clock.Now().AddDate(0, -1, 0)
	_, err = f.svc.Advance(f.ctx, domain.AdvanceRequest{
		ClientID: f.client.ID,
		Result:   f.calculate(t, totalsOf(first.Client), 2),
		Date:     &backdated,
	})
	require.NoError(t, err)

	before := f.storedClient(t)
	require.True(t, before.YTDRegular.Equal(decimal.NewFromInt(2600)))

	recomputed, err := f.svc.RecomputeClientYTD(f.ctx, f.client.ID.String())
	require.NoError(t, err)
	assert.True(t, recomputed.YTDRegular.Equal(before.YTDRegular), recomputed.YTDRegular.String())
	assert.True(t, recomputed.YTDOvertime.Equal(before.YTDOvertime), recomputed.YTDOvertime.String())
	assert.True(t, recomputed.TotalTaxesYTD.Equal(before.TotalTaxesYTD), recomputed.TotalTaxesYTD.String())
}
