package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/paystub/internal/client/domain"
	"github.com/smallbiznis/paystub/internal/client/repository"
	"github.com/smallbiznis/paystub/internal/client/service"
	"github.com/smallbiznis/paystub/internal/clock"
	"github.com/smallbiznis/paystub/internal/config"
	"github.com/smallbiznis/paystub/internal/migration"
	"github.com/smallbiznis/paystub/internal/ownercontext"
	taxdomain "github.com/smallbiznis/paystub/internal/tax/domain"
	taxservice "github.com/smallbiznis/paystub/internal/tax/service"
	"github.com/smallbiznis/paystub/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	users []snowflake.ID
}

func (n *recordingNotifier) ClientsChanged(_ context.Context, userID snowflake.ID) {
	n.users = append(n.users, userID)
}

type fixture struct {
	conn     *gorm.DB
	svc      domain.Service
	notifier *recordingNotifier
	clock    *clock.FakeClock
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	conn, err := db.NewTest(t.Name())
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(conn))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC))
	notifier := &recordingNotifier{}
	taxes := taxservice.New(taxservice.Params{
		Log:    zap.NewNop(),
		Source: config.NewStaticTaxTableHolder(taxdomain.DefaultTable()),
	})

	svc := service.New(service.Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fake,
		Repo:     repository.Provide(),
		TaxRates: taxes,
		Notifier: notifier,
	})
	return fixture{conn: conn, svc: svc, notifier: notifier, clock: fake}
}

func ownerCtx(userID int64) context.Context {
	return ownercontext.WithOwner(context.Background(), ownercontext.Owner{
		UserID: snowflake.ID(userID),
		Email:  "owner@example.com",
	})
}

func TestCreateDefaultsRegionAndZeroTaxes(t *testing.T) {
	f := newFixture(t)
	ctx := ownerCtx(10)

	client, err := f.svc.Create(ctx, domain.CreateClientRequest{
		Name:       "  Ada Lovelace ",
		HourlyRate: decimal.NewFromInt(20),
		YTDRegular: decimal.NewFromInt(1000),
	})
	require.NoError(t, err)

	assert.Equal(t, "Ada Lovelace", client.Name)
	assert.Equal(t, taxdomain.DefaultRegion, client.Region)
	assert.True(t, client.TotalTaxesYTD.IsZero())
	assert.True(t, client.GrossPayYTD().Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, []snowflake.ID{10}, f.notifier.users)

	stored, err := f.svc.GetByID(ctx, client.ID.String())
	require.NoError(t, err)
	assert.Equal(t, client.ID, stored.ID)
	assert.True(t, stored.HourlyRate.Equal(decimal.NewFromInt(20)))
	assert.True(t, stored.YTDRegular.Equal(decimal.NewFromInt(1000)))
	assert.True(t, stored.BaselineYTDRegular.Equal(decimal.NewFromInt(1000)))
	assert.True(t, stored.BaselineYTDOvertime.IsZero())
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := ownerCtx(10)

	cases := []struct {
		name string
		req  domain.CreateClientRequest
		want error
	}{
		{"missing name", domain.CreateClientRequest{HourlyRate: decimal.NewFromInt(20)}, domain.ErrInvalidName},
		{"unknown region", domain.CreateClientRequest{Name: "A", Region: "ZZ", HourlyRate: decimal.NewFromInt(20)}, domain.ErrInvalidRegion},
		{"zero rate", domain.CreateClientRequest{Name: "A"}, domain.ErrInvalidHourlyRate},
		{"negative ytd", domain.CreateClientRequest{Name: "A", HourlyRate: decimal.NewFromInt(20), YTDOvertime: decimal.NewFromInt(-1)}, domain.ErrInvalidYTD},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := f.svc.Create(context.Background(), domain.CreateClientRequest{Name: "A", HourlyRate: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, domain.ErrInvalidOwner)
}

func TestListOrderedByNameAndScopedToOwner(t *testing.T) {
	f := newFixture(t)
	ctx := ownerCtx(10)

	for _, name := range []string{"Carol", "alice", "Bob"} {
		_, err := f.svc.Create(ctx, domain.CreateClientRequest{Name: name, Region: "co", HourlyRate: decimal.NewFromInt(15)})
		require.NoError(t, err)
	}
	_, err := f.svc.Create(ownerCtx(11), domain.CreateClientRequest{Name: "Mallory", HourlyRate: decimal.NewFromInt(15)})
	require.NoError(t, err)

	clients, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 3)
	assert.Equal(t, "Bob", clients[0].Name)
	assert.Equal(t, "Carol", clients[1].Name)
	assert.Equal(t, "alice", clients[2].Name)
	assert.Equal(t, "CO", clients[0].Region)
}

func TestGetOtherOwnersClientIsNotFound(t *testing.T) {
	f := newFixture(t)

	client, err := f.svc.Create(ownerCtx(10), domain.CreateClientRequest{Name: "A", HourlyRate: decimal.NewFromInt(15)})
	require.NoError(t, err)

	_, err = f.svc.GetByID(ownerCtx(11), client.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.GetByID(ownerCtx(10), "not-a-number")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestDeleteCascadesToPaystubs(t *testing.T) {
	f := newFixture(t)
	ctx := ownerCtx(10)

	client, err := f.svc.Create(ctx, domain.CreateClientRequest{Name: "A", HourlyRate: decimal.NewFromInt(15)})
	require.NoError(t, err)

	require.NoError(t, f.conn.Exec(
		`INSERT INTO paystubs (id, client_id, date, pay_frequency, regular_hours, overtime_hours,
			gross_pay_period, net_pay_period, total_tax_period, ytd_regular, ytd_overtime, total_taxes_ytd,
			schema_version, calculated_by, created_at)
		 VALUES (?, ?, ?, 'weekly', 40, 0, 600, 500, 100, 600, 0, 100, 2, 'owner@example.com', ?)`,
		999, client.ID, f.clock.Now(), f.clock.Now(),
	).Error)

	require.NoError(t, f.svc.Delete(ctx, client.ID.String()))

	var remaining int64
	require.NoError(t, f.conn.Raw(`SELECT COUNT(*) FROM paystubs WHERE client_id = ?`, client.ID).Scan(&remaining).Error)
	assert.Zero(t, remaining)

	_, err = f.svc.GetByID(ctx, client.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, f.svc.Delete(ctx, client.ID.String()), domain.ErrNotFound)
}
