package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/paystub/internal/auth/domain"
	"github.com/smallbiznis/paystub/internal/auth/repository"
	"github.com/smallbiznis/paystub/internal/clock"
	"github.com/smallbiznis/paystub/internal/ownercontext"
	"github.com/smallbiznis/paystub/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (authdomain.Service, *clock.FakeClock) {
	t.Helper()

	dbConn, err := db.NewTest(t.Name())
	require.NoError(t, err)
	require.NoError(t, dbConn.AutoMigrate(&authdomain.User{}, &authdomain.Session{}))

	repo, sessionRepo := repository.New(dbConn)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC))
	return New(Params{
		Log:         zap.NewNop(),
		Repo:        repo,
		SessionRepo: sessionRepo,
		GenID:       node,
		Clock:       fake,
	}), fake
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService(t)

	user, err := svc.CreateUser(context.Background(), authdomain.CreateUserRequest{
		Email:    "alice@example.com",
		Password: "correct-password",
	})
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "alice", user.DisplayName)

	_, err = svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "nobody@example.com",
		Password: "correct-password",
	})
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)
}

func TestCreateUserValidation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateUser(context.Background(), authdomain.CreateUserRequest{Email: "not-an-email", Password: "long-enough"})
	assert.ErrorIs(t, err, authdomain.ErrInvalidEmail)

	_, err = svc.CreateUser(context.Background(), authdomain.CreateUserRequest{Email: "bob@example.com", Password: "short"})
	assert.ErrorIs(t, err, authdomain.ErrInvalidPassword)

	_, err = svc.CreateUser(context.Background(), authdomain.CreateUserRequest{Email: "Bob@Example.com", Password: "long-enough"})
	require.NoError(t, err)
	_, err = svc.CreateUser(context.Background(), authdomain.CreateUserRequest{Email: "bob@example.com", Password: "long-enough"})
	assert.ErrorIs(t, err, authdomain.ErrUserExists)
}

func TestSessionLifecycle(t *testing.T) {
	svc, fake := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, authdomain.CreateUserRequest{Email: "carol@example.com", Password: "carol-password"})
	require.NoError(t, err)

	login, err := svc.Login(ctx, authdomain.LoginRequest{Email: "CAROL@example.com", Password: "carol-password"})
	require.NoError(t, err)
	require.NotEmpty(t, login.RawToken)
	assert.Equal(t, fake.Now().Add(7*24*time.Hour), login.ExpiresAt)

	session, user, err := svc.Authenticate(ctx, login.RawToken)
	require.NoError(t, err)
	assert.Equal(t, login.SessionID, session.ID)
	assert.Equal(t, "carol@example.com", user.Email)

	current, err := svc.CurrentUser(ownercontext.WithOwner(ctx, ownercontext.Owner{UserID: user.ID, Email: user.Email}))
	require.NoError(t, err)
	assert.Equal(t, user.ID, current.ID)

	require.NoError(t, svc.Logout(ctx, login.RawToken))
	_, _, err = svc.Authenticate(ctx, login.RawToken)
	assert.ErrorIs(t, err, authdomain.ErrSessionRevoked)

	_, _, err = svc.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, authdomain.ErrInvalidSession)
}

func TestSessionExpires(t *testing.T) {
	svc, fake := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, authdomain.CreateUserRequest{Email: "dan@example.com", Password: "dan-password"})
	require.NoError(t, err)
	login, err := svc.Login(ctx, authdomain.LoginRequest{Email: "dan@example.com", Password: "dan-password"})
	require.NoError(t, err)

	fake.Advance(8 * 24 * time.Hour)
	_, _, err = svc.Authenticate(ctx, login.RawToken)
	assert.ErrorIs(t, err, authdomain.ErrSessionExpired)
}
