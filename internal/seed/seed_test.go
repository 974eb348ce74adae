package seed

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/paystub/internal/auth/domain"
	"github.com/smallbiznis/paystub/internal/auth/password"
	"github.com/smallbiznis/paystub/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEnsureDefaultUserIsIdempotent(t *testing.T) {
	conn, err := db.NewTest(t.Name())
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&authdomain.User{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, EnsureDefaultUser(ctx, conn, node, zap.NewNop(), " Admin@Paystub.local ", "change-me-now"))
	require.NoError(t, EnsureDefaultUser(ctx, conn, node, zap.NewNop(), "other@paystub.local", "change-me-now"))

	var users []authdomain.User
	require.NoError(t, conn.Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, "admin@paystub.local", users[0].Email)
	assert.True(t, users[0].IsDefault)
	require.NotNil(t, users[0].PasswordHash)
	assert.True(t, password.Verify("change-me-now", *users[0].PasswordHash))
}

func TestEnsureDefaultUserRejectsWeakPassword(t *testing.T) {
	conn, err := db.NewTest(t.Name())
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&authdomain.User{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	err = EnsureDefaultUser(context.Background(), conn, node, zap.NewNop(), "admin@paystub.local", "short")
	assert.ErrorIs(t, err, password.ErrTooShort)
}
