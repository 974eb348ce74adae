package migration

import (
	"io/fs"
	"testing"

	"github.com/smallbiznis/paystub/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	require.NoError(t, err)

	names := map[string]bool{}
	for _, entry := range entries {
		names[entry.Name()] = true
	}
	assert.True(t, names["000001_init.up.sql"])
	assert.True(t, names["000001_init.down.sql"])
	assert.True(t, names["000002_client_baseline_ytd.up.sql"])
	assert.True(t, names["000002_client_baseline_ytd.down.sql"])
}

func TestAutoMigrateCreatesTables(t *testing.T) {
	conn, err := db.NewTest(t.Name())
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(conn))

	for _, table := range []string{"users", "sessions", "clients", "paystubs"} {
		assert.Truef(t, conn.Migrator().HasTable(table), "missing table %s", table)
	}
	assert.True(t, conn.Migrator().HasColumn("paystubs", "tax_ytd_details"))
	assert.True(t, conn.Migrator().HasColumn("clients", "version"))
	assert.True(t, conn.Migrator().HasColumn("clients", "baseline_ytd_regular"))
	assert.True(t, conn.Migrator().HasColumn("clients", "baseline_ytd_overtime"))
}
