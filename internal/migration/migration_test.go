package migration

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRunAutoMigratesNonPostgres(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:migration?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, Run(conn))
	require.True(t, conn.Migrator().HasColumn("subscriptions", "next_charge_attempt"))
	for _, table := range []string{"nonces", "products", "plans", "subscriptions", "subscribed_to_product", "event_logs", "bridge_messages", "token_balances"} {
		require.True(t, conn.Migrator().HasTable(table), table)
	}

	// idempotent
	require.NoError(t, Run(conn))
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	entries, err := embeddedMigrations.ReadDir(migrationsDir)
	require.NoError(t, err)
	require.Len(t, entries, 4)
}
