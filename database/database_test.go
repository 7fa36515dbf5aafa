package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealplanner-app/internal/testdb"
)

func TestMigrateCreatesTables(t *testing.T) {
	db := testdb.Open(t)
	require.NoError(t, Migrate(db))

	for _, table := range []string{"users", "verification_tokens", "plans", "payments", "profiles", "meal_plans", "meals"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}
