package database

import (
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"mealplanner-app/internal/domain/billing"
	"mealplanner-app/internal/domain/mealplans"
	"mealplanner-app/internal/domain/plans"
	"mealplanner-app/internal/domain/profiles"
	"mealplanner-app/internal/domain/users"
)

// Models lists every table the app owns, in dependency order.
func Models() []any {
	return []any{
		// core
		&users.User{},
		&users.VerificationToken{},
		&plans.Plan{},
		&billing.Payment{},

		// planning
		&profiles.Profile{},
		&mealplans.MealPlan{},
		&mealplans.Meal{},
	}
}

// Open connects to Postgres and runs AutoMigrate.
func Open(dsn string, log zerolog.Logger) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database dsn is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info().Int("models", len(Models())).Msg("database connected and migrated")
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}
