package migrations

import (
	"errors"
	"fmt"
	"time"

	"github.com/habitquest/backend/internal/domain/gamification"
	"github.com/habitquest/backend/internal/domain/habits"
	"github.com/habitquest/backend/internal/domain/user"
	"github.com/habitquest/backend/internal/infrastructure/persistence/postgres/connection"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MigrationRecord tracks the migration history
type MigrationRecord struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"not null;unique"`
	Version   int       `gorm:"not null"`
	AppliedAt time.Time `gorm:"not null"`
}

// TableName specifies the table name for migration records
func (MigrationRecord) TableName() string {
	return "schema_migrations"
}

// Models lists the tables in dependency order.
func Models() []interface{} {
	return []interface{}{
		&user.User{}, // referenced by everything else
		&habits.Habit{},
		&habits.HabitCompletion{},
		&habits.StreakHistory{},
		&habits.HabitActivity{},
		&gamification.UserXP{},
		&gamification.XPEvent{},
	}
}

// indexes are created after the tables; gorm tags cannot express them.
var indexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_habit_user_name ON habits (user_id, LOWER(name))`,
	`CREATE INDEX IF NOT EXISTS idx_user_username_lower ON users (LOWER(username))`,
	`CREATE INDEX IF NOT EXISTS idx_user_xp_total ON user_xp (total_xp DESC)`,
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *connection.Database, logger *zap.Logger) error {
	logger.Info("Starting automatic database migration...")

	// Create migrations table if it doesn't exist
	if err := db.AutoMigrate(&MigrationRecord{}); err != nil {
		logger.Error("Failed to create migrations table", zap.Error(err))
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		txDB := connection.Wrap(tx)

		var lastVersion int
		if err := txDB.Model(&MigrationRecord{}).Select("COALESCE(MAX(version), 0)").Scan(&lastVersion).Error; err != nil {
			return fmt.Errorf("failed to get last version: %w", err)
		}

		applied := 0
		for _, model := range Models() {
			modelName := fmt.Sprintf("%T", model)

			var record MigrationRecord
			err := txDB.Where("name = ?", modelName).First(&record).Error
			isNewMigration := errors.Is(err, gorm.ErrRecordNotFound)
			if err != nil && !isNewMigration {
				return fmt.Errorf("failed to read migration record for %s: %w", modelName, err)
			}

			if err := txDB.AutoMigrate(model); err != nil {
				logger.Error("Failed to migrate model",
					zap.String("model", modelName),
					zap.Error(err),
				)
				return fmt.Errorf("failed to migrate %s: %w", modelName, err)
			}

			if isNewMigration {
				applied++
				record = MigrationRecord{
					Name:      modelName,
					Version:   lastVersion + applied,
					AppliedAt: time.Now(),
				}
				if err := txDB.Create(&record).Error; err != nil {
					return fmt.Errorf("failed to record migration for %s: %w", modelName, err)
				}
				logger.Info("Applied new migration",
					zap.String("model", modelName),
					zap.Int("version", record.Version),
				)
			}
		}

		for _, stmt := range indexes {
			if err := txDB.Exec(stmt).Error; err != nil {
				return fmt.Errorf("failed to create index: %w", err)
			}
		}

		logger.Info("Database migration completed successfully", zap.Int("new_tables", applied))
		return nil
	})
}

// GetMigrationHistory returns the history of applied migrations
func GetMigrationHistory(db *connection.Database) ([]MigrationRecord, error) {
	var records []MigrationRecord
	err := db.Order("version ASC").Find(&records).Error
	return records, err
}
