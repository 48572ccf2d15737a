package gamification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/habitquest/backend/internal/infrastructure/persistence/postgres/connection"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MutateFunc updates a locked XP row in place and returns the ledger events to record.
type MutateFunc func(xp *UserXP) []XPEvent

type Repository interface {
	Get(ctx context.Context, userID uuid.UUID) (*UserXP, error)
	Apply(ctx context.Context, userID uuid.UUID, fn MutateFunc) (*UserXP, error)
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	RecentEvents(ctx context.Context, userID uuid.UUID, limit int) ([]XPEvent, error)
}

type repository struct {
	db *connection.Database
}

func NewRepository(db *connection.Database) Repository {
	return &repository{db: db}
}

// Get returns the user's XP row, or a fresh level 1 row if none exists yet.
func (r *repository) Get(ctx context.Context, userID uuid.UUID) (*UserXP, error) {
	var xp UserXP
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&xp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &UserXP{UserID: userID, Level: 1}, nil
	}
	if err != nil {
		return nil, err
	}
	return &xp, nil
}

// Apply locks the user's XP row, lets fn mutate it and writes the row and
// its events in one transaction.
func (r *repository) Apply(ctx context.Context, userID uuid.UUID, fn MutateFunc) (*UserXP, error) {
	var result UserXP
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		seed := UserXP{UserID: userID, Level: 1, CreatedAt: now, UpdatedAt: now}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}

		var xp UserXP
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			First(&xp).Error; err != nil {
			return err
		}

		events := fn(&xp)
		xp.UpdatedAt = now
		if err := tx.Save(&xp).Error; err != nil {
			return err
		}
		for i := range events {
			events[i].UserID = userID
			if err := tx.Create(&events[i]).Error; err != nil {
				return err
			}
		}
		result = xp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *repository) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	var rows []LeaderboardEntry
	err := r.db.WithContext(ctx).
		Table("user_xp AS ux").
		Select("ux.user_id, COALESCE(u.username, '') AS username, COALESCE(u.avatar_color, '') AS avatar_color, ux.total_xp, ux.level").
		Joins("LEFT JOIN users u ON u.id = ux.user_id").
		Order("ux.total_xp DESC, ux.updated_at ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows, nil
}

func (r *repository) RecentEvents(ctx context.Context, userID uuid.UUID, limit int) ([]XPEvent, error) {
	var events []XPEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}
