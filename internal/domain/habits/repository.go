package habits

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/habitquest/backend/internal/infrastructure/persistence/postgres/connection"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

var (
	ErrHabitNotFound      = errors.New("habit not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrHabitAlreadyExists = errors.New("habit with this name already exists")
	ErrNotCompleted       = errors.New("habit not completed on that day")
)

// HabitFilter defines the filtering options for habits
type HabitFilter struct {
	UserID     *uuid.UUID
	Name       *string
	ActiveOnly bool
	Page       int
	PageSize   int
}

// Repository defines the interface for habit persistence operations
type Repository interface {
	Create(ctx context.Context, habit *Habit) error
	FindByID(ctx context.Context, id uuid.UUID) (*Habit, error)
	FindAll(ctx context.Context, filter HabitFilter) ([]Habit, int64, error)
	FindByName(ctx context.Context, name string, userID uuid.UUID) (*Habit, error)
	Update(ctx context.Context, habit *Habit) error
	Delete(ctx context.Context, id uuid.UUID) error
	UpdateStreaks(ctx context.Context, id uuid.UUID, current, longest int) error
	FindWithStreaks(ctx context.Context, afterID uuid.UUID, limit int) ([]Habit, error)

	AddCompletion(ctx context.Context, completion *HabitCompletion) error
	RemoveCompletions(ctx context.Context, habitID, userID uuid.UUID, from, to time.Time) (int64, error)
	ListCompletions(ctx context.Context, habitID uuid.UUID) ([]HabitCompletion, error)
	ListUserCompletions(ctx context.Context, userID uuid.UUID, since time.Time) ([]HabitCompletion, error)
	CountUserCompletions(ctx context.Context, userID uuid.UUID) (int64, error)
	GetHeatmapData(ctx context.Context, userID uuid.UUID, from, to time.Time, loc *time.Location) (map[string]int, error)

	LogStreakHistory(ctx context.Context, habitID uuid.UUID, streakLength int, lastCompletedDate time.Time) error
	GetStreakHistory(ctx context.Context, habitID uuid.UUID) ([]StreakHistory, error)
	UpdateStreakQuality(ctx context.Context, habitID uuid.UUID, quality float64) error

	RecordActivity(ctx context.Context, activity *HabitActivity) error
	ListActivity(ctx context.Context, filter ActivityFilter) ([]HabitActivity, int64, error)
}

type repository struct {
	db *connection.Database
}

func NewRepository(db *connection.Database) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, habit *Habit) error {
	if err := r.db.WithContext(ctx).Create(habit).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrHabitAlreadyExists
		}
		return err
	}
	return nil
}

// isUniqueViolation matches both gorm's translated error and a raw 23505.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*Habit, error) {
	var habit Habit
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&habit)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, result.Error
	}
	return &habit, nil
}

func (r *repository) FindAll(ctx context.Context, filter HabitFilter) ([]Habit, int64, error) {
	var habits []Habit
	var total int64
	query := r.db.WithContext(ctx).Model(&Habit{})

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Name != nil {
		query = query.Where("name ILIKE ?", "%"+*filter.Name+"%")
	}
	if filter.ActiveOnly {
		query = query.Where("active = ?", true)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize == 0 {
		filter.PageSize = 10000
	}

	err := query.Order("created_at ASC").
		Offset(filter.Page * filter.PageSize).
		Limit(filter.PageSize).
		Find(&habits).Error
	if err != nil {
		return nil, 0, err
	}
	return habits, total, nil
}

func (r *repository) FindByName(ctx context.Context, name string, userID uuid.UUID) (*Habit, error) {
	var habit Habit
	result := r.db.WithContext(ctx).
		Where("LOWER(name) = LOWER(?) AND user_id = ?", name, userID).
		First(&habit)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, result.Error
	}
	return &habit, nil
}

func (r *repository) Update(ctx context.Context, habit *Habit) error {
	result := r.db.WithContext(ctx).Save(habit)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return ErrHabitAlreadyExists
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrHabitNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("habit_id = ?", id).Delete(&HabitCompletion{}).Error; err != nil {
			return err
		}
		if err := tx.Where("habit_id = ?", id).Delete(&StreakHistory{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&Habit{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrHabitNotFound
		}
		return nil
	})
}

func (r *repository) UpdateStreaks(ctx context.Context, id uuid.UUID, current, longest int) error {
	result := r.db.WithContext(ctx).Model(&Habit{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"current_streak": current,
			"longest_streak": longest,
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrHabitNotFound
	}
	return nil
}

// FindWithStreaks pages through active habits by id for the nightly refresh.
func (r *repository) FindWithStreaks(ctx context.Context, afterID uuid.UUID, limit int) ([]Habit, error) {
	var habits []Habit
	err := r.db.WithContext(ctx).
		Where("active = ? AND id > ?", true, afterID).
		Order("id ASC").
		Limit(limit).
		Find(&habits).Error
	return habits, err
}

func (r *repository) AddCompletion(ctx context.Context, completion *HabitCompletion) error {
	return r.db.WithContext(ctx).Create(completion).Error
}

func (r *repository) RemoveCompletions(ctx context.Context, habitID, userID uuid.UUID, from, to time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("habit_id = ? AND user_id = ? AND completed_at >= ? AND completed_at < ?", habitID, userID, from, to).
		Delete(&HabitCompletion{})
	return result.RowsAffected, result.Error
}

func (r *repository) ListCompletions(ctx context.Context, habitID uuid.UUID) ([]HabitCompletion, error) {
	var completions []HabitCompletion
	err := r.db.WithContext(ctx).
		Where("habit_id = ?", habitID).
		Order("completed_at DESC").
		Find(&completions).Error
	return completions, err
}

func (r *repository) ListUserCompletions(ctx context.Context, userID uuid.UUID, since time.Time) ([]HabitCompletion, error) {
	var completions []HabitCompletion
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND completed_at >= ?", userID, since).
		Order("completed_at DESC").
		Find(&completions).Error
	return completions, err
}

func (r *repository) CountUserCompletions(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&HabitCompletion{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *repository) GetHeatmapData(ctx context.Context, userID uuid.UUID, from, to time.Time, loc *time.Location) (map[string]int, error) {
	var results []struct {
		Date           string
		CompletedCount int
	}
	if loc == nil {
		loc = time.UTC
	}

	// Days are bucketed in loc so they line up with streak and stats days.
	query := `
		SELECT
			TO_CHAR(completed_at AT TIME ZONE ?, 'YYYY-MM-DD') AS date,
			COUNT(*) AS completed_count
		FROM
			habit_completions
		WHERE
			user_id = ?
			AND completed_at BETWEEN ? AND ?
		GROUP BY
			1
		ORDER BY
			1;
	`
	if err := r.db.WithContext(ctx).Raw(query, loc.String(), userID, from, to).Scan(&results).Error; err != nil {
		return nil, err
	}

	heatmap := make(map[string]int, len(results))
	for _, result := range results {
		heatmap[result.Date] = result.CompletedCount
	}
	return heatmap, nil
}

func (r *repository) LogStreakHistory(ctx context.Context, habitID uuid.UUID, streakLength int, lastCompletedDate time.Time) error {
	startDate := lastCompletedDate.AddDate(0, 0, -streakLength+1)

	history := StreakHistory{
		ID:            uuid.New(),
		HabitID:       habitID,
		StartDate:     startDate,
		EndDate:       lastCompletedDate,
		StreakLength:  streakLength,
		CompletedDays: streakLength,
		CreatedAt:     time.Now(),
	}
	return r.db.WithContext(ctx).Create(&history).Error
}

func (r *repository) GetStreakHistory(ctx context.Context, habitID uuid.UUID) ([]StreakHistory, error) {
	var history []StreakHistory
	err := r.db.WithContext(ctx).
		Where("habit_id = ?", habitID).
		Order("end_date DESC").
		Find(&history).Error
	return history, err
}

func (r *repository) UpdateStreakQuality(ctx context.Context, habitID uuid.UUID, quality float64) error {
	return r.db.WithContext(ctx).Model(&Habit{}).
		Where("id = ?", habitID).
		Update("streak_quality", quality).Error
}

func (r *repository) RecordActivity(ctx context.Context, activity *HabitActivity) error {
	if activity.ID == uuid.Nil {
		activity.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(activity).Error
}

func (r *repository) ListActivity(ctx context.Context, filter ActivityFilter) ([]HabitActivity, int64, error) {
	var activity []HabitActivity
	var total int64
	query := r.db.WithContext(ctx).Model(&HabitActivity{})

	if filter.HabitID != nil {
		query = query.Where("habit_id = ?", *filter.HabitID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Action != nil {
		query = query.Where("action = ?", *filter.Action)
	}
	if filter.StartTime != nil && filter.EndTime != nil {
		query = query.Where("timestamp BETWEEN ? AND ?", *filter.StartTime, *filter.EndTime)
	} else if filter.StartTime != nil {
		query = query.Where("timestamp >= ?", *filter.StartTime)
	} else if filter.EndTime != nil {
		query = query.Where("timestamp <= ?", *filter.EndTime)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize == 0 {
		filter.PageSize = 50
	}
	err := query.Order("timestamp DESC").
		Offset(filter.Page * filter.PageSize).
		Limit(filter.PageSize).
		Find(&activity).Error
	if err != nil {
		return nil, 0, err
	}
	return activity, total, nil
}
