package habits

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/habitquest/backend/internal/infrastructure/persistence/postgres/connection"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockRepository(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return NewRepository(connection.Wrap(gdb)), mock
}

func TestFindByNameIgnoresCase(t *testing.T) {
	repo, mock := newMockRepository(t)
	userID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "habits" WHERE LOWER(name) = LOWER($1) AND user_id = $2`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name"}).AddRow(uuid.New(), userID, "Run"))

	h, err := repo.FindByName(context.Background(), "run", userID)
	require.NoError(t, err)
	assert.Equal(t, "Run", h.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateDuplicateName(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "habits" SET`)).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint \"idx_habit_user_name\""})
	mock.ExpectRollback()

	err := repo.Update(context.Background(), &Habit{ID: uuid.New(), UserID: uuid.New(), Name: "run"})
	assert.ErrorIs(t, err, ErrHabitAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"gorm translated", gorm.ErrDuplicatedKey, true},
		{"wrapped gorm", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), true},
		{"pq unique", &pq.Error{Code: "23505"}, true},
		{"pq foreign key", &pq.Error{Code: "23503"}, false},
		{"other", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueViolation(tt.err))
		})
	}
}

func TestGetHeatmapDataUsesLocation(t *testing.T) {
	repo, mock := newMockRepository(t)
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	userID := uuid.New()
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`TO_CHAR(completed_at AT TIME ZONE $1, 'YYYY-MM-DD')`)).
		WithArgs("Asia/Tokyo", userID, from, to).
		WillReturnRows(sqlmock.NewRows([]string{"date", "completed_count"}).
			AddRow("2024-03-02", 2).
			AddRow("2024-03-05", 1))

	data, err := repo.GetHeatmapData(context.Background(), userID, from, to, loc)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"2024-03-02": 2, "2024-03-05": 1}, data)
	assert.NoError(t, mock.ExpectationsWereMet())
}
