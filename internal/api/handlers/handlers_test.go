package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/habitquest/backend/internal/domain/habits"
	"github.com/habitquest/backend/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHabits implements only what the tests call; anything else panics.
type fakeHabits struct {
	habits.Service

	created    habits.CreateHabitInput
	complete   *habits.CompletionResult
	err        error
	statsFrom  time.Time
	statsTo    time.Time
	statsCalls int
	page       int
}

func (f *fakeHabits) CreateHabit(ctx context.Context, input habits.CreateHabitInput) (*habits.Habit, error) {
	f.created = input
	if f.err != nil {
		return nil, f.err
	}
	return &habits.Habit{ID: uuid.New(), UserID: input.UserID, Name: input.Name, Frequency: input.Frequency, Active: true}, nil
}

func (f *fakeHabits) CompleteHabit(ctx context.Context, id, userID uuid.UUID, at *time.Time, note string) (*habits.CompletionResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.complete, nil
}

func (f *fakeHabits) GetStats(ctx context.Context, userID uuid.UUID, start, end time.Time) (*habits.Stats, error) {
	f.statsCalls++
	f.statsFrom, f.statsTo = start, end
	return &habits.Stats{RateColor: "green", RateLabel: "Excellent"}, nil
}

func (f *fakeHabits) ListActivity(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]habits.HabitActivity, int64, error) {
	f.page = page
	return nil, 0, nil
}

type fakeUsers struct {
	user.Service
	result user.ValidationResult
}

func (f *fakeUsers) SetUsername(ctx context.Context, id uuid.UUID, username string) (*user.Profile, user.ValidationResult, error) {
	if !f.result.Valid {
		return nil, f.result, nil
	}
	return &user.Profile{ID: id, Username: username}, f.result, nil
}

func testRouter(userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != uuid.Nil {
			c.Set("user_id", userID)
		}
		c.Next()
	})
	return r
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestCreateHabit(t *testing.T) {
	userID := uuid.New()
	svc := &fakeHabits{}
	r := testRouter(userID)
	r.POST("/habits", NewHabitsHandler(svc, time.UTC, nil).CreateHabit)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/habits", strings.NewReader(`{"name":"Read","frequency":"daily"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, userID, svc.created.UserID)
	assert.Equal(t, habits.FrequencyDaily, svc.created.Frequency)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "Read", data["name"])
}

func TestCreateHabitConflict(t *testing.T) {
	svc := &fakeHabits{err: habits.ErrHabitAlreadyExists}
	r := testRouter(uuid.New())
	r.POST("/habits", NewHabitsHandler(svc, time.UTC, nil).CreateHabit)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/habits", strings.NewReader(`{"name":"Read"}`)))

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateHabitRequiresUser(t *testing.T) {
	r := testRouter(uuid.Nil)
	r.POST("/habits", NewHabitsHandler(&fakeHabits{}, time.UTC, nil).CreateHabit)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/habits", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCompleteHabit(t *testing.T) {
	habitID := uuid.New()
	svc := &fakeHabits{complete: &habits.CompletionResult{
		Completion:    habits.HabitCompletion{ID: uuid.New(), HabitID: habitID},
		CurrentStreak: 3,
		LongestStreak: 5,
		XPEarned:      10,
	}}
	r := testRouter(uuid.New())
	r.POST("/habits/:id/complete", NewHabitsHandler(svc, time.UTC, nil).CompleteHabit)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/habits/"+habitID.String()+"/complete", nil))

	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.EqualValues(t, 3, data["current_streak"])
	assert.EqualValues(t, 10, data["xp_earned"])
}

func TestCompleteHabitBadID(t *testing.T) {
	r := testRouter(uuid.New())
	r.POST("/habits/:id/complete", NewHabitsHandler(&fakeHabits{}, time.UTC, nil).CompleteHabit)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/habits/nope/complete", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCompleteHabitNotFound(t *testing.T) {
	r := testRouter(uuid.New())
	r.POST("/habits/:id/complete", NewHabitsHandler(&fakeHabits{err: habits.ErrHabitNotFound}, time.UTC, nil).CompleteHabit)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/habits/"+uuid.NewString()+"/complete", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCompleteHabitHidesInternalErrors(t *testing.T) {
	r := testRouter(uuid.New())
	r.POST("/habits/:id/complete", NewHabitsHandler(&fakeHabits{err: errors.New("pq: connection reset")}, time.UTC, nil).CompleteHabit)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/habits/"+uuid.NewString()+"/complete", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", decode(t, w)["error"])
}

func TestGetStatsDefaultRange(t *testing.T) {
	svc := &fakeHabits{}
	r := testRouter(uuid.New())
	r.GET("/stats", NewHabitsHandler(svc, time.UTC, nil).GetStats)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats?end=2024-03-31", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2024-03-02", svc.statsFrom.Format(dateLayout))
	assert.Equal(t, "2024-03-31", svc.statsTo.Format(dateLayout))
}

func TestGetStatsBadDate(t *testing.T) {
	r := testRouter(uuid.New())
	r.GET("/stats", NewHabitsHandler(&fakeHabits{}, time.UTC, nil).GetStats)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats?start=03/01/2024", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetStatsRejectsLongRange(t *testing.T) {
	svc := &fakeHabits{}
	r := testRouter(uuid.New())
	r.GET("/stats", NewHabitsHandler(svc, time.UTC, nil).GetStats)

	for _, q := range []string{
		"/stats?start=2023-01-01&end=2024-03-31",
		"/stats?start=0001-01-01&end=9999-12-31",
		"/stats?start=2024-03-31&end=2024-03-01",
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, q, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
	assert.Zero(t, svc.statsCalls)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats?start=2023-04-01&end=2024-03-31", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListActivityPageIsZeroBased(t *testing.T) {
	svc := &fakeHabits{}
	r := testRouter(uuid.New())
	r.GET("/activity", NewHabitsHandler(svc, time.UTC, nil).ListActivity)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/activity?page=3", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, svc.page)
}

func TestSetUsernameRejected(t *testing.T) {
	users := &fakeUsers{result: user.ValidationResult{Error: "This username is reserved"}}
	r := testRouter(uuid.New())
	r.PUT("/username", NewUserHandler(users, "https://example.com", nil).SetUsername)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/username", strings.NewReader(`{"username":"admin"}`)))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "This username is reserved", decode(t, w)["error"])
}

func TestSetUsernameAccepted(t *testing.T) {
	users := &fakeUsers{result: user.ValidationResult{Valid: true}}
	r := testRouter(uuid.New())
	r.PUT("/username", NewUserHandler(users, "https://example.com", nil).SetUsername)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/username", strings.NewReader(`{"username":"reader_42"}`)))

	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "reader_42", data["username"])
}
