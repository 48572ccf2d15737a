package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/habitquest/backend/pkg/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultStreakRefreshSpec runs shortly after midnight so yesterday's misses
// are visible.
const DefaultStreakRefreshSpec = "5 0 * * *"

// StreakRefresher recomputes denormalised streak counters.
type StreakRefresher interface {
	RefreshStreaks(ctx context.Context) (int, error)
}

type Scheduler struct {
	habits  StreakRefresher
	cron    *cron.Cron
	spec    string
	timeout time.Duration
	logger  *logger.Logger

	mu      sync.Mutex
	running bool
}

func NewScheduler(habits StreakRefresher, spec string, loc *time.Location, log *logger.Logger) *Scheduler {
	if spec == "" {
		spec = DefaultStreakRefreshSpec
	}
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Scheduler{
		habits:  habits,
		cron:    cron.New(cron.WithLocation(loc)),
		spec:    spec,
		timeout: 10 * time.Minute,
		logger:  log.Named("scheduler"),
	}
}

// Start registers the jobs and starts the cron loop. It does not run the
// jobs immediately.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	id, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.RunNow(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid streak refresh schedule %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.running = true

	s.logger.Info("Habit scheduler initialized",
		zap.String("spec", s.spec),
		zap.Time("next_run", s.cron.Entry(id).Next),
	)
	return nil
}

// Stop halts the cron loop and waits for a running job, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Habit scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("Habit scheduler stop timed out", zap.Error(ctx.Err()))
	}
}

// RunNow refreshes all streaks synchronously and returns how many habits
// changed.
func (s *Scheduler) RunNow(ctx context.Context) int {
	start := time.Now()
	s.logger.Info("Starting streak refresh", zap.Time("start_time", start))

	updated, err := s.habits.RefreshStreaks(ctx)
	if err != nil {
		s.logger.Error("Streak refresh failed",
			zap.Int("updated", updated),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return updated
	}

	s.logger.Info("Streak refresh completed",
		zap.Int("updated", updated),
		zap.Duration("duration", time.Since(start)),
	)
	return updated
}
