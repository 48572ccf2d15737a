package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRefresher struct {
	calls   atomic.Int32
	updated int
	err     error
}

func (s *stubRefresher) RefreshStreaks(ctx context.Context) (int, error) {
	s.calls.Add(1)
	return s.updated, s.err
}

func TestRunNow(t *testing.T) {
	stub := &stubRefresher{updated: 4}
	s := NewScheduler(stub, "", nil, nil)

	assert.Equal(t, 4, s.RunNow(context.Background()))
	assert.EqualValues(t, 1, stub.calls.Load())
}

func TestRunNowError(t *testing.T) {
	stub := &stubRefresher{updated: 1, err: errors.New("db down")}
	s := NewScheduler(stub, "", nil, nil)

	assert.Equal(t, 1, s.RunNow(context.Background()))
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := NewScheduler(&stubRefresher{}, "not a cron spec", nil, nil)
	assert.Error(t, s.Start())
}

func TestStartAndStop(t *testing.T) {
	stub := &stubRefresher{}
	s := NewScheduler(stub, "@every 50ms", time.UTC, nil)
	require.NoError(t, s.Start())
	require.NoError(t, s.Start())

	assert.Eventually(t, func() bool { return stub.calls.Load() > 0 }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
	s.Stop(ctx)
}
