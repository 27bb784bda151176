package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedInterval(t *testing.T) {
	fn := Fixed(42 * time.Second)
	assert.Equal(t, 42*time.Second, fn(time.Now()))
	assert.Equal(t, 42*time.Second, fn(time.Now().Add(12*time.Hour)))
}

func TestWindowedInterval(t *testing.T) {
	fn := WindowedInterval(time.Hour, 5*time.Minute, "07:00", "18:00")

	at := func(clock string) time.Time {
		parsed, err := time.ParseInLocation("2006-01-02 15:04", "2026-03-10 "+clock, time.Local)
		require.NoError(t, err)
		return parsed
	}

	assert.Equal(t, time.Hour, fn(at("06:59")))
	assert.Equal(t, 5*time.Minute, fn(at("07:00")))
	assert.Equal(t, 5*time.Minute, fn(at("12:30")))
	assert.Equal(t, 5*time.Minute, fn(at("17:59")))
	assert.Equal(t, time.Hour, fn(at("18:00")))
	assert.Equal(t, time.Hour, fn(at("23:45")))
}

func TestSchedulerRunsAndStops(t *testing.T) {
	sched := New(nil)
	sched.Start(context.Background())

	var runs atomic.Int64
	sched.Every("tick", Fixed(10*time.Millisecond), func(context.Context) {
		runs.Add(1)
	})

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	sched.Stop()

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, runs.Load())
}

func TestSchedulerDropsTaskWhenNotStarted(t *testing.T) {
	sched := New(nil)

	var runs atomic.Int64
	sched.Every("tick", Fixed(time.Millisecond), func(context.Context) {
		runs.Add(1)
	})

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, runs.Load())
	sched.Stop()
}
