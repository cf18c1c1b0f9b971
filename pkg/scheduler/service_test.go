package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimir-aip/attrition-risk/pkg/models"
	"github.com/mimir-aip/attrition-risk/pkg/pipeline"
)

type fakeRunner struct {
	calls   atomic.Int32
	err     error
	release chan struct{}
	started chan struct{}
}

func (f *fakeRunner) Run(ctx context.Context, dataPath string) (*pipeline.Report, error) {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.Report{Run: &models.TrainingRun{ID: "run-1", DataPath: dataPath, BestModel: "XGBoost"}}, nil
}

type fakeReloader struct {
	calls atomic.Int32
	err   error
}

func (f *fakeReloader) Reload() error {
	f.calls.Add(1)
	return f.err
}

func TestNewServiceRejectsBadSchedule(t *testing.T) {
	_, err := NewService("every day", "data.csv", &fakeRunner{}, &fakeReloader{}, nil)
	assert.ErrorContains(t, err, "invalid cron expression")
}

func TestNextRun(t *testing.T) {
	s, err := NewService("0 3 * * *", "data.csv", &fakeRunner{}, &fakeReloader{}, nil)
	require.NoError(t, err)

	from := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 2, 3, 0, 0, 0, time.UTC), s.NextRun(from))
}

func TestTriggerReloadsAfterSuccess(t *testing.T) {
	runner, reloader := &fakeRunner{}, &fakeReloader{}
	s, err := NewService("@daily", "data.csv", runner, reloader, nil)
	require.NoError(t, err)

	require.NoError(t, s.Trigger())
	assert.Equal(t, int32(1), runner.calls.Load())
	assert.Equal(t, int32(1), reloader.calls.Load())
}

func TestTriggerFailureSkipsReload(t *testing.T) {
	runner := &fakeRunner{err: errors.New("bad data")}
	reloader := &fakeReloader{}
	s, err := NewService("@daily", "data.csv", runner, reloader, nil)
	require.NoError(t, err)

	assert.ErrorContains(t, s.Trigger(), "bad data")
	assert.Equal(t, int32(0), reloader.calls.Load())
}

func TestTriggerReloadError(t *testing.T) {
	s, err := NewService("@daily", "data.csv", &fakeRunner{}, &fakeReloader{err: errors.New("corrupt")}, nil)
	require.NoError(t, err)
	assert.ErrorContains(t, s.Trigger(), "run-1")
}

func TestTriggerSkipsOverlappingRuns(t *testing.T) {
	runner := &fakeRunner{release: make(chan struct{}), started: make(chan struct{}, 1)}
	s, err := NewService("@daily", "data.csv", runner, &fakeReloader{}, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	var first error
	go func() {
		defer wg.Done()
		first = s.Trigger()
	}()
	<-runner.started

	assert.ErrorIs(t, s.Trigger(), ErrRunInProgress)
	close(runner.release)
	wg.Wait()

	require.NoError(t, first)
	assert.Equal(t, int32(1), runner.calls.Load())
}

func TestStopCancelsActiveRun(t *testing.T) {
	runner := &fakeRunner{release: make(chan struct{}), started: make(chan struct{}, 1)}
	s, err := NewService("@daily", "data.csv", runner, &fakeReloader{}, nil)
	require.NoError(t, err)
	s.Start()

	done := make(chan error, 1)
	go func() { done <- s.Trigger() }()
	<-runner.started

	s.Stop()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("run was not cancelled")
	}
}
