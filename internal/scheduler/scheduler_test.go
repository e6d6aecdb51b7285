package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/cryptoetf/backend/pkg/logger"
)

type testJob struct {
	name     string
	schedule string
	failures int32
	calls    int32
}

func (j *testJob) Name() string     { return j.name }
func (j *testJob) Schedule() string { return j.schedule }

func (j *testJob) Run(ctx context.Context) error {
	n := atomic.AddInt32(&j.calls, 1)
	if n <= atomic.LoadInt32(&j.failures) {
		return errors.New("transient")
	}
	return nil
}

func TestAddJob(t *testing.T) {
	s := New(logger.Nop())

	require.NoError(t, s.AddJob(&testJob{name: "b", schedule: "0 0 * * * *"}))
	require.NoError(t, s.AddJob(&testJob{name: "a", schedule: "0 */5 * * * *"}))

	assert.Error(t, s.AddJob(&testJob{name: "a", schedule: "0 0 * * * *"}))
	assert.Error(t, s.AddJob(&testJob{name: "bad", schedule: "not a cron"}))
	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())
}

func TestRunJobNowRetries(t *testing.T) {
	s := New(logger.Nop()).WithRetry(2, time.Millisecond)
	job := &testJob{name: "sync", schedule: "0 0 * * * *", failures: 2}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJobNow(context.Background(), "sync")

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)

	history, err := s.GetJobHistory("sync")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestRunJobNowGivesUp(t *testing.T) {
	s := New(logger.Nop()).WithRetry(1, time.Millisecond)
	job := &testJob{name: "sync", schedule: "0 0 * * * *", failures: 10}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJobNow(context.Background(), "sync")

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, "transient", result.Error)

	stats := s.GetJobStats()["sync"]
	assert.Equal(t, 1, stats.FailureCount)
	assert.NotNil(t, stats.LastFailure)
	assert.Nil(t, stats.LastSuccess)
}

func TestRunJobUnknown(t *testing.T) {
	s := New(logger.Nop())

	assert.Error(t, s.RunJob("missing"))
	_, err := s.RunJobNow(context.Background(), "missing")
	assert.Error(t, err)
	_, err = s.GetJobHistory("missing")
	assert.Error(t, err)
}

func TestRemoveJob(t *testing.T) {
	s := New(logger.Nop())
	require.NoError(t, s.AddJob(&testJob{name: "a", schedule: "0 0 * * * *"}))

	require.NoError(t, s.RemoveJob("a"))
	assert.Empty(t, s.GetAllJobs())
	assert.Error(t, s.RemoveJob("a"))
}

func TestStartStopReportsNextRun(t *testing.T) {
	s := New(logger.Nop())
	require.NoError(t, s.AddJob(&testJob{name: "a", schedule: "0 0 * * * *"}))

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return s.GetJobStats()["a"].NextRun != nil
	}, time.Second, 10*time.Millisecond)
}

func TestJobHistoryBounded(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < maxHistory+10; i++ {
		h.AddResult(JobResult{Success: i%2 == 0})
	}

	assert.Len(t, h.Results, maxHistory)
	assert.Len(t, h.GetLatestResults(5), 5)
	assert.Empty(t, h.GetLatestResults(0))
	assert.InDelta(t, 0.5, h.GetSuccessRate(), 0.001)
}
