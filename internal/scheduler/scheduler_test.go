package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsJobs(t *testing.T) {
	var runs atomic.Int32
	s := New()
	require.NoError(t, s.Start(Job{
		Name:  "count",
		Every: 20 * time.Millisecond,
		Run:   func() { runs.Add(1) },
	}))
	defer s.Stop()

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestSchedulerRejectsInvalidInterval(t *testing.T) {
	s := New()
	err := s.Start(Job{Name: "bad", Every: 0, Run: func() {}})
	assert.Error(t, err)
}
