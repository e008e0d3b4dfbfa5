package timer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualTicks 每次启动循环时分配一个新的 channel，测试只向最新的发送
type manualTicks struct {
	mu    sync.Mutex
	chans []chan time.Time
}

func (m *manualTicks) factory(time.Duration) (<-chan time.Time, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan time.Time)
	m.chans = append(m.chans, ch)
	return ch, func() {}
}

func (m *manualTicks) tick(t *testing.T) {
	t.Helper()
	m.mu.Lock()
	require.NotEmpty(t, m.chans)
	ch := m.chans[len(m.chans)-1]
	m.mu.Unlock()

	select {
	case ch <- time.Now():
	case <-time.After(time.Second):
		t.Fatal("tick not consumed")
	}
}

func newTestTracker(flushEvery int) (*Tracker, *manualTicks, chan int) {
	got := make(chan int, 16)
	tr := NewTracker(flushEvery, func(seconds int) { got <- seconds })
	ticks := &manualTicks{}
	tr.newTicker = ticks.factory
	return tr, ticks, got
}

func waitPending(t *testing.T, tr *Tracker, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		tr.mu.Lock()
		defer tr.mu.Unlock()
		return tr.pending == want
	}, time.Second, time.Millisecond)
}

func receive(t *testing.T, got chan int) int {
	t.Helper()
	select {
	case s := <-got:
		return s
	case <-time.After(time.Second):
		t.Fatal("no seconds flushed")
		return 0
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeIdle, ModeReading, ModeQuiz} {
		parsed, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}
	_, err := ParseMode("sleeping")
	assert.Error(t, err)
}

func TestTrackerRunsOnlyWhenActive(t *testing.T) {
	tr, _, _ := newTestTracker(1)
	assert.False(t, tr.Running())

	tr.SetMode(ModeReading)
	assert.True(t, tr.Running())

	tr.SetVisible(false)
	assert.False(t, tr.Running(), "hidden page pauses reading")

	tr.SetMode(ModeQuiz)
	assert.True(t, tr.Running(), "quiz mode ignores visibility")

	tr.SetVisible(true)
	tr.SetMode(ModeIdle)
	assert.False(t, tr.Running())
}

func TestTrackerCountsTicks(t *testing.T) {
	tr, ticks, got := newTestTracker(1)
	tr.SetMode(ModeReading)

	ticks.tick(t)
	ticks.tick(t)

	assert.Equal(t, 1, receive(t, got))
	assert.Equal(t, 1, receive(t, got))
	tr.Stop()
}

func TestTrackerFlushesPendingOnPause(t *testing.T) {
	tr, ticks, got := newTestTracker(10)
	tr.SetMode(ModeQuiz)

	for i := 0; i < 3; i++ {
		ticks.tick(t)
	}
	waitPending(t, tr, 3)
	assert.Empty(t, got)

	tr.SetMode(ModeIdle)
	assert.Equal(t, 3, receive(t, got))

	tr.SetMode(ModeReading)
	ticks.tick(t)
	waitPending(t, tr, 1)
	tr.SetVisible(false)
	assert.Equal(t, 1, receive(t, got))

	tr.Stop()
	assert.Empty(t, got)
}

func TestTrackerStopFlushes(t *testing.T) {
	tr, ticks, got := newTestTracker(5)
	tr.SetMode(ModeReading)
	ticks.tick(t)
	ticks.tick(t)
	waitPending(t, tr, 2)

	tr.Stop()

	assert.Equal(t, 2, receive(t, got))
	assert.Equal(t, ModeIdle, tr.Mode())
	assert.False(t, tr.Running())
}
