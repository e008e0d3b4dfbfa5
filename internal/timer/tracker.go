// Package timer 实现阅读计时：每秒累加一次，按模式和页面可见性暂停或恢复。
package timer

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type Mode int

const (
	ModeIdle Mode = iota
	ModeReading
	ModeQuiz
)

func (m Mode) String() string {
	switch m {
	case ModeReading:
		return "reading"
	case ModeQuiz:
		return "quiz"
	default:
		return "idle"
	}
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "idle", "":
		return ModeIdle, nil
	case "reading":
		return ModeReading, nil
	case "quiz":
		return ModeQuiz, nil
	}
	return ModeIdle, fmt.Errorf("unknown timer mode %q", s)
}

// Sink 接收累计的秒数
type Sink func(seconds int)

// Tracker 在 Quiz 模式下始终计时；Reading 模式下仅在页面可见时计时。
// 每次模式变化都会清掉旧的计时循环。
type Tracker struct {
	mu         sync.Mutex
	mode       Mode
	visible    bool
	pending    int
	flushEvery int
	sink       Sink
	cancel     context.CancelFunc
	interval   time.Duration
	newTicker  func(d time.Duration) (<-chan time.Time, func())
}

func NewTracker(flushEvery int, sink Sink) *Tracker {
	if flushEvery <= 0 {
		flushEvery = 1
	}
	return &Tracker{
		visible:    true,
		flushEvery: flushEvery,
		sink:       sink,
		interval:   time.Second,
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
}

func (t *Tracker) SetMode(m Mode) {
	t.mu.Lock()
	t.mode = m
	flushed := t.restartLocked()
	t.mu.Unlock()
	t.emit(flushed)
}

// SetVisible 页面切到后台时暂停，回到前台时恢复（Quiz 模式不受影响）
func (t *Tracker) SetVisible(visible bool) {
	t.mu.Lock()
	if t.visible == visible {
		t.mu.Unlock()
		return
	}
	t.visible = visible
	flushed := t.restartLocked()
	t.mu.Unlock()
	t.emit(flushed)
}

func (t *Tracker) Mode() Mode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode
}

func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

// Stop 停止计时并把未上报的秒数交给 sink
func (t *Tracker) Stop() {
	t.mu.Lock()
	t.mode = ModeIdle
	flushed := t.restartLocked()
	t.mu.Unlock()
	t.emit(flushed)
}

func (t *Tracker) shouldRunLocked() bool {
	return t.mode == ModeQuiz || (t.mode == ModeReading && t.visible)
}

// restartLocked 停掉当前循环，需要时启动新的循环。返回待上报的秒数
func (t *Tracker) restartLocked() int {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}

	flushed := 0
	if !t.shouldRunLocked() {
		flushed = t.pending
		t.pending = 0
		return flushed
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	ticks, stop := t.newTicker(t.interval)
	go t.loop(ctx, ticks, stop)
	return flushed
}

func (t *Tracker) loop(ctx context.Context, ticks <-chan time.Time, stop func()) {
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			t.tick(ctx)
		}
	}
}

func (t *Tracker) tick(ctx context.Context) {
	t.mu.Lock()
	if ctx.Err() != nil {
		t.mu.Unlock()
		return
	}
	t.pending++
	flushed := 0
	if t.pending >= t.flushEvery {
		flushed = t.pending
		t.pending = 0
	}
	t.mu.Unlock()
	t.emit(flushed)
}

func (t *Tracker) emit(seconds int) {
	if seconds > 0 && t.sink != nil {
		t.sink(seconds)
	}
}
