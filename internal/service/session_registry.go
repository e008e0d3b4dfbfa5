package service

import (
	"context"
	"edu_progress_backend/internal/catalog"
	"edu_progress_backend/internal/progress"
	"edu_progress_backend/internal/timer"
	"edu_progress_backend/pkg/logger"
	"edu_progress_backend/pkg/monitoring"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Session 一个学习者在内存中的状态：进度引擎、当日时长和阅读计时器
type Session struct {
	LearnerID string
	Engine    *progress.Engine
	Daily     *progress.DailyTime

	// mu 保护 reading；计时器的 sink 不会获取 mu
	mu         sync.Mutex
	reading    *readingTimer
	flushEvery int
	lastSeen   atomic.Int64
	now        func() time.Time
}

type readingTimer struct {
	subjectID string
	chapterID string
	tracker   *timer.Tracker
}

// TimerState 阅读计时器当前状态
type TimerState struct {
	SubjectID string `json:"subjectId"`
	ChapterID string `json:"chapterId"`
	Mode      string `json:"mode"`
	Running   bool   `json:"running"`
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *Session) idleSince() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// SetTimer 切换阅读计时器。换章节时旧计时器先停止并把剩余时长记到旧章节
func (s *Session) SetTimer(subjectID, chapterID string, mode timer.Mode, visible *bool) TimerState {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt := s.reading
	if rt == nil || rt.subjectID != subjectID || rt.chapterID != chapterID {
		if rt != nil {
			rt.tracker.Stop()
		}
		rt = &readingTimer{
			subjectID: subjectID,
			chapterID: chapterID,
			tracker:   timer.NewTracker(s.flushEvery, s.timeSink(subjectID, chapterID)),
		}
		s.reading = rt
	}

	if visible != nil {
		rt.tracker.SetVisible(*visible)
	}
	rt.tracker.SetMode(mode)

	return TimerState{
		SubjectID: subjectID,
		ChapterID: chapterID,
		Mode:      rt.tracker.Mode().String(),
		Running:   rt.tracker.Running(),
	}
}

// StopTimer 停止计时并上报剩余时长
func (s *Session) StopTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reading != nil {
		s.reading.tracker.Stop()
		s.reading = nil
	}
}

func (s *Session) timerRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reading != nil && s.reading.tracker.Running()
}

func (s *Session) timeSink(subjectID, chapterID string) timer.Sink {
	return func(seconds int) {
		s.Daily.Add(seconds)
		s.touch(s.now())

		intent := progress.TimeAccumulated{Seconds: seconds}
		_, err := s.Engine.Apply(context.Background(), subjectID, chapterID, intent)
		monitoring.IntentCounter.WithLabelValues(intent.Name(), outcome(err)).Inc()
		if err != nil {
			logger.Log.Warn("Failed to record reading time",
				zap.String("learnerID", s.LearnerID),
				zap.String("subjectID", subjectID),
				zap.String("chapterID", chapterID),
				zap.Int("seconds", seconds),
				zap.Error(err))
		}
	}
}

// SessionRegistry 每个学习者只构建一次引擎，之后复用
type SessionRegistry struct {
	mu         sync.Mutex
	sessions   map[string]*Session
	store      progress.Store
	catalog    catalog.Catalog
	opts       progress.Options
	flushEvery int
	now        func() time.Time
}

func NewSessionRegistry(store progress.Store, cat catalog.Catalog, opts progress.Options, flushEvery int) *SessionRegistry {
	return &SessionRegistry{
		sessions:   make(map[string]*Session),
		store:      store,
		catalog:    cat,
		opts:       opts,
		flushEvery: flushEvery,
		now:        time.Now,
	}
}

// Session 返回学习者的会话，首次访问时从存储加载进度
func (r *SessionRegistry) Session(ctx context.Context, learnerID string) (*Session, error) {
	r.mu.Lock()
	if s, ok := r.sessions[learnerID]; ok {
		r.mu.Unlock()
		s.touch(r.now())
		return s, nil
	}
	opts := r.opts
	r.mu.Unlock()

	// 加载在锁外进行，避免慢存储阻塞其他学习者
	engine, err := progress.Open(ctx, learnerID, r.store, r.catalog, opts)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[learnerID]; ok {
		s.touch(r.now())
		return s, nil
	}

	s := &Session{
		LearnerID:  learnerID,
		Engine:     engine,
		Daily:      progress.NewDailyTime(),
		flushEvery: r.flushEvery,
		now:        r.now,
	}
	s.touch(r.now())
	r.sessions[learnerID] = s
	monitoring.ActiveSessions.Set(float64(len(r.sessions)))

	logger.Log.Debug("Learner session opened", zap.String("learnerID", learnerID))
	return s, nil
}

// SetOptions 更新进度规则，已打开的会话同时生效
func (r *SessionRegistry) SetOptions(opts progress.Options) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opts = opts
	for _, s := range r.sessions {
		s.Engine.SetOptions(opts)
	}
}

func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// EvictIdle 回收超过 maxIdle 未访问且没有在计时的会话，返回回收数量
func (r *SessionRegistry) EvictIdle(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	var evicted []*Session
	for id, s := range r.sessions {
		if s.idleSince().After(cutoff) || s.timerRunning() {
			continue
		}
		delete(r.sessions, id)
		evicted = append(evicted, s)
	}
	monitoring.ActiveSessions.Set(float64(len(r.sessions)))
	r.mu.Unlock()

	for _, s := range evicted {
		s.StopTimer()
	}
	if len(evicted) > 0 {
		logger.Log.Info("Evicted idle learner sessions", zap.Int("count", len(evicted)))
	}
	return len(evicted)
}

// Close 停止所有计时器，剩余时长写回进度
func (r *SessionRegistry) Close() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.StopTimer()
	}
}
