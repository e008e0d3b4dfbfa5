package service

import (
	"context"
	"edu_progress_backend/internal/catalog"
	"edu_progress_backend/internal/event"
	"edu_progress_backend/internal/model"
	"edu_progress_backend/internal/progress"
	"edu_progress_backend/internal/repository"
	"edu_progress_backend/internal/timer"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	*repository.MemoryProgressStore
	saveErr error
}

func (s *failingStore) Save(ctx context.Context, learnerID string, data []byte) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.MemoryProgressStore.Save(ctx, learnerID, data)
}

func boolPtr(v bool) *bool { return &v }
func intPtr(v int) *int    { return &v }

func newTestService(t *testing.T) (*ProgressService, *SessionRegistry, *failingStore, *event.MockPublisher) {
	t.Helper()
	store := &failingStore{MemoryProgressStore: repository.NewMemoryProgressStore()}
	cat := catalog.Default([]string{"math", "physics"}, 10)
	registry := NewSessionRegistry(store, cat, progress.DefaultOptions(), 1)
	t.Cleanup(registry.Close)

	pub := event.NewMockPublisher()
	return NewProgressService(registry, pub), registry, store, pub
}

// readAndPass 读完一章并通过章末测试
func readAndPass(t *testing.T, svc *ProgressService, learnerID, subjectID, chapterID string, score int) model.ChapterProgress {
	t.Helper()
	ctx := context.Background()
	for page := 5; page < 10; page += 5 {
		_, err := svc.Apply(ctx, learnerID, subjectID, chapterID, progress.QuizCompleted{Page: page, Score: 100})
		require.NoError(t, err)
	}
	_, err := svc.Apply(ctx, learnerID, subjectID, chapterID, progress.PageAdvanced{Page: 10})
	require.NoError(t, err)
	_, err = svc.Apply(ctx, learnerID, subjectID, chapterID, progress.TestStarted{})
	require.NoError(t, err)
	p, err := svc.Apply(ctx, learnerID, subjectID, chapterID, progress.TestCompleted{Score: score})
	require.NoError(t, err)
	return p
}

func TestApplyPublishesTransitionEvents(t *testing.T) {
	svc, _, _, pub := newTestService(t)

	p := readAndPass(t, svc, "learner-1", "math", "chapter-1", 90)
	assert.True(t, p.Completed)
	assert.True(t, p.TestCompleted)

	events := pub.GetEvents()
	require.Len(t, events, 2)
	assert.Equal(t, model.EventChapterCompleted, events[0].EventType)
	assert.Equal(t, model.EventTestPassed, events[1].EventType)
	assert.Equal(t, "chapter-1", events[1].ChapterID)
	require.NotNil(t, events[1].Score)
	assert.Equal(t, 90, *events[1].Score)
	assert.NotEmpty(t, events[0].EventID)

	// 再次提交更高分数不会重复发布
	pub.ClearEvents()
	_, err := svc.Apply(context.Background(), "learner-1", "math", "chapter-1", progress.TestCompleted{Score: 95})
	require.NoError(t, err)
	assert.Empty(t, pub.GetEvents())
}

func TestApplyRefusesLockedChapter(t *testing.T) {
	svc, _, _, pub := newTestService(t)
	ctx := context.Background()

	_, err := svc.Apply(ctx, "learner-1", "math", "chapter-2", progress.PageAdvanced{Page: 2})
	assert.ErrorIs(t, err, progress.ErrChapterLocked)

	readAndPass(t, svc, "learner-1", "math", "chapter-1", 80)
	p, err := svc.Apply(ctx, "learner-1", "math", "chapter-2", progress.PageAdvanced{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, p.CurrentPage)

	_, err = svc.Apply(ctx, "learner-1", "math", "chapter-6", progress.PageAdvanced{Page: 2})
	assert.ErrorIs(t, err, progress.ErrChapterLocked, "semester two waits for semester one")
	assert.NotEmpty(t, pub.GetEvents())
}

func TestApplyReturnsValidationErrors(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Apply(context.Background(), "learner-1", "math", "chapter-1", progress.TestCompleted{Score: 101})
	assert.ErrorIs(t, err, progress.ErrInvalidScore)
}

func TestPersistFailureStillAppliesAndPublishes(t *testing.T) {
	svc, registry, store, pub := newTestService(t)
	ctx := context.Background()
	store.saveErr = errors.New("redis down")

	p, err := svc.UpdateChapterProgress(ctx, "learner-1", "math", "chapter-1", model.ChapterUpdate{Completed: boolPtr(true)})
	assert.ErrorIs(t, err, progress.ErrPersist)
	assert.True(t, p.Completed)

	sess, err := registry.Session(ctx, "learner-1")
	require.NoError(t, err)
	assert.True(t, sess.Engine.GetChapterProgress("math", "chapter-1").Completed)

	events := pub.GetEvents()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventChapterCompleted, events[0].EventType)
}

func TestReadQueries(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	readAndPass(t, svc, "learner-1", "math", "chapter-1", 85)

	completed, err := svc.GetCompletedChapters(ctx, "learner-1", "math")
	require.NoError(t, err)
	assert.Equal(t, []string{"chapter-1"}, completed)

	sp, err := svc.GetSubjectProgress(ctx, "learner-1", "math")
	require.NoError(t, err)
	assert.Equal(t, 10, sp.TotalChapters)
	assert.Equal(t, 1, sp.CompletedChapters)
	assert.Equal(t, 85, sp.AverageScore)

	overall, err := svc.GetOverallProgress(ctx, "learner-1")
	require.NoError(t, err)
	assert.Equal(t, 5, overall)

	unlocked, err := svc.IsChapterUnlocked(ctx, "learner-1", "math", "chapter-2")
	require.NoError(t, err)
	assert.True(t, unlocked)
}

func TestResetProgress(t *testing.T) {
	svc, registry, store, pub := newTestService(t)
	ctx := context.Background()

	readAndPass(t, svc, "learner-1", "math", "chapter-1", 85)
	pub.ClearEvents()

	require.NoError(t, svc.ResetProgress(ctx, "learner-1"))

	data, err := store.Load(ctx, "learner-1")
	require.NoError(t, err)
	assert.Nil(t, data)

	sess, err := registry.Session(ctx, "learner-1")
	require.NoError(t, err)
	assert.Empty(t, sess.Engine.GetCompletedChapters("math"))

	events := pub.GetEvents()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventProgressReset, events[0].EventType)
}

func TestReadingTimerAccumulatesTime(t *testing.T) {
	svc, registry, _, _ := newTestService(t)
	ctx := context.Background()

	state, err := svc.SetReadingTimer(ctx, "learner-1", "math", "chapter-1", timer.ModeQuiz, nil)
	require.NoError(t, err)
	assert.True(t, state.Running)
	assert.Equal(t, "quiz", state.Mode)

	sess, err := registry.Session(ctx, "learner-1")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return sess.Engine.GetChapterProgress("math", "chapter-1").TimeSpent >= 1
	}, 3*time.Second, 50*time.Millisecond)

	state, err = svc.SetReadingTimer(ctx, "learner-1", "math", "chapter-1", timer.ModeReading, boolPtr(false))
	require.NoError(t, err)
	assert.False(t, state.Running, "hidden page pauses reading")

	daily, err := svc.DailyTime(ctx, "learner-1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, daily.Seconds, 1)
	assert.Equal(t, time.Now().Format("2006-01-02"), daily.Date)
}

func TestReadingTimerRefusesLockedChapter(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.SetReadingTimer(context.Background(), "learner-1", "math", "chapter-3", timer.ModeReading, nil)
	assert.ErrorIs(t, err, progress.ErrChapterLocked)

	// 停止计时不检查解锁
	state, err := svc.SetReadingTimer(context.Background(), "learner-1", "math", "chapter-3", timer.ModeIdle, nil)
	require.NoError(t, err)
	assert.False(t, state.Running)
}
