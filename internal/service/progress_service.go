package service

import (
	"context"
	"edu_progress_backend/internal/event"
	"edu_progress_backend/internal/model"
	"edu_progress_backend/internal/progress"
	"edu_progress_backend/internal/timer"
	"edu_progress_backend/pkg/logger"
	"edu_progress_backend/pkg/monitoring"
	"edu_progress_backend/pkg/tracing"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// DailyTimeSummary 当天阅读时长
type DailyTimeSummary struct {
	Date    string `json:"date"`
	Seconds int    `json:"seconds"`
}

type ProgressService struct {
	sessions  *SessionRegistry
	publisher event.Publisher
	now       func() time.Time
}

func NewProgressService(sessions *SessionRegistry, publisher event.Publisher) *ProgressService {
	if publisher == nil {
		publisher = event.NewMockPublisher()
	}
	return &ProgressService{
		sessions:  sessions,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, progress.ErrPersist):
		return "unpersisted"
	default:
		return "rejected"
	}
}

func (s *ProgressService) GetChapterProgress(ctx context.Context, learnerID, subjectID, chapterID string) (model.ChapterProgress, error) {
	sess, err := s.sessions.Session(ctx, learnerID)
	if err != nil {
		return model.ChapterProgress{}, err
	}
	return sess.Engine.GetChapterProgress(subjectID, chapterID), nil
}

// UpdateChapterProgress 直接合并字段，不做解锁检查。
// 返回 ErrPersist 时内存中的更新已经生效。
func (s *ProgressService) UpdateChapterProgress(ctx context.Context, learnerID, subjectID, chapterID string, upd model.ChapterUpdate) (model.ChapterProgress, error) {
	ctx, span := tracing.Start(ctx, "progress.UpdateChapterProgress")
	defer span.End()

	sess, err := s.sessions.Session(ctx, learnerID)
	if err != nil {
		span.RecordError(err)
		return model.ChapterProgress{}, err
	}

	tr, err := sess.Engine.Merge(ctx, subjectID, chapterID, upd)
	monitoring.IntentCounter.WithLabelValues("update", outcome(err)).Inc()
	s.afterTransition(ctx, sess, subjectID, chapterID, tr, err)
	return tr.After, err
}

// Apply 对未锁定的章节应用更新意图
func (s *ProgressService) Apply(ctx context.Context, learnerID, subjectID, chapterID string, intent progress.Intent) (model.ChapterProgress, error) {
	ctx, span := tracing.Start(ctx, "progress.Apply")
	defer span.End()
	span.SetAttributes(
		attribute.String("intent", intent.Name()),
		attribute.String("subject_id", subjectID),
		attribute.String("chapter_id", chapterID),
	)

	sess, err := s.sessions.Session(ctx, learnerID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.ChapterProgress{}, err
	}

	if !sess.Engine.IsChapterUnlocked(subjectID, chapterID) {
		monitoring.IntentCounter.WithLabelValues(intent.Name(), "locked").Inc()
		return sess.Engine.GetChapterProgress(subjectID, chapterID), progress.ErrChapterLocked
	}

	tr, err := sess.Engine.Apply(ctx, subjectID, chapterID, intent)
	monitoring.IntentCounter.WithLabelValues(intent.Name(), outcome(err)).Inc()
	if err != nil && !errors.Is(err, progress.ErrPersist) {
		return tr.After, err
	}
	s.afterTransition(ctx, sess, subjectID, chapterID, tr, err)
	return tr.After, err
}

// afterTransition 记录指标并发布状态迁移事件。持久化失败时依然发布，内存状态已经迁移
func (s *ProgressService) afterTransition(ctx context.Context, sess *Session, subjectID, chapterID string, tr progress.Transition, err error) {
	if errors.Is(err, progress.ErrPersist) {
		monitoring.PersistFailures.Inc()
	} else if err != nil {
		return
	}

	if !tr.Before.Completed && tr.After.Completed {
		monitoring.ChaptersCompleted.Inc()
		s.publish(ctx, &model.ProgressEvent{
			EventType: model.EventChapterCompleted,
			LearnerID: sess.LearnerID,
			SubjectID: subjectID,
			ChapterID: chapterID,
			Score:     tr.After.TestScore,
		})
	}

	passing := sess.Engine.Options().PassingScore
	if !tr.Before.Passed(passing) && tr.After.Passed(passing) {
		s.publish(ctx, &model.ProgressEvent{
			EventType: model.EventTestPassed,
			LearnerID: sess.LearnerID,
			SubjectID: subjectID,
			ChapterID: chapterID,
			Score:     tr.After.TestScore,
		})
	}
}

func (s *ProgressService) publish(ctx context.Context, evt *model.ProgressEvent) {
	evt.EventID = uuid.NewString()
	evt.OccurredAt = s.now()

	// 请求结束不应中断事件发布
	if err := s.publisher.PublishProgressEvent(context.WithoutCancel(ctx), evt); err != nil {
		logger.Log.Error("Failed to publish progress event",
			zap.String("eventType", string(evt.EventType)),
			zap.String("learnerID", evt.LearnerID),
			zap.Error(err))
	}
}

func (s *ProgressService) IsChapterUnlocked(ctx context.Context, learnerID, subjectID, chapterID string) (bool, error) {
	sess, err := s.sessions.Session(ctx, learnerID)
	if err != nil {
		return false, err
	}
	return sess.Engine.IsChapterUnlocked(subjectID, chapterID), nil
}

func (s *ProgressService) GetCompletedChapters(ctx context.Context, learnerID, subjectID string) ([]string, error) {
	sess, err := s.sessions.Session(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.GetCompletedChapters(subjectID), nil
}

func (s *ProgressService) GetSubjectProgress(ctx context.Context, learnerID, subjectID string) (model.SubjectProgress, error) {
	sess, err := s.sessions.Session(ctx, learnerID)
	if err != nil {
		return model.SubjectProgress{}, err
	}
	return sess.Engine.GetSubjectProgress(subjectID), nil
}

func (s *ProgressService) GetOverallProgress(ctx context.Context, learnerID string) (int, error) {
	sess, err := s.sessions.Session(ctx, learnerID)
	if err != nil {
		return 0, err
	}
	return sess.Engine.GetOverallProgress(), nil
}

func (s *ProgressService) DailyTime(ctx context.Context, learnerID string) (DailyTimeSummary, error) {
	sess, err := s.sessions.Session(ctx, learnerID)
	if err != nil {
		return DailyTimeSummary{}, err
	}
	seconds, date := sess.Daily.Seconds()
	return DailyTimeSummary{Date: date, Seconds: seconds}, nil
}

// SetReadingTimer 切换阅读计时模式。锁定的章节不能开始计时
func (s *ProgressService) SetReadingTimer(ctx context.Context, learnerID, subjectID, chapterID string, mode timer.Mode, visible *bool) (TimerState, error) {
	sess, err := s.sessions.Session(ctx, learnerID)
	if err != nil {
		return TimerState{}, err
	}
	if mode != timer.ModeIdle && !sess.Engine.IsChapterUnlocked(subjectID, chapterID) {
		return TimerState{}, progress.ErrChapterLocked
	}
	return sess.SetTimer(subjectID, chapterID, mode, visible), nil
}

// ResetProgress 清空进度。先停止计时，避免残余时长写回已清空的进度
func (s *ProgressService) ResetProgress(ctx context.Context, learnerID string) error {
	ctx, span := tracing.Start(ctx, "progress.ResetProgress")
	defer span.End()

	sess, err := s.sessions.Session(ctx, learnerID)
	if err != nil {
		return err
	}
	sess.StopTimer()

	err = sess.Engine.ResetProgress(ctx)
	monitoring.IntentCounter.WithLabelValues("reset", outcome(err)).Inc()
	if errors.Is(err, progress.ErrPersist) {
		monitoring.PersistFailures.Inc()
	} else if err != nil {
		return err
	}

	s.publish(ctx, &model.ProgressEvent{
		EventType: model.EventProgressReset,
		LearnerID: learnerID,
	})
	return err
}
