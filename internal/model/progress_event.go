package model

import "time"

type ProgressEventType string

const (
	EventChapterCompleted ProgressEventType = "progress.chapter.completed"
	EventTestPassed       ProgressEventType = "progress.test.passed"
	EventProgressReset    ProgressEventType = "progress.reset"
)

// ProgressEvent 进度状态迁移时对外发布的事件
type ProgressEvent struct {
	EventID    string            `json:"eventId"`
	EventType  ProgressEventType `json:"eventType"`
	LearnerID  string            `json:"learnerId"`
	SubjectID  string            `json:"subjectId,omitempty"`
	ChapterID  string            `json:"chapterId,omitempty"`
	Score      *int              `json:"score,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}
