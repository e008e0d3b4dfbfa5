package progress

import "errors"

var (
	ErrPersist           = errors.New("progress not persisted")
	ErrInvalidScore      = errors.New("score must be between 0 and 100")
	ErrInvalidPage       = errors.New("page must be at least 1")
	ErrInvalidQuizPage   = errors.New("no quiz on this page")
	ErrInvalidDuration   = errors.New("time spent cannot be negative")
	ErrQuizRequired      = errors.New("pass the quiz before reading further")
	ErrAttemptsExhausted = errors.New("no test attempts left")
	ErrChapterLocked     = errors.New("chapter is locked")

	ErrSnapshotUnreadable = errors.New("stored progress is unreadable")
)
