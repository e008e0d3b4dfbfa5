// Package progress 维护单个学习者的章节进度，并据此推导章节解锁、完成情况和统计数据。
package progress

import (
	"context"
	"edu_progress_backend/internal/catalog"
	"edu_progress_backend/internal/model"
	"edu_progress_backend/pkg/logger"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Store 以学习者 ID 为键保存整份进度的序列化结果。
// Load 在没有记录时返回 nil, nil。
type Store interface {
	Load(ctx context.Context, learnerID string) ([]byte, error)
	Save(ctx context.Context, learnerID string, data []byte) error
	Delete(ctx context.Context, learnerID string) error
}

// Engine 一个学习者的进度引擎。每个会话构建一次并注入使用
type Engine struct {
	mu        sync.RWMutex
	learnerID string
	book      *Book
	store     Store
	catalog   catalog.Catalog
	opts      atomic.Pointer[Options]
	now       func() time.Time

	// unreadable 存储中的快照无法解析，重置前不覆盖它
	unreadable bool
}

func NewEngine(learnerID string, store Store, cat catalog.Catalog, opts Options) *Engine {
	if cat == nil {
		cat = catalog.NewStatic()
	}
	e := &Engine{
		learnerID: learnerID,
		book:      NewBook(),
		store:     store,
		catalog:   cat,
		now:       func() time.Time { return time.Now().UTC() },
	}
	e.SetOptions(opts)
	return e
}

// Open 创建引擎并从存储加载已有进度。存储不可用时返回错误。
// 个别记录损坏时跳过这些记录；整份快照无法解析时从空进度开始，
// 且在 ResetProgress 之前不会写回存储。
func Open(ctx context.Context, learnerID string, store Store, cat catalog.Catalog, opts Options) (*Engine, error) {
	e := NewEngine(learnerID, store, cat, opts)

	data, err := store.Load(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("load progress for %s: %w", learnerID, err)
	}
	if len(data) == 0 {
		return e, nil
	}

	book := NewBook()
	if err := book.UnmarshalJSON(data); err != nil {
		logger.Log.Error("Progress snapshot unreadable, writes disabled until reset",
			zap.String("learnerID", learnerID), zap.Error(err))
		e.unreadable = true
		return e, nil
	}
	if skipped := book.Skipped(); len(skipped) > 0 {
		logger.Log.Warn("Skipped unreadable progress records",
			zap.String("learnerID", learnerID), zap.Strings("records", skipped))
	}
	e.book = book
	return e, nil
}

func (e *Engine) LearnerID() string {
	return e.learnerID
}

func (e *Engine) Options() Options {
	return *e.opts.Load()
}

// SetOptions 替换进度规则，对之后的读写立即生效
func (e *Engine) SetOptions(opts Options) {
	o := opts.withDefaults()
	e.opts.Store(&o)
}

// GetChapterProgress 返回已保存的记录，不存在时返回默认记录（不落盘）
func (e *Engine) GetChapterProgress(subjectID, chapterID string) (p model.ChapterProgress) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error("Failed to read chapter progress",
				zap.String("learnerID", e.learnerID),
				zap.String("subjectID", subjectID),
				zap.String("chapterID", chapterID),
				zap.Any("panic", r))
			p = e.fallbackRecord(chapterID)
		}
	}()

	e.mu.RLock()
	defer e.mu.RUnlock()

	if rec := e.book.get(subjectID, chapterID); rec != nil {
		return rec.Clone()
	}
	return e.defaultRecord(subjectID, chapterID)
}

// UpdateChapterProgress 浅合并更新并立即持久化。
// 持久化失败时内存中的更新依然生效，返回包装了 ErrPersist 的错误。
func (e *Engine) UpdateChapterProgress(ctx context.Context, subjectID, chapterID string, upd model.ChapterUpdate) error {
	_, err := e.Merge(ctx, subjectID, chapterID, upd)
	return err
}

// Merge 同 UpdateChapterProgress，并返回更新前后的记录
func (e *Engine) Merge(ctx context.Context, subjectID, chapterID string, upd model.ChapterUpdate) (Transition, error) {
	return e.mutate(ctx, subjectID, chapterID, func(p *model.ChapterProgress) error {
		merge(p, upd)
		return nil
	})
}

// Transition 一次意图应用前后的记录
type Transition struct {
	Before model.ChapterProgress
	After  model.ChapterProgress
}

// Apply 通过对应的 reducer 应用一个更新意图
func (e *Engine) Apply(ctx context.Context, subjectID, chapterID string, intent Intent) (Transition, error) {
	return e.mutate(ctx, subjectID, chapterID, func(p *model.ChapterProgress) error {
		return intent.apply(e.Options(), p)
	})
}

func (e *Engine) mutate(ctx context.Context, subjectID, chapterID string, fn func(*model.ChapterProgress) error) (Transition, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var before model.ChapterProgress
	if rec := e.book.get(subjectID, chapterID); rec != nil {
		before = rec.Clone()
	} else {
		before = e.defaultRecord(subjectID, chapterID)
	}

	next := before.Clone()
	if err := fn(&next); err != nil {
		return Transition{Before: before, After: before}, err
	}
	e.normalize(&next)
	next.LastAccessed = e.now()

	stored := next.Clone()
	e.book.put(subjectID, chapterID, &stored)

	t := Transition{Before: before, After: next}
	return t, e.persistLocked(ctx)
}

func (e *Engine) persistLocked(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	if e.unreadable {
		return fmt.Errorf("%w: %w", ErrPersist, ErrSnapshotUnreadable)
	}

	data, err := e.book.MarshalJSON()
	if err == nil {
		err = e.store.Save(ctx, e.learnerID, data)
	}
	if err != nil {
		logger.Log.Error("Failed to persist learner progress",
			zap.String("learnerID", e.learnerID), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// IsChapterUnlocked 判断章节是否可以开始学习
func (e *Engine) IsChapterUnlocked(subjectID, chapterID string) (unlocked bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error("Failed to evaluate chapter lock",
				zap.String("learnerID", e.learnerID),
				zap.String("chapterID", chapterID),
				zap.Any("panic", r))
			unlocked = false
		}
	}()

	pos, ok := e.locate(subjectID, chapterID)
	if !ok {
		return false
	}
	if pos.Ordinal == 1 {
		return true
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if pos.Semester > 1 {
		for _, id := range e.earlierSemesterChapters(subjectID, pos.Semester) {
			if !e.passedLocked(subjectID, id) {
				return false
			}
		}
	}

	prevID, ok := e.chapterIDAt(subjectID, pos.Ordinal-1)
	if !ok {
		return false
	}
	return e.passedLocked(subjectID, prevID)
}

// GetCompletedChapters 按插入顺序返回已完成章节
func (e *Engine) GetCompletedChapters(subjectID string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := []string{}
	for _, rec := range e.book.chapters(subjectID) {
		if rec.Completed {
			out = append(out, rec.ChapterID)
		}
	}
	return out
}

func (e *Engine) GetSubjectProgress(subjectID string) model.SubjectProgress {
	total := len(e.catalog.Chapters(subjectID))
	if total == 0 {
		total = e.Options().DefaultTotalChapters
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	sp := model.SubjectProgress{SubjectID: subjectID, TotalChapters: total}
	scored, sum := 0, 0
	for _, rec := range e.book.chapters(subjectID) {
		if rec.Completed {
			sp.CompletedChapters++
		}
		if rec.TestCompleted && rec.TestScore != nil {
			scored++
			sum += *rec.TestScore
		}
		sp.TotalTimeSpent += rec.TimeSpent
	}
	if scored > 0 {
		sp.AverageScore = int(math.Round(float64(sum) / float64(scored)))
	}
	return sp
}

// GetOverallProgress 所有学科已完成章节占全部章节的百分比。
// 学科集合为目录中的学科加上进度中出现过的学科。
func (e *Engine) GetOverallProgress() int {
	var subjectIDs []string
	seen := map[string]bool{}
	for _, s := range e.catalog.Subjects() {
		if !seen[s.ID] {
			seen[s.ID] = true
			subjectIDs = append(subjectIDs, s.ID)
		}
	}
	e.mu.RLock()
	for _, id := range e.book.subjectIDs() {
		if !seen[id] {
			seen[id] = true
			subjectIDs = append(subjectIDs, id)
		}
	}
	e.mu.RUnlock()

	total, completed := 0, 0
	for _, id := range subjectIDs {
		sp := e.GetSubjectProgress(id)
		total += sp.TotalChapters
		completed += sp.CompletedChapters
	}
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) * 100 / float64(total)))
}

// ResetProgress 清空全部进度并删除存储中的快照
func (e *Engine) ResetProgress(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.book = NewBook()
	if e.store == nil {
		return nil
	}
	if err := e.store.Delete(ctx, e.learnerID); err != nil {
		logger.Log.Error("Failed to delete learner progress",
			zap.String("learnerID", e.learnerID), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	e.unreadable = false
	return nil
}

// Snapshot 返回与持久化格式相同的 JSON
func (e *Engine) Snapshot() ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.book.MarshalJSON()
}

func (e *Engine) defaultRecord(subjectID, chapterID string) model.ChapterProgress {
	p := e.fallbackRecord(chapterID)
	if ch, ok := e.catalog.Chapter(subjectID, chapterID); ok && ch.TotalPages > 0 {
		p.TotalPages = ch.TotalPages
	}
	return p
}

func (e *Engine) fallbackRecord(chapterID string) model.ChapterProgress {
	return model.ChapterProgress{
		ChapterID:        chapterID,
		CurrentPage:      1,
		TotalPages:       e.Options().DefaultTotalPages,
		CompletedQuizzes: map[int]bool{},
		QuizScores:       map[int]int{},
	}
}

func (e *Engine) normalize(p *model.ChapterProgress) {
	if p.TotalPages < 1 {
		p.TotalPages = e.Options().DefaultTotalPages
	}
	if p.CurrentPage < 1 {
		p.CurrentPage = 1
	}
	if p.CurrentPage > p.TotalPages {
		p.CurrentPage = p.TotalPages
	}
	if p.Completed {
		p.CurrentPage = p.TotalPages
	}
	if p.TestAttempts < 0 {
		p.TestAttempts = 0
	}
	if p.TimeSpent < 0 {
		p.TimeSpent = 0
	}

	if p.CompletedQuizzes == nil {
		p.CompletedQuizzes = map[int]bool{}
	}
	if p.QuizScores == nil {
		p.QuizScores = map[int]int{}
	}
	for page := range p.CompletedQuizzes {
		if !isQuizPage(e.Options(), page, p.TotalPages) {
			delete(p.CompletedQuizzes, page)
		}
	}
	for page := range p.QuizScores {
		if !isQuizPage(e.Options(), page, p.TotalPages) {
			delete(p.QuizScores, page)
		}
	}
}

func merge(p *model.ChapterProgress, upd model.ChapterUpdate) {
	if upd.Completed != nil {
		p.Completed = *upd.Completed
	}
	if upd.CurrentPage != nil {
		p.CurrentPage = *upd.CurrentPage
	}
	if upd.TotalPages != nil {
		p.TotalPages = *upd.TotalPages
	}
	if upd.CompletedQuizzes != nil {
		p.CompletedQuizzes = make(map[int]bool, len(upd.CompletedQuizzes))
		for page, done := range upd.CompletedQuizzes {
			p.CompletedQuizzes[page] = done
		}
	}
	if upd.QuizScores != nil {
		p.QuizScores = make(map[int]int, len(upd.QuizScores))
		for page, score := range upd.QuizScores {
			p.QuizScores[page] = score
		}
	}
	if upd.TestCompleted != nil {
		p.TestCompleted = *upd.TestCompleted
	}
	if upd.TestScore != nil {
		score := *upd.TestScore
		p.TestScore = &score
	}
	if upd.TestAttempts != nil {
		p.TestAttempts = *upd.TestAttempts
	}
	if upd.TimeSpent != nil {
		p.TimeSpent = *upd.TimeSpent
	}
}
