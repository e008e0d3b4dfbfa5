package progress

import (
	"edu_progress_backend/internal/model"
)

// Intent 进度更新意图。每种意图有自己的 reducer，
// 嵌套 map 的合并规则统一在这里处理。
type Intent interface {
	Name() string
	apply(opts Options, p *model.ChapterProgress) error
}

// PageAdvanced 阅读到某一页
type PageAdvanced struct {
	Page int
}

// QuizCompleted 完成章内小测
type QuizCompleted struct {
	Page  int
	Score int
}

// TestStarted 开始一次章末测试
type TestStarted struct{}

// TestCompleted 提交章末测试成绩
type TestCompleted struct {
	Score int
}

// TimeAccumulated 累加阅读时长（秒）
type TimeAccumulated struct {
	Seconds int
}

func (PageAdvanced) Name() string    { return "page_advanced" }
func (QuizCompleted) Name() string   { return "quiz_completed" }
func (TestStarted) Name() string     { return "test_started" }
func (TestCompleted) Name() string   { return "test_completed" }
func (TimeAccumulated) Name() string { return "time_accumulated" }

func (i PageAdvanced) apply(opts Options, p *model.ChapterProgress) error {
	if i.Page < 1 {
		return ErrInvalidPage
	}

	target := i.Page
	if target > p.TotalPages {
		target = p.TotalPages
	}
	if opts.QuizGate {
		if gate, ok := pendingQuiz(opts, p); ok && target > gate {
			return ErrQuizRequired
		}
	}

	if target > p.CurrentPage {
		p.CurrentPage = target
	}
	completeIfDone(p)
	return nil
}

func (i QuizCompleted) apply(opts Options, p *model.ChapterProgress) error {
	if err := validScore(i.Score); err != nil {
		return err
	}
	if !isQuizPage(opts, i.Page, p.TotalPages) {
		return ErrInvalidQuizPage
	}

	p.QuizScores[i.Page] = i.Score
	if i.Score >= opts.QuizPassingScore {
		p.CompletedQuizzes[i.Page] = true
	}
	return nil
}

func (TestStarted) apply(opts Options, p *model.ChapterProgress) error {
	if opts.MaxTestAttempts > 0 && !p.TestCompleted && p.TestAttempts >= opts.MaxTestAttempts {
		return ErrAttemptsExhausted
	}
	p.TestAttempts++
	return nil
}

func (i TestCompleted) apply(opts Options, p *model.ChapterProgress) error {
	if err := validScore(i.Score); err != nil {
		return err
	}

	best := i.Score
	if p.TestScore != nil && *p.TestScore > best {
		best = *p.TestScore
	}
	p.TestScore = &best

	if i.Score >= opts.PassingScore {
		p.TestCompleted = true
	}
	completeIfDone(p)
	return nil
}

func (i TimeAccumulated) apply(_ Options, p *model.ChapterProgress) error {
	if i.Seconds < 0 {
		return ErrInvalidDuration
	}
	p.TimeSpent += i.Seconds
	return nil
}

func completeIfDone(p *model.ChapterProgress) {
	if p.TestCompleted && p.CurrentPage >= p.TotalPages {
		p.Completed = true
	}
}

func validScore(score int) error {
	if score < 0 || score > 100 {
		return ErrInvalidScore
	}
	return nil
}

// isQuizPage 小测只出现在 interval 的正整数倍页，且不在最后一页
func isQuizPage(opts Options, page, totalPages int) bool {
	return page > 0 && page%opts.QuizInterval == 0 && page < totalPages
}

// pendingQuiz 返回第一个还没通过的小测所在页
func pendingQuiz(opts Options, p *model.ChapterProgress) (int, bool) {
	for page := opts.QuizInterval; page < p.TotalPages; page += opts.QuizInterval {
		if !p.CompletedQuizzes[page] {
			return page, true
		}
	}
	return 0, false
}
