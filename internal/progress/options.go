package progress

import "edu_progress_backend/internal/catalog"

// Options 进度规则参数
type Options struct {
	PassingScore         int  // 章末测试及格线
	QuizPassingScore     int  // 章内小测通过线
	QuizInterval         int  // 每隔多少页一次小测
	QuizGate             bool // 未通过的小测是否阻止继续翻页
	DefaultTotalPages    int
	DefaultTotalChapters int
	ChaptersPerSemester  int
	MaxTestAttempts      int // 0 表示不限次数
}

func DefaultOptions() Options {
	return Options{
		PassingScore:         80,
		QuizPassingScore:     80,
		QuizInterval:         5,
		QuizGate:             true,
		DefaultTotalPages:    catalog.DefaultTotalPages,
		DefaultTotalChapters: catalog.DefaultChaptersPerSubject,
		ChaptersPerSemester:  catalog.DefaultChaptersPerSemester,
	}
}

// withDefaults 把未设置（零值）的数值参数补成默认值
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PassingScore <= 0 {
		o.PassingScore = d.PassingScore
	}
	if o.QuizPassingScore <= 0 {
		o.QuizPassingScore = d.QuizPassingScore
	}
	if o.QuizInterval <= 0 {
		o.QuizInterval = d.QuizInterval
	}
	if o.DefaultTotalPages <= 0 {
		o.DefaultTotalPages = d.DefaultTotalPages
	}
	if o.DefaultTotalChapters <= 0 {
		o.DefaultTotalChapters = d.DefaultTotalChapters
	}
	if o.ChaptersPerSemester <= 0 {
		o.ChaptersPerSemester = d.ChaptersPerSemester
	}
	if o.MaxTestAttempts < 0 {
		o.MaxTestAttempts = 0
	}
	return o
}
