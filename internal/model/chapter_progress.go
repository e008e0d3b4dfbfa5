package model

import "time"

// ChapterProgress 学习者在某个学科某一章节上的进度记录
// swagger:model ChapterProgress
type ChapterProgress struct {
	ChapterID        string       `json:"chapterId"`
	Completed        bool         `json:"completed"`
	CurrentPage      int          `json:"currentPage"`
	TotalPages       int          `json:"totalPages"`
	CompletedQuizzes map[int]bool `json:"completedQuizzes"`
	QuizScores       map[int]int  `json:"quizScores"`
	TestCompleted    bool         `json:"testCompleted"`
	TestScore        *int         `json:"testScore,omitempty"`
	TestAttempts     int          `json:"testAttempts"`
	TimeSpent        int          `json:"timeSpent"`
	LastAccessed     time.Time    `json:"lastAccessed"`
}

// Clone 深拷贝，嵌套的 map 和指针都不与原记录共享
func (p ChapterProgress) Clone() ChapterProgress {
	out := p

	out.CompletedQuizzes = make(map[int]bool, len(p.CompletedQuizzes))
	for page, done := range p.CompletedQuizzes {
		out.CompletedQuizzes[page] = done
	}

	out.QuizScores = make(map[int]int, len(p.QuizScores))
	for page, score := range p.QuizScores {
		out.QuizScores[page] = score
	}

	if p.TestScore != nil {
		score := *p.TestScore
		out.TestScore = &score
	}

	return out
}

// Passed 章节读完且章末测试达到及格线
func (p ChapterProgress) Passed(passingScore int) bool {
	return p.Completed && p.TestCompleted && p.TestScore != nil && *p.TestScore >= passingScore
}

// ChapterUpdate 对 ChapterProgress 的浅合并更新，nil 表示不修改该字段。
// 嵌套 map 整体替换，不做深合并。
type ChapterUpdate struct {
	Completed        *bool        `json:"completed,omitempty"`
	CurrentPage      *int         `json:"currentPage,omitempty"`
	TotalPages       *int         `json:"totalPages,omitempty"`
	CompletedQuizzes map[int]bool `json:"completedQuizzes,omitempty"`
	QuizScores       map[int]int  `json:"quizScores,omitempty"`
	TestCompleted    *bool        `json:"testCompleted,omitempty"`
	TestScore        *int         `json:"testScore,omitempty"`
	TestAttempts     *int         `json:"testAttempts,omitempty"`
	TimeSpent        *int         `json:"timeSpent,omitempty"`
}

// SubjectProgress 学科维度的聚合统计
type SubjectProgress struct {
	SubjectID         string `json:"subjectId"`
	TotalChapters     int    `json:"totalChapters"`
	CompletedChapters int    `json:"completedChapters"`
	AverageScore      int    `json:"averageScore"`
	TotalTimeSpent    int    `json:"totalTimeSpent"`
}
