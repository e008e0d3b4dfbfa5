// Package catalog 提供只读的章节目录：学科、章节序号、学期与页数。
package catalog

import (
	"edu_progress_backend/internal/model"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	DefaultChaptersPerSubject  = 10
	DefaultChaptersPerSemester = 5
	DefaultTotalPages          = 20

	conventionalPrefix = "chapter-"
)

// Catalog 进度引擎依赖的目录接口
type Catalog interface {
	Subjects() []model.Subject
	Chapters(subjectID string) []model.Chapter
	Chapter(subjectID, chapterID string) (model.Chapter, bool)
	ChapterByOrdinal(subjectID string, ordinal int) (model.Chapter, bool)
}

// Static 内存目录，构建后不可变，可并发读取
type Static struct {
	subjects  []model.Subject
	byID      map[string]map[string]model.Chapter
	byOrdinal map[string]map[int]model.Chapter
}

func NewStatic(subjects ...model.Subject) *Static {
	s := &Static{
		byID:      make(map[string]map[string]model.Chapter),
		byOrdinal: make(map[string]map[int]model.Chapter),
	}

	for _, subject := range subjects {
		chapters := make([]model.Chapter, len(subject.Chapters))
		copy(chapters, subject.Chapters)
		sort.SliceStable(chapters, func(i, j int) bool {
			return chapters[i].Ordinal < chapters[j].Ordinal
		})

		ids := make(map[string]model.Chapter, len(chapters))
		ordinals := make(map[int]model.Chapter, len(chapters))
		for i := range chapters {
			chapters[i].SubjectID = subject.ID
			ids[chapters[i].ID] = chapters[i]
			ordinals[chapters[i].Ordinal] = chapters[i]
		}

		subject.Chapters = chapters
		s.subjects = append(s.subjects, subject)
		s.byID[subject.ID] = ids
		s.byOrdinal[subject.ID] = ordinals
	}

	return s
}

// Default 按约定布局生成目录：每个学科 10 章，前 5 章为第一学期
func Default(subjectIDs []string, totalPages int) *Static {
	if totalPages <= 0 {
		totalPages = DefaultTotalPages
	}

	subjects := make([]model.Subject, 0, len(subjectIDs))
	for i, id := range subjectIDs {
		subject := model.Subject{ID: id, Title: id, Order: i + 1}
		for n := 1; n <= DefaultChaptersPerSubject; n++ {
			subject.Chapters = append(subject.Chapters, model.Chapter{
				ID:         ConventionalID(n),
				Title:      fmt.Sprintf("Chapter %d", n),
				Ordinal:    n,
				Semester:   SemesterOf(n, DefaultChaptersPerSemester),
				TotalPages: totalPages,
			})
		}
		subjects = append(subjects, subject)
	}

	return NewStatic(subjects...)
}

func (s *Static) Subjects() []model.Subject {
	out := make([]model.Subject, len(s.subjects))
	copy(out, s.subjects)
	return out
}

func (s *Static) Chapters(subjectID string) []model.Chapter {
	for _, subject := range s.subjects {
		if subject.ID == subjectID {
			out := make([]model.Chapter, len(subject.Chapters))
			copy(out, subject.Chapters)
			return out
		}
	}
	return nil
}

func (s *Static) Chapter(subjectID, chapterID string) (model.Chapter, bool) {
	ch, ok := s.byID[subjectID][chapterID]
	return ch, ok
}

func (s *Static) ChapterByOrdinal(subjectID string, ordinal int) (model.Chapter, bool) {
	ch, ok := s.byOrdinal[subjectID][ordinal]
	return ch, ok
}

// ParseOrdinal 解析约定格式 "chapter-N" 的章节序号，格式不符返回 false
func ParseOrdinal(chapterID string) (int, bool) {
	rest, ok := strings.CutPrefix(chapterID, conventionalPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func ConventionalID(ordinal int) string {
	return conventionalPrefix + strconv.Itoa(ordinal)
}

// SemesterOf 由章节序号推算学期
func SemesterOf(ordinal, perSemester int) int {
	if perSemester <= 0 {
		perSemester = DefaultChaptersPerSemester
	}
	return (ordinal-1)/perSemester + 1
}
