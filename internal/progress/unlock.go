package progress

import (
	"edu_progress_backend/internal/catalog"
)

type position struct {
	Ordinal  int
	Semester int
}

// locate 确定章节序号和学期。目录收录了该学科时只认目录；
// 否则按 "chapter-N" 约定解析，解析失败视为锁定。
func (e *Engine) locate(subjectID, chapterID string) (position, bool) {
	if len(e.catalog.Chapters(subjectID)) > 0 {
		ch, ok := e.catalog.Chapter(subjectID, chapterID)
		if !ok || ch.Ordinal < 1 {
			return position{}, false
		}
		semester := ch.Semester
		if semester < 1 {
			semester = catalog.SemesterOf(ch.Ordinal, e.Options().ChaptersPerSemester)
		}
		return position{Ordinal: ch.Ordinal, Semester: semester}, true
	}

	n, ok := catalog.ParseOrdinal(chapterID)
	if !ok {
		return position{}, false
	}
	return position{Ordinal: n, Semester: catalog.SemesterOf(n, e.Options().ChaptersPerSemester)}, true
}

// earlierSemesterChapters 返回学期号小于 semester 的全部章节 ID
func (e *Engine) earlierSemesterChapters(subjectID string, semester int) []string {
	var ids []string

	chapters := e.catalog.Chapters(subjectID)
	if len(chapters) > 0 {
		for _, ch := range chapters {
			s := ch.Semester
			if s < 1 {
				s = catalog.SemesterOf(ch.Ordinal, e.Options().ChaptersPerSemester)
			}
			if s < semester {
				ids = append(ids, ch.ID)
			}
		}
		return ids
	}

	last := (semester - 1) * e.Options().ChaptersPerSemester
	for n := 1; n <= last; n++ {
		ids = append(ids, catalog.ConventionalID(n))
	}
	return ids
}

func (e *Engine) chapterIDAt(subjectID string, ordinal int) (string, bool) {
	if ordinal < 1 {
		return "", false
	}
	if len(e.catalog.Chapters(subjectID)) > 0 {
		ch, ok := e.catalog.ChapterByOrdinal(subjectID, ordinal)
		return ch.ID, ok
	}
	return catalog.ConventionalID(ordinal), true
}

func (e *Engine) passedLocked(subjectID, chapterID string) bool {
	rec := e.book.get(subjectID, chapterID)
	return rec != nil && rec.Passed(e.Options().PassingScore)
}
