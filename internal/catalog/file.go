package catalog

import (
	"edu_progress_backend/internal/model"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type fileCatalog struct {
	Subjects []model.Subject `yaml:"subjects"`
}

// LoadFile 从 YAML 文件加载目录
func LoadFile(path string) (*Static, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	subjects, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return NewStatic(subjects...), nil
}

// Parse 解析 YAML 目录。未填写的学期和页数按约定补全
func Parse(raw []byte) ([]model.Subject, error) {
	var fc fileCatalog
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(fc.Subjects))
	for i := range fc.Subjects {
		subject := &fc.Subjects[i]
		if subject.ID == "" {
			return nil, fmt.Errorf("subject #%d has no id", i+1)
		}
		if seen[subject.ID] {
			return nil, fmt.Errorf("duplicate subject %q", subject.ID)
		}
		seen[subject.ID] = true

		ordinals := make(map[int]bool, len(subject.Chapters))
		for j := range subject.Chapters {
			ch := &subject.Chapters[j]
			if ch.ID == "" {
				return nil, fmt.Errorf("subject %q chapter #%d has no id", subject.ID, j+1)
			}
			if ch.Ordinal == 0 {
				ch.Ordinal = j + 1
			}
			if ordinals[ch.Ordinal] {
				return nil, fmt.Errorf("subject %q has duplicate ordinal %d", subject.ID, ch.Ordinal)
			}
			ordinals[ch.Ordinal] = true
			if ch.Semester == 0 {
				ch.Semester = SemesterOf(ch.Ordinal, DefaultChaptersPerSemester)
			}
			if ch.TotalPages == 0 {
				ch.TotalPages = DefaultTotalPages
			}
			ch.SubjectID = subject.ID
		}
	}

	return fc.Subjects, nil
}
