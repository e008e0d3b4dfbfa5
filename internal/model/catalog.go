package model

import "time"

// Subject 学科，章节目录的顶层单位
// swagger:model Subject
type Subject struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id" yaml:"id"`
	Title     string    `gorm:"size:255;not null" json:"title" yaml:"title"`
	Order     int       `gorm:"default:0" json:"order" yaml:"order"`
	Chapters  []Chapter `gorm:"foreignKey:SubjectID" json:"chapters,omitempty" yaml:"chapters"`
	CreatedAt time.Time `json:"-" yaml:"-"`
	UpdatedAt time.Time `json:"-" yaml:"-"`
}

func (Subject) TableName() string {
	return "subjects"
}

// Chapter 章节。Ordinal 为学科内从 1 开始的序号，Semester 为所属学期
// swagger:model Chapter
type Chapter struct {
	ID         string    `gorm:"primaryKey;size:64" json:"id" yaml:"id"`
	SubjectID  string    `gorm:"primaryKey;size:64" json:"subjectId" yaml:"-"`
	Title      string    `gorm:"size:255" json:"title" yaml:"title"`
	Ordinal    int       `gorm:"not null" json:"ordinal" yaml:"ordinal"`
	Semester   int       `gorm:"not null;default:1" json:"semester" yaml:"semester"`
	TotalPages int       `gorm:"not null;default:20" json:"totalPages" yaml:"totalPages"`
	CreatedAt  time.Time `json:"-" yaml:"-"`
	UpdatedAt  time.Time `json:"-" yaml:"-"`
}

func (Chapter) TableName() string {
	return "chapters"
}
