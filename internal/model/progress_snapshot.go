package model

import "time"

// ProgressSnapshot 学习者完整进度的序列化快照（MySQL 存储）
type ProgressSnapshot struct {
	LearnerID string    `gorm:"primaryKey;size:64"`
	Data      []byte    `gorm:"type:longblob;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (ProgressSnapshot) TableName() string {
	return "progress_snapshots"
}

// ProgressDocument 学习者进度快照（MongoDB 存储）
type ProgressDocument struct {
	LearnerID string    `bson:"_id"`
	Data      string    `bson:"data"`
	UpdatedAt time.Time `bson:"updatedAt"`
}
