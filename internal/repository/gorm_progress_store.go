package repository

import (
	"context"
	"edu_progress_backend/internal/model"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProgressStore 快照存放在 progress_snapshots 表中
type GormProgressStore struct {
	DB *gorm.DB
}

func NewGormProgressStore(db *gorm.DB) *GormProgressStore {
	return &GormProgressStore{DB: db}
}

func (r *GormProgressStore) Load(ctx context.Context, learnerID string) ([]byte, error) {
	var snap model.ProgressSnapshot
	err := r.DB.WithContext(ctx).Where("learner_id = ?", learnerID).First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return snap.Data, nil
}

func (r *GormProgressStore) Save(ctx context.Context, learnerID string, data []byte) error {
	snap := model.ProgressSnapshot{LearnerID: learnerID, Data: data}
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "learner_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).
		Create(&snap).Error
}

func (r *GormProgressStore) Delete(ctx context.Context, learnerID string) error {
	return r.DB.WithContext(ctx).Where("learner_id = ?", learnerID).Delete(&model.ProgressSnapshot{}).Error
}

func (r *GormProgressStore) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
