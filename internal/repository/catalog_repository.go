package repository

import (
	"context"
	"edu_progress_backend/internal/catalog"
	"edu_progress_backend/internal/model"

	"gorm.io/gorm"
)

type CatalogRepository struct {
	DB *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{DB: db}
}

// Load 读取全部学科和章节并构建内存目录
func (r *CatalogRepository) Load() (*catalog.Static, error) {
	var subjects []model.Subject
	err := r.DB.
		Preload("Chapters", func(db *gorm.DB) *gorm.DB {
			return db.Order("ordinal ASC")
		}).
		Order("`order` ASC, id ASC").
		Find(&subjects).Error
	if err != nil {
		return nil, err
	}
	return catalog.NewStatic(subjects...), nil
}

// Seed 表为空时写入初始目录，已有数据则不做任何修改
func (r *CatalogRepository) Seed(subjects []model.Subject) (bool, error) {
	var count int64
	if err := r.DB.Model(&model.Subject{}).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 || len(subjects) == 0 {
		return false, nil
	}

	err := r.DB.Transaction(func(tx *gorm.DB) error {
		for _, s := range subjects {
			subject := s
			if err := tx.Create(&subject).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *CatalogRepository) FindChapters(subjectID string) ([]model.Chapter, error) {
	var chapters []model.Chapter
	err := r.DB.Where("subject_id = ?", subjectID).Order("ordinal ASC").Find(&chapters).Error
	return chapters, err
}

func (r *CatalogRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
