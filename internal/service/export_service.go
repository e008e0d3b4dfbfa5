package service

import (
	"context"
	"edu_progress_backend/internal/util"
	"edu_progress_backend/pkg/logger"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExportResult 一次快照导出的结果
type ExportResult struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// ExportService 把学习者的进度快照上传到对象存储，内容与持久化格式一致
type ExportService struct {
	sessions *SessionRegistry
	storage  *StorageService
	now      func() time.Time
}

func NewExportService(sessions *SessionRegistry, storage *StorageService) *ExportService {
	return &ExportService{
		sessions: sessions,
		storage:  storage,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *ExportService) Export(ctx context.Context, learnerID string) (*ExportResult, error) {
	sess, err := s.sessions.Session(ctx, learnerID)
	if err != nil {
		return nil, err
	}

	data, err := sess.Engine.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("encode progress snapshot: %w", err)
	}

	key := fmt.Sprintf("exports/%s/%s.json", learnerID, uuid.NewString())
	url, err := s.storage.PutBytes(ctx, key, data, util.MimeJSON)
	if err != nil {
		return nil, fmt.Errorf("upload progress snapshot: %w", err)
	}

	logger.Log.Info("Progress snapshot exported",
		zap.String("learnerID", learnerID),
		zap.String("key", key),
		zap.Int("size", len(data)))

	return &ExportResult{
		Key:       key,
		URL:       url,
		Size:      len(data),
		CreatedAt: s.now(),
	}, nil
}
