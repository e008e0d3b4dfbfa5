// Package scheduler 运行服务内的周期任务：回收闲置会话、清理限流表。
package scheduler

import (
	"edu_progress_backend/pkg/logger"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Job 一个按固定间隔执行的任务
type Job struct {
	Name  string
	Every time.Duration
	Run   func()
}

type Scheduler struct {
	scheduler *gocron.Scheduler
}

func New() *Scheduler {
	return &Scheduler{scheduler: gocron.NewScheduler(time.UTC)}
}

// Start 注册任务并以非阻塞方式启动。同一任务不会并发执行
func (s *Scheduler) Start(jobs ...Job) error {
	for _, job := range jobs {
		job := job
		_, err := s.scheduler.Every(job.Every).SingletonMode().Do(func() {
			start := time.Now()
			job.Run()
			logger.Log.Debug("Scheduled job finished",
				zap.String("job", job.Name),
				zap.Duration("took", time.Since(start)))
		})
		if err != nil {
			return err
		}
	}

	s.scheduler.StartAsync()
	logger.Log.Info("Scheduler started", zap.Int("jobs", len(jobs)))
	return nil
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}
