package app

import (
	"context"
	"time"

	"betalift_service/internal/notification/repository"
	"betalift_service/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultRetentionDays 通知保留天數預設值
const DefaultRetentionDays = 30

// Sweeper 定期清掉過期通知
type Sweeper struct {
	notifyRepo    repository.NotificationRepository
	retentionDays int
	cron          *cron.Cron
}

// NewSweeper create Sweeper
func NewSweeper(notifyRepo repository.NotificationRepository, retentionDays int) *Sweeper {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &Sweeper{
		notifyRepo:    notifyRepo,
		retentionDays: retentionDays,
		cron:          cron.New(),
	}
}

// Start 立即掃一次, 之後每 24 小時掃一次
func (s *Sweeper) Start(ctx context.Context) error {
	s.SweepOnce(ctx)

	if _, err := s.cron.AddFunc("@every 24h", func() {
		s.SweepOnce(ctx)
	}); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop stop cron
func (s *Sweeper) Stop() {
	s.cron.Stop()
}

// SweepOnce 刪除超過保留天數的通知
func (s *Sweeper) SweepOnce(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays).Unix()
	deleted, err := s.notifyRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		logger.Log.Error("notification sweep err", zap.Error(err))
		return
	}
	logger.Log.Info("notification sweep done", zap.Int64("deleted", deleted))
}
