package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-flight-booking/internal/pkg/logger"
)

// BookingCleaner は放置された保留予約をキャンセルするインターフェース
type BookingCleaner interface {
	CancelStalePending(ctx context.Context, olderThan time.Duration) (int, error)
}

// StaleBookingCleaner は決済が完了しないまま放置された予約を
// 定期的にキャンセルするワーカー
// 保留中の予約は座席を保持しないため、座席プールには影響しない
type StaleBookingCleaner struct {
	bookingService BookingCleaner
	interval       time.Duration
	maxAge         time.Duration
	stopCh         chan struct{}
	doneCh         chan struct{}
}

// NewStaleBookingCleaner は新しいクリーナーを作成
func NewStaleBookingCleaner(
	bs BookingCleaner,
	interval time.Duration,
	maxAge time.Duration,
) *StaleBookingCleaner {
	return &StaleBookingCleaner{
		bookingService: bs,
		interval:       interval,
		maxAge:         maxAge,
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
}

// Start はクリーナーを開始
func (c *StaleBookingCleaner) Start(ctx context.Context) {
	logger.Info("保留予約クリーナー開始",
		zap.Duration("interval", c.interval),
		zap.Duration("max_age", c.maxAge),
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	defer close(c.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("保留予約クリーナー停止（コンテキストキャンセル）")
			return
		case <-c.stopCh:
			logger.Info("保留予約クリーナー停止（シグナル受信）")
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

// Stop はクリーナーを停止
func (c *StaleBookingCleaner) Stop() {
	close(c.stopCh)
	<-c.doneCh
}

// cleanup は放置された保留予約をキャンセル
func (c *StaleBookingCleaner) cleanup(ctx context.Context) {
	log := logger.Get()
	log.Debug("保留予約のクリーンアップ開始")

	count, err := c.bookingService.CancelStalePending(ctx, c.maxAge)
	if err != nil {
		log.Error("保留予約のクリーンアップ失敗", zap.Error(err))
		return
	}

	if count > 0 {
		log.Info("放置された保留予約をキャンセル", zap.Int("count", count))
	} else {
		log.Debug("放置された保留予約なし")
	}
}
