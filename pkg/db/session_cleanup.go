package db

import (
	"context"
	"time"

	"github.com/smith3v/sprachninja/pkg/logger"
	"gorm.io/gorm"
)

const SessionCleanupInterval = time.Hour

// CleanupExpiredSessions removes practice sessions whose expiry is at or
// before now and reports how many rows were deleted.
func CleanupExpiredSessions(ctx context.Context, gdb *gorm.DB, now time.Time) (int64, error) {
	if gdb == nil {
		return 0, nil
	}
	res := gdb.WithContext(ctx).Where("expires_at <= ?", now).Delete(&PracticeSession{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// StartSessionCleanup runs CleanupExpiredSessions every interval until ctx
// is done.
func StartSessionCleanup(ctx context.Context, gdb *gorm.DB, interval time.Duration) error {
	if interval <= 0 {
		interval = SessionCleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			deleted, err := CleanupExpiredSessions(ctx, gdb, time.Now().UTC())
			if err != nil {
				logger.Error("failed to cleanup expired sessions", "error", err)
				continue
			}
			if deleted > 0 {
				logger.Debug("expired practice sessions removed", "count", deleted)
			}
		}
	}
}
