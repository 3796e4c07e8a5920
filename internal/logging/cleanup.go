package logging

import (
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/stockdesk-backend/internal/models"
	"gorm.io/gorm"
)

const cleanupInterval = 24 * time.Hour

// StartCleanup purges system logs past the retention window once at start
// and then daily, until done is closed.
func StartCleanup(db *gorm.DB, retentionDays int, done <-chan struct{}) {
	go func() {
		sweep := func() {
			deleted, err := PurgeLogs(db, time.Now().AddDate(0, 0, -retentionDays))
			if err != nil {
				slog.Error("log cleanup failed", "action", "purge_logs", "error", err)
				return
			}
			if deleted > 0 {
				slog.Info("log cleanup completed", "deleted", deleted, "retention_days", retentionDays)
			}
		}

		sweep()
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sweep()
			case <-done:
				return
			}
		}
	}()
}

// PurgeLogs deletes logs recorded before cutoff and reports how many went.
func PurgeLogs(db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
	return result.RowsAffected, result.Error
}
