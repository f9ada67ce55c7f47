package webhook

import (
	"context"
	"time"

	"github.com/caiqy/prizewheel/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultRetentionInterval = 6 * time.Hour
	defaultDeleteBatchSize   = 5000
	maxDeleteBatchesPerRun   = 2000
)

// RetentionCleaner periodically deletes old rows from the webhook_events table.
type RetentionCleaner struct {
	db        *gorm.DB
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

func NewRetentionCleaner(db *gorm.DB) *RetentionCleaner {
	if db == nil {
		return nil
	}
	return &RetentionCleaner{
		db:        db,
		interval:  defaultRetentionInterval,
		batchSize: defaultDeleteBatchSize,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start launches the cleanup loop in a background goroutine.
func (c *RetentionCleaner) Start(ctx context.Context) {
	if c == nil {
		return
	}
	go c.run(ctx)
	log.Infof("webhook events retention cleaner started (interval=%s)", c.interval)
}

func (c *RetentionCleaner) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.cleanupOnce(ctx)
		timer := time.NewTimer(c.interval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

func (c *RetentionCleaner) cleanupOnce(ctx context.Context) int64 {
	retentionDays := settings.Int(settings.WebhookEventsRetentionDaysKey, settings.DefaultWebhookEventsRetentionDays)
	if retentionDays <= 0 {
		return 0
	}
	cutoff := c.now().AddDate(0, 0, -retentionDays)

	deletedTotal := int64(0)
	for i := 0; i < maxDeleteBatchesPerRun; i++ {
		if ctx.Err() != nil {
			break
		}
		n, err := c.deleteBatch(ctx, cutoff)
		if err != nil {
			log.WithError(err).Warn("webhook events retention cleaner: delete batch failed")
			break
		}
		if n <= 0 {
			break
		}
		deletedTotal += n
	}

	if deletedTotal > 0 {
		log.Infof("webhook events retention cleaner: deleted %d rows (cutoff=%s retention_days=%d)", deletedTotal, cutoff.Format(time.RFC3339), retentionDays)
	}
	return deletedTotal
}

func (c *RetentionCleaner) deleteBatch(ctx context.Context, cutoff time.Time) (int64, error) {
	limit := c.batchSize
	if limit <= 0 {
		limit = defaultDeleteBatchSize
	}
	// Bounded subquery keeps each delete short.
	res := c.db.WithContext(ctx).Exec(`
		DELETE FROM webhook_events
		WHERE id IN (
			SELECT id FROM webhook_events
			WHERE created_at < ?
			ORDER BY created_at ASC
			LIMIT ?
		)
	`, cutoff, limit)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
