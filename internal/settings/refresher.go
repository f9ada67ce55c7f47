package settings

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// defaultRefreshInterval is how often other instances' setting changes are picked up.
const defaultRefreshInterval = 30 * time.Second

// Refresher polls the settings table so changes written by another instance reach this one.
type Refresher struct {
	db       *gorm.DB
	interval time.Duration
}

// NewRefresher constructs a Refresher. A non-positive interval uses the default.
func NewRefresher(db *gorm.DB, interval time.Duration) *Refresher {
	if db == nil {
		return nil
	}
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	return &Refresher{db: db, interval: interval}
}

// Start launches the polling loop in a background goroutine.
func (r *Refresher) Start(ctx context.Context) {
	if r == nil {
		return
	}
	go r.run(ctx)
}

func (r *Refresher) run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refreshOnce(ctx)
		}
	}
}

func (r *Refresher) refreshOnce(ctx context.Context) bool {
	before := DBConfigUpdatedAt()
	if errRefresh := RefreshDBConfigSnapshot(ctx, r.db); errRefresh != nil {
		if ctx.Err() == nil {
			log.WithError(errRefresh).Warn("settings refresh failed")
		}
		return false
	}
	if after := DBConfigUpdatedAt(); after.After(before) {
		log.WithFields(log.Fields{
			"updated_at":    after,
			"wheel_enabled": WheelEnabled(),
		}).Info("settings changed")
	}
	return true
}
