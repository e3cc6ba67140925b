package qrcode

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/fuelguard-dz/fuelguard/internal/models"
)

const defaultSweepInterval = time.Hour

// Sweeper periodically deactivates expired QR registry rows so stale codes
// fail validation with a clear expiry message instead of lingering active.
type Sweeper struct {
	db       *gorm.DB
	interval time.Duration
}

func NewSweeper(db *gorm.DB) *Sweeper {
	if db == nil {
		return nil
	}
	return &Sweeper{db: db, interval: defaultSweepInterval}
}

// Start launches the sweep loop in a background goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	if s == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go s.run(ctx)
	log.Infof("qr expiry sweeper started (interval=%s)", s.interval)
}

func (s *Sweeper) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		s.sweepOnce(ctx)
		timer := time.NewTimer(s.interval)
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

func (s *Sweeper) sweepOnce(ctx context.Context) {
	res := s.db.WithContext(ctx).Model(&models.QRCode{}).
		Where("expires_at < ? AND is_active = ?", time.Now(), true).
		Update("is_active", false)
	if res.Error != nil {
		log.WithError(res.Error).Warn("qr expiry sweeper: deactivate failed")
		return
	}
	if res.RowsAffected > 0 {
		log.Infof("qr expiry sweeper: deactivated %d expired codes", res.RowsAffected)
	}
}
