package services

import (
	"context"
	"sync"
	"time"

	"github.com/carematch/carematch/internal/logger"
)

// LaunchExpiryWorker periodically closes confirmation windows whose deadline passed.
// It returns when ctx is cancelled.
func LaunchExpiryWorker(ctx context.Context, wg *sync.WaitGroup, matching *Matching, interval time.Duration) {
	defer wg.Done()

	logger.Info("Expiry worker started")
	ticker := matching.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Expiry worker received shutdown signal, stopping...")
			return
		case <-ticker.C:
		}

		closed, err := matching.CloseExpiredWindows(ctx)
		if err != nil {
			logger.Errorf("Expiry worker error closing windows: %v", err)
			continue
		}
		if closed > 0 {
			logger.Infof("Expiry worker closed %d confirmation windows", closed)
		} else {
			logger.Debug("Expiry worker: no expired windows")
		}
	}
}
