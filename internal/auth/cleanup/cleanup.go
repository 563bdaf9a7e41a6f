package cleanup

import (
	"context"
	"time"

	"github.com/useraccounts/backend/internal/common/constants"
	"github.com/useraccounts/backend/internal/common/logger"
	"github.com/useraccounts/backend/internal/observability/metrics"
)

// ExpiredDeleter removes rows whose expiry has passed and reports how many
// were deleted.
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// StartSweep prunes expired rows from one store on a fixed interval until
// the context is cancelled. Verification paths never delete rows themselves,
// so this sweep is the only thing keeping the tables from growing without
// bound. A non-positive interval falls back to the default.
func StartSweep(ctx context.Context, store ExpiredDeleter, storeName string, interval time.Duration, log *logger.Logger) {
	if interval <= 0 {
		interval = constants.TokenCleanupInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := store.DeleteExpired(ctx)
				if err != nil {
					log.WithFields(ctx, logger.Fields{
						"store": storeName,
					}).Errorf("failed to delete expired tokens: %v", err)
					continue
				}
				if deleted > 0 {
					metrics.TokensCleanupDeleted.WithLabelValues(storeName).Add(float64(deleted))
					log.WithFields(ctx, logger.Fields{
						"store":   storeName,
						"deleted": deleted,
					}).Info("expired tokens removed")
				}
			}
		}
	}()
}
