package db

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/pushchain/ecu-vault/gateway/config"
	"github.com/pushchain/ecu-vault/gateway/store"
)

// DeleteFinishedRequests removes delivered and failed decryption requests whose last update
// is older than retention. Pending requests are never removed.
func (d *DB) DeleteFinishedRequests(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	res := d.client.Unscoped().
		Where("status IN ? AND updated_at < ?", []string{store.RequestStatusDelivered, store.RequestStatusFailed}, cutoff).
		Delete(&store.DecryptionRequest{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "failed to delete finished requests")
	}
	return res.RowsAffected, nil
}

// RequestCleaner handles periodic cleanup of finished decryption requests
type RequestCleaner struct {
	database        *DB
	ticker          *time.Ticker
	logger          zerolog.Logger
	stopCh          chan struct{}
	stopOnce        sync.Once
	cleanupInterval time.Duration
	retentionPeriod time.Duration
}

// NewRequestCleaner creates a new request cleaner
func NewRequestCleaner(database *DB, cfg *config.Config, logger zerolog.Logger) *RequestCleaner {
	interval, retention := cfg.CleanupSettings()
	return &RequestCleaner{
		database:        database,
		cleanupInterval: interval,
		retentionPeriod: retention,
		logger:          logger.With().Str("component", "request_cleaner").Logger(),
		stopCh:          make(chan struct{}),
	}
}

// Start begins the periodic cleanup process
func (rc *RequestCleaner) Start(ctx context.Context) error {
	rc.logger.Info().
		Dur("cleanup_interval", rc.cleanupInterval).
		Dur("retention_period", rc.retentionPeriod).
		Msg("starting request cleaner")

	// Don't fail startup on cleanup error, just log it
	if err := rc.performCleanup(); err != nil {
		rc.logger.Error().Err(err).Msg("failed to perform initial cleanup")
	}

	rc.ticker = time.NewTicker(rc.cleanupInterval)

	go func() {
		defer rc.ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				rc.logger.Info().Msg("context cancelled, stopping request cleaner")
				return
			case <-rc.stopCh:
				rc.logger.Info().Msg("stop signal received, stopping request cleaner")
				return
			case <-rc.ticker.C:
				if err := rc.performCleanup(); err != nil {
					rc.logger.Error().Err(err).Msg("failed to perform scheduled cleanup")
				}
			}
		}
	}()

	return nil
}

// Stop gracefully stops the request cleaner. It is safe to call more than once.
func (rc *RequestCleaner) Stop() {
	rc.stopOnce.Do(func() {
		rc.logger.Info().Msg("stopping request cleaner")
		close(rc.stopCh)
	})
}

func (rc *RequestCleaner) performCleanup() error {
	start := time.Now()

	deleted, err := rc.database.DeleteFinishedRequests(rc.retentionPeriod)
	if err != nil {
		return err
	}

	if deleted == 0 {
		rc.logger.Debug().Dur("duration", time.Since(start)).Msg("request cleanup completed - nothing to delete")
		return nil
	}

	// Use PRAGMA wal_checkpoint(TRUNCATE) to keep the WAL from growing
	if err := rc.database.Checkpoint(); err != nil {
		rc.logger.Warn().Err(err).Msg("failed to checkpoint WAL")
	}

	rc.logger.Info().
		Int64("deleted_count", deleted).
		Dur("duration", time.Since(start)).
		Msg("request cleanup completed")
	return nil
}
