package relayer

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/pushchain/ecu-vault/gateway/config"
	"github.com/pushchain/ecu-vault/gateway/db"
	gwerrors "github.com/pushchain/ecu-vault/gateway/errors"
	"github.com/pushchain/ecu-vault/gateway/fhe"
	"github.com/pushchain/ecu-vault/gateway/metrics"
	"github.com/pushchain/ecu-vault/gateway/store"
	"github.com/pushchain/ecu-vault/x/ecuvault/types"
)

const component = "relayer"

// Decrypter reveals the value behind a handle.
type Decrypter interface {
	Decrypt(ctx context.Context, handle types.Handle) (fhe.Plaintext, error)
}

// Signer produces and checks decryption proofs.
type Signer interface {
	Sign(requestID uint64, cleartexts []byte) ([]byte, error)
	Verify(requestID uint64, cleartexts, proof []byte) error
}

// Ledger receives decryption results.
type Ledger interface {
	DeliverDecryption(ctx context.Context, requestID uint64, cleartexts, proof []byte) error
	DeliverAggregateDecryption(ctx context.Context, requestID uint64, cleartexts, proof []byte) error
}

// Relayer is the decryption oracle. Requests are persisted on arrival and delivered to the
// ledger asynchronously by a polling loop.
type Relayer struct {
	database  *db.DB
	decrypter Decrypter
	signer    Signer
	metrics   *metrics.Metrics
	logger    zerolog.Logger

	pollInterval time.Duration
	batchSize    int
	retry        *gwerrors.RetryConfig

	mu     sync.RWMutex
	ledger Ledger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

var _ types.DecryptionOracle = (*Relayer)(nil)

// New creates a relayer. Bind must be called before Start.
func New(
	database *db.DB,
	decrypter Decrypter,
	signer Signer,
	cfg *config.Config,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Relayer {
	retry := gwerrors.DefaultRetryConfig()
	retry.MaxAttempts = max(cfg.MaxRetries, 1)
	if cfg.RetryBackoffSeconds > 0 {
		retry.InitialDelay = cfg.RetryBackoff()
	}

	batchSize := cfg.RelayerBatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	pollInterval := cfg.RelayerPollInterval()
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	return &Relayer{
		database:     database,
		decrypter:    decrypter,
		signer:       signer,
		metrics:      m,
		logger:       logger.With().Str("component", component).Logger(),
		pollInterval: pollInterval,
		batchSize:    batchSize,
		retry:        retry,
		stopCh:       make(chan struct{}),
	}
}

// Bind sets the ledger that receives callbacks. The ledger is built with the relayer as its
// oracle, so it can only be attached afterwards.
func (r *Relayer) Bind(ledger Ledger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ledger = ledger
}

// RequestDecryption records a request and returns its id.
func (r *Relayer) RequestDecryption(ctx context.Context, handles []types.Handle, callback types.CallbackKind) (uint64, error) {
	if err := callback.Validate(); err != nil {
		return 0, gwerrors.NewValidationError(component, err.Error())
	}
	if len(handles) == 0 {
		return 0, gwerrors.NewValidationError(component, "no handles to decrypt")
	}

	encoded, err := json.Marshal(handles)
	if err != nil {
		return 0, gwerrors.NewInternalError(component, "failed to encode handles", err)
	}

	req := store.DecryptionRequest{
		Handles:  string(encoded),
		Callback: string(callback),
		Status:   store.RequestStatusPending,
	}
	if err := r.database.Client().WithContext(ctx).Create(&req).Error; err != nil {
		return 0, gwerrors.NewDatabaseError(component, "failed to save decryption request", err)
	}

	if r.metrics != nil {
		r.metrics.DecryptionRequestsTotal.WithLabelValues(string(callback)).Inc()
	}
	r.logger.Debug().
		Uint("request_id", req.ID).
		Str("callback", req.Callback).
		Int("handles", len(handles)).
		Msg("decryption request recorded")

	return uint64(req.ID), nil
}

// CheckSignatures verifies a decryption proof.
func (r *Relayer) CheckSignatures(_ context.Context, requestID uint64, cleartexts, proof []byte) error {
	return r.signer.Verify(requestID, cleartexts, proof)
}

// Start launches the delivery loop.
func (r *Relayer) Start(ctx context.Context) error {
	r.mu.RLock()
	bound := r.ledger != nil
	r.mu.RUnlock()
	if !bound {
		return gwerrors.NewConfigError(component, "relayer started without a ledger")
	}

	r.logger.Info().
		Dur("poll_interval", r.pollInterval).
		Int("batch_size", r.batchSize).
		Msg("starting relayer")

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				r.logger.Info().Msg("context cancelled, stopping relayer")
				return
			case <-r.stopCh:
				r.logger.Info().Msg("stop signal received, stopping relayer")
				return
			case <-ticker.C:
				if _, err := r.ProcessPending(ctx); err != nil {
					r.logger.Error().Err(err).Msg("failed to process pending requests")
				}
			}
		}
	}()
	return nil
}

// Stop halts the delivery loop and waits for the current batch. Repeated calls are no-ops.
func (r *Relayer) Stop() {
	r.stopOnce.Do(func() {
		r.logger.Info().Msg("stopping relayer")
		close(r.stopCh)
	})
	r.wg.Wait()
}

// ProcessPending delivers one batch of pending requests in id order and returns how many
// reached a final status.
func (r *Relayer) ProcessPending(ctx context.Context) (int, error) {
	var pending []store.DecryptionRequest
	err := r.database.Client().WithContext(ctx).
		Where("status = ?", store.RequestStatusPending).
		Order("id ASC").
		Limit(r.batchSize).
		Find(&pending).Error
	if err != nil {
		return 0, gwerrors.NewDatabaseError(component, "failed to load pending requests", err)
	}

	done := 0
	for i := range pending {
		if ctx.Err() != nil {
			break
		}
		if r.deliver(ctx, &pending[i]) {
			done++
		}
	}

	if r.metrics != nil {
		var count int64
		if err := r.database.Client().WithContext(ctx).Model(&store.DecryptionRequest{}).
			Where("status = ?", store.RequestStatusPending).Count(&count).Error; err == nil {
			r.metrics.PendingRequests.Set(float64(count))
		}
	}
	return done, nil
}

// Get returns a stored request.
func (r *Relayer) Get(ctx context.Context, requestID uint64) (store.DecryptionRequest, error) {
	var req store.DecryptionRequest
	err := r.database.Client().WithContext(ctx).First(&req, requestID).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return req, gwerrors.NewNotFoundError(component, fmt.Sprintf("request %d", requestID))
		}
		return req, gwerrors.NewDatabaseError(component, "failed to load request", err)
	}
	return req, nil
}

// deliver runs decrypt, sign and callback for one request and records the outcome. It
// reports whether the request reached a final status.
func (r *Relayer) deliver(ctx context.Context, req *store.DecryptionRequest) bool {
	start := time.Now()
	log := r.logger.With().Uint("request_id", req.ID).Str("callback", req.Callback).Logger()

	op := gwerrors.RetryOperation{
		Name:   "deliver",
		Config: r.retry,
		Fn: func() error {
			req.Attempts++
			return r.deliverOnce(ctx, req)
		},
		OnRetry: func(attempt int, err error) {
			log.Warn().Err(err).Int("attempt", attempt).Msg("delivery failed, retrying")
		},
	}
	err := op.Execute(ctx)
	if err != nil && ctx.Err() != nil {
		// shutting down; leave the request pending for the next start
		return false
	}

	updates := map[string]interface{}{"attempts": req.Attempts}
	if err == nil {
		now := time.Now()
		updates["status"] = store.RequestStatusDelivered
		updates["delivered_at"] = &now
		updates["error_msg"] = ""
		log.Info().Dur("duration", time.Since(start)).Msg("decryption delivered")
	} else {
		updates["status"] = store.RequestStatusFailed
		updates["error_msg"] = err.Error()
		log.Error().Err(err).Msg("decryption delivery failed")
	}

	if dbErr := r.database.Client().WithContext(ctx).Model(req).Updates(updates).Error; dbErr != nil {
		log.Error().Err(dbErr).Msg("failed to record delivery outcome")
		return false
	}

	if r.metrics != nil {
		r.metrics.DeliveriesTotal.WithLabelValues(req.Callback, updates["status"].(string)).Inc()
		r.metrics.DeliveryDuration.Observe(time.Since(start).Seconds())
	}
	return true
}

func (r *Relayer) deliverOnce(ctx context.Context, req *store.DecryptionRequest) error {
	var handles []types.Handle
	if err := json.Unmarshal([]byte(req.Handles), &handles); err != nil {
		return gwerrors.NewInternalError(component, "corrupt request handles", err)
	}

	values := make([]fhe.Plaintext, 0, len(handles))
	for _, h := range handles {
		v, err := r.decrypter.Decrypt(ctx, h)
		if err != nil {
			return err
		}
		values = append(values, v)
	}

	cleartexts, err := fhe.EncodeCleartexts(values)
	if err != nil {
		return gwerrors.NewFHEError(component, "failed to encode cleartexts", err)
	}

	requestID := uint64(req.ID)
	proof, err := r.signer.Sign(requestID, cleartexts)
	if err != nil {
		return err
	}

	r.mu.RLock()
	ledger := r.ledger
	r.mu.RUnlock()

	switch types.CallbackKind(req.Callback) {
	case types.CallbackVerifyMessage:
		err = ledger.DeliverDecryption(ctx, requestID, cleartexts, proof)
	case types.CallbackRevealAggregate:
		err = ledger.DeliverAggregateDecryption(ctx, requestID, cleartexts, proof)
	default:
		return gwerrors.NewValidationError(component, "unknown callback "+req.Callback)
	}
	return classifyLedgerError(err)
}

// classifyLedgerError marks rejected transitions as final and storage failures as
// retryable.
func classifyLedgerError(err error) error {
	if err == nil {
		return nil
	}
	if types.IsLedgerError(err) || stderrors.Is(err, types.ErrOracle) {
		return gwerrors.NewLedgerError(component, "ledger rejected callback", err)
	}
	return gwerrors.NewDatabaseError(component, "ledger callback failed", err)
}
