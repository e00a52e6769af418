package eventstore

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/pushchain/ecu-vault/gateway/metrics"
	"github.com/pushchain/ecu-vault/gateway/store"
	"github.com/pushchain/ecu-vault/x/ecuvault/types"
)

// Store persists events emitted by ledger transitions.
type Store struct {
	db      *gorm.DB
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

var _ types.EventSink = (*Store)(nil)

// NewStore creates a new event store. m may be nil.
func NewStore(db *gorm.DB, m *metrics.Metrics, logger zerolog.Logger) *Store {
	return &Store{
		db:      db,
		metrics: m,
		logger:  logger.With().Str("component", "event_store").Logger(),
	}
}

// EmitEvent stores event. Failures are logged; a ledger transition never fails because
// its event could not be persisted.
func (s *Store) EmitEvent(ctx context.Context, event types.Event) {
	if err := s.CreateEvent(ctx, event); err != nil {
		s.logger.Error().Err(err).Str("type", event.Type).Msg("failed to persist ledger event")
	}
	if s.metrics != nil {
		s.metrics.LedgerEventsTotal.WithLabelValues(event.Type).Inc()
	}
}

// CreateEvent stores a new ledger event.
func (s *Store) CreateEvent(ctx context.Context, event types.Event) error {
	attrs, err := json.Marshal(event.Attributes)
	if err != nil {
		return errors.Wrap(err, "failed to encode event attributes")
	}

	row := store.LedgerEvent{
		Type:       event.Type,
		EcuName:    event.Attributes["ecu_name"],
		Attributes: attrs,
	}
	if id, ok := event.Attributes["message_id"]; ok {
		if row.MessageID, err = strconv.ParseUint(id, 10, 64); err != nil {
			return errors.Wrapf(err, "invalid message id %q", id)
		}
	}
	if row.EcuName == "" {
		row.EcuName = event.Attributes["source"]
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return errors.Wrapf(err, "failed to create event %s", event.Type)
	}
	s.logger.Debug().
		Uint("id", row.ID).
		Str("type", row.Type).
		Uint64("message_id", row.MessageID).
		Msg("stored ledger event")
	return nil
}

// Filter selects events for List. Zero fields match everything.
type Filter struct {
	Type      string
	MessageID uint64
	EcuName   string
	Limit     int
}

// Record is a stored event in API form.
type Record struct {
	ID         uint              `json:"id"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	CreatedAt  int64             `json:"created_at"`
}

// List returns matching events, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Record, error) {
	query := s.db.WithContext(ctx).Model(&store.LedgerEvent{}).Order("id DESC")
	if f.Type != "" {
		query = query.Where("type = ?", f.Type)
	}
	if f.MessageID != 0 {
		query = query.Where("message_id = ?", f.MessageID)
	}
	if f.EcuName != "" {
		query = query.Where("ecu_name = ?", f.EcuName)
	}
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}

	var rows []store.LedgerEvent
	if err := query.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "failed to query ledger events")
	}

	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := Record{ID: row.ID, Type: row.Type, CreatedAt: row.CreatedAt.Unix()}
		if err := json.Unmarshal(row.Attributes, &rec.Attributes); err != nil {
			s.logger.Warn().Err(err).Uint("id", row.ID).Msg("skipping event with corrupt attributes")
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
