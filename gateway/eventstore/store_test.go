package eventstore

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushchain/ecu-vault/gateway/db"
	"github.com/pushchain/ecu-vault/gateway/metrics"
	"github.com/pushchain/ecu-vault/x/ecuvault/types"
)

func setupStore(t *testing.T) (*Store, *metrics.Metrics) {
	t.Helper()
	database, err := db.OpenInMemoryDB(true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	m := metrics.New()
	return NewStore(database.Client(), m, zerolog.New(zerolog.NewTestWriter(t))), m
}

func TestEmitAndList(t *testing.T) {
	s, m := setupStore(t)
	ctx := context.Background()

	received, err := types.NewMessageReceivedEvent(types.MessageReceivedEvent{MessageID: 1, Timestamp: 100})
	require.NoError(t, err)
	verified, err := types.NewMessageVerifiedEvent(types.MessageVerifiedEvent{MessageID: 1, RequestID: 1, Source: "ECU_A", Target: "ECU_B"})
	require.NoError(t, err)
	revealed, err := types.NewAggregateRevealedEvent(types.AggregateRevealedEvent{EcuName: "ECU_A", RequestID: 2, Count: "1"})
	require.NoError(t, err)

	s.EmitEvent(ctx, received)
	s.EmitEvent(ctx, verified)
	s.EmitEvent(ctx, revealed)

	all, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, types.EventTypeAggregateRevealed, all[0].Type)
	assert.Equal(t, "1", all[0].Attributes["count"])

	byMessage, err := s.List(ctx, Filter{MessageID: 1})
	require.NoError(t, err)
	assert.Len(t, byMessage, 2)

	byEcu, err := s.List(ctx, Filter{EcuName: "ECU_A"})
	require.NoError(t, err)
	assert.Len(t, byEcu, 2)

	byType, err := s.List(ctx, Filter{Type: types.EventTypeMessageVerified, Limit: 5})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "ECU_A", byType[0].Attributes["source"])

	assert.Equal(t, 1.0, testutil.ToFloat64(m.LedgerEventsTotal.WithLabelValues(types.EventTypeMessageReceived)))
}

func TestCreateEventRejectsBadMessageID(t *testing.T) {
	s, _ := setupStore(t)
	err := s.CreateEvent(context.Background(), types.Event{
		Type:       types.EventTypeMessageReceived,
		Attributes: map[string]string{"message_id": "abc"},
	})
	require.Error(t, err)
}
