package relayer

import (
	"context"
	"errors"
	"testing"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pushchain/ecu-vault/gateway/config"
	"github.com/pushchain/ecu-vault/gateway/db"
	"github.com/pushchain/ecu-vault/gateway/fhe"
	"github.com/pushchain/ecu-vault/gateway/metrics"
	"github.com/pushchain/ecu-vault/gateway/store"
	"github.com/pushchain/ecu-vault/x/ecuvault/types"
)

// MockLedger is a mock implementation of Ledger
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) DeliverDecryption(ctx context.Context, requestID uint64, cleartexts, proof []byte) error {
	args := m.Called(ctx, requestID, cleartexts, proof)
	return args.Error(0)
}

func (m *MockLedger) DeliverAggregateDecryption(ctx context.Context, requestID uint64, cleartexts, proof []byte) error {
	args := m.Called(ctx, requestID, cleartexts, proof)
	return args.Error(0)
}

type testSetup struct {
	relayer     *Relayer
	coprocessor *fhe.Coprocessor
	kms         *fhe.KMS
	ledger      *MockLedger
	metrics     *metrics.Metrics
	database    *db.DB
}

func newTestSetup(t *testing.T) *testSetup {
	t.Helper()

	database, err := db.OpenInMemoryDB(true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	logger := zerolog.New(zerolog.NewTestWriter(t))
	coprocessor := fhe.NewCoprocessor(database, logger)

	keys, err := fhe.GenerateSignerKeys(2)
	require.NoError(t, err)
	kms, err := fhe.NewKMS(keys, 2)
	require.NoError(t, err)

	cfg := &config.Config{
		RelayerPollIntervalSeconds: 1,
		RelayerBatchSize:           10,
		MaxRetries:                 2,
		RetryBackoffSeconds:        0,
	}
	m := metrics.New()
	r := New(database, coprocessor, kms, cfg, m, logger)
	r.retry.InitialDelay = time.Millisecond

	ledger := new(MockLedger)
	r.Bind(ledger)

	return &testSetup{relayer: r, coprocessor: coprocessor, kms: kms, ledger: ledger, metrics: m, database: database}
}

func (s *testSetup) encryptMessage(t *testing.T, command, source, target string) []types.Handle {
	t.Helper()
	ctx := context.Background()
	var out []types.Handle
	for _, v := range []string{command, source, target} {
		h, err := s.coprocessor.Encrypt(ctx, fhe.String(v))
		require.NoError(t, err)
		out = append(out, h)
	}
	return out
}

func TestRequestDecryption(t *testing.T) {
	s := newTestSetup(t)
	ctx := context.Background()

	first, err := s.relayer.RequestDecryption(ctx, []types.Handle{{1}}, types.CallbackVerifyMessage)
	require.NoError(t, err)
	second, err := s.relayer.RequestDecryption(ctx, []types.Handle{{2}}, types.CallbackRevealAggregate)
	require.NoError(t, err)
	assert.Equal(t, first+1, second)

	req, err := s.relayer.Get(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, store.RequestStatusPending, req.Status)
	assert.Equal(t, string(types.CallbackVerifyMessage), req.Callback)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.DecryptionRequestsTotal.WithLabelValues("verify_message")))

	_, err = s.relayer.RequestDecryption(ctx, nil, types.CallbackVerifyMessage)
	require.Error(t, err)
	_, err = s.relayer.RequestDecryption(ctx, []types.Handle{{1}}, "unknown")
	require.Error(t, err)

	_, err = s.relayer.Get(ctx, 999)
	require.Error(t, err)
}

func TestProcessPending(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers message cleartexts with a valid proof", func(t *testing.T) {
		s := newTestSetup(t)
		handles := s.encryptMessage(t, "SET_TORQUE", "ECU_A", "ECU_B")

		reqID, err := s.relayer.RequestDecryption(ctx, handles, types.CallbackVerifyMessage)
		require.NoError(t, err)

		s.ledger.On("DeliverDecryption", mock.Anything, reqID, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				cleartexts := args.Get(2).([]byte)
				proof := args.Get(3).([]byte)

				command, source, target, err := types.DecodeMessageCleartexts(cleartexts)
				require.NoError(t, err)
				assert.Equal(t, "SET_TORQUE", command)
				assert.Equal(t, "ECU_A", source)
				assert.Equal(t, "ECU_B", target)
				assert.NoError(t, s.relayer.CheckSignatures(ctx, reqID, cleartexts, proof))
			}).
			Return(nil).Once()

		done, err := s.relayer.ProcessPending(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, done)

		req, err := s.relayer.Get(ctx, reqID)
		require.NoError(t, err)
		assert.Equal(t, store.RequestStatusDelivered, req.Status)
		assert.NotNil(t, req.DeliveredAt)
		assert.Equal(t, 1, req.Attempts)
		s.ledger.AssertExpectations(t)

		done, err = s.relayer.ProcessPending(ctx)
		require.NoError(t, err)
		assert.Zero(t, done)
	})

	t.Run("delivers aggregate counters", func(t *testing.T) {
		s := newTestSetup(t)
		counter, err := s.coprocessor.TrivialEncrypt(ctx, 3)
		require.NoError(t, err)

		reqID, err := s.relayer.RequestDecryption(ctx, []types.Handle{counter}, types.CallbackRevealAggregate)
		require.NoError(t, err)

		s.ledger.On("DeliverAggregateDecryption", mock.Anything, reqID, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				count, err := types.DecodeCounterCleartext(args.Get(2).([]byte))
				require.NoError(t, err)
				assert.Equal(t, uint64(3), count.Uint64())
			}).
			Return(nil).Once()

		_, err = s.relayer.ProcessPending(ctx)
		require.NoError(t, err)
		s.ledger.AssertExpectations(t)
	})

	t.Run("ledger rejection is final", func(t *testing.T) {
		s := newTestSetup(t)
		handles := s.encryptMessage(t, "SET_TORQUE", "ECU_A", "ECU_B")
		reqID, err := s.relayer.RequestDecryption(ctx, handles, types.CallbackVerifyMessage)
		require.NoError(t, err)

		s.ledger.On("DeliverDecryption", mock.Anything, reqID, mock.Anything, mock.Anything).
			Return(errorsmod.Wrap(types.ErrAlreadyVerified, "message 1")).Once()

		_, err = s.relayer.ProcessPending(ctx)
		require.NoError(t, err)

		req, err := s.relayer.Get(ctx, reqID)
		require.NoError(t, err)
		assert.Equal(t, store.RequestStatusFailed, req.Status)
		assert.Equal(t, 1, req.Attempts)
		assert.Contains(t, req.ErrorMsg, "Already verified")
		assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.DeliveriesTotal.WithLabelValues("verify_message", store.RequestStatusFailed)))
		s.ledger.AssertExpectations(t)
	})

	t.Run("storage failures are retried", func(t *testing.T) {
		s := newTestSetup(t)
		handles := s.encryptMessage(t, "SET_TORQUE", "ECU_A", "ECU_B")
		reqID, err := s.relayer.RequestDecryption(ctx, handles, types.CallbackVerifyMessage)
		require.NoError(t, err)

		s.ledger.On("DeliverDecryption", mock.Anything, reqID, mock.Anything, mock.Anything).
			Return(errors.New("leveldb: write failed")).Once()
		s.ledger.On("DeliverDecryption", mock.Anything, reqID, mock.Anything, mock.Anything).
			Return(nil).Once()

		_, err = s.relayer.ProcessPending(ctx)
		require.NoError(t, err)

		req, err := s.relayer.Get(ctx, reqID)
		require.NoError(t, err)
		assert.Equal(t, store.RequestStatusDelivered, req.Status)
		assert.Equal(t, 2, req.Attempts)
		s.ledger.AssertExpectations(t)
	})

	t.Run("unknown handles fail without calling the ledger", func(t *testing.T) {
		s := newTestSetup(t)
		reqID, err := s.relayer.RequestDecryption(ctx, []types.Handle{{}, {}, {}}, types.CallbackVerifyMessage)
		require.NoError(t, err)

		_, err = s.relayer.ProcessPending(ctx)
		require.NoError(t, err)

		req, err := s.relayer.Get(ctx, reqID)
		require.NoError(t, err)
		assert.Equal(t, store.RequestStatusFailed, req.Status)
		assert.Contains(t, req.ErrorMsg, "unknown handle")
		s.ledger.AssertNotCalled(t, "DeliverDecryption", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestStartRequiresLedger(t *testing.T) {
	database, err := db.OpenInMemoryDB(true)
	require.NoError(t, err)
	defer database.Close()

	r := New(database, nil, nil, &config.Config{}, nil, zerolog.Nop())
	require.Error(t, r.Start(context.Background()))
}

func TestStartStop(t *testing.T) {
	s := newTestSetup(t)
	s.relayer.pollInterval = 10 * time.Millisecond

	counter, err := s.coprocessor.TrivialEncrypt(context.Background(), 1)
	require.NoError(t, err)
	reqID, err := s.relayer.RequestDecryption(context.Background(), []types.Handle{counter}, types.CallbackRevealAggregate)
	require.NoError(t, err)

	delivered := make(chan struct{})
	s.ledger.On("DeliverAggregateDecryption", mock.Anything, reqID, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { close(delivered) }).
		Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.relayer.Start(ctx))

	select {
	case <-delivered:
	case <-time.After(5 * time.Second):
		t.Fatal("request was not delivered")
	}
	s.relayer.Stop()
	require.NotPanics(t, s.relayer.Stop)
}
