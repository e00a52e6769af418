package keeper_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushchain/ecu-vault/x/ecuvault/types"
)

func TestAggregateDecryption(t *testing.T) {
	t.Run("reveal emits the counter", func(t *testing.T) {
		f := SetupTest(t)
		f.submitVerified(t, "SET_TORQUE", "ECU_A", "ECU_B")
		f.submitVerified(t, "READ_DTC", "ECU_A", "ECU_B")

		reqID, err := f.k.RequestAggregateDecryption(f.ctx, "ECU_A")
		require.NoError(t, err)

		req := f.oracle.request(reqID)
		assert.Equal(t, types.CallbackRevealAggregate, req.callback)
		require.Len(t, req.handles, 1)
		assert.Equal(t, uint64(2), f.fhe.plaintext(req.handles[0]))

		target, err := f.k.GetPendingRequest(f.ctx, reqID)
		require.NoError(t, err)
		assert.Equal(t, types.EcuTarget("ECU_A"), target)

		cleartexts, err := types.EncodeCounterCleartext(2)
		require.NoError(t, err)
		require.NoError(t, f.k.DeliverAggregateDecryption(f.ctx, reqID, cleartexts, []byte("proof")))

		events := f.events.ofType(types.EventTypeAggregateRevealed)
		require.Len(t, events, 1)
		assert.Equal(t, "ECU_A", events[0].Attributes["ecu_name"])
		assert.Equal(t, "2", events[0].Attributes["count"])
	})

	t.Run("unknown ecu", func(t *testing.T) {
		f := SetupTest(t)
		_, err := f.k.RequestAggregateDecryption(f.ctx, "ECU_Z")
		require.ErrorIs(t, err, types.ErrEcuNotFound)
	})

	t.Run("unknown request", func(t *testing.T) {
		f := SetupTest(t)
		err := f.k.DeliverAggregateDecryption(f.ctx, 5, nil, nil)
		require.ErrorIs(t, err, types.ErrInvalidRequest)
	})

	t.Run("message request does not resolve to an ecu", func(t *testing.T) {
		f := SetupTest(t)
		id := f.submit(t)
		reqID, err := f.k.RequestVerification(f.ctx, id)
		require.NoError(t, err)

		cleartexts, err := types.EncodeCounterCleartext(1)
		require.NoError(t, err)
		err = f.k.DeliverAggregateDecryption(f.ctx, reqID, cleartexts, nil)
		require.ErrorIs(t, err, types.ErrEcuNotFound)
	})

	t.Run("invalid proof", func(t *testing.T) {
		f := SetupTest(t)
		f.submitVerified(t, "SET_TORQUE", "ECU_A", "ECU_B")
		reqID, err := f.k.RequestAggregateDecryption(f.ctx, "ECU_A")
		require.NoError(t, err)

		f.oracle.sigErr = errors.New("bad signature")
		cleartexts, err := types.EncodeCounterCleartext(1)
		require.NoError(t, err)
		err = f.k.DeliverAggregateDecryption(f.ctx, reqID, cleartexts, nil)
		require.ErrorIs(t, err, types.ErrInvalidProof)
		assert.Empty(t, f.events.ofType(types.EventTypeAggregateRevealed))
	})

	t.Run("malformed counter", func(t *testing.T) {
		f := SetupTest(t)
		f.submitVerified(t, "SET_TORQUE", "ECU_A", "ECU_B")
		reqID, err := f.k.RequestAggregateDecryption(f.ctx, "ECU_A")
		require.NoError(t, err)

		err = f.k.DeliverAggregateDecryption(f.ctx, reqID, []byte{0x01}, nil)
		require.ErrorIs(t, err, types.ErrInvalidCleartext)
	})
}
