package keeper_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushchain/ecu-vault/x/ecuvault/types"
)

func TestSubmitMessage(t *testing.T) {
	t.Run("ids start at one and increase by one", func(t *testing.T) {
		f := SetupTest(t)

		for want := uint64(1); want <= 3; want++ {
			id := f.submit(t)
			assert.Equal(t, want, id)
		}

		count, err := f.k.GetMessageCount(f.ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(3), count)
	})

	t.Run("stores handles and ledger time", func(t *testing.T) {
		f := SetupTest(t)

		id, err := f.k.SubmitMessage(f.ctx, tagHandle(7), tagHandle(8), tagHandle(9))
		require.NoError(t, err)

		msg, err := f.k.GetEncryptedMessage(f.ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, msg.ID)
		assert.Equal(t, tagHandle(7), msg.Command)
		assert.Equal(t, tagHandle(8), msg.Source)
		assert.Equal(t, tagHandle(9), msg.Target)
		assert.Equal(t, fixedTime.Unix(), msg.Timestamp)

		events := f.events.ofType(types.EventTypeMessageReceived)
		require.Len(t, events, 1)
		assert.Equal(t, "1", events[0].Attributes["message_id"])
	})

	t.Run("zero handles are accepted", func(t *testing.T) {
		f := SetupTest(t)

		id, err := f.k.SubmitMessage(f.ctx, types.Handle{}, types.Handle{}, types.Handle{})
		require.NoError(t, err)
		assert.Equal(t, uint64(1), id)
	})

	t.Run("decrypted record is empty before the callback", func(t *testing.T) {
		f := SetupTest(t)
		id := f.submit(t)

		dec, err := f.k.GetDecryptedMessage(f.ctx, id)
		require.NoError(t, err)
		assert.Equal(t, types.DecryptedMessage{}, dec)

		status, err := f.k.GetMessageStatus(f.ctx, id)
		require.NoError(t, err)
		assert.Equal(t, types.MessageStatusSubmitted, status)
	})
}

func TestRequestVerification(t *testing.T) {
	t.Run("sends the three handles and records the target", func(t *testing.T) {
		f := SetupTest(t)
		id := f.submit(t)

		reqID, err := f.k.RequestVerification(f.ctx, id)
		require.NoError(t, err)

		req := f.oracle.request(reqID)
		assert.Equal(t, types.CallbackVerifyMessage, req.callback)
		assert.Equal(t, []types.Handle{tagHandle(1), tagHandle(2), tagHandle(3)}, req.handles)

		target, err := f.k.GetPendingRequest(f.ctx, reqID)
		require.NoError(t, err)
		assert.Equal(t, types.MessageTarget(id), target)

		status, err := f.k.GetMessageStatus(f.ctx, id)
		require.NoError(t, err)
		assert.Equal(t, types.MessageStatusVerificationRequested, status)
		assert.Len(t, f.events.ofType(types.EventTypeVerificationRequested), 1)
	})

	t.Run("repeated requests get distinct ids", func(t *testing.T) {
		f := SetupTest(t)
		id := f.submit(t)

		first, err := f.k.RequestVerification(f.ctx, id)
		require.NoError(t, err)
		second, err := f.k.RequestVerification(f.ctx, id)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("unknown message sends zero handles", func(t *testing.T) {
		f := SetupTest(t)

		reqID, err := f.k.RequestVerification(f.ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, []types.Handle{{}, {}, {}}, f.oracle.request(reqID).handles)

		cleartexts, err := types.EncodeMessageCleartexts("X", "A", "B")
		require.NoError(t, err)
		err = f.k.DeliverDecryption(f.ctx, reqID, cleartexts, nil)
		require.ErrorIs(t, err, types.ErrMessageNotFound)
	})

	t.Run("verified message is refused", func(t *testing.T) {
		f := SetupTest(t)
		id := f.submitVerified(t, "SET_TORQUE", "ECU_A", "ECU_B")

		_, err := f.k.RequestVerification(f.ctx, id)
		require.ErrorIs(t, err, types.ErrAlreadyVerified)
	})

	t.Run("oracle failure leaves no request behind", func(t *testing.T) {
		f := SetupTest(t)
		id := f.submit(t)
		f.oracle.requestErr = errors.New("oracle offline")

		_, err := f.k.RequestVerification(f.ctx, id)
		require.ErrorIs(t, err, types.ErrOracle)

		status, err := f.k.GetMessageStatus(f.ctx, id)
		require.NoError(t, err)
		assert.Equal(t, types.MessageStatusSubmitted, status)
	})
}

func TestDeliverDecryption(t *testing.T) {
	t.Run("end to end", func(t *testing.T) {
		f := SetupTest(t)
		id := f.submit(t)
		f.verify(t, id, "SET_TORQUE", "ECU_A", "ECU_B")

		dec, err := f.k.GetDecryptedMessage(f.ctx, id)
		require.NoError(t, err)
		assert.Equal(t, types.DecryptedMessage{
			Command:    "SET_TORQUE",
			Source:     "ECU_A",
			Target:     "ECU_B",
			IsVerified: true,
		}, dec)

		names, err := f.k.GetEcuNames(f.ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"ECU_A"}, names)

		counter, err := f.k.GetEcuAggregate(f.ctx, "ECU_A")
		require.NoError(t, err)
		assert.Equal(t, uint64(1), f.fhe.plaintext(counter))

		status, err := f.k.GetMessageStatus(f.ctx, id)
		require.NoError(t, err)
		assert.Equal(t, types.MessageStatusVerified, status)

		events := f.events.ofType(types.EventTypeMessageVerified)
		require.Len(t, events, 1)
		assert.Equal(t, "ECU_A", events[0].Attributes["source"])
	})

	t.Run("registry holds each source once and counts every message", func(t *testing.T) {
		f := SetupTest(t)
		f.submitVerified(t, "SET_TORQUE", "ECU_A", "ECU_B")
		f.submitVerified(t, "READ_DTC", "ECU_B", "ECU_A")
		f.submitVerified(t, "SET_TORQUE", "ECU_A", "ECU_C")

		names, err := f.k.GetEcuNames(f.ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"ECU_A", "ECU_B"}, names)

		counter, err := f.k.GetEcuAggregate(f.ctx, "ECU_A")
		require.NoError(t, err)
		assert.Equal(t, uint64(2), f.fhe.plaintext(counter))
	})

	t.Run("duplicate callback is rejected", func(t *testing.T) {
		f := SetupTest(t)
		id := f.submit(t)

		reqID, err := f.k.RequestVerification(f.ctx, id)
		require.NoError(t, err)
		cleartexts, err := types.EncodeMessageCleartexts("SET_TORQUE", "ECU_A", "ECU_B")
		require.NoError(t, err)

		require.NoError(t, f.k.DeliverDecryption(f.ctx, reqID, cleartexts, nil))
		err = f.k.DeliverDecryption(f.ctx, reqID, cleartexts, nil)
		require.ErrorIs(t, err, types.ErrAlreadyVerified)

		counter, err := f.k.GetEcuAggregate(f.ctx, "ECU_A")
		require.NoError(t, err)
		assert.Equal(t, uint64(1), f.fhe.plaintext(counter))
	})

	t.Run("second outstanding request cannot verify twice", func(t *testing.T) {
		f := SetupTest(t)
		id := f.submit(t)

		first, err := f.k.RequestVerification(f.ctx, id)
		require.NoError(t, err)
		second, err := f.k.RequestVerification(f.ctx, id)
		require.NoError(t, err)

		cleartexts, err := types.EncodeMessageCleartexts("SET_TORQUE", "ECU_A", "ECU_B")
		require.NoError(t, err)
		require.NoError(t, f.k.DeliverDecryption(f.ctx, second, cleartexts, nil))
		require.ErrorIs(t, f.k.DeliverDecryption(f.ctx, first, cleartexts, nil), types.ErrAlreadyVerified)
	})

	t.Run("unknown request", func(t *testing.T) {
		f := SetupTest(t)
		err := f.k.DeliverDecryption(f.ctx, 99, nil, nil)
		require.ErrorIs(t, err, types.ErrInvalidRequest)
	})

	testCases := []struct {
		name    string
		setup   func(f *testFixture)
		payload func(t *testing.T) []byte
		wantErr error
	}{
		{
			name:  "invalid proof",
			setup: func(f *testFixture) { f.oracle.sigErr = errors.New("bad signature") },
			payload: func(t *testing.T) []byte {
				bz, err := types.EncodeMessageCleartexts("SET_TORQUE", "ECU_A", "ECU_B")
				require.NoError(t, err)
				return bz
			},
			wantErr: types.ErrInvalidProof,
		},
		{
			name:    "malformed cleartext",
			setup:   func(*testFixture) {},
			payload: func(*testing.T) []byte { return []byte{0x01, 0x02} },
			wantErr: types.ErrInvalidCleartext,
		},
		{
			name:  "fhe failure",
			setup: func(f *testFixture) { f.fhe.addErr = errors.New("coprocessor down") },
			payload: func(t *testing.T) []byte {
				bz, err := types.EncodeMessageCleartexts("SET_TORQUE", "ECU_A", "ECU_B")
				require.NoError(t, err)
				return bz
			},
			wantErr: types.ErrOracle,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name+" leaves no partial effect", func(t *testing.T) {
			f := SetupTest(t)
			id := f.submit(t)
			reqID, err := f.k.RequestVerification(f.ctx, id)
			require.NoError(t, err)

			tc.setup(f)
			err = f.k.DeliverDecryption(f.ctx, reqID, tc.payload(t), []byte("proof"))
			require.ErrorIs(t, err, tc.wantErr)
			assert.True(t, types.IsLedgerError(err) || errors.Is(err, types.ErrOracle))

			dec, err := f.k.GetDecryptedMessage(f.ctx, id)
			require.NoError(t, err)
			assert.False(t, dec.IsVerified)

			names, err := f.k.GetEcuNames(f.ctx)
			require.NoError(t, err)
			assert.Empty(t, names)

			_, err = f.k.GetEcuAggregate(f.ctx, "ECU_A")
			require.ErrorIs(t, err, types.ErrEcuNotFound)
		})
	}
}

func TestListMessages(t *testing.T) {
	f := SetupTest(t)
	for i := 0; i < 5; i++ {
		f.submit(t)
	}

	msgs, err := f.k.ListMessages(f.ctx, 3)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, uint64(5), msgs[0].ID)
	assert.Equal(t, uint64(3), msgs[2].ID)

	all, err := f.k.ListMessages(f.ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestGetMessageNotFound(t *testing.T) {
	f := SetupTest(t)

	_, err := f.k.GetEncryptedMessage(f.ctx, 1)
	require.ErrorIs(t, err, types.ErrMessageNotFound)
	_, err = f.k.GetDecryptedMessage(f.ctx, 1)
	require.ErrorIs(t, err, types.ErrMessageNotFound)
}
