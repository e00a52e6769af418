package keeper

import (
	"context"
	"errors"
	"fmt"

	"cosmossdk.io/collections"
	errorsmod "cosmossdk.io/errors"

	"github.com/pushchain/ecu-vault/x/ecuvault/types"
)

// RequestVerification asks the oracle to decrypt the three handles of a message and records
// the returned request id. The message id is not range checked and repeated requests for
// the same message are allowed; only a verified message is refused.
func (k Keeper) RequestVerification(ctx context.Context, messageID uint64) (uint64, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	dec, _, err := k.getDecryptedMessage(ctx, messageID)
	if err != nil {
		return 0, err
	}
	if dec.IsVerified {
		return 0, errorsmod.Wrapf(types.ErrAlreadyVerified, "message %d", messageID)
	}

	msg, err := k.EncryptedMessages.Get(ctx, messageID)
	if err != nil {
		if !errors.Is(err, collections.ErrNotFound) {
			return 0, fmt.Errorf("failed to load message %d: %w", messageID, err)
		}
		// an unknown id yields zero handles, which the oracle cannot resolve
		k.Logger().Warn("verification requested for unknown message", "id", messageID)
		msg = types.EncryptedMessage{ID: messageID}
	}

	handles := []types.Handle{msg.Command, msg.Source, msg.Target}
	requestID, err := k.oracle.RequestDecryption(ctx, handles, types.CallbackVerifyMessage)
	if err != nil {
		return 0, errorsmod.Wrapf(types.ErrOracle, "decryption request for message %d: %s", messageID, err)
	}

	if err := k.PendingRequests.Set(ctx, requestID, types.MessageTarget(messageID).Bytes()); err != nil {
		return 0, fmt.Errorf("failed to store pending request %d: %w", requestID, err)
	}

	event, err := types.NewVerificationRequestedEvent(types.VerificationRequestedEvent{
		MessageID: messageID,
		RequestID: requestID,
	})
	if err != nil {
		return 0, err
	}
	k.emitEvent(ctx, event)

	k.Logger().Info("verification requested", "message_id", messageID, "request_id", requestID)

	return requestID, nil
}
