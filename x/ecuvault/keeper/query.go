package keeper

import (
	"context"
	"errors"
	"fmt"

	"cosmossdk.io/collections"
	errorsmod "cosmossdk.io/errors"

	"github.com/pushchain/ecu-vault/x/ecuvault/types"
)

// GetEncryptedMessage returns the stored encrypted record.
func (k Keeper) GetEncryptedMessage(ctx context.Context, messageID uint64) (types.EncryptedMessage, error) {
	msg, err := k.EncryptedMessages.Get(ctx, messageID)
	if err != nil {
		if errors.Is(err, collections.ErrNotFound) {
			return types.EncryptedMessage{}, errorsmod.Wrapf(types.ErrMessageNotFound, "message %d", messageID)
		}
		return types.EncryptedMessage{}, fmt.Errorf("failed to load message %d: %w", messageID, err)
	}
	return msg, nil
}

// GetDecryptedMessage returns the decrypted record, which is empty and unverified until the
// oracle callback succeeds.
func (k Keeper) GetDecryptedMessage(ctx context.Context, messageID uint64) (types.DecryptedMessage, error) {
	has, err := k.EncryptedMessages.Has(ctx, messageID)
	if err != nil {
		return types.DecryptedMessage{}, fmt.Errorf("failed to check message %d: %w", messageID, err)
	}
	if !has {
		return types.DecryptedMessage{}, errorsmod.Wrapf(types.ErrMessageNotFound, "message %d", messageID)
	}
	dec, _, err := k.getDecryptedMessage(ctx, messageID)
	return dec, err
}

// GetMessageStatus reports where a message is in its lifecycle. A pending request is found
// by scanning the request table.
func (k Keeper) GetMessageStatus(ctx context.Context, messageID uint64) (types.MessageStatus, error) {
	dec, err := k.GetDecryptedMessage(ctx, messageID)
	if err != nil {
		return "", err
	}
	if dec.IsVerified {
		return types.MessageStatusVerified, nil
	}

	want := types.MessageTarget(messageID)
	iter, err := k.PendingRequests.Iterate(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to iterate requests: %w", err)
	}
	defer iter.Close()
	for ; iter.Valid(); iter.Next() {
		raw, err := iter.Value()
		if err != nil {
			return "", fmt.Errorf("failed to read request: %w", err)
		}
		if target, err := types.RequestTargetFromBytes(raw); err == nil && target == want {
			return types.MessageStatusVerificationRequested, nil
		}
	}
	return types.MessageStatusSubmitted, nil
}

// GetMessageCount returns the id of the last submitted message.
func (k Keeper) GetMessageCount(ctx context.Context) (uint64, error) {
	return k.MessageCount.Peek(ctx)
}

// ListMessages returns up to limit encrypted records, newest first.
func (k Keeper) ListMessages(ctx context.Context, limit int) ([]types.EncryptedMessage, error) {
	iter, err := k.EncryptedMessages.Iterate(ctx, new(collections.Range[uint64]).Descending())
	if err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	defer iter.Close()

	var out []types.EncryptedMessage
	for ; iter.Valid(); iter.Next() {
		if limit > 0 && len(out) >= limit {
			break
		}
		msg, err := iter.Value()
		if err != nil {
			return nil, fmt.Errorf("failed to read message: %w", err)
		}
		out = append(out, msg)
	}
	return out, nil
}

// GetEcuNames returns the registry in insertion order.
func (k Keeper) GetEcuNames(ctx context.Context) ([]string, error) {
	iter, err := k.EcuNames.Iterate(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate ecu names: %w", err)
	}
	defer iter.Close()

	names := []string{}
	for ; iter.Valid(); iter.Next() {
		name, err := iter.Value()
		if err != nil {
			return nil, fmt.Errorf("failed to read ecu name: %w", err)
		}
		names = append(names, name)
	}
	return names, nil
}

// GetEcuAggregate returns the encrypted counter handle of an ECU.
func (k Keeper) GetEcuAggregate(ctx context.Context, ecuName string) (types.Handle, error) {
	h, exists, err := k.getAggregate(ctx, ecuName)
	if err != nil {
		return types.Handle{}, err
	}
	if !exists {
		return types.Handle{}, errorsmod.Wrapf(types.ErrEcuNotFound, "%q", ecuName)
	}
	return h, nil
}

// GetPendingRequest returns the target word recorded for an oracle request.
func (k Keeper) GetPendingRequest(ctx context.Context, requestID uint64) (types.RequestTarget, error) {
	return k.getRequestTarget(ctx, requestID)
}

func (k Keeper) getDecryptedMessage(ctx context.Context, messageID uint64) (types.DecryptedMessage, bool, error) {
	dec, err := k.DecryptedMessages.Get(ctx, messageID)
	if err != nil {
		if errors.Is(err, collections.ErrNotFound) {
			return types.DecryptedMessage{}, false, nil
		}
		return types.DecryptedMessage{}, false, fmt.Errorf("failed to load decrypted message %d: %w", messageID, err)
	}
	return dec, true, nil
}

func (k Keeper) getAggregate(ctx context.Context, ecuName string) (types.Handle, bool, error) {
	raw, err := k.EcuAggregates.Get(ctx, ecuName)
	if err != nil {
		if errors.Is(err, collections.ErrNotFound) {
			return types.Handle{}, false, nil
		}
		return types.Handle{}, false, fmt.Errorf("failed to load aggregate for %s: %w", ecuName, err)
	}
	h, err := types.HandleFromBytes(raw)
	if err != nil {
		return types.Handle{}, false, fmt.Errorf("corrupt aggregate for %s: %w", ecuName, err)
	}
	return h, true, nil
}
