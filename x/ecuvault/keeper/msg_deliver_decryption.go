package keeper

import (
	"context"
	"errors"
	"fmt"

	"cosmossdk.io/collections"
	errorsmod "cosmossdk.io/errors"

	"github.com/pushchain/ecu-vault/x/ecuvault/types"
)

// DeliverDecryption is the oracle callback for message verification. Every check and oracle
// call runs before the first write, so a rejected callback leaves the ledger untouched.
func (k Keeper) DeliverDecryption(ctx context.Context, requestID uint64, cleartexts, proof []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	target, err := k.getRequestTarget(ctx, requestID)
	if err != nil {
		return err
	}

	messageID, ok := target.MessageID()
	if !ok {
		return errorsmod.Wrapf(types.ErrMessageNotFound, "request %d does not target a message", requestID)
	}

	dec, _, err := k.getDecryptedMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if dec.IsVerified {
		return errorsmod.Wrapf(types.ErrAlreadyVerified, "message %d", messageID)
	}

	has, err := k.EncryptedMessages.Has(ctx, messageID)
	if err != nil {
		return fmt.Errorf("failed to check message %d: %w", messageID, err)
	}
	if !has {
		return errorsmod.Wrapf(types.ErrMessageNotFound, "message %d", messageID)
	}

	if err := k.oracle.CheckSignatures(ctx, requestID, cleartexts, proof); err != nil {
		return errorsmod.Wrapf(types.ErrInvalidProof, "request %d: %s", requestID, err)
	}

	command, source, targetEcu, err := types.DecodeMessageCleartexts(cleartexts)
	if err != nil {
		return err
	}

	counter, exists, err := k.getAggregate(ctx, source)
	if err != nil {
		return err
	}
	if !exists {
		if counter, err = k.fhe.TrivialEncrypt(ctx, 0); err != nil {
			return errorsmod.Wrapf(types.ErrOracle, "init counter for %s: %s", source, err)
		}
	}
	one, err := k.fhe.TrivialEncrypt(ctx, 1)
	if err != nil {
		return errorsmod.Wrapf(types.ErrOracle, "encrypt increment: %s", err)
	}
	next, err := k.fhe.Add(ctx, counter, one)
	if err != nil {
		return errorsmod.Wrapf(types.ErrOracle, "increment counter for %s: %s", source, err)
	}

	verified := types.DecryptedMessage{
		Command:    command,
		Source:     source,
		Target:     targetEcu,
		IsVerified: true,
	}
	err = k.writeAll(ctx, func(ctx context.Context) error {
		if err := k.DecryptedMessages.Set(ctx, messageID, verified); err != nil {
			return fmt.Errorf("failed to store decrypted message %d: %w", messageID, err)
		}
		if !exists {
			if err := k.registerEcuName(ctx, source); err != nil {
				return err
			}
		}
		if err := k.EcuAggregates.Set(ctx, source, next.Bytes()); err != nil {
			return fmt.Errorf("failed to store aggregate for %s: %w", source, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	event, err := types.NewMessageVerifiedEvent(types.MessageVerifiedEvent{
		MessageID: messageID,
		RequestID: requestID,
		Source:    source,
		Target:    targetEcu,
	})
	if err != nil {
		return err
	}
	k.emitEvent(ctx, event)

	k.Logger().Info("ECU message verified",
		"message_id", messageID,
		"request_id", requestID,
		"source", source,
		"target", targetEcu,
	)

	return nil
}

// getRequestTarget loads the target word of a request, failing with ErrInvalidRequest if
// the oracle request id was never recorded.
func (k Keeper) getRequestTarget(ctx context.Context, requestID uint64) (types.RequestTarget, error) {
	raw, err := k.PendingRequests.Get(ctx, requestID)
	if err != nil {
		if errors.Is(err, collections.ErrNotFound) {
			return types.RequestTarget{}, errorsmod.Wrapf(types.ErrInvalidRequest, "unknown request %d", requestID)
		}
		return types.RequestTarget{}, fmt.Errorf("failed to load request %d: %w", requestID, err)
	}
	target, err := types.RequestTargetFromBytes(raw)
	if err != nil {
		return types.RequestTarget{}, errorsmod.Wrapf(types.ErrInvalidRequest, "request %d: %s", requestID, err)
	}
	return target, nil
}

// registerEcuName appends name to the ECU registry.
func (k Keeper) registerEcuName(ctx context.Context, name string) error {
	idx, err := k.EcuNameCount.Next(ctx)
	if err != nil {
		return fmt.Errorf("failed to allocate ecu index: %w", err)
	}
	if err := k.EcuNames.Set(ctx, idx, name); err != nil {
		return fmt.Errorf("failed to register ecu %s: %w", name, err)
	}
	return nil
}
