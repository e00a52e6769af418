package keeper

import (
	"context"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"

	"github.com/pushchain/ecu-vault/x/ecuvault/types"
)

// RequestAggregateDecryption asks the oracle to reveal the verified-message counter of an
// ECU. The request is recorded against the hash of the ECU name in the same table that
// maps message requests.
func (k Keeper) RequestAggregateDecryption(ctx context.Context, ecuName string) (uint64, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	counter, exists, err := k.getAggregate(ctx, ecuName)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, errorsmod.Wrapf(types.ErrEcuNotFound, "%q", ecuName)
	}

	requestID, err := k.oracle.RequestDecryption(ctx, []types.Handle{counter}, types.CallbackRevealAggregate)
	if err != nil {
		return 0, errorsmod.Wrapf(types.ErrOracle, "aggregate decryption for %s: %s", ecuName, err)
	}

	if err := k.PendingRequests.Set(ctx, requestID, types.EcuTarget(ecuName).Bytes()); err != nil {
		return 0, fmt.Errorf("failed to store pending request %d: %w", requestID, err)
	}

	event, err := types.NewAggregateDecryptionRequestedEvent(types.AggregateDecryptionRequestedEvent{
		EcuName:   ecuName,
		RequestID: requestID,
	})
	if err != nil {
		return 0, err
	}
	k.emitEvent(ctx, event)

	k.Logger().Info("aggregate decryption requested", "ecu", ecuName, "request_id", requestID)

	return requestID, nil
}

// DeliverAggregateDecryption is the oracle callback for an ECU counter reveal. The counter
// is emitted in an event and is not written to ledger state.
func (k Keeper) DeliverAggregateDecryption(ctx context.Context, requestID uint64, cleartexts, proof []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	target, err := k.getRequestTarget(ctx, requestID)
	if err != nil {
		return err
	}

	ecuName, found, err := k.resolveEcuName(ctx, target.Hash())
	if err != nil {
		return err
	}
	if !found {
		return errorsmod.Wrapf(types.ErrEcuNotFound, "no ecu matches hash %s", target.Hex())
	}

	if err := k.oracle.CheckSignatures(ctx, requestID, cleartexts, proof); err != nil {
		return errorsmod.Wrapf(types.ErrInvalidProof, "request %d: %s", requestID, err)
	}

	count, err := types.DecodeCounterCleartext(cleartexts)
	if err != nil {
		return err
	}

	event, err := types.NewAggregateRevealedEvent(types.AggregateRevealedEvent{
		EcuName:   ecuName,
		RequestID: requestID,
		Count:     count.String(),
	})
	if err != nil {
		return err
	}
	k.emitEvent(ctx, event)

	k.Logger().Info("aggregate revealed", "ecu", ecuName, "request_id", requestID, "count", count.String())

	return nil
}

// resolveEcuName maps a name hash back to a registered name by scanning the registry in
// insertion order.
func (k Keeper) resolveEcuName(ctx context.Context, hash common.Hash) (string, bool, error) {
	iter, err := k.EcuNames.Iterate(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("failed to iterate ecu names: %w", err)
	}
	defer iter.Close()

	for ; iter.Valid(); iter.Next() {
		name, err := iter.Value()
		if err != nil {
			return "", false, fmt.Errorf("failed to read ecu name: %w", err)
		}
		if types.HashEcuName(name) == hash {
			return name, true, nil
		}
	}
	return "", false, nil
}
