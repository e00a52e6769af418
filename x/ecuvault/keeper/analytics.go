package keeper

import (
	"context"
	"fmt"
	"strings"

	errorsmod "cosmossdk.io/errors"
	"github.com/samber/lo"

	"github.com/pushchain/ecu-vault/x/ecuvault/types"
)

// The helpers below scan the verified-message history linearly. They are advisory and do
// not gate any ledger transition.

// AddKnownSafeCommand registers command in the known-safe list.
func (k Keeper) AddKnownSafeCommand(ctx context.Context, command string) error {
	if strings.TrimSpace(command) == "" {
		return types.ErrEmptyCommand
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	hash := types.HashCommand(command).Hex()
	if err := k.KnownSafeCommands.Set(ctx, hash, command); err != nil {
		return fmt.Errorf("failed to store known safe command: %w", err)
	}

	event, err := types.NewKnownSafeCommandAddedEvent(types.KnownSafeCommandAddedEvent{
		Command: command,
		Hash:    hash,
	})
	if err != nil {
		return err
	}
	k.emitEvent(ctx, event)
	return nil
}

// GetKnownSafeCommands lists the registered commands ordered by hash.
func (k Keeper) GetKnownSafeCommands(ctx context.Context) ([]string, error) {
	iter, err := k.KnownSafeCommands.Iterate(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate known safe commands: %w", err)
	}
	defer iter.Close()

	cmds, err := iter.Values()
	if err != nil {
		return nil, fmt.Errorf("failed to read known safe commands: %w", err)
	}
	if cmds == nil {
		cmds = []string{}
	}
	return cmds, nil
}

// ValidateCommand reports whether a message carries an acceptable command. A message that
// is not verified yet is never valid. With an empty known-safe list every verified command
// passes.
func (k Keeper) ValidateCommand(ctx context.Context, messageID uint64) (bool, error) {
	dec, err := k.GetDecryptedMessage(ctx, messageID)
	if err != nil {
		return false, err
	}
	if !dec.IsVerified {
		return false, nil
	}
	isSafe, err := k.commandChecker(ctx)
	if err != nil {
		return false, err
	}
	return isSafe(dec.Command)
}

// DetectAnomalousCommands returns the ids of verified messages whose command fails
// validation, in id order.
func (k Keeper) DetectAnomalousCommands(ctx context.Context) ([]uint64, error) {
	isSafe, err := k.commandChecker(ctx)
	if err != nil {
		return nil, err
	}

	ids := []uint64{}
	err = k.walkVerified(ctx, func(id uint64, msg types.DecryptedMessage) error {
		ok, err := isSafe(msg.Command)
		if err != nil {
			return err
		}
		if !ok {
			ids = append(ids, id)
		}
		return nil
	})
	return ids, err
}

// CalculateEcuTrustScore returns floor(valid*100/total) over the verified messages sent by
// ecuName, or 100 when it has none.
func (k Keeper) CalculateEcuTrustScore(ctx context.Context, ecuName string) (uint64, error) {
	isSafe, err := k.commandChecker(ctx)
	if err != nil {
		return 0, err
	}

	var total, valid uint64
	err = k.walkVerified(ctx, func(_ uint64, msg types.DecryptedMessage) error {
		if msg.Source != ecuName {
			return nil
		}
		total++
		ok, err := isSafe(msg.Command)
		if err != nil {
			return err
		}
		if ok {
			valid++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if total == 0 {
		return 100, nil
	}
	return valid * 100 / total, nil
}

// IdentifySuspiciousEcuPairs returns the distinct (source, target) pairs that carried an
// anomalous command or addressed themselves, in first-seen order.
func (k Keeper) IdentifySuspiciousEcuPairs(ctx context.Context) ([]types.EcuPair, error) {
	isSafe, err := k.commandChecker(ctx)
	if err != nil {
		return nil, err
	}

	var pairs []types.EcuPair
	err = k.walkVerified(ctx, func(_ uint64, msg types.DecryptedMessage) error {
		ok, err := isSafe(msg.Command)
		if err != nil {
			return err
		}
		if !ok || msg.Source == msg.Target {
			pairs = append(pairs, types.EcuPair{Source: msg.Source, Target: msg.Target})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lo.Uniq(pairs), nil
}

// EnforceSecurityPolicy always reports the message as compliant.
func (k Keeper) EnforceSecurityPolicy(_ context.Context, _ uint64) (bool, error) {
	return true, nil
}

// commandChecker loads the known-safe hashes once and returns a matcher over that set. An
// empty set accepts every command.
func (k Keeper) commandChecker(ctx context.Context) (func(string) (bool, error), error) {
	iter, err := k.KnownSafeCommands.Iterate(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate known safe commands: %w", err)
	}
	hashes, err := iter.Keys()
	if err != nil {
		return nil, errorsmod.Wrap(err, "known safe lookup")
	}

	if len(hashes) == 0 {
		return func(string) (bool, error) { return true, nil }, nil
	}
	safe := lo.SliceToMap(hashes, func(h string) (string, struct{}) { return h, struct{}{} })
	return func(command string) (bool, error) {
		_, ok := safe[types.HashCommand(command).Hex()]
		return ok, nil
	}, nil
}

// walkVerified calls fn for every verified message in id order. The records are read and
// the iterator released before fn runs, so fn may use the store.
func (k Keeper) walkVerified(ctx context.Context, fn func(id uint64, msg types.DecryptedMessage) error) error {
	iter, err := k.DecryptedMessages.Iterate(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to iterate decrypted messages: %w", err)
	}
	kvs, err := iter.KeyValues()
	if err != nil {
		return fmt.Errorf("failed to read decrypted messages: %w", err)
	}

	for _, kv := range kvs {
		if !kv.Value.IsVerified {
			continue
		}
		if err := fn(kv.Key, kv.Value); err != nil {
			return err
		}
	}
	return nil
}
