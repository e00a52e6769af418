package keeper

import (
	"context"
	"errors"
	"fmt"

	"cosmossdk.io/collections"

	"github.com/pushchain/ecu-vault/x/ecuvault/types"
)

// GetData returns the bytes stored under key, or an empty slice when nothing is stored.
func (k Keeper) GetData(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, types.ErrEmptyKey
	}
	bz, err := k.Data.Get(ctx, key)
	if err != nil {
		if errors.Is(err, collections.ErrNotFound) {
			return []byte{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return bz, nil
}

// SetData overwrites the bytes stored under key. No schema is enforced.
func (k Keeper) SetData(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return types.ErrEmptyKey
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if value == nil {
		value = []byte{}
	}
	if err := k.Data.Set(ctx, key, value); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}

	event, err := types.NewDataSetEvent(types.DataSetEvent{Key: key, Size: len(value)})
	if err != nil {
		return err
	}
	k.emitEvent(ctx, event)
	return nil
}

// IsAvailable reports that the store accepts reads and writes.
func (k Keeper) IsAvailable(_ context.Context) bool {
	return true
}
