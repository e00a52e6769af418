package keeper

import (
	"context"
	"fmt"

	"github.com/pushchain/ecu-vault/x/ecuvault/types"
)

// SubmitMessage stores a new encrypted command record and returns its id. Ids start at 1.
// The handles are stored as given; no format or capability check is made.
func (k Keeper) SubmitMessage(ctx context.Context, command, source, target types.Handle) (uint64, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	var msg types.EncryptedMessage
	err := k.writeAll(ctx, func(ctx context.Context) error {
		last, err := k.MessageCount.Next(ctx)
		if err != nil {
			return fmt.Errorf("failed to generate message id: %w", err)
		}
		msg = types.EncryptedMessage{
			ID:        last + 1,
			Command:   command,
			Source:    source,
			Target:    target,
			Timestamp: k.now().Unix(),
		}
		if err := k.EncryptedMessages.Set(ctx, msg.ID, msg); err != nil {
			return fmt.Errorf("failed to store message %d: %w", msg.ID, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	id := msg.ID

	event, err := types.NewMessageReceivedEvent(types.MessageReceivedEvent{
		MessageID: id,
		Timestamp: msg.Timestamp,
	})
	if err != nil {
		return 0, err
	}
	k.emitEvent(ctx, event)

	k.Logger().Info("ECU message received", "id", id, "timestamp", msg.Timestamp)

	return id, nil
}
