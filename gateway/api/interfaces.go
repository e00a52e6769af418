package api

import (
	"context"

	"github.com/pushchain/ecu-vault/firmware"
	"github.com/pushchain/ecu-vault/gateway/eventstore"
	"github.com/pushchain/ecu-vault/gateway/fhe"
	"github.com/pushchain/ecu-vault/gateway/store"
	"github.com/pushchain/ecu-vault/x/ecuvault/types"
)

// Ledger defines the ledger operations exposed by the API server
type Ledger interface {
	SubmitMessage(ctx context.Context, command, source, target types.Handle) (uint64, error)
	RequestVerification(ctx context.Context, messageID uint64) (uint64, error)
	RequestAggregateDecryption(ctx context.Context, ecuName string) (uint64, error)

	GetEncryptedMessage(ctx context.Context, messageID uint64) (types.EncryptedMessage, error)
	GetDecryptedMessage(ctx context.Context, messageID uint64) (types.DecryptedMessage, error)
	GetMessageStatus(ctx context.Context, messageID uint64) (types.MessageStatus, error)
	GetMessageCount(ctx context.Context) (uint64, error)
	ListMessages(ctx context.Context, limit int) ([]types.EncryptedMessage, error)
	GetEcuNames(ctx context.Context) ([]string, error)
	GetEcuAggregate(ctx context.Context, ecuName string) (types.Handle, error)

	ValidateCommand(ctx context.Context, messageID uint64) (bool, error)
	DetectAnomalousCommands(ctx context.Context) ([]uint64, error)
	CalculateEcuTrustScore(ctx context.Context, ecuName string) (uint64, error)
	IdentifySuspiciousEcuPairs(ctx context.Context) ([]types.EcuPair, error)
	GetKnownSafeCommands(ctx context.Context) ([]string, error)
	AddKnownSafeCommand(ctx context.Context, command string) error

	firmware.KVStore
}

// Encrypter turns plaintext inputs into ciphertext handles
type Encrypter interface {
	Encrypt(ctx context.Context, value fhe.Plaintext) (types.Handle, error)
}

// Requests looks up oracle requests
type Requests interface {
	Get(ctx context.Context, requestID uint64) (store.DecryptionRequest, error)
}

// FirmwareRegistry manages firmware records
type FirmwareRegistry interface {
	Upload(ctx context.Context, req firmware.UploadRequest) (firmware.Record, error)
	MarkVerified(ctx context.Context, id string) (firmware.Record, error)
	MarkRejected(ctx context.Context, id string) (firmware.Record, error)
	Get(ctx context.Context, id string) (firmware.Record, error)
	List(ctx context.Context, f firmware.Filter) (firmware.Page, error)
	Stats(ctx context.Context) (firmware.Stats, error)
}

// Events lists persisted ledger events
type Events interface {
	List(ctx context.Context, f eventstore.Filter) ([]eventstore.Record, error)
}
