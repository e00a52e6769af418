package api

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pushchain/ecu-vault/gateway/fhe"
	"github.com/pushchain/ecu-vault/x/ecuvault/types"
)

// MockLedger implements Ledger for testing
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) SubmitMessage(ctx context.Context, command, source, target types.Handle) (uint64, error) {
	args := m.Called(ctx, command, source, target)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockLedger) RequestVerification(ctx context.Context, messageID uint64) (uint64, error) {
	args := m.Called(ctx, messageID)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockLedger) RequestAggregateDecryption(ctx context.Context, ecuName string) (uint64, error) {
	args := m.Called(ctx, ecuName)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockLedger) GetEncryptedMessage(ctx context.Context, messageID uint64) (types.EncryptedMessage, error) {
	args := m.Called(ctx, messageID)
	return args.Get(0).(types.EncryptedMessage), args.Error(1)
}

func (m *MockLedger) GetDecryptedMessage(ctx context.Context, messageID uint64) (types.DecryptedMessage, error) {
	args := m.Called(ctx, messageID)
	return args.Get(0).(types.DecryptedMessage), args.Error(1)
}

func (m *MockLedger) GetMessageStatus(ctx context.Context, messageID uint64) (types.MessageStatus, error) {
	args := m.Called(ctx, messageID)
	return args.Get(0).(types.MessageStatus), args.Error(1)
}

func (m *MockLedger) GetMessageCount(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockLedger) ListMessages(ctx context.Context, limit int) ([]types.EncryptedMessage, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]types.EncryptedMessage), args.Error(1)
}

func (m *MockLedger) GetEcuNames(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockLedger) GetEcuAggregate(ctx context.Context, ecuName string) (types.Handle, error) {
	args := m.Called(ctx, ecuName)
	return args.Get(0).(types.Handle), args.Error(1)
}

func (m *MockLedger) ValidateCommand(ctx context.Context, messageID uint64) (bool, error) {
	args := m.Called(ctx, messageID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedger) DetectAnomalousCommands(ctx context.Context) ([]uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).([]uint64), args.Error(1)
}

func (m *MockLedger) CalculateEcuTrustScore(ctx context.Context, ecuName string) (uint64, error) {
	args := m.Called(ctx, ecuName)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockLedger) IdentifySuspiciousEcuPairs(ctx context.Context) ([]types.EcuPair, error) {
	args := m.Called(ctx)
	return args.Get(0).([]types.EcuPair), args.Error(1)
}

func (m *MockLedger) GetKnownSafeCommands(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockLedger) AddKnownSafeCommand(ctx context.Context, command string) error {
	return m.Called(ctx, command).Error(0)
}

func (m *MockLedger) GetData(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockLedger) SetData(ctx context.Context, key string, value []byte) error {
	return m.Called(ctx, key, value).Error(0)
}

func (m *MockLedger) IsAvailable(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

// MockEncrypter implements Encrypter for testing
type MockEncrypter struct {
	mock.Mock
}

func (m *MockEncrypter) Encrypt(ctx context.Context, value fhe.Plaintext) (types.Handle, error) {
	args := m.Called(ctx, value)
	return args.Get(0).(types.Handle), args.Error(1)
}

// mapKV is an in-memory firmware.KVStore
type mapKV map[string][]byte

func (m mapKV) GetData(_ context.Context, key string) ([]byte, error) { return m[key], nil }

func (m mapKV) SetData(_ context.Context, key string, value []byte) error {
	m[key] = value
	return nil
}

func (m mapKV) IsAvailable(context.Context) bool { return true }
