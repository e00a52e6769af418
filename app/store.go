package app

import (
	"context"

	corestore "cosmossdk.io/core/store"
	dbm "github.com/cosmos/cosmos-db"
)

// KVStoreService exposes a cosmos-db database as the key-value store the ledger collections
// are built on. Outside RunAtomic every context sees the same committed store.
type KVStoreService struct {
	db dbm.DB
}

var _ corestore.KVStoreService = KVStoreService{}

func NewKVStoreService(db dbm.DB) KVStoreService {
	return KVStoreService{db: db}
}

type batchKey struct{}

// pendingBatch collects the writes of one RunAtomic call. staged mirrors the batch so reads
// inside the call observe its own writes; a nil entry marks a delete.
type pendingBatch struct {
	batch  dbm.Batch
	staged map[string][]byte
}

func (s KVStoreService) OpenKVStore(ctx context.Context) corestore.KVStore {
	if b, ok := ctx.Value(batchKey{}).(*pendingBatch); ok {
		return batchedStore{kvStore: kvStore{db: s.db}, pending: b}
	}
	return kvStore{db: s.db}
}

// RunAtomic runs fn against a store whose writes are buffered in a single batch. The batch
// is written when fn returns nil and discarded otherwise. Nested calls join the outer batch.
func (s KVStoreService) RunAtomic(ctx context.Context, fn func(context.Context) error) error {
	if _, ok := ctx.Value(batchKey{}).(*pendingBatch); ok {
		return fn(ctx)
	}

	b := &pendingBatch{batch: s.db.NewBatch(), staged: make(map[string][]byte)}
	defer b.batch.Close()

	if err := fn(context.WithValue(ctx, batchKey{}, b)); err != nil {
		return err
	}
	return b.batch.WriteSync()
}

type kvStore struct {
	db dbm.DB
}

func (s kvStore) Get(key []byte) ([]byte, error) {
	return s.db.Get(key)
}

func (s kvStore) Has(key []byte) (bool, error) {
	return s.db.Has(key)
}

func (s kvStore) Set(key, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	return s.db.Set(key, value)
}

func (s kvStore) Delete(key []byte) error {
	return s.db.Delete(key)
}

func (s kvStore) Iterator(start, end []byte) (corestore.Iterator, error) {
	return s.db.Iterator(start, end)
}

func (s kvStore) ReverseIterator(start, end []byte) (corestore.Iterator, error) {
	return s.db.ReverseIterator(start, end)
}

// batchedStore reads through its staged writes and sends writes to the batch. Iterators see
// committed state only.
type batchedStore struct {
	kvStore
	pending *pendingBatch
}

func (s batchedStore) Get(key []byte) ([]byte, error) {
	if v, ok := s.pending.staged[string(key)]; ok {
		return v, nil
	}
	return s.kvStore.Get(key)
}

func (s batchedStore) Has(key []byte) (bool, error) {
	if v, ok := s.pending.staged[string(key)]; ok {
		return v != nil, nil
	}
	return s.kvStore.Has(key)
}

func (s batchedStore) Set(key, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	if err := s.pending.batch.Set(key, value); err != nil {
		return err
	}
	s.pending.staged[string(key)] = value
	return nil
}

func (s batchedStore) Delete(key []byte) error {
	if err := s.pending.batch.Delete(key); err != nil {
		return err
	}
	s.pending.staged[string(key)] = nil
	return nil
}
