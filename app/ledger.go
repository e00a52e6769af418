package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"cosmossdk.io/log"
	dbm "github.com/cosmos/cosmos-db"

	"github.com/pushchain/ecu-vault/x/ecuvault/keeper"
	"github.com/pushchain/ecu-vault/x/ecuvault/types"
)

const (
	// LedgerDBName is the database name under <home>/data.
	LedgerDBName = "ecuvault"

	// MemDBBackend keeps the ledger in memory only.
	MemDBBackend = "memdb"
)

// Ledger owns the ledger database and the keeper built on it.
type Ledger struct {
	db     dbm.DB
	Keeper keeper.Keeper
}

// LedgerOptions configures OpenLedger.
type LedgerOptions struct {
	// Home is the node home directory; the database lives in <Home>/data.
	Home string
	// Backend is a cosmos-db backend name ("goleveldb", "memdb", ...).
	Backend string
	Logger  log.Logger
	FHE     types.FHEExecutor
	Oracle  types.DecryptionOracle
	Genesis *types.GenesisState
	Options []keeper.Option
}

// OpenDB opens the ledger database for the given backend.
func OpenDB(home, backend string) (dbm.DB, error) {
	if backend == "" || backend == MemDBBackend {
		return dbm.NewMemDB(), nil
	}
	dir := filepath.Join(home, "data")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := dbm.NewDB(LedgerDBName, dbm.BackendType(backend), dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger db: %w", err)
	}
	return db, nil
}

// OpenLedger opens the database, builds the keeper and applies genesis on first start.
func OpenLedger(ctx context.Context, opts LedgerOptions) (*Ledger, error) {
	if opts.FHE == nil || opts.Oracle == nil {
		return nil, fmt.Errorf("ledger requires an fhe executor and a decryption oracle")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}

	db, err := OpenDB(opts.Home, opts.Backend)
	if err != nil {
		return nil, err
	}

	k := keeper.NewKeeper(NewKVStoreService(db), logger, opts.FHE, opts.Oracle, opts.Options...)

	genesis := opts.Genesis
	if genesis == nil {
		genesis = types.DefaultGenesis()
	}
	if err := initGenesisOnce(ctx, k, genesis); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Ledger{db: db, Keeper: k}, nil
}

// initGenesisOnce seeds state only while the ledger is empty, so restarts keep any
// known-safe commands added at runtime.
func initGenesisOnce(ctx context.Context, k keeper.Keeper, genesis *types.GenesisState) error {
	count, err := k.GetMessageCount(ctx)
	if err != nil {
		return err
	}
	existing, err := k.GetKnownSafeCommands(ctx)
	if err != nil {
		return err
	}
	if count > 0 || len(existing) > 0 {
		return nil
	}
	if err := k.InitGenesis(ctx, genesis); err != nil {
		return fmt.Errorf("failed to init genesis: %w", err)
	}
	return nil
}

// Close releases the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
