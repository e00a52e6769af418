package keeper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cosmossdk.io/collections"
	storetypes "cosmossdk.io/core/store"
	"cosmossdk.io/log"

	"github.com/pushchain/ecu-vault/x/ecuvault/types"
)

type Keeper struct {
	logger log.Logger
	schema collections.Schema

	// Message State
	MessageCount      collections.Sequence                            // id of the last submitted message
	EncryptedMessages collections.Map[uint64, types.EncryptedMessage] // message id → encrypted record
	DecryptedMessages collections.Map[uint64, types.DecryptedMessage] // message id → decrypted record (written once)
	PendingRequests   collections.Map[uint64, []byte]                 // oracle request id → request target word

	// ECU State
	EcuAggregates collections.Map[string, []byte] // ECU name → encrypted counter handle
	EcuNameCount  collections.Sequence            // number of registered ECU names
	EcuNames      collections.Map[uint64, string] // registry index → ECU name

	// Analytics and client storage
	KnownSafeCommands collections.Map[string, string] // keccak256(command) → command
	Data              collections.Map[string, []byte] // generic key-value entries

	fhe    types.FHEExecutor
	oracle types.DecryptionOracle
	events types.EventSink
	now    func() time.Time
	atomic atomicStore

	// transitions run one at a time
	mu *sync.Mutex
}

// atomicStore is implemented by store services that commit a group of writes together.
type atomicStore interface {
	RunAtomic(ctx context.Context, fn func(context.Context) error) error
}

// Option customizes a Keeper at construction.
type Option func(*Keeper)

// WithClock overrides the ledger time source.
func WithClock(now func() time.Time) Option {
	return func(k *Keeper) {
		k.now = now
	}
}

// WithEventSink routes emitted events to sink.
func WithEventSink(sink types.EventSink) Option {
	return func(k *Keeper) {
		k.events = sink
	}
}

// NewKeeper creates a new Keeper instance
func NewKeeper(
	storeService storetypes.KVStoreService,
	logger log.Logger,
	fhe types.FHEExecutor,
	oracle types.DecryptionOracle,
	opts ...Option,
) Keeper {
	logger = logger.With(log.ModuleKey, "x/"+types.ModuleName)

	sb := collections.NewSchemaBuilder(storeService)

	k := Keeper{
		logger: logger,

		MessageCount:      collections.NewSequence(sb, types.MessageCountKey, types.MessageCountName),
		EncryptedMessages: collections.NewMap(sb, types.EncryptedMessagesKey, types.EncryptedMessagesName, collections.Uint64Key, types.JSONValue[types.EncryptedMessage]()),
		DecryptedMessages: collections.NewMap(sb, types.DecryptedMessagesKey, types.DecryptedMessagesName, collections.Uint64Key, types.JSONValue[types.DecryptedMessage]()),
		PendingRequests:   collections.NewMap(sb, types.PendingRequestsKey, types.PendingRequestsName, collections.Uint64Key, collections.BytesValue),

		EcuAggregates: collections.NewMap(sb, types.EcuAggregatesKey, types.EcuAggregatesName, collections.StringKey, collections.BytesValue),
		EcuNameCount:  collections.NewSequence(sb, types.EcuNameCountKey, types.EcuNameCountName),
		EcuNames:      collections.NewMap(sb, types.EcuNamesKey, types.EcuNamesName, collections.Uint64Key, collections.StringValue),

		KnownSafeCommands: collections.NewMap(sb, types.KnownSafeCommandsKey, types.KnownSafeCommandsName, collections.StringKey, collections.StringValue),
		Data:              collections.NewMap(sb, types.DataKey, types.DataName, collections.StringKey, collections.BytesValue),

		fhe:    fhe,
		oracle: oracle,
		events: types.NopEventSink{},
		now:    time.Now,
		mu:     &sync.Mutex{},
	}

	if as, ok := storeService.(atomicStore); ok {
		k.atomic = as
	}

	for _, opt := range opts {
		opt(&k)
	}

	schema, err := sb.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build %s schema: %v", types.ModuleName, err))
	}
	k.schema = schema

	return k
}

func (k Keeper) Logger() log.Logger {
	return k.logger
}

func (k Keeper) Schema() collections.Schema {
	return k.schema
}

// InitGenesis initializes the module's state from a genesis state.
func (k Keeper) InitGenesis(ctx context.Context, data *types.GenesisState) error {
	if err := data.Validate(); err != nil {
		return err
	}

	for _, cmd := range data.KnownSafeCommands {
		if err := k.KnownSafeCommands.Set(ctx, types.HashCommand(cmd).Hex(), cmd); err != nil {
			return fmt.Errorf("failed to seed known safe command: %w", err)
		}
	}
	return nil
}

// ExportGenesis exports the module's state to a genesis state.
func (k Keeper) ExportGenesis(ctx context.Context) (*types.GenesisState, error) {
	cmds, err := k.GetKnownSafeCommands(ctx)
	if err != nil {
		return nil, err
	}
	return &types.GenesisState{KnownSafeCommands: cmds}, nil
}

func (k Keeper) emitEvent(ctx context.Context, event types.Event) {
	k.events.EmitEvent(ctx, event)
}

// writeAll runs the writes of one transition so they land together or not at all. Stores
// without batch support apply them one by one.
func (k Keeper) writeAll(ctx context.Context, fn func(context.Context) error) error {
	if k.atomic == nil {
		return fn(ctx)
	}
	return k.atomic.RunAtomic(ctx, fn)
}
