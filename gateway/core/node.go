// Package core assembles the ledger and the gateway services into one node.
package core

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"net"
	"sync"

	"cosmossdk.io/log"
	"github.com/rs/zerolog"

	"github.com/pushchain/ecu-vault/app"
	"github.com/pushchain/ecu-vault/firmware"
	"github.com/pushchain/ecu-vault/gateway/api"
	"github.com/pushchain/ecu-vault/gateway/config"
	"github.com/pushchain/ecu-vault/gateway/db"
	"github.com/pushchain/ecu-vault/gateway/eventstore"
	"github.com/pushchain/ecu-vault/gateway/fhe"
	"github.com/pushchain/ecu-vault/gateway/metrics"
	"github.com/pushchain/ecu-vault/gateway/relayer"
	"github.com/pushchain/ecu-vault/x/ecuvault/keeper"
	"github.com/pushchain/ecu-vault/x/ecuvault/types"
)

// Node runs the ledger together with its FHE coprocessor, decryption oracle and HTTP API.
type Node struct {
	cfg *config.Config
	log zerolog.Logger

	gatewayDB *db.DB
	ledger    *app.Ledger

	Coprocessor *fhe.Coprocessor
	KMS         *fhe.KMS
	Relayer     *relayer.Relayer
	Events      *eventstore.Store
	Firmware    *firmware.Registry
	Metrics     *metrics.Metrics

	api       *api.Server
	cleaner   *db.RequestCleaner
	closeOnce sync.Once
}

// NewNode opens both databases and wires every component. Nothing runs until Start.
func NewNode(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (_ *Node, err error) {
	n := &Node{
		cfg:     cfg,
		log:     logger.With().Str("component", "node").Logger(),
		Metrics: metrics.New(),
	}
	defer func() {
		if err != nil {
			n.close()
		}
	}()

	n.gatewayDB, err = db.Open(db.OptionsFromConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open gateway db: %w", err)
	}

	keys, err := n.signerKeys()
	if err != nil {
		return nil, err
	}
	n.KMS, err = fhe.NewKMS(keys, max(cfg.KMSThreshold, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to build kms: %w", err)
	}

	n.Coprocessor = fhe.NewCoprocessor(n.gatewayDB, logger)
	n.Relayer = relayer.New(n.gatewayDB, n.Coprocessor, n.KMS, cfg, n.Metrics, logger)
	n.Events = eventstore.NewStore(n.gatewayDB.Client(), n.Metrics, logger)

	n.ledger, err = app.OpenLedger(ctx, app.LedgerOptions{
		Home:    cfg.NodeHome,
		Backend: string(cfg.LedgerDBBackend),
		Logger:  log.NewCustomLogger(logger),
		FHE:     n.Coprocessor,
		Oracle:  n.Relayer,
		Genesis: &types.GenesisState{KnownSafeCommands: cfg.KnownSafeCommands},
		Options: []keeper.Option{keeper.WithEventSink(n.Events)},
	})
	if err != nil {
		return nil, err
	}
	n.Relayer.Bind(n.ledger.Keeper)

	n.Firmware = firmware.NewRegistry(n.ledger.Keeper, logger)
	n.cleaner = db.NewRequestCleaner(n.gatewayDB, cfg, logger)

	deps := api.Deps{
		Ledger:    n.ledger.Keeper,
		Encrypter: n.Coprocessor,
		Requests:  n.Relayer,
		Firmware:  n.Firmware,
		Events:    n.Events,
	}
	if cfg.MetricsEnabled {
		deps.Metrics = n.Metrics
	}
	n.api = api.NewServer(deps, logger, cfg.APIServerPort)

	return n, nil
}

func (n *Node) signerKeys() ([]*ecdsa.PrivateKey, error) {
	if len(n.cfg.KMSSignerKeys) > 0 {
		keys, err := fhe.ParseSignerKeys(n.cfg.KMSSignerKeys)
		if err != nil {
			return nil, fmt.Errorf("failed to parse kms signer keys: %w", err)
		}
		return keys, nil
	}

	keys, err := fhe.GenerateSignerKeys(max(n.cfg.KMSThreshold, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to generate kms signer keys: %w", err)
	}
	n.log.Warn().Int("signers", len(keys)).Msg("no kms signer keys configured, using ephemeral keys")
	return keys, nil
}

// Keeper returns the ledger keeper.
func (n *Node) Keeper() keeper.Keeper {
	return n.ledger.Keeper
}

// APIAddr returns the address the API server is bound to, or nil before Start.
func (n *Node) APIAddr() net.Addr {
	return n.api.Addr()
}

// Start launches the relayer, the request cleaner and the API server.
func (n *Node) Start(ctx context.Context) error {
	n.log.Info().Msg("starting ecu-vault node")

	if err := n.Relayer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start relayer: %w", err)
	}
	if err := n.cleaner.Start(ctx); err != nil {
		n.Relayer.Stop()
		return fmt.Errorf("failed to start request cleaner: %w", err)
	}
	if err := n.api.Start(); err != nil {
		n.cleaner.Stop()
		n.Relayer.Stop()
		return fmt.Errorf("failed to start api server: %w", err)
	}

	n.log.Info().
		Strs("kms_signers", signerHex(n.KMS)).
		Int("kms_threshold", n.KMS.Threshold()).
		Msg("node started")
	return nil
}

// Stop shuts every service down and closes the databases. It is safe after a failed Start
// and on repeated calls.
func (n *Node) Stop() error {
	n.log.Info().Msg("stopping ecu-vault node")

	err := n.api.Stop()
	n.cleaner.Stop()
	n.Relayer.Stop()
	n.close()
	return err
}

func (n *Node) close() {
	n.closeOnce.Do(n.closeDatabases)
}

func (n *Node) closeDatabases() {
	if n.ledger != nil {
		if err := n.ledger.Close(); err != nil {
			n.log.Error().Err(err).Msg("failed to close ledger db")
		}
	}
	if n.gatewayDB != nil {
		if err := n.gatewayDB.Close(); err != nil {
			n.log.Error().Err(err).Msg("failed to close gateway db")
		}
	}
}

func signerHex(k *fhe.KMS) []string {
	signers := k.Signers()
	out := make([]string, len(signers))
	for i, s := range signers {
		out[i] = s.Hex()
	}
	return out
}
