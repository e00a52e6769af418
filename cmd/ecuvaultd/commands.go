package main

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pushchain/ecu-vault/gateway/config"
	"github.com/pushchain/ecu-vault/gateway/core"
	"github.com/pushchain/ecu-vault/gateway/fhe"
	"github.com/pushchain/ecu-vault/gateway/logger"
)

// Set via -ldflags at build time.
var (
	Version = "dev"
	Commit  = ""
)

func InitRootCmd(rootCmd *cobra.Command, v *viper.Viper) {
	rootCmd.AddCommand(initCmd(v))
	rootCmd.AddCommand(startCmd(v))
	rootCmd.AddCommand(versionCmd())

	rootCmd.AddCommand(
		encryptCmd(v),
		messagesCmd(v),
		ecusCmd(v),
		analyticsCmd(v),
		kvCmd(v),
		requestCmd(v),
		eventsCmd(v),
		firmwareCmd(v),
		dashboardCmd(v),
	)
}

func initCmd(v *viper.Viper) *cobra.Command {
	var (
		signers   int
		threshold int
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config with fresh KMS signer keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := v.GetString(flagHome)
			if _, err := config.Load(home); err == nil && !force {
				return fmt.Errorf("config already exists in %s (use --force to overwrite)", home)
			}

			cfg, err := config.LoadDefaultConfig()
			if err != nil {
				return err
			}
			cfg.NodeHome = home
			cfg.KMSThreshold = threshold

			keys, err := fhe.GenerateSignerKeys(signers)
			if err != nil {
				return err
			}
			cfg.KMSSignerKeys = encodeKeys(keys)

			if err := config.Save(cfg, home); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "initialized %s with %d kms signers (threshold %d)\n", home, signers, threshold)
			return nil
		},
	}

	cmd.Flags().IntVar(&signers, "signers", 1, "number of KMS signer keys to generate")
	cmd.Flags().IntVar(&threshold, "threshold", 1, "signatures required on a decryption proof")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}

func encodeKeys(keys []*ecdsa.PrivateKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = hexutil.Encode(crypto.FromECDSA(k))
	}
	return out
}

func startCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the ledger, FHE gateway and API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := v.GetString(flagHome)
			cfg, err := config.Load(home)
			if err != nil {
				return fmt.Errorf("%w (run `ecuvaultd init` first)", err)
			}
			if cfg.NodeHome == "" {
				cfg.NodeHome = home
			}
			if v.IsSet("api-port") {
				cfg.APIServerPort = v.GetInt("api-port")
			}
			if v.IsSet("log-level") {
				cfg.LogLevel = v.GetInt("log-level")
			}
			if err := config.Validate(&cfg); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			log := logger.Init(cfg)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			node, err := core.NewNode(ctx, &cfg, log)
			if err != nil {
				return err
			}
			if err := node.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			log.Info().Msg("shutdown signal received")
			return node.Stop()
		},
	}

	cmd.Flags().Int("api-port", 0, "override the API server port")
	cmd.Flags().Int("log-level", 0, "override the log level (0=debug .. 5=panic)")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print ecuvaultd version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Name:       %s\n", "ecuvaultd")
			fmt.Fprintf(cmd.OutOrStdout(), "Version:    %s\n", Version)
			fmt.Fprintf(cmd.OutOrStdout(), "Commit:     %s\n", Commit)
		},
	}
}
