package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	flagHome   = "home"
	flagAPI    = "api"
	flagOutput = "output"

	envPrefix = "ECUVAULT"
)

// DefaultNodeHome is ~/.ecuvault, or the working directory when the home directory is unknown.
var DefaultNodeHome = func() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ecuvault"
	}
	return filepath.Join(home, ".ecuvault")
}()

func NewRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:           "ecuvaultd",
		Short:         "ECU message vault daemon and client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return v.BindPFlags(cmd.Flags())
		},
	}

	rootCmd.PersistentFlags().String(flagHome, DefaultNodeHome, "node home directory")
	rootCmd.PersistentFlags().String(flagAPI, "http://localhost:8080", "gateway API base URL")
	rootCmd.PersistentFlags().StringP(flagOutput, "o", OutputFormatYAML, "output format (yaml|json)")

	InitRootCmd(rootCmd, v) // add subcommands like `start` and `version`

	return rootCmd
}
