package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	configSubdir   = "config"
	configFileName = "ecuvault_config.json"
)

//go:embed default_config.json
var defaultConfigJSON []byte

func validateConfig(cfg *Config) error {
	// Validate log level
	if cfg.LogLevel < 0 || cfg.LogLevel > 5 {
		return fmt.Errorf("log level must be between 0 and 5")
	}

	// Validate log format
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return fmt.Errorf("log format must be 'json' or 'console'")
	}
	if cfg.LogFile != "" {
		if cfg.LogMaxSizeMB == 0 {
			cfg.LogMaxSizeMB = 100
		}
		if cfg.LogMaxBackups == 0 {
			cfg.LogMaxBackups = 5
		}
	}

	// Set defaults for storage
	if cfg.LedgerDBBackend == "" {
		cfg.LedgerDBBackend = LedgerDBBackendGoLevelDB
	}
	if cfg.LedgerDBBackend != LedgerDBBackendGoLevelDB && cfg.LedgerDBBackend != LedgerDBBackendMemDB {
		return fmt.Errorf("ledger db backend must be 'goleveldb' or 'memdb'")
	}
	if cfg.GatewayDBJournal == "" {
		cfg.GatewayDBJournal = "WAL"
	}
	switch strings.ToUpper(cfg.GatewayDBJournal) {
	case "WAL", "DELETE", "TRUNCATE":
		cfg.GatewayDBJournal = strings.ToUpper(cfg.GatewayDBJournal)
	default:
		return fmt.Errorf("gateway db journal must be 'WAL', 'DELETE' or 'TRUNCATE'")
	}
	if cfg.GatewayDBBusyMs == 0 {
		cfg.GatewayDBBusyMs = 5000
	}
	if cfg.GatewayDBBusyMs < 0 {
		return fmt.Errorf("gateway db busy timeout must be positive")
	}

	// Set defaults for API server
	if cfg.APIServerPort == 0 {
		cfg.APIServerPort = 8080
	}
	if cfg.APIServerPort < 0 || cfg.APIServerPort > 65535 {
		return fmt.Errorf("api server port must be between 1 and 65535")
	}

	// Set defaults for relayer
	if cfg.RelayerPollIntervalSeconds == 0 {
		cfg.RelayerPollIntervalSeconds = 2
	}
	if cfg.RelayerBatchSize == 0 {
		cfg.RelayerBatchSize = 50
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoffSeconds == 0 {
		cfg.RetryBackoffSeconds = 1
	}

	// Set defaults for request cleanup
	if cfg.CleanupIntervalSeconds == 0 {
		cfg.CleanupIntervalSeconds = 3600
	}
	if cfg.RetentionPeriodSeconds == 0 {
		cfg.RetentionPeriodSeconds = 86400
	}

	// Validate KMS
	if cfg.KMSThreshold == 0 {
		cfg.KMSThreshold = 1
	}
	if cfg.KMSThreshold < 0 {
		return fmt.Errorf("kms threshold must be positive")
	}
	if len(cfg.KMSSignerKeys) > 0 && cfg.KMSThreshold > len(cfg.KMSSignerKeys) {
		return fmt.Errorf("kms threshold %d exceeds %d signer keys", cfg.KMSThreshold, len(cfg.KMSSignerKeys))
	}

	// Initialize KnownSafeCommands from the embedded defaults if unset
	if cfg.KnownSafeCommands == nil {
		var defaultCfg Config
		if err := json.Unmarshal(defaultConfigJSON, &defaultCfg); err == nil && defaultCfg.KnownSafeCommands != nil {
			cfg.KnownSafeCommands = defaultCfg.KnownSafeCommands
		} else {
			cfg.KnownSafeCommands = []string{}
		}
	}

	return nil
}

// Validate checks cfg and fills in defaults.
func Validate(cfg *Config) error {
	return validateConfig(cfg)
}

// Save writes the given config to <NodeDir>/config/ecuvault_config.json.
func Save(cfg *Config, basePath string) error {
	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	configDir := filepath.Join(basePath, configSubdir)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := filepath.Join(configDir, configFileName)
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Load reads and returns the config from <BasePath>/config/ecuvault_config.json.
func Load(basePath string) (Config, error) {
	configFile := filepath.Join(basePath, configSubdir, configFileName)
	data, err := os.ReadFile(filepath.Clean(configFile))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// LoadDefaultConfig loads the default configuration from embedded JSON
func LoadDefaultConfig() (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(defaultConfigJSON, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal default config: %w", err)
	}
	return &cfg, nil
}
