package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfig(t *testing.T) {
	testCases := []struct {
		name        string
		config      *Config
		expectError bool
		errorMsg    string
		validate    func(t *testing.T, cfg *Config)
	}{
		{
			name: "Valid config with all fields",
			config: &Config{
				LogLevel:                   2,
				LogFormat:                  "json",
				LedgerDBBackend:            LedgerDBBackendMemDB,
				APIServerPort:              9000,
				RelayerPollIntervalSeconds: 1,
				RelayerBatchSize:           10,
				MaxRetries:                 5,
				RetryBackoffSeconds:        2,
				KMSSignerKeys:              []string{"a", "b"},
				KMSThreshold:               2,
			},
			expectError: false,
		},
		{
			name: "Invalid log level (negative)",
			config: &Config{
				LogLevel:  -1,
				LogFormat: "json",
			},
			expectError: true,
			errorMsg:    "log level must be between 0 and 5",
		},
		{
			name: "Invalid log level (too high)",
			config: &Config{
				LogLevel:  6,
				LogFormat: "json",
			},
			expectError: true,
			errorMsg:    "log level must be between 0 and 5",
		},
		{
			name: "Invalid log format",
			config: &Config{
				LogLevel:  2,
				LogFormat: "xml",
			},
			expectError: true,
			errorMsg:    "log format must be 'json' or 'console'",
		},
		{
			name: "Invalid ledger backend",
			config: &Config{
				LogFormat:       "json",
				LedgerDBBackend: "rocksdb",
			},
			expectError: true,
			errorMsg:    "ledger db backend must be 'goleveldb' or 'memdb'",
		},
		{
			name: "Invalid gateway journal mode",
			config: &Config{
				LogFormat:        "json",
				GatewayDBJournal: "MEMORY",
			},
			expectError: true,
			errorMsg:    "gateway db journal must be",
		},
		{
			name: "Gateway journal mode is normalized",
			config: &Config{
				LogFormat:        "json",
				GatewayDBJournal: "delete",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "DELETE", cfg.GatewayDBJournal)
			},
		},
		{
			name: "Threshold above signer count",
			config: &Config{
				LogFormat:     "json",
				KMSSignerKeys: []string{"a"},
				KMSThreshold:  2,
			},
			expectError: true,
			errorMsg:    "kms threshold 2 exceeds 1 signer keys",
		},
		{
			name: "Config with defaults applied",
			config: &Config{
				LogLevel:  2,
				LogFormat: "json",
			},
			expectError: false,
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, LedgerDBBackendGoLevelDB, cfg.LedgerDBBackend)
				assert.Equal(t, "WAL", cfg.GatewayDBJournal)
				assert.Equal(t, 5000, cfg.GatewayDBBusyMs)
				assert.Equal(t, 8080, cfg.APIServerPort)
				assert.Equal(t, 2*time.Second, cfg.RelayerPollInterval())
				assert.Equal(t, 50, cfg.RelayerBatchSize)
				assert.Equal(t, 3, cfg.MaxRetries)
				assert.Equal(t, time.Second, cfg.RetryBackoff())
				assert.Equal(t, 1, cfg.KMSThreshold)
				assert.NotNil(t, cfg.KnownSafeCommands)

				interval, retention := cfg.CleanupSettings()
				assert.Equal(t, time.Hour, interval)
				assert.Equal(t, 24*time.Hour, retention)
			},
		},
		{
			name: "Log file gets rotation defaults",
			config: &Config{
				LogFormat: "console",
				LogFile:   "/tmp/ecuvault.log",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 100, cfg.LogMaxSizeMB)
				assert.Equal(t, 5, cfg.LogMaxBackups)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateConfig(tc.config)

			if tc.expectError {
				require.Error(t, err)
				if tc.errorMsg != "" {
					assert.Contains(t, err.Error(), tc.errorMsg)
				}
				return
			}

			require.NoError(t, err)
			if tc.validate != nil {
				tc.validate(t, tc.config)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	home := t.TempDir()

	cfg := &Config{
		LogLevel:          1,
		LogFormat:         "json",
		NodeHome:          home,
		APIServerPort:     9191,
		KnownSafeCommands: []string{"SET_TORQUE"},
	}
	require.NoError(t, Save(cfg, home))

	info, err := os.Stat(filepath.Join(home, configSubdir, configFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load(home)
	require.NoError(t, err)
	assert.Equal(t, 9191, loaded.APIServerPort)
	assert.Equal(t, []string{"SET_TORQUE"}, loaded.KnownSafeCommands)
	assert.Equal(t, 3, loaded.MaxRetries)
}

func TestSaveRejectsInvalidConfig(t *testing.T) {
	err := Save(&Config{LogFormat: "xml"}, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadDefaultConfig(t *testing.T) {
	cfg, err := LoadDefaultConfig()
	require.NoError(t, err)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, LedgerDBBackendGoLevelDB, cfg.LedgerDBBackend)
	assert.True(t, cfg.MetricsEnabled)
	require.NoError(t, validateConfig(cfg))
}
