package config

import "time"

// LedgerDBBackend names the cosmos-db backend holding ledger state.
type LedgerDBBackend string

const (
	// LedgerDBBackendGoLevelDB persists the ledger under <node_home>/data.
	LedgerDBBackendGoLevelDB LedgerDBBackend = "goleveldb"

	// LedgerDBBackendMemDB keeps the ledger in memory (lost on restart)
	LedgerDBBackendMemDB LedgerDBBackend = "memdb"
)

type Config struct {
	// Log Config
	LogLevel      int    `json:"log_level"`       // e.g., 0 = debug, 1 = info, etc.
	LogFormat     string `json:"log_format"`      // "json" or "console"
	LogSampler    bool   `json:"log_sampler"`     // if true, samples logs (e.g., 1 in 5)
	LogFile       string `json:"log_file"`        // optional rolling log file, in addition to stdout
	LogMaxSizeMB  int    `json:"log_max_size_mb"` // rotate after this size (default: 100)
	LogMaxBackups int    `json:"log_max_backups"` // rotated files to keep (default: 5)

	// Node Config
	NodeHome string `json:"node_home"` // Node home directory (default: ~/.ecuvault)

	// Storage
	LedgerDBBackend   LedgerDBBackend `json:"ledger_db_backend"`    // goleveldb or memdb (default: goleveldb)
	GatewayInMemoryDB bool            `json:"gateway_in_memory_db"` // keep ciphertexts and requests in memory only
	GatewayDBJournal  string          `json:"gateway_db_journal"`   // sqlite journal mode: WAL, DELETE or TRUNCATE (default: WAL)
	GatewayDBBusyMs   int             `json:"gateway_db_busy_ms"`   // sqlite busy timeout in milliseconds (default: 5000)

	// API Server Config
	APIServerPort  int  `json:"api_server_port"` // Port for HTTP API server (default: 8080)
	MetricsEnabled bool `json:"metrics_enabled"` // expose /metrics

	// Relayer Config
	RelayerPollIntervalSeconds int `json:"relayer_poll_interval_seconds"` // How often pending requests are delivered (default: 2)
	RelayerBatchSize           int `json:"relayer_batch_size"`            // Requests delivered per tick (default: 50)
	MaxRetries                 int `json:"max_retries"`                   // Delivery attempts on transient failures (default: 3)
	RetryBackoffSeconds        int `json:"retry_backoff_seconds"`         // Initial backoff between attempts (default: 1)

	// Request cleanup
	CleanupIntervalSeconds int `json:"cleanup_interval_seconds"` // How often to run cleanup (default: 3600)
	RetentionPeriodSeconds int `json:"retention_period_seconds"` // How long to keep finished requests (default: 86400)

	// KMS configuration
	KMSSignerKeys []string `json:"kms_signer_keys"` // hex secp256k1 private keys; generated at startup when empty
	KMSThreshold  int      `json:"kms_threshold"`   // signatures required on a decryption proof (default: 1)

	// Ledger genesis
	KnownSafeCommands []string `json:"known_safe_commands"` // seeds the known-safe registry on first start
}

// RelayerPollInterval returns the relayer tick as a duration.
func (c *Config) RelayerPollInterval() time.Duration {
	return time.Duration(c.RelayerPollIntervalSeconds) * time.Second
}

// RetryBackoff returns the initial retry backoff as a duration.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffSeconds) * time.Second
}

// CleanupSettings returns the cleaner interval and retention.
func (c *Config) CleanupSettings() (interval, retention time.Duration) {
	return time.Duration(c.CleanupIntervalSeconds) * time.Second,
		time.Duration(c.RetentionPeriodSeconds) * time.Second
}
