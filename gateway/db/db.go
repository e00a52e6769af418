// Package db opens the gateway's SQLite database through GORM. It holds coprocessor
// ciphertexts, decryption requests and the persisted ledger events.
package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pushchain/ecu-vault/gateway/config"
	"github.com/pushchain/ecu-vault/gateway/store"
)

const (
	// InMemorySQLiteDSN is a special DSN to create an ephemeral in-memory SQLite database.
	InMemorySQLiteDSN = ":memory:"

	// DefaultFileName is the gateway database file under <node_home>/data.
	DefaultFileName = "gateway.db"

	defaultJournalMode = "WAL"
	defaultBusyTimeout = 5 * time.Second

	// dbDirPermissions sets directory permissions to 750 (rwxr-x---).
	dbDirPermissions = 0o750
)

var gormConfig = &gorm.Config{
	Logger: logger.Default.LogMode(logger.Silent),
}

// migration creates the table of one model. after, when set, runs once the table exists.
type migration struct {
	model any
	after func(tx *gorm.DB) error
}

var migrations = []migration{
	{model: &store.Ciphertext{}},
	{model: &store.DecryptionRequest{}, after: indexFinishedRequests},
	{model: &store.LedgerEvent{}},
}

// indexFinishedRequests backs the cleaner's status and age filter.
func indexFinishedRequests(tx *gorm.DB) error {
	return tx.Exec("CREATE INDEX IF NOT EXISTS idx_decryption_requests_status_updated " +
		"ON decryption_requests(status, updated_at)").Error
}

// Options selects where the gateway database lives and how SQLite is tuned.
type Options struct {
	Dir         string // directory holding DefaultFileName; unused in memory
	InMemory    bool
	JournalMode string        // journal_mode of a file database (default WAL)
	BusyTimeout time.Duration // wait on a locked database (default 5s)
	Migrate     bool          // create missing tables and indexes
}

// OptionsFromConfig maps the node config onto Options. The database sits under
// <node_home>/data and is always migrated.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Dir:         filepath.Join(cfg.NodeHome, "data"),
		InMemory:    cfg.GatewayInMemoryDB,
		JournalMode: cfg.GatewayDBJournal,
		BusyTimeout: time.Duration(cfg.GatewayDBBusyMs) * time.Millisecond,
		Migrate:     true,
	}
}

// DB wraps a GORM client and provides simplified DB lifecycle management.
type DB struct {
	client *gorm.DB
	wal    bool
}

// Open opens the database described by opts.
func Open(opts Options) (*DB, error) {
	if opts.JournalMode == "" {
		opts.JournalMode = defaultJournalMode
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = defaultBusyTimeout
	}

	dsn := InMemorySQLiteDSN
	if !opts.InMemory {
		path, err := prepareFilePath(opts.Dir)
		if err != nil {
			return nil, errors.Wrap(err, "failed to prepare database path")
		}
		dsn = fmt.Sprintf("%s?_journal_mode=%s&_busy_timeout=%d&cache=shared&mode=rwc",
			path, opts.JournalMode, opts.BusyTimeout.Milliseconds())
	}

	client, err := gorm.Open(sqlite.Open(dsn), gormConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open SQLite database")
	}

	sqlDB, err := client.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get underlying sql.DB")
	}
	// one connection keeps an in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	d := &DB{
		client: client,
		wal:    !opts.InMemory && strings.EqualFold(opts.JournalMode, "WAL"),
	}
	if opts.Migrate {
		if err := d.migrate(); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}
	return d, nil
}

// OpenInMemoryDB opens a non-persistent SQLite database in memory.
func OpenInMemoryDB(migrateSchema bool) (*DB, error) {
	return Open(Options{InMemory: true, Migrate: migrateSchema})
}

func (d *DB) migrate() error {
	for _, m := range migrations {
		if err := d.client.AutoMigrate(m.model); err != nil {
			return errors.Wrapf(err, "failed to migrate %T", m.model)
		}
		if m.after == nil {
			continue
		}
		if err := m.after(d.client); err != nil {
			return errors.Wrapf(err, "failed to finish migration of %T", m.model)
		}
	}
	return nil
}

// Client returns the internal *gorm.DB instance for direct usage in queries.
func (d *DB) Client() *gorm.DB {
	return d.client
}

// Checkpoint truncates the WAL file. It does nothing for other journal modes.
func (d *DB) Checkpoint() error {
	if !d.wal {
		return nil
	}
	return d.client.Exec("PRAGMA wal_checkpoint(TRUNCATE)").Error
}

// Close safely closes the underlying database connection.
func (d *DB) Close() error {
	sqlDB, err := d.client.DB()
	if err != nil {
		return errors.Wrap(err, "failed to retrieve native sql.DB")
	}
	if err := sqlDB.Close(); err != nil {
		return errors.Wrap(err, "failed to close database connection")
	}
	return nil
}

// prepareFilePath creates dir when missing and returns the database file path inside it.
func prepareFilePath(dir string) (string, error) {
	if dir == "" {
		return "", errors.New("database directory is empty")
	}
	if err := os.MkdirAll(dir, dbDirPermissions); err != nil {
		return "", errors.Wrapf(err, "failed to create directory: %s", dir)
	}
	return filepath.Join(dir, DefaultFileName), nil
}
