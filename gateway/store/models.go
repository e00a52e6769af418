// Package store contains GORM-backed SQLite models used by the ecu-vault gateway.
//
// Database Structure (database file: gateway.db):
//
//	data/
//	└── gateway.db
//	    ├── ciphertexts
//	    ├── decryption_requests
//	    └── ledger_events
package store

import (
	"time"

	"gorm.io/gorm"
)

// Decryption request statuses.
const (
	RequestStatusPending   = "PENDING"
	RequestStatusDelivered = "DELIVERED"
	RequestStatusFailed    = "FAILED"
)

// Ciphertext is a value held by the coprocessor behind an opaque handle.
type Ciphertext struct {
	gorm.Model
	Handle    string `gorm:"uniqueIndex;not null"` // 0x-prefixed 32-byte handle
	ValueType string `gorm:"not null"`             // "uint64" or "string"
	Payload   []byte // coprocessor-private value encoding
}

// DecryptionRequest tracks an oracle request from creation until the ledger callback.
// The primary key is the request id handed back to the ledger.
type DecryptionRequest struct {
	gorm.Model
	Handles     string     `gorm:"type:text;not null"` // JSON array of 0x-prefixed handles
	Callback    string     `gorm:"index;not null"`     // "verify_message" or "reveal_aggregate"
	Status      string     `gorm:"index;not null"`     // "PENDING", "DELIVERED", "FAILED"
	Attempts    int        // delivery attempts so far
	ErrorMsg    string     `gorm:"type:text"` // last delivery error
	DeliveredAt *time.Time // set once the ledger accepted the callback
}

// LedgerEvent is a persisted copy of an event emitted by a ledger transition.
type LedgerEvent struct {
	gorm.Model
	Type       string `gorm:"index;not null"` // e.g. "ecu_message_verified"
	MessageID  uint64 `gorm:"index"`          // 0 when the event is not about a message
	EcuName    string `gorm:"index"`
	Attributes []byte // JSON-encoded attribute map
}
