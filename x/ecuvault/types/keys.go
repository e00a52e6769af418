package types

import (
	"cosmossdk.io/collections"
)

var (
	// MessageCountKey saves the id of the last submitted message.
	MessageCountKey = collections.NewPrefix(0)

	// MessageCountName is the name of the MessageCount collection.
	MessageCountName = "message_count"

	// EncryptedMessagesKey saves the encrypted message records.
	EncryptedMessagesKey = collections.NewPrefix(1)

	// EncryptedMessagesName is the name of the EncryptedMessages collection.
	EncryptedMessagesName = "encrypted_messages"

	// DecryptedMessagesKey saves the decrypted message records.
	DecryptedMessagesKey = collections.NewPrefix(2)

	// DecryptedMessagesName is the name of the DecryptedMessages collection.
	DecryptedMessagesName = "decrypted_messages"

	// PendingRequestsKey saves the request id -> target mapping.
	PendingRequestsKey = collections.NewPrefix(3)

	// PendingRequestsName is the name of the PendingRequests collection.
	PendingRequestsName = "pending_requests"

	// EcuAggregatesKey saves the per-ECU encrypted counters.
	EcuAggregatesKey = collections.NewPrefix(4)

	// EcuAggregatesName is the name of the EcuAggregates collection.
	EcuAggregatesName = "ecu_aggregates"

	// EcuNameCountKey saves the number of registered ECU names.
	EcuNameCountKey = collections.NewPrefix(5)

	// EcuNameCountName is the name of the EcuNameCount collection.
	EcuNameCountName = "ecu_name_count"

	// EcuNamesKey saves the ordered ECU name registry.
	EcuNamesKey = collections.NewPrefix(6)

	// EcuNamesName is the name of the EcuNames collection.
	EcuNamesName = "ecu_names"

	// KnownSafeCommandsKey saves command hash -> command text.
	KnownSafeCommandsKey = collections.NewPrefix(7)

	// KnownSafeCommandsName is the name of the KnownSafeCommands collection.
	KnownSafeCommandsName = "known_safe_commands"

	// DataKey saves the generic key-value entries.
	DataKey = collections.NewPrefix(8)

	// DataName is the name of the Data collection.
	DataName = "data"
)

const (
	ModuleName = "ecuvault"

	StoreKey = ModuleName
)
