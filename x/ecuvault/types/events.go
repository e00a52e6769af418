package types

import (
	"encoding/json"
	"fmt"
	"strconv"
)

const (
	EventTypeMessageReceived              = "ecu_message_received"
	EventTypeVerificationRequested        = "ecu_verification_requested"
	EventTypeMessageVerified              = "ecu_message_verified"
	EventTypeAggregateDecryptionRequested = "ecu_aggregate_decryption_requested"
	EventTypeAggregateRevealed            = "ecu_aggregate_revealed"
	EventTypeKnownSafeCommandAdded        = "ecu_known_safe_command_added"
	EventTypeDataSet                      = "ecu_data_set"
)

// Event is a typed notification with flat string attributes. The "data" attribute carries
// the full JSON payload for off-chain consumers.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

func newEvent(eventType string, payload any, attrs ...string) (Event, error) {
	bz, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	ev := Event{Type: eventType, Attributes: make(map[string]string, len(attrs)/2+1)}
	for i := 0; i+1 < len(attrs); i += 2 {
		ev.Attributes[attrs[i]] = attrs[i+1]
	}
	ev.Attributes["data"] = string(bz)
	return ev, nil
}

// MessageReceivedEvent is emitted on submit.
type MessageReceivedEvent struct {
	MessageID uint64 `json:"message_id"`
	Timestamp int64  `json:"timestamp"`
}

func NewMessageReceivedEvent(e MessageReceivedEvent) (Event, error) {
	return newEvent(EventTypeMessageReceived, e,
		"message_id", strconv.FormatUint(e.MessageID, 10),
		"timestamp", strconv.FormatInt(e.Timestamp, 10),
	)
}

func (e MessageReceivedEvent) String() string {
	return fmt.Sprintf("Message received | ID: %d | Timestamp: %d", e.MessageID, e.Timestamp)
}

// VerificationRequestedEvent is emitted when a message decryption is requested.
type VerificationRequestedEvent struct {
	MessageID uint64 `json:"message_id"`
	RequestID uint64 `json:"request_id"`
}

func NewVerificationRequestedEvent(e VerificationRequestedEvent) (Event, error) {
	return newEvent(EventTypeVerificationRequested, e,
		"message_id", strconv.FormatUint(e.MessageID, 10),
		"request_id", strconv.FormatUint(e.RequestID, 10),
	)
}

// MessageVerifiedEvent is emitted after a successful decryption callback.
type MessageVerifiedEvent struct {
	MessageID uint64 `json:"message_id"`
	RequestID uint64 `json:"request_id"`
	Source    string `json:"source"`
	Target    string `json:"target"`
}

func NewMessageVerifiedEvent(e MessageVerifiedEvent) (Event, error) {
	return newEvent(EventTypeMessageVerified, e,
		"message_id", strconv.FormatUint(e.MessageID, 10),
		"request_id", strconv.FormatUint(e.RequestID, 10),
		"source", e.Source,
	)
}

func (e MessageVerifiedEvent) String() string {
	return fmt.Sprintf("Message verified | ID: %d | Request: %d | %s -> %s", e.MessageID, e.RequestID, e.Source, e.Target)
}

// AggregateDecryptionRequestedEvent is emitted when an ECU counter reveal is requested.
type AggregateDecryptionRequestedEvent struct {
	EcuName   string `json:"ecu_name"`
	RequestID uint64 `json:"request_id"`
}

func NewAggregateDecryptionRequestedEvent(e AggregateDecryptionRequestedEvent) (Event, error) {
	return newEvent(EventTypeAggregateDecryptionRequested, e,
		"ecu_name", e.EcuName,
		"request_id", strconv.FormatUint(e.RequestID, 10),
	)
}

// AggregateRevealedEvent carries a decrypted ECU counter. The value is not kept in ledger
// state.
type AggregateRevealedEvent struct {
	EcuName   string `json:"ecu_name"`
	RequestID uint64 `json:"request_id"`
	Count     string `json:"count"`
}

func NewAggregateRevealedEvent(e AggregateRevealedEvent) (Event, error) {
	return newEvent(EventTypeAggregateRevealed, e,
		"ecu_name", e.EcuName,
		"request_id", strconv.FormatUint(e.RequestID, 10),
		"count", e.Count,
	)
}

// KnownSafeCommandAddedEvent is emitted when the known-safe registry grows.
type KnownSafeCommandAddedEvent struct {
	Command string `json:"command"`
	Hash    string `json:"hash"`
}

func NewKnownSafeCommandAddedEvent(e KnownSafeCommandAddedEvent) (Event, error) {
	return newEvent(EventTypeKnownSafeCommandAdded, e, "hash", e.Hash)
}

// DataSetEvent is emitted when a generic key-value entry is written.
type DataSetEvent struct {
	Key  string `json:"key"`
	Size int    `json:"size"`
}

func NewDataSetEvent(e DataSetEvent) (Event, error) {
	return newEvent(EventTypeDataSet, e, "key", e.Key, "size", strconv.Itoa(e.Size))
}
