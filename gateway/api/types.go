package api

import (
	"github.com/pushchain/ecu-vault/x/ecuvault/types"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

type EncryptRequest struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

type HandleResponse struct {
	Handle types.Handle `json:"handle"`
}

type SubmitMessageRequest struct {
	Command types.Handle `json:"command"`
	Source  types.Handle `json:"source"`
	Target  types.Handle `json:"target"`
}

type IDResponse struct {
	ID uint64 `json:"id"`
}

type RequestIDResponse struct {
	RequestID uint64 `json:"request_id"`
}

type CountResponse struct {
	Count uint64 `json:"count"`
}

type MessageResponse struct {
	Message types.EncryptedMessage `json:"message"`
	Status  types.MessageStatus    `json:"status"`
}

type DecryptedMessageResponse struct {
	types.DecryptedMessage
	CommandValid bool `json:"command_valid"`
}

type EcuResponse struct {
	Name      string       `json:"name"`
	Aggregate types.Handle `json:"aggregate"`
}

type TrustScoreResponse struct {
	Ecu   string `json:"ecu"`
	Score uint64 `json:"score"`
}

type AnomaliesResponse struct {
	MessageIDs []uint64 `json:"message_ids"`
}

type SuspiciousPairsResponse struct {
	Pairs []types.EcuPair `json:"pairs"`
}

type SafeCommandRequest struct {
	Command string `json:"command"`
}

type SafeCommandsResponse struct {
	Commands []string `json:"commands"`
}

type AvailabilityResponse struct {
	Available bool `json:"available"`
}

type DecryptionRequestResponse struct {
	ID          uint64   `json:"id"`
	Handles     []string `json:"handles"`
	Callback    string   `json:"callback"`
	Status      string   `json:"status"`
	Attempts    int      `json:"attempts"`
	Error       string   `json:"error,omitempty"`
	CreatedAt   int64    `json:"created_at"`
	DeliveredAt int64    `json:"delivered_at,omitempty"`
}
