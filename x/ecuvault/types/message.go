package types

import (
	"fmt"
)

// EncryptedMessage is written once on submit and never modified.
type EncryptedMessage struct {
	ID        uint64 `json:"id"`
	Command   Handle `json:"command"`
	Source    Handle `json:"source"`
	Target    Handle `json:"target"`
	Timestamp int64  `json:"timestamp"`
}

// DecryptedMessage is filled exactly once by the oracle callback.
type DecryptedMessage struct {
	Command    string `json:"command"`
	Source     string `json:"source"`
	Target     string `json:"target"`
	IsVerified bool   `json:"is_verified"`
}

// MessageStatus is the lifecycle state of a message as seen by the ledger.
type MessageStatus string

const (
	MessageStatusSubmitted             MessageStatus = "SUBMITTED"
	MessageStatusVerificationRequested MessageStatus = "VERIFICATION_REQUESTED"
	MessageStatusVerified              MessageStatus = "VERIFIED"
)

// EcuPair is a (source, target) ECU pair flagged by the analytics helpers.
type EcuPair struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

func (p EcuPair) String() string {
	return fmt.Sprintf("%s->%s", p.Source, p.Target)
}

// CallbackKind selects which ledger callback the oracle invokes for a request.
type CallbackKind string

const (
	CallbackVerifyMessage   CallbackKind = "verify_message"
	CallbackRevealAggregate CallbackKind = "reveal_aggregate"
)

// Validate checks the callback kind is known.
func (c CallbackKind) Validate() error {
	switch c {
	case CallbackVerifyMessage, CallbackRevealAggregate:
		return nil
	default:
		return fmt.Errorf("unknown callback kind %q", string(c))
	}
}
