package types

import "context"

// FHEExecutor performs homomorphic operations on ciphertext handles.
type FHEExecutor interface {
	// TrivialEncrypt returns a handle for a public constant.
	TrivialEncrypt(ctx context.Context, value uint64) (Handle, error)
	// Add returns a handle to the encrypted sum of lhs and rhs.
	Add(ctx context.Context, lhs, rhs Handle) (Handle, error)
}

// DecryptionOracle is the asynchronous decryption service. Results come back through the
// keeper's Deliver* callbacks.
type DecryptionOracle interface {
	RequestDecryption(ctx context.Context, handles []Handle, callback CallbackKind) (uint64, error)
	CheckSignatures(ctx context.Context, requestID uint64, cleartexts, proof []byte) error
}

// EventSink receives events emitted by ledger transitions.
type EventSink interface {
	EmitEvent(ctx context.Context, event Event)
}

// NopEventSink drops all events.
type NopEventSink struct{}

func (NopEventSink) EmitEvent(context.Context, Event) {}
