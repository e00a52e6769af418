package types

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// HandleLength is the size in bytes of a ciphertext handle.
const HandleLength = 32

// Handle is an opaque reference to an encrypted value, meaningful only to the FHE oracle.
type Handle [HandleLength]byte

// HandleFromBytes copies a 32-byte slice into a Handle.
func HandleFromBytes(bz []byte) (Handle, error) {
	var h Handle
	if len(bz) != HandleLength {
		return h, fmt.Errorf("invalid handle length %d, expected %d", len(bz), HandleLength)
	}
	copy(h[:], bz)
	return h, nil
}

// HandleFromHex parses a "0x"-prefixed or bare hex handle.
func HandleFromHex(s string) (Handle, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	bz, err := hex.DecodeString(s)
	if err != nil {
		return Handle{}, fmt.Errorf("invalid hex in handle: %w", err)
	}
	return HandleFromBytes(bz)
}

// Bytes returns a copy of the handle bytes.
func (h Handle) Bytes() []byte {
	out := make([]byte, HandleLength)
	copy(out, h[:])
	return out
}

// Hex returns the 0x-prefixed hex form.
func (h Handle) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Handle) String() string {
	return h.Hex()
}

// IsZero reports whether the handle is unset.
func (h Handle) IsZero() bool {
	return h == Handle{}
}

func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

func (h *Handle) UnmarshalText(text []byte) error {
	parsed, err := HandleFromHex(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// RequestTarget is the 32-byte word stored against an oracle request id. It holds either a
// message id (big-endian, left padded) or the keccak256 hash of an ECU name; storage does
// not record which.
type RequestTarget [32]byte

// MessageTarget encodes a message id as a request target.
func MessageTarget(messageID uint64) RequestTarget {
	var t RequestTarget
	binary.BigEndian.PutUint64(t[24:], messageID)
	return t
}

// EcuTarget encodes the hash of an ECU name as a request target.
func EcuTarget(ecuName string) RequestTarget {
	return RequestTarget(HashEcuName(ecuName))
}

// RequestTargetFromBytes restores a target read from storage.
func RequestTargetFromBytes(bz []byte) (RequestTarget, error) {
	var t RequestTarget
	if len(bz) != len(t) {
		return t, fmt.Errorf("invalid request target length %d", len(bz))
	}
	copy(t[:], bz)
	return t, nil
}

// MessageID interprets the target as a message id. ok is false when the word does not fit
// in a uint64, which is the case for ECU name hashes in practice.
func (t RequestTarget) MessageID() (id uint64, ok bool) {
	for _, b := range t[:24] {
		if b != 0 {
			return 0, false
		}
	}
	return binary.BigEndian.Uint64(t[24:]), true
}

// Hash interprets the target as an ECU name hash.
func (t RequestTarget) Hash() common.Hash {
	return common.Hash(t)
}

func (t RequestTarget) Bytes() []byte {
	out := make([]byte, len(t))
	copy(out, t[:])
	return out
}

func (t RequestTarget) Hex() string {
	return "0x" + hex.EncodeToString(t[:])
}

// HashEcuName returns keccak256 of the packed ECU name.
func HashEcuName(name string) common.Hash {
	return crypto.Keccak256Hash([]byte(name))
}

// HashCommand returns the content hash used to compare commands.
func HashCommand(command string) common.Hash {
	return crypto.Keccak256Hash([]byte(command))
}
