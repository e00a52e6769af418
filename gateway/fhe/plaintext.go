package fhe

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ValueType is the type of an encrypted value.
type ValueType string

const (
	TypeUint64 ValueType = "uint64"
	TypeString ValueType = "string"
)

// Plaintext is a decrypted value. Exactly one of Uint or Str is meaningful, depending on
// Type.
type Plaintext struct {
	Type ValueType `json:"type"`
	Uint uint64    `json:"uint,omitempty"`
	Str  string    `json:"str,omitempty"`
}

// Uint64 returns a uint64 plaintext.
func Uint64(v uint64) Plaintext {
	return Plaintext{Type: TypeUint64, Uint: v}
}

// String returns a string plaintext.
func String(s string) Plaintext {
	return Plaintext{Type: TypeString, Str: s}
}

// Validate checks the value type is supported.
func (p Plaintext) Validate() error {
	switch p.Type {
	case TypeUint64, TypeString:
		return nil
	default:
		return fmt.Errorf("unsupported value type %q", p.Type)
	}
}

func (p Plaintext) payload() []byte {
	if p.Type == TypeUint64 {
		out := make([]byte, 8)
		binary.BigEndian.PutUint64(out, p.Uint)
		return out
	}
	return []byte(p.Str)
}

func plaintextFromPayload(valueType string, payload []byte) (Plaintext, error) {
	switch ValueType(valueType) {
	case TypeUint64:
		if len(payload) != 8 {
			return Plaintext{}, fmt.Errorf("corrupt uint64 payload of %d bytes", len(payload))
		}
		return Uint64(binary.BigEndian.Uint64(payload)), nil
	case TypeString:
		return String(string(payload)), nil
	default:
		return Plaintext{}, fmt.Errorf("unsupported value type %q", valueType)
	}
}

var (
	stringType, _  = abi.NewType("string", "", nil)
	uint256Type, _ = abi.NewType("uint256", "", nil)
)

// EncodeCleartexts ABI-encodes decrypted values in handle order: strings as string and
// integers as uint256. This is the payload the ledger callbacks decode.
func EncodeCleartexts(values []Plaintext) ([]byte, error) {
	args := make(abi.Arguments, 0, len(values))
	packed := make([]interface{}, 0, len(values))
	for _, v := range values {
		switch v.Type {
		case TypeUint64:
			args = append(args, abi.Argument{Type: uint256Type})
			packed = append(packed, new(big.Int).SetUint64(v.Uint))
		case TypeString:
			args = append(args, abi.Argument{Type: stringType})
			packed = append(packed, v.Str)
		default:
			return nil, fmt.Errorf("unsupported value type %q", v.Type)
		}
	}
	return args.Pack(packed...)
}
