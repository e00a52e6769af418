package types

import (
	"math/big"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/accounts/abi"
)

var (
	stringType, _  = abi.NewType("string", "", nil)
	uint256Type, _ = abi.NewType("uint256", "", nil)

	// ABI arguments layout: (string command, string source, string target)
	messageCleartextArgs = abi.Arguments{
		{Type: stringType},
		{Type: stringType},
		{Type: stringType},
	}

	// ABI arguments layout: (uint256 count)
	counterCleartextArgs = abi.Arguments{
		{Type: uint256Type},
	}
)

// EncodeMessageCleartexts packs the three decrypted message fields the way the oracle
// delivers them.
func EncodeMessageCleartexts(command, source, target string) ([]byte, error) {
	return messageCleartextArgs.Pack(command, source, target)
}

// DecodeMessageCleartexts unpacks (command, source, target) from an oracle payload.
func DecodeMessageCleartexts(bz []byte) (command, source, target string, err error) {
	values, err := messageCleartextArgs.Unpack(bz)
	if err != nil {
		return "", "", "", errorsmod.Wrap(ErrInvalidCleartext, err.Error())
	}
	if len(values) != 3 {
		return "", "", "", errorsmod.Wrapf(ErrInvalidCleartext, "unexpected number of values: %d", len(values))
	}

	var ok bool
	if command, ok = values[0].(string); !ok {
		return "", "", "", errorsmod.Wrap(ErrInvalidCleartext, "command is not a string")
	}
	if source, ok = values[1].(string); !ok {
		return "", "", "", errorsmod.Wrap(ErrInvalidCleartext, "source is not a string")
	}
	if target, ok = values[2].(string); !ok {
		return "", "", "", errorsmod.Wrap(ErrInvalidCleartext, "target is not a string")
	}
	return command, source, target, nil
}

// EncodeCounterCleartext packs a decrypted counter value.
func EncodeCounterCleartext(count uint64) ([]byte, error) {
	return counterCleartextArgs.Pack(new(big.Int).SetUint64(count))
}

// DecodeCounterCleartext unpacks a single uint256 counter value.
func DecodeCounterCleartext(bz []byte) (math.Uint, error) {
	values, err := counterCleartextArgs.Unpack(bz)
	if err != nil {
		return math.ZeroUint(), errorsmod.Wrap(ErrInvalidCleartext, err.Error())
	}
	if len(values) != 1 {
		return math.ZeroUint(), errorsmod.Wrapf(ErrInvalidCleartext, "unexpected number of values: %d", len(values))
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return math.ZeroUint(), errorsmod.Wrap(ErrInvalidCleartext, "count is not an integer")
	}
	return math.NewUintFromBigInt(v), nil
}
