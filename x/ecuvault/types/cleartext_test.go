package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageCleartexts(t *testing.T) {
	bz, err := EncodeMessageCleartexts("SET_TORQUE", "ECU_A", "ECU_B")
	require.NoError(t, err)

	command, source, target, err := DecodeMessageCleartexts(bz)
	require.NoError(t, err)
	assert.Equal(t, "SET_TORQUE", command)
	assert.Equal(t, "ECU_A", source)
	assert.Equal(t, "ECU_B", target)

	_, _, _, err = DecodeMessageCleartexts([]byte("short"))
	require.ErrorIs(t, err, ErrInvalidCleartext)
}

func TestCounterCleartext(t *testing.T) {
	bz, err := EncodeCounterCleartext(42)
	require.NoError(t, err)
	assert.Len(t, bz, 32)

	count, err := DecodeCounterCleartext(bz)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), count.Uint64())

	_, err = DecodeCounterCleartext(nil)
	require.ErrorIs(t, err, ErrInvalidCleartext)
}

func TestGenesisValidate(t *testing.T) {
	require.NoError(t, DefaultGenesis().Validate())
	require.NoError(t, GenesisState{KnownSafeCommands: []string{"A", "B"}}.Validate())
	require.Error(t, GenesisState{KnownSafeCommands: []string{"A", " "}}.Validate())
	require.Error(t, GenesisState{KnownSafeCommands: []string{"A", "A"}}.Validate())
}

func TestCallbackKind(t *testing.T) {
	require.NoError(t, CallbackVerifyMessage.Validate())
	require.NoError(t, CallbackRevealAggregate.Validate())
	require.Error(t, CallbackKind("other").Validate())
}
