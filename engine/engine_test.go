package engine

import (
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memIO map[solana.PublicKey][]byte

func (m memIO) AccountData(key solana.PublicKey) ([]byte, bool) {
	data, ok := m[key]
	return data, ok
}

func (m memIO) SetAccountData(key solana.PublicKey, data []byte) error {
	m[key] = data
	return nil
}

func TestChainStateCodec(t *testing.T) {
	origin := solana.NewWallet().PublicKey()
	state := Opened(origin, 1_000, 250)

	data, err := state.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, StateSize)

	var decoded ChainState
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.Equal(t, state, decoded)

	t.Run("rejects wrong size", func(t *testing.T) {
		var s ChainState
		assert.ErrorIs(t, s.UnmarshalBinary(data[:StateSize-1]), ErrInvalidStateData)
	})

	t.Run("rejects wrong discriminator", func(t *testing.T) {
		corrupt := append([]byte(nil), data...)
		corrupt[0] ^= 0xff
		var s ChainState
		assert.ErrorIs(t, s.UnmarshalBinary(corrupt), ErrInvalidStateData)
	})
}

func TestPhase(t *testing.T) {
	var closed ChainState
	assert.Equal(t, PhaseClosed, closed.Phase())
	assert.ErrorIs(t, closed.RequireOpen(), ErrChainClosed)

	open := Opened(solana.PublicKey{}, 0, 10)
	assert.Equal(t, PhaseOpen, open.Phase())
	assert.NoError(t, open.RequireOpen())
	assert.Equal(t, uint64(10), open.PendingInput)

	assert.Equal(t, "uninitialized", PhaseUninitialized.String())
	assert.Equal(t, "phase(9)", Phase(9).String())
}

func TestStore(t *testing.T) {
	io := memIO{}
	key := solana.NewWallet().PublicKey()
	store := NewStore(io, key)

	phase, err := store.Phase()
	require.NoError(t, err)
	assert.Equal(t, PhaseUninitialized, phase)

	_, err = store.Read()
	assert.ErrorIs(t, err, ErrStateNotFound)

	state := Opened(solana.NewWallet().PublicKey(), 5, 7)
	require.NoError(t, store.Write(state))

	got, err := store.Read()
	require.NoError(t, err)
	assert.Equal(t, state, got)

	phase, err = store.Phase()
	require.NoError(t, err)
	assert.Equal(t, PhaseOpen, phase)

	io[key] = []byte{1, 2, 3}
	_, err = store.Phase()
	assert.ErrorIs(t, err, ErrInvalidStateData)
}

func TestStateAddressIsDeterministic(t *testing.T) {
	programID := solana.NewWallet().PublicKey()
	a, bumpA, err := StateAddress(programID)
	require.NoError(t, err)
	b, bumpB, err := StateAddress(programID)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, bumpA, bumpB)

	other, _, err := StateAddress(solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.NotEqual(t, a, other)
}

func TestErrors(t *testing.T) {
	cause := errors.New("pool is paused")
	err := VenueFailure("orca", cause)

	assert.ErrorIs(t, err, ErrVenueExecutionFailed)
	assert.ErrorIs(t, err, cause)
	assert.Same(t, cause, errors.Unwrap(err))

	code, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, CodeVenueExecutionFailed, code)

	code, ok = CodeOf(errors.Join(errors.New("context"), ErrNoProfit))
	require.True(t, ok)
	assert.Equal(t, Code(6001), code)

	_, ok = CodeOf(cause)
	assert.False(t, ok)

	assert.Equal(t, "ChainClosed (code 6000)", ErrChainClosed.Error())
}

func TestDiscriminator(t *testing.T) {
	a := Discriminator("global", "open_chain")
	b := Discriminator("global", "close_chain")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, Discriminator("global", "open_chain"))
}
