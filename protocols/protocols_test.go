package protocols_test

import (
	"errors"
	"testing"

	"github.com/defistate/swapchain-go/engine"
	"github.com/defistate/swapchain-go/protocols"
	"github.com/defistate/swapchain-go/protocols/protocolstest"
	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdapter struct {
	tag protocols.Tag
}

func (s stubAdapter) Tag() protocols.Tag              { return s.tag }
func (s stubAdapter) ProgramID() solana.PublicKey     { return solana.PublicKey{} }
func (s stubAdapter) Destination(protocols.Direction, []*solana.AccountMeta) (solana.PublicKey, error) {
	return solana.PublicKey{}, nil
}
func (s stubAdapter) Execute(protocols.Invoker, uint64, protocols.Direction, []*solana.AccountMeta) error {
	return nil
}

func TestRegistry(t *testing.T) {
	reg, err := protocols.NewRegistry(stubAdapter{protocols.TagSerum}, stubAdapter{protocols.TagOrca})
	require.NoError(t, err)
	assert.Equal(t, []protocols.Tag{protocols.TagOrca, protocols.TagSerum}, reg.Tags())

	a, err := reg.Get(protocols.TagOrca)
	require.NoError(t, err)
	assert.Equal(t, protocols.TagOrca, a.Tag())

	_, err = reg.Get(protocols.TagSaber)
	assert.ErrorIs(t, err, engine.ErrUnknownVenue)

	_, err = protocols.NewRegistry(stubAdapter{protocols.TagOrca}, stubAdapter{protocols.TagOrca})
	assert.Error(t, err)

	_, err = protocols.NewRegistry(nil)
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	tag, err := protocols.ParseTag("Raydium")
	require.NoError(t, err)
	assert.Equal(t, protocols.TagRaydium, tag)

	_, err = protocols.ParseTag("uniswap")
	assert.ErrorIs(t, err, engine.ErrUnknownVenue)
	assert.Equal(t, "venue(9)", protocols.Tag(9).String())

	dir, err := protocols.ParseDirection("b_to_a")
	require.NoError(t, err)
	assert.Equal(t, protocols.BToA, dir)
	assert.True(t, dir.Valid())
	assert.False(t, protocols.Direction(2).Valid())

	_, err = protocols.ParseDirection("sideways")
	assert.Error(t, err)
}

func TestCheckAccounts(t *testing.T) {
	owner, fixed := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	a, b, c := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	inv := protocolstest.NewInvoker(solana.NewWallet().PublicKey())
	inv.Own(owner, a)
	inv.Own(solana.SystemProgramID, b)

	rules := []protocols.AccountRule{
		{Name: "pool", Writable: true, Owner: owner},
		{Name: "authority", Signer: true},
		{Name: "program", Address: fixed},
	}
	valid := func() []*solana.AccountMeta {
		return []*solana.AccountMeta{
			protocols.Meta(a, true, false),
			protocols.Meta(c, false, true),
			protocols.Meta(fixed, false, false),
		}
	}
	require.NoError(t, protocols.CheckAccounts(inv, protocols.TagOrca, valid(), rules))

	testCases := []struct {
		name   string
		mutate func([]*solana.AccountMeta) []*solana.AccountMeta
	}{
		{"too few", func(m []*solana.AccountMeta) []*solana.AccountMeta { return m[:2] }},
		{"read-only", func(m []*solana.AccountMeta) []*solana.AccountMeta { m[0].IsWritable = false; return m }},
		{"unsigned", func(m []*solana.AccountMeta) []*solana.AccountMeta { m[1].IsSigner = false; return m }},
		{"wrong address", func(m []*solana.AccountMeta) []*solana.AccountMeta { m[2] = protocols.Meta(c, false, false); return m }},
		{"wrong owner", func(m []*solana.AccountMeta) []*solana.AccountMeta { m[0] = protocols.Meta(b, true, false); return m }},
		{"missing account", func(m []*solana.AccountMeta) []*solana.AccountMeta { m[0] = protocols.Meta(c, true, false); return m }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := protocols.CheckAccounts(inv, protocols.TagOrca, tc.mutate(valid()), rules)
			assert.ErrorIs(t, err, engine.ErrInvalidVenueAccounts)
		})
	}
}

func TestCall(t *testing.T) {
	self := solana.NewWallet().PublicKey()
	venue := solana.NewWallet().PublicKey()
	inv := protocolstest.NewInvoker(self)

	require.NoError(t, protocols.Call(inv, protocols.TagOrca, solana.NewInstruction(venue, nil, nil)))
	assert.Len(t, inv.Calls, 1)

	err := protocols.Call(inv, protocols.TagOrca, solana.NewInstruction(self, nil, nil))
	assert.ErrorIs(t, err, engine.ErrReentrantVenue)
	assert.Len(t, inv.Calls, 1, "re-entrant call must not be issued")

	cause := errors.New("custom program error: 0x1771")
	inv.Err = cause
	err = protocols.Call(inv, protocols.TagOrca, solana.NewInstruction(venue, nil, nil))
	assert.ErrorIs(t, err, engine.ErrVenueExecutionFailed)
	assert.Same(t, cause, errors.Unwrap(err))
}

func TestPayload(t *testing.T) {
	data, err := protocols.NewPayload([]byte{0xaa, 0xbb}).
		U8(1).
		U16(0x0203).
		U32(4).
		U64(5).
		U128(uint256.NewInt(6)).
		Bool(true).
		Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0xaa, 0xbb,
		1,
		0x03, 0x02,
		4, 0, 0, 0,
		5, 0, 0, 0, 0, 0, 0, 0,
		6, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		1,
	}, data)

	r, err := protocols.NewReader(data, []byte{0xaa, 0xbb})
	require.NoError(t, err)
	assert.Equal(t, uint8(1), r.U8())
	assert.Equal(t, uint16(0x0203), r.U16())
	assert.Equal(t, uint32(4), r.U32())
	assert.Equal(t, uint64(5), r.U64())
	assert.Equal(t, uint256.NewInt(6), r.U128())
	assert.True(t, r.Bool())
	assert.NoError(t, r.Err())

	_, err = protocols.NewReader(data, []byte{0xbb})
	assert.Error(t, err)

	r, err = protocols.NewReader(data, nil)
	require.NoError(t, err)
	r.U8()
	assert.Error(t, r.Err(), "trailing bytes are rejected")

	r, err = protocols.NewReader([]byte{1}, nil)
	require.NoError(t, err)
	r.U64()
	assert.Error(t, r.Err())
}
