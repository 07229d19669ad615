package orca

import (
	"testing"

	"github.com/defistate/swapchain-go/engine"
	"github.com/defistate/swapchain-go/protocols"
	"github.com/defistate/swapchain-go/protocols/protocolstest"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey() solana.PublicKey { return solana.NewWallet().PublicKey() }

func fixture() (*protocolstest.Invoker, Accounts) {
	accts := Accounts{
		TokenAuthority: newKey(),
		Whirlpool:      newKey(),
		OwnerA:         newKey(),
		VaultA:         newKey(),
		OwnerB:         newKey(),
		VaultB:         newKey(),
		TickArrays:     [3]solana.PublicKey{newKey(), newKey(), newKey()},
		Oracle:         newKey(),
	}
	inv := protocolstest.NewInvoker(newKey())
	inv.Own(ProgramID, accts.Whirlpool)
	inv.Own(solana.TokenProgramID, accts.OwnerA, accts.VaultA, accts.OwnerB, accts.VaultB)
	return inv, accts
}

func TestExecute(t *testing.T) {
	testCases := []struct {
		name  string
		dir   protocols.Direction
		limit string
	}{
		{name: "a to b", dir: protocols.AToB, limit: "4295048016"},
		{name: "b to a", dir: protocols.BToA, limit: "79226673515401279992447579055"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			inv, accts := fixture()
			adapter := New(ProgramID)
			metas := accts.Metas(ProgramID)

			require.NoError(t, adapter.Execute(inv, 1_000, tc.dir, metas))
			require.Len(t, inv.Calls, 1)
			ix := inv.Calls[0]
			assert.Equal(t, ProgramID, ix.ProgramID())
			require.Len(t, ix.Accounts(), accountCount-1)

			data, err := ix.Data()
			require.NoError(t, err)
			r, err := protocols.NewReader(data, swapDiscriminator[:])
			require.NoError(t, err)
			assert.Equal(t, uint64(1_000), r.U64())
			assert.Equal(t, uint64(0), r.U64())
			assert.Equal(t, tc.limit, r.U128().Dec())
			assert.True(t, r.Bool())
			assert.Equal(t, tc.dir == protocols.AToB, r.Bool())
			require.NoError(t, r.Err())

			intent, err := DecodeSwap(ix.Accounts(), data)
			require.NoError(t, err)
			dst, err := adapter.Destination(tc.dir, metas)
			require.NoError(t, err)
			assert.Equal(t, dst, intent.Destination)
			assert.Equal(t, accts.Whirlpool, intent.Pool)
			assert.Equal(t, accts.TokenAuthority, intent.Authority)
			if tc.dir == protocols.AToB {
				assert.Equal(t, accts.OwnerB, dst)
				assert.Equal(t, accts.OwnerA, intent.Source)
				assert.Equal(t, accts.VaultA, intent.VaultIn)
			} else {
				assert.Equal(t, accts.OwnerA, dst)
				assert.Equal(t, accts.OwnerB, intent.Source)
				assert.Equal(t, accts.VaultB, intent.VaultIn)
			}
		})
	}
}

func TestExecuteRejectsBadAccounts(t *testing.T) {
	adapter := New(ProgramID)

	t.Run("count", func(t *testing.T) {
		inv, accts := fixture()
		err := adapter.Execute(inv, 1, protocols.AToB, accts.Metas(ProgramID)[:accountCount-1])
		assert.ErrorIs(t, err, engine.ErrInvalidVenueAccounts)
		assert.Empty(t, inv.Calls)
	})

	t.Run("pool owned elsewhere", func(t *testing.T) {
		inv, accts := fixture()
		inv.Own(newKey(), accts.Whirlpool)
		err := adapter.Execute(inv, 1, protocols.AToB, accts.Metas(ProgramID))
		assert.ErrorIs(t, err, engine.ErrInvalidVenueAccounts)
		assert.Empty(t, inv.Calls)
	})

	t.Run("program substituted", func(t *testing.T) {
		inv, accts := fixture()
		err := adapter.Execute(inv, 1, protocols.AToB, accts.Metas(newKey()))
		assert.ErrorIs(t, err, engine.ErrInvalidVenueAccounts)
	})

	t.Run("venue targets the caller", func(t *testing.T) {
		inv, accts := fixture()
		self := New(inv.Program)
		inv.Own(inv.Program, accts.Whirlpool)
		err := self.Execute(inv, 1, protocols.AToB, accts.Metas(inv.Program))
		assert.ErrorIs(t, err, engine.ErrReentrantVenue)
		assert.Empty(t, inv.Calls)
	})
}

func TestDecodeSwapRejectsExactOut(t *testing.T) {
	data, err := protocols.NewPayload(swapDiscriminator[:]).U64(1).U64(0).U128(minSqrtPriceLimit).Bool(false).Bool(true).Bytes()
	require.NoError(t, err)
	_, accts := fixture()
	_, err = DecodeSwap(accts.Metas(ProgramID), data)
	assert.Error(t, err)
}
