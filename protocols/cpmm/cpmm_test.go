package cpmm

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/defistate/swapchain-go/ledger"
	"github.com/defistate/swapchain-go/protocols"
	"github.com/defistate/swapchain-go/protocols/orca"
	"github.com/defistate/swapchain-go/protocols/raydium"
	"github.com/defistate/swapchain-go/protocols/saber"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey() solana.PublicKey { return solana.NewWallet().PublicKey() }

type env struct {
	bank    *ledger.Bank
	caller  solana.PublicKey
	trader  solana.PublicKey
	userA   solana.PublicKey
	userB   solana.PublicKey
	pool    Deployment
	adapter protocols.Adapter
}

func setup(t *testing.T, adapter protocols.Adapter, feeBps uint16) *env {
	t.Helper()
	bank, err := ledger.NewBank(&ledger.Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)
	require.NoError(t, Deploy(bank, adapter.Tag(), adapter.ProgramID()))

	e := &env{bank: bank, caller: newKey(), trader: newKey(), userA: newKey(), userB: newKey(), adapter: adapter}
	mintA, mintB := newKey(), newKey()
	e.pool, err = SeedPool(bank, adapter.Tag(), adapter.ProgramID(), PoolSpec{
		Seed: newKey(), MintA: mintA, MintB: mintB,
		ReserveA: 1_000_000, ReserveB: 2_000_000, FeeBps: feeBps,
	})
	require.NoError(t, err)
	bank.CreateTokenAccount(e.userA, mintA, e.trader, 10_000)
	bank.CreateTokenAccount(e.userB, mintB, e.trader, 10_000)

	require.NoError(t, bank.AddProgram(e.caller, ledger.ProgramFunc(func(ic *ledger.InvokeContext, data []byte) error {
		return adapter.Execute(ic, 1_000, protocols.Direction(data[0]), ic.Accounts())
	})))
	return e
}

func (e *env) swap(t *testing.T, dir protocols.Direction) error {
	t.Helper()
	metas, err := e.pool.LegAccounts(e.trader, e.userA, e.userB)
	require.NoError(t, err)
	_, err = e.bank.Execute(context.Background(), []solana.PublicKey{e.trader}, solana.NewInstruction(e.caller, metas, []byte{byte(dir)}))
	return err
}

func (e *env) balance(t *testing.T, key solana.PublicKey) uint64 {
	t.Helper()
	amount, err := e.bank.TokenBalance(key)
	require.NoError(t, err)
	return amount
}

func TestSwapThroughVenueAdapters(t *testing.T) {
	adapters := []protocols.Adapter{
		orca.New(orca.ProgramID),
		raydium.New(raydium.ProgramID),
		saber.New(saber.ProgramID),
	}
	for _, adapter := range adapters {
		t.Run(adapter.Tag().String(), func(t *testing.T) {
			e := setup(t, adapter, 30)

			require.NoError(t, e.swap(t, protocols.AToB))
			// 2_000_000 * 997_0000 / (1_000_000 * 10_000 + 997_0000)
			assert.Equal(t, uint64(9_000), e.balance(t, e.userA))
			assert.Equal(t, uint64(10_000+1_992), e.balance(t, e.userB))
			assert.Equal(t, uint64(1_001_000), e.balance(t, e.pool.VaultA))
			assert.Equal(t, uint64(2_000_000-1_992), e.balance(t, e.pool.VaultB))

			require.NoError(t, e.swap(t, protocols.BToA))
			assert.Equal(t, uint64(11_992-1_000), e.balance(t, e.userB))
			assert.Greater(t, e.balance(t, e.userA), uint64(9_000))
		})
	}
}

func TestSwapFailures(t *testing.T) {
	t.Run("insufficient balance surfaces as a venue failure", func(t *testing.T) {
		adapter := orca.New(orca.ProgramID)
		e := setup(t, adapter, 30)
		e.bank.CreateTokenAccount(e.userA, e.pool.MintA, e.trader, 10)

		err := e.swap(t, protocols.AToB)
		assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
		assert.Equal(t, uint64(10), e.balance(t, e.userA))
		assert.Equal(t, uint64(1_000_000), e.balance(t, e.pool.VaultA))
	})

	t.Run("full fee pays nothing", func(t *testing.T) {
		e := setup(t, saber.New(saber.ProgramID), 10_000)
		require.NoError(t, e.swap(t, protocols.AToB))
		assert.Equal(t, uint64(10_000), e.balance(t, e.userB))
		assert.Equal(t, uint64(9_000), e.balance(t, e.userA))
	})

	t.Run("foreign vault", func(t *testing.T) {
		e := setup(t, raydium.New(raydium.ProgramID), 30)
		e.bank.CreateTokenAccount(e.pool.VaultB, e.pool.MintB, newKey(), 2_000_000)
		assert.ErrorIs(t, e.swap(t, protocols.AToB), ErrInvalidPool)
	})
}

func TestPoolCodec(t *testing.T) {
	pool := Pool{FeeBps: 25, Bump: 254, Seed: newKey()}
	data, err := pool.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, PoolSize)

	var decoded Pool
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.Equal(t, pool, decoded)
	assert.ErrorIs(t, decoded.UnmarshalBinary(data[:3]), ErrInvalidPool)
}

func TestDeployRejectsUnsimulatedVenue(t *testing.T) {
	bank, err := ledger.NewBank(&ledger.Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)
	assert.Error(t, Deploy(bank, protocols.TagSerum, newKey()))
	assert.False(t, Supports(protocols.TagSerum))
	assert.True(t, Supports(protocols.TagOrca))
}
