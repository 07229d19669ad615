package cpmm

import (
	"errors"
	"fmt"

	"github.com/defistate/swapchain-go/ledger"
	"github.com/defistate/swapchain-go/protocols"
	"github.com/defistate/swapchain-go/protocols/cpmm/calculator"
	"github.com/gagliardetto/solana-go"
)

// ErrSlippage is returned when a swap would pay out less than the caller's minimum.
var ErrSlippage = errors.New("swap output below minimum")

// Program executes swaps encoded in one venue's payload format.
type Program struct {
	venue  protocols.Tag
	decode protocols.SwapDecoder
}

// NewProgram returns a pool program decoding swaps with decode.
func NewProgram(venue protocols.Tag, decode protocols.SwapDecoder) *Program {
	return &Program{venue: venue, decode: decode}
}

func (p *Program) Process(ic *ledger.InvokeContext, data []byte) error {
	intent, err := p.decode(ic.Accounts(), data)
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrInvalidInstruction, err)
	}

	pool, err := p.loadPool(ic, intent.Pool)
	if err != nil {
		return err
	}
	reserves, err := vaultReserves(ic, intent)
	if err != nil {
		return err
	}

	amountOut, err := calculator.GetAmountOut(intent.AmountIn, reserves, pool.FeeBps)
	if err != nil {
		return err
	}
	if amountOut < intent.MinAmountOut {
		return fmt.Errorf("%w: %d < %d", ErrSlippage, amountOut, intent.MinAmountOut)
	}

	if err := ic.Invoke(ledger.NewTransferInstruction(intent.Source, intent.VaultIn, intent.Authority, intent.AmountIn)); err != nil {
		return fmt.Errorf("transfer in: %w", err)
	}
	if err := ic.InvokeSigned(ledger.NewTransferInstruction(intent.VaultOut, intent.Destination, intent.Pool, amountOut), pool.signerSeeds()); err != nil {
		return fmt.Errorf("transfer out: %w", err)
	}

	ic.Log("swap", "venue", p.venue.String(), "in", intent.AmountIn, "out", amountOut)
	return nil
}

func (p *Program) loadPool(ic *ledger.InvokeContext, key solana.PublicKey) (Pool, error) {
	owner, err := ic.Owner(key)
	if err != nil {
		return Pool{}, err
	}
	if !owner.Equals(ic.ProgramID()) {
		return Pool{}, fmt.Errorf("%w: %s is owned by %s", ErrInvalidPool, key, owner)
	}
	data, _ := ic.AccountData(key)
	var pool Pool
	if err := pool.UnmarshalBinary(data); err != nil {
		return Pool{}, err
	}
	return pool, nil
}

func vaultReserves(ic *ledger.InvokeContext, intent protocols.SwapIntent) (calculator.Reserves, error) {
	in, err := vaultBalance(ic, intent.Pool, intent.VaultIn)
	if err != nil {
		return calculator.Reserves{}, err
	}
	out, err := vaultBalance(ic, intent.Pool, intent.VaultOut)
	if err != nil {
		return calculator.Reserves{}, err
	}
	return calculator.Reserves{In: in, Out: out}, nil
}

func vaultBalance(ic *ledger.InvokeContext, pool, vault solana.PublicKey) (uint64, error) {
	owner, err := ic.Owner(vault)
	if err != nil {
		return 0, err
	}
	if !owner.Equals(solana.TokenProgramID) {
		return 0, fmt.Errorf("%w: vault %s", ledger.ErrNotTokenAccount, vault)
	}
	data, _ := ic.AccountData(vault)
	tok, err := ledger.DecodeTokenAccount(data)
	if err != nil {
		return 0, err
	}
	if !tok.Owner.Equals(pool) {
		return 0, fmt.Errorf("%w: vault %s is not held by pool %s", ErrInvalidPool, vault, pool)
	}
	return tok.Amount, nil
}
