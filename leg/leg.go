// Package leg implements the boundary every swap leg of a chain goes through:
// a leg reads its input from the chain state before the venue executes and
// writes its output back afterwards, so legs compose without knowing about
// each other.
package leg

import (
	"fmt"

	"github.com/defistate/swapchain-go/engine"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gagliardetto/solana-go"
)

// BalanceOracle reads token balances, refreshed on every call.
type BalanceOracle interface {
	TokenBalance(key solana.PublicKey) (uint64, error)
}

// Tracer receives the audit trail of amounts flowing through legs.
type Tracer interface {
	Log(msg string, args ...any)
}

// Prepare returns the amount the next leg must consume.
func Prepare(state *engine.ChainState, tracer Tracer) (uint64, error) {
	if err := state.RequireOpen(); err != nil {
		return 0, err
	}
	tracer.Log("swap amount in", "amount", state.PendingInput)
	return state.PendingInput, nil
}

// Settlement is the destination balance captured before a venue executes.
type Settlement struct {
	Destination solana.PublicKey
	PreBalance  uint64
}

// Begin captures the balance of destination ahead of the venue call.
func Begin(oracle BalanceOracle, destination solana.PublicKey) (Settlement, error) {
	pre, err := oracle.TokenBalance(destination)
	if err != nil {
		return Settlement{}, fmt.Errorf("read pre-swap balance of %s: %w", destination, err)
	}
	return Settlement{Destination: destination, PreBalance: pre}, nil
}

// Settle re-reads the destination balance, derives the leg's output from the
// delta and feeds it forward as the next leg's input.
func (s Settlement) Settle(oracle BalanceOracle, state *engine.ChainState, tracer Tracer) (uint64, error) {
	post, err := oracle.TokenBalance(s.Destination)
	if err != nil {
		return 0, fmt.Errorf("read post-swap balance of %s: %w", s.Destination, err)
	}
	amountOut, underflow := math.SafeSub(post, s.PreBalance)
	if underflow {
		return 0, fmt.Errorf("%w: %s went from %d to %d", engine.ErrArithmeticUnderflow, s.Destination, s.PreBalance, post)
	}
	tracer.Log("swap amount out", "amount", amountOut)
	state.PendingInput = amountOut
	return amountOut, nil
}
