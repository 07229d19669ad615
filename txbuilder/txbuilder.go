// Package txbuilder assembles a chain into the instructions of one atomic
// transaction: open, every leg in order, then close.
package txbuilder

import (
	"errors"
	"fmt"

	"github.com/defistate/swapchain-go/orchestrator"
	"github.com/defistate/swapchain-go/protocols"
	"github.com/gagliardetto/solana-go"
)

var ErrInvalidChain = errors.New("invalid chain")

// Leg is one swap of a chain.
type Leg struct {
	Venue     protocols.Tag
	Direction protocols.Direction
	Accounts  []*solana.AccountMeta
}

// Chain is a route starting and ending in the asset held by Origin. A chain
// without legs is valid but can never pass the profit gate.
type Chain struct {
	Origin   solana.PublicKey
	AmountIn uint64
	Legs     []Leg
}

func (c Chain) validate() error {
	if c.Origin.IsZero() {
		return fmt.Errorf("%w: origin cannot be zero", ErrInvalidChain)
	}
	for i, leg := range c.Legs {
		if !leg.Direction.Valid() {
			return fmt.Errorf("%w: leg %d: %s", ErrInvalidChain, i, leg.Direction)
		}
		if len(leg.Accounts) == 0 {
			return fmt.Errorf("%w: leg %d on %s has no accounts", ErrInvalidChain, i, leg.Venue)
		}
	}
	return nil
}

// Build returns the chain's instructions for the orchestrator at programID.
func Build(programID solana.PublicKey, chain Chain) ([]solana.Instruction, error) {
	if err := chain.validate(); err != nil {
		return nil, err
	}

	instructions := make([]solana.Instruction, 0, len(chain.Legs)+2)
	open, err := orchestrator.NewOpenInstruction(programID, chain.Origin, chain.AmountIn)
	if err != nil {
		return nil, err
	}
	instructions = append(instructions, open)

	for i, leg := range chain.Legs {
		ix, err := orchestrator.NewRunLegInstruction(programID, leg.Venue, leg.Direction, leg.Accounts)
		if err != nil {
			return nil, fmt.Errorf("leg %d: %w", i, err)
		}
		instructions = append(instructions, ix)
	}

	closeIx, err := orchestrator.NewCloseInstruction(programID, chain.Origin)
	if err != nil {
		return nil, err
	}
	return append(instructions, closeIx), nil
}

// Transaction builds the unsigned transaction for chain, paid by payer.
func Transaction(programID, payer solana.PublicKey, blockhash solana.Hash, chain Chain) (*solana.Transaction, error) {
	instructions, err := Build(programID, chain)
	if err != nil {
		return nil, err
	}
	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return nil, fmt.Errorf("assemble transaction: %w", err)
	}
	return tx, nil
}
