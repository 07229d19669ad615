package engine

import (
	"crypto/sha256"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// StateSeed is the fixed namespace the chain state address is derived from.
// The record is a singleton per program, it is never keyed by caller identity.
const StateSeed = "swap_state"

// Phase is the lifecycle of the chain state record.
type Phase uint8

const (
	// PhaseUninitialized means the state record does not exist yet.
	PhaseUninitialized Phase = iota
	// PhaseClosed means no chain is in flight. Every other field of the record is stale.
	PhaseClosed
	// PhaseOpen means a chain is in flight and legs may consume PendingInput.
	PhaseOpen
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseClosed:
		return "closed"
	case PhaseOpen:
		return "open"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// ChainState is the persisted record threading amounts between the legs of a chain.
type ChainState struct {
	// PendingInput is the amount fed into the next leg. Only meaningful while open.
	PendingInput uint64 `json:"pendingInput"`
	// StartBalance is the origin balance snapshotted when the chain opened.
	StartBalance uint64 `json:"startBalance"`
	IsOpen       bool   `json:"isOpen"`
	// Origin is the token account whose balance was snapshotted by open.
	Origin solana.PublicKey `json:"origin"`
}

// Phase reports the lifecycle phase of an existing record.
func (s *ChainState) Phase() Phase {
	if s.IsOpen {
		return PhaseOpen
	}
	return PhaseClosed
}

// RequireOpen fails with ErrChainClosed unless a chain is in flight.
func (s *ChainState) RequireOpen() error {
	if !s.IsOpen {
		return ErrChainClosed
	}
	return nil
}

// Opened returns the record of a freshly opened chain.
func Opened(origin solana.PublicKey, startBalance, startingAmount uint64) ChainState {
	return ChainState{
		PendingInput: startingAmount,
		StartBalance: startBalance,
		IsOpen:       true,
		Origin:       origin,
	}
}

// StateAddress derives the chain state address for programID.
func StateAddress(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte(StateSeed)}, programID)
}

// Discriminator returns the 8-byte tag for namespace:name, e.g. "global:open_chain"
// for instructions or "account:ChainState" for persisted records.
func Discriminator(namespace, name string) [8]byte {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}
