// Package protocols defines the contract every exchange venue implements so
// the orchestrator can run a leg against any of them without knowing the
// venue's instruction format.
package protocols

import (
	"fmt"
	"strings"

	"github.com/defistate/swapchain-go/engine"
	"github.com/gagliardetto/solana-go"
)

// Tag identifies a venue adapter on the wire.
type Tag uint8

const (
	TagOrca Tag = 1 + iota
	TagRaydium
	TagSaber
	TagSerum
)

var tagNames = map[Tag]string{
	TagOrca:    "orca",
	TagRaydium: "raydium",
	TagSaber:   "saber",
	TagSerum:   "serum",
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("venue(%d)", uint8(t))
}

// ParseTag resolves a venue name such as "orca".
func ParseTag(name string) (Tag, error) {
	for tag, n := range tagNames {
		if strings.EqualFold(n, name) {
			return tag, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", engine.ErrUnknownVenue, name)
}

// Direction selects which side of a pair is sold.
type Direction uint8

const (
	// AToB sells asset A for asset B.
	AToB Direction = iota
	// BToA sells asset B for asset A.
	BToA
)

func (d Direction) Valid() bool { return d == AToB || d == BToA }

func (d Direction) String() string {
	switch d {
	case AToB:
		return "a_to_b"
	case BToA:
		return "b_to_a"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// ParseDirection accepts "a_to_b" or "b_to_a".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "a_to_b", "atob", "ab":
		return AToB, nil
	case "b_to_a", "btoa", "ba":
		return BToA, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// Invoker is the capability an adapter needs from the ledger: inspect
// accounts passed to the running instruction and invoke an external program,
// with failures propagated opaquely.
type Invoker interface {
	ProgramID() solana.PublicKey
	Owner(key solana.PublicKey) (solana.PublicKey, error)
	AccountData(key solana.PublicKey) ([]byte, bool)
	Invoke(ix solana.Instruction) error
}

// Adapter translates a generic (amount, direction) request into a venue's
// native external call.
type Adapter interface {
	Tag() Tag
	ProgramID() solana.PublicKey
	// Destination returns the account whose balance increase is the leg's output.
	Destination(dir Direction, accounts []*solana.AccountMeta) (solana.PublicKey, error)
	// Execute performs the swap of amountIn in direction dir.
	Execute(inv Invoker, amountIn uint64, dir Direction, accounts []*solana.AccountMeta) error
}

// AuxInitializer is implemented by venues that need an auxiliary account
// (e.g. an order book's open orders account) before they can be traded on.
type AuxInitializer interface {
	InitAux(inv Invoker, accounts []*solana.AccountMeta) error
}

// SwapIntent is a venue swap instruction decoded back into its generic parts.
type SwapIntent struct {
	Pool         solana.PublicKey
	Authority    solana.PublicKey
	Source       solana.PublicKey
	Destination  solana.PublicKey
	VaultIn      solana.PublicKey
	VaultOut     solana.PublicKey
	AmountIn     uint64
	MinAmountOut uint64
}

// SwapDecoder parses a venue's swap instruction.
type SwapDecoder func(accounts []*solana.AccountMeta, data []byte) (SwapIntent, error)

// Call invokes a venue program. A call targeting the invoking program itself
// is refused so a venue can never re-enter the orchestrator between the
// pre- and post-swap balance reads.
func Call(inv Invoker, tag Tag, ix solana.Instruction) error {
	if ix.ProgramID().Equals(inv.ProgramID()) {
		return fmt.Errorf("%w: %s targets %s", engine.ErrReentrantVenue, tag, ix.ProgramID())
	}
	if err := inv.Invoke(ix); err != nil {
		return engine.VenueFailure(tag.String(), err)
	}
	return nil
}
