package orchestrator

import (
	"fmt"

	"github.com/defistate/swapchain-go/engine"
	"github.com/defistate/swapchain-go/protocols"
	"github.com/gagliardetto/solana-go"
)

// Instruction names, hashed into the 8-byte discriminator prefixing the
// instruction data.
const (
	NameInitialize   = "initialize"
	NameOpenChain    = "open_chain"
	NameCloseChain   = "close_chain"
	NameRunLeg       = "run_leg"
	NameInitVenueAux = "init_venue_aux_account"
)

var (
	ixInitialize   = engine.Discriminator("global", NameInitialize)
	ixOpenChain    = engine.Discriminator("global", NameOpenChain)
	ixCloseChain   = engine.Discriminator("global", NameCloseChain)
	ixRunLeg       = engine.Discriminator("global", NameRunLeg)
	ixInitVenueAux = engine.Discriminator("global", NameInitVenueAux)
)

// StateAddress returns the chain state address of programID and its bump.
func StateAddress(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return engine.StateAddress(programID)
}

func stateKey(programID solana.PublicKey) (solana.PublicKey, error) {
	key, _, err := engine.StateAddress(programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive state address: %w", err)
	}
	return key, nil
}

// NewInitializeInstruction creates the chain state record, funded by payer.
func NewInitializeInstruction(programID, payer solana.PublicKey) (solana.Instruction, error) {
	state, err := stateKey(programID)
	if err != nil {
		return nil, err
	}
	metas := solana.AccountMetaSlice{
		protocols.Meta(state, true, false),
		protocols.Meta(payer, true, true),
		protocols.Meta(solana.SystemProgramID, false, false),
	}
	return solana.NewInstruction(programID, metas, ixInitialize[:]), nil
}

// NewOpenInstruction opens a chain seeded with startingAmount, snapshotting
// the balance of origin.
func NewOpenInstruction(programID, origin solana.PublicKey, startingAmount uint64) (solana.Instruction, error) {
	state, err := stateKey(programID)
	if err != nil {
		return nil, err
	}
	data, err := protocols.NewPayload(ixOpenChain[:]).U64(startingAmount).Bytes()
	if err != nil {
		return nil, fmt.Errorf("encode open: %w", err)
	}
	metas := solana.AccountMetaSlice{
		protocols.Meta(origin, false, false),
		protocols.Meta(state, true, false),
	}
	return solana.NewInstruction(programID, metas, data), nil
}

// NewCloseInstruction closes the chain, failing unless origin gained value.
func NewCloseInstruction(programID, origin solana.PublicKey) (solana.Instruction, error) {
	state, err := stateKey(programID)
	if err != nil {
		return nil, err
	}
	metas := solana.AccountMetaSlice{
		protocols.Meta(origin, false, false),
		protocols.Meta(state, true, false),
	}
	return solana.NewInstruction(programID, metas, ixCloseChain[:]), nil
}

// NewRunLegInstruction runs one leg on venue in direction dir. accounts are
// the venue's leg accounts.
func NewRunLegInstruction(programID solana.PublicKey, venue protocols.Tag, dir protocols.Direction, accounts []*solana.AccountMeta) (solana.Instruction, error) {
	state, err := stateKey(programID)
	if err != nil {
		return nil, err
	}
	data, err := protocols.NewPayload(ixRunLeg[:]).U8(uint8(venue)).U8(uint8(dir)).Bytes()
	if err != nil {
		return nil, fmt.Errorf("encode run leg: %w", err)
	}
	metas := make(solana.AccountMetaSlice, 0, len(accounts)+1)
	metas = append(metas, protocols.Meta(state, true, false))
	metas = append(metas, accounts...)
	return solana.NewInstruction(programID, metas, data), nil
}

// NewInitVenueAuxInstruction sets up the auxiliary account venue needs.
func NewInitVenueAuxInstruction(programID solana.PublicKey, venue protocols.Tag, accounts []*solana.AccountMeta) (solana.Instruction, error) {
	data, err := protocols.NewPayload(ixInitVenueAux[:]).U8(uint8(venue)).Bytes()
	if err != nil {
		return nil, fmt.Errorf("encode init venue aux: %w", err)
	}
	return solana.NewInstruction(programID, solana.AccountMetaSlice(accounts), data), nil
}
