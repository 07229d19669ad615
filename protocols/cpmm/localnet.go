package cpmm

import (
	"fmt"

	"github.com/defistate/swapchain-go/ledger"
	"github.com/defistate/swapchain-go/protocols"
	"github.com/defistate/swapchain-go/protocols/orca"
	"github.com/defistate/swapchain-go/protocols/raydium"
	"github.com/defistate/swapchain-go/protocols/saber"
	"github.com/gagliardetto/solana-go"
)

var decoders = map[protocols.Tag]protocols.SwapDecoder{
	protocols.TagOrca:    orca.DecodeSwap,
	protocols.TagRaydium: raydium.DecodeSwap,
	protocols.TagSaber:   saber.DecodeSwap,
}

// Supports reports whether venue can be simulated.
func Supports(venue protocols.Tag) bool {
	_, ok := decoders[venue]
	return ok
}

// Deploy installs a pool program speaking venue's payload format at programID.
func Deploy(bank *ledger.Bank, venue protocols.Tag, programID solana.PublicKey) error {
	decode, ok := decoders[venue]
	if !ok {
		return fmt.Errorf("cpmm: venue %s cannot be simulated", venue)
	}
	return bank.AddProgram(programID, NewProgram(venue, decode))
}

// PoolSpec describes a pool to seed on a bank.
type PoolSpec struct {
	Seed     solana.PublicKey
	MintA    solana.PublicKey
	MintB    solana.PublicKey
	ReserveA uint64
	ReserveB uint64
	FeeBps   uint16
}

// Deployment is a pool seeded on a bank.
type Deployment struct {
	Venue     protocols.Tag
	ProgramID solana.PublicKey
	Address   solana.PublicKey
	MintA     solana.PublicKey
	MintB     solana.PublicKey
	VaultA    solana.PublicKey
	VaultB    solana.PublicKey
}

// SeedPool writes the pool account and its funded vaults directly into bank.
func SeedPool(bank *ledger.Bank, venue protocols.Tag, programID solana.PublicKey, spec PoolSpec) (Deployment, error) {
	if spec.MintA.Equals(spec.MintB) {
		return Deployment{}, fmt.Errorf("cpmm: pool mints must differ")
	}
	address, bump, err := PoolAddress(programID, spec.Seed)
	if err != nil {
		return Deployment{}, fmt.Errorf("cpmm: derive pool address: %w", err)
	}
	vaultA, err := VaultAddress(programID, address, spec.MintA)
	if err != nil {
		return Deployment{}, fmt.Errorf("cpmm: derive vault: %w", err)
	}
	vaultB, err := VaultAddress(programID, address, spec.MintB)
	if err != nil {
		return Deployment{}, fmt.Errorf("cpmm: derive vault: %w", err)
	}

	data, err := Pool{FeeBps: spec.FeeBps, Bump: bump, Seed: spec.Seed}.MarshalBinary()
	if err != nil {
		return Deployment{}, err
	}
	bank.SetAccount(address, programID, data)
	bank.CreateTokenAccount(vaultA, spec.MintA, address, spec.ReserveA)
	bank.CreateTokenAccount(vaultB, spec.MintB, address, spec.ReserveB)

	return Deployment{
		Venue:     venue,
		ProgramID: programID,
		Address:   address,
		MintA:     spec.MintA,
		MintB:     spec.MintB,
		VaultA:    vaultA,
		VaultB:    vaultB,
	}, nil
}

// LegAccounts returns the venue leg accounts for trading against the pool as
// trader, whose token accounts for mint A and B are userA and userB.
// Accounts the pool program never reads are derived from the pool address.
func (d Deployment) LegAccounts(trader, userA, userB solana.PublicKey) ([]*solana.AccountMeta, error) {
	var fillErr error
	filler := func(name string) solana.PublicKey {
		key, err := solana.CreateWithSeed(d.Address, name, d.ProgramID)
		if err != nil && fillErr == nil {
			fillErr = err
		}
		return key
	}

	var metas []*solana.AccountMeta
	switch d.Venue {
	case protocols.TagOrca:
		metas = orca.Accounts{
			TokenAuthority: trader,
			Whirlpool:      d.Address,
			OwnerA:         userA,
			VaultA:         d.VaultA,
			OwnerB:         userB,
			VaultB:         d.VaultB,
			TickArrays:     [3]solana.PublicKey{filler("tick_array_0"), filler("tick_array_1"), filler("tick_array_2")},
			Oracle:         filler("oracle"),
		}.Metas(d.ProgramID)
	case protocols.TagRaydium:
		metas = raydium.Accounts{
			Payer:            trader,
			AmmConfig:        filler("amm_config"),
			PoolState:        d.Address,
			UserA:            userA,
			UserB:            userB,
			VaultA:           d.VaultA,
			VaultB:           d.VaultB,
			ObservationState: filler("observation"),
			TickArray:        filler("tick_array"),
		}.Metas(d.ProgramID)
	case protocols.TagSaber:
		metas = saber.Accounts{
			Swap:          d.Address,
			SwapAuthority: filler("swap_authority"),
			UserAuthority: trader,
			UserA:         userA,
			ReserveA:      d.VaultA,
			UserB:         userB,
			ReserveB:      d.VaultB,
			AdminFeeA:     filler("admin_fee_a"),
			AdminFeeB:     filler("admin_fee_b"),
		}.Metas(d.ProgramID)
	default:
		return nil, fmt.Errorf("cpmm: venue %s cannot be simulated", d.Venue)
	}
	if fillErr != nil {
		return nil, fmt.Errorf("cpmm: derive placeholder account: %w", fillErr)
	}
	return metas, nil
}
