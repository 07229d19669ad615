// Package orca adapts Orca Whirlpool swaps to the venue adapter contract.
package orca

import (
	"fmt"

	"github.com/defistate/swapchain-go/engine"
	"github.com/defistate/swapchain-go/protocols"
	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
)

// ProgramID is the Whirlpool program on mainnet.
var ProgramID = solana.MustPublicKeyFromBase58("whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc")

var (
	swapDiscriminator = engine.Discriminator("global", "swap")

	// Price limits that let an exact-input swap walk the whole curve.
	minSqrtPriceLimit = uint256.MustFromDecimal("4295048016")
	maxSqrtPriceLimit = uint256.MustFromDecimal("79226673515401279992447579055")
)

// Positional accounts of a leg.
const (
	accTokenProgram = iota
	accTokenAuthority
	accWhirlpool
	accOwnerA
	accVaultA
	accOwnerB
	accVaultB
	accTickArray0
	accTickArray1
	accTickArray2
	accOracle
	accProgram
	accountCount
)

// Accounts are the accounts a whirlpool leg needs, in leg order.
type Accounts struct {
	TokenAuthority solana.PublicKey
	Whirlpool      solana.PublicKey
	OwnerA         solana.PublicKey
	VaultA         solana.PublicKey
	OwnerB         solana.PublicKey
	VaultB         solana.PublicKey
	TickArrays     [3]solana.PublicKey
	Oracle         solana.PublicKey
}

// Metas returns the leg accounts for programID.
func (a Accounts) Metas(programID solana.PublicKey) []*solana.AccountMeta {
	return []*solana.AccountMeta{
		protocols.Meta(solana.TokenProgramID, false, false),
		protocols.Meta(a.TokenAuthority, false, true),
		protocols.Meta(a.Whirlpool, true, false),
		protocols.Meta(a.OwnerA, true, false),
		protocols.Meta(a.VaultA, true, false),
		protocols.Meta(a.OwnerB, true, false),
		protocols.Meta(a.VaultB, true, false),
		protocols.Meta(a.TickArrays[0], true, false),
		protocols.Meta(a.TickArrays[1], true, false),
		protocols.Meta(a.TickArrays[2], true, false),
		protocols.Meta(a.Oracle, false, false),
		protocols.Meta(programID, false, false),
	}
}

// Adapter executes whirlpool swaps.
type Adapter struct {
	programID solana.PublicKey
	rules     []protocols.AccountRule
}

// New returns an adapter targeting the whirlpool program at programID.
func New(programID solana.PublicKey) *Adapter {
	return &Adapter{
		programID: programID,
		rules: []protocols.AccountRule{
			accTokenProgram:   {Name: "token_program", Address: solana.TokenProgramID},
			accTokenAuthority: {Name: "token_authority", Signer: true},
			accWhirlpool:      {Name: "whirlpool", Writable: true, Owner: programID},
			accOwnerA:         {Name: "token_owner_account_a", Writable: true, Owner: solana.TokenProgramID},
			accVaultA:         {Name: "token_vault_a", Writable: true, Owner: solana.TokenProgramID},
			accOwnerB:         {Name: "token_owner_account_b", Writable: true, Owner: solana.TokenProgramID},
			accVaultB:         {Name: "token_vault_b", Writable: true, Owner: solana.TokenProgramID},
			accTickArray0:     {Name: "tick_array_0", Writable: true},
			accTickArray1:     {Name: "tick_array_1", Writable: true},
			accTickArray2:     {Name: "tick_array_2", Writable: true},
			accOracle:         {Name: "oracle"},
			accProgram:        {Name: "whirlpool_program", Address: programID},
		},
	}
}

func (a *Adapter) Tag() protocols.Tag { return protocols.TagOrca }

func (a *Adapter) ProgramID() solana.PublicKey { return a.programID }

func (a *Adapter) Destination(dir protocols.Direction, accounts []*solana.AccountMeta) (solana.PublicKey, error) {
	if err := protocols.RequireCount(a.Tag(), accounts, accountCount); err != nil {
		return solana.PublicKey{}, err
	}
	if dir == protocols.AToB {
		return accounts[accOwnerB].PublicKey, nil
	}
	return accounts[accOwnerA].PublicKey, nil
}

func (a *Adapter) Execute(inv protocols.Invoker, amountIn uint64, dir protocols.Direction, accounts []*solana.AccountMeta) error {
	if err := protocols.RequireCount(a.Tag(), accounts, accountCount); err != nil {
		return err
	}
	if err := protocols.CheckAccounts(inv, a.Tag(), accounts, a.rules); err != nil {
		return err
	}
	ix, err := a.swapInstruction(amountIn, dir, accounts)
	if err != nil {
		return err
	}
	return protocols.Call(inv, a.Tag(), ix)
}

// swapInstruction passes every leg account except the program itself, in
// the whirlpool's own order.
func (a *Adapter) swapInstruction(amountIn uint64, dir protocols.Direction, accounts []*solana.AccountMeta) (solana.Instruction, error) {
	aToB := dir == protocols.AToB
	limit := maxSqrtPriceLimit
	if aToB {
		limit = minSqrtPriceLimit
	}
	data, err := protocols.NewPayload(swapDiscriminator[:]).
		U64(amountIn).
		U64(0).
		U128(limit).
		Bool(true).
		Bool(aToB).
		Bytes()
	if err != nil {
		return nil, fmt.Errorf("orca: encode swap: %w", err)
	}

	metas := make(solana.AccountMetaSlice, 0, accProgram)
	for i, m := range accounts[:accProgram] {
		metas = append(metas, protocols.Meta(m.PublicKey, a.rules[i].Writable, a.rules[i].Signer))
	}
	return solana.NewInstruction(a.programID, metas, data), nil
}

// DecodeSwap parses a whirlpool swap instruction built by the adapter.
func DecodeSwap(accounts []*solana.AccountMeta, data []byte) (protocols.SwapIntent, error) {
	r, err := protocols.NewReader(data, swapDiscriminator[:])
	if err != nil {
		return protocols.SwapIntent{}, fmt.Errorf("orca: %w", err)
	}
	amount := r.U64()
	threshold := r.U64()
	_ = r.U128()
	exactIn := r.Bool()
	aToB := r.Bool()
	if err := r.Err(); err != nil {
		return protocols.SwapIntent{}, fmt.Errorf("orca: decode swap: %w", err)
	}
	if !exactIn {
		return protocols.SwapIntent{}, fmt.Errorf("orca: only exact-input swaps are supported")
	}
	if len(accounts) < accOracle+1 {
		return protocols.SwapIntent{}, fmt.Errorf("orca: swap needs %d accounts, got %d", accOracle+1, len(accounts))
	}

	intent := protocols.SwapIntent{
		Pool:         accounts[accWhirlpool].PublicKey,
		Authority:    accounts[accTokenAuthority].PublicKey,
		AmountIn:     amount,
		MinAmountOut: threshold,
	}
	if aToB {
		intent.Source, intent.VaultIn = accounts[accOwnerA].PublicKey, accounts[accVaultA].PublicKey
		intent.Destination, intent.VaultOut = accounts[accOwnerB].PublicKey, accounts[accVaultB].PublicKey
	} else {
		intent.Source, intent.VaultIn = accounts[accOwnerB].PublicKey, accounts[accVaultB].PublicKey
		intent.Destination, intent.VaultOut = accounts[accOwnerA].PublicKey, accounts[accVaultA].PublicKey
	}
	return intent, nil
}

var _ protocols.Adapter = (*Adapter)(nil)
