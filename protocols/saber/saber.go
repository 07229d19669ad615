// Package saber adapts Saber stable-swap pools to the venue adapter contract.
package saber

import (
	"fmt"

	"github.com/defistate/swapchain-go/protocols"
	"github.com/gagliardetto/solana-go"
)

// ProgramID is the Saber stable swap program on mainnet.
var ProgramID = solana.MustPublicKeyFromBase58("SSwpkEEcbUqx4vtoEByFjSkhKdCT862DNVb52nZg1UZ")

const swapTag uint8 = 1

const (
	accSwap = iota
	accSwapAuthority
	accUserAuthority
	accUserA
	accReserveA
	accUserB
	accReserveB
	accAdminFeeA
	accAdminFeeB
	accTokenProgram
	accProgram
	accountCount
)

// Swap instruction positions.
const (
	swapSwap = iota
	swapSwapAuthority
	swapUserAuthority
	swapUserSource
	swapPoolSource
	swapPoolDestination
	swapUserDestination
	swapAdminFee
	swapTokenProgram
	swapAccounts
)

// Accounts are the accounts a stable swap leg needs, in leg order.
type Accounts struct {
	Swap          solana.PublicKey
	SwapAuthority solana.PublicKey
	UserAuthority solana.PublicKey
	UserA         solana.PublicKey
	ReserveA      solana.PublicKey
	UserB         solana.PublicKey
	ReserveB      solana.PublicKey
	AdminFeeA     solana.PublicKey
	AdminFeeB     solana.PublicKey
}

// Metas returns the leg accounts for programID.
func (a Accounts) Metas(programID solana.PublicKey) []*solana.AccountMeta {
	return []*solana.AccountMeta{
		protocols.Meta(a.Swap, false, false),
		protocols.Meta(a.SwapAuthority, false, false),
		protocols.Meta(a.UserAuthority, false, true),
		protocols.Meta(a.UserA, true, false),
		protocols.Meta(a.ReserveA, true, false),
		protocols.Meta(a.UserB, true, false),
		protocols.Meta(a.ReserveB, true, false),
		protocols.Meta(a.AdminFeeA, true, false),
		protocols.Meta(a.AdminFeeB, true, false),
		protocols.Meta(solana.TokenProgramID, false, false),
		protocols.Meta(programID, false, false),
	}
}

// Adapter executes stable swaps.
type Adapter struct {
	programID solana.PublicKey
	rules     []protocols.AccountRule
}

// New returns an adapter targeting the stable swap program at programID.
func New(programID solana.PublicKey) *Adapter {
	return &Adapter{
		programID: programID,
		rules: []protocols.AccountRule{
			accSwap:          {Name: "swap", Owner: programID},
			accSwapAuthority: {Name: "swap_authority"},
			accUserAuthority: {Name: "user_authority", Signer: true},
			accUserA:         {Name: "user_a", Writable: true, Owner: solana.TokenProgramID},
			accReserveA:      {Name: "reserve_a", Writable: true, Owner: solana.TokenProgramID},
			accUserB:         {Name: "user_b", Writable: true, Owner: solana.TokenProgramID},
			accReserveB:      {Name: "reserve_b", Writable: true, Owner: solana.TokenProgramID},
			accAdminFeeA:     {Name: "admin_fee_a", Writable: true},
			accAdminFeeB:     {Name: "admin_fee_b", Writable: true},
			accTokenProgram:  {Name: "token_program", Address: solana.TokenProgramID},
			accProgram:       {Name: "saber_program", Address: programID},
		},
	}
}

func (a *Adapter) Tag() protocols.Tag { return protocols.TagSaber }

func (a *Adapter) ProgramID() solana.PublicKey { return a.programID }

func (a *Adapter) Destination(dir protocols.Direction, accounts []*solana.AccountMeta) (solana.PublicKey, error) {
	if err := protocols.RequireCount(a.Tag(), accounts, accountCount); err != nil {
		return solana.PublicKey{}, err
	}
	if dir == protocols.AToB {
		return accounts[accUserB].PublicKey, nil
	}
	return accounts[accUserA].PublicKey, nil
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

// swapInstruction orders the user and reserve accounts by direction. The
// admin fee is charged in the output token.
func (a *Adapter) swapInstruction(amountIn uint64, dir protocols.Direction, accounts []*solana.AccountMeta) (solana.Instruction, error) {
	data, err := protocols.NewPayload([]byte{swapTag}).
		U64(amountIn).
		U64(0).
		Bytes()
	if err != nil {
		return nil, fmt.Errorf("saber: encode swap: %w", err)
	}

	src, poolSrc, poolDst, dst, fee := accUserA, accReserveA, accReserveB, accUserB, accAdminFeeB
	if dir == protocols.BToA {
		src, poolSrc, poolDst, dst, fee = accUserB, accReserveB, accReserveA, accUserA, accAdminFeeA
	}
	key := func(i int) solana.PublicKey { return accounts[i].PublicKey }

	metas := solana.AccountMetaSlice{
		swapSwap:            protocols.Meta(key(accSwap), false, false),
		swapSwapAuthority:   protocols.Meta(key(accSwapAuthority), false, false),
		swapUserAuthority:   protocols.Meta(key(accUserAuthority), false, true),
		swapUserSource:      protocols.Meta(key(src), true, false),
		swapPoolSource:      protocols.Meta(key(poolSrc), true, false),
		swapPoolDestination: protocols.Meta(key(poolDst), true, false),
		swapUserDestination: protocols.Meta(key(dst), true, false),
		swapAdminFee:        protocols.Meta(key(fee), true, false),
		swapTokenProgram:    protocols.Meta(solana.TokenProgramID, false, false),
	}
	return solana.NewInstruction(a.programID, metas, data), nil
}

// DecodeSwap parses a stable swap instruction built by the adapter.
func DecodeSwap(accounts []*solana.AccountMeta, data []byte) (protocols.SwapIntent, error) {
	r, err := protocols.NewReader(data, []byte{swapTag})
	if err != nil {
		return protocols.SwapIntent{}, fmt.Errorf("saber: %w", err)
	}
	amount := r.U64()
	minOut := r.U64()
	if err := r.Err(); err != nil {
		return protocols.SwapIntent{}, fmt.Errorf("saber: decode swap: %w", err)
	}
	if len(accounts) < swapAccounts {
		return protocols.SwapIntent{}, fmt.Errorf("saber: swap needs %d accounts, got %d", swapAccounts, len(accounts))
	}
	return protocols.SwapIntent{
		Pool:         accounts[swapSwap].PublicKey,
		Authority:    accounts[swapUserAuthority].PublicKey,
		Source:       accounts[swapUserSource].PublicKey,
		Destination:  accounts[swapUserDestination].PublicKey,
		VaultIn:      accounts[swapPoolSource].PublicKey,
		VaultOut:     accounts[swapPoolDestination].PublicKey,
		AmountIn:     amount,
		MinAmountOut: minOut,
	}, nil
}

var _ protocols.Adapter = (*Adapter)(nil)
