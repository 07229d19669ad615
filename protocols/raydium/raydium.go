// Package raydium adapts Raydium concentrated-liquidity swaps to the venue
// adapter contract.
package raydium

import (
	"fmt"

	"github.com/defistate/swapchain-go/engine"
	"github.com/defistate/swapchain-go/protocols"
	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
)

// ProgramID is the Raydium CLMM program on mainnet.
var ProgramID = solana.MustPublicKeyFromBase58("CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK")

var swapDiscriminator = engine.Discriminator("global", "swap")

// Positional leg accounts. Extra tick arrays may follow accProgram.
const (
	accPayer = iota
	accAmmConfig
	accPoolState
	accUserA
	accUserB
	accVaultA
	accVaultB
	accObservation
	accTokenProgram
	accTickArray
	accProgram
	minAccounts
)

// Positions within the swap instruction itself.
const (
	swapPayer = iota
	swapAmmConfig
	swapPoolState
	swapInputAccount
	swapOutputAccount
	swapInputVault
	swapOutputVault
	swapObservation
	swapTokenProgram
	swapTickArray
	swapFixedAccounts
)

// Accounts are the accounts a CLMM leg needs, in leg order.
type Accounts struct {
	Payer            solana.PublicKey
	AmmConfig        solana.PublicKey
	PoolState        solana.PublicKey
	UserA            solana.PublicKey
	UserB            solana.PublicKey
	VaultA           solana.PublicKey
	VaultB           solana.PublicKey
	ObservationState solana.PublicKey
	TickArray        solana.PublicKey
	// ExtraTickArrays are forwarded to the venue untouched.
	ExtraTickArrays []solana.PublicKey
}

// Metas returns the leg accounts for programID.
func (a Accounts) Metas(programID solana.PublicKey) []*solana.AccountMeta {
	metas := []*solana.AccountMeta{
		protocols.Meta(a.Payer, false, true),
		protocols.Meta(a.AmmConfig, false, false),
		protocols.Meta(a.PoolState, true, false),
		protocols.Meta(a.UserA, true, false),
		protocols.Meta(a.UserB, true, false),
		protocols.Meta(a.VaultA, true, false),
		protocols.Meta(a.VaultB, true, false),
		protocols.Meta(a.ObservationState, true, false),
		protocols.Meta(solana.TokenProgramID, false, false),
		protocols.Meta(a.TickArray, true, false),
		protocols.Meta(programID, false, false),
	}
	for _, t := range a.ExtraTickArrays {
		metas = append(metas, protocols.Meta(t, true, false))
	}
	return metas
}

// Adapter executes CLMM swaps.
type Adapter struct {
	programID solana.PublicKey
	rules     []protocols.AccountRule
}

// New returns an adapter targeting the CLMM program at programID.
func New(programID solana.PublicKey) *Adapter {
	return &Adapter{
		programID: programID,
		rules: []protocols.AccountRule{
			accPayer:        {Name: "payer", Signer: true},
			accAmmConfig:    {Name: "amm_config"},
			accPoolState:    {Name: "pool_state", Writable: true, Owner: programID},
			accUserA:        {Name: "user_a", Writable: true, Owner: solana.TokenProgramID},
			accUserB:        {Name: "user_b", Writable: true, Owner: solana.TokenProgramID},
			accVaultA:       {Name: "vault_a", Writable: true, Owner: solana.TokenProgramID},
			accVaultB:       {Name: "vault_b", Writable: true, Owner: solana.TokenProgramID},
			accObservation:  {Name: "observation_state", Writable: true},
			accTokenProgram: {Name: "token_program", Address: solana.TokenProgramID},
			accTickArray:    {Name: "tick_array", Writable: true},
			accProgram:      {Name: "raydium_program", Address: programID},
		},
	}
}

func (a *Adapter) Tag() protocols.Tag { return protocols.TagRaydium }

func (a *Adapter) ProgramID() solana.PublicKey { return a.programID }

func (a *Adapter) Destination(dir protocols.Direction, accounts []*solana.AccountMeta) (solana.PublicKey, error) {
	if len(accounts) < minAccounts {
		return solana.PublicKey{}, fmt.Errorf("%w: raydium needs at least %d accounts, got %d", engine.ErrInvalidVenueAccounts, minAccounts, len(accounts))
	}
	if dir == protocols.AToB {
		return accounts[accUserB].PublicKey, nil
	}
	return accounts[accUserA].PublicKey, nil
}

func (a *Adapter) Execute(inv protocols.Invoker, amountIn uint64, dir protocols.Direction, accounts []*solana.AccountMeta) error {
	if err := protocols.CheckAccounts(inv, a.Tag(), accounts, a.rules); err != nil {
		return err
	}
	for i, m := range accounts[minAccounts:] {
		if !m.IsWritable {
			return fmt.Errorf("%w: raydium extra tick array %d must be writable", engine.ErrInvalidVenueAccounts, i)
		}
	}
	ix, err := a.swapInstruction(amountIn, dir, accounts)
	if err != nil {
		return err
	}
	return protocols.Call(inv, a.Tag(), ix)
}

func (a *Adapter) swapInstruction(amountIn uint64, dir protocols.Direction, accounts []*solana.AccountMeta) (solana.Instruction, error) {
	data, err := protocols.NewPayload(swapDiscriminator[:]).
		U64(amountIn).
		U64(0).
		U128(uint256.NewInt(0)).
		Bool(true).
		Bytes()
	if err != nil {
		return nil, fmt.Errorf("raydium: encode swap: %w", err)
	}

	input, output := accounts[accUserA], accounts[accUserB]
	inVault, outVault := accounts[accVaultA], accounts[accVaultB]
	if dir == protocols.BToA {
		input, output = output, input
		inVault, outVault = outVault, inVault
	}

	metas := solana.AccountMetaSlice{
		swapPayer:         protocols.Meta(accounts[accPayer].PublicKey, false, true),
		swapAmmConfig:     protocols.Meta(accounts[accAmmConfig].PublicKey, false, false),
		swapPoolState:     protocols.Meta(accounts[accPoolState].PublicKey, true, false),
		swapInputAccount:  protocols.Meta(input.PublicKey, true, false),
		swapOutputAccount: protocols.Meta(output.PublicKey, true, false),
		swapInputVault:    protocols.Meta(inVault.PublicKey, true, false),
		swapOutputVault:   protocols.Meta(outVault.PublicKey, true, false),
		swapObservation:   protocols.Meta(accounts[accObservation].PublicKey, true, false),
		swapTokenProgram:  protocols.Meta(solana.TokenProgramID, false, false),
		swapTickArray:     protocols.Meta(accounts[accTickArray].PublicKey, true, false),
	}
	for _, m := range accounts[minAccounts:] {
		metas = append(metas, protocols.Meta(m.PublicKey, true, false))
	}
	return solana.NewInstruction(a.programID, metas, data), nil
}

// DecodeSwap parses a CLMM swap instruction built by the adapter.
func DecodeSwap(accounts []*solana.AccountMeta, data []byte) (protocols.SwapIntent, error) {
	r, err := protocols.NewReader(data, swapDiscriminator[:])
	if err != nil {
		return protocols.SwapIntent{}, fmt.Errorf("raydium: %w", err)
	}
	amount := r.U64()
	threshold := r.U64()
	_ = r.U128()
	baseInput := r.Bool()
	if err := r.Err(); err != nil {
		return protocols.SwapIntent{}, fmt.Errorf("raydium: decode swap: %w", err)
	}
	if !baseInput {
		return protocols.SwapIntent{}, fmt.Errorf("raydium: only base-input swaps are supported")
	}
	if len(accounts) < swapFixedAccounts {
		return protocols.SwapIntent{}, fmt.Errorf("raydium: swap needs %d accounts, got %d", swapFixedAccounts, len(accounts))
	}
	return protocols.SwapIntent{
		Pool:         accounts[swapPoolState].PublicKey,
		Authority:    accounts[swapPayer].PublicKey,
		Source:       accounts[swapInputAccount].PublicKey,
		Destination:  accounts[swapOutputAccount].PublicKey,
		VaultIn:      accounts[swapInputVault].PublicKey,
		VaultOut:     accounts[swapOutputVault].PublicKey,
		AmountIn:     amount,
		MinAmountOut: threshold,
	}, nil
}

var _ protocols.Adapter = (*Adapter)(nil)
