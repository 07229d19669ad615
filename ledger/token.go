package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
)

// transferAccounts is source, destination and owner.
const transferAccounts = 3

// NewTransferInstruction builds a token Transfer instruction moving amount
// from source to destination, authorized by authority.
func NewTransferInstruction(source, destination, authority solana.PublicKey, amount uint64) solana.Instruction {
	return token.NewTransferInstruction(amount, source, destination, authority, nil).Build()
}

type tokenProgram struct{}

func (tokenProgram) Process(ic *InvokeContext, data []byte) error {
	if len(ic.Accounts()) < transferAccounts {
		return fmt.Errorf("%w: %d accounts", ErrInvalidInstruction, len(ic.Accounts()))
	}
	inst, err := token.DecodeInstruction(ic.Accounts(), data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInstruction, err)
	}
	switch ix := inst.Impl.(type) {
	case *token.Transfer:
		if ix.Amount == nil {
			return ErrInvalidInstruction
		}
		return transfer(ic, *ix.Amount)
	default:
		return fmt.Errorf("%w: unsupported token instruction %s", ErrInvalidInstruction, token.InstructionIDToName(inst.TypeID.Uint8()))
	}
}

func transfer(ic *InvokeContext, amount uint64) error {
	metas := ic.Accounts()
	if len(metas) < 3 {
		return ErrInvalidInstruction
	}
	srcKey, dstKey, authority := metas[0].PublicKey, metas[1].PublicKey, metas[2]
	if !authority.IsSigner {
		return fmt.Errorf("%w: %s", ErrMissingSignature, authority.PublicKey)
	}

	src, err := ic.tokenAccount(srcKey)
	if err != nil {
		return err
	}
	dst, err := ic.tokenAccount(dstKey)
	if err != nil {
		return err
	}
	if !src.Owner.Equals(authority.PublicKey) {
		return fmt.Errorf("%w: %s", ErrOwnerMismatch, srcKey)
	}
	if !src.Mint.Equals(dst.Mint) {
		return fmt.Errorf("%w: %s", ErrMintMismatch, dstKey)
	}
	if srcKey.Equals(dstKey) {
		return nil
	}

	remaining, underflow := math.SafeSub(src.Amount, amount)
	if underflow {
		return fmt.Errorf("%w: %s holds %d, transfer %d", ErrInsufficientFunds, srcKey, src.Amount, amount)
	}
	credited, overflow := math.SafeAdd(dst.Amount, amount)
	if overflow {
		return fmt.Errorf("%w: %s", ErrOverflow, dstKey)
	}
	src.Amount, dst.Amount = remaining, credited

	if err := ic.SetAccountData(srcKey, src.Encode()); err != nil {
		return err
	}
	return ic.SetAccountData(dstKey, dst.Encode())
}

func (ic *InvokeContext) tokenAccount(key solana.PublicKey) (TokenAccount, error) {
	acc, err := ic.account(key)
	if err != nil {
		return TokenAccount{}, err
	}
	if acc.Owner != solana.TokenProgramID {
		return TokenAccount{}, fmt.Errorf("%w: %s", ErrNotTokenAccount, key)
	}
	return DecodeTokenAccount(acc.Data)
}
