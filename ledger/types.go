package ledger

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Program is an on-ledger program. Process runs one instruction addressed to
// the program; any error aborts the enclosing transaction.
type Program interface {
	Process(ic *InvokeContext, data []byte) error
}

// ProgramFunc adapts a function to the Program interface.
type ProgramFunc func(ic *InvokeContext, data []byte) error

func (f ProgramFunc) Process(ic *InvokeContext, data []byte) error { return f(ic, data) }

// Account is a ledger account. Data may only be changed by the Owner program.
type Account struct {
	Owner solana.PublicKey
	Data  []byte
}

func (a *Account) clone() *Account {
	return &Account{Owner: a.Owner, Data: bytes.Clone(a.Data)}
}

var (
	ErrProgramNotFound     = errors.New("program not found")
	ErrReentrancy          = errors.New("cross-program invocation reentrancy not allowed")
	ErrCallDepth           = errors.New("cross-program invocation call depth too deep")
	ErrPrivilegeEscalation = errors.New("cross-program invocation with unauthorized signer or writable account")
	ErrMissingAccount      = errors.New("account not provided to instruction")
	ErrAccountNotFound     = errors.New("account not found")
	ErrReadonlyAccount     = errors.New("instruction modified data of a read-only account")
	ErrNotOwner            = errors.New("instruction modified data of an account it does not own")
	ErrAccountInUse        = errors.New("account already in use")
	ErrMissingSignature    = errors.New("missing required signature")
	ErrInvalidInstruction  = errors.New("invalid instruction data")
	ErrNotTokenAccount     = errors.New("not a token account")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrMintMismatch        = errors.New("account not associated with this mint")
	ErrOwnerMismatch       = errors.New("owner does not match")
	ErrOverflow            = errors.New("operation overflowed")
)

// TransactionError reports the instruction that aborted a transaction.
type TransactionError struct {
	Index     int
	ProgramID solana.PublicKey
	Err       error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction aborted at instruction %d (program %s): %v", e.Index, e.ProgramID, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

// Receipt is the outcome of an executed transaction.
type Receipt struct {
	Logs         []string
	Instructions int
}

// TokenAccountSize matches the SPL token account size; only the
// mint | owner | amount prefix is interpreted.
const TokenAccountSize = 165

// TokenAccount is the decoded prefix of an SPL token account.
type TokenAccount struct {
	Mint   solana.PublicKey
	Owner  solana.PublicKey
	Amount uint64
}

// Encode returns the SPL-compatible account data.
func (t TokenAccount) Encode() []byte {
	data := make([]byte, TokenAccountSize)
	copy(data[0:32], t.Mint[:])
	copy(data[32:64], t.Owner[:])
	binary.LittleEndian.PutUint64(data[64:72], t.Amount)
	data[108] = 1 // initialized
	return data
}

// DecodeTokenAccount parses account data written by Encode.
func DecodeTokenAccount(data []byte) (TokenAccount, error) {
	if len(data) != TokenAccountSize {
		return TokenAccount{}, fmt.Errorf("%w: size %d", ErrNotTokenAccount, len(data))
	}
	return TokenAccount{
		Mint:   solana.PublicKeyFromBytes(data[0:32]),
		Owner:  solana.PublicKeyFromBytes(data[32:64]),
		Amount: binary.LittleEndian.Uint64(data[64:72]),
	}, nil
}
