package ledger

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gagliardetto/solana-go"
)

// InvokeContext is the view a program gets of the ledger while it processes
// one instruction.
type InvokeContext struct {
	ctx     context.Context
	bank    *Bank
	tx      *txn
	program solana.PublicKey
	metas   []*solana.AccountMeta
	stack   mapset.Set[solana.PublicKey]
	depth   int
}

// Context returns the context of the enclosing transaction.
func (ic *InvokeContext) Context() context.Context { return ic.ctx }

// ProgramID returns the program currently executing.
func (ic *InvokeContext) ProgramID() solana.PublicKey { return ic.program }

// Accounts returns the accounts passed to the instruction, in order.
func (ic *InvokeContext) Accounts() []*solana.AccountMeta { return ic.metas }

// Meta returns the account meta for key, if key was passed to the instruction.
func (ic *InvokeContext) Meta(key solana.PublicKey) (*solana.AccountMeta, bool) {
	for _, m := range ic.metas {
		if m.PublicKey.Equals(key) {
			return m, true
		}
	}
	return nil, false
}

// IsSigner reports whether key signed the instruction.
func (ic *InvokeContext) IsSigner(key solana.PublicKey) bool {
	m, ok := ic.Meta(key)
	return ok && m.IsSigner
}

// Owner returns the program owning key.
func (ic *InvokeContext) Owner(key solana.PublicKey) (solana.PublicKey, error) {
	acc, err := ic.account(key)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return acc.Owner, nil
}

// AccountData returns a copy of the data held by key. It reports false when
// key was not passed to the instruction or does not exist.
func (ic *InvokeContext) AccountData(key solana.PublicKey) ([]byte, bool) {
	acc, err := ic.account(key)
	if err != nil {
		return nil, false
	}
	return bytes.Clone(acc.Data), true
}

// SetAccountData replaces the data of key. Only the owning program may write,
// and only to accounts passed as writable.
func (ic *InvokeContext) SetAccountData(key solana.PublicKey, data []byte) error {
	acc, err := ic.account(key)
	if err != nil {
		return err
	}
	if m, _ := ic.Meta(key); !m.IsWritable {
		return fmt.Errorf("%w: %s", ErrReadonlyAccount, key)
	}
	if !acc.Owner.Equals(ic.program) {
		return fmt.Errorf("%w: %s is owned by %s", ErrNotOwner, key, acc.Owner)
	}
	next := acc.clone()
	next.Data = bytes.Clone(data)
	ic.tx.put(key, next)
	return nil
}

// TokenBalance re-reads the amount held by a token account, including
// changes made earlier in the same transaction.
func (ic *InvokeContext) TokenBalance(key solana.PublicKey) (uint64, error) {
	acc, err := ic.account(key)
	if err != nil {
		return 0, err
	}
	return tokenBalance(acc, key)
}

// Invoke calls another program. The callee may only receive accounts and
// privileges held by the caller.
func (ic *InvokeContext) Invoke(ix solana.Instruction) error {
	return ic.bank.invoke(ic.ctx, ic.tx, ic, ix, mapset.NewThreadUnsafeSet[solana.PublicKey]())
}

// InvokeSigned calls another program, signing for the program addresses
// derived from seeds and the calling program's id.
func (ic *InvokeContext) InvokeSigned(ix solana.Instruction, seeds ...[][]byte) error {
	signers := mapset.NewThreadUnsafeSet[solana.PublicKey]()
	for _, s := range seeds {
		key, err := solana.CreateProgramAddress(s, ic.program)
		if err != nil {
			return fmt.Errorf("invoke signed: %w", err)
		}
		signers.Add(key)
	}
	return ic.bank.invoke(ic.ctx, ic.tx, ic, ix, signers)
}

// Log appends a program log line to the transaction receipt.
func (ic *InvokeContext) Log(msg string, args ...any) {
	var sb strings.Builder
	sb.WriteString("Program log: ")
	sb.WriteString(msg)
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&sb, " %v=%v", args[i], args[i+1])
	}
	ic.tx.logs = append(ic.tx.logs, sb.String())
	ic.bank.logger.Debug(msg, append([]any{"program", ic.program.String()}, args...)...)
}

func (ic *InvokeContext) account(key solana.PublicKey) (*Account, error) {
	if _, ok := ic.Meta(key); !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingAccount, key)
	}
	acc, ok := ic.tx.get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, key)
	}
	return acc, nil
}
