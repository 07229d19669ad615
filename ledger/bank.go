package ledger

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gagliardetto/solana-go"
)

// maxInvokeDepth bounds nested cross-program invocations.
const maxInvokeDepth = 4

// Config holds the dependencies of a Bank.
type Config struct {
	Logger Logger
}

func (c *Config) validate() error {
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	return nil
}

// Bank is an in-memory ledger. Transactions are serialized and applied
// all-or-nothing: every write made by a transaction, including writes made
// by instructions that already succeeded, is discarded if any instruction fails.
type Bank struct {
	mu       sync.Mutex
	accounts map[solana.PublicKey]*Account
	programs map[solana.PublicKey]Program
	logger   Logger
}

// NewBank constructs a bank with the system and token programs installed.
func NewBank(cfg *Config) (*Bank, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	b := &Bank{
		accounts: make(map[solana.PublicKey]*Account),
		programs: make(map[solana.PublicKey]Program),
		logger:   cfg.Logger,
	}
	b.programs[solana.SystemProgramID] = systemProgram{}
	b.programs[solana.TokenProgramID] = tokenProgram{}
	return b, nil
}

// AddProgram deploys prog at id.
func (b *Bank) AddProgram(id solana.PublicKey, prog Program) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.programs[id]; exists {
		return fmt.Errorf("%w: program %s", ErrAccountInUse, id)
	}
	b.programs[id] = prog
	return nil
}

// SetAccount writes an account directly, outside of any transaction. It is
// meant for genesis setup.
func (b *Bank) SetAccount(key, owner solana.PublicKey, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[key] = (&Account{Owner: owner, Data: data}).clone()
}

// CreateTokenAccount writes a token account directly, outside of any transaction.
func (b *Bank) CreateTokenAccount(key, mint, owner solana.PublicKey, amount uint64) {
	b.SetAccount(key, solana.TokenProgramID, TokenAccount{Mint: mint, Owner: owner, Amount: amount}.Encode())
}

// Account returns a copy of the committed account at key.
func (b *Bank) Account(key solana.PublicKey) (Account, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.accounts[key]
	if !ok {
		return Account{}, false
	}
	return *acc.clone(), true
}

// TokenBalance returns the committed amount held by a token account.
func (b *Bank) TokenBalance(key solana.PublicKey) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return tokenBalance(b.accounts[key], key)
}

// Balances snapshots the committed amount of every token account.
func (b *Bank) Balances() map[solana.PublicKey]uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[solana.PublicKey]uint64)
	for key, acc := range b.accounts {
		if acc.Owner != solana.TokenProgramID {
			continue
		}
		if tok, err := DecodeTokenAccount(acc.Data); err == nil {
			out[key] = tok.Amount
		}
	}
	return out
}

// Execute runs instructions as one atomic transaction. signers lists the
// keys that signed the transaction.
func (b *Bank) Execute(ctx context.Context, signers []solana.PublicKey, instructions ...solana.Instruction) (*Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tx := newTxn(b.accounts)
	receipt := &Receipt{Instructions: len(instructions)}
	signed := mapset.NewThreadUnsafeSet(signers...)

	for i, ix := range instructions {
		if err := ctx.Err(); err != nil {
			receipt.Logs = tx.logs
			return receipt, &TransactionError{Index: i, ProgramID: ix.ProgramID(), Err: err}
		}
		if err := b.invoke(ctx, tx, nil, ix, signed); err != nil {
			receipt.Logs = tx.logs
			b.logger.Debug("transaction aborted", "instruction", i, "program", ix.ProgramID().String(), "error", err)
			return receipt, &TransactionError{Index: i, ProgramID: ix.ProgramID(), Err: err}
		}
	}

	tx.commit(b.accounts)
	receipt.Logs = tx.logs
	return receipt, nil
}

// invoke runs ix on behalf of caller (nil for a top-level instruction).
// signers are the keys allowed to carry the signer flag beyond those the
// caller already holds.
func (b *Bank) invoke(ctx context.Context, tx *txn, caller *InvokeContext, ix solana.Instruction, signers mapset.Set[solana.PublicKey]) error {
	programID := ix.ProgramID()
	prog, ok := b.programs[programID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrProgramNotFound, programID)
	}
	data, err := ix.Data()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInstruction, err)
	}

	metas := ix.Accounts()
	stack := mapset.NewThreadUnsafeSet[solana.PublicKey]()
	depth := 1

	if caller == nil {
		for _, m := range metas {
			if m.IsSigner && !signers.Contains(m.PublicKey) {
				return fmt.Errorf("%w: %s", ErrMissingSignature, m.PublicKey)
			}
		}
	} else {
		if caller.stack.Contains(programID) {
			return fmt.Errorf("%w: %s", ErrReentrancy, programID)
		}
		if caller.depth >= maxInvokeDepth {
			return ErrCallDepth
		}
		for _, m := range metas {
			parent, ok := caller.Meta(m.PublicKey)
			if !ok {
				return fmt.Errorf("%w: %s", ErrMissingAccount, m.PublicKey)
			}
			if m.IsWritable && !parent.IsWritable {
				return fmt.Errorf("%w: %s is not writable", ErrPrivilegeEscalation, m.PublicKey)
			}
			if m.IsSigner && !parent.IsSigner && !signers.Contains(m.PublicKey) {
				return fmt.Errorf("%w: %s is not a signer", ErrPrivilegeEscalation, m.PublicKey)
			}
		}
		stack = caller.stack.Clone()
		depth = caller.depth + 1
	}
	stack.Add(programID)

	ic := &InvokeContext{
		ctx:     ctx,
		bank:    b,
		tx:      tx,
		program: programID,
		metas:   metas,
		stack:   stack,
		depth:   depth,
	}
	return prog.Process(ic, data)
}

// txn is a copy-on-write overlay over the committed accounts.
type txn struct {
	base  map[solana.PublicKey]*Account
	dirty map[solana.PublicKey]*Account
	logs  []string
}

func newTxn(base map[solana.PublicKey]*Account) *txn {
	return &txn{base: base, dirty: make(map[solana.PublicKey]*Account)}
}

func (t *txn) get(key solana.PublicKey) (*Account, bool) {
	if acc, ok := t.dirty[key]; ok {
		return acc, true
	}
	acc, ok := t.base[key]
	return acc, ok
}

func (t *txn) put(key solana.PublicKey, acc *Account) {
	t.dirty[key] = acc
}

func (t *txn) commit(dst map[solana.PublicKey]*Account) {
	maps.Copy(dst, t.dirty)
}

func tokenBalance(acc *Account, key solana.PublicKey) (uint64, error) {
	if acc == nil {
		return 0, fmt.Errorf("%w: %s", ErrAccountNotFound, key)
	}
	if acc.Owner != solana.TokenProgramID {
		return 0, fmt.Errorf("%w: %s", ErrNotTokenAccount, key)
	}
	tok, err := DecodeTokenAccount(acc.Data)
	if err != nil {
		return 0, err
	}
	return tok.Amount, nil
}
