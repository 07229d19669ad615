// Package protocolstest provides an in-memory Invoker for exercising venue
// adapters without a ledger.
package protocolstest

import (
	"errors"

	"github.com/gagliardetto/solana-go"
)

// Invoker records the instructions an adapter issues.
type Invoker struct {
	Program solana.PublicKey
	Owners  map[solana.PublicKey]solana.PublicKey
	Data    map[solana.PublicKey][]byte
	// Err, when set, is returned by every Invoke.
	Err   error
	Calls []solana.Instruction
}

// NewInvoker returns an invoker running as program.
func NewInvoker(program solana.PublicKey) *Invoker {
	return &Invoker{
		Program: program,
		Owners:  make(map[solana.PublicKey]solana.PublicKey),
		Data:    make(map[solana.PublicKey][]byte),
	}
}

// Own records owner as the owner of every key.
func (i *Invoker) Own(owner solana.PublicKey, keys ...solana.PublicKey) {
	for _, k := range keys {
		i.Owners[k] = owner
	}
}

func (i *Invoker) ProgramID() solana.PublicKey { return i.Program }

func (i *Invoker) Owner(key solana.PublicKey) (solana.PublicKey, error) {
	owner, ok := i.Owners[key]
	if !ok {
		return solana.PublicKey{}, errors.New("account not found")
	}
	return owner, nil
}

func (i *Invoker) AccountData(key solana.PublicKey) ([]byte, bool) {
	data, ok := i.Data[key]
	return data, ok
}

func (i *Invoker) Invoke(ix solana.Instruction) error {
	i.Calls = append(i.Calls, ix)
	return i.Err
}
