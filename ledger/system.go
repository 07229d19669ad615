package ledger

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

// NewCreateAccountInstruction builds a system CreateAccount instruction.
// Lamports are encoded for wire compatibility; the bank does not model rent.
func NewCreateAccountInstruction(funder, newAccount solana.PublicKey, lamports, space uint64, owner solana.PublicKey) solana.Instruction {
	return system.NewCreateAccountInstruction(lamports, space, owner, funder, newAccount).Build()
}

type systemProgram struct{}

func (systemProgram) Process(ic *InvokeContext, data []byte) error {
	inst, err := system.DecodeInstruction(ic.Accounts(), data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInstruction, err)
	}
	switch ix := inst.Impl.(type) {
	case *system.CreateAccount:
		return createAccount(ic, ix)
	default:
		return fmt.Errorf("%w: unsupported system instruction %s", ErrInvalidInstruction, system.InstructionIDToName(inst.TypeID.Uint32()))
	}
}

func createAccount(ic *InvokeContext, ix *system.CreateAccount) error {
	metas := ic.Accounts()
	if ix.Space == nil || ix.Owner == nil || len(metas) < 2 {
		return ErrInvalidInstruction
	}

	funder, target := metas[0], metas[1]
	if !funder.IsSigner || !target.IsSigner {
		return ErrMissingSignature
	}
	if !target.IsWritable {
		return fmt.Errorf("%w: %s", ErrReadonlyAccount, target.PublicKey)
	}
	if _, exists := ic.tx.get(target.PublicKey); exists {
		return fmt.Errorf("%w: %s", ErrAccountInUse, target.PublicKey)
	}
	ic.tx.put(target.PublicKey, &Account{Owner: *ix.Owner, Data: make([]byte, *ix.Space)})
	return nil
}
