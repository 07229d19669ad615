package protocols

import (
	"fmt"

	"github.com/defistate/swapchain-go/engine"
	"github.com/gagliardetto/solana-go"
)

// AccountRule is the structural expectation for one positional account.
// Zero Owner or Address values are not checked.
type AccountRule struct {
	Name     string
	Writable bool
	Signer   bool
	Owner    solana.PublicKey
	Address  solana.PublicKey
}

// CheckAccounts validates the first len(rules) accounts against rules.
// Accounts are checked structurally only; nothing about their contents is trusted.
func CheckAccounts(inv Invoker, tag Tag, accounts []*solana.AccountMeta, rules []AccountRule) error {
	if len(accounts) < len(rules) {
		return fmt.Errorf("%w: %s needs %d accounts, got %d", engine.ErrInvalidVenueAccounts, tag, len(rules), len(accounts))
	}
	for i, rule := range rules {
		m := accounts[i]
		if rule.Writable && !m.IsWritable {
			return fmt.Errorf("%w: %s %s must be writable", engine.ErrInvalidVenueAccounts, tag, rule.Name)
		}
		if rule.Signer && !m.IsSigner {
			return fmt.Errorf("%w: %s %s must sign", engine.ErrInvalidVenueAccounts, tag, rule.Name)
		}
		if !rule.Address.IsZero() && !m.PublicKey.Equals(rule.Address) {
			return fmt.Errorf("%w: %s %s must be %s, got %s", engine.ErrInvalidVenueAccounts, tag, rule.Name, rule.Address, m.PublicKey)
		}
		if !rule.Owner.IsZero() {
			owner, err := inv.Owner(m.PublicKey)
			if err != nil {
				return fmt.Errorf("%w: %s %s: %v", engine.ErrInvalidVenueAccounts, tag, rule.Name, err)
			}
			if !owner.Equals(rule.Owner) {
				return fmt.Errorf("%w: %s %s owned by %s, want %s", engine.ErrInvalidVenueAccounts, tag, rule.Name, owner, rule.Owner)
			}
		}
	}
	return nil
}

// RequireCount fails unless exactly want accounts were supplied.
func RequireCount(tag Tag, accounts []*solana.AccountMeta, want int) error {
	if len(accounts) != want {
		return fmt.Errorf("%w: %s needs %d accounts, got %d", engine.ErrInvalidVenueAccounts, tag, want, len(accounts))
	}
	return nil
}

// Meta is a shorthand for an account meta.
func Meta(key solana.PublicKey, writable, signer bool) *solana.AccountMeta {
	return solana.NewAccountMeta(key, writable, signer)
}
