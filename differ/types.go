package differ

import "github.com/gagliardetto/solana-go"

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// AccountDiff is the balance change of one token account.
type AccountDiff struct {
	Account solana.PublicKey `json:"account"`
	Before  uint64           `json:"before"`
	After   uint64           `json:"after"`
}

// Gained reports whether the account ended with more than it started with.
func (d AccountDiff) Gained() bool { return d.After > d.Before }

// Amount is the absolute size of the change.
func (d AccountDiff) Amount() uint64 {
	if d.After >= d.Before {
		return d.After - d.Before
	}
	return d.Before - d.After
}

// BalanceDiff summarizes the balance changes between two ledger snapshots.
// Accounts are ordered by address and unchanged accounts are omitted.
type BalanceDiff struct {
	Timestamp uint64        `json:"timestamp"`
	Accounts  []AccountDiff `json:"accounts"`
}

// Changed returns the diff for key, if its balance changed.
func (d *BalanceDiff) Changed(key solana.PublicKey) (AccountDiff, bool) {
	for _, a := range d.Accounts {
		if a.Account.Equals(key) {
			return a, true
		}
	}
	return AccountDiff{}, false
}
