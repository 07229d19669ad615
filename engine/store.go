package engine

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ErrStateNotFound is returned when the state record has not been initialized.
var ErrStateNotFound = errors.New("chain state not initialized")

// AccountIO is the slice of the ledger the store needs. The ledger enforces
// that only the owning program may write the record.
type AccountIO interface {
	AccountData(key solana.PublicKey) ([]byte, bool)
	SetAccountData(key solana.PublicKey, data []byte) error
}

// Store reads and writes the singleton chain state record.
type Store struct {
	io  AccountIO
	key solana.PublicKey
}

// NewStore binds a store to the record at key.
func NewStore(io AccountIO, key solana.PublicKey) *Store {
	return &Store{io: io, key: key}
}

// Key returns the address of the record.
func (s *Store) Key() solana.PublicKey { return s.key }

// Phase reports the lifecycle phase, including PhaseUninitialized when the
// record does not exist.
func (s *Store) Phase() (Phase, error) {
	state, err := s.Read()
	if errors.Is(err, ErrStateNotFound) {
		return PhaseUninitialized, nil
	}
	if err != nil {
		return 0, err
	}
	return state.Phase(), nil
}

// Read loads the record.
func (s *Store) Read() (ChainState, error) {
	data, ok := s.io.AccountData(s.key)
	if !ok {
		return ChainState{}, fmt.Errorf("%w: %s", ErrStateNotFound, s.key)
	}
	var state ChainState
	if err := state.UnmarshalBinary(data); err != nil {
		return ChainState{}, err
	}
	return state, nil
}

// Write persists the record.
func (s *Store) Write(state ChainState) error {
	data, err := state.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode chain state: %w", err)
	}
	return s.io.SetAccountData(s.key, data)
}
