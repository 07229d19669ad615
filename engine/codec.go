package engine

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// StateSize is the fixed size of an encoded ChainState record:
// discriminator(8) | pendingInput(8) | startBalance(8) | isOpen(1) | origin(32).
const StateSize = 8 + 8 + 8 + 1 + 32

var (
	stateDiscriminator = Discriminator("account", "ChainState")

	// ErrInvalidStateData is returned when account data does not hold a ChainState record.
	ErrInvalidStateData = errors.New("invalid chain state data")
)

// MarshalBinary encodes the record in its fixed persisted layout.
func (s ChainState) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, StateSize))
	enc := bin.NewBorshEncoder(buf)

	if err := enc.WriteBytes(stateDiscriminator[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(s.PendingInput, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(s.StartBalance, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteBool(s.IsOpen); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(s.Origin[:], false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a record previously produced by MarshalBinary.
func (s *ChainState) UnmarshalBinary(data []byte) error {
	if len(data) != StateSize {
		return fmt.Errorf("%w: size %d, want %d", ErrInvalidStateData, len(data), StateSize)
	}
	if !bytes.Equal(data[:8], stateDiscriminator[:]) {
		return fmt.Errorf("%w: discriminator mismatch", ErrInvalidStateData)
	}

	dec := bin.NewBorshDecoder(data[8:])
	var (
		out ChainState
		err error
	)
	if out.PendingInput, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return fmt.Errorf("%w: pending input: %v", ErrInvalidStateData, err)
	}
	if out.StartBalance, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return fmt.Errorf("%w: start balance: %v", ErrInvalidStateData, err)
	}
	if out.IsOpen, err = dec.ReadBool(); err != nil {
		return fmt.Errorf("%w: open flag: %v", ErrInvalidStateData, err)
	}
	origin, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return fmt.Errorf("%w: origin: %v", ErrInvalidStateData, err)
	}
	out.Origin = solana.PublicKeyFromBytes(origin)

	*s = out
	return nil
}
