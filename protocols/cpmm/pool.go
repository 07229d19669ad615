// Package cpmm is a constant-product pool program that can stand in for the
// orca, raydium and saber venues on a local bank. It understands each venue's
// own swap payload, so the real adapters drive it unchanged.
package cpmm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// PoolSize is the size of a pool account: feeBps(2) | bump(1) | seed(32).
const PoolSize = 2 + 1 + solana.PublicKeyLength

var ErrInvalidPool = errors.New("invalid pool account")

// Pool is the persisted pool configuration. The pool address is the program
// address derived from Seed and Bump, and it owns both vaults.
type Pool struct {
	FeeBps uint16
	Bump   uint8
	Seed   solana.PublicKey
}

func (p Pool) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, PoolSize))
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteUint16(p.FeeBps, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint8(p.Bump); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(p.Seed[:], false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (p *Pool) UnmarshalBinary(data []byte) error {
	if len(data) != PoolSize {
		return fmt.Errorf("%w: size %d, want %d", ErrInvalidPool, len(data), PoolSize)
	}
	dec := bin.NewBorshDecoder(data)
	fee, err := dec.ReadUint16(binary.LittleEndian)
	if err != nil {
		return fmt.Errorf("%w: fee: %v", ErrInvalidPool, err)
	}
	bump, err := dec.ReadUint8()
	if err != nil {
		return fmt.Errorf("%w: bump: %v", ErrInvalidPool, err)
	}
	seed, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return fmt.Errorf("%w: seed: %v", ErrInvalidPool, err)
	}
	*p = Pool{FeeBps: fee, Bump: bump, Seed: solana.PublicKeyFromBytes(seed)}
	return nil
}

// signerSeeds are the seeds the program signs vault transfers with.
func (p Pool) signerSeeds() [][]byte {
	return [][]byte{p.Seed[:], {p.Bump}}
}

// PoolAddress derives the pool address for seed under programID.
func PoolAddress(programID, seed solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{seed[:]}, programID)
}

// VaultAddress derives the vault of pool holding mint.
func VaultAddress(programID, pool, mint solana.PublicKey) (solana.PublicKey, error) {
	key, _, err := solana.FindProgramAddress([][]byte{pool[:], mint[:]}, programID)
	return key, err
}
