package protocols

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/holiman/uint256"
)

// Payload accumulates a little-endian instruction payload. The first write
// error sticks and is reported by Bytes.
type Payload struct {
	buf bytes.Buffer
	enc *bin.Encoder
	err error
}

// NewPayload starts a payload with prefix, typically an instruction discriminator.
func NewPayload(prefix []byte) *Payload {
	p := &Payload{}
	p.enc = bin.NewBorshEncoder(&p.buf)
	p.write(func() error { return p.enc.WriteBytes(prefix, false) })
	return p
}

func (p *Payload) write(fn func() error) *Payload {
	if p.err == nil {
		p.err = fn()
	}
	return p
}

func (p *Payload) U8(v uint8) *Payload {
	return p.write(func() error { return p.enc.WriteUint8(v) })
}

func (p *Payload) U16(v uint16) *Payload {
	return p.write(func() error { return p.enc.WriteUint16(v, binary.LittleEndian) })
}

func (p *Payload) U32(v uint32) *Payload {
	return p.write(func() error { return p.enc.WriteUint32(v, binary.LittleEndian) })
}

func (p *Payload) U64(v uint64) *Payload {
	return p.write(func() error { return p.enc.WriteUint64(v, binary.LittleEndian) })
}

// U128 writes the low 128 bits of v.
func (p *Payload) U128(v *uint256.Int) *Payload {
	return p.U64(v[0]).U64(v[1])
}

func (p *Payload) Bool(v bool) *Payload {
	return p.write(func() error { return p.enc.WriteBool(v) })
}

// Bytes returns the encoded payload.
func (p *Payload) Bytes() ([]byte, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.buf.Bytes(), nil
}

// Reader decodes a payload written by Payload. The first read error sticks
// and is reported by Err.
type Reader struct {
	dec *bin.Decoder
	err error
}

// NewReader checks that data starts with prefix and positions the reader after it.
func NewReader(data, prefix []byte) (*Reader, error) {
	if !bytes.HasPrefix(data, prefix) {
		return nil, fmt.Errorf("payload prefix mismatch")
	}
	return &Reader{dec: bin.NewBorshDecoder(data[len(prefix):])}, nil
}

func (r *Reader) U8() uint8 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint8()
	r.err = err
	return v
}

func (r *Reader) U16() uint16 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint16(binary.LittleEndian)
	r.err = err
	return v
}

func (r *Reader) U32() uint32 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint32(binary.LittleEndian)
	r.err = err
	return v
}

func (r *Reader) U64() uint64 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint64(binary.LittleEndian)
	r.err = err
	return v
}

func (r *Reader) U128() *uint256.Int {
	lo, hi := r.U64(), r.U64()
	return &uint256.Int{lo, hi, 0, 0}
}

func (r *Reader) Bool() bool {
	if r.err != nil {
		return false
	}
	v, err := r.dec.ReadBool()
	r.err = err
	return v
}

// Err reports the first decode error, or trailing bytes left unread.
func (r *Reader) Err() error {
	if r.err != nil {
		return r.err
	}
	if n := r.dec.Remaining(); n != 0 {
		return fmt.Errorf("%d trailing payload bytes", n)
	}
	return nil
}
