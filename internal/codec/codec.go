// Package codec implements the big-endian "nested" binary encoding used by
// smart-contract storage values and token attributes.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// AddressLen is the length of a raw account address.
const AddressLen = 32

// ErrShortBuffer is returned when a field extends past the end of the input.
var ErrShortBuffer = errors.New("unexpected end of input")

// Decoder reads nested-encoded fields sequentially.
type Decoder struct {
	data []byte
	pos  int
}

// NewDecoder creates a Decoder over data.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

func (d *Decoder) take(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.data) {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortBuffer, n, d.pos, len(d.data)-d.pos)
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *Decoder) U32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (d *Decoder) U64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// BigUint reads a u32 length prefix followed by a big-endian unsigned integer.
func (d *Decoder) BigUint() (decimal.Decimal, error) {
	n, err := d.U32()
	if err != nil {
		return decimal.Zero, err
	}
	b, err := d.take(int(n))
	if err != nil {
		return decimal.Zero, err
	}
	return Uint(b), nil
}

// Address reads a raw 32-byte address and renders it as bech32.
func (d *Decoder) Address() (string, error) {
	b, err := d.take(AddressLen)
	if err != nil {
		return "", err
	}
	return EncodeAddress(b)
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.data) - d.pos
}

// Finish fails if any input is left unread.
func (d *Decoder) Finish() error {
	if r := d.Remaining(); r != 0 {
		return fmt.Errorf("%d trailing bytes after offset %d", r, d.pos)
	}
	return nil
}

// Uint decodes a top-level big-endian unsigned integer; an empty value is zero.
func Uint(b []byte) decimal.Decimal {
	if len(b) == 0 {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(new(big.Int).SetBytes(b), 0)
}

// Encoder appends nested-encoded fields.
type Encoder struct {
	buf []byte
}

func (e *Encoder) U32(v uint32) *Encoder {
	e.buf = binary.BigEndian.AppendUint32(e.buf, v)
	return e
}

func (e *Encoder) U64(v uint64) *Encoder {
	e.buf = binary.BigEndian.AppendUint64(e.buf, v)
	return e
}

// BigUint appends a length-prefixed big-endian integer. v must be a non-negative integer.
func (e *Encoder) BigUint(v decimal.Decimal) *Encoder {
	b := v.BigInt().Bytes()
	e.U32(uint32(len(b)))
	e.buf = append(e.buf, b...)
	return e
}

// Bytes appends a length-prefixed byte string (token identifiers use this form).
func (e *Encoder) Bytes(b []byte) *Encoder {
	e.U32(uint32(len(b)))
	e.buf = append(e.buf, b...)
	return e
}

// Raw appends b verbatim.
func (e *Encoder) Raw(b []byte) *Encoder {
	e.buf = append(e.buf, b...)
	return e
}

// Result returns the encoded bytes.
func (e *Encoder) Result() []byte {
	return e.buf
}

// NestedTokenID encodes a token identifier as it appears inside composite storage keys.
func NestedTokenID(tokenID string) []byte {
	return new(Encoder).Bytes([]byte(tokenID)).Result()
}
