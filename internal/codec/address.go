package codec

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// AddressHRP is the human-readable prefix of account addresses.
const AddressHRP = "erd"

// EncodeAddress renders a raw 32-byte address as bech32.
func EncodeAddress(raw []byte) (string, error) {
	if len(raw) != AddressLen {
		return "", fmt.Errorf("address must be %d bytes, got %d", AddressLen, len(raw))
	}
	conv, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("converting address bits: %w", err)
	}
	addr, err := bech32.Encode(AddressHRP, conv)
	if err != nil {
		return "", fmt.Errorf("encoding bech32 address: %w", err)
	}
	return addr, nil
}

// DecodeAddress parses a bech32 address into its raw 32 bytes.
func DecodeAddress(addr string) ([]byte, error) {
	hrp, data, err := bech32.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("decoding bech32 address %q: %w", addr, err)
	}
	if hrp != AddressHRP {
		return nil, fmt.Errorf("address %q has prefix %q, want %q", addr, hrp, AddressHRP)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("converting address %q bits: %w", addr, err)
	}
	if len(raw) != AddressLen {
		return nil, fmt.Errorf("address %q decodes to %d bytes, want %d", addr, len(raw), AddressLen)
	}
	return raw, nil
}
