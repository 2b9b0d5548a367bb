package summary

import (
	"encoding/hex"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/tokensnap/internal/codec"
	"github.com/mtlprog/tokensnap/internal/domain"
)

// TokenBalanceKeyPrefix prefixes the storage key holding a contract's own balance of a token.
const TokenBalanceKeyPrefix = "ELRONDesdt"

// State is the decoded storage of one contract, keyed by raw storage key.
type State struct {
	contract string
	pairs    map[string][]byte
}

// ParseState decodes hex key/value pairs as exported from the chain.
func ParseState(contract string, pairs map[string]string) (State, error) {
	s := State{contract: contract, pairs: make(map[string][]byte, len(pairs))}
	for k, v := range pairs {
		key, err := hex.DecodeString(k)
		if err != nil {
			return State{}, fmt.Errorf("contract %s: decoding storage key %q: %w", contract, k, err)
		}
		value, err := hex.DecodeString(v)
		if err != nil {
			return State{}, fmt.Errorf("contract %s: decoding value of key %q: %w", contract, key, err)
		}
		s.pairs[string(key)] = value
	}
	return s, nil
}

// Optional returns the value of key; absent keys read as zero length.
func (s State) Optional(key string) []byte {
	return s.pairs[key]
}

// Has reports whether key is present.
func (s State) Has(key string) bool {
	_, ok := s.pairs[key]
	return ok
}

// Required returns the value of key or ErrMissingStorageKey.
func (s State) Required(key string) ([]byte, error) {
	v, ok := s.pairs[key]
	if !ok {
		return nil, fmt.Errorf("%w: key %q in contract %s", domain.ErrMissingStorageKey, key, s.contract)
	}
	return v, nil
}

// Uint reads a required big-endian unsigned integer.
func (s State) Uint(key string) (decimal.Decimal, error) {
	v, err := s.Required(key)
	if err != nil {
		return decimal.Zero, err
	}
	return codec.Uint(v), nil
}

// OptionalUint reads an unsigned integer, zero when absent.
func (s State) OptionalUint(key string) decimal.Decimal {
	return codec.Uint(s.Optional(key))
}

// TokenID reads a required token identifier stored as raw text.
func (s State) TokenID(key string) (string, error) {
	v, err := s.Required(key)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// Address reads a required 32-byte address and renders it as bech32.
func (s State) Address(key string) (string, error) {
	v, err := s.Required(key)
	if err != nil {
		return "", err
	}
	addr, err := codec.EncodeAddress(v)
	if err != nil {
		return "", fmt.Errorf("%w: key %q in contract %s: %v", domain.ErrInvalidSummary, key, s.contract, err)
	}
	return addr, nil
}

// TokenBalance reads the contract's own balance of tokenID.
// The value carries a two-byte tag followed by the big-endian balance.
func (s State) TokenBalance(tokenID string) (decimal.Decimal, error) {
	v, err := s.Required(TokenBalanceKeyPrefix + tokenID)
	if err != nil {
		return decimal.Zero, err
	}
	if len(v) < 2 {
		return decimal.Zero, fmt.Errorf("%w: balance of %s in contract %s is %d bytes", domain.ErrInvalidSummary, tokenID, s.contract, len(v))
	}
	return codec.Uint(v[2:]), nil
}
