package domain

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// HexBytes is a byte string carried as hex text in JSON.
type HexBytes []byte

func (b HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(b))
}

func (b *HexBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("attributes must be a hex string: %w", err)
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("decoding hex attributes: %w", err)
	}
	*b = raw
	return nil
}

// TokenHolding is one token balance owned by an account. Holdings are never mutated;
// derived data is kept in tables keyed by HoldingKey.
type TokenHolding struct {
	Name       string          `json:"name"`
	Nonce      uint64          `json:"nonce"`
	Balance    decimal.Decimal `json:"balance"`
	Attributes HexBytes        `json:"attributes,omitempty"`
}

// IsFungible reports whether the holding carries no attributes.
func (h TokenHolding) IsFungible() bool {
	return h.Nonce == 0
}

// Account is a snapshot account with its ordered holdings.
type Account struct {
	Address    string         `json:"address"`
	AddressTag string         `json:"addressTag,omitempty"`
	Tokens     []TokenHolding `json:"tokens"`
}

// HoldingKey identifies a holding across the snapshot.
type HoldingKey struct {
	Address string
	Name    string
	Nonce   uint64
}

// KeyOf builds the key of a holding owned by address.
func KeyOf(address string, h TokenHolding) HoldingKey {
	return HoldingKey{Address: address, Name: h.Name, Nonce: h.Nonce}
}

func (k HoldingKey) String() string {
	return fmt.Sprintf("%s:%s:%d", k.Address, k.Name, k.Nonce)
}

// UnwrapResult is the base-token equivalent of a holding.
type UnwrapResult struct {
	Kind      TokenKind        `json:"kind"`
	Recovered decimal.Decimal  `json:"recovered"`
	Rewards   *decimal.Decimal `json:"rewards,omitempty"`

	// Set for metastaking holdings only.
	FractionaryLpFarmTokenAmount *decimal.Decimal `json:"fractionaryLpFarmTokenAmount,omitempty"`
	// Set for staking holdings: "active" or "unbonding".
	StakingVariant string `json:"stakingVariant,omitempty"`
}

// Total returns recovered plus rewards.
func (r UnwrapResult) Total() decimal.Decimal {
	if r.Rewards == nil {
		return r.Recovered
	}
	return r.Recovered.Add(*r.Rewards)
}
