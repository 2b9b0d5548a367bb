package domain

import (
	"fmt"
	"sort"
)

// TokenKind classifies a tracked token symbol.
type TokenKind string

const (
	TokenKindBase        TokenKind = "base"
	TokenKindLP          TokenKind = "lp"
	TokenKindFarm        TokenKind = "farm"
	TokenKindStaking     TokenKind = "staking"
	TokenKindMetastaking TokenKind = "metastaking"
	TokenKindMoneyMarket TokenKind = "moneyMarket"
)

// AttributesLayout identifies the binary layout of SFT/NFT attributes.
type AttributesLayout string

const (
	LayoutNone      AttributesLayout = ""
	LayoutFarmV1_3  AttributesLayout = "farmV1_3"
	LayoutFarmV2    AttributesLayout = "farmV2"
	LayoutStaking   AttributesLayout = "staking"
	LayoutDualYield AttributesLayout = "dualYield"
)

// TokenMetadata holds the classification flags of a token as found in config.json.
type TokenMetadata struct {
	IsBaseToken             bool `json:"isBaseToken,omitempty"`
	IsLPToken               bool `json:"isLPToken,omitempty"`
	IsFarmToken             bool `json:"isFarmToken,omitempty"`
	IsFarmTokenV2           bool `json:"isFarmTokenV2,omitempty"`
	IsFarmTokenV1_3         bool `json:"isFarmTokenV1_3,omitempty"`
	IsStakingToken          bool `json:"isStakingToken,omitempty"`
	IsMetastakingToken      bool `json:"isMetastakingToken,omitempty"`
	IsHatomMoneyMarketToken bool `json:"isHatomMoneyMarketToken,omitempty"`
}

// Kind resolves the flags to exactly one TokenKind.
// The farm layout flags are auxiliary and do not count as a kind on their own.
func (m TokenMetadata) Kind() (TokenKind, error) {
	var kinds []TokenKind
	if m.IsBaseToken {
		kinds = append(kinds, TokenKindBase)
	}
	if m.IsLPToken {
		kinds = append(kinds, TokenKindLP)
	}
	if m.IsFarmToken {
		kinds = append(kinds, TokenKindFarm)
	}
	if m.IsStakingToken {
		kinds = append(kinds, TokenKindStaking)
	}
	if m.IsMetastakingToken {
		kinds = append(kinds, TokenKindMetastaking)
	}
	if m.IsHatomMoneyMarketToken {
		kinds = append(kinds, TokenKindMoneyMarket)
	}

	switch len(kinds) {
	case 0:
		return "", fmt.Errorf("%w: no kind flag set", ErrUnknownTokenKind)
	case 1:
		return kinds[0], nil
	default:
		return "", fmt.Errorf("%w: conflicting kind flags %v", ErrUnknownTokenKind, kinds)
	}
}

// Layout returns the attributes layout used by non-fungible holdings of the token.
func (m TokenMetadata) Layout() AttributesLayout {
	switch {
	case m.IsFarmTokenV2:
		return LayoutFarmV2
	case m.IsFarmTokenV1_3:
		return LayoutFarmV1_3
	case m.IsStakingToken:
		return LayoutStaking
	case m.IsMetastakingToken:
		return LayoutDualYield
	default:
		return LayoutNone
	}
}

// Registry is the static classification of every tracked token symbol.
type Registry struct {
	metadata map[string]TokenMetadata
	kinds    map[string]TokenKind
}

// NewRegistry classifies every entry once. A token with zero or conflicting kind flags is rejected.
func NewRegistry(metadata map[string]TokenMetadata) (*Registry, error) {
	r := &Registry{
		metadata: make(map[string]TokenMetadata, len(metadata)),
		kinds:    make(map[string]TokenKind, len(metadata)),
	}
	for name, m := range metadata {
		kind, err := m.Kind()
		if err != nil {
			return nil, fmt.Errorf("token %s: %w", name, err)
		}
		r.metadata[name] = m
		r.kinds[name] = kind
	}
	return r, nil
}

// Metadata returns the flags of a token.
func (r *Registry) Metadata(name string) (TokenMetadata, error) {
	m, ok := r.metadata[name]
	if !ok {
		return TokenMetadata{}, fmt.Errorf("%w: no metadata for token %s", ErrUnknownTokenKind, name)
	}
	return m, nil
}

// Kind returns the classified kind of a token.
func (r *Registry) Kind(name string) (TokenKind, error) {
	k, ok := r.kinds[name]
	if !ok {
		return "", fmt.Errorf("%w: no metadata for token %s", ErrUnknownTokenKind, name)
	}
	return k, nil
}

// IsBaseToken reports whether name is the base token.
func (r *Registry) IsBaseToken(name string) bool {
	return r.metadata[name].IsBaseToken
}

// StakingTokens returns every staking farm token in lexicographic order.
func (r *Registry) StakingTokens() []string {
	return r.namesOf(TokenKindStaking)
}

// BaseToken returns the base token symbol.
func (r *Registry) BaseToken() (string, error) {
	names := r.namesOf(TokenKindBase)
	if len(names) == 0 {
		return "", fmt.Errorf("%w: no base token in metadata", ErrConfig)
	}
	return names[0], nil
}

func (r *Registry) namesOf(kind TokenKind) []string {
	var names []string
	for name, k := range r.kinds {
		if k == kind {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
