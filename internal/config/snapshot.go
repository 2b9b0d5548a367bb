package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/tokensnap/internal/codec"
	"github.com/mtlprog/tokensnap/internal/domain"
)

// ContractFamily groups the contracts whose state is summarized the same way.
type ContractFamily string

const (
	FamilyPool            ContractFamily = "pool"
	FamilyFarm            ContractFamily = "farm"
	FamilyMetastakingFarm ContractFamily = "metastaking-farm"
	FamilyMoneyMarket     ContractFamily = "hatom"
)

// Families lists every contract family in config order.
var Families = []ContractFamily{FamilyPool, FamilyFarm, FamilyMetastakingFarm, FamilyMoneyMarket}

// ContractConfig describes one known contract and where its exported state lives.
type ContractConfig struct {
	Address       string `json:"address"`
	Token         string `json:"token"`
	StateFilename string `json:"stateFilename"`
	// Legacy pools may lack first_token_id/second_token_id in storage.
	FirstToken  string `json:"firstToken,omitempty"`
	SecondToken string `json:"secondToken,omitempty"`
	// Money markets may lack the cash key; the balance of this token is used instead.
	UnderlyingToken string `json:"underlyingToken,omitempty"`
}

// SnapshotConfig is the content of config.json.
type SnapshotConfig struct {
	Tokens                     []string                        `json:"tokens"`
	TokensMetadata             map[string]domain.TokenMetadata `json:"tokensMetadata"`
	Pools                      []ContractConfig                `json:"pools"`
	Farms                      []ContractConfig                `json:"farms"`
	MetastakingFarms           []ContractConfig                `json:"metastakingFarms"`
	HatomMoneyMarkets          []ContractConfig                `json:"hatomMoneyMarkets"`
	MetabondingContractAddress string                          `json:"metabondingContractAddress"`
	ExcludedAddresses          []string                        `json:"excludedAddresses,omitempty"`
	BaseTokenDecimals          *int32                          `json:"baseTokenDecimals,omitempty"`
	BaseTokenTotalSupply       *decimal.Decimal                `json:"baseTokenTotalSupply,omitempty"`

	registry  *domain.Registry
	baseToken string
	families  map[string]ContractFamily
	tags      map[string]string
}

// LoadSnapshot reads and validates config.json.
func LoadSnapshot(path string) (*SnapshotConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", domain.ErrConfig, path, err)
	}
	return ParseSnapshot(data)
}

// ParseSnapshot decodes and validates a snapshot config.
func ParseSnapshot(data []byte) (*SnapshotConfig, error) {
	var cfg SnapshotConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing JSON: %v", domain.ErrConfig, err)
	}
	if err := cfg.init(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *SnapshotConfig) init() error {
	if err := c.Validate(); err != nil {
		return err
	}

	registry, err := domain.NewRegistry(c.TokensMetadata)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConfig, err)
	}
	c.registry = registry
	if c.baseToken, err = registry.BaseToken(); err != nil {
		return err
	}

	c.families = make(map[string]ContractFamily)
	c.tags = make(map[string]string)
	for _, family := range Families {
		for _, item := range c.Contracts(family) {
			c.families[item.Address] = family
			c.tags[item.Address] = fmt.Sprintf("%s-%s", family, item.Token)
		}
	}
	return nil
}

// Validate checks every field needed before any computation starts.
func (c *SnapshotConfig) Validate() error {
	var errs []error

	if len(c.Tokens) == 0 {
		errs = append(errs, errors.New("tokens: must not be empty"))
	}
	for _, token := range c.Tokens {
		if _, ok := c.TokensMetadata[token]; !ok {
			errs = append(errs, fmt.Errorf("tokensMetadata: missing entry for %s", token))
		}
	}
	for name, meta := range c.TokensMetadata {
		if _, err := meta.Kind(); err != nil {
			errs = append(errs, fmt.Errorf("tokensMetadata[%s]: %v", name, err))
		}
	}

	wantKinds := map[ContractFamily][]domain.TokenKind{
		FamilyPool:            {domain.TokenKindLP},
		FamilyFarm:            {domain.TokenKindFarm, domain.TokenKindStaking},
		FamilyMetastakingFarm: {domain.TokenKindMetastaking},
		FamilyMoneyMarket:     {domain.TokenKindMoneyMarket},
	}
	seen := make(map[string]bool)
	for _, family := range Families {
		for i, item := range c.Contracts(family) {
			where := fmt.Sprintf("%s[%d]", family, i)
			if _, err := codec.DecodeAddress(item.Address); err != nil {
				errs = append(errs, fmt.Errorf("%s.address: %v", where, err))
			}
			if seen[item.Address] {
				errs = append(errs, fmt.Errorf("%s.address: %s listed more than once", where, item.Address))
			}
			seen[item.Address] = true
			if item.StateFilename == "" {
				errs = append(errs, fmt.Errorf("%s.stateFilename: must not be empty", where))
			}
			meta, ok := c.TokensMetadata[item.Token]
			if !ok {
				errs = append(errs, fmt.Errorf("%s.token: %q has no metadata", where, item.Token))
				continue
			}
			if kind, err := meta.Kind(); err == nil && !lo.Contains(wantKinds[family], kind) {
				errs = append(errs, fmt.Errorf("%s.token: %s is %s, want one of %v", where, item.Token, kind, wantKinds[family]))
			}
		}
	}

	for _, addr := range c.ExcludedAddresses {
		if _, err := codec.DecodeAddress(addr); err != nil {
			errs = append(errs, fmt.Errorf("excludedAddresses: %v", err))
		}
	}
	if c.MetabondingContractAddress != "" {
		if _, err := codec.DecodeAddress(c.MetabondingContractAddress); err != nil {
			errs = append(errs, fmt.Errorf("metabondingContractAddress: %v", err))
		}
	}
	if c.BaseTokenDecimals != nil && (*c.BaseTokenDecimals < 0 || *c.BaseTokenDecimals > 36) {
		errs = append(errs, fmt.Errorf("baseTokenDecimals: %d out of range", *c.BaseTokenDecimals))
	}
	if c.BaseTokenTotalSupply != nil && c.BaseTokenTotalSupply.IsNegative() {
		errs = append(errs, errors.New("baseTokenTotalSupply: must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrConfig, errors.Join(errs...))
	}
	return nil
}

// Registry returns the token classification built from tokensMetadata.
func (c *SnapshotConfig) Registry() *domain.Registry {
	return c.registry
}

// Contracts returns the configured contracts of a family.
func (c *SnapshotConfig) Contracts(family ContractFamily) []ContractConfig {
	switch family {
	case FamilyPool:
		return c.Pools
	case FamilyFarm:
		return c.Farms
	case FamilyMetastakingFarm:
		return c.MetastakingFarms
	case FamilyMoneyMarket:
		return c.HatomMoneyMarkets
	default:
		return nil
	}
}

// AllContracts returns every configured contract, family by family.
func (c *SnapshotConfig) AllContracts() []ContractConfig {
	return lo.FlatMap(Families, func(f ContractFamily, _ int) []ContractConfig {
		return c.Contracts(f)
	})
}

// TagOf returns the tag of a known contract, e.g. "farm-SUTK-ba35f3", or "".
func (c *SnapshotConfig) TagOf(address string) string {
	return c.tags[address]
}

// IsKnownContract reports whether address is one of the configured contracts.
func (c *SnapshotConfig) IsKnownContract(address string) bool {
	_, ok := c.families[address]
	return ok
}

// IsFarm reports whether address is an LP farm or staking farm contract.
func (c *SnapshotConfig) IsFarm(address string) bool {
	return c.families[address] == FamilyFarm
}

// BaseToken returns the symbol of the base token.
func (c *SnapshotConfig) BaseToken() string {
	return c.baseToken
}

// Decimals returns the number of decimals of the base token.
func (c *SnapshotConfig) Decimals() int32 {
	if c.BaseTokenDecimals == nil {
		return domain.DefaultDecimals
	}
	return *c.BaseTokenDecimals
}

// ExcludedFromRanking returns the protocol-reserved addresses left out of the ranking.
func (c *SnapshotConfig) ExcludedFromRanking() []string {
	excluded := lo.Uniq(c.ExcludedAddresses)
	if c.MetabondingContractAddress != "" && !lo.Contains(excluded, c.MetabondingContractAddress) {
		excluded = append(excluded, c.MetabondingContractAddress)
	}
	return excluded
}
