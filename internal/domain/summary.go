package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PoolSummary describes a two-token liquidity pool.
type PoolSummary struct {
	ContractAddress    string          `json:"contractAddress"`
	LpTokenID          string          `json:"lpTokenId"`
	FirstTokenID       string          `json:"firstTokenId"`
	SecondTokenID      string          `json:"secondTokenId"`
	LpTokenSupply      decimal.Decimal `json:"lpTokenSupply"`
	ReserveFirstToken  decimal.Decimal `json:"reserveFirstToken"`
	ReserveSecondToken decimal.Decimal `json:"reserveSecondToken"`
}

// FarmSummary describes an LP farm or a staking farm.
type FarmSummary struct {
	ContractAddress      string          `json:"contractAddress"`
	RewardTokenID        string          `json:"rewardTokenId"`
	FarmTokenID          string          `json:"farmTokenId"`
	FarmingTokenID       string          `json:"farmingTokenId"`
	RewardPerShare       decimal.Decimal `json:"rewardPerShare"`
	DivisionSafetyNumber decimal.Decimal `json:"divisionSafetyNumber"`
	RewardReserve        decimal.Decimal `json:"rewardReserve"`
	FarmTokenSupply      decimal.Decimal `json:"farmTokenSupply"`
}

// MetastakingFarmSummary cross-references the staking farm, LP farm and pool behind a dual-yield token.
type MetastakingFarmSummary struct {
	ContractAddress    string `json:"contractAddress"`
	DualYieldTokenID   string `json:"dualYieldTokenId"`
	FarmTokenID        string `json:"farmTokenId"`
	LpFarmAddress      string `json:"lpFarmAddress"`
	LpFarmTokenID      string `json:"lpFarmTokenId"`
	LpTokenID          string `json:"lpTokenId"`
	PairAddress        string `json:"pairAddress"`
	StakingFarmAddress string `json:"stakingFarmAddress"`
	StakingTokenID     string `json:"stakingTokenId"`
}

// MoneyMarketSummary describes a lending pool. Liquidity = cash + borrows - reserves.
type MoneyMarketSummary struct {
	ContractAddress string          `json:"contractAddress"`
	TokenID         string          `json:"tokenId"`
	TotalSupply     decimal.Decimal `json:"totalSupply"`
	Cash            decimal.Decimal `json:"cash"`
	TotalBorrows    decimal.Decimal `json:"totalBorrows"`
	TotalReserves   decimal.Decimal `json:"totalReserves"`
	Liquidity       decimal.Decimal `json:"liquidity"`
	ExchangeRate    decimal.Decimal `json:"exchangeRate"`
}

// ContractsSummary groups all summaries, each keyed by the token the contract issues.
type ContractsSummary struct {
	Pools             map[string]PoolSummary            `json:"pools"`
	Farms             map[string]FarmSummary            `json:"farms"`
	MetastakingFarms  map[string]MetastakingFarmSummary `json:"metastakingFarms"`
	HatomMoneyMarkets map[string]MoneyMarketSummary     `json:"hatomMoneyMarkets"`
}

// NewContractsSummary returns a summary with empty, non-nil maps.
func NewContractsSummary() ContractsSummary {
	return ContractsSummary{
		Pools:             make(map[string]PoolSummary),
		Farms:             make(map[string]FarmSummary),
		MetastakingFarms:  make(map[string]MetastakingFarmSummary),
		HatomMoneyMarkets: make(map[string]MoneyMarketSummary),
	}
}

func (s ContractsSummary) Pool(lpTokenID string) (PoolSummary, error) {
	p, ok := s.Pools[lpTokenID]
	if !ok {
		return PoolSummary{}, fmt.Errorf("%w: pool for token %s", ErrMissingSummary, lpTokenID)
	}
	return p, nil
}

func (s ContractsSummary) Farm(farmTokenID string) (FarmSummary, error) {
	f, ok := s.Farms[farmTokenID]
	if !ok {
		return FarmSummary{}, fmt.Errorf("%w: farm for token %s", ErrMissingSummary, farmTokenID)
	}
	return f, nil
}

func (s ContractsSummary) MetastakingFarm(dualYieldTokenID string) (MetastakingFarmSummary, error) {
	m, ok := s.MetastakingFarms[dualYieldTokenID]
	if !ok {
		return MetastakingFarmSummary{}, fmt.Errorf("%w: metastaking farm for token %s", ErrMissingSummary, dualYieldTokenID)
	}
	return m, nil
}

func (s ContractsSummary) MoneyMarket(tokenID string) (MoneyMarketSummary, error) {
	m, ok := s.HatomMoneyMarkets[tokenID]
	if !ok {
		return MoneyMarketSummary{}, fmt.Errorf("%w: money market for token %s", ErrMissingSummary, tokenID)
	}
	return m, nil
}
