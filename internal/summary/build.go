package summary

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/tokensnap/internal/codec"
	"github.com/mtlprog/tokensnap/internal/config"
	"github.com/mtlprog/tokensnap/internal/domain"
)

// exchangeRatePrecision is the number of decimal places kept for money-market exchange rates.
const exchangeRatePrecision = 18

// BuildPool summarizes a liquidity pool.
func BuildPool(item config.ContractConfig, state State) (domain.PoolSummary, error) {
	first, err := tokenIDOrDefault(state, "first_token_id", item.FirstToken)
	if err != nil {
		return domain.PoolSummary{}, err
	}
	second, err := tokenIDOrDefault(state, "second_token_id", item.SecondToken)
	if err != nil {
		return domain.PoolSummary{}, err
	}

	lpTokenID := item.Token
	if state.Has("lp_token_identifier") {
		lpTokenID = string(state.Optional("lp_token_identifier"))
	}

	lpSupply, err := state.Uint("lp_token_supply")
	if err != nil {
		return domain.PoolSummary{}, err
	}
	reserveFirst, err := state.Uint(reserveKey(first))
	if err != nil {
		return domain.PoolSummary{}, err
	}

	return domain.PoolSummary{
		ContractAddress:    item.Address,
		LpTokenID:          lpTokenID,
		FirstTokenID:       first,
		SecondTokenID:      second,
		LpTokenSupply:      lpSupply,
		ReserveFirstToken:  reserveFirst,
		ReserveSecondToken: state.OptionalUint(reserveKey(second)),
	}, nil
}

func tokenIDOrDefault(state State, key, fallback string) (string, error) {
	if state.Has(key) {
		return string(state.Optional(key)), nil
	}
	if fallback != "" {
		return fallback, nil
	}
	return state.TokenID(key)
}

func reserveKey(tokenID string) string {
	return "reserve" + string(codec.NestedTokenID(tokenID))
}

// BuildFarm summarizes an LP farm or a staking farm.
func BuildFarm(item config.ContractConfig, state State) (domain.FarmSummary, error) {
	rps, err := state.Uint("reward_per_share")
	if err != nil {
		return domain.FarmSummary{}, err
	}
	dsn, err := state.Uint("division_safety_constant")
	if err != nil {
		return domain.FarmSummary{}, err
	}
	if dsn.IsZero() {
		return domain.FarmSummary{}, fmt.Errorf("%w: division_safety_constant is zero in contract %s", domain.ErrInvalidSummary, item.Address)
	}
	rewardTokenID, err := state.TokenID("reward_token_id")
	if err != nil {
		return domain.FarmSummary{}, err
	}
	farmTokenID, err := state.TokenID("farm_token_id")
	if err != nil {
		return domain.FarmSummary{}, err
	}
	farmingTokenID, err := state.TokenID("farming_token_id")
	if err != nil {
		return domain.FarmSummary{}, err
	}

	return domain.FarmSummary{
		ContractAddress:      item.Address,
		RewardTokenID:        rewardTokenID,
		FarmTokenID:          farmTokenID,
		FarmingTokenID:       farmingTokenID,
		RewardPerShare:       rps,
		DivisionSafetyNumber: dsn,
		RewardReserve:        state.OptionalUint("reward_reserve"),
		FarmTokenSupply:      state.OptionalUint("farm_token_supply"),
	}, nil
}

// BuildMetastakingFarm summarizes a metastaking farm from its cross-references.
func BuildMetastakingFarm(item config.ContractConfig, state State) (domain.MetastakingFarmSummary, error) {
	s := domain.MetastakingFarmSummary{ContractAddress: item.Address}

	tokens := []struct {
		key string
		dst *string
	}{
		{"dualYieldTokenId", &s.DualYieldTokenID},
		{"farmTokenId", &s.FarmTokenID},
		{"lpFarmTokenId", &s.LpFarmTokenID},
		{"lpTokenId", &s.LpTokenID},
		{"stakingTokenId", &s.StakingTokenID},
	}
	for _, f := range tokens {
		v, err := state.TokenID(f.key)
		if err != nil {
			return domain.MetastakingFarmSummary{}, err
		}
		*f.dst = v
	}

	addresses := []struct {
		key string
		dst *string
	}{
		{"lpFarmAddress", &s.LpFarmAddress},
		{"pairAddress", &s.PairAddress},
		{"stakingFarmAddress", &s.StakingFarmAddress},
	}
	for _, f := range addresses {
		v, err := state.Address(f.key)
		if err != nil {
			return domain.MetastakingFarmSummary{}, err
		}
		*f.dst = v
	}

	return s, nil
}

// BuildMoneyMarket summarizes a lending pool. When the cash key is absent the
// contract's own balance of the underlying token is used.
func BuildMoneyMarket(item config.ContractConfig, state State) (domain.MoneyMarketSummary, error) {
	totalSupply, err := state.Uint("totalSupply")
	if err != nil {
		return domain.MoneyMarketSummary{}, err
	}
	totalBorrows, err := state.Uint("totalBorrows")
	if err != nil {
		return domain.MoneyMarketSummary{}, err
	}
	totalReserves, err := state.Uint("totalReserves")
	if err != nil {
		return domain.MoneyMarketSummary{}, err
	}

	var cash decimal.Decimal
	switch {
	case state.Has("cash"):
		cash = state.OptionalUint("cash")
	case item.UnderlyingToken != "":
		cash, err = state.TokenBalance(item.UnderlyingToken)
		if err != nil {
			return domain.MoneyMarketSummary{}, err
		}
	default:
		_, err = state.Required("cash")
		return domain.MoneyMarketSummary{}, err
	}

	liquidity := cash.Add(totalBorrows).Sub(totalReserves)
	if liquidity.IsNegative() {
		return domain.MoneyMarketSummary{}, fmt.Errorf("%w: negative liquidity %s in contract %s", domain.ErrInvalidSummary, liquidity, item.Address)
	}

	exchangeRate := decimal.Zero
	if !totalSupply.IsZero() {
		exchangeRate = liquidity.DivRound(totalSupply, exchangeRatePrecision)
	}

	return domain.MoneyMarketSummary{
		ContractAddress: item.Address,
		TokenID:         item.Token,
		TotalSupply:     totalSupply,
		Cash:            cash,
		TotalBorrows:    totalBorrows,
		TotalReserves:   totalReserves,
		Liquidity:       liquidity,
		ExchangeRate:    exchangeRate,
	}, nil
}
