// Package unwrap resolves every holding of a snapshot into its base token
// equivalent.
package unwrap

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/tokensnap/internal/accounts"
	"github.com/mtlprog/tokensnap/internal/checkpoint"
	"github.com/mtlprog/tokensnap/internal/domain"
)

// Staking variants reported in UnwrapResult.StakingVariant.
const (
	StakingActive    = "active"
	StakingUnbonding = "unbonding"
)

// Warning records a recoverable anomaly met while unwrapping.
type Warning struct {
	Address string `json:"address"`
	Token   string `json:"token"`
	Nonce   uint64 `json:"nonce"`
	Message string `json:"message"`
}

// Engine unwraps holdings against the contract summaries of one snapshot.
type Engine struct {
	registry    *domain.Registry
	summary     domain.ContractsSummary
	decoded     domain.DecodedAttributes
	index       *accounts.Index
	checkpoints *checkpoint.Accumulator

	touched   map[domain.HoldingKey]bool
	warnings  []Warning
	truncated int64
}

// NewEngine creates an Engine. Panics if registry, index or checkpoints is nil.
func NewEngine(
	registry *domain.Registry,
	summary domain.ContractsSummary,
	decoded domain.DecodedAttributes,
	index *accounts.Index,
	checkpoints *checkpoint.Accumulator,
) *Engine {
	if registry == nil {
		panic("unwrap.NewEngine: registry must not be nil")
	}
	if index == nil {
		panic("unwrap.NewEngine: index must not be nil")
	}
	if checkpoints == nil {
		panic("unwrap.NewEngine: checkpoints must not be nil")
	}
	return &Engine{
		registry:    registry,
		summary:     summary,
		decoded:     decoded,
		index:       index,
		checkpoints: checkpoints,
		touched:     make(map[domain.HoldingKey]bool),
	}
}

// Unwrap computes the base token equivalent of a holding owned by address and
// adds it to the checkpoints.
func (e *Engine) Unwrap(address string, h domain.TokenHolding) (domain.UnwrapResult, error) {
	key := domain.KeyOf(address, h)

	kind, err := e.registry.Kind(h.Name)
	if err != nil {
		return domain.UnwrapResult{}, fmt.Errorf("unwrapping %s: %w", key, err)
	}

	var r domain.UnwrapResult
	switch kind {
	case domain.TokenKindBase:
		r, err = e.unwrapBase(h)
	case domain.TokenKindLP:
		r, err = e.unwrapLP(h)
	case domain.TokenKindFarm:
		r, err = e.unwrapFarm(h)
	case domain.TokenKindStaking:
		r, err = e.unwrapStaking(key, h)
	case domain.TokenKindMetastaking:
		r, err = e.unwrapMetastaking(key, h)
	case domain.TokenKindMoneyMarket:
		r, err = e.unwrapMoneyMarket(h)
	default:
		err = fmt.Errorf("%w: %s", domain.ErrUnknownTokenKind, kind)
	}
	if err != nil {
		return domain.UnwrapResult{}, fmt.Errorf("unwrapping %s: %w", key, err)
	}

	r.Kind = kind
	return r, nil
}

func (e *Engine) unwrapBase(h domain.TokenHolding) (domain.UnwrapResult, error) {
	e.checkpoints.Accumulate(checkpoint.FoundBaseToken, h.Balance)
	return domain.UnwrapResult{Recovered: h.Balance}, nil
}

func (e *Engine) unwrapLP(h domain.TokenHolding) (domain.UnwrapResult, error) {
	pool, err := e.summary.Pool(h.Name)
	if err != nil {
		return domain.UnwrapResult{}, err
	}
	recovered, err := e.removeLiquidity(pool, h.Balance)
	if err != nil {
		return domain.UnwrapResult{}, err
	}
	e.checkpoints.Accumulate(checkpoint.RecoveredFromLp, recovered)
	return domain.UnwrapResult{Recovered: recovered}, nil
}

// unwrapFarm recovers the LP behind a farm position. Farm rewards are not counted.
func (e *Engine) unwrapFarm(h domain.TokenHolding) (domain.UnwrapResult, error) {
	farm, err := e.summary.Farm(h.Name)
	if err != nil {
		return domain.UnwrapResult{}, err
	}
	pool, err := e.summary.Pool(farm.FarmingTokenID)
	if err != nil {
		return domain.UnwrapResult{}, err
	}
	recovered, err := e.removeLiquidity(pool, h.Balance)
	if err != nil {
		return domain.UnwrapResult{}, err
	}
	e.checkpoints.Accumulate(checkpoint.RecoveredFromLpViaFarm, recovered)
	return domain.UnwrapResult{Recovered: recovered}, nil
}

func (e *Engine) unwrapStaking(key domain.HoldingKey, h domain.TokenHolding) (domain.UnwrapResult, error) {
	farm, err := e.summary.Farm(h.Name)
	if err != nil {
		return domain.UnwrapResult{}, err
	}
	attrs, err := e.attributes(key)
	if err != nil {
		return domain.UnwrapResult{}, err
	}

	switch a := attrs.(type) {
	case domain.UnbondAttributes:
		e.checkpoints.Accumulate(checkpoint.RecoveredFromStakingFarm, h.Balance)
		e.checkpoints.Accumulate(checkpoint.StakingInUnbondPeriod, h.Balance)
		return domain.UnwrapResult{Recovered: h.Balance, StakingVariant: StakingUnbonding}, nil

	case domain.StakingAttributes:
		rewards, err := e.rewards(key, farm, a.RewardPerShare, h.Balance)
		if err != nil {
			return domain.UnwrapResult{}, err
		}
		e.checkpoints.Accumulate(checkpoint.RecoveredFromStakingFarm, h.Balance)
		e.checkpoints.Accumulate(checkpoint.StakingButNotInUnbondPeriod, h.Balance)
		e.checkpoints.Accumulate(checkpoint.RecoveredStakingFarmRewards, rewards)
		return domain.UnwrapResult{Recovered: h.Balance, Rewards: &rewards, StakingVariant: StakingActive}, nil

	default:
		return domain.UnwrapResult{}, fmt.Errorf("%w: staking token has %T", domain.ErrMalformedAttributes, attrs)
	}
}

// unwrapMetastaking follows a dual-yield position to the LP farm and staking
// positions held by the metastaking contract. Only the share of those positions
// matching the held balance is recovered; both children are marked as consumed.
func (e *Engine) unwrapMetastaking(key domain.HoldingKey, h domain.TokenHolding) (domain.UnwrapResult, error) {
	ms, err := e.summary.MetastakingFarm(h.Name)
	if err != nil {
		return domain.UnwrapResult{}, err
	}
	stakingFarm, err := e.summary.Farm(ms.FarmTokenID)
	if err != nil {
		return domain.UnwrapResult{}, err
	}
	pool, err := e.summary.Pool(ms.LpTokenID)
	if err != nil {
		return domain.UnwrapResult{}, err
	}

	attrs, err := e.attributes(key)
	if err != nil {
		return domain.UnwrapResult{}, err
	}
	dual, ok := attrs.(domain.DualYieldAttributes)
	if !ok {
		return domain.UnwrapResult{}, fmt.Errorf("%w: metastaking token has %T", domain.ErrMalformedAttributes, attrs)
	}
	if dual.StakingFarmTokenAmount.IsZero() {
		return domain.UnwrapResult{}, fmt.Errorf("%w: stakingFarmTokenAmount is zero", domain.ErrMalformedAttributes)
	}

	stakingChild, err := e.index.Holding(ms.ContractAddress, ms.FarmTokenID, dual.StakingFarmTokenNonce)
	if err != nil {
		return domain.UnwrapResult{}, err
	}
	lpChild, err := e.index.Holding(ms.ContractAddress, ms.LpFarmTokenID, dual.LpFarmTokenNonce)
	if err != nil {
		return domain.UnwrapResult{}, err
	}
	stakingKey := domain.KeyOf(ms.ContractAddress, stakingChild)
	lpKey := domain.KeyOf(ms.ContractAddress, lpChild)

	childAttrs, err := e.attributes(stakingKey)
	if err != nil {
		return domain.UnwrapResult{}, err
	}
	stakingAttrs, ok := childAttrs.(domain.StakingAttributes)
	if !ok {
		return domain.UnwrapResult{}, fmt.Errorf("%w: staking position %s has %T", domain.ErrMalformedAttributes, stakingKey, childAttrs)
	}

	fractionaryLp := e.mulDiv(h.Balance, lpChild.Balance, dual.StakingFarmTokenAmount)
	recovered, err := e.removeLiquidity(pool, fractionaryLp)
	if err != nil {
		return domain.UnwrapResult{}, err
	}
	rewards, err := e.rewards(key, stakingFarm, stakingAttrs.RewardPerShare, recovered)
	if err != nil {
		return domain.UnwrapResult{}, err
	}

	e.touched[stakingKey] = true
	e.touched[lpKey] = true

	e.checkpoints.Accumulate(checkpoint.RecoveredFromLpViaMetastaking, recovered)
	e.checkpoints.Accumulate(checkpoint.RecoveredStakingFarmRewardsViaMetastaking, rewards)

	slog.Debug("metastaking unwrapped", "holding", key.String(),
		"fractionaryLpFarmTokenAmount", fractionaryLp, "recovered", recovered, "rewards", rewards)

	return domain.UnwrapResult{
		Recovered:                    recovered,
		Rewards:                      &rewards,
		FractionaryLpFarmTokenAmount: &fractionaryLp,
	}, nil
}

func (e *Engine) unwrapMoneyMarket(h domain.TokenHolding) (domain.UnwrapResult, error) {
	mm, err := e.summary.MoneyMarket(h.Name)
	if err != nil {
		return domain.UnwrapResult{}, err
	}
	if mm.TotalSupply.IsZero() {
		return domain.UnwrapResult{}, fmt.Errorf("%w: money market %s has zero totalSupply", domain.ErrInvalidSummary, mm.ContractAddress)
	}
	recovered := e.mulDiv(mm.Liquidity, h.Balance, mm.TotalSupply)
	e.checkpoints.Accumulate(checkpoint.RecoveredFromMoneyMarket, recovered)
	return domain.UnwrapResult{Recovered: recovered}, nil
}

// removeLiquidity simulates removing amount LP from pool and keeps only the first token.
func (e *Engine) removeLiquidity(pool domain.PoolSummary, amount decimal.Decimal) (decimal.Decimal, error) {
	if pool.LpTokenSupply.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: pool %s has zero lpTokenSupply", domain.ErrInvalidSummary, pool.ContractAddress)
	}
	return e.mulDiv(amount, pool.ReserveFirstToken, pool.LpTokenSupply), nil
}

// rewards computes (farm.rps - positionRps) * amount / dsn. A position ahead of
// the farm yields zero and a warning.
func (e *Engine) rewards(key domain.HoldingKey, farm domain.FarmSummary, positionRps, amount decimal.Decimal) (decimal.Decimal, error) {
	if farm.DivisionSafetyNumber.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: farm %s has zero divisionSafetyNumber", domain.ErrInvalidSummary, farm.ContractAddress)
	}
	diff := farm.RewardPerShare.Sub(positionRps)
	if diff.IsNegative() {
		msg := fmt.Sprintf("position rewardPerShare %s exceeds farm rewardPerShare %s", positionRps, farm.RewardPerShare)
		slog.Warn("negative staking rewards clamped to zero", "holding", key.String(), "detail", msg)
		e.warnings = append(e.warnings, Warning{Address: key.Address, Token: key.Name, Nonce: key.Nonce, Message: msg})
		return decimal.Zero, nil
	}
	return e.mulDiv(diff, amount, farm.DivisionSafetyNumber), nil
}

// mulDiv counts every inexact division toward the conservation tolerance.
func (e *Engine) mulDiv(a, b, c decimal.Decimal) decimal.Decimal {
	q, exact := domain.MulDiv(a, b, c)
	if !exact {
		e.truncated++
	}
	return q
}

func (e *Engine) attributes(key domain.HoldingKey) (domain.Attributes, error) {
	a, ok := e.decoded[key]
	if !ok {
		return nil, fmt.Errorf("%w: no decoded attributes for %s", domain.ErrMalformedAttributes, key)
	}
	return a, nil
}

// Touched reports whether a holding was consumed through a metastaking parent.
func (e *Engine) Touched(key domain.HoldingKey) bool {
	return e.touched[key]
}

// Warnings returns the anomalies recorded so far.
func (e *Engine) Warnings() []Warning {
	return e.warnings
}

// Truncations returns how many divisions so far dropped a remainder.
func (e *Engine) Truncations() int64 {
	return e.truncated
}
