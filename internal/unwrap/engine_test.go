package unwrap

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/tokensnap/internal/accounts"
	"github.com/mtlprog/tokensnap/internal/checkpoint"
	"github.com/mtlprog/tokensnap/internal/domain"
)

const (
	base        = "UTK-2f80e9"
	lpToken     = "UTKWEGLP-c8c4d3"
	farmToken   = "UTKWEGLPFARM-abcdef"
	stakeToken  = "SUTK-ba35f3"
	metaToken   = "METAUTK-112f52"
	marketToken = "HUTK-4fa4b2"

	poolAddr    = "erd1pool"
	farmAddr    = "erd1farm"
	stakingAddr = "erd1staking"
	metaAddr    = "erd1meta"
	marketAddr  = "erd1market"
)

func d(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

type contractSet map[string]bool // address -> is farm

func (c contractSet) IsKnownContract(address string) bool {
	_, ok := c[address]
	return ok
}

func (c contractSet) IsFarm(address string) bool {
	return c[address]
}

var contracts = contractSet{poolAddr: false, farmAddr: true, stakingAddr: true, metaAddr: false, marketAddr: false}

func testRegistry(t *testing.T) *domain.Registry {
	t.Helper()
	r, err := domain.NewRegistry(map[string]domain.TokenMetadata{
		base:        {IsBaseToken: true},
		lpToken:     {IsLPToken: true},
		farmToken:   {IsFarmToken: true, IsFarmTokenV2: true},
		stakeToken:  {IsStakingToken: true},
		metaToken:   {IsMetastakingToken: true},
		marketToken: {IsHatomMoneyMarketToken: true},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r
}

func testSummary() domain.ContractsSummary {
	s := domain.NewContractsSummary()
	s.Pools[lpToken] = domain.PoolSummary{
		ContractAddress: poolAddr, LpTokenID: lpToken, FirstTokenID: base, SecondTokenID: "WEGLD-bd4d79",
		LpTokenSupply: d(1000), ReserveFirstToken: d(5000), ReserveSecondToken: d(70),
	}
	s.Farms[farmToken] = domain.FarmSummary{
		ContractAddress: farmAddr, FarmTokenID: farmToken, FarmingTokenID: lpToken, RewardTokenID: base,
		RewardPerShare: d(10), DivisionSafetyNumber: d(100),
	}
	s.Farms[stakeToken] = domain.FarmSummary{
		ContractAddress: stakingAddr, FarmTokenID: stakeToken, FarmingTokenID: base, RewardTokenID: base,
		RewardPerShare: d(1000), DivisionSafetyNumber: d(100), RewardReserve: d(125),
	}
	s.MetastakingFarms[metaToken] = domain.MetastakingFarmSummary{
		ContractAddress: metaAddr, DualYieldTokenID: metaToken, FarmTokenID: stakeToken,
		LpFarmAddress: farmAddr, LpFarmTokenID: farmToken, LpTokenID: lpToken,
		PairAddress: poolAddr, StakingFarmAddress: stakingAddr, StakingTokenID: base,
	}
	s.HatomMoneyMarkets[marketToken] = domain.MoneyMarketSummary{
		ContractAddress: marketAddr, TokenID: marketToken, TotalSupply: d(500),
		Cash: d(800), TotalBorrows: d(300), TotalReserves: d(100), Liquidity: d(1000), ExchangeRate: d(2),
	}
	return s
}

// world is a small self-consistent snapshot: 5000 UTK sit in the pool and are
// shared by bob (LP), carol (farm) and the metastaking position split between
// dave and erin.
func world() ([]domain.Account, domain.DecodedAttributes) {
	accs := []domain.Account{
		{Address: "erd1alice", Tokens: []domain.TokenHolding{{Name: base, Balance: d(1000)}}},
		{Address: "erd1bob", Tokens: []domain.TokenHolding{{Name: lpToken, Balance: d(10)}}},
		{Address: "erd1carol", Tokens: []domain.TokenHolding{{Name: farmToken, Nonce: 1, Balance: d(890)}}},
		{Address: "erd1dave", Tokens: []domain.TokenHolding{{Name: metaToken, Nonce: 1, Balance: d(40)}}},
		{Address: "erd1erin", Tokens: []domain.TokenHolding{{Name: metaToken, Nonce: 1, Balance: d(60)}}},
		{Address: "erd1frank", Tokens: []domain.TokenHolding{{Name: stakeToken, Nonce: 2, Balance: d(50)}}},
		{Address: "erd1grace", Tokens: []domain.TokenHolding{{Name: stakeToken, Nonce: 5, Balance: d(25)}}},
		{Address: poolAddr, Tokens: []domain.TokenHolding{{Name: base, Balance: d(5000)}}},
		{Address: farmAddr, Tokens: []domain.TokenHolding{{Name: lpToken, Balance: d(990)}}},
		{Address: stakingAddr, Tokens: []domain.TokenHolding{{Name: base, Balance: d(300)}}},
		{Address: metaAddr, Tokens: []domain.TokenHolding{
			{Name: farmToken, Nonce: 3, Balance: d(100)},
			{Name: stakeToken, Nonce: 4, Balance: d(100)},
		}},
	}

	decoded := domain.DecodedAttributes{
		{Address: "erd1carol", Name: farmToken, Nonce: 1}: domain.FarmAttributesV2{Type: domain.AttributesTypeFarmV2, RewardPerShare: d(1), CurrentFarmAmount: d(890)},
		{Address: "erd1dave", Name: metaToken, Nonce: 1}: domain.DualYieldAttributes{
			Type: domain.AttributesTypeDualYield, LpFarmTokenNonce: 3, LpFarmTokenAmount: d(100), StakingFarmTokenNonce: 4, StakingFarmTokenAmount: d(100),
		},
		{Address: "erd1erin", Name: metaToken, Nonce: 1}: domain.DualYieldAttributes{
			Type: domain.AttributesTypeDualYield, LpFarmTokenNonce: 3, LpFarmTokenAmount: d(100), StakingFarmTokenNonce: 4, StakingFarmTokenAmount: d(100),
		},
		{Address: "erd1frank", Name: stakeToken, Nonce: 2}: domain.StakingAttributes{Type: domain.AttributesTypeStaking, RewardPerShare: d(400), CurrentFarmAmount: d(50)},
		{Address: "erd1grace", Name: stakeToken, Nonce: 5}: domain.UnbondAttributes{Type: domain.AttributesTypeUnbond, UnlockEpoch: 900, UnbondPeriod: 10},
		{Address: metaAddr, Name: farmToken, Nonce: 3}:     domain.FarmAttributesV2{Type: domain.AttributesTypeFarmV2, RewardPerShare: d(2), CurrentFarmAmount: d(100)},
		{Address: metaAddr, Name: stakeToken, Nonce: 4}:    domain.StakingAttributes{Type: domain.AttributesTypeStaking, RewardPerShare: d(900), CurrentFarmAmount: d(100)},
	}
	return accs, decoded
}

func newEngine(t *testing.T, accs []domain.Account, decoded domain.DecodedAttributes) (*Engine, *checkpoint.Accumulator) {
	t.Helper()
	idx, err := accounts.New(accs)
	if err != nil {
		t.Fatalf("accounts.New: %v", err)
	}
	acc := checkpoint.NewAccumulator()
	return NewEngine(testRegistry(t), testSummary(), decoded, idx, acc), acc
}

func newWorldEngine(t *testing.T) (*Engine, *checkpoint.Accumulator) {
	t.Helper()
	accs, decoded := world()
	return newEngine(t, accs, decoded)
}

func TestUnwrapLP(t *testing.T) {
	e, acc := newWorldEngine(t)

	r, err := e.Unwrap("erd1bob", domain.TokenHolding{Name: lpToken, Balance: d(10)})
	if err != nil {
		t.Fatalf("Unwrap() error: %v", err)
	}
	if !r.Recovered.Equal(d(50)) {
		t.Errorf("Recovered = %s, want 50", r.Recovered)
	}
	if r.Kind != domain.TokenKindLP || r.Rewards != nil {
		t.Errorf("Unwrap() = %+v, want LP without rewards", r)
	}
	if !acc.Get(checkpoint.RecoveredFromLp).Equal(d(50)) {
		t.Errorf("recoveredFromLp = %s, want 50", acc.Get(checkpoint.RecoveredFromLp))
	}
}

func TestUnwrapFarmHasNoRewards(t *testing.T) {
	e, acc := newWorldEngine(t)

	r, err := e.Unwrap("erd1carol", domain.TokenHolding{Name: farmToken, Nonce: 1, Balance: d(890)})
	if err != nil {
		t.Fatalf("Unwrap() error: %v", err)
	}
	if !r.Recovered.Equal(d(4450)) || r.Rewards != nil {
		t.Errorf("Unwrap() = %+v, want recovered 4450 and no rewards", r)
	}
	if !acc.Get(checkpoint.RecoveredFromLpViaFarm).Equal(d(4450)) {
		t.Errorf("recoveredFromLpViaFarm = %s", acc.Get(checkpoint.RecoveredFromLpViaFarm))
	}
}

func TestUnwrapStakingActive(t *testing.T) {
	e, acc := newWorldEngine(t)

	r, err := e.Unwrap("erd1frank", domain.TokenHolding{Name: stakeToken, Nonce: 2, Balance: d(50)})
	if err != nil {
		t.Fatalf("Unwrap() error: %v", err)
	}
	if !r.Recovered.Equal(d(50)) {
		t.Errorf("Recovered = %s, want 50", r.Recovered)
	}
	if r.Rewards == nil || !r.Rewards.Equal(d(300)) {
		t.Errorf("Rewards = %v, want 300", r.Rewards)
	}
	if r.StakingVariant != StakingActive {
		t.Errorf("StakingVariant = %q, want active", r.StakingVariant)
	}
	if !acc.Get(checkpoint.StakingButNotInUnbondPeriod).Equal(d(50)) || !acc.Get(checkpoint.RecoveredStakingFarmRewards).Equal(d(300)) {
		t.Errorf("checkpoints = %v", acc.Snapshot())
	}
}

func TestUnwrapStakingUnbonding(t *testing.T) {
	e, acc := newWorldEngine(t)

	r, err := e.Unwrap("erd1grace", domain.TokenHolding{Name: stakeToken, Nonce: 5, Balance: d(25)})
	if err != nil {
		t.Fatalf("Unwrap() error: %v", err)
	}
	if !r.Recovered.Equal(d(25)) || r.Rewards != nil || r.StakingVariant != StakingUnbonding {
		t.Errorf("Unwrap() = %+v, want 25 unbonding without rewards", r)
	}
	if !acc.Get(checkpoint.StakingInUnbondPeriod).Equal(d(25)) || !acc.Get(checkpoint.RecoveredFromStakingFarm).Equal(d(25)) {
		t.Errorf("checkpoints = %v", acc.Snapshot())
	}
}

func TestUnwrapStakingNegativeRewardsClamped(t *testing.T) {
	accs, decoded := world()
	decoded[domain.HoldingKey{Address: "erd1frank", Name: stakeToken, Nonce: 2}] = domain.StakingAttributes{
		Type: domain.AttributesTypeStaking, RewardPerShare: d(1200),
	}
	e, _ := newEngine(t, accs, decoded)

	r, err := e.Unwrap("erd1frank", domain.TokenHolding{Name: stakeToken, Nonce: 2, Balance: d(50)})
	if err != nil {
		t.Fatalf("Unwrap() error: %v", err)
	}
	if r.Rewards == nil || !r.Rewards.IsZero() {
		t.Errorf("Rewards = %v, want 0", r.Rewards)
	}
	if len(e.Warnings()) != 1 || e.Warnings()[0].Address != "erd1frank" {
		t.Errorf("Warnings() = %v, want one warning for erd1frank", e.Warnings())
	}
}

func TestUnwrapMetastakingFraction(t *testing.T) {
	e, acc := newWorldEngine(t)

	r, err := e.Unwrap("erd1dave", domain.TokenHolding{Name: metaToken, Nonce: 1, Balance: d(40)})
	if err != nil {
		t.Fatalf("Unwrap() error: %v", err)
	}
	if r.FractionaryLpFarmTokenAmount == nil || !r.FractionaryLpFarmTokenAmount.Equal(d(40)) {
		t.Errorf("FractionaryLpFarmTokenAmount = %v, want 40", r.FractionaryLpFarmTokenAmount)
	}
	if !r.Recovered.Equal(d(200)) {
		t.Errorf("Recovered = %s, want 200", r.Recovered)
	}
	// (1000 - 900) * 200 / 100
	if r.Rewards == nil || !r.Rewards.Equal(d(200)) {
		t.Errorf("Rewards = %v, want 200", r.Rewards)
	}
	for _, key := range []domain.HoldingKey{
		{Address: metaAddr, Name: farmToken, Nonce: 3},
		{Address: metaAddr, Name: stakeToken, Nonce: 4},
	} {
		if !e.Touched(key) {
			t.Errorf("Touched(%s) = false, want true", key)
		}
	}
	if !acc.Get(checkpoint.RecoveredFromLpViaMetastaking).Equal(d(200)) {
		t.Errorf("recoveredFromLpViaMetastaking = %s", acc.Get(checkpoint.RecoveredFromLpViaMetastaking))
	}
}

func TestUnwrapMetastakingErrors(t *testing.T) {
	t.Run("missing child", func(t *testing.T) {
		accs, decoded := world()
		accs[10].Tokens = accs[10].Tokens[:1]
		e, _ := newEngine(t, accs, decoded)

		_, err := e.Unwrap("erd1dave", domain.TokenHolding{Name: metaToken, Nonce: 1, Balance: d(40)})
		if !errors.Is(err, domain.ErrHoldingNotFound) {
			t.Errorf("Unwrap() error = %v, want ErrHoldingNotFound", err)
		}
	})

	t.Run("zero staking amount", func(t *testing.T) {
		accs, decoded := world()
		decoded[domain.HoldingKey{Address: "erd1dave", Name: metaToken, Nonce: 1}] = domain.DualYieldAttributes{LpFarmTokenNonce: 3, StakingFarmTokenNonce: 4}
		e, _ := newEngine(t, accs, decoded)

		_, err := e.Unwrap("erd1dave", domain.TokenHolding{Name: metaToken, Nonce: 1, Balance: d(40)})
		if !errors.Is(err, domain.ErrMalformedAttributes) {
			t.Errorf("Unwrap() error = %v, want ErrMalformedAttributes", err)
		}
	})
}

func TestUnwrapMoneyMarket(t *testing.T) {
	e, acc := newWorldEngine(t)

	r, err := e.Unwrap("erd1heidi", domain.TokenHolding{Name: marketToken, Balance: d(50)})
	if err != nil {
		t.Fatalf("Unwrap() error: %v", err)
	}
	if !r.Recovered.Equal(d(100)) {
		t.Errorf("Recovered = %s, want 100", r.Recovered)
	}
	if !acc.Get(checkpoint.RecoveredFromMoneyMarket).Equal(d(100)) {
		t.Errorf("recoveredFromMoneyMarket = %s", acc.Get(checkpoint.RecoveredFromMoneyMarket))
	}
}

func TestUnwrapErrorsNameHolding(t *testing.T) {
	tests := []struct {
		name    string
		holding domain.TokenHolding
		wantErr error
	}{
		{"unknown token", domain.TokenHolding{Name: "NOPE-000000", Balance: d(1)}, domain.ErrUnknownTokenKind},
		{"missing attributes", domain.TokenHolding{Name: stakeToken, Nonce: 77, Balance: d(1)}, domain.ErrMalformedAttributes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newWorldEngine(t)
			_, err := e.Unwrap("erd1zed", tt.holding)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Unwrap() error = %v, want %v", err, tt.wantErr)
			}
			if !strings.Contains(err.Error(), "erd1zed:"+tt.holding.Name) {
				t.Errorf("error %q does not name the holding", err)
			}
		})
	}
}

func TestUnwrapMissingPool(t *testing.T) {
	accs, decoded := world()
	idx, _ := accounts.New(accs)
	s := testSummary()
	delete(s.Pools, lpToken)
	e := NewEngine(testRegistry(t), s, decoded, idx, checkpoint.NewAccumulator())

	if _, err := e.Unwrap("erd1bob", domain.TokenHolding{Name: lpToken, Balance: d(10)}); !errors.Is(err, domain.ErrMissingSummary) {
		t.Errorf("Unwrap() error = %v, want ErrMissingSummary", err)
	}
}

func TestUnwrapZeroLpSupply(t *testing.T) {
	accs, decoded := world()
	idx, _ := accounts.New(accs)
	s := testSummary()
	pool := s.Pools[lpToken]
	pool.LpTokenSupply = decimal.Zero
	s.Pools[lpToken] = pool
	e := NewEngine(testRegistry(t), s, decoded, idx, checkpoint.NewAccumulator())

	if _, err := e.Unwrap("erd1bob", domain.TokenHolding{Name: lpToken, Balance: d(10)}); !errors.Is(err, domain.ErrInvalidSummary) {
		t.Errorf("Unwrap() error = %v, want ErrInvalidSummary", err)
	}
}

func TestTruncationsCounted(t *testing.T) {
	accs, decoded := world()
	idx, _ := accounts.New(accs)
	s := testSummary()
	pool := s.Pools[lpToken]
	pool.ReserveFirstToken = d(5001)
	s.Pools[lpToken] = pool
	e := NewEngine(testRegistry(t), s, decoded, idx, checkpoint.NewAccumulator())

	r, err := e.Unwrap("erd1bob", domain.TokenHolding{Name: lpToken, Balance: d(1000)})
	if err != nil {
		t.Fatal(err)
	}
	if !r.Recovered.Equal(d(5001)) || e.Truncations() != 0 {
		t.Errorf("Recovered = %s, Truncations() = %d, want 5001 and 0", r.Recovered, e.Truncations())
	}

	// 10 * 5001 / 1000 = 50.01
	r, err = e.Unwrap("erd1bob", domain.TokenHolding{Name: lpToken, Balance: d(10)})
	if err != nil {
		t.Fatal(err)
	}
	if !r.Recovered.Equal(d(50)) {
		t.Errorf("Recovered = %s, want 50 (truncated)", r.Recovered)
	}
	if e.Truncations() != 1 {
		t.Errorf("Truncations() = %d, want 1", e.Truncations())
	}
}

func TestNewEnginePanicsOnNil(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewEngine(nil registry) did not panic")
		}
	}()
	NewEngine(nil, testSummary(), nil, nil, nil)
}
