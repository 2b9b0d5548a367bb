package domain

import "github.com/shopspring/decimal"

// Attributes is the decoded form of an SFT/NFT attribute byte string.
// The set of implementations is closed; consumers switch on the concrete type.
type Attributes interface {
	Layout() AttributesLayout
	sealed()
}

// FarmAttributesV1_3 are the attributes of a v1.3 LP farm token.
type FarmAttributesV1_3 struct {
	Type                  string          `json:"type"`
	RewardPerShare        decimal.Decimal `json:"rewardPerShare"`
	OriginalEnteringEpoch uint64          `json:"originalEnteringEpoch"`
	EnteringEpoch         uint64          `json:"enteringEpoch"`
	InitialFarmingAmount  decimal.Decimal `json:"initialFarmingAmount"`
	CompoundedReward      decimal.Decimal `json:"compoundedReward"`
	CurrentFarmAmount     decimal.Decimal `json:"currentFarmAmount"`
}

// FarmAttributesV2 are the attributes of a v2 LP farm token.
type FarmAttributesV2 struct {
	Type              string          `json:"type"`
	RewardPerShare    decimal.Decimal `json:"rewardPerShare"`
	EnteringEpoch     uint64          `json:"enteringEpoch"`
	CompoundedReward  decimal.Decimal `json:"compoundedReward"`
	CurrentFarmAmount decimal.Decimal `json:"currentFarmAmount"`
	OriginalOwner     string          `json:"originalOwner"`
}

// StakingAttributes are the attributes of an active staking farm position.
type StakingAttributes struct {
	Type              string          `json:"type"`
	RewardPerShare    decimal.Decimal `json:"rewardPerShare"`
	CompoundedReward  decimal.Decimal `json:"compoundedReward"`
	CurrentFarmAmount decimal.Decimal `json:"currentFarmAmount"`
	OriginalOwner     string          `json:"originalOwner,omitempty"`
}

// UnbondAttributes are the attributes of a staking position in its unbonding period.
type UnbondAttributes struct {
	Type         string `json:"type"`
	UnlockEpoch  uint64 `json:"unlockEpoch"`
	UnbondPeriod uint32 `json:"unbondPeriod"`
}

// DualYieldAttributes are the attributes of a metastaking (dual-yield) token.
type DualYieldAttributes struct {
	Type                   string          `json:"type"`
	LpFarmTokenNonce       uint64          `json:"lpFarmTokenNonce"`
	LpFarmTokenAmount      decimal.Decimal `json:"lpFarmTokenAmount"`
	StakingFarmTokenNonce  uint64          `json:"stakingFarmTokenNonce"`
	StakingFarmTokenAmount decimal.Decimal `json:"stakingFarmTokenAmount"`
}

func (FarmAttributesV1_3) Layout() AttributesLayout  { return LayoutFarmV1_3 }
func (FarmAttributesV2) Layout() AttributesLayout    { return LayoutFarmV2 }
func (StakingAttributes) Layout() AttributesLayout   { return LayoutStaking }
func (UnbondAttributes) Layout() AttributesLayout    { return LayoutStaking }
func (DualYieldAttributes) Layout() AttributesLayout { return LayoutDualYield }

func (FarmAttributesV1_3) sealed()  {}
func (FarmAttributesV2) sealed()    {}
func (StakingAttributes) sealed()   {}
func (UnbondAttributes) sealed()    {}
func (DualYieldAttributes) sealed() {}

// Type discriminators written to JSON.
const (
	AttributesTypeFarmV1_3  = "farmTokenAttributesV1_3"
	AttributesTypeFarmV2    = "farmTokenAttributesV2"
	AttributesTypeStaking   = "stakingFarmToken"
	AttributesTypeUnbond    = "unboundFarmToken"
	AttributesTypeDualYield = "dualYieldToken"
)

// DecodedAttributes maps holdings to their decoded attributes.
type DecodedAttributes map[HoldingKey]Attributes
