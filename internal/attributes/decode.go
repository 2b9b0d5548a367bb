// Package attributes decodes the binary attributes carried by farm, staking
// and metastaking positions.
package attributes

import (
	"fmt"
	"log/slog"

	"github.com/mtlprog/tokensnap/internal/codec"
	"github.com/mtlprog/tokensnap/internal/domain"
)

// UnbondAttributesLen is the exact size of staking attributes in the unbonding period.
const UnbondAttributesLen = 12

// Decode decodes the attributes of a non-fungible holding according to the token's layout.
func Decode(h domain.TokenHolding, meta domain.TokenMetadata) (domain.Attributes, error) {
	var (
		attrs domain.Attributes
		err   error
	)

	switch meta.Layout() {
	case domain.LayoutFarmV2:
		attrs, err = decodeFarmV2(h.Attributes)
	case domain.LayoutFarmV1_3:
		attrs, err = decodeFarmV1_3(h.Attributes)
	case domain.LayoutStaking:
		if len(h.Attributes) == UnbondAttributesLen {
			attrs, err = decodeUnbond(h.Attributes)
		} else {
			attrs, err = decodeStaking(h.Attributes)
		}
	case domain.LayoutDualYield:
		attrs, err = decodeDualYield(h.Attributes)
	default:
		return nil, fmt.Errorf("%w: token %s nonce %d has no attributes layout", domain.ErrUnknownTokenKind, h.Name, h.Nonce)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: token %s nonce %d: %v", domain.ErrMalformedAttributes, h.Name, h.Nonce, err)
	}
	return attrs, nil
}

// DecodeAccounts decodes every non-fungible holding of the snapshot.
func DecodeAccounts(accounts []domain.Account, registry *domain.Registry) (domain.DecodedAttributes, error) {
	result := make(domain.DecodedAttributes)

	for _, account := range accounts {
		for _, h := range account.Tokens {
			if h.IsFungible() {
				continue
			}
			meta, err := registry.Metadata(h.Name)
			if err != nil {
				return nil, fmt.Errorf("account %s: %w", account.Address, err)
			}
			attrs, err := Decode(h, meta)
			if err != nil {
				return nil, fmt.Errorf("account %s: %w", account.Address, err)
			}
			result[domain.KeyOf(account.Address, h)] = attrs
		}
	}

	slog.Info("attributes decoded", "accounts", len(accounts), "holdings", len(result))
	return result, nil
}

func decodeFarmV1_3(data []byte) (domain.Attributes, error) {
	d := codec.NewDecoder(data)
	a := domain.FarmAttributesV1_3{Type: domain.AttributesTypeFarmV1_3}

	var err error
	if a.RewardPerShare, err = d.BigUint(); err != nil {
		return nil, fmt.Errorf("rewardPerShare: %w", err)
	}
	if a.OriginalEnteringEpoch, err = d.U64(); err != nil {
		return nil, fmt.Errorf("originalEnteringEpoch: %w", err)
	}
	if a.EnteringEpoch, err = d.U64(); err != nil {
		return nil, fmt.Errorf("enteringEpoch: %w", err)
	}
	if a.InitialFarmingAmount, err = d.BigUint(); err != nil {
		return nil, fmt.Errorf("initialFarmingAmount: %w", err)
	}
	if a.CompoundedReward, err = d.BigUint(); err != nil {
		return nil, fmt.Errorf("compoundedReward: %w", err)
	}
	if a.CurrentFarmAmount, err = d.BigUint(); err != nil {
		return nil, fmt.Errorf("currentFarmAmount: %w", err)
	}
	return a, d.Finish()
}

func decodeFarmV2(data []byte) (domain.Attributes, error) {
	d := codec.NewDecoder(data)
	a := domain.FarmAttributesV2{Type: domain.AttributesTypeFarmV2}

	var err error
	if a.RewardPerShare, err = d.BigUint(); err != nil {
		return nil, fmt.Errorf("rewardPerShare: %w", err)
	}
	if a.EnteringEpoch, err = d.U64(); err != nil {
		return nil, fmt.Errorf("enteringEpoch: %w", err)
	}
	if a.CompoundedReward, err = d.BigUint(); err != nil {
		return nil, fmt.Errorf("compoundedReward: %w", err)
	}
	if a.CurrentFarmAmount, err = d.BigUint(); err != nil {
		return nil, fmt.Errorf("currentFarmAmount: %w", err)
	}
	if a.OriginalOwner, err = d.Address(); err != nil {
		return nil, fmt.Errorf("originalOwner: %w", err)
	}
	return a, d.Finish()
}

func decodeStaking(data []byte) (domain.Attributes, error) {
	d := codec.NewDecoder(data)
	a := domain.StakingAttributes{Type: domain.AttributesTypeStaking}

	var err error
	if a.RewardPerShare, err = d.BigUint(); err != nil {
		return nil, fmt.Errorf("rewardPerShare: %w", err)
	}
	if a.CompoundedReward, err = d.BigUint(); err != nil {
		return nil, fmt.Errorf("compoundedReward: %w", err)
	}
	if a.CurrentFarmAmount, err = d.BigUint(); err != nil {
		return nil, fmt.Errorf("currentFarmAmount: %w", err)
	}
	// Older positions predate the owner field.
	if d.Remaining() > 0 {
		if a.OriginalOwner, err = d.Address(); err != nil {
			return nil, fmt.Errorf("originalOwner: %w", err)
		}
	}
	return a, d.Finish()
}

func decodeUnbond(data []byte) (domain.Attributes, error) {
	d := codec.NewDecoder(data)
	a := domain.UnbondAttributes{Type: domain.AttributesTypeUnbond}

	var err error
	if a.UnlockEpoch, err = d.U64(); err != nil {
		return nil, fmt.Errorf("unlockEpoch: %w", err)
	}
	if a.UnbondPeriod, err = d.U32(); err != nil {
		return nil, fmt.Errorf("unbondPeriod: %w", err)
	}
	return a, d.Finish()
}

func decodeDualYield(data []byte) (domain.Attributes, error) {
	d := codec.NewDecoder(data)
	a := domain.DualYieldAttributes{Type: domain.AttributesTypeDualYield}

	var err error
	if a.LpFarmTokenNonce, err = d.U64(); err != nil {
		return nil, fmt.Errorf("lpFarmTokenNonce: %w", err)
	}
	if a.LpFarmTokenAmount, err = d.BigUint(); err != nil {
		return nil, fmt.Errorf("lpFarmTokenAmount: %w", err)
	}
	if a.StakingFarmTokenNonce, err = d.U64(); err != nil {
		return nil, fmt.Errorf("stakingFarmTokenNonce: %w", err)
	}
	if a.StakingFarmTokenAmount, err = d.BigUint(); err != nil {
		return nil, fmt.Errorf("stakingFarmTokenAmount: %w", err)
	}
	return a, d.Finish()
}
