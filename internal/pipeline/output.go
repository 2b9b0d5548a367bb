package pipeline

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/tokensnap/internal/checkpoint"
	"github.com/mtlprog/tokensnap/internal/domain"
	"github.com/mtlprog/tokensnap/internal/unwrap"
)

// HoldingOutput is a holding as written to the workspace, with whatever has
// been derived for it so far.
type HoldingOutput struct {
	domain.TokenHolding
	BalanceFormatted  string            `json:"balanceFormatted,omitempty"`
	DecodedAttributes domain.Attributes `json:"decodedAttributes,omitempty"`
	Unwrapped         *UnwrappedOutput  `json:"unwrapped,omitempty"`
	Touched           bool              `json:"touched,omitempty"`
}

// UnwrappedOutput adds formatted amounts to an unwrap result.
type UnwrappedOutput struct {
	domain.UnwrapResult
	RecoveredFormatted string `json:"recoveredFormatted"`
	RewardsFormatted   string `json:"rewardsFormatted,omitempty"`
}

// AccountOutput is an account as written to the workspace.
type AccountOutput struct {
	Address        string           `json:"address"`
	AddressTag     string           `json:"addressTag,omitempty"`
	Tokens         []HoldingOutput  `json:"tokens"`
	Total          *decimal.Decimal `json:"total,omitempty"`
	TotalFormatted string           `json:"totalFormatted,omitempty"`
}

// Reconciliation is the content of checkpoints.json.
type Reconciliation struct {
	Checkpoints          checkpoint.Snapshot        `json:"checkpoints"`
	CheckpointsFormatted map[checkpoint.Name]string `json:"checkpointsFormatted"`
	Conservation         checkpoint.Conservation    `json:"conservation"`
	Touched              int                        `json:"touched"`
	Warnings             []unwrap.Warning           `json:"warnings"`
}

func decodedOutput(accounts []domain.Account, decoded domain.DecodedAttributes, decimals int32) []AccountOutput {
	return lo.Map(accounts, func(a domain.Account, _ int) AccountOutput {
		return AccountOutput{
			Address:    a.Address,
			AddressTag: a.AddressTag,
			Tokens: lo.Map(a.Tokens, func(h domain.TokenHolding, _ int) HoldingOutput {
				return HoldingOutput{
					TokenHolding:      h,
					BalanceFormatted:  domain.FormatAmount(h.Balance, decimals),
					DecodedAttributes: decoded[domain.KeyOf(a.Address, h)],
				}
			}),
		}
	})
}

func unwrappedOutput(accounts []domain.Account, decoded domain.DecodedAttributes, out unwrap.Outcome, decimals int32) []AccountOutput {
	result := decodedOutput(accounts, decoded, decimals)
	for i, a := range accounts {
		total := out.AccountTotal(a)
		result[i].Total = &total
		result[i].TotalFormatted = domain.FormatAmount(total, decimals)

		for j, h := range a.Tokens {
			key := domain.KeyOf(a.Address, h)
			result[i].Tokens[j].Touched = out.Touched[key]

			r, ok := out.Results[key]
			if !ok {
				continue
			}
			u := &UnwrappedOutput{UnwrapResult: r, RecoveredFormatted: domain.FormatAmount(r.Recovered, decimals)}
			if r.Rewards != nil {
				u.RewardsFormatted = domain.FormatAmount(*r.Rewards, decimals)
			}
			result[i].Tokens[j].Unwrapped = u
		}
	}
	return result
}

func formatCheckpoints(s checkpoint.Snapshot, decimals int32) map[checkpoint.Name]string {
	return lo.MapValues(s, func(v decimal.Decimal, _ checkpoint.Name) string {
		return domain.FormatAmount(v, decimals)
	})
}
