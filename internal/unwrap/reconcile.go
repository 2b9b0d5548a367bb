package unwrap

import (
	"log/slog"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/tokensnap/internal/domain"
)

// ContractSet tells user accounts apart from known contracts.
type ContractSet interface {
	IsKnownContract(address string) bool
	IsFarm(address string) bool
}

// Outcome is the result table of a reconciliation run.
type Outcome struct {
	Results     map[domain.HoldingKey]domain.UnwrapResult
	Touched     map[domain.HoldingKey]bool
	Warnings    []Warning
	Truncations int64
}

// Result returns the unwrap result of a holding, if it was unwrapped.
func (o Outcome) Result(address string, h domain.TokenHolding) (domain.UnwrapResult, bool) {
	r, ok := o.Results[domain.KeyOf(address, h)]
	return r, ok
}

// AccountTotal sums recovered plus rewards over an account's unwrapped holdings.
func (o Outcome) AccountTotal(account domain.Account) decimal.Decimal {
	return lo.Reduce(account.Tokens, func(sum decimal.Decimal, h domain.TokenHolding, _ int) decimal.Decimal {
		r, ok := o.Result(account.Address, h)
		if !ok {
			return sum
		}
		return sum.Add(r.Total())
	}, decimal.Zero)
}

// Reconcile unwraps the whole snapshot in two passes. Pass one covers every
// account that is not a known contract. Pass two covers known contracts other
// than farms, skipping base token holdings and positions already consumed by a
// metastaking parent. Within pass two, metastaking holdings go first so their
// children are marked before they are reached.
func (e *Engine) Reconcile(contracts ContractSet) (Outcome, error) {
	results := make(map[domain.HoldingKey]domain.UnwrapResult)

	users := lo.Filter(e.index.All(), func(a domain.Account, _ int) bool {
		return !contracts.IsKnownContract(a.Address)
	})
	for _, account := range users {
		for _, h := range account.Tokens {
			r, err := e.Unwrap(account.Address, h)
			if err != nil {
				return Outcome{}, err
			}
			results[domain.KeyOf(account.Address, h)] = r
		}
	}
	slog.Info("pass one complete", "accounts", len(users), "holdings", len(results))

	owned := lo.Filter(e.index.All(), func(a domain.Account, _ int) bool {
		return contracts.IsKnownContract(a.Address) && !contracts.IsFarm(a.Address)
	})
	type item struct {
		address string
		holding domain.TokenHolding
	}
	var pending []item
	for _, account := range owned {
		for _, h := range account.Tokens {
			if e.registry.IsBaseToken(h.Name) {
				continue
			}
			pending = append(pending, item{address: account.Address, holding: h})
		}
	}
	metastaking, rest := lo.FilterReject(pending, func(it item, _ int) bool {
		kind, err := e.registry.Kind(it.holding.Name)
		return err == nil && kind == domain.TokenKindMetastaking
	})

	before := len(results)
	for _, it := range append(metastaking, rest...) {
		key := domain.KeyOf(it.address, it.holding)
		if e.touched[key] {
			continue
		}
		r, err := e.Unwrap(it.address, it.holding)
		if err != nil {
			return Outcome{}, err
		}
		results[key] = r
	}
	slog.Info("pass two complete", "contracts", len(owned), "holdings", len(results)-before, "touched", len(e.touched))

	return Outcome{
		Results:     results,
		Touched:     lo.Assign(e.touched),
		Warnings:    e.warnings,
		Truncations: e.truncated,
	}, nil
}
