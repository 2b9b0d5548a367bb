// Package accounts indexes snapshot holdings by address, token and nonce.
package accounts

import (
	"fmt"

	"github.com/mtlprog/tokensnap/internal/domain"
)

// Index provides lookups over an immutable list of accounts.
type Index struct {
	accounts  []domain.Account
	byAddress map[string]struct{}
	holdings  map[domain.HoldingKey]domain.TokenHolding
}

// New indexes accounts, preserving their order. Every balance must be a
// non-negative integer amount of smallest units.
func New(accounts []domain.Account) (*Index, error) {
	idx := &Index{
		accounts:  accounts,
		byAddress: make(map[string]struct{}, len(accounts)),
		holdings:  make(map[domain.HoldingKey]domain.TokenHolding),
	}

	for _, account := range accounts {
		if _, ok := idx.byAddress[account.Address]; ok {
			return nil, fmt.Errorf("%w: account %s listed more than once", domain.ErrDuplicateHolding, account.Address)
		}
		idx.byAddress[account.Address] = struct{}{}

		for _, h := range account.Tokens {
			key := domain.KeyOf(account.Address, h)
			if !domain.IsUnits(h.Balance) {
				return nil, fmt.Errorf("%w: %s has balance %s", domain.ErrMalformedHolding, key, h.Balance)
			}
			if _, ok := idx.holdings[key]; ok {
				return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateHolding, key)
			}
			idx.holdings[key] = h
		}
	}

	return idx, nil
}

// Holding returns the holding identified by address, name and nonce.
func (idx *Index) Holding(address, name string, nonce uint64) (domain.TokenHolding, error) {
	key := domain.HoldingKey{Address: address, Name: name, Nonce: nonce}
	h, ok := idx.holdings[key]
	if !ok {
		return domain.TokenHolding{}, fmt.Errorf("%w: %s", domain.ErrHoldingNotFound, key)
	}
	return h, nil
}

// All returns the accounts in input order.
func (idx *Index) All() []domain.Account {
	return idx.accounts
}

// Len returns the number of indexed accounts.
func (idx *Index) Len() int {
	return len(idx.accounts)
}
