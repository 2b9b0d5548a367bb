package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"github.com/mtlprog/tokensnap/internal/config"
	"github.com/mtlprog/tokensnap/internal/domain"
)

// HoldingsSource reads account holdings at a block nonce.
type HoldingsSource interface {
	FetchAccountTokens(ctx context.Context, address string, blockNonce uint64, tokens []string) ([]domain.TokenHolding, error)
}

// Fetch exports the state of every configured contract, as served by the
// pipeline's state provider, and the holdings of addresses into the workspace.
// Known contracts and the metabonding contract are always included so their
// holdings can be reconciled.
func (p *Pipeline) Fetch(ctx context.Context, src HoldingsSource, blockNonce uint64, addresses []string) error {
	contracts := p.cfg.AllContracts()
	for _, c := range contracts {
		pairs, err := p.states.LoadState(ctx, c.Address, c.StateFilename)
		if err != nil {
			return fmt.Errorf("loading state of %s: %w", c.Address, err)
		}
		if err := p.ws.writeJSON(c.StateFilename, pairs); err != nil {
			return err
		}
		slog.Debug("contract state exported", "address", c.Address, "file", c.StateFilename, "keys", len(pairs))
	}

	all := append(append([]string{}, addresses...), lo.Map(contracts, func(c config.ContractConfig, _ int) string {
		return c.Address
	})...)
	if p.cfg.MetabondingContractAddress != "" {
		all = append(all, p.cfg.MetabondingContractAddress)
	}
	all = lo.Uniq(all)

	accs := make([]domain.Account, 0, len(all))
	for _, addr := range all {
		if err := ctx.Err(); err != nil {
			return err
		}
		tokens, err := src.FetchAccountTokens(ctx, addr, blockNonce, p.cfg.Tokens)
		if err != nil {
			return fmt.Errorf("fetching account %s: %w", addr, err)
		}
		if tokens == nil {
			tokens = []domain.TokenHolding{}
		}
		accs = append(accs, domain.Account{Address: addr, AddressTag: p.cfg.TagOf(addr), Tokens: tokens})
	}

	if err := p.ws.writeJSON(AccountsFile, accs); err != nil {
		return err
	}
	slog.Info("snapshot fetched", "blockNonce", blockNonce, "contracts", len(contracts), "accounts", len(accs))
	return nil
}
