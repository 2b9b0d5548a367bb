// Package summary turns raw contract storage into pool, farm, metastaking and
// money-market summaries.
package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mtlprog/tokensnap/internal/config"
	"github.com/mtlprog/tokensnap/internal/domain"
)

// StateProvider loads the raw hex key/value storage of a contract.
type StateProvider interface {
	LoadState(ctx context.Context, address, stateFilename string) (map[string]string, error)
}

// FilesystemStateProvider reads state files exported into a workspace.
type FilesystemStateProvider struct {
	root string
}

// NewFilesystemStateProvider creates a provider rooted at the workspace directory.
func NewFilesystemStateProvider(root string) *FilesystemStateProvider {
	return &FilesystemStateProvider{root: root}
}

func (p *FilesystemStateProvider) LoadState(_ context.Context, address, stateFilename string) (map[string]string, error) {
	path := filepath.Join(p.root, stateFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading state of %s: %w", address, err)
	}
	var pairs map[string]string
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("parsing state file %s: %w", path, err)
	}
	return pairs, nil
}

// Builder produces the ContractsSummary of a snapshot.
type Builder struct {
	states StateProvider
}

// NewBuilder creates a Builder. Panics if states is nil.
func NewBuilder(states StateProvider) *Builder {
	if states == nil {
		panic("summary.NewBuilder: states must not be nil")
	}
	return &Builder{states: states}
}

// Build loads and summarizes every configured contract.
func (b *Builder) Build(ctx context.Context, cfg *config.SnapshotConfig) (domain.ContractsSummary, error) {
	result := domain.NewContractsSummary()

	for _, item := range cfg.Pools {
		state, err := b.load(ctx, item)
		if err != nil {
			return domain.ContractsSummary{}, err
		}
		pool, err := BuildPool(item, state)
		if err != nil {
			return domain.ContractsSummary{}, fmt.Errorf("pool %s: %w", item.Token, err)
		}
		slog.Debug("pool summary", "token", item.Token, "address", item.Address,
			"lpTokenSupply", pool.LpTokenSupply, "reserveFirstToken", pool.ReserveFirstToken, "reserveSecondToken", pool.ReserveSecondToken)
		result.Pools[item.Token] = pool
	}

	for _, item := range cfg.Farms {
		state, err := b.load(ctx, item)
		if err != nil {
			return domain.ContractsSummary{}, err
		}
		farm, err := BuildFarm(item, state)
		if err != nil {
			return domain.ContractsSummary{}, fmt.Errorf("farm %s: %w", item.Token, err)
		}
		slog.Debug("farm summary", "token", item.Token, "address", item.Address,
			"rewardPerShare", farm.RewardPerShare, "divisionSafetyNumber", farm.DivisionSafetyNumber, "rewardReserve", farm.RewardReserve)
		result.Farms[item.Token] = farm
	}

	for _, item := range cfg.MetastakingFarms {
		state, err := b.load(ctx, item)
		if err != nil {
			return domain.ContractsSummary{}, err
		}
		ms, err := BuildMetastakingFarm(item, state)
		if err != nil {
			return domain.ContractsSummary{}, fmt.Errorf("metastaking farm %s: %w", item.Token, err)
		}
		slog.Debug("metastaking farm summary", "token", item.Token, "address", item.Address,
			"farmTokenId", ms.FarmTokenID, "lpFarmTokenId", ms.LpFarmTokenID, "lpTokenId", ms.LpTokenID)
		result.MetastakingFarms[item.Token] = ms
	}

	for _, item := range cfg.HatomMoneyMarkets {
		state, err := b.load(ctx, item)
		if err != nil {
			return domain.ContractsSummary{}, err
		}
		mm, err := BuildMoneyMarket(item, state)
		if err != nil {
			return domain.ContractsSummary{}, fmt.Errorf("money market %s: %w", item.Token, err)
		}
		slog.Debug("money market summary", "token", item.Token, "address", item.Address,
			"liquidity", mm.Liquidity, "totalSupply", mm.TotalSupply, "exchangeRate", mm.ExchangeRate)
		result.HatomMoneyMarkets[item.Token] = mm
	}

	slog.Info("contracts summarized",
		"pools", len(result.Pools), "farms", len(result.Farms),
		"metastakingFarms", len(result.MetastakingFarms), "moneyMarkets", len(result.HatomMoneyMarkets))
	return result, nil
}

func (b *Builder) load(ctx context.Context, item config.ContractConfig) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, err
	}
	pairs, err := b.states.LoadState(ctx, item.Address, item.StateFilename)
	if err != nil {
		return State{}, fmt.Errorf("loading state of %s: %w", item.Address, err)
	}
	return ParseState(item.Address, pairs)
}
