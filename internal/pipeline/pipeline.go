// Package pipeline runs the decode, unwrap and report steps over a workspace.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/tokensnap/internal/accounts"
	"github.com/mtlprog/tokensnap/internal/attributes"
	"github.com/mtlprog/tokensnap/internal/checkpoint"
	"github.com/mtlprog/tokensnap/internal/config"
	"github.com/mtlprog/tokensnap/internal/domain"
	"github.com/mtlprog/tokensnap/internal/ranking"
	"github.com/mtlprog/tokensnap/internal/summary"
	"github.com/mtlprog/tokensnap/internal/unwrap"
)

// Result is what a complete run produces.
type Result struct {
	Reconciliation Reconciliation
	Report         ranking.Report
}

// Pipeline executes the snapshot steps against one workspace.
type Pipeline struct {
	ws     Workspace
	cfg    *config.SnapshotConfig
	states summary.StateProvider
}

// New creates a Pipeline. Contract state is read from the workspace unless
// another provider is given. Panics if cfg is nil.
func New(dir string, cfg *config.SnapshotConfig, states summary.StateProvider) *Pipeline {
	if cfg == nil {
		panic("pipeline.New: cfg must not be nil")
	}
	if states == nil {
		states = summary.NewFilesystemStateProvider(dir)
	}
	return &Pipeline{ws: Workspace{Dir: dir}, cfg: cfg, states: states}
}

// Workspace returns the workspace the pipeline reads and writes.
func (p *Pipeline) Workspace() Workspace {
	return p.ws
}

// Decode writes the contracts summary and the accounts with decoded attributes.
func (p *Pipeline) Decode(ctx context.Context) error {
	contracts, err := summary.NewBuilder(p.states).Build(ctx, p.cfg)
	if err != nil {
		return fmt.Errorf("building contracts summary: %w", err)
	}
	if err := p.ws.writeJSON(ContractsSummaryFile, contracts); err != nil {
		return err
	}

	idx, err := p.loadAccounts()
	if err != nil {
		return err
	}
	accs := idx.All()
	decoded, err := attributes.DecodeAccounts(accs, p.cfg.Registry())
	if err != nil {
		return fmt.Errorf("decoding attributes: %w", err)
	}
	return p.ws.writeJSON(DecodedAccountsFile, decodedOutput(accs, decoded, p.cfg.Decimals()))
}

// Unwrap reconciles the snapshot and writes the unwrapped accounts and the
// checkpoints. A failed conservation check is reported after both files are written.
func (p *Pipeline) Unwrap(ctx context.Context) (Reconciliation, error) {
	if err := ctx.Err(); err != nil {
		return Reconciliation{}, err
	}

	var contracts domain.ContractsSummary
	if err := p.ws.readJSON(ContractsSummaryFile, &contracts); err != nil {
		return Reconciliation{}, err
	}
	idx, err := p.loadAccounts()
	if err != nil {
		return Reconciliation{}, err
	}
	accs := idx.All()
	registry := p.cfg.Registry()
	decoded, err := attributes.DecodeAccounts(accs, registry)
	if err != nil {
		return Reconciliation{}, fmt.Errorf("decoding attributes: %w", err)
	}

	acc := checkpoint.NewAccumulator()
	engine := unwrap.NewEngine(registry, contracts, decoded, idx, acc)
	out, err := engine.Reconcile(p.cfg)
	if err != nil {
		return Reconciliation{}, fmt.Errorf("reconciling: %w", err)
	}

	notRedistributed, err := p.notRedistributedRewards(registry, contracts)
	if err != nil {
		return Reconciliation{}, err
	}
	snap := acc.Snapshot()
	rec := Reconciliation{
		Checkpoints:          snap,
		CheckpointsFormatted: formatCheckpoints(snap, p.cfg.Decimals()),
		Conservation:         checkpoint.Check(snap, notRedistributed, p.cfg.BaseTokenTotalSupply, decimal.NewFromInt(out.Truncations)),
		Touched:              len(out.Touched),
		Warnings:             lo.Ternary(out.Warnings == nil, []unwrap.Warning{}, out.Warnings),
	}

	if err := p.ws.writeJSON(UnwrappedAccountsFile, unwrappedOutput(accs, decoded, out, p.cfg.Decimals())); err != nil {
		return Reconciliation{}, err
	}
	if err := p.ws.writeJSON(CheckpointsFile, rec); err != nil {
		return Reconciliation{}, err
	}

	slog.Info("snapshot reconciled",
		"totalBaseEquivalent", rec.Conservation.TotalBaseEquivalent,
		"checked", rec.Conservation.Checked,
		"holds", rec.Conservation.Holds,
		"warnings", len(rec.Warnings))

	if err := rec.Conservation.Err(); err != nil {
		return rec, err
	}
	return rec, nil
}

// LoadReconciliation reads the checkpoints written by the last Unwrap.
func (p *Pipeline) LoadReconciliation() (Reconciliation, error) {
	var rec Reconciliation
	if err := p.ws.readJSON(CheckpointsFile, &rec); err != nil {
		return Reconciliation{}, err
	}
	return rec, nil
}

// notRedistributedRewards is the reward reserve still held by the staking farms.
func (p *Pipeline) notRedistributedRewards(registry *domain.Registry, contracts domain.ContractsSummary) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, token := range registry.StakingTokens() {
		farm, err := contracts.Farm(token)
		if err != nil {
			return decimal.Zero, fmt.Errorf("staking farm %s summary: %w", token, err)
		}
		total = total.Add(farm.RewardReserve)
	}
	return total, nil
}

// Report ranks the unwrapped accounts and writes ranking.json plus the text
// ranking to outfile (ranking.txt in the workspace when empty).
func (p *Pipeline) Report(ctx context.Context, outfile string) (ranking.Report, error) {
	if err := ctx.Err(); err != nil {
		return ranking.Report{}, err
	}

	var unwrapped []rankedAccount
	if err := p.ws.readJSON(UnwrappedAccountsFile, &unwrapped); err != nil {
		return ranking.Report{}, err
	}
	totals := make(accountTotals, len(unwrapped))
	accs := lo.Map(unwrapped, func(a rankedAccount, _ int) domain.Account {
		totals[a.Address] = a.Total
		return domain.Account{Address: a.Address, AddressTag: a.AddressTag}
	})

	report := ranking.Rank(accs, totals, p.cfg.ExcludedFromRanking(), p.cfg.Decimals())
	report.Token = p.cfg.BaseToken()

	if err := p.ws.writeJSON(RankingFile, report); err != nil {
		return ranking.Report{}, err
	}
	if outfile == "" {
		outfile = p.ws.Path(RankingTextFile)
	}
	if err := p.ws.writeLines(outfile, report.Lines()); err != nil {
		return ranking.Report{}, err
	}

	slog.Info("ranking written", "file", outfile, "entries", len(report.Entries), "grandTotal", report.GrandTotalFormatted, "token", report.Token)
	return report, nil
}

// Run executes decode, unwrap and report in order.
func (p *Pipeline) Run(ctx context.Context, outfile string) (Result, error) {
	if err := p.Decode(ctx); err != nil {
		return Result{}, err
	}
	rec, err := p.Unwrap(ctx)
	if err != nil {
		return Result{Reconciliation: rec}, err
	}
	report, err := p.Report(ctx, outfile)
	if err != nil {
		return Result{Reconciliation: rec}, err
	}
	return Result{Reconciliation: rec, Report: report}, nil
}

// loadAccounts reads accounts.json, tags known contracts that carry no tag
// and indexes the result. Malformed or duplicate holdings fail the load.
func (p *Pipeline) loadAccounts() (*accounts.Index, error) {
	var accs []domain.Account
	if err := p.ws.readJSON(AccountsFile, &accs); err != nil {
		return nil, err
	}
	idx, err := accounts.New(lo.Map(accs, func(a domain.Account, _ int) domain.Account {
		if a.AddressTag == "" {
			a.AddressTag = p.cfg.TagOf(a.Address)
		}
		return a
	}))
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", AccountsFile, err)
	}
	slog.Debug("accounts loaded", "accounts", idx.Len())
	return idx, nil
}

type rankedAccount struct {
	Address    string          `json:"address"`
	AddressTag string          `json:"addressTag"`
	Total      decimal.Decimal `json:"total"`
}

type accountTotals map[string]decimal.Decimal

func (t accountTotals) AccountTotal(a domain.Account) decimal.Decimal {
	return t[a.Address]
}
