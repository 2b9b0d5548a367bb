// Package snapshot persists reconciliation runs and their rankings.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/mtlprog/tokensnap/internal/domain"
	"github.com/mtlprog/tokensnap/internal/pipeline"
	"github.com/mtlprog/tokensnap/internal/ranking"
)

// Service records pipeline results and reads back the run history.
type Service struct {
	repo Repository
}

// NewService creates a new Service. Panics if repo is nil.
func NewService(repo Repository) *Service {
	if repo == nil {
		panic("snapshot.NewService: repo must not be nil")
	}
	return &Service{repo: repo}
}

// Save stores a completed run under label.
func (s *Service) Save(ctx context.Context, label string, res pipeline.Result) (Run, error) {
	if label == "" {
		return Run{}, fmt.Errorf("saving run: label must not be empty")
	}

	checkpoints, err := json.Marshal(res.Reconciliation.Checkpoints)
	if err != nil {
		return Run{}, fmt.Errorf("marshaling checkpoints: %w", err)
	}
	conservation, err := json.Marshal(res.Reconciliation.Conservation)
	if err != nil {
		return Run{}, fmt.Errorf("marshaling conservation: %w", err)
	}

	run := Run{
		Label:        label,
		GrandTotal:   res.Report.GrandTotal,
		Accounts:     len(res.Report.Entries),
		Checkpoints:  checkpoints,
		Conservation: conservation,
	}
	id, err := s.repo.Save(ctx, run, res.Report.Entries)
	if err != nil {
		return Run{}, fmt.Errorf("saving run %s: %w", label, err)
	}
	run.ID = id

	slog.Info("run saved", "id", id, "label", label, "accounts", run.Accounts, "grandTotal", run.GrandTotal)
	return run, nil
}

// List retrieves recent runs, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]Run, error) {
	runs, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// Ranking retrieves the ranking stored with run id, or with the latest run
// labeled label when id is zero.
func (s *Service) Ranking(ctx context.Context, id int64, label string) ([]ranking.Entry, error) {
	if id == 0 {
		if label == "" {
			return nil, fmt.Errorf("ranking: run id or label required")
		}
		run, err := s.repo.GetLatest(ctx, label)
		if err != nil {
			return nil, fmt.Errorf("latest %s run: %w", label, err)
		}
		id = run.ID
	}

	entries, err := s.repo.Entries(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ranking of run %d: %w", id, err)
	}
	slog.Debug("ranking loaded", "run", id, "entries", len(entries))
	return entries, nil
}

// RunLines renders runs as "id created label accounts total" lines.
func RunLines(runs []Run, decimals int32) []string {
	return lo.Map(runs, func(r Run, _ int) string {
		return fmt.Sprintf("%d %s %s %d %s", r.ID, r.CreatedAt.UTC().Format(time.RFC3339), r.Label, r.Accounts,
			domain.FormatAmount(r.GrandTotal, decimals))
	})
}

// EntryLines renders stored entries the way the text ranking of a run does.
func EntryLines(entries []ranking.Entry, decimals int32) []string {
	report := ranking.Report{Entries: lo.Map(entries, func(e ranking.Entry, _ int) ranking.Entry {
		e.TotalFormatted = domain.FormatAmount(e.Total, decimals)
		return e
	})}
	return report.Lines()
}
