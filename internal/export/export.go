// Package export writes reconciled snapshots to spreadsheets.
package export

import (
	"context"
	"time"

	"github.com/samber/lo"

	"github.com/mtlprog/tokensnap/internal/checkpoint"
	"github.com/mtlprog/tokensnap/internal/domain"
	"github.com/mtlprog/tokensnap/internal/pipeline"
	"github.com/mtlprog/tokensnap/internal/ranking"
)

const (
	rankingSheet     = "Ranking"
	checkpointsSheet = "Checkpoints"
	historySheet     = "History"
)

// Snapshot is a completed run as exported.
type Snapshot struct {
	Label  string
	At     time.Time
	Result pipeline.Result
}

// Writer writes a snapshot to a spreadsheet destination.
type Writer interface {
	Write(ctx context.Context, s Snapshot) error
}

// buildRanking builds the Ranking sheet.
// Columns: Rank | Address | Tag | Total
func buildRanking(s Snapshot) [][]any {
	report := s.Result.Report
	data := make([][]any, 0, len(report.Entries)+2)
	data = append(data, []any{"Rank", "Address", "Tag", totalHeader(report.Token)})
	data = append(data, lo.Map(report.Entries, func(e ranking.Entry, _ int) []any {
		return []any{e.Rank, e.Address, e.AddressTag, e.TotalFormatted}
	})...)
	data = append(data, []any{"", "Grand total", "", report.GrandTotalFormatted})
	return data
}

func totalHeader(token string) string {
	if token == "" {
		return "Total"
	}
	return "Total " + token
}

// buildCheckpoints builds the Checkpoints sheet: one row per checkpoint, then
// the conservation check.
// Columns: Checkpoint | Amount
func buildCheckpoints(s Snapshot) [][]any {
	rec := s.Result.Reconciliation
	decimals := s.Result.Report.Decimals

	data := [][]any{{"Checkpoint", "Amount"}}
	for _, name := range checkpoint.Names {
		data = append(data, []any{string(name), domain.FormatAmount(rec.Checkpoints[name], decimals)})
	}

	c := rec.Conservation
	data = append(data,
		[]any{"", ""},
		[]any{"totalBaseEquivalent", domain.FormatAmount(c.TotalBaseEquivalent, decimals)},
		[]any{"notRedistributedStakingRewards", domain.FormatAmount(c.NotRedistributedStakingRewards, decimals)},
	)
	if c.Checked {
		data = append(data,
			[]any{"expected", domain.FormatAmount(*c.Expected, decimals)},
			[]any{"difference", domain.FormatAmount(*c.Difference, decimals)},
			[]any{"tolerance", c.Tolerance.String()},
		)
	}
	data = append(data, []any{"conservation", conservationStatus(c)})
	return data
}

var historyHeader = []any{"Date", "Label", "Accounts", "Grand total", "Total base equivalent", "Conservation"}

// buildHistoryRow builds one History row for the run.
func buildHistoryRow(s Snapshot) []any {
	report := s.Result.Report
	c := s.Result.Reconciliation.Conservation
	return []any{
		s.At.UTC().Format(time.DateOnly),
		s.Label,
		len(report.Entries),
		report.GrandTotalFormatted,
		domain.FormatAmount(c.TotalBaseEquivalent, report.Decimals),
		conservationStatus(c),
	}
}

func conservationStatus(c checkpoint.Conservation) string {
	switch {
	case !c.Checked:
		return "not checked"
	case c.Holds:
		return "holds"
	default:
		return "violated"
	}
}
