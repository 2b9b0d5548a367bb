// Package ranking orders accounts by their total unwrapped base token value.
package ranking

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/tokensnap/internal/domain"
)

// Totals yields the unwrapped total of an account.
type Totals interface {
	AccountTotal(account domain.Account) decimal.Decimal
}

// Entry is one ranked account.
type Entry struct {
	Rank           int             `json:"rank"`
	Address        string          `json:"address"`
	AddressTag     string          `json:"addressTag,omitempty"`
	Total          decimal.Decimal `json:"total"`
	TotalFormatted string          `json:"totalFormatted"`
}

// Report is the full ranking with its grand total.
type Report struct {
	Token               string          `json:"token,omitempty"`
	Entries             []Entry         `json:"entries"`
	GrandTotal          decimal.Decimal `json:"grandTotal"`
	GrandTotalFormatted string          `json:"grandTotalFormatted"`
	Decimals            int32           `json:"decimals"`
}

// Rank sorts accounts by total, highest first. Accounts with equal totals keep
// their input order. Excluded addresses and zero totals are left out.
func Rank(accounts []domain.Account, totals Totals, excluded []string, decimals int32) Report {
	skip := lo.SliceToMap(excluded, func(a string) (string, struct{}) { return a, struct{}{} })

	entries := lo.FilterMap(accounts, func(a domain.Account, _ int) (Entry, bool) {
		if _, ok := skip[a.Address]; ok {
			return Entry{}, false
		}
		total := totals.AccountTotal(a)
		if !total.IsPositive() {
			return Entry{}, false
		}
		return Entry{Address: a.Address, AddressTag: a.AddressTag, Total: total}, true
	})

	slices.SortStableFunc(entries, func(a, b Entry) int {
		return b.Total.Cmp(a.Total)
	})

	grand := decimal.Zero
	for i := range entries {
		entries[i].Rank = i
		entries[i].TotalFormatted = domain.FormatAmount(entries[i].Total, decimals)
		grand = grand.Add(entries[i].Total)
	}

	slog.Info("ranking computed", "accounts", len(accounts), "ranked", len(entries), "excluded", len(skip))

	return Report{
		Entries:             entries,
		GrandTotal:          grand,
		GrandTotalFormatted: domain.FormatAmount(grand, decimals),
		Decimals:            decimals,
	}
}

// Lines renders the report as "rank address total" lines.
func (r Report) Lines() []string {
	return lo.Map(r.Entries, func(e Entry, _ int) string {
		return fmt.Sprintf("%d %s %s", e.Rank, e.Address, e.TotalFormatted)
	})
}
