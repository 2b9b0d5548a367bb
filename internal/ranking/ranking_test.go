package ranking

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/tokensnap/internal/domain"
)

type fixedTotals map[string]int64

func (f fixedTotals) AccountTotal(a domain.Account) decimal.Decimal {
	return decimal.NewFromInt(f[a.Address])
}

func accountsOf(addrs ...string) []domain.Account {
	out := make([]domain.Account, len(addrs))
	for i, a := range addrs {
		out[i] = domain.Account{Address: a}
	}
	return out
}

func TestRankOrdersDescending(t *testing.T) {
	totals := fixedTotals{"a": 10, "b": 30, "c": 20}

	r := Rank(accountsOf("a", "b", "c"), totals, nil, 0)

	want := []string{"b", "c", "a"}
	if len(r.Entries) != len(want) {
		t.Fatalf("len(Entries) = %d, want %d", len(r.Entries), len(want))
	}
	for i, addr := range want {
		if r.Entries[i].Address != addr || r.Entries[i].Rank != i {
			t.Errorf("Entries[%d] = %+v, want %s at rank %d", i, r.Entries[i], addr, i)
		}
	}
	if !r.GrandTotal.Equal(decimal.NewFromInt(60)) {
		t.Errorf("GrandTotal = %s, want 60", r.GrandTotal)
	}
}

func TestRankStableForTies(t *testing.T) {
	totals := fixedTotals{"x": 5, "y": 5, "z": 5, "w": 9}

	r := Rank(accountsOf("x", "y", "z", "w"), totals, nil, 0)

	want := []string{"w", "x", "y", "z"}
	for i, addr := range want {
		if r.Entries[i].Address != addr {
			t.Errorf("Entries[%d].Address = %s, want %s", i, r.Entries[i].Address, addr)
		}
	}
}

func TestRankExcludesZeroAndConfigured(t *testing.T) {
	totals := fixedTotals{"a": 0, "b": 7, "metabonding": 1000, "team": 50}

	r := Rank(accountsOf("a", "b", "metabonding", "team"), totals, []string{"metabonding", "team"}, 0)

	if len(r.Entries) != 1 || r.Entries[0].Address != "b" {
		t.Errorf("Entries = %+v, want only b", r.Entries)
	}
	if !r.GrandTotal.Equal(decimal.NewFromInt(7)) {
		t.Errorf("GrandTotal = %s, want 7", r.GrandTotal)
	}
}

func TestReportLines(t *testing.T) {
	totals := fixedTotals{"erd1a": 1500000000000000000, "erd1b": 250000000000000000}

	r := Rank(accountsOf("erd1b", "erd1a"), totals, nil, 18)

	lines := r.Lines()
	want := []string{
		"0 erd1a 1.500000000000000000",
		"1 erd1b 0.250000000000000000",
	}
	if len(lines) != len(want) {
		t.Fatalf("Lines() = %v", lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("Lines()[%d] = %q, want %q", i, lines[i], want[i])
		}
	}
	if r.GrandTotalFormatted != "1.750000000000000000" {
		t.Errorf("GrandTotalFormatted = %q", r.GrandTotalFormatted)
	}
}
