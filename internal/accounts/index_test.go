package accounts

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/tokensnap/internal/domain"
)

func sample() []domain.Account {
	return []domain.Account{
		{Address: "erd1bob", Tokens: []domain.TokenHolding{
			{Name: "UTK", Balance: decimal.NewFromInt(5)},
		}},
		{Address: "erd1alice", Tokens: []domain.TokenHolding{
			{Name: "UTK", Balance: decimal.NewFromInt(10)},
			{Name: "SUTK", Nonce: 1, Balance: decimal.NewFromInt(50), Attributes: []byte{1}},
			{Name: "SUTK", Nonce: 2, Balance: decimal.NewFromInt(60), Attributes: []byte{2}},
		}},
	}
}

func TestIndexHolding(t *testing.T) {
	idx, err := New(sample())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	h, err := idx.Holding("erd1alice", "SUTK", 2)
	if err != nil {
		t.Fatalf("Holding() error: %v", err)
	}
	if !h.Balance.Equal(decimal.NewFromInt(60)) {
		t.Errorf("Holding().Balance = %s, want 60", h.Balance)
	}

	_, err = idx.Holding("erd1alice", "SUTK", 3)
	if !errors.Is(err, domain.ErrHoldingNotFound) {
		t.Errorf("Holding(missing) error = %v, want ErrHoldingNotFound", err)
	}
	if err != nil && err.Error() == domain.ErrHoldingNotFound.Error() {
		t.Errorf("Holding(missing) error %q does not name the key", err)
	}
}

func TestIndexOrder(t *testing.T) {
	idx, err := New(sample())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	all := idx.All()
	if len(all) != 2 || all[0].Address != "erd1bob" || all[1].Address != "erd1alice" {
		t.Errorf("All() order = %v, want input order", all)
	}
	if idx.Len() != 2 {
		t.Errorf("Len() = %d, want 2", idx.Len())
	}
}

func TestIndexRejectsDuplicates(t *testing.T) {
	tests := []struct {
		name     string
		accounts []domain.Account
	}{
		{"duplicate holding", []domain.Account{{Address: "erd1a", Tokens: []domain.TokenHolding{
			{Name: "UTK"}, {Name: "UTK"},
		}}}},
		{"duplicate account", []domain.Account{{Address: "erd1a"}, {Address: "erd1a"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.accounts); !errors.Is(err, domain.ErrDuplicateHolding) {
				t.Errorf("New() error = %v, want ErrDuplicateHolding", err)
			}
		})
	}
}

func TestIndexRejectsMalformedBalances(t *testing.T) {
	tests := []struct {
		name    string
		balance string
		key     string
	}{
		{"negative", "-500", "erd1alice:UTK:0"},
		{"fractional", "0.5", "erd1alice:LPTK:0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name := strings.Split(tt.key, ":")[1]
			accs := []domain.Account{{Address: "erd1alice", Tokens: []domain.TokenHolding{
				{Name: name, Balance: decimal.RequireFromString(tt.balance)},
			}}}

			_, err := New(accs)
			if !errors.Is(err, domain.ErrMalformedHolding) {
				t.Fatalf("New() error = %v, want ErrMalformedHolding", err)
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Errorf("New() error %q does not name %s", err, tt.key)
			}
		})
	}
}
