package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/tokensnap/internal/domain"
)

type mockStates map[string]map[string]string

func (m mockStates) LoadState(_ context.Context, address, _ string) (map[string]string, error) {
	pairs, ok := m[address]
	if !ok {
		return nil, errors.New("unknown contract")
	}
	return pairs, nil
}

type mockSource struct {
	holdings map[string][]domain.TokenHolding
	nonces   []uint64
}

func (m *mockSource) FetchAccountTokens(_ context.Context, address string, blockNonce uint64, _ []string) ([]domain.TokenHolding, error) {
	m.nonces = append(m.nonces, blockNonce)
	return m.holdings[address], nil
}

func TestFetchWritesWorkspace(t *testing.T) {
	dir, cfg := setupWorkspace(t, "1555")
	states := mockStates{
		addr(t, 1): {"6c705f746f6b656e5f737570706c79": "03e8"},
		addr(t, 2): {},
	}
	src := &mockSource{
		holdings: map[string][]domain.TokenHolding{
			addr(t, 10): {{Name: "UTK", Balance: decimal.NewFromInt(3)}},
		},
	}

	p := New(dir, cfg, states)
	if err := p.Fetch(context.Background(), src, 77, []string{addr(t, 10), addr(t, 1)}); err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}

	var accs []domain.Account
	if err := p.ws.readJSON(AccountsFile, &accs); err != nil {
		t.Fatal(err)
	}
	want := []string{addr(t, 10), addr(t, 1), addr(t, 2), addr(t, 9)}
	if len(accs) != len(want) {
		t.Fatalf("len(accounts) = %d, want %d", len(accs), len(want))
	}
	for i, a := range want {
		if accs[i].Address != a {
			t.Errorf("accounts[%d] = %s, want %s", i, accs[i].Address, a)
		}
	}
	if accs[1].AddressTag != "pool-LP" {
		t.Errorf("pool tag = %q, want pool-LP", accs[1].AddressTag)
	}
	if !accs[0].Tokens[0].Balance.Equal(decimal.NewFromInt(3)) {
		t.Errorf("alice balance = %s, want 3", accs[0].Tokens[0].Balance)
	}

	var pool map[string]string
	if err := p.ws.readJSON("pool_state.json", &pool); err != nil {
		t.Fatal(err)
	}
	if pool["6c705f746f6b656e5f737570706c79"] != "03e8" {
		t.Errorf("pool state = %v", pool)
	}

	for _, n := range src.nonces {
		if n != 77 {
			t.Errorf("fetched at nonce %d, want 77", n)
		}
	}
}

func TestFetchStorageError(t *testing.T) {
	dir, cfg := setupWorkspace(t, "1555")
	if err := New(dir, cfg, mockStates{}).Fetch(context.Background(), &mockSource{}, 1, nil); err == nil {
		t.Error("Fetch() with missing contract = nil error")
	}
}
