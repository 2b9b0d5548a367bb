package gateway

import (
	"cmp"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/mtlprog/tokensnap/internal/domain"
)

type esdtEntry struct {
	TokenIdentifier string `json:"tokenIdentifier"`
	Balance         string `json:"balance"`
	Nonce           uint64 `json:"nonce"`
	Attributes      string `json:"attributes"`
}

// TokenName strips the nonce suffix of a token identifier:
// "XMEX-fda355-0a" becomes "XMEX-fda355".
func TokenName(identifier string) string {
	parts := strings.SplitN(identifier, "-", 3)
	if len(parts) < 2 {
		return identifier
	}
	return parts[0] + "-" + parts[1]
}

// FetchAccountTokens returns the holdings of address at blockNonce whose
// token name is in tokens, ordered by name and nonce.
func (c *Client) FetchAccountTokens(ctx context.Context, address string, blockNonce uint64, tokens []string) ([]domain.TokenHolding, error) {
	esdts, err := c.fetchESDTs(ctx, address, blockNonce)
	if err != nil {
		return nil, err
	}

	holdings := make([]domain.TokenHolding, 0, len(esdts))
	for identifier, e := range esdts {
		name := TokenName(identifier)
		if !lo.Contains(tokens, name) {
			continue
		}
		h, err := e.holding(address, name)
		if err != nil {
			return nil, fmt.Errorf("token %s of %s: %w", identifier, address, err)
		}
		holdings = append(holdings, h)
	}

	slices.SortFunc(holdings, func(a, b domain.TokenHolding) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.Nonce, b.Nonce))
	})
	return holdings, nil
}

func (c *Client) fetchESDTs(ctx context.Context, address string, blockNonce uint64) (map[string]esdtEntry, error) {
	key := cacheKey(address, blockNonce)
	if esdts, ok := c.tokens.get(key); ok {
		slog.Debug("account tokens cache hit", "address", address, "blockNonce", blockNonce)
		return esdts, nil
	}

	var data struct {
		ESDTs map[string]esdtEntry `json:"esdts"`
	}
	path := fmt.Sprintf("/address/%s/esdt?blockNonce=%d", url.PathEscape(address), blockNonce)
	if err := c.query(ctx, path, &data); err != nil {
		return nil, fmt.Errorf("fetching tokens of %s: %w", address, err)
	}

	c.tokens.set(key, data.ESDTs)
	return data.ESDTs, nil
}

func (e esdtEntry) holding(address, name string) (domain.TokenHolding, error) {
	h := domain.TokenHolding{Name: name, Nonce: e.Nonce}
	balance, ok := domain.ParseUnits(e.Balance)
	if !ok {
		return domain.TokenHolding{}, fmt.Errorf("%w: %s has balance %q", domain.ErrMalformedHolding, domain.KeyOf(address, h), e.Balance)
	}
	h.Balance = balance
	if e.Nonce == 0 {
		return h, nil
	}
	attrs, err := base64.StdEncoding.DecodeString(e.Attributes)
	if err != nil {
		return domain.TokenHolding{}, fmt.Errorf("decoding attributes: %w", err)
	}
	h.Attributes = attrs
	return h, nil
}
