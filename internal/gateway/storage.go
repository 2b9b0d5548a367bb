package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
)

// FetchStorage returns the hex key/value storage of a contract at blockNonce.
func (c *Client) FetchStorage(ctx context.Context, address string, blockNonce uint64) (map[string]string, error) {
	key := cacheKey(address, blockNonce)
	if pairs, ok := c.storage.get(key); ok {
		slog.Debug("contract storage cache hit", "address", address, "blockNonce", blockNonce)
		return pairs, nil
	}

	var data struct {
		Pairs map[string]string `json:"pairs"`
	}
	path := fmt.Sprintf("/address/%s/keys?blockNonce=%d", url.PathEscape(address), blockNonce)
	if err := c.query(ctx, path, &data); err != nil {
		return nil, fmt.Errorf("fetching storage of %s: %w", address, err)
	}
	if data.Pairs == nil {
		data.Pairs = map[string]string{}
	}

	c.storage.set(key, data.Pairs)
	slog.Debug("contract storage fetched", "address", address, "blockNonce", blockNonce, "keys", len(data.Pairs))
	return data.Pairs, nil
}

// StateProvider serves contract storage from the gateway at a fixed block nonce.
type StateProvider struct {
	client     *Client
	blockNonce uint64
}

// NewStateProvider creates a StateProvider. Panics if client is nil.
func NewStateProvider(client *Client, blockNonce uint64) *StateProvider {
	if client == nil {
		panic("gateway.NewStateProvider: client must not be nil")
	}
	return &StateProvider{client: client, blockNonce: blockNonce}
}

// LoadState ignores the state filename; storage is addressed by contract.
func (p *StateProvider) LoadState(ctx context.Context, address, _ string) (map[string]string, error) {
	return p.client.FetchStorage(ctx, address, p.blockNonce)
}
