// Package memory provides an in-memory Store implementation for testing
// and development. All data is lost when the process exits.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/escrow"
	"github.com/xraph/escrow/provider"
	"github.com/xraph/escrow/receipt"
	"github.com/xraph/escrow/subscription"
	"github.com/xraph/escrow/types"
)

type Store struct {
	mu sync.RWMutex

	// Provider storage
	providers map[common.Address]*provider.Provider

	// Token whitelist
	tokens map[types.Asset]bool

	// Subscription storage
	subscriptions map[common.Hash]*subscription.Subscription

	// Receipt storage, append-only
	receipts []*receipt.Receipt

	closed bool
}

func New() *Store {
	return &Store{
		providers:     make(map[common.Address]*provider.Provider),
		tokens:        make(map[types.Asset]bool),
		subscriptions: make(map[common.Hash]*subscription.Subscription),
		receipts:      make([]*receipt.Receipt, 0),
	}
}

// Provider Store implementation

func (s *Store) UpsertProvider(_ context.Context, p *provider.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return escrow.ErrStoreClosed
	}

	cp := *p
	s.providers[p.Address] = &cp
	return nil
}

func (s *Store) GetProvider(_ context.Context, addr common.Address) (*provider.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, escrow.ErrStoreClosed
	}

	if p, ok := s.providers[addr]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, escrow.ErrProviderNotFound
}

func (s *Store) SetProviderWhitelisted(_ context.Context, addr common.Address, whitelisted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return escrow.ErrStoreClosed
	}

	p, ok := s.providers[addr]
	if !ok {
		p = &provider.Provider{
			Entity:  types.NewEntity(),
			Address: addr,
		}
		s.providers[addr] = p
	}
	p.Whitelisted = whitelisted
	p.Touch()
	return nil
}

func (s *Store) ListProviders(_ context.Context, opts provider.ListOpts) ([]*provider.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, escrow.ErrStoreClosed
	}

	var result []*provider.Provider
	for _, p := range s.providers {
		if opts.OnlyRegistered && !p.Registered {
			continue
		}
		if opts.OnlyWhitelisted && !p.Whitelisted {
			continue
		}
		cp := *p
		result = append(result, &cp)
	}

	// Deterministic order for pagination
	sort.Slice(result, func(i, j int) bool {
		return result[i].Address.Hex() < result[j].Address.Hex()
	})

	return paginate(result, opts.Limit, opts.Offset), nil
}

// Token whitelist implementation

func (s *Store) SetTokenWhitelisted(_ context.Context, asset types.Asset, whitelisted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return escrow.ErrStoreClosed
	}

	if whitelisted {
		s.tokens[asset] = true
	} else {
		delete(s.tokens, asset)
	}
	return nil
}

func (s *Store) IsTokenWhitelisted(_ context.Context, asset types.Asset) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, escrow.ErrStoreClosed
	}

	return s.tokens[asset], nil
}

func (s *Store) ListWhitelistedTokens(_ context.Context) ([]types.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, escrow.ErrStoreClosed
	}

	result := make([]types.Asset, 0, len(s.tokens))
	for asset := range s.tokens {
		result = append(result, asset)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Hex() < result[j].Hex()
	})
	return result, nil
}

// Subscription Store implementation

func (s *Store) CreateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return escrow.ErrStoreClosed
	}

	if _, exists := s.subscriptions[sub.Hash]; exists {
		return escrow.ErrSubscriptionExists
	}
	cp := *sub
	s.subscriptions[sub.Hash] = &cp
	return nil
}

func (s *Store) GetSubscription(_ context.Context, hash common.Hash) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, escrow.ErrStoreClosed
	}

	if sub, ok := s.subscriptions[hash]; ok {
		cp := *sub
		return &cp, nil
	}
	return nil, escrow.ErrSubscriptionNotFound
}

func (s *Store) SetSubscriptionBalance(_ context.Context, hash common.Hash, balance types.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return escrow.ErrStoreClosed
	}

	sub, ok := s.subscriptions[hash]
	if !ok {
		return escrow.ErrSubscriptionNotFound
	}
	sub.Balance = balance
	sub.Touch()
	return nil
}

func (s *Store) DeleteSubscription(_ context.Context, hash common.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return escrow.ErrStoreClosed
	}

	if _, ok := s.subscriptions[hash]; !ok {
		return escrow.ErrSubscriptionNotFound
	}
	delete(s.subscriptions, hash)
	return nil
}

func (s *Store) ListSubscriptions(_ context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, escrow.ErrStoreClosed
	}

	var result []*subscription.Subscription
	for _, sub := range s.subscriptions {
		if opts.Provider != nil && sub.Provider != *opts.Provider {
			continue
		}
		if opts.Consumer != nil && sub.Consumer != *opts.Consumer {
			continue
		}
		cp := *sub
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Hash.Hex() < result[j].Hash.Hex()
	})

	return paginate(result, opts.Limit, opts.Offset), nil
}

// Receipt Store implementation

func (s *Store) AppendReceipt(_ context.Context, r *receipt.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return escrow.ErrStoreClosed
	}

	cp := *r
	s.receipts = append(s.receipts, &cp)
	return nil
}

func (s *Store) ListReceiptsByHash(_ context.Context, hash common.Hash, opts receipt.ListOpts) ([]*receipt.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, escrow.ErrStoreClosed
	}

	var result []*receipt.Receipt
	for _, r := range s.receipts {
		if r.Hash != hash {
			continue
		}
		if opts.Kind != "" && r.Kind != opts.Kind {
			continue
		}
		cp := *r
		result = append(result, &cp)
	}
	return paginate(result, opts.Limit, opts.Offset), nil
}

func (s *Store) ListReceiptsByProvider(_ context.Context, addr common.Address, opts receipt.ListOpts) ([]*receipt.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, escrow.ErrStoreClosed
	}

	var result []*receipt.Receipt
	for _, r := range s.receipts {
		if r.Provider != addr {
			continue
		}
		if opts.Kind != "" && r.Kind != opts.Kind {
			continue
		}
		cp := *r
		result = append(result, &cp)
	}
	return paginate(result, opts.Limit, opts.Offset), nil
}

// Core methods

func (s *Store) Migrate(_ context.Context) error {
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return escrow.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
