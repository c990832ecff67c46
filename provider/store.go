package provider

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

type Store interface {
	Upsert(ctx context.Context, p *Provider) error
	Get(ctx context.Context, addr common.Address) (*Provider, error)
	SetWhitelisted(ctx context.Context, addr common.Address, whitelisted bool) error
	List(ctx context.Context, opts ListOpts) ([]*Provider, error)
}

type ListOpts struct {
	OnlyRegistered  bool
	OnlyWhitelisted bool
	Limit           int
	Offset          int
}
