package receipt

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

type Store interface {
	Append(ctx context.Context, r *Receipt) error
	ListByHash(ctx context.Context, hash common.Hash, opts ListOpts) ([]*Receipt, error)
	ListByProvider(ctx context.Context, provider common.Address, opts ListOpts) ([]*Receipt, error)
}

type ListOpts struct {
	Kind   Kind
	Limit  int
	Offset int
}
