package subscription

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/escrow/types"
)

type Store interface {
	Create(ctx context.Context, s *Subscription) error
	Get(ctx context.Context, hash common.Hash) (*Subscription, error)
	SetBalance(ctx context.Context, hash common.Hash, balance types.Amount) error
	Delete(ctx context.Context, hash common.Hash) error
	List(ctx context.Context, opts ListOpts) ([]*Subscription, error)
}

type ListOpts struct {
	Provider *common.Address
	Consumer *common.Address
	Limit    int
	Offset   int
}
