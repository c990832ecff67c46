package mongo

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/xraph/grove"

	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/provider"
	"github.com/xraph/escrow/receipt"
	"github.com/xraph/escrow/subscription"
	"github.com/xraph/escrow/types"
)

// ==================== Provider models ====================

type providerModel struct {
	grove.BaseModel `grove:"table:escrow_providers"`

	Address     string    `grove:"address,pk"  bson:"_id"`
	Whitelisted bool      `grove:"whitelisted" bson:"whitelisted"`
	Registered  bool      `grove:"registered"  bson:"registered"`
	URL         string    `grove:"url"         bson:"url"`
	CreatedAt   time.Time `grove:"created_at"  bson:"created_at"`
	UpdatedAt   time.Time `grove:"updated_at"  bson:"updated_at"`
}

func toProviderModel(p *provider.Provider) *providerModel {
	return &providerModel{
		Address:     p.Address.Hex(),
		Whitelisted: p.Whitelisted,
		Registered:  p.Registered,
		URL:         p.URL,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func fromProviderModel(m *providerModel) *provider.Provider {
	return &provider.Provider{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Address:     common.HexToAddress(m.Address),
		Whitelisted: m.Whitelisted,
		Registered:  m.Registered,
		URL:         m.URL,
	}
}

// ==================== Token whitelist models ====================

type tokenModel struct {
	grove.BaseModel `grove:"table:escrow_token_whitelist"`

	Asset     string    `grove:"asset,pk"   bson:"_id"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
}

// ==================== Subscription models ====================

type subscriptionModel struct {
	grove.BaseModel `grove:"table:escrow_subscriptions"`

	Hash      string    `grove:"hash,pk"    bson:"_id"`
	Provider  string    `grove:"provider"   bson:"provider"`
	Consumer  string    `grove:"consumer"   bson:"consumer"`
	Asset     string    `grove:"asset"      bson:"asset"`
	Balance   string    `grove:"balance"    bson:"balance"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
}

func toSubscriptionModel(s *subscription.Subscription) *subscriptionModel {
	return &subscriptionModel{
		Hash:      s.Hash.Hex(),
		Provider:  s.Provider.Hex(),
		Consumer:  s.Consumer.Hex(),
		Asset:     s.Asset.Hex(),
		Balance:   s.Balance.String(),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func fromSubscriptionModel(m *subscriptionModel) (*subscription.Subscription, error) {
	balance, err := types.ParseAmount(m.Balance)
	if err != nil {
		return nil, err
	}
	asset, err := types.ParseAsset(m.Asset)
	if err != nil {
		return nil, err
	}

	return &subscription.Subscription{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Hash:     common.HexToHash(m.Hash),
		Provider: common.HexToAddress(m.Provider),
		Consumer: common.HexToAddress(m.Consumer),
		Asset:    asset,
		Balance:  balance,
	}, nil
}

// ==================== Receipt models ====================

type receiptModel struct {
	grove.BaseModel `grove:"table:escrow_receipts"`

	ID        string    `grove:"id,pk"      bson:"_id"`
	Kind      string    `grove:"kind"       bson:"kind"`
	Provider  string    `grove:"provider"   bson:"provider"`
	Hash      string    `grove:"hash"       bson:"hash"`
	Consumer  string    `grove:"consumer"   bson:"consumer"`
	Asset     string    `grove:"asset"      bson:"asset"`
	Amount    string    `grove:"amount"     bson:"amount"`
	URL       string    `grove:"url"        bson:"url"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
}

func toReceiptModel(r *receipt.Receipt) *receiptModel {
	return &receiptModel{
		ID:        r.ID.String(),
		Kind:      string(r.Kind),
		Provider:  r.Provider.Hex(),
		Hash:      r.Hash.Hex(),
		Consumer:  r.Consumer.Hex(),
		Asset:     r.Asset.Hex(),
		Amount:    r.Amount.String(),
		URL:       r.URL,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func fromReceiptModel(m *receiptModel) (*receipt.Receipt, error) {
	rcptID, err := id.ParseReceiptID(m.ID)
	if err != nil {
		return nil, err
	}
	amount, err := types.ParseAmount(m.Amount)
	if err != nil {
		return nil, err
	}
	asset, err := types.ParseAsset(m.Asset)
	if err != nil {
		return nil, err
	}

	return &receipt.Receipt{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:       rcptID,
		Kind:     receipt.Kind(m.Kind),
		Provider: common.HexToAddress(m.Provider),
		Hash:     common.HexToHash(m.Hash),
		Consumer: common.HexToAddress(m.Consumer),
		Asset:    asset,
		Amount:   amount,
		URL:      m.URL,
	}, nil
}
