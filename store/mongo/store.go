// Package mongo implements the Escrow store on MongoDB via the Grove ORM.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/ethereum/go-ethereum/common"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	escrow "github.com/xraph/escrow"
	"github.com/xraph/escrow/provider"
	"github.com/xraph/escrow/receipt"
	escrowstore "github.com/xraph/escrow/store"
	"github.com/xraph/escrow/subscription"
	"github.com/xraph/escrow/types"
)

// Collection name constants.
const (
	colProviders     = "escrow_providers"
	colTokens        = "escrow_token_whitelist"
	colSubscriptions = "escrow_subscriptions"
	colReceipts      = "escrow_receipts"
)

// compile-time interface check
var _ escrowstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all escrow collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("escrow/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colProviders: {
			{Keys: bson.D{{Key: "whitelisted", Value: 1}}},
			{Keys: bson.D{{Key: "registered", Value: 1}}},
		},
		colTokens: {},
		colSubscriptions: {
			{Keys: bson.D{{Key: "provider", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "consumer", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colReceipts: {
			{Keys: bson.D{{Key: "hash", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "provider", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "hash", Value: 1}, {Key: "kind", Value: 1}}},
		},
	}
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Provider Store ====================

func (s *Store) UpsertProvider(ctx context.Context, p *provider.Provider) error {
	m := toProviderModel(p)
	m.UpdatedAt = now()

	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.Address}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":         m.Address,
			"whitelisted": m.Whitelisted,
			"registered":  m.Registered,
			"url":         m.URL,
			"created_at":  m.CreatedAt,
			"updated_at":  m.UpdatedAt,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("escrow/mongo: upsert provider: %w", err)
	}
	return nil
}

func (s *Store) GetProvider(ctx context.Context, addr common.Address) (*provider.Provider, error) {
	var m providerModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": addr.Hex()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, escrow.ErrProviderNotFound
		}
		return nil, fmt.Errorf("escrow/mongo: get provider: %w", err)
	}
	return fromProviderModel(&m), nil
}

func (s *Store) SetProviderWhitelisted(ctx context.Context, addr common.Address, whitelisted bool) error {
	t := now()
	_, err := s.mdb.NewUpdate((*providerModel)(nil)).
		Filter(bson.M{"_id": addr.Hex()}).
		SetUpdate(bson.M{
			"$set": bson.M{
				"whitelisted": whitelisted,
				"updated_at":  t,
			},
			"$setOnInsert": bson.M{
				"registered": false,
				"url":        "",
				"created_at": t,
			},
		}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("escrow/mongo: set provider whitelisted: %w", err)
	}
	return nil
}

func (s *Store) ListProviders(ctx context.Context, opts provider.ListOpts) ([]*provider.Provider, error) {
	var models []providerModel

	filter := bson.M{}
	if opts.OnlyRegistered {
		filter["registered"] = true
	}
	if opts.OnlyWhitelisted {
		filter["whitelisted"] = true
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("escrow/mongo: list providers: %w", err)
	}

	result := make([]*provider.Provider, len(models))
	for i := range models {
		result[i] = fromProviderModel(&models[i])
	}
	return result, nil
}

// ==================== Token whitelist ====================

func (s *Store) SetTokenWhitelisted(ctx context.Context, asset types.Asset, whitelisted bool) error {
	if !whitelisted {
		_, err := s.mdb.NewDelete((*tokenModel)(nil)).
			Filter(bson.M{"_id": asset.Hex()}).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("escrow/mongo: remove token whitelist: %w", err)
		}
		return nil
	}

	t := now()
	_, err := s.mdb.NewUpdate((*tokenModel)(nil)).
		Filter(bson.M{"_id": asset.Hex()}).
		SetUpdate(bson.M{"$setOnInsert": bson.M{
			"created_at": t,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("escrow/mongo: set token whitelisted: %w", err)
	}
	return nil
}

func (s *Store) IsTokenWhitelisted(ctx context.Context, asset types.Asset) (bool, error) {
	var m tokenModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": asset.Hex()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return false, nil
		}
		return false, fmt.Errorf("escrow/mongo: is token whitelisted: %w", err)
	}
	return true, nil
}

func (s *Store) ListWhitelistedTokens(ctx context.Context) ([]types.Asset, error) {
	var models []tokenModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("escrow/mongo: list whitelisted tokens: %w", err)
	}

	result := make([]types.Asset, len(models))
	for i := range models {
		asset, err := types.ParseAsset(models[i].Asset)
		if err != nil {
			return nil, err
		}
		result[i] = asset
	}
	return result, nil
}

// ==================== Subscription Store ====================

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return escrow.ErrSubscriptionExists
		}
		return fmt.Errorf("escrow/mongo: create subscription: %w", err)
	}
	return nil
}

func (s *Store) GetSubscription(ctx context.Context, hash common.Hash) (*subscription.Subscription, error) {
	var m subscriptionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": hash.Hex()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, escrow.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("escrow/mongo: get subscription: %w", err)
	}
	return fromSubscriptionModel(&m)
}

func (s *Store) SetSubscriptionBalance(ctx context.Context, hash common.Hash, balance types.Amount) error {
	res, err := s.mdb.NewUpdate((*subscriptionModel)(nil)).
		Filter(bson.M{"_id": hash.Hex()}).
		Set("balance", balance.String()).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("escrow/mongo: set subscription balance: %w", err)
	}
	if res.MatchedCount() == 0 {
		return escrow.ErrSubscriptionNotFound
	}
	return nil
}

func (s *Store) DeleteSubscription(ctx context.Context, hash common.Hash) error {
	res, err := s.mdb.NewDelete((*subscriptionModel)(nil)).
		Filter(bson.M{"_id": hash.Hex()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("escrow/mongo: delete subscription: %w", err)
	}
	if res.DeletedCount() == 0 {
		return escrow.ErrSubscriptionNotFound
	}
	return nil
}

func (s *Store) ListSubscriptions(ctx context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	var models []subscriptionModel

	filter := bson.M{}
	if opts.Provider != nil {
		filter["provider"] = opts.Provider.Hex()
	}
	if opts.Consumer != nil {
		filter["consumer"] = opts.Consumer.Hex()
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("escrow/mongo: list subscriptions: %w", err)
	}

	result := make([]*subscription.Subscription, len(models))
	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sub
	}
	return result, nil
}

// ==================== Receipt Store ====================

func (s *Store) AppendReceipt(ctx context.Context, r *receipt.Receipt) error {
	m := toReceiptModel(r)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("escrow/mongo: append receipt: %w", err)
	}
	return nil
}

func (s *Store) ListReceiptsByHash(ctx context.Context, hash common.Hash, opts receipt.ListOpts) ([]*receipt.Receipt, error) {
	return s.listReceipts(ctx, bson.M{"hash": hash.Hex()}, opts)
}

func (s *Store) ListReceiptsByProvider(ctx context.Context, addr common.Address, opts receipt.ListOpts) ([]*receipt.Receipt, error) {
	return s.listReceipts(ctx, bson.M{"provider": addr.Hex()}, opts)
}

func (s *Store) listReceipts(ctx context.Context, filter bson.M, opts receipt.ListOpts) ([]*receipt.Receipt, error) {
	if opts.Kind != "" {
		filter["kind"] = string(opts.Kind)
	}

	var models []receiptModel
	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("escrow/mongo: list receipts: %w", err)
	}

	result := make([]*receipt.Receipt, len(models))
	for i := range models {
		r, err := fromReceiptModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

// ==================== Helpers ====================

func now() time.Time {
	return time.Now().UTC()
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
