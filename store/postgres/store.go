// Package postgres implements the Escrow store on PostgreSQL via the
// Grove ORM.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	escrow "github.com/xraph/escrow"
	"github.com/xraph/escrow/provider"
	"github.com/xraph/escrow/receipt"
	escrowstore "github.com/xraph/escrow/store"
	"github.com/xraph/escrow/subscription"
	"github.com/xraph/escrow/types"
)

// compile-time interface check
var _ escrowstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("escrow/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("escrow/postgres: migration failed: %w", err)
	}
	return nil
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

	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		_, err = s.pg.NewInsert(m).Exec(ctx)
	}
	return err
}

func (s *Store) GetProvider(ctx context.Context, addr common.Address) (*provider.Provider, error) {
	m := new(providerModel)
	err := s.pg.NewSelect(m).
		Where("address = $1", addr.Hex()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, escrow.ErrProviderNotFound
		}
		return nil, err
	}
	return fromProviderModel(m), nil
}

func (s *Store) SetProviderWhitelisted(ctx context.Context, addr common.Address, whitelisted bool) error {
	t := now()
	res, err := s.pg.NewUpdate((*providerModel)(nil)).
		Set("whitelisted = $1", whitelisted).
		Set("updated_at = $2", t).
		Where("address = $3", addr.Hex()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		m := &providerModel{
			Address:     addr.Hex(),
			Whitelisted: whitelisted,
			CreatedAt:   t,
			UpdatedAt:   t,
		}
		_, err = s.pg.NewInsert(m).Exec(ctx)
	}
	return err
}

func (s *Store) ListProviders(ctx context.Context, opts provider.ListOpts) ([]*provider.Provider, error) {
	var models []providerModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if opts.OnlyRegistered {
		argIdx++
		q = q.Where(fmt.Sprintf("registered = $%d", argIdx), true)
	}
	if opts.OnlyWhitelisted {
		argIdx++
		q = q.Where(fmt.Sprintf("whitelisted = $%d", argIdx), true)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("address ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
		_, err := s.pg.NewDelete((*tokenModel)(nil)).
			Where("asset = $1", asset.Hex()).
			Exec(ctx)
		return err
	}

	whitelistedNow, err := s.IsTokenWhitelisted(ctx, asset)
	if err != nil {
		return err
	}
	if whitelistedNow {
		return nil
	}

	m := &tokenModel{
		Asset:     asset.Hex(),
		CreatedAt: now(),
	}
	_, err = s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) IsTokenWhitelisted(ctx context.Context, asset types.Asset) (bool, error) {
	m := new(tokenModel)
	err := s.pg.NewSelect(m).
		Where("asset = $1", asset.Hex()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) ListWhitelistedTokens(ctx context.Context) ([]types.Asset, error) {
	var models []tokenModel
	if err := s.pg.NewSelect(&models).OrderExpr("asset ASC").Scan(ctx); err != nil {
		return nil, err
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
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetSubscription(ctx context.Context, hash common.Hash) (*subscription.Subscription, error) {
	m := new(subscriptionModel)
	err := s.pg.NewSelect(m).
		Where("hash = $1", hash.Hex()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, escrow.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return fromSubscriptionModel(m)
}

func (s *Store) SetSubscriptionBalance(ctx context.Context, hash common.Hash, balance types.Amount) error {
	res, err := s.pg.NewUpdate((*subscriptionModel)(nil)).
		Set("balance = $1", balance.String()).
		Set("updated_at = $2", now()).
		Where("hash = $3", hash.Hex()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return escrow.ErrSubscriptionNotFound
	}
	return nil
}

func (s *Store) DeleteSubscription(ctx context.Context, hash common.Hash) error {
	res, err := s.pg.NewDelete((*subscriptionModel)(nil)).
		Where("hash = $1", hash.Hex()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return escrow.ErrSubscriptionNotFound
	}
	return nil
}

func (s *Store) ListSubscriptions(ctx context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	var models []subscriptionModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if opts.Provider != nil {
		argIdx++
		q = q.Where(fmt.Sprintf("provider = $%d", argIdx), opts.Provider.Hex())
	}
	if opts.Consumer != nil {
		argIdx++
		q = q.Where(fmt.Sprintf("consumer = $%d", argIdx), opts.Consumer.Hex())
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) ListReceiptsByHash(ctx context.Context, hash common.Hash, opts receipt.ListOpts) ([]*receipt.Receipt, error) {
	return s.listReceipts(ctx, "hash", hash.Hex(), opts)
}

func (s *Store) ListReceiptsByProvider(ctx context.Context, addr common.Address, opts receipt.ListOpts) ([]*receipt.Receipt, error) {
	return s.listReceipts(ctx, "provider", addr.Hex(), opts)
}

func (s *Store) listReceipts(ctx context.Context, column, value string, opts receipt.ListOpts) ([]*receipt.Receipt, error) {
	var models []receiptModel
	q := s.pg.NewSelect(&models).
		Where(fmt.Sprintf("%s = $1", column), value)

	if opts.Kind != "" {
		q = q.Where("kind = $2", string(opts.Kind))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
