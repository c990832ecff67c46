package escrow_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/xraph/escrow"
	"github.com/xraph/escrow/store/memory"
	"github.com/xraph/escrow/transfer/bank"
)

// TestDocumentationExamples verifies that the examples in the package
// documentation compile and run.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store and adapter (memory/bank for demo, use a Grove
		// backend and a real settlement adapter in production)
		store := memory.New()
		b := bank.New()

		key, err := crypto.GenerateKey()
		if err != nil {
			t.Fatal(err)
		}
		providerAddr := crypto.PubkeyToAddress(key.PublicKey)

		eng := escrow.New(store, b, owner,
			escrow.WithLogger(slog.Default()),
			escrow.WithRevision(escrow.RevisionV2),
		)

		ctx := context.Background()
		if err := eng.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer eng.Stop()

		// The owner whitelists the provider and the native asset
		if err := eng.SetWhitelistedProvider(ctx, owner, providerAddr, true); err != nil {
			t.Fatal(err)
		}
		if err := eng.SetWhitelistedToken(ctx, owner, escrow.NativeAsset, true); err != nil {
			t.Fatal(err)
		}

		// The provider self-registers under a display URL
		if err := eng.RegisterProvider(ctx, providerAddr, "https://example.com"); err != nil {
			t.Fatal(err)
		}

		// The consumer funds and opens a subscription the provider
		// consented to by signing its fingerprint
		b.Mint(escrow.NativeAsset, consumer, escrow.NewAmount(100))
		fp := crypto.Keccak256Hash([]byte("plan: pro, consumer: c1"))
		sig, err := crypto.Sign(accounts.TextHash(fp.Bytes()), key)
		if err != nil {
			t.Fatal(err)
		}
		amount := escrow.NewAmount(10)
		if err := eng.CreateSubscription(ctx, consumer, providerAddr, fp, sig,
			escrow.NativeAsset, amount, amount); err != nil {
			t.Fatal(err)
		}

		// The provider withdraws escrowed funds
		if err := eng.WithdrawFunds(ctx, providerAddr, fp, escrow.NativeAsset, escrow.NewAmount(4)); err != nil {
			t.Fatal(err)
		}

		// Or refunds them to the consumer
		if err := eng.RefundFunds(ctx, providerAddr, fp, escrow.NativeAsset, escrow.NewAmount(6)); err != nil {
			t.Fatal(err)
		}
	})
}
