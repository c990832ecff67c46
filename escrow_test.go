package escrow_test

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/xraph/escrow"
	"github.com/xraph/escrow/receipt"
	"github.com/xraph/escrow/store/memory"
	"github.com/xraph/escrow/transfer/bank"
	"github.com/xraph/escrow/types"
)

var (
	owner    = common.HexToAddress("0x00000000000000000000000000000000000000A1")
	consumer = common.HexToAddress("0x00000000000000000000000000000000000000C1")
	stranger = common.HexToAddress("0x00000000000000000000000000000000000000D1")

	tokenAsset = types.TokenAsset(common.HexToAddress("0x00000000000000000000000000000000000000E1"))

	fingerprint = crypto.Keccak256Hash([]byte("subscription terms v1"))
)

// signer wraps a provider key so tests can produce consent signatures.
type signer struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

func newSigner(t *testing.T) *signer {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	return &signer{key: key, addr: crypto.PubkeyToAddress(key.PublicKey)}
}

// sign produces a personal-message signature with recovery id in {0, 1}.
func (s *signer) sign(t *testing.T, h common.Hash) []byte {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash(h.Bytes()), s.key)
	if err != nil {
		t.Fatal(err)
	}
	return sig
}

// signLegacy produces the same signature with recovery id in {27, 28}.
func (s *signer) signLegacy(t *testing.T, h common.Hash) []byte {
	t.Helper()
	sig := s.sign(t, h)
	sig[64] += 27
	return sig
}

type fixture struct {
	eng      *escrow.Escrow
	bank     *bank.Bank
	provider *signer
}

// newFixture builds a started engine with a whitelisted, registered
// provider and a whitelisted native asset. The consumer holds 100 native
// units.
func newFixture(t *testing.T, opts ...escrow.Option) *fixture {
	t.Helper()
	ctx := context.Background()

	b := bank.New()
	eng := escrow.New(memory.New(), b, owner, opts...)
	if err := eng.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = eng.Stop() })

	prov := newSigner(t)
	if err := eng.SetWhitelistedProvider(ctx, owner, prov.addr, true); err != nil {
		t.Fatal(err)
	}
	if err := eng.RegisterProvider(ctx, prov.addr, "testUrl"); err != nil {
		t.Fatal(err)
	}
	if err := eng.SetWhitelistedToken(ctx, owner, types.Native, true); err != nil {
		t.Fatal(err)
	}

	b.Mint(types.Native, consumer, escrow.NewAmount(100))

	return &fixture{eng: eng, bank: b, provider: prov}
}

// create opens a subscription for amount native units out of the
// consumer's balance.
func (f *fixture) create(t *testing.T, amount int64) {
	t.Helper()
	amt := escrow.NewAmount(amount)
	err := f.eng.CreateSubscription(context.Background(), consumer, f.provider.addr,
		fingerprint, f.provider.sign(t, fingerprint), types.Native, amt, amt)
	if err != nil {
		t.Fatal(err)
	}
}

func TestRegisterProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("NotWhitelisted", func(t *testing.T) {
		f := newFixture(t)
		if err := f.eng.RegisterProvider(ctx, stranger, "testUrl"); !errors.Is(err, escrow.ErrProviderNotWhitelisted) {
			t.Errorf("got %v, want ErrProviderNotWhitelisted", err)
		}
	})

	t.Run("EmptyURL", func(t *testing.T) {
		f := newFixture(t)
		other := newSigner(t)
		if err := f.eng.SetWhitelistedProvider(ctx, owner, other.addr, true); err != nil {
			t.Fatal(err)
		}
		if err := f.eng.RegisterProvider(ctx, other.addr, ""); !errors.Is(err, escrow.ErrEmptyURL) {
			t.Errorf("got %v, want ErrEmptyURL", err)
		}
	})

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)
		p, err := f.eng.Provider(ctx, f.provider.addr)
		if err != nil {
			t.Fatal(err)
		}
		if !p.Registered {
			t.Error("provider not marked registered")
		}
		if p.URL != "testUrl" {
			t.Errorf("URL: got %q, want %q", p.URL, "testUrl")
		}
	})

	t.Run("ReRegistrationOverwritesURL", func(t *testing.T) {
		f := newFixture(t)
		if err := f.eng.RegisterProvider(ctx, f.provider.addr, "newUrl"); err != nil {
			t.Fatal(err)
		}
		p, err := f.eng.Provider(ctx, f.provider.addr)
		if err != nil {
			t.Fatal(err)
		}
		if p.URL != "newUrl" {
			t.Errorf("URL: got %q, want %q", p.URL, "newUrl")
		}
	})

	t.Run("AppendsReceipt", func(t *testing.T) {
		f := newFixture(t)
		rcpts, err := f.eng.ReceiptsByProvider(ctx, f.provider.addr, receipt.ListOpts{Kind: receipt.KindProviderRegistered})
		if err != nil {
			t.Fatal(err)
		}
		if len(rcpts) != 1 {
			t.Fatalf("receipts: got %d, want 1", len(rcpts))
		}
		if rcpts[0].URL != "testUrl" {
			t.Errorf("receipt URL: got %q, want %q", rcpts[0].URL, "testUrl")
		}
	})
}

func TestOwnerGates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tests := []struct {
		name string
		op   func() error
	}{
		{"SetWhitelistedProvider", func() error {
			return f.eng.SetWhitelistedProvider(ctx, stranger, stranger, true)
		}},
		{"SetWhitelistedToken", func() error {
			return f.eng.SetWhitelistedToken(ctx, stranger, types.Native, true)
		}},
		{"Pause", func() error { return f.eng.Pause(ctx, stranger) }},
		{"Unpause", func() error { return f.eng.Unpause(ctx, stranger) }},
		{"Upgrade", func() error { return f.eng.Upgrade(ctx, stranger, escrow.RevisionV2) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.op(); !errors.Is(err, escrow.ErrNotOwner) {
				t.Errorf("got %v, want ErrNotOwner", err)
			}
		})
	}
}

func TestCreateSubscription(t *testing.T) {
	ctx := context.Background()

	t.Run("ProviderNotWhitelisted", func(t *testing.T) {
		f := newFixture(t)
		other := newSigner(t)
		amt := escrow.NewAmount(2)
		err := f.eng.CreateSubscription(ctx, consumer, other.addr,
			fingerprint, other.sign(t, fingerprint), types.Native, amt, amt)
		if !errors.Is(err, escrow.ErrProviderNotWhitelisted) {
			t.Errorf("got %v, want ErrProviderNotWhitelisted", err)
		}
	})

	t.Run("ProviderNotRegistered", func(t *testing.T) {
		f := newFixture(t)
		other := newSigner(t)
		if err := f.eng.SetWhitelistedProvider(ctx, owner, other.addr, true); err != nil {
			t.Fatal(err)
		}
		amt := escrow.NewAmount(2)
		err := f.eng.CreateSubscription(ctx, consumer, other.addr,
			fingerprint, other.sign(t, fingerprint), types.Native, amt, amt)
		if !errors.Is(err, escrow.ErrProviderNotRegistered) {
			t.Errorf("got %v, want ErrProviderNotRegistered", err)
		}
	})

	t.Run("TokenNotWhitelisted", func(t *testing.T) {
		f := newFixture(t)
		amt := escrow.NewAmount(2)
		err := f.eng.CreateSubscription(ctx, consumer, f.provider.addr,
			fingerprint, f.provider.sign(t, fingerprint), tokenAsset, amt, escrow.ZeroAmount())
		if !errors.Is(err, escrow.ErrTokenNotWhitelisted) {
			t.Errorf("got %v, want ErrTokenNotWhitelisted", err)
		}
	})

	t.Run("WrongSigner", func(t *testing.T) {
		f := newFixture(t)
		imposter := newSigner(t)
		amt := escrow.NewAmount(2)
		err := f.eng.CreateSubscription(ctx, consumer, f.provider.addr,
			fingerprint, imposter.sign(t, fingerprint), types.Native, amt, amt)
		if !errors.Is(err, escrow.ErrInvalidSignature) {
			t.Errorf("got %v, want ErrInvalidSignature", err)
		}
	})

	t.Run("NoInitialDeposit", func(t *testing.T) {
		f := newFixture(t)
		zero := escrow.ZeroAmount()
		err := f.eng.CreateSubscription(ctx, consumer, f.provider.addr,
			fingerprint, f.provider.sign(t, fingerprint), types.Native, zero, zero)
		if !errors.Is(err, escrow.ErrNoInitialDeposit) {
			t.Errorf("got %v, want ErrNoInitialDeposit", err)
		}
	})

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t)
		f.create(t, 2)

		sub, err := f.eng.Subscription(ctx, fingerprint)
		if err != nil {
			t.Fatal(err)
		}
		if sub.Provider != f.provider.addr {
			t.Errorf("provider: got %s, want %s", sub.Provider, f.provider.addr)
		}
		if sub.Consumer != consumer {
			t.Errorf("consumer: got %s, want %s", sub.Consumer, consumer)
		}
		if !sub.Asset.IsNative() {
			t.Errorf("asset: got %s, want native", sub.Asset)
		}
		if !sub.Balance.Equal(escrow.NewAmount(2)) {
			t.Errorf("balance: got %s, want 2", sub.Balance)
		}
		if got := f.bank.BalanceOf(types.Native, consumer); !got.Equal(escrow.NewAmount(98)) {
			t.Errorf("consumer balance: got %s, want 98", got)
		}
		if got := f.bank.CustodyBalance(types.Native); !got.Equal(escrow.NewAmount(2)) {
			t.Errorf("custody: got %s, want 2", got)
		}
	})

	t.Run("FingerprintUniqueness", func(t *testing.T) {
		f := newFixture(t)
		f.create(t, 2)

		// Same fingerprint, fresh parameters, even a different provider.
		other := newSigner(t)
		if err := f.eng.SetWhitelistedProvider(ctx, owner, other.addr, true); err != nil {
			t.Fatal(err)
		}
		if err := f.eng.RegisterProvider(ctx, other.addr, "otherUrl"); err != nil {
			t.Fatal(err)
		}
		amt := escrow.NewAmount(5)
		err := f.eng.CreateSubscription(ctx, consumer, other.addr,
			fingerprint, other.sign(t, fingerprint), types.Native, amt, amt)
		if !errors.Is(err, escrow.ErrSubscriptionExists) {
			t.Errorf("got %v, want ErrSubscriptionExists", err)
		}
	})

	t.Run("LegacyRecoveryID", func(t *testing.T) {
		f := newFixture(t)
		amt := escrow.NewAmount(2)
		err := f.eng.CreateSubscription(ctx, consumer, f.provider.addr,
			fingerprint, f.provider.signLegacy(t, fingerprint), types.Native, amt, amt)
		if err != nil {
			t.Fatalf("legacy recovery id rejected: %v", err)
		}
	})

	t.Run("AppendsReceipt", func(t *testing.T) {
		f := newFixture(t)
		f.create(t, 2)

		rcpts, err := f.eng.Receipts(ctx, fingerprint, receipt.ListOpts{Kind: receipt.KindSubscriptionCreated})
		if err != nil {
			t.Fatal(err)
		}
		if len(rcpts) != 1 {
			t.Fatalf("receipts: got %d, want 1", len(rcpts))
		}
		r := rcpts[0]
		if r.Provider != f.provider.addr || r.Consumer != consumer {
			t.Errorf("receipt parties: got %s/%s", r.Provider, r.Consumer)
		}
		if !r.Amount.Equal(escrow.NewAmount(2)) {
			t.Errorf("receipt amount: got %s, want 2", r.Amount)
		}
	})
}

func TestCreateSubscriptionToken(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) *fixture {
		f := newFixture(t)
		if err := f.eng.SetWhitelistedToken(ctx, owner, tokenAsset, true); err != nil {
			t.Fatal(err)
		}
		f.bank.Mint(tokenAsset, consumer, escrow.NewAmount(50))
		return f
	}

	t.Run("ZeroAllowanceFails", func(t *testing.T) {
		f := setup(t)
		err := f.eng.CreateSubscription(ctx, consumer, f.provider.addr,
			fingerprint, f.provider.sign(t, fingerprint), tokenAsset,
			escrow.NewAmount(1), escrow.ZeroAmount())
		if !escrow.IsTransfer(err) {
			t.Fatalf("got %v, want transfer error", err)
		}

		// No record survives the failed pull.
		if _, err := f.eng.Subscription(ctx, fingerprint); !errors.Is(err, escrow.ErrSubscriptionNotFound) {
			t.Errorf("subscription survived failed transfer: %v", err)
		}
		rcpts, err := f.eng.Receipts(ctx, fingerprint, receipt.ListOpts{})
		if err != nil {
			t.Fatal(err)
		}
		if len(rcpts) != 0 {
			t.Errorf("receipts after failed transfer: got %d, want 0", len(rcpts))
		}
	})

	t.Run("WithAllowance", func(t *testing.T) {
		f := setup(t)
		f.bank.Approve(tokenAsset, consumer, escrow.NewAmount(10))
		err := f.eng.CreateSubscription(ctx, consumer, f.provider.addr,
			fingerprint, f.provider.sign(t, fingerprint), tokenAsset,
			escrow.NewAmount(10), escrow.ZeroAmount())
		if err != nil {
			t.Fatal(err)
		}
		if got := f.bank.BalanceOf(tokenAsset, consumer); !got.Equal(escrow.NewAmount(40)) {
			t.Errorf("consumer token balance: got %s, want 40", got)
		}
		if got := f.bank.CustodyBalance(tokenAsset); !got.Equal(escrow.NewAmount(10)) {
			t.Errorf("token custody: got %s, want 10", got)
		}
	})
}

func TestWithdrawFunds(t *testing.T) {
	ctx := context.Background()

	t.Run("Scenario", func(t *testing.T) {
		f := newFixture(t)
		f.create(t, 2)

		if err := f.eng.WithdrawFunds(ctx, f.provider.addr, fingerprint, types.Native, escrow.NewAmount(2)); err != nil {
			t.Fatal(err)
		}
		if got := f.bank.BalanceOf(types.Native, f.provider.addr); !got.Equal(escrow.NewAmount(2)) {
			t.Errorf("provider balance: got %s, want 2", got)
		}

		err := f.eng.WithdrawFunds(ctx, f.provider.addr, fingerprint, types.Native, escrow.NewAmount(1))
		if !errors.Is(err, escrow.ErrAmountTooBig) {
			t.Errorf("got %v, want ErrAmountTooBig", err)
		}
	})

	t.Run("NotRegistered", func(t *testing.T) {
		f := newFixture(t)
		f.create(t, 2)
		err := f.eng.WithdrawFunds(ctx, stranger, fingerprint, types.Native, escrow.NewAmount(1))
		if !errors.Is(err, escrow.ErrProviderNotRegistered) {
			t.Errorf("got %v, want ErrProviderNotRegistered", err)
		}
	})

	t.Run("ZeroAmount", func(t *testing.T) {
		f := newFixture(t)
		f.create(t, 2)
		err := f.eng.WithdrawFunds(ctx, f.provider.addr, fingerprint, types.Native, escrow.ZeroAmount())
		if !errors.Is(err, escrow.ErrNothingToWithdraw) {
			t.Errorf("got %v, want ErrNothingToWithdraw", err)
		}
	})

	t.Run("UnknownFingerprint", func(t *testing.T) {
		f := newFixture(t)
		err := f.eng.WithdrawFunds(ctx, f.provider.addr, fingerprint, types.Native, escrow.NewAmount(1))
		if !errors.Is(err, escrow.ErrSubscriptionNotFound) {
			t.Errorf("got %v, want ErrSubscriptionNotFound", err)
		}
	})

	t.Run("ForeignSubscription", func(t *testing.T) {
		f := newFixture(t)
		f.create(t, 2)

		// A different registered provider cannot see this fingerprint.
		other := newSigner(t)
		if err := f.eng.SetWhitelistedProvider(ctx, owner, other.addr, true); err != nil {
			t.Fatal(err)
		}
		if err := f.eng.RegisterProvider(ctx, other.addr, "otherUrl"); err != nil {
			t.Fatal(err)
		}
		err := f.eng.WithdrawFunds(ctx, other.addr, fingerprint, types.Native, escrow.NewAmount(1))
		if !errors.Is(err, escrow.ErrSubscriptionNotFound) {
			t.Errorf("got %v, want ErrSubscriptionNotFound", err)
		}
	})

	t.Run("AssetBinding", func(t *testing.T) {
		f := newFixture(t)
		f.create(t, 2)
		if err := f.eng.SetWhitelistedToken(ctx, owner, tokenAsset, true); err != nil {
			t.Fatal(err)
		}
		err := f.eng.WithdrawFunds(ctx, f.provider.addr, fingerprint, tokenAsset, escrow.NewAmount(1))
		if !errors.Is(err, escrow.ErrInvalidToken) {
			t.Errorf("got %v, want ErrInvalidToken", err)
		}
	})
}

func TestRefundFunds(t *testing.T) {
	ctx := context.Background()

	t.Run("RefundsConsumer", func(t *testing.T) {
		f := newFixture(t)
		f.create(t, 10)

		if err := f.eng.RefundFunds(ctx, f.provider.addr, fingerprint, types.Native, escrow.NewAmount(4)); err != nil {
			t.Fatal(err)
		}
		// 100 minted - 10 escrowed + 4 refunded.
		if got := f.bank.BalanceOf(types.Native, consumer); !got.Equal(escrow.NewAmount(94)) {
			t.Errorf("consumer balance: got %s, want 94", got)
		}
		if got := f.bank.BalanceOf(types.Native, f.provider.addr); !got.IsZero() {
			t.Errorf("provider balance: got %s, want 0", got)
		}

		sub, err := f.eng.Subscription(ctx, fingerprint)
		if err != nil {
			t.Fatal(err)
		}
		if !sub.Balance.Equal(escrow.NewAmount(6)) {
			t.Errorf("balance: got %s, want 6", sub.Balance)
		}
	})

	t.Run("ZeroAmount", func(t *testing.T) {
		f := newFixture(t)
		f.create(t, 2)
		err := f.eng.RefundFunds(ctx, f.provider.addr, fingerprint, types.Native, escrow.ZeroAmount())
		if !errors.Is(err, escrow.ErrNothingToRefund) {
			t.Errorf("got %v, want ErrNothingToRefund", err)
		}
	})
}

func TestBalanceConservation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.create(t, 10)

	if err := f.eng.WithdrawFunds(ctx, f.provider.addr, fingerprint, types.Native, escrow.NewAmount(3)); err != nil {
		t.Fatal(err)
	}
	if err := f.eng.RefundFunds(ctx, f.provider.addr, fingerprint, types.Native, escrow.NewAmount(3)); err != nil {
		t.Fatal(err)
	}

	sub, err := f.eng.Subscription(ctx, fingerprint)
	if err != nil {
		t.Fatal(err)
	}
	if !sub.Balance.Equal(escrow.NewAmount(4)) {
		t.Errorf("balance: got %s, want 4", sub.Balance)
	}

	// Withdrawing more than the remainder fails; the balance never goes
	// negative.
	err = f.eng.WithdrawFunds(ctx, f.provider.addr, fingerprint, types.Native, escrow.NewAmount(5))
	if !errors.Is(err, escrow.ErrAmountTooBig) {
		t.Fatalf("got %v, want ErrAmountTooBig", err)
	}
	sub, err = f.eng.Subscription(ctx, fingerprint)
	if err != nil {
		t.Fatal(err)
	}
	if sub.Balance.IsNegative() {
		t.Error("balance went negative")
	}

	// Moved out (3+3) plus remaining (4) equals the total ever deposited.
	total := f.bank.BalanceOf(types.Native, f.provider.addr).
		Add(escrow.NewAmount(3)). // refunded to consumer
		Add(sub.Balance)
	if !total.Equal(escrow.NewAmount(10)) {
		t.Errorf("conservation: got %s, want 10", total)
	}
}

func TestPauseGate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, escrow.WithRevision(escrow.RevisionV2))
	f.create(t, 2)

	if err := f.eng.Pause(ctx, owner); err != nil {
		t.Fatal(err)
	}
	if !f.eng.Paused() {
		t.Fatal("engine not paused")
	}

	amt := escrow.NewAmount(1)
	other := crypto.Keccak256Hash([]byte("other terms"))
	tests := []struct {
		name string
		op   func() error
	}{
		{"RegisterProvider", func() error {
			return f.eng.RegisterProvider(ctx, f.provider.addr, "testUrl")
		}},
		{"CreateSubscription", func() error {
			return f.eng.CreateSubscription(ctx, consumer, f.provider.addr,
				other, f.provider.sign(t, other), types.Native, amt, amt)
		}},
		{"DepositFunds", func() error {
			return f.eng.DepositFunds(ctx, consumer, f.provider.addr, fingerprint, types.Native, amt, amt)
		}},
		{"WithdrawFunds", func() error {
			return f.eng.WithdrawFunds(ctx, f.provider.addr, fingerprint, types.Native, amt)
		}},
		{"RefundFunds", func() error {
			return f.eng.RefundFunds(ctx, f.provider.addr, fingerprint, types.Native, amt)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.op(); !errors.Is(err, escrow.ErrPaused) {
				t.Errorf("got %v, want ErrPaused", err)
			}
		})
	}

	// Owner controls stay usable while paused.
	if err := f.eng.SetWhitelistedToken(ctx, owner, tokenAsset, true); err != nil {
		t.Errorf("whitelist while paused: %v", err)
	}

	// Unpausing restores prior behavior exactly.
	if err := f.eng.Unpause(ctx, owner); err != nil {
		t.Fatal(err)
	}
	if err := f.eng.WithdrawFunds(ctx, f.provider.addr, fingerprint, types.Native, amt); err != nil {
		t.Errorf("withdraw after unpause: %v", err)
	}
}

func TestDepositFunds(t *testing.T) {
	ctx := context.Background()

	t.Run("DisabledUnderV1", func(t *testing.T) {
		f := newFixture(t)
		f.create(t, 2)
		amt := escrow.NewAmount(1)
		err := f.eng.DepositFunds(ctx, consumer, f.provider.addr, fingerprint, types.Native, amt, amt)
		if !errors.Is(err, escrow.ErrDepositsDisabled) {
			t.Errorf("got %v, want ErrDepositsDisabled", err)
		}
	})

	t.Run("EnabledAfterUpgrade", func(t *testing.T) {
		f := newFixture(t)
		f.create(t, 2)

		if err := f.eng.Upgrade(ctx, owner, escrow.RevisionV2); err != nil {
			t.Fatal(err)
		}
		if got := f.eng.Version(); got != "V2" {
			t.Fatalf("version: got %q, want V2", got)
		}

		amt := escrow.NewAmount(3)
		if err := f.eng.DepositFunds(ctx, consumer, f.provider.addr, fingerprint, types.Native, amt, amt); err != nil {
			t.Fatal(err)
		}
		sub, err := f.eng.Subscription(ctx, fingerprint)
		if err != nil {
			t.Fatal(err)
		}
		if !sub.Balance.Equal(escrow.NewAmount(5)) {
			t.Errorf("balance: got %s, want 5", sub.Balance)
		}
	})

	t.Run("AssetBinding", func(t *testing.T) {
		f := newFixture(t, escrow.WithRevision(escrow.RevisionV2))
		f.create(t, 2)
		if err := f.eng.SetWhitelistedToken(ctx, owner, tokenAsset, true); err != nil {
			t.Fatal(err)
		}
		err := f.eng.DepositFunds(ctx, consumer, f.provider.addr, fingerprint, tokenAsset,
			escrow.NewAmount(1), escrow.ZeroAmount())
		if !errors.Is(err, escrow.ErrInvalidToken) {
			t.Errorf("got %v, want ErrInvalidToken", err)
		}
	})

	t.Run("NothingToDeposit", func(t *testing.T) {
		f := newFixture(t, escrow.WithRevision(escrow.RevisionV2))
		f.create(t, 2)
		zero := escrow.ZeroAmount()
		err := f.eng.DepositFunds(ctx, consumer, f.provider.addr, fingerprint, types.Native, zero, zero)
		if !errors.Is(err, escrow.ErrNothingToDeposit) {
			t.Errorf("got %v, want ErrNothingToDeposit", err)
		}
	})

	t.Run("FailedPullRollsBack", func(t *testing.T) {
		f := newFixture(t, escrow.WithRevision(escrow.RevisionV2))
		f.create(t, 2)

		// Attached value mismatch makes the native pull fail.
		err := f.eng.DepositFunds(ctx, consumer, f.provider.addr, fingerprint, types.Native,
			escrow.NewAmount(5), escrow.NewAmount(4))
		if !escrow.IsTransfer(err) {
			t.Fatalf("got %v, want transfer error", err)
		}
		sub, err := f.eng.Subscription(ctx, fingerprint)
		if err != nil {
			t.Fatal(err)
		}
		if !sub.Balance.Equal(escrow.NewAmount(2)) {
			t.Errorf("balance after rollback: got %s, want 2", sub.Balance)
		}
	})
}

func TestUpgrade(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if got := f.eng.Version(); got != "V1" {
		t.Fatalf("initial version: got %q, want V1", got)
	}

	if err := f.eng.Upgrade(ctx, owner, nil); !errors.Is(err, escrow.ErrUnknownRevision) {
		t.Errorf("nil revision: got %v, want ErrUnknownRevision", err)
	}

	if err := f.eng.Upgrade(ctx, owner, escrow.RevisionV2); err != nil {
		t.Fatal(err)
	}
	if got := f.eng.Version(); got != "V2" {
		t.Errorf("version: got %q, want V2", got)
	}

	// Existing records remain valid across the swap.
	p, err := f.eng.Provider(ctx, f.provider.addr)
	if err != nil {
		t.Fatal(err)
	}
	if !p.Registered {
		t.Error("provider record lost across upgrade")
	}
}

// TestReentrantWithdraw drives a second withdrawal from inside the
// transfer callback, the way token code can re-enter on chain. The first
// withdrawal's balance decrement must already be visible, so the nested
// call cannot double-spend.
func TestReentrantWithdraw(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.create(t, 2)

	var nestedErr error
	var nested bool
	f.bank.SetObserver(func(ctx context.Context, op bank.Op) {
		if op.In || nested {
			return
		}
		nested = true
		nestedErr = f.eng.WithdrawFunds(ctx, f.provider.addr, fingerprint, types.Native, escrow.NewAmount(2))
	})

	if err := f.eng.WithdrawFunds(ctx, f.provider.addr, fingerprint, types.Native, escrow.NewAmount(2)); err != nil {
		t.Fatal(err)
	}
	if !nested {
		t.Fatal("reentrant call never ran")
	}
	if !errors.Is(nestedErr, escrow.ErrAmountTooBig) {
		t.Errorf("nested withdraw: got %v, want ErrAmountTooBig", nestedErr)
	}
	if got := f.bank.BalanceOf(types.Native, f.provider.addr); !got.Equal(escrow.NewAmount(2)) {
		t.Errorf("provider balance: got %s, want 2", got)
	}
	if got := f.bank.CustodyBalance(types.Native); !got.IsZero() {
		t.Errorf("custody: got %s, want 0", got)
	}
}

func TestReceiptLog(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, escrow.WithRevision(escrow.RevisionV2))
	f.create(t, 5)

	amt := escrow.NewAmount(1)
	if err := f.eng.DepositFunds(ctx, consumer, f.provider.addr, fingerprint, types.Native, amt, amt); err != nil {
		t.Fatal(err)
	}
	if err := f.eng.WithdrawFunds(ctx, f.provider.addr, fingerprint, types.Native, escrow.NewAmount(2)); err != nil {
		t.Fatal(err)
	}
	if err := f.eng.RefundFunds(ctx, f.provider.addr, fingerprint, types.Native, escrow.NewAmount(3)); err != nil {
		t.Fatal(err)
	}

	rcpts, err := f.eng.Receipts(ctx, fingerprint, receipt.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	wantKinds := []receipt.Kind{
		receipt.KindSubscriptionCreated,
		receipt.KindFundsDeposit,
		receipt.KindFundsWithdrawn,
		receipt.KindFundsRefund,
	}
	if len(rcpts) != len(wantKinds) {
		t.Fatalf("receipts: got %d, want %d", len(rcpts), len(wantKinds))
	}
	for i, want := range wantKinds {
		if rcpts[i].Kind != want {
			t.Errorf("receipt %d: got %s, want %s", i, rcpts[i].Kind, want)
		}
	}
}
