// Package escrow provides a subscription-and-escrow ledger engine for Go
// applications.
//
// Escrow is designed as a library, not a service. A registered service
// provider collects funds from a consumer under a cryptographically
// authorized subscription and later withdraws or refunds those funds. An
// owner role controls which providers and which payment assets (native
// currency or fungible tokens) may participate, and can halt all mutating
// activity. It provides:
//
//   - Owner-gated provider and token whitelisting
//   - ECDSA signature-authenticated subscription creation
//   - A deposit/withdraw/refund state machine that conserves balances
//     under reentrant asset transfers
//   - A persisted receipt log of every successful state transition
//   - Pluggable storage (memory, PostgreSQL, SQLite, MongoDB via Grove)
//   - A plugin event bus for audit and metrics bridges
//
// # Quick Start
//
// Create an engine with your preferred store and transfer adapter:
//
//	import (
//	    "github.com/xraph/escrow"
//	    "github.com/xraph/escrow/store/memory"
//	    "github.com/xraph/escrow/transfer/bank"
//	)
//
//	eng := escrow.New(memory.New(), bank.New(), ownerAddr)
//
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
// # Core Concepts
//
// The owner whitelists providers and payment assets:
//
//	eng.SetWhitelistedProvider(ctx, owner, providerAddr, true)
//	eng.SetWhitelistedToken(ctx, owner, escrow.NativeAsset, true)
//
// A whitelisted provider self-registers under a display URL:
//
//	eng.RegisterProvider(ctx, providerAddr, "https://example.com")
//
// A consumer creates a subscription named by a 32-byte fingerprint. The
// provider's signature over the fingerprint proves it consented to be
// bound; the consumer funds the subscription in the same call:
//
//	eng.CreateSubscription(ctx, consumer, providerAddr, fingerprint,
//	    signature, escrow.NativeAsset, amount, amount)
//
// The provider later withdraws escrowed funds, or refunds them to the
// consumer:
//
//	eng.WithdrawFunds(ctx, providerAddr, fingerprint, escrow.NativeAsset, amount)
//	eng.RefundFunds(ctx, providerAddr, fingerprint, escrow.NativeAsset, amount)
//
// # Amounts
//
// All monetary calculations use integer arithmetic over arbitrary
// precision values to avoid floating-point precision issues. The Amount
// type represents quantities in the asset's smallest indivisible unit.
//
// # Reentrancy
//
// Token transfers can hand control to externally supplied code that may
// call back into the engine before the original call returns. The engine
// therefore mutates all internal balance state before invoking the
// transfer adapter, so a reentrant call always observes consistent,
// already-updated balances.
//
// # Revisions
//
// Engine behavior is versioned behind a stable identity. RevisionV1 keeps
// the deposit top-up entry point inert; RevisionV2 enables it. The owner
// swaps revisions at runtime with Upgrade; persisted state remains valid
// across swaps because the storage schema is additive-only.
//
// # Integration
//
// Escrow integrates with the Forgery ecosystem:
//
//   - Forge: extension adapter with DI registration and config binding
//   - Grove: PostgreSQL, SQLite and MongoDB store backends
//   - Chronicle: audit trail via the audit_hook bridge
//
// # TypeID
//
// Receipts use TypeID for globally unique, type-safe identifiers:
//
//	rcpt_01h2xcejqtf2nbrexx3vqjhp41  // Receipt ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of the receipt log.
package escrow
