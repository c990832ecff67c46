package escrow

import "errors"

// Sentinel errors for every failure the ledger surfaces. The message tags
// are part of the caller-visible contract and must stay stable.
var (
	// Authorization errors
	ErrNotOwner               = errors.New("escrow: caller is not the owner")
	ErrProviderNotWhitelisted = errors.New("escrow: provider is not whitelisted")
	ErrProviderNotRegistered  = errors.New("escrow: provider is not registered")

	// Validation errors
	ErrEmptyURL            = errors.New("escrow: URL can not be empty")
	ErrTokenNotWhitelisted = errors.New("escrow: not possible to interact with this token")
	ErrInvalidSignature    = errors.New("escrow: invalid signature")
	ErrNoInitialDeposit    = errors.New("escrow: you should deposit funds to be able to create subscription")
	ErrNothingToDeposit    = errors.New("escrow: nothing to deposit")
	ErrNothingToWithdraw   = errors.New("escrow: nothing to withdraw")
	ErrNothingToRefund     = errors.New("escrow: nothing to refund")
	ErrInvalidToken        = errors.New("escrow: invalid token for subscription")
	ErrDepositsDisabled    = errors.New("escrow: deposits are disabled")

	// State errors
	ErrSubscriptionExists   = errors.New("escrow: subscription already exist")
	ErrSubscriptionNotFound = errors.New("escrow: subscription does not exist")
	ErrProviderNotFound     = errors.New("escrow: provider not found")
	ErrUnknownRevision      = errors.New("escrow: unknown revision")

	// Funds errors
	ErrAmountTooBig = errors.New("escrow: amount is too big")

	// Pause errors
	ErrPaused = errors.New("escrow: paused")

	// Transfer errors
	ErrTransferFailed = errors.New("escrow: transfer failed")

	// Store errors
	ErrStoreClosed = errors.New("escrow: store is closed")
)

// IsAuthorization returns true if the error is an authorization failure:
// the caller lacks owner, provider or whitelist standing.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrNotOwner) ||
		errors.Is(err, ErrProviderNotWhitelisted) ||
		errors.Is(err, ErrProviderNotRegistered)
}

// IsValidation returns true if the error is a validation failure: empty
// input, zero amount, asset mismatch or signature mismatch.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyURL) ||
		errors.Is(err, ErrTokenNotWhitelisted) ||
		errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrNoInitialDeposit) ||
		errors.Is(err, ErrNothingToDeposit) ||
		errors.Is(err, ErrNothingToWithdraw) ||
		errors.Is(err, ErrNothingToRefund) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrDepositsDisabled)
}

// IsState returns true if the error is a fingerprint lifecycle failure.
func IsState(err error) bool {
	return errors.Is(err, ErrSubscriptionExists) ||
		errors.Is(err, ErrSubscriptionNotFound) ||
		errors.Is(err, ErrProviderNotFound) ||
		errors.Is(err, ErrUnknownRevision)
}

// IsInsufficientFunds returns true if a withdrawal or refund exceeded the
// escrowed balance.
func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrAmountTooBig)
}

// IsPaused returns true if the operation was attempted while halted.
func IsPaused(err error) bool {
	return errors.Is(err, ErrPaused)
}

// IsTransfer returns true if the underlying asset movement failed. The
// enclosing mutation was rolled back; retries are a caller concern.
func IsTransfer(err error) bool {
	return errors.Is(err, ErrTransferFailed)
}
