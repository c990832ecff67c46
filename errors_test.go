package escrow

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorClassifiers(t *testing.T) {
	tests := []struct {
		name string
		fn   func(error) bool
		errs []error
	}{
		{"IsAuthorization", IsAuthorization, []error{ErrNotOwner, ErrProviderNotWhitelisted, ErrProviderNotRegistered}},
		{"IsValidation", IsValidation, []error{ErrEmptyURL, ErrTokenNotWhitelisted, ErrInvalidSignature, ErrNoInitialDeposit, ErrNothingToDeposit, ErrNothingToWithdraw, ErrNothingToRefund, ErrInvalidToken, ErrDepositsDisabled}},
		{"IsState", IsState, []error{ErrSubscriptionExists, ErrSubscriptionNotFound, ErrProviderNotFound, ErrUnknownRevision}},
		{"IsInsufficientFunds", IsInsufficientFunds, []error{ErrAmountTooBig}},
		{"IsPaused", IsPaused, []error{ErrPaused}},
		{"IsTransfer", IsTransfer, []error{ErrTransferFailed}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, err := range tt.errs {
				if !tt.fn(err) {
					t.Errorf("%s(%v) = false", tt.name, err)
				}
				// Wrapping preserves classification.
				if !tt.fn(fmt.Errorf("operation failed: %w", err)) {
					t.Errorf("%s(wrapped %v) = false", tt.name, err)
				}
			}
			if tt.fn(nil) {
				t.Errorf("%s(nil) = true", tt.name)
			}
			if tt.fn(errors.New("unrelated")) {
				t.Errorf("%s(unrelated) = true", tt.name)
			}
		})
	}
}

// The message tags mirror the conditions callers match on. If one of
// these changes, downstream matching breaks.
func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err error
		tag string
	}{
		{ErrNotOwner, "caller is not the owner"},
		{ErrProviderNotWhitelisted, "provider is not whitelisted"},
		{ErrProviderNotRegistered, "provider is not registered"},
		{ErrEmptyURL, "URL can not be empty"},
		{ErrTokenNotWhitelisted, "not possible to interact with this token"},
		{ErrNoInitialDeposit, "you should deposit funds to be able to create subscription"},
		{ErrSubscriptionExists, "subscription already exist"},
		{ErrSubscriptionNotFound, "subscription does not exist"},
		{ErrAmountTooBig, "amount is too big"},
		{ErrNothingToWithdraw, "nothing to withdraw"},
		{ErrNothingToRefund, "nothing to refund"},
		{ErrInvalidToken, "invalid token for subscription"},
	}
	for _, tt := range tests {
		if !strings.Contains(tt.err.Error(), tt.tag) {
			t.Errorf("%v does not carry tag %q", tt.err, tt.tag)
		}
	}
}
