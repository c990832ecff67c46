// Package provider defines the provider registry records.
package provider

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/escrow/types"
)

// Provider is a service provider's registry record, keyed by address.
//
// Whitelisted is owner-controlled and may be set or cleared at any time.
// Registered becomes true only through self-registration by a whitelisted
// provider and is never cleared afterwards; there is no de-registration.
type Provider struct {
	types.Entity
	Address     common.Address `json:"address"`
	Whitelisted bool           `json:"whitelisted"`
	Registered  bool           `json:"registered"`
	URL         string         `json:"url,omitempty"`
}

// CanRegister reports whether the provider may self-register.
func (p *Provider) CanRegister() bool {
	return p.Whitelisted
}

// Active reports whether the provider may be bound to new subscriptions.
func (p *Provider) Active() bool {
	return p.Whitelisted && p.Registered
}
