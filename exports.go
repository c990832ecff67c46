package escrow

import "github.com/xraph/escrow/types"

// Re-export common types for convenience so users don't have to import types package.

// Amount is re-exported from types package.
type Amount = types.Amount

// Asset is re-exported from types package.
type Asset = types.Asset

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export Amount constructors
var (
	NewAmount     = types.NewAmount
	AmountFromBig = types.AmountFromBig
	ParseAmount   = types.ParseAmount
	ZeroAmount    = types.ZeroAmount
)

// Re-export Asset constructors
var (
	TokenAsset = types.TokenAsset
	ParseAsset = types.ParseAsset
)

// NativeAsset is the distinguished native-asset identifier.
var NativeAsset = types.Native

// Re-export Entity constructor
var NewEntity = types.NewEntity
