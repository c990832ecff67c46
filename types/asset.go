package types

import (
	"database/sql/driver"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Asset identifies a payment asset: either the distinguished native asset
// or a fungible token contract address. The zero value is the native asset
// marker, mirroring the zero-address convention of the settlement layer.
type Asset common.Address

// Native is the distinguished native-asset identifier.
var Native Asset

// TokenAsset creates an Asset from a token contract address.
func TokenAsset(addr common.Address) Asset { return Asset(addr) }

// ParseAsset parses a 0x-prefixed hex address into an Asset. An empty
// string parses as the native asset.
func ParseAsset(s string) (Asset, error) {
	if s == "" {
		return Native, nil
	}
	if !common.IsHexAddress(s) {
		return Native, fmt.Errorf("types: parse asset %q: not a hex address", s)
	}
	return Asset(common.HexToAddress(s)), nil
}

// IsNative returns true for the native-asset marker.
func (a Asset) IsNative() bool { return a == Native }

// Address returns the token contract address. Meaningless for the native
// asset, which has no contract.
func (a Asset) Address() common.Address { return common.Address(a) }

// Hex returns the checksummed hex representation, zero-address for native.
func (a Asset) Hex() string { return common.Address(a).Hex() }

// String returns the hex representation.
func (a Asset) String() string { return a.Hex() }

// MarshalText implements encoding.TextMarshaler.
func (a Asset) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Asset) UnmarshalText(data []byte) error {
	parsed, err := ParseAsset(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer, storing the asset as hex TEXT.
func (a Asset) Value() (driver.Value, error) {
	return a.Hex(), nil
}

// Scan implements sql.Scanner.
func (a *Asset) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Native
		return nil
	case string:
		return a.UnmarshalText([]byte(v))
	case []byte:
		return a.UnmarshalText(v)
	default:
		return fmt.Errorf("types: cannot scan %T into Asset", src)
	}
}
