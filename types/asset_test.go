package types

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestAssetNative(t *testing.T) {
	var a Asset
	if !a.IsNative() {
		t.Error("zero value is not native")
	}
	if !Native.IsNative() {
		t.Error("Native marker is not native")
	}
	if TokenAsset(common.HexToAddress("0x01")).IsNative() {
		t.Error("token asset reported native")
	}
}

func TestAssetRoundTrip(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000000E1")
	a := TokenAsset(addr)

	parsed, err := ParseAsset(a.Hex())
	if err != nil {
		t.Fatal(err)
	}
	if parsed != a {
		t.Errorf("parse: got %s, want %s", parsed, a)
	}
	if parsed.Address() != addr {
		t.Errorf("address: got %s, want %s", parsed.Address(), addr)
	}

	text, err := a.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	var back Asset
	if err := back.UnmarshalText(text); err != nil {
		t.Fatal(err)
	}
	if back != a {
		t.Errorf("text round trip: got %s, want %s", back, a)
	}
}

func TestAssetSQL(t *testing.T) {
	a := TokenAsset(common.HexToAddress("0x02"))
	v, err := a.Value()
	if err != nil {
		t.Fatal(err)
	}
	var back Asset
	if err := back.Scan(v); err != nil {
		t.Fatal(err)
	}
	if back != a {
		t.Errorf("sql round trip: got %s, want %s", back, a)
	}
}
