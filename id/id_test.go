package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/escrow/id"
)

func TestNewReceiptID(t *testing.T) {
	rid := id.NewReceiptID()
	if rid.IsNil() {
		t.Fatal("new ID is nil")
	}
	if rid.Prefix() != id.PrefixReceipt {
		t.Errorf("prefix: got %q, want %q", rid.Prefix(), id.PrefixReceipt)
	}
	if !strings.HasPrefix(rid.String(), "rcpt_") {
		t.Errorf("string: got %q, want rcpt_ prefix", rid.String())
	}
}

func TestUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		s := id.NewReceiptID().String()
		if seen[s] {
			t.Fatalf("duplicate ID generated: %s", s)
		}
		seen[s] = true
	}
}

func TestParseReceiptID(t *testing.T) {
	rid := id.NewReceiptID()

	parsed, err := id.ParseReceiptID(rid.String())
	if err != nil {
		t.Fatal(err)
	}
	if parsed.String() != rid.String() {
		t.Errorf("round trip: got %s, want %s", parsed, rid)
	}

	if _, err := id.ParseReceiptID(""); err == nil {
		t.Error("empty string: want error")
	}
	if _, err := id.ParseReceiptID("not a typeid"); err == nil {
		t.Error("garbage: want error")
	}
}

func TestParseWithPrefix(t *testing.T) {
	other := id.New("othr")
	if _, err := id.ParseReceiptID(other.String()); err == nil {
		t.Error("wrong prefix accepted")
	}
}

func TestNilID(t *testing.T) {
	var nilID id.ID
	if !nilID.IsNil() {
		t.Error("zero value is not nil")
	}
	if nilID.String() != "" {
		t.Errorf("nil string: got %q, want empty", nilID.String())
	}

	v, err := nilID.Value()
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Errorf("nil Value: got %v, want nil", v)
	}
}

func TestTextRoundTrip(t *testing.T) {
	rid := id.NewReceiptID()
	text, err := rid.MarshalText()
	if err != nil {
		t.Fatal(err)
	}

	var back id.ID
	if err := back.UnmarshalText(text); err != nil {
		t.Fatal(err)
	}
	if back.String() != rid.String() {
		t.Errorf("round trip: got %s, want %s", back, rid)
	}
}

func TestScan(t *testing.T) {
	rid := id.NewReceiptID()

	tests := []struct {
		name string
		src  any
		want string
	}{
		{"string", rid.String(), rid.String()},
		{"bytes", []byte(rid.String()), rid.String()},
		{"nil", nil, ""},
		{"empty string", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got id.ID
			if err := got.Scan(tt.src); err != nil {
				t.Fatal(err)
			}
			if got.String() != tt.want {
				t.Errorf("Scan: got %q, want %q", got.String(), tt.want)
			}
		})
	}

	var bad id.ID
	if err := bad.Scan(42); err == nil {
		t.Error("Scan(int): want error")
	}
}
