package types

import (
	"encoding/json"
	"math/big"
	"testing"
)

func TestAmountArithmetic(t *testing.T) {
	tests := []struct {
		name string
		a, b int64
		add  int64
		sub  int64
	}{
		{"simple", 10, 3, 13, 7},
		{"zero", 5, 0, 5, 5},
		{"both zero", 0, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := NewAmount(tt.a), NewAmount(tt.b)
			if got := a.Add(b); !got.Equal(NewAmount(tt.add)) {
				t.Errorf("Add: got %s, want %d", got, tt.add)
			}
			if got := a.Subtract(b); !got.Equal(NewAmount(tt.sub)) {
				t.Errorf("Subtract: got %s, want %d", got, tt.sub)
			}
		})
	}
}

func TestAmountImmutable(t *testing.T) {
	a := NewAmount(10)
	_ = a.Add(NewAmount(5))
	_ = a.Subtract(NewAmount(5))
	if !a.Equal(NewAmount(10)) {
		t.Errorf("operand mutated: got %s, want 10", a)
	}
}

func TestAmountZeroValue(t *testing.T) {
	var a Amount
	if !a.IsZero() {
		t.Error("zero value is not zero")
	}
	if got := a.String(); got != "0" {
		t.Errorf("String: got %q, want %q", got, "0")
	}
	if got := a.Add(NewAmount(3)); !got.Equal(NewAmount(3)) {
		t.Errorf("Add on zero value: got %s, want 3", got)
	}
}

func TestAmountCompare(t *testing.T) {
	a, b := NewAmount(3), NewAmount(7)
	if !a.LessThan(b) {
		t.Error("3 < 7 failed")
	}
	if !b.GreaterThan(a) {
		t.Error("7 > 3 failed")
	}
	if a.Equal(b) {
		t.Error("3 == 7")
	}
	if !NewAmount(-1).IsNegative() {
		t.Error("IsNegative failed")
	}
	if !NewAmount(1).IsPositive() {
		t.Error("IsPositive failed")
	}
}

func TestAmountBigValues(t *testing.T) {
	// 2^128, well past int64.
	huge := new(big.Int).Lsh(big.NewInt(1), 128)
	a := AmountFromBig(huge)
	if got := a.String(); got != huge.String() {
		t.Errorf("String: got %s, want %s", got, huge)
	}

	sum := a.Add(a)
	want := new(big.Int).Lsh(huge, 1)
	if sum.BigInt().Cmp(want) != 0 {
		t.Errorf("Add: got %s, want %s", sum, want)
	}

	// The source big.Int is copied, not aliased.
	huge.SetInt64(0)
	if a.IsZero() {
		t.Error("AmountFromBig aliased its input")
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"0", "0", false},
		{"", "0", false},
		{"12345678901234567890123456789", "12345678901234567890123456789", false},
		{"abc", "", true},
		{"1.5", "", true},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseAmount(%q): want error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q): %v", tt.in, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("ParseAmount(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestAmountJSON(t *testing.T) {
	a := NewAmount(42)
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"42"` {
		t.Errorf("Marshal: got %s, want %q", data, `"42"`)
	}

	var back Amount
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !back.Equal(a) {
		t.Errorf("round trip: got %s, want %s", back, a)
	}

	// Bare numbers are tolerated.
	if err := json.Unmarshal([]byte(`7`), &back); err != nil {
		t.Fatal(err)
	}
	if !back.Equal(NewAmount(7)) {
		t.Errorf("bare number: got %s, want 7", back)
	}
}

func TestAmountSQL(t *testing.T) {
	a := NewAmount(99)
	v, err := a.Value()
	if err != nil {
		t.Fatal(err)
	}
	if v != "99" {
		t.Errorf("Value: got %v, want %q", v, "99")
	}

	tests := []struct {
		name string
		src  any
		want string
	}{
		{"string", "123", "123"},
		{"bytes", []byte("456"), "456"},
		{"int64", int64(789), "789"},
		{"nil", nil, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Amount
			if err := got.Scan(tt.src); err != nil {
				t.Fatal(err)
			}
			if got.String() != tt.want {
				t.Errorf("Scan(%v): got %s, want %s", tt.src, got, tt.want)
			}
		})
	}

	var bad Amount
	if err := bad.Scan(3.14); err == nil {
		t.Error("Scan(float64): want error")
	}
}
