package ledgercore

import "testing"

func TestAmount_ParseFormatRoundTrip(t *testing.T) {
	tests := []struct {
		in        string
		precision uint8
	}{
		{"0.00", 2},
		{"12.50", 2},
		{"-42.07", 2},
		{"1234.5678", 4},
		{"-0.000001", 6},
		{"7", 0},
	}
	for _, tt := range tests {
		a, err := ParseAmount(tt.in, tt.precision)
		if err != nil {
			t.Fatalf("ParseAmount(%q) error = %v", tt.in, err)
		}
		if got := a.String(); got != tt.in {
			t.Errorf("ParseAmount(%q).String() = %q", tt.in, got)
		}
	}
}

func TestAmount_StoreableRoundTrip(t *testing.T) {
	tests := []struct {
		base      int64
		precision uint8
		storeable string
	}{
		{1250, 2, "1250/2"},
		{-4207, 2, "-4207/2"},
		{0, 0, "0/0"},
		{123456, 6, "123456/6"},
	}
	for _, tt := range tests {
		a := NewAmount(tt.base, tt.precision)
		if got := a.Storeable(); got != tt.storeable {
			t.Errorf("NewAmount(%d, %d).Storeable() = %q, want %q", tt.base, tt.precision, got, tt.storeable)
		}
		back, err := AmountFromStoreable(tt.storeable)
		if err != nil {
			t.Fatalf("AmountFromStoreable(%q) error = %v", tt.storeable, err)
		}
		if !back.Equal(a) || back.Precision() != a.Precision() {
			t.Errorf("AmountFromStoreable(%q) = %s/%d, want %s/%d", tt.storeable, back, back.Precision(), a, a.Precision())
		}
	}
}

func TestAmount_FromFloatRoundsHalfToEven(t *testing.T) {
	tests := []struct {
		in        float64
		precision uint8
		want      string
	}{
		{2.5, 0, "2"},
		{3.5, 0, "4"},
		{-2.5, 0, "-2"},
		{0.125, 2, "0.12"},
		{0.135, 2, "0.14"},
	}
	for _, tt := range tests {
		if got := AmountFromFloat(tt.in, tt.precision).String(); got != tt.want {
			t.Errorf("AmountFromFloat(%v, %d) = %s, want %s", tt.in, tt.precision, got, tt.want)
		}
	}
}

func TestAmount_AddPromotesToGreaterPrecision(t *testing.T) {
	a := NewAmount(1, 0)    // 1
	b := NewAmount(25, 2)   // 0.25
	sum := a.Add(b)
	if got := sum.String(); got != "1.25" {
		t.Errorf("1 + 0.25 = %s, want 1.25", got)
	}
	if sum.Precision() != 2 {
		t.Errorf("sum precision = %d, want 2", sum.Precision())
	}
	diff := b.Sub(a)
	if got := diff.String(); got != "-0.75" {
		t.Errorf("0.25 - 1 = %s, want -0.75", got)
	}
}

func TestAmount_MulFrac(t *testing.T) {
	shares := NewAmount(10_000000, 6) // 10 shares
	if got := shares.MulFrac(2, 1).String(); got != "20.000000" {
		t.Errorf("10 * 2/1 = %s, want 20.000000", got)
	}
	if got := shares.MulFrac(1, 3).String(); got != "3.333333" {
		t.Errorf("10 * 1/3 = %s, want 3.333333", got)
	}
}

func TestAmount_JSONUsesStoreableForm(t *testing.T) {
	a := NewAmount(1250, 2)
	b, err := a.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	if string(b) != `"1250/2"` {
		t.Errorf("MarshalJSON() = %s, want \"1250/2\"", b)
	}
	var back Amount
	if err := back.UnmarshalJSON(b); err != nil {
		t.Fatalf("UnmarshalJSON() error = %v", err)
	}
	if !back.Equal(a) || back.Precision() != 2 {
		t.Errorf("round trip = %s/%d, want %s/2", back, back.Precision(), a)
	}
}

func TestAmount_CmpAndMulInt(t *testing.T) {
	a := NewAmount(250, 2) // 2.50
	b := NewAmount(3, 0)   // 3
	if a.Cmp(b) != -1 || b.Cmp(a) != 1 || a.Cmp(a) != 0 {
		t.Errorf("Cmp ordering wrong: %d %d %d", a.Cmp(b), b.Cmp(a), a.Cmp(a))
	}
	if got := a.MulInt(4).String(); got != "10.00" {
		t.Errorf("2.50 * 4 = %s, want 10.00", got)
	}
}
