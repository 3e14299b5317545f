package units

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in       string
		decimals uint8
		want     string
	}{
		{"1000", 18, "1000000000000000000000"},
		{"0.25", 18, "250000000000000000"},
		{"12.5", 6, "12500000"},
		{"7", 0, "7"},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in, tc.decimals)
		if err != nil {
			t.Fatalf("parse %s: %v", tc.in, err)
		}
		if Dec(got) != tc.want {
			t.Fatalf("parse %s: got %s want %s", tc.in, Dec(got), tc.want)
		}
	}
}

func TestParseAmountRejects(t *testing.T) {
	if _, err := ParseAmount("-1", 18); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
	if _, err := ParseAmount("0.001", 2); !errors.Is(err, ErrTooManyDecimals) {
		t.Fatalf("expected ErrTooManyDecimals, got %v", err)
	}
	if _, err := ParseAmount("abc", 18); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestParseBaseUnits(t *testing.T) {
	got, err := ParseBaseUnits("97750848089103280585")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if Dec(got) != "97750848089103280585" {
		t.Fatalf("round trip mismatch: %s", Dec(got))
	}
	zero, err := ParseBaseUnits("")
	if err != nil || !zero.IsZero() {
		t.Fatalf("empty should be zero: %v %v", zero, err)
	}
	tooBig := "115792089237316195423570985008687907853269984665640564039457584007913129639936"
	if _, err := ParseBaseUnits(tooBig); !errors.Is(err, ErrAmountTooLarge) {
		t.Fatalf("expected ErrAmountTooLarge, got %v", err)
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(uint256.NewInt(1_500_000), 6); got != "1.500000" {
		t.Fatalf("format mismatch: %s", got)
	}
	if got := FormatAmount(uint256.NewInt(42), 0); got != "42" {
		t.Fatalf("format mismatch: %s", got)
	}
}

func TestFormatRatio(t *testing.T) {
	if got := FormatRatio(uint256.NewInt(1), uint256.NewInt(4)); got != "0.250000000000000000" {
		t.Fatalf("ratio mismatch: %s", got)
	}
	if got := FormatRatio(uint256.NewInt(1), new(uint256.Int)); got != "" {
		t.Fatalf("zero denominator should render empty, got %s", got)
	}
}
