package delegation

import (
	"math/big"
	"testing"
)

func TestToBaseUnitsExact(t *testing.T) {
	t.Parallel()

	ten18 := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	tests := []struct {
		amount   string
		decimals uint8
		want     *big.Int
	}{
		{"10", 18, new(big.Int).Mul(big.NewInt(10), ten18)},
		{"1", 18, ten18},
		{"0", 18, big.NewInt(0)},
		{"1.5", 18, new(big.Int).Div(new(big.Int).Mul(big.NewInt(15), ten18), big.NewInt(10))},
		{"0.000000000000000001", 18, big.NewInt(1)},
		{"42", 0, big.NewInt(42)},
		{"007", 2, big.NewInt(700)},
	}

	for _, tt := range tests {
		got, err := ToBaseUnits(tt.amount, tt.decimals)
		if err != nil {
			t.Errorf("ToBaseUnits(%q, %d) error: %v", tt.amount, tt.decimals, err)
			continue
		}
		if got.Cmp(tt.want) != 0 {
			t.Errorf("ToBaseUnits(%q, %d) = %s, want %s", tt.amount, tt.decimals, got, tt.want)
		}
	}
}

func TestToBaseUnitsLargeIntegerHasNoRounding(t *testing.T) {
	t.Parallel()

	got, err := ToBaseUnits("123456789012345678901234567890", 18)
	if err != nil {
		t.Fatalf("ToBaseUnits failed: %v", err)
	}
	if got.String() != "123456789012345678901234567890000000000000000000" {
		t.Fatalf("unexpected value %s", got)
	}
}

func TestToBaseUnitsRejects(t *testing.T) {
	t.Parallel()

	for _, amount := range []string{"", ".", "1.", "-1", "+1", "1e18", "abc", "1.2.3", "0.0000000000000000001"} {
		if got, err := ToBaseUnits(amount, 18); err == nil {
			t.Errorf("ToBaseUnits(%q) = %s, want error", amount, got)
		}
	}
}
