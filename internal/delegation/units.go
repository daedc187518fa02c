package delegation

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var errInvalidAmount = errors.New("invalid amount")

// ToBaseUnits scales a decimal amount string by 10^decimals without rounding.
// A fractional part is accepted only if it fits within decimals digits.
func ToBaseUnits(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	whole, frac, hasDot := strings.Cut(amount, ".")
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("%w: %q", errInvalidAmount, amount)
	}
	if hasDot && frac == "" {
		return nil, fmt.Errorf("%w: %q", errInvalidAmount, amount)
	}
	if !isDigits(whole) || !isDigits(frac) {
		return nil, fmt.Errorf("%w: %q", errInvalidAmount, amount)
	}
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("%w: %q has more than %d decimal places", errInvalidAmount, amount, decimals)
	}

	digits := whole + frac + strings.Repeat("0", int(decimals)-len(frac))
	value, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errInvalidAmount, amount)
	}
	return value, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
