// Package currency converts between human-readable decimal strings and
// the ledger's integer base units (wei, 18 fractional digits).
package currency

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"

	"github.com/AayushJain09/Polyplace/internal/domain"
)

// Decimals is the ledger's native precision.
const Decimals = 18

var base = big.NewInt(params.Ether)

// ToBaseUnits parses a non-negative decimal string with up to 18
// fractional digits into base units. domain.ErrInvalidAmount for
// anything else.
func ToBaseUnits(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty string", domain.ErrInvalidAmount)
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
		if strings.IndexByte(frac, '.') >= 0 {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, s)
		}
	}
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, s)
	}
	if len(frac) > Decimals {
		return nil, fmt.Errorf("%w: %q has more than %d fractional digits", domain.ErrInvalidAmount, s, Decimals)
	}
	if !digitsOnly(whole) || !digitsOnly(frac) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, s)
	}

	amount := new(big.Int)
	if whole != "" {
		if _, ok := amount.SetString(whole, 10); !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, s)
		}
	}
	amount.Mul(amount, base)

	if frac != "" {
		fracUnits := new(big.Int)
		if _, ok := fracUnits.SetString(frac, 10); !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, s)
		}
		for i := len(frac); i < Decimals; i++ {
			fracUnits.Mul(fracUnits, big.NewInt(10))
		}
		amount.Add(amount, fracUnits)
	}

	return amount, nil
}

// ToDecimalString renders base units as a canonical decimal string: no
// scientific notation, no trailing zeros in the fraction.
func ToDecimalString(units *big.Int) string {
	if units == nil || units.Sign() == 0 {
		return "0"
	}

	whole, frac := new(big.Int).QuoRem(units, base, new(big.Int))
	if frac.Sign() == 0 {
		return whole.String()
	}

	digits := fmt.Sprintf("%0*s", Decimals, frac.String())
	digits = strings.TrimRight(digits, "0")
	return whole.String() + "." + digits
}

func digitsOnly(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
