package check

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
)

// SmallEpsilon is the default tolerance for Close.
const SmallEpsilon = 1.0e-6

// BigEpsilon is the default tolerance for BigClose: 10^15 wei, i.e. 0.001
// of an 18-decimal token, enough slop for gas fees.
var BigEpsilon = new(big.Int).Exp(big.NewInt(10), big.NewInt(15), nil)

// Close reports whether a and b differ by at most epsilon.
func Close(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}

// BigClose reports whether |a-b| <= epsilon. A nil epsilon means
// BigEpsilon; pass big.NewInt(0) to demand equality.
func BigClose(a, b, epsilon *big.Int) bool {
	if epsilon == nil {
		epsilon = BigEpsilon
	}
	diff := new(big.Int).Sub(a, b)
	return diff.Abs(diff).Cmp(epsilon) <= 0
}

// ToEth converts a decimal amount to its 18-decimal fixed-point value,
// keeping precise significant digits of the input.
func ToEth(val string, precise int) (*big.Int, error) {
	return ToFixed(val, precise, 18)
}

// ToFixed converts a decimal amount to a fixed-point integer with the given
// number of decimals, rounding the input to precise significant digits.
func ToFixed(val string, precise, decimals int) (*big.Int, error) {
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", val, err)
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, fmt.Errorf("parse amount %q: not finite", val)
	}
	if precise <= 0 {
		precise = 10
	}

	rounded, err := strconv.ParseFloat(strconv.FormatFloat(f, 'g', precise, 64), 64)
	if err != nil {
		return nil, fmt.Errorf("round amount %q: %w", val, err)
	}

	// Exact decimal expansion of the rounded value, then shift.
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(rounded, 'f', -1, 64))
	if !ok {
		return nil, fmt.Errorf("parse amount %q", val)
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	r.Mul(r, new(big.Rat).SetInt(scale))

	out := new(big.Int).Quo(r.Num(), r.Denom())
	return out, nil
}
