package chain

import (
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

const KeysPerMON = 2

var weiPerMON = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// WholeMON converts a whole MON amount to wei.
func WholeMON(mon uint64) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(mon), weiPerMON)
}

// FormatEther renders wei as a decimal MON string without trailing zeros.
func FormatEther(wei *uint256.Int) string {
	if wei == nil {
		return "0"
	}
	b := wei.ToBig()
	q, r := new(big.Int).QuoRem(b, weiPerMON, new(big.Int))
	if r.Sign() == 0 {
		return q.String()
	}
	frac := r.String()
	frac = strings.Repeat("0", 18-len(frac)) + frac
	return q.String() + "." + strings.TrimRight(frac, "0")
}

// ParseEther parses a decimal MON amount into wei. At most 18 fractional
// digits are accepted.
func ParseEther(s string) (*big.Int, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") {
		return nil, false
	}
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > 18 {
		return nil, false
	}
	if whole == "" {
		whole = "0"
	}
	w, ok := new(big.Int).SetString(whole, 10)
	if !ok {
		return nil, false
	}
	out := new(big.Int).Mul(w, weiPerMON)
	if frac != "" {
		f, ok := new(big.Int).SetString(frac+strings.Repeat("0", 18-len(frac)), 10)
		if !ok || f.Sign() < 0 {
			return nil, false
		}
		out.Add(out, f)
	}
	return out, true
}
