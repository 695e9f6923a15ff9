package console

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"
	"unicode"

	"xnet.company/lockup/internal/types"
)

// isoMillis matches the ISO-8601 form used in ledger listings.
const isoMillis = "2006-01-02T15:04:05.000Z"

// ColorAddress renders a 0x address with letters and digits styled
// differently. Strings without the 0x prefix are returned unchanged. With
// html set the characters are wrapped in addr-letter/addr-number spans for a
// stylesheet to color.
func (p *Printer) ColorAddress(addr string, html bool) string {
	if !strings.HasPrefix(addr, "0x") {
		return addr
	}

	var sb strings.Builder
	for _, r := range addr {
		s := string(r)
		digit := unicode.IsDigit(r)
		switch {
		case html && digit:
			sb.WriteString(`<span class="addr-number">` + s + `</span>`)
		case html:
			sb.WriteString(`<span class="addr-letter">` + s + `</span>`)
		case digit:
			sb.WriteString(p.Green(s))
		default:
			sb.WriteString(p.Amber(s))
		}
	}
	return sb.String()
}

// FormatBeneficiary renders "<address> : <start> -- <end>".
func (p *Printer) FormatBeneficiary(b types.Beneficiary) string {
	return p.ColorAddress(b.Address, false) +
		" : " + b.StartTime().Format(isoMillis) +
		" -- " + b.EndTime().Format(isoMillis)
}

// FormatTuple renders a loosely decoded ledger entry. Anything that is not a
// [string, integer, integer] triple renders as a red "not bene" marker.
func (p *Printer) FormatTuple(fields []any) string {
	b, ok := tupleBeneficiary(fields)
	if !ok {
		parts := make([]string, len(fields))
		for i, f := range fields {
			parts[i] = fmt.Sprint(f)
		}
		return p.Red("<not bene: " + strings.Join(parts, ",") + ">")
	}
	return p.FormatBeneficiary(b)
}

func tupleBeneficiary(fields []any) (types.Beneficiary, bool) {
	if len(fields) != types.BeneficiaryArity {
		return types.Beneficiary{}, false
	}
	addr, ok := fields[0].(string)
	if !ok {
		return types.Beneficiary{}, false
	}
	start, ok := wholeNumber(fields[1])
	if !ok {
		return types.Beneficiary{}, false
	}
	duration, ok := wholeNumber(fields[2])
	if !ok {
		return types.Beneficiary{}, false
	}
	return types.Beneficiary{Address: addr, Start: start, Duration: duration}, true
}

func wholeNumber(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}

// ShortenAddress keeps the first six and last four characters.
func ShortenAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

// FormatTime renders a unix timestamp the way ledger listings do.
func FormatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format(isoMillis)
}

var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// EthForm renders a wei amount in ether with thousands separators and four
// decimals, truncated. With units the Ξ symbol is prefixed.
func EthForm(wei *big.Int, units bool) string {
	return formatFixed(wei, 4, units)
}

// NumberFormat renders a wei amount in ether with two decimals.
func NumberFormat(wei *big.Int) string {
	return formatFixed(wei, 2, false)
}

func formatFixed(wei *big.Int, decimals int, units bool) string {
	if wei == nil {
		wei = new(big.Int)
	}
	neg := wei.Sign() < 0
	abs := new(big.Int).Abs(wei)

	whole, frac := new(big.Int).QuoRem(abs, weiPerEther, new(big.Int))
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(18-decimals)), nil)
	frac.Quo(frac, scale)

	out := groupThousands(whole.String()) + "." + fmt.Sprintf("%0*d", decimals, frac.Int64())
	if neg {
		out = "-" + out
	}
	if units {
		out = "Ξ" + out
	}
	return out
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var sb strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		sb.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(digits[i : i+3])
	}
	return sb.String()
}
