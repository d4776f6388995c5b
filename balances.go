package ledgercore

import (
	"sort"

	"github.com/colinmarsh/ledgercore/date"
)

// Balances is a mapping currency code -> Amount with additive semantics.
// The nil/empty map is the additive identity and MUST NOT carry
// explicit zero entries; Add always normalizes zero results away.
type Balances map[string]Amount

// Add returns the per-currency sum of b and o, dropping any currency whose
// combined amount is zero.
func (b Balances) Add(o Balances) Balances {
	if len(b) == 0 && len(o) == 0 {
		return nil
	}
	out := make(Balances, len(b)+len(o))
	for cur, amt := range b {
		out[cur] = amt
	}
	for cur, amt := range o {
		if existing, ok := out[cur]; ok {
			out[cur] = existing.Add(amt)
		} else {
			out[cur] = amt
		}
	}
	for cur, amt := range out {
		if amt.IsZero() {
			delete(out, cur)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Neg negates every currency entry.
func (b Balances) Neg() Balances {
	if len(b) == 0 {
		return nil
	}
	out := make(Balances, len(b))
	for cur, amt := range b {
		out[cur] = amt.Neg()
	}
	return out
}

// IsZero reports whether every currency entry is zero (or the map is empty).
func (b Balances) IsZero() bool {
	for _, amt := range b {
		if !amt.IsZero() {
			return false
		}
	}
	return true
}

// Currencies returns the distinct currency codes present, sorted.
func (b Balances) Currencies() []string {
	out := make([]string, 0, len(b))
	for cur := range b {
		out = append(out, cur)
	}
	sort.Strings(out)
	return out
}

// Clone returns a shallow independent copy.
func (b Balances) Clone() Balances {
	if len(b) == 0 {
		return nil
	}
	out := make(Balances, len(b))
	for cur, amt := range b {
		out[cur] = amt
	}
	return out
}

// In projects the balance into a single currency/security using rate as of
// date d, via the supplied oracle. Accounts denominated in a security use
// the security id as "from".
func (b Balances) In(target string, d date.Date, oracle *PriceOracle) Amount {
	total := ZeroAmount(currencyPrecision(target))
	for cur, amt := range b {
		if cur == target {
			total = total.Add(amt)
			continue
		}
		rate := oracle.Rate(cur, target, d)
		converted := AmountFromFloat(amt.Float64()*rate, currencyPrecision(target))
		total = total.Add(converted)
	}
	return total
}

// Single returns the lone currency entry, for the common case of a
// single-currency ledger; it returns (zero, false) when b has more than one
// currency or is empty.
func (b Balances) Single() (Amount, string, bool) {
	if len(b) != 1 {
		return Amount{}, "", false
	}
	for cur, amt := range b {
		return amt, cur, true
	}
	return Amount{}, "", false
}
