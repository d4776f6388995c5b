package ledgercore

import (
	"log"

	"github.com/colinmarsh/ledgercore/date"
)

// SecurityResolver lets PriceOracle tell currencies from securities and
// find a security's native currency, so it can chain security->currency
// rates through the native currency A nil resolver treats
// every code as a currency (no chaining, no inverse restriction needed).
type SecurityResolver interface {
	IsSecurity(id string) bool
	NativeCurrency(securityID string) (string, bool)
}

type pairKey struct{ From, To string }

// PriceOracle stores, per (from, to) pair, a strictly-increasing-by-date
// series of exchange/quote rates and answers nearest-not-after lookups.
type PriceOracle struct {
	series   map[pairKey]*date.History[float64]
	resolver SecurityResolver

	onRateSet           func(from, to string, d date.Date, rate float64)
	onRateRemoved       func(from, to string, d date.Date)
	onLastRateModified  func(from, to string, d date.Date)
}

// NewPriceOracle builds an empty oracle. resolver may be nil.
func NewPriceOracle(resolver SecurityResolver) *PriceOracle {
	return &PriceOracle{series: make(map[pairKey]*date.History[float64]), resolver: resolver}
}

// OnRateSet/OnRateRemoved/OnLastRateModified register observer callbacks
// for rate mutations. Passing nil clears the callback.
func (o *PriceOracle) OnRateSet(f func(from, to string, d date.Date, rate float64)) { o.onRateSet = f }
func (o *PriceOracle) OnRateRemoved(f func(from, to string, d date.Date))           { o.onRateRemoved = f }
func (o *PriceOracle) OnLastRateModified(f func(from, to string, d date.Date))      { o.onLastRateModified = f }

// Set records a rate for (from,to) at date d, replacing any existing entry
// for that exact date.
func (o *PriceOracle) Set(from, to string, d date.Date, rate float64) {
	key := pairKey{from, to}
	h, ok := o.series[key]
	if !ok {
		h = &date.History[float64]{}
		o.series[key] = h
	}
	h.Append(d, rate)
	if o.onRateSet != nil {
		o.onRateSet(from, to, d, rate)
	}
	if last, _ := h.Latest(); last.Equal(d) && o.onLastRateModified != nil {
		o.onLastRateModified(from, to, d)
	}
}

// Remove deletes the rate recorded for (from,to) at exactly date d, if any.
func (o *PriceOracle) Remove(from, to string, d date.Date) {
	key := pairKey{from, to}
	h, ok := o.series[key]
	if !ok {
		return
	}
	days := make([]date.Date, 0, h.Len())
	vals := make([]float64, 0, h.Len())
	removed := false
	for day, v := range h.Values() {
		if day.Equal(d) {
			removed = true
			continue
		}
		days = append(days, day)
		vals = append(vals, v)
	}
	if !removed {
		return
	}
	nh := &date.History[float64]{}
	for i, day := range days {
		nh.Append(day, vals[i])
	}
	o.series[key] = nh
	if o.onRateRemoved != nil {
		o.onRateRemoved(from, to, d)
	}
}

// Rate answers rate(from, to, d): reflexive 1 for from==to,
// nearest-not-after direct lookup, inverse-pair fallback for currency
// pairs, and security->currency chaining through the security's native
// currency when the direct pair is absent.
func (o *PriceOracle) Rate(from, to string, d date.Date) float64 {
	if from == to {
		return 1
	}
	if h, ok := o.series[pairKey{from, to}]; ok {
		if v, ok := h.ValueAsOf(d); ok {
			return v
		}
	}
	isSecurityFrom := o.resolver != nil && o.resolver.IsSecurity(from)
	if !isSecurityFrom {
		if h, ok := o.series[pairKey{to, from}]; ok {
			if v, ok := h.ValueAsOf(d); ok && v != 0 {
				return 1 / v
			}
		}
	}
	if isSecurityFrom && o.resolver != nil {
		if native, ok := o.resolver.NativeCurrency(from); ok && native != to {
			return o.Rate(from, native, d) * o.Rate(native, to, d)
		}
	}
	log.Printf("ledgercore: no rate for %s->%s as of %s, defaulting to 0", from, to, d)
	return 0
}
