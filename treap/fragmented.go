package treap

import (
	"math"

	"github.com/colinmarsh/ledgercore/date"
)

// fragment is a date-delimited boundary carrying the multiplicative ratio
// (RatioNew/RatioOld) applied to every weight recorded strictly before
// Date, whatever date the query is for.
type fragment struct {
	Date     date.Date
	RatioNew int64
	RatioOld int64
}

// Fragmented wraps a Map and additionally partitions its key space by date
// into fragments carrying a split ratioScale multiplies a
// weight by a new/old ratio — for Ledger this is per-currency
// Balances.MulFrac; it is supplied by the caller so Fragmented stays
// generic over the weight monoid.
type Fragmented[W any] struct {
	m         *Map[W]
	fragments []fragment // sorted ascending by Date
	scale     func(w W, ratioNew, ratioOld int64) W
	add       func(a, b W) W
	zero      W
}

// NewFragmented builds an empty Fragmented treap over weight type W.
func NewFragmented[W any](add func(a, b W) W, zero W, scale func(w W, ratioNew, ratioOld int64) W) *Fragmented[W] {
	return &Fragmented[W]{m: New(add, zero), scale: scale, add: add, zero: zero}
}

// Insert, Remove, Move, SetWeight, Get, Keys, LowerBound, UpperBound, Len
// delegate straight to the underlying Map; fragments only affect queries.
func (f *Fragmented[W]) Insert(key Key, w W)          { f.m.Insert(key, w) }
func (f *Fragmented[W]) Remove(key Key)               { f.m.Remove(key) }
func (f *Fragmented[W]) Move(oldKey, newKey Key)      { f.m.Move(oldKey, newKey) }
func (f *Fragmented[W]) SetWeight(key Key, w W)       { f.m.SetWeight(key, w) }
func (f *Fragmented[W]) Get(key Key) (W, bool)        { return f.m.Get(key) }
func (f *Fragmented[W]) Keys() []Key                  { return f.m.Keys() }
func (f *Fragmented[W]) LowerBound(k Key) (Key, bool) { return f.m.LowerBound(k) }
func (f *Fragmented[W]) UpperBound(k Key) (Key, bool) { return f.m.UpperBound(k) }
func (f *Fragmented[W]) Len() int                     { return f.m.Len() }

// keyFloor/keyCeil bracket every possible Seq on a given date, letting
// date-only range queries be expressed through Map's (Date, Seq) keyed
// Sum* operations without a separate date-only index. Real entries never
// use Seq == math.MinInt64, so keyFloor(d) sorts strictly before any entry
// actually dated d.
func keyFloor(d date.Date) Key { return Key{Date: d, Seq: math.MinInt64} }
func keyCeil(d date.Date) Key  { return Key{Date: d, Seq: math.MaxInt64} }

func (f *Fragmented[W]) indexOf(d date.Date) int {
	for i, fr := range f.fragments {
		if fr.Date.Equal(d) {
			return i
		}
	}
	return -1
}

// SplitFragmentAt introduces a fragment boundary at d with the given
// new/old ratioIf a boundary already exists at d, its
// ratio is replaced (equivalent to SetFragmentRatio).
func (f *Fragmented[W]) SplitFragmentAt(d date.Date, ratioNew, ratioOld int64) {
	if i := f.indexOf(d); i >= 0 {
		f.fragments[i].RatioNew, f.fragments[i].RatioOld = ratioNew, ratioOld
		return
	}
	i := 0
	for i < len(f.fragments) && f.fragments[i].Date.Before(d) {
		i++
	}
	f.fragments = append(f.fragments, fragment{})
	copy(f.fragments[i+1:], f.fragments[i:])
	f.fragments[i] = fragment{Date: d, RatioNew: ratioNew, RatioOld: ratioOld}
}

// JoinFragmentsAt removes the boundary at d.
func (f *Fragmented[W]) JoinFragmentsAt(d date.Date) {
	if i := f.indexOf(d); i >= 0 {
		f.fragments = append(f.fragments[:i], f.fragments[i+1:]...)
	}
}

// SetFragmentRatio updates the transform on the fragment ending at d; it is
// a no-op if no such boundary exists.
func (f *Fragmented[W]) SetFragmentRatio(d date.Date, ratioNew, ratioOld int64) {
	if i := f.indexOf(d); i >= 0 {
		f.fragments[i].RatioNew, f.fragments[i].RatioOld = ratioNew, ratioOld
	}
}

// query computes the aggregate of every entry with (optionally) date >= lo
// and key <= hi, as it would appear today: an entry recorded strictly
// before a split boundary is scaled by that split's ratio and every later
// split's ratio too, even when the boundary's own date falls after hi — a
// split recorded after the query date still retroactively scales the
// earlier balance. Boundaries at or before lo never apply, since any entry
// in range already has date >= lo >= boundary date (not strictly before
// it). Once a boundary's date exceeds hi's date, its segment is capped at
// hi and no further entries can fall in range, so the query stops there.
func (f *Fragmented[W]) query(lo date.Date, hasLo bool, hi Key) W {
	total := f.zero
	prevDate := lo
	hasPrev := hasLo
	for i, fr := range f.fragments {
		if hasPrev && !fr.Date.After(prevDate) {
			continue
		}
		exceedsHi := fr.Date.After(hi.Date)

		var segment W
		switch {
		case exceedsHi && hasPrev:
			segment = f.m.SumBetween(keyFloor(prevDate), hi)
		case exceedsHi:
			segment = f.m.SumTo(hi)
		case hasPrev:
			segment = f.m.SumBetween(keyFloor(prevDate), keyFloor(fr.Date))
		default:
			segment = f.m.SumBefore(keyFloor(fr.Date))
		}
		for j := i; j < len(f.fragments); j++ {
			segment = f.scale(segment, f.fragments[j].RatioNew, f.fragments[j].RatioOld)
		}
		total = f.add(total, segment)
		if exceedsHi {
			return total
		}
		prevDate, hasPrev = fr.Date, true
	}

	var last W
	if hasPrev {
		last = f.m.SumBetween(keyFloor(prevDate), hi)
	} else {
		last = f.m.SumTo(hi)
	}
	return f.add(total, last)
}

// QueryTo returns the aggregate of every entry with date <= upTo as it
// would appear today.
func (f *Fragmented[W]) QueryTo(upTo date.Date) W { return f.query(date.Date{}, false, keyCeil(upTo)) }

// QueryBetween returns the aggregate of every entry with lo <= date <= hi,
// as it would appear today.
func (f *Fragmented[W]) QueryBetween(lo, hi date.Date) W { return f.query(lo, true, keyCeil(hi)) }

// QueryBefore returns the aggregate of every entry strictly before k in
// (date, seq) order, as it would appear today. Seqs are integers, so
// "strictly before k" is "at or before k's predecessor".
func (f *Fragmented[W]) QueryBefore(k Key) W {
	return f.query(date.Date{}, false, Key{Date: k.Date, Seq: k.Seq - 1})
}
