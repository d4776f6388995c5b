package treap

import (
	"testing"
	"time"

	"github.com/colinmarsh/ledgercore/date"
)

func addInt(a, b int) int { return a + b }

func d(y int, m time.Month, day int) date.Date { return date.New(y, m, day) }

func TestMap_SumToFromBetween(t *testing.T) {
	m := New(addInt, 0)
	m.Insert(Key{Date: d(2025, time.January, 1), Seq: 1}, 10)
	m.Insert(Key{Date: d(2025, time.January, 5), Seq: 1}, 20)
	m.Insert(Key{Date: d(2025, time.January, 10), Seq: 1}, 30)
	m.Insert(Key{Date: d(2025, time.January, 10), Seq: 2}, 5)

	if got, want := m.Sum(), 65; got != want {
		t.Errorf("Sum() = %d, want %d", got, want)
	}
	if got, want := m.SumTo(Key{Date: d(2025, time.January, 5), Seq: 1}), 30; got != want {
		t.Errorf("SumTo(Jan5) = %d, want %d", got, want)
	}
	if got, want := m.SumBefore(Key{Date: d(2025, time.January, 5), Seq: 1}), 10; got != want {
		t.Errorf("SumBefore(Jan5) = %d, want %d", got, want)
	}
	if got, want := m.SumFrom(Key{Date: d(2025, time.January, 5), Seq: 1}), 55; got != want {
		t.Errorf("SumFrom(Jan5) = %d, want %d", got, want)
	}
	lo := Key{Date: d(2025, time.January, 5), Seq: 1}
	hi := Key{Date: d(2025, time.January, 10), Seq: 1}
	if got, want := m.SumBetween(lo, hi), 50; got != want {
		t.Errorf("SumBetween(Jan5,Jan10#1) = %d, want %d", got, want)
	}
}

func TestMap_RemoveAndMove(t *testing.T) {
	m := New(addInt, 0)
	k1 := Key{Date: d(2025, time.March, 1), Seq: 1}
	k2 := Key{Date: d(2025, time.March, 2), Seq: 1}
	m.Insert(k1, 7)
	m.Insert(k2, 3)

	m.Remove(k1)
	if _, ok := m.Get(k1); ok {
		t.Fatalf("Get(k1) found an entry after Remove")
	}
	if got, want := m.Sum(), 3; got != want {
		t.Errorf("Sum() after remove = %d, want %d", got, want)
	}

	k3 := Key{Date: d(2025, time.March, 10), Seq: 1}
	m.Move(k2, k3)
	if _, ok := m.Get(k2); ok {
		t.Fatalf("Get(k2) still found after Move")
	}
	if w, ok := m.Get(k3); !ok || w != 3 {
		t.Fatalf("Get(k3) = %d, %v; want 3, true", w, ok)
	}
}

func TestMap_LowerUpperBound(t *testing.T) {
	m := New(addInt, 0)
	k1 := Key{Date: d(2025, time.June, 1), Seq: 1}
	k2 := Key{Date: d(2025, time.June, 10), Seq: 1}
	m.Insert(k1, 1)
	m.Insert(k2, 1)

	mid := Key{Date: d(2025, time.June, 5), Seq: 1}
	if got, ok := m.LowerBound(mid); !ok || !got.Date.Equal(k2.Date) {
		t.Errorf("LowerBound(mid) = %v, %v; want %v, true", got, ok, k2)
	}
	if got, ok := m.UpperBound(mid); !ok || !got.Date.Equal(k1.Date) {
		t.Errorf("UpperBound(mid) = %v, %v; want %v, true", got, ok, k1)
	}
}

func TestMap_KeysOrderedAndLen(t *testing.T) {
	m := New(addInt, 0)
	dates := []int{5, 1, 10, 3}
	for _, day := range dates {
		m.Insert(Key{Date: d(2025, time.July, day), Seq: 1}, 1)
	}
	keys := m.Keys()
	if len(keys) != len(dates) {
		t.Fatalf("Keys() len = %d, want %d", len(keys), len(dates))
	}
	for i := 1; i < len(keys); i++ {
		if !keys[i-1].Less(keys[i]) {
			t.Fatalf("Keys() not ascending at %d: %v >= %v", i, keys[i-1], keys[i])
		}
	}
	if m.Len() != len(dates) {
		t.Errorf("Len() = %d, want %d", m.Len(), len(dates))
	}
}
