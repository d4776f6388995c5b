// Package treap implements an order-statistics, range-sum indexed multimap
// keyed by (date, disambiguator), generic over a weight monoid, as described
// by the accounting core's AugmentedTreapMap component. Insert/remove/move
// are expected O(log n); range-sum queries recurse over at most O(log n)
// subtrees.
package treap

import (
	"math/rand"

	"github.com/colinmarsh/ledgercore/date"
)

// Key orders entries primarily by Date and, within a date, by Seq, a
// small integer disambiguating same-date entries (in practice a
// transaction id).
type Key struct {
	Date date.Date
	Seq  int64
}

func (a Key) cmp(b Key) int {
	if !a.Date.Equal(b.Date) {
		if a.Date.Before(b.Date) {
			return -1
		}
		return 1
	}
	switch {
	case a.Seq < b.Seq:
		return -1
	case a.Seq > b.Seq:
		return 1
	default:
		return 0
	}
}

// Less reports whether a sorts before b.
func (a Key) Less(b Key) bool { return a.cmp(b) < 0 }

type node[W any] struct {
	key      Key
	weight   W
	sum      W
	priority uint64
	left     *node[W]
	right    *node[W]
}

// Map is an ordered multimap from Key to a weight of type W, aggregated
// through an associative, commutative Add and a Zero identity supplied at
// construction.
type Map[W any] struct {
	root *node[W]
	add  func(a, b W) W
	zero W
	rng  *rand.Rand
}

// New builds an empty Map using add as the weight monoid's combining
// operation and zero as its identity.
func New[W any](add func(a, b W) W, zero W) *Map[W] {
	return &Map[W]{add: add, zero: zero, rng: rand.New(rand.NewSource(1))}
}

func (m *Map[W]) sumOf(n *node[W]) W {
	if n == nil {
		return m.zero
	}
	return n.sum
}

func (m *Map[W]) recompute(n *node[W]) {
	n.sum = m.add(m.add(m.sumOf(n.left), n.weight), m.sumOf(n.right))
}

func rotateRight[W any](n *node[W]) *node[W] {
	l := n.left
	n.left = l.right
	l.right = n
	return l
}

func rotateLeft[W any](n *node[W]) *node[W] {
	r := n.right
	n.right = r.left
	r.left = n
	return r
}

func (m *Map[W]) insert(n *node[W], key Key, weight W) *node[W] {
	if n == nil {
		return &node[W]{key: key, weight: weight, sum: weight, priority: m.rng.Uint64()}
	}
	switch key.cmp(n.key) {
	case -1:
		n.left = m.insert(n.left, key, weight)
		if n.left.priority > n.priority {
			n = rotateRight(n)
			m.recompute(n.right)
		}
	case 1:
		n.right = m.insert(n.right, key, weight)
		if n.right.priority > n.priority {
			n = rotateLeft(n)
			m.recompute(n.left)
		}
	default:
		n.weight = weight
	}
	m.recompute(n)
	return n
}

// Insert adds or replaces the weight at key.
func (m *Map[W]) Insert(key Key, weight W) {
	m.root = m.insert(m.root, key, weight)
}

// SetWeight is an alias of Insert for callers updating an existing entry.
func (m *Map[W]) SetWeight(key Key, weight W) { m.Insert(key, weight) }

func mergeNodes[W any](l, r *node[W], recompute func(*node[W])) *node[W] {
	if l == nil {
		return r
	}
	if r == nil {
		return l
	}
	if l.priority > r.priority {
		l.right = mergeNodes(l.right, r, recompute)
		recompute(l)
		return l
	}
	r.left = mergeNodes(l, r.left, recompute)
	recompute(r)
	return r
}

func (m *Map[W]) remove(n *node[W], key Key) *node[W] {
	if n == nil {
		return nil
	}
	switch key.cmp(n.key) {
	case -1:
		n.left = m.remove(n.left, key)
	case 1:
		n.right = m.remove(n.right, key)
	default:
		return mergeNodes(n.left, n.right, m.recompute)
	}
	m.recompute(n)
	return n
}

// Remove deletes the entry at key, if present.
func (m *Map[W]) Remove(key Key) {
	m.root = m.remove(m.root, key)
}

// Move relocates the weight stored at oldKey to newKey.
func (m *Map[W]) Move(oldKey, newKey Key) {
	if oldKey.cmp(newKey) == 0 {
		return
	}
	w, ok := m.Get(oldKey)
	if !ok {
		return
	}
	m.Remove(oldKey)
	m.Insert(newKey, w)
}

// Get returns the weight at key, if present.
func (m *Map[W]) Get(key Key) (W, bool) {
	n := m.root
	for n != nil {
		switch key.cmp(n.key) {
		case -1:
			n = n.left
		case 1:
			n = n.right
		default:
			return n.weight, true
		}
	}
	return m.zero, false
}

// Sum returns the aggregate over every entry.
func (m *Map[W]) Sum() W { return m.sumOf(m.root) }

// SumTo returns the aggregate of every entry with Key <= k.
func (m *Map[W]) SumTo(k Key) W { return m.sumTo(m.root, k) }

func (m *Map[W]) sumTo(n *node[W], k Key) W {
	if n == nil {
		return m.zero
	}
	if n.key.cmp(k) <= 0 {
		return m.add(m.add(m.sumOf(n.left), n.weight), m.sumTo(n.right, k))
	}
	return m.sumTo(n.left, k)
}

// SumFrom returns the aggregate of every entry with Key >= k.
func (m *Map[W]) SumFrom(k Key) W { return m.sumFrom(m.root, k) }

func (m *Map[W]) sumFrom(n *node[W], k Key) W {
	if n == nil {
		return m.zero
	}
	if n.key.cmp(k) >= 0 {
		return m.add(m.add(m.sumFrom(n.left, k), n.weight), m.sumOf(n.right))
	}
	return m.sumFrom(n.right, k)
}

// SumBefore returns the aggregate of every entry with Key strictly less
// than k — the "sumBefore(iter)" operation, applied here by key since keys
// are unique.
func (m *Map[W]) SumBefore(k Key) W { return m.sumBefore(m.root, k) }

func (m *Map[W]) sumBefore(n *node[W], k Key) W {
	if n == nil {
		return m.zero
	}
	if n.key.cmp(k) < 0 {
		return m.add(m.add(m.sumOf(n.left), n.weight), m.sumBefore(n.right, k))
	}
	return m.sumBefore(n.left, k)
}

// SumBetween returns the aggregate of every entry with a <= Key <= b.
func (m *Map[W]) SumBetween(a, b Key) W { return m.sumBetween(m.root, a, b) }

func (m *Map[W]) sumBetween(n *node[W], a, b Key) W {
	if n == nil {
		return m.zero
	}
	if n.key.cmp(a) < 0 {
		return m.sumBetween(n.right, a, b)
	}
	if n.key.cmp(b) > 0 {
		return m.sumBetween(n.left, a, b)
	}
	return m.add(m.add(m.sumFrom(n.left, a), n.weight), m.sumTo(n.right, b))
}

// Keys returns every key in ascending order.
func (m *Map[W]) Keys() []Key {
	out := make([]Key, 0)
	var walk func(*node[W])
	walk = func(n *node[W]) {
		if n == nil {
			return
		}
		walk(n.left)
		out = append(out, n.key)
		walk(n.right)
	}
	walk(m.root)
	return out
}

// LowerBound returns the smallest key >= k present in the map.
func (m *Map[W]) LowerBound(k Key) (Key, bool) {
	n := m.root
	var best *node[W]
	for n != nil {
		if n.key.cmp(k) >= 0 {
			best = n
			n = n.left
		} else {
			n = n.right
		}
	}
	if best == nil {
		return Key{}, false
	}
	return best.key, true
}

// UpperBound returns the largest key <= k present in the map.
func (m *Map[W]) UpperBound(k Key) (Key, bool) {
	n := m.root
	var best *node[W]
	for n != nil {
		if n.key.cmp(k) <= 0 {
			best = n
			n = n.right
		} else {
			n = n.left
		}
	}
	if best == nil {
		return Key{}, false
	}
	return best.key, true
}

// Len returns the number of entries, by walking the tree.
func (m *Map[W]) Len() int {
	var count func(*node[W]) int
	count = func(n *node[W]) int {
		if n == nil {
			return 0
		}
		return 1 + count(n.left) + count(n.right)
	}
	return count(m.root)
}
