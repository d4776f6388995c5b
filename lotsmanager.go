package ledgercore

import (
	"sort"

	"github.com/colinmarsh/ledgercore/date"
)

// availEvent is one entry in the availability multimap,
// keyed conceptually by (date, priority) and folded in that order.
type availEvent struct {
	date     date.Date
	priority int
	seq      int64
	kind     string // "lot", "split", "usage", "transferswap"
	lot      *Lot
	split    *LotSplit
	usage    *LotUsage
	transfer *LotTransferSwap
	txID     TransactionID
}

// InvestmentLotsManager is the global index of lots created by acquisition
// transactions and of lot consumption by sales/transfers/splits.
// Availability folds events in (date, priority) order: a LotSplit applies
// before the Lots and consumptions recorded on the same day.
type InvestmentLotsManager struct {
	lots       map[LotID]*Lot
	nextLotID  LotID
	nextSeq    int64
	events     []availEvent // kept sorted by (date, priority, seq)
	indexLot   map[TransactionID]LotID
}

func NewInvestmentLotsManager() *InvestmentLotsManager {
	return &InvestmentLotsManager{
		lots:     make(map[LotID]*Lot),
		indexLot: make(map[TransactionID]LotID),
	}
}

func lessEvent(a, b availEvent) bool {
	if !a.date.Equal(b.date) {
		return a.date.Before(b.date)
	}
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	return a.seq < b.seq
}

func (m *InvestmentLotsManager) insertEvent(e availEvent) {
	m.nextSeq++
	e.seq = m.nextSeq
	i := sort.Search(len(m.events), func(i int) bool { return lessEvent(e, m.events[i]) })
	m.events = append(m.events, availEvent{})
	copy(m.events[i+1:], m.events[i:])
	m.events[i] = e
}

func (m *InvestmentLotsManager) removeEventsForTx(txID TransactionID) {
	out := m.events[:0]
	for _, e := range m.events {
		if e.txID != txID {
			out = append(out, e)
		}
	}
	m.events = out
}

// UpdateTransactionSplit is called when tx creates a lot (Buy/ShortSell/
// Reinvest*) or splits lots (StockSplit); if tx previously carried a
// usage/transfer (wrong-kind index), that is removed first.
func (m *InvestmentLotsManager) UpdateTransactionSplit(tx *Transaction) error {
	if tx.Investment == nil {
		return newValidationError("lots", "transaction %d is not an investment transaction", tx.ID)
	}
	oldLotID, hadLot := m.indexLot[tx.ID]
	m.removeEventsForTx(tx.ID)

	action := tx.Investment.Action
	switch {
	case isAcquisition(action):
		i, ok := tx.Investment.SplitTypes[SplitInvestment]
		if !ok {
			return newValidationError("lots", "acquisition transaction %d has no Investment split", tx.ID)
		}
		s := tx.Splits[i]
		lotID := oldLotID
		if !hadLot {
			m.nextLotID++
			lotID = m.nextLotID
		}
		lot := &Lot{ID: lotID, TransactionID: tx.ID, AccountID: s.Account, Action: action, Amount: s.Amount.Abs(), Date: tx.Date}
		m.lots[lotID] = lot
		m.indexLot[tx.ID] = lotID
		m.insertEvent(availEvent{date: tx.Date, priority: availabilityPriority("lot"), kind: "lot", lot: lot, txID: tx.ID})
	case action == ActionStockSplit:
		if hadLot {
			delete(m.lots, oldLotID)
			delete(m.indexLot, tx.ID)
		}
		i, ok := tx.Investment.SplitTypes[SplitInvestment]
		if !ok {
			return newValidationError("lots", "StockSplit transaction %d has no anchor Investment split", tx.ID)
		}
		s := tx.Splits[i]
		ls := &LotSplit{TransactionID: tx.ID, AccountID: s.Account, SplitFraction: tx.Investment.SplitFraction, Date: tx.Date}
		m.insertEvent(availEvent{date: tx.Date, priority: availabilityPriority("split"), kind: "split", split: ls, txID: tx.ID})
	default:
		return newValidationError("lots", "action %v does not create or split lots", action)
	}
	return nil
}

// lotsAvailableExcluding folds the availability multimap up to date d,
// excluding any events owned by excludeTx (so re-editing a transaction's
// own usage does not self-block).
func (m *InvestmentLotsManager) lotsAvailableExcluding(class LotActionClass, accountID AccountID, d date.Date, excludeTx TransactionID) map[LotID]Amount {
	buckets := make(map[LotID]Amount)
	for _, e := range m.events {
		if e.txID == excludeTx {
			continue
		}
		if e.date.After(d) {
			continue
		}
		switch e.kind {
		case "lot":
			if e.lot.AccountID == accountID {
				buckets[e.lot.ID] = addOrSet(buckets, e.lot.ID, e.lot.Amount)
			}
		case "split":
			if e.split.AccountID == accountID {
				for id, amt := range buckets {
					buckets[id] = amt.MulFrac(int64(e.split.SplitFraction.New), int64(e.split.SplitFraction.Old))
				}
			}
		case "usage":
			if e.usage.AccountID == accountID {
				for id, amt := range e.usage.Lots {
					buckets[id] = addOrSet(buckets, id, amt.Neg())
				}
			}
		case "transferswap":
			if e.transfer.AccountTo == accountID {
				for id, amt := range e.transfer.Lots {
					buckets[id] = addOrSet(buckets, id, amt)
				}
			}
			if e.transfer.AccountFrom == accountID {
				for id, amt := range e.transfer.Lots {
					buckets[id] = addOrSet(buckets, id, amt.Neg())
				}
			}
		}
	}
	out := make(map[LotID]Amount)
	for id, amt := range buckets {
		lot, ok := m.lots[id]
		if !ok || lotActionClass(lot.Action) != class {
			continue
		}
		if amt.Sign() > 0 {
			out[id] = amt
		}
	}
	return out
}

func addOrSet(buckets map[LotID]Amount, id LotID, delta Amount) Amount {
	if existing, ok := buckets[id]; ok {
		return existing.Add(delta)
	}
	return delta
}

// LotsAvailable is lotsAvailableExcluding with no transaction excluded.
func (m *InvestmentLotsManager) LotsAvailable(class LotActionClass, accountID AccountID, d date.Date) map[LotID]Amount {
	return m.lotsAvailableExcluding(class, accountID, d, NoID)
}

// UpdateUsages validates and records the lots consumed by a Sell/
// ShortCover/Transfer/Swap/Spinoff transaction.
func (m *InvestmentLotsManager) UpdateUsages(tx *Transaction, lots map[LotID]Amount) error {
	if tx.Investment == nil {
		return newValidationError("lots", "transaction %d is not an investment transaction", tx.ID)
	}
	action := tx.Investment.Action
	if !isConsumption(action) {
		return newValidationError("lots", "action %v does not consume lots", action)
	}

	want := shareCount(tx.Splits, tx.Investment.SplitTypes)
	sum := ZeroAmount(want.Precision())
	for _, amt := range lots {
		sum = sum.Add(amt)
	}
	if !sum.Equal(want) {
		return newValidationError("lots", "lot usage sums to %s, want %s", sum, want)
	}

	var accountID AccountID
	var class LotActionClass
	switch action {
	case ActionSell, ActionShortCover:
		i := tx.Investment.SplitTypes[SplitInvestment]
		accountID = tx.Splits[i].Account
		class = lotActionClass(action)
	case ActionTransfer, ActionSwap, ActionSpinoff:
		var i int
		if action == ActionSpinoff {
			i = tx.Investment.SplitTypes[SplitInvestment]
		} else {
			i = tx.Investment.SplitTypes[InvestmentFrom]
		}
		accountID = tx.Splits[i].Account
		class = LotClassLong
	}

	available := m.lotsAvailableExcluding(class, accountID, tx.Date, tx.ID)
	for id, amt := range lots {
		if amt.Sign() <= 0 {
			return newValidationError("lots", "lot %d usage must be positive", id)
		}
		have, ok := available[id]
		if !ok {
			return &AvailabilityError{LotID: id, Requested: amt, Available: ZeroAmount(amt.Precision())}
		}
		if amt.GreaterThan(have) {
			return &AvailabilityError{LotID: id, Requested: amt, Available: have}
		}
	}

	m.removeEventsForTx(tx.ID)
	// A transition from an acquisition action leaves a wrong-kind index
	// entry behind; purge it before recording the usage.
	if lotID, ok := m.indexLot[tx.ID]; ok {
		delete(m.lots, lotID)
		delete(m.indexLot, tx.ID)
	}
	switch action {
	case ActionSell, ActionShortCover:
		u := &LotUsage{TransactionID: tx.ID, AccountID: accountID, Lots: lots, Date: tx.Date}
		m.insertEvent(availEvent{date: tx.Date, priority: availabilityPriority("usage"), kind: "usage", usage: u, txID: tx.ID})
	case ActionTransfer, ActionSwap, ActionSpinoff:
		toIdx := tx.Investment.SplitTypes[InvestmentTo]
		ts := &LotTransferSwap{TransactionID: tx.ID, AccountFrom: accountID, AccountTo: tx.Splits[toIdx].Account, Lots: lots, Date: tx.Date}
		m.insertEvent(availEvent{date: tx.Date, priority: availabilityPriority("transferswap"), kind: "transferswap", transfer: ts, txID: tx.ID})
	}
	return nil
}

// RemoveTransaction drops any Lot/LotSplit/Usage/Transfer tx owns.
func (m *InvestmentLotsManager) RemoveTransaction(tx *Transaction) {
	m.removeEventsForTx(tx.ID)
	if lotID, ok := m.indexLot[tx.ID]; ok {
		delete(m.lots, lotID)
		delete(m.indexLot, tx.ID)
	}
}

// UpdateDate re-keys the availability entries owned by tx from their old
// date to tx.Date.
func (m *InvestmentLotsManager) UpdateDate(tx *Transaction) {
	changed := false
	for i := range m.events {
		if m.events[i].txID == tx.ID {
			m.events[i].date = tx.Date
			switch m.events[i].kind {
			case "lot":
				m.events[i].lot.Date = tx.Date
			case "split":
				m.events[i].split.Date = tx.Date
			case "usage":
				m.events[i].usage.Date = tx.Date
			case "transferswap":
				m.events[i].transfer.Date = tx.Date
			}
			changed = true
		}
	}
	if changed {
		sort.SliceStable(m.events, func(i, j int) bool { return lessEvent(m.events[i], m.events[j]) })
	}
}

// Lot returns the lot by id.
func (m *InvestmentLotsManager) Lot(id LotID) (*Lot, bool) {
	l, ok := m.lots[id]
	return l, ok
}

// LotForTransaction returns the id of the lot the given acquisition
// transaction created, if any.
func (m *InvestmentLotsManager) LotForTransaction(id TransactionID) (LotID, bool) {
	lotID, ok := m.indexLot[id]
	return lotID, ok
}
