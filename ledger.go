package ledgercore

import (
	"github.com/colinmarsh/ledgercore/date"
	"github.com/colinmarsh/ledgercore/treap"
)

// farFuture is used as the "as of today" sentinel for Balance(): no
// plausible split or transaction postdates it, so it sees every fragment.
var farFuture = date.New(9999, 12, 31)

func balancesAdd(a, b Balances) Balances { return a.Add(b) }

func balancesScale(w Balances, ratioNew, ratioOld int64) Balances {
	if len(w) == 0 {
		return nil
	}
	out := make(Balances, len(w))
	for cur, amt := range w {
		out[cur] = amt.MulFrac(ratioNew, ratioOld)
	}
	return out
}

// TransactionLookup resolves transactions by id and in (date, id) order;
// satisfied by TransactionStore (engine.go).
type TransactionLookup interface {
	Transaction(id TransactionID) (*Transaction, bool)
	All() []*Transaction
}

// Ledger is an account's running tape: a fragmented treap whose weights
// are per-currency Balances, supporting balance-at-date, balance-between
// and cost-basis queries.
type Ledger struct {
	AccountID AccountID
	tree      *treap.Fragmented[Balances]
	txs       TransactionLookup
	mainCur   string
}

// NewLedger builds an empty ledger for accountID. mainCurrency is used when
// projecting a multi-currency balance without an explicit target currency.
func NewLedger(accountID AccountID, mainCurrency string, txs TransactionLookup) *Ledger {
	return &Ledger{
		AccountID: accountID,
		tree:      treap.NewFragmented(balancesAdd, Balances(nil), balancesScale),
		txs:       txs,
		mainCur:   mainCurrency,
	}
}

func entryKey(d date.Date, id TransactionID) treap.Key { return treap.Key{Date: d, Seq: int64(id)} }

// Insert records tx's aggregated per-currency total for this account. A
// zero aggregate is not stored, per the AugmentedTreapMap identity
// invariant.
func (l *Ledger) Insert(tx *Transaction) {
	w := tx.TotalForAccount(l.AccountID)
	if len(w) == 0 {
		return
	}
	l.tree.Insert(entryKey(tx.Date, tx.ID), w)
}

// SetWeight recomputes and stores tx's aggregate, removing the entry
// entirely if it becomes zero.
func (l *Ledger) SetWeight(tx *Transaction) {
	w := tx.TotalForAccount(l.AccountID)
	if len(w) == 0 {
		l.tree.Remove(entryKey(tx.Date, tx.ID))
		return
	}
	l.tree.SetWeight(entryKey(tx.Date, tx.ID), w)
}

// Remove deletes tx's entry from this ledger.
func (l *Ledger) Remove(tx *Transaction) {
	l.tree.Remove(entryKey(tx.Date, tx.ID))
}

// Move relocates tx's entry from oldDate to tx.Date.
func (l *Ledger) Move(oldDate date.Date, tx *Transaction) {
	l.tree.Move(entryKey(oldDate, tx.ID), entryKey(tx.Date, tx.ID))
}

// SplitFragmentAt/JoinFragmentsAt/SetFragmentRatio expose the underlying
// fragment operations for LedgerManager's stock-split handling.
func (l *Ledger) SplitFragmentAt(d date.Date, ratioNew, ratioOld int64) {
	l.tree.SplitFragmentAt(d, ratioNew, ratioOld)
}
func (l *Ledger) JoinFragmentsAt(d date.Date) { l.tree.JoinFragmentsAt(d) }
func (l *Ledger) SetFragmentRatio(d date.Date, ratioNew, ratioOld int64) {
	l.tree.SetFragmentRatio(d, ratioNew, ratioOld)
}

// Balance sums over all keys.
func (l *Ledger) Balance() Balances { return l.tree.QueryTo(farFuture) }

// BalanceAt sums over keys with date <= d.
func (l *Ledger) BalanceAt(d date.Date) Balances { return l.tree.QueryTo(d) }

// BalanceBetween sums over keys with a <= date <= b.
func (l *Ledger) BalanceBetween(a, b date.Date) Balances { return l.tree.QueryBetween(a, b) }

// BalancesBefore sums over keys strictly before tx in (date, tx-order).
// Within a date, transaction ids break ties; ids are monotonic with
// insertion, so in-order here matches creation order.
func (l *Ledger) BalancesBefore(tx *Transaction) Balances {
	return l.tree.QueryBefore(entryKey(tx.Date, tx.ID))
}

// BalanceBefore projects BalancesBefore into a single currency/security via
// oracle, defaulting to the ledger's main currency.
func (l *Ledger) BalanceBefore(tx *Transaction, oracle *PriceOracle) Amount {
	return l.BalancesBefore(tx).In(l.mainCur, tx.Date, oracle)
}

// CurrenciesUsed returns the distinct currencies appearing in this
// account's splits over [a,b].
func (l *Ledger) CurrenciesUsed(a, b date.Date) []string {
	return l.BalanceBetween(a, b).Currencies()
}

// costBasisState is the running (cost, shares) pair walked by
// CostBasisBefore, plus per-lot cost/share remainders so a sale
// with an explicit lot allocation removes the cost of exactly those lots.
type costBasisState struct {
	Cost      Amount
	Shares    Amount
	lotCost   map[LotID]Amount
	lotShares map[LotID]Amount
}

// CostBasisBefore walks this account's investment transactions in
// chronological order up to (but excluding) tx, maintaining (cost, shares)
// per action. other resolves the ledger of the far
// side of a Transfer/Swap; lots resolves the Lot created by each
// acquisition, letting a sale with an explicit lot allocation deduct the
// cost of those specific lots (a sale without one falls back to the
// proportional average reduction).
func (l *Ledger) CostBasisBefore(tx *Transaction, other func(accountID AccountID) *Ledger, lots *InvestmentLotsManager, currencyPrecision uint8) Amount {
	state := costBasisState{
		Cost:      ZeroAmount(currencyPrecision),
		Shares:    ZeroAmount(6),
		lotCost:   make(map[LotID]Amount),
		lotShares: make(map[LotID]Amount),
	}
	// The walk comes from the transaction store, not the balance tree: a
	// StockSplit's aggregate is zero so it never holds a tree entry, yet
	// it must still scale the running share count.
	for _, entryTx := range l.txs.All() {
		if entryTx.Date.After(tx.Date) || (entryTx.Date.Equal(tx.Date) && entryTx.ID >= tx.ID) {
			break
		}
		if entryTx.Investment == nil || !entryTx.RelatedTo(l.AccountID) {
			continue
		}
		applyCostBasisStep(&state, entryTx, l, other, lots)
	}
	return state.Cost
}

func applyCostBasisStep(state *costBasisState, tx *Transaction, l *Ledger, otherLedger func(AccountID) *Ledger, lots *InvestmentLotsManager) {
	inv := tx.Investment
	fee := lookupFee(tx)
	switch inv.Action {
	case ActionBuy, ActionReinvestDiv, ActionReinvestDistrib, ActionShortSell:
		shares := shareCount(tx.Splits, inv.SplitTypes)
		cost := shares.Mul(inv.PricePerShare, state.Cost.Precision())
		if inv.Action == ActionShortSell {
			cost = cost.Sub(fee)
		} else {
			cost = cost.Add(fee)
		}
		state.Cost = state.Cost.Add(cost)
		state.Shares = state.Shares.Add(shares)
		if lots != nil {
			if lotID, ok := lots.LotForTransaction(tx.ID); ok {
				state.lotCost[lotID] = cost
				state.lotShares[lotID] = shares
			}
		}
	case ActionSell, ActionShortCover:
		shares := shareCount(tx.Splits, inv.SplitTypes)
		switch {
		case shares.GreaterThan(state.Shares) || shares.Equal(state.Shares):
			// Selling everything resets the basis outright.
			state.Cost = ZeroAmount(state.Cost.Precision())
			state.Shares = ZeroAmount(state.Shares.Precision())
			clear(state.lotCost)
			clear(state.lotShares)
		case len(inv.Lots) > 0:
			for lotID, amt := range inv.Lots {
				held, ok := state.lotShares[lotID]
				if !ok || held.IsZero() {
					continue
				}
				removed := state.lotCost[lotID].Mul(amt.Div(held, 8), state.Cost.Precision())
				state.Cost = state.Cost.Sub(removed)
				state.lotCost[lotID] = state.lotCost[lotID].Sub(removed)
				state.lotShares[lotID] = held.Sub(amt)
			}
			state.Shares = state.Shares.Sub(shares)
		case !state.Shares.IsZero():
			frac := shares.Div(state.Shares, 8)
			state.Cost = state.Cost.Sub(state.Cost.Mul(frac, state.Cost.Precision()))
			state.Shares = state.Shares.Sub(shares)
		}
	case ActionTransfer, ActionSwap:
		if i, ok := inv.SplitTypes[InvestmentTo]; ok && tx.Splits[i].Account == l.AccountID {
			shares := shareCount(tx.Splits, inv.SplitTypes)
			fromIdx := inv.SplitTypes[InvestmentFrom]
			fromAccount := tx.Splits[fromIdx].Account
			if src := otherLedger(fromAccount); src != nil {
				srcBasis := src.CostBasisBefore(tx, otherLedger, lots, state.Cost.Precision())
				srcBalance := src.BalanceAt(tx.Date.Add(-1))
				srcShares, _, ok := srcBalance.Single()
				if ok && !srcShares.IsZero() {
					state.Cost = state.Cost.Add(srcBasis.Mul(shares.Div(srcShares, 8), state.Cost.Precision()))
				}
			}
			state.Shares = state.Shares.Add(shares)
		} else if !state.Shares.IsZero() {
			shares := shareCount(tx.Splits, inv.SplitTypes)
			frac := shares.Div(state.Shares, 8)
			state.Cost = state.Cost.Sub(state.Cost.Mul(frac, state.Cost.Precision()))
			state.Shares = state.Shares.Sub(shares)
		}
	case ActionStockSplit:
		state.Shares = state.Shares.MulFrac(int64(inv.SplitFraction.New), int64(inv.SplitFraction.Old))
		for lotID, held := range state.lotShares {
			state.lotShares[lotID] = held.MulFrac(int64(inv.SplitFraction.New), int64(inv.SplitFraction.Old))
		}
	case ActionCostBasisAdjustment, ActionUndistributedCapitalGain:
		state.Cost = state.Cost.Add(inv.BasisAdjustment)
	}
}

func lookupFee(tx *Transaction) Amount {
	if i, ok := tx.Investment.SplitTypes[SplitFee]; ok {
		return tx.Splits[i].Amount.Abs()
	}
	return Amount{}
}
