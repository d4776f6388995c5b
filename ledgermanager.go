package ledgercore

import "github.com/colinmarsh/ledgercore/date"

// BalanceObserver receives the balance-delta notifications LedgerManager
// emits after every weight-affecting operation. UI listeners and dependent
// caches implement this.
type BalanceObserver interface {
	BalanceChanged(accountID AccountID, delta Balances)
	BalanceTodayChanged(accountID AccountID)
}

// LedgerManager routes transaction lifecycle events to the affected
// ledgers and emits balance-delta notifications. It is a
// single process-wide component, held by Engine.
type LedgerManager struct {
	accounts  AccountRegistry
	ledgers   map[AccountID]*Ledger
	observers []BalanceObserver
	today     func() date.Date
}

// NewLedgerManager builds a manager with no ledgers yet; ledgers are
// created lazily via LedgerFor on first reference.
func NewLedgerManager(accounts AccountRegistry, today func() date.Date) *LedgerManager {
	if today == nil {
		today = date.Today
	}
	return &LedgerManager{accounts: accounts, ledgers: make(map[AccountID]*Ledger), today: today}
}

// Subscribe registers an observer for balance-delta events.
func (lm *LedgerManager) Subscribe(o BalanceObserver) { lm.observers = append(lm.observers, o) }

// LedgerFor returns (creating if needed) the ledger for accountID.
func (lm *LedgerManager) LedgerFor(accountID AccountID, txs TransactionLookup) (*Ledger, error) {
	if l, ok := lm.ledgers[accountID]; ok {
		return l, nil
	}
	a, ok := lm.accounts.Account(accountID)
	if !ok {
		return nil, newLookupError("account", string(accountID))
	}
	cur := a.MainCurrency
	if a.Type == Investment {
		cur = string(a.SecurityID)
	}
	l := NewLedger(accountID, cur, txs)
	lm.ledgers[accountID] = l
	return l, nil
}

func (lm *LedgerManager) emit(accountID AccountID, delta Balances, d date.Date) {
	if delta.IsZero() {
		return
	}
	for _, o := range lm.observers {
		o.BalanceChanged(accountID, delta)
		if !d.After(lm.today()) {
			o.BalanceTodayChanged(accountID)
		}
	}
}

// AddTransaction validates every split's account, rejects a
// non-investment transaction that nets to zero for any of them, inserts the aggregated Balances into each affected ledger, and, for a
// StockSplit, installs the ledger fragment boundary before the zero-weight
// entry itself. Returns a LookupError/StateError/
// ValidationError as appropriate; on any failure no ledger is mutated.
func (lm *LedgerManager) AddTransaction(tx *Transaction, txs TransactionLookup) error {
	accountIDs, err := lm.affectedAccounts(tx)
	if err != nil {
		return err
	}
	if err := lm.validateAccounts(accountIDs); err != nil {
		return err
	}
	if !tx.IsInvestment() {
		for _, accountID := range accountIDs {
			if len(tx.TotalForAccount(accountID)) == 0 {
				return newValidationError("ledger", "transaction nets to zero for account %s", accountID)
			}
		}
	}
	for _, accountID := range accountIDs {
		l, err := lm.LedgerFor(accountID, txs)
		if err != nil {
			return err
		}
		if tx.IsInvestment() && tx.Investment.Action == ActionStockSplit && tx.RelatedTo(accountID) {
			l.SplitFragmentAt(tx.Date, int64(tx.Investment.SplitFraction.New), int64(tx.Investment.SplitFraction.Old))
		}
		l.Insert(tx)
		delta := tx.TotalForAccount(accountID)
		lm.emit(accountID, delta, tx.Date)
	}
	return nil
}

// RemoveTransaction reverses AddTransaction, preserving per-account
// balance-delta emission.
func (lm *LedgerManager) RemoveTransaction(tx *Transaction) error {
	accountIDs, err := lm.affectedAccounts(tx)
	if err != nil {
		return err
	}
	for _, accountID := range accountIDs {
		l, ok := lm.ledgers[accountID]
		if !ok {
			continue
		}
		delta := tx.TotalForAccount(accountID).Neg()
		if tx.IsInvestment() && tx.Investment.Action == ActionStockSplit && tx.RelatedTo(accountID) {
			l.JoinFragmentsAt(tx.Date)
		}
		l.Remove(tx)
		lm.emit(accountID, delta, tx.Date)
	}
	return nil
}

// OnSplitsChanged re-derives each affected ledger's entry after tx's split
// list changed from old: accounts present in both get their weight
// updated, newly referenced accounts an insert, vanished accounts a
// removal, with one balance delta emitted per account.
func (lm *LedgerManager) OnSplitsChanged(tx, old *Transaction, txs TransactionLookup) error {
	oldAccounts, _ := lm.affectedAccounts(old)
	newAccounts, err := lm.affectedAccounts(tx)
	if err != nil {
		return err
	}
	if err := lm.validateAccounts(newAccounts); err != nil {
		return err
	}
	kept := make(map[AccountID]bool, len(newAccounts))
	for _, id := range newAccounts {
		kept[id] = true
	}
	for _, id := range oldAccounts {
		if kept[id] {
			continue
		}
		if l, ok := lm.ledgers[id]; ok {
			l.Remove(old)
			lm.emit(id, old.TotalForAccount(id).Neg(), tx.Date)
		}
	}
	for _, id := range newAccounts {
		l, err := lm.LedgerFor(id, txs)
		if err != nil {
			return err
		}
		before := old.TotalForAccount(id)
		l.SetWeight(tx)
		lm.emit(id, tx.TotalForAccount(id).Add(before.Neg()), tx.Date)
	}
	return nil
}

// OnDateChanged moves tx's entry in each affected ledger from old to
// tx.Date, re-keying any StockSplit fragment boundary.
func (lm *LedgerManager) OnDateChanged(tx *Transaction, old date.Date) error {
	accountIDs, err := lm.affectedAccounts(tx)
	if err != nil {
		return err
	}
	for _, accountID := range accountIDs {
		l, ok := lm.ledgers[accountID]
		if !ok {
			continue
		}
		if tx.IsInvestment() && tx.Investment.Action == ActionStockSplit && tx.RelatedTo(accountID) {
			l.JoinFragmentsAt(old)
			l.SplitFragmentAt(tx.Date, int64(tx.Investment.SplitFraction.New), int64(tx.Investment.SplitFraction.Old))
		}
		l.Move(old, tx)
		lm.emit(accountID, tx.TotalForAccount(accountID), tx.Date)
		if !old.After(lm.today()) || !tx.Date.After(lm.today()) {
			for _, o := range lm.observers {
				o.BalanceTodayChanged(accountID)
			}
		}
	}
	return nil
}

// OnInvestmentActionChanged reacts to a StockSplit action being added to
// or removed from tx.
func (lm *LedgerManager) OnInvestmentActionChanged(tx *Transaction, old InvestmentAction) error {
	accountIDs, err := lm.affectedAccounts(tx)
	if err != nil {
		return err
	}
	for _, accountID := range accountIDs {
		l, ok := lm.ledgers[accountID]
		if !ok {
			continue
		}
		if old == ActionStockSplit {
			l.JoinFragmentsAt(tx.Date)
		}
		if tx.IsInvestment() && tx.Investment.Action == ActionStockSplit {
			l.SplitFragmentAt(tx.Date, int64(tx.Investment.SplitFraction.New), int64(tx.Investment.SplitFraction.Old))
		}
	}
	return nil
}

// OnStockSplitAmountChanged updates the fragment ratio for tx's StockSplit.
func (lm *LedgerManager) OnStockSplitAmountChanged(tx *Transaction) {
	if !tx.IsInvestment() || tx.Investment.Action != ActionStockSplit {
		return
	}
	for _, s := range tx.Splits {
		if l, ok := lm.ledgers[s.Account]; ok {
			l.SetFragmentRatio(tx.Date, int64(tx.Investment.SplitFraction.New), int64(tx.Investment.SplitFraction.Old))
		}
	}
}

func (lm *LedgerManager) affectedAccounts(tx *Transaction) ([]AccountID, error) {
	seen := make(map[AccountID]bool)
	out := make([]AccountID, 0, len(tx.Splits))
	for _, s := range tx.Splits {
		if seen[s.Account] {
			continue
		}
		seen[s.Account] = true
		out = append(out, s.Account)
	}
	return out, nil
}

func (lm *LedgerManager) validateAccounts(accountIDs []AccountID) error {
	for _, id := range accountIDs {
		a, ok := lm.accounts.Account(id)
		if !ok {
			return newLookupError("account", string(id))
		}
		if a.IsPlaceholder {
			return newStateError("account %s is a placeholder and cannot hold transactions", id)
		}
	}
	return nil
}
