package ledgercore

import (
	"sort"
	"strconv"

	"github.com/colinmarsh/ledgercore/date"
)

// TransactionStore is the in-memory transaction table Engine owns; it
// satisfies TransactionLookup for Ledger's chronological walk.
type TransactionStore struct {
	byID map[TransactionID]*Transaction
	next TransactionID
}

func NewTransactionStore() *TransactionStore {
	return &TransactionStore{byID: make(map[TransactionID]*Transaction)}
}

func (s *TransactionStore) Transaction(id TransactionID) (*Transaction, bool) {
	t, ok := s.byID[id]
	return t, ok
}

// All returns every transaction sorted by (date, id) — the same order the
// ledgers keep their entries in.
func (s *TransactionStore) All() []*Transaction {
	out := make([]*Transaction, 0, len(s.byID))
	for _, t := range s.byID {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *TransactionStore) put(t *Transaction) {
	if t.ID == NoID {
		s.next++
		t.ID = s.next
	}
	s.byID[t.ID] = t
}

func (s *TransactionStore) delete(id TransactionID) { delete(s.byID, id) }

// Engine is the single entry point coordinating the AccountRegistry,
// TransactionStore, LedgerManager, PriceOracle and InvestmentLotsManager.
// All mutating operations validate first and never leave partial state on
// error.
type Engine struct {
	Accounts   AccountRegistry
	Securities SecurityRegistry
	Currencies CurrencyRegistry
	Payees     PayeeRegistry

	txs     *TransactionStore
	ledgers *LedgerManager
	oracle  *PriceOracle
	lots    *InvestmentLotsManager
	sched   *ScheduleManager

	isTradingAccount func(AccountID) bool
	isSecurity       func(string) bool
}

// NewEngine wires the core components together.
func NewEngine(accounts AccountRegistry, securities SecurityRegistry, currencies CurrencyRegistry, payees PayeeRegistry, resolver SecurityResolver, today func() date.Date) *Engine {
	e := &Engine{
		Accounts:   accounts,
		Securities: securities,
		Currencies: currencies,
		Payees:     payees,
		txs:        NewTransactionStore(),
		ledgers:    NewLedgerManager(accounts, today),
		oracle:     NewPriceOracle(resolver),
		lots:       NewInvestmentLotsManager(),
	}
	e.isTradingAccount = func(id AccountID) bool {
		a, ok := accounts.Account(id)
		return ok && a.Type == Trading
	}
	e.isSecurity = func(code string) bool {
		_, ok := securities.Get(SecurityID(code))
		return ok
	}
	e.sched = NewScheduleManager(e)
	return e
}

func (e *Engine) Oracle() *PriceOracle            { return e.oracle }
func (e *Engine) Lots() *InvestmentLotsManager    { return e.lots }
func (e *Engine) Schedules() *ScheduleManager     { return e.sched }
func (e *Engine) Transactions() *TransactionStore { return e.txs }

// Subscribe registers a BalanceObserver with the ledger manager.
func (e *Engine) Subscribe(o BalanceObserver) { e.ledgers.Subscribe(o) }

// LedgerFor exposes the per-account ledger for balance queries.
func (e *Engine) LedgerFor(accountID AccountID) (*Ledger, error) {
	return e.ledgers.LedgerFor(accountID, e.txs)
}

// validateBalance regenerates the synthetic trading splits and confirms
// the result balances to zero per currency. Trading contra
// splits absorb cross-currency and cash-vs-security imbalance only; a
// residual confined to a single currency is a plain unbalanced
// transaction and is rejected.
func (e *Engine) validateBalance(tx *Transaction) error {
	totals := perCurrencyTotals(tx.Splits, e.isTradingAccount)
	if len(totals) == 1 {
		for cur, amt := range totals {
			return &BalanceError{Currency: cur, Residual: amt.String()}
		}
	}
	splits, err := addTradingSplits(tx.Splits, e.Accounts, e.isTradingAccount, e.isSecurity)
	if err != nil {
		return err
	}
	tx.Splits = splits
	return nil
}

func (e *Engine) validateAccountsExist(tx *Transaction) error {
	for _, s := range tx.Splits {
		if _, ok := e.Accounts.Account(s.Account); !ok {
			return newLookupError("account", string(s.Account))
		}
	}
	return nil
}

// AddTransaction validates tx (balance, account existence, and, if
// tx.IsInvestment(), the action's split-type rules), inserts it into the
// store, routes it to LedgerManager, and if it is a lot-affecting
// investment transaction, records it with InvestmentLotsManager. On any
// failure, no state is mutated.
func (e *Engine) AddTransaction(tx *Transaction) (TransactionID, error) {
	if err := e.validateAccountsExist(tx); err != nil {
		return NoID, err
	}
	if !tx.IsInvestment() {
		if err := e.validateBalance(tx); err != nil {
			return NoID, err
		}
	} else {
		idx, err := ValidateInvestmentSplits(tx.Investment.Action, tx.Splits, e.Accounts, e.Securities, tx.Investment.DistribComposition)
		if err != nil {
			return NoID, err
		}
		tx.Investment.SplitTypes = idx
		if err := e.validateBalance(tx); err != nil {
			return NoID, err
		}
	}

	e.txs.put(tx)
	if err := e.ledgers.AddTransaction(tx, e.txs); err != nil {
		e.txs.delete(tx.ID)
		return NoID, err
	}
	if tx.IsInvestment() {
		if err := e.dispatchLots(tx); err != nil {
			e.ledgers.RemoveTransaction(tx)
			e.txs.delete(tx.ID)
			return NoID, err
		}
	}
	return tx.ID, nil
}

// dispatchLots routes tx's lot side effects to the lots manager according
// to its current action: acquisitions and stock splits create
// or update a Lot/LotSplit, consumptions record a usage/transfer, and any
// other action purges entries a prior action may have left behind.
func (e *Engine) dispatchLots(tx *Transaction) error {
	action := tx.Investment.Action
	switch {
	case isAcquisition(action) || action == ActionStockSplit:
		return e.lots.UpdateTransactionSplit(tx)
	case isConsumption(action):
		if len(tx.Investment.Lots) == 0 {
			return newValidationError("lots", "action %v requires a lot allocation", action)
		}
		return e.lots.UpdateUsages(tx, tx.Investment.Lots)
	default:
		e.lots.RemoveTransaction(tx)
		return nil
	}
}

// RemoveTransaction deletes tx from the store, the ledgers and the lots
// manager.
func (e *Engine) RemoveTransaction(id TransactionID) error {
	tx, ok := e.txs.Transaction(id)
	if !ok {
		return newLookupError("transaction", strconv.FormatInt(int64(id), 10))
	}
	if tx.IsInvestment() {
		e.lots.RemoveTransaction(tx)
	}
	if err := e.ledgers.RemoveTransaction(tx); err != nil {
		return err
	}
	e.txs.delete(id)
	return nil
}

// SetSplits replaces tx's splits (re-validating balance/investment rules)
// and updates the affected ledgers in place.
func (e *Engine) SetSplits(id TransactionID, splits []Split) error {
	tx, ok := e.txs.Transaction(id)
	if !ok {
		return newLookupError("transaction", strconv.FormatInt(int64(id), 10))
	}
	snapshot := tx.Clone()
	tx.Splits = splits
	if err := e.validateAccountsExist(tx); err != nil {
		*tx = *snapshot
		return err
	}
	if tx.IsInvestment() {
		idx, err := ValidateInvestmentSplits(tx.Investment.Action, tx.Splits, e.Accounts, e.Securities, tx.Investment.DistribComposition)
		if err != nil {
			*tx = *snapshot
			return err
		}
		tx.Investment.SplitTypes = idx
	}
	if err := e.validateBalance(tx); err != nil {
		*tx = *snapshot
		return err
	}
	if err := e.ledgers.OnSplitsChanged(tx, snapshot, e.txs); err != nil {
		*tx = *snapshot
		return err
	}
	if tx.IsInvestment() {
		if err := e.dispatchLots(tx); err != nil {
			e.ledgers.OnSplitsChanged(snapshot, tx, e.txs)
			*tx = *snapshot
			e.dispatchLots(snapshot)
			return err
		}
	}
	return nil
}

// MakeInvestment is the make-X transition on an existing transaction: it
// validates fields.Action's split rules against splits,
// snapshots tx, applies the new action/splits/fields, re-routes ledgers and
// the lot index, and restores the snapshot on any failure. The ledger
// remove/re-add pair also re-keys any StockSplit fragment boundary when the
// action changes to or from StockSplit.
func (e *Engine) MakeInvestment(id TransactionID, fields InvestmentFields, splits []Split) error {
	tx, ok := e.txs.Transaction(id)
	if !ok {
		return newLookupError("transaction", strconv.FormatInt(int64(id), 10))
	}
	snapshot := tx.Clone()

	idx, err := ValidateInvestmentSplits(fields.Action, splits, e.Accounts, e.Securities, fields.DistribComposition)
	if err != nil {
		return err
	}
	fields.SplitTypes = idx
	tx.Splits = splits
	tx.Investment = &fields
	if err := e.validateAccountsExist(tx); err != nil {
		*tx = *snapshot
		return err
	}
	if err := e.validateBalance(tx); err != nil {
		*tx = *snapshot
		return err
	}

	e.ledgers.RemoveTransaction(snapshot)
	if err := e.ledgers.AddTransaction(tx, e.txs); err != nil {
		*tx = *snapshot
		e.ledgers.AddTransaction(snapshot, e.txs)
		return err
	}
	if err := e.dispatchLots(tx); err != nil {
		e.ledgers.RemoveTransaction(tx)
		*tx = *snapshot
		e.ledgers.AddTransaction(snapshot, e.txs)
		if snapshot.IsInvestment() {
			e.dispatchLots(snapshot)
		}
		return err
	}
	if snapshot.IsInvestment() && snapshot.Investment.Action != fields.Action {
		return e.ledgers.OnInvestmentActionChanged(tx, snapshot.Investment.Action)
	}
	return nil
}

// SetStockSplitFraction updates a StockSplit's ratio in place, re-scaling
// the ledger fragments and the lot index.
func (e *Engine) SetStockSplitFraction(id TransactionID, fraction SplitFraction) error {
	tx, ok := e.txs.Transaction(id)
	if !ok {
		return newLookupError("transaction", strconv.FormatInt(int64(id), 10))
	}
	if !tx.IsInvestment() || tx.Investment.Action != ActionStockSplit {
		return newStateError("transaction %d is not a stock split", id)
	}
	tx.Investment.SplitFraction = fraction
	e.ledgers.OnStockSplitAmountChanged(tx)
	return e.lots.UpdateTransactionSplit(tx)
}

// SetDate moves tx to a new date, re-keying its ledger entries and any
// lots-manager events it owns.
func (e *Engine) SetDate(id TransactionID, newDate date.Date) error {
	tx, ok := e.txs.Transaction(id)
	if !ok {
		return newLookupError("transaction", strconv.FormatInt(int64(id), 10))
	}
	old := tx.Date
	tx.Date = newDate
	if err := e.ledgers.OnDateChanged(tx, old); err != nil {
		tx.Date = old
		return err
	}
	if tx.IsInvestment() {
		e.lots.UpdateDate(tx)
	}
	return nil
}

// MakeBuy is the make-X transactional operation for a Buy investment
// transaction: build splits, validate, insert, and
// record the resulting lot.
func (e *Engine) MakeBuy(d date.Date, investmentAccount AccountID, cashAccount AccountID, shares, pricePerShare, fee Amount, memo string) (TransactionID, error) {
	sec, err := e.securityFor(investmentAccount)
	if err != nil {
		return NoID, err
	}
	netPrice := netPricePerShare(ActionBuy, pricePerShare, fee, shares)
	cost := shares.Mul(netPrice, fee.Precision())
	tx := &Transaction{
		Date: d,
		Memo: memo,
		Splits: []Split{
			{Account: cashAccount, Currency: sec.Currency, Amount: cost.Neg(), UserData: CostProceeds},
			{Account: investmentAccount, Currency: string(sec.ID), Amount: shares, UserData: SplitInvestment},
		},
		Investment: &InvestmentFields{Action: ActionBuy, PricePerShare: pricePerShare},
	}
	return e.AddTransaction(tx)
}

// MakeSell is the make-X operation for a Sell, given an explicit lot
// allocation.
func (e *Engine) MakeSell(d date.Date, investmentAccount, cashAccount AccountID, shares, pricePerShare, fee Amount, lots map[LotID]Amount, memo string) (TransactionID, error) {
	sec, err := e.securityFor(investmentAccount)
	if err != nil {
		return NoID, err
	}
	netPrice := netPricePerShare(ActionSell, pricePerShare, fee, shares)
	proceeds := shares.Mul(netPrice, fee.Precision())
	tx := &Transaction{
		Date: d,
		Memo: memo,
		Splits: []Split{
			{Account: cashAccount, Currency: sec.Currency, Amount: proceeds, UserData: CostProceeds},
			{Account: investmentAccount, Currency: string(sec.ID), Amount: shares.Neg(), UserData: SplitInvestment},
		},
		Investment: &InvestmentFields{Action: ActionSell, PricePerShare: pricePerShare, Lots: lots},
	}
	return e.AddTransaction(tx)
}

// MakeStockSplit is the make-X operation for a StockSplit.
func (e *Engine) MakeStockSplit(d date.Date, investmentAccount AccountID, ratioNew, ratioOld int) (TransactionID, error) {
	sec, err := e.securityFor(investmentAccount)
	if err != nil {
		return NoID, err
	}
	tx := &Transaction{
		Date: d,
		Splits: []Split{
			{Account: investmentAccount, Currency: string(sec.ID), Amount: ZeroAmount(6), UserData: SplitInvestment},
		},
		Investment: &InvestmentFields{Action: ActionStockSplit, SplitFraction: SplitFraction{New: ratioNew, Old: ratioOld}},
	}
	return e.AddTransaction(tx)
}

// CostBasisBefore reports investmentAccount's cost basis walked up to (but
// excluding) the given transaction.
func (e *Engine) CostBasisBefore(investmentAccount AccountID, txID TransactionID) (Amount, error) {
	tx, ok := e.txs.Transaction(txID)
	if !ok {
		return Amount{}, newLookupError("transaction", strconv.FormatInt(int64(txID), 10))
	}
	l, err := e.ledgers.LedgerFor(investmentAccount, e.txs)
	if err != nil {
		return Amount{}, err
	}
	sec, err := e.securityFor(investmentAccount)
	if err != nil {
		return Amount{}, err
	}
	other := func(id AccountID) *Ledger {
		ol, err := e.ledgers.LedgerFor(id, e.txs)
		if err != nil {
			return nil
		}
		return ol
	}
	return l.CostBasisBefore(tx, other, e.lots, currencyPrecision(sec.Currency)), nil
}

func (e *Engine) securityFor(investmentAccount AccountID) (*Security, error) {
	a, ok := e.Accounts.Account(investmentAccount)
	if !ok {
		return nil, newLookupError("account", string(investmentAccount))
	}
	if a.Type != Investment || a.SecurityID == "" {
		return nil, newValidationError("investment", "account %s is not an investment account", investmentAccount)
	}
	sec, ok := e.Securities.Get(a.SecurityID)
	if !ok {
		return nil, newLookupError("security", string(a.SecurityID))
	}
	return sec, nil
}
