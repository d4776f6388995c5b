package ledgercore

import (
	"testing"
	"time"
)

func TestEngine_SetDateMovesLedgerEntries(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	tx := &Transaction{
		Date: d(2026, time.January, 5),
		Splits: []Split{
			{Account: "checking", Currency: "USD", Amount: AmountFromFloat(-10, 2)},
			{Account: "groceries", Currency: "USD", Amount: AmountFromFloat(10, 2)},
		},
	}
	id, err := engine.AddTransaction(tx)
	if err != nil {
		t.Fatalf("AddTransaction() error = %v", err)
	}
	if err := engine.SetDate(id, d(2026, time.February, 5)); err != nil {
		t.Fatalf("SetDate() error = %v", err)
	}

	checking, _ := engine.LedgerFor("checking")
	if bal := checking.BalanceAt(d(2026, time.January, 31)); len(bal) != 0 {
		t.Errorf("balance at old date = %v, want empty", bal)
	}
	if got := checking.BalanceAt(d(2026, time.February, 28))["USD"].String(); got != "-10.00" {
		t.Errorf("balance at new date = %s, want -10.00", got)
	}
}

func TestEngine_SetDateRekeysStockSplitBoundary(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	if _, err := engine.MakeBuy(d(2026, time.January, 10), "brokerage", "checking",
		AmountFromFloat(10, 6), AmountFromFloat(100, 4), ZeroAmount(2), ""); err != nil {
		t.Fatalf("MakeBuy() error = %v", err)
	}
	split, err := engine.MakeStockSplit(d(2026, time.February, 1), "brokerage", 2, 1)
	if err != nil {
		t.Fatalf("MakeStockSplit() error = %v", err)
	}

	brokerage, _ := engine.LedgerFor("brokerage")
	if got := brokerage.Balance()["AAPL"].String(); got != "20.000000" {
		t.Fatalf("balance with split after buy = %s, want 20.000000", got)
	}

	// Moved before the purchase, the split no longer scales it.
	if err := engine.SetDate(split, d(2026, time.January, 1)); err != nil {
		t.Fatalf("SetDate(split) error = %v", err)
	}
	if got := brokerage.Balance()["AAPL"].String(); got != "10.000000" {
		t.Errorf("balance with split moved before buy = %s, want 10.000000", got)
	}
}

func TestEngine_MakeInvestmentReplacesActionState(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	id, err := engine.MakeBuy(d(2026, time.January, 10), "brokerage", "checking",
		AmountFromFloat(10, 6), AmountFromFloat(50, 4), ZeroAmount(2), "")
	if err != nil {
		t.Fatalf("MakeBuy() error = %v", err)
	}

	// Re-make the same transaction as a larger buy; ledger and lot follow.
	splits := []Split{
		{Account: "checking", Currency: "USD", Amount: AmountFromFloat(-750, 2), UserData: CostProceeds},
		{Account: "brokerage", Currency: "AAPL", Amount: AmountFromFloat(15, 6), UserData: SplitInvestment},
	}
	fields := InvestmentFields{Action: ActionBuy, PricePerShare: AmountFromFloat(50, 4)}
	if err := engine.MakeInvestment(id, fields, splits); err != nil {
		t.Fatalf("MakeInvestment() error = %v", err)
	}

	brokerage, _ := engine.LedgerFor("brokerage")
	if got := brokerage.Balance()["AAPL"].String(); got != "15.000000" {
		t.Errorf("balance after re-make = %s, want 15.000000", got)
	}
	lotID, ok := engine.Lots().LotForTransaction(id)
	if !ok {
		t.Fatalf("re-made buy lost its lot")
	}
	avail := engine.Lots().LotsAvailable(LotClassLong, "brokerage", d(2026, time.December, 31))
	if got := avail[lotID].String(); got != "15.000000" {
		t.Errorf("lot availability after re-make = %s, want 15.000000", got)
	}
}

func TestEngine_MakeInvestmentRestoresSnapshotOnFailure(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	id, err := engine.MakeBuy(d(2026, time.January, 10), "brokerage", "checking",
		AmountFromFloat(10, 6), AmountFromFloat(50, 4), ZeroAmount(2), "")
	if err != nil {
		t.Fatalf("MakeBuy() error = %v", err)
	}

	// Missing the required CostProceeds split: the transition must fail and
	// leave the original buy untouched.
	bad := []Split{
		{Account: "brokerage", Currency: "AAPL", Amount: AmountFromFloat(15, 6), UserData: SplitInvestment},
	}
	if err := engine.MakeInvestment(id, InvestmentFields{Action: ActionBuy}, bad); err == nil {
		t.Fatalf("MakeInvestment(missing split) succeeded, want error")
	}

	brokerage, _ := engine.LedgerFor("brokerage")
	if got := brokerage.Balance()["AAPL"].String(); got != "10.000000" {
		t.Errorf("balance after failed re-make = %s, want 10.000000", got)
	}
	tx, _ := engine.Transactions().Transaction(id)
	if tx.Investment.Action != ActionBuy || len(tx.Splits) < 2 {
		t.Errorf("failed re-make mutated the transaction: %+v", tx)
	}
}

func TestEngine_SetStockSplitFraction(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	if _, err := engine.MakeBuy(d(2026, time.January, 10), "brokerage", "checking",
		AmountFromFloat(10, 6), AmountFromFloat(100, 4), ZeroAmount(2), ""); err != nil {
		t.Fatalf("MakeBuy() error = %v", err)
	}
	split, err := engine.MakeStockSplit(d(2026, time.February, 1), "brokerage", 2, 1)
	if err != nil {
		t.Fatalf("MakeStockSplit() error = %v", err)
	}
	if err := engine.SetStockSplitFraction(split, SplitFraction{New: 3, Old: 1}); err != nil {
		t.Fatalf("SetStockSplitFraction() error = %v", err)
	}

	brokerage, _ := engine.LedgerFor("brokerage")
	if got := brokerage.Balance()["AAPL"].String(); got != "30.000000" {
		t.Errorf("balance after ratio change = %s, want 30.000000", got)
	}
	avail := engine.Lots().LotsAvailable(LotClassLong, "brokerage", d(2026, time.December, 31))
	var total Amount
	for _, amt := range avail {
		total = amt
	}
	if got := total.String(); got != "30.000000" {
		t.Errorf("availability after ratio change = %s, want 30.000000", got)
	}
}

type recordingObserver struct {
	changed      map[AccountID]Balances
	todayChanged map[AccountID]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{changed: map[AccountID]Balances{}, todayChanged: map[AccountID]int{}}
}

func (o *recordingObserver) BalanceChanged(accountID AccountID, delta Balances) {
	o.changed[accountID] = o.changed[accountID].Add(delta)
}

func (o *recordingObserver) BalanceTodayChanged(accountID AccountID) {
	o.todayChanged[accountID]++
}

func TestEngine_ObserversReceiveBalanceDeltas(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	obs := newRecordingObserver()
	engine.Subscribe(obs)

	tx := &Transaction{
		Date: d(2026, time.January, 5), // before the test engine's "today"
		Splits: []Split{
			{Account: "checking", Currency: "USD", Amount: AmountFromFloat(-10, 2)},
			{Account: "groceries", Currency: "USD", Amount: AmountFromFloat(10, 2)},
		},
	}
	if _, err := engine.AddTransaction(tx); err != nil {
		t.Fatalf("AddTransaction() error = %v", err)
	}

	if got := obs.changed["checking"]["USD"].String(); got != "-10.00" {
		t.Errorf("observed checking delta = %s, want -10.00", got)
	}
	if got := obs.changed["groceries"]["USD"].String(); got != "10.00" {
		t.Errorf("observed groceries delta = %s, want 10.00", got)
	}
	if obs.todayChanged["checking"] == 0 {
		t.Errorf("no BalanceTodayChanged for a past-dated transaction")
	}
}
