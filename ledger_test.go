package ledgercore

import (
	"testing"
	"time"
)

// Walks a buy/buy/sell sequence: 10 @ 50, 10 @ 60, then sell 15
// allocated as all of the first lot plus half the second. The basis left
// behind is the unsold half of the second lot.
func TestLedger_CostBasisWithExplicitLots(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	buy1, err := engine.MakeBuy(d(2026, time.March, 1), "brokerage", "checking",
		AmountFromFloat(10, 6), AmountFromFloat(50, 4), ZeroAmount(2), "")
	if err != nil {
		t.Fatalf("MakeBuy(1) error = %v", err)
	}
	buy2, err := engine.MakeBuy(d(2026, time.April, 1), "brokerage", "checking",
		AmountFromFloat(10, 6), AmountFromFloat(60, 4), ZeroAmount(2), "")
	if err != nil {
		t.Fatalf("MakeBuy(2) error = %v", err)
	}
	lot1, _ := engine.Lots().LotForTransaction(buy1)
	lot2, _ := engine.Lots().LotForTransaction(buy2)

	sell, err := engine.MakeSell(d(2026, time.May, 1), "brokerage", "checking",
		AmountFromFloat(15, 6), AmountFromFloat(70, 4), ZeroAmount(2),
		map[LotID]Amount{lot1: AmountFromFloat(10, 6), lot2: AmountFromFloat(5, 6)}, "")
	if err != nil {
		t.Fatalf("MakeSell() error = %v", err)
	}

	basisBeforeSell, err := engine.CostBasisBefore("brokerage", sell)
	if err != nil {
		t.Fatalf("CostBasisBefore(sell) error = %v", err)
	}
	if got := basisBeforeSell.String(); got != "1100.00" {
		t.Errorf("basis before sell = %s, want 1100.00", got)
	}

	marker, err := engine.MakeBuy(d(2026, time.June, 1), "brokerage", "checking",
		AmountFromFloat(1, 6), AmountFromFloat(80, 4), ZeroAmount(2), "")
	if err != nil {
		t.Fatalf("MakeBuy(marker) error = %v", err)
	}
	basisAfterSell, err := engine.CostBasisBefore("brokerage", marker)
	if err != nil {
		t.Fatalf("CostBasisBefore(marker) error = %v", err)
	}
	if got := basisAfterSell.String(); got != "300.00" {
		t.Errorf("basis after sell = %s, want 300.00 (half of the second lot)", got)
	}

	checking, _ := engine.LedgerFor("checking")
	if got := checking.BalanceAt(d(2026, time.May, 31))["USD"].String(); got != "-50.00" {
		t.Errorf("cash after buy/buy/sell = %s, want -50.00", got)
	}
	brokerage, _ := engine.LedgerFor("brokerage")
	if got := brokerage.BalanceAt(d(2026, time.May, 31))["AAPL"].String(); got != "5.000000" {
		t.Errorf("shares after sell = %s, want 5.000000", got)
	}
}

func TestLedger_CostBasisProportionalWithoutLots(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	l, err := engine.LedgerFor("brokerage")
	if err != nil {
		t.Fatalf("LedgerFor(brokerage) error = %v", err)
	}

	if _, err := engine.MakeBuy(d(2026, time.March, 1), "brokerage", "checking",
		AmountFromFloat(10, 6), AmountFromFloat(50, 4), ZeroAmount(2), ""); err != nil {
		t.Fatalf("MakeBuy(1) error = %v", err)
	}
	if _, err := engine.MakeBuy(d(2026, time.April, 1), "brokerage", "checking",
		AmountFromFloat(10, 6), AmountFromFloat(60, 4), ZeroAmount(2), ""); err != nil {
		t.Fatalf("MakeBuy(2) error = %v", err)
	}

	// Walking past a lot-less sale reduces the basis proportionally:
	// selling 15 of 20 shares removes three quarters of the 1100 basis.
	sell := &Transaction{
		ID:   900,
		Date: d(2026, time.May, 1),
		Splits: []Split{
			{Account: "checking", Currency: "USD", Amount: AmountFromFloat(1050, 2), UserData: CostProceeds},
			{Account: "brokerage", Currency: "AAPL", Amount: AmountFromFloat(-15, 6), UserData: SplitInvestment},
		},
		Investment: &InvestmentFields{
			Action:     ActionSell,
			SplitTypes: map[InvestmentSplitType]int{CostProceeds: 0, SplitInvestment: 1},
		},
	}
	l.Insert(sell)
	engine.Transactions().put(sell)

	marker := &Transaction{ID: 901, Date: d(2026, time.June, 1)}
	other := func(AccountID) *Ledger { return nil }
	got := l.CostBasisBefore(marker, other, engine.Lots(), 2)
	if got.String() != "275.00" {
		t.Errorf("proportional basis = %s, want 275.00", got)
	}
}

func TestLedger_StockSplitScalesCostBasisShareCountOnly(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	if _, err := engine.MakeBuy(d(2026, time.January, 10), "brokerage", "checking",
		AmountFromFloat(10, 6), AmountFromFloat(100, 4), ZeroAmount(2), ""); err != nil {
		t.Fatalf("MakeBuy() error = %v", err)
	}
	if _, err := engine.MakeStockSplit(d(2026, time.February, 1), "brokerage", 2, 1); err != nil {
		t.Fatalf("MakeStockSplit() error = %v", err)
	}
	marker, err := engine.MakeBuy(d(2026, time.March, 1), "brokerage", "checking",
		AmountFromFloat(1, 6), AmountFromFloat(50, 4), ZeroAmount(2), "")
	if err != nil {
		t.Fatalf("MakeBuy(marker) error = %v", err)
	}

	basis, err := engine.CostBasisBefore("brokerage", marker)
	if err != nil {
		t.Fatalf("CostBasisBefore() error = %v", err)
	}
	if got := basis.String(); got != "1000.00" {
		t.Errorf("basis across a split = %s, want 1000.00 (cost unchanged)", got)
	}
}

func TestLedger_BalancesBeforeExcludesSameDayLaterTransactions(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	mk := func(amt float64) *Transaction {
		return &Transaction{
			Date: d(2026, time.January, 5),
			Splits: []Split{
				{Account: "checking", Currency: "USD", Amount: AmountFromFloat(-amt, 2)},
				{Account: "groceries", Currency: "USD", Amount: AmountFromFloat(amt, 2)},
			},
		}
	}
	first := mk(10)
	second := mk(20)
	if _, err := engine.AddTransaction(first); err != nil {
		t.Fatalf("AddTransaction(first) error = %v", err)
	}
	if _, err := engine.AddTransaction(second); err != nil {
		t.Fatalf("AddTransaction(second) error = %v", err)
	}

	checking, _ := engine.LedgerFor("checking")
	if got := checking.BalancesBefore(first); len(got) != 0 {
		t.Errorf("BalancesBefore(first) = %v, want empty", got)
	}
	if got := checking.BalancesBefore(second)["USD"].String(); got != "-10.00" {
		t.Errorf("BalancesBefore(second) = %s, want -10.00", got)
	}
}

func TestLedger_CurrenciesUsed(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	tx := &Transaction{
		Date: d(2026, time.February, 1),
		Splits: []Split{
			{Account: "checking", Currency: "USD", Amount: AmountFromFloat(-110, 2)},
			{Account: "savings-eur", Currency: "EUR", Amount: AmountFromFloat(100, 2)},
		},
	}
	if _, err := engine.AddTransaction(tx); err != nil {
		t.Fatalf("AddTransaction() error = %v", err)
	}
	checking, _ := engine.LedgerFor("checking")
	got := checking.CurrenciesUsed(d(2026, time.January, 1), d(2026, time.December, 31))
	if len(got) != 1 || got[0] != "USD" {
		t.Errorf("CurrenciesUsed(checking) = %v, want [USD]", got)
	}
}

func TestLedger_BalanceBeforeProjectsToMainCurrency(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	first := &Transaction{
		Date: d(2026, time.January, 5),
		Splits: []Split{
			{Account: "checking", Currency: "USD", Amount: AmountFromFloat(-10, 2)},
			{Account: "groceries", Currency: "USD", Amount: AmountFromFloat(10, 2)},
		},
	}
	second := first.Clone()
	second.Date = d(2026, time.January, 6)
	if _, err := engine.AddTransaction(first); err != nil {
		t.Fatalf("AddTransaction(first) error = %v", err)
	}
	if _, err := engine.AddTransaction(second); err != nil {
		t.Fatalf("AddTransaction(second) error = %v", err)
	}

	checking, _ := engine.LedgerFor("checking")
	if got := checking.BalanceBefore(second, engine.Oracle()).String(); got != "-10.00" {
		t.Errorf("BalanceBefore(second) = %s, want -10.00", got)
	}
}
