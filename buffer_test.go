package ledgercore

import (
	"testing"
	"time"
)

func TestLedgerBuffer_TrailingEmptyRowInvariant(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	b := NewLedgerBuffer(engine, "checking")

	b.SetSplitRow(0, "checking", "USD", ZeroAmount(2), AmountFromFloat(42.50, 2), "")
	if got := len(b.Splits); got != 2 {
		t.Fatalf("after first row: %d rows, want 2 (one data + one empty)", got)
	}
	if !b.Splits[len(b.Splits)-1].isEmpty() {
		t.Errorf("last row is not empty after edit")
	}

	b.SetSplitRow(1, "groceries", "USD", AmountFromFloat(42.50, 2), ZeroAmount(2), "")
	if got := len(b.Splits); got != 3 {
		t.Fatalf("after second row: %d rows, want 3", got)
	}

	// Clearing the middle row must not leave two empty trailing rows.
	b.SetSplitRow(1, "", "", ZeroAmount(2), ZeroAmount(2), "")
	if got := len(b.Splits); got != 2 {
		t.Errorf("after clearing a row: %d rows, want 2", got)
	}
}

func TestLedgerBuffer_SaveNewTransaction(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	b := NewLedgerBuffer(engine, "checking")
	b.Date = d(2026, time.January, 5)
	b.Memo = "groceries run"
	b.SetSplitRow(0, "checking", "USD", ZeroAmount(2), AmountFromFloat(42.50, 2), "")
	b.SetSplitRow(1, "groceries", "USD", AmountFromFloat(42.50, 2), ZeroAmount(2), "")

	if errs, _ := b.Validate(); len(errs) != 0 {
		t.Fatalf("Validate() = %v, want no errors", errs)
	}
	id, err := b.Save(nil)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if b.State() != BufferEmpty {
		t.Errorf("buffer state after save = %v, want Empty", b.State())
	}

	tx, ok := engine.Transactions().Transaction(id)
	if !ok {
		t.Fatalf("saved transaction %d not found", id)
	}
	if tx.Memo != "groceries run" {
		t.Errorf("saved memo = %q", tx.Memo)
	}
	checking, _ := engine.LedgerFor("checking")
	if got := checking.Balance()["USD"].String(); got != "-42.50" {
		t.Errorf("checking balance = %s, want -42.50", got)
	}
}

func TestLedgerBuffer_ValidateReportsFirstColumn(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	b := NewLedgerBuffer(engine, "checking")

	errs, col := b.Validate()
	if len(errs) == 0 || col != "date" {
		t.Errorf("Validate(empty) = (%v, %q), want a date error", errs, col)
	}

	b.Date = d(2026, time.January, 5)
	errs, col = b.Validate()
	if len(errs) == 0 || col != "splits" {
		t.Errorf("Validate(no splits) = (%v, %q), want a splits error", errs, col)
	}

	// A one-sided row cannot balance within a single currency.
	b.SetSplitRow(0, "checking", "USD", AmountFromFloat(10, 2), ZeroAmount(2), "")
	errs, _ = b.Validate()
	if len(errs) == 0 {
		t.Errorf("Validate(unbalanced) = no errors, want a balance error")
	}
}

func TestLedgerBuffer_InvestmentBuySave(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	b := NewLedgerBuffer(engine, "brokerage")
	b.Date = d(2026, time.January, 10)
	b.IDTransfer = "checking"
	b.SetAction(ActionBuy)
	b.Investment.Quantity = AmountFromFloat(10, 6)
	b.Investment.PricePerShare = AmountFromFloat(50, 4)

	if errs, col := b.Validate(); len(errs) != 0 {
		t.Fatalf("Validate() = (%v, %q), want no errors", errs, col)
	}
	id, err := b.Save(nil)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	brokerage, _ := engine.LedgerFor("brokerage")
	if got := brokerage.Balance()["AAPL"].String(); got != "10.000000" {
		t.Errorf("brokerage balance = %s, want 10.000000", got)
	}
	checking, _ := engine.LedgerFor("checking")
	if got := checking.Balance()["USD"].String(); got != "-500.00" {
		t.Errorf("checking balance = %s, want -500.00", got)
	}
	tx, _ := engine.Transactions().Transaction(id)
	if _, ok := tx.Investment.SplitTypes[SplitInvestment]; !ok {
		t.Errorf("saved transaction lacks an Investment split index")
	}
	if _, ok := engine.Lots().LotForTransaction(id); !ok {
		t.Errorf("buy did not create a lot")
	}
}

func TestLedgerBuffer_LoadEditSaveExisting(t *testing.T) {
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

	b := NewLedgerBuffer(engine, "checking")
	b.Load(tx)
	if b.State() != BufferEditingExisting {
		t.Fatalf("state after Load = %v, want EditingExisting", b.State())
	}
	b.SetSplitRow(0, "checking", "USD", ZeroAmount(2), AmountFromFloat(25, 2), "")
	b.SetSplitRow(1, "groceries", "USD", AmountFromFloat(25, 2), ZeroAmount(2), "")
	if _, err := b.Save(nil); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, _ := engine.Transactions().Transaction(id)
	if len(got.Splits) != 2 {
		t.Fatalf("edited transaction has %d splits, want 2", len(got.Splits))
	}
	checking, _ := engine.LedgerFor("checking")
	if got := checking.Balance()["USD"].String(); got != "-25.00" {
		t.Errorf("checking balance after edit = %s, want -25.00", got)
	}
}

func TestLedgerBuffer_DiscardLeavesStateUntouched(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	b := NewLedgerBuffer(engine, "checking")
	b.Date = d(2026, time.January, 5)
	b.SetSplitRow(0, "checking", "USD", AmountFromFloat(10, 2), ZeroAmount(2), "")
	b.Discard()
	if b.State() != BufferEmpty {
		t.Errorf("state after Discard = %v, want Empty", b.State())
	}
	checking, _ := engine.LedgerFor("checking")
	if bal := checking.Balance(); len(bal) != 0 {
		t.Errorf("Discard mutated the ledger: %v", bal)
	}
}

func TestLedgerBuffer_LoadSchedule(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	s := newTestSchedule(engine)
	engine.Schedules().Add(s)

	b := NewLedgerBuffer(engine, "checking")
	b.LoadSchedule(s, d(2026, time.July, 15))
	if b.State() != BufferEditingNew {
		t.Fatalf("state after LoadSchedule = %v, want EditingNew", b.State())
	}
	if !b.IsSchedule || b.ScheduleID != s.ID {
		t.Errorf("schedule bookkeeping = (%v, %d), want (true, %d)", b.IsSchedule, b.ScheduleID, s.ID)
	}
	if !b.Date.Equal(d(2026, time.July, 15)) {
		t.Errorf("buffer date = %v, want the occurrence date", b.Date)
	}

	id, err := b.Save(nil)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	tx, _ := engine.Transactions().Transaction(id)
	if !tx.Date.Equal(d(2026, time.July, 15)) || tx.Memo != "rent" {
		t.Errorf("saved occurrence = %+v", tx)
	}
}
