package ledgercore

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestTransaction_JSONRoundTrip(t *testing.T) {
	tx := &Transaction{
		ID:      7,
		Date:    d(2026, time.March, 1),
		Memo:    "buy some shares",
		Cleared: StatusCleared,
		Splits: []Split{
			{Account: "checking", Currency: "USD", Amount: AmountFromFloat(-500, 2), UserData: CostProceeds},
			{Account: "brokerage", Currency: "AAPL", Amount: AmountFromFloat(10, 6), UserData: SplitInvestment},
		},
		Investment: &InvestmentFields{
			Action:        ActionBuy,
			PricePerShare: AmountFromFloat(50, 4),
			Lots:          map[LotID]Amount{1: AmountFromFloat(10, 6)},
		},
	}

	b, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	// Stable key order: id leads, splits precede the investment extension.
	s := string(b)
	if !strings.HasPrefix(s, `{"id":7,"date":"2026-03-01"`) {
		t.Errorf("unexpected leading keys: %s", s)
	}
	if strings.Index(s, `"splits"`) > strings.Index(s, `"investment"`) {
		t.Errorf("investment serialized before splits: %s", s)
	}

	var back Transaction
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if back.ID != tx.ID || !back.Date.Equal(tx.Date) || back.Memo != tx.Memo {
		t.Errorf("round trip header = %+v", back)
	}
	if len(back.Splits) != 2 || !back.Splits[0].Amount.Equal(tx.Splits[0].Amount) {
		t.Errorf("round trip splits = %+v", back.Splits)
	}
	if back.Investment == nil || back.Investment.Action != ActionBuy {
		t.Fatalf("round trip investment = %+v", back.Investment)
	}
	if !back.Investment.PricePerShare.Equal(tx.Investment.PricePerShare) {
		t.Errorf("round trip pricePerShare = %s", back.Investment.PricePerShare)
	}
}

func TestRecurrence_JSONRoundTrip(t *testing.T) {
	r := Recurrence{
		BeginDate:    d(2026, time.January, 1),
		Frequency:    Weekly,
		Every:        2,
		Weekdays:     map[time.Weekday]bool{time.Monday: true, time.Thursday: true},
		Stops:        true,
		LastDate:     d(2026, time.June, 30),
		NumRemaining: 5,
	}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(b), `"weekdays":"MR"`) {
		t.Errorf("weekday letter encoding missing: %s", b)
	}
	if !strings.Contains(string(b), `"frequency":2`) {
		t.Errorf("stable frequency code missing: %s", b)
	}

	var back Recurrence
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !back.BeginDate.Equal(r.BeginDate) || back.Frequency != Weekly || back.Every != 2 {
		t.Errorf("round trip = %+v", back)
	}
	if !back.Weekdays[time.Monday] || !back.Weekdays[time.Thursday] || len(back.Weekdays) != 2 {
		t.Errorf("round trip weekdays = %v", back.Weekdays)
	}

	markers := Recurrence{
		BeginDate:   d(2026, time.January, 1),
		Frequency:   Monthly,
		Every:       1,
		DaysOfMonth: []int{15, int(lastDay)},
	}
	b, err = json.Marshal(markers)
	if err != nil {
		t.Fatalf("Marshal(markers) error = %v", err)
	}
	if !strings.Contains(string(b), `"daysOfMonth":"15,-3"`) {
		t.Errorf("day marker encoding missing: %s", b)
	}
}
