package ledgercore

import "github.com/colinmarsh/ledgercore/date"

// BufferState is the LedgerBuffer's state machine.
type BufferState int

const (
	BufferEmpty BufferState = iota
	BufferEditingExisting
	BufferEditingNew
)

// CurrencyExchangeResolver resolves a currency mismatch on a transfer:
// given (fromCur, toCur, fromAmount, date), it returns either a rate or an
// explicit target amount. Implementations may persist the rate via
// PriceOracle on confirmation.
type CurrencyExchangeResolver interface {
	Resolve(fromCur, toCur string, fromAmount Amount, d date.Date) (rate float64, explicitToAmount *Amount, err error)
}

// BufferRow is one row of splits-mode editing data.
type BufferRow struct {
	Account  AccountID
	Currency string
	Debit    Amount
	Credit   Amount
	Memo     string
}

// LedgerBuffer represents one pending edit of one row of a ledger view.
// Field mutations accumulate in the buffer; nothing reaches the engine
// until Save validates the whole edit and commits it in one step.
type LedgerBuffer struct {
	state BufferState
	id    TransactionID // set iff state == BufferEditingExisting

	// Account is the ledger this buffer edits a row of; investment
	// actions build their canonical splits around it.
	Account AccountID

	Date             date.Date
	No               string
	Memo             string
	Note             string
	PayeeID          int64
	ClearedStatus    ClearedStatus
	Flagged          bool
	Attachments      []string
	IDTransfer       AccountID
	TransferCurrency string
	Debit            Amount
	Credit           Amount
	ExchTransfer     bool
	MultiCurrency    bool
	IsSchedule       bool
	ScheduleID       ScheduleID
	Splits           []BufferRow

	// Investment extends the plain surface when non-nil.
	Investment *InvestmentBufferFields

	engine *Engine
}

// InvestmentBufferFields is the investment-action editing surface.
type InvestmentBufferFields struct {
	Action             InvestmentAction
	PricePerShare      Amount
	Quantity           Amount
	Fee                Amount
	TaxPaid            Amount
	GainLoss           Amount
	CashInLieu         Amount
	BasisAdjustment    Amount
	SwapTo             AccountID
	SplitFraction      SplitFraction
	Lots               map[LotID]Amount
	DistribComposition map[DistribType]Amount
	FeeAccount         AccountID
	TaxAccount         AccountID
	CashInLieuAccount  AccountID
	DivDistToAccount   AccountID
	GainLossAccount    AccountID
}

// NewLedgerBuffer builds an Empty buffer bound to engine, editing rows of
// account's ledger view.
func NewLedgerBuffer(engine *Engine, account AccountID) *LedgerBuffer {
	return &LedgerBuffer{engine: engine, Account: account, state: BufferEmpty}
}

func (b *LedgerBuffer) State() BufferState { return b.state }

// Clear resets the buffer to Empty, discarding any pending edit.
func (b *LedgerBuffer) Clear() {
	*b = LedgerBuffer{engine: b.engine, Account: b.Account, state: BufferEmpty}
}

// Load populates the buffer from an existing transaction, entering
// EditingExisting.
func (b *LedgerBuffer) Load(tx *Transaction) {
	b.Clear()
	b.state = BufferEditingExisting
	b.id = tx.ID
	b.Date = tx.Date
	b.No = tx.No
	b.Memo = tx.Memo
	b.Note = tx.Note
	b.PayeeID = tx.PayeeID
	b.ClearedStatus = tx.Cleared
	b.Flagged = tx.Flagged
	b.Attachments = append([]string(nil), tx.Attachments...)
	b.Splits = make([]BufferRow, 0, len(tx.Splits))
	for _, s := range tx.Splits {
		row := BufferRow{Account: s.Account, Currency: s.Currency, Memo: s.Memo}
		if s.Amount.IsPositive() {
			row.Debit = s.Amount
		} else {
			row.Credit = s.Amount.Neg()
		}
		b.Splits = append(b.Splits, row)
	}
	b.ensureTrailingEmptyRow()
	if tx.IsInvestment() {
		inv := tx.Investment
		f := &InvestmentBufferFields{
			Action:             inv.Action,
			PricePerShare:      inv.PricePerShare,
			SplitFraction:      inv.SplitFraction,
			BasisAdjustment:    inv.BasisAdjustment,
			TaxPaid:            inv.TaxPaid,
			DistribComposition: cloneMap(inv.DistribComposition),
			Lots:               cloneLotMap(inv.Lots),
			Quantity:           shareCount(tx.Splits, inv.SplitTypes),
		}
		if i, ok := inv.SplitTypes[SplitFee]; ok {
			f.Fee = tx.Splits[i].Amount.Abs()
			f.FeeAccount = tx.Splits[i].Account
		}
		if i, ok := inv.SplitTypes[SplitTax]; ok {
			f.TaxPaid = tx.Splits[i].Amount.Abs()
			f.TaxAccount = tx.Splits[i].Account
		}
		if i, ok := inv.SplitTypes[GainLoss]; ok {
			f.GainLoss = tx.Splits[i].Amount
			f.GainLossAccount = tx.Splits[i].Account
		}
		if i, ok := inv.SplitTypes[CashInLieu]; ok {
			f.CashInLieu = tx.Splits[i].Amount.Abs()
			f.CashInLieuAccount = tx.Splits[i].Account
		}
		if i, ok := inv.SplitTypes[DistributionSource]; ok {
			f.DivDistToAccount = tx.Splits[i].Account
		}
		if i, ok := inv.SplitTypes[InvestmentTo]; ok {
			f.SwapTo = tx.Splits[i].Account
		}
		if i, ok := inv.SplitTypes[CostProceeds]; ok {
			b.IDTransfer = tx.Splits[i].Account
		} else if i, ok := inv.SplitTypes[DistributionDest]; ok {
			b.IDTransfer = tx.Splits[i].Account
		}
		b.Investment = f
	}
}

// LoadSchedule populates the buffer from a schedule's template, entering
// EditingNew with IsSchedule set.
func (b *LedgerBuffer) LoadSchedule(s *Schedule, occurrence date.Date) {
	b.Load(s.Template)
	b.state = BufferEditingNew
	b.id = NoID
	b.IsSchedule = true
	b.ScheduleID = s.ID
	b.Date = occurrence
}

// ensureTrailingEmptyRow enforces the splits-mode invariant "exactly one
// empty trailing row", so the UI can append a split by typing
// into what is always the last row.
func (b *LedgerBuffer) ensureTrailingEmptyRow() {
	if len(b.Splits) == 0 || !b.Splits[len(b.Splits)-1].isEmpty() {
		b.Splits = append(b.Splits, BufferRow{})
		return
	}
	for len(b.Splits) >= 2 && b.Splits[len(b.Splits)-2].isEmpty() {
		b.Splits = b.Splits[:len(b.Splits)-1]
	}
}

func (r BufferRow) isEmpty() bool {
	return r.Account == "" && r.Debit.IsZero() && r.Credit.IsZero() && r.Memo == ""
}

// SetSplitRow mutates one row of the splits surface: entering a debit
// zeroes the row's credit and vice versa, then the trailing-empty-row
// invariant is re-derived.
func (b *LedgerBuffer) SetSplitRow(row int, account AccountID, currency string, debit, credit Amount, memo string) {
	for row >= len(b.Splits) {
		b.Splits = append(b.Splits, BufferRow{})
	}
	r := BufferRow{Account: account, Currency: currency, Memo: memo}
	switch {
	case !debit.IsZero():
		r.Debit = debit
	case !credit.IsZero():
		r.Credit = credit
	}
	b.Splits[row] = r
	if b.state == BufferEmpty {
		b.state = BufferEditingNew
	}
	b.ensureTrailingEmptyRow()
}

// SetAction re-derives cross-field state when the investment action
// changes: the transfer-account fields reset whenever the new action's
// account-category set differs from the old one.
func (b *LedgerBuffer) SetAction(action InvestmentAction) {
	if b.Investment == nil {
		b.Investment = &InvestmentBufferFields{}
	}
	if b.state == BufferEmpty {
		b.state = BufferEditingNew
	}
	old := b.Investment.Action
	b.Investment.Action = action
	if actionCategory(old) != actionCategory(action) {
		b.Investment.FeeAccount = ""
		b.Investment.TaxAccount = ""
		b.Investment.CashInLieuAccount = ""
		b.Investment.DivDistToAccount = ""
		b.Investment.GainLossAccount = ""
		b.IDTransfer = ""
	}
}

func actionCategory(action InvestmentAction) string {
	rule, ok := actionMatrix[action]
	if !ok {
		return ""
	}
	key := make([]byte, 0, len(rule.Required))
	for _, t := range rule.Required {
		key = append(key, byte(t))
	}
	return string(key)
}

// Validate runs the action-specific checks and returns every error
// message plus the first offending column name; an empty slice means the
// buffer is ready to Save.
func (b *LedgerBuffer) Validate() (errs []string, firstColumn string) {
	if b.Date == (date.Date{}) {
		return []string{"date is required"}, "date"
	}
	splits, err := b.buildSplits()
	if err != nil {
		return []string{err.Error()}, "splits"
	}
	if len(splits) == 0 {
		return []string{"at least one split is required"}, "splits"
	}
	if b.Investment != nil {
		if _, err := ValidateInvestmentSplits(b.Investment.Action, splits, b.engine.Accounts, b.engine.Securities, b.Investment.DistribComposition); err != nil {
			return []string{err.Error()}, "action"
		}
	} else if !splitsBalance(splits, b.engine.isTradingAccount) {
		return []string{"splits do not balance"}, "splits"
	}
	return nil, ""
}

// buildSplits assembles the canonical split list for the current buffer
// state: the typed action fields for an investment edit, the
// splits-mode rows (minus the trailing empty one) otherwise.
func (b *LedgerBuffer) buildSplits() ([]Split, error) {
	if b.Investment != nil {
		return b.buildInvestmentSplits()
	}
	out := make([]Split, 0, len(b.Splits))
	for _, r := range b.Splits {
		if r.isEmpty() {
			continue
		}
		amt := r.Debit
		if !r.Credit.IsZero() {
			amt = r.Credit.Neg()
		}
		if r.Account == "" {
			return nil, newValidationError("buffer", "split row references no account")
		}
		out = append(out, Split{Account: r.Account, Currency: r.Currency, Amount: amt, Memo: r.Memo})
	}
	return out, nil
}

// buildInvestmentSplits assembles the action's canonical split list from
// the buffer's typed fields: the cash leg, the share leg, and one optional
// split per populated fee/tax/gain-loss/cash-in-lieu field. Trading splits
// are appended by the engine on save.
func (b *LedgerBuffer) buildInvestmentSplits() ([]Split, error) {
	inv := b.Investment
	sec, err := b.engine.securityFor(b.Account)
	if err != nil {
		return nil, err
	}
	cur := sec.Currency
	secCode := string(sec.ID)
	prec := currencyPrecision(cur)
	qty := inv.Quantity
	gross := qty.Mul(inv.PricePerShare, prec)

	var out []Split
	optional := func(t InvestmentSplitType, acct AccountID, amt Amount) {
		if acct != "" && !amt.IsZero() {
			out = append(out, Split{Account: acct, Currency: cur, Amount: amt, UserData: t})
		}
	}

	switch inv.Action {
	case ActionBuy, ActionShortCover:
		cash := gross.Add(inv.Fee).Add(inv.TaxPaid)
		out = append(out,
			Split{Account: b.IDTransfer, Currency: cur, Amount: cash.Neg(), UserData: CostProceeds},
			Split{Account: b.Account, Currency: secCode, Amount: qty, UserData: SplitInvestment},
		)
		optional(SplitFee, inv.FeeAccount, inv.Fee)
		optional(SplitTax, inv.TaxAccount, inv.TaxPaid)
		if inv.Action == ActionShortCover {
			optional(GainLoss, inv.GainLossAccount, inv.GainLoss)
		}
	case ActionSell, ActionShortSell:
		cash := gross.Sub(inv.Fee).Sub(inv.TaxPaid)
		out = append(out,
			Split{Account: b.IDTransfer, Currency: cur, Amount: cash, UserData: CostProceeds},
			Split{Account: b.Account, Currency: secCode, Amount: qty.Neg(), UserData: SplitInvestment},
		)
		optional(SplitFee, inv.FeeAccount, inv.Fee)
		optional(SplitTax, inv.TaxAccount, inv.TaxPaid)
		if inv.Action == ActionSell {
			optional(GainLoss, inv.GainLossAccount, inv.GainLoss)
		}
	case ActionFee:
		net := qty.Mul(netPricePerShare(ActionFee, inv.PricePerShare, inv.Fee, qty), prec)
		out = append(out,
			Split{Account: b.IDTransfer, Currency: cur, Amount: net, UserData: CostProceeds},
			Split{Account: b.Account, Currency: secCode, Amount: qty.Neg(), UserData: SplitInvestment},
		)
	case ActionTransfer, ActionSwap, ActionSpinoff:
		to, err := b.engine.securityFor(inv.SwapTo)
		if err != nil {
			return nil, err
		}
		fromType := InvestmentFrom
		if inv.Action == ActionSpinoff {
			fromType = SplitInvestment
		}
		out = append(out,
			Split{Account: b.Account, Currency: secCode, Amount: qty.Neg(), UserData: fromType},
			Split{Account: inv.SwapTo, Currency: string(to.ID), Amount: qty, UserData: InvestmentTo},
		)
	case ActionReinvestDiv, ActionReinvestDistrib:
		dist := gross.Add(inv.Fee).Add(inv.TaxPaid).Add(inv.CashInLieu)
		out = append(out,
			Split{Account: inv.DivDistToAccount, Currency: cur, Amount: dist.Neg(), UserData: DistributionSource},
			Split{Account: b.Account, Currency: secCode, Amount: qty, UserData: SplitInvestment},
		)
		optional(SplitFee, inv.FeeAccount, inv.Fee)
		optional(SplitTax, inv.TaxAccount, inv.TaxPaid)
		optional(CashInLieu, inv.CashInLieuAccount, inv.CashInLieu)
	case ActionDividend, ActionDistribution:
		amt := b.Debit
		if amt.IsZero() {
			amt = b.Credit.Neg()
		}
		out = append(out,
			Split{Account: inv.DivDistToAccount, Currency: cur, Amount: amt.Add(inv.TaxPaid).Neg(), UserData: DistributionSource},
			Split{Account: b.IDTransfer, Currency: cur, Amount: amt, UserData: DistributionDest},
		)
		optional(SplitTax, inv.TaxAccount, inv.TaxPaid)
	case ActionStockSplit, ActionCostBasisAdjustment, ActionUndistributedCapitalGain:
		out = append(out, Split{Account: b.Account, Currency: secCode, Amount: ZeroAmount(sec.Precision), UserData: SplitInvestment})
	default:
		return nil, newValidationError("buffer", "unsupported investment action %v", inv.Action)
	}
	return out, nil
}

// Save builds the canonical split list, resolves any currency mismatch via
// resolver, calls the appropriate Engine operation and, on success,
// transitions to Empty.
func (b *LedgerBuffer) Save(resolver CurrencyExchangeResolver) (TransactionID, error) {
	if errs, _ := b.Validate(); len(errs) > 0 {
		return NoID, newValidationError("buffer", errs[0])
	}
	splits, err := b.buildSplits()
	if err != nil {
		return NoID, err
	}
	if b.ExchTransfer && resolver != nil && len(splits) == 2 && splits[0].Currency != splits[1].Currency {
		rate, explicit, err := resolver.Resolve(splits[0].Currency, splits[1].Currency, splits[0].Amount.Abs(), b.Date)
		if err != nil {
			return NoID, err
		}
		if explicit != nil {
			splits[1].Amount = *explicit
			if splits[0].Amount.IsPositive() {
				splits[1].Amount = splits[1].Amount.Neg()
			}
		} else {
			b.engine.Oracle().Set(splits[0].Currency, splits[1].Currency, b.Date, rate)
		}
	}

	tx := &Transaction{
		Date:        b.Date,
		No:          b.No,
		Memo:        b.Memo,
		Note:        b.Note,
		PayeeID:     b.PayeeID,
		Cleared:     b.ClearedStatus,
		Flagged:     b.Flagged,
		Attachments: b.Attachments,
		Splits:      splits,
	}
	if b.Investment != nil {
		tx.Investment = &InvestmentFields{
			Action:             b.Investment.Action,
			PricePerShare:      b.Investment.PricePerShare,
			SplitFraction:      b.Investment.SplitFraction,
			BasisAdjustment:    b.Investment.BasisAdjustment,
			TaxPaid:            b.Investment.TaxPaid,
			DistribComposition: b.Investment.DistribComposition,
			Lots:               b.Investment.Lots,
		}
	}

	var id TransactionID
	switch {
	case b.state == BufferEditingExisting && tx.Investment != nil:
		if err := b.engine.MakeInvestment(b.id, *tx.Investment, splits); err != nil {
			return NoID, err
		}
		id = b.id
	case b.state == BufferEditingExisting:
		if err := b.engine.SetSplits(b.id, splits); err != nil {
			return NoID, err
		}
		id = b.id
	default:
		id, err = b.engine.AddTransaction(tx)
		if err != nil {
			return NoID, err
		}
	}
	b.Clear()
	return id, nil
}

// Discard abandons the pending edit, returning to Empty without mutating
// any transaction.
func (b *LedgerBuffer) Discard() { b.Clear() }
