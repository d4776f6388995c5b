package ledgercore

import "github.com/colinmarsh/ledgercore/date"

// TransactionID identifies a Transaction once it has been inserted into a
// TransactionStore. NoID is the "not yet inserted" sentinel.
type TransactionID int64

const NoID TransactionID = 0

// ClearedStatus is a split's reconciliation state.
type ClearedStatus int

const (
	StatusNone ClearedStatus = iota
	StatusCleared
	StatusReconciled
)

// Transaction is a balanced collection of splits committed atomically on a
// date. It is immutable in identity (ID never changes once assigned) but
// mutable in every other field; mutations go through Engine methods, which
// update the affected ledgers and notify observers synchronously, so a
// handler always observes the post-state of the emitter.
type Transaction struct {
	ID            TransactionID
	Date          date.Date
	No            string
	Memo          string
	Note          string
	Flagged       bool
	Cleared       ClearedStatus
	Attachments   []string
	PayeeID       int64
	Splits        []Split

	// Investment is non-nil iff this Transaction carries investment
	// action-specific fields.
	Investment *InvestmentFields
}

// IsInvestment reports whether this Transaction is an InvestmentTransaction.
func (t *Transaction) IsInvestment() bool { return t.Investment != nil }

// RelatedTo reports whether any split references accountID.
func (t *Transaction) RelatedTo(accountID AccountID) bool { return relatedTo(accountID, t.Splits) }

// TotalForAccount sums this transaction's splits for accountID, by currency.
func (t *Transaction) TotalForAccount(accountID AccountID) Balances {
	return totalForAccount(accountID, t.Splits)
}

// Clone returns a deep-enough copy suitable for transactional snapshot/
// rollback in the make-X operations.
func (t *Transaction) Clone() *Transaction {
	c := *t
	c.Attachments = append([]string(nil), t.Attachments...)
	c.Splits = append([]Split(nil), t.Splits...)
	if t.Investment != nil {
		inv := *t.Investment
		inv.DistribComposition = cloneMap(t.Investment.DistribComposition)
		inv.Lots = cloneLotMap(t.Investment.Lots)
		inv.SplitTypes = cloneTypeIndex(t.Investment.SplitTypes)
		c.Investment = &inv
	}
	return &c
}

func cloneMap(m map[DistribType]Amount) map[DistribType]Amount {
	if m == nil {
		return nil
	}
	out := make(map[DistribType]Amount, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneLotMap(m map[LotID]Amount) map[LotID]Amount {
	if m == nil {
		return nil
	}
	out := make(map[LotID]Amount, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneTypeIndex(m map[InvestmentSplitType]int) map[InvestmentSplitType]int {
	if m == nil {
		return nil
	}
	out := make(map[InvestmentSplitType]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
