package ledgercore

import "github.com/colinmarsh/ledgercore/date"

// LotID identifies a Lot in creation order.
type LotID int64

// Lot is an acquisition event identifying a parcel of shares used for
// cost-basis and availability tracking. Amount is always non-negative.
type Lot struct {
	ID            LotID
	TransactionID TransactionID
	AccountID     AccountID
	Action        InvestmentAction
	Amount        Amount
	Date          date.Date
}

// LotSplit marks a stock split's effect on an account's lots.
type LotSplit struct {
	TransactionID TransactionID
	AccountID     AccountID
	SplitFraction SplitFraction
	Date          date.Date
}

// LotUsage records lots consumed by a Sell or ShortCover.
type LotUsage struct {
	TransactionID TransactionID
	AccountID     AccountID
	Lots          map[LotID]Amount
	Date          date.Date
}

// LotTransferSwap records lots moved by a Transfer/Swap/Spinoff.
type LotTransferSwap struct {
	TransactionID TransactionID
	AccountFrom   AccountID
	AccountTo     AccountID
	Lots          map[LotID]Amount
	Date          date.Date
}

// availabilityPriority orders same-date effects so a split is applied
// before consumptions recorded on the same day: LotSplit
// (-1) before Lot (0) before LotUsage/LotTransferSwap (+1).
func availabilityPriority(kind string) int {
	switch kind {
	case "split":
		return -1
	case "lot":
		return 0
	default: // usage, transferswap
		return 1
	}
}
