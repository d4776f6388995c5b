package ledgercore

import "fmt"

// InvestmentAction selects the variant behaviour of an InvestmentTransaction.
// Numeric codes are stable across persistence.
type InvestmentAction int

const (
	ActionInvalid                   InvestmentAction = -1
	ActionBuy                       InvestmentAction = 1
	ActionSell                      InvestmentAction = 2
	ActionShortSell                 InvestmentAction = 5
	ActionShortCover                InvestmentAction = 6
	ActionTransfer                  InvestmentAction = 10
	ActionSwap                      InvestmentAction = 11
	ActionSpinoff                   InvestmentAction = 12
	ActionStockSplit                InvestmentAction = 20
	ActionDividend                  InvestmentAction = 30
	ActionStockDividend             InvestmentAction = 31
	ActionDistribution              InvestmentAction = 32
	ActionReinvestDiv               InvestmentAction = 40
	ActionReinvestDistrib           InvestmentAction = 41
	ActionUndistributedCapitalGain  InvestmentAction = 50
	ActionCostBasisAdjustment       InvestmentAction = 51
	ActionFee                       InvestmentAction = 60
)

// DistribType classifies one component of a distribution composition.
type DistribType int

const (
	ReturnOfCapital DistribType = iota
	CapitalGain
	DistribOther
)

// SplitFraction is an investment-split ratio new:old.
type SplitFraction struct{ New, Old int }

// InvestmentFields carries the action-specific extra state an
// InvestmentTransaction adds to a plain Transaction.
type InvestmentFields struct {
	Action             InvestmentAction            `json:"action"`
	PricePerShare      Amount                      `json:"pricePerShare,omitempty"`
	SplitFraction      SplitFraction               `json:"splitFraction,omitempty"`
	BasisAdjustment    Amount                      `json:"basisAdjustment,omitempty"`
	TaxPaid            Amount                      `json:"taxPaid,omitempty"`
	DistribComposition map[DistribType]Amount      `json:"distribComposition,omitempty"`
	Lots               map[LotID]Amount            `json:"lots,omitempty"`
	SplitTypes         map[InvestmentSplitType]int `json:"-"` // reverse index, rebuilt on load
}

type splitRule struct {
	Required []InvestmentSplitType
	Optional []InvestmentSplitType
}

// actionMatrix maps each action to its required and optional split types.
// Trading is always allowed in unlimited quantity and is not listed.
var actionMatrix = map[InvestmentAction]splitRule{
	ActionBuy:                      {Required: []InvestmentSplitType{CostProceeds, SplitInvestment}, Optional: []InvestmentSplitType{SplitTax, SplitFee}},
	ActionSell:                     {Required: []InvestmentSplitType{CostProceeds, SplitInvestment}, Optional: []InvestmentSplitType{SplitTax, SplitFee, GainLoss}},
	ActionShortSell:                {Required: []InvestmentSplitType{CostProceeds, SplitInvestment}, Optional: []InvestmentSplitType{SplitTax, SplitFee}},
	ActionShortCover:               {Required: []InvestmentSplitType{CostProceeds, SplitInvestment}, Optional: []InvestmentSplitType{SplitTax, SplitFee, GainLoss}},
	ActionFee:                      {Required: []InvestmentSplitType{CostProceeds, SplitInvestment}},
	ActionTransfer:                 {Required: []InvestmentSplitType{InvestmentFrom, InvestmentTo}},
	ActionSwap:                     {Required: []InvestmentSplitType{InvestmentFrom, InvestmentTo}},
	ActionSpinoff:                  {Required: []InvestmentSplitType{SplitInvestment, InvestmentTo}},
	ActionReinvestDiv:              {Required: []InvestmentSplitType{DistributionSource, SplitInvestment}, Optional: []InvestmentSplitType{SplitFee, SplitTax, CashInLieu}},
	ActionReinvestDistrib:          {Required: []InvestmentSplitType{DistributionSource, SplitInvestment}, Optional: []InvestmentSplitType{SplitFee, SplitTax, CashInLieu}},
	ActionDividend:                 {Required: []InvestmentSplitType{DistributionSource, DistributionDest}, Optional: []InvestmentSplitType{SplitTax}},
	ActionDistribution:             {Required: []InvestmentSplitType{DistributionSource, DistributionDest}, Optional: []InvestmentSplitType{SplitTax}},
	ActionStockSplit:               {Required: []InvestmentSplitType{SplitInvestment}},
	ActionCostBasisAdjustment:      {Required: []InvestmentSplitType{SplitInvestment}},
	ActionUndistributedCapitalGain: {Required: []InvestmentSplitType{SplitInvestment}},
}

// requiresCompositionSum100 lists actions whose DistribComposition must sum
// to 100 when present.
func requiresCompositionSum100(action InvestmentAction) bool {
	return action == ActionReinvestDistrib || action == ActionDistribution
}

// anchorOnlyAction reports whether action's single required split must carry
// a zero amount (StockSplit/CostBasisAdjustment/UndistributedCapitalGain).
func anchorOnlyAction(action InvestmentAction) bool {
	return action == ActionStockSplit || action == ActionCostBasisAdjustment || action == ActionUndistributedCapitalGain
}

// ValidateInvestmentSplits checks splits against action's required/optional
// split-type set, account-type/security rules, and composition
// constraints. On success it returns the SplitTypes reverse index.
func ValidateInvestmentSplits(action InvestmentAction, splits []Split, accounts AccountRegistry, securities SecurityRegistry, composition map[DistribType]Amount) (map[InvestmentSplitType]int, error) {
	rule, ok := actionMatrix[action]
	if !ok {
		return nil, newValidationError("investment", "unknown action %v", action)
	}
	allowed := make(map[InvestmentSplitType]bool, len(rule.Required)+len(rule.Optional)+1)
	for _, t := range rule.Required {
		allowed[t] = true
	}
	for _, t := range rule.Optional {
		allowed[t] = true
	}
	allowed[SplitTrading] = true

	index := make(map[InvestmentSplitType]int)
	seen := make(map[InvestmentSplitType]bool)
	for i, s := range splits {
		t := s.UserData
		if t == NoSplitType {
			return nil, newValidationError("investment", "split %d has no InvestmentSplitType", i)
		}
		if !allowed[t] {
			return nil, newValidationError("investment", "split type %s not allowed for action %v", t, action)
		}
		if t != SplitTrading {
			if seen[t] {
				return nil, newValidationError("investment", "duplicate split type %s", t)
			}
			seen[t] = true
			index[t] = i
		}
		acct, ok := accounts.Account(s.Account)
		if !ok {
			return nil, newLookupError("account", string(s.Account))
		}
		if acct.IsPlaceholder {
			return nil, newStateError("account %s is a placeholder", s.Account)
		}
		zeroOK := anchorOnlyAction(action) && (t == SplitInvestment)
		if s.Amount.IsZero() && !zeroOK {
			return nil, newValidationError("investment", "split %d (%s) has zero amount", i, t)
		}
		if !s.Amount.IsZero() && zeroOK {
			return nil, newValidationError("investment", "anchor split for action %v must have zero amount", action)
		}
	}
	for _, t := range rule.Required {
		if _, ok := index[t]; !ok {
			return nil, newValidationError("investment", "action %v requires a %s split", action, t)
		}
	}

	if err := validateInvestmentAccountRoles(action, splits, index, accounts, securities); err != nil {
		return nil, err
	}

	if requiresCompositionSum100(action) {
		sum := ZeroAmount(2)
		for _, amt := range composition {
			sum = sum.Add(amt)
		}
		if !sum.Equal(NewAmount(100, 0)) && len(composition) > 0 {
			return nil, newValidationError("investment", "distribution composition must sum to 100, got %s", sum)
		}
	}

	return index, nil
}

func validateInvestmentAccountRoles(action InvestmentAction, splits []Split, index map[InvestmentSplitType]int, accounts AccountRegistry, securities SecurityRegistry) error {
	investmentRole := func(t InvestmentSplitType) (*Account, bool) {
		i, ok := index[t]
		if !ok {
			return nil, false
		}
		a, _ := accounts.Account(splits[i].Account)
		return a, a != nil
	}

	checkInvestmentAccount := func(a *Account) error {
		if a.Type != Investment || a.SecurityID == "" {
			return newValidationError("investment", "account %s is not an investment account with a security", a.ID)
		}
		return nil
	}

	if a, ok := investmentRole(SplitInvestment); ok {
		if err := checkInvestmentAccount(a); err != nil {
			return err
		}
		if i, ok2 := index[CostProceeds]; ok2 {
			sec, ok3 := securities.Get(a.SecurityID)
			if !ok3 {
				return newLookupError("security", string(a.SecurityID))
			}
			if splits[i].Currency != sec.Currency {
				return newValidationError("investment", "CostProceeds currency %s must equal security currency %s", splits[i].Currency, sec.Currency)
			}
		}
	}

	from, hasFrom := investmentRole(InvestmentFrom)
	to, hasTo := investmentRole(InvestmentTo)
	if hasFrom {
		if err := checkInvestmentAccount(from); err != nil {
			return err
		}
	}
	if hasTo {
		if err := checkInvestmentAccount(to); err != nil {
			return err
		}
	}
	switch action {
	case ActionTransfer:
		if hasFrom && hasTo && from.SecurityID != to.SecurityID {
			return newValidationError("investment", "Transfer requires both accounts to hold the same security")
		}
	case ActionSwap:
		if hasFrom && hasTo && from.SecurityID == to.SecurityID {
			return newValidationError("investment", "Swap requires distinct securities")
		}
	case ActionSpinoff:
		if a, ok := investmentRole(SplitInvestment); ok && hasTo && a.SecurityID == to.SecurityID {
			return newValidationError("investment", "Spinoff requires distinct securities")
		}
	}
	return nil
}

// shareCount returns the magnitude of the anchor investment split's amount
// (Investment, or InvestmentFrom when there is no Investment split, as for
// Transfer/Swap)
func shareCount(splits []Split, index map[InvestmentSplitType]int) Amount {
	i, ok := index[SplitInvestment]
	if !ok {
		i, ok = index[InvestmentFrom]
	}
	if !ok {
		return Amount{}
	}
	return splits[i].Amount.Abs()
}

// netPricePerShare adjusts pricePerShare by the fee, per unit share, in
// the direction appropriate to the action. A standalone Fee nets the same
// direction as Sell/ShortSell, since it has no proceeds of its own.
func netPricePerShare(action InvestmentAction, pricePerShare, fee, shares Amount) Amount {
	if shares.IsZero() {
		return pricePerShare
	}
	perShareFee := fee.Div(shares, pricePerShare.Precision())
	switch action {
	case ActionBuy, ActionReinvestDiv, ActionReinvestDistrib, ActionShortCover:
		return pricePerShare.Add(perShareFee)
	case ActionSell, ActionShortSell, ActionFee:
		return pricePerShare.Sub(perShareFee)
	default:
		return pricePerShare
	}
}

func (a InvestmentAction) String() string {
	switch a {
	case ActionBuy:
		return "Buy"
	case ActionSell:
		return "Sell"
	case ActionShortSell:
		return "ShortSell"
	case ActionShortCover:
		return "ShortCover"
	case ActionTransfer:
		return "Transfer"
	case ActionSwap:
		return "Swap"
	case ActionSpinoff:
		return "Spinoff"
	case ActionStockSplit:
		return "StockSplit"
	case ActionDividend:
		return "Dividend"
	case ActionStockDividend:
		return "StockDividend"
	case ActionDistribution:
		return "Distribution"
	case ActionReinvestDiv:
		return "ReinvestDiv"
	case ActionReinvestDistrib:
		return "ReinvestDistrib"
	case ActionUndistributedCapitalGain:
		return "UndistributedCapitalGain"
	case ActionCostBasisAdjustment:
		return "CostBasisAdjustment"
	case ActionFee:
		return "Fee"
	default:
		return fmt.Sprintf("Invalid(%d)", int(a))
	}
}

// isAcquisition reports whether action creates a Lot.
func isAcquisition(action InvestmentAction) bool {
	switch action {
	case ActionBuy, ActionShortSell, ActionReinvestDiv, ActionReinvestDistrib:
		return true
	default:
		return false
	}
}

// isConsumption reports whether action consumes existing lots via a
// LotUsage or LotTransferSwap.
func isConsumption(action InvestmentAction) bool {
	switch action {
	case ActionSell, ActionShortCover, ActionTransfer, ActionSwap, ActionSpinoff:
		return true
	default:
		return false
	}
}

// lotActionClass reports which of the two lot pools (Long vs Short) action
// creates or consumes from.
type LotActionClass int

const (
	LotClassLong LotActionClass = iota
	LotClassShort
)

func lotActionClass(action InvestmentAction) LotActionClass {
	if action == ActionShortSell || action == ActionShortCover {
		return LotClassShort
	}
	return LotClassLong
}
