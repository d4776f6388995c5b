package ledgercore

import (
	"testing"

	. "github.com/onsi/gomega"
)

func newInvestmentTestRegistries() (AccountRegistry, SecurityRegistry) {
	accounts := NewInMemoryAccounts()
	accounts.Add(&Account{ID: "brokerage", Name: "Brokerage", Type: Investment, SecurityID: "AAPL", IsOpen: true})
	accounts.Add(&Account{ID: "brokerage2", Name: "Brokerage 2", Type: Investment, SecurityID: "MSFT", IsOpen: true})
	accounts.Add(&Account{ID: "checking", Name: "Checking", Type: Checking, MainCurrency: "USD", IsOpen: true})

	securities := NewInMemorySecurities()
	securities.Add(&Security{ID: "AAPL", Symbol: "AAPL", Currency: "USD", Precision: 6})
	securities.Add(&Security{ID: "MSFT", Symbol: "MSFT", Currency: "USD", Precision: 6})
	return accounts, securities
}

func TestValidateInvestmentSplits_Buy(t *testing.T) {
	g := NewWithT(t)
	accounts, securities := newInvestmentTestRegistries()

	splits := []Split{
		{Account: "checking", Currency: "USD", Amount: AmountFromFloat(-1000, 2), UserData: CostProceeds},
		{Account: "brokerage", Currency: "AAPL", Amount: AmountFromFloat(10, 6), UserData: SplitInvestment},
	}
	idx, err := ValidateInvestmentSplits(ActionBuy, splits, accounts, securities, nil)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(idx).To(HaveKeyWithValue(CostProceeds, 0))
	g.Expect(idx).To(HaveKeyWithValue(SplitInvestment, 1))
}

func TestValidateInvestmentSplits_MissingRequiredSplit(t *testing.T) {
	g := NewWithT(t)
	accounts, securities := newInvestmentTestRegistries()

	splits := []Split{
		{Account: "brokerage", Currency: "AAPL", Amount: AmountFromFloat(10, 6), UserData: SplitInvestment},
	}
	_, err := ValidateInvestmentSplits(ActionBuy, splits, accounts, securities, nil)
	g.Expect(err).To(HaveOccurred())
	var verr *ValidationError
	g.Expect(err).To(BeAssignableToTypeOf(verr))
}

func TestValidateInvestmentSplits_StockSplitAnchorMustBeZero(t *testing.T) {
	g := NewWithT(t)
	accounts, securities := newInvestmentTestRegistries()

	zero := []Split{
		{Account: "brokerage", Currency: "AAPL", Amount: ZeroAmount(6), UserData: SplitInvestment},
	}
	_, err := ValidateInvestmentSplits(ActionStockSplit, zero, accounts, securities, nil)
	g.Expect(err).NotTo(HaveOccurred())

	nonZero := []Split{
		{Account: "brokerage", Currency: "AAPL", Amount: AmountFromFloat(1, 6), UserData: SplitInvestment},
	}
	_, err = ValidateInvestmentSplits(ActionStockSplit, nonZero, accounts, securities, nil)
	g.Expect(err).To(HaveOccurred())
}

func TestValidateInvestmentSplits_TransferRequiresSameSecurity(t *testing.T) {
	g := NewWithT(t)
	accounts, securities := newInvestmentTestRegistries()

	splits := []Split{
		{Account: "brokerage", Currency: "AAPL", Amount: AmountFromFloat(-5, 6), UserData: InvestmentFrom},
		{Account: "brokerage2", Currency: "MSFT", Amount: AmountFromFloat(5, 6), UserData: InvestmentTo},
	}
	_, err := ValidateInvestmentSplits(ActionTransfer, splits, accounts, securities, nil)
	g.Expect(err).To(HaveOccurred())
	g.Expect(err.Error()).To(ContainSubstring("same security"))
}

func TestValidateInvestmentSplits_SwapRequiresDistinctSecurities(t *testing.T) {
	g := NewWithT(t)
	accounts, securities := newInvestmentTestRegistries()

	accounts.(*InMemoryAccounts).Add(&Account{ID: "brokerage3", Name: "Brokerage 3", Type: Investment, SecurityID: "AAPL", IsOpen: true})
	sameSecurity := []Split{
		{Account: "brokerage", Currency: "AAPL", Amount: AmountFromFloat(-5, 6), UserData: InvestmentFrom},
		{Account: "brokerage3", Currency: "AAPL", Amount: AmountFromFloat(5, 6), UserData: InvestmentTo},
	}
	_, err := ValidateInvestmentSplits(ActionSwap, sameSecurity, accounts, securities, nil)
	g.Expect(err).To(HaveOccurred())
	g.Expect(err.Error()).To(ContainSubstring("distinct securities"))
}

func TestValidateInvestmentSplits_DistributionCompositionMustSumTo100(t *testing.T) {
	g := NewWithT(t)
	accounts, securities := newInvestmentTestRegistries()
	accounts.(*InMemoryAccounts).Add(&Account{ID: "dividends", Name: "Dividends", Type: Income, MainCurrency: "USD", IsOpen: true})

	splits := []Split{
		{Account: "dividends", Currency: "USD", Amount: AmountFromFloat(-50, 2), UserData: DistributionSource},
		{Account: "checking", Currency: "USD", Amount: AmountFromFloat(50, 2), UserData: DistributionDest},
	}
	composition := map[DistribType]Amount{ReturnOfCapital: NewAmount(60, 0), CapitalGain: NewAmount(30, 0)}
	_, err := ValidateInvestmentSplits(ActionDistribution, splits, accounts, securities, composition)
	g.Expect(err).To(HaveOccurred())
	g.Expect(err.Error()).To(ContainSubstring("sum to 100"))

	composition[DistribOther] = NewAmount(10, 0)
	_, err = ValidateInvestmentSplits(ActionDistribution, splits, accounts, securities, composition)
	g.Expect(err).NotTo(HaveOccurred())
}

func TestShareCount_PrefersInvestmentThenFrom(t *testing.T) {
	g := NewWithT(t)
	splits := []Split{
		{Amount: AmountFromFloat(-5, 6)},
		{Amount: AmountFromFloat(7, 6)},
	}
	idx := map[InvestmentSplitType]int{InvestmentFrom: 0}
	g.Expect(shareCount(splits, idx).String()).To(Equal("5.000000"))

	idx = map[InvestmentSplitType]int{SplitInvestment: 1, InvestmentFrom: 0}
	g.Expect(shareCount(splits, idx).String()).To(Equal("7.000000"))
}

func TestNetPricePerShare_FeeDirectionByAction(t *testing.T) {
	g := NewWithT(t)
	price := AmountFromFloat(100, 4)
	fee := AmountFromFloat(10, 2)
	shares := AmountFromFloat(10, 6)

	g.Expect(netPricePerShare(ActionBuy, price, fee, shares).String()).To(Equal("101.0000"))
	g.Expect(netPricePerShare(ActionSell, price, fee, shares).String()).To(Equal("99.0000"))
	g.Expect(netPricePerShare(ActionFee, price, fee, shares).String()).To(Equal("99.0000"))
}

func TestIsAcquisitionIsConsumptionLotActionClass(t *testing.T) {
	g := NewWithT(t)
	g.Expect(isAcquisition(ActionBuy)).To(BeTrue())
	g.Expect(isAcquisition(ActionSell)).To(BeFalse())
	g.Expect(isConsumption(ActionSell)).To(BeTrue())
	g.Expect(isConsumption(ActionBuy)).To(BeFalse())
	g.Expect(lotActionClass(ActionShortSell)).To(Equal(LotClassShort))
	g.Expect(lotActionClass(ActionBuy)).To(Equal(LotClassLong))
}
