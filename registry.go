package ledgercore

// AccountType enumerates the chart-of-accounts node kinds named in the
// glossary. Values 50+ are reserved for user-defined codes.
type AccountType int

const (
	TopLevel AccountType = iota
	Asset
	Liability
	Equity
	Income
	Expense
	Trading
	Cash
	Checking
	Investment
	Deposit
	PrepaidCard
	Savings
	Brokerage
	CreditCard
	Property
)

// AccountID identifies an Account within an AccountRegistry.
type AccountID string

// SecurityID identifies a Security within a SecurityRegistry.
type SecurityID string

// Account is read by the core and never mutated; the chart of accounts is
// owned elsewhere. The core only needs these fields to validate splits and
// route ledger entries.
type Account struct {
	ID                  AccountID
	Name                string
	Type                AccountType
	MainCurrency        string
	SecondaryCurrencies []string
	SecurityID          SecurityID // set for Investment accounts and security-trading accounts
	IsPlaceholder       bool
	IsOpen              bool
	ParentID            AccountID
	Precision           uint8
}

// AccountRegistry is the read-only chart-of-accounts collaborator.
type AccountRegistry interface {
	Account(id AccountID) (*Account, bool)
	GetByPath(path string) (*Account, bool)
	TopLevel() []*Account
	CreateCurrencyTradingAccount(code string) *Account
	CreateSecurityTradingAccount(securityID SecurityID) *Account
}

// Security describes a tradeable instrument.
type Security struct {
	ID         SecurityID
	Symbol     string
	Currency   string
	Precision  uint8
}

// SecurityRegistry is the read-only security collaborator.
type SecurityRegistry interface {
	Get(id SecurityID) (*Security, bool)
}

// Currency describes a currency code's display precision.
type Currency struct {
	Code      string
	Precision uint8
}

// CurrencyRegistry is the read-only currency collaborator.
type CurrencyRegistry interface {
	Get(code string) (*Currency, bool)
}

// Payee is a transaction counterparty.
type Payee struct {
	ID   int64
	Name string
}

// PayeeRegistry is the payee collaborator; the buffer may add a payee by
// name on user confirmation.
type PayeeRegistry interface {
	Get(id int64) (*Payee, bool)
	GetByName(name string) (*Payee, bool)
	Add(name string) *Payee
}

// InMemoryAccounts is a minimal in-process AccountRegistry, so the engine
// and its tests are self-contained without a real chart-of-accounts UI.
type InMemoryAccounts struct {
	byID map[AccountID]*Account
	next int
}

func NewInMemoryAccounts() *InMemoryAccounts {
	return &InMemoryAccounts{byID: make(map[AccountID]*Account)}
}

func (r *InMemoryAccounts) Add(a *Account) { r.byID[a.ID] = a }

func (r *InMemoryAccounts) Account(id AccountID) (*Account, bool) {
	a, ok := r.byID[id]
	return a, ok
}

func (r *InMemoryAccounts) GetByPath(path string) (*Account, bool) {
	for _, a := range r.byID {
		if string(a.ID) == path || a.Name == path {
			return a, true
		}
	}
	return nil, false
}

func (r *InMemoryAccounts) TopLevel() []*Account {
	out := make([]*Account, 0)
	for _, a := range r.byID {
		if a.ParentID == "" {
			out = append(out, a)
		}
	}
	return out
}

func (r *InMemoryAccounts) CreateCurrencyTradingAccount(code string) *Account {
	id := AccountID("trading:currency:" + code)
	if a, ok := r.byID[id]; ok {
		return a
	}
	a := &Account{ID: id, Name: "Trading " + code, Type: Trading, MainCurrency: code, IsOpen: true}
	r.byID[id] = a
	return a
}

func (r *InMemoryAccounts) CreateSecurityTradingAccount(securityID SecurityID) *Account {
	id := AccountID("trading:security:" + string(securityID))
	if a, ok := r.byID[id]; ok {
		return a
	}
	a := &Account{ID: id, Name: "Trading " + string(securityID), Type: Trading, SecurityID: securityID, IsOpen: true}
	r.byID[id] = a
	return a
}

// InMemorySecurities is a minimal SecurityRegistry.
type InMemorySecurities struct{ byID map[SecurityID]*Security }

func NewInMemorySecurities() *InMemorySecurities { return &InMemorySecurities{byID: map[SecurityID]*Security{}} }
func (r *InMemorySecurities) Add(s *Security)     { r.byID[s.ID] = s }
func (r *InMemorySecurities) Get(id SecurityID) (*Security, bool) { s, ok := r.byID[id]; return s, ok }

// IsSecurity/NativeCurrency implement SecurityResolver for PriceOracle.
func (r *InMemorySecurities) IsSecurity(id string) bool {
	_, ok := r.byID[SecurityID(id)]
	return ok
}

func (r *InMemorySecurities) NativeCurrency(securityID string) (string, bool) {
	s, ok := r.byID[SecurityID(securityID)]
	if !ok {
		return "", false
	}
	return s.Currency, true
}

// InMemoryCurrencies is a minimal CurrencyRegistry.
type InMemoryCurrencies struct{ byCode map[string]*Currency }

func NewInMemoryCurrencies() *InMemoryCurrencies { return &InMemoryCurrencies{byCode: map[string]*Currency{}} }
func (r *InMemoryCurrencies) Add(c *Currency)    { r.byCode[c.Code] = c }
func (r *InMemoryCurrencies) Get(code string) (*Currency, bool) {
	if c, ok := r.byCode[code]; ok {
		return c, true
	}
	return &Currency{Code: code, Precision: currencyPrecision(code)}, true
}

// InMemoryPayees is a minimal PayeeRegistry.
type InMemoryPayees struct {
	byID   map[int64]*Payee
	byName map[string]*Payee
	next   int64
}

func NewInMemoryPayees() *InMemoryPayees {
	return &InMemoryPayees{byID: map[int64]*Payee{}, byName: map[string]*Payee{}}
}

func (r *InMemoryPayees) Get(id int64) (*Payee, bool) { p, ok := r.byID[id]; return p, ok }
func (r *InMemoryPayees) GetByName(name string) (*Payee, bool) {
	p, ok := r.byName[name]
	return p, ok
}

func (r *InMemoryPayees) Add(name string) *Payee {
	if p, ok := r.byName[name]; ok {
		return p
	}
	r.next++
	p := &Payee{ID: r.next, Name: name}
	r.byID[p.ID] = p
	r.byName[name] = p
	return p
}
