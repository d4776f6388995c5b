// Package cmd implements the CLI application exercising the ledgercore
// engine: a flat-file chart of accounts plus an append-only JSONL
// transaction ledger, with small Decode/Encode helpers around the core.
package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	ledgercore "github.com/colinmarsh/ledgercore"
	"github.com/colinmarsh/ledgercore/date"
	"github.com/google/subcommands"
)

// As a CLI application, it has a very short-lived lifecycle, so it is ok to
// use global variables for flags.
var (
	accountsFile    = flag.String("accounts-file", "accounts.json", "Path to the chart of accounts (JSON)")
	securitiesFile  = flag.String("securities-file", "securities.json", "Path to the security list (JSON)")
	ledgerFile      = flag.String("ledger-file", "transactions.jsonl", "Path to the transaction ledger (JSONL)")
	defaultCurrency = flag.String("default-currency", "USD", "default currency for new cash accounts")
	Verbose         = flag.Bool("v", false, "enable verbose logging")
)

// Register registers every subcommand with c, grouped by concern.
func Register(c *subcommands.Commander) {
	c.Register(&openAccountCmd{}, "accounts")
	c.Register(&listAccountsCmd{}, "accounts")
	c.Register(&addSecurityCmd{}, "accounts")

	c.Register(&transferCmd{}, "transactions")
	c.Register(&buyCmd{}, "transactions")
	c.Register(&sellCmd{}, "transactions")
	c.Register(&splitCmd{}, "transactions")

	c.Register(&balanceCmd{}, "reports")
}

// accountDoc is the on-disk shape of one chart-of-accounts entry; a minimal
// stand-in for the real AccountRegistry collaborator the core treats as
// external and read-only.
type accountDoc struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Type          string   `json:"type"`
	MainCurrency  string   `json:"mainCurrency,omitempty"`
	SecurityID    string   `json:"securityId,omitempty"`
	IsPlaceholder bool     `json:"isPlaceholder,omitempty"`
}

// securityDoc is the on-disk shape of one security list entry; a minimal
// stand-in for the real SecurityRegistry collaborator.
type securityDoc struct {
	ID        string `json:"id"`
	Symbol    string `json:"symbol"`
	Currency  string `json:"currency"`
	Precision uint8  `json:"precision"`
}

var accountTypeNames = map[string]ledgercore.AccountType{
	"asset":      ledgercore.Asset,
	"liability":  ledgercore.Liability,
	"cash":       ledgercore.Cash,
	"checking":   ledgercore.Checking,
	"savings":    ledgercore.Savings,
	"brokerage":  ledgercore.Brokerage,
	"investment": ledgercore.Investment,
	"income":     ledgercore.Income,
	"expense":    ledgercore.Expense,
}

// decodeAccounts reads the chart of accounts from accountsFile. A missing
// file is an empty chart.
func decodeAccounts() (*ledgercore.InMemoryAccounts, []accountDoc, error) {
	reg := ledgercore.NewInMemoryAccounts()
	f, err := os.Open(*accountsFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return reg, nil, nil
		}
		return nil, nil, fmt.Errorf("could not open accounts file %q: %w", *accountsFile, err)
	}
	defer f.Close()

	var docs []accountDoc
	if err := json.NewDecoder(f).Decode(&docs); err != nil {
		return nil, nil, fmt.Errorf("could not decode accounts file %q: %w", *accountsFile, err)
	}
	for _, d := range docs {
		reg.Add(&ledgercore.Account{
			ID:            ledgercore.AccountID(d.ID),
			Name:          d.Name,
			Type:          accountTypeNames[d.Type],
			MainCurrency:  d.MainCurrency,
			SecurityID:    ledgercore.SecurityID(d.SecurityID),
			IsPlaceholder: d.IsPlaceholder,
			IsOpen:        true,
		})
	}
	return reg, docs, nil
}

// encodeAccounts rewrites accountsFile with every account declaration in docs.
func encodeAccounts(docs []accountDoc) error {
	f, err := os.OpenFile(*accountsFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("could not open accounts file %q: %w", *accountsFile, err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(docs)
}

// decodeSecurities reads the security list from securitiesFile. A missing
// file is an empty list.
func decodeSecurities() (*ledgercore.InMemorySecurities, []securityDoc, error) {
	reg := ledgercore.NewInMemorySecurities()
	f, err := os.Open(*securitiesFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return reg, nil, nil
		}
		return nil, nil, fmt.Errorf("could not open securities file %q: %w", *securitiesFile, err)
	}
	defer f.Close()

	var docs []securityDoc
	if err := json.NewDecoder(f).Decode(&docs); err != nil {
		return nil, nil, fmt.Errorf("could not decode securities file %q: %w", *securitiesFile, err)
	}
	for _, d := range docs {
		reg.Add(&ledgercore.Security{ID: ledgercore.SecurityID(d.ID), Symbol: d.Symbol, Currency: d.Currency, Precision: d.Precision})
	}
	return reg, docs, nil
}

// encodeSecurities rewrites securitiesFile with docs.
func encodeSecurities(docs []securityDoc) error {
	f, err := os.OpenFile(*securitiesFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("could not open securities file %q: %w", *securitiesFile, err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(docs)
}

// decodeEngine builds an Engine from the chart of accounts and security
// list, and replays every transaction recorded in ledgerFile, in file
// order, via Engine.AddTransaction, rebuilding the ledgers and the lot
// index as it goes.
func decodeEngine() (*ledgercore.Engine, error) {
	accounts, _, err := decodeAccounts()
	if err != nil {
		return nil, err
	}
	securities, _, err := decodeSecurities()
	if err != nil {
		return nil, err
	}
	currencies := ledgercore.NewInMemoryCurrencies()
	payees := ledgercore.NewInMemoryPayees()
	engine := ledgercore.NewEngine(accounts, securities, currencies, payees, securities, date.Today)

	f, err := os.Open(*ledgerFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return engine, nil
		}
		return nil, fmt.Errorf("could not open ledger file %q: %w", *ledgerFile, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var tx ledgercore.Transaction
		if err := json.Unmarshal(line, &tx); err != nil {
			return nil, fmt.Errorf("could not decode ledger file %q: %w", *ledgerFile, err)
		}
		tx.ID = ledgercore.NoID
		if _, err := engine.AddTransaction(&tx); err != nil {
			return nil, fmt.Errorf("could not replay transaction from %q: %w", *ledgerFile, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("could not read ledger file %q: %w", *ledgerFile, err)
	}
	return engine, nil
}

// appendTransaction marshals tx as one JSON line and appends it to
// ledgerFile.
func appendTransaction(tx *ledgercore.Transaction) error {
	f, err := os.OpenFile(*ledgerFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("could not open ledger file %q: %w", *ledgerFile, err)
	}
	defer f.Close()

	b, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("could not encode transaction: %w", err)
	}
	if _, err := f.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("could not append to ledger file %q: %w", *ledgerFile, err)
	}
	return nil
}
