package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type openAccountCmd struct {
	id       string
	name     string
	kind     string
	currency string
	security string
}

func (*openAccountCmd) Name() string     { return "open-account" }
func (*openAccountCmd) Synopsis() string { return "declare a new account in the chart of accounts" }
func (*openAccountCmd) Usage() string {
	return `open-account -id <id> -name <name> -type <type> [-currency <code>] [-security <id>]

  Declares a new account. Cash-like accounts (checking, savings, brokerage)
  carry a currency; investment accounts carry a security id instead.
`
}

func (c *openAccountCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "unique account id")
	f.StringVar(&c.name, "name", "", "display name")
	f.StringVar(&c.kind, "type", "checking", "account type: asset, liability, cash, checking, savings, brokerage, investment, income, expense")
	f.StringVar(&c.currency, "currency", *defaultCurrency, "main currency (cash-like accounts)")
	f.StringVar(&c.security, "security", "", "security id (investment accounts)")
}

func (c *openAccountCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id == "" || c.name == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	if _, ok := accountTypeNames[c.kind]; !ok {
		fmt.Fprintf(os.Stderr, "unknown account type %q\n", c.kind)
		return subcommands.ExitUsageError
	}

	_, docs, err := decodeAccounts()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	for _, d := range docs {
		if d.ID == c.id {
			fmt.Fprintf(os.Stderr, "account %q already exists\n", c.id)
			return subcommands.ExitFailure
		}
	}
	docs = append(docs, accountDoc{
		ID:           c.id,
		Name:         c.name,
		Type:         c.kind,
		MainCurrency: c.currency,
		SecurityID:   c.security,
	})
	if err := encodeAccounts(docs); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("opened account %q (%s)\n", c.id, c.kind)
	return subcommands.ExitSuccess
}

type addSecurityCmd struct {
	id        string
	symbol    string
	currency  string
	precision int
}

func (*addSecurityCmd) Name() string     { return "add-security" }
func (*addSecurityCmd) Synopsis() string { return "declare a tradeable security" }
func (*addSecurityCmd) Usage() string {
	return `add-security -id <id> -symbol <ticker> -currency <code> [-precision <n>]

  Declares a security an investment account can hold. Precision defaults
  to 6 fractional digits.
`
}

func (c *addSecurityCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "unique security id")
	f.StringVar(&c.symbol, "symbol", "", "ticker symbol")
	f.StringVar(&c.currency, "currency", *defaultCurrency, "currency the security trades in")
	f.IntVar(&c.precision, "precision", 6, "share-count fractional digits")
}

func (c *addSecurityCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id == "" || c.symbol == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	_, docs, err := decodeSecurities()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	for _, d := range docs {
		if d.ID == c.id {
			fmt.Fprintf(os.Stderr, "security %q already exists\n", c.id)
			return subcommands.ExitFailure
		}
	}
	docs = append(docs, securityDoc{ID: c.id, Symbol: c.symbol, Currency: c.currency, Precision: uint8(c.precision)})
	if err := encodeSecurities(docs); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("added security %q (%s)\n", c.id, c.symbol)
	return subcommands.ExitSuccess
}

type listAccountsCmd struct{}

func (*listAccountsCmd) Name() string     { return "accounts" }
func (*listAccountsCmd) Synopsis() string { return "list the chart of accounts" }
func (*listAccountsCmd) Usage() string    { return "accounts\n\n  Lists every declared account.\n" }
func (*listAccountsCmd) SetFlags(*flag.FlagSet) {}

func (c *listAccountsCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	_, docs, err := decodeAccounts()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	for _, d := range docs {
		switch {
		case d.SecurityID != "":
			fmt.Printf("%-20s %-10s security=%s\n", d.ID, d.Type, d.SecurityID)
		default:
			fmt.Printf("%-20s %-10s currency=%s\n", d.ID, d.Type, d.MainCurrency)
		}
	}
	return subcommands.ExitSuccess
}
