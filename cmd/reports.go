package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	ledgercore "github.com/colinmarsh/ledgercore"
	"github.com/colinmarsh/ledgercore/date"
	"github.com/google/subcommands"
)

type balanceCmd struct {
	account string
	asOf    string
}

func (*balanceCmd) Name() string     { return "balance" }
func (*balanceCmd) Synopsis() string { return "print an account's balance as it would appear today" }
func (*balanceCmd) Usage() string {
	return `balance -account <id> [-as-of <date>]

  Prints -account's balance per currency, unconverted, with retroactive
  stock splits already folded in. Omit -account to
  print every account.
`
}

func (c *balanceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "account id; all accounts if empty")
	f.StringVar(&c.asOf, "as-of", "", "as-of date (YYYY-MM-DD); defaults to today")
}

func (c *balanceCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	engine, err := decodeEngine()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	asOf := date.Today()
	if c.asOf != "" {
		asOf, err = date.Parse(c.asOf)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitUsageError
		}
	}

	_, docs, err := decodeAccounts()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		if c.account != "" && d.ID != c.account {
			continue
		}
		ids = append(ids, d.ID)
	}
	if c.account != "" && len(ids) == 0 {
		fmt.Fprintf(os.Stderr, "no such account %q\n", c.account)
		return subcommands.ExitFailure
	}

	for _, id := range ids {
		ledger, err := engine.LedgerFor(ledgercore.AccountID(id))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		bal := ledger.BalanceAt(asOf)
		if len(bal) == 0 {
			fmt.Printf("%-20s (empty)\n", id)
			continue
		}
		for _, cur := range bal.Currencies() {
			fmt.Printf("%-20s %12s %s\n", id, bal[cur].String(), cur)
		}
	}
	return subcommands.ExitSuccess
}
