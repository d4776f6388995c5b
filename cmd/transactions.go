package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	ledgercore "github.com/colinmarsh/ledgercore"
	"github.com/colinmarsh/ledgercore/date"
	"github.com/google/subcommands"
)

func persist(engine *ledgercore.Engine, id ledgercore.TransactionID) subcommands.ExitStatus {
	tx, ok := engine.Transactions().Transaction(id)
	if !ok {
		fmt.Fprintln(os.Stderr, "internal error: transaction vanished after insertion")
		return subcommands.ExitFailure
	}
	if err := appendTransaction(tx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("recorded transaction %d on %s\n", id, tx.Date)
	return subcommands.ExitSuccess
}

// --- Transfer Command ---

type transferCmd struct {
	date           string
	from, to       string
	amount         float64
	currency       string
	memo           string
}

func (*transferCmd) Name() string     { return "transfer" }
func (*transferCmd) Synopsis() string { return "move money between two cash accounts" }
func (*transferCmd) Usage() string {
	return `transfer -d <date> -from <account> -to <account> -amount <n> [-currency <code>] [-m <memo>]

  Debits -from and credits -to. Both splits are booked in the same
  currency (-currency, or -from's main currency), so no currency-trading
  contra splits are added.
`
}

func (c *transferCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", date.Today().String(), "transaction date (YYYY-MM-DD)")
	f.StringVar(&c.from, "from", "", "account debited")
	f.StringVar(&c.to, "to", "", "account credited")
	f.Float64Var(&c.amount, "amount", 0, "amount moved, in -from's currency")
	f.StringVar(&c.currency, "currency", "", "currency code; defaults to -from's main currency")
	f.StringVar(&c.memo, "m", "", "optional memo")
}

func (c *transferCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.from == "" || c.to == "" || c.amount <= 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	d, err := date.Parse(c.date)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	engine, err := decodeEngine()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	cur := c.currency
	if cur == "" {
		a, ok := engine.Accounts.Account(ledgercore.AccountID(c.from))
		if !ok {
			fmt.Fprintf(os.Stderr, "no such account %q\n", c.from)
			return subcommands.ExitFailure
		}
		cur = a.MainCurrency
	}
	amt := ledgercore.AmountFromFloat(c.amount, 2)

	tx := &ledgercore.Transaction{
		Date: d,
		Memo: c.memo,
		Splits: []ledgercore.Split{
			{Account: ledgercore.AccountID(c.from), Currency: cur, Amount: amt.Neg()},
			{Account: ledgercore.AccountID(c.to), Currency: cur, Amount: amt},
		},
	}
	id, err := engine.AddTransaction(tx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return persist(engine, id)
}

// --- Buy Command ---

type buyCmd struct {
	date, account, cash string
	quantity, price, fee float64
	memo                string
}

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "purchase shares into an investment account" }
func (*buyCmd) Usage() string {
	return `buy -d <date> -account <id> -cash <id> -q <quantity> -p <price> [-fee <n>] [-m <memo>]

  Debits -cash by quantity*price+fee and credits -account with the shares,
  creating a new lot.
`
}

func (c *buyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", date.Today().String(), "transaction date (YYYY-MM-DD)")
	f.StringVar(&c.account, "account", "", "investment account id")
	f.StringVar(&c.cash, "cash", "", "cash account id debited for the purchase")
	f.Float64Var(&c.quantity, "q", 0, "number of shares")
	f.Float64Var(&c.price, "p", 0, "price per share")
	f.Float64Var(&c.fee, "fee", 0, "brokerage fee")
	f.StringVar(&c.memo, "m", "", "optional memo")
}

func (c *buyCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" || c.cash == "" || c.quantity <= 0 || c.price <= 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	d, err := date.Parse(c.date)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	engine, err := decodeEngine()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	shares := ledgercore.AmountFromFloat(c.quantity, 6)
	price := ledgercore.AmountFromFloat(c.price, 4)
	fee := ledgercore.AmountFromFloat(c.fee, 2)
	id, err := engine.MakeBuy(d, ledgercore.AccountID(c.account), ledgercore.AccountID(c.cash), shares, price, fee, c.memo)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return persist(engine, id)
}

// --- Sell Command ---

type sellCmd struct {
	date, account, cash  string
	quantity, price, fee float64
	memo                 string
}

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "sell shares from an investment account, FIFO by lot" }
func (*sellCmd) Usage() string {
	return `sell -d <date> -account <id> -cash <id> -q <quantity> -p <price> [-fee <n>] [-m <memo>]

  Allocates the requested quantity against the account's available lots
  in lot-id order (the order the lots were created), then credits -cash
  with the proceeds.
`
}

func (c *sellCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", date.Today().String(), "transaction date (YYYY-MM-DD)")
	f.StringVar(&c.account, "account", "", "investment account id")
	f.StringVar(&c.cash, "cash", "", "cash account id credited with proceeds")
	f.Float64Var(&c.quantity, "q", 0, "number of shares to sell")
	f.Float64Var(&c.price, "p", 0, "price per share")
	f.Float64Var(&c.fee, "fee", 0, "brokerage fee")
	f.StringVar(&c.memo, "m", "", "optional memo")
}

func (c *sellCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" || c.cash == "" || c.quantity <= 0 || c.price <= 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	d, err := date.Parse(c.date)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	engine, err := decodeEngine()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	shares := ledgercore.AmountFromFloat(c.quantity, 6)
	price := ledgercore.AmountFromFloat(c.price, 4)
	fee := ledgercore.AmountFromFloat(c.fee, 2)

	available := engine.Lots().LotsAvailable(ledgercore.LotClassLong, ledgercore.AccountID(c.account), d)
	ids := make([]ledgercore.LotID, 0, len(available))
	for id := range available {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	remaining := shares
	lots := make(map[ledgercore.LotID]ledgercore.Amount)
	for _, id := range ids {
		if remaining.IsZero() || remaining.Sign() <= 0 {
			break
		}
		have := available[id]
		take := have
		if remaining.LessThan(have) {
			take = remaining
		}
		lots[id] = take
		remaining = remaining.Sub(take)
	}
	if !remaining.IsZero() && remaining.Sign() > 0 {
		fmt.Fprintf(os.Stderr, "insufficient shares available in %s as of %s\n", c.account, d)
		return subcommands.ExitFailure
	}

	id, err := engine.MakeSell(d, ledgercore.AccountID(c.account), ledgercore.AccountID(c.cash), shares, price, fee, lots, c.memo)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return persist(engine, id)
}

// --- Stock Split Command ---

type splitCmd struct {
	date, account string
	ratioNew, ratioOld int
}

func (*splitCmd) Name() string     { return "split" }
func (*splitCmd) Synopsis() string { return "record a stock split, retroactively scaling history" }
func (*splitCmd) Usage() string {
	return `split -d <date> -account <id> -new <n> -old <n>

  Records a new:old stock split. Every balance query against -account,
  including one dated before -d, reports holdings recorded before -d at
  the scaled share count.
`
}

func (c *splitCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", date.Today().String(), "split date (YYYY-MM-DD)")
	f.StringVar(&c.account, "account", "", "investment account id")
	f.IntVar(&c.ratioNew, "new", 2, "new share count")
	f.IntVar(&c.ratioOld, "old", 1, "old share count")
}

func (c *splitCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" || c.ratioNew <= 0 || c.ratioOld <= 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	d, err := date.Parse(c.date)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	engine, err := decodeEngine()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	id, err := engine.MakeStockSplit(d, ledgercore.AccountID(c.account), c.ratioNew, c.ratioOld)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return persist(engine, id)
}
