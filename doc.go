// Package ledgercore implements the transactional accounting core of a
// double-entry personal-finance engine, supporting multi-currency cash
// accounts and security-bearing investment accounts.
//
// The core functionalities include:
//   - Transactions and Splits: Balanced collections of splits committed
//     atomically on a date, with synthetic trading contra splits keeping
//     multi-currency and cash-vs-security transactions at zero per code.
//   - Ledgers: Per-account running tapes over an order-statistics treap,
//     answering balance-at-date, balance-between and cost-basis queries in
//     logarithmic time, with stock splits retroactively scaling historical
//     share counts through date-delimited fragments.
//   - Investment Actions: Buy, sell, short, transfer/swap, stock split,
//     dividend, distribution, reinvestment, cost-basis adjustment and fee
//     transactions, each validated against its required split roles.
//   - Share Lots: A global availability index tracking every lot from
//     acquisition through splits, sales, covers and transfers, rejecting
//     any usage that would overdraw a lot.
//   - Schedules: Recurrence rules (daily through yearly, with weekday and
//     day-marker selectors) that materialise template transactions on
//     demand.
//   - Editing Buffers: Staged single-row edits that validate before
//     committing, for both plain and investment ledger views.
//
// This package serves as the foundational logic for the `ledgercore`
// command-line tool; the chart of accounts, securities, payees and
// persistence surfaces are consumed through narrow registry interfaces.
package ledgercore
